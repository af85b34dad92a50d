package log

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
	"moul.io/zapfilter"
)

// Config controls log levels per logger name.
//
//	defaultLevel: info
//	loggers:
//	  fetch: debug
//	  fetch.cache: warn
type Config struct {
	DefaultLevel string            `yaml:"defaultLevel"`
	Loggers      map[string]string `yaml:"loggers"`

	defaultLevel Level
	levels       map[string]Level
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read log config: %w", err)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse log config: %w", err)
	}
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) resolve() error {
	c.defaultLevel = InfoLevel
	if c.DefaultLevel != "" {
		l, err := ParseLevel(c.DefaultLevel)
		if err != nil {
			return fmt.Errorf("default level: %w", err)
		}
		c.defaultLevel = l
	}
	c.levels = make(map[string]Level, len(c.Loggers))
	for name, text := range c.Loggers {
		l, err := ParseLevel(text)
		if err != nil {
			return fmt.Errorf("level for logger %s: %w", name, err)
		}
		c.levels[name] = l
	}
	return nil
}

// LevelFor returns the level of the most specific configured logger name.
// "fetch.cache" matches the entries "fetch.cache" and "fetch".
func (c *Config) LevelFor(name string) Level {
	best := ""
	level := c.defaultLevel
	for key, l := range c.levels {
		if (name == key || strings.HasPrefix(name, key+".")) && len(key) > len(best) {
			best = key
			level = l
		}
	}
	return level
}

func (c *Config) wrapCore(core zapcore.Core) zapcore.Core {
	var filter zapfilter.FilterFunc = func(e zapcore.Entry, _ []zapcore.Field) bool {
		return e.Level >= c.LevelFor(e.LoggerName)
	}
	return zapfilter.NewFilteringCore(core, filter)
}
