// Package cmdutil holds the setup steps shared by the commands.
package cmdutil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgx-contrib/pgxtrace"
	"github.com/spf13/cobra"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/mpapenbr/schaatslog/log"
	"github.com/mpapenbr/schaatslog/pkg/archive"
	"github.com/mpapenbr/schaatslog/pkg/canonical"
	"github.com/mpapenbr/schaatslog/pkg/config"
	"github.com/mpapenbr/schaatslog/pkg/db/postgres"
	"github.com/mpapenbr/schaatslog/pkg/fetch"
	"github.com/mpapenbr/schaatslog/pkg/model"
	"github.com/mpapenbr/schaatslog/pkg/utils"
	"github.com/mpapenbr/schaatslog/pkg/utils/cache/ttlcache"
)

func ParseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

// SetupLogger creates the application logger from the log flags and installs
// it as default. A log config file overrides the log level per logger name.
func SetupLogger() *log.Logger {
	var logger *log.Logger
	opts := []log.Option{log.WithCaller(true), log.AddCallerSkip(1)}
	if config.LogConfig != "" {
		cfg, err := log.LoadConfig(config.LogConfig)
		if err == nil {
			logger = log.NewWithConfig(os.Stderr, config.LogFormat, cfg, opts...)
			log.ResetDefault(logger)
			return logger
		}
		defer log.Warn("could not read log config, using log-level",
			log.String("file", config.LogConfig), log.ErrorField(err))
	}
	logger = newLogger(ParseLogLevel(config.LogLevel, log.InfoLevel))
	log.ResetDefault(logger)
	return logger
}

func newLogger(level log.Level) *log.Logger {
	opts := []log.Option{log.WithCaller(true), log.AddCallerSkip(1)}
	if config.LogFormat == "json" {
		return log.New(os.Stderr, level, opts...)
	}
	return log.DevLogger(os.Stderr, level, opts...)
}

// sqlLogger has its own level unless a log config controls the levels.
func sqlLogger() *log.Logger {
	if config.LogConfig != "" {
		return log.Default().Named("sql")
	}
	return newLogger(ParseLogLevel(config.SQLLogLevel, log.InfoLevel)).Named("sql")
}

// SetupTelemetry starts the otel providers and runtime metrics if enabled.
// Returns nil if telemetry is disabled or could not be set up.
func SetupTelemetry() *config.Telemetry {
	if !config.EnableTelemetry {
		return nil
	}
	log.Info("Enabling telemetry")
	telemetry, err := config.SetupTelemetry(context.Background())
	if err != nil {
		log.Warn("Could not setup telemetry", log.ErrorField(err))
		return nil
	}
	err = otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
	if err != nil {
		log.Warn("Could not start runtime metrics", log.ErrorField(err))
	}
	return telemetry
}

// WaitForServices blocks until the given addresses are reachable or
// terminates the process.
func WaitForServices(addrs ...string) {
	timeout := utils.ParseWaitDuration(config.WaitForServices)
	log.Debug("Waiting for connection checks to return")
	if err := utils.WaitForAll(timeout, addrs...); err != nil {
		log.Fatal("required services not ready", log.ErrorField(err))
	}
	log.Debug("Required services are available")
}

// ConnectDB waits for the database and creates a pool with query tracing.
func ConnectDB(withTelemetry bool) *pgxpool.Pool {
	WaitForServices(utils.ExtractFromDBURL(config.DB))
	pgTracer := pgxtrace.CompositeQueryTracer{
		postgres.NewMyTracer(sqlLogger(), log.DebugLevel),
	}
	if withTelemetry {
		pgTracer = append(pgTracer, postgres.NewOtlpTracer())
	}
	return postgres.InitWithURL(config.DB,
		postgres.WithTracer(pgTracer),
		postgres.WithMaxConns(config.DBMaxConns))
}

// ArchiveIfEnabled returns an archive when --archive is set, nil otherwise.
func ArchiveIfEnabled(withTelemetry bool) (archive.Archive, func()) {
	if !config.Archive {
		return nil, func() {}
	}
	pool := ConnectDB(withTelemetry)
	return archive.New(pool), pool.Close
}

// NewClient creates the timing service client from the fetch flags.
func NewClient() (*fetch.Client, error) {
	ep, err := fetch.ParseEndpoint(config.Endpoint)
	if err != nil {
		return nil, err
	}
	return fetch.NewClient(
		fetch.WithBaseURL(config.BaseURL),
		fetch.WithEndpoint(ep),
		fetch.WithProtocolVersion(config.ProtocolVersion),
	)
}

// CacheTTL parses --cache-ttl, an invalid value uses the default.
func CacheTTL() time.Duration {
	if config.CacheTTL == "" {
		return ttlcache.DefaultExpiration
	}
	d, err := time.ParseDuration(config.CacheTTL)
	if err != nil {
		log.Warn("Invalid cache ttl. Using default",
			log.String("value", config.CacheTTL), log.ErrorField(err))
		return ttlcache.DefaultExpiration
	}
	return d
}

// AddFetchFlags registers the flags describing the timing service.
func AddFetchFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&config.BaseURL,
		"base-url",
		fetch.DefaultBaseURL,
		"base URL of the timing service")
	cmd.Flags().StringVar(&config.Endpoint,
		"endpoint",
		string(fetch.EndpointGetData2),
		"endpoint used for retrieval")
	cmd.Flags().StringVar(&config.ProtocolVersion,
		"protocol-version",
		fetch.DefaultProtocolVersion,
		"version parameter sent with getData2 requests")
}

// WriteLaps prints laps as indented json or csv.
func WriteLaps(w io.Writer, laps []model.Lap, format string) error {
	switch format {
	case "csv":
		return canonical.WriteCSV(w, laps)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(laps)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// WriteJSON prints v as indented json.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
