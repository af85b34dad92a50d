package tcpostgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestContainerOptions(t *testing.T) {
	cfg := &containerConfig{}
	for _, opt := range []PostgresContainerOption{
		WithImage("postgres:16"),
		WithName("other"),
		WithInitialDatabase("u", "p", "laps"),
		WithWaitStrategy(wait.ForListeningPort(pgPort)),
	} {
		opt(cfg)
	}
	assert.Equal(t, "postgres:16", cfg.req.Image)
	assert.Equal(t, "other", cfg.req.Name)
	assert.True(t, cfg.reuse)
	assert.Equal(t, []string{"u", "p", "laps"}, []string{cfg.user, cfg.password, cfg.dbName})
	assert.NotNil(t, cfg.req.WaitingFor)
}
