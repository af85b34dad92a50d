package tcpostgres

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	defaultImage = "postgres:17-alpine"
	pgPort       = nat.Port("5432/tcp")
)

// PostgresContainer is a started postgres container together with the
// credentials it was initialized with.
type PostgresContainer struct {
	testcontainers.Container
	user     string
	password string
	dbName   string
}

type (
	containerConfig struct {
		req      testcontainers.ContainerRequest
		user     string
		password string
		dbName   string
		reuse    bool
	}
	PostgresContainerOption func(cfg *containerConfig)
)

func WithWaitStrategy(strategies ...wait.Strategy) PostgresContainerOption {
	return func(cfg *containerConfig) {
		cfg.req.WaitingFor = wait.ForAll(strategies...).WithDeadline(1 * time.Minute)
	}
}

func WithImage(image string) PostgresContainerOption {
	return func(cfg *containerConfig) {
		cfg.req.Image = image
	}
}

// WithName names the container. Named containers are reused between test runs.
func WithName(containerName string) PostgresContainerOption {
	return func(cfg *containerConfig) {
		cfg.req.Name = containerName
		cfg.reuse = true
	}
}

func WithInitialDatabase(user, password, dbName string) PostgresContainerOption {
	return func(cfg *containerConfig) {
		cfg.user, cfg.password, cfg.dbName = user, password, dbName
	}
}

// SetupPostgres starts (or reuses) a postgres container.
// fsync is turned off, the data is thrown away anyway.
func SetupPostgres(ctx context.Context, opts ...PostgresContainerOption) (
	*PostgresContainer, error,
) {
	cfg := &containerConfig{
		req: testcontainers.ContainerRequest{
			Image:        defaultImage,
			ExposedPorts: []string{string(pgPort)},
			Cmd:          []string{"postgres", "-c", "fsync=off"},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30 * time.Second),
		},
		user:     "postgres",
		password: "password",
		dbName:   "postgres",
	}
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.req.Env = map[string]string{
		"POSTGRES_USER":     cfg.user,
		"POSTGRES_PASSWORD": cfg.password,
		"POSTGRES_DB":       cfg.dbName,
	}

	container, err := testcontainers.GenericContainer(
		ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: cfg.req,
			Started:          true,
			Reuse:            cfg.reuse,
		})
	if err != nil {
		return nil, err
	}
	return &PostgresContainer{
		Container: container,
		user:      cfg.user,
		password:  cfg.password,
		dbName:    cfg.dbName,
	}, nil
}

// ConnectionString returns a postgresql:// url for the mapped port.
func (c *PostgresContainer) ConnectionString(ctx context.Context) (string, error) {
	host, err := c.Host(ctx)
	if err != nil {
		return "", err
	}
	port, err := c.MappedPort(ctx, pgPort)
	if err != nil {
		return "", err
	}
	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(c.user, c.password),
		Host:   fmt.Sprintf("%s:%s", host, port.Port()),
		Path:   c.dbName,
	}
	return u.String(), nil
}
