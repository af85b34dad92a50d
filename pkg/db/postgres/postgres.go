package postgres

import (
	"context"
	"fmt"

	"github.com/exaring/otelpgx"
	pgxuuid "github.com/jackc/pgx-gofrs-uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpapenbr/schaatslog/log"
)

type PoolConfigOption func(cfg *pgxpool.Config)

func WithTracer(tracer pgx.QueryTracer) PoolConfigOption {
	return func(cfg *pgxpool.Config) {
		cfg.ConnConfig.Tracer = tracer
	}
}

// WithMaxConns sets the pool size, values < 1 keep the pgxpool default.
func WithMaxConns(n int32) PoolConfigOption {
	return func(cfg *pgxpool.Config) {
		if n > 0 {
			cfg.MaxConns = n
		}
	}
}

// Connect creates a pool and verifies the connection with a ping.
func Connect(ctx context.Context, url string, opts ...PoolConfigOption) (*pgxpool.Pool, error) {
	dbConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	dbConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxuuid.Register(conn.TypeMap())
		return nil
	}
	for _, opt := range opts {
		opt(dbConfig)
	}

	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		return nil, fmt.Errorf("create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// InitWithURL is Connect for command setup, it terminates the process on error.
func InitWithURL(url string, opts ...PoolConfigOption) *pgxpool.Pool {
	pool, err := Connect(context.Background(), url, opts...)
	if err != nil {
		log.Fatal("Unable to init database", log.ErrorField(err))
	}
	return pool
}

func NewOtlpTracer() pgx.QueryTracer {
	return otelpgx.NewTracer(otelpgx.WithIncludeQueryParameters())
}

type myQueryTracer struct {
	log   *log.Logger
	level log.Level
}

type traceStartKey struct{}

type traceStart struct {
	sql  string
	args []any
}

// NewMyTracer logs every query with its duration at the given level.
func NewMyTracer(logger *log.Logger, level log.Level) pgx.QueryTracer {
	return &myQueryTracer{log: logger, level: level}
}

func (tracer *myQueryTracer) TraceQueryStart(
	ctx context.Context,
	_ *pgx.Conn,
	data pgx.TraceQueryStartData,
) context.Context {
	if !tracer.log.Enabled(tracer.level) {
		return ctx
	}
	return context.WithValue(ctx, traceStartKey{},
		traceStart{sql: data.SQL, args: data.Args})
}

//nolint:whitespace // can't make the linters happy
func (tracer *myQueryTracer) TraceQueryEnd(
	ctx context.Context,
	_ *pgx.Conn,
	data pgx.TraceQueryEndData,
) {
	start, ok := ctx.Value(traceStartKey{}).(traceStart)
	if !ok {
		return
	}
	fields := []log.Field{
		log.String("sql", start.sql),
		log.Any("args", start.args),
		log.String("tag", data.CommandTag.String()),
	}
	if data.Err != nil {
		fields = append(fields, log.ErrorField(data.Err))
	}
	tracer.log.Log(tracer.level, "Executed", fields...)
}
