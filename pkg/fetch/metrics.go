package fetch

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/mpapenbr/schaatslog/log"
)

type metrics struct {
	requests    metric.Int64Counter
	errors      metric.Int64Counter
	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter
}

func newMetrics(l *log.Logger) *metrics {
	meter := otel.GetMeterProvider().Meter("schaatslog.fetch")
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name,
			metric.WithDescription(desc),
			metric.WithUnit("{count}"))
		if err != nil {
			l.Error("failed to register metric",
				log.String("metric", name), log.ErrorField(err))
		}
		return c
	}
	return &metrics{
		requests:    counter("schaatslog.fetch.requests", "Number of requests to the timing service"),
		errors:      counter("schaatslog.fetch.errors", "Number of failed fetches"),
		cacheHits:   counter("schaatslog.fetch.cache.hits", "Number of fetches served from cache"),
		cacheMisses: counter("schaatslog.fetch.cache.misses", "Number of cache misses"),
	}
}

func add(ctx context.Context, c metric.Int64Counter) {
	if c != nil {
		c.Add(ctx, 1)
	}
}

func (m *metrics) request(ctx context.Context)   { add(ctx, m.requests) }
func (m *metrics) failed(ctx context.Context)    { add(ctx, m.errors) }
func (m *metrics) cacheHit(ctx context.Context)  { add(ctx, m.cacheHits) }
func (m *metrics) cacheMiss(ctx context.Context) { add(ctx, m.cacheMisses) }
