package broadcast

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mpapenbr/schaatslog/log"
)

// BroadcastServer fans out every message received on the source channel to
// all subscribers. Slow subscribers miss messages instead of blocking others.
type BroadcastServer[T any] interface {
	Subscribe() <-chan T
	CancelSubscription(<-chan T)
	Close()
}

const DefaultSendTimeout = 50 * time.Millisecond

type broadcastServer[T any] struct {
	name           string
	topic          string
	source         <-chan T
	listeners      []chan T
	addListener    chan chan T
	removeListener chan (<-chan T)
	ctx            context.Context
	cancel         context.CancelFunc
	sendTimeout    time.Duration
	numRcv         atomic.Int64
	numSnd         atomic.Int64
	numSkip        atomic.Int64
	numListener    atomic.Int64
	logger         *log.Logger
}

type Option[T any] func(*broadcastServer[T])

func WithSendTimeout[T any](d time.Duration) Option[T] {
	return func(b *broadcastServer[T]) {
		b.sendTimeout = d
	}
}

func WithLogger[T any](l *log.Logger) Option[T] {
	return func(b *broadcastServer[T]) {
		b.logger = l
	}
}

func (b *broadcastServer[T]) Subscribe() <-chan T {
	ch := make(chan T)
	select {
	case b.addListener <- ch:
	case <-b.ctx.Done():
		close(ch)
	}
	return ch
}

func (b *broadcastServer[T]) CancelSubscription(ch <-chan T) {
	select {
	case b.removeListener <- ch:
	case <-b.ctx.Done():
	}
}

func (b *broadcastServer[T]) Close() {
	b.logger.Info("Closing broadcast server",
		log.String("name", b.name),
		log.Int64("rcv", b.numRcv.Load()),
		log.Int64("snd", b.numSnd.Load()),
		log.Int64("skip", b.numSkip.Load()))
	b.cancel()
}

// NewBroadcastServer starts serving source until Close is called or source
// is closed. topic is attached to the metrics as attribute.
//
//nolint:whitespace // false positive
func NewBroadcastServer[T any](
	topic, name string,
	source <-chan T,
	opts ...Option[T],
) BroadcastServer[T] {
	ctx, cancel := context.WithCancel(context.Background())
	b := &broadcastServer[T]{
		topic:          topic,
		name:           name,
		source:         source,
		addListener:    make(chan chan T),
		removeListener: make(chan (<-chan T)),
		ctx:            ctx,
		cancel:         cancel,
		sendTimeout:    DefaultSendTimeout,
		logger:         log.Default().Named("broadcast"),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.setupMetrics()
	go b.serve()
	return b
}

func (b *broadcastServer[T]) setupMetrics() {
	meter := otel.GetMeterProvider().Meter(fmt.Sprintf("schaatslog.broadcast.%s", b.name))
	attrs := metric.WithAttributes(
		attribute.String("name", b.name),
		attribute.String("topic", b.topic),
	)
	register := func(metricName, desc string, value *atomic.Int64) {
		if _, err := meter.Int64ObservableGauge(
			metricName,
			metric.WithDescription(desc),
			metric.WithUnit("{count}"),
			metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
				o.Observe(value.Load(), attrs)
				return nil
			})); err != nil {
			b.logger.Error("failed to register metric",
				log.String("metric", metricName),
				log.ErrorField(err))
		}
	}
	register("schaatslog.broadcast.rcv", "Number of received messages", &b.numRcv)
	register("schaatslog.broadcast.snd", "Number of sent messages", &b.numSnd)
	register("schaatslog.broadcast.skip", "Number of skipped messages", &b.numSkip)
	register("schaatslog.broadcast.listener", "Number of listeners", &b.numListener)
}

func (b *broadcastServer[T]) serve() {
	defer func() {
		b.logger.Debug("Closing listeners", log.String("name", b.name))
		for _, listener := range b.listeners {
			close(listener)
		}
		b.listeners = nil
		b.numListener.Store(0)
		b.cancel()
	}()
	for {
		select {
		case <-b.ctx.Done():
			return
		case ch := <-b.addListener:
			b.listeners = append(b.listeners, ch)
			b.numListener.Store(int64(len(b.listeners)))
		case ch := <-b.removeListener:
			for i, listener := range b.listeners {
				if listener == ch {
					b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
					close(listener)
					break
				}
			}
			b.numListener.Store(int64(len(b.listeners)))
			b.logger.Debug("removed listener",
				log.String("name", b.name), log.Int("len", len(b.listeners)))
		case msg, ok := <-b.source:
			if !ok {
				b.logger.Debug("source closed", log.String("name", b.name))
				return
			}
			b.numRcv.Add(1)
			b.dispatch(msg)
		}
	}
}

func (b *broadcastServer[T]) dispatch(msg T) {
	for _, listener := range b.listeners {
		timer := time.NewTimer(b.sendTimeout)
		select {
		case listener <- msg:
			b.numSnd.Add(1)
		case <-timer.C:
			b.numSkip.Add(1)
		case <-b.ctx.Done():
			timer.Stop()
			return
		}
		timer.Stop()
	}
}
