package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/mpapenbr/schaatslog/log"
	"github.com/mpapenbr/schaatslog/pkg/model"
)

const DefaultSubjectPrefix = "laps"

// Batch holds the laps which appeared since the previous poll.
type Batch struct {
	Transponder string      `json:"transponder"`
	Laps        []model.Lap `json:"laps"`
	Time        time.Time   `json:"time"`
}

type Publisher interface {
	Publish(ctx context.Context, b Batch) error
}

var ErrNoConnection = errors.New("no nats connection")

type (
	Option        func(*NatsPublisher)
	NatsPublisher struct {
		conn          *nats.Conn
		subjectPrefix string
		bucket        string
		kv            jetstream.KeyValue
		log           *log.Logger
	}
)

func WithConn(nc *nats.Conn) Option {
	return func(p *NatsPublisher) {
		p.conn = nc
	}
}

func WithSubjectPrefix(prefix string) Option {
	return func(p *NatsPublisher) {
		p.subjectPrefix = prefix
	}
}

// WithSnapshotBucket keeps the latest batch per transponder in a JetStream
// key value bucket.
func WithSnapshotBucket(bucket string) Option {
	return func(p *NatsPublisher) {
		p.bucket = bucket
	}
}

func WithLogger(l *log.Logger) Option {
	return func(p *NatsPublisher) {
		p.log = l
	}
}

var _ Publisher = (*NatsPublisher)(nil)

func NewNatsPublisher(ctx context.Context, opts ...Option) (*NatsPublisher, error) {
	ret := &NatsPublisher{
		subjectPrefix: DefaultSubjectPrefix,
		log:           log.Default().Named("publish"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.conn == nil {
		return nil, ErrNoConnection
	}
	if ret.bucket != "" {
		js, err := jetstream.New(ret.conn)
		if err != nil {
			return nil, err
		}
		ret.kv, err = js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket: ret.bucket,
		})
		if err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", ret.bucket, err)
		}
	}
	return ret, nil
}

// Subject returns the subject for a transponder, e.g. "laps.FZ-62579".
func Subject(prefix, transponder string) string {
	return prefix + "." + subjectToken(transponder)
}

// dots and wildcards are not allowed within a subject token
func subjectToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ':
			return '_'
		}
		return r
	}, s)
}

func (p *NatsPublisher) Publish(ctx context.Context, b Batch) error {
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	subject := Subject(p.subjectPrefix, b.Transponder)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	p.log.Debug("published",
		log.String("subject", subject), log.Int("laps", len(b.Laps)))
	if p.kv != nil {
		if _, err := p.kv.Put(ctx, subjectToken(b.Transponder), data); err != nil {
			return fmt.Errorf("store snapshot: %w", err)
		}
	}
	return nil
}

// Relay publishes every batch received on ch until ch is closed or ctx is done.
// Publish errors are logged.
func Relay(ctx context.Context, ch <-chan Batch, p Publisher, l *log.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-ch:
			if !ok {
				return
			}
			if err := p.Publish(ctx, b); err != nil {
				l.Warn("could not publish batch",
					log.String("transponder", b.Transponder), log.ErrorField(err))
			}
		}
	}
}
