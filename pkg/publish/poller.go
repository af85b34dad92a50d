package publish

import (
	"context"
	"fmt"
	"time"

	"github.com/mpapenbr/schaatslog/log"
	"github.com/mpapenbr/schaatslog/pkg/model"
	"github.com/mpapenbr/schaatslog/pkg/utils/clock"
)

const DefaultInterval = 30 * time.Second

// LoadFunc returns the current lap list of a transponder.
type LoadFunc func(ctx context.Context, transponder string) ([]model.Lap, error)

type (
	PollerOption func(*Poller)
	Poller       struct {
		transponder string
		load        LoadFunc
		interval    time.Duration
		clock       clock.Clock
		log         *log.Logger
		seen        map[string]struct{}
	}
)

func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithPollerClock(c clock.Clock) PollerOption {
	return func(p *Poller) {
		p.clock = c
	}
}

func WithPollerLogger(l *log.Logger) PollerOption {
	return func(p *Poller) {
		p.log = l
	}
}

func NewPoller(transponder string, load LoadFunc, opts ...PollerOption) *Poller {
	ret := &Poller{
		transponder: transponder,
		load:        load,
		interval:    DefaultInterval,
		clock:       clock.Real(),
		log:         log.Default().Named("poller"),
		seen:        map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func lapKey(l *model.Lap) string {
	return fmt.Sprintf("%s/%d", l.Date, l.LapNumber)
}

// Poll loads the laps once and returns those not seen before.
// The first poll returns all laps.
func (p *Poller) Poll(ctx context.Context) (Batch, error) {
	laps, err := p.load(ctx, p.transponder)
	if err != nil {
		return Batch{}, err
	}
	fresh := []model.Lap{}
	for i := range laps {
		k := lapKey(&laps[i])
		if _, ok := p.seen[k]; ok {
			continue
		}
		p.seen[k] = struct{}{}
		fresh = append(fresh, laps[i])
	}
	return Batch{Transponder: p.transponder, Laps: fresh, Time: p.clock.Now()}, nil
}

// Run polls every interval and sends non-empty batches to out until ctx is
// done. Load errors are logged and retried with the next tick. out is closed
// when Run returns.
func (p *Poller) Run(ctx context.Context, out chan<- Batch) {
	defer close(out)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		b, err := p.Poll(ctx)
		switch {
		case err != nil:
			p.log.Warn("poll failed", log.ErrorField(err))
		case len(b.Laps) > 0:
			p.log.Info("new laps",
				log.String("transponder", b.Transponder), log.Int("laps", len(b.Laps)))
			select {
			case out <- b:
			case <-ctx.Done():
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
