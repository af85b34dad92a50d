//nolint:funlen // ok for tests
package publish

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/schaatslog/log"
	"github.com/mpapenbr/schaatslog/pkg/model"
	"github.com/mpapenbr/schaatslog/pkg/utils/clock"
)

func lap(num int, date string) model.Lap {
	return model.Lap{LapNumber: num, LapTimeSeconds: 40, Date: date, Transponder: "FZ-1"}
}

type scriptedLoader struct {
	mu    sync.Mutex
	calls int
	steps [][]model.Lap
	errAt int
}

func (s *scriptedLoader) load(_ context.Context, _ string) ([]model.Lap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls == s.errAt {
		return nil, errors.New("boom")
	}
	idx := min(s.calls-1, len(s.steps)-1)
	return s.steps[idx], nil
}

func TestPollReturnsOnlyNewLaps(t *testing.T) {
	l := &scriptedLoader{steps: [][]model.Lap{
		{lap(1, "2025-01-15"), lap(2, "2025-01-15")},
		{lap(1, "2025-01-15"), lap(2, "2025-01-15"), lap(3, "2025-01-15")},
		{lap(1, "2025-01-16")},
	}}
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	p := NewPoller("FZ-1", l.load, WithPollerClock(clock.NewManual(now)))
	ctx := context.Background()

	b, err := p.Poll(ctx)
	require.NoError(t, err)
	assert.Len(t, b.Laps, 2)
	assert.Equal(t, now, b.Time)
	assert.Equal(t, "FZ-1", b.Transponder)

	b, err = p.Poll(ctx)
	require.NoError(t, err)
	require.Len(t, b.Laps, 1)
	assert.Equal(t, 3, b.Laps[0].LapNumber)

	// same lap number on another date is new
	b, err = p.Poll(ctx)
	require.NoError(t, err)
	assert.Len(t, b.Laps, 1)

	b, err = p.Poll(ctx)
	require.NoError(t, err)
	assert.Empty(t, b.Laps)
}

func TestRunSkipsErrorsAndEmptyBatches(t *testing.T) {
	l := &scriptedLoader{
		errAt: 1,
		steps: [][]model.Lap{
			nil,
			{lap(1, "2025-01-15")},
			{lap(1, "2025-01-15")},
			{lap(1, "2025-01-15"), lap(2, "2025-01-15")},
		},
	}
	p := NewPoller("FZ-1", l.load, WithInterval(5*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan Batch)
	go p.Run(ctx, out)

	first := <-out
	assert.Equal(t, 1, first.Laps[0].LapNumber)
	second := <-out
	assert.Equal(t, 2, second.Laps[0].LapNumber)
	cancel()
	for range out {
	}
}

type recordingPublisher struct {
	mu      sync.Mutex
	batches []Batch
	fail    bool
}

func (r *recordingPublisher) Publish(_ context.Context, b Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("unavailable")
	}
	r.batches = append(r.batches, b)
	return nil
}

func TestRelay(t *testing.T) {
	ch := make(chan Batch, 2)
	ch <- Batch{Transponder: "A"}
	ch <- Batch{Transponder: "B"}
	close(ch)
	rec := &recordingPublisher{}
	Relay(context.Background(), ch, rec, log.Default())
	assert.Len(t, rec.batches, 2)

	failing := &recordingPublisher{fail: true}
	ch2 := make(chan Batch, 1)
	ch2 <- Batch{Transponder: "A"}
	close(ch2)
	Relay(context.Background(), ch2, failing, log.Default())
	assert.Empty(t, failing.batches)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "laps.FZ-62579", Subject(DefaultSubjectPrefix, "FZ-62579"))
	assert.Equal(t, "laps.a_b_c", Subject("laps", "a.b*c"))
}

func TestNewNatsPublisherNeedsConnection(t *testing.T) {
	_, err := NewNatsPublisher(context.Background())
	assert.ErrorIs(t, err, ErrNoConnection)
}
