//nolint:funlen // ok for tests
package fetch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/schaatslog/pkg/model"
	"github.com/mpapenbr/schaatslog/pkg/utils/clock"
)

const sampleBody = `[{"lap":1,"time":"42.3","venue":"Binnen","date":"2025-01-15"},
{"lap":2,"time":"41.8","venue":"Binnen","date":"2025-01-15"}]`

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	body  string
	err   error
}

//nolint:whitespace // can't make both editor and linter happy
func (f *fakeFetcher) FetchRaw(
	ctx context.Context, transponder string, filter model.FilterMode,
) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.body, f.err
}

func (f *fakeFetcher) numCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestSourceCache(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewManual(time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC))
	f := &fakeFetcher{body: sampleBody}
	s := NewSource(f, WithClock(clk))

	laps, err := s.Fetch(ctx, "T1", model.FilterAll, false)
	require.NoError(t, err)
	assert.Len(t, laps, 2)
	_, err = s.Fetch(ctx, "T1", model.FilterAll, false)
	require.NoError(t, err)
	assert.Equal(t, 1, f.numCalls(), "second call within ttl uses the cache")

	_, _ = s.Fetch(ctx, "T1", model.FilterBest, false)
	assert.Equal(t, 2, f.numCalls(), "other filter is another key")

	_, _ = s.Fetch(ctx, "T1", model.FilterAll, true)
	assert.Equal(t, 3, f.numCalls(), "force bypasses the cache")

	clk.Advance(5*time.Minute + time.Second)
	_, _ = s.Fetch(ctx, "T1", model.FilterAll, false)
	assert.Equal(t, 4, f.numCalls(), "expired entry is fetched again")

	s.Invalidate(ctx, "T1", model.FilterAll)
	_, _ = s.Fetch(ctx, "T1", model.FilterAll, false)
	assert.Equal(t, 5, f.numCalls(), "invalidated entry is fetched again")
}

func TestSourceCacheDisabled(t *testing.T) {
	ctx := context.Background()
	f := &fakeFetcher{body: sampleBody}
	s := NewSource(f, WithCacheTTL(0))
	_, _ = s.Fetch(ctx, "T1", model.FilterAll, false)
	_, _ = s.Fetch(ctx, "T1", model.FilterAll, false)
	assert.Equal(t, 2, f.numCalls())
}

func TestSourceErrorResetsState(t *testing.T) {
	ctx := context.Background()
	f := &fakeFetcher{body: sampleBody}
	s := NewSource(f)

	_, err := s.Fetch(ctx, "T1", model.FilterAll, false)
	require.NoError(t, err)
	assert.Len(t, s.State().Laps, 2)

	f.err = &HTTPError{StatusCode: 500, Status: "Internal Server Error"}
	laps, err := s.Fetch(ctx, "T1", model.FilterAll, true)
	assert.Error(t, err)
	assert.Empty(t, laps)
	st := s.State()
	assert.Equal(t, "HTTP 500: Internal Server Error", st.Err)
	assert.Empty(t, st.Laps)
	assert.False(t, st.Loading)

	// a cache hit clears the error
	_, err = s.Fetch(ctx, "T1", model.FilterAll, false)
	require.NoError(t, err)
	st = s.State()
	assert.Empty(t, st.Err)
	assert.Len(t, st.Laps, 2)
}

func TestSourceDefaultsAndRefetch(t *testing.T) {
	ctx := context.Background()
	f := &fakeFetcher{body: sampleBody}
	s := NewSource(f)
	var updates []State
	s.OnUpdate(func(st State) { updates = append(updates, st) })

	_, err := s.Fetch(ctx, "  ", "", false)
	require.NoError(t, err)
	st := s.State()
	assert.Equal(t, model.DefaultTransponder, st.Transponder)
	assert.Equal(t, model.FilterAll, st.Filter)
	for _, l := range st.Laps {
		assert.Equal(t, model.DefaultTransponder, l.Transponder)
	}

	_, err = s.Refetch(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 2, f.numCalls())
	assert.Len(t, updates, 2)
	assert.Greater(t, updates[1].Seq, updates[0].Seq)
}

// blockingFetcher lets the first call wait until released
type blockingFetcher struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
	release chan struct{}
}

//nolint:whitespace // can't make both editor and linter happy
func (f *blockingFetcher) FetchRaw(
	ctx context.Context, transponder string, filter model.FilterMode,
) (string, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	if n == 1 {
		close(f.started)
		<-f.release
		return `[{"lap":1,"time":"50"}]`, nil
	}
	return sampleBody, nil
}

func TestSourceDiscardsOutOfOrderResult(t *testing.T) {
	ctx := context.Background()
	f := &blockingFetcher{started: make(chan struct{}), release: make(chan struct{})}
	s := NewSource(f, WithCacheTTL(0))

	done := make(chan []model.Lap)
	go func() {
		laps, _ := s.Fetch(ctx, "OLD", model.FilterAll, true)
		done <- laps
	}()
	<-f.started

	newer, err := s.Fetch(ctx, "NEW", model.FilterAll, true)
	require.NoError(t, err)
	assert.Len(t, newer, 2)
	assert.True(t, s.State().Loading, "older request still in flight")

	close(f.release)
	older := <-done
	assert.Len(t, older, 1, "caller still gets its own result")

	st := s.State()
	assert.Equal(t, "NEW", st.Transponder)
	assert.Len(t, st.Laps, 2)
	assert.False(t, st.Loading)
}

func TestSourceRecoversFromFetcherError(t *testing.T) {
	f := &fakeFetcher{err: errors.New("network down")}
	s := NewSource(f)
	_, err := s.Fetch(context.Background(), "T1", model.FilterAll, false)
	assert.EqualError(t, err, "network down")
	assert.Equal(t, "network down", s.State().Err)
}

func TestDebouncer(t *testing.T) {
	var (
		mu   sync.Mutex
		got  []string
		fire = make(chan struct{}, 10)
	)
	d := NewDebouncer(20*time.Millisecond, func(v string) {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
		fire <- struct{}{}
	})
	d.Trigger("F")
	d.Trigger("FZ")
	d.Trigger("FZ-1")
	select {
	case <-fire:
	case <-time.After(time.Second):
		t.Fatal("debounced call did not happen")
	}
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, []string{"FZ-1"}, got)
	mu.Unlock()

	d.Trigger("X")
	d.Stop()
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, []string{"FZ-1"}, got)
	mu.Unlock()
}
