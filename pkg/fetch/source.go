package fetch

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mpapenbr/schaatslog/log"
	"github.com/mpapenbr/schaatslog/pkg/canonical"
	"github.com/mpapenbr/schaatslog/pkg/model"
	"github.com/mpapenbr/schaatslog/pkg/parser"
	"github.com/mpapenbr/schaatslog/pkg/utils/cache/ttlcache"
	"github.com/mpapenbr/schaatslog/pkg/utils/clock"
)

// State is what a consumer of a Source gets to see.
type State struct {
	Loading     bool
	Err         string
	Laps        []model.Lap
	Seq         uint64 // sequence number of the request which produced this state
	Transponder string
	Filter      model.FilterMode
}

type (
	// Source fetches, parses and caches laps. Each request gets a sequence
	// number. A result only becomes the current state if no newer request
	// has already completed.
	Source struct {
		fetcher Fetcher
		cache   *ttlcache.TTLCache[string, []model.Lap]
		clock   clock.Clock
		l       *log.Logger
		metrics *metrics

		mu       sync.Mutex
		state    State
		nextSeq  uint64
		applied  uint64
		inflight int
		lastT    string
		lastF    model.FilterMode
		onUpdate []func(State)
	}
	SourceOption func(*sourceConfig)
	sourceConfig struct {
		ttl   time.Duration
		clock clock.Clock
		l     *log.Logger
		cache *ttlcache.TTLCache[string, []model.Lap]
	}
)

// WithCacheTTL sets the cache ttl. A value <= 0 disables caching.
func WithCacheTTL(arg time.Duration) SourceOption {
	return func(c *sourceConfig) {
		c.ttl = arg
	}
}

func WithClock(arg clock.Clock) SourceOption {
	return func(c *sourceConfig) {
		c.clock = arg
	}
}

func WithSourceLogger(arg *log.Logger) SourceOption {
	return func(c *sourceConfig) {
		c.l = arg
	}
}

// WithCache lets several sources share one cache.
func WithCache(arg *ttlcache.TTLCache[string, []model.Lap]) SourceOption {
	return func(c *sourceConfig) {
		c.cache = arg
	}
}

func NewSource(f Fetcher, opts ...SourceOption) *Source {
	cfg := &sourceConfig{
		ttl:   ttlcache.DefaultExpiration,
		clock: clock.Real(),
		l:     log.Default().Named("fetch.source"),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.cache == nil {
		cfg.cache = NewLapCache(cfg.ttl, cfg.clock, cfg.l)
	}
	return &Source{
		fetcher: f,
		cache:   cfg.cache,
		clock:   cfg.clock,
		l:       cfg.l,
		metrics: newMetrics(cfg.l),
		state:   State{Laps: []model.Lap{}},
		lastT:   model.DefaultTransponder,
		lastF:   model.FilterAll,
	}
}

// NewLapCache creates a cache for canonical laps keyed by CacheKey.
func NewLapCache(
	ttl time.Duration, clk clock.Clock, l *log.Logger,
) *ttlcache.TTLCache[string, []model.Lap] {
	return ttlcache.New(
		ttlcache.WithExpiration[string, []model.Lap](ttl),
		ttlcache.WithClock[string, []model.Lap](clk),
		ttlcache.WithLogger[string, []model.Lap](l.Named("cache")),
	)
}

func CacheKey(transponder string, filter model.FilterMode) string {
	return transponder + "|" + string(filter)
}

// OnUpdate registers a callback which receives every applied state.
func (s *Source) OnUpdate(cb func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUpdate = append(s.onUpdate, cb)
}

func (s *Source) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := s.state
	ret.Laps = slices.Clone(s.state.Laps)
	return ret
}

// Fetch returns the laps for transponder and filter.
// Unless force is set a fresh cache entry is used without a request.
// On failure the error is returned and the state holds the message and no laps.
//
//nolint:whitespace // can't make both editor and linter happy
func (s *Source) Fetch(
	ctx context.Context, transponder string, filter model.FilterMode, force bool,
) ([]model.Lap, error) {
	transponder = strings.TrimSpace(transponder)
	if transponder == "" {
		transponder = model.DefaultTransponder
	}
	if filter == "" {
		filter = model.FilterAll
	}
	key := CacheKey(transponder, filter)

	s.mu.Lock()
	s.nextSeq++
	seq := s.nextSeq
	s.lastT, s.lastF = transponder, filter
	s.mu.Unlock()

	if !force && s.cache.Enabled() {
		if laps, err := s.cache.Get(ctx, key); err == nil {
			s.metrics.cacheHit(ctx)
			s.complete(seq, transponder, filter, *laps, nil, false)
			return slices.Clone(*laps), nil
		}
		s.metrics.cacheMiss(ctx)
	}

	s.begin()
	laps, err := s.load(ctx, transponder, filter)
	if err != nil {
		s.metrics.failed(ctx)
		s.complete(seq, transponder, filter, nil, err, true)
		return []model.Lap{}, err
	}
	s.cache.Set(ctx, key, &laps)
	s.complete(seq, transponder, filter, laps, nil, true)
	return slices.Clone(laps), nil
}

// Refetch repeats the last Fetch (or the default transponder if there was none).
func (s *Source) Refetch(ctx context.Context, force bool) ([]model.Lap, error) {
	s.mu.Lock()
	t, f := s.lastT, s.lastF
	s.mu.Unlock()
	return s.Fetch(ctx, t, f, force)
}

func (s *Source) Invalidate(ctx context.Context, transponder string, filter model.FilterMode) {
	s.cache.Invalidate(ctx, CacheKey(transponder, filter))
}

// EvictExpired removes stale cache entries.
func (s *Source) EvictExpired(ctx context.Context) int {
	return s.cache.EvictExpired(ctx)
}

//nolint:whitespace // can't make both editor and linter happy
func (s *Source) load(
	ctx context.Context, transponder string, filter model.FilterMode,
) (laps []model.Lap, err error) {
	s.metrics.request(ctx)
	defer func() {
		// parsing is lenient, but a panic in there must not take the process down
		if r := recover(); r != nil {
			s.l.Error("recovered from panic while processing response", log.Any("panic", r))
			laps, err = nil, errors.New("unexpected error while processing response")
		}
	}()
	body, err := s.fetcher.FetchRaw(ctx, transponder, filter)
	if err != nil {
		return nil, err
	}
	entries, format := parser.Detect(body)
	laps = canonical.FromRaw(entries, transponder, s.clock.Now())
	s.l.Debug("processed response",
		log.String("transponder", transponder),
		log.String("format", format),
		log.Int("entries", len(entries)),
		log.Int("laps", len(laps)))
	return laps, nil
}

func (s *Source) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight++
	s.state.Loading = true
}

//nolint:whitespace // can't make both editor and linter happy
func (s *Source) complete(
	seq uint64,
	transponder string,
	filter model.FilterMode,
	laps []model.Lap,
	err error,
	requested bool,
) {
	s.mu.Lock()
	if requested {
		s.inflight--
	}
	if seq < s.applied {
		s.l.Debug("discarding out-of-order result",
			log.Uint64("seq", seq), log.Uint64("applied", s.applied))
		s.state.Loading = s.inflight > 0
		s.mu.Unlock()
		return
	}
	s.applied = seq
	s.state = State{
		Loading:     s.inflight > 0,
		Laps:        slices.Clone(laps),
		Seq:         seq,
		Transponder: transponder,
		Filter:      filter,
	}
	if s.state.Laps == nil {
		s.state.Laps = []model.Lap{}
	}
	if err != nil {
		s.state.Err = err.Error()
	}
	snapshot := s.state
	cbs := slices.Clone(s.onUpdate)
	s.mu.Unlock()

	for _, cb := range cbs {
		cb(snapshot)
	}
}
