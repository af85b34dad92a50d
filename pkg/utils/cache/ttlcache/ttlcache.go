package ttlcache

import (
	"context"
	"sync"
	"time"

	"github.com/mpapenbr/schaatslog/log"
	"github.com/mpapenbr/schaatslog/pkg/utils/cache"
	"github.com/mpapenbr/schaatslog/pkg/utils/clock"
)

// based on github.com/kittpat1413/go-common/framework/cache/localcache/localcache.go

const DefaultExpiration = 5 * time.Minute

type (
	Option[K comparable, V any] func(*config[K, V])
	item[T any]                 struct {
		data   T
		stored time.Time
	}
	LoaderFunc[K comparable, V any] func(ctx context.Context, key K) (*V, error)
	config[K comparable, V any]     struct {
		expiration time.Duration
		loader     LoaderFunc[K, V]
		clock      clock.Clock
		l          *log.Logger
	}
	TTLCache[K comparable, V any] struct {
		mutex  sync.Mutex
		items  map[K]item[*V]
		config *config[K, V]
	}
)

var _ cache.Cache[string, int] = (*TTLCache[string, int])(nil)

// WithExpiration sets the ttl. A value <= 0 disables caching.
func WithExpiration[K comparable, V any](expiration time.Duration) Option[K, V] {
	return func(c *config[K, V]) {
		c.expiration = expiration
	}
}

func WithLoader[K comparable, V any](lf LoaderFunc[K, V]) Option[K, V] {
	return func(c *config[K, V]) {
		c.loader = lf
	}
}

func WithClock[K comparable, V any](arg clock.Clock) Option[K, V] {
	return func(c *config[K, V]) {
		c.clock = arg
	}
}

func WithLogger[K comparable, V any](arg *log.Logger) Option[K, V] {
	return func(c *config[K, V]) {
		c.l = arg
	}
}

func New[K comparable, V any](opts ...Option[K, V]) *TTLCache[K, V] {
	c := &config[K, V]{
		expiration: DefaultExpiration,
		clock:      clock.Real(),
		l:          log.Default().Named("cache"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return &TTLCache[K, V]{
		mutex:  sync.Mutex{},
		items:  make(map[K]item[*V]),
		config: c,
	}
}

func (c *TTLCache[K, V]) Enabled() bool {
	return c.config.expiration > 0
}

func (c *TTLCache[K, V]) TTL() time.Duration {
	return c.config.expiration
}

// Get returns a fresh entry. Stale entries are removed.
// If a loader is configured it is used to fill the entry on a miss.
func (c *TTLCache[K, V]) Get(ctx context.Context, key K) (*V, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if !c.Enabled() {
		return c.load(ctx, key)
	}
	if cacheItem, ok := c.items[key]; ok {
		if c.fresh(cacheItem) {
			return cacheItem.data, nil
		}
		c.config.l.Debug("entry expired", log.Any("key", key))
		delete(c.items, key)
	}
	return c.load(ctx, key)
}

func (c *TTLCache[K, V]) Set(ctx context.Context, key K, value *V) {
	if !c.Enabled() {
		return
	}
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.items[key] = item[*V]{data: value, stored: c.config.clock.Now()}
}

func (c *TTLCache[K, V]) fresh(i item[*V]) bool {
	return c.config.clock.Since(i.stored) <= c.config.expiration
}

// load must be called with the mutex held
func (c *TTLCache[K, V]) load(ctx context.Context, key K) (*V, error) {
	if c.config.loader == nil {
		return nil, cache.ErrCacheMiss
	}
	v, err := c.config.loader(ctx, key)
	c.config.l.Debug("loaded entry", log.Any("key", key))
	if err != nil {
		c.config.l.Error("error loading entry", log.ErrorField(err))
		return nil, err
	}
	if c.Enabled() {
		c.items[key] = item[*V]{data: v, stored: c.config.clock.Now()}
	}
	return v, nil
}

func (c *TTLCache[K, V]) Invalidate(ctx context.Context, key K) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.items, key)
	c.config.l.Debug("Invalidate",
		log.Any("key", key), log.Int("remain items", len(c.items)))
}

func (c *TTLCache[K, V]) InvalidateAll(ctx context.Context) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.items = make(map[K]item[*V])
}

func (c *TTLCache[K, V]) EvictExpired(ctx context.Context) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	n := 0
	for k, v := range c.items {
		if !c.fresh(v) {
			delete(c.items, k)
			n++
		}
	}
	if n > 0 {
		c.config.l.Debug("evicted expired entries",
			log.Int("evicted", n), log.Int("remain items", len(c.items)))
	}
	return n
}

func (c *TTLCache[K, V]) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.items)
}
