//nolint:funlen // ok for tests
package ttlcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/schaatslog/pkg/utils/cache"
	"github.com/mpapenbr/schaatslog/pkg/utils/clock"
)

var start = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func TestGetSetExpiry(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewManual(start)
	c := New[string, int](
		WithExpiration[string, int](5*time.Minute),
		WithClock[string, int](clk))

	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	c.Set(ctx, "a", ptr(1))
	v, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, *v)

	// boundary is inclusive
	clk.Advance(5 * time.Minute)
	v, err = c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, *v)

	clk.Advance(time.Millisecond)
	_, err = c.Get(ctx, "a")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
	assert.Equal(t, 0, c.Len(), "stale entry is removed on read")
}

func TestDisabled(t *testing.T) {
	ctx := context.Background()
	for _, ttl := range []time.Duration{0, -time.Second} {
		c := New[string, int](WithExpiration[string, int](ttl))
		c.Set(ctx, "a", ptr(1))
		_, err := c.Get(ctx, "a")
		assert.ErrorIs(t, err, cache.ErrCacheMiss)
		assert.False(t, c.Enabled())
		assert.Equal(t, 0, c.Len())
	}
}

func TestLoader(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewManual(start)
	calls := 0
	c := New[string, string](
		WithClock[string, string](clk),
		WithLoader[string, string](func(_ context.Context, key string) (*string, error) {
			calls++
			if key == "bad" {
				return nil, errors.New("boom")
			}
			return ptr(key + "!"), nil
		}))

	v, err := c.Get(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "x!", *v)
	_, _ = c.Get(ctx, "x")
	assert.Equal(t, 1, calls)

	clk.Advance(DefaultExpiration + time.Second)
	_, _ = c.Get(ctx, "x")
	assert.Equal(t, 2, calls)

	_, err = c.Get(ctx, "bad")
	assert.Error(t, err)
}

func TestInvalidateAndEvict(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewManual(start)
	c := New[string, int](WithClock[string, int](clk))
	c.Set(ctx, "a", ptr(1))
	c.Set(ctx, "b", ptr(2))
	c.Invalidate(ctx, "a")
	assert.Equal(t, 1, c.Len())

	clk.Advance(3 * time.Minute)
	c.Set(ctx, "c", ptr(3))
	clk.Advance(3 * time.Minute)
	assert.Equal(t, 1, c.EvictExpired(ctx))
	_, err := c.Get(ctx, "c")
	assert.NoError(t, err)

	c.InvalidateAll(ctx)
	assert.Equal(t, 0, c.Len())
}
