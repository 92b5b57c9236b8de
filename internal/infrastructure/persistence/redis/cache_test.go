package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/coursework/storehub/internal/domain/inventory"
	"github.com/coursework/storehub/pkg/circuitbreaker"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// offlineCache returns a Cache whose client never connects; only argument
// validation and key building can be exercised with it.
func offlineCache(t *testing.T) *Cache {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheWithClient(client, "test:")
}

func TestConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "localhost:6379", cfg.Addr())

	opts := cfg.Options()
	assert.Equal(t, "localhost:6379", opts.Addr)
	assert.Equal(t, -1, opts.MaxRetries)
	assert.Equal(t, cfg.DialTimeout, opts.DialTimeout)
}

func TestCache_ArgumentValidation(t *testing.T) {
	c := offlineCache(t)
	ctx := context.Background()

	assert.ErrorIs(t, c.Set(ctx, "", 1, time.Minute), ErrCacheKeyEmpty)
	assert.ErrorIs(t, c.Set(ctx, "k", nil, time.Minute), ErrCacheNilValue)
	assert.ErrorIs(t, c.Set(ctx, "k", 1, -time.Second), ErrCacheInvalidTTL)
	assert.ErrorIs(t, c.Set(ctx, "k", func() {}, time.Minute), ErrCacheSerialization)
	assert.ErrorIs(t, c.Get(ctx, "", new(int)), ErrCacheKeyEmpty)
	assert.ErrorIs(t, c.SetString(ctx, "", "v", 0), ErrCacheKeyEmpty)
	assert.ErrorIs(t, c.DeleteByPattern(ctx, ""), ErrCacheKeyEmpty)
	assert.NoError(t, c.Delete(ctx))
}

func TestKeys(t *testing.T) {
	c := offlineCache(t)

	assert.Equal(t, "test:item:A-1", NewItemCache(c, 0).ItemKey("A-1"))
	assert.Equal(t, "test:average:S-9", NewAverageCache(c, 0).AverageKey("S-9"))
	assert.Equal(t, "test:snapshot:latest", NewSnapshotCache(c).latestKey())
}

func TestNewCaches_DefaultTTL(t *testing.T) {
	c := offlineCache(t)
	assert.Equal(t, TTLItem, NewItemCache(c, 0).ttl)
	assert.Equal(t, time.Second, NewItemCache(c, time.Second).ttl)
	assert.Equal(t, TTLAverage, NewAverageCache(c, -1).ttl)
}

func TestCachedItem_RoundTrip(t *testing.T) {
	item, err := inventory.NewItem(inventory.NewItemParams{
		ID:            "A-1",
		Name:          "Widget",
		Description:   "Round",
		Business:      "Acme",
		Price:         3.25,
		BuyPrice:      1,
		RestockAmount: 4,
	})
	require.NoError(t, err)
	item.StockLeft = 2

	assert.Equal(t, item, toCachedItem(item).toDomain())
}

func TestItemCache_SetNil(t *testing.T) {
	ic := NewItemCache(offlineCache(t), 0)
	assert.ErrorIs(t, ic.Set(context.Background(), nil), ErrCacheNilValue)
}

func TestIsFailure(t *testing.T) {
	assert.False(t, IsFailure(nil))
	assert.False(t, IsFailure(ErrCacheMiss))
	assert.False(t, IsFailure(ErrCacheKeyEmpty))
	assert.False(t, IsFailure(fmt.Errorf("%w: bad json", ErrCacheSerialization)))
	assert.True(t, IsFailure(errors.New("dial tcp: connection refused")))
}

func TestCache_BreakerOpensOnConnectionErrors(t *testing.T) {
	cb := circuitbreaker.CacheBreaker(IsFailure, nil)
	c := offlineCache(t).WithBreaker(cb)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := c.GetString(ctx, "k")
		require.Error(t, err)
		assert.NotErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	}

	_, err := c.GetString(ctx, "k")
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.ErrorIs(t, c.Delete(ctx, "k"), circuitbreaker.ErrCircuitOpen)
	assert.ErrorIs(t, c.Set(ctx, "", 1, time.Minute), ErrCacheKeyEmpty, "argument checks run before the breaker")
	assert.Equal(t, 2, cb.Rejected())
}
