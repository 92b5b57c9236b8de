package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/coursework/storehub/internal/domain/gradebook"
	"github.com/coursework/storehub/internal/domain/shared"
)

var _ gradebook.AverageCache = (*AverageCache)(nil)

// AverageCache implements gradebook.AverageCache on top of Cache.
// Averages are stored as plain decimal strings.
type AverageCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewAverageCache creates a new AverageCache. A zero ttl means TTLAverage.
func NewAverageCache(cache *Cache, ttl time.Duration) *AverageCache {
	if ttl <= 0 {
		ttl = TTLAverage
	}
	return &AverageCache{cache: cache, ttl: ttl}
}

// AverageKey generates the cache key for a student's average.
func (c *AverageCache) AverageKey(number shared.StudentNumber) string {
	return c.cache.Key(PrefixAverage, number.String())
}

// Get returns a cached average. ok is false on a miss.
func (c *AverageCache) Get(ctx context.Context, number shared.StudentNumber) (float64, bool, error) {
	raw, err := c.cache.GetString(ctx, c.AverageKey(number))
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return 0, false, nil
		}
		return 0, false, err
	}

	avg, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		// Unreadable entries count as a miss and are overwritten on the next Set.
		return 0, false, nil
	}
	return avg, true, nil
}

// Set caches an average.
func (c *AverageCache) Set(ctx context.Context, number shared.StudentNumber, avg float64) error {
	return c.cache.SetString(ctx, c.AverageKey(number), strconv.FormatFloat(avg, 'g', -1, 64), c.ttl)
}

// Invalidate drops a cached average.
func (c *AverageCache) Invalidate(ctx context.Context, number shared.StudentNumber) error {
	return c.cache.Delete(ctx, c.AverageKey(number))
}
