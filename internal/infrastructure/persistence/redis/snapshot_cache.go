package redis

import (
	"context"
	"errors"
)

// SnapshotCache remembers the digest of the last mirrored snapshot so that
// saving an unchanged inventory does not hit the database again.
type SnapshotCache struct {
	cache *Cache
}

// NewSnapshotCache creates a new SnapshotCache.
func NewSnapshotCache(cache *Cache) *SnapshotCache {
	return &SnapshotCache{cache: cache}
}

func (c *SnapshotCache) latestKey() string {
	return c.cache.Key(PrefixSnapshot, "latest")
}

// LastDigest returns the last mirrored digest. ok is false when none is known.
func (c *SnapshotCache) LastDigest(ctx context.Context) (string, bool, error) {
	digest, err := c.cache.GetString(ctx, c.latestKey())
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return "", false, nil
		}
		return "", false, err
	}
	return digest, true, nil
}

// SetLastDigest records the digest of the snapshot just mirrored.
func (c *SnapshotCache) SetLastDigest(ctx context.Context, digest string) error {
	return c.cache.SetString(ctx, c.latestKey(), digest, TTLSnapshot)
}
