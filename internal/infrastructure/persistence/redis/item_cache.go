package redis

import (
	"context"
	"errors"
	"time"

	"github.com/coursework/storehub/internal/domain/inventory"
	"github.com/coursework/storehub/internal/domain/shared"
)

var _ inventory.ItemCache = (*ItemCache)(nil)

// ItemCache implements inventory.ItemCache on top of Cache.
type ItemCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewItemCache creates a new ItemCache. A zero ttl means TTLItem.
func NewItemCache(cache *Cache, ttl time.Duration) *ItemCache {
	if ttl <= 0 {
		ttl = TTLItem
	}
	return &ItemCache{cache: cache, ttl: ttl}
}

// cachedItem is the JSON form of a cached item card.
type cachedItem struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Business      string  `json:"business"`
	Price         float64 `json:"price"`
	BuyPrice      float64 `json:"buy_price"`
	StockLeft     int     `json:"stock_left"`
	RestockAmount int     `json:"restock_amount"`
	Taxed         bool    `json:"taxed"`
}

func toCachedItem(item *inventory.Item) cachedItem {
	return cachedItem{
		ID:            item.ID.String(),
		Name:          item.Name,
		Description:   item.Description,
		Business:      item.Business,
		Price:         item.Price.Float64(),
		BuyPrice:      item.BuyPrice.Float64(),
		StockLeft:     item.StockLeft,
		RestockAmount: item.RestockAmount,
		Taxed:         item.Taxed,
	}
}

func (c cachedItem) toDomain() *inventory.Item {
	return &inventory.Item{
		ID:            shared.ItemID(c.ID),
		Name:          c.Name,
		Description:   c.Description,
		Business:      c.Business,
		Price:         shared.Money(c.Price),
		BuyPrice:      shared.Money(c.BuyPrice),
		StockLeft:     c.StockLeft,
		RestockAmount: c.RestockAmount,
		Taxed:         c.Taxed,
	}
}

// ItemKey generates the cache key for an item card.
func (c *ItemCache) ItemKey(id shared.ItemID) string {
	return c.cache.Key(PrefixItem, id.String())
}

// Get returns a cached item. ok is false on a miss.
func (c *ItemCache) Get(ctx context.Context, id shared.ItemID) (*inventory.Item, bool, error) {
	var ci cachedItem
	if err := c.cache.Get(ctx, c.ItemKey(id), &ci); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return ci.toDomain(), true, nil
}

// Set caches an item card.
func (c *ItemCache) Set(ctx context.Context, item *inventory.Item) error {
	if item == nil {
		return ErrCacheNilValue
	}
	return c.cache.Set(ctx, c.ItemKey(item.ID), toCachedItem(item), c.ttl)
}

// Invalidate drops one item card.
func (c *ItemCache) Invalidate(ctx context.Context, id shared.ItemID) error {
	return c.cache.Delete(ctx, c.ItemKey(id))
}

// InvalidateAll drops every cached item card.
func (c *ItemCache) InvalidateAll(ctx context.Context) error {
	return c.cache.DeleteByPattern(ctx, c.cache.Key(PrefixItem, "*"))
}
