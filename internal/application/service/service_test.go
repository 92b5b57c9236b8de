package service

import (
	"context"
	"errors"
	"sync"

	"github.com/coursework/storehub/internal/domain/gradebook"
	"github.com/coursework/storehub/internal/domain/inventory"
	"github.com/coursework/storehub/internal/domain/shared"
	"github.com/coursework/storehub/internal/infrastructure/persistence/file"
)

// Test doubles shared by the service tests.

type flags map[string]bool

func (f flags) IsEnabled(name string) bool { return f[name] }

type recorder struct {
	mu     sync.Mutex
	events []shared.Event
}

func (r *recorder) Publish(e shared.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []shared.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]shared.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType()
	}
	return out
}

func (r *recorder) last() shared.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

type itemCache struct {
	items       map[shared.ItemID]*inventory.Item
	gets        int
	hits        int
	invalidated []shared.ItemID
	flushes     int
}

func newItemCache() *itemCache {
	return &itemCache{items: make(map[shared.ItemID]*inventory.Item)}
}

func (c *itemCache) Get(_ context.Context, id shared.ItemID) (*inventory.Item, bool, error) {
	c.gets++
	item, ok := c.items[id]
	if ok {
		c.hits++
	}
	return item, ok, nil
}

func (c *itemCache) Set(_ context.Context, item *inventory.Item) error {
	c.items[item.ID] = item
	return nil
}

func (c *itemCache) Invalidate(_ context.Context, id shared.ItemID) error {
	delete(c.items, id)
	c.invalidated = append(c.invalidated, id)
	return nil
}

func (c *itemCache) InvalidateAll(context.Context) error {
	c.items = make(map[shared.ItemID]*inventory.Item)
	c.flushes++
	return nil
}

type digestCache struct {
	digest string
	err    error
}

func (c *digestCache) LastDigest(context.Context) (string, bool, error) {
	if c.err != nil {
		return "", false, c.err
	}
	return c.digest, c.digest != "", nil
}

func (c *digestCache) SetLastDigest(_ context.Context, digest string) error {
	c.digest = digest
	return nil
}

type averageCache struct {
	values map[shared.StudentNumber]float64
	err    error
}

func newAverageCache() *averageCache {
	return &averageCache{values: make(map[shared.StudentNumber]float64)}
}

func (c *averageCache) Get(_ context.Context, n shared.StudentNumber) (float64, bool, error) {
	if c.err != nil {
		return 0, false, c.err
	}
	v, ok := c.values[n]
	return v, ok, nil
}

func (c *averageCache) Set(_ context.Context, n shared.StudentNumber, avg float64) error {
	c.values[n] = avg
	return nil
}

func (c *averageCache) Invalidate(_ context.Context, n shared.StudentNumber) error {
	delete(c.values, n)
	return nil
}

var errDiskFull = errors.New("disk full")

type failingFiles struct{}

func (failingFiles) Save(context.Context, string, file.Envelope) error { return errDiskFull }
func (failingFiles) Load(context.Context, string) (file.Envelope, error) {
	return file.Envelope{}, errDiskFull
}

var (
	_ inventory.ItemCache    = (*itemCache)(nil)
	_ gradebook.AverageCache = (*averageCache)(nil)
	_ DigestCache            = (*digestCache)(nil)
	_ FileStore              = failingFiles{}
)
