package memory

import (
	"context"
	"sync"

	"github.com/coursework/storehub/internal/domain/inventory"
	"github.com/coursework/storehub/internal/domain/shared"
)

var _ inventory.Repository = (*ItemRepository)(nil)

// ItemRepository is an inventory.Repository over a Store.
type ItemRepository struct {
	mu    sync.RWMutex
	store *inventory.Store
}

// NewItemRepository creates an empty repository.
func NewItemRepository() *ItemRepository {
	return &ItemRepository{store: inventory.NewStore()}
}

// Upsert creates or overwrites an item.
func (r *ItemRepository) Upsert(ctx context.Context, item *inventory.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := item.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.store.Get(item.ID); err == nil {
		if err := r.store.Remove(item.ID); err != nil {
			return err
		}
	}
	return r.store.Add(item)
}

// GetByID returns a copy of the item.
func (r *ItemRepository) GetByID(ctx context.Context, id shared.ItemID) (*inventory.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store.Get(id)
}

// List returns all items ordered by name, then ID.
func (r *ItemRepository) List(ctx context.Context) ([]*inventory.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store.Items(), nil
}

// Delete removes an item.
func (r *ItemRepository) Delete(ctx context.Context, id shared.ItemID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Remove(id)
}

// ReplaceAll swaps in a new store; on a validation error nothing changes.
func (r *ItemRepository) ReplaceAll(ctx context.Context, items []*inventory.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	next := inventory.NewStore()
	for _, item := range items {
		if err := next.Add(item); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.store = next
	r.mu.Unlock()
	return nil
}
