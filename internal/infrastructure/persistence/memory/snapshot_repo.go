package memory

import (
	"context"
	"sync"
	"time"

	"github.com/coursework/storehub/internal/domain/inventory"
	"github.com/coursework/storehub/internal/domain/shared"

	"github.com/google/uuid"
)

var _ inventory.SnapshotRepository = (*SnapshotRepository)(nil)

// SnapshotRepository keeps snapshots in insertion order, unique by digest.
type SnapshotRepository struct {
	mu       sync.RWMutex
	order    []*inventory.Snapshot
	byDigest map[string]*inventory.Snapshot
	now      func() time.Time
}

// NewSnapshotRepository creates an empty repository.
func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{
		byDigest: make(map[string]*inventory.Snapshot),
		now:      time.Now,
	}
}

// Save stores snap unless its digest is already known.
func (r *SnapshotRepository) Save(ctx context.Context, snap *inventory.Snapshot) (*inventory.Snapshot, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if snap.Digest == "" {
		return nil, false, shared.NewDomainError("memory", "SaveSnapshot", shared.ErrInvalidInput, "snapshot digest is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byDigest[snap.Digest]; ok {
		c := *existing
		return &c, false, nil
	}

	stored := *snap
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.now().UTC()
	}
	r.order = append(r.order, &stored)
	r.byDigest[stored.Digest] = &stored

	c := stored
	return &c, true, nil
}

// Latest returns the most recently stored snapshot.
func (r *SnapshotRepository) Latest(ctx context.Context) (*inventory.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.order) == 0 {
		return nil, snapshotNotFound("LatestSnapshot")
	}
	c := *r.order[len(r.order)-1]
	return &c, nil
}

// GetByDigest returns the snapshot with the given digest.
func (r *SnapshotRepository) GetByDigest(ctx context.Context, digest string) (*inventory.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byDigest[digest]
	if !ok {
		return nil, snapshotNotFound("GetSnapshotByDigest")
	}
	c := *s
	return &c, nil
}

// List returns up to limit snapshots, newest first.
func (r *SnapshotRepository) List(ctx context.Context, limit int) ([]*inventory.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*inventory.Snapshot, 0, min(limit, len(r.order)))
	for i := len(r.order) - 1; i >= 0 && len(out) < limit; i-- {
		c := *r.order[i]
		out = append(out, &c)
	}
	return out, nil
}

func snapshotNotFound(op string) error {
	return shared.NewDomainError("memory", op, shared.ErrNotFound, "snapshot not found")
}
