package postgres

import (
	"context"
	"time"

	"github.com/coursework/storehub/internal/domain/inventory"
	"github.com/coursework/storehub/internal/domain/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

var _ inventory.SnapshotRepository = (*SnapshotRepository)(nil)

// SnapshotRepository implements inventory.SnapshotRepository for PostgreSQL.
// The digest column is unique, so saving the same file twice stores it once.
type SnapshotRepository struct {
	db DB
	now  func() time.Time
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(db DB) *SnapshotRepository {
	return &SnapshotRepository{db: db, now: time.Now}
}

const snapshotColumns = `id, encoded, seed, payload, digest, item_count, created_at`

// Save stores a snapshot unless one with the same digest exists.
func (r *SnapshotRepository) Save(ctx context.Context, snap *inventory.Snapshot) (*inventory.Snapshot, bool, error) {
	if snap.Digest == "" {
		return nil, false, shared.NewDomainError("postgres", "SaveSnapshot", shared.ErrInvalidInput, "snapshot digest is required")
	}

	stored := *snap
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.now().UTC()
	}

	var created bool
	err := r.db.InTx(ctx, func(q Querier) error {
		tag, err := q.Exec(ctx, `
			INSERT INTO store_snapshots (`+snapshotColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (digest) DO NOTHING
		`,
			stored.ID, stored.Encoded, stored.Seed, stored.Payload,
			stored.Digest, stored.Items, stored.CreatedAt,
		)
		if err != nil {
			return err
		}
		created = tag.RowsAffected() == 1
		if created {
			return nil
		}

		existing, err := scanSnapshot(q.QueryRow(ctx,
			`SELECT `+snapshotColumns+` FROM store_snapshots WHERE digest = $1`, stored.Digest))
		if err != nil {
			return err
		}
		stored = *existing
		return nil
	})
	if err != nil {
		return nil, false, storageError("SaveSnapshot", err)
	}

	return &stored, created, nil
}

// Latest returns the most recent snapshot.
func (r *SnapshotRepository) Latest(ctx context.Context) (*inventory.Snapshot, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+snapshotColumns+` FROM store_snapshots ORDER BY created_at DESC, id LIMIT 1`)
	return r.one("LatestSnapshot", row)
}

// GetByDigest returns the snapshot with the given digest.
func (r *SnapshotRepository) GetByDigest(ctx context.Context, digest string) (*inventory.Snapshot, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+snapshotColumns+` FROM store_snapshots WHERE digest = $1`, digest)
	return r.one("GetSnapshotByDigest", row)
}

// List returns up to limit snapshots, newest first.
func (r *SnapshotRepository) List(ctx context.Context, limit int) ([]*inventory.Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+snapshotColumns+` FROM store_snapshots ORDER BY created_at DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, storageError("ListSnapshots", err)
	}
	defer rows.Close()

	var out []*inventory.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, storageError("ListSnapshots", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("ListSnapshots", err)
	}
	return out, nil
}

func (r *SnapshotRepository) one(op string, row pgx.Row) (*inventory.Snapshot, error) {
	snap, err := scanSnapshot(row)
	if IsNoRows(err) {
		return nil, shared.NewDomainError("postgres", op, shared.ErrNotFound, "snapshot not found")
	}
	if err != nil {
		return nil, storageError(op, err)
	}
	return snap, nil
}

func scanSnapshot(row pgx.Row) (*inventory.Snapshot, error) {
	var s inventory.Snapshot
	var id uuid.UUID

	err := row.Scan(&id, &s.Encoded, &s.Seed, &s.Payload, &s.Digest, &s.Items, &s.CreatedAt)
	if err != nil {
		return nil, err
	}

	s.ID = id.String()
	return &s, nil
}
