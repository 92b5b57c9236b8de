package postgres

import (
	"context"
	"fmt"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATOR
// ══════════════════════════════════════════════════════════════════════════════

const migrationsTable = "schema_migrations"

// Migration is one schema step. AppliedAt is zero until it has run.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
}

// Applied reports whether the migration has run.
func (m Migration) Applied() bool { return !m.AppliedAt.IsZero() }

// Migrator applies the embedded migrations, each in its own transaction.
type Migrator struct {
	db         DB
	migrations []Migration
}

// NewMigrator creates a migrator over GetMigrations.
func NewMigrator(db DB) *Migrator {
	return &Migrator{db: db, migrations: GetMigrations()}
}

// Migrate applies pending migrations in order and returns how many ran.
// It stops at the first failure; earlier steps stay applied.
func (m *Migrator) Migrate(ctx context.Context) (int, error) {
	status, err := m.Status(ctx)
	if err != nil {
		return 0, err
	}

	ran := 0
	for _, mig := range status {
		if mig.Applied() {
			continue
		}
		err := m.db.InTx(ctx, func(q Querier) error {
			if _, err := q.Exec(ctx, mig.UpSQL); err != nil {
				return err
			}
			_, err := q.Exec(ctx, `INSERT INTO `+migrationsTable+` (version, name) VALUES ($1, $2)`, mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return ran, fmt.Errorf("postgres: migration %d (%s) failed: %w", mig.Version, mig.Name, err)
		}
		ran++
	}
	return ran, nil
}

// Rollback reverts the newest applied migration and returns it.
// It returns nil when nothing is applied.
func (m *Migrator) Rollback(ctx context.Context) (*Migration, error) {
	status, err := m.Status(ctx)
	if err != nil {
		return nil, err
	}

	for i := len(status) - 1; i >= 0; i-- {
		mig := status[i]
		if !mig.Applied() {
			continue
		}
		err := m.db.InTx(ctx, func(q Querier) error {
			if _, err := q.Exec(ctx, mig.DownSQL); err != nil {
				return err
			}
			_, err := q.Exec(ctx, `DELETE FROM `+migrationsTable+` WHERE version = $1`, mig.Version)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("postgres: rollback of migration %d (%s) failed: %w", mig.Version, mig.Name, err)
		}
		mig.AppliedAt = time.Time{}
		return &mig, nil
	}
	return nil, nil
}

// Status returns every known migration with AppliedAt filled in.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	if _, err := m.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS `+migrationsTable+` (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`); err != nil {
		return nil, fmt.Errorf("postgres: failed to create %s: %w", migrationsTable, err)
	}

	rows, err := m.db.Query(ctx, `SELECT version, applied_at FROM `+migrationsTable)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to read %s: %w", migrationsTable, err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var at time.Time
		if err := rows.Scan(&version, &at); err != nil {
			return nil, fmt.Errorf("postgres: failed to read %s: %w", migrationsTable, err)
		}
		applied[version] = at
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to read %s: %w", migrationsTable, err)
	}

	out := make([]Migration, len(m.migrations))
	copy(out, m.migrations)
	for i := range out {
		out[i].AppliedAt = applied[out[i].Version]
	}
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EMBEDDED MIGRATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetMigrations returns all embedded migrations in version order.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_items", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_students", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_store_snapshots", UpSQL: migration003Up, DownSQL: migration003Down},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE ITEMS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS items (
    id VARCHAR(64) PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    business TEXT NOT NULL DEFAULT '',
    price DOUBLE PRECISION NOT NULL,
    buy_price DOUBLE PRECISION NOT NULL,
    stock_left INTEGER NOT NULL,
    restock_amount INTEGER NOT NULL,
    taxed BOOLEAN NOT NULL DEFAULT TRUE,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_price CHECK (price >= 0 AND buy_price >= 0),
    CONSTRAINT valid_stock CHECK (stock_left >= 0),
    CONSTRAINT valid_restock CHECK (restock_amount > 0)
);

CREATE INDEX IF NOT EXISTS idx_items_name ON items(name, id);
CREATE INDEX IF NOT EXISTS idx_items_low_stock ON items(stock_left);
`

const migration001Down = `
DROP TABLE IF EXISTS items;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: CREATE STUDENTS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS students (
    id UUID PRIMARY KEY,
    number VARCHAR(20) NOT NULL UNIQUE,
    name TEXT NOT NULL,
    marks INTEGER[] NOT NULL DEFAULT '{}',
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_marks CHECK (-1 <= ALL(marks) AND 100 >= ALL(marks))
);

CREATE INDEX IF NOT EXISTS idx_students_name ON students(name, number);
`

const migration002Down = `
DROP TABLE IF EXISTS students;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: CREATE STORE SNAPSHOTS
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
CREATE TABLE IF NOT EXISTS store_snapshots (
    id UUID PRIMARY KEY,
    encoded BOOLEAN NOT NULL,
    seed INTEGER NOT NULL DEFAULT 0,
    payload TEXT NOT NULL,
    digest CHAR(64) NOT NULL UNIQUE,
    item_count INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    CONSTRAINT valid_seed CHECK (seed >= 0 AND seed <= 999999)
);

CREATE INDEX IF NOT EXISTS idx_store_snapshots_created_at ON store_snapshots(created_at DESC);
`

const migration003Down = `
DROP TABLE IF EXISTS store_snapshots;
`
