package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/coursework/storehub/internal/domain/inventory"
	"github.com/coursework/storehub/internal/domain/shared"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// ITEM REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

var _ inventory.Repository = (*ItemRepository)(nil)

// ItemRepository implements inventory.Repository for PostgreSQL.
type ItemRepository struct {
	db DB
}

// NewItemRepository creates a new ItemRepository.
func NewItemRepository(db DB) *ItemRepository {
	return &ItemRepository{db: db}
}

const itemColumns = `id, name, description, business, price, buy_price, stock_left, restock_amount, taxed`

const upsertItemSQL = `
	INSERT INTO items (` + itemColumns + `, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		description = EXCLUDED.description,
		business = EXCLUDED.business,
		price = EXCLUDED.price,
		buy_price = EXCLUDED.buy_price,
		stock_left = EXCLUDED.stock_left,
		restock_amount = EXCLUDED.restock_amount,
		taxed = EXCLUDED.taxed,
		updated_at = NOW()
`

// Upsert creates or overwrites an item.
func (r *ItemRepository) Upsert(ctx context.Context, item *inventory.Item) error {
	return upsertItem(ctx, r.db, item)
}

// GetByID returns an item by ID.
func (r *ItemRepository) GetByID(ctx context.Context, id shared.ItemID) (*inventory.Item, error) {
	row := r.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, id.String())

	item, err := scanItem(row)
	if IsNoRows(err) {
		return nil, &shared.DomainError{
			Domain:  "inventory",
			Op:      "GetByID",
			Kind:    shared.ErrItemNotFound,
			Message: fmt.Sprintf("item %s not found", id),
		}
	}
	if err != nil {
		return nil, storageError("GetByID", err)
	}
	return item, nil
}

// List returns all items ordered by name, then ID.
func (r *ItemRepository) List(ctx context.Context) ([]*inventory.Item, error) {
	rows, err := r.db.Query(ctx, `SELECT `+itemColumns+` FROM items ORDER BY name, id`)
	if err != nil {
		return nil, storageError("List", err)
	}
	defer rows.Close()

	var items []*inventory.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, storageError("List", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("List", err)
	}

	return items, nil
}

// Delete removes an item.
func (r *ItemRepository) Delete(ctx context.Context, id shared.ItemID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM items WHERE id = $1`, id.String())
	if err != nil {
		return storageError("Delete", err)
	}
	if tag.RowsAffected() == 0 {
		return &shared.DomainError{
			Domain:  "inventory",
			Op:      "Delete",
			Kind:    shared.ErrItemNotFound,
			Message: fmt.Sprintf("item %s not found", id),
		}
	}
	return nil
}

// ReplaceAll replaces the whole table in one transaction.
func (r *ItemRepository) ReplaceAll(ctx context.Context, items []*inventory.Item) error {
	err := r.db.InTx(ctx, func(q Querier) error {
		if _, err := q.Exec(ctx, `DELETE FROM items`); err != nil {
			return storageError("ReplaceAll", err)
		}
		for _, item := range items {
			if err := upsertItem(ctx, q, item); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var de *shared.DomainError
		if errors.As(err, &de) {
			return err
		}
		return storageError("ReplaceAll", err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER METHODS
// ══════════════════════════════════════════════════════════════════════════════

func upsertItem(ctx context.Context, q Querier, item *inventory.Item) error {
	if _, err := q.Exec(ctx, upsertItemSQL, itemArgs(item)...); err != nil {
		if IsCheckViolation(err) {
			return shared.WrapError("inventory", "Upsert", shared.ErrInvalidItem, "item rejected by database", err)
		}
		return storageError("Upsert", err)
	}
	return nil
}

func itemArgs(item *inventory.Item) []any {
	return []any{
		item.ID.String(),
		item.Name,
		item.Description,
		item.Business,
		item.Price.Float64(),
		item.BuyPrice.Float64(),
		item.StockLeft,
		item.RestockAmount,
		item.Taxed,
	}
}

// scanItem scans a single item from a row.
func scanItem(row pgx.Row) (*inventory.Item, error) {
	var item inventory.Item
	var id string
	var price, buyPrice float64

	err := row.Scan(
		&id,
		&item.Name,
		&item.Description,
		&item.Business,
		&price,
		&buyPrice,
		&item.StockLeft,
		&item.RestockAmount,
		&item.Taxed,
	)
	if err != nil {
		return nil, err
	}

	item.ID = shared.ItemID(id)
	item.Price = shared.Money(price)
	item.BuyPrice = shared.Money(buyPrice)

	return &item, nil
}

func storageError(op string, err error) error {
	return shared.WrapError("postgres", op, shared.ErrStorage, "query failed", err)
}
