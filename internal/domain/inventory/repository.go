package inventory

import (
	"context"
	"time"

	"github.com/coursework/storehub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Контракты хранилищ. Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository хранит товары по одному.
type Repository interface {
	// Upsert создаёт товар или перезаписывает существующий.
	Upsert(ctx context.Context, item *Item) error

	// GetByID возвращает товар по ID.
	// Возвращает ErrItemNotFound, если товара нет.
	GetByID(ctx context.Context, id shared.ItemID) (*Item, error)

	// List возвращает все товары в порядке Compare.
	List(ctx context.Context) ([]*Item, error)

	// Delete удаляет товар.
	// Возвращает ErrItemNotFound, если товара нет.
	Delete(ctx context.Context, id shared.ItemID) error

	// ReplaceAll атомарно заменяет весь склад.
	ReplaceAll(ctx context.Context, items []*Item) error
}

// ItemCache кэширует карточки товаров.
type ItemCache interface {
	// Get возвращает товар из кэша. ok=false при промахе.
	Get(ctx context.Context, id shared.ItemID) (item *Item, ok bool, err error)

	// Set кладёт товар в кэш.
	Set(ctx context.Context, item *Item) error

	// Invalidate удаляет товар из кэша.
	Invalidate(ctx context.Context, id shared.ItemID) error

	// InvalidateAll очищает кэш товаров.
	InvalidateAll(ctx context.Context) error
}

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOTS
// ══════════════════════════════════════════════════════════════════════════════

// Snapshot - сохранённая копия файла склада.
type Snapshot struct {
	// ID - UUID снимка.
	ID string

	// Encoded - был ли payload закодирован.
	Encoded bool

	// Seed - ключ кодирования (только при Encoded).
	Seed int32

	// Payload - содержимое файла после строки с флагом.
	Payload string

	// Digest - отпечаток содержимого, уникален среди снимков.
	Digest string

	// Items - число товаров в снимке.
	Items int

	// CreatedAt - время создания.
	CreatedAt time.Time
}

// SnapshotRepository хранит историю сохранений склада.
type SnapshotRepository interface {
	// Save сохраняет снимок. Если снимок с таким Digest уже есть,
	// возвращает существующий и created=false.
	Save(ctx context.Context, snapshot *Snapshot) (stored *Snapshot, created bool, err error)

	// Latest возвращает самый свежий снимок.
	// Возвращает shared.ErrNotFound, если снимков нет.
	Latest(ctx context.Context) (*Snapshot, error)

	// GetByDigest возвращает снимок по отпечатку.
	GetByDigest(ctx context.Context, digest string) (*Snapshot, error)

	// List возвращает последние снимки, новые первыми.
	List(ctx context.Context, limit int) ([]*Snapshot, error)
}
