package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coursework/storehub/config"
	"github.com/coursework/storehub/internal/domain/inventory"
	"github.com/coursework/storehub/internal/domain/shared"
	"github.com/coursework/storehub/internal/infrastructure/persistence/file"
	"github.com/coursework/storehub/internal/infrastructure/persistence/memory"
	"github.com/coursework/storehub/pkg/fingerprint"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time { return time.UnixMilli(1_700_000_123_456) }

func defaultFlags() flags {
	return flags{
		config.FeatureStoreEncryption:       true,
		config.FeatureStorageSnapshotMirror: true,
		config.FeatureCacheItems:            true,
		config.FeatureEventsStockLow:        true,
	}
}

type inventoryFixture struct {
	svc       *InventoryService
	events    *recorder
	items     *memory.ItemRepository
	snapshots *memory.SnapshotRepository
	cache     *itemCache
	digests   *digestCache
	dir       string
}

func newInventoryFixture(t *testing.T, f flags) *inventoryFixture {
	t.Helper()
	fx := &inventoryFixture{
		events:    &recorder{},
		items:     memory.NewItemRepository(),
		snapshots: memory.NewSnapshotRepository(),
		cache:     newItemCache(),
		digests:   &digestCache{},
		dir:       t.TempDir(),
	}

	svc, err := NewInventoryService(InventoryDeps{
		Files:     file.NewStore(0),
		Items:     fx.items,
		ItemCache: fx.cache,
		Snapshots: fx.snapshots,
		Digests:   fx.digests,
		Events:    fx.events,
		Features:  f,
	}, InventoryConfig{LowStockThreshold: 1, Now: fixedNow})
	require.NoError(t, err)

	fx.svc = svc
	return fx
}

func (fx *inventoryFixture) path(name string) string {
	return filepath.Join(fx.dir, name)
}

func addItems(t *testing.T, svc *InventoryService) {
	t.Helper()
	ctx := context.Background()
	_, err := svc.Add(ctx, inventory.NewItemParams{
		ID: "W-1", Name: "Widget", Description: "Round widget", Business: "Acme",
		Price: 5.5, BuyPrice: 2, RestockAmount: 4,
	})
	require.NoError(t, err)
	_, err = svc.Add(ctx, inventory.NewItemParams{
		ID: "B-7", Name: "Bolt", Business: "Bolts & Co",
		Price: 0.25, BuyPrice: 0.1, RestockAmount: 100,
	})
	require.NoError(t, err)
}

func TestNewInventoryService_Validation(t *testing.T) {
	_, err := NewInventoryService(InventoryDeps{}, InventoryConfig{})
	assert.Error(t, err)

	_, err = NewInventoryService(InventoryDeps{Files: file.NewStore(0)}, InventoryConfig{Alphabet: "a"})
	assert.ErrorIs(t, err, shared.ErrInvalidAlphabet)
}

func TestInventoryService_AddAndSell(t *testing.T) {
	fx := newInventoryFixture(t, defaultFlags())
	ctx := context.Background()
	addItems(t, fx.svc)

	_, err := fx.svc.Add(ctx, inventory.NewItemParams{ID: "W-1", Name: "Dup", RestockAmount: 1})
	assert.ErrorIs(t, err, shared.ErrItemAlreadyExists)

	profit, err := fx.svc.Sell(ctx, "W-1", 3)
	require.NoError(t, err)
	assert.InDelta(t, 10.5, profit.Float64(), 1e-9)

	_, err = fx.svc.Sell(ctx, "W-1", 2)
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)
	_, err = fx.svc.Sell(ctx, "W-1", 0)
	assert.ErrorIs(t, err, shared.ErrInvalidQuantity)
	_, err = fx.svc.Sell(ctx, "nope", 1)
	assert.ErrorIs(t, err, shared.ErrItemNotFound)

	assert.Equal(t, []shared.EventType{
		shared.EventItemAdded,
		shared.EventItemAdded,
		shared.EventItemSold,
		shared.EventStockLow,
	}, fx.events.types())

	stored, err := fx.items.GetByID(ctx, "W-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.StockLeft, "item table mirrors the sale")

	low := fx.svc.LowStock()
	require.Len(t, low, 1)
	assert.Equal(t, shared.ItemID("W-1"), low[0].ID)
}

func TestInventoryService_StockLowFlagOff(t *testing.T) {
	f := defaultFlags()
	f[config.FeatureEventsStockLow] = false
	fx := newInventoryFixture(t, f)
	addItems(t, fx.svc)

	_, err := fx.svc.Sell(context.Background(), "W-1", 4)
	require.NoError(t, err)
	assert.Equal(t, shared.EventItemSold, fx.events.last().EventType())
}

func TestInventoryService_GetUsesCache(t *testing.T) {
	fx := newInventoryFixture(t, defaultFlags())
	ctx := context.Background()
	addItems(t, fx.svc)

	item, err := fx.svc.Get(ctx, "W-1")
	require.NoError(t, err)
	assert.Equal(t, "Widget", item.Name)
	assert.Equal(t, 0, fx.cache.hits)

	_, err = fx.svc.Get(ctx, "W-1")
	require.NoError(t, err)
	assert.Equal(t, 1, fx.cache.hits)

	_, err = fx.svc.Sell(ctx, "W-1", 1)
	require.NoError(t, err)
	assert.Equal(t, []shared.ItemID{"W-1"}, fx.cache.invalidated)

	item, err = fx.svc.Get(ctx, "W-1")
	require.NoError(t, err)
	assert.Equal(t, 3, item.StockLeft)

	_, err = fx.svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, shared.ErrItemNotFound)
	_, err = fx.svc.Get(ctx, "")
	assert.ErrorIs(t, err, shared.ErrInvalidID)
}

func TestInventoryService_GetWithoutCacheFlag(t *testing.T) {
	f := defaultFlags()
	f[config.FeatureCacheItems] = false
	fx := newInventoryFixture(t, f)
	addItems(t, fx.svc)

	_, err := fx.svc.Get(context.Background(), "W-1")
	require.NoError(t, err)
	assert.Equal(t, 0, fx.cache.gets)
}

func TestInventoryService_Restock(t *testing.T) {
	fx := newInventoryFixture(t, defaultFlags())
	ctx := context.Background()
	addItems(t, fx.svc)

	_, err := fx.svc.Sell(ctx, "W-1", 3)
	require.NoError(t, err)

	changed, err := fx.svc.Restock(ctx)
	require.NoError(t, err)
	require.Len(t, changed, 1)
	assert.Equal(t, inventory.Restocked{ID: "W-1", OldStock: 1, NewStock: 4}, changed[0])

	ev, ok := fx.events.last().(shared.ItemRestockedEvent)
	require.True(t, ok)
	assert.Equal(t, 3, ev.Added())

	changed, err = fx.svc.Restock(ctx)
	require.NoError(t, err)
	assert.Empty(t, changed)
}

func TestInventoryService_SaveLoadEncoded(t *testing.T) {
	fx := newInventoryFixture(t, defaultFlags())
	ctx := context.Background()
	addItems(t, fx.svc)
	path := fx.path("store.txt")

	res, err := fx.svc.Save(ctx, path)
	require.NoError(t, err)
	assert.True(t, res.Encoded)
	assert.Equal(t, int32(123456), res.Seed)
	assert.Equal(t, 2, res.Items)
	assert.True(t, fingerprint.Valid(res.Digest))
	assert.True(t, res.Mirrored)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "Yes\n123456"))
	assert.NotContains(t, string(raw), "Widget")

	saved, ok := fx.events.last().(shared.InventorySavedEvent)
	require.True(t, ok)
	assert.Equal(t, res.Digest, saved.Digest)

	other := newInventoryFixture(t, defaultFlags())
	loaded, err := other.svc.Load(ctx, path)
	require.NoError(t, err)
	assert.True(t, loaded.Encoded)
	assert.Equal(t, 2, loaded.Items)
	assert.Equal(t, fx.svc.Items(), other.svc.Items())
	assert.Equal(t, 1, other.cache.flushes)
	assert.Equal(t, shared.EventInventoryLoaded, other.events.last().EventType())
}

func TestInventoryService_SavePlain(t *testing.T) {
	f := defaultFlags()
	f[config.FeatureStoreEncryption] = false
	fx := newInventoryFixture(t, f)
	addItems(t, fx.svc)
	path := fx.path("plain.txt")

	res, err := fx.svc.Save(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, res.Encoded)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "No\n"))
	assert.Contains(t, string(raw), "Widget")

	other := newInventoryFixture(t, f)
	_, err = other.svc.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, fx.svc.Items(), other.svc.Items())
}

func TestInventoryService_DynamicShiftRoundTrip(t *testing.T) {
	f := defaultFlags()
	f[config.FeatureCodecDynamicShift] = true
	fx := newInventoryFixture(t, f)
	addItems(t, fx.svc)
	path := fx.path("dynamic.txt")

	_, err := fx.svc.Save(context.Background(), path)
	require.NoError(t, err)

	other := newInventoryFixture(t, f)
	_, err = other.svc.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, fx.svc.Items(), other.svc.Items())
}

func TestInventoryService_SaveMirrorIsIdempotent(t *testing.T) {
	fx := newInventoryFixture(t, defaultFlags())
	ctx := context.Background()
	addItems(t, fx.svc)

	first, err := fx.svc.Save(ctx, fx.path("a.txt"))
	require.NoError(t, err)
	second, err := fx.svc.Save(ctx, fx.path("b.txt"))
	require.NoError(t, err)

	assert.Equal(t, first.Digest, second.Digest, "digest ignores the seed")
	assert.True(t, first.Mirrored)
	assert.False(t, second.Mirrored)

	history, err := fx.svc.History(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	fx.digests.digest = ""
	_, created, err := fx.svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.False(t, created, "repository deduplicates by digest")

	_, err = fx.svc.Sell(ctx, "B-7", 1)
	require.NoError(t, err)
	snap, created, err := fx.svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, snap.Digest, fx.digests.digest)
}

func TestInventoryService_MirrorDisabled(t *testing.T) {
	f := defaultFlags()
	f[config.FeatureStorageSnapshotMirror] = false
	fx := newInventoryFixture(t, f)
	addItems(t, fx.svc)

	res, err := fx.svc.Save(context.Background(), fx.path("store.txt"))
	require.NoError(t, err)
	assert.False(t, res.Mirrored)

	_, _, err = fx.svc.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrSnapshotsDisabled)
}

func TestInventoryService_Restore(t *testing.T) {
	fx := newInventoryFixture(t, defaultFlags())
	ctx := context.Background()
	addItems(t, fx.svc)

	saved, err := fx.svc.Save(ctx, fx.path("store.txt"))
	require.NoError(t, err)

	_, err = fx.svc.Sell(ctx, "W-1", 4)
	require.NoError(t, err)

	snap, err := fx.svc.Restore(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, saved.Digest, snap.Digest)

	item, err := fx.svc.Get(ctx, "W-1")
	require.NoError(t, err)
	assert.Equal(t, 4, item.StockLeft)

	_, err = fx.svc.Restore(ctx, "unknown")
	assert.True(t, shared.IsNotFound(err))
}

func TestInventoryService_SaveFailure(t *testing.T) {
	svc, err := NewInventoryService(InventoryDeps{Files: failingFiles{}}, InventoryConfig{})
	require.NoError(t, err)

	_, err = svc.Save(context.Background(), "x")
	assert.ErrorIs(t, err, errDiskFull)
	_, err = svc.Load(context.Background(), "x")
	assert.ErrorIs(t, err, errDiskFull)
}

func TestInventoryService_LoadKeepsStoreOnError(t *testing.T) {
	fx := newInventoryFixture(t, defaultFlags())
	ctx := context.Background()
	addItems(t, fx.svc)

	bad := fx.path("bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte("Yes\n000001not-a-code-unit"), 0o644))
	_, err := fx.svc.Load(ctx, bad)
	assert.ErrorIs(t, err, shared.ErrMalformedCiphertext)

	garbled := fx.path("garbled.txt")
	require.NoError(t, os.WriteFile(garbled, []byte("No\nonly-one-field"), 0o644))
	_, err = fx.svc.Load(ctx, garbled)
	assert.ErrorIs(t, err, shared.ErrInvalidRecord)

	_, err = fx.svc.Load(ctx, fx.path("missing.txt"))
	assert.True(t, shared.IsNotFound(err))

	assert.Len(t, fx.svc.Items(), 2)
}

func TestInventoryService_Import(t *testing.T) {
	fx := newInventoryFixture(t, defaultFlags())
	ctx := context.Background()
	addItems(t, fx.svc)

	n, err := fx.svc.Import(ctx, "X-1\tXylophone\t\tToys\t30\t12\t2\t5\ttrue\n")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, fx.cache.flushes)

	list, err := fx.items.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, shared.ItemID("X-1"), list[0].ID)

	text, err := fx.svc.Export()
	require.NoError(t, err)
	assert.Equal(t, "X-1\tXylophone\t\tToys\t30\t12\t2\t5\ttrue\n", text)

	_, err = fx.svc.Import(ctx, "broken")
	assert.ErrorIs(t, err, shared.ErrInvalidRecord)
	assert.Len(t, fx.svc.Items(), 1)
}

func TestInventoryService_RejectsSymbolsOutsideAlphabet(t *testing.T) {
	fx := newInventoryFixture(t, defaultFlags())
	ctx := context.Background()
	addItems(t, fx.svc)
	events := len(fx.events.types())

	_, err := fx.svc.Add(ctx, inventory.NewItemParams{ID: "C-1", Name: "Café latte", Price: 3, RestockAmount: 5})
	assert.ErrorIs(t, err, shared.ErrInvalidItem)
	assert.ErrorIs(t, err, shared.ErrInvalidSymbol)
	assert.Len(t, fx.svc.Items(), 2)
	assert.Len(t, fx.events.types(), events, "no event for a rejected item")

	_, err = fx.svc.Import(ctx, "C-1\tCafé latte\t\t\t3\t1\t5\t5\ttrue\n")
	assert.ErrorIs(t, err, shared.ErrInvalidSymbol)
	assert.Len(t, fx.svc.Items(), 2)

	path := fx.path("plain.txt")
	require.NoError(t, os.WriteFile(path, []byte("No\nC-1\tCafé latte\t\t\t3\t1\t5\t5\ttrue\n"), 0o600))
	_, err = fx.svc.Load(ctx, path)
	assert.ErrorIs(t, err, shared.ErrInvalidSymbol)

	res, err := fx.svc.Save(ctx, fx.path("inventory.txt"))
	require.NoError(t, err)
	assert.True(t, res.Encoded)
	assert.Equal(t, 2, res.Items)
}

func TestInventoryService_NarrowAlphabet(t *testing.T) {
	ctx := context.Background()
	svc, err := NewInventoryService(InventoryDeps{
		Files:    file.NewStore(0),
		Features: flags{config.FeatureStoreEncryption: true},
	}, InventoryConfig{
		Alphabet: "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-.\t\n",
		Now:      fixedNow,
	})
	require.NoError(t, err)

	_, err = svc.Add(ctx, inventory.NewItemParams{ID: "B-1", Name: "Blue bolt", Price: 0.25, BuyPrice: 0.1, RestockAmount: 5})
	assert.ErrorIs(t, err, shared.ErrInvalidSymbol, "space is not in the alphabet")

	_, err = svc.Add(ctx, inventory.NewItemParams{ID: "B-1", Name: "Bolt", Price: 0.25, BuyPrice: 0.1, RestockAmount: 5})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "inventory.txt")
	_, err = svc.Save(ctx, path)
	require.NoError(t, err)

	_, err = svc.Import(ctx, "")
	require.NoError(t, err)
	loaded, err := svc.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Items)
}
