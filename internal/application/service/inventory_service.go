// Package service contains the application services behind the storehub CLI:
// the inventory with its encoded file and snapshot mirror, and the grade book.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coursework/storehub/config"
	"github.com/coursework/storehub/internal/codec"
	"github.com/coursework/storehub/internal/domain/inventory"
	"github.com/coursework/storehub/internal/domain/shared"
	"github.com/coursework/storehub/internal/infrastructure/persistence/file"
	"github.com/coursework/storehub/pkg/fingerprint"
	"github.com/coursework/storehub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// FileStore reads and writes inventory envelopes.
type FileStore interface {
	Save(ctx context.Context, path string, env file.Envelope) error
	Load(ctx context.Context, path string) (file.Envelope, error)
}

// DigestCache remembers the digest of the last mirrored snapshot.
type DigestCache interface {
	LastDigest(ctx context.Context) (digest string, ok bool, err error)
	SetLastDigest(ctx context.Context, digest string) error
}

// Features reports feature flag state.
type Features interface {
	IsEnabled(name string) bool
}

// ErrSnapshotsDisabled is returned by snapshot operations when no snapshot
// repository is wired or the mirror flag is off.
var ErrSnapshotsDisabled = shared.NewDomainError("inventory", "Snapshot", shared.ErrInvalidState, "snapshot storage is not configured")

// InventoryDeps holds the collaborators of InventoryService. Files is
// required; the rest are optional and skipped when nil.
type InventoryDeps struct {
	Files     FileStore
	Items     inventory.Repository
	ItemCache inventory.ItemCache
	Snapshots inventory.SnapshotRepository
	Digests   DigestCache
	Events    shared.EventPublisher
	Features  Features
	Logger    *logger.Logger
}

// InventoryConfig contains configuration for InventoryService.
type InventoryConfig struct {
	// Alphabet overrides codec.DefaultAlphabet.
	Alphabet string

	// LowStockThreshold triggers stock-low events at or below this level.
	LowStockThreshold int

	// Now is the clock used for seeds. Defaults to time.Now.
	Now func() time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// INVENTORY SERVICE
// ══════════════════════════════════════════════════════════════════════════════

// InventoryService owns the in-memory store and serialises access to it.
type InventoryService struct {
	deps InventoryDeps
	cfg  InventoryConfig
	log  *logger.Logger

	fixed   *codec.Codec
	dynamic *codec.Codec

	mu    sync.Mutex
	store *inventory.Store
}

// NewInventoryService creates a service with an empty store.
func NewInventoryService(deps InventoryDeps, cfg InventoryConfig) (*InventoryService, error) {
	if deps.Files == nil {
		return nil, errors.New("inventory service: file store is required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	fixed, err := codec.New(codec.Options{Alphabet: cfg.Alphabet})
	if err != nil {
		return nil, fmt.Errorf("inventory service: %w", err)
	}
	dynamic, err := codec.New(codec.Options{Alphabet: cfg.Alphabet, DynamicShift: true})
	if err != nil {
		return nil, fmt.Errorf("inventory service: %w", err)
	}

	return &InventoryService{
		deps:    deps,
		cfg:     cfg,
		log:     deps.Logger.With(logger.Component("inventory")),
		fixed:   fixed,
		dynamic: dynamic,
		store:   inventory.NewStore(),
	}, nil
}

func (s *InventoryService) enabled(feature string) bool {
	return s.deps.Features != nil && s.deps.Features.IsEnabled(feature)
}

// codec returns the codec selected by the dynamic shift flag. Files must be
// loaded with the same setting they were saved with.
func (s *InventoryService) codec() *codec.Codec {
	if s.enabled(config.FeatureCodecDynamicShift) {
		return s.dynamic
	}
	return s.fixed
}

// ══════════════════════════════════════════════════════════════════════════════
// ITEMS
// ══════════════════════════════════════════════════════════════════════════════

// Add puts a new item on the shelf.
func (s *InventoryService) Add(ctx context.Context, params inventory.NewItemParams) (*inventory.Item, error) {
	item, err := inventory.NewItem(params)
	if err != nil {
		return nil, err
	}
	if err := s.encodable(item.Record() + "\n"); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Add(item); err != nil {
		return nil, err
	}
	s.persistItem(ctx, item)

	s.publish(shared.NewItemAddedEvent(item.ID.String(), item.Name, item.Price.Float64(), item.StockLeft))
	s.log.Info("item added", logger.ItemID(item.ID.String()), logger.Int("stock", item.StockLeft))
	return item, nil
}

// Get returns an item, consulting the item cache first when enabled.
func (s *InventoryService) Get(ctx context.Context, id string) (*inventory.Item, error) {
	itemID, err := shared.NewItemID(id)
	if err != nil {
		return nil, err
	}

	if cache := s.itemCache(); cache != nil {
		item, ok, err := cache.Get(ctx, itemID)
		if err != nil {
			s.log.Warn("item cache read failed", logger.ItemID(id), logger.Err(err))
		} else if ok {
			return item, nil
		}
	}

	s.mu.Lock()
	item, err := s.store.Get(itemID)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if cache := s.itemCache(); cache != nil {
		if err := cache.Set(ctx, item); err != nil {
			s.log.Warn("item cache write failed", logger.ItemID(id), logger.Err(err))
		}
	}
	return item, nil
}

// Items returns all items ordered by name, then ID.
func (s *InventoryService) Items() []*inventory.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Items()
}

// LowStock returns the items at or below the configured threshold.
func (s *InventoryService) LowStock() []*inventory.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.LowStock(s.cfg.LowStockThreshold)
}

// Sell sells n units of an item and returns the profit.
func (s *InventoryService) Sell(ctx context.Context, id string, n int) (shared.Money, error) {
	itemID, err := shared.NewItemID(id)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	profit, err := s.store.Sell(itemID, n)
	if err != nil {
		return 0, err
	}
	item, err := s.store.Get(itemID)
	if err != nil {
		return 0, err
	}

	s.persistItem(ctx, item)
	s.invalidateItem(ctx, itemID)

	s.publish(shared.NewItemSoldEvent(id, n, profit.Float64(), item.StockLeft))
	if s.enabled(config.FeatureEventsStockLow) && item.IsLow(s.cfg.LowStockThreshold) {
		s.publish(shared.NewStockLowEvent(id, item.StockLeft, s.cfg.LowStockThreshold))
	}

	s.log.Info("item sold",
		logger.ItemID(id),
		logger.Count(n),
		logger.Float64("profit", profit.Float64()),
		logger.Int("stock_left", item.StockLeft),
	)
	return profit, nil
}

// Restock refills every item below its restock amount.
func (s *InventoryService) Restock(ctx context.Context) ([]inventory.Restocked, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := s.store.RestockAll()
	for _, r := range changed {
		item, err := s.store.Get(r.ID)
		if err != nil {
			return nil, err
		}
		s.persistItem(ctx, item)
		s.invalidateItem(ctx, r.ID)
		s.publish(shared.NewItemRestockedEvent(r.ID.String(), r.OldStock, r.NewStock))
	}

	s.log.Info("inventory restocked", logger.Count(len(changed)))
	return changed, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// FILE STORAGE
// ══════════════════════════════════════════════════════════════════════════════

// SaveResult describes a completed save.
type SaveResult struct {
	Path     string
	Encoded  bool
	Seed     int32
	Items    int
	Digest   string
	Mirrored bool // a new snapshot row was written
}

// Save writes the inventory to path. The payload is encoded with a fresh seed
// when store.encryption is on. A failed snapshot mirror is logged and does
// not fail the save.
func (s *InventoryService) Save(ctx context.Context, path string) (*SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.buildSnapshot()
	if err != nil {
		return nil, err
	}

	env := file.Envelope{Encoded: snap.Encoded, Seed: snap.Seed, Payload: snap.Payload}
	if err := s.deps.Files.Save(ctx, path, env); err != nil {
		s.log.Error("save failed", logger.Path(path), logger.Err(err))
		return nil, err
	}

	result := &SaveResult{
		Path:    path,
		Encoded: snap.Encoded,
		Seed:    snap.Seed,
		Items:   snap.Items,
		Digest:  snap.Digest,
	}

	if s.mirrorEnabled() {
		_, created, err := s.mirror(ctx, snap)
		if err != nil {
			s.log.Warn("snapshot mirror failed", logger.Digest(snap.Digest), logger.Err(err))
		}
		result.Mirrored = created
	}
	if s.deps.Items != nil {
		if err := s.deps.Items.ReplaceAll(ctx, s.store.Items()); err != nil {
			s.log.Warn("item table sync failed", logger.Err(err))
		}
	}

	s.publish(shared.NewInventorySavedEvent(path, snap.Encoded, snap.Seed, snap.Items).WithDigest(snap.Digest))
	s.log.Info("inventory saved",
		logger.Path(path),
		logger.Bool("encoded", snap.Encoded),
		logger.Seed(snap.Seed),
		logger.Count(snap.Items),
	)
	return result, nil
}

// LoadResult describes a completed load.
type LoadResult struct {
	Path    string
	Encoded bool
	Items   int
}

// Load replaces the in-memory inventory with the contents of path. On any
// error the current inventory is kept.
func (s *InventoryService) Load(ctx context.Context, path string) (*LoadResult, error) {
	env, err := s.deps.Files.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	store, err := s.decode(env.Encoded, env.Seed, env.Payload)
	if err != nil {
		s.log.Error("load failed", logger.Path(path), logger.Err(err))
		return nil, err
	}

	s.mu.Lock()
	s.store = store
	s.mu.Unlock()

	if cache := s.itemCache(); cache != nil {
		if err := cache.InvalidateAll(ctx); err != nil {
			s.log.Warn("item cache flush failed", logger.Err(err))
		}
	}

	s.publish(shared.NewInventoryLoadedEvent(path, env.Encoded, store.Len()))
	s.log.Info("inventory loaded", logger.Path(path), logger.Bool("encoded", env.Encoded), logger.Count(store.Len()))
	return &LoadResult{Path: path, Encoded: env.Encoded, Items: store.Len()}, nil
}

// Import replaces the inventory with plain text records and returns the
// number of items read. On error the current inventory is kept.
func (s *InventoryService) Import(ctx context.Context, text string) (int, error) {
	store, err := s.parse(text)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.store = store
	if s.deps.Items != nil {
		if err := s.deps.Items.ReplaceAll(ctx, store.Items()); err != nil {
			s.log.Warn("item table sync failed", logger.Err(err))
		}
	}
	s.mu.Unlock()

	if cache := s.itemCache(); cache != nil {
		if err := cache.InvalidateAll(ctx); err != nil {
			s.log.Warn("item cache flush failed", logger.Err(err))
		}
	}

	s.log.Info("inventory imported", logger.Count(store.Len()))
	return store.Len(), nil
}

// Export renders the inventory as plain text records, the format Import reads.
func (s *InventoryService) Export() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text, err := s.store.MarshalText()
	if err != nil {
		return "", err
	}
	return string(text), nil
}

func (s *InventoryService) decode(encoded bool, seed int32, payload string) (*inventory.Store, error) {
	text := payload
	if encoded {
		var err error
		text, err = s.codec().Decode(payload, seed)
		if err != nil {
			return nil, err
		}
	}
	return s.parse(text)
}

// parse reads records and rejects a store the codec could not save.
func (s *InventoryService) parse(text string) (*inventory.Store, error) {
	store, err := inventory.ParseStore(text)
	if err != nil {
		return nil, err
	}
	canonical, err := store.MarshalText()
	if err != nil {
		return nil, err
	}
	if err := s.encodable(string(canonical)); err != nil {
		return nil, err
	}
	return store, nil
}

// encodable rejects text with symbols outside the codec alphabet.
func (s *InventoryService) encodable(text string) error {
	if err := s.fixed.Check(text); err != nil {
		return shared.WrapError("inventory", "Validate", shared.ErrInvalidItem, "item cannot be saved encoded", err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SNAPSHOTS
// ══════════════════════════════════════════════════════════════════════════════

// Snapshot mirrors the current inventory into the snapshot repository without
// writing a file. created is false when an identical inventory was stored
// before.
func (s *InventoryService) Snapshot(ctx context.Context) (*inventory.Snapshot, bool, error) {
	if !s.mirrorEnabled() {
		return nil, false, ErrSnapshotsDisabled
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.buildSnapshot()
	if err != nil {
		return nil, false, err
	}
	return s.mirror(ctx, snap)
}

// History lists up to limit snapshots, newest first.
func (s *InventoryService) History(ctx context.Context, limit int) ([]*inventory.Snapshot, error) {
	if s.deps.Snapshots == nil {
		return nil, ErrSnapshotsDisabled
	}
	return s.deps.Snapshots.List(ctx, limit)
}

// Restore replaces the inventory with a stored snapshot. An empty digest
// restores the latest one.
func (s *InventoryService) Restore(ctx context.Context, digest string) (*inventory.Snapshot, error) {
	if s.deps.Snapshots == nil {
		return nil, ErrSnapshotsDisabled
	}

	var snap *inventory.Snapshot
	var err error
	if digest == "" {
		snap, err = s.deps.Snapshots.Latest(ctx)
	} else {
		snap, err = s.deps.Snapshots.GetByDigest(ctx, digest)
	}
	if err != nil {
		return nil, err
	}

	store, err := s.decode(snap.Encoded, snap.Seed, snap.Payload)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.store = store
	s.mu.Unlock()

	if cache := s.itemCache(); cache != nil {
		if err := cache.InvalidateAll(ctx); err != nil {
			s.log.Warn("item cache flush failed", logger.Err(err))
		}
	}

	s.log.Info("snapshot restored", logger.Digest(snap.Digest), logger.Count(store.Len()))
	return snap, nil
}

// buildSnapshot renders the store. The digest covers the plain record text,
// so the same inventory saved under different seeds shares one digest.
// Callers hold s.mu.
func (s *InventoryService) buildSnapshot() (*inventory.Snapshot, error) {
	text, err := s.store.MarshalText()
	if err != nil {
		return nil, err
	}

	snap := &inventory.Snapshot{
		Payload: string(text),
		Digest:  fingerprint.Sum(text),
		Items:   s.store.Len(),
	}

	if s.enabled(config.FeatureStoreEncryption) {
		snap.Encoded = true
		snap.Seed = file.NewSeed(s.cfg.Now())
		snap.Payload, err = s.codec().Encode(string(text), snap.Seed)
		if err != nil {
			return nil, err
		}
	}
	return snap, nil
}

func (s *InventoryService) mirrorEnabled() bool {
	return s.deps.Snapshots != nil && s.enabled(config.FeatureStorageSnapshotMirror)
}

// mirror stores snap unless the digest cache says it was the last one stored.
func (s *InventoryService) mirror(ctx context.Context, snap *inventory.Snapshot) (*inventory.Snapshot, bool, error) {
	if s.deps.Digests != nil {
		last, ok, err := s.deps.Digests.LastDigest(ctx)
		if err != nil {
			s.log.Warn("digest cache read failed", logger.Err(err))
		} else if ok && last == snap.Digest {
			s.log.Debug("snapshot unchanged", logger.Digest(snap.Digest))
			return snap, false, nil
		}
	}

	stored, created, err := s.deps.Snapshots.Save(ctx, snap)
	if err != nil {
		return nil, false, err
	}

	if s.deps.Digests != nil {
		if err := s.deps.Digests.SetLastDigest(ctx, stored.Digest); err != nil {
			s.log.Warn("digest cache write failed", logger.Err(err))
		}
	}

	s.log.Info("snapshot mirrored", logger.Digest(stored.Digest), logger.Bool("created", created))
	return stored, created, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *InventoryService) itemCache() inventory.ItemCache {
	if s.deps.ItemCache == nil || !s.enabled(config.FeatureCacheItems) {
		return nil
	}
	return s.deps.ItemCache
}

// persistItem copies item to the item table. The in-memory store stays
// authoritative, so a failed write is logged only.
func (s *InventoryService) persistItem(ctx context.Context, item *inventory.Item) {
	if s.deps.Items == nil {
		return
	}
	if err := s.deps.Items.Upsert(ctx, item); err != nil {
		s.log.Warn("item table write failed", logger.ItemID(item.ID.String()), logger.Err(err))
	}
}

func (s *InventoryService) invalidateItem(ctx context.Context, id shared.ItemID) {
	if cache := s.itemCache(); cache != nil {
		if err := cache.Invalidate(ctx, id); err != nil {
			s.log.Warn("item cache invalidate failed", logger.ItemID(id.String()), logger.Err(err))
		}
	}
}

func (s *InventoryService) publish(event shared.Event) {
	if s.deps.Events == nil {
		return
	}
	if err := s.deps.Events.Publish(event); err != nil {
		s.log.Warn("event publish failed", logger.String("event_type", string(event.EventType())), logger.Err(err))
	}
}
