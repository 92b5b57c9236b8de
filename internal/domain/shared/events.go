// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types.
const (
	// Inventory events
	EventItemAdded     EventType = "inventory.item_added"
	EventItemSold      EventType = "inventory.item_sold"
	EventItemRestocked EventType = "inventory.item_restocked"
	EventStockLow      EventType = "inventory.stock_low"

	// Storage events
	EventInventorySaved  EventType = "storage.inventory_saved"
	EventInventoryLoaded EventType = "storage.inventory_loaded"

	// Gradebook events
	EventStudentEnrolled EventType = "gradebook.student_enrolled"
	EventMarkRecorded    EventType = "gradebook.mark_recorded"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// EventHandler handles a domain event.
type EventHandler func(event Event) error

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(event Event) error
}

// EventBus routes published events to subscribed handlers.
type EventBus interface {
	EventPublisher

	// Subscribe registers a handler for one event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for every event type.
	SubscribeAll(handler EventHandler) error

	// Close waits for in-flight handlers and rejects further publishing.
	Close() error
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Inventory Events
// ═══════════════════════════════════════════════════════════════════════════

// ItemAddedEvent is emitted when a new item enters the inventory.
type ItemAddedEvent struct {
	BaseEvent
	ItemID string  `json:"item_id"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Stock  int     `json:"stock"`
}

// Payload implements Event interface.
func (e ItemAddedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"item_id": e.ItemID,
		"name":    e.Name,
		"price":   e.Price,
		"stock":   e.Stock,
	}
}

// NewItemAddedEvent creates a new ItemAddedEvent.
func NewItemAddedEvent(itemID, name string, price float64, stock int) ItemAddedEvent {
	return ItemAddedEvent{
		BaseEvent: NewBaseEvent(EventItemAdded, itemID),
		ItemID:    itemID,
		Name:      name,
		Price:     price,
		Stock:     stock,
	}
}

// ItemSoldEvent is emitted after a successful sale.
type ItemSoldEvent struct {
	BaseEvent
	ItemID    string  `json:"item_id"`
	Quantity  int     `json:"quantity"`
	Profit    float64 `json:"profit"`
	StockLeft int     `json:"stock_left"`
}

// Payload implements Event interface.
func (e ItemSoldEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"item_id":    e.ItemID,
		"quantity":   e.Quantity,
		"profit":     e.Profit,
		"stock_left": e.StockLeft,
	}
}

// NewItemSoldEvent creates a new ItemSoldEvent.
func NewItemSoldEvent(itemID string, quantity int, profit float64, stockLeft int) ItemSoldEvent {
	return ItemSoldEvent{
		BaseEvent: NewBaseEvent(EventItemSold, itemID),
		ItemID:    itemID,
		Quantity:  quantity,
		Profit:    profit,
		StockLeft: stockLeft,
	}
}

// IsSoldOut returns true if the sale emptied the shelf.
func (e ItemSoldEvent) IsSoldOut() bool {
	return e.StockLeft == 0
}

// ItemRestockedEvent is emitted when an item is brought back to its restock level.
type ItemRestockedEvent struct {
	BaseEvent
	ItemID   string `json:"item_id"`
	OldStock int    `json:"old_stock"`
	NewStock int    `json:"new_stock"`
}

// Payload implements Event interface.
func (e ItemRestockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"item_id":   e.ItemID,
		"old_stock": e.OldStock,
		"new_stock": e.NewStock,
	}
}

// NewItemRestockedEvent creates a new ItemRestockedEvent.
func NewItemRestockedEvent(itemID string, oldStock, newStock int) ItemRestockedEvent {
	return ItemRestockedEvent{
		BaseEvent: NewBaseEvent(EventItemRestocked, itemID),
		ItemID:    itemID,
		OldStock:  oldStock,
		NewStock:  newStock,
	}
}

// Added returns how many units the restock put on the shelf.
func (e ItemRestockedEvent) Added() int {
	return e.NewStock - e.OldStock
}

// StockLowEvent is emitted when a sale leaves an item at or below the low-stock threshold.
type StockLowEvent struct {
	BaseEvent
	ItemID    string `json:"item_id"`
	StockLeft int    `json:"stock_left"`
	Threshold int    `json:"threshold"`
}

// Payload implements Event interface.
func (e StockLowEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"item_id":    e.ItemID,
		"stock_left": e.StockLeft,
		"threshold":  e.Threshold,
	}
}

// NewStockLowEvent creates a new StockLowEvent.
func NewStockLowEvent(itemID string, stockLeft, threshold int) StockLowEvent {
	return StockLowEvent{
		BaseEvent: NewBaseEvent(EventStockLow, itemID),
		ItemID:    itemID,
		StockLeft: stockLeft,
		Threshold: threshold,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Storage Events
// ═══════════════════════════════════════════════════════════════════════════

// InventorySavedEvent is emitted after the inventory file has been written.
type InventorySavedEvent struct {
	BaseEvent
	Path    string `json:"path"`
	Encoded bool   `json:"encoded"`
	Seed    int32  `json:"seed,omitempty"`
	Items   int    `json:"items"`
	Digest  string `json:"digest,omitempty"`
}

// Payload implements Event interface.
func (e InventorySavedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"path":    e.Path,
		"encoded": e.Encoded,
		"seed":    e.Seed,
		"items":   e.Items,
		"digest":  e.Digest,
	}
}

// NewInventorySavedEvent creates a new InventorySavedEvent.
func NewInventorySavedEvent(path string, encoded bool, seed int32, items int) InventorySavedEvent {
	return InventorySavedEvent{
		BaseEvent: NewBaseEvent(EventInventorySaved, path),
		Path:      path,
		Encoded:   encoded,
		Seed:      seed,
		Items:     items,
	}
}

// WithDigest attaches the snapshot digest to the event.
func (e InventorySavedEvent) WithDigest(digest string) InventorySavedEvent {
	e.Digest = digest
	return e
}

// InventoryLoadedEvent is emitted after the inventory file has been read.
type InventoryLoadedEvent struct {
	BaseEvent
	Path    string `json:"path"`
	Encoded bool   `json:"encoded"`
	Items   int    `json:"items"`
}

// Payload implements Event interface.
func (e InventoryLoadedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"path":    e.Path,
		"encoded": e.Encoded,
		"items":   e.Items,
	}
}

// NewInventoryLoadedEvent creates a new InventoryLoadedEvent.
func NewInventoryLoadedEvent(path string, encoded bool, items int) InventoryLoadedEvent {
	return InventoryLoadedEvent{
		BaseEvent: NewBaseEvent(EventInventoryLoaded, path),
		Path:      path,
		Encoded:   encoded,
		Items:     items,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Gradebook Events
// ═══════════════════════════════════════════════════════════════════════════

// StudentEnrolledEvent is emitted when a student joins the roster.
type StudentEnrolledEvent struct {
	BaseEvent
	Number      string `json:"number"`
	Name        string `json:"name"`
	Assignments int    `json:"assignments"`
}

// Payload implements Event interface.
func (e StudentEnrolledEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"number":      e.Number,
		"name":        e.Name,
		"assignments": e.Assignments,
	}
}

// NewStudentEnrolledEvent creates a new StudentEnrolledEvent.
func NewStudentEnrolledEvent(studentID, number, name string, assignments int) StudentEnrolledEvent {
	return StudentEnrolledEvent{
		BaseEvent:   NewBaseEvent(EventStudentEnrolled, studentID),
		Number:      number,
		Name:        name,
		Assignments: assignments,
	}
}

// MarkRecordedEvent is emitted when an assignment mark changes.
type MarkRecordedEvent struct {
	BaseEvent
	Number  string `json:"number"`
	Index   int    `json:"index"`
	OldMark int    `json:"old_mark"`
	NewMark int    `json:"new_mark"`
	Cleared bool   `json:"cleared"`
}

// Payload implements Event interface.
func (e MarkRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"number":   e.Number,
		"index":    e.Index,
		"old_mark": e.OldMark,
		"new_mark": e.NewMark,
		"cleared":  e.Cleared,
	}
}

// NewMarkRecordedEvent creates a new MarkRecordedEvent. A new mark of -1 clears the slot.
func NewMarkRecordedEvent(studentID, number string, index, oldMark, newMark int) MarkRecordedEvent {
	return MarkRecordedEvent{
		BaseEvent: NewBaseEvent(EventMarkRecorded, studentID),
		Number:    number,
		Index:     index,
		OldMark:   oldMark,
		NewMark:   newMark,
		Cleared:   newMark < 0,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Serialization
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for serialization and transport.
type EventEnvelope struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Aggregate string                 `json:"aggregate_id"`
	Payload   map[string]interface{} `json:"payload"`
}

// WrapEvent creates an EventEnvelope from an Event.
func WrapEvent(e Event) EventEnvelope {
	return EventEnvelope{
		Type:      e.EventType(),
		Timestamp: e.OccurredAt(),
		Aggregate: e.AggregateID(),
		Payload:   e.Payload(),
	}
}

// MarshalEvent serializes an event to JSON.
func MarshalEvent(e Event) ([]byte, error) {
	return json.Marshal(WrapEvent(e))
}
