// Package messaging implements the in-process event bus used by the
// application services. Delivery is built on github.com/asaskevich/EventBus:
// every event is published on its own type topic and on a catch-all topic.
package messaging

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coursework/storehub/internal/domain/shared"

	"github.com/asaskevich/EventBus"
)

// allTopic carries every event for SubscribeAll handlers.
const allTopic = "storehub.*"

// ══════════════════════════════════════════════════════════════════════════════
// EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

var _ shared.EventBus = (*Bus)(nil)

// Bus is an in-memory shared.EventBus. Handler errors and panics are logged
// and counted; they never reach the publisher.
//
// Synchronous handlers run inside Publish and must not publish themselves.
type Bus struct {
	bus     EventBus.Bus
	logger  *slog.Logger
	async   bool
	metrics *Metrics

	mu     sync.RWMutex
	closed bool
}

// Config contains configuration for Bus.
type Config struct {
	// Async runs handlers on their own goroutines. Close waits for them.
	Async bool

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultConfig returns synchronous delivery with the default logger.
func DefaultConfig() Config {
	return Config{}
}

// NewBus creates a new event bus.
func NewBus(cfg Config) *Bus {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Bus{
		bus:     EventBus.New(),
		logger:  cfg.Logger.With("component", "eventbus"),
		async:   cfg.Async,
		metrics: NewMetrics(),
	}
}

// Subscribe registers a handler for a specific event type.
func (b *Bus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if eventType == "" {
		return errors.New("event type cannot be empty")
	}
	return b.subscribe(string(eventType), handler)
}

// SubscribeAll registers a handler for all events.
func (b *Bus) SubscribeAll(handler shared.EventHandler) error {
	return b.subscribe(allTopic, handler)
}

func (b *Bus) subscribe(topic string, handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrEventBusClosed
	}

	fn := b.wrap(handler)
	var err error
	if b.async {
		err = b.bus.SubscribeAsync(topic, fn, false)
	} else {
		err = b.bus.Subscribe(topic, fn)
	}
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}

	b.logger.Debug("subscribed handler", "topic", topic, "async", b.async)
	return nil
}

// Publish sends an event to its type subscribers, then to global subscribers.
func (b *Bus) Publish(event shared.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrEventBusClosed
	}

	b.metrics.RecordPublish(event.EventType())

	topic := string(event.EventType())
	if !b.bus.HasCallback(topic) && !b.bus.HasCallback(allTopic) {
		b.logger.Debug("no handlers for event", "event_type", event.EventType())
		return nil
	}

	b.bus.Publish(topic, event)
	b.bus.Publish(allTopic, event)
	return nil
}

// Close rejects further publishing and waits for async handlers to finish.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.bus.WaitAsync()

	b.logger.Info("event bus closed")
	return nil
}

// Metrics returns the bus metrics.
func (b *Bus) Metrics() *Metrics {
	return b.metrics
}

// wrap adapts a handler to the callback shape EventBus invokes via reflection.
func (b *Bus) wrap(handler shared.EventHandler) func(shared.Event) {
	return func(event shared.Event) {
		start := time.Now()
		err := safeCall(handler, event)
		duration := time.Since(start)

		b.metrics.RecordHandlerExecution(event.EventType(), err == nil)

		if err != nil {
			b.logger.Error("handler error",
				"event_type", event.EventType(),
				"aggregate_id", event.AggregateID(),
				"duration", duration,
				"error", err,
			)
		}
	}
}

func safeCall(handler shared.EventHandler, event shared.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return handler(event)
}

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

// Metrics counts published events and handler outcomes.
type Metrics struct {
	mu sync.RWMutex

	published map[shared.EventType]int64
	successes int64
	failures  int64
}

// NewMetrics creates an empty metrics tracker.
func NewMetrics() *Metrics {
	return &Metrics{published: make(map[shared.EventType]int64)}
}

// RecordPublish records a publish.
func (m *Metrics) RecordPublish(eventType shared.EventType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[eventType]++
}

// RecordHandlerExecution records one handler run.
func (m *Metrics) RecordHandlerExecution(_ shared.EventType, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.successes++
	} else {
		m.failures++
	}
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byType := make(map[shared.EventType]int64, len(m.published))
	var total int64
	for t, n := range m.published {
		byType[t] = n
		total += n
	}

	return MetricsSnapshot{
		TotalPublished:   total,
		PublishedByType:  byType,
		HandlerSuccesses: m.successes,
		HandlerFailures:  m.failures,
	}
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	TotalPublished   int64
	PublishedByType  map[shared.EventType]int64
	HandlerSuccesses int64
	HandlerFailures  int64
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEventBusClosed is returned when operations are attempted on a closed bus.
	ErrEventBusClosed = errors.New("event bus is closed")

	// ErrHandlerPanic is reported when a handler panics.
	ErrHandlerPanic = errors.New("handler panicked")
)
