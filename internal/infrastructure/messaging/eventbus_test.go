package messaging

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/coursework/storehub/internal/domain/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(async bool) *Bus {
	return NewBus(Config{
		Async:  async,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestBus_SubscribeDeliversByType(t *testing.T) {
	bus := newTestBus(false)

	var sold []shared.ItemSoldEvent
	require.NoError(t, bus.Subscribe(shared.EventItemSold, func(e shared.Event) error {
		sold = append(sold, e.(shared.ItemSoldEvent))
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewItemSoldEvent("A-1", 2, 4.5, 3)))
	require.NoError(t, bus.Publish(shared.NewItemRestockedEvent("A-1", 3, 5)))

	require.Len(t, sold, 1)
	assert.Equal(t, "A-1", sold[0].AggregateID())
	assert.Equal(t, 2, sold[0].Quantity)
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := newTestBus(false)

	var seen []shared.EventType
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		seen = append(seen, e.EventType())
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewItemSoldEvent("A-1", 1, 1, 0)))
	require.NoError(t, bus.Publish(shared.NewStockLowEvent("A-1", 0, 2)))

	assert.Equal(t, []shared.EventType{shared.EventItemSold, shared.EventStockLow}, seen)
}

func TestBus_HandlerErrorIsNotPropagated(t *testing.T) {
	bus := newTestBus(false)

	require.NoError(t, bus.Subscribe(shared.EventItemSold, func(shared.Event) error {
		return errors.New("boom")
	}))
	require.NoError(t, bus.Subscribe(shared.EventItemSold, func(shared.Event) error {
		panic("handler bug")
	}))

	assert.NoError(t, bus.Publish(shared.NewItemSoldEvent("A-1", 1, 1, 0)))

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap.TotalPublished)
	assert.Equal(t, int64(2), snap.HandlerFailures)
	assert.Equal(t, int64(0), snap.HandlerSuccesses)
}

func TestBus_Validation(t *testing.T) {
	bus := newTestBus(false)

	assert.Error(t, bus.Subscribe("", func(shared.Event) error { return nil }))
	assert.Error(t, bus.Subscribe(shared.EventItemSold, nil))
	assert.Error(t, bus.SubscribeAll(nil))
	assert.Error(t, bus.Publish(nil))
}

func TestBus_PublishWithoutHandlers(t *testing.T) {
	bus := newTestBus(false)

	assert.NoError(t, bus.Publish(shared.NewItemAddedEvent("A-1", "Widget", 2, 5)))
	assert.Equal(t, int64(1), bus.Metrics().Snapshot().PublishedByType[shared.EventItemAdded])
}

func TestBus_Closed(t *testing.T) {
	bus := newTestBus(false)
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(shared.NewItemSoldEvent("A-1", 1, 1, 0)), ErrEventBusClosed)
	assert.ErrorIs(t, bus.SubscribeAll(func(shared.Event) error { return nil }), ErrEventBusClosed)
}

func TestBus_AsyncDeliveryCompletesOnClose(t *testing.T) {
	bus := newTestBus(true)

	var count atomic.Int32
	var mu sync.Mutex
	ids := map[string]bool{}
	require.NoError(t, bus.Subscribe(shared.EventMarkRecorded, func(e shared.Event) error {
		count.Add(1)
		mu.Lock()
		ids[e.AggregateID()] = true
		mu.Unlock()
		return nil
	}))

	for _, id := range []string{"s1", "s2", "s3"} {
		require.NoError(t, bus.Publish(shared.NewMarkRecordedEvent(id, "N-1", 0, -1, 90)))
	}
	require.NoError(t, bus.Close())

	assert.Equal(t, int32(3), count.Load())
	assert.Len(t, ids, 3)
}
