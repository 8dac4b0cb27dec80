package messaging

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/comptia-study-hub/internal/domain/shared"
)

func TestInMemoryEventBus_PublishToSubscriber(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultConfig())
	defer bus.Close()

	var received []shared.Event
	err := bus.Subscribe(shared.EventStreakUpdated, func(e shared.Event) error {
		received = append(received, e)
		return nil
	})
	require.NoError(t, err)

	event := shared.NewStreakUpdatedEvent("user1", 3)
	require.NoError(t, bus.Publish(event))

	require.Len(t, received, 1)
	assert.Equal(t, shared.EventStreakUpdated, received[0].EventType())
	assert.Equal(t, "user1", received[0].AggregateID())
}

func TestInMemoryEventBus_TypeFiltering(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultConfig())
	defer bus.Close()

	var streakCount, allCount int
	require.NoError(t, bus.Subscribe(shared.EventStreakUpdated, func(e shared.Event) error {
		streakCount++
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		allCount++
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewStreakUpdatedEvent("user1", 1)))
	require.NoError(t, bus.Publish(shared.NewSessionStartedEvent("user1", "s1", "study", 25)))

	assert.Equal(t, 1, streakCount)
	assert.Equal(t, 2, allCount)
}

func TestInMemoryEventBus_HandlerErrorDoesNotFailPublish(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultConfig())
	defer bus.Close()

	require.NoError(t, bus.Subscribe(shared.EventStreakUpdated, func(e shared.Event) error {
		return errors.New("boom")
	}))

	var reached bool
	require.NoError(t, bus.Subscribe(shared.EventStreakUpdated, func(e shared.Event) error {
		reached = true
		return nil
	}))

	assert.NoError(t, bus.Publish(shared.NewStreakUpdatedEvent("user1", 1)))
	assert.True(t, reached)
}

func TestInMemoryEventBus_AsyncMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AsyncMode = true
	bus := NewInMemoryEventBus(cfg)

	var count atomic.Int64
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		count.Add(1)
		return nil
	}))

	for i := 0; i < 20; i++ {
		require.NoError(t, bus.Publish(shared.NewStreakUpdatedEvent("user1", i)))
	}

	// Close waits for in-flight handlers
	require.NoError(t, bus.Close())
	assert.Equal(t, int64(20), count.Load())
}

func TestInMemoryEventBus_ClosedBusRejectsOperations(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultConfig())
	require.NoError(t, bus.Close())

	err := bus.Publish(shared.NewStreakUpdatedEvent("user1", 1))
	assert.ErrorIs(t, err, ErrEventBusClosed)

	err = bus.Subscribe(shared.EventStreakUpdated, func(e shared.Event) error { return nil })
	assert.ErrorIs(t, err, ErrEventBusClosed)
}

func TestInMemoryEventBus_Validation(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultConfig())
	defer bus.Close()

	assert.ErrorIs(t, bus.Subscribe(shared.EventStreakUpdated, nil), ErrNilHandler)
	assert.ErrorIs(t, bus.Publish(nil), ErrNilEvent)
}

func TestMetrics_Snapshot(t *testing.T) {
	cfg := DefaultConfig()
	bus := NewInMemoryEventBus(cfg)
	defer bus.Close()

	require.NoError(t, bus.Subscribe(shared.EventStreakUpdated, func(e shared.Event) error {
		return nil
	}))
	require.NoError(t, bus.Subscribe(shared.EventStreakUpdated, func(e shared.Event) error {
		return errors.New("boom")
	}))

	require.NoError(t, bus.Publish(shared.NewStreakUpdatedEvent("user1", 1)))

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap.TotalPublished)
	assert.Equal(t, int64(2), snap.TotalExecutions)
	assert.InDelta(t, 0.5, snap.SuccessRate, 0.001)
}
