package eventhandler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/comptia-study-hub/internal/domain/shared"
	"github.com/studyhub/comptia-study-hub/internal/infrastructure/messaging"
)

type credit struct {
	userID  string
	minutes int
}

type fakeCrediter struct {
	credits []credit
	err     error
}

func (f *fakeCrediter) CreditStudyTime(_ context.Context, userID string, minutes int) error {
	if f.err != nil {
		return f.err
	}
	f.credits = append(f.credits, credit{userID: userID, minutes: minutes})
	return nil
}

func newRegisteredHandler(t *testing.T) (*fakeCrediter, *messaging.InMemoryEventBus) {
	t.Helper()
	crediter := &fakeCrediter{}
	bus := messaging.NewInMemoryEventBus(messaging.DefaultConfig())
	t.Cleanup(func() { _ = bus.Close() })

	handler := NewOnSessionFinishedHandler(crediter, nil)
	require.NoError(t, handler.Register(bus))
	return crediter, bus
}

func TestOnSessionFinished_CreditsCompletedStudySession(t *testing.T) {
	crediter, bus := newRegisteredHandler(t)

	err := bus.Publish(shared.NewSessionCompletedEvent("user1", "s1", "study", 25))
	require.NoError(t, err)

	require.Len(t, crediter.credits, 1)
	assert.Equal(t, credit{userID: "user1", minutes: 25}, crediter.credits[0])
}

func TestOnSessionFinished_CreditsElapsedOnCancel(t *testing.T) {
	crediter, bus := newRegisteredHandler(t)

	err := bus.Publish(shared.NewSessionCancelledEvent("user1", "s1", "study", 7))
	require.NoError(t, err)

	require.Len(t, crediter.credits, 1)
	assert.Equal(t, 7, crediter.credits[0].minutes)
}

func TestOnSessionFinished_IgnoresBreaks(t *testing.T) {
	crediter, bus := newRegisteredHandler(t)

	require.NoError(t, bus.Publish(shared.NewSessionCompletedEvent("user1", "s1", "short_break", 5)))
	require.NoError(t, bus.Publish(shared.NewSessionCompletedEvent("user1", "s2", "long_break", 15)))

	assert.Empty(t, crediter.credits)
}

func TestOnSessionFinished_IgnoresZeroMinutes(t *testing.T) {
	crediter, bus := newRegisteredHandler(t)

	// Cancelled within the first minute: nothing to credit
	require.NoError(t, bus.Publish(shared.NewSessionCancelledEvent("user1", "s1", "study", 0)))

	assert.Empty(t, crediter.credits)
}

func TestOnSessionFinished_PropagatesCrediterError(t *testing.T) {
	crediter := &fakeCrediter{err: errors.New("store unavailable")}
	handler := NewOnSessionFinishedHandler(crediter, nil)

	err := handler.handleCompleted(shared.NewSessionCompletedEvent("user1", "s1", "study", 25))
	assert.Error(t, err)
}

func TestOnSessionFinished_RejectsForeignEventType(t *testing.T) {
	handler := NewOnSessionFinishedHandler(&fakeCrediter{}, nil)

	err := handler.handleCompleted(shared.NewStudyTimeAddedEvent("user1", 10, 10))
	assert.Error(t, err)
}
