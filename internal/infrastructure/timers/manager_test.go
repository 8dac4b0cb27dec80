package timers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/comptia-study-hub/internal/domain/pomodoro"
	"github.com/studyhub/comptia-study-hub/internal/domain/shared"
	"github.com/studyhub/comptia-study-hub/pkg/timeutil"
)

// recordingBus captures published events for assertions.
type recordingBus struct {
	mu     sync.Mutex
	events []shared.Event
}

func (b *recordingBus) Publish(event shared.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *recordingBus) ofType(t shared.EventType) []shared.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var result []shared.Event
	for _, e := range b.events {
		if e.EventType() == t {
			result = append(result, e)
		}
	}
	return result
}

func newTestManager() (*Manager, *timeutil.FakeClock, *recordingBus) {
	clock := timeutil.NewFakeClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	bus := &recordingBus{}
	m := NewManager(Options{
		Clock: clock,
		Bus:   bus,
	})
	return m, clock, bus
}

func TestManager_StartAndStatus(t *testing.T) {
	m, clock, bus := newTestManager()
	ctx := context.Background()

	session, err := m.Start(ctx, "user1", pomodoro.TypeStudy)
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, pomodoro.StateRunning, session.State)
	assert.Equal(t, 25*time.Minute, session.Duration)

	clock.Advance(10 * time.Minute)

	status, err := m.Status(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, pomodoro.StateRunning, status.State)
	assert.Equal(t, 10*time.Minute, status.ElapsedAt(clock.Now()))
	assert.Equal(t, 15*time.Minute, status.RemainingAt(clock.Now()))

	assert.Len(t, bus.ofType(shared.EventSessionStarted), 1)
}

func TestManager_Start_ConflictWhileRunning(t *testing.T) {
	m, _, _ := newTestManager()
	ctx := context.Background()

	_, err := m.Start(ctx, "user1", pomodoro.TypeStudy)
	require.NoError(t, err)

	_, err = m.Start(ctx, "user1", pomodoro.TypeShortBreak)
	assert.ErrorIs(t, err, shared.ErrConflict)

	// Different users never conflict
	_, err = m.Start(ctx, "user2", pomodoro.TypeStudy)
	assert.NoError(t, err)
}

func TestManager_Start_InvalidType(t *testing.T) {
	m, _, _ := newTestManager()

	_, err := m.Start(context.Background(), "user1", "nap")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestManager_Stop_CancelsRunningSession(t *testing.T) {
	m, clock, bus := newTestManager()
	ctx := context.Background()

	_, err := m.Start(ctx, "user1", pomodoro.TypeStudy)
	require.NoError(t, err)

	clock.Advance(12 * time.Minute)

	stopped, err := m.Stop(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, pomodoro.StateCancelled, stopped.State)
	assert.Equal(t, 12*time.Minute, stopped.ElapsedAt(clock.Now()))

	assert.Len(t, bus.ofType(shared.EventSessionCancelled), 1)
	assert.Empty(t, bus.ofType(shared.EventSessionCompleted))

	// A new session can be started after stopping
	_, err = m.Start(ctx, "user1", pomodoro.TypeShortBreak)
	assert.NoError(t, err)
}

func TestManager_Stop_NoRunningSession(t *testing.T) {
	m, _, _ := newTestManager()
	ctx := context.Background()

	_, err := m.Stop(ctx, "user1")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	// Stopping twice: second stop finds only a terminal session
	_, err = m.Start(ctx, "user1", pomodoro.TypeStudy)
	require.NoError(t, err)
	_, err = m.Stop(ctx, "user1")
	require.NoError(t, err)
	_, err = m.Stop(ctx, "user1")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestManager_Status_LazyCompletion(t *testing.T) {
	m, clock, bus := newTestManager()
	ctx := context.Background()

	started, err := m.Start(ctx, "user1", pomodoro.TypeStudy)
	require.NoError(t, err)

	// 25-minute session queried 26 minutes later reports Completed
	clock.Advance(26 * time.Minute)

	status, err := m.Status(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, pomodoro.StateCompleted, status.State)
	assert.Equal(t, started.StartedAt.Add(25*time.Minute), status.EndedAt)
	assert.Equal(t, time.Duration(0), status.RemainingAt(clock.Now()))

	// Completion event fires exactly once even if status is polled again
	_, err = m.Status(ctx, "user1")
	require.NoError(t, err)
	assert.Len(t, bus.ofType(shared.EventSessionCompleted), 1)
}

func TestManager_Start_AfterExpiryCompletesOldSession(t *testing.T) {
	m, clock, bus := newTestManager()
	ctx := context.Background()

	_, err := m.Start(ctx, "user1", pomodoro.TypeStudy)
	require.NoError(t, err)

	clock.Advance(30 * time.Minute)

	// The expired session is completed, not a conflict
	next, err := m.Start(ctx, "user1", pomodoro.TypeShortBreak)
	require.NoError(t, err)
	assert.Equal(t, pomodoro.TypeShortBreak, next.Type)

	assert.Len(t, bus.ofType(shared.EventSessionCompleted), 1)
	assert.Len(t, bus.ofType(shared.EventSessionStarted), 2)
}

func TestManager_Stop_ExpiredSessionCountsAsCompleted(t *testing.T) {
	m, clock, bus := newTestManager()
	ctx := context.Background()

	_, err := m.Start(ctx, "user1", pomodoro.TypeStudy)
	require.NoError(t, err)

	clock.Advance(40 * time.Minute)

	stopped, err := m.Stop(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, pomodoro.StateCompleted, stopped.State)
	assert.Len(t, bus.ofType(shared.EventSessionCompleted), 1)
	assert.Empty(t, bus.ofType(shared.EventSessionCancelled))
}

func TestManager_ExpireDue(t *testing.T) {
	m, clock, bus := newTestManager()
	ctx := context.Background()

	_, err := m.Start(ctx, "user1", pomodoro.TypeStudy) // 25 min
	require.NoError(t, err)
	_, err = m.Start(ctx, "user2", pomodoro.TypeShortBreak) // 5 min
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)

	completed, err := m.ExpireDue(ctx)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "user2", completed[0].UserID)

	// The study session is still running
	status, err := m.Status(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, pomodoro.StateRunning, status.State)

	// Sweep again: nothing new completes, no duplicate events
	completed, err = m.ExpireDue(ctx)
	require.NoError(t, err)
	assert.Empty(t, completed)
	assert.Len(t, bus.ofType(shared.EventSessionCompleted), 1)
}

func TestManager_ExpireDue_EvictsOldTerminalSessions(t *testing.T) {
	clock := timeutil.NewFakeClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	m := NewManager(Options{
		Clock:     clock,
		Retention: time.Hour,
	})
	ctx := context.Background()

	_, err := m.Start(ctx, "user1", pomodoro.TypeStudy)
	require.NoError(t, err)
	_, err = m.Stop(ctx, "user1")
	require.NoError(t, err)

	// Still queryable inside the retention window
	clock.Advance(30 * time.Minute)
	_, err = m.ExpireDue(ctx)
	require.NoError(t, err)
	_, err = m.Status(ctx, "user1")
	assert.NoError(t, err)

	// Evicted after the window passes
	clock.Advance(2 * time.Hour)
	_, err = m.ExpireDue(ctx)
	require.NoError(t, err)
	_, err = m.Status(ctx, "user1")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestManager_ActiveCount(t *testing.T) {
	m, clock, _ := newTestManager()
	ctx := context.Background()

	assert.Equal(t, 0, m.ActiveCount())

	_, err := m.Start(ctx, "user1", pomodoro.TypeStudy)
	require.NoError(t, err)
	_, err = m.Start(ctx, "user2", pomodoro.TypeShortBreak)
	require.NoError(t, err)
	assert.Equal(t, 2, m.ActiveCount())

	clock.Advance(10 * time.Minute) // short break expired
	assert.Equal(t, 1, m.ActiveCount())
}

func TestManager_ExportImport_RoundTrip(t *testing.T) {
	m, clock, _ := newTestManager()
	ctx := context.Background()

	started, err := m.Start(ctx, "user1", pomodoro.TypeStudy)
	require.NoError(t, err)

	data, err := m.ExportState(ctx)
	require.NoError(t, err)

	restored := NewManager(Options{Clock: clock})
	require.NoError(t, restored.ImportState(ctx, data))

	status, err := restored.Status(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, started.ID, status.ID)
	assert.Equal(t, pomodoro.StateRunning, status.State)

	// The restored manager still enforces the single-session invariant
	_, err = restored.Start(ctx, "user1", pomodoro.TypeStudy)
	assert.ErrorIs(t, err, shared.ErrConflict)
}

func TestManager_ImportState_RejectsUnknownType(t *testing.T) {
	m, _, _ := newTestManager()

	bad := `{"sessions":[{"id":"s1","user_id":"u1","type":"nap","state":"running"}]}`
	err := m.ImportState(context.Background(), []byte(bad))
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

// callbackBus drives the manager from inside Publish, the way the in-process
// bus runs subscribers synchronously on the publishing goroutine.
type callbackBus struct {
	manager      *Manager
	sawCompleted bool
}

func (b *callbackBus) Publish(event shared.Event) error {
	b.manager.ActiveCount()
	if event.EventType() == shared.EventSessionCompleted {
		b.sawCompleted = true
		if _, err := b.manager.Start(context.Background(), "user2", pomodoro.TypeShortBreak); err != nil {
			return err
		}
	}
	return nil
}

func TestManager_SubscriberCanCallBackIntoManager(t *testing.T) {
	clock := timeutil.NewFakeClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	bus := &callbackBus{}
	m := NewManager(Options{Clock: clock, Bus: bus})
	bus.manager = m
	ctx := context.Background()

	_, err := m.Start(ctx, "user1", pomodoro.TypeStudy)
	require.NoError(t, err)

	clock.Advance(26 * time.Minute)

	// Lazy completion publishes while the subscriber queries the manager
	// and starts a session for another user; nothing may block.
	status, err := m.Status(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, pomodoro.StateCompleted, status.State)
	assert.True(t, bus.sawCompleted)

	other, err := m.Status(ctx, "user2")
	require.NoError(t, err)
	assert.Equal(t, pomodoro.StateRunning, other.State)
}

// gatedBus stalls completion-event publishes until released, imitating a
// subscriber stuck on slow I/O.
type gatedBus struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *gatedBus) Publish(event shared.Event) error {
	if event.EventType() != shared.EventSessionCompleted {
		return nil
	}
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return nil
}

func TestManager_SlowSubscriberDoesNotBlockOtherUsers(t *testing.T) {
	clock := timeutil.NewFakeClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	bus := &gatedBus{entered: make(chan struct{}), release: make(chan struct{})}
	m := NewManager(Options{Clock: clock, Bus: bus})
	ctx := context.Background()

	_, err := m.Start(ctx, "user1", pomodoro.TypeStudy)
	require.NoError(t, err)

	clock.Advance(26 * time.Minute)

	statusDone := make(chan struct{})
	go func() {
		defer close(statusDone)
		_, _ = m.Status(ctx, "user1")
	}()
	<-bus.entered

	// user1's completion notification is stuck in the subscriber; other
	// users keep their timers responsive.
	otherDone := make(chan struct{})
	go func() {
		defer close(otherDone)
		if _, err := m.Start(ctx, "user2", pomodoro.TypeShortBreak); err != nil {
			t.Error(err)
		}
		if _, err := m.Status(ctx, "user2"); err != nil {
			t.Error(err)
		}
	}()

	select {
	case <-otherDone:
	case <-time.After(2 * time.Second):
		t.Fatal("operations for another user stalled behind a slow subscriber")
	}

	close(bus.release)
	<-statusDone
}
