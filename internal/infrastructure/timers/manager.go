// Package timers manages per-user Pomodoro session timers.
// The manager owns the "at most one running session per user" invariant
// and is the only writer of session state transitions.
package timers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/studyhub/comptia-study-hub/internal/domain/pomodoro"
	"github.com/studyhub/comptia-study-hub/internal/domain/shared"
	"github.com/studyhub/comptia-study-hub/pkg/logger"
	"github.com/studyhub/comptia-study-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION TIMER MANAGER
// ══════════════════════════════════════════════════════════════════════════════

// Manager tracks the latest session per user. Terminal sessions stay
// queryable until the next start or an expiry sweep evicts them.
//
// Each user's session hides behind its own entry lock, so concurrent
// operations on different users never serialize; the registry lock only
// guards the map itself. Events are published after every lock is
// released, which keeps slow subscribers from stalling timer operations.
//
// Expiry is detected two ways: lazily, when Status or Start observes a
// session past its duration, and eagerly by the periodic ExpireDue sweep.
// The Notified flag on the session guarantees the completion event is
// published exactly once regardless of who observed expiry first.
type Manager struct {
	mu      sync.RWMutex
	entries map[string]*timerEntry // keyed by user id

	durations pomodoro.Durations
	retention time.Duration

	clock timeutil.Clock
	bus   shared.EventPublisher
	log   *logger.Logger
}

// timerEntry holds one user's latest session behind its own lock.
type timerEntry struct {
	mu      sync.Mutex
	session *pomodoro.Session
}

// Options configures the Manager.
type Options struct {
	// Durations per session type. Zero value falls back to the classic 25/5/15.
	Durations pomodoro.Durations

	// Retention keeps terminal sessions queryable for this long after they
	// end. Zero disables eviction.
	Retention time.Duration

	// Clock is the time source. Nil defaults to real time.
	Clock timeutil.Clock

	// Bus receives session lifecycle events. Nil disables publishing.
	Bus shared.EventPublisher

	// Log is the structured logger. Nil defaults to the global logger.
	Log *logger.Logger
}

// NewManager creates a session timer manager.
func NewManager(opts Options) *Manager {
	if opts.Durations == (pomodoro.Durations{}) {
		opts.Durations = pomodoro.DefaultDurations()
	}
	if opts.Clock == nil {
		opts.Clock = timeutil.RealClock{}
	}
	if opts.Log == nil {
		opts.Log = logger.Default()
	}

	return &Manager{
		entries:   make(map[string]*timerEntry),
		durations: opts.Durations,
		retention: opts.Retention,
		clock:     opts.Clock,
		bus:       opts.Bus,
		log:       opts.Log.With(logger.Component("timers")),
	}
}

// entryFor returns the user's entry, creating it on first use.
func (m *Manager) entryFor(userID string) *timerEntry {
	m.mu.RLock()
	entry, ok := m.entries[userID]
	m.mu.RUnlock()
	if ok {
		return entry
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if entry, ok := m.entries[userID]; ok {
		return entry
	}
	entry = &timerEntry{}
	m.entries[userID] = entry
	return entry
}

// lookup returns the user's entry without creating one.
func (m *Manager) lookup(userID string) (*timerEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[userID]
	return entry, ok
}

// ══════════════════════════════════════════════════════════════════════════════
// OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// Start launches a new session for the user.
// Returns shared.ErrSessionAlreadyActive while a session is still running;
// an already expired session is completed first, then the start proceeds.
func (m *Manager) Start(ctx context.Context, userID string, sessionType pomodoro.SessionType) (*pomodoro.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, shared.NewDomainError("pomodoro", "start", shared.ErrInvalidID,
			"user id must be non-empty")
	}
	if !sessionType.IsValid() {
		return nil, shared.WrapError("pomodoro", "start", shared.ErrInvalidInput,
			fmt.Sprintf("session type %q", sessionType), pomodoro.ErrUnknownType)
	}

	duration, err := m.durations.For(sessionType)
	if err != nil {
		return nil, shared.WrapError("pomodoro", "start", shared.ErrInvalidInput,
			fmt.Sprintf("session type %q", sessionType), err)
	}

	now := m.clock.Now()
	entry := m.entryFor(userID)

	var events []shared.Event
	entry.mu.Lock()
	if existing := entry.session; existing != nil && existing.State == pomodoro.StateRunning {
		if !existing.IsExpiredAt(now) {
			entry.mu.Unlock()
			return nil, shared.NewDomainError("pomodoro", "start", shared.ErrConflict,
				fmt.Sprintf("user %s already has a running %s session", userID, existing.Type))
		}
		if event, ok := m.complete(existing, existing.StartedAt.Add(existing.Duration)); ok {
			events = append(events, event)
		}
	}

	session := pomodoro.NewSession(uuid.NewString(), userID, sessionType, now, duration)
	entry.session = session
	clone := session.Clone()
	entry.mu.Unlock()

	m.log.Info("session started",
		logger.UserID(userID),
		logger.SessionID(clone.ID),
		logger.String("session_type", sessionType.String()),
		logger.Duration("duration", duration),
	)
	events = append(events, shared.NewSessionStartedEvent(userID, clone.ID,
		sessionType.String(), int(duration.Minutes())))
	m.publishAll(events)

	return clone, nil
}

// Stop cancels the user's running session and returns its final state.
// Returns shared.ErrSessionNotFound when no session is running.
func (m *Manager) Stop(ctx context.Context, userID string) (*pomodoro.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := m.clock.Now()

	entry, ok := m.lookup(userID)
	if !ok {
		return nil, shared.NewDomainError("pomodoro", "stop", shared.ErrNotFound,
			fmt.Sprintf("no running session for user %s", userID))
	}

	entry.mu.Lock()
	session := entry.session
	if session == nil || session.State != pomodoro.StateRunning {
		entry.mu.Unlock()
		return nil, shared.NewDomainError("pomodoro", "stop", shared.ErrNotFound,
			fmt.Sprintf("no running session for user %s", userID))
	}

	// A session that has silently run past its duration counts as completed,
	// not cancelled.
	if session.IsExpiredAt(now) {
		event, published := m.complete(session, session.StartedAt.Add(session.Duration))
		clone := session.Clone()
		entry.mu.Unlock()
		if published {
			m.publish(event)
		}
		return clone, nil
	}

	if err := session.Cancel(now); err != nil {
		entry.mu.Unlock()
		return nil, shared.WrapError("pomodoro", "stop", shared.ErrStateTransition,
			fmt.Sprintf("session %s", session.ID), err)
	}
	session.MarkNotified()

	elapsed := session.ElapsedAt(now)
	clone := session.Clone()
	entry.mu.Unlock()

	m.log.Info("session cancelled",
		logger.UserID(userID),
		logger.SessionID(clone.ID),
		logger.Duration("elapsed", elapsed),
	)
	m.publish(shared.NewSessionCancelledEvent(userID, clone.ID, clone.Type.String(),
		int(elapsed.Minutes())))

	return clone, nil
}

// Status returns the user's latest session, completing it first if its
// duration has elapsed. Returns shared.ErrSessionNotFound when the user
// has no session on record.
func (m *Manager) Status(ctx context.Context, userID string) (*pomodoro.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := m.clock.Now()

	entry, ok := m.lookup(userID)
	if !ok {
		return nil, shared.NewDomainError("pomodoro", "status", shared.ErrNotFound,
			fmt.Sprintf("no session for user %s", userID))
	}

	entry.mu.Lock()
	session := entry.session
	if session == nil {
		entry.mu.Unlock()
		return nil, shared.NewDomainError("pomodoro", "status", shared.ErrNotFound,
			fmt.Sprintf("no session for user %s", userID))
	}

	var event shared.Event
	var published bool
	if session.IsExpiredAt(now) {
		event, published = m.complete(session, session.StartedAt.Add(session.Duration))
	}
	clone := session.Clone()
	entry.mu.Unlock()

	if published {
		m.publish(event)
	}
	return clone, nil
}

// ExpireDue completes every running session that has run past its duration
// and evicts terminal sessions older than the retention window.
// Returns the sessions completed by this sweep. Called by the scheduler.
func (m *Manager) ExpireDue(ctx context.Context) ([]*pomodoro.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := m.clock.Now()

	m.mu.RLock()
	snapshot := make(map[string]*timerEntry, len(m.entries))
	for userID, entry := range m.entries {
		snapshot[userID] = entry
	}
	m.mu.RUnlock()

	var completed []*pomodoro.Session
	var events []shared.Event
	var evict []string
	for userID, entry := range snapshot {
		entry.mu.Lock()
		session := entry.session
		if session == nil {
			entry.mu.Unlock()
			continue
		}
		if session.IsExpiredAt(now) {
			if event, ok := m.complete(session, session.StartedAt.Add(session.Duration)); ok {
				completed = append(completed, session.Clone())
				events = append(events, event)
			}
			entry.mu.Unlock()
			continue
		}
		if m.retention > 0 && session.State.IsTerminal() &&
			now.Sub(session.EndedAt) > m.retention {
			evict = append(evict, userID)
		}
		entry.mu.Unlock()
	}

	if len(evict) > 0 {
		m.mu.Lock()
		for _, userID := range evict {
			entry, ok := m.entries[userID]
			if !ok {
				continue
			}
			entry.mu.Lock()
			stale := entry.session != nil && entry.session.State.IsTerminal() &&
				now.Sub(entry.session.EndedAt) > m.retention
			entry.mu.Unlock()
			if stale {
				delete(m.entries, userID)
			}
		}
		m.mu.Unlock()
	}

	m.publishAll(events)
	return completed, nil
}

// ActiveCount returns the number of currently running sessions.
func (m *Manager) ActiveCount() int {
	now := m.clock.Now()

	m.mu.RLock()
	snapshot := make([]*timerEntry, 0, len(m.entries))
	for _, entry := range m.entries {
		snapshot = append(snapshot, entry)
	}
	m.mu.RUnlock()

	count := 0
	for _, entry := range snapshot {
		entry.mu.Lock()
		session := entry.session
		if session != nil && session.State == pomodoro.StateRunning && !session.IsExpiredAt(now) {
			count++
		}
		entry.mu.Unlock()
	}
	return count
}

// complete transitions a session to Completed. Caller holds the entry lock;
// the returned completion event must be published after that lock is
// released. Reports whether this call performed the transition.
func (m *Manager) complete(session *pomodoro.Session, at time.Time) (shared.Event, bool) {
	if err := session.Complete(at); err != nil {
		return nil, false
	}
	if !session.MarkNotified() {
		return nil, false
	}

	m.log.Info("session completed",
		logger.UserID(session.UserID),
		logger.SessionID(session.ID),
		logger.String("session_type", session.Type.String()),
	)
	return shared.NewSessionCompletedEvent(session.UserID, session.ID,
		session.Type.String(), int(session.Duration.Minutes())), true
}

// publish sends an event to the bus, logging failures instead of
// propagating them: timer operations must not fail because a subscriber did.
func (m *Manager) publish(event shared.Event) {
	if m.bus == nil {
		return
	}
	if err := m.bus.Publish(event); err != nil {
		m.log.Warn("event publish failed",
			logger.String("event_type", string(event.EventType())),
			logger.Err(err),
		)
	}
}

func (m *Manager) publishAll(events []shared.Event) {
	for _, event := range events {
		m.publish(event)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// STATE EXPORT / IMPORT
// ══════════════════════════════════════════════════════════════════════════════

// sessionSnapshot is the serialized form of a single session.
type sessionSnapshot struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	Type      string        `json:"type"`
	State     string        `json:"state"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	EndedAt   time.Time     `json:"ended_at,omitempty"`
	Notified  bool          `json:"notified"`
}

type managerSnapshot struct {
	ExportedAt time.Time         `json:"exported_at"`
	Sessions   []sessionSnapshot `json:"sessions"`
}

// ExportState returns a JSON snapshot of all tracked sessions.
func (m *Manager) ExportState(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	entries := make([]*timerEntry, 0, len(m.entries))
	for _, entry := range m.entries {
		entries = append(entries, entry)
	}
	m.mu.RUnlock()

	snapshot := managerSnapshot{
		ExportedAt: m.clock.Now(),
		Sessions:   make([]sessionSnapshot, 0, len(entries)),
	}
	for _, entry := range entries {
		entry.mu.Lock()
		s := entry.session
		if s == nil {
			entry.mu.Unlock()
			continue
		}
		snapshot.Sessions = append(snapshot.Sessions, sessionSnapshot{
			ID:        s.ID,
			UserID:    s.UserID,
			Type:      s.Type.String(),
			State:     string(s.State),
			StartedAt: s.StartedAt,
			Duration:  s.Duration,
			EndedAt:   s.EndedAt,
			Notified:  s.Notified,
		})
		entry.mu.Unlock()
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, shared.WrapError("pomodoro", "export_state", shared.ErrInvalidInput,
			"failed to marshal session snapshot", err)
	}
	return data, nil
}

// ImportState replaces tracked sessions with the given snapshot.
func (m *Manager) ImportState(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var snapshot managerSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return shared.NewDomainError("pomodoro", "import_state", shared.ErrInvalidInput,
			fmt.Sprintf("malformed snapshot: %v", err))
	}

	entries := make(map[string]*timerEntry, len(snapshot.Sessions))
	for _, rec := range snapshot.Sessions {
		sessionType := pomodoro.SessionType(rec.Type)
		if !sessionType.IsValid() {
			return shared.NewDomainError("pomodoro", "import_state", shared.ErrInvalidInput,
				fmt.Sprintf("session %q: unknown type %q", rec.ID, rec.Type))
		}
		entries[rec.UserID] = &timerEntry{session: &pomodoro.Session{
			ID:        rec.ID,
			UserID:    rec.UserID,
			Type:      sessionType,
			State:     pomodoro.State(rec.State),
			StartedAt: rec.StartedAt,
			Duration:  rec.Duration,
			EndedAt:   rec.EndedAt,
			Notified:  rec.Notified,
		}}
	}

	m.mu.Lock()
	m.entries = entries
	m.mu.Unlock()
	return nil
}
