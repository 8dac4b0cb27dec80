package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/studyhub/comptia-study-hub/internal/domain/learner"
	"github.com/studyhub/comptia-study-hub/internal/domain/pomodoro"
	"github.com/studyhub/comptia-study-hub/internal/domain/shared"
	"github.com/studyhub/comptia-study-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET POMODORO STATUS QUERY
// Backs /pomodoro without arguments: what is my timer doing right now.
// The status read is what lazily completes an expired session, so even
// this query can have an observable effect on the timer state.
// ══════════════════════════════════════════════════════════════════════════════

// SessionReader is the slice of the timer manager this query needs.
type SessionReader interface {
	Status(ctx context.Context, userID string) (*pomodoro.Session, error)
}

// GetPomodoroStatusQuery identifies whose timer to inspect.
type GetPomodoroStatusQuery struct {
	// UserID is the chat-platform identifier of the learner.
	UserID string
}

// PomodoroStatusView is the timer status read model.
type PomodoroStatusView struct {
	// Active reports whether a session is currently running.
	Active bool

	// Session is the last known session (nil when the user never
	// started one or the record was already evicted).
	Session *pomodoro.Session

	// Elapsed and Remaining are computed against the query time.
	Elapsed   time.Duration
	Remaining time.Duration
}

// GetPomodoroStatusHandler handles the GetPomodoroStatusQuery.
type GetPomodoroStatusHandler struct {
	timers SessionReader
	clock  timeutil.Clock
}

// NewGetPomodoroStatusHandler creates a new GetPomodoroStatusHandler.
func NewGetPomodoroStatusHandler(timers SessionReader, clock timeutil.Clock) *GetPomodoroStatusHandler {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &GetPomodoroStatusHandler{timers: timers, clock: clock}
}

// Handle executes the query. A user with no session record gets an
// inactive view, not an error.
func (h *GetPomodoroStatusHandler) Handle(ctx context.Context, q GetPomodoroStatusQuery) (*PomodoroStatusView, error) {
	if !learner.UserID(q.UserID).IsValid() {
		return nil, fmt.Errorf("get_pomodoro_status: %w", shared.ErrInvalidUserID)
	}

	session, err := h.timers.Status(ctx, q.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return &PomodoroStatusView{}, nil
		}
		return nil, fmt.Errorf("get_pomodoro_status: %w", err)
	}

	now := h.clock.Now()
	return &PomodoroStatusView{
		Active:    session.State == pomodoro.StateRunning,
		Session:   session,
		Elapsed:   session.ElapsedAt(now),
		Remaining: session.RemainingAt(now),
	}, nil
}
