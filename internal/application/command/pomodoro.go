package command

import (
	"context"
	"fmt"

	"github.com/studyhub/comptia-study-hub/internal/domain/learner"
	"github.com/studyhub/comptia-study-hub/internal/domain/pomodoro"
	"github.com/studyhub/comptia-study-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// POMODORO COMMANDS
// Thin orchestration over the timer manager. The manager owns the
// one-running-session-per-user invariant and publishes lifecycle events;
// study-time crediting happens in the session-finished event handler.
// ══════════════════════════════════════════════════════════════════════════════

// TimerManager is the slice of the timer manager the commands need.
type TimerManager interface {
	Start(ctx context.Context, userID string, sessionType pomodoro.SessionType) (*pomodoro.Session, error)
	Stop(ctx context.Context, userID string) (*pomodoro.Session, error)
}

// StartPomodoroCommand contains the data to start a timer session.
type StartPomodoroCommand struct {
	// UserID is the chat-platform identifier of the learner.
	UserID string

	// Type is the session type: study, short_break or long_break.
	Type pomodoro.SessionType
}

// Validate validates the command.
func (c StartPomodoroCommand) Validate() error {
	if !learner.UserID(c.UserID).IsValid() {
		return shared.ErrInvalidUserID
	}
	if !c.Type.IsValid() {
		return shared.ErrUnknownSessionType
	}
	return nil
}

// StartPomodoroHandler handles the StartPomodoroCommand.
type StartPomodoroHandler struct {
	timers TimerManager
}

// NewStartPomodoroHandler creates a new StartPomodoroHandler.
func NewStartPomodoroHandler(timers TimerManager) *StartPomodoroHandler {
	return &StartPomodoroHandler{timers: timers}
}

// Handle starts a session. Returns shared.ErrConflict when one is
// already running for the user.
func (h *StartPomodoroHandler) Handle(ctx context.Context, cmd StartPomodoroCommand) (*pomodoro.Session, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("start_pomodoro: %w", err)
	}

	session, err := h.timers.Start(ctx, cmd.UserID, cmd.Type)
	if err != nil {
		return nil, fmt.Errorf("start_pomodoro: %w", err)
	}
	return session, nil
}

// StopPomodoroCommand contains the data to stop the running session.
type StopPomodoroCommand struct {
	// UserID is the chat-platform identifier of the learner.
	UserID string
}

// Validate validates the command.
func (c StopPomodoroCommand) Validate() error {
	if !learner.UserID(c.UserID).IsValid() {
		return shared.ErrInvalidUserID
	}
	return nil
}

// StopPomodoroHandler handles the StopPomodoroCommand.
type StopPomodoroHandler struct {
	timers TimerManager
}

// NewStopPomodoroHandler creates a new StopPomodoroHandler.
func NewStopPomodoroHandler(timers TimerManager) *StopPomodoroHandler {
	return &StopPomodoroHandler{timers: timers}
}

// Handle stops the running session. A session that already ran its full
// duration comes back Completed rather than Cancelled. Returns
// shared.ErrNotFound when nothing is running.
func (h *StopPomodoroHandler) Handle(ctx context.Context, cmd StopPomodoroCommand) (*pomodoro.Session, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("stop_pomodoro: %w", err)
	}

	session, err := h.timers.Stop(ctx, cmd.UserID)
	if err != nil {
		return nil, fmt.Errorf("stop_pomodoro: %w", err)
	}
	return session, nil
}
