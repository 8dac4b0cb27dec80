package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/studyhub/comptia-study-hub/internal/application/command"
	"github.com/studyhub/comptia-study-hub/internal/application/query"
	"github.com/studyhub/comptia-study-hub/internal/domain/pomodoro"
	"github.com/studyhub/comptia-study-hub/internal/domain/shared"
	"github.com/studyhub/comptia-study-hub/internal/interface/telegram/presenter"
	"github.com/studyhub/comptia-study-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// POMODORO HANDLER
// /pomodoro starts a timer or shows the running one; /stoppomodoro
// stops it. Buttons on the status card mirror both commands.
// ══════════════════════════════════════════════════════════════════════════════

// PomodoroHandler serves the focus timer commands.
type PomodoroHandler struct {
	start  *command.StartPomodoroHandler
	stop   *command.StopPomodoroHandler
	status *query.GetPomodoroStatusHandler
	cards  *presenter.CardPresenter
	clock  timeutil.Clock
}

// NewPomodoroHandler creates a new PomodoroHandler.
func NewPomodoroHandler(
	start *command.StartPomodoroHandler,
	stop *command.StopPomodoroHandler,
	status *query.GetPomodoroStatusHandler,
	cards *presenter.CardPresenter,
	clock timeutil.Clock,
) *PomodoroHandler {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &PomodoroHandler{
		start:  start,
		stop:   stop,
		status: status,
		cards:  cards,
		clock:  clock,
	}
}

// Pomodoro handles /pomodoro [study|short_break|long_break]. Without an
// argument it shows the running timer, or the type picker when idle.
func (h *PomodoroHandler) Pomodoro(ctx context.Context, req Request) (*presenter.View, error) {
	args := strings.TrimSpace(req.Args)
	if args == "" {
		view, err := h.status.Handle(ctx, query.GetPomodoroStatusQuery{UserID: req.UserID})
		if err != nil {
			return nil, err
		}
		return h.cards.PomodoroStatusCard(view), nil
	}

	sessionType, ok := parseSessionType(args)
	if !ok {
		return &presenter.View{
			Text: "🤔 I know <code>study</code>, <code>short_break</code> and <code>long_break</code>. Which one?",
		}, nil
	}

	return h.startSession(ctx, req.UserID, sessionType)
}

// StopPomodoro handles /stoppomodoro.
func (h *PomodoroHandler) StopPomodoro(ctx context.Context, req Request) (*presenter.View, error) {
	session, err := h.stop.Handle(ctx, command.StopPomodoroCommand{UserID: req.UserID})
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return &presenter.View{
				Text: "🍅 No timer running. Start one with /pomodoro.",
			}, nil
		}
		return nil, err
	}
	return h.cards.PomodoroStoppedCard(session, h.clock.Now()), nil
}

// Callback handles "pomodoro:<type>" and "pomodoro:stop" button presses.
func (h *PomodoroHandler) Callback(ctx context.Context, req CallbackRequest) (*presenter.View, error) {
	action := strings.TrimPrefix(req.Data, "pomodoro:")

	if action == "stop" {
		return h.StopPomodoro(ctx, Request{UserID: req.UserID, ChatID: req.ChatID})
	}

	sessionType, ok := parseSessionType(action)
	if !ok {
		return nil, nil
	}
	return h.startSession(ctx, req.UserID, sessionType)
}

func (h *PomodoroHandler) startSession(ctx context.Context, userID string, t pomodoro.SessionType) (*presenter.View, error) {
	session, err := h.start.Handle(ctx, command.StartPomodoroCommand{
		UserID: userID,
		Type:   t,
	})
	if err != nil {
		if errors.Is(err, shared.ErrConflict) {
			view, statusErr := h.status.Handle(ctx, query.GetPomodoroStatusQuery{UserID: userID})
			if statusErr != nil {
				return nil, statusErr
			}
			card := h.cards.PomodoroStatusCard(view)
			card.Text = "⚠️ You already have a timer running.\n\n" + card.Text
			return card, nil
		}
		return nil, err
	}

	return h.cards.PomodoroStartedCard(session), nil
}

// parseSessionType accepts the command argument forms of a session type.
func parseSessionType(s string) (pomodoro.SessionType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "study", "work", "focus":
		return pomodoro.TypeStudy, true
	case "short_break", "short", "break":
		return pomodoro.TypeShortBreak, true
	case "long_break", "long":
		return pomodoro.TypeLongBreak, true
	default:
		return "", false
	}
}
