// Package eventhandler содержит обработчики доменных событий.
package eventhandler

import (
	"context"
	"fmt"
	"time"

	"github.com/studyhub/comptia-study-hub/internal/domain/pomodoro"
	"github.com/studyhub/comptia-study-hub/internal/domain/shared"
	"github.com/studyhub/comptia-study-hub/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON SESSION FINISHED HANDLER
// Начисляет учебные минуты, когда Pomodoro-сессия заканчивается.
//
// Подписка на события вместо прямого вызова из таймера гарантирует
// ровно одно начисление на сессию: событие завершения публикуется один
// раз независимо от того, кто заметил истечение - команда /stoppomodoro,
// ленивая проверка статуса или фоновый свип.
//
// Перерывы не начисляются: к прогрессу идёт только фокусное время.
// ═══════════════════════════════════════════════════════════════════════════

// StudyTimeCrediter credits completed study minutes to a learner.
type StudyTimeCrediter interface {
	CreditStudyTime(ctx context.Context, userID string, minutes int) error
}

// OnSessionFinishedHandler обрабатывает события завершения сессий.
type OnSessionFinishedHandler struct {
	crediter StudyTimeCrediter
	log      *logger.Logger

	// Timeout на одно начисление; события приходят без контекста вызова.
	creditTimeout time.Duration
}

// NewOnSessionFinishedHandler создаёт обработчик начисления времени.
func NewOnSessionFinishedHandler(crediter StudyTimeCrediter, log *logger.Logger) *OnSessionFinishedHandler {
	if log == nil {
		log = logger.Default()
	}
	return &OnSessionFinishedHandler{
		crediter:      crediter,
		log:           log.With(logger.Component("on_session_finished")),
		creditTimeout: 5 * time.Second,
	}
}

// Register подписывает обработчик на события завершения и отмены сессий.
func (h *OnSessionFinishedHandler) Register(subscriber shared.EventSubscriber) error {
	if err := subscriber.Subscribe(shared.EventSessionCompleted, h.handleCompleted); err != nil {
		return fmt.Errorf("subscribe session completed: %w", err)
	}
	if err := subscriber.Subscribe(shared.EventSessionCancelled, h.handleCancelled); err != nil {
		return fmt.Errorf("subscribe session cancelled: %w", err)
	}
	return nil
}

// handleCompleted начисляет полную длительность завершённой учебной сессии.
func (h *OnSessionFinishedHandler) handleCompleted(event shared.Event) error {
	completed, ok := event.(shared.SessionCompletedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %s", event.EventType())
	}

	return h.credit(completed.UserID, completed.SessionID, completed.SessionType, completed.DurationMinutes)
}

// handleCancelled начисляет фактически прошедшее время досрочно
// остановленной сессии. Меньше минуты - нечего начислять.
func (h *OnSessionFinishedHandler) handleCancelled(event shared.Event) error {
	cancelled, ok := event.(shared.SessionCancelledEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %s", event.EventType())
	}

	return h.credit(cancelled.UserID, cancelled.SessionID, cancelled.SessionType, cancelled.ElapsedMinutes)
}

func (h *OnSessionFinishedHandler) credit(userID, sessionID, sessionType string, minutes int) error {
	if pomodoro.SessionType(sessionType).IsBreak() {
		return nil
	}
	if minutes <= 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.creditTimeout)
	defer cancel()

	if err := h.crediter.CreditStudyTime(ctx, userID, minutes); err != nil {
		h.log.Error("failed to credit study time",
			logger.UserID(userID),
			logger.SessionID(sessionID),
			logger.Int("minutes", minutes),
			logger.Err(err),
		)
		return err
	}

	h.log.Info("study time credited",
		logger.UserID(userID),
		logger.SessionID(sessionID),
		logger.Int("minutes", minutes),
	)
	return nil
}
