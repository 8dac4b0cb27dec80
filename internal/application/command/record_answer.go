// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"

	"github.com/studyhub/comptia-study-hub/internal/domain/learner"
	"github.com/studyhub/comptia-study-hub/internal/domain/shared"
	"github.com/studyhub/comptia-study-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD ANSWER COMMAND
// Records one practice answer: counters, topic statistics, daily streak,
// achievement evaluation. This is the hottest write path in the system -
// every /quiz answer goes through it.
// ══════════════════════════════════════════════════════════════════════════════

// RecordAnswerCommand contains the data to record a practice answer.
type RecordAnswerCommand struct {
	// UserID is the chat-platform identifier of the learner.
	UserID string

	// Topic is the certification domain the question belonged to.
	Topic string

	// IsCorrect reports whether the answer was correct.
	IsCorrect bool

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RecordAnswerCommand) Validate() error {
	if !learner.UserID(c.UserID).IsValid() {
		return shared.ErrInvalidUserID
	}
	if !learner.Topic(c.Topic).IsValid() {
		return shared.ErrInvalidTopic
	}
	return nil
}

// RecordAnswerResult contains the outcome of recording an answer.
type RecordAnswerResult struct {
	// Progress is the snapshot after the answer was applied.
	Progress *learner.Progress

	// Streak describes what happened to the daily streak.
	Streak learner.StreakChange

	// NewAchievements lists achievements unlocked by this answer.
	NewAchievements []learner.AchievementDefinition
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RecordAnswerHandler handles the RecordAnswerCommand.
type RecordAnswerHandler struct {
	repo      learner.Repository
	evaluator *learner.Evaluator
	publisher shared.EventPublisher
	clock     timeutil.Clock
}

// NewRecordAnswerHandler creates a new RecordAnswerHandler.
func NewRecordAnswerHandler(
	repo learner.Repository,
	evaluator *learner.Evaluator,
	publisher shared.EventPublisher,
	clock timeutil.Clock,
) *RecordAnswerHandler {
	if evaluator == nil {
		evaluator = learner.NewEvaluator()
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &RecordAnswerHandler{
		repo:      repo,
		evaluator: evaluator,
		publisher: publisher,
		clock:     clock,
	}
}

// Handle executes the record answer command.
func (h *RecordAnswerHandler) Handle(ctx context.Context, cmd RecordAnswerCommand) (*RecordAnswerResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("record_answer: %w", err)
	}

	now := h.clock.Now()
	userID := learner.UserID(cmd.UserID)

	record, err := h.repo.RecordAnswer(ctx, userID, learner.Topic(cmd.Topic), cmd.IsCorrect, now)
	if err != nil {
		return nil, fmt.Errorf("record_answer: %w", err)
	}

	result := &RecordAnswerResult{
		Progress: record.Progress,
		Streak:   record.Streak,
	}

	answered := shared.NewAnswerRecordedEvent(
		cmd.UserID, cmd.Topic, cmd.IsCorrect,
		record.Progress.TotalQuestions, record.Progress.CorrectAnswers,
	)
	if cmd.CorrelationID != "" {
		answered.BaseEvent = answered.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	publishEvent(h.publisher, answered)

	switch {
	case record.Streak.Broken:
		publishEvent(h.publisher, shared.NewStreakBrokenEvent(
			cmd.UserID, record.Streak.PreviousStreak, record.Streak.DaysMissed,
		))
	case record.Streak.Updated:
		publishEvent(h.publisher, shared.NewStreakUpdatedEvent(cmd.UserID, record.Progress.StudyStreak))
	}

	unlocked, err := applyAchievements(ctx, h.repo, h.evaluator, h.publisher, userID, record.Progress, now, cmd.CorrelationID)
	if err != nil {
		return nil, fmt.Errorf("record_answer: %w", err)
	}
	result.NewAchievements = unlocked

	// Re-read so the returned snapshot includes achievement points
	if len(unlocked) > 0 {
		if fresh, err := h.repo.Snapshot(ctx, userID); err == nil {
			result.Progress = fresh
		}
	}

	return result, nil
}
