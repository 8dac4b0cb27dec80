package command

import (
	"context"
	"fmt"

	"github.com/studyhub/comptia-study-hub/internal/domain/learner"
	"github.com/studyhub/comptia-study-hub/internal/domain/shared"
	"github.com/studyhub/comptia-study-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ADD STUDY TIME COMMAND
// Credits focused study minutes to a learner. Invoked when a pomodoro
// study session finishes (completed or stopped early with time on the
// clock). Time-based achievements unlock through this path.
// ══════════════════════════════════════════════════════════════════════════════

// AddStudyTimeCommand contains the data to credit study minutes.
type AddStudyTimeCommand struct {
	// UserID is the chat-platform identifier of the learner.
	UserID string

	// Minutes is the study time to credit. Must be positive.
	Minutes int
}

// Validate validates the command.
func (c AddStudyTimeCommand) Validate() error {
	if !learner.UserID(c.UserID).IsValid() {
		return shared.ErrInvalidUserID
	}
	if c.Minutes <= 0 {
		return shared.ErrNonPositiveTime
	}
	return nil
}

// AddStudyTimeResult contains the outcome of crediting study time.
type AddStudyTimeResult struct {
	// Progress is the snapshot after minutes were credited.
	Progress *learner.Progress

	// NewAchievements lists achievements unlocked by the credit.
	NewAchievements []learner.AchievementDefinition
}

// AddStudyTimeHandler handles the AddStudyTimeCommand.
type AddStudyTimeHandler struct {
	repo      learner.Repository
	evaluator *learner.Evaluator
	publisher shared.EventPublisher
	clock     timeutil.Clock
}

// NewAddStudyTimeHandler creates a new AddStudyTimeHandler.
func NewAddStudyTimeHandler(
	repo learner.Repository,
	evaluator *learner.Evaluator,
	publisher shared.EventPublisher,
	clock timeutil.Clock,
) *AddStudyTimeHandler {
	if evaluator == nil {
		evaluator = learner.NewEvaluator()
	}
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &AddStudyTimeHandler{
		repo:      repo,
		evaluator: evaluator,
		publisher: publisher,
		clock:     clock,
	}
}

// Handle executes the add study time command.
func (h *AddStudyTimeHandler) Handle(ctx context.Context, cmd AddStudyTimeCommand) (*AddStudyTimeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("add_study_time: %w", err)
	}

	now := h.clock.Now()
	userID := learner.UserID(cmd.UserID)

	progress, err := h.repo.AddStudyMinutes(ctx, userID, cmd.Minutes, now)
	if err != nil {
		return nil, fmt.Errorf("add_study_time: %w", err)
	}

	publishEvent(h.publisher, shared.NewStudyTimeAddedEvent(cmd.UserID, cmd.Minutes, progress.StudyTimeMinutes))

	unlocked, err := applyAchievements(ctx, h.repo, h.evaluator, h.publisher, userID, progress, now, "")
	if err != nil {
		return nil, fmt.Errorf("add_study_time: %w", err)
	}

	result := &AddStudyTimeResult{Progress: progress, NewAchievements: unlocked}
	if len(unlocked) > 0 {
		if fresh, err := h.repo.Snapshot(ctx, userID); err == nil {
			result.Progress = fresh
		}
	}

	return result, nil
}

// CreditStudyTime credits minutes without returning a result. This is the
// form the session-finished event handler uses.
func (h *AddStudyTimeHandler) CreditStudyTime(ctx context.Context, userID string, minutes int) error {
	_, err := h.Handle(ctx, AddStudyTimeCommand{UserID: userID, Minutes: minutes})
	return err
}
