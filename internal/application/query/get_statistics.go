// Package query contains read operations (CQRS - Queries).
// Queries never mutate state; they compose snapshots from the progress
// store with pure computations from the domain layer.
package query

import (
	"context"
	"fmt"

	"github.com/studyhub/comptia-study-hub/internal/domain/learner"
	"github.com/studyhub/comptia-study-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET STATISTICS QUERY
// Backs the /stats card: the learner's full progress picture.
// ══════════════════════════════════════════════════════════════════════════════

// GetStatisticsQuery identifies whose statistics to fetch.
type GetStatisticsQuery struct {
	// UserID is the chat-platform identifier of the learner.
	UserID string
}

// StatisticsView is the statistics read model.
type StatisticsView struct {
	// UserID is the learner's identifier.
	UserID string

	// Track is the selected certification track (empty until chosen).
	Track string

	// StudyStreak is the current consecutive-day streak.
	StudyStreak int

	// TotalQuestions and CorrectAnswers are lifetime counters.
	TotalQuestions int
	CorrectAnswers int

	// Accuracy is the overall share of correct answers (0.0 - 1.0).
	Accuracy float64

	// StudyScore is the accumulated point total.
	StudyScore int

	// StudyTimeMinutes is accumulated focused study time.
	StudyTimeMinutes int

	// NextDifficulty is what the adaptive engine would serve next.
	NextDifficulty learner.Difficulty

	// WeakSpots are the learner's weakest topics (up to 3).
	WeakSpots []learner.TopicScore

	// Achievements are earned achievements in unlock order.
	Achievements []learner.UnlockedAchievement

	// AchievementsTotal is the catalog size, for "5 of 8" rendering.
	AchievementsTotal int
}

// GetStatisticsHandler handles the GetStatisticsQuery.
type GetStatisticsHandler struct {
	repo   learner.Repository
	engine *learner.Engine
}

// NewGetStatisticsHandler creates a new GetStatisticsHandler.
func NewGetStatisticsHandler(repo learner.Repository, engine *learner.Engine) *GetStatisticsHandler {
	if engine == nil {
		engine = learner.NewEngine(learner.DefaultEngineConfig())
	}
	return &GetStatisticsHandler{repo: repo, engine: engine}
}

// Handle executes the query. Unknown users get a zero-value view rather
// than an error: the bot treats everyone as a learner from first contact.
func (h *GetStatisticsHandler) Handle(ctx context.Context, q GetStatisticsQuery) (*StatisticsView, error) {
	if !learner.UserID(q.UserID).IsValid() {
		return nil, fmt.Errorf("get_statistics: %w", shared.ErrInvalidUserID)
	}

	progress, err := h.repo.GetOrCreate(ctx, learner.UserID(q.UserID))
	if err != nil {
		return nil, fmt.Errorf("get_statistics: %w", err)
	}

	return &StatisticsView{
		UserID:            q.UserID,
		Track:             progress.SelectedTrack.String(),
		StudyStreak:       progress.StudyStreak,
		TotalQuestions:    progress.TotalQuestions,
		CorrectAnswers:    progress.CorrectAnswers,
		Accuracy:          progress.Accuracy(),
		StudyScore:        progress.StudyScore,
		StudyTimeMinutes:  progress.StudyTimeMinutes,
		NextDifficulty:    h.engine.NextDifficulty(progress),
		WeakSpots:         h.engine.WeakSpots(progress, 3),
		Achievements:      learner.Unlocked(progress),
		AchievementsTotal: len(learner.Definitions()),
	}, nil
}
