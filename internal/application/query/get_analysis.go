package query

import (
	"context"
	"fmt"

	"github.com/studyhub/comptia-study-hub/internal/domain/learner"
	"github.com/studyhub/comptia-study-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET ANALYSIS QUERY
// Backs the /analysis card: weak spots to drill, strengths to keep the
// learner's confidence up, and the raw material for AI recommendations.
// ══════════════════════════════════════════════════════════════════════════════

// GetAnalysisQuery identifies whose analysis to compute.
type GetAnalysisQuery struct {
	// UserID is the chat-platform identifier of the learner.
	UserID string

	// Limit caps each list. Zero means the default of 3.
	Limit int
}

// AnalysisView is the analysis read model.
type AnalysisView struct {
	// UserID is the learner's identifier.
	UserID string

	// Track is the selected certification track.
	Track string

	// TotalQuestions is the sample size behind the analysis.
	TotalQuestions int

	// WeakSpots are topics ordered worst-first.
	WeakSpots []learner.TopicScore

	// Strengths are topics ordered best-first.
	Strengths []learner.TopicScore

	// NextDifficulty is the adaptive engine's current recommendation.
	NextDifficulty learner.Difficulty
}

// HasData reports whether there is anything to analyse yet.
func (v *AnalysisView) HasData() bool {
	return len(v.WeakSpots) > 0 || len(v.Strengths) > 0
}

// WeakTopicNames returns the weak topic labels for prompt construction.
func (v *AnalysisView) WeakTopicNames() []string {
	names := make([]string, 0, len(v.WeakSpots))
	for _, score := range v.WeakSpots {
		names = append(names, score.Topic.String())
	}
	return names
}

// GetAnalysisHandler handles the GetAnalysisQuery.
type GetAnalysisHandler struct {
	repo   learner.Repository
	engine *learner.Engine
}

// NewGetAnalysisHandler creates a new GetAnalysisHandler.
func NewGetAnalysisHandler(repo learner.Repository, engine *learner.Engine) *GetAnalysisHandler {
	if engine == nil {
		engine = learner.NewEngine(learner.DefaultEngineConfig())
	}
	return &GetAnalysisHandler{repo: repo, engine: engine}
}

// Handle executes the query.
func (h *GetAnalysisHandler) Handle(ctx context.Context, q GetAnalysisQuery) (*AnalysisView, error) {
	if !learner.UserID(q.UserID).IsValid() {
		return nil, fmt.Errorf("get_analysis: %w", shared.ErrInvalidUserID)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 3
	}

	progress, err := h.repo.GetOrCreate(ctx, learner.UserID(q.UserID))
	if err != nil {
		return nil, fmt.Errorf("get_analysis: %w", err)
	}

	return &AnalysisView{
		UserID:         q.UserID,
		Track:          progress.SelectedTrack.String(),
		TotalQuestions: progress.TotalQuestions,
		WeakSpots:      h.engine.WeakSpots(progress, limit),
		Strengths:      h.engine.Strengths(progress, limit),
		NextDifficulty: h.engine.NextDifficulty(progress),
	}, nil
}
