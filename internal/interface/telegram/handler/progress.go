package handler

import (
	"context"
	"strings"

	"github.com/studyhub/comptia-study-hub/internal/application/query"
	"github.com/studyhub/comptia-study-hub/internal/infrastructure/external/openai"
	"github.com/studyhub/comptia-study-hub/internal/interface/telegram/presenter"
	"github.com/studyhub/comptia-study-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS HANDLER
// The read-side commands: /stats, /analysis, /leaderboard.
// ══════════════════════════════════════════════════════════════════════════════

// ProgressHandler serves the progress and community cards.
type ProgressHandler struct {
	stats         *query.GetStatisticsHandler
	analysis      *query.GetAnalysisHandler
	leaderboard   *query.GetLeaderboardHandler
	ai            *openai.Client
	cards         *presenter.CardPresenter
	log           *logger.Logger
	weakSpotLimit int
}

// NewProgressHandler creates a new ProgressHandler. weakSpotLimit bounds
// how many weak topics the analysis card lists; zero uses the query default.
func NewProgressHandler(
	stats *query.GetStatisticsHandler,
	analysis *query.GetAnalysisHandler,
	leaderboard *query.GetLeaderboardHandler,
	ai *openai.Client,
	cards *presenter.CardPresenter,
	log *logger.Logger,
	weakSpotLimit int,
) *ProgressHandler {
	if log == nil {
		log = logger.Default()
	}
	return &ProgressHandler{
		stats:         stats,
		analysis:      analysis,
		leaderboard:   leaderboard,
		ai:            ai,
		cards:         cards,
		log:           log,
		weakSpotLimit: weakSpotLimit,
	}
}

// Stats handles /stats.
func (h *ProgressHandler) Stats(ctx context.Context, req Request) (*presenter.View, error) {
	view, err := h.stats.Handle(ctx, query.GetStatisticsQuery{UserID: req.UserID})
	if err != nil {
		return nil, err
	}
	return h.cards.StatsCard(view), nil
}

// Analysis handles /analysis. AI recommendations are best-effort: the
// card renders without them when the AI API is down or unconfigured.
func (h *ProgressHandler) Analysis(ctx context.Context, req Request) (*presenter.View, error) {
	view, err := h.analysis.Handle(ctx, query.GetAnalysisQuery{UserID: req.UserID, Limit: h.weakSpotLimit})
	if err != nil {
		return nil, err
	}

	var recommendations []string
	if view.HasData() && len(view.WeakSpots) > 0 && h.ai.Enabled() {
		raw, err := h.ai.GenerateRecommendations(ctx, view.Track, view.WeakTopicNames())
		if err != nil {
			h.log.Warn("recommendations unavailable",
				logger.String("user_id", req.UserID),
				logger.Err(err),
			)
		} else {
			recommendations = splitRecommendations(raw)
		}
	}

	return h.cards.AnalysisCard(view, recommendations), nil
}

// Leaderboard handles /leaderboard.
func (h *ProgressHandler) Leaderboard(ctx context.Context, req Request) (*presenter.View, error) {
	view, err := h.leaderboard.Handle(ctx, query.GetLeaderboardQuery{})
	if err != nil {
		return nil, err
	}
	return h.cards.LeaderboardCard(view), nil
}

// splitRecommendations turns the AI's bullet list into clean lines.
func splitRecommendations(raw string) []string {
	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-•* ")
		if line != "" {
			out = append(out, line)
		}
	}
	if len(out) > 3 {
		out = out[:3]
	}
	return out
}
