package query

import (
	"context"
	"fmt"
	"sort"

	"github.com/studyhub/comptia-study-hub/internal/domain/learner"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET LEADERBOARD QUERY
// Backs /leaderboard and the daily digest: three boards computed from
// progress snapshots. Champions rank by score, masters by accuracy with
// a minimum sample, legends by accumulated study time.
// ══════════════════════════════════════════════════════════════════════════════

// GetLeaderboardQuery contains leaderboard parameters.
type GetLeaderboardQuery struct {
	// TopN is how many entries each board shows. Zero means 5.
	TopN int

	// AccuracyMinQuestions is the entry bar for the accuracy board.
	// Zero means 10.
	AccuracyMinQuestions int
}

// LeaderboardEntry is one row of a board.
type LeaderboardEntry struct {
	// UserID is the learner's identifier.
	UserID string

	// StudyScore is the point total (champions board).
	StudyScore int

	// Accuracy is the overall accuracy (masters board).
	Accuracy float64

	// TotalQuestions is the sample size behind the accuracy.
	TotalQuestions int

	// StudyTimeMinutes is accumulated study time (legends board).
	StudyTimeMinutes int
}

// LeaderboardView is the leaderboard read model.
type LeaderboardView struct {
	// Champions rank by study score, best first.
	Champions []LeaderboardEntry

	// AccuracyMasters rank by accuracy among learners with enough answers.
	AccuracyMasters []LeaderboardEntry

	// StudyLegends rank by accumulated study minutes.
	StudyLegends []LeaderboardEntry

	// TotalLearners is the community size.
	TotalLearners int
}

// GetLeaderboardHandler handles the GetLeaderboardQuery.
type GetLeaderboardHandler struct {
	repo learner.Repository
}

// NewGetLeaderboardHandler creates a new GetLeaderboardHandler.
func NewGetLeaderboardHandler(repo learner.Repository) *GetLeaderboardHandler {
	return &GetLeaderboardHandler{repo: repo}
}

// Handle executes the query.
func (h *GetLeaderboardHandler) Handle(ctx context.Context, q GetLeaderboardQuery) (*LeaderboardView, error) {
	topN := q.TopN
	if topN <= 0 {
		topN = 5
	}
	minQuestions := q.AccuracyMinQuestions
	if minQuestions <= 0 {
		minQuestions = 10
	}

	all, err := h.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("get_leaderboard: %w", err)
	}

	view := &LeaderboardView{TotalLearners: len(all)}

	view.Champions = rankBy(all, topN,
		func(p *learner.Progress) bool { return p.StudyScore > 0 },
		func(a, b *learner.Progress) bool {
			if a.StudyScore != b.StudyScore {
				return a.StudyScore > b.StudyScore
			}
			return a.UserID < b.UserID
		})

	view.AccuracyMasters = rankBy(all, topN,
		func(p *learner.Progress) bool { return p.TotalQuestions >= minQuestions },
		func(a, b *learner.Progress) bool {
			if a.Accuracy() != b.Accuracy() {
				return a.Accuracy() > b.Accuracy()
			}
			if a.TotalQuestions != b.TotalQuestions {
				return a.TotalQuestions > b.TotalQuestions
			}
			return a.UserID < b.UserID
		})

	view.StudyLegends = rankBy(all, topN,
		func(p *learner.Progress) bool { return p.StudyTimeMinutes > 0 },
		func(a, b *learner.Progress) bool {
			if a.StudyTimeMinutes != b.StudyTimeMinutes {
				return a.StudyTimeMinutes > b.StudyTimeMinutes
			}
			return a.UserID < b.UserID
		})

	return view, nil
}

// rankBy filters, sorts and converts progress records into board entries.
func rankBy(all []*learner.Progress, n int, keep func(*learner.Progress) bool, less func(a, b *learner.Progress) bool) []LeaderboardEntry {
	filtered := make([]*learner.Progress, 0, len(all))
	for _, p := range all {
		if keep(p) {
			filtered = append(filtered, p)
		}
	}

	sort.Slice(filtered, func(i, k int) bool {
		return less(filtered[i], filtered[k])
	})

	if len(filtered) > n {
		filtered = filtered[:n]
	}

	entries := make([]LeaderboardEntry, 0, len(filtered))
	for _, p := range filtered {
		entries = append(entries, LeaderboardEntry{
			UserID:           p.UserID.String(),
			StudyScore:       p.StudyScore,
			Accuracy:         p.Accuracy(),
			TotalQuestions:   p.TotalQuestions,
			StudyTimeMinutes: p.StudyTimeMinutes,
		})
	}
	return entries
}
