package jobs

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/studyhub/comptia-study-hub/config"
	"github.com/studyhub/comptia-study-hub/internal/domain/learner"
	"github.com/studyhub/comptia-study-hub/internal/domain/shared"
	"github.com/studyhub/comptia-study-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAILY DIGEST JOB
// ══════════════════════════════════════════════════════════════════════════════

// Messenger delivers the digest to a chat.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// DailyDigestConfig contains configuration for the digest job.
type DailyDigestConfig struct {
	// ChatID is the destination chat. Zero disables sending.
	ChatID int64

	// TopN is how many learners each board shows.
	TopN int

	// AccuracyMinQuestions is the entry bar for the accuracy board.
	AccuracyMinQuestions int
}

// DefaultDailyDigestConfig returns sensible defaults.
func DefaultDailyDigestConfig() DailyDigestConfig {
	return DailyDigestConfig{
		TopN:                 5,
		AccuracyMinQuestions: 10,
	}
}

// DailyDigestJob posts a community summary: study champions by score,
// accuracy masters and study-time legends, plus the quote of the day.
type DailyDigestJob struct {
	repo      learner.Repository
	messenger Messenger
	publisher shared.EventPublisher
	log       *logger.Logger
	config    DailyDigestConfig
}

// NewDailyDigestJob creates the digest job.
func NewDailyDigestJob(
	repo learner.Repository,
	messenger Messenger,
	publisher shared.EventPublisher,
	log *logger.Logger,
	cfg DailyDigestConfig,
) *DailyDigestJob {
	if log == nil {
		log = logger.Default()
	}
	if cfg.TopN <= 0 {
		cfg.TopN = 5
	}
	if cfg.AccuracyMinQuestions <= 0 {
		cfg.AccuracyMinQuestions = 10
	}

	return &DailyDigestJob{
		repo:      repo,
		messenger: messenger,
		publisher: publisher,
		log:       log.With(logger.Component("daily_digest")),
		config:    cfg,
	}
}

// Name implements scheduler.Job.
func (j *DailyDigestJob) Name() string {
	return "daily_digest"
}

// Description implements scheduler.Job.
func (j *DailyDigestJob) Description() string {
	return "Posts the daily community leaderboard digest"
}

// Run implements scheduler.Job.
func (j *DailyDigestJob) Run(ctx context.Context) error {
	if j.config.ChatID == 0 || j.messenger == nil {
		j.log.Debug("digest delivery disabled")
		return nil
	}

	all, err := j.repo.All(ctx)
	if err != nil {
		return fmt.Errorf("load progress records: %w", err)
	}
	if len(all) == 0 {
		j.log.Info("no learners yet, skipping digest")
		return nil
	}

	message := j.buildMessage(all)
	if err := j.messenger.SendMessage(ctx, j.config.ChatID, message); err != nil {
		return fmt.Errorf("send digest: %w", err)
	}

	if j.publisher != nil {
		event := shared.NewBaseEvent(shared.EventDailyDigestSent, "system")
		_ = j.publisher.Publish(digestSentEvent{BaseEvent: event, Learners: len(all)})
	}

	j.log.Info("daily digest sent", logger.Int("learners", len(all)))
	return nil
}

// digestSentEvent carries the digest completion marker.
type digestSentEvent struct {
	shared.BaseEvent
	Learners int `json:"learners"`
}

// Payload implements shared.Event.
func (e digestSentEvent) Payload() map[string]interface{} {
	return map[string]interface{}{"learners": e.Learners}
}

func (j *DailyDigestJob) buildMessage(all []*learner.Progress) string {
	var sb strings.Builder

	sb.WriteString("📊 *Daily Study Digest*\n")
	sb.WriteString(fmt.Sprintf("_%s_\n\n", time.Now().UTC().Format("Monday, 02 Jan 2006")))

	// Study champions: top study score
	champions := topBy(all, j.config.TopN, func(a, b *learner.Progress) bool {
		if a.StudyScore != b.StudyScore {
			return a.StudyScore > b.StudyScore
		}
		return a.UserID < b.UserID
	}, func(p *learner.Progress) bool { return p.StudyScore > 0 })

	if len(champions) > 0 {
		sb.WriteString("🏆 *Study Champions*\n")
		for i, p := range champions {
			sb.WriteString(fmt.Sprintf("%s %s — %d pts\n", medal(i), p.UserID, p.StudyScore))
		}
		sb.WriteString("\n")
	}

	// Accuracy masters: best accuracy with a minimum sample
	masters := topBy(all, j.config.TopN, func(a, b *learner.Progress) bool {
		if a.Accuracy() != b.Accuracy() {
			return a.Accuracy() > b.Accuracy()
		}
		return a.TotalQuestions > b.TotalQuestions
	}, func(p *learner.Progress) bool { return p.TotalQuestions >= j.config.AccuracyMinQuestions })

	if len(masters) > 0 {
		sb.WriteString("🎯 *Accuracy Masters*\n")
		for i, p := range masters {
			sb.WriteString(fmt.Sprintf("%s %s — %.0f%% (%d questions)\n",
				medal(i), p.UserID, p.Accuracy()*100, p.TotalQuestions))
		}
		sb.WriteString("\n")
	}

	// Study legends: most accumulated study time
	legends := topBy(all, j.config.TopN, func(a, b *learner.Progress) bool {
		if a.StudyTimeMinutes != b.StudyTimeMinutes {
			return a.StudyTimeMinutes > b.StudyTimeMinutes
		}
		return a.UserID < b.UserID
	}, func(p *learner.Progress) bool { return p.StudyTimeMinutes > 0 })

	if len(legends) > 0 {
		sb.WriteString("⏱ *Study Legends*\n")
		for i, p := range legends {
			sb.WriteString(fmt.Sprintf("%s %s — %dh %dm\n",
				medal(i), p.UserID, p.StudyTimeMinutes/60, p.StudyTimeMinutes%60))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("─────────────────\n")
	sb.WriteString(fmt.Sprintf("_%s_", quoteOfTheDay()))

	return sb.String()
}

// topBy filters and sorts records, returning at most n.
func topBy(all []*learner.Progress, n int, less func(a, b *learner.Progress) bool, keep func(*learner.Progress) bool) []*learner.Progress {
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
	return filtered
}

func medal(rank int) string {
	switch rank {
	case 0:
		return "🥇"
	case 1:
		return "🥈"
	case 2:
		return "🥉"
	default:
		return fmt.Sprintf("%d.", rank+1)
	}
}

// quoteOfTheDay picks a deterministic quote so the whole day shows the same one.
func quoteOfTheDay() string {
	quotes := config.CyberQuotes
	return quotes[time.Now().UTC().YearDay()%len(quotes)]
}
