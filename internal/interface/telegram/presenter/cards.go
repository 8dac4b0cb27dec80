package presenter

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/studyhub/comptia-study-hub/config"
	"github.com/studyhub/comptia-study-hub/internal/application/query"
	"github.com/studyhub/comptia-study-hub/internal/domain/learner"
	"github.com/studyhub/comptia-study-hub/internal/domain/pomodoro"
	"github.com/studyhub/comptia-study-hub/internal/infrastructure/external/openai"
	"github.com/studyhub/comptia-study-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// VIEW
// ══════════════════════════════════════════════════════════════════════════════

// View is a renderable message: HTML text plus an optional keyboard.
type View struct {
	// Text is the message text with HTML markup.
	Text string

	// Keyboard is the attached inline keyboard, nil for none.
	Keyboard *InlineKeyboard
}

// ══════════════════════════════════════════════════════════════════════════════
// CARD PRESENTER
// Formats progress data into the bot's text cards.
// ══════════════════════════════════════════════════════════════════════════════

// CardPresenter renders the study cards.
type CardPresenter struct {
	keyboards *KeyboardBuilder
}

// NewCardPresenter creates a new CardPresenter.
func NewCardPresenter() *CardPresenter {
	return &CardPresenter{keyboards: NewKeyboardBuilder()}
}

// ─────────────────────────────────────────────────────────────────────────────
// STATS CARD (/stats)
// ─────────────────────────────────────────────────────────────────────────────

// StatsCard renders the learner's progress card.
func (p *CardPresenter) StatsCard(view *query.StatisticsView) *View {
	var sb strings.Builder

	sb.WriteString("📊 <b>Your Study Progress</b>\n\n")

	if view.Track != "" {
		sb.WriteString(fmt.Sprintf("🎯 Track: <b>%s</b>\n", html.EscapeString(view.Track)))
	} else {
		sb.WriteString("🎯 Track: <i>not selected - use /certs</i>\n")
	}

	sb.WriteString(fmt.Sprintf("🔥 Streak: <b>%d</b> %s\n", view.StudyStreak, pluralDays(view.StudyStreak)))
	sb.WriteString(fmt.Sprintf("⭐ Score: <b>%d</b> points\n", view.StudyScore))
	sb.WriteString(fmt.Sprintf("⏱ Study time: <b>%s</b>\n\n", timeutil.FormatMinutes(view.StudyTimeMinutes)))

	if view.TotalQuestions > 0 {
		sb.WriteString(fmt.Sprintf("❓ Questions: <b>%d</b> answered, <b>%.0f%%</b> accuracy\n",
			view.TotalQuestions, view.Accuracy*100))
	} else {
		sb.WriteString("❓ Questions: <i>none yet - try /quiz</i>\n")
	}
	sb.WriteString(fmt.Sprintf("📈 Next difficulty: <b>%s</b>\n", view.NextDifficulty))

	if len(view.WeakSpots) > 0 {
		sb.WriteString("\n🎯 <b>Focus areas</b>\n")
		for _, spot := range view.WeakSpots {
			sb.WriteString(fmt.Sprintf("• %s - %.0f%% (%d/%d)\n",
				html.EscapeString(spot.Topic.String()), spot.Accuracy*100, spot.Correct, spot.Attempts))
		}
	}

	sb.WriteString(fmt.Sprintf("\n🏅 Achievements: <b>%d of %d</b>\n",
		len(view.Achievements), view.AchievementsTotal))
	for _, a := range sortedAchievements(view.Achievements) {
		sb.WriteString(fmt.Sprintf("%s %s\n", a.Definition.Emoji, html.EscapeString(a.Definition.Name)))
	}

	return &View{Text: sb.String(), Keyboard: p.keyboards.StatsKeyboard()}
}

// ─────────────────────────────────────────────────────────────────────────────
// ANALYSIS CARD (/analysis)
// ─────────────────────────────────────────────────────────────────────────────

// AnalysisCard renders weak spots, strengths and optional AI advice.
func (p *CardPresenter) AnalysisCard(view *query.AnalysisView, recommendations []string) *View {
	var sb strings.Builder

	sb.WriteString("🔬 <b>Performance Analysis</b>\n\n")

	if !view.HasData() {
		sb.WriteString("Not enough data yet. Answer a few questions with /quiz and come back.")
		return &View{Text: sb.String()}
	}

	sb.WriteString(fmt.Sprintf("Based on <b>%d</b> answered questions.\n\n", view.TotalQuestions))

	if len(view.WeakSpots) > 0 {
		sb.WriteString("📉 <b>Needs work</b>\n")
		for _, spot := range view.WeakSpots {
			sb.WriteString(fmt.Sprintf("• %s - %.0f%%\n",
				html.EscapeString(spot.Topic.String()), spot.Accuracy*100))
		}
		sb.WriteString("\n")
	}

	if len(view.Strengths) > 0 {
		sb.WriteString("📈 <b>Going strong</b>\n")
		for _, spot := range view.Strengths {
			sb.WriteString(fmt.Sprintf("• %s - %.0f%%\n",
				html.EscapeString(spot.Topic.String()), spot.Accuracy*100))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("📊 Recommended difficulty: <b>%s</b>\n", view.NextDifficulty))

	if len(recommendations) > 0 {
		sb.WriteString("\n💡 <b>Study plan</b>\n")
		for _, rec := range recommendations {
			sb.WriteString(fmt.Sprintf("• %s\n", html.EscapeString(rec)))
		}
	}

	return &View{Text: sb.String()}
}

// ─────────────────────────────────────────────────────────────────────────────
// LEADERBOARD CARD (/leaderboard)
// ─────────────────────────────────────────────────────────────────────────────

// LeaderboardCard renders the three community boards.
func (p *CardPresenter) LeaderboardCard(view *query.LeaderboardView) *View {
	var sb strings.Builder

	sb.WriteString("🏆 <b>Community Leaderboard</b>\n\n")

	if view.TotalLearners == 0 {
		sb.WriteString("Nobody on the boards yet. Be the first - /quiz!")
		return &View{Text: sb.String()}
	}

	if len(view.Champions) > 0 {
		sb.WriteString("⭐ <b>Champions</b> (score)\n")
		for i, e := range view.Champions {
			sb.WriteString(fmt.Sprintf("%s %s - %d pts\n", medal(i), displayUser(e.UserID), e.StudyScore))
		}
		sb.WriteString("\n")
	}

	if len(view.AccuracyMasters) > 0 {
		sb.WriteString("🎯 <b>Accuracy Masters</b> (10+ answers)\n")
		for i, e := range view.AccuracyMasters {
			sb.WriteString(fmt.Sprintf("%s %s - %.0f%% of %d\n",
				medal(i), displayUser(e.UserID), e.Accuracy*100, e.TotalQuestions))
		}
		sb.WriteString("\n")
	}

	if len(view.StudyLegends) > 0 {
		sb.WriteString("⏱ <b>Study Legends</b> (focus time)\n")
		for i, e := range view.StudyLegends {
			sb.WriteString(fmt.Sprintf("%s %s - %s\n", medal(i), displayUser(e.UserID), timeutil.FormatMinutes(e.StudyTimeMinutes)))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("<i>%d learners in the community</i>", view.TotalLearners))

	return &View{Text: sb.String()}
}

// ─────────────────────────────────────────────────────────────────────────────
// QUIZ RENDERING (/quiz)
// ─────────────────────────────────────────────────────────────────────────────

// QuizCard renders a question with lettered options.
func (p *CardPresenter) QuizCard(topic string, difficulty learner.Difficulty, q openai.QuizQuestion) *View {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("❓ <b>%s</b> <i>(%s)</i>\n\n", html.EscapeString(topic), difficulty))
	sb.WriteString(html.EscapeString(q.Question))
	sb.WriteString("\n\n")

	labels := []string{"A", "B", "C", "D", "E", "F"}
	for i, opt := range q.Options {
		if i >= len(labels) {
			break
		}
		sb.WriteString(fmt.Sprintf("<b>%s.</b> %s\n", labels[i], html.EscapeString(opt)))
	}

	return &View{
		Text:     sb.String(),
		Keyboard: p.keyboards.QuizAnswersKeyboard(len(q.Options)),
	}
}

// QuizResultCard renders the outcome after an answer callback. The
// original question text stays on top so the edited message still
// reads as a whole.
func (p *CardPresenter) QuizResultCard(questionText string, q openai.QuizQuestion, chosen int, correct bool, streak int, unlocked []learner.AchievementDefinition) *View {
	var sb strings.Builder

	sb.WriteString(questionText)
	sb.WriteString("\n")

	if correct {
		sb.WriteString("✅ <b>Correct!</b>")
	} else {
		labels := []string{"A", "B", "C", "D", "E", "F"}
		answer := ""
		if q.Answer >= 0 && q.Answer < len(labels) {
			answer = labels[q.Answer]
		}
		sb.WriteString(fmt.Sprintf("❌ <b>Not quite.</b> The answer was <b>%s</b>.", answer))
	}

	if q.Explanation != "" {
		sb.WriteString(fmt.Sprintf("\n\n💬 %s", html.EscapeString(q.Explanation)))
	}

	if streak > 1 {
		sb.WriteString(fmt.Sprintf("\n\n🔥 Streak: <b>%d</b> %s", streak, pluralDays(streak)))
	}

	for _, def := range unlocked {
		sb.WriteString(fmt.Sprintf("\n\n🎉 <b>Achievement unlocked:</b> %s %s (+%d pts)",
			def.Emoji, html.EscapeString(def.Name), def.Points))
	}

	return &View{Text: sb.String()}
}

// ─────────────────────────────────────────────────────────────────────────────
// FLASHCARDS (/flashcards)
// ─────────────────────────────────────────────────────────────────────────────

// FlashcardsCard renders a deck with spoiler-hidden backs.
func (p *CardPresenter) FlashcardsCard(topic string, cards []openai.Flashcard) *View {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("🗂 <b>Flashcards: %s</b>\n", html.EscapeString(topic)))
	sb.WriteString("<i>Tap a hidden answer to reveal it.</i>\n\n")

	for i, card := range cards {
		sb.WriteString(fmt.Sprintf("<b>%d.</b> %s\n", i+1, html.EscapeString(card.Front)))
		sb.WriteString(fmt.Sprintf("<tg-spoiler>%s</tg-spoiler>\n\n", html.EscapeString(card.Back)))
	}

	return &View{Text: sb.String()}
}

// ─────────────────────────────────────────────────────────────────────────────
// POMODORO (/pomodoro, /stoppomodoro)
// ─────────────────────────────────────────────────────────────────────────────

// PomodoroStatusCard renders the running-timer view.
func (p *CardPresenter) PomodoroStatusCard(view *query.PomodoroStatusView) *View {
	if !view.Active || view.Session == nil {
		return &View{
			Text: "🍅 <b>Pomodoro</b>\n\nNo timer running. Pick a session:",
			Keyboard: p.keyboards.PomodoroKeyboard(),
		}
	}

	s := view.Session
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🍅 <b>%s session</b>\n\n", sessionTypeLabel(s.Type)))
	sb.WriteString(fmt.Sprintf("⏳ Elapsed: <b>%s</b>\n", formatDuration(view.Elapsed)))
	sb.WriteString(fmt.Sprintf("⏰ Remaining: <b>%s</b>\n", formatDuration(view.Remaining)))
	sb.WriteString(progressBar(view.Elapsed, s.Duration))

	return &View{Text: sb.String(), Keyboard: p.keyboards.StopPomodoroKeyboard()}
}

// PomodoroStartedCard confirms a freshly started session.
func (p *CardPresenter) PomodoroStartedCard(s *pomodoro.Session) *View {
	text := fmt.Sprintf(
		"🍅 <b>%s session started!</b>\n\n⏰ %s on the clock. I'll let you know when time is up.",
		sessionTypeLabel(s.Type), formatDuration(s.Duration),
	)
	return &View{Text: text}
}

// PomodoroStoppedCard reports the outcome of /stoppomodoro.
func (p *CardPresenter) PomodoroStoppedCard(s *pomodoro.Session, at time.Time) *View {
	elapsed := s.ElapsedAt(at)

	var sb strings.Builder
	if s.State == pomodoro.StateCompleted {
		sb.WriteString(fmt.Sprintf("✅ <b>%s session complete!</b>\n\n", sessionTypeLabel(s.Type)))
	} else {
		sb.WriteString(fmt.Sprintf("⏹ <b>%s session stopped.</b>\n\n", sessionTypeLabel(s.Type)))
	}

	minutes := int(elapsed.Minutes())
	if !s.Type.IsBreak() && minutes > 0 {
		sb.WriteString(fmt.Sprintf("⏱ <b>%s</b> of focus time credited.", timeutil.FormatMinutes(minutes)))
	} else {
		sb.WriteString(fmt.Sprintf("⏱ Ran for <b>%s</b>.", formatDuration(elapsed)))
	}

	return &View{Text: sb.String()}
}

// SessionFinishedNote is the push notification for a session that ran
// its full duration. Built from event fields so the bot can render it
// without the session record.
func SessionFinishedNote(sessionType string, minutes int) string {
	if pomodoro.SessionType(sessionType).IsBreak() {
		return "☕ <b>Break's over!</b> Ready for another study session? /pomodoro"
	}
	return fmt.Sprintf(
		"🍅 <b>Time's up!</b> Great focus - <b>%s</b> credited to your study time.\nTake a break: /pomodoro",
		timeutil.FormatMinutes(minutes),
	)
}

// ─────────────────────────────────────────────────────────────────────────────
// SHARED HELPERS
// ─────────────────────────────────────────────────────────────────────────────

// medal returns the rank marker for a board position.
func medal(index int) string {
	switch index {
	case 0:
		return "🥇"
	case 1:
		return "🥈"
	case 2:
		return "🥉"
	default:
		return fmt.Sprintf("%d.", index+1)
	}
}

// displayUser shortens raw chat IDs for board display.
func displayUser(userID string) string {
	escaped := html.EscapeString(userID)
	if len(escaped) > 12 {
		return escaped[:12] + "…"
	}
	return escaped
}

func sessionTypeLabel(t pomodoro.SessionType) string {
	switch t {
	case pomodoro.TypeStudy:
		return "Study"
	case pomodoro.TypeShortBreak:
		return "Short break"
	case pomodoro.TypeLongBreak:
		return "Long break"
	default:
		return string(t)
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d", m, s)
}

// progressBar renders a ten-segment bar for the timer card.
func progressBar(elapsed, total time.Duration) string {
	if total <= 0 {
		return ""
	}
	filled := int(10 * elapsed / total)
	if filled > 10 {
		filled = 10
	}
	return "\n" + strings.Repeat("🟩", filled) + strings.Repeat("⬜", 10-filled)
}

func pluralDays(n int) string {
	if n == 1 {
		return "day"
	}
	return "days"
}

func sortedAchievements(list []learner.UnlockedAchievement) []learner.UnlockedAchievement {
	sorted := make([]learner.UnlockedAchievement, len(list))
	copy(sorted, list)
	sort.Slice(sorted, func(i, k int) bool {
		return sorted[i].UnlockedAt.Before(sorted[k].UnlockedAt)
	})
	return sorted
}

// ══════════════════════════════════════════════════════════════════════════════
// STATIC TEXTS
// ══════════════════════════════════════════════════════════════════════════════

// StartText greets a new or returning learner.
func StartText() string {
	return "👋 <b>Welcome to the CompTIA Study Hub!</b>\n\n" +
		"I help you prepare for CompTIA certifications with adaptive quizzes, " +
		"flashcards, progress tracking and pomodoro focus timers.\n\n" +
		"Start by picking your certification track, then fire off your first quiz."
}

// HelpText lists the command surface.
func HelpText() string {
	return "📖 <b>Commands</b>\n\n" +
		"<b>Learning</b>\n" +
		"/quiz - adaptive practice question\n" +
		"/flashcards [topic] - study cards\n" +
		"/explain &lt;concept&gt; - plain-English explanation\n\n" +
		"<b>Certifications</b>\n" +
		"/certs - browse supported tracks\n" +
		"/selectcert &lt;track&gt; - pick your track\n\n" +
		"<b>Progress</b>\n" +
		"/stats - your progress card\n" +
		"/analysis - weak spots and study plan\n" +
		"/leaderboard - community boards\n\n" +
		"<b>Focus</b>\n" +
		"/pomodoro [study|short_break|long_break] - start or check a timer\n" +
		"/stoppomodoro - stop the running timer\n\n" +
		"<b>Other</b>\n" +
		"/quote - daily cybersecurity quote\n" +
		"/about - about this bot"
}

// AboutText describes the bot.
func AboutText() string {
	return "🤖 <b>CompTIA Study Hub</b>\n\n" +
		"A study companion for A+, Network+, Security+ and CySA+ candidates. " +
		"Questions adapt to your accuracy, weak topics get surfaced, and the " +
		"pomodoro timer keeps your focus honest.\n\n" +
		"<i>Consistency beats intensity. See you on the leaderboard.</i>"
}

// CertsText renders the certification catalog.
func CertsText() string {
	var sb strings.Builder
	sb.WriteString("📚 <b>Supported certifications</b>\n\n")
	for _, key := range config.CertificationKeys {
		cert := config.Certifications[key]
		sb.WriteString(fmt.Sprintf("<b>%s</b> - %s\n<i>%s</i>\n\n",
			cert.Key, html.EscapeString(cert.Name), html.EscapeString(cert.Description)))
	}
	sb.WriteString("Pick one with the buttons below or <code>/selectcert Security+</code>.")
	return sb.String()
}

// QuoteText picks the quote of the day deterministically.
func QuoteText(now time.Time) string {
	quote := config.CyberQuotes[now.YearDay()%len(config.CyberQuotes)]
	return fmt.Sprintf("💭 <i>%s</i>", html.EscapeString(quote))
}
