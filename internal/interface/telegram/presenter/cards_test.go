package presenter

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/comptia-study-hub/internal/application/query"
	"github.com/studyhub/comptia-study-hub/internal/domain/learner"
	"github.com/studyhub/comptia-study-hub/internal/domain/pomodoro"
	"github.com/studyhub/comptia-study-hub/internal/infrastructure/external/openai"
)

func TestStatsCard_NewUserPromptsTrackSelection(t *testing.T) {
	p := NewCardPresenter()

	view := p.StatsCard(&query.StatisticsView{
		UserID:            "user1",
		NextDifficulty:    learner.DifficultyBeginner,
		AchievementsTotal: 8,
	})

	require.NotNil(t, view)
	assert.Contains(t, view.Text, "/certs")
	assert.NotNil(t, view.Keyboard)
}

func TestStatsCard_EscapesUserContent(t *testing.T) {
	p := NewCardPresenter()

	view := p.StatsCard(&query.StatisticsView{
		UserID:         "user1",
		Track:          "<script>alert(1)</script>",
		NextDifficulty: learner.DifficultyBeginner,
	})

	assert.NotContains(t, view.Text, "<script>")
	assert.Contains(t, view.Text, "&lt;script&gt;")
}

func TestQuizCard_LettersOptionsAndKeyboard(t *testing.T) {
	p := NewCardPresenter()

	view := p.QuizCard("Networking", learner.DifficultyIntermediate, openai.QuizQuestion{
		Question: "Which port does HTTPS use?",
		Options:  []string{"80", "443", "22", "53"},
		Answer:   1,
	})

	assert.Contains(t, view.Text, "<b>A.</b> 80")
	assert.Contains(t, view.Text, "<b>B.</b> 443")
	assert.Contains(t, view.Text, "<b>D.</b> 53")
	// The answer is never leaked into the card
	assert.NotContains(t, view.Text, "correct")

	require.NotNil(t, view.Keyboard)
	assert.Len(t, view.Keyboard.Rows, 4)
	assert.Equal(t, "quiz:1", view.Keyboard.Rows[1][0].CallbackData)
}

func TestQuizResultCard_WrongAnswerShowsCorrectLetter(t *testing.T) {
	p := NewCardPresenter()
	q := openai.QuizQuestion{
		Question:    "Which port does HTTPS use?",
		Options:     []string{"80", "443", "22"},
		Answer:      1,
		Explanation: "HTTPS runs over TLS on port 443.",
	}

	view := p.QuizResultCard(q.Question, q, 0, false, 0, nil)
	assert.Contains(t, view.Text, "❌")
	assert.Contains(t, view.Text, "The answer was <b>B</b>")
	assert.Contains(t, view.Text, "HTTPS runs over TLS")
}

func TestSessionFinishedNote(t *testing.T) {
	study := SessionFinishedNote("study", 25)
	assert.Contains(t, study, "25m")
	assert.Contains(t, study, "Time's up")

	brk := SessionFinishedNote("short_break", 5)
	assert.Contains(t, brk, "Break's over")
	assert.NotContains(t, brk, "5m")
}

func TestHelperFormatting(t *testing.T) {
	assert.Equal(t, "🥇", medal(0))
	assert.Equal(t, "🥉", medal(2))
	assert.Equal(t, "4.", medal(3))

	assert.Equal(t, "07:30", formatDuration(7*time.Minute+30*time.Second))

	assert.Equal(t, "day", pluralDays(1))
	assert.Equal(t, "days", pluralDays(3))
}

func TestDisplayUser_TruncatesAndEscapes(t *testing.T) {
	assert.Equal(t, "123456", displayUser("123456"))
	assert.Equal(t, "123456789012…", displayUser("12345678901234567890"))
	assert.Equal(t, "a&lt;b", displayUser("a<b"))
}

func TestProgressBar(t *testing.T) {
	bar := progressBar(5*time.Minute, 25*time.Minute)
	assert.Equal(t, 2, strings.Count(bar, "🟩"))
	assert.Equal(t, 8, strings.Count(bar, "⬜"))

	full := progressBar(30*time.Minute, 25*time.Minute)
	assert.Equal(t, 10, strings.Count(full, "🟩"))

	assert.Empty(t, progressBar(time.Minute, 0))
}

func TestPomodoroStatusCard_ActiveSession(t *testing.T) {
	p := NewCardPresenter()
	start := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	session := pomodoro.NewSession("s1", "user1", pomodoro.TypeStudy, start, 25*time.Minute)

	view := p.PomodoroStatusCard(&query.PomodoroStatusView{
		Active:    true,
		Session:   session,
		Elapsed:   10 * time.Minute,
		Remaining: 15 * time.Minute,
	})

	assert.Contains(t, view.Text, "10:00")
	assert.Contains(t, view.Text, "15:00")
	require.NotNil(t, view.Keyboard)
	assert.Equal(t, "pomodoro:stop", view.Keyboard.Rows[0][0].CallbackData)
}

func TestPomodoroStatusCard_Inactive(t *testing.T) {
	p := NewCardPresenter()

	view := p.PomodoroStatusCard(&query.PomodoroStatusView{})
	require.NotNil(t, view.Keyboard)
	assert.Equal(t, "pomodoro:study", view.Keyboard.Rows[0][0].CallbackData)
}

func TestQuoteText_DeterministicPerDay(t *testing.T) {
	day := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	morning := QuoteText(day)
	evening := QuoteText(day.Add(10 * time.Hour))
	assert.Equal(t, morning, evening)

	nextDay := QuoteText(day.AddDate(0, 0, 1))
	assert.NotEqual(t, morning, nextDay)
}
