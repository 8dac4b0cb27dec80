package learner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestProgress(t *testing.T) *Progress {
	t.Helper()
	p, err := NewProgress("user1", day0)
	require.NoError(t, err)
	return p
}

func TestNewProgress(t *testing.T) {
	p := newTestProgress(t)

	assert.Equal(t, UserID("user1"), p.UserID)
	assert.True(t, p.SelectedTrack.IsZero())
	assert.Equal(t, 0, p.StudyStreak)
	assert.NotNil(t, p.TopicStats)
	assert.NotNil(t, p.Achievements)
	assert.Equal(t, day0, p.CreatedAt)
}

func TestNewProgress_EmptyUserID(t *testing.T) {
	_, err := NewProgress("   ", day0)
	assert.ErrorIs(t, err, ErrEmptyUserID)
}

func TestProgress_RecordAnswer(t *testing.T) {
	p := newTestProgress(t)

	change, err := p.RecordAnswer("Networking", true, day0)
	require.NoError(t, err)
	assert.True(t, change.Updated)
	assert.Equal(t, 1, p.TotalQuestions)
	assert.Equal(t, 1, p.CorrectAnswers)
	assert.Equal(t, CorrectAnswerPoints, p.StudyScore)
	assert.Equal(t, 1, p.StudyStreak)
	assert.Equal(t, TopicStat{Attempts: 1, Correct: 1}, p.TopicStats["Networking"])

	change, err = p.RecordAnswer("Networking", false, day0.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, change.Updated)
	assert.Equal(t, 2, p.TotalQuestions)
	assert.Equal(t, 1, p.CorrectAnswers)
	// Wrong answers score nothing
	assert.Equal(t, CorrectAnswerPoints, p.StudyScore)
	assert.Equal(t, TopicStat{Attempts: 2, Correct: 1}, p.TopicStats["Networking"])
}

func TestProgress_RecordAnswer_InvalidInputLeavesStateUntouched(t *testing.T) {
	p := newTestProgress(t)

	_, err := p.RecordAnswer("  ", true, day0)
	assert.ErrorIs(t, err, ErrEmptyTopic)

	_, err = p.RecordAnswer("Networking", true, time.Time{})
	assert.ErrorIs(t, err, ErrZeroTimestamp)

	assert.Equal(t, 0, p.TotalQuestions)
	assert.Equal(t, 0, p.StudyScore)
	assert.Empty(t, p.TopicStats)
}

func TestProgress_Streak_ConsecutiveDays(t *testing.T) {
	p := newTestProgress(t)

	for i := 0; i < 3; i++ {
		change, err := p.RecordAnswer("Networking", true, day0.AddDate(0, 0, i))
		require.NoError(t, err)
		assert.True(t, change.Updated)
	}
	assert.Equal(t, 3, p.StudyStreak)
}

func TestProgress_Streak_SameDayNoChange(t *testing.T) {
	p := newTestProgress(t)

	_, err := p.RecordAnswer("Networking", true, day0)
	require.NoError(t, err)

	change, err := p.RecordAnswer("Networking", true, day0.Add(6*time.Hour))
	require.NoError(t, err)
	assert.False(t, change.Updated)
	assert.False(t, change.Broken)
	assert.Equal(t, 1, p.StudyStreak)
}

func TestProgress_Streak_BrokenAfterGap(t *testing.T) {
	p := newTestProgress(t)

	_, err := p.RecordAnswer("Networking", true, day0)
	require.NoError(t, err)
	_, err = p.RecordAnswer("Networking", true, day0.AddDate(0, 0, 1))
	require.NoError(t, err)

	// Two days skipped
	change, err := p.RecordAnswer("Networking", true, day0.AddDate(0, 0, 4))
	require.NoError(t, err)
	assert.True(t, change.Broken)
	assert.Equal(t, 2, change.PreviousStreak)
	assert.Equal(t, 2, change.DaysMissed)
	assert.Equal(t, 1, p.StudyStreak)
}

func TestProgress_Streak_CrossesMidnightBoundary(t *testing.T) {
	p := newTestProgress(t)

	late := time.Date(2025, 3, 10, 23, 59, 0, 0, time.UTC)
	early := time.Date(2025, 3, 11, 0, 1, 0, 0, time.UTC)

	_, err := p.RecordAnswer("Networking", true, late)
	require.NoError(t, err)
	change, err := p.RecordAnswer("Networking", true, early)
	require.NoError(t, err)

	// Two minutes apart but calendar days differ
	assert.True(t, change.Updated)
	assert.Equal(t, 2, p.StudyStreak)
}

func TestProgress_AddStudyMinutes(t *testing.T) {
	p := newTestProgress(t)

	require.NoError(t, p.AddStudyMinutes(25, day0))
	require.NoError(t, p.AddStudyMinutes(5, day0))
	assert.Equal(t, 30, p.StudyTimeMinutes)

	assert.ErrorIs(t, p.AddStudyMinutes(0, day0), ErrNonPositiveMinutes)
	assert.ErrorIs(t, p.AddStudyMinutes(-10, day0), ErrNonPositiveMinutes)
	assert.Equal(t, 30, p.StudyTimeMinutes)
}

func TestProgress_Accuracy(t *testing.T) {
	p := newTestProgress(t)
	assert.Equal(t, 0.0, p.Accuracy())

	_, _ = p.RecordAnswer("Networking", true, day0)
	_, _ = p.RecordAnswer("Networking", true, day0)
	_, _ = p.RecordAnswer("Networking", false, day0)
	_, _ = p.RecordAnswer("Networking", false, day0)

	assert.InDelta(t, 0.5, p.Accuracy(), 1e-9)
}

func TestProgress_UnlockAchievement_Monotonic(t *testing.T) {
	p := newTestProgress(t)

	assert.True(t, p.UnlockAchievement(AchievementFirstSteps, 50, day0))
	assert.Equal(t, 50, p.StudyScore)
	assert.True(t, p.HasAchievement(AchievementFirstSteps))

	// Second unlock is a no-op: no double points
	assert.False(t, p.UnlockAchievement(AchievementFirstSteps, 50, day0.Add(time.Hour)))
	assert.Equal(t, 50, p.StudyScore)
}

func TestProgress_Clone_IsDeep(t *testing.T) {
	p := newTestProgress(t)
	_, _ = p.RecordAnswer("Networking", true, day0)
	p.UnlockAchievement(AchievementFirstSteps, 50, day0)

	cp := p.Clone()
	cp.TopicStats["Networking"] = TopicStat{Attempts: 99, Correct: 99}
	cp.Achievements[AchievementMarathoner] = day0

	assert.Equal(t, TopicStat{Attempts: 1, Correct: 1}, p.TopicStats["Networking"])
	assert.False(t, p.HasAchievement(AchievementMarathoner))
}
