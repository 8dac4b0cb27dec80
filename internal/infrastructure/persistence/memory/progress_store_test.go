package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/comptia-study-hub/internal/domain/learner"
	"github.com/studyhub/comptia-study-hub/internal/domain/shared"
	"github.com/studyhub/comptia-study-hub/pkg/timeutil"
)

func newTestStore() (*ProgressStore, *timeutil.FakeClock) {
	clock := timeutil.NewFakeClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	return NewProgressStore(clock), clock
}

func TestProgressStore_GetOrCreate(t *testing.T) {
	store, clock := newTestStore()
	ctx := context.Background()

	p, err := store.GetOrCreate(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, learner.UserID("user1"), p.UserID)
	assert.Equal(t, 0, p.TotalQuestions)
	assert.Equal(t, clock.Now(), p.CreatedAt)

	// Second call returns the same record, not a fresh one
	p.StudyScore = 999 // mutating the copy must not affect the store
	again, err := store.GetOrCreate(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, 0, again.StudyScore)
	assert.Equal(t, p.CreatedAt, again.CreatedAt)
}

func TestProgressStore_GetOrCreate_InvalidID(t *testing.T) {
	store, _ := newTestStore()

	_, err := store.GetOrCreate(context.Background(), "  ")
	assert.ErrorIs(t, err, shared.ErrInvalidID)
}

func TestProgressStore_RecordAnswer(t *testing.T) {
	store, clock := newTestStore()
	ctx := context.Background()

	rec, err := store.RecordAnswer(ctx, "user1", "Networking", true, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Progress.TotalQuestions)
	assert.Equal(t, 1, rec.Progress.CorrectAnswers)
	assert.Equal(t, learner.CorrectAnswerPoints, rec.Progress.StudyScore)
	assert.Equal(t, 1, rec.Progress.StudyStreak)
	assert.True(t, rec.Streak.Updated)

	rec, err = store.RecordAnswer(ctx, "user1", "Networking", false, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Progress.TotalQuestions)
	assert.Equal(t, 1, rec.Progress.CorrectAnswers)
	assert.False(t, rec.Streak.Updated)

	stat := rec.Progress.TopicStats["Networking"]
	assert.Equal(t, 2, stat.Attempts)
	assert.Equal(t, 1, stat.Correct)
}

func TestProgressStore_RecordAnswer_RejectedLeavesStateUntouched(t *testing.T) {
	store, clock := newTestStore()
	ctx := context.Background()

	_, err := store.RecordAnswer(ctx, "user1", "Security", true, clock.Now())
	require.NoError(t, err)

	_, err = store.RecordAnswer(ctx, "user1", "", true, clock.Now())
	require.ErrorIs(t, err, learner.ErrEmptyTopic)

	p, err := store.Snapshot(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.TotalQuestions)
}

func TestProgressStore_StreakAcrossDays(t *testing.T) {
	store, clock := newTestStore()
	ctx := context.Background()

	rec, err := store.RecordAnswer(ctx, "user1", "Hardware", true, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Progress.StudyStreak)

	clock.Advance(24 * time.Hour)
	rec, err = store.RecordAnswer(ctx, "user1", "Hardware", true, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Progress.StudyStreak)
	assert.True(t, rec.Streak.Updated)

	// Two missed days reset the streak
	clock.Advance(72 * time.Hour)
	rec, err = store.RecordAnswer(ctx, "user1", "Hardware", true, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Progress.StudyStreak)
	assert.True(t, rec.Streak.Broken)
	assert.Equal(t, 2, rec.Streak.PreviousStreak)
	assert.Equal(t, 2, rec.Streak.DaysMissed)
}

func TestProgressStore_AddStudyMinutes(t *testing.T) {
	store, clock := newTestStore()
	ctx := context.Background()

	p, err := store.AddStudyMinutes(ctx, "user1", 25, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 25, p.StudyTimeMinutes)

	_, err = store.AddStudyMinutes(ctx, "user1", 0, clock.Now())
	assert.ErrorIs(t, err, learner.ErrNonPositiveMinutes)
}

func TestProgressStore_SelectTrack(t *testing.T) {
	store, clock := newTestStore()
	ctx := context.Background()

	p, err := store.SelectTrack(ctx, "user1", "Security+", clock.Now())
	require.NoError(t, err)
	assert.Equal(t, learner.Track("Security+"), p.SelectedTrack)

	// Re-selection overwrites unconditionally
	p, err = store.SelectTrack(ctx, "user1", "Network+", clock.Now())
	require.NoError(t, err)
	assert.Equal(t, learner.Track("Network+"), p.SelectedTrack)
}

func TestProgressStore_ApplyAchievements_Idempotent(t *testing.T) {
	store, clock := newTestStore()
	ctx := context.Background()

	defs := []learner.AchievementDefinition{
		{ID: learner.AchievementFirstSteps, Points: 50},
		{ID: learner.AchievementWeekStreak, Points: 100},
	}

	added, err := store.ApplyAchievements(ctx, "user1", defs, clock.Now())
	require.NoError(t, err)
	assert.Len(t, added, 2)

	// Re-applying the same definitions adds nothing and awards no points
	added, err = store.ApplyAchievements(ctx, "user1", defs, clock.Now())
	require.NoError(t, err)
	assert.Empty(t, added)

	p, err := store.Snapshot(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, 150, p.StudyScore)
}

func TestProgressStore_Snapshot_NotFound(t *testing.T) {
	store, _ := newTestStore()

	_, err := store.Snapshot(context.Background(), "ghost")
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.True(t, shared.IsNotFound(err))
}

func TestProgressStore_All_SortedByUserID(t *testing.T) {
	store, clock := newTestStore()
	ctx := context.Background()

	for _, id := range []learner.UserID{"charlie", "alice", "bob"} {
		_, err := store.RecordAnswer(ctx, id, "Security", true, clock.Now())
		require.NoError(t, err)
	}

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, learner.UserID("alice"), all[0].UserID)
	assert.Equal(t, learner.UserID("bob"), all[1].UserID)
	assert.Equal(t, learner.UserID("charlie"), all[2].UserID)
}

func TestProgressStore_ConcurrentAnswers_NoLostUpdates(t *testing.T) {
	store, clock := newTestStore()
	ctx := context.Background()

	const (
		users      = 8
		perUser    = 50
		goroutines = 4
	)

	var wg sync.WaitGroup
	for u := 0; u < users; u++ {
		userID := learner.UserID(fmt.Sprintf("user%d", u))
		for g := 0; g < goroutines; g++ {
			wg.Add(1)
			go func(id learner.UserID) {
				defer wg.Done()
				for i := 0; i < perUser; i++ {
					_, err := store.RecordAnswer(ctx, id, "Security", true, clock.Now())
					if err != nil && !errors.Is(err, context.Canceled) {
						t.Errorf("record answer: %v", err)
						return
					}
				}
			}(userID)
		}
	}
	wg.Wait()

	for u := 0; u < users; u++ {
		userID := learner.UserID(fmt.Sprintf("user%d", u))
		p, err := store.Snapshot(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, perUser*goroutines, p.TotalQuestions)
		assert.Equal(t, perUser*goroutines, p.CorrectAnswers)
		assert.Equal(t, perUser*goroutines*learner.CorrectAnswerPoints, p.StudyScore)
	}
}

func TestProgressStore_ExportImport_RoundTrip(t *testing.T) {
	store, clock := newTestStore()
	ctx := context.Background()

	_, err := store.RecordAnswer(ctx, "user1", "Networking", true, clock.Now())
	require.NoError(t, err)
	_, err = store.SelectTrack(ctx, "user1", "Network+", clock.Now())
	require.NoError(t, err)
	_, err = store.ApplyAchievements(ctx, "user1",
		[]learner.AchievementDefinition{{ID: learner.AchievementFirstSteps, Points: 50}}, clock.Now())
	require.NoError(t, err)

	data, err := store.ExportState(ctx)
	require.NoError(t, err)

	restored := NewProgressStore(clock)
	require.NoError(t, restored.ImportState(ctx, data))

	p, err := restored.Snapshot(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.TotalQuestions)
	assert.Equal(t, learner.Track("Network+"), p.SelectedTrack)
	assert.True(t, p.HasAchievement(learner.AchievementFirstSteps))
	assert.Equal(t, learner.CorrectAnswerPoints+50, p.StudyScore)
}

func TestProgressStore_ImportState_RejectsCorruptSnapshot(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	err := store.ImportState(ctx, []byte("{not json"))
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	// Invariant violation in the payload is rejected too
	bad := `{"records":[{"user_id":"u1","total_questions":1,"correct_answers":5}]}`
	err = store.ImportState(ctx, []byte(bad))
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}
