package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/comptia-study-hub/internal/domain/learner"
	"github.com/studyhub/comptia-study-hub/internal/domain/shared"
	"github.com/studyhub/comptia-study-hub/internal/infrastructure/persistence/memory"
	"github.com/studyhub/comptia-study-hub/pkg/timeutil"
)

func newQueryFixture(t *testing.T) (*memory.ProgressStore, *timeutil.FakeClock) {
	t.Helper()
	clock := timeutil.NewFakeClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	return memory.NewProgressStore(clock), clock
}

func TestGetStatisticsHandler_NewUserGetsZeroView(t *testing.T) {
	store, _ := newQueryFixture(t)
	handler := NewGetStatisticsHandler(store, nil)

	view, err := handler.Handle(context.Background(), GetStatisticsQuery{UserID: "user1"})
	require.NoError(t, err)

	assert.Equal(t, "user1", view.UserID)
	assert.Empty(t, view.Track)
	assert.Equal(t, 0, view.TotalQuestions)
	assert.Equal(t, learner.DifficultyBeginner, view.NextDifficulty)
	assert.Empty(t, view.WeakSpots)
	assert.Empty(t, view.Achievements)
	assert.Equal(t, len(learner.Definitions()), view.AchievementsTotal)
}

func TestGetStatisticsHandler_ReflectsProgress(t *testing.T) {
	store, clock := newQueryFixture(t)
	handler := NewGetStatisticsHandler(store, nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := store.RecordAnswer(ctx, "user1", "Networking", i%2 == 0, clock.Now())
		require.NoError(t, err)
	}
	_, err := store.AddStudyMinutes(ctx, "user1", 25, clock.Now())
	require.NoError(t, err)

	view, err := handler.Handle(ctx, GetStatisticsQuery{UserID: "user1"})
	require.NoError(t, err)

	assert.Equal(t, 10, view.TotalQuestions)
	assert.Equal(t, 5, view.CorrectAnswers)
	assert.InDelta(t, 0.5, view.Accuracy, 1e-9)
	assert.Equal(t, 25, view.StudyTimeMinutes)
	assert.Equal(t, learner.DifficultyIntermediate, view.NextDifficulty)
	require.Len(t, view.WeakSpots, 1)
	assert.Equal(t, learner.Topic("Networking"), view.WeakSpots[0].Topic)
}

func TestGetStatisticsHandler_InvalidUserID(t *testing.T) {
	store, _ := newQueryFixture(t)
	handler := NewGetStatisticsHandler(store, nil)

	_, err := handler.Handle(context.Background(), GetStatisticsQuery{UserID: "  "})
	assert.ErrorIs(t, err, shared.ErrInvalidID)
}

func TestGetAnalysisHandler_OrdersAndLimits(t *testing.T) {
	store, clock := newQueryFixture(t)
	handler := NewGetAnalysisHandler(store, learner.NewEngine(learner.DefaultEngineConfig()))
	ctx := context.Background()

	seed := map[learner.Topic][2]int{
		"Cryptography": {10, 2},
		"Networking":   {10, 9},
		"Threats":      {10, 5},
		"Cloud":        {10, 7},
	}
	for topic, counts := range seed {
		for i := 0; i < counts[0]; i++ {
			_, err := store.RecordAnswer(ctx, "user1", topic, i < counts[1], clock.Now())
			require.NoError(t, err)
		}
	}

	view, err := handler.Handle(ctx, GetAnalysisQuery{UserID: "user1", Limit: 2})
	require.NoError(t, err)

	require.Len(t, view.WeakSpots, 2)
	assert.Equal(t, learner.Topic("Cryptography"), view.WeakSpots[0].Topic)
	assert.Equal(t, learner.Topic("Threats"), view.WeakSpots[1].Topic)

	require.Len(t, view.Strengths, 2)
	assert.Equal(t, learner.Topic("Networking"), view.Strengths[0].Topic)
	assert.True(t, view.HasData())
	assert.Equal(t, []string{"Cryptography", "Threats"}, view.WeakTopicNames())
}

func TestGetAnalysisHandler_NoAnswersHasNoData(t *testing.T) {
	store, _ := newQueryFixture(t)
	handler := NewGetAnalysisHandler(store, nil)

	view, err := handler.Handle(context.Background(), GetAnalysisQuery{UserID: "user1"})
	require.NoError(t, err)
	assert.False(t, view.HasData())
}

func TestGetLeaderboardHandler_ThreeBoards(t *testing.T) {
	store, clock := newQueryFixture(t)
	handler := NewGetLeaderboardHandler(store)
	ctx := context.Background()

	// champion: big score, few questions
	for i := 0; i < 15; i++ {
		_, err := store.RecordAnswer(ctx, "champion", "Networking", true, clock.Now())
		require.NoError(t, err)
	}
	// sniper: perfect accuracy over the entry bar
	for i := 0; i < 12; i++ {
		_, err := store.RecordAnswer(ctx, "sniper", "Threats", true, clock.Now())
		require.NoError(t, err)
	}
	// lucky: perfect accuracy but below the entry bar
	_, err := store.RecordAnswer(ctx, "lucky", "Threats", true, clock.Now())
	require.NoError(t, err)
	// grinder: lots of study time, no questions
	_, err = store.AddStudyMinutes(ctx, "grinder", 120, clock.Now())
	require.NoError(t, err)

	view, err := handler.Handle(ctx, GetLeaderboardQuery{TopN: 3, AccuracyMinQuestions: 10})
	require.NoError(t, err)

	assert.Equal(t, 4, view.TotalLearners)

	require.NotEmpty(t, view.Champions)
	assert.Equal(t, "champion", view.Champions[0].UserID)

	ids := make([]string, 0, len(view.AccuracyMasters))
	for _, e := range view.AccuracyMasters {
		ids = append(ids, e.UserID)
	}
	assert.Contains(t, ids, "sniper")
	assert.NotContains(t, ids, "lucky")

	require.NotEmpty(t, view.StudyLegends)
	assert.Equal(t, "grinder", view.StudyLegends[0].UserID)
}

func TestGetLeaderboardHandler_EmptyCommunity(t *testing.T) {
	store, _ := newQueryFixture(t)
	handler := NewGetLeaderboardHandler(store)

	view, err := handler.Handle(context.Background(), GetLeaderboardQuery{})
	require.NoError(t, err)
	assert.Equal(t, 0, view.TotalLearners)
	assert.Empty(t, view.Champions)
	assert.Empty(t, view.AccuracyMasters)
	assert.Empty(t, view.StudyLegends)
}
