package command

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/comptia-study-hub/internal/domain/learner"
	"github.com/studyhub/comptia-study-hub/internal/domain/shared"
	"github.com/studyhub/comptia-study-hub/internal/infrastructure/persistence/memory"
	"github.com/studyhub/comptia-study-hub/pkg/timeutil"
)

// recordingBus captures published events for assertions.
type recordingBus struct {
	mu     sync.Mutex
	events []shared.Event
}

func (b *recordingBus) Publish(event shared.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *recordingBus) ofType(t shared.EventType) []shared.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []shared.Event
	for _, e := range b.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

func newAnswerFixture(t *testing.T) (*RecordAnswerHandler, *memory.ProgressStore, *recordingBus, *timeutil.FakeClock) {
	t.Helper()
	clock := timeutil.NewFakeClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	store := memory.NewProgressStore(clock)
	bus := &recordingBus{}
	handler := NewRecordAnswerHandler(store, learner.NewEvaluator(), bus, clock)
	return handler, store, bus, clock
}

func TestRecordAnswerHandler_Handle(t *testing.T) {
	handler, _, bus, _ := newAnswerFixture(t)
	ctx := context.Background()

	result, err := handler.Handle(ctx, RecordAnswerCommand{
		UserID:    "user-1",
		Topic:     "Network Security",
		IsCorrect: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Progress.TotalQuestions)
	assert.Equal(t, 1, result.Progress.CorrectAnswers)
	assert.Equal(t, learner.CorrectAnswerPoints, result.Progress.StudyScore)
	assert.True(t, result.Streak.Updated)
	assert.Empty(t, result.NewAchievements)

	require.Len(t, bus.ofType(shared.EventAnswerRecorded), 1)
	require.Len(t, bus.ofType(shared.EventStreakUpdated), 1)
}

func TestRecordAnswerHandler_Validation(t *testing.T) {
	handler, _, bus, _ := newAnswerFixture(t)
	ctx := context.Background()

	_, err := handler.Handle(ctx, RecordAnswerCommand{UserID: "", Topic: "Hardware"})
	assert.True(t, errors.Is(err, shared.ErrInvalidID))

	_, err = handler.Handle(ctx, RecordAnswerCommand{UserID: "user-1", Topic: "   "})
	assert.True(t, errors.Is(err, shared.ErrEmptyValue))

	assert.Empty(t, bus.events, "rejected commands must not publish")
}

func TestRecordAnswerHandler_UnlocksFirstSteps(t *testing.T) {
	handler, _, bus, _ := newAnswerFixture(t)
	ctx := context.Background()

	var last *RecordAnswerResult
	for i := 0; i < 10; i++ {
		var err error
		last, err = handler.Handle(ctx, RecordAnswerCommand{
			UserID:    "user-1",
			Topic:     "Threats and Vulnerabilities",
			IsCorrect: i%2 == 0,
		})
		require.NoError(t, err)
	}

	require.Len(t, last.NewAchievements, 1)
	assert.Equal(t, learner.AchievementFirstSteps, last.NewAchievements[0].ID)

	// 5 correct answers plus the achievement bonus
	def, _ := learner.Definition(learner.AchievementFirstSteps)
	assert.Equal(t, 5*learner.CorrectAnswerPoints+def.Points, last.Progress.StudyScore)

	unlockedEvents := bus.ofType(shared.EventAchievementUnlocked)
	require.Len(t, unlockedEvents, 1)
	event, ok := unlockedEvents[0].(shared.AchievementUnlockedEvent)
	require.True(t, ok)
	assert.Equal(t, string(learner.AchievementFirstSteps), event.AchievementID)
}

func TestRecordAnswerHandler_StreakBrokenEvent(t *testing.T) {
	handler, _, bus, clock := newAnswerFixture(t)
	ctx := context.Background()

	_, err := handler.Handle(ctx, RecordAnswerCommand{UserID: "user-1", Topic: "Cloud Computing", IsCorrect: true})
	require.NoError(t, err)

	clock.Advance(24 * time.Hour)
	_, err = handler.Handle(ctx, RecordAnswerCommand{UserID: "user-1", Topic: "Cloud Computing", IsCorrect: true})
	require.NoError(t, err)

	// Skip two full days
	clock.Advance(72 * time.Hour)
	result, err := handler.Handle(ctx, RecordAnswerCommand{UserID: "user-1", Topic: "Cloud Computing", IsCorrect: false})
	require.NoError(t, err)

	assert.True(t, result.Streak.Broken)
	assert.Equal(t, 1, result.Progress.StudyStreak)

	broken := bus.ofType(shared.EventStreakBroken)
	require.Len(t, broken, 1)
	event, ok := broken[0].(shared.StreakBrokenEvent)
	require.True(t, ok)
	assert.Equal(t, 2, event.PreviousStreak)
	assert.Equal(t, 2, event.DaysMissed)
}

func TestAddStudyTimeHandler_UnlocksMarathoner(t *testing.T) {
	clock := timeutil.NewFakeClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	store := memory.NewProgressStore(clock)
	bus := &recordingBus{}
	handler := NewAddStudyTimeHandler(store, learner.NewEvaluator(), bus, clock)
	ctx := context.Background()

	result, err := handler.Handle(ctx, AddStudyTimeCommand{UserID: "user-1", Minutes: 299})
	require.NoError(t, err)
	assert.Empty(t, result.NewAchievements)

	result, err = handler.Handle(ctx, AddStudyTimeCommand{UserID: "user-1", Minutes: 1})
	require.NoError(t, err)
	require.Len(t, result.NewAchievements, 1)
	assert.Equal(t, learner.AchievementMarathoner, result.NewAchievements[0].ID)
	assert.Equal(t, 300, result.Progress.StudyTimeMinutes)

	require.Len(t, bus.ofType(shared.EventStudyTimeAdded), 2)
}

func TestAddStudyTimeHandler_RejectsNonPositive(t *testing.T) {
	clock := timeutil.NewFakeClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	store := memory.NewProgressStore(clock)
	handler := NewAddStudyTimeHandler(store, nil, nil, clock)

	_, err := handler.Handle(context.Background(), AddStudyTimeCommand{UserID: "user-1", Minutes: 0})
	assert.True(t, errors.Is(err, shared.ErrValueOutOfRange))
}

func TestSelectTrackHandler_Handle(t *testing.T) {
	clock := timeutil.NewFakeClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	store := memory.NewProgressStore(clock)
	bus := &recordingBus{}
	handler := NewSelectTrackHandler(store, bus, clock)
	ctx := context.Background()

	result, err := handler.Handle(ctx, SelectTrackCommand{UserID: "user-1", Track: "Security+"})
	require.NoError(t, err)
	assert.Equal(t, "Security+", result.Progress.SelectedTrack.String())
	assert.NotEmpty(t, result.Certification.Domains)

	_, err = handler.Handle(ctx, SelectTrackCommand{UserID: "user-1", Track: "CISSP"})
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))

	require.Len(t, bus.ofType(shared.EventTrackSelected), 1)
}
