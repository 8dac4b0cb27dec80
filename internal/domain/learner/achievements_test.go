package learner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluator_Evaluate_FirstSteps(t *testing.T) {
	evaluator := NewEvaluator()
	p := progressWithAnswers(t, map[Topic][2]int{"Networking": {10, 5}})

	unlocked := evaluator.Evaluate(p)
	require.Len(t, unlocked, 1)
	assert.Equal(t, AchievementFirstSteps, unlocked[0].ID)
	assert.Equal(t, 50, unlocked[0].Points)
}

func TestEvaluator_Evaluate_SkipsAlreadyUnlocked(t *testing.T) {
	evaluator := NewEvaluator()
	p := progressWithAnswers(t, map[Topic][2]int{"Networking": {10, 5}})
	p.UnlockAchievement(AchievementFirstSteps, 50, day0)

	assert.Empty(t, evaluator.Evaluate(p))
}

func TestEvaluator_Evaluate_MultipleAtOnce(t *testing.T) {
	evaluator := NewEvaluator()
	// 20 questions, 19 correct: first_steps + accuracy_master + topic_expert
	p := progressWithAnswers(t, map[Topic][2]int{"Networking": {20, 19}})

	unlocked := evaluator.Evaluate(p)
	ids := make([]AchievementID, 0, len(unlocked))
	for _, def := range unlocked {
		ids = append(ids, def.ID)
	}
	assert.ElementsMatch(t, []AchievementID{
		AchievementFirstSteps,
		AchievementAccuracyMaster,
		AchievementTopicExpert,
	}, ids)
}

func TestEvaluator_Evaluate_StreakAchievements(t *testing.T) {
	evaluator := NewEvaluator()
	p := newTestProgress(t)
	p.StudyStreak = 7

	unlocked := evaluator.Evaluate(p)
	require.Len(t, unlocked, 1)
	assert.Equal(t, AchievementWeekStreak, unlocked[0].ID)

	p.StudyStreak = 30
	p.UnlockAchievement(AchievementWeekStreak, 100, day0)
	unlocked = evaluator.Evaluate(p)
	require.Len(t, unlocked, 1)
	assert.Equal(t, AchievementIronWill, unlocked[0].ID)
}

func TestEvaluator_Evaluate_Marathoner(t *testing.T) {
	evaluator := NewEvaluator()
	p := newTestProgress(t)

	require.NoError(t, p.AddStudyMinutes(299, day0))
	assert.Empty(t, evaluator.Evaluate(p))

	require.NoError(t, p.AddStudyMinutes(1, day0))
	unlocked := evaluator.Evaluate(p)
	require.Len(t, unlocked, 1)
	assert.Equal(t, AchievementMarathoner, unlocked[0].ID)
}

func TestEvaluator_Evaluate_NilProgress(t *testing.T) {
	assert.Empty(t, NewEvaluator().Evaluate(nil))
}

func TestEvaluator_CustomDefinitions(t *testing.T) {
	evaluator := NewEvaluatorWithDefinitions([]AchievementDefinition{
		{
			ID: "night_owl", Points: 10,
			Unlocked: func(p *Progress) bool { return true },
		},
	})
	p := newTestProgress(t)

	unlocked := evaluator.Evaluate(p)
	require.Len(t, unlocked, 1)
	assert.Equal(t, AchievementID("night_owl"), unlocked[0].ID)
}

func TestDefinition_Lookup(t *testing.T) {
	def, ok := Definition(AchievementQuestionWarrior)
	require.True(t, ok)
	assert.Equal(t, "Question Warrior", def.Name)

	_, ok = Definition("no_such_achievement")
	assert.False(t, ok)
}

func TestUnlocked_SortedByUnlockTime(t *testing.T) {
	p := newTestProgress(t)
	p.UnlockAchievement(AchievementWeekStreak, 100, day0.Add(2*time.Hour))
	p.UnlockAchievement(AchievementFirstSteps, 50, day0)
	p.UnlockAchievement(AchievementMarathoner, 150, day0.Add(time.Hour))

	unlocked := Unlocked(p)
	require.Len(t, unlocked, 3)
	assert.Equal(t, AchievementFirstSteps, unlocked[0].Definition.ID)
	assert.Equal(t, AchievementMarathoner, unlocked[1].Definition.ID)
	assert.Equal(t, AchievementWeekStreak, unlocked[2].Definition.ID)
}

func TestUnlocked_UnknownIDRendersAsIs(t *testing.T) {
	p := newTestProgress(t)
	p.Achievements["retired_badge"] = day0

	unlocked := Unlocked(p)
	require.Len(t, unlocked, 1)
	assert.Equal(t, "retired_badge", unlocked[0].Definition.Name)
}
