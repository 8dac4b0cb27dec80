package learner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// progressWithAnswers builds a progress snapshot with the given per-topic
// answer counts: map of topic -> [attempts, correct].
func progressWithAnswers(t *testing.T, answers map[Topic][2]int) *Progress {
	t.Helper()
	p, err := NewProgress("user1", day0)
	require.NoError(t, err)

	for topic, counts := range answers {
		attempts, correct := counts[0], counts[1]
		for i := 0; i < attempts; i++ {
			_, err := p.RecordAnswer(topic, i < correct, day0)
			require.NoError(t, err)
		}
	}
	return p
}

func TestEngine_NextDifficulty_BelowMinSample(t *testing.T) {
	engine := NewEngine(DefaultEngineConfig())

	p := progressWithAnswers(t, map[Topic][2]int{"Networking": {4, 4}})
	assert.Equal(t, DifficultyBeginner, engine.NextDifficulty(p))
	assert.Equal(t, DifficultyBeginner, engine.NextDifficulty(nil))
}

func TestEngine_NextDifficulty_Thresholds(t *testing.T) {
	engine := NewEngine(EngineConfig{
		MinSample:    5,
		LowAccuracy:  0.50,
		HighAccuracy: 0.85,
	})

	tests := []struct {
		name     string
		attempts int
		correct  int
		want     Difficulty
	}{
		{"low accuracy", 10, 4, DifficultyBeginner},
		{"exactly at low threshold", 10, 5, DifficultyIntermediate},
		{"mid accuracy", 10, 7, DifficultyIntermediate},
		{"just below high threshold", 20, 16, DifficultyIntermediate},
		{"exactly at high threshold", 20, 17, DifficultyAdvanced},
		{"perfect accuracy", 10, 10, DifficultyAdvanced},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := progressWithAnswers(t, map[Topic][2]int{"Networking": {tt.attempts, tt.correct}})
			assert.Equal(t, tt.want, engine.NextDifficulty(p))
		})
	}
}

func TestEngine_WeakSpots_SortedWorstFirst(t *testing.T) {
	engine := NewEngine(DefaultEngineConfig())
	p := progressWithAnswers(t, map[Topic][2]int{
		"Networking":      {10, 9},
		"Cryptography":    {10, 3},
		"Threats":         {10, 6},
		"Cloud Computing": {0, 0},
	})

	spots := engine.WeakSpots(p, 0)
	require.Len(t, spots, 3, "topics without attempts are excluded")
	assert.Equal(t, Topic("Cryptography"), spots[0].Topic)
	assert.Equal(t, Topic("Threats"), spots[1].Topic)
	assert.Equal(t, Topic("Networking"), spots[2].Topic)
	assert.InDelta(t, 0.3, spots[0].Accuracy, 1e-9)
}

func TestEngine_WeakSpots_TieBreaksByAttemptsThenTopic(t *testing.T) {
	engine := NewEngine(DefaultEngineConfig())
	p := progressWithAnswers(t, map[Topic][2]int{
		"Alpha": {4, 2},
		"Beta":  {8, 4},
		"Gamma": {4, 2},
	})

	spots := engine.WeakSpots(p, 0)
	require.Len(t, spots, 3)
	// Same accuracy: more attempts first, then topic name
	assert.Equal(t, Topic("Beta"), spots[0].Topic)
	assert.Equal(t, Topic("Alpha"), spots[1].Topic)
	assert.Equal(t, Topic("Gamma"), spots[2].Topic)
}

func TestEngine_WeakSpots_Limit(t *testing.T) {
	engine := NewEngine(DefaultEngineConfig())
	p := progressWithAnswers(t, map[Topic][2]int{
		"A": {5, 1},
		"B": {5, 2},
		"C": {5, 3},
		"D": {5, 4},
	})

	spots := engine.WeakSpots(p, 2)
	require.Len(t, spots, 2)
	assert.Equal(t, Topic("A"), spots[0].Topic)
	assert.Equal(t, Topic("B"), spots[1].Topic)
}

func TestEngine_WeakSpots_MinAttemptsFilter(t *testing.T) {
	engine := NewEngine(EngineConfig{MinSample: 5, WeakSpotMinAttempts: 3})
	p := progressWithAnswers(t, map[Topic][2]int{
		"Thin evidence": {2, 0},
		"Enough":        {3, 1},
	})

	spots := engine.WeakSpots(p, 0)
	require.Len(t, spots, 1)
	assert.Equal(t, Topic("Enough"), spots[0].Topic)
}

func TestEngine_Strengths_SortedBestFirst(t *testing.T) {
	engine := NewEngine(DefaultEngineConfig())
	p := progressWithAnswers(t, map[Topic][2]int{
		"Networking":   {10, 9},
		"Cryptography": {10, 3},
		"Threats":      {10, 6},
	})

	strengths := engine.Strengths(p, 2)
	require.Len(t, strengths, 2)
	assert.Equal(t, Topic("Networking"), strengths[0].Topic)
	assert.Equal(t, Topic("Threats"), strengths[1].Topic)
}

func TestEngine_WeakSpots_NilProgress(t *testing.T) {
	engine := NewEngine(DefaultEngineConfig())
	assert.Empty(t, engine.WeakSpots(nil, 5))
	assert.Empty(t, engine.Strengths(nil, 5))
}
