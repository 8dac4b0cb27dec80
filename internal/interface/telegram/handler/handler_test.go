package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/comptia-study-hub/internal/domain/pomodoro"
	"github.com/studyhub/comptia-study-hub/internal/domain/shared"
)

func TestParseSessionType(t *testing.T) {
	tests := []struct {
		input string
		want  pomodoro.SessionType
		ok    bool
	}{
		{"study", pomodoro.TypeStudy, true},
		{"work", pomodoro.TypeStudy, true},
		{"FOCUS", pomodoro.TypeStudy, true},
		{"  break  ", pomodoro.TypeShortBreak, true},
		{"short_break", pomodoro.TypeShortBreak, true},
		{"long", pomodoro.TypeLongBreak, true},
		{"long_break", pomodoro.TypeLongBreak, true},
		{"nap", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := parseSessionType(tt.input)
		assert.Equal(t, tt.ok, ok, "input %q", tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

func TestSplitRecommendations(t *testing.T) {
	raw := "- Review subnetting basics\n\n• Drill port numbers\n* Read up on TLS\n- One too many"

	recs := splitRecommendations(raw)
	require.Len(t, recs, 3, "capped at three lines")
	assert.Equal(t, "Review subnetting basics", recs[0])
	assert.Equal(t, "Drill port numbers", recs[1])
	assert.Equal(t, "Read up on TLS", recs[2])
}

func TestSplitRecommendations_EmptyInput(t *testing.T) {
	assert.Empty(t, splitRecommendations(""))
	assert.Empty(t, splitRecommendations("\n\n  \n"))
}

func TestAIErrorView(t *testing.T) {
	busy := aiErrorView(shared.ErrAIRateLimited)
	assert.Contains(t, busy.Text, "busy")

	down := aiErrorView(shared.ErrAIUnavailable)
	assert.Contains(t, down.Text, "unavailable")

	other := aiErrorView(assert.AnError)
	assert.Contains(t, other.Text, "try again later")
}
