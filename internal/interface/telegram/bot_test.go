package telegram

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhub/comptia-study-hub/internal/domain/shared"
	"github.com/studyhub/comptia-study-hub/internal/infrastructure/messaging"
	"github.com/studyhub/comptia-study-hub/pkg/logger"
)

// sendMessageCall is the decoded body of one sendMessage API request.
type sendMessageCall struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// apiRecorder is a stand-in Bot API server that records sendMessage calls.
type apiRecorder struct {
	mu    sync.Mutex
	calls []sendMessageCall
	paths []string
}

func (r *apiRecorder) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var call sendMessageCall
		_ = json.NewDecoder(req.Body).Decode(&call)

		r.mu.Lock()
		r.calls = append(r.calls, call)
		r.paths = append(r.paths, req.URL.Path)
		r.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	}
}

func (r *apiRecorder) snapshot() []sendMessageCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sendMessageCall(nil), r.calls...)
}

// newNotificationFixture wires a bot against the recorder and subscribes it
// to session completions on a synchronous in-memory bus.
func newNotificationFixture(t *testing.T) (*apiRecorder, *messaging.InMemoryEventBus) {
	t.Helper()

	recorder := &apiRecorder{}
	server := httptest.NewServer(recorder.handler())
	t.Cleanup(server.Close)

	config := DefaultBotConfig("test-token")
	config.APIBaseURL = server.URL
	config.Logger = logger.New(logger.Options{Output: io.Discard, Level: logger.LevelError})

	bot, err := NewBot(config, BotDependencies{})
	require.NoError(t, err)

	bus := messaging.NewInMemoryEventBus(messaging.DefaultConfig())
	t.Cleanup(func() { _ = bus.Close() })
	require.NoError(t, bot.RegisterSessionNotifications(bus))

	return recorder, bus
}

func TestBot_SessionNotifications_StudyCompleted(t *testing.T) {
	recorder, bus := newNotificationFixture(t)

	err := bus.Publish(shared.NewSessionCompletedEvent("12345", "s1", "study", 25))
	require.NoError(t, err)

	calls := recorder.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, int64(12345), calls[0].ChatID)
	assert.Contains(t, calls[0].Text, "Time's up")
	assert.Contains(t, calls[0].Text, "25m")
	assert.Equal(t, "HTML", calls[0].ParseMode)
	assert.Equal(t, "/bottest-token/sendMessage", recorder.paths[0])
}

func TestBot_SessionNotifications_BreakCompleted(t *testing.T) {
	recorder, bus := newNotificationFixture(t)

	err := bus.Publish(shared.NewSessionCompletedEvent("777", "s2", "short_break", 5))
	require.NoError(t, err)

	calls := recorder.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, int64(777), calls[0].ChatID)
	assert.Contains(t, calls[0].Text, "Break's over")
}

func TestBot_SessionNotifications_IgnoresNonChatUserIDs(t *testing.T) {
	recorder, bus := newNotificationFixture(t)

	err := bus.Publish(shared.NewSessionCompletedEvent("not-a-chat", "s3", "study", 25))
	require.NoError(t, err)

	assert.Empty(t, recorder.snapshot())
}

func TestBot_SessionNotifications_IgnoresOtherEventTypes(t *testing.T) {
	recorder, bus := newNotificationFixture(t)

	err := bus.Publish(shared.NewSessionCancelledEvent("12345", "s4", "study", 7))
	require.NoError(t, err)

	assert.Empty(t, recorder.snapshot())
}