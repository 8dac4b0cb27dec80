// Package telegram implements the Telegram bot interface: the polling
// loop, command routing and the middleware chain around handlers.
package telegram

import (
	"context"
	"strings"
	"sync"

	"github.com/studyhub/comptia-study-hub/internal/infrastructure/external/telegram"
	"github.com/studyhub/comptia-study-hub/internal/interface/telegram/handler"
	"github.com/studyhub/comptia-study-hub/internal/interface/telegram/presenter"
	"github.com/studyhub/comptia-study-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROUTER
// Routes commands and callback queries to registered handler funcs and
// sends (or edits) the resulting views.
// ══════════════════════════════════════════════════════════════════════════════

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	// Logger for structured logging.
	Logger *logger.Logger
}

// Router routes Telegram updates to handler funcs.
type Router struct {
	log *logger.Logger

	mu        sync.RWMutex
	commands  map[string]handler.Func
	callbacks map[string]handler.CallbackFunc
}

// NewRouter creates a new router.
func NewRouter(config RouterConfig) *Router {
	if config.Logger == nil {
		config.Logger = logger.Default()
	}
	r := &Router{
		log:       config.Logger,
		commands:  make(map[string]handler.Func),
		callbacks: make(map[string]handler.CallbackFunc),
	}

	// "cmd:<command>" buttons re-dispatch to the command table,
	// editing the source message in place.
	r.RegisterCallbackPrefix("cmd:", r.commandCallback)

	return r
}

// RegisterCommand registers a handler for a command (without the "/").
func (r *Router) RegisterCommand(command string, fn handler.Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[command] = fn
}

// RegisterCallbackPrefix registers a handler for callbacks matching a
// prefix (including the trailing delimiter, e.g. "quiz:").
func (r *Router) RegisterCallbackPrefix(prefix string, fn handler.CallbackFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks[prefix] = fn
}

// HandleCommand routes a command and sends the handler's view as a new
// message.
func (r *Router) HandleCommand(ctx context.Context, client *telegram.Client, command string, req handler.Request) error {
	r.mu.RLock()
	fn, ok := r.commands[command]
	r.mu.RUnlock()

	if !ok {
		return r.sendView(ctx, client, req.ChatID, unknownCommandView())
	}

	view, err := fn(ctx, req)
	if err != nil {
		return err
	}
	if view == nil {
		return nil
	}
	return r.sendView(ctx, client, req.ChatID, view)
}

// HandleCallback routes a callback and edits the source message into
// the handler's view.
func (r *Router) HandleCallback(ctx context.Context, client *telegram.Client, req handler.CallbackRequest) error {
	fn := r.matchCallback(req.Data)
	if fn == nil {
		r.log.Warn("unknown callback", logger.String("data", req.Data))
		return nil
	}

	view, err := fn(ctx, req)
	if err != nil {
		return err
	}
	if view == nil {
		return nil
	}
	return r.editView(ctx, client, req.ChatID, req.MessageID, view)
}

// matchCallback finds the longest registered prefix matching the data.
func (r *Router) matchCallback(data string) handler.CallbackFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best string
	var fn handler.CallbackFunc
	for prefix, candidate := range r.callbacks {
		if strings.HasPrefix(data, prefix) && len(prefix) > len(best) {
			best = prefix
			fn = candidate
		}
	}
	return fn
}

// commandCallback re-dispatches "cmd:<command>" buttons through the
// command table.
func (r *Router) commandCallback(ctx context.Context, req handler.CallbackRequest) (*presenter.View, error) {
	command := strings.TrimPrefix(req.Data, "cmd:")

	r.mu.RLock()
	fn, ok := r.commands[command]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	return fn(ctx, handler.Request{
		UserID:    req.UserID,
		ChatID:    req.ChatID,
		MessageID: req.MessageID,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// VIEW DELIVERY
// ══════════════════════════════════════════════════════════════════════════════

func (r *Router) sendView(ctx context.Context, client *telegram.Client, chatID int64, view *presenter.View) error {
	if view.Keyboard != nil {
		_, err := client.SendWithKeyboard(ctx, chatID, view.Text, convertKeyboard(view.Keyboard).InlineKeyboard)
		return err
	}
	_, err := client.SendHTML(ctx, chatID, view.Text)
	return err
}

func (r *Router) editView(ctx context.Context, client *telegram.Client, chatID, messageID int64, view *presenter.View) error {
	var markup *telegram.InlineKeyboardMarkup
	if view.Keyboard != nil {
		markup = convertKeyboard(view.Keyboard)
	}
	_, err := client.EditMessageText(ctx, chatID, messageID, view.Text, markup)
	return err
}

// convertKeyboard converts the presenter keyboard to the wire format.
func convertKeyboard(kb *presenter.InlineKeyboard) *telegram.InlineKeyboardMarkup {
	if kb == nil || len(kb.Rows) == 0 {
		return nil
	}

	markup := &telegram.InlineKeyboardMarkup{
		InlineKeyboard: make([][]telegram.InlineKeyboardButton, len(kb.Rows)),
	}
	for i, row := range kb.Rows {
		markup.InlineKeyboard[i] = make([]telegram.InlineKeyboardButton, len(row))
		for j, btn := range row {
			markup.InlineKeyboard[i][j] = telegram.InlineKeyboardButton{
				Text:         btn.Text,
				CallbackData: btn.CallbackData,
				URL:          btn.URL,
			}
		}
	}
	return markup
}

func unknownCommandView() *presenter.View {
	return &presenter.View{
		Text: "❓ <b>Unknown command</b>\n\nSee /help for everything I can do.",
	}
}
