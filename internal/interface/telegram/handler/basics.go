package handler

import (
	"context"

	"github.com/studyhub/comptia-study-hub/internal/interface/telegram/presenter"
	"github.com/studyhub/comptia-study-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// BASICS HANDLER
// The static command surface: /start, /help, /about, /quote.
// ══════════════════════════════════════════════════════════════════════════════

// BasicsHandler serves the commands that need no application state.
type BasicsHandler struct {
	keyboards *presenter.KeyboardBuilder
	clock     timeutil.Clock
}

// NewBasicsHandler creates a new BasicsHandler.
func NewBasicsHandler(clock timeutil.Clock) *BasicsHandler {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &BasicsHandler{
		keyboards: presenter.NewKeyboardBuilder(),
		clock:     clock,
	}
}

// Start handles /start.
func (h *BasicsHandler) Start(ctx context.Context, req Request) (*presenter.View, error) {
	return &presenter.View{
		Text:     presenter.StartText(),
		Keyboard: h.keyboards.StartKeyboard(),
	}, nil
}

// Help handles /help.
func (h *BasicsHandler) Help(ctx context.Context, req Request) (*presenter.View, error) {
	return &presenter.View{Text: presenter.HelpText()}, nil
}

// About handles /about.
func (h *BasicsHandler) About(ctx context.Context, req Request) (*presenter.View, error) {
	return &presenter.View{Text: presenter.AboutText()}, nil
}

// Quote handles /quote. The quote rotates daily rather than randomly
// so everyone sees the same one.
func (h *BasicsHandler) Quote(ctx context.Context, req Request) (*presenter.View, error) {
	return &presenter.View{Text: presenter.QuoteText(h.clock.Now())}, nil
}
