// Package presenter formats data for Telegram display.
// Presenters convert read models into HTML message text and inline
// keyboards; they never talk to the Bot API themselves.
package presenter

import (
	"fmt"

	"github.com/studyhub/comptia-study-hub/config"
)

// ══════════════════════════════════════════════════════════════════════════════
// INLINE KEYBOARD TYPES
// Library-agnostic keyboard representation. The router converts these
// to the Bot API wire format before sending.
// ══════════════════════════════════════════════════════════════════════════════

// InlineKeyboard represents an inline keyboard.
type InlineKeyboard struct {
	Rows [][]InlineButton
}

// InlineButton represents a single inline button.
type InlineButton struct {
	// Text is the button label.
	Text string

	// CallbackData is the callback payload (for callback buttons).
	CallbackData string

	// URL opens a link instead of firing a callback.
	URL string
}

// NewInlineKeyboard creates a new empty inline keyboard.
func NewInlineKeyboard() *InlineKeyboard {
	return &InlineKeyboard{Rows: make([][]InlineButton, 0)}
}

// AddRow adds a row of buttons.
func (k *InlineKeyboard) AddRow(buttons ...InlineButton) *InlineKeyboard {
	k.Rows = append(k.Rows, buttons)
	return k
}

// CallbackButton creates a callback button.
func CallbackButton(text, callbackData string) InlineButton {
	return InlineButton{Text: text, CallbackData: callbackData}
}

// ══════════════════════════════════════════════════════════════════════════════
// KEYBOARD BUILDER
// ══════════════════════════════════════════════════════════════════════════════

// KeyboardBuilder builds inline keyboards for the bot's handlers.
type KeyboardBuilder struct{}

// NewKeyboardBuilder creates a new KeyboardBuilder.
func NewKeyboardBuilder() *KeyboardBuilder {
	return &KeyboardBuilder{}
}

// QuizAnswersKeyboard lays out one button per option, a row each.
// Callback data carries only the chosen index; the pending question
// lives server-side.
func (b *KeyboardBuilder) QuizAnswersKeyboard(optionCount int) *InlineKeyboard {
	kb := NewInlineKeyboard()
	labels := []string{"A", "B", "C", "D", "E", "F"}
	for i := 0; i < optionCount && i < len(labels); i++ {
		kb.AddRow(CallbackButton(labels[i], fmt.Sprintf("quiz:%d", i)))
	}
	return kb
}

// TrackSelectionKeyboard lists the certification catalog.
func (b *KeyboardBuilder) TrackSelectionKeyboard() *InlineKeyboard {
	kb := NewInlineKeyboard()
	for _, key := range config.CertificationKeys {
		kb.AddRow(CallbackButton(key, "track:"+key))
	}
	return kb
}

// StartKeyboard points a fresh user at the two first steps.
func (b *KeyboardBuilder) StartKeyboard() *InlineKeyboard {
	return NewInlineKeyboard().
		AddRow(
			CallbackButton("📚 Pick a certification", "cmd:certs"),
			CallbackButton("❓ Help", "cmd:help"),
		)
}

// StatsKeyboard offers the follow-up views from the stats card.
func (b *KeyboardBuilder) StatsKeyboard() *InlineKeyboard {
	return NewInlineKeyboard().
		AddRow(
			CallbackButton("🔬 Analysis", "cmd:analysis"),
			CallbackButton("🏆 Leaderboard", "cmd:leaderboard"),
		).
		AddRow(
			CallbackButton("🔄 Refresh", "cmd:stats"),
		)
}

// PomodoroKeyboard offers the session type choices.
func (b *KeyboardBuilder) PomodoroKeyboard() *InlineKeyboard {
	return NewInlineKeyboard().
		AddRow(
			CallbackButton("📖 Study 25m", "pomodoro:study"),
			CallbackButton("☕ Break 5m", "pomodoro:short_break"),
		).
		AddRow(
			CallbackButton("🌴 Long break 15m", "pomodoro:long_break"),
		)
}

// StopPomodoroKeyboard is attached to an active-session status card.
func (b *KeyboardBuilder) StopPomodoroKeyboard() *InlineKeyboard {
	return NewInlineKeyboard().
		AddRow(
			CallbackButton("⏹ Stop", "pomodoro:stop"),
			CallbackButton("🔄 Refresh", "cmd:pomodoro"),
		)
}
