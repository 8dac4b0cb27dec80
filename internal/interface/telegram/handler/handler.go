// Package handler contains Telegram command handlers. Handlers parse
// the incoming request, call application commands and queries, and
// return a presenter view; sending is the router's job.
package handler

import (
	"context"

	"github.com/studyhub/comptia-study-hub/internal/interface/telegram/presenter"
)

// Request carries one parsed command invocation.
type Request struct {
	// UserID is the chat-platform identifier of the learner.
	UserID string

	// ChatID is where the response goes.
	ChatID int64

	// MessageID is the triggering message.
	MessageID int64

	// Args is the text after the command, trimmed.
	Args string
}

// CallbackRequest carries one inline keyboard callback.
type CallbackRequest struct {
	// UserID is the chat-platform identifier of the learner.
	UserID string

	// ChatID and MessageID locate the message carrying the keyboard.
	ChatID    int64
	MessageID int64

	// Data is the raw callback payload.
	Data string
}

// Func handles a command and returns the view to send.
type Func func(ctx context.Context, req Request) (*presenter.View, error)

// CallbackFunc handles a callback and returns the view to edit the
// source message into. A nil view leaves the message untouched.
type CallbackFunc func(ctx context.Context, req CallbackRequest) (*presenter.View, error)
