package middleware

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/studyhub/comptia-study-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECOVERY MIDDLEWARE
// Catches panics in handlers so a bad update can never take the polling
// loop down. Users get a friendly message, the log gets the stack.
// ══════════════════════════════════════════════════════════════════════════════

// RecoveryConfig holds configuration for the recovery middleware.
type RecoveryConfig struct {
	// UserErrorMessage is sent to the user when a panic is recovered.
	UserErrorMessage string

	// Logger records recovered panics.
	Logger *logger.Logger
}

// DefaultRecoveryConfig returns sensible defaults.
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		UserErrorMessage: "😔 <b>Something went wrong.</b>\n\nPlease try again in a minute.",
		Logger:           logger.Default(),
	}
}

// RecoveryResult reports whether a panic occurred during handler execution.
type RecoveryResult struct {
	// Recovered is true when a panic was caught.
	Recovered bool

	// UserMessage is the message to send to the user if recovered.
	UserMessage string
}

// Recovery wraps handler execution with panic recovery.
type Recovery struct {
	config RecoveryConfig
	log    *logger.Logger
}

// NewRecovery creates a new recovery middleware.
func NewRecovery(config RecoveryConfig) *Recovery {
	if config.UserErrorMessage == "" {
		config.UserErrorMessage = DefaultRecoveryConfig().UserErrorMessage
	}
	if config.Logger == nil {
		config.Logger = logger.Default()
	}
	return &Recovery{config: config, log: config.Logger}
}

// Run executes fn, converting a panic into a RecoveryResult. The
// handler error (if any) passes through untouched.
func (r *Recovery) Run(telegramID int64, operation string, fn func() error) (result RecoveryResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("panic recovered in handler",
				logger.String("operation", operation),
				logger.Int64("telegram_id", telegramID),
				logger.F("panic", fmt.Sprintf("%v", p)),
				logger.String("stack", string(debug.Stack())),
				logger.Time("at", time.Now()),
			)
			result = RecoveryResult{
				Recovered:   true,
				UserMessage: r.config.UserErrorMessage,
			}
			err = nil
		}
	}()

	return RecoveryResult{}, fn()
}
