// Package shared contains common domain types, errors and events
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")
	ErrConflict        = errors.New("conflicting operation in progress")
	ErrExpired         = errors.New("expired")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "learner", "pomodoro"
	Op      string // Operation that failed, e.g., "RecordAnswer", "Start"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Learner domain errors
var (
	ErrLearnerNotFound  = NewDomainError("learner", "Find", ErrNotFound, "learner not found")
	ErrInvalidUserID    = NewDomainError("learner", "Validate", ErrInvalidID, "invalid user ID")
	ErrUnknownTrack     = NewDomainError("learner", "SelectTrack", ErrInvalidInput, "unknown certification track")
	ErrInvalidTopic     = NewDomainError("learner", "RecordAnswer", ErrEmptyValue, "topic cannot be empty")
	ErrNonPositiveTime  = NewDomainError("learner", "AddStudyTime", ErrValueOutOfRange, "study minutes must be positive")
	ErrInvalidTimestamp = NewDomainError("learner", "RecordAnswer", ErrInvalidInput, "invalid activity timestamp")
)

// Pomodoro domain errors
var (
	ErrSessionNotFound      = NewDomainError("pomodoro", "Stop", ErrNotFound, "no running session")
	ErrSessionAlreadyActive = NewDomainError("pomodoro", "Start", ErrConflict, "session already running")
	ErrUnknownSessionType   = NewDomainError("pomodoro", "Start", ErrInvalidInput, "unknown session type")
	ErrSessionTerminal      = NewDomainError("pomodoro", "Transition", ErrStateTransition, "session already in terminal state")
)

// External service errors
var (
	ErrAIUnavailable      = NewDomainError("openai", "Request", ErrServiceUnavailable, "AI API is unavailable")
	ErrAIRateLimited      = NewDomainError("openai", "Request", ErrRateLimited, "AI API rate limit exceeded")
	ErrAIInvalidResponse  = NewDomainError("openai", "Parse", ErrExternalService, "invalid response from AI API")
	ErrTelegramAPIFailed  = NewDomainError("telegram", "Send", ErrExternalService, "Telegram API request failed")
	ErrTelegramBadPayload = NewDomainError("telegram", "Parse", ErrExternalService, "malformed Telegram update")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if the error is a conflict error.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsExternalService checks if the error is from an external service.
func IsExternalService(err error) bool {
	return errors.Is(err, ErrExternalService) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}

// IsRetryable checks if the operation can be retried.
// Nothing in the core is retried internally; this is consulted only by
// the network-facing clients.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrTimeout)
}
