package services

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable error classification surfaced to callers.
type ErrorKind string

const (
	// ErrKindValidation marks a rejected input; nothing was processed.
	ErrKindValidation ErrorKind = "validation_error"
	// ErrKindBackend marks a generation backend failure or timeout; session
	// state is unchanged and the caller may retry with the same context.
	ErrKindBackend ErrorKind = "generation_backend_error"
	// ErrKindSideEffect marks a repository write failure during side-effect
	// coordination. Never surfaced to users.
	ErrKindSideEffect ErrorKind = "side_effect_error"
)

// FallbackReply is the user-safe message returned when the backend fails.
const FallbackReply = "Sorry, I encountered an error. Please try again."

// TurnError is a classified turn-processing failure with a user-safe message.
// Internal details stay in the wrapped error and never reach API responses.
type TurnError struct {
	Kind    ErrorKind
	Message string // user-safe
	Err     error
}

func (e *TurnError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *TurnError) Unwrap() error { return e.Err }

// NewValidationError reports a rejected input message.
func NewValidationError(message string) *TurnError {
	return &TurnError{Kind: ErrKindValidation, Message: message}
}

// NewBackendError wraps an upstream generation failure.
func NewBackendError(err error) *TurnError {
	return &TurnError{Kind: ErrKindBackend, Message: FallbackReply, Err: err}
}

// KindOf extracts the classification from err, defaulting to backend failure
// so unexpected errors still surface with a user-safe message.
func KindOf(err error) ErrorKind {
	var te *TurnError
	if errors.As(err, &te) {
		return te.Kind
	}
	return ErrKindBackend
}

// UserMessage extracts the user-safe message from err.
func UserMessage(err error) string {
	var te *TurnError
	if errors.As(err, &te) {
		return te.Message
	}
	return FallbackReply
}
