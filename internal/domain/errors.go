// Package domain contains domain errors used throughout the application.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrMissingField     = errors.New("missing required field")
	ErrInvalidField     = errors.New("invalid field value")
	ErrHubNotRunning    = errors.New("event hub is not running")
	ErrSubscriberClosed = errors.New("subscriber is closed")
)

// Error codes for client responses.
const (
	ErrCodeSessionNotFound = "SESSION_NOT_FOUND"
	ErrCodeInvalidPayload  = "INVALID_PAYLOAD"
	ErrCodeTmuxError       = "TMUX_ERROR"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)

// TmuxError represents a failure reported by a tmux command.
type TmuxError struct {
	Op     string // tmux subcommand that failed
	Target string // pane target, if any
	Stderr string // stderr text, if any
	Err    error  // underlying error
}

func (e *TmuxError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("tmux %s %s: %s: %v", e.Op, e.Target, e.Stderr, e.Err)
	}
	return fmt.Sprintf("tmux %s %s: %v", e.Op, e.Target, e.Err)
}

func (e *TmuxError) Unwrap() error {
	return e.Err
}

// NewTmuxError creates a new TmuxError.
func NewTmuxError(op, target, stderr string, err error) *TmuxError {
	return &TmuxError{
		Op:     op,
		Target: target,
		Stderr: stderr,
		Err:    err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
