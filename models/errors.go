package models

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound covers both absent resources and resources owned by someone else.
	ErrNotFound      = errors.New("not found")
	ErrInvalidCode   = errors.New("invalid confirmation code")
	ErrUpstream      = errors.New("upstream failure")
	ErrValidation    = errors.New("validation failed")
	ErrExportExpired = errors.New("export has expired")
	ErrConflict      = errors.New("conflict")
	ErrUnauthorized  = errors.New("unauthorized")
	// ErrUnavailable is a temporary refusal; the same request may succeed later.
	ErrUnavailable   = errors.New("temporarily unavailable")
)

// ValidationErrors collects the messages returned by a form's Validate
type ValidationErrors []string

func (ve ValidationErrors) Error() string {
	return ErrValidation.Error() + ": " + strings.Join(ve, ", ")
}

// Is lets errors.Is(err, ErrValidation) match
func (ve ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}

// HasErrors returns true if there are validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// NewValidationError returns nil when there are no messages
func NewValidationError(messages []string) error {
	if len(messages) == 0 {
		return nil
	}
	return ValidationErrors(messages)
}
