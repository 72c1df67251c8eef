package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("already exists")

	// ErrSlugExhausted means the unique-slug probe hit its retry bound.
	// Should not happen outside pathological data sets.
	ErrSlugExhausted = errors.New("slug candidates exhausted")
)

// ValidationError rejects malformed input before any mutation happens.
// Field names the offending input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
