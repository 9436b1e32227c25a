// Package apperr defines the error kinds shared by every module. Services wrap
// one of these with context and handlers translate them into HTTP statuses.
package apperr

import (
	"database/sql"
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalid      = errors.New("invalid request")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
)

// NotFound wraps ErrNotFound with the name of the missing entity.
func NotFound(entity string) error {
	return fmt.Errorf("%s %w", entity, ErrNotFound)
}

// Invalid wraps ErrInvalid with a human readable reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalid)
}

// Forbidden wraps ErrForbidden with a human readable reason.
func Forbidden(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrForbidden)
}

// Conflict wraps ErrConflict with a human readable reason.
func Conflict(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrConflict)
}

// FromRow converts sql.ErrNoRows into a not-found error for entity and leaves
// every other error untouched.
func FromRow(err error, entity string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return NotFound(entity)
	}
	return err
}
