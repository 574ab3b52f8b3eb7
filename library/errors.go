/*
errors.go - Centralized error types for the library domain

PURPOSE:
  All domain error kinds in one place. Callers classify with errors.Is
  against the sentinels; the structured types carry enough context for a
  useful message and unwrap to the matching sentinel.

ERROR KINDS:
  ErrValidation   Missing/invalid input, caller must correct it
  ErrNotFound     Referenced entity does not exist
  ErrUnavailable  Business rule violation (no copies left)
  ErrInvalidState Operation not applicable to the entity's current state

  Every error is terminal for the call: there is no retry logic anywhere
  in this package.

SEE ALSO:
  - workflow.go: Primary producer of these errors
  - api: Maps them to HTTP status codes
*/
package library

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned when required input is missing or malformed.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable is returned when a book has no copies left to issue.
	ErrUnavailable = errors.New("no copies available")

	// ErrInvalidState is returned when an operation does not apply to the
	// entity's current state, e.g. returning a book that was never borrowed
	// or re-approving a resolved request.
	ErrInvalidState = errors.New("invalid state for operation")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports a missing or invalid field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("missing required field %q", e.Field)
	}
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError reports a missing entity by kind and id.
type NotFoundError struct {
	Kind string // "book", "request", "user"
	ID   int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// UnavailableError reports a book with no copies left.
type UnavailableError struct {
	BookID int
	Title  string
}

func (e *UnavailableError) Error() string {
	if e.Title != "" {
		return fmt.Sprintf("no copies of %q (book %d) available", e.Title, e.BookID)
	}
	return fmt.Sprintf("no copies of book %d available", e.BookID)
}

func (e *UnavailableError) Unwrap() error { return ErrUnavailable }

// InvalidStateError reports an operation that does not apply to the
// entity's current state.
type InvalidStateError struct {
	Op     string
	Detail string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Detail)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input
// or a business rule, as opposed to a storage failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrInvalidState)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
