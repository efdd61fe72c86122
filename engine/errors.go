/*
errors.go - Centralized error types for the attendance engine

PURPOSE:
  All error kinds in one place. Callers match with errors.Is/errors.As;
  the HTTP boundary maps them to machine-readable reason strings.

ERROR CATEGORIES:
  1. Config errors  - Malformed HH:MM text, fatal to a schedule build
  2. Punch errors   - Duplicate submissions, unknown subjects
  3. Store errors   - Missing records

NOT ERRORS BY DESIGN:
  A punch that resolves no governing shift is a documented fallback path
  (raw elapsed time), never an error. Classification ambiguity cannot occur:
  window priority order resolves it deterministically.
*/
package engine

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidConfig is returned when shift configuration text cannot be
	// parsed. Fatal to the single schedule build that read it.
	ErrInvalidConfig = errors.New("invalid shift configuration")

	// ErrDuplicateRequest is returned when an equivalent punch was recorded
	// within the duplicate guard's trailing window. Callers treat it as a
	// non-fatal "already recorded".
	ErrDuplicateRequest = errors.New("duplicate punch request")

	// ErrSubjectNotFound is returned for an unknown subject id.
	ErrSubjectNotFound = errors.New("subject not found")

	// ErrShiftNotFound is returned when a stored shift reference resolves to
	// no definition. The freezer treats this like an absent reference.
	ErrShiftNotFound = errors.New("shift definition not found")

	// ErrPunchNotFound is returned when a punch id resolves to no record.
	ErrPunchNotFound = errors.New("punch not found")

	// ErrLedgerEntryNotFound is returned for a missing ledger key.
	ErrLedgerEntryNotFound = errors.New("ledger entry not found")

	// ErrInvalidTransition is returned for an illegal punch status change.
	ErrInvalidTransition = errors.New("invalid punch status transition")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidConfigError reports the offending configuration field and text.
type InvalidConfigError struct {
	Field  string // which HH:MM field, when known (e.g. "amIn")
	Value  string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid shift config %s=%q: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid shift config %q: %s", e.Value, e.Reason)
}

func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// DuplicateRequestError reports which punch tripped the guard.
type DuplicateRequestError struct {
	SubjectID SubjectID
	Kind      PunchKind
	Within    time.Duration
}

func (e *DuplicateRequestError) Error() string {
	return fmt.Sprintf("duplicate %s punch for %s within %s", e.Kind, e.SubjectID, e.Within)
}

func (e *DuplicateRequestError) Unwrap() error { return ErrDuplicateRequest }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrDuplicateRequest) ||
		errors.Is(err, ErrInvalidTransition)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSubjectNotFound) ||
		errors.Is(err, ErrShiftNotFound) ||
		errors.Is(err, ErrPunchNotFound) ||
		errors.Is(err, ErrLedgerEntryNotFound)
}
