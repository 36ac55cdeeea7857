/*
errors.go - Centralized error types for the overtime engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The attendance package and the stores return these; the API maps them
  to HTTP status codes.

ERROR CATEGORIES:
  1. Input errors - Rejected before any mutation (empty text, no owner)
  2. Line errors - Counted in a pass outcome, never abort the pass
  3. Store errors - Abort the remaining lines of a pass

USAGE:
  if errors.Is(err, ledger.ErrDuplicateMember) {
      // 409
  }

  var aborted *ledger.PassAbortedError
  if errors.As(err, &aborted) {
      log.Printf("pass stopped at line %d", aborted.Line)
  }

SEE ALSO:
  - store.go: Store contracts returning these errors
  - attendance/engine.go: Produces line and pass errors
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEmptyText is returned when the pasted attendance text is blank.
	ErrEmptyText = errors.New("attendance text is empty")

	// ErrNoOwner is returned when no authenticated owner is available.
	ErrNoOwner = errors.New("no authenticated owner")

	// ErrInvalidMode is returned for a mode other than check-in or check-out.
	ErrInvalidMode = errors.New("invalid attendance mode")

	// ErrInvalidClockTime is returned when a time is not a valid HH:MM.
	ErrInvalidClockTime = errors.New("invalid clock time")

	// ErrInvalidShift is returned for an unknown shift.
	ErrInvalidShift = errors.New("invalid shift")

	// ErrInvalidShiftStart is returned for a shift start outside 07:00, 08:00, 19:00, 20:00.
	ErrInvalidShiftStart = errors.New("invalid shift start")

	// ErrInvalidName is returned when a real name is empty after normalization.
	ErrInvalidName = errors.New("real name is required")

	// ErrInvalidLimit is returned when a monthly limit is not positive.
	ErrInvalidLimit = errors.New("monthly limit must be greater than zero")

	// ErrInvalidPeriod is returned for a month outside 1-12 or a year outside 2000-2100.
	ErrInvalidPeriod = errors.New("invalid year or month")

	// ErrMemberNotFound is returned when a staff member doesn't exist for the owner.
	ErrMemberNotFound = errors.New("staff member not found")

	// ErrDuplicateMember is returned when a real name already exists on the roster.
	ErrDuplicateMember = errors.New("staff member already exists")

	// ErrCandidateNotFound is returned when editing a name that isn't staged.
	ErrCandidateNotFound = errors.New("staged candidate not found")

	// ErrNothingSelected is returned when confirming staging with no selected candidate.
	ErrNothingSelected = errors.New("no staged candidate selected")

	// ErrImplausibleTime is the line-level error for a time that doesn't fit the mode.
	ErrImplausibleTime = errors.New("time does not match attendance mode")

	// ErrAmbiguousName is the line-level error for a name matching several members.
	ErrAmbiguousName = errors.New("name matches more than one staff member")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ImplausibleTimeError reports a check-in at or after noon, or a check-out before noon.
type ImplausibleTimeError struct {
	RealName string
	Mode     string
	Time     string
}

func (e *ImplausibleTimeError) Error() string {
	return fmt.Sprintf("%s: %s looks wrong for %s", e.RealName, e.Time, e.Mode)
}

func (e *ImplausibleTimeError) Unwrap() error { return ErrImplausibleTime }

// AmbiguousNameError reports a name resolving to several roster entries.
type AmbiguousNameError struct {
	RealName string
	Matches  []MemberID
}

func (e *AmbiguousNameError) Error() string {
	return fmt.Sprintf("%s matches %d staff members", e.RealName, len(e.Matches))
}

func (e *AmbiguousNameError) Unwrap() error { return ErrAmbiguousName }

// PassAbortedError reports a store failure that stopped a parse pass.
// Lines before Line stay applied.
type PassAbortedError struct {
	Line int // 1-based index of the line being applied
	Err  error
}

func (e *PassAbortedError) Error() string {
	return fmt.Sprintf("attendance pass aborted at line %d: %v", e.Line, e.Err)
}

func (e *PassAbortedError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrEmptyText) ||
		errors.Is(err, ErrInvalidMode) ||
		errors.Is(err, ErrInvalidClockTime) ||
		errors.Is(err, ErrInvalidShift) ||
		errors.Is(err, ErrInvalidShiftStart) ||
		errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrInvalidLimit) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrNothingSelected) ||
		errors.Is(err, ErrNoOwner)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrMemberNotFound) ||
		errors.Is(err, ErrCandidateNotFound)
}

// IsConflict returns true if the error indicates a uniqueness violation.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateMember)
}
