/*
errors.go - Centralized error types for the rate-card domain

PURPOSE:
  All domain error types in one place for consistency and discoverability.
  Boundary packages (api, store) wrap these errors with transport context.

ERROR CATEGORIES:
  1. Validation errors - rate bounds, overlapping windows (save time)
  2. Resolution errors - no matching rate for an entry (creation time)
  3. Assignment errors - duplicate live assignments
  4. Sync errors - per-card failures during template sync (non-fatal)

USAGE:
  Callers branch with errors.Is / errors.As:

    if errors.Is(err, ratecard.ErrRateNotFound) {
        // entry cannot be priced; block submission
    }

SEE ALSO:
  - money/money.go: InvalidRateError (rate bound violations)
  - resolver.go: raises RateNotFoundError
  - sync.go: collects SyncError per card
*/
package ratecard

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrRateNotFound is returned when no rate entry matches a
	// (role, timeframe, date) lookup during resolution. The entry cannot
	// be priced; there is no implicit fallback rate.
	ErrRateNotFound = errors.New("no matching rate entry")

	// ErrDuplicateAssignment is returned when a second live assignment
	// would exist for the same (subcontractor, client) pair.
	ErrDuplicateAssignment = errors.New("duplicate rate assignment for pair")

	// ErrOverlappingRateWindows is returned at save time when two rate
	// entries share a (role, timeframe) and their date ranges overlap.
	ErrOverlappingRateWindows = errors.New("overlapping rate windows")

	// ErrTemplateIsDefault is returned when deleting a company's default
	// template. The default must be reassigned first.
	ErrTemplateIsDefault = errors.New("template is the company default")

	// ErrTemplateNotFound is returned when a referenced template doesn't exist.
	ErrTemplateNotFound = errors.New("template not found")

	// ErrCardNotFound is returned when a referenced rate card doesn't exist.
	ErrCardNotFound = errors.New("rate card not found")

	// ErrAssignmentNotFound is returned when no assignment exists for a pair.
	ErrAssignmentNotFound = errors.New("rate assignment not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// RateNotFoundError reports a failed rate lookup during resolution.
type RateNotFoundError struct {
	Side      CardKind // which card was searched (pay or bill)
	Role      string
	Timeframe TimeframeRef
	Date      time.Time
}

func (e *RateNotFoundError) Error() string {
	return fmt.Sprintf("no %s rate for role %q, timeframe %s on %s",
		e.Side, e.Role, e.Timeframe, e.Date.Format("2006-01-02"))
}

func (e *RateNotFoundError) Unwrap() error { return ErrRateNotFound }

// DuplicateAssignmentError reports a live-assignment conflict for a pair.
type DuplicateAssignmentError struct {
	SubcontractorID string
	ClientID        string
	ExistingID      string
}

func (e *DuplicateAssignmentError) Error() string {
	return fmt.Sprintf("assignment already exists for subcontractor %s / client %s (id: %s)",
		e.SubcontractorID, e.ClientID, e.ExistingID)
}

func (e *DuplicateAssignmentError) Unwrap() error { return ErrDuplicateAssignment }

// OverlapError reports which entries collide at card save time.
type OverlapError struct {
	Role      string
	Timeframe TimeframeRef
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("overlapping rate windows for role %q, timeframe %s",
		e.Role, e.Timeframe)
}

func (e *OverlapError) Unwrap() error { return ErrOverlappingRateWindows }

// SyncError records a single card's failure during a template sync batch.
// Not fatal: the batch continues and collects these.
type SyncError struct {
	CardID string
	Err    error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync failed for card %s: %v", e.CardID, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrRateNotFound) ||
		errors.Is(err, ErrDuplicateAssignment) ||
		errors.Is(err, ErrOverlappingRateWindows) ||
		errors.Is(err, ErrTemplateIsDefault)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound) ||
		errors.Is(err, ErrCardNotFound) ||
		errors.Is(err, ErrAssignmentNotFound)
}
