/*
status.go - Approval status machine for ledger entries

PURPOSE:
  The only mutable thing about a ledger entry is its approval status.
  This file defines the allowed transitions and nothing else; applying a
  transition (with the optimistic expected-status check) is the entry
  log's job.

STATE MACHINE:
  DRAFT -> SUBMITTED -> APPROVED
                     -> REJECTED (terminal)

  - DRAFT -> APPROVED directly is NOT permitted; submission is mandatory.
  - REJECTED is terminal: re-submission is modeled as a NEW entry, never
    as a REJECTED -> DRAFT transition.

SEE ALSO:
  - entry.go: the entries carrying a Status
  - store/*: optimistic transition application
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSubmitted Status = "SUBMITTED"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// transitions lists the permitted edges of the status machine.
var transitions = map[Status][]Status{
	StatusDraft:     {StatusSubmitted},
	StatusSubmitted: {StatusApproved, StatusRejected},
	StatusApproved:  {},
	StatusRejected:  {}, // terminal: re-submission is a new entry
}

// CanTransition reports whether from -> to is a permitted edge.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition returns an *InvalidTransitionError for forbidden edges.
func CheckTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrInvalidTransition is returned for a forbidden status edge.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrStatusConflict is returned when an optimistic transition finds
	// the entry in a different status than the caller expected. Retry
	// after re-reading the entry.
	ErrStatusConflict = errors.New("entry status changed concurrently")

	// ErrEntryNotFound is returned when a referenced entry doesn't exist.
	ErrEntryNotFound = errors.New("ledger entry not found")
)

// InvalidTransitionError reports the forbidden edge.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition entry from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }
