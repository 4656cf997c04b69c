/*
assignment.go - Binding a (subcontractor, client) pair to its rate cards

PURPOSE:
  An assignment says: when THIS subcontractor works for THIS client, pay
  them from the pay card and bill the client from the bill card. It is
  the one place where a card's pay/bill kind is fixed.

INVARIANT:
  At most ONE live assignment per (subcontractor, client) pair. Saving a
  new assignment for a pair atomically supersedes any prior one; two
  concurrent saves must not leave two live assignments. Stores enforce
  this with a transactional upsert (or an equivalent single-writer
  section), not with a read-then-write gap.

SEE ALSO:
  - card.go: the cards an assignment references
  - ledger/service.go: entry creation resolves rates through an assignment
*/
package ratecard

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// RATE ASSIGNMENT
// =============================================================================

// Assignment binds a (subcontractor, client) pair to a pay card and a
// bill card. Either card reference may be empty; resolution then treats
// that side as absent.
type Assignment struct {
	ID              string
	CompanyID       string
	SubcontractorID string
	ClientID        string

	PayCardID  string
	BillCardID string

	CreatedAt time.Time
}

// Validate checks structural requirements before persistence.
func (a *Assignment) Validate() error {
	if a.SubcontractorID == "" || a.ClientID == "" {
		return fmt.Errorf("assignment requires subcontractor and client ids")
	}
	if a.CompanyID == "" {
		return fmt.Errorf("assignment company id is required")
	}
	if a.PayCardID == "" && a.BillCardID == "" {
		return fmt.Errorf("assignment references no rate cards")
	}
	return nil
}

// =============================================================================
// ASSIGNMENT STORE - Persistence interface
// =============================================================================

// AssignmentStore handles assignment persistence.
type AssignmentStore interface {
	// SaveAssignment upserts the assignment for its (subcontractor,
	// client) pair, atomically superseding any existing one. After a
	// successful save exactly one live assignment exists for the pair.
	SaveAssignment(ctx context.Context, a Assignment) error

	// GetAssignment returns the live assignment for a pair, or
	// ErrAssignmentNotFound.
	GetAssignment(ctx context.Context, subcontractorID, clientID string) (*Assignment, error)

	ListAssignments(ctx context.Context, companyID string) ([]Assignment, error)

	DeleteAssignment(ctx context.Context, id string) error
}
