/*
entry.go - Immutable financial ledger entries (time logs and expenses)

PURPOSE:
  A ledger entry is a priced, status-tracked record of work or spend.
  Its financial fields (SubCost, ClientBill, Margin*) are computed ONCE
  by the rate resolver at creation and never change afterwards; only the
  approval status (and audit timestamps) are mutable.

WHY APPEND-ONCE?
  Financial reports must reconstruct what WAS billed, not what today's
  rate cards would bill. If a rate card changes, existing entries keep
  their historical figures. The entry log interface has no operation
  that can rewrite a financial field; immutability is enforced by the
  type of the interface, not by discipline.

ENTRY KINDS:
  TimeLog:  hours worked at a resolved pay/bill rate. Carries the full
            margin breakdown.
  Expense:  billed pass-through. ClientBill == Amount, margin == 0 by
            design (no markup on expenses).

SEE ALSO:
  - status.go: the one mutable field's state machine
  - service.go: entry creation through the resolver
  - tracking/tracking.go: reporting rollups over entries
*/
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/rate-engine/ratecard"
)

// =============================================================================
// TIME LOG
// =============================================================================

// TimeLog is a priced record of hours worked.
// Financial fields are write-once, set by the resolver at creation.
type TimeLog struct {
	ID              string
	CompanyID       string
	ProjectID       string
	SubcontractorID string
	ClientID        string

	RoleName  string
	Timeframe ratecard.TimeframeRef
	Date      time.Time

	HoursRegular decimal.Decimal
	HoursOT      decimal.Decimal

	// Resolved once at creation; immutable thereafter.
	SubCost     decimal.Decimal
	ClientBill  decimal.Decimal
	MarginValue decimal.Decimal
	MarginPct   decimal.Decimal
	Currency    string

	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TotalHours returns regular plus overtime hours.
func (t TimeLog) TotalHours() decimal.Decimal {
	return t.HoursRegular.Add(t.HoursOT)
}

// =============================================================================
// EXPENSE
// =============================================================================

// Expense is a billed pass-through spend record: the client is billed
// exactly the amount, with zero margin.
type Expense struct {
	ID              string
	CompanyID       string
	ProjectID       string
	SubcontractorID string
	ClientID        string

	Category string
	Date     time.Time

	Amount   decimal.Decimal
	Quantity *decimal.Decimal // optional, e.g. miles
	UnitRate *decimal.Decimal // optional, e.g. rate per mile
	Currency string

	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ClientBill is the pass-through billing amount.
func (e Expense) ClientBill() decimal.Decimal { return e.Amount }

// =============================================================================
// ENTRY LOG - Append-once persistence with status-only mutation
// =============================================================================

// Filter narrows entry listings. Zero fields match everything.
type Filter struct {
	CompanyID       string
	ProjectID       string
	SubcontractorID string
	From            time.Time
	To              time.Time
}

// EntryLog persists ledger entries. The interface deliberately has no
// update operation for financial fields: entries are appended once and
// only their status moves, via optimistic expected-status transitions.
type EntryLog interface {
	AppendTimeLog(ctx context.Context, t TimeLog) error
	AppendExpense(ctx context.Context, e Expense) error

	GetTimeLog(ctx context.Context, id string) (*TimeLog, error)
	GetExpense(ctx context.Context, id string) (*Expense, error)

	ListTimeLogs(ctx context.Context, f Filter) ([]TimeLog, error)
	ListExpenses(ctx context.Context, f Filter) ([]Expense, error)

	// TransitionTimeLog / TransitionExpense move an entry's status.
	// The entry must currently be in `from`; otherwise ErrStatusConflict.
	// Forbidden edges fail with ErrInvalidTransition.
	TransitionTimeLog(ctx context.Context, id string, from, to Status) error
	TransitionExpense(ctx context.Context, id string, from, to Status) error

	// SubmitBatch moves a set of DRAFT entries to SUBMITTED atomically:
	// if any entry is missing or not in DRAFT, none transition.
	SubmitBatch(ctx context.Context, timeLogIDs, expenseIDs []string) error
}
