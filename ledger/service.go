/*
service.go - Entry creation: the single place resolution happens

PURPOSE:
  Glue between the record-creation boundary and the pure core. Given the
  pricing coordinates of a time log, the service loads the pair's rate
  assignment and cards, runs the resolver EXACTLY ONCE, and appends the
  priced entry in DRAFT. If the pay rate cannot be resolved the entry is
  refused (RateNotFoundError), never zero-filled.

EXPENSES:
  Expenses skip the resolver entirely: the client is billed exactly the
  amount (margin 0). When the amount is omitted but quantity and unit
  rate are supplied, the amount is derived as Round(quantity * unitRate).

SEE ALSO:
  - ratecard/resolver.go: the pricing algorithm
  - entry.go: the append-once log
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/rate-engine/money"
	"github.com/warp/rate-engine/ratecard"
)

// =============================================================================
// SERVICE
// =============================================================================

// Service creates priced ledger entries.
type Service struct {
	Cards       ratecard.CardStore
	Assignments ratecard.AssignmentStore
	Entries     EntryLog

	// Now supplies creation timestamps; defaults to time.Now (UTC).
	// The WORK date is always caller-supplied; the core reads no clock
	// for anything that affects pricing.
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// =============================================================================
// TIME LOG CREATION
// =============================================================================

// NewTimeLogInput carries everything needed to create a time log.
type NewTimeLogInput struct {
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
	Currency     string
}

// CreateTimeLog resolves rates through the pair's assignment and appends
// a DRAFT entry. Returns the priced entry, or a *RateNotFoundError when
// the pay rate cannot be resolved.
func (s *Service) CreateTimeLog(ctx context.Context, in NewTimeLogInput) (*TimeLog, error) {
	assignment, err := s.Assignments.GetAssignment(ctx, in.SubcontractorID, in.ClientID)
	if err != nil {
		return nil, err
	}

	payCard, err := s.loadCard(ctx, assignment.PayCardID)
	if err != nil {
		return nil, err
	}
	billCard, err := s.loadCard(ctx, assignment.BillCardID)
	if err != nil {
		return nil, err
	}

	res, err := ratecard.Resolve(ratecard.ResolveInput{
		Role:         in.RoleName,
		Timeframe:    in.Timeframe,
		Date:         in.Date,
		HoursRegular: in.HoursRegular,
		HoursOT:      in.HoursOT,
	}, payCard, billCard)
	if err != nil {
		return nil, err
	}

	now := s.now()
	entry := TimeLog{
		ID:              in.ID,
		CompanyID:       in.CompanyID,
		ProjectID:       in.ProjectID,
		SubcontractorID: in.SubcontractorID,
		ClientID:        in.ClientID,
		RoleName:        in.RoleName,
		Timeframe:       in.Timeframe,
		Date:            ratecard.DateOnly(in.Date),
		HoursRegular:    in.HoursRegular,
		HoursOT:         in.HoursOT,
		SubCost:         res.SubCost,
		ClientBill:      res.ClientBill,
		MarginValue:     res.MarginValue,
		MarginPct:       res.MarginPct,
		Currency:        in.Currency,
		Status:          StatusDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.Entries.AppendTimeLog(ctx, entry); err != nil {
		return nil, fmt.Errorf("appending time log: %w", err)
	}
	return &entry, nil
}

// loadCard tolerates an empty card id (that side of the assignment is
// simply absent) but propagates store failures.
func (s *Service) loadCard(ctx context.Context, id string) (*ratecard.Card, error) {
	if id == "" {
		return nil, nil
	}
	card, err := s.Cards.GetCard(ctx, id)
	if err != nil {
		return nil, err
	}
	return card, nil
}

// =============================================================================
// EXPENSE CREATION
// =============================================================================

// NewExpenseInput carries everything needed to create an expense.
type NewExpenseInput struct {
	ID              string
	CompanyID       string
	ProjectID       string
	SubcontractorID string
	ClientID        string

	Category string
	Date     time.Time

	Amount   decimal.Decimal
	Quantity *decimal.Decimal
	UnitRate *decimal.Decimal
	Currency string
}

// CreateExpense appends a DRAFT expense. Expenses are billed
// pass-through: no resolver, no markup, margin 0.
func (s *Service) CreateExpense(ctx context.Context, in NewExpenseInput) (*Expense, error) {
	amount := in.Amount
	if amount.IsZero() && in.Quantity != nil && in.UnitRate != nil {
		amount = money.Round(in.Quantity.Mul(*in.UnitRate))
	}
	if amount.IsNegative() {
		return nil, fmt.Errorf("expense amount cannot be negative")
	}

	now := s.now()
	entry := Expense{
		ID:              in.ID,
		CompanyID:       in.CompanyID,
		ProjectID:       in.ProjectID,
		SubcontractorID: in.SubcontractorID,
		ClientID:        in.ClientID,
		Category:        in.Category,
		Date:            ratecard.DateOnly(in.Date),
		Amount:          money.Round(amount),
		Quantity:        in.Quantity,
		UnitRate:        in.UnitRate,
		Currency:        in.Currency,
		Status:          StatusDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.Entries.AppendExpense(ctx, entry); err != nil {
		return nil, fmt.Errorf("appending expense: %w", err)
	}
	return &entry, nil
}
