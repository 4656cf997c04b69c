/*
card.go - Priced rate cards and their entries

PURPOSE:
  A rate card is a priced instance of (part of) a template's vocabulary:
  for each role and shift it says what an hour costs. A card is either a
  PAY card (what a subcontractor is owed) or a BILL card (what a client
  is charged); the kind is fixed explicitly at the assignment boundary
  rather than inferred from content.

KEY CONCEPTS:
  TimeframeRef:
    Older cards use a free-form shift-type string ("Days", "Nights");
    newer cards reference a template timeframe by id. Both are normalized
    into one TimeframeRef value so matching logic exists exactly once.

  RateEntry:
    (role, timeframe, [effectiveFrom, effectiveTo)) -> baseRate, otRate.
    Entries for the same (role, timeframe) must not have overlapping
    date windows; the resolver relies on this uniqueness.

  ExpenseRateEntry:
    Per-category reimbursement rate with a unit (per mile, per day, flat).

VALIDATION:
  Validate() is called before persistence and enforces:
  - every rate within [0, 10000] (money.CheckRate)
  - no overlapping (role, timeframe, date-range) triples

SEE ALSO:
  - resolver.go: rate selection against a card
  - template.go: the vocabulary cards draw from
*/
package ratecard

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/rate-engine/money"
)

// =============================================================================
// CARD KIND - Pay vs bill, fixed at the assignment boundary
// =============================================================================

type CardKind string

const (
	// KindPay prices what a subcontractor is owed.
	KindPay CardKind = "pay"
	// KindBill prices what a client is charged.
	KindBill CardKind = "bill"
)

// =============================================================================
// TIMEFRAME REFERENCE - Normalized shift identity
// =============================================================================

// TimeframeRef identifies a shift either by template timeframe id or by a
// legacy free-form label. Exactly one way is authoritative per value:
// when ID is set the label is only a denormalized display name.
type TimeframeRef struct {
	ID    string // template timeframe id; empty for legacy entries
	Label string // display name, or the legacy shift-type string
}

// TimeframeByID references a template timeframe. The label is the
// denormalized display name and is refreshed by template sync.
func TimeframeByID(id, label string) TimeframeRef {
	return TimeframeRef{ID: id, Label: label}
}

// TimeframeByLabel references a shift by its legacy free-form string.
func TimeframeByLabel(label string) TimeframeRef {
	return TimeframeRef{Label: label}
}

// Matches reports whether two refs identify the same shift.
// Id-based refs compare by id; legacy refs compare labels
// case-insensitively. An id-based ref never matches a legacy one.
func (r TimeframeRef) Matches(other TimeframeRef) bool {
	if r.ID != "" || other.ID != "" {
		return r.ID != "" && r.ID == other.ID
	}
	return strings.EqualFold(r.Label, other.Label)
}

// Key returns a stable identity string, used for overlap grouping.
func (r TimeframeRef) Key() string {
	if r.ID != "" {
		return "id:" + r.ID
	}
	return "label:" + strings.ToLower(r.Label)
}

func (r TimeframeRef) String() string {
	if r.ID != "" {
		if r.Label != "" {
			return fmt.Sprintf("%s (%s)", r.Label, r.ID)
		}
		return r.ID
	}
	return r.Label
}

// =============================================================================
// RATE ENTRIES
// =============================================================================

// RateEntry prices one (role, timeframe) combination over a date range.
type RateEntry struct {
	RoleName  string
	Category  string // resource category, informational
	Timeframe TimeframeRef

	BaseRate decimal.Decimal
	OTRate   decimal.Decimal

	EffectiveFrom time.Time
	EffectiveTo   *time.Time // nil = open-ended
}

// AppliesOn reports whether the entry's [EffectiveFrom, EffectiveTo)
// window contains the given date.
func (e RateEntry) AppliesOn(date time.Time) bool {
	d := DateOnly(date)
	if d.Before(DateOnly(e.EffectiveFrom)) {
		return false
	}
	if e.EffectiveTo != nil && !d.Before(DateOnly(*e.EffectiveTo)) {
		return false
	}
	return true
}

// ExpenseRateEntry prices one expense category.
type ExpenseRateEntry struct {
	CategoryID   string
	CategoryName string // denormalized display name, refreshed by sync
	Rate         decimal.Decimal
	UnitType     string // e.g. "per_mile", "per_day", "flat"
}

// =============================================================================
// RATE CARD
// =============================================================================

// Card is a company-scoped priced catalogue of role/timeframe rates.
type Card struct {
	ID        string
	CompanyID string
	Name      string
	Kind      CardKind

	// Optional template link. TemplateName is denormalized for display
	// and refreshed by template sync.
	TemplateID   string
	TemplateName string

	Rates    []RateEntry
	Expenses []ExpenseRateEntry

	Active bool
}

// Validate enforces save-time invariants: rate sanity bounds and the
// no-overlapping-windows uniqueness the resolver relies on.
func (c *Card) Validate() error {
	if c.CompanyID == "" {
		return fmt.Errorf("card company id is required")
	}
	for _, e := range c.Rates {
		if err := money.CheckRate("base_rate", e.BaseRate); err != nil {
			return err
		}
		if err := money.CheckRate("ot_rate", e.OTRate); err != nil {
			return err
		}
	}
	for _, e := range c.Expenses {
		if err := money.CheckRate("expense_rate", e.Rate); err != nil {
			return err
		}
	}
	return c.checkOverlaps()
}

// checkOverlaps rejects two entries for the same (role, timeframe) whose
// date windows intersect.
func (c *Card) checkOverlaps() error {
	type group struct{ entries []RateEntry }
	groups := make(map[string]*group)
	for _, e := range c.Rates {
		k := strings.ToLower(e.RoleName) + "|" + e.Timeframe.Key()
		g := groups[k]
		if g == nil {
			g = &group{}
			groups[k] = g
		}
		g.entries = append(g.entries, e)
	}
	for _, g := range groups {
		for i := 0; i < len(g.entries); i++ {
			for j := i + 1; j < len(g.entries); j++ {
				if windowsOverlap(g.entries[i], g.entries[j]) {
					return &OverlapError{
						Role:      g.entries[i].RoleName,
						Timeframe: g.entries[i].Timeframe,
					}
				}
			}
		}
	}
	return nil
}

// windowsOverlap treats EffectiveTo == nil as open-ended.
func windowsOverlap(a, b RateEntry) bool {
	aFrom, bFrom := DateOnly(a.EffectiveFrom), DateOnly(b.EffectiveFrom)
	if a.EffectiveTo != nil && !DateOnly(*a.EffectiveTo).After(bFrom) {
		return false
	}
	if b.EffectiveTo != nil && !DateOnly(*b.EffectiveTo).After(aFrom) {
		return false
	}
	return true
}

// DateOnly truncates a time to its UTC calendar day. All effective-date
// and work-date comparisons happen at day granularity.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// CARD STORE - Persistence interface
// =============================================================================

// CardStore handles rate card persistence. Save validates before writing.
type CardStore interface {
	SaveCard(ctx context.Context, c Card) error

	GetCard(ctx context.Context, id string) (*Card, error)

	ListCards(ctx context.Context, companyID string) ([]Card, error)

	// ListCardsByTemplate returns cards linked to a template. Used by sync.
	ListCardsByTemplate(ctx context.Context, templateID string) ([]Card, error)

	DeleteCard(ctx context.Context, id string) error
}
