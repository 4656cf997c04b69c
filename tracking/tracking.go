/*
Package tracking rolls ledger entries up into project financial summaries.

PURPOSE:
  A pure reducer: given a snapshot of time logs and expenses plus a
  subcontractor-name lookup, produce per-project totals broken down by
  approval status and by subcontractor. It NEVER re-prices entries; it
  only sums the financial figures the resolver stored at creation.

STATUS BUCKETS:
  Exactly three: draft, submitted, approved (statuses case-folded).
  Entries in any other status - REJECTED in particular - are excluded
  from the aggregate entirely and only surface in ExcludedEntries.
  Rejected work is not billable; keeping it out of every bucket is what
  makes the decomposition invariant hold.

DECOMPOSITION INVARIANT:
  totals.Cost == sum(byStatus[*].Cost) == sum(subcontractors[*].TotalCost)
  (and identically for billing, margin, hours), for ANY input, because
  every folded entry lands in exactly one bucket and one subcontractor.

ROUNDING:
  Per-entry figures are already rounded; sums are exact decimal addition.
  Margin percentages at this layer use the zero-denominator guard but are
  NOT re-rounded.

RESILIENCE:
  Partially populated legacy records fold as zero rather than failing;
  reporting must stay usable over old data.

SEE ALSO:
  - ledger/entry.go: the entry shapes being folded
  - export.go: xlsx rendering of the aggregate
*/
package tracking

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/rate-engine/ledger"
)

// =============================================================================
// AGGREGATE SHAPES
// =============================================================================

// Totals is one accumulation of hours/cost/billing/margin.
type Totals struct {
	Hours   decimal.Decimal
	Cost    decimal.Decimal
	Billing decimal.Decimal
	Margin  decimal.Decimal
	Entries int
}

// MarginPct returns margin as a percentage of billing, zero-guarded.
// Deliberately not rounded: only per-entry values are pre-rounded.
func (t Totals) MarginPct() decimal.Decimal {
	if !t.Billing.IsPositive() {
		return decimal.Zero
	}
	return t.Margin.Div(t.Billing).Mul(decimal.NewFromInt(100))
}

func (t *Totals) add(hours, cost, billing, margin decimal.Decimal) {
	t.Hours = t.Hours.Add(hours)
	t.Cost = t.Cost.Add(cost)
	t.Billing = t.Billing.Add(billing)
	t.Margin = t.Margin.Add(margin)
	t.Entries++
}

// StatusBuckets holds the three mutually exclusive reporting buckets.
type StatusBuckets struct {
	Draft     Totals
	Submitted Totals
	Approved  Totals
}

// SubcontractorTotals is the per-subcontractor rollup.
type SubcontractorTotals struct {
	SubcontractorID string
	Name            string
	Totals
}

// ProjectTracking is the full reporting aggregate.
type ProjectTracking struct {
	Totals         Totals
	ByStatus       StatusBuckets
	Subcontractors []SubcontractorTotals

	// Entries whose status matched no bucket (REJECTED, unknown values).
	// They contribute to nothing above.
	ExcludedEntries int
}

// =============================================================================
// AGGREGATION ENGINE
// =============================================================================

// Aggregate folds a snapshot of entries into a ProjectTracking.
// Pure: same inputs, same output. namesByID maps subcontractor ids to
// display names; missing ids keep an empty name.
func Aggregate(timeLogs []ledger.TimeLog, expenses []ledger.Expense, namesByID map[string]string) *ProjectTracking {
	agg := &aggregator{
		result: &ProjectTracking{},
		bySub:  make(map[string]*SubcontractorTotals),
		names:  namesByID,
	}

	for _, t := range timeLogs {
		hours := t.HoursRegular.Add(t.HoursOT)
		margin := t.ClientBill.Sub(t.SubCost)
		agg.fold(string(t.Status), t.SubcontractorID, hours, t.SubCost, t.ClientBill, margin)
	}
	for _, e := range expenses {
		// Pass-through: cost == billing == amount, margin 0, no hours.
		agg.fold(string(e.Status), e.SubcontractorID, decimal.Zero, e.Amount, e.Amount, decimal.Zero)
	}

	return agg.finish()
}

type aggregator struct {
	result *ProjectTracking
	bySub  map[string]*SubcontractorTotals
	names  map[string]string
}

func (a *aggregator) fold(status, subID string, hours, cost, billing, margin decimal.Decimal) {
	var bucket *Totals
	switch strings.ToLower(status) {
	case "draft":
		bucket = &a.result.ByStatus.Draft
	case "submitted":
		bucket = &a.result.ByStatus.Submitted
	case "approved":
		bucket = &a.result.ByStatus.Approved
	default:
		a.result.ExcludedEntries++
		return
	}

	a.result.Totals.add(hours, cost, billing, margin)
	bucket.add(hours, cost, billing, margin)

	sub := a.bySub[subID]
	if sub == nil {
		sub = &SubcontractorTotals{
			SubcontractorID: subID,
			Name:            a.names[subID],
		}
		a.bySub[subID] = sub
	}
	sub.add(hours, cost, billing, margin)
}

// finish orders subcontractors by total cost descending. Equal costs
// order by id ascending so the report is fully deterministic.
func (a *aggregator) finish() *ProjectTracking {
	subs := make([]SubcontractorTotals, 0, len(a.bySub))
	for _, s := range a.bySub {
		subs = append(subs, *s)
	}
	sort.Slice(subs, func(i, j int) bool {
		if !subs[i].Cost.Equal(subs[j].Cost) {
			return subs[i].Cost.GreaterThan(subs[j].Cost)
		}
		return subs[i].SubcontractorID < subs[j].SubcontractorID
	})
	a.result.Subcontractors = subs
	return a.result
}
