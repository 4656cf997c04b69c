/*
resolver.go - Rate selection and per-entry cost/bill/margin computation

PURPOSE:
  Turns (role, shift, date, hours) plus a pay card and a bill card into
  the money figures stored on a ledger entry. This runs EXACTLY ONCE, at
  entry creation; existing entries are never re-resolved when cards
  change, so historical reports reconstruct what was actually billed.

SELECTION ALGORITHM (per card side):
  1. Filter entries to exact role-name matches.
  2. Filter to entries whose timeframe matches the supplied shift.
  3. Select the entry whose [effectiveFrom, effectiveTo) window contains
     the work date. If several qualify (overlap is a data error the save
     path normally rejects), the LATEST effectiveFrom wins.
  4. No match on the PAY side => RateNotFoundError; the entry cannot be
     priced and creation must be refused. No implicit fallback rate.
  5. No match (or no card) on the BILL side => clientBill is 0 and the
     margin computation falls back to the zero-denominator guard.

ROUNDING:
  hoursRegular*baseRate + hoursOT*otRate is rounded ONCE, at the end,
  not per term, so rounding error never compounds.

DETERMINISM:
  Pure function of its inputs. Same inputs, same output, always.

SEE ALSO:
  - money/money.go: rounding and margin rules
  - ledger/service.go: the single call site at entry creation
*/
package ratecard

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/rate-engine/money"
)

// =============================================================================
// RESOLUTION INPUT / OUTPUT
// =============================================================================

// ResolveInput carries one time log's pricing coordinates.
type ResolveInput struct {
	Role      string
	Timeframe TimeframeRef
	Date      time.Time

	HoursRegular decimal.Decimal
	HoursOT      decimal.Decimal
}

// Resolution is the priced outcome stored (once) on a ledger entry.
type Resolution struct {
	SubCost     decimal.Decimal
	ClientBill  decimal.Decimal
	MarginValue decimal.Decimal
	MarginPct   decimal.Decimal

	// Selected entries, kept for auditability. BillEntry is nil when the
	// bill side did not resolve.
	PayEntry  *RateEntry
	BillEntry *RateEntry
}

// =============================================================================
// RESOLVER
// =============================================================================

// Resolve prices a time log against a pay card and a bill card.
//
// The pay side is mandatory: a missing card or missing entry yields a
// *RateNotFoundError and the caller must refuse to create the entry.
// The bill side is best-effort: a miss yields clientBill = 0.
func Resolve(in ResolveInput, payCard, billCard *Card) (*Resolution, error) {
	payEntry := selectEntry(payCard, in.Role, in.Timeframe, in.Date)
	if payEntry == nil {
		return nil, &RateNotFoundError{
			Side:      KindPay,
			Role:      in.Role,
			Timeframe: in.Timeframe,
			Date:      in.Date,
		}
	}
	subCost := lineCost(in.HoursRegular, in.HoursOT, payEntry)

	clientBill := decimal.Zero
	billEntry := selectEntry(billCard, in.Role, in.Timeframe, in.Date)
	if billEntry != nil {
		clientBill = lineCost(in.HoursRegular, in.HoursOT, billEntry)
	}

	return &Resolution{
		SubCost:     subCost,
		ClientBill:  clientBill,
		MarginValue: money.MarginValue(clientBill, subCost),
		MarginPct:   money.MarginPercentage(clientBill, subCost),
		PayEntry:    payEntry,
		BillEntry:   billEntry,
	}, nil
}

// lineCost computes hoursRegular*base + hoursOT*ot, rounded once.
func lineCost(hoursRegular, hoursOT decimal.Decimal, e *RateEntry) decimal.Decimal {
	total := hoursRegular.Mul(e.BaseRate).Add(hoursOT.Mul(e.OTRate))
	return money.Round(total)
}

// selectEntry runs the selection algorithm against one card.
// Returns nil when the card is absent or nothing matches.
func selectEntry(card *Card, role string, tf TimeframeRef, date time.Time) *RateEntry {
	if card == nil {
		return nil
	}

	var candidates []RateEntry
	for _, e := range card.Rates {
		if e.RoleName != role {
			continue
		}
		if !e.Timeframe.Matches(tf) {
			continue
		}
		if !e.AppliesOn(date) {
			continue
		}
		candidates = append(candidates, e)
	}
	if len(candidates) == 0 {
		return nil
	}

	// Overlap tie-break: the most recent rate wins.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].EffectiveFrom.After(candidates[j].EffectiveFrom)
	})
	selected := candidates[0]
	return &selected
}
