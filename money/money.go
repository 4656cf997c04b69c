/*
Package money provides deterministic currency rounding and margin arithmetic.

PURPOSE:
  Every monetary value in the engine passes through this package before it
  is stored or compared. Centralizing the rounding rule here means cost,
  billing and margin figures are reproducible to the cent no matter which
  component computed them.

KEY RULES:
  - Round:            half away from zero to 2 decimal places. The ONLY
                      rounding mode in the system. No banker's rounding.
  - MarginValue:      Round(bill - cost)
  - MarginPercentage: 0 when bill <= 0 (zero-denominator guard),
                      otherwise Round(((bill - cost) / bill) * 100)
  - CheckRate:        rates must lie in [0, 10000]; violations are raised
                      at save time, never during resolution or aggregation.

PRECISION:
  Uses decimal.Decimal to avoid floating-point drift. 17.88 * 8 must be
  exactly 143.04, not 143.03999999999999.

SEE ALSO:
  - ratecard/resolver.go: rounds once per resolved side, at the end
  - tracking/tracking.go: sums pre-rounded per-entry values
*/
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ROUNDING
// =============================================================================

// Round rounds a monetary value to 2 decimal places, half away from zero.
// Idempotent: Round(Round(x)) == Round(x).
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// RoundFloat is a convenience for boundary code that carries float64.
// Core components should stay in decimal.Decimal.
func RoundFloat(x float64) float64 {
	f, _ := Round(decimal.NewFromFloat(x)).Float64()
	return f
}

// FromFloat converts a float64 into a decimal without rounding it.
func FromFloat(x float64) decimal.Decimal {
	return decimal.NewFromFloat(x)
}

// Zero is the zero monetary value.
func Zero() decimal.Decimal {
	return decimal.Zero
}

// =============================================================================
// MARGIN ARITHMETIC
// =============================================================================

// MarginValue returns the rounded difference between billing and cost.
func MarginValue(bill, cost decimal.Decimal) decimal.Decimal {
	return Round(bill.Sub(cost))
}

// MarginPercentage returns the margin as a percentage of billing.
// Non-positive billing never divides: the result is 0 for bill <= 0.
func MarginPercentage(bill, cost decimal.Decimal) decimal.Decimal {
	if bill.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	hundred := decimal.NewFromInt(100)
	return Round(bill.Sub(cost).Div(bill).Mul(hundred))
}

// =============================================================================
// RATE VALIDATION
// =============================================================================

// MaxRate is the sanity bound on any pay or bill rate.
var MaxRate = decimal.NewFromInt(10000)

// ValidRate reports whether a rate lies within [0, MaxRate].
func ValidRate(r decimal.Decimal) bool {
	return !r.IsNegative() && r.LessThanOrEqual(MaxRate)
}

// CheckRate returns an *InvalidRateError if the rate is out of range.
// Called at rate-card save time, never at resolution or aggregation time.
func CheckRate(field string, r decimal.Decimal) error {
	if ValidRate(r) {
		return nil
	}
	return &InvalidRateError{Field: field, Rate: r}
}

// InvalidRateError reports a rate outside the [0, MaxRate] sanity bound.
type InvalidRateError struct {
	Field string // e.g. "base_rate", "ot_rate", "expense_rate"
	Rate  decimal.Decimal
}

func (e *InvalidRateError) Error() string {
	return fmt.Sprintf("invalid rate %s for %s: must be between 0 and %s",
		e.Rate, e.Field, MaxRate)
}
