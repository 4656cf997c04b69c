package ratecard_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/rate-engine/ratecard"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func date(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func entry(role, shift, base, ot string, from time.Time) ratecard.RateEntry {
	return ratecard.RateEntry{
		RoleName:      role,
		Timeframe:     ratecard.TimeframeByLabel(shift),
		BaseRate:      d(base),
		OTRate:        d(ot),
		EffectiveFrom: from,
	}
}

func card(kind ratecard.CardKind, entries ...ratecard.RateEntry) *ratecard.Card {
	return &ratecard.Card{
		ID:        "card-" + string(kind),
		CompanyID: "co-1",
		Kind:      kind,
		Rates:     entries,
		Active:    true,
	}
}

func fitterInput(hoursReg, hoursOT string) ratecard.ResolveInput {
	return ratecard.ResolveInput{
		Role:         "Fitter",
		Timeframe:    ratecard.TimeframeByLabel("Mon-Fri Day"),
		Date:         date(2025, time.July, 1),
		HoursRegular: d(hoursReg),
		HoursOT:      d(hoursOT),
	}
}

// =============================================================================
// END-TO-END PRICING
// =============================================================================

func TestResolve_EndToEndScenario(t *testing.T) {
	// GIVEN: Fitter on Mon-Fri Day, pay 17.88/26.82, bill 22.35/33.53
	// WHEN: Resolving 8 regular + 2 OT hours
	// THEN: subCost 196.68, clientBill 245.86, margin 49.18 / ~20%

	pay := card(ratecard.KindPay, entry("Fitter", "Mon-Fri Day", "17.88", "26.82", date(2025, time.January, 1)))
	bill := card(ratecard.KindBill, entry("Fitter", "Mon-Fri Day", "22.35", "33.53", date(2025, time.January, 1)))

	res, err := ratecard.Resolve(fitterInput("8", "2"), pay, bill)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !res.SubCost.Equal(d("196.68")) {
		t.Errorf("SubCost = %s, want 196.68", res.SubCost)
	}
	if !res.ClientBill.Equal(d("245.86")) {
		t.Errorf("ClientBill = %s, want 245.86", res.ClientBill)
	}
	if !res.MarginValue.Equal(d("49.18")) {
		t.Errorf("MarginValue = %s, want 49.18", res.MarginValue)
	}
	if !res.MarginPct.Equal(d("20")) {
		t.Errorf("MarginPct = %s, want 20", res.MarginPct)
	}
}

func TestResolve_Deterministic(t *testing.T) {
	// Same inputs twice must produce identical output.
	pay := card(ratecard.KindPay, entry("Fitter", "Mon-Fri Day", "17.88", "26.82", date(2025, time.January, 1)))
	bill := card(ratecard.KindBill, entry("Fitter", "Mon-Fri Day", "22.35", "33.53", date(2025, time.January, 1)))

	first, err := ratecard.Resolve(fitterInput("8", "2"), pay, bill)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := ratecard.Resolve(fitterInput("8", "2"), pay, bill)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !first.SubCost.Equal(second.SubCost) ||
		!first.ClientBill.Equal(second.ClientBill) ||
		!first.MarginValue.Equal(second.MarginValue) ||
		!first.MarginPct.Equal(second.MarginPct) {
		t.Errorf("resolution not deterministic: %+v vs %+v", first, second)
	}
}

func TestResolve_RoundsOnceAtTheEnd(t *testing.T) {
	// GIVEN: 1h at 10.004 regular plus 1h at 10.004 OT
	// WHEN: Resolving
	// THEN: Round(20.008) = 20.01. Per-term rounding would lose the
	//       sub-cent residue twice and land on 20.00.
	pay := card(ratecard.KindPay, entry("Fitter", "Mon-Fri Day", "10.004", "10.004", date(2025, time.January, 1)))

	res, err := ratecard.Resolve(fitterInput("1", "1"), pay, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.SubCost.Equal(d("20.01")) {
		t.Errorf("SubCost = %s, want 20.01 (single final rounding)", res.SubCost)
	}
}

// =============================================================================
// RATE SELECTION
// =============================================================================

func TestResolve_MostRecentRateWins(t *testing.T) {
	// GIVEN: Two overlapping windows for the same (role, timeframe)
	// WHEN: Resolving a date inside both
	// THEN: The entry with the later effectiveFrom wins

	pay := card(ratecard.KindPay,
		entry("Fitter", "Day", "20", "30", date(2025, time.January, 1)),
		entry("Fitter", "Day", "25", "37.50", date(2025, time.June, 1)),
	)

	in := ratecard.ResolveInput{
		Role:         "Fitter",
		Timeframe:    ratecard.TimeframeByLabel("Day"),
		Date:         date(2025, time.July, 1),
		HoursRegular: d("1"),
		HoursOT:      d("0"),
	}
	res, err := ratecard.Resolve(in, pay, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.SubCost.Equal(d("25")) {
		t.Errorf("SubCost = %s, want 25 (most recent rate)", res.SubCost)
	}
	if res.PayEntry == nil || !res.PayEntry.BaseRate.Equal(d("25")) {
		t.Errorf("selected entry = %+v, want baseRate 25", res.PayEntry)
	}
}

func TestResolve_EffectiveWindowBounds(t *testing.T) {
	// [effectiveFrom, effectiveTo): from is inclusive, to is exclusive.
	to := date(2025, time.June, 1)
	e := ratecard.RateEntry{
		RoleName:      "Fitter",
		Timeframe:     ratecard.TimeframeByLabel("Day"),
		BaseRate:      d("20"),
		OTRate:        d("30"),
		EffectiveFrom: date(2025, time.January, 1),
		EffectiveTo:   &to,
	}

	if !e.AppliesOn(date(2025, time.January, 1)) {
		t.Error("effectiveFrom should be inclusive")
	}
	if e.AppliesOn(date(2025, time.June, 1)) {
		t.Error("effectiveTo should be exclusive")
	}
	if !e.AppliesOn(date(2025, time.May, 31)) {
		t.Error("day before effectiveTo should match")
	}
}

func TestResolve_NoPayMatch_RateNotFound(t *testing.T) {
	// GIVEN: A pay card with no entry for the requested role
	// WHEN: Resolving
	// THEN: *RateNotFoundError; the entry must not be silently zero-filled

	pay := card(ratecard.KindPay, entry("Welder", "Day", "20", "30", date(2025, time.January, 1)))

	_, err := ratecard.Resolve(fitterInput("8", "0"), pay, nil)
	if err == nil {
		t.Fatal("expected RateNotFoundError")
	}
	if !errors.Is(err, ratecard.ErrRateNotFound) {
		t.Fatalf("expected ErrRateNotFound, got %v", err)
	}
	var rnf *ratecard.RateNotFoundError
	if !errors.As(err, &rnf) {
		t.Fatalf("expected *RateNotFoundError, got %T", err)
	}
	if rnf.Side != ratecard.KindPay || rnf.Role != "Fitter" {
		t.Errorf("unexpected error detail: %+v", rnf)
	}
}

func TestResolve_MissingPayCard_RateNotFound(t *testing.T) {
	_, err := ratecard.Resolve(fitterInput("8", "0"), nil, nil)
	if !errors.Is(err, ratecard.ErrRateNotFound) {
		t.Fatalf("expected ErrRateNotFound for absent pay card, got %v", err)
	}
}

func TestResolve_MissingBillSide_ZeroBillZeroMargin(t *testing.T) {
	// GIVEN: No bill card
	// WHEN: Resolving
	// THEN: clientBill 0 and margin percentage falls back to the zero guard

	pay := card(ratecard.KindPay, entry("Fitter", "Mon-Fri Day", "17.88", "26.82", date(2025, time.January, 1)))

	res, err := ratecard.Resolve(fitterInput("8", "2"), pay, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.ClientBill.IsZero() {
		t.Errorf("ClientBill = %s, want 0", res.ClientBill)
	}
	if !res.MarginPct.IsZero() {
		t.Errorf("MarginPct = %s, want 0 (zero-denominator guard)", res.MarginPct)
	}
	if !res.MarginValue.Equal(res.SubCost.Neg()) {
		t.Errorf("MarginValue = %s, want %s", res.MarginValue, res.SubCost.Neg())
	}
}

func TestResolve_TimeframeMatching(t *testing.T) {
	// Id-based refs match by id; legacy refs match labels
	// case-insensitively; an id-based ref never matches a legacy entry.
	byID := ratecard.TimeframeByID("tf-1", "Day")
	legacy := ratecard.TimeframeByLabel("day")

	if !byID.Matches(ratecard.TimeframeByID("tf-1", "renamed")) {
		t.Error("id refs with equal ids should match regardless of label")
	}
	if byID.Matches(ratecard.TimeframeByID("tf-2", "Day")) {
		t.Error("id refs with different ids should not match")
	}
	if !legacy.Matches(ratecard.TimeframeByLabel("DAY")) {
		t.Error("legacy labels should match case-insensitively")
	}
	if byID.Matches(legacy) {
		t.Error("id ref should not match a legacy label ref")
	}
}

// =============================================================================
// CARD VALIDATION
// =============================================================================

func TestCardValidate_RejectsOutOfRangeRate(t *testing.T) {
	c := card(ratecard.KindPay, entry("Fitter", "Day", "10001", "30", date(2025, time.January, 1)))
	if err := c.Validate(); err == nil {
		t.Fatal("expected validation error for rate above 10000")
	}

	c = card(ratecard.KindPay, entry("Fitter", "Day", "-1", "30", date(2025, time.January, 1)))
	if err := c.Validate(); err == nil {
		t.Fatal("expected validation error for negative rate")
	}
}

func TestCardValidate_RejectsOverlappingWindows(t *testing.T) {
	// GIVEN: Two open-ended windows for the same (role, timeframe)
	// THEN: Save-time validation refuses the card

	c := card(ratecard.KindPay,
		entry("Fitter", "Day", "20", "30", date(2025, time.January, 1)),
		entry("Fitter", "Day", "25", "37.50", date(2025, time.June, 1)),
	)
	err := c.Validate()
	if !errors.Is(err, ratecard.ErrOverlappingRateWindows) {
		t.Fatalf("expected ErrOverlappingRateWindows, got %v", err)
	}
}

func TestCardValidate_AllowsAdjacentWindows(t *testing.T) {
	// [Jan 1, Jun 1) followed by [Jun 1, open) does not overlap.
	to := date(2025, time.June, 1)
	first := entry("Fitter", "Day", "20", "30", date(2025, time.January, 1))
	first.EffectiveTo = &to
	second := entry("Fitter", "Day", "25", "37.50", date(2025, time.June, 1))

	c := card(ratecard.KindPay, first, second)
	if err := c.Validate(); err != nil {
		t.Fatalf("adjacent windows should validate, got %v", err)
	}
}

func TestCardValidate_DifferentTimeframesNeverOverlap(t *testing.T) {
	c := card(ratecard.KindPay,
		entry("Fitter", "Day", "20", "30", date(2025, time.January, 1)),
		entry("Fitter", "Night", "24", "36", date(2025, time.January, 1)),
	)
	if err := c.Validate(); err != nil {
		t.Fatalf("distinct timeframes should validate, got %v", err)
	}
}
