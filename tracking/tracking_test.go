package tracking_test

import (
	"bytes"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/rate-engine/ledger"
	"github.com/warp/rate-engine/tracking"
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

func timeLog(subID string, status ledger.Status, hoursReg, hoursOT, cost, bill string) ledger.TimeLog {
	return ledger.TimeLog{
		ID:              fmt.Sprintf("tl-%s-%d", subID, rand.Int()),
		ProjectID:       "proj-1",
		SubcontractorID: subID,
		Date:            time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC),
		HoursRegular:    d(hoursReg),
		HoursOT:         d(hoursOT),
		SubCost:         d(cost),
		ClientBill:      d(bill),
		Status:          status,
	}
}

func expense(subID string, status ledger.Status, amount string) ledger.Expense {
	return ledger.Expense{
		ID:              fmt.Sprintf("ex-%s-%d", subID, rand.Int()),
		ProjectID:       "proj-1",
		SubcontractorID: subID,
		Date:            time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC),
		Amount:          d(amount),
		Status:          status,
	}
}

// =============================================================================
// BASIC FOLDING
// =============================================================================

func TestAggregate_TotalsAndBuckets(t *testing.T) {
	// GIVEN: One time log per status bucket and one approved expense
	logs := []ledger.TimeLog{
		timeLog("sub-1", ledger.StatusDraft, "8", "0", "100", "125"),
		timeLog("sub-1", ledger.StatusSubmitted, "8", "2", "150", "200"),
		timeLog("sub-2", ledger.StatusApproved, "10", "0", "180", "240"),
	}
	expenses := []ledger.Expense{
		expense("sub-2", ledger.StatusApproved, "50"),
	}

	tr := tracking.Aggregate(logs, expenses, map[string]string{
		"sub-1": "Alpha Fabrication",
		"sub-2": "Beta Industrial",
	})

	if !tr.Totals.Cost.Equal(d("480")) {
		t.Errorf("total cost = %s, want 480", tr.Totals.Cost)
	}
	if !tr.Totals.Billing.Equal(d("615")) {
		t.Errorf("total billing = %s, want 615", tr.Totals.Billing)
	}
	if !tr.Totals.Margin.Equal(d("135")) {
		t.Errorf("total margin = %s, want 135", tr.Totals.Margin)
	}
	if !tr.Totals.Hours.Equal(d("28")) {
		t.Errorf("total hours = %s, want 28 (expenses add no hours)", tr.Totals.Hours)
	}

	if !tr.ByStatus.Draft.Cost.Equal(d("100")) {
		t.Errorf("draft cost = %s, want 100", tr.ByStatus.Draft.Cost)
	}
	if !tr.ByStatus.Submitted.Cost.Equal(d("150")) {
		t.Errorf("submitted cost = %s, want 150", tr.ByStatus.Submitted.Cost)
	}
	if !tr.ByStatus.Approved.Cost.Equal(d("230")) {
		t.Errorf("approved cost = %s, want 230", tr.ByStatus.Approved.Cost)
	}

	// sub-1 carries 250 of cost vs sub-2's 230, so sub-1 sorts first.
	if len(tr.Subcontractors) != 2 {
		t.Fatalf("subcontractors = %d, want 2", len(tr.Subcontractors))
	}
	if tr.Subcontractors[0].SubcontractorID != "sub-1" {
		t.Errorf("first subcontractor = %s, want sub-1 (largest cost first)",
			tr.Subcontractors[0].SubcontractorID)
	}
	if tr.Subcontractors[0].Name != "Alpha Fabrication" {
		t.Errorf("name lookup failed: %q", tr.Subcontractors[0].Name)
	}
}

func TestAggregate_ExpensePassThrough(t *testing.T) {
	// cost == billing == amount, margin 0, no hours.
	tr := tracking.Aggregate(nil, []ledger.Expense{
		expense("sub-1", ledger.StatusApproved, "75.50"),
	}, nil)

	if !tr.Totals.Cost.Equal(d("75.50")) || !tr.Totals.Billing.Equal(d("75.50")) {
		t.Errorf("expense cost/billing = %s/%s, want 75.50/75.50",
			tr.Totals.Cost, tr.Totals.Billing)
	}
	if !tr.Totals.Margin.IsZero() {
		t.Errorf("expense margin = %s, want 0", tr.Totals.Margin)
	}
	if !tr.Totals.Hours.IsZero() {
		t.Errorf("expense hours = %s, want 0", tr.Totals.Hours)
	}
}

func TestAggregate_RejectedExcludedEverywhere(t *testing.T) {
	// REJECTED entries are not billable; they must not appear in grand
	// totals, any bucket, or any subcontractor rollup.
	logs := []ledger.TimeLog{
		timeLog("sub-1", ledger.StatusApproved, "8", "0", "100", "125"),
		timeLog("sub-1", ledger.StatusRejected, "8", "0", "999", "999"),
	}
	tr := tracking.Aggregate(logs, nil, nil)

	if !tr.Totals.Cost.Equal(d("100")) {
		t.Errorf("total cost = %s, want 100 (rejected excluded)", tr.Totals.Cost)
	}
	if tr.ExcludedEntries != 1 {
		t.Errorf("ExcludedEntries = %d, want 1", tr.ExcludedEntries)
	}
	if len(tr.Subcontractors) != 1 || !tr.Subcontractors[0].Cost.Equal(d("100")) {
		t.Errorf("subcontractor rollup includes rejected work: %+v", tr.Subcontractors)
	}
}

func TestAggregate_StatusCaseFolded(t *testing.T) {
	logs := []ledger.TimeLog{
		{SubcontractorID: "sub-1", Status: "approved", SubCost: d("10"), ClientBill: d("12")},
		{SubcontractorID: "sub-1", Status: "Approved", SubCost: d("10"), ClientBill: d("12")},
	}
	tr := tracking.Aggregate(logs, nil, nil)
	if !tr.ByStatus.Approved.Cost.Equal(d("20")) {
		t.Errorf("approved cost = %s, want 20 (case-folded)", tr.ByStatus.Approved.Cost)
	}
}

func TestAggregate_MissingNumericsFoldAsZero(t *testing.T) {
	// Partially populated legacy records must not break reporting.
	logs := []ledger.TimeLog{
		{SubcontractorID: "sub-1", Status: ledger.StatusApproved}, // all zero values
	}
	tr := tracking.Aggregate(logs, nil, nil)
	if !tr.Totals.Cost.IsZero() || tr.Totals.Entries != 1 {
		t.Errorf("legacy record folded wrong: %+v", tr.Totals)
	}
}

func TestAggregate_MarginPctZeroGuard(t *testing.T) {
	logs := []ledger.TimeLog{
		timeLog("sub-1", ledger.StatusApproved, "8", "0", "100", "0"),
	}
	tr := tracking.Aggregate(logs, nil, nil)
	if !tr.Totals.MarginPct().IsZero() {
		t.Errorf("MarginPct = %s, want 0 for zero billing", tr.Totals.MarginPct())
	}
}

func TestAggregate_SortDeterministicOnTies(t *testing.T) {
	logs := []ledger.TimeLog{
		timeLog("sub-b", ledger.StatusApproved, "8", "0", "100", "120"),
		timeLog("sub-a", ledger.StatusApproved, "8", "0", "100", "130"),
	}
	tr := tracking.Aggregate(logs, nil, nil)
	if tr.Subcontractors[0].SubcontractorID != "sub-a" {
		t.Errorf("tie-break should order by id ascending, got %s first",
			tr.Subcontractors[0].SubcontractorID)
	}
}

// =============================================================================
// DECOMPOSITION INVARIANT (FUZZ)
// =============================================================================

func TestAggregate_DecompositionInvariant_Fuzz(t *testing.T) {
	// For ANY input: totals == sum(buckets) == sum(subcontractors),
	// for cost, billing, margin and hours alike.
	r := rand.New(rand.NewSource(1234))
	statuses := []ledger.Status{
		ledger.StatusDraft, ledger.StatusSubmitted,
		ledger.StatusApproved, ledger.StatusRejected,
	}

	for round := 0; round < 50; round++ {
		var logs []ledger.TimeLog
		var expenses []ledger.Expense

		n := r.Intn(80)
		for i := 0; i < n; i++ {
			sub := fmt.Sprintf("sub-%d", r.Intn(7))
			status := statuses[r.Intn(len(statuses))]
			if r.Intn(4) == 0 {
				expenses = append(expenses, expense(sub, status,
					fmt.Sprintf("%.2f", r.Float64()*500)))
			} else {
				logs = append(logs, timeLog(sub, status,
					fmt.Sprintf("%d", r.Intn(12)),
					fmt.Sprintf("%d", r.Intn(4)),
					fmt.Sprintf("%.2f", r.Float64()*400),
					fmt.Sprintf("%.2f", r.Float64()*500)))
			}
		}

		tr := tracking.Aggregate(logs, expenses, nil)

		bucketSum := sumTotals(tr.ByStatus.Draft, tr.ByStatus.Submitted, tr.ByStatus.Approved)
		var subTotals []tracking.Totals
		for _, s := range tr.Subcontractors {
			subTotals = append(subTotals, s.Totals)
		}
		subSum := sumTotals(subTotals...)

		assertTotalsEqual(t, "buckets", tr.Totals, bucketSum)
		assertTotalsEqual(t, "subcontractors", tr.Totals, subSum)
	}
}

func sumTotals(ts ...tracking.Totals) tracking.Totals {
	var out tracking.Totals
	for _, t := range ts {
		out.Hours = out.Hours.Add(t.Hours)
		out.Cost = out.Cost.Add(t.Cost)
		out.Billing = out.Billing.Add(t.Billing)
		out.Margin = out.Margin.Add(t.Margin)
		out.Entries += t.Entries
	}
	return out
}

func assertTotalsEqual(t *testing.T, label string, want, got tracking.Totals) {
	t.Helper()
	if !want.Cost.Equal(got.Cost) {
		t.Errorf("%s cost decomposition broken: %s != %s", label, want.Cost, got.Cost)
	}
	if !want.Billing.Equal(got.Billing) {
		t.Errorf("%s billing decomposition broken: %s != %s", label, want.Billing, got.Billing)
	}
	if !want.Margin.Equal(got.Margin) {
		t.Errorf("%s margin decomposition broken: %s != %s", label, want.Margin, got.Margin)
	}
	if !want.Hours.Equal(got.Hours) {
		t.Errorf("%s hours decomposition broken: %s != %s", label, want.Hours, got.Hours)
	}
	if want.Entries != got.Entries {
		t.Errorf("%s entry count decomposition broken: %d != %d", label, want.Entries, got.Entries)
	}
}

// =============================================================================
// XLSX EXPORT
// =============================================================================

func TestWriteXLSX_ProducesWorkbook(t *testing.T) {
	logs := []ledger.TimeLog{
		timeLog("sub-1", ledger.StatusApproved, "8", "2", "196.68", "245.86"),
	}
	tr := tracking.Aggregate(logs, nil, map[string]string{"sub-1": "Alpha Fabrication"})

	var buf bytes.Buffer
	if err := tracking.WriteXLSX(tr, &buf); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("export produced an empty file")
	}
	// xlsx is a zip container.
	if got := buf.Bytes()[:2]; got[0] != 'P' || got[1] != 'K' {
		t.Errorf("export is not a zip container: % x", got)
	}
}
