package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/rate-engine/ledger"
	"github.com/warp/rate-engine/ratecard"
	"github.com/warp/rate-engine/store/memory"
)

// =============================================================================
// TEST SETUP
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

// newTestService wires a ledger service over the in-memory store with a
// Fitter pay/bill card pair assigned to (sub-1, client-1).
func newTestService(t *testing.T) (*ledger.Service, *memory.Store) {
	t.Helper()
	ctx := context.Background()
	st := memory.New()

	pay := ratecard.Card{
		ID: "pay-1", CompanyID: "co-1", Kind: ratecard.KindPay, Active: true,
		Rates: []ratecard.RateEntry{{
			RoleName:      "Fitter",
			Timeframe:     ratecard.TimeframeByLabel("Mon-Fri Day"),
			BaseRate:      d("17.88"),
			OTRate:        d("26.82"),
			EffectiveFrom: date(2025, time.January, 1),
		}},
	}
	bill := ratecard.Card{
		ID: "bill-1", CompanyID: "co-1", Kind: ratecard.KindBill, Active: true,
		Rates: []ratecard.RateEntry{{
			RoleName:      "Fitter",
			Timeframe:     ratecard.TimeframeByLabel("Mon-Fri Day"),
			BaseRate:      d("22.35"),
			OTRate:        d("33.53"),
			EffectiveFrom: date(2025, time.January, 1),
		}},
	}
	require.NoError(t, st.SaveCard(ctx, pay))
	require.NoError(t, st.SaveCard(ctx, bill))
	require.NoError(t, st.SaveAssignment(ctx, ratecard.Assignment{
		ID: "asg-1", CompanyID: "co-1",
		SubcontractorID: "sub-1", ClientID: "client-1",
		PayCardID: "pay-1", BillCardID: "bill-1",
	}))

	fixed := time.Date(2025, time.July, 2, 9, 0, 0, 0, time.UTC)
	svc := &ledger.Service{
		Cards:       st,
		Assignments: st,
		Entries:     st,
		Now:         func() time.Time { return fixed },
	}
	return svc, st
}

func newTimeLogInput(id string) ledger.NewTimeLogInput {
	return ledger.NewTimeLogInput{
		ID:              id,
		CompanyID:       "co-1",
		ProjectID:       "proj-1",
		SubcontractorID: "sub-1",
		ClientID:        "client-1",
		RoleName:        "Fitter",
		Timeframe:       ratecard.TimeframeByLabel("Mon-Fri Day"),
		Date:            date(2025, time.July, 1),
		HoursRegular:    d("8"),
		HoursOT:         d("2"),
		Currency:        "GBP",
	}
}

// =============================================================================
// ENTRY CREATION
// =============================================================================

func TestCreateTimeLog_ResolvesOnceAndStoresDraft(t *testing.T) {
	// GIVEN: An assignment with pay 17.88/26.82 and bill 22.35/33.53
	// WHEN: Creating an 8h + 2h OT Fitter time log
	// THEN: Entry stored in DRAFT with the resolved figures

	svc, st := newTestService(t)
	ctx := context.Background()

	entry, err := svc.CreateTimeLog(ctx, newTimeLogInput("tl-1"))
	require.NoError(t, err)

	assert.True(t, entry.SubCost.Equal(d("196.68")), "SubCost = %s", entry.SubCost)
	assert.True(t, entry.ClientBill.Equal(d("245.86")), "ClientBill = %s", entry.ClientBill)
	assert.True(t, entry.MarginValue.Equal(d("49.18")), "MarginValue = %s", entry.MarginValue)
	assert.True(t, entry.MarginPct.Equal(d("20")), "MarginPct = %s", entry.MarginPct)
	assert.Equal(t, ledger.StatusDraft, entry.Status)

	stored, err := st.GetTimeLog(ctx, "tl-1")
	require.NoError(t, err)
	assert.True(t, stored.SubCost.Equal(entry.SubCost))
}

func TestCreateTimeLog_UnknownRole_Refused(t *testing.T) {
	// No implicit fallback rate: creation must fail, not zero-fill.
	svc, st := newTestService(t)
	ctx := context.Background()

	in := newTimeLogInput("tl-bad")
	in.RoleName = "Crane Operator"
	_, err := svc.CreateTimeLog(ctx, in)
	require.ErrorIs(t, err, ratecard.ErrRateNotFound)

	_, err = st.GetTimeLog(ctx, "tl-bad")
	assert.ErrorIs(t, err, ledger.ErrEntryNotFound, "refused entry must not be stored")
}

func TestCreateTimeLog_RateCardChangeDoesNotReprice(t *testing.T) {
	// GIVEN: An entry priced at the old rate
	// WHEN: The pay card's rate changes afterwards
	// THEN: The stored entry keeps its historical figures

	svc, st := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateTimeLog(ctx, newTimeLogInput("tl-1"))
	require.NoError(t, err)

	card, err := st.GetCard(ctx, "pay-1")
	require.NoError(t, err)
	card.Rates[0].BaseRate = d("99")
	require.NoError(t, st.SaveCard(ctx, *card))

	stored, err := st.GetTimeLog(ctx, "tl-1")
	require.NoError(t, err)
	assert.True(t, stored.SubCost.Equal(d("196.68")),
		"entry was re-priced after card change: %s", stored.SubCost)
}

func TestCreateExpense_PassThrough(t *testing.T) {
	// Expenses bill the client exactly the amount, margin 0.
	svc, _ := newTestService(t)
	ctx := context.Background()

	entry, err := svc.CreateExpense(ctx, ledger.NewExpenseInput{
		ID:              "ex-1",
		CompanyID:       "co-1",
		ProjectID:       "proj-1",
		SubcontractorID: "sub-1",
		ClientID:        "client-1",
		Category:        "Mileage",
		Date:            date(2025, time.July, 1),
		Amount:          d("54.90"),
		Currency:        "GBP",
	})
	require.NoError(t, err)
	assert.True(t, entry.ClientBill().Equal(d("54.90")))
	assert.Equal(t, ledger.StatusDraft, entry.Status)
}

func TestCreateExpense_DerivesAmountFromQuantityAndUnitRate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	qty, rate := d("122"), d("0.45")
	entry, err := svc.CreateExpense(ctx, ledger.NewExpenseInput{
		ID:              "ex-2",
		CompanyID:       "co-1",
		ProjectID:       "proj-1",
		SubcontractorID: "sub-1",
		ClientID:        "client-1",
		Category:        "Mileage",
		Date:            date(2025, time.July, 1),
		Quantity:        &qty,
		UnitRate:        &rate,
		Currency:        "GBP",
	})
	require.NoError(t, err)
	assert.True(t, entry.Amount.Equal(d("54.90")), "Amount = %s", entry.Amount)
}

// =============================================================================
// STATUS MACHINE
// =============================================================================

func TestStatusMachine_Edges(t *testing.T) {
	cases := []struct {
		from, to ledger.Status
		allowed  bool
	}{
		{ledger.StatusDraft, ledger.StatusSubmitted, true},
		{ledger.StatusSubmitted, ledger.StatusApproved, true},
		{ledger.StatusSubmitted, ledger.StatusRejected, true},
		{ledger.StatusDraft, ledger.StatusApproved, false}, // submission mandatory
		{ledger.StatusRejected, ledger.StatusDraft, false}, // terminal
		{ledger.StatusRejected, ledger.StatusSubmitted, false},
		{ledger.StatusApproved, ledger.StatusSubmitted, false},
	}
	for _, c := range cases {
		if got := ledger.CanTransition(c.from, c.to); got != c.allowed {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.allowed)
		}
	}
}

func TestTransition_OptimisticCheck(t *testing.T) {
	// A transition whose expected status is stale must fail with
	// ErrStatusConflict and leave the entry untouched.
	svc, st := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateTimeLog(ctx, newTimeLogInput("tl-1"))
	require.NoError(t, err)

	require.NoError(t, st.TransitionTimeLog(ctx, "tl-1", ledger.StatusDraft, ledger.StatusSubmitted))

	// Double-submission race: second caller still expects DRAFT.
	err = st.TransitionTimeLog(ctx, "tl-1", ledger.StatusDraft, ledger.StatusSubmitted)
	assert.ErrorIs(t, err, ledger.ErrStatusConflict)

	stored, err := st.GetTimeLog(ctx, "tl-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusSubmitted, stored.Status)
}

func TestTransition_ForbiddenEdge(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateTimeLog(ctx, newTimeLogInput("tl-1"))
	require.NoError(t, err)

	err = st.TransitionTimeLog(ctx, "tl-1", ledger.StatusDraft, ledger.StatusApproved)
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)
}

func TestSubmitBatch_AllOrNothing(t *testing.T) {
	// GIVEN: Two DRAFT entries and one already SUBMITTED
	// WHEN: Submitting all three as a batch
	// THEN: None transition

	svc, st := newTestService(t)
	ctx := context.Background()

	for _, id := range []string{"tl-1", "tl-2", "tl-3"} {
		_, err := svc.CreateTimeLog(ctx, newTimeLogInput(id))
		require.NoError(t, err)
	}
	require.NoError(t, st.TransitionTimeLog(ctx, "tl-2", ledger.StatusDraft, ledger.StatusSubmitted))

	err := st.SubmitBatch(ctx, []string{"tl-1", "tl-2", "tl-3"}, nil)
	require.ErrorIs(t, err, ledger.ErrStatusConflict)

	for _, c := range []struct {
		id   string
		want ledger.Status
	}{
		{"tl-1", ledger.StatusDraft},
		{"tl-2", ledger.StatusSubmitted},
		{"tl-3", ledger.StatusDraft},
	} {
		stored, err := st.GetTimeLog(ctx, c.id)
		require.NoError(t, err)
		assert.Equal(t, c.want, stored.Status, "entry %s", c.id)
	}

	// A clean batch goes through.
	require.NoError(t, st.SubmitBatch(ctx, []string{"tl-1", "tl-3"}, nil))
	for _, id := range []string{"tl-1", "tl-3"} {
		stored, err := st.GetTimeLog(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, ledger.StatusSubmitted, stored.Status)
	}
}

// =============================================================================
// ASSIGNMENT SUPERSESSION
// =============================================================================

func TestSaveAssignment_SupersedesPriorForPair(t *testing.T) {
	// At most one live assignment per (subcontractor, client) pair.
	_, st := newTestService(t)
	ctx := context.Background()

	require.NoError(t, st.SaveAssignment(ctx, ratecard.Assignment{
		ID: "asg-2", CompanyID: "co-1",
		SubcontractorID: "sub-1", ClientID: "client-1",
		PayCardID: "pay-1",
	}))

	live, err := st.GetAssignment(ctx, "sub-1", "client-1")
	require.NoError(t, err)
	assert.Equal(t, "asg-2", live.ID)

	all, err := st.ListAssignments(ctx, "co-1")
	require.NoError(t, err)
	assert.Len(t, all, 1, "superseded assignment must not remain live")
}
