package ratecard_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/warp/rate-engine/ratecard"
	"github.com/warp/rate-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func testTemplate() ratecard.Template {
	return ratecard.Template{
		ID:        "tmpl-1",
		CompanyID: "co-1",
		Name:      "Industrial Shifts",
		Timeframes: []ratecard.TimeframeDef{
			{ID: "tf-day", Name: "Weekday Day", StartTime: "07:00", EndTime: "17:00"},
			{ID: "tf-night", Name: "Night", StartTime: "19:00", EndTime: "05:00"},
		},
		ExpenseCategories: []ratecard.ExpenseCategory{
			{ID: "cat-mileage", Name: "Mileage"},
		},
		Active: true,
	}
}

func linkedCard(id string) ratecard.Card {
	return ratecard.Card{
		ID:           id,
		CompanyID:    "co-1",
		Kind:         ratecard.KindPay,
		TemplateID:   "tmpl-1",
		TemplateName: "Old Template Name",
		Rates: []ratecard.RateEntry{
			{
				RoleName:      "Fitter",
				Timeframe:     ratecard.TimeframeByID("tf-day", "Old Day Name"),
				BaseRate:      d("17.88"),
				OTRate:        d("26.82"),
				EffectiveFrom: date(2025, time.January, 1),
			},
			{
				RoleName:      "Fitter",
				Timeframe:     ratecard.TimeframeByLabel("Legacy Shift"),
				BaseRate:      d("15"),
				OTRate:        d("22.50"),
				EffectiveFrom: date(2025, time.January, 1),
			},
		},
		Expenses: []ratecard.ExpenseRateEntry{
			{CategoryID: "cat-mileage", CategoryName: "Old Mileage Name", Rate: d("0.45"), UnitType: "per_mile"},
		},
		Active: true,
	}
}

// =============================================================================
// SYNC BEHAVIOR
// =============================================================================

func TestSyncTemplate_RefreshesLabelsOnly(t *testing.T) {
	// GIVEN: A card whose denormalized labels are stale
	// WHEN: Syncing the template
	// THEN: Labels refresh, numeric rates are untouched, legacy entries skipped

	ctx := context.Background()
	st := memory.New()
	tmpl := testTemplate()
	if err := st.SaveTemplate(ctx, tmpl); err != nil {
		t.Fatalf("saving template: %v", err)
	}
	if err := st.SaveCard(ctx, linkedCard("card-1")); err != nil {
		t.Fatalf("saving card: %v", err)
	}

	syncer := &ratecard.Syncer{Templates: st, Cards: st}
	result, err := syncer.SyncTemplate(ctx, "tmpl-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RateCardsUpdated != 1 || !result.OK() {
		t.Fatalf("result = %+v, want 1 updated / no errors", result)
	}

	card, err := st.GetCard(ctx, "card-1")
	if err != nil {
		t.Fatalf("reloading card: %v", err)
	}
	if card.TemplateName != "Industrial Shifts" {
		t.Errorf("TemplateName = %q, want refreshed", card.TemplateName)
	}
	if card.Rates[0].Timeframe.Label != "Weekday Day" {
		t.Errorf("timeframe label = %q, want Weekday Day", card.Rates[0].Timeframe.Label)
	}
	if !card.Rates[0].BaseRate.Equal(d("17.88")) || !card.Rates[0].OTRate.Equal(d("26.82")) {
		t.Errorf("numeric rates were modified by sync: %+v", card.Rates[0])
	}
	if card.Rates[1].Timeframe.Label != "Legacy Shift" {
		t.Errorf("legacy entry label = %q, want untouched", card.Rates[1].Timeframe.Label)
	}
	if card.Expenses[0].CategoryName != "Mileage" {
		t.Errorf("expense category name = %q, want Mileage", card.Expenses[0].CategoryName)
	}
	if !card.Expenses[0].Rate.Equal(d("0.45")) {
		t.Errorf("expense rate was modified by sync: %s", card.Expenses[0].Rate)
	}
}

// failingCards wraps a CardStore and fails saves for one card id.
type failingCards struct {
	ratecard.CardStore
	failID string
}

func (f *failingCards) SaveCard(ctx context.Context, c ratecard.Card) error {
	if c.ID == f.failID {
		return errors.New("simulated save failure")
	}
	return f.CardStore.SaveCard(ctx, c)
}

func TestSyncTemplate_PartialFailureIsIsolated(t *testing.T) {
	// GIVEN: 5 linked cards, one of which fails to save
	// WHEN: Syncing
	// THEN: 4 updated, 1 collected error, the 4 keep their new labels

	ctx := context.Background()
	st := memory.New()
	if err := st.SaveTemplate(ctx, testTemplate()); err != nil {
		t.Fatalf("saving template: %v", err)
	}
	ids := []string{"card-1", "card-2", "card-3", "card-4", "card-5"}
	for _, id := range ids {
		if err := st.SaveCard(ctx, linkedCard(id)); err != nil {
			t.Fatalf("saving %s: %v", id, err)
		}
	}

	syncer := &ratecard.Syncer{
		Templates: st,
		Cards:     &failingCards{CardStore: st, failID: "card-3"},
	}
	result, err := syncer.SyncTemplate(ctx, "tmpl-1")
	if err != nil {
		t.Fatalf("batch should not abort on a per-card failure: %v", err)
	}

	if result.RateCardsUpdated != 4 {
		t.Errorf("RateCardsUpdated = %d, want 4", result.RateCardsUpdated)
	}
	if len(result.Errors) != 1 || result.Errors[0].CardID != "card-3" {
		t.Errorf("Errors = %+v, want exactly one for card-3", result.Errors)
	}

	for _, id := range ids {
		card, err := st.GetCard(ctx, id)
		if err != nil {
			t.Fatalf("reloading %s: %v", id, err)
		}
		want := "Industrial Shifts"
		if id == "card-3" {
			want = "Old Template Name" // failed card keeps stale labels
		}
		if card.TemplateName != want {
			t.Errorf("%s TemplateName = %q, want %q", id, card.TemplateName, want)
		}
	}
}

func TestSyncTemplate_NoChangesNeeded(t *testing.T) {
	// A card already in sync is not rewritten and not counted.
	ctx := context.Background()
	st := memory.New()
	tmpl := testTemplate()
	if err := st.SaveTemplate(ctx, tmpl); err != nil {
		t.Fatalf("saving template: %v", err)
	}

	card := linkedCard("card-1")
	card.TemplateName = tmpl.Name
	card.Rates[0].Timeframe.Label = "Weekday Day"
	card.Expenses[0].CategoryName = "Mileage"
	if err := st.SaveCard(ctx, card); err != nil {
		t.Fatalf("saving card: %v", err)
	}

	syncer := &ratecard.Syncer{Templates: st, Cards: st}
	result, err := syncer.SyncTemplate(ctx, "tmpl-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RateCardsUpdated != 0 {
		t.Errorf("RateCardsUpdated = %d, want 0", result.RateCardsUpdated)
	}
}

// =============================================================================
// TEMPLATE DEFAULT INVARIANT
// =============================================================================

func TestTemplateStore_SingleDefaultPerCompany(t *testing.T) {
	ctx := context.Background()
	st := memory.New()

	a := testTemplate()
	b := testTemplate()
	b.ID = "tmpl-2"
	b.Name = "Second"
	if err := st.SaveTemplate(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := st.SaveTemplate(ctx, b); err != nil {
		t.Fatal(err)
	}

	if err := st.SetDefault(ctx, "co-1", "tmpl-1"); err != nil {
		t.Fatal(err)
	}
	if err := st.SetDefault(ctx, "co-1", "tmpl-2"); err != nil {
		t.Fatal(err)
	}

	list, err := st.ListTemplates(ctx, "co-1")
	if err != nil {
		t.Fatal(err)
	}
	defaults := 0
	for _, tmpl := range list {
		if tmpl.IsDefault {
			defaults++
			if tmpl.ID != "tmpl-2" {
				t.Errorf("default = %s, want tmpl-2", tmpl.ID)
			}
		}
	}
	if defaults != 1 {
		t.Errorf("defaults = %d, want exactly 1", defaults)
	}

	// The current default cannot be deleted.
	if err := st.DeleteTemplate(ctx, "tmpl-2"); !errors.Is(err, ratecard.ErrTemplateIsDefault) {
		t.Errorf("deleting default: got %v, want ErrTemplateIsDefault", err)
	}
	// A non-default can.
	if err := st.DeleteTemplate(ctx, "tmpl-1"); err != nil {
		t.Errorf("deleting non-default: %v", err)
	}
}
