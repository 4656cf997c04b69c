/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates templates, cards,
	assignments, and ledger entries that demonstrate specific features.

AVAILABLE SCENARIOS:

	industrial-project: Template-linked cards, two subcontractors, a month
	                    of entries across DRAFT/SUBMITTED/APPROVED
	legacy-cards:       Free-form shift labels, no template link
	template-sync:      Renamed timeframes pushed to linked cards

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create template and cards via factory presets
 3. Bind subcontractor/client pairs to cards
 4. Log time and expenses through the pricing service
 5. Transition a slice of entries through the approval flow

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "industrial-project"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: LoadScenario, ListScenarios handlers
  - factory/presets.go: Catalogue JSON presets
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/rate-engine/factory"
	"github.com/warp/rate-engine/ledger"
	"github.com/warp/rate-engine/ratecard"
	"github.com/warp/rate-engine/store/sqlite"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes one demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "industrial-project",
		Name:        "Industrial Project",
		Description: "Template-linked pay/bill cards, two subcontractors, entries across the approval flow",
		Category:    "tracking",
	},
	{
		ID:          "legacy-cards",
		Name:        "Legacy Shift Labels",
		Description: "Cards priced on free-form shift labels with no template link",
		Category:    "ratecards",
	},
	{
		ID:          "template-sync",
		Name:        "Template Sync",
		Description: "Template rename propagated to linked cards without touching rates",
		Category:    "templates",
	},
}

const demoCompany = "acme"

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}

	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          h.currentScenario,
		Name:        h.currentScenario,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()

	// Reset first
	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	var err error
	switch req.ScenarioID {
	case "industrial-project":
		err = h.loadIndustrialProjectScenario(ctx)
	case "legacy-cards":
		err = h.loadLegacyCardsScenario(ctx)
	case "template-sync":
		err = h.loadTemplateSyncScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.currentScenario = req.ScenarioID

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// LoadDemo seeds the default demo scenario. Called at startup when
// SEED_DEMO is set.
func (h *Handler) LoadDemo(ctx context.Context) error {
	if err := h.Store.Reset(ctx); err != nil {
		return err
	}
	if err := h.loadIndustrialProjectScenario(ctx); err != nil {
		return err
	}
	h.currentScenario = "industrial-project"
	return nil
}

func (h *Handler) loadIndustrialProjectScenario(ctx context.Context) error {
	// Template and template-linked cards for two trades
	if err := h.createTemplateFromJSON(ctx, factory.IndustrialTemplateJSON("tpl-industrial", demoCompany, "Industrial Standard")); err != nil {
		return err
	}
	if err := h.Store.SetDefault(ctx, demoCompany, "tpl-industrial"); err != nil {
		return err
	}

	cards := []string{
		factory.TradeCardJSON("pay-fitters", demoCompany, "pay", "tpl-industrial", "Fitter", 17.88, 26.82),
		factory.TradeCardJSON("bill-fitters", demoCompany, "bill", "tpl-industrial", "Fitter", 22.35, 33.53),
		factory.TradeCardJSON("pay-welders", demoCompany, "pay", "tpl-industrial", "Welder", 21.50, 32.25),
		factory.TradeCardJSON("bill-welders", demoCompany, "bill", "tpl-industrial", "Welder", 27.95, 41.93),
	}
	for _, cardJSON := range cards {
		if err := h.createCardFromJSON(ctx, cardJSON); err != nil {
			return err
		}
	}

	// Two subcontractor crews on the same client
	subs := []sqlite.Subcontractor{
		{ID: "sub-northside", CompanyID: demoCompany, Name: "Northside Fitters Ltd"},
		{ID: "sub-delta", CompanyID: demoCompany, Name: "Delta Welding Crew"},
	}
	for _, sub := range subs {
		if err := h.Store.SaveSubcontractor(ctx, sub); err != nil {
			return err
		}
	}

	assignments := []ratecard.Assignment{
		{ID: "asg-northside", CompanyID: demoCompany, SubcontractorID: "sub-northside",
			ClientID: "client-steelworks", PayCardID: "pay-fitters", BillCardID: "bill-fitters"},
		{ID: "asg-delta", CompanyID: demoCompany, SubcontractorID: "sub-delta",
			ClientID: "client-steelworks", PayCardID: "pay-welders", BillCardID: "bill-welders"},
	}
	for _, a := range assignments {
		if err := h.Store.SaveAssignment(ctx, a); err != nil {
			return err
		}
	}

	// A week of priced work per crew, plus mileage
	type workDay struct {
		sub, role string
		day       int
		regular   string
		overtime  string
	}
	week := []workDay{
		{"sub-northside", "Fitter", 2, "8", "0"},
		{"sub-northside", "Fitter", 3, "8", "2"},
		{"sub-northside", "Fitter", 4, "8", "0"},
		{"sub-delta", "Welder", 2, "10", "0"},
		{"sub-delta", "Welder", 3, "8", "3"},
	}
	var timeLogIDs []string
	for i, d := range week {
		entry, err := h.Service.CreateTimeLog(ctx, ledger.NewTimeLogInput{
			ID:              fmt.Sprintf("demo-tl-%d", i+1),
			CompanyID:       demoCompany,
			ProjectID:       "proj-steelworks",
			SubcontractorID: d.sub,
			ClientID:        "client-steelworks",
			RoleName:        d.role,
			Timeframe:       ratecard.TimeframeByID("tpl-industrial-day", ""),
			Date:            time.Date(2026, 3, d.day, 0, 0, 0, 0, time.UTC),
			HoursRegular:    decimal.RequireFromString(d.regular),
			HoursOT:         decimal.RequireFromString(d.overtime),
			Currency:        "GBP",
		})
		if err != nil {
			return err
		}
		timeLogIDs = append(timeLogIDs, entry.ID)
	}

	mileage := decimal.RequireFromString("122")
	rate := decimal.RequireFromString("0.45")
	if _, err := h.Service.CreateExpense(ctx, ledger.NewExpenseInput{
		ID:              "demo-exp-1",
		CompanyID:       demoCompany,
		ProjectID:       "proj-steelworks",
		SubcontractorID: "sub-northside",
		ClientID:        "client-steelworks",
		Category:        "Mileage",
		Date:            time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC),
		Quantity:        &mileage,
		UnitRate:        &rate,
		Currency:        "GBP",
	}); err != nil {
		return err
	}

	// Walk a slice of the week through the approval flow
	if err := h.Store.SubmitBatch(ctx, timeLogIDs[:3], nil); err != nil {
		return err
	}
	if err := h.Store.TransitionTimeLog(ctx, timeLogIDs[0], ledger.StatusSubmitted, ledger.StatusApproved); err != nil {
		return err
	}
	return h.Store.TransitionTimeLog(ctx, timeLogIDs[1], ledger.StatusSubmitted, ledger.StatusApproved)
}

func (h *Handler) loadLegacyCardsScenario(ctx context.Context) error {
	cards := []string{
		factory.LegacyCardJSON("pay-electricians", demoCompany, "pay", "Electrician", "Days", 19.20, 28.80),
		factory.LegacyCardJSON("bill-electricians", demoCompany, "bill", "Electrician", "Days", 24.00, 36.00),
	}
	for _, cardJSON := range cards {
		if err := h.createCardFromJSON(ctx, cardJSON); err != nil {
			return err
		}
	}

	if err := h.Store.SaveSubcontractor(ctx, sqlite.Subcontractor{
		ID: "sub-sparks", CompanyID: demoCompany, Name: "Sparks & Co",
	}); err != nil {
		return err
	}
	if err := h.Store.SaveAssignment(ctx, ratecard.Assignment{
		ID: "asg-sparks", CompanyID: demoCompany,
		SubcontractorID: "sub-sparks", ClientID: "client-mall",
		PayCardID: "pay-electricians", BillCardID: "bill-electricians",
	}); err != nil {
		return err
	}

	// Legacy entries match by label, case-insensitively
	_, err := h.Service.CreateTimeLog(ctx, ledger.NewTimeLogInput{
		ID:              "demo-legacy-tl-1",
		CompanyID:       demoCompany,
		ProjectID:       "proj-mall",
		SubcontractorID: "sub-sparks",
		ClientID:        "client-mall",
		RoleName:        "Electrician",
		Timeframe:       ratecard.TimeframeByLabel("days"),
		Date:            time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		HoursRegular:    decimal.RequireFromString("8"),
		HoursOT:         decimal.Zero,
		Currency:        "GBP",
	})
	return err
}

func (h *Handler) loadTemplateSyncScenario(ctx context.Context) error {
	if err := h.createTemplateFromJSON(ctx, factory.IndustrialTemplateJSON("tpl-sync", demoCompany, "Site Standard")); err != nil {
		return err
	}
	if err := h.createCardFromJSON(ctx,
		factory.TradeCardJSON("pay-riggers", demoCompany, "pay", "tpl-sync", "Rigger", 18.40, 27.60)); err != nil {
		return err
	}

	// Rename a timeframe, then push labels to the linked card
	tmpl, err := h.Store.GetTemplate(ctx, "tpl-sync")
	if err != nil {
		return err
	}
	for i := range tmpl.Timeframes {
		if tmpl.Timeframes[i].ID == "tpl-sync-day" {
			tmpl.Timeframes[i].Name = "Weekday Days"
		}
	}
	if err := h.Store.SaveTemplate(ctx, *tmpl); err != nil {
		return err
	}

	_, err = h.Syncer.SyncTemplate(ctx, "tpl-sync")
	return err
}

// =============================================================================
// FACTORY HELPERS
// =============================================================================

func (h *Handler) createTemplateFromJSON(ctx context.Context, jsonStr string) error {
	tmpl, err := h.Factory.ParseTemplate(jsonStr)
	if err != nil {
		return err
	}
	return h.Store.SaveTemplate(ctx, *tmpl)
}

func (h *Handler) createCardFromJSON(ctx context.Context, jsonStr string) error {
	var probe struct {
		TemplateID string `json:"template_id"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &probe); err != nil {
		return err
	}

	var tmpl *ratecard.Template
	if probe.TemplateID != "" {
		var err error
		tmpl, err = h.Store.GetTemplate(ctx, probe.TemplateID)
		if err != nil {
			return err
		}
	}

	card, err := h.Factory.ParseCard(jsonStr, tmpl)
	if err != nil {
		return err
	}
	return h.Store.SaveCard(ctx, *card)
}
