/*
handlers.go - HTTP API handlers for the rate engine

PURPOSE:
  Exposes rate card management, entry pricing, and cost tracking via
  REST API. Handles HTTP request/response, JSON serialization, and
  delegates to domain logic.

ENDPOINTS:
  Templates:
    GET    /api/templates                List templates for a company
    POST   /api/templates                Create/update template from JSON
    GET    /api/templates/{id}           Get template
    DELETE /api/templates/{id}           Delete (refused for the default)
    POST   /api/templates/{id}/default   Make this the company default
    POST   /api/templates/{id}/sync      Push label changes to linked cards

  Cards:
    GET    /api/cards                    List cards (by company or template)
    POST   /api/cards                    Create/update card from JSON
    GET    /api/cards/{id}               Get card
    DELETE /api/cards/{id}               Delete card

  Assignments:
    GET    /api/assignments              List assignments for a company
    POST   /api/assignments              Bind a (sub, client) pair to cards
    DELETE /api/assignments/{id}         Delete assignment

  Entries:
    POST   /api/time-logs                Log priced work (resolves rates)
    GET    /api/time-logs                List time logs (filtered)
    GET    /api/time-logs/{id}           Get time log
    POST   /api/time-logs/{id}/transition   Move status (optimistic)
    POST   /api/expenses                 Log a billed expense
    GET    /api/expenses                 List expenses (filtered)
    GET    /api/expenses/{id}            Get expense
    POST   /api/expenses/{id}/transition Move status (optimistic)
    POST   /api/entries/submit           Submit a DRAFT batch all-or-nothing

  Reporting:
    GET    /api/projects/{id}/tracking          Cost tracking report
    GET    /api/projects/{id}/tracking/export   Report as .xlsx

  Subcontractors:
    GET    /api/subcontractors           List display names
    POST   /api/subcontractors           Register a display name

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access (all four store interfaces)
  - Factory: JSON catalogue to domain conversion
  - Service: Entry creation with rate resolution
  - Syncer: Template label propagation
  - Metrics: Prometheus counters

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, unresolvable rates, invalid input
  - 404: Resource not found
  - 409: Status conflicts, deleting the default template
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/rate-engine/factory"
	"github.com/warp/rate-engine/ledger"
	"github.com/warp/rate-engine/money"
	"github.com/warp/rate-engine/ratecard"
	"github.com/warp/rate-engine/store/sqlite"
	"github.com/warp/rate-engine/tracking"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Factory *factory.Factory
	Service *ledger.Service
	Syncer  *ratecard.Syncer
	Metrics *Metrics

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:   store,
		Factory: factory.New(),
		Service: &ledger.Service{
			Cards:       store,
			Assignments: store,
			Entries:     store,
		},
		Syncer: &ratecard.Syncer{
			Templates: store,
			Cards:     store,
		},
		Metrics: NewMetrics(),
	}
}

// =============================================================================
// TEMPLATE HANDLERS
// =============================================================================

// ListTemplates returns the templates for a company.
// GET /api/templates?company_id=...
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	companyID := r.URL.Query().Get("company_id")
	templates, err := h.Store.ListTemplates(r.Context(), companyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list templates", err)
		return
	}

	dtos := make([]TemplateDTO, 0, len(templates))
	for i := range templates {
		dtos = append(dtos, TemplateDTO{TemplateJSON: h.Factory.TemplateToJSON(&templates[i])})
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": dtos})
}

// CreateTemplate creates or updates a template from catalogue JSON.
// POST /api/templates
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req CreateTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	tmpl, err := h.Factory.TemplateFromJSON(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid template", err)
		return
	}
	if err := h.Store.SaveTemplate(r.Context(), *tmpl); err != nil {
		writeDomainError(w, "Failed to save template", err)
		return
	}
	if req.IsDefault {
		if err := h.Store.SetDefault(r.Context(), tmpl.CompanyID, tmpl.ID); err != nil {
			writeDomainError(w, "Failed to set default template", err)
			return
		}
	}

	writeJSON(w, http.StatusCreated, TemplateDTO{TemplateJSON: h.Factory.TemplateToJSON(tmpl)})
}

// GetTemplate returns one template with its linked-card count.
// GET /api/templates/{id}
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	tmpl, err := h.Store.GetTemplate(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get template", err)
		return
	}

	cards, err := h.Store.ListCardsByTemplate(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count linked cards", err)
		return
	}

	writeJSON(w, http.StatusOK, TemplateDTO{
		TemplateJSON: h.Factory.TemplateToJSON(tmpl),
		LinkedCards:  len(cards),
	})
}

// DeleteTemplate removes a template unless it is the company default.
// DELETE /api/templates/{id}
func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteTemplate(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "Failed to delete template", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetDefaultTemplate makes the template the company default, superseding
// any previous default.
// POST /api/templates/{id}/default?company_id=...
func (h *Handler) SetDefaultTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	companyID := r.URL.Query().Get("company_id")
	if companyID == "" {
		tmpl, err := h.Store.GetTemplate(r.Context(), id)
		if err != nil {
			writeDomainError(w, "Failed to get template", err)
			return
		}
		companyID = tmpl.CompanyID
	}

	if err := h.Store.SetDefault(r.Context(), companyID, id); err != nil {
		writeDomainError(w, "Failed to set default template", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"company_id": companyID, "template_id": id})
}

// SyncTemplate pushes the template's current labels to all linked cards.
// Card failures are isolated: the rest of the cards still update.
// POST /api/templates/{id}/sync
func (h *Handler) SyncTemplate(w http.ResponseWriter, r *http.Request) {
	res, err := h.Syncer.SyncTemplate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to sync template", err)
		return
	}

	if res.OK() {
		h.Metrics.SyncRun("clean")
	} else {
		h.Metrics.SyncRun("partial")
	}
	writeJSON(w, http.StatusOK, toSyncResultDTO(res))
}

// =============================================================================
// CARD HANDLERS
// =============================================================================

// ListCards returns cards for a company, or those linked to a template.
// GET /api/cards?company_id=... | ?template_id=...
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	var (
		cards []ratecard.Card
		err   error
	)
	if templateID := r.URL.Query().Get("template_id"); templateID != "" {
		cards, err = h.Store.ListCardsByTemplate(r.Context(), templateID)
	} else {
		cards, err = h.Store.ListCards(r.Context(), r.URL.Query().Get("company_id"))
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list cards", err)
		return
	}

	dtos := make([]CardDTO, 0, len(cards))
	for i := range cards {
		dtos = append(dtos, CardDTO{
			CardJSON:     h.Factory.CardToJSON(&cards[i]),
			TemplateName: cards[i].TemplateName,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"cards": dtos})
}

// CreateCard creates or updates a rate card from catalogue JSON. A
// template-linked card gets its labels denormalized at parse time.
// POST /api/cards
func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req CreateCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	var tmpl *ratecard.Template
	if req.TemplateID != "" {
		var err error
		tmpl, err = h.Store.GetTemplate(r.Context(), req.TemplateID)
		if err != nil {
			writeDomainError(w, "Failed to load linked template", err)
			return
		}
	}

	card, err := h.Factory.CardFromJSON(req, tmpl)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rate card", err)
		return
	}
	if err := h.Store.SaveCard(r.Context(), *card); err != nil {
		writeDomainError(w, "Failed to save card", err)
		return
	}

	writeJSON(w, http.StatusCreated, CardDTO{
		CardJSON:     h.Factory.CardToJSON(card),
		TemplateName: card.TemplateName,
	})
}

// GetCard returns one rate card.
// GET /api/cards/{id}
func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	card, err := h.Store.GetCard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get card", err)
		return
	}
	writeJSON(w, http.StatusOK, CardDTO{
		CardJSON:     h.Factory.CardToJSON(card),
		TemplateName: card.TemplateName,
	})
}

// DeleteCard removes a rate card. Entries already priced against it
// keep their stored amounts.
// DELETE /api/cards/{id}
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteCard(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "Failed to delete card", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ASSIGNMENT HANDLERS
// =============================================================================

// ListAssignments returns a company's assignments.
// GET /api/assignments?company_id=...
func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.Store.ListAssignments(r.Context(), r.URL.Query().Get("company_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list assignments", err)
		return
	}

	dtos := make([]AssignmentDTO, 0, len(assignments))
	for i := range assignments {
		dtos = append(dtos, toAssignmentDTO(&assignments[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"assignments": dtos})
}

// CreateAssignment binds a (subcontractor, client) pair to pay/bill
// cards. An existing binding for the pair is superseded atomically.
// POST /api/assignments
func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req CreateAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}

	assignment := ratecard.Assignment{
		ID:              uuid.NewString(),
		CompanyID:       req.CompanyID,
		SubcontractorID: req.SubcontractorID,
		ClientID:        req.ClientID,
		PayCardID:       req.PayCardID,
		BillCardID:      req.BillCardID,
		CreatedAt:       time.Now().UTC(),
	}
	if err := h.Store.SaveAssignment(r.Context(), assignment); err != nil {
		writeDomainError(w, "Failed to save assignment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAssignmentDTO(&assignment))
}

// DeleteAssignment removes an assignment by id.
// DELETE /api/assignments/{id}
func (h *Handler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteAssignment(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "Failed to delete assignment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SUBCONTRACTOR HANDLERS
// =============================================================================

// ListSubcontractors returns the registered display names.
// GET /api/subcontractors?company_id=...
func (h *Handler) ListSubcontractors(w http.ResponseWriter, r *http.Request) {
	subs, err := h.Store.ListSubcontractors(r.Context(), r.URL.Query().Get("company_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list subcontractors", err)
		return
	}

	type SubcontractorRecordDTO struct {
		ID        string `json:"id"`
		CompanyID string `json:"company_id"`
		Name      string `json:"name"`
	}
	dtos := make([]SubcontractorRecordDTO, 0, len(subs))
	for _, sub := range subs {
		dtos = append(dtos, SubcontractorRecordDTO{ID: sub.ID, CompanyID: sub.CompanyID, Name: sub.Name})
	}
	writeJSON(w, http.StatusOK, map[string]any{"subcontractors": dtos})
}

// CreateSubcontractor registers a display name for reporting.
// POST /api/subcontractors
func (h *Handler) CreateSubcontractor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID        string `json:"id"`
		CompanyID string `json:"company_id"`
		Name      string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Subcontractor name is required", nil)
		return
	}

	sub := sqlite.Subcontractor{ID: req.ID, CompanyID: req.CompanyID, Name: req.Name}
	if err := h.Store.SaveSubcontractor(r.Context(), sub); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save subcontractor", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// =============================================================================
// TIME LOG HANDLERS
// =============================================================================

// CreateTimeLog prices and appends a work entry. The financial fields
// are resolved exactly once, here; later card edits never touch them.
// POST /api/time-logs
func (h *Handler) CreateTimeLog(w http.ResponseWriter, r *http.Request) {
	var req CreateTimeLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	hoursRegular, err := parseDecimalField("hours_regular", req.HoursRegular)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hours", err)
		return
	}
	hoursOT := decimal.Zero
	if req.HoursOT != "" {
		if hoursOT, err = parseDecimalField("hours_ot", req.HoursOT); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid hours", err)
			return
		}
	}

	var timeframe ratecard.TimeframeRef
	switch {
	case req.TimeframeID != "":
		timeframe = ratecard.TimeframeByID(req.TimeframeID, "")
	case req.ShiftType != "":
		timeframe = ratecard.TimeframeByLabel(req.ShiftType)
	default:
		writeError(w, http.StatusBadRequest, "Either timeframe_id or shift_type is required", nil)
		return
	}

	entry, err := h.Service.CreateTimeLog(r.Context(), ledger.NewTimeLogInput{
		ID:              uuid.NewString(),
		CompanyID:       req.CompanyID,
		ProjectID:       req.ProjectID,
		SubcontractorID: req.SubcontractorID,
		ClientID:        req.ClientID,
		RoleName:        req.Role,
		Timeframe:       timeframe,
		Date:            date,
		HoursRegular:    hoursRegular,
		HoursOT:         hoursOT,
		Currency:        req.Currency,
	})
	if err != nil {
		var notFound *ratecard.RateNotFoundError
		if errors.As(err, &notFound) {
			h.Metrics.RateNotFound(string(notFound.Side))
		}
		writeDomainError(w, "Failed to create time log", err)
		return
	}

	h.Metrics.EntryCreated("time_log")
	writeJSON(w, http.StatusCreated, toTimeLogDTO(entry))
}

// ListTimeLogs returns time logs matching the filter query.
// GET /api/time-logs?company_id=&project_id=&subcontractor_id=&from=&to=
func (h *Handler) ListTimeLogs(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}

	logs, err := h.Store.ListTimeLogs(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list time logs", err)
		return
	}

	dtos := make([]TimeLogDTO, 0, len(logs))
	for i := range logs {
		dtos = append(dtos, toTimeLogDTO(&logs[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"time_logs": dtos})
}

// GetTimeLog returns one time log.
// GET /api/time-logs/{id}
func (h *Handler) GetTimeLog(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Store.GetTimeLog(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get time log", err)
		return
	}
	writeJSON(w, http.StatusOK, toTimeLogDTO(entry))
}

// TransitionTimeLog moves a time log between statuses.
// POST /api/time-logs/{id}/transition
func (h *Handler) TransitionTimeLog(w http.ResponseWriter, r *http.Request) {
	h.transitionEntry(w, r, h.Store.TransitionTimeLog)
}

// =============================================================================
// EXPENSE HANDLERS
// =============================================================================

// CreateExpense appends a billed expense.
// POST /api/expenses
func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var req CreateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	input := ledger.NewExpenseInput{
		ID:              uuid.NewString(),
		CompanyID:       req.CompanyID,
		ProjectID:       req.ProjectID,
		SubcontractorID: req.SubcontractorID,
		ClientID:        req.ClientID,
		Category:        req.Category,
		Date:            date,
		Currency:        req.Currency,
	}
	if req.Amount != "" {
		if input.Amount, err = parseDecimalField("amount", req.Amount); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid amount", err)
			return
		}
	}
	if req.Quantity != "" {
		q, err := parseDecimalField("quantity", req.Quantity)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid quantity", err)
			return
		}
		input.Quantity = &q
	}
	if req.UnitRate != "" {
		rate, err := parseDecimalField("unit_rate", req.UnitRate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid unit rate", err)
			return
		}
		input.UnitRate = &rate
	}

	entry, err := h.Service.CreateExpense(r.Context(), input)
	if err != nil {
		writeDomainError(w, "Failed to create expense", err)
		return
	}

	h.Metrics.EntryCreated("expense")
	writeJSON(w, http.StatusCreated, toExpenseDTO(entry))
}

// ListExpenses returns expenses matching the filter query.
// GET /api/expenses?company_id=&project_id=&subcontractor_id=&from=&to=
func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid filter", err)
		return
	}

	expenses, err := h.Store.ListExpenses(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list expenses", err)
		return
	}

	dtos := make([]ExpenseDTO, 0, len(expenses))
	for i := range expenses {
		dtos = append(dtos, toExpenseDTO(&expenses[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": dtos})
}

// GetExpense returns one expense.
// GET /api/expenses/{id}
func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Store.GetExpense(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get expense", err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseDTO(entry))
}

// TransitionExpense moves an expense between statuses.
// POST /api/expenses/{id}/transition
func (h *Handler) TransitionExpense(w http.ResponseWriter, r *http.Request) {
	h.transitionEntry(w, r, h.Store.TransitionExpense)
}

// =============================================================================
// BATCH SUBMISSION
// =============================================================================

// SubmitBatch moves a set of DRAFT entries to SUBMITTED. All-or-nothing:
// one bad entry rolls back the whole batch.
// POST /api/entries/submit
func (h *Handler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req SubmitBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}
	if len(req.TimeLogIDs) == 0 && len(req.ExpenseIDs) == 0 {
		writeError(w, http.StatusBadRequest, "Batch is empty", nil)
		return
	}

	if err := h.Store.SubmitBatch(r.Context(), req.TimeLogIDs, req.ExpenseIDs); err != nil {
		h.Metrics.BatchSubmit("rolled_back")
		writeDomainError(w, "Batch submission failed", err)
		return
	}

	h.Metrics.BatchSubmit("committed")
	writeJSON(w, http.StatusOK, map[string]any{
		"submitted": len(req.TimeLogIDs) + len(req.ExpenseIDs),
	})
}

// =============================================================================
// TRACKING HANDLERS
// =============================================================================

// GetProjectTracking aggregates a project's entries into the cost
// tracking report: totals, per-status buckets, per-subcontractor rows.
// GET /api/projects/{id}/tracking?company_id=&from=&to=
func (h *Handler) GetProjectTracking(w http.ResponseWriter, r *http.Request) {
	report, err := h.buildTracking(r)
	if err != nil {
		writeDomainError(w, "Failed to build tracking report", err)
		return
	}

	h.Metrics.TrackingReport()
	writeJSON(w, http.StatusOK, toTrackingDTO(report))
}

// ExportProjectTracking streams the tracking report as a spreadsheet.
// GET /api/projects/{id}/tracking/export
func (h *Handler) ExportProjectTracking(w http.ResponseWriter, r *http.Request) {
	report, err := h.buildTracking(r)
	if err != nil {
		writeDomainError(w, "Failed to build tracking report", err)
		return
	}

	projectID := chi.URLParam(r, "id")
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="tracking-%s.xlsx"`, projectID))
	if err := tracking.WriteXLSX(report, w); err != nil {
		// Headers already sent; nothing sane to do but log-and-drop.
		return
	}
	h.Metrics.TrackingReport()
}

func (h *Handler) buildTracking(r *http.Request) (*tracking.ProjectTracking, error) {
	filter, err := parseFilter(r)
	if err != nil {
		return nil, err
	}
	filter.ProjectID = chi.URLParam(r, "id")

	ctx := r.Context()
	timeLogs, err := h.Store.ListTimeLogs(ctx, filter)
	if err != nil {
		return nil, err
	}
	expenses, err := h.Store.ListExpenses(ctx, filter)
	if err != nil {
		return nil, err
	}
	names, err := h.Store.SubcontractorNames(ctx, filter.CompanyID)
	if err != nil {
		return nil, err
	}

	return tracking.Aggregate(timeLogs, expenses, names), nil
}

// =============================================================================
// HELPERS
// =============================================================================

type transitionFunc func(ctx context.Context, id string, from, to ledger.Status) error

func (h *Handler) transitionEntry(w http.ResponseWriter, r *http.Request, transition transitionFunc) {
	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}

	id := chi.URLParam(r, "id")
	from, to := ledger.Status(req.From), ledger.Status(req.To)
	if err := transition(r.Context(), id, from, to); err != nil {
		h.Metrics.Transition(req.To, "refused")
		writeDomainError(w, "Transition failed", err)
		return
	}

	h.Metrics.Transition(req.To, "applied")
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": req.To})
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	return time.Parse("2006-01-02", s)
}

func parseDecimalField(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q", field, s)
	}
	return d, nil
}

func parseFilter(r *http.Request) (ledger.Filter, error) {
	q := r.URL.Query()
	filter := ledger.Filter{
		CompanyID:       q.Get("company_id"),
		ProjectID:       q.Get("project_id"),
		SubcontractorID: q.Get("subcontractor_id"),
	}
	if from := q.Get("from"); from != "" {
		t, err := parseDate(from)
		if err != nil {
			return filter, err
		}
		filter.From = t
	}
	if to := q.Get("to"); to != "" {
		t, err := parseDate(to)
		if err != nil {
			return filter, err
		}
		filter.To = t
	}
	return filter, nil
}

// writeDomainError maps domain errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	var invalidRate *money.InvalidRateError
	var invalidTransition *ledger.InvalidTransitionError
	var rateNotFound *ratecard.RateNotFoundError

	switch {
	case ratecard.IsNotFound(err) || errors.Is(err, ledger.ErrEntryNotFound):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, ledger.ErrStatusConflict) || errors.Is(err, ratecard.ErrTemplateIsDefault):
		writeError(w, http.StatusConflict, message, err)
	case ratecard.IsClientError(err),
		errors.As(err, &invalidRate),
		errors.As(err, &invalidTransition),
		errors.As(err, &rateNotFound),
		errors.Is(err, ledger.ErrInvalidTransition):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
