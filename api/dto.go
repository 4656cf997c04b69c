/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Templates:
    TemplateDTO (wraps factory.TemplateJSON), CreateTemplateRequest

  Cards:
    CardDTO (wraps factory.CardJSON), CreateCardRequest

  Assignments:
    AssignmentDTO, CreateAssignmentRequest

  Entries:
    TimeLogDTO, CreateTimeLogRequest
    ExpenseDTO, CreateExpenseRequest
    TransitionRequest, SubmitBatchRequest

  Reporting:
    TrackingDTO, TotalsDTO, SubcontractorDTO

DECIMALS:
  Money and hours cross the wire as strings, not floats. Clients parse
  them with their own decimal types; nothing rounds in transit.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/ratecard.go: TemplateJSON/CardJSON catalogue schema
*/
package api

import (
	"github.com/warp/rate-engine/factory"
	"github.com/warp/rate-engine/ledger"
	"github.com/warp/rate-engine/ratecard"
	"github.com/warp/rate-engine/tracking"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// TEMPLATES
// =============================================================================

// TemplateDTO represents a rate card template in API responses.
type TemplateDTO struct {
	factory.TemplateJSON
	LinkedCards int `json:"linked_cards,omitempty"`
}

// CreateTemplateRequest is the request to create or update a template.
// The body IS the catalogue JSON.
type CreateTemplateRequest = factory.TemplateJSON

// =============================================================================
// CARDS
// =============================================================================

// CardDTO represents a rate card in API responses.
type CardDTO struct {
	factory.CardJSON
	TemplateName string `json:"template_name,omitempty"`
}

// CreateCardRequest is the request to create or update a rate card.
type CreateCardRequest = factory.CardJSON

// =============================================================================
// ASSIGNMENTS
// =============================================================================

// AssignmentDTO represents a rate assignment.
type AssignmentDTO struct {
	ID              string `json:"id"`
	CompanyID       string `json:"company_id"`
	SubcontractorID string `json:"subcontractor_id"`
	ClientID        string `json:"client_id"`
	PayCardID       string `json:"pay_card_id,omitempty"`
	BillCardID      string `json:"bill_card_id,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
}

// CreateAssignmentRequest binds a (subcontractor, client) pair to cards.
// Saving over an existing pair supersedes the previous binding.
type CreateAssignmentRequest struct {
	CompanyID       string `json:"company_id"`
	SubcontractorID string `json:"subcontractor_id"`
	ClientID        string `json:"client_id"`
	PayCardID       string `json:"pay_card_id,omitempty"`
	BillCardID      string `json:"bill_card_id,omitempty"`
}

// =============================================================================
// TIME LOGS
// =============================================================================

// CreateTimeLogRequest is the request to log priced work. Exactly one
// of timeframe_id / shift_type identifies the timeframe; shift_type is
// the legacy free-form label.
type CreateTimeLogRequest struct {
	CompanyID       string `json:"company_id"`
	ProjectID       string `json:"project_id"`
	SubcontractorID string `json:"subcontractor_id"`
	ClientID        string `json:"client_id"`

	Role        string `json:"role"`
	TimeframeID string `json:"timeframe_id,omitempty"`
	ShiftType   string `json:"shift_type,omitempty"`
	Date        string `json:"date"` // YYYY-MM-DD

	HoursRegular string `json:"hours_regular"`
	HoursOT      string `json:"hours_ot,omitempty"`
	Currency     string `json:"currency,omitempty"`
}

// TimeLogDTO represents a priced time log in API responses.
type TimeLogDTO struct {
	ID              string `json:"id"`
	CompanyID       string `json:"company_id"`
	ProjectID       string `json:"project_id"`
	SubcontractorID string `json:"subcontractor_id"`
	ClientID        string `json:"client_id,omitempty"`

	Role      string `json:"role"`
	Timeframe string `json:"timeframe"`
	Date      string `json:"date"`

	HoursRegular string `json:"hours_regular"`
	HoursOT      string `json:"hours_ot"`
	SubCost      string `json:"sub_cost"`
	ClientBill   string `json:"client_bill"`
	MarginValue  string `json:"margin_value"`
	MarginPct    string `json:"margin_pct"`
	Currency     string `json:"currency,omitempty"`

	Status    string `json:"status"`
	CreatedAt string `json:"created_at,omitempty"`
}

// =============================================================================
// EXPENSES
// =============================================================================

// CreateExpenseRequest is the request to log a billed expense. Amount
// may be given directly, or derived from quantity and unit_rate.
type CreateExpenseRequest struct {
	CompanyID       string `json:"company_id"`
	ProjectID       string `json:"project_id"`
	SubcontractorID string `json:"subcontractor_id"`
	ClientID        string `json:"client_id,omitempty"`

	Category string `json:"category,omitempty"`
	Date     string `json:"date"` // YYYY-MM-DD

	Amount   string `json:"amount,omitempty"`
	Quantity string `json:"quantity,omitempty"`
	UnitRate string `json:"unit_rate,omitempty"`
	Currency string `json:"currency,omitempty"`
}

// ExpenseDTO represents an expense in API responses.
type ExpenseDTO struct {
	ID              string `json:"id"`
	CompanyID       string `json:"company_id"`
	ProjectID       string `json:"project_id"`
	SubcontractorID string `json:"subcontractor_id"`
	ClientID        string `json:"client_id,omitempty"`

	Category string `json:"category,omitempty"`
	Date     string `json:"date"`

	Amount   string `json:"amount"`
	Quantity string `json:"quantity,omitempty"`
	UnitRate string `json:"unit_rate,omitempty"`
	Currency string `json:"currency,omitempty"`

	Status    string `json:"status"`
	CreatedAt string `json:"created_at,omitempty"`
}

// =============================================================================
// STATUS TRANSITIONS
// =============================================================================

// TransitionRequest moves one entry between statuses. The expected
// current status makes the transition optimistic: a stale expectation
// gets a 409.
type TransitionRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// SubmitBatchRequest moves DRAFT entries to SUBMITTED all-or-nothing.
type SubmitBatchRequest struct {
	TimeLogIDs []string `json:"time_log_ids,omitempty"`
	ExpenseIDs []string `json:"expense_ids,omitempty"`
}

// =============================================================================
// REPORTING
// =============================================================================

// TotalsDTO is one aggregation bucket.
type TotalsDTO struct {
	Hours     string `json:"hours"`
	Cost      string `json:"cost"`
	Billing   string `json:"billing"`
	Margin    string `json:"margin"`
	MarginPct string `json:"margin_pct"`
	Entries   int    `json:"entries"`
}

// SubcontractorDTO is one per-subcontractor rollup row.
type SubcontractorDTO struct {
	SubcontractorID string `json:"subcontractor_id"`
	Name            string `json:"name,omitempty"`
	TotalsDTO
}

// TrackingDTO is the full cost tracking report for a project.
type TrackingDTO struct {
	Totals          TotalsDTO            `json:"totals"`
	ByStatus        map[string]TotalsDTO `json:"by_status"`
	Subcontractors  []SubcontractorDTO   `json:"subcontractors"`
	ExcludedEntries int                  `json:"excluded_entries"`
}

// SyncResultDTO reports a template sync run.
type SyncResultDTO struct {
	TemplateID       string   `json:"template_id"`
	RateCardsUpdated int      `json:"rate_cards_updated"`
	Errors           []string `json:"errors,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toTimeLogDTO(t *ledger.TimeLog) TimeLogDTO {
	return TimeLogDTO{
		ID:              t.ID,
		CompanyID:       t.CompanyID,
		ProjectID:       t.ProjectID,
		SubcontractorID: t.SubcontractorID,
		ClientID:        t.ClientID,
		Role:            t.RoleName,
		Timeframe:       t.Timeframe.String(),
		Date:            t.Date.Format("2006-01-02"),
		HoursRegular:    t.HoursRegular.String(),
		HoursOT:         t.HoursOT.String(),
		SubCost:         t.SubCost.String(),
		ClientBill:      t.ClientBill.String(),
		MarginValue:     t.MarginValue.String(),
		MarginPct:       t.MarginPct.String(),
		Currency:        t.Currency,
		Status:          string(t.Status),
		CreatedAt:       t.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func toExpenseDTO(e *ledger.Expense) ExpenseDTO {
	dto := ExpenseDTO{
		ID:              e.ID,
		CompanyID:       e.CompanyID,
		ProjectID:       e.ProjectID,
		SubcontractorID: e.SubcontractorID,
		ClientID:        e.ClientID,
		Category:        e.Category,
		Date:            e.Date.Format("2006-01-02"),
		Amount:          e.Amount.String(),
		Currency:        e.Currency,
		Status:          string(e.Status),
		CreatedAt:       e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if e.Quantity != nil {
		dto.Quantity = e.Quantity.String()
	}
	if e.UnitRate != nil {
		dto.UnitRate = e.UnitRate.String()
	}
	return dto
}

func toAssignmentDTO(a *ratecard.Assignment) AssignmentDTO {
	return AssignmentDTO{
		ID:              a.ID,
		CompanyID:       a.CompanyID,
		SubcontractorID: a.SubcontractorID,
		ClientID:        a.ClientID,
		PayCardID:       a.PayCardID,
		BillCardID:      a.BillCardID,
		CreatedAt:       a.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func toTotalsDTO(t tracking.Totals) TotalsDTO {
	return TotalsDTO{
		Hours:     t.Hours.String(),
		Cost:      t.Cost.String(),
		Billing:   t.Billing.String(),
		Margin:    t.Margin.String(),
		MarginPct: t.MarginPct().String(),
		Entries:   t.Entries,
	}
}

func toTrackingDTO(tr *tracking.ProjectTracking) TrackingDTO {
	dto := TrackingDTO{
		Totals: toTotalsDTO(tr.Totals),
		ByStatus: map[string]TotalsDTO{
			"draft":     toTotalsDTO(tr.ByStatus.Draft),
			"submitted": toTotalsDTO(tr.ByStatus.Submitted),
			"approved":  toTotalsDTO(tr.ByStatus.Approved),
		},
		Subcontractors:  make([]SubcontractorDTO, 0, len(tr.Subcontractors)),
		ExcludedEntries: tr.ExcludedEntries,
	}
	for _, sub := range tr.Subcontractors {
		dto.Subcontractors = append(dto.Subcontractors, SubcontractorDTO{
			SubcontractorID: sub.SubcontractorID,
			Name:            sub.Name,
			TotalsDTO:       toTotalsDTO(sub.Totals),
		})
	}
	return dto
}

func toSyncResultDTO(res *ratecard.SyncResult) SyncResultDTO {
	dto := SyncResultDTO{
		TemplateID:       res.TemplateID,
		RateCardsUpdated: res.RateCardsUpdated,
	}
	for _, e := range res.Errors {
		dto.Errors = append(dto.Errors, e.Error())
	}
	return dto
}
