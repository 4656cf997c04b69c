/*
Package factory provides JSON to Go template and rate card conversion.

PURPOSE:
  Converts JSON template and rate card definitions into domain structs.
  This enables catalogue configuration without code changes - an admin
  can define a company's shift vocabulary and rates in JSON, and the
  factory builds validated Go structs from it.

WHY JSON?
  - Non-developers can maintain the rate catalogue
  - Easy integration with an admin UI
  - Version control for rate definitions
  - Database storage of card configs

JSON SCHEMA (template):
  {
    "id": "tmpl-industrial",
    "company_id": "co-1",
    "name": "Industrial Shifts",
    "timeframes": [
      {"id": "tf-day", "name": "Mon-Fri Day", "start": "07:00", "end": "17:00"}
    ],
    "expense_categories": [{"id": "cat-mileage", "name": "Mileage"}],
    "resource_categories": ["Mechanical", "Electrical"]
  }

JSON SCHEMA (card):
  {
    "id": "card-pay-acme",
    "company_id": "co-1",
    "kind": "pay",
    "template_id": "tmpl-industrial",
    "rates": [
      {"role": "Fitter", "timeframe_id": "tf-day", "base_rate": 17.88,
       "ot_rate": 26.82, "effective_from": "2025-01-01"}
    ],
    "expenses": [
      {"category_id": "cat-mileage", "rate": 0.45, "unit_type": "per_mile"}
    ]
  }

  Legacy cards may use "shift_type" instead of "timeframe_id"; the
  factory normalizes both into a TimeframeRef.

VALIDATION:
  Parsed cards run the full save-time validation (rate bounds, window
  overlaps) before they are returned.

SEE ALSO:
  - ratecard/template.go, ratecard/card.go: target shapes
  - presets.go: canned definitions for seeding and demos
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/rate-engine/ratecard"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// TemplateJSON is the JSON representation of a rate card template.
type TemplateJSON struct {
	ID                 string               `json:"id"`
	CompanyID          string               `json:"company_id"`
	Name               string               `json:"name"`
	Description        string               `json:"description,omitempty"`
	Timeframes         []TimeframeJSON      `json:"timeframes,omitempty"`
	ExpenseCategories  []ExpenseCatJSON     `json:"expense_categories,omitempty"`
	ResourceCategories []string             `json:"resource_categories,omitempty"`
	IsDefault          bool                 `json:"is_default,omitempty"`
	Active             *bool                `json:"active,omitempty"` // default true
}

type TimeframeJSON struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

type ExpenseCatJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CardJSON is the JSON representation of a rate card.
type CardJSON struct {
	ID         string             `json:"id"`
	CompanyID  string             `json:"company_id"`
	Name       string             `json:"name,omitempty"`
	Kind       string             `json:"kind"` // "pay" or "bill"
	TemplateID string             `json:"template_id,omitempty"`
	Rates      []RateEntryJSON    `json:"rates,omitempty"`
	Expenses   []ExpenseRateJSON  `json:"expenses,omitempty"`
	Active     *bool              `json:"active,omitempty"` // default true
}

// RateEntryJSON represents one priced (role, timeframe, window) triple.
// Exactly one of timeframe_id / shift_type should be set; shift_type is
// the legacy free-form form.
type RateEntryJSON struct {
	Role          string  `json:"role"`
	Category      string  `json:"category,omitempty"`
	TimeframeID   string  `json:"timeframe_id,omitempty"`
	TimeframeName string  `json:"timeframe_name,omitempty"`
	ShiftType     string  `json:"shift_type,omitempty"`
	BaseRate      float64 `json:"base_rate"`
	OTRate        float64 `json:"ot_rate"`
	EffectiveFrom string  `json:"effective_from"`          // YYYY-MM-DD
	EffectiveTo   string  `json:"effective_to,omitempty"`  // exclusive
}

type ExpenseRateJSON struct {
	CategoryID   string  `json:"category_id"`
	CategoryName string  `json:"category_name,omitempty"`
	Rate         float64 `json:"rate"`
	UnitType     string  `json:"unit_type"` // per_mile, per_day, flat
}

// =============================================================================
// FACTORY
// =============================================================================

// Factory converts JSON catalogue definitions to domain structs.
type Factory struct{}

func New() *Factory {
	return &Factory{}
}

// ParseTemplate parses a JSON string into a validated Template.
func (f *Factory) ParseTemplate(jsonStr string) (*ratecard.Template, error) {
	var tj TemplateJSON
	if err := json.Unmarshal([]byte(jsonStr), &tj); err != nil {
		return nil, fmt.Errorf("failed to parse template JSON: %w", err)
	}
	return f.TemplateFromJSON(tj)
}

// TemplateFromJSON converts TemplateJSON into a validated Template.
func (f *Factory) TemplateFromJSON(tj TemplateJSON) (*ratecard.Template, error) {
	t := &ratecard.Template{
		ID:                 tj.ID,
		CompanyID:          tj.CompanyID,
		Name:               tj.Name,
		Description:        tj.Description,
		ResourceCategories: tj.ResourceCategories,
		IsDefault:          tj.IsDefault,
		Active:             tj.Active == nil || *tj.Active,
	}
	for _, tf := range tj.Timeframes {
		t.Timeframes = append(t.Timeframes, ratecard.TimeframeDef{
			ID:        tf.ID,
			Name:      tf.Name,
			StartTime: tf.Start,
			EndTime:   tf.End,
		})
	}
	for _, c := range tj.ExpenseCategories {
		t.ExpenseCategories = append(t.ExpenseCategories, ratecard.ExpenseCategory{
			ID:   c.ID,
			Name: c.Name,
		})
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// ParseCard parses a JSON string into a validated Card. When a template
// is supplied, id-based timeframe labels are filled from it.
func (f *Factory) ParseCard(jsonStr string, tmpl *ratecard.Template) (*ratecard.Card, error) {
	var cj CardJSON
	if err := json.Unmarshal([]byte(jsonStr), &cj); err != nil {
		return nil, fmt.Errorf("failed to parse card JSON: %w", err)
	}
	return f.CardFromJSON(cj, tmpl)
}

// CardFromJSON converts CardJSON into a validated Card.
func (f *Factory) CardFromJSON(cj CardJSON, tmpl *ratecard.Template) (*ratecard.Card, error) {
	kind, err := parseKind(cj.Kind)
	if err != nil {
		return nil, err
	}

	c := &ratecard.Card{
		ID:         cj.ID,
		CompanyID:  cj.CompanyID,
		Name:       cj.Name,
		Kind:       kind,
		TemplateID: cj.TemplateID,
		Active:     cj.Active == nil || *cj.Active,
	}
	if tmpl != nil {
		c.TemplateName = tmpl.Name
	}

	for _, rj := range cj.Rates {
		entry, err := rateEntryFromJSON(rj, tmpl)
		if err != nil {
			return nil, err
		}
		c.Rates = append(c.Rates, entry)
	}
	for _, ej := range cj.Expenses {
		expense := ratecard.ExpenseRateEntry{
			CategoryID:   ej.CategoryID,
			CategoryName: ej.CategoryName,
			Rate:         decimal.NewFromFloat(ej.Rate),
			UnitType:     ej.UnitType,
		}
		if tmpl != nil && expense.CategoryName == "" {
			if cat, ok := tmpl.Category(ej.CategoryID); ok {
				expense.CategoryName = cat.Name
			}
		}
		c.Expenses = append(c.Expenses, expense)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func rateEntryFromJSON(rj RateEntryJSON, tmpl *ratecard.Template) (ratecard.RateEntry, error) {
	var tf ratecard.TimeframeRef
	switch {
	case rj.TimeframeID != "":
		label := rj.TimeframeName
		if label == "" && tmpl != nil {
			if def, ok := tmpl.Timeframe(rj.TimeframeID); ok {
				label = def.Name
			}
		}
		tf = ratecard.TimeframeByID(rj.TimeframeID, label)
	case rj.ShiftType != "":
		tf = ratecard.TimeframeByLabel(rj.ShiftType)
	default:
		return ratecard.RateEntry{}, fmt.Errorf("rate entry for role %q has neither timeframe_id nor shift_type", rj.Role)
	}

	from, err := time.Parse("2006-01-02", rj.EffectiveFrom)
	if err != nil {
		return ratecard.RateEntry{}, fmt.Errorf("invalid effective_from for role %q: %w", rj.Role, err)
	}
	entry := ratecard.RateEntry{
		RoleName:      rj.Role,
		Category:      rj.Category,
		Timeframe:     tf,
		BaseRate:      decimal.NewFromFloat(rj.BaseRate),
		OTRate:        decimal.NewFromFloat(rj.OTRate),
		EffectiveFrom: from,
	}
	if rj.EffectiveTo != "" {
		to, err := time.Parse("2006-01-02", rj.EffectiveTo)
		if err != nil {
			return ratecard.RateEntry{}, fmt.Errorf("invalid effective_to for role %q: %w", rj.Role, err)
		}
		entry.EffectiveTo = &to
	}
	return entry, nil
}

func parseKind(s string) (ratecard.CardKind, error) {
	switch s {
	case "pay":
		return ratecard.KindPay, nil
	case "bill":
		return ratecard.KindBill, nil
	default:
		return "", fmt.Errorf("unknown card kind %q (want pay or bill)", s)
	}
}

// =============================================================================
// EXPORT BACK TO JSON
// =============================================================================

// TemplateToJSON converts a Template to its JSON schema form.
func (f *Factory) TemplateToJSON(t *ratecard.Template) TemplateJSON {
	tj := TemplateJSON{
		ID:                 t.ID,
		CompanyID:          t.CompanyID,
		Name:               t.Name,
		Description:        t.Description,
		ResourceCategories: t.ResourceCategories,
		IsDefault:          t.IsDefault,
	}
	active := t.Active
	tj.Active = &active
	for _, tf := range t.Timeframes {
		tj.Timeframes = append(tj.Timeframes, TimeframeJSON{
			ID: tf.ID, Name: tf.Name, Start: tf.StartTime, End: tf.EndTime,
		})
	}
	for _, c := range t.ExpenseCategories {
		tj.ExpenseCategories = append(tj.ExpenseCategories, ExpenseCatJSON{ID: c.ID, Name: c.Name})
	}
	return tj
}

// CardToJSON converts a Card to its JSON schema form.
func (f *Factory) CardToJSON(c *ratecard.Card) CardJSON {
	cj := CardJSON{
		ID:         c.ID,
		CompanyID:  c.CompanyID,
		Name:       c.Name,
		Kind:       string(c.Kind),
		TemplateID: c.TemplateID,
	}
	active := c.Active
	cj.Active = &active
	for _, e := range c.Rates {
		rj := RateEntryJSON{
			Role:          e.RoleName,
			Category:      e.Category,
			EffectiveFrom: e.EffectiveFrom.Format("2006-01-02"),
		}
		if e.Timeframe.ID != "" {
			rj.TimeframeID = e.Timeframe.ID
			rj.TimeframeName = e.Timeframe.Label
		} else {
			rj.ShiftType = e.Timeframe.Label
		}
		rj.BaseRate, _ = e.BaseRate.Float64()
		rj.OTRate, _ = e.OTRate.Float64()
		if e.EffectiveTo != nil {
			rj.EffectiveTo = e.EffectiveTo.Format("2006-01-02")
		}
		cj.Rates = append(cj.Rates, rj)
	}
	for _, e := range c.Expenses {
		rate, _ := e.Rate.Float64()
		cj.Expenses = append(cj.Expenses, ExpenseRateJSON{
			CategoryID:   e.CategoryID,
			CategoryName: e.CategoryName,
			Rate:         rate,
			UnitType:     e.UnitType,
		})
	}
	return cj
}
