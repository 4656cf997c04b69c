/*
template.go - Company-level rate card templates

PURPOSE:
  A template is the shared vocabulary a company defines once: the shift
  timeframes it works (e.g. "Mon-Fri Day", "Night"), the expense
  categories it reimburses, and the resource categories it staffs.
  Several rate cards can reference one template, so that "Day shift"
  means the same thing on every card.

KEY CONCEPTS:
  TimeframeDef:     A named shift window. IDs are stable across edits so
                    rate entries can reference them.
  ExpenseCategory:  A named expense bucket (mileage, accommodation, ...).
  IsDefault:        At most ONE default template per company. The store
                    enforces this via a single-writer default record, not
                    by scanning all templates.

LIFECYCLE:
  Created by an admin, edited in place. A template that is the company
  default cannot be deleted (ErrTemplateIsDefault); reassign the default
  first.

SEE ALSO:
  - card.go: rate cards referencing a template
  - sync.go: propagating template label edits into cards
*/
package ratecard

import (
	"context"
	"fmt"
	"strings"
)

// =============================================================================
// TEMPLATE - Shared vocabulary for a company's rate cards
// =============================================================================

// TimeframeDef is a named shift window within a template.
// IDs are stable across template edits; rate entries reference them.
type TimeframeDef struct {
	ID        string
	Name      string
	StartTime string // "HH:MM", display/informational
	EndTime   string // "HH:MM"
}

// ExpenseCategory is a named expense bucket within a template.
type ExpenseCategory struct {
	ID   string
	Name string
}

// Template is a company-scoped catalogue of timeframes and categories.
type Template struct {
	ID          string
	CompanyID   string
	Name        string
	Description string

	// Ordered; IDs stable across edits.
	Timeframes         []TimeframeDef
	ExpenseCategories  []ExpenseCategory
	ResourceCategories []string

	IsDefault bool
	Active    bool
}

// Timeframe returns the timeframe definition with the given id, if any.
func (t *Template) Timeframe(id string) (TimeframeDef, bool) {
	for _, tf := range t.Timeframes {
		if tf.ID == id {
			return tf, true
		}
	}
	return TimeframeDef{}, false
}

// Category returns the expense category with the given id, if any.
func (t *Template) Category(id string) (ExpenseCategory, bool) {
	for _, c := range t.ExpenseCategories {
		if c.ID == id {
			return c, true
		}
	}
	return ExpenseCategory{}, false
}

// Validate checks structural invariants before persistence.
func (t *Template) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("template name is required")
	}
	if t.CompanyID == "" {
		return fmt.Errorf("template company id is required")
	}
	seen := make(map[string]bool, len(t.Timeframes))
	for _, tf := range t.Timeframes {
		if tf.ID == "" {
			return fmt.Errorf("timeframe %q has no id", tf.Name)
		}
		if seen[tf.ID] {
			return fmt.Errorf("duplicate timeframe id %q", tf.ID)
		}
		seen[tf.ID] = true
	}
	cats := make(map[string]bool, len(t.ExpenseCategories))
	for _, c := range t.ExpenseCategories {
		if c.ID == "" {
			return fmt.Errorf("expense category %q has no id", c.Name)
		}
		if cats[c.ID] {
			return fmt.Errorf("duplicate expense category id %q", c.ID)
		}
		cats[c.ID] = true
	}
	return nil
}

// =============================================================================
// TEMPLATE STORE - Persistence interface
// =============================================================================

// TemplateStore handles template persistence.
//
// The one-default-per-company invariant is the store's responsibility:
// SetDefault must atomically unset any previous default, and Delete must
// refuse to remove the current default (ErrTemplateIsDefault).
type TemplateStore interface {
	SaveTemplate(ctx context.Context, t Template) error

	GetTemplate(ctx context.Context, id string) (*Template, error)

	ListTemplates(ctx context.Context, companyID string) ([]Template, error)

	// SetDefault makes the given template the company default, superseding
	// any previous default in the same atomic operation.
	SetDefault(ctx context.Context, companyID, templateID string) error

	// DeleteTemplate removes a template. Returns ErrTemplateIsDefault if
	// the template is currently the company default.
	DeleteTemplate(ctx context.Context, id string) error
}
