/*
sync.go - Propagating template label edits into dependent rate cards

PURPOSE:
  When an operator renames a timeframe or expense category on a template,
  the denormalized display names on every card referencing that template
  go stale. Sync refreshes them. It is triggered EXPLICITLY by an
  operator action, never automatically on template edit, so a template
  rename can never surprise anyone financially.

WHAT SYNC TOUCHES:
  - card.TemplateName
  - rate entry timeframe labels (where the entry references a template
    timeframe by id)
  - expense entry category display names (matched by category id)

WHAT SYNC NEVER TOUCHES:
  - baseRate / otRate / expense rate: numeric fields are off limits.
  - legacy label-only entries: nothing to match them against.

FAILURE ISOLATION:
  Each card's update is independent. One card failing to save is
  collected into the result's error list; the batch continues.

SEE ALSO:
  - template.go, card.go: the shapes being reconciled
*/
package ratecard

import (
	"context"
	"fmt"
)

// =============================================================================
// SYNC RESULT
// =============================================================================

// SyncResult reports a template sync batch. Errors is per-card and
// non-fatal: RateCardsUpdated counts the cards that did save.
type SyncResult struct {
	TemplateID       string
	RateCardsUpdated int
	Errors           []SyncError
}

// OK reports whether every card synced cleanly.
func (r *SyncResult) OK() bool { return len(r.Errors) == 0 }

// =============================================================================
// SYNCER
// =============================================================================

// Syncer applies template label changes to dependent cards.
type Syncer struct {
	Templates TemplateStore
	Cards     CardStore
}

// SyncTemplate refreshes denormalized labels on every card linked to the
// template. Per-card failures are collected, not raised; only a failure
// to load the template or list its cards aborts the batch.
func (s *Syncer) SyncTemplate(ctx context.Context, templateID string) (*SyncResult, error) {
	tmpl, err := s.Templates.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if tmpl == nil {
		return nil, ErrTemplateNotFound
	}

	cards, err := s.Cards.ListCardsByTemplate(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("listing cards for template %s: %w", templateID, err)
	}

	result := &SyncResult{TemplateID: templateID}
	for _, card := range cards {
		updated, changed := applyTemplateLabels(card, tmpl)
		if !changed {
			continue
		}
		if err := s.Cards.SaveCard(ctx, updated); err != nil {
			result.Errors = append(result.Errors, SyncError{CardID: card.ID, Err: err})
			continue
		}
		result.RateCardsUpdated++
	}
	return result, nil
}

// applyTemplateLabels returns a copy of the card with label fields
// refreshed from the template. Numeric rate fields are never modified.
func applyTemplateLabels(card Card, tmpl *Template) (Card, bool) {
	changed := false

	if card.TemplateName != tmpl.Name {
		card.TemplateName = tmpl.Name
		changed = true
	}

	rates := make([]RateEntry, len(card.Rates))
	copy(rates, card.Rates)
	for i, e := range rates {
		if e.Timeframe.ID == "" {
			continue // legacy label-only entry, nothing to sync
		}
		tf, ok := tmpl.Timeframe(e.Timeframe.ID)
		if !ok || e.Timeframe.Label == tf.Name {
			continue
		}
		rates[i].Timeframe.Label = tf.Name
		changed = true
	}
	card.Rates = rates

	expenses := make([]ExpenseRateEntry, len(card.Expenses))
	copy(expenses, card.Expenses)
	for i, e := range expenses {
		cat, ok := tmpl.Category(e.CategoryID)
		if !ok || e.CategoryName == cat.Name {
			continue
		}
		expenses[i].CategoryName = cat.Name
		changed = true
	}
	card.Expenses = expenses

	return card, changed
}
