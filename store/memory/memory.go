/*
Package memory provides in-memory store implementations (for testing/dev).

PURPOSE:
  Implements every persistence interface of the engine - TemplateStore,
  CardStore, AssignmentStore and EntryLog - against plain maps guarded by
  a RWMutex. Behavior mirrors the sqlite store exactly, including the
  atomic assignment upsert, the one-default-per-template invariant and
  the all-or-nothing batch submit, so core tests can run without a
  database file.

SEE ALSO:
  - store/sqlite/sqlite.go: the production implementation
*/
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/rate-engine/ledger"
	"github.com/warp/rate-engine/ratecard"
)

// Store implements all storage interfaces in memory.
type Store struct {
	mu sync.RWMutex

	templates map[string]ratecard.Template
	defaults  map[string]string // companyID -> default template id
	cards     map[string]ratecard.Card

	assignments map[string]ratecard.Assignment // keyed by pair
	byAssignID  map[string]string              // assignment id -> pair key

	timeLogs map[string]ledger.TimeLog
	expenses map[string]ledger.Expense
}

func New() *Store {
	return &Store{
		templates:   make(map[string]ratecard.Template),
		defaults:    make(map[string]string),
		cards:       make(map[string]ratecard.Card),
		assignments: make(map[string]ratecard.Assignment),
		byAssignID:  make(map[string]string),
		timeLogs:    make(map[string]ledger.TimeLog),
		expenses:    make(map[string]ledger.Expense),
	}
}

func pairKey(subID, clientID string) string { return subID + "|" + clientID }

// =============================================================================
// TEMPLATE STORE
// =============================================================================

func (s *Store) SaveTemplate(_ context.Context, t ratecard.Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t.IsDefault = s.defaults[t.CompanyID] == t.ID
	s.templates[t.ID] = t
	return nil
}

func (s *Store) GetTemplate(_ context.Context, id string) (*ratecard.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[id]
	if !ok {
		return nil, ratecard.ErrTemplateNotFound
	}
	t.IsDefault = s.defaults[t.CompanyID] == t.ID
	return &t, nil
}

func (s *Store) ListTemplates(_ context.Context, companyID string) ([]ratecard.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ratecard.Template
	for _, t := range s.templates {
		if t.CompanyID != companyID {
			continue
		}
		t.IsDefault = s.defaults[companyID] == t.ID
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SetDefault supersedes any previous company default atomically.
func (s *Store) SetDefault(_ context.Context, companyID, templateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[templateID]
	if !ok || t.CompanyID != companyID {
		return ratecard.ErrTemplateNotFound
	}
	s.defaults[companyID] = templateID
	return nil
}

func (s *Store) DeleteTemplate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[id]
	if !ok {
		return ratecard.ErrTemplateNotFound
	}
	if s.defaults[t.CompanyID] == id {
		return ratecard.ErrTemplateIsDefault
	}
	delete(s.templates, id)
	return nil
}

// =============================================================================
// CARD STORE
// =============================================================================

func (s *Store) SaveCard(_ context.Context, c ratecard.Card) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cards[c.ID] = c
	return nil
}

func (s *Store) GetCard(_ context.Context, id string) (*ratecard.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cards[id]
	if !ok {
		return nil, ratecard.ErrCardNotFound
	}
	return &c, nil
}

func (s *Store) ListCards(_ context.Context, companyID string) ([]ratecard.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ratecard.Card
	for _, c := range s.cards {
		if c.CompanyID == companyID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListCardsByTemplate(_ context.Context, templateID string) ([]ratecard.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ratecard.Card
	for _, c := range s.cards {
		if c.TemplateID == templateID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteCard(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[id]; !ok {
		return ratecard.ErrCardNotFound
	}
	delete(s.cards, id)
	return nil
}

// =============================================================================
// ASSIGNMENT STORE
// =============================================================================

// SaveAssignment upserts under the write lock: read-check-write is a
// single critical section, so concurrent saves for the same pair can
// never leave two live assignments.
func (s *Store) SaveAssignment(_ context.Context, a ratecard.Assignment) error {
	if err := a.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(a.SubcontractorID, a.ClientID)
	if prev, ok := s.assignments[key]; ok {
		delete(s.byAssignID, prev.ID)
	}
	s.assignments[key] = a
	s.byAssignID[a.ID] = key
	return nil
}

func (s *Store) GetAssignment(_ context.Context, subID, clientID string) (*ratecard.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[pairKey(subID, clientID)]
	if !ok {
		return nil, ratecard.ErrAssignmentNotFound
	}
	return &a, nil
}

func (s *Store) ListAssignments(_ context.Context, companyID string) ([]ratecard.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ratecard.Assignment
	for _, a := range s.assignments {
		if a.CompanyID == companyID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteAssignment(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.byAssignID[id]
	if !ok {
		return ratecard.ErrAssignmentNotFound
	}
	delete(s.byAssignID, id)
	delete(s.assignments, key)
	return nil
}

// =============================================================================
// ENTRY LOG - Append-once, status-only mutation
// =============================================================================

func (s *Store) AppendTimeLog(_ context.Context, t ledger.TimeLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeLogs[t.ID] = t
	return nil
}

func (s *Store) AppendExpense(_ context.Context, e ledger.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expenses[e.ID] = e
	return nil
}

func (s *Store) GetTimeLog(_ context.Context, id string) (*ledger.TimeLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.timeLogs[id]
	if !ok {
		return nil, ledger.ErrEntryNotFound
	}
	return &t, nil
}

func (s *Store) GetExpense(_ context.Context, id string) (*ledger.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.expenses[id]
	if !ok {
		return nil, ledger.ErrEntryNotFound
	}
	return &e, nil
}

func (s *Store) ListTimeLogs(_ context.Context, f ledger.Filter) ([]ledger.TimeLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ledger.TimeLog
	for _, t := range s.timeLogs {
		if matchesFilter(f, t.CompanyID, t.ProjectID, t.SubcontractorID, t.Date) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListExpenses(_ context.Context, f ledger.Filter) ([]ledger.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ledger.Expense
	for _, e := range s.expenses {
		if matchesFilter(f, e.CompanyID, e.ProjectID, e.SubcontractorID, e.Date) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func matchesFilter(f ledger.Filter, companyID, projectID, subID string, date time.Time) bool {
	if f.CompanyID != "" && f.CompanyID != companyID {
		return false
	}
	if f.ProjectID != "" && f.ProjectID != projectID {
		return false
	}
	if f.SubcontractorID != "" && f.SubcontractorID != subID {
		return false
	}
	if !f.From.IsZero() && date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && date.After(f.To) {
		return false
	}
	return true
}

// TransitionTimeLog applies an optimistic status transition.
func (s *Store) TransitionTimeLog(_ context.Context, id string, from, to ledger.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.timeLogs[id]
	if !ok {
		return ledger.ErrEntryNotFound
	}
	if err := ledger.CheckTransition(from, to); err != nil {
		return err
	}
	if t.Status != from {
		return ledger.ErrStatusConflict
	}
	t.Status = to
	s.timeLogs[id] = t
	return nil
}

// TransitionExpense applies an optimistic status transition.
func (s *Store) TransitionExpense(_ context.Context, id string, from, to ledger.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return ledger.ErrEntryNotFound
	}
	if err := ledger.CheckTransition(from, to); err != nil {
		return err
	}
	if e.Status != from {
		return ledger.ErrStatusConflict
	}
	e.Status = to
	s.expenses[id] = e
	return nil
}

// SubmitBatch moves DRAFT entries to SUBMITTED all-or-nothing.
func (s *Store) SubmitBatch(_ context.Context, timeLogIDs, expenseIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate the whole batch before touching anything.
	for _, id := range timeLogIDs {
		t, ok := s.timeLogs[id]
		if !ok {
			return ledger.ErrEntryNotFound
		}
		if t.Status != ledger.StatusDraft {
			return ledger.ErrStatusConflict
		}
	}
	for _, id := range expenseIDs {
		e, ok := s.expenses[id]
		if !ok {
			return ledger.ErrEntryNotFound
		}
		if e.Status != ledger.StatusDraft {
			return ledger.ErrStatusConflict
		}
	}

	for _, id := range timeLogIDs {
		t := s.timeLogs[id]
		t.Status = ledger.StatusSubmitted
		s.timeLogs[id] = t
	}
	for _, id := range expenseIDs {
		e := s.expenses[id]
		e.Status = ledger.StatusSubmitted
		s.expenses[id] = e
	}
	return nil
}
