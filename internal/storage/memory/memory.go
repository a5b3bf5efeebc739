// Package memory is an in-process expense store, seeded optionally from a JSON file.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

type Store struct {
	mu    sync.RWMutex
	items map[string]core.Expense
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{items: make(map[string]core.Expense)}
}

// seedRecord is the on-disk shape of a seeded expense.
type seedRecord struct {
	Title       string      `json:"title"`
	Amount      json.Number `json:"amount"`
	Category    string      `json:"category"`
	Date        string      `json:"date"`
	Description string      `json:"description"`
	Tags        []string    `json:"tags"`
}

// NewFromFile builds a store seeded from a JSON array of expenses.
// A missing file yields an empty store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var records []seedRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	for i, rec := range records {
		e, err := core.ExpenseInput{
			Title:       rec.Title,
			Amount:      rec.Amount.String(),
			Category:    rec.Category,
			Date:        rec.Date,
			Description: rec.Description,
			Tags:        rec.Tags,
		}.ToExpense(nil)
		if err != nil {
			return nil, fmt.Errorf("seed record %d: %w", i, err)
		}
		if _, err := s.Insert(context.Background(), e); err != nil {
			return nil, fmt.Errorf("seed record %d: %w", i, err)
		}
	}
	return s, nil
}

func (s *Store) List(_ context.Context, filter core.Filter, page core.Page) ([]core.Expense, int, error) {
	matched := s.matching(filter)
	return core.Window(matched, page), len(matched), nil
}

func (s *Store) Matching(_ context.Context, filter core.Filter) ([]core.Expense, error) {
	return s.matching(filter), nil
}

func (s *Store) matching(filter core.Filter) []core.Expense {
	s.mu.RLock()
	out := make([]core.Expense, 0, len(s.items))
	for _, e := range s.items {
		if filter.Matches(e) {
			out = append(out, e.Clone())
		}
	}
	s.mu.RUnlock()

	core.SortByDateDesc(out)
	return out
}

func (s *Store) Get(_ context.Context, id string) (core.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.items[id]
	if !ok {
		return core.Expense{}, &core.NotFoundError{ID: id}
	}
	return e.Clone(), nil
}

func (s *Store) Insert(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	e = storage.Stamp(e, storage.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[e.ID] = e
	return e.Clone(), nil
}

func (s *Store) Update(_ context.Context, id string, changes core.Changes) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.items[id]
	if !ok {
		return core.Expense{}, &core.NotFoundError{ID: id}
	}
	if changes.Empty() {
		return current.Clone(), nil
	}

	updated := changes.Apply(current, storage.Now())
	if err := updated.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.items[id] = updated
	return updated.Clone(), nil
}

func (s *Store) Delete(_ context.Context, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return core.Expense{}, &core.NotFoundError{ID: id}
	}
	delete(s.items, id)
	return e, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// Len returns the number of stored expenses.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
