// Package storage defines the expense store contract and its SQL backends.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"expensetracker/internal/core"
)

// Store persists expenses. Every backend reports driver failures as
// *core.StoreError and unknown ids as *core.NotFoundError.
type Store interface {
	// List returns one page of matching expenses, newest date first, and the
	// total number of matching records before pagination.
	List(ctx context.Context, filter core.Filter, page core.Page) ([]core.Expense, int, error)

	// Matching returns every matching expense, newest date first.
	Matching(ctx context.Context, filter core.Filter) ([]core.Expense, error)

	Get(ctx context.Context, id string) (core.Expense, error)

	// Insert assigns the id and timestamps and persists the expense.
	Insert(ctx context.Context, e core.Expense) (core.Expense, error)

	// Update applies changes to the stored record. Empty changes return
	// the record untouched.
	Update(ctx context.Context, id string, changes core.Changes) (core.Expense, error)

	// Delete removes the record permanently and returns it.
	Delete(ctx context.Context, id string) (core.Expense, error)

	Ping(ctx context.Context) error
	Close() error
}

// NewID returns a fresh expense identifier.
func NewID() string {
	return uuid.New().String()
}

// Stamp prepares e for insertion: new id, creation timestamps and non-nil tags.
func Stamp(e core.Expense, now time.Time) core.Expense {
	out := e.Clone()
	out.ID = NewID()
	out.CreatedAt = now
	out.UpdatedAt = now
	if out.Tags == nil {
		out.Tags = []string{}
	}
	return out
}

// Now is the clock used for timestamps, truncated to microseconds so that
// every backend round-trips it exactly.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
