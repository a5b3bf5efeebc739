// Package client holds the terminal front end's view model: filtering,
// analytics, application state and the two-tier expense loader.
package client

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"expensetracker/internal/core"
)

// Sort keys accepted by FilterState.SortBy.
const (
	SortByDate     = "date"
	SortByAmount   = "amount"
	SortByTitle    = "title"
	SortByCategory = "category"
)

// Sort directions accepted by FilterState.SortOrder.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// FilterState is the user's search, category and sort selection.
type FilterState struct {
	SearchTerm string
	Category   core.Category
	SortBy     string
	SortOrder  string
}

// DefaultFilterState matches everything, newest date first.
func DefaultFilterState() FilterState {
	return FilterState{SortBy: SortByDate, SortOrder: SortDesc}
}

// Clear restores the defaults.
func (f FilterState) Clear() FilterState {
	return DefaultFilterState()
}

// HasActive reports whether any field differs from the defaults.
func (f FilterState) HasActive() bool {
	return f.SearchTerm != "" || f.Category != "" ||
		f.sortKey() != SortByDate || !f.descending()
}

func (f FilterState) sortKey() string {
	switch f.SortBy {
	case SortByAmount, SortByTitle, SortByCategory:
		return f.SortBy
	}
	return SortByDate
}

func (f FilterState) descending() bool {
	return f.SortOrder != SortAsc
}

// Apply returns the matching expenses in the selected order. The input is
// never modified and equal keys keep their relative order.
func (f FilterState) Apply(expenses []core.Expense) []core.Expense {
	fold := cases.Fold()
	term := fold.String(f.SearchTerm)

	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if term != "" && !strings.Contains(fold.String(e.Title), term) {
			continue
		}
		if f.Category != "" && e.Category != f.Category {
			continue
		}
		out = append(out, e)
	}

	compare := f.comparator(fold)
	if f.descending() {
		asc := compare
		compare = func(a, b core.Expense) int { return asc(b, a) }
	}
	slices.SortStableFunc(out, compare)
	return out
}

func (f FilterState) comparator(fold cases.Caser) func(a, b core.Expense) int {
	switch f.sortKey() {
	case SortByAmount:
		return func(a, b core.Expense) int { return a.Amount.Cmp(b.Amount) }
	case SortByTitle:
		return func(a, b core.Expense) int { return cmp.Compare(fold.String(a.Title), fold.String(b.Title)) }
	case SortByCategory:
		return func(a, b core.Expense) int {
			return cmp.Compare(fold.String(string(a.Category)), fold.String(string(b.Category)))
		}
	default:
		return func(a, b core.Expense) int { return a.Date.Compare(b.Date) }
	}
}

// ResultSummary renders the "Showing n of total expenses" line.
func ResultSummary(n, total int) string {
	return fmt.Sprintf("Showing %d of %d expenses", n, total)
}
