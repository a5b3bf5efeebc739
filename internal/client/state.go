package client

import (
	"slices"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

// Source records where the current expense list was read from.
type Source string

const (
	SourceNone   Source = ""
	SourceRemote Source = "remote"
	SourceCache  Source = "cache"
)

// State is the front end's application state. Update functions return a
// new State and never modify the receiver's expense slice.
type State struct {
	Expenses []core.Expense
	Filter   FilterState
	Loading  bool
	// Err is a transient message shown until dismissed.
	Err    string
	Source Source
}

func NewState() State {
	return State{Expenses: []core.Expense{}, Filter: DefaultFilterState()}
}

func (s State) StartLoading() State {
	s.Loading = true
	return s
}

func (s State) Loaded(expenses []core.Expense, source Source) State {
	s.Expenses = slices.Clone(expenses)
	if s.Expenses == nil {
		s.Expenses = []core.Expense{}
	}
	s.Loading = false
	s.Source = source
	return s
}

// Added puts e at the top of the list.
func (s State) Added(e core.Expense) State {
	s.Expenses = append([]core.Expense{e}, s.Expenses...)
	return s
}

func (s State) Removed(id string) State {
	s.Expenses = slices.DeleteFunc(slices.Clone(s.Expenses), func(e core.Expense) bool {
		return e.ID == id
	})
	return s
}

func (s State) Failed(message string) State {
	s.Loading = false
	s.Err = message
	return s
}

func (s State) DismissError() State {
	s.Err = ""
	return s
}

func (s State) WithFilter(f FilterState) State {
	s.Filter = f
	return s
}

// Visible is the list as displayed. Without an active filter the stored
// order is kept.
func (s State) Visible() []core.Expense {
	if !s.Filter.HasActive() {
		return slices.Clone(s.Expenses)
	}
	return s.Filter.Apply(s.Expenses)
}

// Total sums every expense in the state, filtered or not.
func (s State) Total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range s.Expenses {
		total = total.Add(e.Amount)
	}
	return total
}
