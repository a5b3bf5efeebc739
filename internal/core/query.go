package core

import (
	"sort"
	"time"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

// Filter selects expenses by exact category and an inclusive date range.
// Nil bounds are unbounded.
type Filter struct {
	Category  string
	StartDate *time.Time
	EndDate   *time.Time
}

// Matches reports whether e satisfies every set criterion.
func (f Filter) Matches(e Expense) bool {
	if f.Category != "" && string(e.Category) != f.Category {
		return false
	}
	if f.StartDate != nil && e.Date.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && e.Date.After(*f.EndDate) {
		return false
	}
	return true
}

// DateOnly returns the filter without its category criterion.
func (f Filter) DateOnly() Filter {
	return Filter{StartDate: f.StartDate, EndDate: f.EndDate}
}

// Key is a stable textual form of the filter, suitable as a cache key.
func (f Filter) Key() string {
	key := "c=" + f.Category
	if f.StartDate != nil {
		key += "|s=" + f.StartDate.Format(DateLayout)
	}
	if f.EndDate != nil {
		key += "|e=" + f.EndDate.Format(DateLayout)
	}
	return key
}

// Page is a 1-based pagination window.
type Page struct {
	Page  int
	Limit int
}

// Normalize applies the defaults and bounds to a requested page.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// Offset is the number of records skipped before the window.
func (p Page) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.Limit
}

// Pagination describes a returned window.
type Pagination struct {
	Page  int
	Limit int
	Total int
	Pages int
}

// Paginate builds the pagination block for total matching records.
func (p Page) Paginate(total int) Pagination {
	p = p.Normalize()
	return Pagination{
		Page:  p.Page,
		Limit: p.Limit,
		Total: total,
		Pages: (total + p.Limit - 1) / p.Limit,
	}
}

// SortByDateDesc orders expenses newest first, newer creations first on equal dates.
func SortByDateDesc(items []Expense) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Date.Equal(items[j].Date) {
			return items[i].Date.After(items[j].Date)
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}

// Window returns the slice of items selected by p.
func Window(items []Expense, p Page) []Expense {
	p = p.Normalize()
	start := p.Offset()
	if start >= len(items) {
		return []Expense{}
	}
	end := start + p.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
