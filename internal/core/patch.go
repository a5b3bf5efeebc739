package core

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Optional marks whether a field was supplied at all, separately from its value.
type Optional[T any] struct {
	Set   bool
	Value T
}

// Some returns a supplied Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// ExpensePatch is a partial update as received from a client.
// A supplied Description clears the field when empty. A supplied Tags with a
// nil Value (JSON null) is ignored.
type ExpensePatch struct {
	Title       Optional[string]
	Amount      Optional[string]
	Category    Optional[string]
	Date        Optional[string]
	Description Optional[string]
	Tags        Optional[[]string]
}

// Changes is a validated ExpensePatch. Nil pointers leave a field untouched.
type Changes struct {
	Title       *string
	Amount      *decimal.Decimal
	Category    *Category
	Date        *time.Time
	Description *string
	Tags        []string
	SetTags     bool
}

// Resolve validates the supplied fields and coerces them into Changes.
// Blank titles, categories and dates are skipped like absent fields.
func (p ExpensePatch) Resolve() (Changes, error) {
	var c Changes

	if p.Title.Set {
		if title := strings.TrimSpace(p.Title.Value); title != "" {
			if utf8.RuneCountInString(title) > maxTitleLength {
				return Changes{}, NewValidationError("title", "title too long (max 200 characters)")
			}
			c.Title = &title
		}
	}
	if p.Amount.Set {
		amount, err := ParseAmount(p.Amount.Value)
		if err != nil {
			return Changes{}, err
		}
		c.Amount = &amount
	}
	if p.Category.Set {
		if category := strings.TrimSpace(p.Category.Value); category != "" {
			cat := Category(category)
			c.Category = &cat
		}
	}
	if p.Date.Set && strings.TrimSpace(p.Date.Value) != "" {
		date, err := ParseDate(p.Date.Value)
		if err != nil {
			return Changes{}, err
		}
		c.Date = &date
	}
	if p.Description.Set {
		desc := strings.TrimSpace(p.Description.Value)
		if utf8.RuneCountInString(desc) > maxDescriptionLength {
			return Changes{}, NewValidationError("description", "description too long (max 1000 characters)")
		}
		c.Description = &desc
	}
	if p.Tags.Set && p.Tags.Value != nil {
		c.Tags = NormalizeTags(p.Tags.Value)
		c.SetTags = true
	}
	return c, nil
}

// Empty reports whether applying c would change nothing.
func (c Changes) Empty() bool {
	return c.Title == nil && c.Amount == nil && c.Category == nil &&
		c.Date == nil && c.Description == nil && !c.SetTags
}

// Apply returns e with the changes applied. UpdatedAt is stamped with now
// unless c is empty.
func (c Changes) Apply(e Expense, now time.Time) Expense {
	out := e.Clone()
	if c.Empty() {
		return out
	}
	if c.Title != nil {
		out.Title = *c.Title
	}
	if c.Amount != nil {
		out.Amount = *c.Amount
	}
	if c.Category != nil {
		out.Category = *c.Category
	}
	if c.Date != nil {
		out.Date = *c.Date
	}
	if c.Description != nil {
		out.Description = *c.Description
	}
	if c.SetTags {
		out.Tags = append([]string{}, c.Tags...)
	}
	out.UpdatedAt = now
	return out
}
