package core

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Category is one of the fixed spending categories.
type Category string

const (
	Food          Category = "Food"
	Transport     Category = "Transport"
	Entertainment Category = "Entertainment"
	Shopping      Category = "Shopping"
	Bills         Category = "Bills"
	Healthcare    Category = "Healthcare"
	Other         Category = "Other"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 1000
)

var categoryColors = map[Category]string{
	Food:          "#ff6b6b",
	Transport:     "#4ecdc4",
	Entertainment: "#45b7d1",
	Shopping:      "#96ceb4",
	Bills:         "#feca57",
	Healthcare:    "#ff9ff3",
	Other:         "#a55eea",
}

// Categories returns the category enumeration in display order.
func Categories() []Category {
	return []Category{Food, Transport, Entertainment, Shopping, Bills, Healthcare, Other}
}

// Valid reports whether c belongs to the enumeration.
func (c Category) Valid() bool {
	_, ok := categoryColors[c]
	return ok
}

// Color returns the display colour of the category.
func (c Category) Color() string {
	if color, ok := categoryColors[c]; ok {
		return color
	}
	return "#95a5a6"
}

func (c Category) String() string {
	return string(c)
}

// Expense is a single recorded spending transaction.
// Date is a calendar date stored at midnight UTC.
type Expense struct {
	ID          string
	Title       string
	Amount      decimal.Decimal
	Category    Category
	Date        time.Time
	Description string
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks the fields every stored expense must carry.
func (e Expense) Validate() error {
	if strings.TrimSpace(e.Title) == "" || strings.TrimSpace(string(e.Category)) == "" {
		return ErrRequiredFields
	}
	if utf8.RuneCountInString(e.Title) > maxTitleLength {
		return NewValidationError("title", "title too long (max 200 characters)")
	}
	if utf8.RuneCountInString(e.Description) > maxDescriptionLength {
		return NewValidationError("description", "description too long (max 1000 characters)")
	}
	if e.Amount.IsNegative() {
		return NewValidationError("amount", "amount must be a non-negative number")
	}
	if e.Date.IsZero() {
		return NewValidationError("date", "date is required")
	}
	return nil
}

// Clone returns a copy that shares no slices with e.
func (e Expense) Clone() Expense {
	out := e
	if e.Tags != nil {
		out.Tags = append([]string{}, e.Tags...)
	}
	return out
}

// ExpenseInput carries the raw fields of a create request.
// Amount and Date are kept as text so every transport coerces them the same way.
type ExpenseInput struct {
	Title       string
	Amount      string
	Category    string
	Date        string
	Description string
	Tags        []string
}

// ToExpense validates the input and builds an expense without ID or timestamps.
// An empty date defaults to today in loc.
func (in ExpenseInput) ToExpense(loc *time.Location) (Expense, error) {
	title := strings.TrimSpace(in.Title)
	category := strings.TrimSpace(in.Category)
	if title == "" || category == "" || strings.TrimSpace(in.Amount) == "" {
		return Expense{}, ErrRequiredFields
	}

	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return Expense{}, err
	}

	date := Today(loc)
	if strings.TrimSpace(in.Date) != "" {
		date, err = ParseDate(in.Date)
		if err != nil {
			return Expense{}, err
		}
	}

	e := Expense{
		Title:       title,
		Amount:      amount,
		Category:    Category(category),
		Date:        date,
		Description: strings.TrimSpace(in.Description),
		Tags:        NormalizeTags(in.Tags),
	}
	if err := e.Validate(); err != nil {
		return Expense{}, err
	}
	return e, nil
}

// NormalizeTags trims every tag and drops the empty ones, keeping order.
// The result is never nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
