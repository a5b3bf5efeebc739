package client

import (
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

// expenseRecord is the JSON shape shared by the REST API and the local cache.
type expenseRecord struct {
	ID          string          `json:"_id"`
	Title       string          `json:"title"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Date        string          `json:"date"`
	Description string          `json:"description,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func toRecord(e core.Expense) expenseRecord {
	return expenseRecord{
		ID:          e.ID,
		Title:       e.Title,
		Amount:      e.Amount,
		Category:    string(e.Category),
		Date:        e.Date.UTC().Format(time.RFC3339),
		Description: e.Description,
		Tags:        e.Tags,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func (r expenseRecord) toExpense() (core.Expense, error) {
	date, err := core.ParseDate(r.Date)
	if err != nil {
		return core.Expense{}, err
	}
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return core.Expense{
		ID:          r.ID,
		Title:       r.Title,
		Amount:      r.Amount,
		Category:    core.Category(r.Category),
		Date:        date,
		Description: r.Description,
		Tags:        tags,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

func fromRecords(records []expenseRecord) ([]core.Expense, error) {
	out := make([]core.Expense, 0, len(records))
	for _, r := range records {
		e, err := r.toExpense()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

type statsRecord struct {
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	TotalExpenses     int             `json:"totalExpenses"`
	CategoryBreakdown []struct {
		Category string          `json:"_id"`
		Total    decimal.Decimal `json:"total"`
		Count    int             `json:"count"`
	} `json:"categoryBreakdown"`
	MonthlySpending []struct {
		Month struct {
			Year  int `json:"year"`
			Month int `json:"month"`
		} `json:"_id"`
		Total decimal.Decimal `json:"total"`
		Count int             `json:"count"`
	} `json:"monthlySpending"`
}

func (r statsRecord) toStats() core.Stats {
	s := core.Stats{
		TotalAmount:       r.TotalAmount,
		TotalExpenses:     r.TotalExpenses,
		CategoryBreakdown: make([]core.CategoryTotal, 0, len(r.CategoryBreakdown)),
		MonthlySpending:   make([]core.MonthTotal, 0, len(r.MonthlySpending)),
	}
	for _, c := range r.CategoryBreakdown {
		s.CategoryBreakdown = append(s.CategoryBreakdown, core.CategoryTotal{
			Category: core.Category(c.Category),
			Total:    c.Total,
			Count:    c.Count,
		})
	}
	for _, m := range r.MonthlySpending {
		s.MonthlySpending = append(s.MonthlySpending, core.MonthTotal{
			Year:  m.Month.Year,
			Month: m.Month.Month,
			Total: m.Total,
			Count: m.Count,
		})
	}
	return s
}
