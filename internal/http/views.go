package http

import (
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

// amountJSON renders a decimal as a JSON number rounded to cents.
type amountJSON decimal.Decimal

func (a amountJSON) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(a).Round(2).String()), nil
}

func (a *amountJSON) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	*a = amountJSON(d)
	return nil
}

type expenseJSON struct {
	ID          string     `json:"_id"`
	Title       string     `json:"title"`
	Amount      amountJSON `json:"amount"`
	Category    string     `json:"category"`
	Date        string     `json:"date"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func toExpenseJSON(e core.Expense) expenseJSON {
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	return expenseJSON{
		ID:          e.ID,
		Title:       e.Title,
		Amount:      amountJSON(e.Amount),
		Category:    string(e.Category),
		Date:        e.Date.UTC().Format(time.RFC3339),
		Description: e.Description,
		Tags:        tags,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func toExpenseListJSON(items []core.Expense) []expenseJSON {
	out := make([]expenseJSON, 0, len(items))
	for _, e := range items {
		out = append(out, toExpenseJSON(e))
	}
	return out
}

type paginationJSON struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type categoryTotalJSON struct {
	Category string     `json:"_id"`
	Total    amountJSON `json:"total"`
	Count    int        `json:"count"`
}

type monthKeyJSON struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

type monthTotalJSON struct {
	Month monthKeyJSON `json:"_id"`
	Total amountJSON   `json:"total"`
	Count int          `json:"count"`
}

type statsJSON struct {
	TotalAmount       amountJSON          `json:"totalAmount"`
	CategoryBreakdown []categoryTotalJSON `json:"categoryBreakdown"`
	MonthlySpending   []monthTotalJSON    `json:"monthlySpending"`
	TotalExpenses     int                 `json:"totalExpenses"`
}

func toStatsJSON(s core.Stats) statsJSON {
	out := statsJSON{
		TotalAmount:       amountJSON(s.TotalAmount),
		CategoryBreakdown: make([]categoryTotalJSON, 0, len(s.CategoryBreakdown)),
		MonthlySpending:   make([]monthTotalJSON, 0, len(s.MonthlySpending)),
		TotalExpenses:     s.TotalExpenses,
	}
	for _, c := range s.CategoryBreakdown {
		out.CategoryBreakdown = append(out.CategoryBreakdown, categoryTotalJSON{
			Category: string(c.Category),
			Total:    amountJSON(c.Total),
			Count:    c.Count,
		})
	}
	for _, m := range s.MonthlySpending {
		out.MonthlySpending = append(out.MonthlySpending, monthTotalJSON{
			Month: monthKeyJSON{Year: m.Year, Month: m.Month},
			Total: amountJSON(m.Total),
			Count: m.Count,
		})
	}
	return out
}
