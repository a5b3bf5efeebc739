package client

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

// Display defaults for the analytics view.
const (
	DefaultTopCategories = 5
	DefaultRecentMonths  = 6
)

var hundred = decimal.NewFromInt(100)

// Analytics summarises an in-memory expense list.
type Analytics struct {
	TotalAmount       decimal.Decimal
	AverageExpense    decimal.Decimal
	Count             int
	CategoryBreakdown map[core.Category]decimal.Decimal
	// MonthlySpending is ordered oldest month first.
	MonthlySpending []core.MonthTotal
}

// CategoryShare is one row of the category chart.
type CategoryShare struct {
	Category   core.Category
	Amount     decimal.Decimal
	Percentage float64
	Color      string
}

// MonthBar is one bar of the monthly trend chart. Height is a percentage
// of the highest monthly total.
type MonthBar struct {
	Label  string
	Amount decimal.Decimal
	Height float64
}

// Analyze computes totals, the category breakdown and the monthly series.
func Analyze(expenses []core.Expense) Analytics {
	a := Analytics{
		TotalAmount:       decimal.Zero,
		AverageExpense:    decimal.Zero,
		Count:             len(expenses),
		CategoryBreakdown: make(map[core.Category]decimal.Decimal),
		MonthlySpending:   []core.MonthTotal{},
	}
	if len(expenses) == 0 {
		return a
	}

	months := make(map[core.MonthKey]*core.MonthTotal)
	for _, e := range expenses {
		a.TotalAmount = a.TotalAmount.Add(e.Amount)
		a.CategoryBreakdown[e.Category] = a.CategoryBreakdown[e.Category].Add(e.Amount)

		key := core.MonthOf(e.Date)
		m, ok := months[key]
		if !ok {
			m = &core.MonthTotal{Year: key.Year, Month: int(key.Month), Total: decimal.Zero}
			months[key] = m
		}
		m.Total = m.Total.Add(e.Amount)
		m.Count++
	}
	a.AverageExpense = a.TotalAmount.Div(decimal.NewFromInt(int64(len(expenses))))

	for _, m := range months {
		a.MonthlySpending = append(a.MonthlySpending, *m)
	}
	slices.SortFunc(a.MonthlySpending, func(x, y core.MonthTotal) int {
		if c := cmp.Compare(x.Year, y.Year); c != 0 {
			return c
		}
		return cmp.Compare(x.Month, y.Month)
	})
	return a
}

// TopCategories returns the n largest categories by amount with their
// share of the total. Ties are ordered by category name.
func (a Analytics) TopCategories(n int) []CategoryShare {
	shares := make([]CategoryShare, 0, len(a.CategoryBreakdown))
	for category, amount := range a.CategoryBreakdown {
		pct := 0.0
		if !a.TotalAmount.IsZero() {
			pct = amount.Div(a.TotalAmount).Mul(hundred).InexactFloat64()
		}
		shares = append(shares, CategoryShare{
			Category:   category,
			Amount:     amount,
			Percentage: pct,
			Color:      category.Color(),
		})
	}
	slices.SortFunc(shares, func(x, y CategoryShare) int {
		if c := y.Amount.Cmp(x.Amount); c != 0 {
			return c
		}
		return cmp.Compare(x.Category, y.Category)
	})
	if n >= 0 && len(shares) > n {
		shares = shares[:n]
	}
	return shares
}

// RecentMonths returns the last n months in chronological order. Bar
// heights are scaled against the highest month of the whole series.
func (a Analytics) RecentMonths(n int) []MonthBar {
	peak := decimal.Zero
	for _, m := range a.MonthlySpending {
		if m.Total.GreaterThan(peak) {
			peak = m.Total
		}
	}

	months := a.MonthlySpending
	if n >= 0 && len(months) > n {
		months = months[len(months)-n:]
	}
	bars := make([]MonthBar, 0, len(months))
	for _, m := range months {
		height := 0.0
		if !peak.IsZero() {
			height = m.Total.Div(peak).Mul(hundred).InexactFloat64()
		}
		bars = append(bars, MonthBar{
			Label:  core.MonthKey{Year: m.Year, Month: time.Month(m.Month)}.Label(),
			Amount: m.Total,
			Height: height,
		})
	}
	return bars
}
