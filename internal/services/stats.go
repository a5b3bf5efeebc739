package services

import (
	"sort"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

// MaxMonthlyBuckets bounds the monthly spending series.
const MaxMonthlyBuckets = 12

// Summarize aggregates items into totals, a per-category breakdown ordered
// by total descending and the most recent months, newest first.
func Summarize(items []core.Expense) core.Stats {
	st := core.Stats{
		TotalAmount:       decimal.Zero,
		TotalExpenses:     len(items),
		CategoryBreakdown: []core.CategoryTotal{},
		MonthlySpending:   []core.MonthTotal{},
	}

	byCategory := make(map[core.Category]*core.CategoryTotal)
	byMonth := make(map[core.MonthKey]*core.MonthTotal)

	for _, e := range items {
		st.TotalAmount = st.TotalAmount.Add(e.Amount)

		ct, ok := byCategory[e.Category]
		if !ok {
			ct = &core.CategoryTotal{Category: e.Category, Total: decimal.Zero}
			byCategory[e.Category] = ct
		}
		ct.Total = ct.Total.Add(e.Amount)
		ct.Count++

		key := core.MonthOf(e.Date)
		mt, ok := byMonth[key]
		if !ok {
			mt = &core.MonthTotal{Year: key.Year, Month: int(key.Month), Total: decimal.Zero}
			byMonth[key] = mt
		}
		mt.Total = mt.Total.Add(e.Amount)
		mt.Count++
	}

	for _, ct := range byCategory {
		st.CategoryBreakdown = append(st.CategoryBreakdown, *ct)
	}
	sort.Slice(st.CategoryBreakdown, func(i, j int) bool {
		a, b := st.CategoryBreakdown[i], st.CategoryBreakdown[j]
		if c := a.Total.Cmp(b.Total); c != 0 {
			return c > 0
		}
		return a.Category < b.Category
	})

	for _, mt := range byMonth {
		st.MonthlySpending = append(st.MonthlySpending, *mt)
	}
	sort.Slice(st.MonthlySpending, func(i, j int) bool {
		a, b := st.MonthlySpending[i], st.MonthlySpending[j]
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		return a.Month > b.Month
	})
	if len(st.MonthlySpending) > MaxMonthlyBuckets {
		st.MonthlySpending = st.MonthlySpending[:MaxMonthlyBuckets]
	}

	return st
}
