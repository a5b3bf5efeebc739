package core

import "github.com/shopspring/decimal"

// CategoryTotal aggregates the expenses of one category.
type CategoryTotal struct {
	Category Category
	Total    decimal.Decimal
	Count    int
}

// MonthTotal aggregates the expenses of one calendar month.
type MonthTotal struct {
	Year  int
	Month int // 1-12
	Total decimal.Decimal
	Count int
}

// Stats is the aggregate view over a filtered expense set.
type Stats struct {
	TotalAmount       decimal.Decimal
	TotalExpenses     int
	CategoryBreakdown []CategoryTotal
	MonthlySpending   []MonthTotal
}
