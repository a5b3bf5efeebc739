package storage

import (
	"strconv"
	"strings"

	"expensetracker/internal/core"
)

// placeholder renders the n-th (1-based) bind parameter of a dialect.
type placeholder func(n int) string

func questionMark(int) string { return "?" }

func dollar(n int) string { return "$" + strconv.Itoa(n) }

// whereClause builds the WHERE part shared by list, count and matching
// queries. Dates are bound by the dialect-specific convert function.
func whereClause(f core.Filter, ph placeholder, convertDate func(any) any) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Category != "" {
		args = append(args, f.Category)
		conds = append(conds, "category = "+ph(len(args)))
	}
	if f.StartDate != nil {
		args = append(args, convertDate(*f.StartDate))
		conds = append(conds, "date >= "+ph(len(args)))
	}
	if f.EndDate != nil {
		args = append(args, convertDate(*f.EndDate))
		conds = append(conds, "date <= "+ph(len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

const orderNewestFirst = " ORDER BY date DESC, created_at DESC"
