package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"expensetracker/internal/client"
	"expensetracker/internal/core"
)

const barWidth = 30

type styles struct {
	Header  lipgloss.Style
	Muted   lipgloss.Style
	Total   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Card    lipgloss.Style
	Bar     lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#667eea")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#828282")),
		Total:   lipgloss.NewStyle().Bold(true),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("#2ecc71")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#feca57")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("#ff6b6b")),
		Card:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 2),
		Bar:     lipgloss.NewStyle().Foreground(lipgloss.Color("#667eea")),
	}
}

func (a *app) renderExpenses(items []core.Expense) string {
	if len(items) == 0 {
		return a.styles.Muted.Render("No expenses found")
	}

	var b strings.Builder
	b.WriteString(a.styles.Header.Render(fmt.Sprintf("%-36s  %-10s  %-28s  %-13s  %10s", "ID", "DATE", "TITLE", "CATEGORY", "AMOUNT")))
	for _, e := range items {
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(e.Category.Color())).Render("■")
		fmt.Fprintf(&b, "\n%-36s  %-10s  %-28s  %s %-11s  %10s",
			e.ID,
			e.Date.Format(core.DateLayout),
			truncate(e.Title, 28),
			swatch,
			e.Category,
			"$"+core.FormatAmount(e.Amount))
	}
	return b.String()
}

func (a *app) renderStats(s core.Stats) string {
	var b strings.Builder
	b.WriteString(a.styles.Card.Render(fmt.Sprintf("Total Spending  $%s\nTransactions    %d",
		core.FormatAmount(s.TotalAmount), s.TotalExpenses)))

	b.WriteString("\n" + a.styles.Header.Render("By category"))
	for _, c := range s.CategoryBreakdown {
		fmt.Fprintf(&b, "\n  %-13s %10s  (%d)", c.Category, "$"+core.FormatAmount(c.Total), c.Count)
	}
	b.WriteString("\n" + a.styles.Header.Render("By month"))
	for _, m := range s.MonthlySpending {
		fmt.Fprintf(&b, "\n  %04d-%02d       %10s  (%d)", m.Year, m.Month, "$"+core.FormatAmount(m.Total), m.Count)
	}
	return b.String()
}

func (a *app) renderAnalytics(an client.Analytics, top, months int) string {
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		a.styles.Card.Render("Total Spending\n$"+core.FormatAmount(an.TotalAmount)),
		a.styles.Card.Render("Average Expense\n$"+core.FormatAmount(an.AverageExpense)),
		a.styles.Card.Render(fmt.Sprintf("Total Transactions\n%d", an.Count)),
	)

	var b strings.Builder
	b.WriteString(cards)
	b.WriteString("\n" + a.styles.Header.Render("Spending by Category"))
	for _, share := range an.TopCategories(top) {
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(share.Color)).Render("■")
		fmt.Fprintf(&b, "\n  %s %-13s %10s  %5.1f%%",
			swatch, share.Category, "$"+core.FormatAmount(share.Amount), share.Percentage)
	}

	b.WriteString("\n" + a.styles.Header.Render("Monthly Spending Trend"))
	for _, bar := range an.RecentMonths(months) {
		fmt.Fprintf(&b, "\n  %-8s %s $%s",
			bar.Label, a.styles.Bar.Render(barOf(bar.Height)), bar.Amount.StringFixed(0))
	}
	return b.String()
}

// barOf renders a height percentage as a horizontal bar of at most barWidth cells.
func barOf(height float64) string {
	n := int(math.Round(height / 100 * barWidth))
	n = max(0, min(n, barWidth))
	return strings.Repeat("█", n) + strings.Repeat(" ", barWidth-n)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
