package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"expensetracker/internal/client"
	"expensetracker/internal/core"
)

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	search := fs.String("search", "", "case-insensitive title search")
	category := fs.String("category", "", "only this category")
	sortBy := fs.String("sort", client.SortByDate, "date|amount|title|category")
	order := fs.String("order", client.SortDesc, "asc|desc")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a.session.Load(ctx)
	st := a.session.SetFilter(client.FilterState{
		SearchTerm: *search,
		Category:   core.Category(*category),
		SortBy:     *sortBy,
		SortOrder:  *order,
	})

	a.printNotice(st)
	visible := st.Visible()
	fmt.Fprintln(a.out, a.renderExpenses(visible))
	if st.Filter.HasActive() {
		fmt.Fprintln(a.out, a.styles.Muted.Render(client.ResultSummary(len(visible), len(st.Expenses))))
	}
	fmt.Fprintln(a.out, a.styles.Total.Render("Total: $"+core.FormatAmount(st.Total())))
	return nil
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	title := fs.String("title", "", "expense title (required)")
	amount := fs.String("amount", "", "amount, e.g. 12.50 (required)")
	category := fs.String("category", "", "one of "+categoryList()+" (required)")
	date := fs.String("date", "", "YYYY-MM-DD, defaults to today")
	description := fs.String("description", "", "optional description")
	tags := fs.String("tags", "", "comma separated tags")
	if err := fs.Parse(args); err != nil {
		return err
	}

	in := core.ExpenseInput{
		Title:       *title,
		Amount:      *amount,
		Category:    *category,
		Date:        *date,
		Description: *description,
		Tags:        splitTags(*tags),
	}

	a.session.Load(ctx)
	st, err := a.session.Add(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, a.styles.Success.Render("Added expense"))
	fmt.Fprintln(a.out, a.renderExpenses(st.Expenses[:1]))
	return nil
}

func (a *app) remove(ctx context.Context, args []string) error {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return errors.New("usage: expensectl rm <id>")
	}
	id := strings.TrimSpace(args[0])

	a.session.Load(ctx)
	if _, err := a.session.Remove(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, a.styles.Success.Render("Deleted expense "+id))
	return nil
}

func (a *app) stats(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	start := fs.String("start", "", "start date YYYY-MM-DD")
	end := fs.String("end", "", "end date YYYY-MM-DD, inclusive")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var filter core.Filter
	if *start != "" {
		d, err := core.ParseDate(*start)
		if err != nil {
			return fmt.Errorf("start: %w", err)
		}
		filter.StartDate = &d
	}
	if *end != "" {
		d, err := core.ParseDate(*end)
		if err != nil {
			return fmt.Errorf("end: %w", err)
		}
		filter.EndDate = &d
	}

	stats, err := a.api.Stats(ctx, filter)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, a.renderStats(stats))
	return nil
}

func (a *app) analytics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("analytics", flag.ContinueOnError)
	top := fs.Int("top", client.DefaultTopCategories, "number of categories to show")
	months := fs.Int("months", client.DefaultRecentMonths, "number of trailing months to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	st := a.session.Load(ctx)
	a.printNotice(st)
	fmt.Fprintln(a.out, a.renderAnalytics(client.Analyze(st.Expenses), *top, *months))
	return nil
}

func (a *app) printNotice(st client.State) {
	if st.Err != "" {
		fmt.Fprintln(a.out, a.styles.Warning.Render(st.Err+" (showing cached expenses)"))
	}
}

func splitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return core.NormalizeTags(strings.Split(s, ","))
}

func categoryList() string {
	names := make([]string, 0, len(core.Categories()))
	for _, c := range core.Categories() {
		names = append(names, string(c))
	}
	return strings.Join(names, ", ")
}
