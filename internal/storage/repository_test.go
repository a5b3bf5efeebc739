package storage

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"expensetracker/internal/core"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "expenses.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := core.ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", s, err)
	}
	return d
}

func TestSQLiteRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	in := core.Expense{
		Title:       "Pharmacy",
		Amount:      decimal.RequireFromString("18.75"),
		Category:    core.Healthcare,
		Date:        mustDate(t, "2024-06-14"),
		Description: "allergy tablets",
		Tags:        []string{"health", "monthly"},
	}
	saved, err := repo.Insert(ctx, in)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("expected generated id")
	}

	got, err := repo.Get(ctx, saved.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.Amount.Equal(in.Amount) {
		t.Errorf("amount = %s, want %s", got.Amount, in.Amount)
	}
	if !got.Date.Equal(in.Date) {
		t.Errorf("date = %v, want %v", got.Date, in.Date)
	}
	if len(got.Tags) != 2 || got.Tags[1] != "monthly" {
		t.Errorf("tags = %v", got.Tags)
	}
	if !got.CreatedAt.Equal(saved.CreatedAt) {
		t.Errorf("createdAt = %v, want %v", got.CreatedAt, saved.CreatedAt)
	}
}

func TestSQLiteRepository_KeepsLargeHighPrecisionAmounts(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	for _, amount := range []string{"123456789012345.67", "0.000001", "99999999999999999999.5"} {
		saved, err := repo.Insert(ctx, core.Expense{
			Title:    "Big",
			Amount:   decimal.RequireFromString(amount),
			Category: core.Other,
			Date:     mustDate(t, "2024-06-14"),
			Tags:     []string{},
		})
		if err != nil {
			t.Fatalf("Insert(%s): %v", amount, err)
		}
		got, err := repo.Get(ctx, saved.ID)
		if err != nil {
			t.Fatalf("Get(%s): %v", amount, err)
		}
		if got.Amount.String() != amount {
			t.Errorf("amount = %s, want %s", got.Amount, amount)
		}
	}
}

func TestPostgresMigrationLeavesAmountUnbounded(t *testing.T) {
	up, err := migrationsFS.ReadFile("migrations/postgres/000001_create_expenses.up.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	column := regexp.MustCompile(`(?m)^\s*amount\s+(\S+)`).FindSubmatch(up)
	if column == nil {
		t.Fatal("amount column not declared")
	}
	if got := string(column[1]); got != "NUMERIC" {
		t.Errorf("amount type = %s, want unconstrained NUMERIC", got)
	}
}

func TestSQLiteRepository_ListFilterAndCount(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	seed := []struct {
		title string
		cat   core.Category
		date  string
	}{
		{"jan", core.Food, "2024-01-05"},
		{"feb", core.Bills, "2024-02-05"},
		{"mar", core.Food, "2024-03-05"},
		{"apr", core.Food, "2024-04-05"},
	}
	for _, s := range seed {
		_, err := repo.Insert(ctx, core.Expense{
			Title: s.title, Amount: decimal.NewFromInt(10), Category: s.cat, Date: mustDate(t, s.date),
		})
		if err != nil {
			t.Fatalf("Insert %s: %v", s.title, err)
		}
	}

	items, total, err := repo.List(ctx, core.Filter{Category: "Food"}, core.Page{Page: 2, Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(items) != 1 || items[0].Title != "jan" {
		t.Errorf("page 2 = %+v, want [jan]", items)
	}

	start, end := mustDate(t, "2024-02-05"), mustDate(t, "2024-03-05")
	matched, err := repo.Matching(ctx, core.Filter{StartDate: &start, EndDate: &end})
	if err != nil {
		t.Fatalf("Matching: %v", err)
	}
	if len(matched) != 2 || matched[0].Title != "mar" || matched[1].Title != "feb" {
		t.Errorf("matching = %+v, want [mar feb]", matched)
	}
}

func TestSQLiteRepository_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	saved, err := repo.Insert(ctx, core.Expense{
		Title: "Rent", Amount: decimal.NewFromInt(900), Category: core.Bills, Date: mustDate(t, "2024-05-01"),
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	changes, err := core.ExpensePatch{
		Title:       core.Some("Rent May"),
		Description: core.Some("landlord"),
	}.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	updated, err := repo.Update(ctx, saved.ID, changes)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "Rent May" || updated.Description != "landlord" {
		t.Errorf("updated = %+v", updated)
	}
	if !updated.Amount.Equal(saved.Amount) {
		t.Errorf("amount changed to %s", updated.Amount)
	}

	if _, err := repo.Update(ctx, "nope", changes); !core.IsNotFound(err) {
		t.Errorf("Update missing: err = %v, want not found", err)
	}

	deleted, err := repo.Delete(ctx, saved.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if deleted.Title != "Rent May" {
		t.Errorf("deleted title = %q", deleted.Title)
	}
	if _, err := repo.Get(ctx, saved.ID); !core.IsNotFound(err) {
		t.Errorf("Get after delete: err = %v, want not found", err)
	}
	if _, err := repo.Delete(ctx, saved.ID); !core.IsNotFound(err) {
		t.Errorf("second Delete: err = %v, want not found", err)
	}
}

func TestWhereClause(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	where, args := whereClause(core.Filter{Category: "Food", StartDate: &start}, dollar, identity)
	if where != " WHERE category = $1 AND date >= $2" {
		t.Errorf("where = %q", where)
	}
	if len(args) != 2 {
		t.Errorf("args = %v", args)
	}

	where, args = whereClause(core.Filter{}, questionMark, sqliteDate)
	if where != "" || len(args) != 0 {
		t.Errorf("empty filter produced %q %v", where, args)
	}
}
