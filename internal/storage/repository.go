package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/core"

	_ "modernc.org/sqlite"
)

const sqliteColumns = "id, title, amount, category, date, description, tags, created_at, updated_at"

// SQLiteRepository is the Store backed by a local SQLite file.
type SQLiteRepository struct {
	db *sql.DB
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func sqliteDSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return core.WrapStore("ping", r.db.PingContext(ctx))
}

func sqliteDate(v any) any {
	return v.(time.Time).Format(core.DateLayout)
}

func (r *SQLiteRepository) List(ctx context.Context, filter core.Filter, page core.Page) ([]core.Expense, int, error) {
	where, args := whereClause(filter, questionMark, sqliteDate)
	page = page.Normalize()

	var (
		items []core.Expense
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		query := "SELECT " + sqliteColumns + " FROM expenses" + where + orderNewestFirst + " LIMIT ? OFFSET ?"
		var err error
		items, err = r.query(gctx, query, append(append([]any{}, args...), page.Limit, page.Offset())...)
		return err
	})
	g.Go(func() error {
		return r.db.QueryRowContext(gctx, "SELECT COUNT(*) FROM expenses"+where, args...).Scan(&total)
	})
	if err := g.Wait(); err != nil {
		return nil, 0, core.WrapStore("list", err)
	}
	return items, total, nil
}

func (r *SQLiteRepository) Matching(ctx context.Context, filter core.Filter) ([]core.Expense, error) {
	where, args := whereClause(filter, questionMark, sqliteDate)
	items, err := r.query(ctx, "SELECT "+sqliteColumns+" FROM expenses"+where+orderNewestFirst, args...)
	if err != nil {
		return nil, core.WrapStore("matching", err)
	}
	return items, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+sqliteColumns+" FROM expenses WHERE id = ?", id)
	e, err := scanSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, &core.NotFoundError{ID: id}
	}
	if err != nil {
		return core.Expense{}, core.WrapStore("get", err)
	}
	return e, nil
}

func (r *SQLiteRepository) Insert(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	e = Stamp(e, Now())

	tags, err := json.Marshal(e.Tags)
	if err != nil {
		return core.Expense{}, fmt.Errorf("encode tags: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO expenses ("+sqliteColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		e.ID, e.Title, e.Amount.String(), string(e.Category), e.Date.Format(core.DateLayout),
		e.Description, string(tags), e.CreatedAt.UnixMicro(), e.UpdatedAt.UnixMicro())
	if err != nil {
		return core.Expense{}, core.WrapStore("insert", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"title", e.Title,
		"amount", e.Amount.String(),
		"category", e.Category)

	return e, nil
}

func (r *SQLiteRepository) Update(ctx context.Context, id string, changes core.Changes) (core.Expense, error) {
	if changes.Empty() {
		return r.Get(ctx, id)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Expense{}, core.WrapStore("update", err)
	}
	defer tx.Rollback()

	current, err := scanSQLite(tx.QueryRowContext(ctx, "SELECT "+sqliteColumns+" FROM expenses WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, &core.NotFoundError{ID: id}
	}
	if err != nil {
		return core.Expense{}, core.WrapStore("update", err)
	}

	updated := changes.Apply(current, Now())
	if err := updated.Validate(); err != nil {
		return core.Expense{}, err
	}
	tags, err := json.Marshal(updated.Tags)
	if err != nil {
		return core.Expense{}, fmt.Errorf("encode tags: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE expenses SET title = ?, amount = ?, category = ?, date = ?, description = ?, tags = ?, updated_at = ?
		 WHERE id = ?`,
		updated.Title, updated.Amount.String(), string(updated.Category), updated.Date.Format(core.DateLayout),
		updated.Description, string(tags), updated.UpdatedAt.UnixMicro(), id)
	if err != nil {
		return core.Expense{}, core.WrapStore("update", err)
	}
	if err := tx.Commit(); err != nil {
		return core.Expense{}, core.WrapStore("update", err)
	}
	return updated, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, "DELETE FROM expenses WHERE id = ? RETURNING "+sqliteColumns, id)
	e, err := scanSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, &core.NotFoundError{ID: id}
	}
	if err != nil {
		return core.Expense{}, core.WrapStore("delete", err)
	}

	slog.InfoContext(ctx, "Expense deleted from SQLite", "id", id)
	return e, nil
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []core.Expense{}
	for rows.Next() {
		e, err := scanSQLite(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLite(row rowScanner) (core.Expense, error) {
	var (
		e                core.Expense
		amount, category string
		date, tags       string
		created, updated int64
	)
	if err := row.Scan(&e.ID, &e.Title, &amount, &category, &date, &e.Description, &tags, &created, &updated); err != nil {
		return core.Expense{}, err
	}

	var err error
	if e.Amount, err = core.ParseAmount(amount); err != nil {
		return core.Expense{}, fmt.Errorf("decode amount %q: %v", amount, err)
	}
	if e.Date, err = time.Parse(core.DateLayout, date); err != nil {
		return core.Expense{}, fmt.Errorf("decode date %q: %w", date, err)
	}
	if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
		return core.Expense{}, fmt.Errorf("decode tags: %w", err)
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	e.Category = core.Category(category)
	e.CreatedAt = time.UnixMicro(created).UTC()
	e.UpdatedAt = time.UnixMicro(updated).UTC()
	return e, nil
}
