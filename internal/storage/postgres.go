package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"expensetracker/internal/core"
)

const postgresColumns = "id, title, amount::text, category, date, description, tags, created_at, updated_at"

// PostgresRepository is the Store backed by a PostgreSQL pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresRepository)(nil)

// NewPostgresRepository connects, verifies the connection and applies migrations.
func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	err = RunPostgresMigrations(db)
	db.Close()
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return core.WrapStore("ping", r.pool.Ping(ctx))
}

func identity(v any) any { return v }

func (r *PostgresRepository) List(ctx context.Context, filter core.Filter, page core.Page) ([]core.Expense, int, error) {
	where, args := whereClause(filter, dollar, identity)
	page = page.Normalize()

	var (
		items []core.Expense
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n := len(args)
		query := "SELECT " + postgresColumns + " FROM expenses" + where + orderNewestFirst +
			fmt.Sprintf(" LIMIT %s OFFSET %s", dollar(n+1), dollar(n+2))
		var err error
		items, err = r.query(gctx, query, append(append([]any{}, args...), page.Limit, page.Offset())...)
		return err
	})
	g.Go(func() error {
		return r.pool.QueryRow(gctx, "SELECT COUNT(*) FROM expenses"+where, args...).Scan(&total)
	})
	if err := g.Wait(); err != nil {
		return nil, 0, core.WrapStore("list", err)
	}
	return items, total, nil
}

func (r *PostgresRepository) Matching(ctx context.Context, filter core.Filter) ([]core.Expense, error) {
	where, args := whereClause(filter, dollar, identity)
	items, err := r.query(ctx, "SELECT "+postgresColumns+" FROM expenses"+where+orderNewestFirst, args...)
	if err != nil {
		return nil, core.WrapStore("matching", err)
	}
	return items, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (core.Expense, error) {
	e, err := scanPostgres(r.pool.QueryRow(ctx, "SELECT "+postgresColumns+" FROM expenses WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Expense{}, &core.NotFoundError{ID: id}
	}
	if err != nil {
		return core.Expense{}, core.WrapStore("get", err)
	}
	return e, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	e = Stamp(e, Now())

	_, err := r.pool.Exec(ctx,
		`INSERT INTO expenses (id, title, amount, category, date, description, tags, created_at, updated_at)
		 VALUES ($1, $2, $3::text::numeric, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.Title, e.Amount.String(), string(e.Category), e.Date, e.Description, e.Tags, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return core.Expense{}, core.WrapStore("insert", err)
	}

	slog.InfoContext(ctx, "Expense saved to PostgreSQL",
		"id", e.ID,
		"title", e.Title,
		"amount", e.Amount.String(),
		"category", e.Category)

	return e, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id string, changes core.Changes) (core.Expense, error) {
	if changes.Empty() {
		return r.Get(ctx, id)
	}

	var updated core.Expense
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		current, err := scanPostgres(tx.QueryRow(ctx, "SELECT "+postgresColumns+" FROM expenses WHERE id = $1 FOR UPDATE", id))
		if errors.Is(err, pgx.ErrNoRows) {
			return &core.NotFoundError{ID: id}
		}
		if err != nil {
			return err
		}

		updated = changes.Apply(current, Now())
		if err := updated.Validate(); err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`UPDATE expenses SET title = $1, amount = $2::text::numeric, category = $3, date = $4,
			 description = $5, tags = $6, updated_at = $7 WHERE id = $8`,
			updated.Title, updated.Amount.String(), string(updated.Category), updated.Date,
			updated.Description, updated.Tags, updated.UpdatedAt, id)
		return err
	})
	if err != nil {
		return core.Expense{}, core.WrapStore("update", err)
	}
	return updated, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) (core.Expense, error) {
	e, err := scanPostgres(r.pool.QueryRow(ctx, "DELETE FROM expenses WHERE id = $1 RETURNING "+postgresColumns, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Expense{}, &core.NotFoundError{ID: id}
	}
	if err != nil {
		return core.Expense{}, core.WrapStore("delete", err)
	}

	slog.InfoContext(ctx, "Expense deleted from PostgreSQL", "id", id)
	return e, nil
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]core.Expense, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []core.Expense{}
	for rows.Next() {
		e, err := scanPostgres(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func scanPostgres(row pgx.Row) (core.Expense, error) {
	var (
		e                core.Expense
		amount, category string
		date             time.Time
	)
	if err := row.Scan(&e.ID, &e.Title, &amount, &category, &date, &e.Description, &e.Tags, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return core.Expense{}, err
	}

	var err error
	if e.Amount, err = core.ParseAmount(amount); err != nil {
		return core.Expense{}, fmt.Errorf("decode amount %q: %v", amount, err)
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	e.Category = core.Category(category)
	e.Date = core.CalendarDate(date)
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return e, nil
}
