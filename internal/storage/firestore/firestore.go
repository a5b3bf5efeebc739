// Package firestore stores expenses as documents in a Cloud Firestore collection.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

const collection = "expenses"

// document is the persisted shape. Amount is kept as a decimal string so
// no precision is lost through Firestore's float type.
type document struct {
	Title       string    `firestore:"title"`
	Amount      string    `firestore:"amount"`
	Category    string    `firestore:"category"`
	Date        time.Time `firestore:"date"`
	Description string    `firestore:"description"`
	Tags        []string  `firestore:"tags"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

func toDocument(e core.Expense) document {
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	return document{
		Title:       e.Title,
		Amount:      e.Amount.String(),
		Category:    string(e.Category),
		Date:        e.Date,
		Description: e.Description,
		Tags:        tags,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func (d document) expense(id string) (core.Expense, error) {
	amount, err := core.ParseAmount(d.Amount)
	if err != nil {
		return core.Expense{}, fmt.Errorf("decode amount %q: %v", d.Amount, err)
	}
	tags := d.Tags
	if tags == nil {
		tags = []string{}
	}
	return core.Expense{
		ID:          id,
		Title:       d.Title,
		Amount:      amount,
		Category:    core.Category(d.Category),
		Date:        core.CalendarDate(d.Date.UTC()),
		Description: d.Description,
		Tags:        tags,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}, nil
}

// Store is the storage.Store backed by Firestore.
type Store struct {
	client *firestore.Client
}

var _ storage.Store = (*Store)(nil)

// New connects to the project's default database.
func New(ctx context.Context, projectID string) (*Store, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &Store{client: client}, nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *firestore.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Close() error {
	return s.client.Close()
}

// Ping issues a cheap read; a missing probe document still proves connectivity.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.Collection(collection).Doc("_ping").Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return core.WrapStore("ping", err)
	}
	return nil
}

func (s *Store) filtered(f core.Filter) firestore.Query {
	q := s.client.Collection(collection).Query
	if f.Category != "" {
		q = q.Where("category", "==", f.Category)
	}
	if f.StartDate != nil {
		q = q.Where("date", ">=", *f.StartDate)
	}
	if f.EndDate != nil {
		q = q.Where("date", "<=", *f.EndDate)
	}
	return q
}

func newestFirst(q firestore.Query) firestore.Query {
	return q.OrderBy("date", firestore.Desc).OrderBy("createdAt", firestore.Desc)
}

func (s *Store) List(ctx context.Context, filter core.Filter, page core.Page) ([]core.Expense, int, error) {
	page = page.Normalize()
	q := s.filtered(filter)

	total, err := count(ctx, q)
	if err != nil {
		return nil, 0, core.WrapStore("count", err)
	}

	items, err := s.collect(ctx, newestFirst(q).Offset(page.Offset()).Limit(page.Limit))
	if err != nil {
		return nil, 0, core.WrapStore("list", err)
	}
	return items, total, nil
}

func count(ctx context.Context, q firestore.Query) (int, error) {
	res, err := q.NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, err
	}
	v, ok := res["all"].(*firestorepb.Value)
	if !ok {
		return 0, errors.New("count aggregation missing from result")
	}
	return int(v.GetIntegerValue()), nil
}

func (s *Store) Matching(ctx context.Context, filter core.Filter) ([]core.Expense, error) {
	items, err := s.collect(ctx, newestFirst(s.filtered(filter)))
	if err != nil {
		return nil, core.WrapStore("matching", err)
	}
	return items, nil
}

func (s *Store) collect(ctx context.Context, q firestore.Query) ([]core.Expense, error) {
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	items := make([]core.Expense, 0, len(docs))
	for _, snap := range docs {
		e, err := decode(snap)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, nil
}

func decode(snap *firestore.DocumentSnapshot) (core.Expense, error) {
	var d document
	if err := snap.DataTo(&d); err != nil {
		return core.Expense{}, fmt.Errorf("parse expense %s: %w", snap.Ref.ID, err)
	}
	return d.expense(snap.Ref.ID)
}

func (s *Store) Get(ctx context.Context, id string) (core.Expense, error) {
	snap, err := s.client.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return core.Expense{}, &core.NotFoundError{ID: id}
	}
	if err != nil {
		return core.Expense{}, core.WrapStore("get", err)
	}
	e, err := decode(snap)
	if err != nil {
		return core.Expense{}, core.WrapStore("get", err)
	}
	return e, nil
}

func (s *Store) Insert(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	e = storage.Stamp(e, storage.Now())

	if _, err := s.client.Collection(collection).Doc(e.ID).Create(ctx, toDocument(e)); err != nil {
		return core.Expense{}, core.WrapStore("insert", err)
	}

	slog.InfoContext(ctx, "Expense saved to Firestore",
		"id", e.ID,
		"title", e.Title,
		"amount", e.Amount.String(),
		"category", e.Category)

	return e, nil
}

func (s *Store) Update(ctx context.Context, id string, changes core.Changes) (core.Expense, error) {
	if changes.Empty() {
		return s.Get(ctx, id)
	}

	ref := s.client.Collection(collection).Doc(id)
	var updated core.Expense
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return &core.NotFoundError{ID: id}
		}
		if err != nil {
			return err
		}
		current, err := decode(snap)
		if err != nil {
			return err
		}

		updated = changes.Apply(current, storage.Now())
		if err := updated.Validate(); err != nil {
			return err
		}
		return tx.Set(ref, toDocument(updated))
	})
	if err != nil {
		return core.Expense{}, core.WrapStore("update", err)
	}
	return updated, nil
}

func (s *Store) Delete(ctx context.Context, id string) (core.Expense, error) {
	ref := s.client.Collection(collection).Doc(id)
	var deleted core.Expense
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return &core.NotFoundError{ID: id}
		}
		if err != nil {
			return err
		}
		if deleted, err = decode(snap); err != nil {
			return err
		}
		return tx.Delete(ref)
	})
	if err != nil {
		return core.Expense{}, core.WrapStore("delete", err)
	}

	slog.InfoContext(ctx, "Expense deleted from Firestore", "id", id)
	return deleted, nil
}
