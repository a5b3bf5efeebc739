package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"expensetracker/internal/amqp"
	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

// EventPublisher receives an event after every successful write.
type EventPublisher interface {
	PublishExpenseEvent(ctx context.Context, ev *amqp.ExpenseEvent) error
	Close() error
}

// Options tunes an ExpenseService. The zero value is usable: UTC dates,
// no category enforcement, no events and no stats cache.
type Options struct {
	Location         *time.Location
	StrictCategories bool
	Publisher        EventPublisher
	StatsCache       cache.Cache[core.Stats]
}

// ListResult is one page of expenses.
type ListResult struct {
	Expenses   []core.Expense
	Pagination core.Pagination
}

// ExpenseService orchestrates expense operations across the store, the
// event publisher and the stats cache.
type ExpenseService struct {
	store     storage.Store
	publisher EventPublisher
	stats     cache.Cache[core.Stats]
	loc       *time.Location
	strict    bool

	group singleflight.Group

	// statsMu orders cache fills against invalidations so a stale
	// aggregate is never stored after a write has cleared the cache.
	statsMu    sync.Mutex
	generation atomic.Uint64
}

func NewExpenseService(store storage.Store, opts Options) *ExpenseService {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &ExpenseService{
		store:     store,
		publisher: opts.Publisher,
		stats:     opts.StatsCache,
		loc:       loc,
		strict:    opts.StrictCategories,
	}
}

func (s *ExpenseService) List(ctx context.Context, filter core.Filter, page core.Page) (ListResult, error) {
	page = page.Normalize()
	items, total, err := s.store.List(ctx, filter, page)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Expenses: items, Pagination: page.Paginate(total)}, nil
}

func (s *ExpenseService) Get(ctx context.Context, id string) (core.Expense, error) {
	return s.store.Get(ctx, id)
}

// Create validates the input, persists the expense and publishes a created event.
func (s *ExpenseService) Create(ctx context.Context, in core.ExpenseInput) (core.Expense, error) {
	e, err := in.ToExpense(s.loc)
	if err != nil {
		return core.Expense{}, err
	}
	if err := s.checkCategory(e.Category); err != nil {
		return core.Expense{}, err
	}

	saved, err := s.store.Insert(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.invalidateStats()
	s.publish(ctx, amqp.EventCreated, saved)
	return saved, nil
}

// Update applies a partial update. An empty patch returns the stored record
// without writing.
func (s *ExpenseService) Update(ctx context.Context, id string, patch core.ExpensePatch) (core.Expense, error) {
	changes, err := patch.Resolve()
	if err != nil {
		return core.Expense{}, err
	}
	if changes.Category != nil {
		if err := s.checkCategory(*changes.Category); err != nil {
			return core.Expense{}, err
		}
	}
	if changes.Empty() {
		return s.store.Get(ctx, id)
	}

	updated, err := s.store.Update(ctx, id, changes)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}

	s.invalidateStats()
	s.publish(ctx, amqp.EventUpdated, updated)
	return updated, nil
}

func (s *ExpenseService) Delete(ctx context.Context, id string) (core.Expense, error) {
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("delete expense: %w", err)
	}

	s.invalidateStats()
	s.publish(ctx, amqp.EventDeleted, deleted)
	return deleted, nil
}

// Stats aggregates every expense matching filter. Results are cached per
// filter until the next write, and concurrent identical requests share
// one store read.
func (s *ExpenseService) Stats(ctx context.Context, filter core.Filter) (core.Stats, error) {
	key := filter.Key()
	if s.stats != nil {
		if st, ok := s.stats.Get(key); ok {
			return st, nil
		}
	}

	gen := s.generation.Load()
	v, err, _ := s.group.Do(key, func() (any, error) {
		items, err := s.store.Matching(ctx, filter)
		if err != nil {
			return nil, err
		}
		st := Summarize(items)
		s.storeStats(key, gen, st)
		return st, nil
	})
	if err != nil {
		return core.Stats{}, fmt.Errorf("compute stats: %w", err)
	}
	return v.(core.Stats), nil
}

// Ping reports whether the store is reachable.
func (s *ExpenseService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *ExpenseService) checkCategory(c core.Category) error {
	if s.strict && !c.Valid() {
		return core.NewValidationError("category", fmt.Sprintf("invalid category %q", c))
	}
	return nil
}

// storeStats caches st unless a write happened since gen was read.
func (s *ExpenseService) storeStats(key string, gen uint64, st core.Stats) {
	if s.stats == nil {
		return
	}
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	if s.generation.Load() == gen {
		s.stats.Set(key, st)
	}
}

func (s *ExpenseService) invalidateStats() {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.generation.Add(1)
	if s.stats != nil {
		s.stats.Clear()
	}
}

func (s *ExpenseService) publish(ctx context.Context, typ amqp.EventType, e core.Expense) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping event", "type", typ, "id", e.ID)
		return
	}
	if err := s.publisher.PublishExpenseEvent(ctx, amqp.NewExpenseEvent(typ, e)); err != nil {
		// the write already succeeded
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"type", typ,
			"id", e.ID,
			"error", err)
	}
}

// Close closes both the store and the publisher.
func (s *ExpenseService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close expense service: %w", errors.Join(errs...))
	}
	return nil
}
