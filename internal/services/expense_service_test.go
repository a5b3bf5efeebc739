package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/amqp"
	"expensetracker/internal/cache"
	"expensetracker/internal/core"
	"expensetracker/internal/storage"
	"expensetracker/internal/storage/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.ExpenseEvent
	err    error
	closed bool
}

func (p *recordingPublisher) PublishExpenseEvent(_ context.Context, ev *amqp.ExpenseEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return nil
}

func (p *recordingPublisher) types() []amqp.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

// countingStore counts Matching calls on top of the memory store.
type countingStore struct {
	*memory.Store
	mu       sync.Mutex
	matching int
}

func (s *countingStore) Matching(ctx context.Context, f core.Filter) ([]core.Expense, error) {
	s.mu.Lock()
	s.matching++
	s.mu.Unlock()
	return s.Store.Matching(ctx, f)
}

func (s *countingStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matching
}

type failingStore struct{ storage.Store }

func (failingStore) Insert(context.Context, core.Expense) (core.Expense, error) {
	return core.Expense{}, core.WrapStore("insert", errors.New("disk full"))
}

func (failingStore) Matching(context.Context, core.Filter) ([]core.Expense, error) {
	return nil, core.WrapStore("matching", errors.New("disk full"))
}

func newService(t *testing.T, opts Options) (*ExpenseService, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	if opts.Publisher == nil {
		opts.Publisher = pub
	}
	return NewExpenseService(memory.New(), opts), pub
}

func input(title, amount string, cat core.Category, date string) core.ExpenseInput {
	return core.ExpenseInput{Title: title, Amount: amount, Category: string(cat), Date: date}
}

func TestNewExpenseService(t *testing.T) {
	service := NewExpenseService(nil, Options{})
	require.NotNil(t, service)
	assert.Nil(t, service.store)
	assert.Equal(t, time.UTC, service.loc)
}

func TestExpenseService_Create(t *testing.T) {
	ctx := context.Background()
	svc, pub := newService(t, Options{StrictCategories: true})

	e, err := svc.Create(ctx, input("Coffee", "3.20", core.Food, "2024-02-11"))
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, []string{}, e.Tags)
	assert.Equal(t, []amqp.EventType{amqp.EventCreated}, pub.types())

	t.Run("missing fields", func(t *testing.T) {
		_, err := svc.Create(ctx, core.ExpenseInput{Title: "x"})
		assert.True(t, core.IsValidation(err))
		assert.EqualError(t, err, "Title, amount, and category are required")
	})

	t.Run("unknown category when strict", func(t *testing.T) {
		_, err := svc.Create(ctx, input("Yacht", "1", core.Category("Luxury"), ""))
		assert.True(t, core.IsValidation(err))
	})

	t.Run("date defaults to today", func(t *testing.T) {
		e, err := svc.Create(ctx, input("Snack", "1", core.Food, ""))
		require.NoError(t, err)
		assert.Equal(t, core.Today(time.UTC), e.Date)
	})
}

func TestExpenseService_CreateLenientCategories(t *testing.T) {
	svc, _ := newService(t, Options{StrictCategories: false})
	e, err := svc.Create(context.Background(), input("Yacht", "1", core.Category("Luxury"), ""))
	require.NoError(t, err)
	assert.Equal(t, core.Category("Luxury"), e.Category)
}

func TestExpenseService_PublishFailureDoesNotFailWrite(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewExpenseService(memory.New(), Options{Publisher: pub})

	e, err := svc.Create(context.Background(), input("Tram", "2", core.Transport, "2024-01-01"))
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), e.ID)
	require.NoError(t, err)
}

func TestExpenseService_StoreErrorPropagates(t *testing.T) {
	svc := NewExpenseService(failingStore{}, Options{})

	_, err := svc.Create(context.Background(), input("Tram", "2", core.Transport, "2024-01-01"))
	assert.True(t, core.IsStore(err))

	_, err = svc.Stats(context.Background(), core.Filter{})
	assert.True(t, core.IsStore(err))
}

func TestExpenseService_Update(t *testing.T) {
	ctx := context.Background()
	svc, pub := newService(t, Options{StrictCategories: true})
	e, err := svc.Create(ctx, input("Book", "15", core.Shopping, "2024-02-01"))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, e.ID, core.ExpensePatch{
		Amount:      core.Some("17.5"),
		Description: core.Some("hardcover"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Book", updated.Title)
	assert.True(t, decimal.RequireFromString("17.5").Equal(updated.Amount))
	assert.Equal(t, "hardcover", updated.Description)

	t.Run("empty patch does not write", func(t *testing.T) {
		before := len(pub.types())
		same, err := svc.Update(ctx, e.ID, core.ExpensePatch{Title: core.Some("  ")})
		require.NoError(t, err)
		assert.Equal(t, updated, same)
		assert.Len(t, pub.types(), before)
	})

	t.Run("invalid category", func(t *testing.T) {
		_, err := svc.Update(ctx, e.ID, core.ExpensePatch{Category: core.Some("Luxury")})
		assert.True(t, core.IsValidation(err))
	})

	t.Run("invalid amount", func(t *testing.T) {
		_, err := svc.Update(ctx, e.ID, core.ExpensePatch{Amount: core.Some("abc")})
		assert.True(t, core.IsValidation(err))
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := svc.Update(ctx, "missing", core.ExpensePatch{Title: core.Some("x")})
		assert.True(t, core.IsNotFound(err))
	})

	assert.Equal(t, []amqp.EventType{amqp.EventCreated, amqp.EventUpdated}, pub.types())
}

func TestExpenseService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, pub := newService(t, Options{})
	e, err := svc.Create(ctx, input("Movie", "11", core.Entertainment, "2024-02-01"))
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, deleted.ID)

	_, err = svc.Get(ctx, e.ID)
	assert.True(t, core.IsNotFound(err))

	_, err = svc.Delete(ctx, e.ID)
	assert.True(t, core.IsNotFound(err))
	assert.Equal(t, []amqp.EventType{amqp.EventCreated, amqp.EventDeleted}, pub.types())
}

func TestExpenseService_List(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, Options{})
	for i, d := range []string{"2024-01-01", "2024-01-02", "2024-01-03"} {
		_, err := svc.Create(ctx, input("item", "1", core.Food, d))
		require.NoError(t, err, "create %d", i)
	}

	res, err := svc.List(ctx, core.Filter{}, core.Page{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, res.Expenses, 2)
	assert.Equal(t, core.Pagination{Page: 1, Limit: 2, Total: 3, Pages: 2}, res.Pagination)

	res, err = svc.List(ctx, core.Filter{}, core.Page{})
	require.NoError(t, err)
	assert.Equal(t, core.DefaultPageLimit, res.Pagination.Limit)
	assert.Equal(t, 1, res.Pagination.Pages)
}

func TestExpenseService_StatsCachedAndInvalidated(t *testing.T) {
	ctx := context.Background()
	statsCache, err := cache.NewRistretto[core.Stats](cache.Config{MaxItems: 100})
	require.NoError(t, err)
	defer statsCache.Close()

	store := &countingStore{Store: memory.New()}
	svc := NewExpenseService(store, Options{StatsCache: statsCache})

	_, err = svc.Create(ctx, input("Lunch", "10", core.Food, "2024-03-01"))
	require.NoError(t, err)

	st, err := svc.Stats(ctx, core.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, st.TotalExpenses)

	_, err = svc.Stats(ctx, core.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, store.calls(), "second read should be served from cache")

	_, err = svc.Create(ctx, input("Dinner", "20", core.Food, "2024-03-02"))
	require.NoError(t, err)

	st, err = svc.Stats(ctx, core.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalExpenses)
	assert.Equal(t, "30", st.TotalAmount.String())
	assert.Equal(t, 2, store.calls())
}

// mapCache is a synchronous Cache so tests observe fills immediately.
type mapCache struct {
	mu      sync.Mutex
	entries map[string]core.Stats
}

func newMapCache() *mapCache { return &mapCache{entries: map[string]core.Stats{}} }

func (c *mapCache) Get(key string) (core.Stats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.entries[key]
	return st, ok
}

func (c *mapCache) Set(key string, st core.Stats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = st
}

func (c *mapCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *mapCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]core.Stats{}
}

func (c *mapCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// pausingStore reads, then holds the Matching result until released.
type pausingStore struct {
	*memory.Store
	read    chan struct{}
	release chan struct{}
}

func (s *pausingStore) Matching(ctx context.Context, f core.Filter) ([]core.Expense, error) {
	items, err := s.Store.Matching(ctx, f)
	s.read <- struct{}{}
	<-s.release
	return items, err
}

func TestExpenseService_StatsReadOverlappingWriteIsNotCached(t *testing.T) {
	ctx := context.Background()
	statsCache := newMapCache()
	mem := memory.New()
	store := &pausingStore{Store: mem, read: make(chan struct{}), release: make(chan struct{})}
	svc := NewExpenseService(store, Options{StatsCache: statsCache})

	_, err := svc.Create(ctx, input("Lunch", "10", core.Food, "2024-03-01"))
	require.NoError(t, err)

	done := make(chan core.Stats, 1)
	go func() {
		st, err := svc.Stats(ctx, core.Filter{})
		assert.NoError(t, err)
		done <- st
	}()

	<-store.read
	_, err = svc.Create(ctx, input("Dinner", "20", core.Food, "2024-03-02"))
	require.NoError(t, err)
	close(store.release)

	st := <-done
	assert.Equal(t, 1, st.TotalExpenses, "the overlapping read saw the old data")
	assert.Zero(t, statsCache.Size(), "a result read before the write must not be cached")

	go func() { <-store.read }()
	st, err = svc.Stats(ctx, core.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalExpenses)
	assert.Equal(t, "30", st.TotalAmount.String())
	assert.Equal(t, 1, statsCache.Size())
}

func TestExpenseService_StatsConvergeUnderConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	statsCache := newMapCache()
	svc := NewExpenseService(memory.New(), Options{StatsCache: statsCache})

	const writers, readers = 20, 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(ctx, input("Coffee", "1", core.Food, "2024-03-01"))
			assert.NoError(t, err)
		}()
	}
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Stats(ctx, core.Filter{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	st, err := svc.Stats(ctx, core.Filter{})
	require.NoError(t, err)
	assert.Equal(t, writers, st.TotalExpenses)
	assert.Equal(t, "20", st.TotalAmount.String())
}

func TestExpenseService_Close(t *testing.T) {
	t.Run("nil components", func(t *testing.T) {
		service := &ExpenseService{}
		require.NoError(t, service.Close())
	})

	t.Run("closes publisher", func(t *testing.T) {
		svc, pub := newService(t, Options{})
		require.NoError(t, svc.Close())
		assert.True(t, pub.closed)
	})
}
