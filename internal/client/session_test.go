package client

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

type fakeRemote struct {
	list      []core.Expense
	listErr   error
	createErr error
	deleteErr error
	creates   int
	deleted   []string
}

func (f *fakeRemote) List(context.Context) ([]core.Expense, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.list, nil
}

func (f *fakeRemote) Create(_ context.Context, in core.ExpenseInput) (core.Expense, error) {
	f.creates++
	if f.createErr != nil {
		return core.Expense{}, f.createErr
	}
	return core.Expense{
		ID:       "new",
		Title:    in.Title,
		Amount:   decimal.RequireFromString(in.Amount),
		Category: core.Category(in.Category),
		Tags:     []string{},
	}, nil
}

func (f *fakeRemote) Delete(_ context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeCache struct {
	stored  []core.Expense
	loadErr error
	saveErr error
	saves   int
}

func (f *fakeCache) Load(context.Context) ([]core.Expense, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.stored, nil
}

func (f *fakeCache) Save(_ context.Context, items []core.Expense) error {
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.stored = append([]core.Expense{}, items...)
	return nil
}

var errOffline = &core.StoreError{Op: "list", Err: errors.New("connection refused")}

func newSession(remote *fakeRemote, cache *fakeCache) *Session {
	return NewSession(remote, cache, applog.New(applog.Config{Output: io.Discard}))
}

func TestSession_LoadFromRemoteMirrorsCache(t *testing.T) {
	remote := &fakeRemote{list: sample()}
	cache := &fakeCache{}

	st := newSession(remote, cache).Load(context.Background())

	assert.Equal(t, SourceRemote, st.Source)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Err)
	assert.Len(t, st.Expenses, 4)
	assert.Equal(t, ids(sample()), ids(cache.stored))
}

func TestSession_LoadFallsBackOnError(t *testing.T) {
	remote := &fakeRemote{listErr: errOffline}
	cache := &fakeCache{stored: sample()[:2]}

	st := newSession(remote, cache).Load(context.Background())

	assert.Equal(t, SourceCache, st.Source)
	assert.Equal(t, MsgLoadFailed, st.Err)
	assert.False(t, st.Loading)
	assert.Equal(t, []string{"1", "2"}, ids(st.Expenses))
	assert.Zero(t, cache.saves)
}

func TestSession_LoadFallsBackOnEmptyRemote(t *testing.T) {
	remote := &fakeRemote{list: []core.Expense{}}
	cache := &fakeCache{stored: sample()[:1]}

	st := newSession(remote, cache).Load(context.Background())

	assert.Equal(t, SourceCache, st.Source)
	assert.Empty(t, st.Err)
	assert.Equal(t, []string{"1"}, ids(st.Expenses))
}

func TestSession_LoadBothTiersFail(t *testing.T) {
	remote := &fakeRemote{listErr: errOffline}
	cache := &fakeCache{loadErr: errors.New("permission denied")}

	st := newSession(remote, cache).Load(context.Background())

	assert.False(t, st.Loading)
	assert.Equal(t, MsgLoadFailed, st.Err)
	assert.Empty(t, st.Expenses)
}

func TestSession_Add(t *testing.T) {
	remote := &fakeRemote{list: sample()}
	cache := &fakeCache{}
	s := newSession(remote, cache)
	s.Load(context.Background())

	st, err := s.Add(context.Background(), core.ExpenseInput{Title: "Tea", Amount: "2", Category: "Food"})
	require.NoError(t, err)
	assert.Equal(t, "new", st.Expenses[0].ID)
	assert.Len(t, st.Expenses, 5)
	assert.Len(t, cache.stored, 5)
}

func TestSession_AddIncompleteSkipsServer(t *testing.T) {
	remote := &fakeRemote{}
	s := newSession(remote, &fakeCache{})

	for _, in := range []core.ExpenseInput{
		{Amount: "2", Category: "Food"},
		{Title: "Tea", Category: "Food"},
		{Title: "Tea", Amount: "2", Category: "  "},
	} {
		_, err := s.Add(context.Background(), in)
		assert.ErrorIs(t, err, core.ErrRequiredFields)
	}
	assert.Zero(t, remote.creates)
}

func TestSession_AddUnknownCategorySkipsServer(t *testing.T) {
	remote := &fakeRemote{}
	cache := &fakeCache{}
	s := newSession(remote, cache)

	for _, category := range []string{"Pets", "food", " Travel "} {
		st, err := s.Add(context.Background(), core.ExpenseInput{Title: "Kibble", Amount: "9", Category: category})
		require.Error(t, err, category)
		assert.True(t, core.IsValidation(err), "category %q: %v", category, err)
		assert.Empty(t, st.Expenses)
	}
	assert.Zero(t, remote.creates)
	assert.Zero(t, cache.saves)

	_, err := s.Add(context.Background(), core.ExpenseInput{Title: "Kibble", Amount: "9", Category: " Shopping "})
	require.NoError(t, err)
	assert.Equal(t, 1, remote.creates)
}

func TestSession_AddFailureLeavesList(t *testing.T) {
	remote := &fakeRemote{list: sample(), createErr: errOffline}
	cache := &fakeCache{}
	s := newSession(remote, cache)
	s.Load(context.Background())
	savesBefore := cache.saves

	st, err := s.Add(context.Background(), core.ExpenseInput{Title: "Tea", Amount: "2", Category: "Food"})
	require.Error(t, err)
	assert.Equal(t, MsgCreateFailed, st.Err)
	assert.Equal(t, ids(sample()), ids(st.Expenses))
	assert.Equal(t, savesBefore, cache.saves)

	assert.Empty(t, s.DismissError().Err)
}

func TestSession_Remove(t *testing.T) {
	remote := &fakeRemote{list: sample()}
	cache := &fakeCache{}
	s := newSession(remote, cache)
	s.Load(context.Background())

	st, err := s.Remove(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3", "4"}, ids(st.Expenses))
	assert.Equal(t, []string{"2"}, remote.deleted)
	assert.Equal(t, []string{"1", "3", "4"}, ids(cache.stored))
}

func TestSession_RemoveFailureLeavesList(t *testing.T) {
	remote := &fakeRemote{list: sample()}
	s := newSession(remote, &fakeCache{})
	s.Load(context.Background())
	remote.deleteErr = &core.NotFoundError{ID: "2"}

	st, err := s.Remove(context.Background(), "2")
	assert.True(t, core.IsNotFound(err))
	assert.Equal(t, MsgDeleteFailed, st.Err)
	assert.Len(t, st.Expenses, 4)
}

func TestSession_CacheWriteFailureIsNotFatal(t *testing.T) {
	remote := &fakeRemote{list: sample()}
	cache := &fakeCache{saveErr: errors.New("disk full")}
	s := newSession(remote, cache)

	st := s.Load(context.Background())
	assert.Equal(t, SourceRemote, st.Source)
	assert.Empty(t, st.Err)
}

func TestSession_SetFilter(t *testing.T) {
	s := newSession(&fakeRemote{list: sample()}, &fakeCache{})
	s.Load(context.Background())

	st := s.SetFilter(FilterState{Category: core.Food, SortBy: SortByAmount, SortOrder: SortAsc})
	assert.Equal(t, []string{"1", "4"}, ids(st.Visible()))
	assert.Equal(t, st, s.State())
}
