package client

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

// Messages shown to the user when a server call fails.
const (
	MsgLoadFailed   = "Failed to fetch expenses from server"
	MsgCreateFailed = "Failed to save expense to server"
	MsgDeleteFailed = "Failed to delete expense from server"
)

// Session owns the application state and keeps the local cache in step
// with it. Reads try the server first and fall back to the cache.
type Session struct {
	remote RemoteStore
	cache  LocalCache
	logger *applog.Logger

	mu    sync.Mutex
	state State
}

func NewSession(remote RemoteStore, cache LocalCache, logger *applog.Logger) *Session {
	return &Session{
		remote: remote,
		cache:  cache,
		logger: logger.WithComponent(applog.ComponentClient),
		state:  NewState(),
	}
}

// State returns a snapshot of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Load reads the list from the server. When the server fails or has no
// expenses the cached list is used instead.
func (s *Session) Load(ctx context.Context) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = s.state.StartLoading()

	remote, err := s.remote.List(ctx)
	if err == nil && len(remote) > 0 {
		s.state = s.state.Loaded(remote, SourceRemote)
		s.mirror(ctx)
		return s.state
	}
	if err != nil {
		s.logger.Warn("Failed to load expenses from API, using local cache", applog.FieldError, err)
		s.state = s.state.Failed(MsgLoadFailed)
	}

	cached, cerr := s.cache.Load(ctx)
	if cerr != nil {
		s.logger.Error("Failed to read local cache", applog.FieldError, cerr)
		if err == nil {
			s.state = s.state.Loaded(remote, SourceRemote)
			return s.state
		}
		s.state.Loading = false
		return s.state
	}
	s.state = s.state.Loaded(cached, SourceCache)
	return s.state
}

// Add submits a new expense. Incomplete input and categories outside the
// enumeration are rejected without a server call; a server failure sets Err
// and leaves the list unchanged.
func (s *Session) Add(ctx context.Context, in core.ExpenseInput) (State, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Amount) == "" || strings.TrimSpace(in.Category) == "" {
		return s.State(), core.ErrRequiredFields
	}
	if category := core.Category(strings.TrimSpace(in.Category)); !category.Valid() {
		return s.State(), core.NewValidationError("category", fmt.Sprintf("invalid category %q", category))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	created, err := s.remote.Create(ctx, in)
	if err != nil {
		s.logger.Error("Failed to save expense", applog.FieldError, err, applog.FieldTitle, in.Title)
		s.state = s.state.Failed(MsgCreateFailed)
		return s.state, err
	}
	s.state = s.state.Added(created)
	s.mirror(ctx)
	return s.state, nil
}

// Remove deletes an expense on the server first and drops it locally only
// when that succeeds.
func (s *Session) Remove(ctx context.Context, id string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.remote.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete expense", applog.FieldError, err, applog.FieldExpenseID, id)
		s.state = s.state.Failed(MsgDeleteFailed)
		return s.state, err
	}
	s.state = s.state.Removed(id)
	s.mirror(ctx)
	return s.state, nil
}

func (s *Session) SetFilter(f FilterState) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = s.state.WithFilter(f)
	return s.state
}

func (s *Session) DismissError() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = s.state.DismissError()
	return s.state
}

// mirror writes the current list to the cache. Failures are only logged;
// the server stays the source of truth.
func (s *Session) mirror(ctx context.Context) {
	if err := s.cache.Save(ctx, s.state.Expenses); err != nil {
		s.logger.Warn("Failed to update local cache", applog.FieldError, err)
	}
}
