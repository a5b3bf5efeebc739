package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/sheets"
)

// ExpenseGetter loads the current state of an expense.
type ExpenseGetter interface {
	Get(ctx context.Context, id string) (core.Expense, error)
}

// EventSource delivers expense events to a handler until ctx ends.
type EventSource interface {
	ConsumeExpenseEvents(ctx context.Context, handler func(context.Context, *amqp.ExpenseEvent) error) error
}

// JournalWorker records every expense event as a journal row.
type JournalWorker struct {
	journal sheets.Journal
	store   ExpenseGetter
}

// NewJournalWorker builds a worker. store may be nil; it is only consulted
// for events that arrive without an expense snapshot.
func NewJournalWorker(journal sheets.Journal, store ExpenseGetter) *JournalWorker {
	return &JournalWorker{journal: journal, store: store}
}

// Run consumes events from src until ctx is cancelled.
func (w *JournalWorker) Run(ctx context.Context, src EventSource) error {
	err := src.ConsumeExpenseEvents(ctx, w.HandleEvent)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// HandleEvent processes a single expense event from AMQP
func (w *JournalWorker) HandleEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	slog.InfoContext(ctx, "Processing expense event",
		"type", ev.Type,
		"id", ev.ExpenseID)

	snap, err := w.snapshot(ctx, ev)
	if err != nil {
		return err
	}

	entry := sheets.JournalEntry{
		Timestamp: ev.Timestamp,
		Event:     string(ev.Type),
		ExpenseID: ev.ExpenseID,
	}
	if snap != nil {
		entry.Date = snap.Date
		entry.Title = snap.Title
		entry.Category = snap.Category
		entry.Amount = snap.Amount
		entry.Description = snap.Description
		entry.Tags = snap.Tags
	}

	if err := w.journal.Record(ctx, entry); err != nil {
		return fmt.Errorf("record journal entry: %w", err)
	}
	return nil
}

func (w *JournalWorker) snapshot(ctx context.Context, ev *amqp.ExpenseEvent) (*amqp.ExpenseSnapshot, error) {
	if ev.Expense != nil || ev.Type == amqp.EventDeleted || w.store == nil {
		return ev.Expense, nil
	}

	e, err := w.store.Get(ctx, ev.ExpenseID)
	if core.IsNotFound(err) {
		// deleted before the event was consumed
		slog.WarnContext(ctx, "Expense no longer exists, journaling id only", "id", ev.ExpenseID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get expense from storage: %w", err)
	}
	return amqp.NewExpenseEvent(ev.Type, e).Expense, nil
}
