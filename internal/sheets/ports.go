package sheets

import (
	"context"
	"strings"
	"time"
)

// JournalEntry is one audit line describing a write to the expense store.
type JournalEntry struct {
	Timestamp   time.Time
	Event       string
	ExpenseID   string
	Date        string
	Title       string
	Category    string
	Amount      string
	Description string
	Tags        []string
}

// Row renders the entry in column order A..I.
func (e JournalEntry) Row() []any {
	return []any{
		e.Timestamp.UTC().Format(time.RFC3339),
		e.Event,
		e.ExpenseID,
		e.Date,
		e.Title,
		e.Category,
		e.Amount,
		e.Description,
		strings.Join(e.Tags, ", "),
	}
}

// Journal is the outbound port for the append-only expense journal.
type Journal interface {
	Record(ctx context.Context, entry JournalEntry) error
}
