package memory

import (
	"context"
	"sync"

	"expensetracker/internal/sheets"
)

// Journal keeps recorded entries in memory.
type Journal struct {
	mu      sync.Mutex
	entries []sheets.JournalEntry
	err     error
}

var _ sheets.Journal = (*Journal)(nil)

func New() *Journal {
	return &Journal{}
}

// FailWith makes every following Record return err. A nil err restores success.
func (j *Journal) FailWith(err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.err = err
}

func (j *Journal) Record(_ context.Context, entry sheets.JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return j.err
	}
	entry.Tags = append([]string(nil), entry.Tags...)
	j.entries = append(j.entries, entry)
	return nil
}

// Entries returns a copy of the recorded entries in order.
func (j *Journal) Entries() []sheets.JournalEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]sheets.JournalEntry(nil), j.entries...)
}
