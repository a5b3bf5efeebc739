package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"expensetracker/internal/core"
)

// LocalCache mirrors the last known expense list on this machine.
type LocalCache interface {
	Load(ctx context.Context) ([]core.Expense, error)
	Save(ctx context.Context, expenses []core.Expense) error
}

const (
	cacheFileName = "cache.json"
	cacheKey      = "expenses"
)

// FileCache stores the list as a JSON array under the "expenses" key of a
// file in dir.
type FileCache struct {
	dir string
}

var _ LocalCache = (*FileCache)(nil)

func NewFileCache(dir string) *FileCache {
	return &FileCache{dir: dir}
}

func (c *FileCache) Path() string {
	return filepath.Join(c.dir, cacheFileName)
}

// Load returns the cached list, or an empty list when nothing was saved yet.
func (c *FileCache) Load(ctx context.Context) ([]core.Expense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(c.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return []core.Expense{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cache: %w", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode cache: %w", err)
	}
	raw, ok := doc[cacheKey]
	if !ok {
		return []core.Expense{}, nil
	}
	var records []expenseRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode cached expenses: %w", err)
	}
	return fromRecords(records)
}

// Save replaces the cached list. The file is swapped in with a rename so a
// crash never leaves a half-written cache.
func (c *FileCache) Save(ctx context.Context, expenses []core.Expense) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	records := make([]expenseRecord, 0, len(expenses))
	for _, e := range expenses {
		records = append(records, toRecord(e))
	}
	data, err := json.MarshalIndent(map[string][]expenseRecord{cacheKey: records}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	tmp, err := os.CreateTemp(c.dir, cacheFileName+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.Path()); err != nil {
		return fmt.Errorf("replace cache: %w", err)
	}
	return nil
}
