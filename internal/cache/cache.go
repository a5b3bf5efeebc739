package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)

	// Clear drops every entry
	Clear()

	// Size returns the number of keys written and not yet deleted
	Size() int
}

// Config sizes a Ristretto cache.
type Config struct {
	MaxItems int64
	TTL      time.Duration
}

// Ristretto is a Cache backed by dgraph-io/ristretto. Every entry costs 1,
// so MaxItems bounds the entry count. A zero TTL keeps entries until evicted.
type Ristretto[T any] struct {
	cache *ristretto.Cache
	ttl   time.Duration

	mu   sync.Mutex
	keys map[string]struct{}
}

var _ Cache[int] = (*Ristretto[int])(nil)

func NewRistretto[T any](cfg Config) (*Ristretto[T], error) {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 1000
	}
	rc, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.MaxItems * 10,
		MaxCost:     cfg.MaxItems,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto cache: %w", err)
	}
	return &Ristretto[T]{cache: rc, ttl: cfg.TTL, keys: make(map[string]struct{})}, nil
}

func (c *Ristretto[T]) Get(key string) (T, bool) {
	var zero T
	v, ok := c.cache.Get(key)
	if !ok {
		return zero, false
	}
	data, ok := v.(T)
	if !ok {
		return zero, false
	}
	return data, true
}

// Set writes synchronously so that a following Get observes the value.
func (c *Ristretto[T]) Set(key string, data T) {
	c.mu.Lock()
	c.keys[key] = struct{}{}
	c.mu.Unlock()

	if c.ttl > 0 {
		c.cache.SetWithTTL(key, data, 1, c.ttl)
	} else {
		c.cache.Set(key, data, 1)
	}
	c.cache.Wait()
}

func (c *Ristretto[T]) Delete(key string) {
	c.mu.Lock()
	delete(c.keys, key)
	c.mu.Unlock()
	c.cache.Del(key)
}

func (c *Ristretto[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.keys {
		c.cache.Del(key)
	}
	c.keys = make(map[string]struct{})
}

func (c *Ristretto[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.keys)
}

// Close stops the cache's background goroutines.
func (c *Ristretto[T]) Close() {
	c.cache.Close()
}
