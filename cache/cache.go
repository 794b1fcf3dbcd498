// Package cache memoizes JSON-encodable values under string keys with an expiry.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

const (
	// DefaultTTL applies when Set is called with a non-positive ttl.
	DefaultTTL = 1440 * time.Minute
	// DefaultMaxEntries bounds the number of stored keys.
	DefaultMaxEntries = 1024
)

// ErrNotFound is returned by a Backend for a missing key.
var ErrNotFound = errors.New("cache: key not found")

// Backend stores raw entries. Implementations live in the storage package.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// entry is the stored representation of a cached value.
type entry struct {
	Value     json.RawMessage `json:"value"`
	Timestamp int64           `json:"timestamp"` // unix millis when stored
	Expiry    int64           `json:"expiry"`    // lifetime in millis
}

func (e *entry) expired(now time.Time) bool {
	return now.UnixMilli()-e.Timestamp > e.Expiry
}

type meta struct {
	timestamp int64
	expiry    int64
}

// Cache is a TTL cache with a count bound over a Backend.
type Cache struct {
	backend    Backend
	logger     *slog.Logger
	now        func() time.Time
	maxEntries int

	mu     sync.Mutex
	index  map[string]meta
	loaded bool
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxEntries sets the eviction bound.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache over backend.
func New(backend Backend, logger *slog.Logger, opts ...Option) *Cache {
	c := &Cache{
		backend:    backend,
		logger:     logger,
		now:        time.Now,
		maxEntries: DefaultMaxEntries,
		index:      make(map[string]meta),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set stores value under key for ttl, replacing any existing entry.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}
	e := entry{
		Value:     raw,
		Timestamp: c.now().UnixMilli(),
		Expiry:    ttl.Milliseconds(),
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadIndex(ctx); err != nil {
		return err
	}
	if _, exists := c.index[key]; !exists && len(c.index) >= c.maxEntries {
		if err := c.evict(ctx, len(c.index)-c.maxEntries+1); err != nil {
			return err
		}
	}

	if err := c.backend.Put(ctx, key, data); err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	c.index[key] = meta{timestamp: e.Timestamp, expiry: e.Expiry}
	return nil
}

// Get decodes the value stored under key into out.
// Expired and malformed entries are removed and reported as a miss.
func (c *Cache) Get(ctx context.Context, key string, out any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := c.backend.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		delete(c.index, key)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %q: %w", key, err)
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil || e.Value == nil {
		c.logger.Warn("Dropping malformed cache entry", "key", key, "error", err)
		return false, c.remove(ctx, key)
	}
	if e.expired(c.now()) {
		c.logger.Debug("Cache entry expired", "key", key)
		return false, c.remove(ctx, key)
	}
	if err := json.Unmarshal(e.Value, out); err != nil {
		c.logger.Warn("Dropping undecodable cache value", "key", key, "error", err)
		return false, c.remove(ctx, key)
	}
	return true, nil
}

// Remove deletes key.
func (c *Cache) Remove(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remove(ctx, key)
}

// Clear deletes every key.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, err := c.backend.Keys(ctx)
	if err != nil {
		return fmt.Errorf("list keys: %w", err)
	}
	for _, key := range keys {
		if err := c.remove(ctx, key); err != nil {
			return err
		}
	}
	c.index = make(map[string]meta)
	c.loaded = true
	return nil
}

// Len returns the number of stored keys, expired or not.
func (c *Cache) Len(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadIndex(ctx); err != nil {
		return 0, err
	}
	return len(c.index), nil
}

func (c *Cache) remove(ctx context.Context, key string) error {
	delete(c.index, key)
	if err := c.backend.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// loadIndex reads entry metadata from the backend once, so persistent
// backends start with a correct count. Caller holds c.mu.
func (c *Cache) loadIndex(ctx context.Context) error {
	if c.loaded {
		return nil
	}
	keys, err := c.backend.Keys(ctx)
	if err != nil {
		return fmt.Errorf("list keys: %w", err)
	}
	for _, key := range keys {
		data, err := c.backend.Get(ctx, key)
		if err != nil {
			continue
		}
		var e entry
		if err := json.Unmarshal(data, &e); err != nil {
			// Oldest possible timestamp so it is evicted first.
			c.index[key] = meta{}
			continue
		}
		c.index[key] = meta{timestamp: e.Timestamp, expiry: e.Expiry}
	}
	c.loaded = true
	return nil
}

// evict frees at least n slots: expired entries first, then the oldest.
// Caller holds c.mu.
func (c *Cache) evict(ctx context.Context, n int) error {
	now := c.now().UnixMilli()
	type candidate struct {
		key string
		meta
	}
	var live []candidate
	freed := 0
	for key, m := range c.index {
		if now-m.timestamp > m.expiry {
			if err := c.remove(ctx, key); err != nil {
				return err
			}
			freed++
			continue
		}
		live = append(live, candidate{key: key, meta: m})
	}
	if freed >= n {
		c.logger.Debug("Evicted expired cache entries", "count", freed)
		return nil
	}

	sort.Slice(live, func(i, j int) bool {
		if live[i].timestamp != live[j].timestamp {
			return live[i].timestamp < live[j].timestamp
		}
		return live[i].key < live[j].key
	})
	for _, cand := range live {
		if freed >= n {
			break
		}
		if err := c.remove(ctx, cand.key); err != nil {
			return err
		}
		freed++
	}
	c.logger.Debug("Evicted cache entries", "count", freed, "max_entries", c.maxEntries)
	return nil
}
