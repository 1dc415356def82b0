// Path: internal/cache/cache.go
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"gate-scraper/internal/domain"
)

// DefaultTTL is the freshness window used when none is configured.
const DefaultTTL = 300 * time.Second

// ErrNotFound is returned by a Backend when no entry exists for a key.
var ErrNotFound = errors.New("cache entry not found")

// IOError wraps a failed backend operation.
type IOError struct {
	Op  string
	Key string
	Err error
}

func (e *IOError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("cache %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Backend persists cache entries. Put must be all-or-nothing for readers.
type Backend interface {
	Get(ctx context.Context, key string) (*domain.CacheEntry, error)
	Put(ctx context.Context, entry domain.CacheEntry) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	// Latest returns the most recently stored entry, or ErrNotFound.
	Latest(ctx context.Context) (*domain.CacheEntry, error)
	Count(ctx context.Context) (int64, error)
}

// Cache applies the freshness policy on top of a Backend.
type Cache struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache over backend. A non-positive ttl selects DefaultTTL.
func New(backend Backend, ttl time.Duration, log zerolog.Logger, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		backend: backend,
		ttl:     ttl,
		now:     time.Now,
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the freshness window.
func (c *Cache) TTL() time.Duration { return c.ttl }

func (c *Cache) fresh(entry *domain.CacheEntry) bool {
	return entry != nil && c.now().Sub(entry.StoredAt) < c.ttl
}

// IsValid reports whether a fresh entry exists for key. Backend failures
// count as a miss.
func (c *Cache) IsValid(ctx context.Context, key string) bool {
	entry, err := c.lookup(ctx, key)
	return err == nil && c.fresh(entry)
}

// Read returns the stored items for key only while they are fresh. It never
// returns stale data; ok is false on a miss, a stale entry, or a read failure.
func (c *Cache) Read(ctx context.Context, key string) (entry *domain.CacheEntry, ok bool) {
	entry, err := c.lookup(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.log.Error().Err(err).Str("key", key).Msg("Cache read failed, treating as miss")
		}
		return nil, false
	}
	if !c.fresh(entry) {
		return nil, false
	}
	return entry, true
}

func (c *Cache) lookup(ctx context.Context, key string) (*domain.CacheEntry, error) {
	entry, err := c.backend.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, &IOError{Op: "read", Key: key, Err: err}
	}
	return entry, nil
}

// Write stores items for query and stamps the entry with the current time,
// truncated to whole seconds. The returned entry is usable even when the
// write itself failed.
func (c *Cache) Write(ctx context.Context, query domain.Query, items []domain.Item) (domain.CacheEntry, error) {
	if items == nil {
		items = []domain.Item{}
	}
	entry := domain.CacheEntry{
		Key:      query.Key(),
		Query:    domain.Query{Tag: query.Tag, Keyword: query.Keyword, Limit: query.Limit},
		Items:    items,
		StoredAt: c.now().UTC().Truncate(time.Second),
	}
	if err := c.backend.Put(ctx, entry); err != nil {
		return entry, &IOError{Op: "write", Key: entry.Key, Err: err}
	}
	return entry, nil
}

// Delete removes one entry. Deleting a missing entry succeeds.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.backend.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		return &IOError{Op: "delete", Key: key, Err: err}
	}
	return nil
}

// Clear removes every entry. Clearing an empty cache succeeds.
func (c *Cache) Clear(ctx context.Context) error {
	if err := c.backend.Clear(ctx); err != nil {
		return &IOError{Op: "clear", Err: err}
	}
	return nil
}

// Summary describes the cache as a whole.
type Summary struct {
	Exists      bool
	Valid       bool
	LastUpdated *time.Time
	Entries     int64
}

// Summarize reports on the most recently written entry.
func (c *Cache) Summarize(ctx context.Context) (Summary, error) {
	var s Summary

	count, err := c.backend.Count(ctx)
	if err != nil {
		return s, &IOError{Op: "count", Err: err}
	}
	s.Entries = count

	latest, err := c.backend.Latest(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return s, nil
		}
		return s, &IOError{Op: "latest", Err: err}
	}
	stored := latest.StoredAt
	s.Exists = true
	s.Valid = c.fresh(latest)
	s.LastUpdated = &stored
	return s, nil
}

// Describe reports on the entry for a single key.
func (c *Cache) Describe(ctx context.Context, key string) (Summary, error) {
	var s Summary
	entry, err := c.lookup(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return s, nil
		}
		return s, err
	}
	stored := entry.StoredAt
	s.Exists = true
	s.Valid = c.fresh(entry)
	s.LastUpdated = &stored
	s.Entries = 1
	return s, nil
}
