// Path: internal/service/storage.go
package service

import (
	"context"

	"gate-scraper/internal/cache"
	"gate-scraper/internal/domain"
)

// ResultCache defines what the service needs from the result cache.
// It is satisfied by *cache.Cache.
type ResultCache interface {
	// Read returns the entry for key only while it is fresh.
	Read(ctx context.Context, key string) (*domain.CacheEntry, bool)

	// Write replaces the entry for the query. The returned entry is valid
	// even when the error is non-nil.
	Write(ctx context.Context, query domain.Query, items []domain.Item) (domain.CacheEntry, error)

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// Summarize reports on the cache as a whole; Describe on a single key.
	Summarize(ctx context.Context) (cache.Summary, error)
	Describe(ctx context.Context, key string) (cache.Summary, error)
}

// Crawler defines the interface for a component that walks result pages.
// This allows for mocking in tests.
type Crawler interface {
	Crawl(ctx context.Context, tag string, limit int) ([]domain.Item, domain.CrawlStats, error)
}
