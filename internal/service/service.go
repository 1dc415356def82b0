// Path: internal/service/service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"gate-scraper/internal/domain"
	"gate-scraper/internal/events"
	"gate-scraper/internal/scraper"
)

const (
	// DefaultCrawlTimeout bounds a crawl when Options leaves it unset.
	DefaultCrawlTimeout = 120 * time.Second

	// Event topics
	EventCrawlCompleted = "crawl:completed"
	EventCrawlFailed    = "crawl:failed"
	EventCacheCleared   = "cache:cleared"
)

var (
	// ErrInvalidQuery is returned for a query the crawler cannot run.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrCrawlTimeout is returned when a crawl exceeds the crawl timeout.
	ErrCrawlTimeout = errors.New("crawl timed out")
	// ErrStopped is returned for crawls started after Stop.
	ErrStopped = errors.New("service stopped")
)

// Options tunes the service.
type Options struct {
	CrawlTimeout time.Duration
	DefaultLimit int
	MaxLimit     int
}

// Result is a successful scrape, either served from the cache or fresh.
type Result struct {
	Items    []domain.Item
	Cached   bool
	StoredAt time.Time
	// CrawlID and Stats are set only for fresh results.
	CrawlID string
	Stats   *domain.CrawlStats
	// Shared is set when the result came from a crawl started by another request.
	Shared bool
}

// CrawlEvent is published on the broker after every crawl.
type CrawlEvent struct {
	CrawlID  string
	Query    domain.Query
	Stats    domain.CrawlStats
	Cached   bool
	Err      error
	Duration time.Duration
}

// Service is the central orchestrator: it serves fresh cache entries and
// runs at most one crawl per cache key otherwise.
type Service struct {
	opts    Options
	crawler Crawler
	cache   ResultCache
	broker  *events.Broker
	log     zerolog.Logger

	flights singleflight.Group
	ctx     context.Context // parent of every crawl
	cancel  context.CancelFunc
}

// NewService creates a new core application service.
func NewService(
	opts Options,
	crawler Crawler,
	cache ResultCache,
	broker *events.Broker,
	log zerolog.Logger,
) *Service {
	if opts.CrawlTimeout <= 0 {
		opts.CrawlTimeout = DefaultCrawlTimeout
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 10
	}
	if opts.MaxLimit < opts.DefaultLimit {
		opts.MaxLimit = opts.DefaultLimit
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		opts:    opts,
		crawler: crawler,
		cache:   cache,
		broker:  broker,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Stop abandons in-flight crawls. Subsequent scrapes that need a crawl fail.
func (s *Service) Stop() {
	s.log.Info().Msg("Service stopping...")
	s.cancel()
}

// Scrape answers a query from the cache when possible, otherwise crawls.
// Concurrent scrapes for the same query share one crawl.
func (s *Service) Scrape(ctx context.Context, q domain.Query) (*Result, error) {
	q, err := s.normalize(q)
	if err != nil {
		return nil, err
	}
	key := q.Key()
	log := s.log.With().Str("tag", q.Tag).Int("limit", q.Limit).Logger()

	if q.Keyword != "" {
		log.Debug().Str("keyword", q.Keyword).Msg("Keyword has no effect on the crawl")
	}

	if !q.ForceRefresh {
		if entry, ok := s.cache.Read(ctx, key); ok {
			log.Info().Int("items", len(entry.Items)).Msg("Returning cached data")
			return &Result{Items: entry.Items, Cached: true, StoredAt: entry.StoredAt}, nil
		}
	}

	ch := s.flights.DoChan(key, func() (any, error) {
		return s.crawlAndStore(q)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		out := *res.Val.(*Result)
		out.Shared = res.Shared
		return &out, nil
	case <-ctx.Done():
		// The crawl keeps running for the other waiters and still fills the cache.
		return nil, ctx.Err()
	}
}

// crawlAndStore runs one bounded crawl and writes its result to the cache.
func (s *Service) crawlAndStore(q domain.Query) (*Result, error) {
	if s.ctx.Err() != nil {
		return nil, ErrStopped
	}

	id := uuid.NewString()
	log := s.log.With().Str("crawl_id", id).Str("tag", q.Tag).Int("limit", q.Limit).Logger()

	ctx, cancel := context.WithTimeout(s.ctx, s.opts.CrawlTimeout)
	defer cancel()
	ctx = scraper.WithCrawlID(ctx, id)

	start := time.Now()
	log.Info().Msg("Running scraper")
	items, stats, err := s.crawler.Crawl(ctx, q.Tag, q.Limit)
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s", ErrCrawlTimeout, s.opts.CrawlTimeout)
		} else if s.ctx.Err() != nil {
			err = ErrStopped
		} else {
			err = fmt.Errorf("crawl failed: %w", err)
		}
		log.Error().Err(err).Dur("elapsed", elapsed).Msg("Scraper failed")
		s.publish(EventCrawlFailed, CrawlEvent{CrawlID: id, Query: q, Stats: stats, Err: err, Duration: elapsed})
		return nil, err
	}

	// The crawl has finished, so the write is not bound by the crawl timeout.
	entry, werr := s.cache.Write(context.WithoutCancel(ctx), q, items)
	if werr != nil {
		log.Warn().Err(werr).Msg("Failed to save to cache, serving uncached result")
	}

	log.Info().
		Int("items", len(entry.Items)).
		Int("pages", stats.Pages).
		Int("skipped", stats.Skipped).
		Dur("elapsed", elapsed).
		Msg("Scrape completed")
	s.publish(EventCrawlCompleted, CrawlEvent{CrawlID: id, Query: q, Stats: stats, Cached: werr == nil, Duration: elapsed})

	return &Result{
		Items:    entry.Items,
		StoredAt: entry.StoredAt,
		CrawlID:  id,
		Stats:    &stats,
	}, nil
}

func (s *Service) publish(topic string, data any) {
	if s.broker != nil {
		s.broker.Publish(topic, data)
	}
}

func (s *Service) normalize(q domain.Query) (domain.Query, error) {
	q.Tag = strings.TrimSpace(q.Tag)
	q.Keyword = strings.TrimSpace(q.Keyword)

	if q.Tag == "" {
		return q, fmt.Errorf("%w: tag is required", ErrInvalidQuery)
	}
	if q.Limit == 0 {
		q.Limit = s.opts.DefaultLimit
	}
	if q.Limit < 0 || q.Limit > s.opts.MaxLimit {
		return q, fmt.Errorf("%w: limit must be between 1 and %d, got %d", ErrInvalidQuery, s.opts.MaxLimit, q.Limit)
	}
	return q, nil
}

// Status reports crawler availability and the state of the whole cache.
// Cache failures are logged and reported as an absent cache.
func (s *Service) Status(ctx context.Context) domain.Status {
	status := domain.Status{CrawlerAvailable: s.crawler != nil && s.ctx.Err() == nil}

	summary, err := s.cache.Summarize(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Could not read cache status")
		return status
	}
	status.CacheExists = summary.Exists
	status.CacheValid = summary.Valid
	status.LastUpdated = summary.LastUpdated
	status.Entries = summary.Entries
	return status
}

// StatusFor is Status narrowed to the cache entry of one query.
func (s *Service) StatusFor(ctx context.Context, q domain.Query) (domain.Status, error) {
	q, err := s.normalize(q)
	if err != nil {
		return domain.Status{}, err
	}
	status := domain.Status{CrawlerAvailable: s.crawler != nil && s.ctx.Err() == nil}

	summary, err := s.cache.Describe(ctx, q.Key())
	if err != nil {
		s.log.Error().Err(err).Str("tag", q.Tag).Msg("Could not read cache status")
		return status, nil
	}
	status.CacheExists = summary.Exists
	status.CacheValid = summary.Valid
	status.LastUpdated = summary.LastUpdated
	status.Entries = summary.Entries
	return status, nil
}

// ClearCache removes every cached result.
func (s *Service) ClearCache(ctx context.Context) error {
	if err := s.cache.Clear(ctx); err != nil {
		s.log.Error().Err(err).Msg("Failed to clear cache")
		return err
	}
	s.log.Info().Msg("Cache cleared")
	s.publish(EventCacheCleared, nil)
	return nil
}
