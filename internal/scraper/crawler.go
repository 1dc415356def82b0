// Path: internal/scraper/crawler.go
package scraper

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"gate-scraper/internal/domain"
)

// PageFetcher retrieves the markup of one result page. page is zero-based.
type PageFetcher interface {
	FetchPage(ctx context.Context, tag string, page int) ([]byte, error)
}

type crawlIDKey struct{}

// WithCrawlID tags ctx so crawl logs can be correlated with the caller's.
func WithCrawlID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, crawlIDKey{}, id)
}

// Crawler walks result pages for a tag, one page at a time and in order.
type Crawler struct {
	fetcher PageFetcher
	parser  *Parser
	log     zerolog.Logger
}

// NewCrawler creates a crawler over the given fetcher and parser.
func NewCrawler(fetcher PageFetcher, parser *Parser, log zerolog.Logger) *Crawler {
	return &Crawler{
		fetcher: fetcher,
		parser:  parser,
		log:     log,
	}
}

// Crawl fetches pages 1..limit and stops early on the "no results" page.
// Any fetch failure fails the whole crawl and no items are returned.
func (c *Crawler) Crawl(ctx context.Context, tag string, limit int) ([]domain.Item, domain.CrawlStats, error) {
	var stats domain.CrawlStats
	if limit < 1 {
		return nil, stats, fmt.Errorf("crawl limit must be positive, got %d", limit)
	}

	log := c.log.With().Str("tag", tag).Logger()
	if id, ok := ctx.Value(crawlIDKey{}).(string); ok {
		log = log.With().Str("crawl_id", id).Logger()
	}

	items := []domain.Item{}
	for page := 1; page <= limit; page++ {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		markup, err := c.fetcher.FetchPage(ctx, tag, page-1)
		if err != nil {
			log.Error().Err(err).Int("page", page).Msg("Page fetch failed, aborting crawl")
			return nil, stats, err
		}

		result, err := c.parser.Parse(markup)
		if err != nil {
			return nil, stats, fmt.Errorf("page %d: %w", page, err)
		}

		stats.Pages++
		stats.Skipped += result.Skipped
		items = append(items, result.Items...)

		if result.Terminal {
			stats.Sentinel = true
			log.Info().Int("page", page).Msg("No more results")
			break
		}
		if !result.ContainerFound {
			log.Warn().Int("page", page).Msg("Result list not found on page, continuing")
		}
		log.Info().
			Int("page", page).
			Int("items", len(result.Items)).
			Int("skipped", result.Skipped).
			Msg("Page crawled")
	}

	stats.Items = len(items)
	log.Info().
		Int("pages", stats.Pages).
		Int("items", stats.Items).
		Int("skipped", stats.Skipped).
		Msg("Crawl finished")
	return items, stats, nil
}
