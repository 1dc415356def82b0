// Path: internal/scraper/scraper.go
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"gate-scraper/internal/config"
)

// maxPageBytes caps how much of a result page is read.
const maxPageBytes = 8 << 20

// FetchError reports a failed page request: a transport error or a non-200 status.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: unexpected status code: %d", e.URL, e.StatusCode)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Scraper fetches raw tag search pages.
type Scraper struct {
	client    *http.Client
	limiter   *rate.Limiter
	searchURL string
	userAgent string
	perPage   int
}

// NewScraper creates and configures a new Scraper.
func NewScraper(cfg config.ScraperConfig) *Scraper {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.BurstLimit
	if burst < 1 {
		burst = 1
	}
	perPage := cfg.ResultsPerPage
	if perPage < 1 {
		perPage = 10
	}

	return &Scraper{
		client: &http.Client{
			Timeout: cfg.HTTPTimeout(),
		},
		limiter:   rate.NewLimiter(limit, burst),
		searchURL: strings.TrimRight(cfg.BaseURL, "/") + cfg.SearchPath,
		userAgent: cfg.UserAgent,
		perPage:   perPage,
	}
}

// PageURL builds the search URL for a zero-based page index. The trailing
// %2B keeps the search-operator padding the site expects after a tag.
func (s *Scraper) PageURL(tag string, page int) string {
	return fmt.Sprintf("%s?q=%s%%2B&start=%d", s.searchURL, url.QueryEscape(tag), s.perPage*page)
}

// FetchPage fetches a single result page for tag. It respects the rate limit
// and does not retry.
func (s *Scraper) FetchPage(ctx context.Context, tag string, page int) ([]byte, error) {
	pageURL := s.PageURL(tag, page)

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, &FetchError{URL: pageURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	return body, nil
}
