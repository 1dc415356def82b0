// Path: internal/domain/models.go
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Item is a single question card scraped from a tag search page.
// It includes struct tags for JSON serialization and BSON mapping for MongoDB.
type Item struct {
	Title   string `json:"title" bson:"title"`
	Link    string `json:"link" bson:"link"`
	Upvotes int    `json:"upvotes" bson:"upvotes"`
	Views   int    `json:"views" bson:"views"`
	User    string `json:"user" bson:"user"`

	// PostedOn is free-form display text, "N/A" when the card has none.
	PostedOn string `json:"date" bson:"date"`
}

// DateNotAvailable is stored in Item.PostedOn when a card carries no date.
const DateNotAvailable = "N/A"

// Query describes one scrape request.
type Query struct {
	Tag string `json:"tags" bson:"tag"`

	// Keyword is accepted and keys the cache, but the upstream search has
	// no keyword parameter so it never filters results.
	Keyword      string `json:"keyword" bson:"keyword"`
	Limit        int    `json:"limit" bson:"limit"`
	ForceRefresh bool   `json:"force_refresh" bson:"-"`
}

// Key returns a deterministic cache key for the query. ForceRefresh does not
// participate: a forced request replaces the entry a normal request would read.
func (q Query) Key() string {
	var b strings.Builder
	b.WriteString("tag=")
	b.WriteString(strings.TrimSpace(q.Tag))
	b.WriteString("\x00keyword=")
	b.WriteString(strings.TrimSpace(q.Keyword))
	b.WriteString("\x00limit=")
	b.WriteString(strconv.Itoa(q.Limit))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// CacheEntry is the persisted form of one crawl result.
type CacheEntry struct {
	Key      string    `json:"key" bson:"_id"`
	Query    Query     `json:"query" bson:"query"`
	Items    []Item    `json:"items" bson:"items"`
	StoredAt time.Time `json:"storedAt" bson:"storedAt"`
}

// CrawlStats summarizes a finished crawl.
type CrawlStats struct {
	Pages    int  `json:"pages"`
	Items    int  `json:"items"`
	Skipped  int  `json:"skipped"`
	Sentinel bool `json:"sentinel"`
}

// Status is the service state reported to the delivery layer.
type Status struct {
	CrawlerAvailable bool       `json:"crawlerAvailable"`
	CacheExists      bool       `json:"cacheExists"`
	CacheValid       bool       `json:"cacheValid"`
	LastUpdated      *time.Time `json:"lastUpdated,omitempty"`
	Entries          int64      `json:"entries"`
}
