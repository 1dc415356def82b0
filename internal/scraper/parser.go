// Path: internal/scraper/parser.go
package scraper

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"gate-scraper/internal/domain"
)

// Selectors for the tag search result page.
const (
	selHeading   = "header.qa-main-heading"
	selContainer = "div.qa-q-list.qa-q-list-vote-disabled"
	selVotes     = "span.qa-netvote-count-data"
	selViews     = "div.qa-view-count span.item-view-text"
	selUser      = "span.qa-q-item-who-data a.qa-user-link"
	selTitle     = "div.qa-q-item-title a"
	selPostedOn  = "span.qa-q-item-when-data"
)

const noResultsPrefix = "no results found for"

// ErrMissingField is wrapped by every ExtractionError.
var ErrMissingField = errors.New("required field missing")

// ExtractionError reports a card that could not be turned into an Item.
type ExtractionError struct {
	Field string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("card extraction: %s: %v", e.Field, ErrMissingField)
}

func (e *ExtractionError) Unwrap() error { return ErrMissingField }

// Page is the outcome of parsing one result page.
type Page struct {
	Items []domain.Item
	// Terminal is set only when the page carries the "no results" heading.
	Terminal       bool
	ContainerFound bool
	Cards          int
	Skipped        int
}

// Parser turns result page markup into items.
type Parser struct {
	baseURL string
	log     zerolog.Logger
}

// NewParser creates a parser that resolves card links against baseURL.
func NewParser(baseURL string, log zerolog.Logger) *Parser {
	return &Parser{
		baseURL: strings.TrimRight(baseURL, "/"),
		log:     log,
	}
}

// Parse reads one page of markup. Unusable cards are skipped and counted.
func (p *Parser) Parse(markup []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("failed to parse markup: %w", err)
	}

	page := &Page{Items: []domain.Item{}}

	if heading := doc.Find(selHeading).First(); heading.Length() > 0 {
		if strings.HasPrefix(normalizeText(heading.Text()), noResultsPrefix) {
			page.Terminal = true
			return page, nil
		}
	}

	container := doc.Find(selContainer).First()
	if container.Length() == 0 {
		return page, nil
	}
	page.ContainerFound = true

	// Only direct children are cards; nested wrappers inside a card are not.
	container.Children().Each(func(i int, card *goquery.Selection) {
		page.Cards++
		item, err := p.ExtractCard(card)
		if err != nil {
			page.Skipped++
			p.log.Debug().Err(err).Int("card", i).Msg("Skipping card")
			return
		}
		page.Items = append(page.Items, item)
	})

	return page, nil
}

// ExtractCard builds an Item from one card. The date is optional; every other
// field is required and its absence fails the whole card.
func (p *Parser) ExtractCard(card *goquery.Selection) (domain.Item, error) {
	votes := card.Find(selVotes).First()
	if votes.Length() == 0 {
		return domain.Item{}, &ExtractionError{Field: "votes"}
	}
	views := card.Find(selViews).First()
	if views.Length() == 0 {
		return domain.Item{}, &ExtractionError{Field: "views"}
	}
	user := card.Find(selUser).First()
	if user.Length() == 0 {
		return domain.Item{}, &ExtractionError{Field: "user"}
	}
	title := card.Find(selTitle).First()
	if title.Length() == 0 {
		return domain.Item{}, &ExtractionError{Field: "title"}
	}
	href, ok := title.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return domain.Item{}, &ExtractionError{Field: "link"}
	}
	titleText := strings.TrimSpace(title.Text())
	if titleText == "" {
		return domain.Item{}, &ExtractionError{Field: "title"}
	}

	item := domain.Item{
		Title:    titleText,
		Link:     resolveLink(p.baseURL, strings.TrimSpace(href)),
		Upvotes:  p.count("votes", votes.Text()),
		Views:    p.count("views", views.Text()),
		User:     strings.TrimSpace(user.Text()),
		PostedOn: domain.DateNotAvailable,
	}
	if when := card.Find(selPostedOn).First(); when.Length() > 0 {
		item.PostedOn = strings.TrimSpace(when.Text())
	}
	return item, nil
}

func (p *Parser) count(field, token string) int {
	n, ok := ParseCount(token)
	if !ok {
		p.log.Debug().Str("field", field).Str("token", token).Msg("Unparseable counter, using 0")
	}
	return n
}

// resolveLink makes a card href absolute. Relative hrefs lose any leading
// "./" or "/" characters before being joined to the base.
func resolveLink(base, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return base + "/" + strings.TrimLeft(href, "./")
}

func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
