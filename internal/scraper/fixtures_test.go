package scraper

import (
	"fmt"
	"strings"
)

type testCard struct {
	Votes, Views, User, Title, Href, When string
	NoVotes, NoViews, NoUser, NoTitle     bool
}

func (c testCard) html() string {
	var b strings.Builder
	b.WriteString(`<div class="qa-q-list-item">`)
	if !c.NoVotes {
		fmt.Fprintf(&b, `<div class="qa-voting"><span class="qa-netvote-count"><span class="qa-netvote-count-data">%s</span></span></div>`, c.Votes)
	}
	if !c.NoViews {
		fmt.Fprintf(&b, `<div class="qa-view-count"><span class="item-view-text">%s</span> views</div>`, c.Views)
	}
	b.WriteString(`<div class="qa-q-item-main">`)
	if !c.NoTitle {
		fmt.Fprintf(&b, `<div class="qa-q-item-title"><a href="%s">%s</a></div>`, c.Href, c.Title)
	}
	b.WriteString(`<span class="qa-q-item-meta">`)
	if c.When != "" {
		fmt.Fprintf(&b, `<span class="qa-q-item-when"><span class="qa-q-item-when-data">%s</span></span>`, c.When)
	}
	if !c.NoUser {
		fmt.Fprintf(&b, `<span class="qa-q-item-who"><span class="qa-q-item-who-data"><a href="./user/%s" class="qa-user-link">%s</a></span></span>`, c.User, c.User)
	}
	b.WriteString(`</span></div></div>`)
	return b.String()
}

func validCard(n int) testCard {
	return testCard{
		Votes: "3",
		Views: "1.2k",
		User:  fmt.Sprintf("user%d", n),
		Title: fmt.Sprintf("Question %d", n),
		Href:  fmt.Sprintf("./%d/question-%d", 1000+n, n),
		When:  "Sep 12, 2014",
	}
}

func resultPage(cards ...testCard) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="qa-main"><header class="qa-main-heading"><h1>Recent questions tagged dbms</h1></header>`)
	b.WriteString(`<div class="qa-q-list qa-q-list-vote-disabled">`)
	for _, c := range cards {
		b.WriteString(c.html())
	}
	b.WriteString(`</div></div></body></html>`)
	return b.String()
}

func fullPage(first int) string {
	cards := make([]testCard, 10)
	for i := range cards {
		cards[i] = validCard(first + i)
	}
	return resultPage(cards...)
}

const sentinelPage = `<html><body><div class="qa-main"><header class="qa-main-heading"><h1>
	No results found for 'xyz'
</h1></header></div></body></html>`

const emptyPage = `<html><body><div class="qa-main"><p>Nothing here</p></div></body></html>`
