package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/rss"

	"github.com/aiox-platform/concierge/internal/providers"
)

// Limit caps the number of headlines returned by a search.
const Limit = 5

// Scope selects the regional edition of the football search.
type Scope string

const (
	ScopeBR     Scope = "br"
	ScopeGlobal Scope = "global"
)

// Headline is one news item.
type Headline struct {
	Title     string `json:"title"`
	Published string `json:"published"`
	Source    string `json:"source,omitempty"`
}

const (
	DefaultFinanceURL  = "https://feeds.finance.yahoo.com/rss/2.0/headline"
	DefaultFootballURL = "https://news.google.com/rss/search"
)

// RSS searches finance headlines on Yahoo Finance and football headlines on
// Google News.
type RSS struct {
	http        *providers.HTTPClient
	financeURL  string
	footballURL string
}

type Option func(*RSS)

// WithBaseURLs overrides the feed endpoints.
func WithBaseURLs(finance, football string) Option {
	return func(r *RSS) {
		if finance != "" {
			r.financeURL = finance
		}
		if football != "" {
			r.footballURL = football
		}
	}
}

func NewRSS(client *providers.HTTPClient, opts ...Option) *RSS {
	r := &RSS{http: client, financeURL: DefaultFinanceURL, footballURL: DefaultFootballURL}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RSS) Finance(ctx context.Context, query string) ([]Headline, error) {
	v := url.Values{}
	v.Set("s", strings.TrimSpace(query))
	v.Set("region", "US")
	v.Set("lang", "en-US")
	return r.fetch(ctx, r.financeURL+"?"+v.Encode())
}

func (r *RSS) Football(ctx context.Context, query string, scope Scope) ([]Headline, error) {
	query = strings.TrimSpace(query)
	v := url.Values{}
	switch scope {
	case ScopeGlobal:
		v.Set("q", query+" football")
		v.Set("hl", "en-US")
		v.Set("gl", "US")
		v.Set("ceid", "US:en")
	default:
		v.Set("q", query+" futebol")
		v.Set("hl", "pt-BR")
		v.Set("gl", "BR")
		v.Set("ceid", "BR:pt-419")
	}
	return r.fetch(ctx, r.footballURL+"?"+v.Encode())
}

// newFeedParser returns a gofeed parser whose RSS items keep their <source>
// element, which Google News uses for the publisher name.
func newFeedParser() *gofeed.Parser {
	p := gofeed.NewParser()
	p.RSSTranslator = &sourceTranslator{}
	return p
}

const sourceKey = "source"

type sourceTranslator struct {
	gofeed.DefaultRSSTranslator
}

func (t *sourceTranslator) Translate(feed interface{}) (*gofeed.Feed, error) {
	out, err := t.DefaultRSSTranslator.Translate(feed)
	if err != nil {
		return nil, err
	}
	raw, ok := feed.(*rss.Feed)
	if !ok || len(raw.Items) != len(out.Items) {
		return out, nil
	}
	for i, item := range raw.Items {
		if item.Source == nil || strings.TrimSpace(item.Source.Title) == "" {
			continue
		}
		if out.Items[i].Custom == nil {
			out.Items[i].Custom = map[string]string{}
		}
		out.Items[i].Custom[sourceKey] = strings.TrimSpace(item.Source.Title)
	}
	return out, nil
}

func (r *RSS) fetch(ctx context.Context, feedURL string) ([]Headline, error) {
	body, err := r.http.Get(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}

	feed, err := newFeedParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("decoding feed: %w", err)
	}

	headlines := make([]Headline, 0, Limit)
	for _, item := range feed.Items {
		if len(headlines) == Limit {
			break
		}
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		h := Headline{
			Title:     title,
			Published: strings.TrimSpace(item.Published),
			Source:    item.Custom[sourceKey],
		}
		if h.Source == "" && item.Author != nil {
			h.Source = strings.TrimSpace(item.Author.Name)
		}
		headlines = append(headlines, h)
	}
	return headlines, nil
}
