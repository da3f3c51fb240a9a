// Package discover fetches a feed URL to learn its title and home page
// before subscribing to it.
package discover

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/jamesprial/go-feedly-api-wrapper/pkg/types"
)

// Feed is what was learned about a feed URL.
type Feed struct {
	URL         string
	Title       string
	Website     string
	Description string
	FeedType    string
	Items       int
}

// Subscription returns a subscription for this feed, placed in categories.
func (f *Feed) Subscription(categories ...types.Category) *types.Subscription {
	title := f.Title
	if title == "" {
		title = f.URL
	}
	return &types.Subscription{
		ID:         "feed/" + f.URL,
		Title:      title,
		Website:    f.Website,
		Categories: categories,
	}
}

// Discoverer fetches and parses feeds.
type Discoverer struct {
	parser *gofeed.Parser
	log    *slog.Logger
}

// New creates a Discoverer. A nil client uses http.DefaultClient.
func New(client *http.Client, userAgent string, log *slog.Logger) *Discoverer {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = userAgent
	return &Discoverer{parser: parser, log: log}
}

// Discover downloads rawURL and parses it as RSS, Atom or JSON Feed.
func (d *Discoverer) Discover(ctx context.Context, rawURL string) (*Feed, error) {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("feed url %q must be an absolute http(s) URL", rawURL)
	}

	parsed, err := d.parser.ParseURLWithContext(rawURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", rawURL, err)
	}

	feed := &Feed{
		URL:         rawURL,
		Title:       strings.TrimSpace(parsed.Title),
		Website:     strings.TrimSpace(parsed.Link),
		Description: strings.TrimSpace(parsed.Description),
		FeedType:    parsed.FeedType,
		Items:       len(parsed.Items),
	}
	d.log.DebugContext(ctx, "Feed discovered",
		"url", rawURL,
		"title", feed.Title,
		"feedType", feed.FeedType,
		"items", feed.Items)
	return feed, nil
}
