package discover

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mmcdole/gofeed"

	"github.com/jamesprial/go-feedly-api-wrapper/pkg/types"
)

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title> Example News </title>
    <link>https://news.example/</link>
    <description>Daily news</description>
    <item><title>One</title><link>https://news.example/1</link></item>
    <item><title>Two</title><link>https://news.example/2</link></item>
  </channel>
</rss>`

const atomBody = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Blog</title>
  <link href="https://atom.example/" rel="alternate"/>
  <id>urn:uuid:1</id>
  <updated>2024-01-01T00:00:00Z</updated>
</feed>`

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/rss", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "feedly-test" {
			t.Errorf("User-Agent = %q", got)
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssBody)
	})
	mux.HandleFunc("/atom", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, atomBody)
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})
	mux.HandleFunc("/html", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>not a feed</body></html>")
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestDiscover(t *testing.T) {
	t.Parallel()
	server := newFeedServer(t)
	d := New(server.Client(), "feedly-test", nil)

	feed, err := d.Discover(context.Background(), server.URL+"/rss")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if feed.Title != "Example News" || feed.Website != "https://news.example/" || feed.Items != 2 || feed.FeedType != "rss" {
		t.Errorf("unexpected feed %+v", feed)
	}

	cat := types.Category{ID: "user/u/category/news", Label: "News"}
	sub := feed.Subscription(cat)
	if sub.ID != "feed/"+server.URL+"/rss" || sub.Title != "Example News" || len(sub.Categories) != 1 {
		t.Errorf("unexpected subscription %+v", sub)
	}

	atom, err := d.Discover(context.Background(), server.URL+"/atom")
	if err != nil {
		t.Fatalf("atom: %v", err)
	}
	if atom.Title != "Atom Blog" || atom.FeedType != "atom" {
		t.Errorf("unexpected atom feed %+v", atom)
	}
}

func TestDiscover_Errors(t *testing.T) {
	t.Parallel()
	server := newFeedServer(t)
	d := New(server.Client(), "feedly-test", nil)

	if _, err := d.Discover(context.Background(), "not a url"); err == nil {
		t.Error("expected error for relative url")
	}
	if _, err := d.Discover(context.Background(), "ftp://example.com/feed"); err == nil {
		t.Error("expected error for unsupported scheme")
	}

	_, err := d.Discover(context.Background(), server.URL+"/gone")
	var httpErr gofeed.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusGone {
		t.Errorf("expected gofeed.HTTPError 410, got %v", err)
	}

	if _, err := d.Discover(context.Background(), server.URL+"/html"); err == nil {
		t.Error("expected error for a non-feed document")
	}
}

func TestFeed_SubscriptionFallsBackToURL(t *testing.T) {
	t.Parallel()
	sub := (&Feed{URL: "https://x.example/rss"}).Subscription()
	if sub.Title != "https://x.example/rss" || sub.ID != "feed/https://x.example/rss" {
		t.Errorf("unexpected subscription %+v", sub)
	}
}
