package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/jamesprial/go-feedly-api-wrapper/pkg/types"
)

const testUser = "c805fcbf-3acf-4302-a97e-d82f9d7c897f"

func TestIsFeedID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"https feed", "feed/https://go.dev/blog/feed.atom", true},
		{"http feed with query", "feed/http://example.com/rss?x=1", true},
		{"missing prefix", "https://go.dev/blog/feed.atom", false},
		{"empty url", "feed/", false},
		{"relative url", "feed/example.com/rss", false},
		{"other scheme", "feed/ftp://example.com/rss", false},
		{"whitespace", "feed/https://example.com/a b", false},
		{"upper prefix", "FEED/https://example.com/rss", false},
		{"empty string", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFeedID(tt.input); got != tt.want {
				t.Errorf("IsFeedID(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseResourceID(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantUser  string
		wantKind  string
		wantLabel string
		wantOK    bool
	}{
		{"category", "user/" + testUser + "/category/tech", testUser, "category", "tech", true},
		{"tag", "user/u1/tag/global.saved", "u1", "tag", "global.saved", true},
		{"label with slash", "user/u1/category/a/b", "u1", "category", "a/b", true},
		{"label with space", "user/u1/tag/read later", "u1", "tag", "read later", true},
		{"unknown kind", "user/u1/board/x", "", "", "", false},
		{"missing label", "user/u1/category/", "", "", "", false},
		{"missing user", "user//category/tech", "", "", "", false},
		{"feed id", "feed/https://example.com/rss", "", "", "", false},
		{"empty string", "", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, kind, label, ok := ParseResourceID(tt.input)
			if ok != tt.wantOK || user != tt.wantUser || kind != tt.wantKind || label != tt.wantLabel {
				t.Errorf("ParseResourceID(%q) = (%q, %q, %q, %v), want (%q, %q, %q, %v)",
					tt.input, user, kind, label, ok, tt.wantUser, tt.wantKind, tt.wantLabel, tt.wantOK)
			}
		})
	}
}

func TestIsGlobalResourceID(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"user/u1/tag/global.saved", true},
		{"user/u1/category/global.uncategorized", true},
		{"user/u1/category/global.all", true},
		{"user/u1/category/globalnews", false},
		{"user/u1/category/tech", false},
		{"user/u1/tag/global.", false},
	}

	for _, tt := range tests {
		if got := IsGlobalResourceID(tt.input); got != tt.want {
			t.Errorf("IsGlobalResourceID(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestIsStreamID(t *testing.T) {
	for _, s := range []string{"feed/https://example.com/rss", "user/u1/category/tech", "user/u1/tag/global.read"} {
		if !IsStreamID(s) {
			t.Errorf("IsStreamID(%q) = false", s)
		}
	}
	for _, s := range []string{"", "saved", "category:tech", "user/u1", "feed/"} {
		if IsStreamID(s) {
			t.Errorf("IsStreamID(%q) = true", s)
		}
	}
}

func TestValidateTimestamp(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		m       types.Millis
		wantErr bool
	}{
		{"absent", 0, false},
		{"past", types.Millis(now.Add(-time.Hour).UnixMilli()), false},
		{"slight skew", types.Millis(now.Add(time.Hour).UnixMilli()), false},
		{"far future", types.Millis(now.Add(48 * time.Hour).UnixMilli()), true},
		{"negative", -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTimestamp("Published", tt.m, now)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTimestamp() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func validEntry() *types.Entry {
	return &types.Entry{
		ID:        "entry-1",
		Title:     "Hello",
		Published: types.Millis(time.Now().Add(-time.Hour).UnixMilli()),
		Tags:      []types.Tag{{ID: "user/u1/tag/global.saved"}},
		Alternate: []types.Link{{Href: "https://example.com/hello", Type: "text/html"}},
		Origin:    &types.Origin{StreamID: "feed/https://example.com/rss", Title: "Example"},
	}
}

func TestValidateEntry(t *testing.T) {
	tests := []struct {
		name    string
		entry   func() *types.Entry
		wantErr string
	}{
		{name: "valid", entry: validEntry},
		{name: "nil", entry: func() *types.Entry { return nil }, wantErr: "nil"},
		{
			name:    "missing id",
			entry:   func() *types.Entry { e := validEntry(); e.ID = " "; return e },
			wantErr: "ID is required",
		},
		{
			name:    "relative alternate",
			entry:   func() *types.Entry { e := validEntry(); e.Alternate[0].Href = "/hello"; return e },
			wantErr: "Alternate[0]",
		},
		{
			name:    "tag without id",
			entry:   func() *types.Entry { e := validEntry(); e.Tags = append(e.Tags, types.Tag{Label: "x"}); return e },
			wantErr: "Tags[1]",
		},
		{
			name:    "bad origin",
			entry:   func() *types.Entry { e := validEntry(); e.Origin.StreamID = "somewhere"; return e },
			wantErr: "Origin.StreamID",
		},
		{
			name: "several problems",
			entry: func() *types.Entry {
				e := validEntry()
				e.ID = ""
				e.Crawled = -5
				return e
			},
			wantErr: "ID is required; Crawled is negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEntry(tt.entry())
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ValidateEntry() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSubscription(t *testing.T) {
	valid := &types.Subscription{
		ID:         "feed/https://go.dev/blog/feed.atom",
		Title:      "The Go Blog",
		Website:    "https://go.dev/blog",
		Categories: []types.Category{{ID: "user/u1/category/tech", Label: "tech"}},
	}
	if err := ValidateSubscription(valid); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := *valid
	bad.ID = "https://go.dev/blog/feed.atom"
	bad.Subscribers = -1
	bad.Categories = []types.Category{{ID: "user/u1/tag/tech"}}
	err := ValidateSubscription(&bad)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"ID is not a feed id", "Subscribers is negative", "Categories[0]"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}

	if err := ValidateSubscription(nil); err == nil {
		t.Error("expected error for nil subscription")
	}
}

func TestValidateStreamPage(t *testing.T) {
	a, b := validEntry(), validEntry()
	b.ID = "entry-2"

	if err := ValidateStreamPage(&types.StreamPage{Items: []*types.Entry{a, b}}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateStreamPage(&types.StreamPage{}); err != nil {
		t.Errorf("empty page: unexpected error: %v", err)
	}

	err := ValidateStreamPage(&types.StreamPage{Items: []*types.Entry{a, b, a}})
	if err == nil || !strings.Contains(err.Error(), "Items[2] repeats entry entry-1 from Items[0]") {
		t.Errorf("expected duplicate error, got %v", err)
	}

	err = ValidateStreamPage(&types.StreamPage{Items: []*types.Entry{a, nil}})
	if err == nil || !strings.Contains(err.Error(), "Items[1]") {
		t.Errorf("expected nil entry error, got %v", err)
	}

	if err := ValidateStreamPage(nil); err == nil {
		t.Error("expected error for nil page")
	}
}

func TestValidateUnreadCounts(t *testing.T) {
	tech := types.CategoryKey{ID: "user/u1/category/tech", Label: "tech"}
	news := types.CategoryKey{ID: "user/u1/category/news", Label: "news"}

	good := types.UnreadCounts{
		tech: {Total: 8, Feeds: []types.FeedCount{{FeedID: "feed/a", Count: 3}, {FeedID: "feed/c", Count: 5}}},
		news: {Total: 5, Feeds: []types.FeedCount{{FeedID: "feed/c", Count: 5}}},
	}
	if err := ValidateUnreadCounts(good); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	bad := types.UnreadCounts{
		tech: {Total: 9, Feeds: []types.FeedCount{{FeedID: "feed/a", Count: 3}, {FeedID: "feed/c", Count: 5}}},
		news: {Total: -1, Feeds: []types.FeedCount{{FeedID: "feed/c", Count: -1}}},
	}
	err := ValidateUnreadCounts(bad)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"total 9 != sum of feeds 8", "negative count -1"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}
