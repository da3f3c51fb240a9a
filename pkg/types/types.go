package types

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"
)

// Credential identifies a Feedly user and the tokens that authorize calls on
// their behalf. UserID and RefreshToken are fixed for the lifetime of a
// client; AccessToken is replaced wholesale whenever the client renews it.
type Credential struct {
	UserID       string
	RefreshToken string
	AccessToken  string
}

// Response is the raw outcome of a low-level API call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// IsJSON reports whether the body is a well-formed JSON document.
func (r *Response) IsJSON() bool {
	return len(bytes.TrimSpace(r.Body)) > 0 && json.Valid(r.Body)
}

// Text returns the body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// Value returns the decoded JSON document, or the raw text when the body is
// not valid JSON (plain-text error pages, empty marker responses).
func (r *Response) Value() any {
	if !r.IsJSON() {
		return r.Text()
	}
	var v any
	if err := json.Unmarshal(r.Body, &v); err != nil {
		return r.Text()
	}
	return v
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v any) error {
	if !r.IsJSON() {
		return fmt.Errorf("response body is not JSON: %q", truncate(r.Text(), 120))
	}
	return json.Unmarshal(r.Body, v)
}

// Millis is a Feedly timestamp expressed in milliseconds since the epoch.
type Millis int64

// UnmarshalJSON accepts integers, floats and null. Some feeds report
// fractional milliseconds and the service passes them through unchanged.
func (m *Millis) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == "" {
		*m = 0
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("unrecognized timestamp value: %s", s)
	}
	*m = Millis(f)
	return nil
}

// Time converts the timestamp to a time.Time. A zero value yields the zero time.
func (m Millis) Time() time.Time {
	if m == 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(m))
}

// Category is a user-defined folder grouping subscriptions.
type Category struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Subscription is a feed the user follows, as returned by /subscriptions.
type Subscription struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Website     string     `json:"website,omitempty"`
	Categories  []Category `json:"categories"`
	Updated     Millis     `json:"updated,omitempty"`
	Subscribers int        `json:"subscribers,omitempty"`
}

// FeedURL strips the "feed/" prefix from the subscription id.
func (s *Subscription) FeedURL() string {
	return strings.TrimPrefix(s.ID, "feed/")
}

// Profile holds the authenticated user's account details.
type Profile struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
	FullName   string `json:"fullName"`
	Locale     string `json:"locale"`
	Client     string `json:"client"`
}

// UnreadCount is one row of /markers/counts.
type UnreadCount struct {
	ID      string `json:"id"`
	Count   int    `json:"count"`
	Updated Millis `json:"updated"`
}

// UnreadCountsResponse is the envelope of /markers/counts.
type UnreadCountsResponse struct {
	Max          int           `json:"max"`
	UnreadCounts []UnreadCount `json:"unreadcounts"`
}

// CategoryKey identifies a category in an unread-count aggregate.
type CategoryKey struct {
	ID    string
	Label string
}

// FeedCount is one feed's contribution to a category aggregate.
type FeedCount struct {
	FeedID string
	Title  string
	Count  int
}

// CategoryAggregate totals the unread counts of a category's feeds.
// Total always equals the sum of Feeds[i].Count.
type CategoryAggregate struct {
	Total int
	Feeds []FeedCount
}

// UnreadCounts maps each category to its aggregate. A feed that sits in
// several categories contributes its full count to each of them.
type UnreadCounts map[CategoryKey]*CategoryAggregate

// Keys returns the categories ordered by label, then id.
func (u UnreadCounts) Keys() []CategoryKey {
	keys := make([]CategoryKey, 0, len(u))
	for k := range u {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b CategoryKey) int {
		if c := cmp.Compare(a.Label, b.Label); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return keys
}

// Tag is a label attached to an entry.
type Tag struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
}

// Content is an HTML fragment with its writing direction.
type Content struct {
	Content   string `json:"content"`
	Direction string `json:"direction,omitempty"`
}

// Origin describes the stream an entry was published on.
type Origin struct {
	StreamID string `json:"streamId,omitempty"`
	Title    string `json:"title"`
	HTMLURL  string `json:"htmlUrl,omitempty"`
}

// Link is an alternate or canonical URL of an entry.
type Link struct {
	Href string `json:"href"`
	Type string `json:"type,omitempty"`
}

// UntitledPlaceholder is shown for entries that carry no title.
const UntitledPlaceholder = "(untitled)"

// Entry is a single article in a stream. Every field is optional on the
// wire; absent fields decode to zero values.
type Entry struct {
	ID         string   `json:"id"`
	Title      string   `json:"title,omitempty"`
	Author     string   `json:"author,omitempty"`
	Content    *Content `json:"content,omitempty"`
	Summary    *Content `json:"summary,omitempty"`
	Tags       []Tag    `json:"tags,omitempty"`
	Published  Millis   `json:"published,omitempty"`
	Crawled    Millis   `json:"crawled,omitempty"`
	Origin     *Origin  `json:"origin,omitempty"`
	Alternate  []Link   `json:"alternate,omitempty"`
	Canonical  []Link   `json:"canonical,omitempty"`
	OriginID   string   `json:"originId,omitempty"`
	Unread     bool     `json:"unread"`
	Engagement int      `json:"engagement,omitempty"`

	// KeepUnread is computed client-side: true iff Tags contains the
	// user's global "saved" tag.
	KeepUnread bool `json:"keepUnread"`
}

// DisplayTitle returns the title or UntitledPlaceholder.
func (e *Entry) DisplayTitle() string {
	if t := strings.TrimSpace(e.Title); t != "" {
		return t
	}
	return UntitledPlaceholder
}

// HTML returns the entry body, preferring full content over the summary.
func (e *Entry) HTML() string {
	if e.Content != nil && e.Content.Content != "" {
		return e.Content.Content
	}
	if e.Summary != nil {
		return e.Summary.Content
	}
	return ""
}

// URL returns the first alternate link, falling back to canonical links and
// then to the origin id when that looks like a URL.
func (e *Entry) URL() string {
	for _, l := range e.Alternate {
		if l.Href != "" {
			return l.Href
		}
	}
	for _, l := range e.Canonical {
		if l.Href != "" {
			return l.Href
		}
	}
	if strings.HasPrefix(e.OriginID, "http://") || strings.HasPrefix(e.OriginID, "https://") {
		return e.OriginID
	}
	return ""
}

// OriginTitle returns the title of the stream the entry came from.
func (e *Entry) OriginTitle() string {
	if e.Origin == nil {
		return ""
	}
	return e.Origin.Title
}

// PublishedTime converts the published timestamp.
func (e *Entry) PublishedTime() time.Time {
	return e.Published.Time()
}

// HasTag reports whether the entry carries the tag with the given id.
func (e *Entry) HasTag(id string) bool {
	for _, t := range e.Tags {
		if t.ID == id {
			return true
		}
	}
	return false
}

// StreamPage is one page of a stream. An empty Continuation marks the last page.
type StreamPage struct {
	ID           string   `json:"id"`
	Title        string   `json:"title,omitempty"`
	Updated      Millis   `json:"updated,omitempty"`
	Items        []*Entry `json:"items"`
	Continuation string   `json:"continuation,omitempty"`
}

// HasMore reports whether another page can be requested.
func (p *StreamPage) HasMore() bool {
	return p.Continuation != ""
}

// StreamRequest describes a /streams/contents call. The zero value of each
// option reproduces the service defaults used by this library: 25 entries,
// unread only, oldest first.
type StreamRequest struct {
	// StreamID is a feed, category or tag id.
	StreamID string

	// Count is the page size. Zero means DefaultStreamCount.
	Count int

	// IncludeRead also returns entries that are already read.
	IncludeRead bool

	// NewestFirst ranks entries newest first instead of oldest first.
	NewestFirst bool

	// Continuation resumes from a previous page's continuation token.
	Continuation string
}

// DefaultStreamCount is the page size used when StreamRequest.Count is zero.
const DefaultStreamCount = 25

// RecentlyReadRequest describes a page of the user's read history.
type RecentlyReadRequest struct {
	Count        int
	Continuation string

	// OldestFirst reverses the default newest-first ordering.
	OldestFirst bool
}

// Marker actions and target types accepted by /markers.
const (
	ActionMarkAsRead = "markAsRead"
	ActionKeepUnread = "keepUnread"

	MarkerEntries    = "entries"
	MarkerFeeds      = "feeds"
	MarkerCategories = "categories"
)

// MarkersRequest is the JSON body posted to /markers. Exactly one of the id
// lists is populated, matching Type.
type MarkersRequest struct {
	Action          string   `json:"action"`
	Type            string   `json:"type"`
	EntryIDs        []string `json:"entryIds,omitempty"`
	FeedIDs         []string `json:"feedIds,omitempty"`
	CategoryIDs     []string `json:"categoryIds,omitempty"`
	LastReadEntryID string   `json:"lastReadEntryId,omitempty"`
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
