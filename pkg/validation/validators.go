package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/jamesprial/go-feedly-api-wrapper/pkg/types"
)

// Regular expressions for validating Feedly identifier formats
var (
	// resourceRegex matches user resources: user/{user id}/{category|tag}/{label}
	resourceRegex = regexp.MustCompile(`^user/([^/\s]+)/(category|tag)/(\S.*)$`)

	// globalLabelRegex matches the service-wide labels such as global.saved
	globalLabelRegex = regexp.MustCompile(`^global\.[a-z]+$`)
)

// Timestamps further in the future than this are rejected.
const clockSkew = 24 * time.Hour

// IsFeedID checks if a string is a feed id: "feed/" followed by an absolute
// http or https URL.
func IsFeedID(s string) bool {
	raw, ok := strings.CutPrefix(s, "feed/")
	if !ok || raw == "" || strings.ContainsAny(raw, " \t\r\n") {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ParseResourceID splits a user resource id into its user id, kind and label.
func ParseResourceID(s string) (userID, kind, label string, ok bool) {
	m := resourceRegex.FindStringSubmatch(s)
	if m == nil {
		return "", "", "", false
	}
	return m[1], m[2], m[3], true
}

// IsResourceID checks if a string is a user category or tag id
func IsResourceID(s string) bool {
	_, _, _, ok := ParseResourceID(s)
	return ok
}

// IsGlobalResourceID checks if a string names a global category or tag such
// as user/{id}/tag/global.saved
func IsGlobalResourceID(s string) bool {
	_, _, label, ok := ParseResourceID(s)
	return ok && globalLabelRegex.MatchString(label)
}

// IsStreamID checks if a string can be passed as a stream id
func IsStreamID(s string) bool {
	return IsFeedID(s) || IsResourceID(s)
}

// ValidateTimestamp rejects negative timestamps and ones implausibly far in
// the future. Zero means absent and is accepted.
func ValidateTimestamp(field string, m types.Millis, now time.Time) error {
	if m < 0 {
		return fmt.Errorf("%s is negative: %d", field, m)
	}
	if m > 0 && m.Time().After(now.Add(clockSkew)) {
		return fmt.Errorf("%s is in the future: %s", field, m.Time().UTC().Format(time.RFC3339))
	}
	return nil
}

// ValidateEntry validates an Entry's fields
func ValidateEntry(e *types.Entry) error {
	if e == nil {
		return fmt.Errorf("entry is nil")
	}

	var errs []error
	now := time.Now()

	if strings.TrimSpace(e.ID) == "" {
		errs = append(errs, fmt.Errorf("ID is required"))
	}
	if err := ValidateTimestamp("Published", e.Published, now); err != nil {
		errs = append(errs, err)
	}
	if err := ValidateTimestamp("Crawled", e.Crawled, now); err != nil {
		errs = append(errs, err)
	}

	for i, tag := range e.Tags {
		if tag.ID == "" {
			errs = append(errs, fmt.Errorf("Tags[%d] has no id", i))
		}
	}

	// Validate links
	for i, link := range e.Alternate {
		if !isAbsoluteURL(link.Href) {
			errs = append(errs, fmt.Errorf("Alternate[%d] is not an absolute URL: %q", i, link.Href))
		}
	}
	for i, link := range e.Canonical {
		if !isAbsoluteURL(link.Href) {
			errs = append(errs, fmt.Errorf("Canonical[%d] is not an absolute URL: %q", i, link.Href))
		}
	}

	if e.Origin != nil && e.Origin.StreamID != "" && !IsStreamID(e.Origin.StreamID) {
		errs = append(errs, fmt.Errorf("Origin.StreamID has invalid format: %s", e.Origin.StreamID))
	}

	if len(errs) > 0 {
		return fmt.Errorf("entry validation failed: %w", joinValidationErrors(errs))
	}
	return nil
}

// ValidateSubscription validates a Subscription's fields
func ValidateSubscription(s *types.Subscription) error {
	if s == nil {
		return fmt.Errorf("subscription is nil")
	}

	var errs []error

	if !IsFeedID(s.ID) {
		errs = append(errs, fmt.Errorf("ID is not a feed id: %q", s.ID))
	}
	if s.Website != "" && !isAbsoluteURL(s.Website) {
		errs = append(errs, fmt.Errorf("Website is not an absolute URL: %q", s.Website))
	}
	if s.Subscribers < 0 {
		errs = append(errs, fmt.Errorf("Subscribers is negative: %d", s.Subscribers))
	}
	if err := ValidateTimestamp("Updated", s.Updated, time.Now()); err != nil {
		errs = append(errs, err)
	}

	// Validate categories
	for i, c := range s.Categories {
		if _, kind, _, ok := ParseResourceID(c.ID); !ok || kind != "category" {
			errs = append(errs, fmt.Errorf("Categories[%d] is not a category id: %q", i, c.ID))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("subscription validation failed: %w", joinValidationErrors(errs))
	}
	return nil
}

// ValidateStreamPage validates every entry of a page and rejects duplicate
// entry ids.
func ValidateStreamPage(p *types.StreamPage) error {
	if p == nil {
		return fmt.Errorf("stream page is nil")
	}

	var errs []error
	seen := make(map[string]int, len(p.Items))
	for i, e := range p.Items {
		if err := ValidateEntry(e); err != nil {
			errs = append(errs, fmt.Errorf("Items[%d]: %w", i, err))
			continue
		}
		if first, dup := seen[e.ID]; dup {
			errs = append(errs, fmt.Errorf("Items[%d] repeats entry %s from Items[%d]", i, e.ID, first))
			continue
		}
		seen[e.ID] = i
	}

	if len(errs) > 0 {
		return fmt.Errorf("stream page validation failed: %w", joinValidationErrors(errs))
	}
	return nil
}

// ValidateUnreadCounts checks that every category total equals the sum of
// its feeds and that no count is negative.
func ValidateUnreadCounts(counts types.UnreadCounts) error {
	var errs []error
	for _, key := range counts.Keys() {
		agg := counts[key]
		if agg == nil {
			errs = append(errs, fmt.Errorf("%s has no aggregate", key.ID))
			continue
		}
		sum := 0
		for _, f := range agg.Feeds {
			if f.Count < 0 {
				errs = append(errs, fmt.Errorf("%s: feed %s has negative count %d", key.ID, f.FeedID, f.Count))
			}
			sum += f.Count
		}
		if sum != agg.Total {
			errs = append(errs, fmt.Errorf("%s: total %d != sum of feeds %d", key.ID, agg.Total, sum))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("unread counts validation failed: %w", joinValidationErrors(errs))
	}
	return nil
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// joinValidationErrors combines multiple errors into a single error message
func joinValidationErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
