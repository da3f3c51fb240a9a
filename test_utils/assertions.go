package test_utils

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jamesprial/go-feedly-api-wrapper/pkg/types"
	"github.com/jamesprial/go-feedly-api-wrapper/pkg/validation"
)

// AssertValidEntry validates that entry data is well formed
func AssertValidEntry(entry *types.Entry) error {
	return validation.ValidateEntry(entry)
}

// AssertValidStreamPage validates every entry on a page
func AssertValidStreamPage(page *types.StreamPage) error {
	return validation.ValidateStreamPage(page)
}

// AssertValidSubscription validates that subscription data is well formed
func AssertValidSubscription(sub *types.Subscription) error {
	return validation.ValidateSubscription(sub)
}

// AssertEntriesEqual compares the fields of two entries that survive a round
// trip through the API.
func AssertEntriesEqual(expected, actual *types.Entry) error {
	if expected == nil || actual == nil {
		if expected != actual {
			return fmt.Errorf("entry nil mismatch: expected %v, got %v", expected, actual)
		}
		return nil
	}

	if expected.ID != actual.ID {
		return fmt.Errorf("entry ID mismatch: expected %s, got %s", expected.ID, actual.ID)
	}
	if expected.Title != actual.Title {
		return fmt.Errorf("entry title mismatch: expected %s, got %s", expected.Title, actual.Title)
	}
	if expected.Author != actual.Author {
		return fmt.Errorf("entry author mismatch: expected %s, got %s", expected.Author, actual.Author)
	}
	if expected.Published != actual.Published {
		return fmt.Errorf("entry published mismatch: expected %d, got %d", expected.Published, actual.Published)
	}
	if expected.URL() != actual.URL() {
		return fmt.Errorf("entry URL mismatch: expected %s, got %s", expected.URL(), actual.URL())
	}
	if expected.OriginTitle() != actual.OriginTitle() {
		return fmt.Errorf("entry origin mismatch: expected %s, got %s", expected.OriginTitle(), actual.OriginTitle())
	}
	if expected.HTML() != actual.HTML() {
		return fmt.Errorf("entry %s body mismatch", expected.ID)
	}

	return nil
}

// AssertEntryListsEqual compares two entry lists element by element
func AssertEntryListsEqual(expected, actual []*types.Entry) error {
	if len(expected) != len(actual) {
		return fmt.Errorf("entry list length mismatch: expected %d, got %d", len(expected), len(actual))
	}
	for i := range expected {
		if err := AssertEntriesEqual(expected[i], actual[i]); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return nil
}

// AssertEntryOrder validates that entries are sorted by publication time
func AssertEntryOrder(entries []*types.Entry, newestFirst bool) error {
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1].Published, entries[i].Published
		if newestFirst && cur > prev {
			return fmt.Errorf("entry %d (%s) is newer than entry %d", i, entries[i].ID, i-1)
		}
		if !newestFirst && cur < prev {
			return fmt.Errorf("entry %d (%s) is older than entry %d", i, entries[i].ID, i-1)
		}
	}
	return nil
}

// AssertUniqueEntries validates that no entry id appears twice, e.g. across
// page boundaries.
func AssertUniqueEntries(entries []*types.Entry) error {
	seen := make(map[string]int, len(entries))
	for i, e := range entries {
		if first, ok := seen[e.ID]; ok {
			return fmt.Errorf("entry %s appears at %d and %d", e.ID, first, i)
		}
		seen[e.ID] = i
	}
	return nil
}

// AssertUnreadCountsConsistent validates that every category total equals the
// sum of its feeds.
func AssertUnreadCountsConsistent(counts types.UnreadCounts) error {
	return validation.ValidateUnreadCounts(counts)
}

// AssertCategoryTotals compares aggregate totals keyed by category label
func AssertCategoryTotals(counts types.UnreadCounts, expected map[string]int) error {
	actual := make(map[string]int, len(counts))
	for key, agg := range counts {
		actual[key.Label] += agg.Total
	}

	labels := make([]string, 0, len(expected))
	for label := range expected {
		labels = append(labels, label)
	}
	slices.Sort(labels)

	for _, label := range labels {
		if actual[label] != expected[label] {
			return fmt.Errorf("category %s total mismatch: expected %d, got %d", label, expected[label], actual[label])
		}
	}
	if len(actual) != len(expected) {
		return fmt.Errorf("category count mismatch: expected %d, got %d", len(expected), len(actual))
	}
	return nil
}

// AssertStringLists compares string slices ignoring order
func AssertStringLists(expected, actual []string) error {
	if len(expected) != len(actual) {
		return fmt.Errorf("string list length mismatch: expected %d, got %d", len(expected), len(actual))
	}

	e := slices.Clone(expected)
	a := slices.Clone(actual)
	slices.Sort(e)
	slices.Sort(a)
	for i := range e {
		if e[i] != a[i] {
			return fmt.Errorf("string lists differ: expected %q, got %q", e, a)
		}
	}
	return nil
}

// AssertErrorAs validates that err wraps an error of type T
func AssertErrorAs[T error](err error) (T, error) {
	var target T
	if err == nil {
		return target, fmt.Errorf("expected error of type %T, got nil", target)
	}
	if !errors.As(err, &target) {
		return target, fmt.Errorf("expected error of type %T, got %T: %v", target, err, err)
	}
	return target, nil
}

// AssertErrorMessage validates that an error message contains expected text
func AssertErrorMessage(err error, expectedMessage string) error {
	if err == nil {
		return fmt.Errorf("expected error containing message '%s', got nil", expectedMessage)
	}

	if !strings.Contains(strings.ToLower(err.Error()), strings.ToLower(expectedMessage)) {
		return fmt.Errorf("expected error message containing '%s', got '%s'", expectedMessage, err.Error())
	}

	return nil
}
