package test_generators

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/jamesprial/go-feedly-api-wrapper/pkg/types"
)

// SubscriptionGenerator generates subscription lists and matching unread
// counts for testing aggregation.
type SubscriptionGenerator struct {
	rand   *rand.Rand
	userID string
	labels []string
}

// NewSubscriptionGenerator creates a generator whose category ids belong to userID
func NewSubscriptionGenerator(seed int64, userID string) *SubscriptionGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SubscriptionGenerator{
		rand:   rand.New(rand.NewSource(seed)),
		userID: userID,
		labels: []string{"Tech", "News", "Science", "Comics", "Go", "Design"},
	}
}

// Categories returns the first n categories the generator draws from
func (sg *SubscriptionGenerator) Categories(n int) []types.Category {
	n = min(n, len(sg.labels))
	cats := make([]types.Category, n)
	for i := range cats {
		cats[i] = types.Category{
			ID:    fmt.Sprintf("user/%s/category/%s", sg.userID, sg.labels[i]),
			Label: sg.labels[i],
		}
	}
	return cats
}

// GenerateSubscriptions creates count feeds spread over categories. Roughly
// one feed in five is uncategorized and one in four sits in two categories.
func (sg *SubscriptionGenerator) GenerateSubscriptions(count, categories int) []*types.Subscription {
	cats := sg.Categories(categories)
	subs := make([]*types.Subscription, count)

	for i := range subs {
		sub := &types.Subscription{
			ID:          fmt.Sprintf("feed/https://site%d.example.com/feed.xml", i),
			Title:       fmt.Sprintf("Site %d", i),
			Website:     fmt.Sprintf("https://site%d.example.com", i),
			Categories:  []types.Category{},
			Subscribers: sg.rand.Intn(100000),
		}

		if len(cats) > 0 && sg.rand.Intn(5) != 0 {
			first := sg.rand.Intn(len(cats))
			sub.Categories = append(sub.Categories, cats[first])
			if len(cats) > 1 && sg.rand.Intn(4) == 0 {
				second := (first + 1 + sg.rand.Intn(len(cats)-1)) % len(cats)
				sub.Categories = append(sub.Categories, cats[second])
			}
		}
		subs[i] = sub
	}
	return subs
}

// GenerateUnreadCounts returns a count row for every subscription. Feeds with
// nothing unread get a zero row, the way the service reports them.
func (sg *SubscriptionGenerator) GenerateUnreadCounts(subs []*types.Subscription) []types.UnreadCount {
	counts := make([]types.UnreadCount, len(subs))
	for i, sub := range subs {
		n := 0
		if sg.rand.Intn(3) != 0 {
			n = 1 + sg.rand.Intn(250)
		}
		counts[i] = types.UnreadCount{ID: sub.ID, Count: n}
	}
	return counts
}

// ExpectedTotals sums counts per category label the way the aggregate should,
// counting a multi-category feed once per category. Uncategorized feeds are
// summed under uncategorizedLabel. Zero rows never create a category.
func ExpectedTotals(subs []*types.Subscription, counts []types.UnreadCount, uncategorizedLabel string) map[string]int {
	byID := make(map[string]*types.Subscription, len(subs))
	for _, s := range subs {
		byID[s.ID] = s
	}

	totals := make(map[string]int)
	for _, c := range counts {
		sub, ok := byID[c.ID]
		if !ok || c.Count == 0 {
			continue
		}
		if len(sub.Categories) == 0 {
			totals[uncategorizedLabel] += c.Count
			continue
		}
		for _, cat := range sub.Categories {
			totals[cat.Label] += c.Count
		}
	}
	return totals
}
