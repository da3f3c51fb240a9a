package internal

import (
	pkgerrs "github.com/jamesprial/go-feedly-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-feedly-api-wrapper/pkg/types"
)

// IndexSubscriptions keys subscriptions by feed id. A later duplicate
// replaces an earlier one.
func IndexSubscriptions(subs []*types.Subscription) map[string]*types.Subscription {
	index := make(map[string]*types.Subscription, len(subs))
	for _, s := range subs {
		if s == nil {
			continue
		}
		index[s.ID] = s
	}
	return index
}

// AggregateUnreadCounts folds per-feed unread counts into per-category
// totals. Rows that are not feeds or have a zero count are skipped. Feeds
// without categories are filed under uncategorized. A counted feed absent
// from subs yields a ConsistencyError.
func AggregateUnreadCounts(subs map[string]*types.Subscription, counts []types.UnreadCount, uncategorized types.Category) (types.UnreadCounts, error) {
	result := make(types.UnreadCounts)

	for _, row := range counts {
		if !IsFeedID(row.ID) || row.Count == 0 {
			continue
		}

		sub, ok := subs[row.ID]
		if !ok {
			return nil, &pkgerrs.ConsistencyError{
				Operation: "unread counts",
				ID:        row.ID,
				Message:   "counted feed missing from subscriptions",
			}
		}

		categories := sub.Categories
		if len(categories) == 0 {
			categories = []types.Category{uncategorized}
		}

		for _, category := range categories {
			key := types.CategoryKey{ID: category.ID, Label: category.Label}
			agg, ok := result[key]
			if !ok {
				agg = &types.CategoryAggregate{}
				result[key] = agg
			}
			agg.Total += row.Count
			agg.Feeds = append(agg.Feeds, types.FeedCount{
				FeedID: row.ID,
				Title:  sub.Title,
				Count:  row.Count,
			})
		}
	}

	return result, nil
}
