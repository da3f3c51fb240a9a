package internal

import (
	"fmt"

	pkgerrs "github.com/jamesprial/go-feedly-api-wrapper/pkg/errors"
	"github.com/jamesprial/go-feedly-api-wrapper/pkg/types"
)

// Parser decodes Feedly API responses into typed structures.
type Parser struct{}

// NewParser creates a new parser instance
func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) decode(op string, resp *types.Response, v any) error {
	if resp == nil {
		return &pkgerrs.ParseError{Operation: op, Message: "response is nil"}
	}
	if err := resp.Decode(v); err != nil {
		return &pkgerrs.ParseError{Operation: op, Err: err}
	}
	return nil
}

// ParseSubscriptions decodes the /subscriptions array.
func (p *Parser) ParseSubscriptions(resp *types.Response) ([]*types.Subscription, error) {
	var subs []*types.Subscription
	if err := p.decode("subscriptions", resp, &subs); err != nil {
		return nil, err
	}

	result := subs[:0]
	for _, s := range subs {
		if s == nil {
			continue
		}
		if s.ID == "" {
			return nil, &pkgerrs.ParseError{Operation: "subscriptions", Message: "subscription without id"}
		}
		result = append(result, s)
	}
	return result, nil
}

// ParseCategories decodes the /categories array.
func (p *Parser) ParseCategories(resp *types.Response) ([]types.Category, error) {
	var categories []types.Category
	if err := p.decode("categories", resp, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// ParseProfile decodes /profile.
func (p *Parser) ParseProfile(resp *types.Response) (*types.Profile, error) {
	var profile types.Profile
	if err := p.decode("profile", resp, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ParseUnreadCounts decodes the /markers/counts envelope.
func (p *Parser) ParseUnreadCounts(resp *types.Response) ([]types.UnreadCount, error) {
	var envelope types.UnreadCountsResponse
	if err := p.decode("unread counts", resp, &envelope); err != nil {
		return nil, err
	}
	for i, c := range envelope.UnreadCounts {
		if c.Count < 0 {
			return nil, &pkgerrs.ParseError{
				Operation: "unread counts",
				Message:   fmt.Sprintf("negative count %d for %s at index %d", c.Count, c.ID, i),
			}
		}
	}
	return envelope.UnreadCounts, nil
}

// ParseStreamPage decodes a /streams/contents page and sets KeepUnread on
// every entry tagged with savedTagID. Null items are dropped.
func (p *Parser) ParseStreamPage(resp *types.Response, savedTagID string) (*types.StreamPage, error) {
	var page types.StreamPage
	if err := p.decode("stream contents", resp, &page); err != nil {
		return nil, err
	}

	items := make([]*types.Entry, 0, len(page.Items))
	for _, entry := range page.Items {
		if entry == nil {
			continue
		}
		entry.KeepUnread = entry.HasTag(savedTagID)
		items = append(items, entry)
	}
	page.Items = items

	return &page, nil
}
