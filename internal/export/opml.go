// Package export converts Feedly subscriptions to and from OPML.
package export

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/gilliek/go-opml/opml"

	"github.com/jamesprial/go-feedly-api-wrapper/pkg/types"
	"github.com/jamesprial/go-feedly-api-wrapper/pkg/validation"
)

const (
	opmlVersion  = "2.0"
	outlineType  = "rss"
	feedIDPrefix = "feed/"
)

// Build groups subscriptions by category label into an OPML document. A feed
// in several categories appears under each of them; feeds with no category
// are written at the top level after the folders.
func Build(title string, subs []*types.Subscription) opml.OPML {
	folders := make(map[string][]opml.Outline)
	var loose []opml.Outline

	for _, sub := range subs {
		if sub == nil {
			continue
		}
		outline := feedOutline(sub)
		if len(sub.Categories) == 0 {
			loose = append(loose, outline)
			continue
		}
		for _, cat := range sub.Categories {
			folders[cat.Label] = append(folders[cat.Label], outline)
		}
	}

	labels := make([]string, 0, len(folders))
	for label := range folders {
		labels = append(labels, label)
	}
	slices.Sort(labels)

	body := make([]opml.Outline, 0, len(labels)+len(loose))
	for _, label := range labels {
		feeds := folders[label]
		sortOutlines(feeds)
		body = append(body, opml.Outline{Text: label, Title: label, Outlines: feeds})
	}
	sortOutlines(loose)
	body = append(body, loose...)

	return opml.OPML{
		Version: opmlVersion,
		Head:    opml.Head{Title: title},
		Body:    opml.Body{Outlines: body},
	}
}

func feedOutline(sub *types.Subscription) opml.Outline {
	text := sub.Title
	if text == "" {
		text = sub.FeedURL()
	}
	return opml.Outline{
		Text:    text,
		Title:   text,
		Type:    outlineType,
		XMLURL:  sub.FeedURL(),
		HTMLURL: sub.Website,
	}
}

func sortOutlines(outlines []opml.Outline) {
	slices.SortFunc(outlines, func(a, b opml.Outline) int {
		if c := cmp.Compare(strings.ToLower(a.Text), strings.ToLower(b.Text)); c != 0 {
			return c
		}
		return cmp.Compare(a.XMLURL, b.XMLURL)
	})
}

// Marshal renders subscriptions as an indented OPML document.
func Marshal(title string, subs []*types.Subscription) (string, error) {
	doc := Build(title, subs)
	out, err := doc.XML()
	if err != nil {
		return "", fmt.Errorf("encode opml: %w", err)
	}
	return out, nil
}

// Parse reads an OPML document into subscriptions ready for Subscribe.
// Folder outlines become categories whose ids are produced by categoryID;
// nested folders are flattened into their innermost label. A feed listed in
// several folders is returned once with every category. Outlines whose
// xmlUrl is not an absolute http(s) URL are skipped.
func Parse(data []byte, categoryID func(label string) string) ([]*types.Subscription, error) {
	doc, err := opml.NewOPML(data)
	if err != nil {
		return nil, fmt.Errorf("decode opml: %w", err)
	}

	var subs []*types.Subscription
	byID := make(map[string]*types.Subscription)

	var walk func(outlines []opml.Outline, folder string)
	walk = func(outlines []opml.Outline, folder string) {
		for _, o := range outlines {
			if o.XMLURL == "" {
				label := strings.TrimSpace(cmp.Or(o.Text, o.Title))
				walk(o.Outlines, label)
				continue
			}

			id := feedIDPrefix + strings.TrimSpace(o.XMLURL)
			if !validation.IsFeedID(id) {
				continue
			}
			sub, ok := byID[id]
			if !ok {
				sub = &types.Subscription{
					ID:      id,
					Title:   strings.TrimSpace(cmp.Or(o.Title, o.Text)),
					Website: o.HTMLURL,
				}
				byID[id] = sub
				subs = append(subs, sub)
			}
			if folder != "" && !hasCategory(sub, folder) {
				sub.Categories = append(sub.Categories, types.Category{ID: categoryID(folder), Label: folder})
			}
		}
	}
	walk(doc.Body.Outlines, "")

	return subs, nil
}

func hasCategory(sub *types.Subscription, label string) bool {
	for _, c := range sub.Categories {
		if c.Label == label {
			return true
		}
	}
	return false
}
