// Package render turns Feedly entry HTML into terminal-friendly text or
// markdown and pulls the links out of it.
package render

import (
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"mvdan.cc/xurls/v2"

	"github.com/jamesprial/go-feedly-api-wrapper/pkg/types"
)

// Format selects how an entry body is rendered.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatMarkdown:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unknown format %q (want text or markdown)", s)
	}
}

const publishedLayout = "2006-01-02 15:04 MST"

// Renderer converts entry HTML. It is not safe for concurrent use.
type Renderer struct {
	converter *md.Converter
}

// New creates a Renderer.
func New() *Renderer {
	return &Renderer{converter: md.NewConverter("", true, nil)}
}

// Text strips markup and returns the readable text, one block per line.
func (r *Renderer) Text(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script, style, noscript").Remove()
	doc.Find("br").Each(func(_ int, br *goquery.Selection) {
		br.ReplaceWithHtml("\n")
	})
	doc.Find("p, div, li, blockquote, pre, h1, h2, h3, h4, h5, h6, tr").Each(func(_ int, block *goquery.Selection) {
		block.AppendHtml("\n")
	})

	return normalizeLines(doc.Text()), nil
}

func normalizeLines(s string) string {
	var b strings.Builder
	for line := range strings.SplitSeq(s, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.Join(fields, " "))
	}
	return b.String()
}

// Markdown converts the HTML to markdown.
func (r *Renderer) Markdown(html string) (string, error) {
	out, err := r.converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("convert to markdown: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Links returns the absolute http(s) links found in anchors and in the
// visible text, in document order and without duplicates.
func (r *Renderer) Links(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var links []string
	seen := make(map[string]struct{})
	add := func(u string) {
		u = strings.TrimSpace(u)
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return
		}
		if _, ok := seen[u]; ok {
			return
		}
		seen[u] = struct{}{}
		links = append(links, u)
	}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		add(a.AttrOr("href", ""))
	})
	for _, u := range xurls.Strict().FindAllString(doc.Text(), -1) {
		add(u)
	}
	return links, nil
}

// Entry renders a header (title, origin, date, link) followed by the body in
// the requested format.
func (r *Renderer) Entry(e *types.Entry, format Format) (string, error) {
	var b strings.Builder
	b.WriteString(e.DisplayTitle())
	b.WriteByte('\n')

	var meta []string
	if origin := e.OriginTitle(); origin != "" {
		meta = append(meta, origin)
	}
	if e.Author != "" {
		meta = append(meta, e.Author)
	}
	if e.Published != 0 {
		meta = append(meta, e.PublishedTime().UTC().Format(publishedLayout))
	}
	if e.KeepUnread {
		meta = append(meta, "saved")
	}
	if len(meta) > 0 {
		b.WriteString(strings.Join(meta, " | "))
		b.WriteByte('\n')
	}
	if u := e.URL(); u != "" {
		b.WriteString(u)
		b.WriteByte('\n')
	}

	html := e.HTML()
	if strings.TrimSpace(html) == "" {
		return strings.TrimRight(b.String(), "\n"), nil
	}

	var (
		body string
		err  error
	)
	switch format {
	case FormatMarkdown:
		body, err = r.Markdown(html)
	default:
		body, err = r.Text(html)
	}
	if err != nil {
		return "", err
	}

	b.WriteByte('\n')
	b.WriteString(body)
	return b.String(), nil
}
