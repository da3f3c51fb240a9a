package helpers

import (
	"fmt"
	"strings"
)

// JSONGenerator creates malicious and malformed Feedly payloads for testing
type JSONGenerator struct{}

// NewJSONGenerator creates a new JSON generator
func NewJSONGenerator() *JSONGenerator {
	return &JSONGenerator{}
}

// MalformedStreamPages returns /streams/contents bodies that must be rejected.
func (g *JSONGenerator) MalformedStreamPages() []string {
	return []string{
		// Empty and non-JSON bodies
		``,
		`   `,
		`not json`,
		`<html><body>502 Bad Gateway</body></html>`,

		// Truncated documents
		`{"id":"s","items":[`,
		`{"id":"s","items":[{"id":"e1"`,

		// Wrong top-level shape
		`[]`,
		`"stream"`,

		// Wrong field types
		`{"id":"s","items":{}}`,
		`{"id":"s","items":[1,2,3]}`,
		`{"id":"s","items":[{"id":42}]}`,
		`{"id":"s","items":[{"id":"e1","published":"yesterday"}]}`,
		`{"id":"s","items":[{"id":"e1","tags":"saved"}]}`,
		`{"id":"s","items":[{"id":"e1","unread":"yes"}]}`,
		`{"id":"s","continuation":123}`,
		`{"id":"s","items":[{"id":"e1","alternate":{"href":"x"}}]}`,
	}
}

// OddPage is a well-formed but unusual stream page.
type OddPage struct {
	Body    string
	Entries int
}

// OddStreamPages returns unusual but well-formed pages and the number of
// entries each should yield.
func (g *JSONGenerator) OddStreamPages() []OddPage {
	return []OddPage{
		{Body: `null`},
		{Body: `{}`},
		{Body: `{"id":"s","items":null}`},
		{Body: `{"id":"s","items":[null,{"id":"e1"},null]}`, Entries: 1},
		{Body: `{"id":"s","items":[{"id":"e1","published":1.7e12}]}`, Entries: 1},
		{Body: `{"id":"s","items":[{"id":"e1","published":null,"crawled":null}]}`, Entries: 1},
		{Body: `{"id":"s","items":[{"id":"e1","tags":[null,{"id":"t"}]}]}`, Entries: 1},
		{Body: `{"id":"s","items":[{"id":"e1","unknownField":{"nested":[1,2]}}]}`, Entries: 1},
		{Body: `{"id":"s","items":[{"id":"\u202eevil\u0000","title":"\ud835\udd18nicode"}]}`, Entries: 1},
	}
}

// MalformedUnreadCounts returns /markers/counts bodies that must be rejected.
func (g *JSONGenerator) MalformedUnreadCounts() []string {
	return []string{
		`{"unreadcounts":"lots"}`,
		`{"unreadcounts":[{"id":"feed/a","count":"5"}]}`,
		`{"unreadcounts":[{"id":"feed/a","count":1.5}]}`,
		`{"unreadcounts":[{"id":"feed/a","count":-1}]}`,
		`{"unreadcounts":[{"id":"feed/a","count":1e30}]}`,
		`{"unreadcounts":[`,
		`[1,2,3]`,
	}
}

// MalformedTokenResponses returns 200 token-endpoint bodies that an
// authorization-code exchange must reject.
func (g *JSONGenerator) MalformedTokenResponses() []string {
	return []string{
		``,
		`null`,
		`{}`,
		`not json`,
		`{"id":"u"}`,
		`{"id":"u","refresh_token":"r"}`,
		`{"id":"","refresh_token":"r","access_token":"a"}`,
		`{"id":1,"refresh_token":"r","access_token":"a"}`,
		`{"id":"u","refresh_token":["r"],"access_token":"a"}`,
		`{"id":"u","refresh_token":"r","access_token":null}`,
		`{"id":"u","refresh_token":"r","access_token":"a","expires_in":"soon"}`,
	}
}

// LargeStreamPage builds a page holding n entries, chained to next.
func (g *JSONGenerator) LargeStreamPage(n int, next string) string {
	var b strings.Builder
	b.WriteString(`{"id":"user/u/category/global.all","items":[`)
	for i := range n {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, `{"id":"entry-%d","title":"Entry %d","published":%d,"unread":true}`, i, i, 1700000000000+i)
	}
	b.WriteString(`]`)
	if next != "" {
		fmt.Fprintf(&b, `,"continuation":%q`, next)
	}
	b.WriteString(`}`)
	return b.String()
}

// JSONBomb nests arrays depth levels deep inside the items field.
func (g *JSONGenerator) JSONBomb(depth int) string {
	return `{"id":"s","items":` + strings.Repeat("[", depth) + strings.Repeat("]", depth) + `}`
}

// OversizedToken returns a token-endpoint body with an access token of n bytes.
func (g *JSONGenerator) OversizedToken(n int) string {
	return fmt.Sprintf(`{"access_token":%q,"expires_in":3600}`, strings.Repeat("A", n))
}
