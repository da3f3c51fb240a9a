package helpers

import (
	"math/rand"
	"strings"
)

// Fuzzer produces hostile identifiers and strings
type Fuzzer struct {
	rnd *rand.Rand
}

// NewFuzzer creates a fuzzer with a fixed seed so failures reproduce
func NewFuzzer(seed int64) *Fuzzer {
	return &Fuzzer{rnd: rand.New(rand.NewSource(seed))}
}

// HostileIDs returns non-blank ids that try to escape their path segment or
// confuse the query string. They must reach the service byte for byte.
func (f *Fuzzer) HostileIDs() []string {
	ids := []string{
		"../../auth/token",
		"..%2F..%2Fprofile",
		"feed/http://example.com/rss?x=1&y=2#frag",
		"id with spaces",
		"semi;colon",
		"comma,separated",
		"percent%41",
		"plus+sign",
		"back\\slash",
		"quote\"and'apostrophe",
		"<script>alert(1)</script>",
		"' OR '1'='1",
		"🚀emoji🚀",
		"\u202eright-to-left",
		"tab\tand\nnewline",
		strings.Repeat("a", 4096),
	}
	for range 8 {
		ids = append(ids, f.RandomString(24))
	}
	return ids
}

// BlankIDs returns ids that must be rejected before any request is sent.
func (f *Fuzzer) BlankIDs() []string {
	return []string{"", " ", "\t", "\n", " \t\r\n "}
}

// UserAgents returns user agents that are unsafe to send.
func (f *Fuzzer) UserAgents() []string {
	return []string{
		"agent\r\nX-Injected: 1",
		"agent\nsecond-line",
		strings.Repeat("u", 1024),
	}
}

// CodeInjection pairs a redirect URL with the code that must be extracted.
type CodeInjection struct {
	Input string
	Code  string
}

// CodeInjections returns redirect URLs whose code must be cut at the first
// character outside the code alphabet.
func (f *Fuzzer) CodeInjections() []CodeInjection {
	return []CodeInjection{
		{Input: "http://localhost/?code=abc&code=def", Code: "abc"},
		{Input: "http://localhost/?code=abc%26grant_type%3Dpassword", Code: "abc"},
		{Input: "http://localhost/?code=abc;rm -rf /", Code: "abc"},
		{Input: "http://localhost/?code=abc<script>", Code: "abc"},
		{Input: "http://localhost/?code=abc'--", Code: "abc"},
		{Input: "http://localhost/?state=x&code=A-_9z&other=1", Code: "A-_9z"},
	}
}

// RandomString returns printable ASCII noise including URL metacharacters.
func (f *Fuzzer) RandomString(length int) string {
	const alphabet = "abcXYZ019-_./?#&=%+ :;,@!$'()*[]{}|\\^`~\""
	b := make([]byte, length)
	for i := range b {
		b[i] = alphabet[f.rnd.Intn(len(alphabet))]
	}
	return string(b)
}
