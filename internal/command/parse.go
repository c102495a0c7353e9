// Package command recognizes the single command the bot answers to.
//
// The grammar is deliberately loose: any post containing "analyze" is a
// candidate, "analyze me" targets the author, otherwise the first @handle
// token names the target. Anything else is not a command, which is a normal
// outcome rather than an error.
package command

import (
	"regexp"
	"strings"

	"github.com/bluesky-social/indigo/atproto/syntax"
)

// DefaultDomain qualifies bare handles ("@bob" -> "bob.bsky.social").
const DefaultDomain = "bsky.social"

const keyword = "analyze"

var handleRe = regexp.MustCompile(`@([A-Za-z0-9.\-]+)`)

// Parse extracts the analysis target from a post's text.
//
// Returns ("", false) when the text is not a command. The returned target is
// always a fully qualified handle; bare local names are given the default
// domain on every path.
func Parse(text, authorHandle string) (string, bool) {
	lower := strings.ToLower(text)

	if !strings.Contains(lower, keyword) {
		return "", false
	}

	// "analyze me" always resolves to the author; no handle extraction.
	if strings.Contains(lower, keyword+" me") {
		return normalize(authorHandle)
	}

	// Match against the raw text; the lower-cased copy is only for keyword
	// detection.
	m := handleRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return normalize(m[1])
}

// normalize qualifies bare handles and rejects anything that is not a valid
// atproto handle after qualification.
func normalize(handle string) (string, bool) {
	h := strings.TrimSpace(strings.TrimPrefix(handle, "@"))
	if h == "" {
		return "", false
	}
	if !strings.Contains(h, ".") {
		h = h + "." + DefaultDomain
	}
	parsed, err := syntax.ParseHandle(h)
	if err != nil {
		return "", false
	}
	return parsed.Normalize().String(), true
}
