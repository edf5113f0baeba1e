// Package links turns the optional links document into preview cards.
package links

import (
	"regexp"
	"strings"
)

// DefaultDocument is the links document read next to the metadata document.
const DefaultDocument = "links.md"

var urlPattern = regexp.MustCompile(`https?://[^\s<>"'\x60]+`)

// Extract returns the http(s) URLs in text in first-seen order, without
// duplicates. Trailing punctuation and unbalanced closing brackets are
// trimmed so markdown like "[x](https://a.b/c)." yields https://a.b/c.
func Extract(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range urlPattern.FindAllString(text, -1) {
		u := trimURL(m)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

func trimURL(u string) string {
	for len(u) > 0 {
		last := u[len(u)-1]
		switch {
		case strings.IndexByte(".,;:!?*_~", last) >= 0:
			u = u[:len(u)-1]
		case last == ')' && strings.Count(u, "(") < strings.Count(u, ")"):
			u = u[:len(u)-1]
		case last == ']' && strings.Count(u, "[") < strings.Count(u, "]"):
			u = u[:len(u)-1]
		default:
			if strings.HasSuffix(u, "://") {
				return ""
			}
			return u
		}
	}
	return u
}
