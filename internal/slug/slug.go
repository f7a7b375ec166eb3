// Package slug derives and checks the URL identifiers of posts.
package slug

import (
	"regexp"
	"strings"

	gosimple "github.com/gosimple/slug"
)

var (
	nonWordRe   = regexp.MustCompile(`[^A-Za-z0-9_\s-]`)
	separatorRe = regexp.MustCompile(`[\s_-]+`)
	edgeDashRe  = regexp.MustCompile(`^-+|-+$`)
)

// Make derives a slug from a human-readable title: lower-cased, punctuation
// dropped, whitespace/underscore/hyphen runs collapsed into one hyphen, and
// leading or trailing hyphens trimmed. Non-ASCII letters are dropped.
func Make(title string) string {
	s := strings.TrimSpace(strings.ToLower(title))
	s = nonWordRe.ReplaceAllString(s, "")
	s = separatorRe.ReplaceAllString(s, "-")
	return edgeDashRe.ReplaceAllString(s, "")
}

// Valid reports whether s is safe to use as a post identifier.
func Valid(s string) bool {
	return gosimple.IsSlug(s)
}
