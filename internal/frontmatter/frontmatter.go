// Package frontmatter splits post documents into a key/value header and a
// Markdown body, and writes them back in the same format.
package frontmatter

import (
	"regexp"
	"strings"
)

// TagsKey is the only key whose value is a list.
const TagsKey = "tags"

// documentRe matches a header block delimited by "---" lines at the very
// start of the text. The block must be followed by a newline after the
// closing delimiter; the first closing delimiter wins.
var documentRe = regexp.MustCompile(`(?s)\A---\n(.*?)\n---\n(.*)\z`)

// Metadata holds header values. Every value is a string except the "tags"
// key, which is a []string.
type Metadata map[string]any

// String returns the string value for key, or "" when absent or not a string.
func (m Metadata) String(key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// Tags returns the tag list, or nil when no tags key was present.
func (m Metadata) Tags() []string {
	if t, ok := m[TagsKey].([]string); ok {
		return t
	}
	return nil
}

// Document is the result of parsing one raw text blob.
type Document struct {
	Metadata Metadata
	Body     string
}

// Parse splits raw into metadata and body. It never fails.
//
// Without a recognised header the metadata is empty and the body is the raw
// input, untrimmed. With a header the body is trimmed.
func Parse(raw string) Document {
	m := documentRe.FindStringSubmatch(raw)
	if m == nil {
		return Document{Metadata: Metadata{}, Body: raw}
	}

	meta := Metadata{}
	for _, line := range strings.Split(m[1], "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok || key == "" {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == TagsKey {
			meta[key] = splitTags(value)
			continue
		}
		meta[key] = value
	}

	return Document{
		Metadata: meta,
		Body:     strings.TrimSpace(m[2]),
	}
}

// splitTags turns "[a, b]" (brackets optional) into ["a", "b"].
// An empty value yields an empty list.
func splitTags(value string) []string {
	value = strings.NewReplacer("[", "", "]", "").Replace(value)
	if strings.TrimSpace(value) == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}
