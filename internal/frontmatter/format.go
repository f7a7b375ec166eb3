package frontmatter

import (
	"strings"
)

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// Format writes meta as a "---" delimited header followed by a blank line
// and body. Keys are written in the given order; keys missing from meta get
// an empty value. Line breaks inside values are flattened to spaces so the
// result always parses back.
func Format(meta Metadata, keys []string, body string) string {
	var b strings.Builder
	b.WriteString("---\n")
	for _, key := range keys {
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(formatValue(key, meta[key]))
		b.WriteByte('\n')
	}
	b.WriteString("---\n\n")
	b.WriteString(body)
	return b.String()
}

func formatValue(key string, v any) string {
	switch val := v.(type) {
	case string:
		return lineBreaks.Replace(val)
	case []string:
		tags := make([]string, len(val))
		for i, t := range val {
			tags[i] = lineBreaks.Replace(t)
		}
		return "[" + strings.Join(tags, ", ") + "]"
	case nil:
		if key == TagsKey {
			return "[]"
		}
		return ""
	default:
		return ""
	}
}
