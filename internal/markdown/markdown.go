// Package markdown converts post bodies to HTML fragments.
package markdown

import (
	"bytes"
	"log/slog"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer kinds accepted by New.
const (
	KindLegacy     = "legacy"
	KindCommonMark = "goldmark"
)

// Renderer turns a Markdown body into HTML. Implementations must be safe
// for concurrent use.
type Renderer interface {
	Render(markdown string) string
}

// New returns the renderer for kind. Unknown kinds get Legacy.
func New(kind string) Renderer {
	switch kind {
	case KindCommonMark:
		return NewCommonMark()
	default:
		return Legacy{}
	}
}

// Render runs the legacy cascade.
func Render(markdown string) string {
	return Legacy{}.Render(markdown)
}

// CommonMark renders with goldmark (GFM, raw HTML passed through).
type CommonMark struct {
	md goldmark.Markdown
}

// NewCommonMark builds a goldmark-backed renderer.
func NewCommonMark() *CommonMark {
	return &CommonMark{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

// Render converts markdown; on a conversion error the input is returned as is.
func (c *CommonMark) Render(markdown string) string {
	var buf bytes.Buffer
	if err := c.md.Convert([]byte(markdown), &buf); err != nil {
		slog.Warn("markdown: goldmark convert failed", slog.String("error", err.Error()))
		return markdown
	}
	return buf.String()
}
