package markdown

import (
	"regexp"
	"strings"
)

// lineChar matches any character that does not end a line.
const lineChar = `[^\n\r\x{2028}\x{2029}]`

type substitution struct {
	re   *regexp.Regexp
	repl string
}

func sub(pattern, repl string) substitution {
	return substitution{re: regexp.MustCompile(pattern), repl: repl}
}

// blockPasses run before the list wrap, in this exact order. Later passes
// see the output of earlier ones.
var blockPasses = []substitution{
	sub(`(?im)^### (`+lineChar+`*)`, `<h3>${1}</h3>`),
	sub(`(?im)^## (`+lineChar+`*)`, `<h2>${1}</h2>`),
	sub(`(?im)^# (`+lineChar+`*)`, `<h1>${1}</h1>`),

	sub(`\*\*\*(`+lineChar+`*?)\*\*\*`, `<strong><em>${1}</em></strong>`),
	sub(`\*\*(`+lineChar+`*?)\*\*`, `<strong>${1}</strong>`),
	sub(`\*(`+lineChar+`*?)\*`, `<em>${1}</em>`),

	sub(`!\[(`+lineChar+`*?)\]\((`+lineChar+`*?)\)`, `<img src="${2}" alt="${1}" />`),
	sub(`\[(`+lineChar+`*?)\]\((`+lineChar+`*?)\)`, `<a href="${2}">${1}</a>`),

	sub("(?s)```(.*?)```", `<pre><code>${1}</code></pre>`),
	sub("`("+lineChar+"*?)`", `<code>${1}</code>`),

	sub(`(?im)^> (`+lineChar+`*)`, `<blockquote>${1}</blockquote>`),

	sub(`(?im)^\* (`+lineChar+`*)`, `<li>${1}</li>`),
	sub(`(?im)^\d+\. (`+lineChar+`*)`, `<li>${1}</li>`),
}

// listRunRe matches one run of line-adjacent list items.
var listRunRe = regexp.MustCompile(`<li>` + lineChar + `*</li>(?:\r?\n<li>` + lineChar + `*</li>)*`)

// cleanupPasses strip the paragraph tags left around block elements.
var cleanupPasses = []substitution{
	sub(`<p><h`, `<h`),
	sub(`</h(\d)></p>`, `</h${1}>`),
	sub(`<p><ul>`, `<ul>`),
	sub(`</ul></p>`, `</ul>`),
	sub(`<p><pre>`, `<pre>`),
	sub(`</pre></p>`, `</pre>`),
	sub(`<p><blockquote>`, `<blockquote>`),
	sub(`</blockquote></p>`, `</blockquote>`),
}

// Legacy is the substitution-cascade renderer. Its output is pinned,
// including its quirks: no HTML escaping, only the first run of list items
// is wrapped in <ul>, and re-rendering its own output is not a no-op.
type Legacy struct{}

// Render converts markdown to an HTML fragment. It never fails.
func (Legacy) Render(markdown string) string {
	html := markdown
	for _, p := range blockPasses {
		html = p.re.ReplaceAllString(html, p.repl)
	}

	html = wrapFirstList(html)

	html = "<p>" + strings.ReplaceAll(html, "\n\n", "</p><p>") + "</p>"

	for _, p := range cleanupPasses {
		html = p.re.ReplaceAllString(html, p.repl)
	}
	return html
}

func wrapFirstList(html string) string {
	loc := listRunRe.FindStringIndex(html)
	if loc == nil {
		return html
	}
	return html[:loc[0]] + "<ul>" + html[loc[0]:loc[1]] + "</ul>" + html[loc[1]:]
}
