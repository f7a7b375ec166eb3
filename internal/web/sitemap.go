package web

import (
	"encoding/xml"
	"net/http"
)

const sitemapCacheControl = "public, s-maxage=3600, stale-while-revalidate=86400"

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

var staticPages = []sitemapURL{
	{Loc: "", ChangeFreq: "daily", Priority: "1.0"},
	{Loc: "/contact", ChangeFreq: "monthly", Priority: "0.7"},
}

// Sitemap handles GET /sitemap.xml: the static pages followed by every post.
func (h *Handler) Sitemap(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.List(r.Context())
	if err != nil {
		h.fail(w, r, "list posts for sitemap", err)
		return
	}

	set := urlSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  make([]sitemapURL, 0, len(staticPages)+len(posts)),
	}
	for _, p := range staticPages {
		p.Loc = h.site.BaseURL + p.Loc
		set.URLs = append(set.URLs, p)
	}
	for _, p := range posts {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        h.site.BaseURL + "/" + p.Slug,
			LastMod:    lastModDate(p.CreatedAt),
			ChangeFreq: "weekly",
			Priority:   "0.8",
		})
	}

	body, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		h.fail(w, r, "encode sitemap", err)
		return
	}
	w.Header().Set("Cache-Control", sitemapCacheControl)
	h.write(w, http.StatusOK, "application/xml", "application/xml; charset=utf-8",
		append([]byte(xml.Header), body...))
}
