// Package web serves the public HTML pages, the sitemap and health probes.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tdewolff/minify/v2"
	minhtml "github.com/tdewolff/minify/v2/html"
	minxml "github.com/tdewolff/minify/v2/xml"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/models"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var pageNames = []string{"home", "post", "contact", "notfound"}

// Site describes the blog as a whole.
type Site struct {
	Title   string
	BaseURL string
}

// PostSource is what the pages need from the post service.
type PostSource interface {
	List(ctx context.Context) ([]models.PostMeta, error)
	Get(ctx context.Context, slug string) (*models.Post, error)
	Render(p *models.Post) template.HTML
}

// ThreadSource returns the comment thread of a post.
type ThreadSource interface {
	Thread(ctx context.Context, slug string) ([]models.CommentWithReplies, error)
}

// Handler renders the public site.
type Handler struct {
	site     Site
	posts    PostSource
	comments ThreadSource
	pages    map[string]*template.Template
	min      *minify.M
	logger   *slog.Logger
}

// New parses the embedded templates and builds a Handler.
func New(site Site, posts PostSource, comments ThreadSource, logger *slog.Logger) (*Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	site.BaseURL = strings.TrimRight(site.BaseURL, "/")
	if site.Title == "" {
		site.Title = "Blog"
	}

	funcs := template.FuncMap{"dateOf": dateOf}
	base, err := template.New("layout").Funcs(funcs).ParseFS(templateFS, "templates/layout.tmpl")
	if err != nil {
		return nil, fmt.Errorf("web: parse layout: %w", err)
	}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("web: clone layout: %w", err)
		}
		if pages[name], err = clone.ParseFS(templateFS, "templates/"+name+".tmpl"); err != nil {
			return nil, fmt.Errorf("web: parse %s: %w", name, err)
		}
	}

	m := minify.New()
	m.Add("text/html", &minhtml.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
	})
	m.AddFunc("application/xml", minxml.Minify)

	return &Handler{
		site:     site,
		posts:    posts,
		comments: comments,
		pages:    pages,
		min:      m,
		logger:   logger,
	}, nil
}

// Routes registers the page routes on r. Static paths take precedence over
// the post slug route.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.Home)
	r.Get("/contact", h.Contact)
	r.Get("/sitemap.xml", h.Sitemap)
	r.Get("/{slug}", h.Post)
	r.NotFound(h.NotFound)
}

type pageData struct {
	Site        Site
	Title       string
	Description string
	Keywords    string
	Author      string
	Image       string
	Canonical   string

	Posts    []models.PostMeta
	Post     *models.Post
	Body     template.HTML
	Comments []models.CommentWithReplies
}

func (h *Handler) page(title, path string) pageData {
	d := pageData{Site: h.site, Title: title}
	if h.site.BaseURL != "" {
		d.Canonical = h.site.BaseURL + path
	}
	return d
}

// Home lists every post, newest first.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.List(r.Context())
	if err != nil {
		h.fail(w, r, "list posts", err)
		return
	}
	d := h.page("", "/")
	d.Posts = posts
	h.render(w, http.StatusOK, "home", d)
}

// Post renders a single post with its comment thread.
func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	p, err := h.posts.Get(r.Context(), slug)
	if errors.Is(err, apperr.ErrNotFound) {
		h.NotFound(w, r)
		return
	}
	if err != nil {
		h.fail(w, r, "get post", err)
		return
	}

	thread, err := h.comments.Thread(r.Context(), p.Slug)
	if err != nil {
		h.logger.Warn("web: load comments failed",
			slog.String("slug", p.Slug),
			slog.String("error", err.Error()))
	}

	d := h.page(p.Title, "/"+p.Slug)
	d.Description = p.Description
	d.Keywords = p.Keywords
	d.Author = p.Author
	d.Image = p.ImageURL
	d.Post = p
	d.Body = h.posts.Render(p)
	d.Comments = thread
	h.render(w, http.StatusOK, "post", d)
}

// Contact renders the contact form.
func (h *Handler) Contact(w http.ResponseWriter, _ *http.Request) {
	h.render(w, http.StatusOK, "contact", h.page("Contact", "/contact"))
}

// NotFound renders the 404 page.
func (h *Handler) NotFound(w http.ResponseWriter, _ *http.Request) {
	h.render(w, http.StatusNotFound, "notfound", h.page("Not found", ""))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error("web: "+op+" failed",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()))
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

// render executes the page into a buffer and writes it minified. If the
// minifier rejects the markup the original bytes are sent.
func (h *Handler) render(w http.ResponseWriter, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := h.pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		h.logger.Error("web: execute template",
			slog.String("page", name),
			slog.String("error", err.Error()))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.write(w, status, "text/html", "text/html; charset=utf-8", buf.Bytes())
}

func (h *Handler) write(w http.ResponseWriter, status int, mediaType, contentType string, raw []byte) {
	out, err := h.min.Bytes(mediaType, raw)
	if err != nil {
		h.logger.Warn("web: minify failed", slog.String("error", err.Error()))
		out = raw
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(out)
}

// dateOf formats a createdAt value as a calendar date. Values that do not
// parse are shown as given.
func dateOf(createdAt string) string {
	t := (models.PostMeta{CreatedAt: createdAt}).PublishedAt()
	if t.IsZero() {
		return createdAt
	}
	return t.Format("January 2, 2006")
}

// lastModDate is dateOf for the sitemap: an ISO calendar date, empty when
// the timestamp does not parse.
func lastModDate(createdAt string) string {
	t := (models.PostMeta{CreatedAt: createdAt}).PublishedAt()
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.DateOnly)
}
