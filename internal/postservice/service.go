// Package postservice reads, lists, publishes and renders posts kept in a
// content.Provider.
package postservice

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/content"
	"github.com/starford/quill/internal/frontmatter"
	"github.com/starford/quill/internal/markdown"
	"github.com/starford/quill/internal/models"
	"github.com/starford/quill/internal/slug"
)

// CreatedAtLayout is the ISO-8601 form written to and defaulted into
// createdAt.
const CreatedAtLayout = "2006-01-02T15:04:05.000Z07:00"

// Front-matter keys, in the order they are written.
var frontMatterKeys = []string{
	"title", "slug", frontmatter.TagsKey, "imageUrl", "description", "keywords", "author", "createdAt",
}

// Options configures a Service.
type Options struct {
	Renderer  markdown.Renderer
	CacheSize int
	CacheTTL  time.Duration
	Now       func() time.Time
	Logger    *slog.Logger
}

// Service is the post use-case layer.
type Service struct {
	store    content.Provider
	renderer markdown.Renderer
	cache    *expirable.LRU[string, *models.Post]
	now      func() time.Time
	logger   *slog.Logger
}

// New creates a Service. A zero CacheSize disables caching.
func New(store content.Provider, opts Options) *Service {
	s := &Service{
		store:    store,
		renderer: opts.Renderer,
		now:      opts.Now,
		logger:   opts.Logger,
	}
	if s.renderer == nil {
		s.renderer = markdown.Legacy{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if opts.CacheSize > 0 {
		s.cache = expirable.NewLRU[string, *models.Post](opts.CacheSize, nil, opts.CacheTTL)
	}
	return s
}

// Get returns the post stored under slug.
func (s *Service) Get(ctx context.Context, slug string) (*models.Post, error) {
	if s.cache != nil {
		if p, ok := s.cache.Get(slug); ok {
			cp := *p
			return &cp, nil
		}
	}
	f, err := s.store.Read(ctx, slug)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidSlug) {
			return nil, fmt.Errorf("postservice: get %q: %w", slug, apperr.ErrNotFound)
		}
		return nil, err
	}
	p := s.fromSource(slug, string(f.Content))
	if s.cache != nil {
		s.cache.Add(slug, p)
	}
	cp := *p
	return &cp, nil
}

// List returns every post without its body, newest first. Posts whose
// createdAt cannot be parsed sort last. A post that fails to load is
// logged and skipped.
func (s *Service) List(ctx context.Context) ([]models.PostMeta, error) {
	files, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("postservice: list: %w", err)
	}
	out := make([]models.PostMeta, 0, len(files))
	for _, f := range files {
		p, err := s.Get(ctx, f.Slug)
		if err != nil {
			s.logger.Warn("postservice: skip unreadable post",
				slog.String("slug", f.Slug), slog.String("error", err.Error()))
			continue
		}
		out = append(out, p.Meta())
	}
	sortNewestFirst(out)
	return out, nil
}

// Slugs returns the identifiers of every stored post.
func (s *Service) Slugs(ctx context.Context) ([]string, error) {
	files, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("postservice: slugs: %w", err)
	}
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Slug
	}
	return out, nil
}

// Create publishes in as a new post and returns its slug. An existing post
// with the same slug is overwritten.
func (s *Service) Create(ctx context.Context, in models.PostInput) (string, error) {
	title := strings.TrimSpace(in.Title)
	id := slug.Make(title)
	if !slug.Valid(id) {
		return "", fmt.Errorf("postservice: title %q yields no usable slug: %w", in.Title, apperr.ErrInvalidSlug)
	}
	tags := make([]string, 0, len(in.Tags))
	for _, t := range in.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	meta := frontmatter.Metadata{
		"title":             title,
		"slug":              id,
		frontmatter.TagsKey: tags,
		"imageUrl":          in.ImageURL,
		"description":       in.Description,
		"keywords":          in.Keywords,
		"author":            in.Author,
		"createdAt":         s.now().UTC().Format(CreatedAtLayout),
	}
	raw := frontmatter.Format(meta, frontMatterKeys, in.Content)
	if err := s.store.Write(ctx, id, []byte(raw), "Add blog post: "+title); err != nil {
		return "", fmt.Errorf("postservice: create %s: %w", id, err)
	}
	s.Invalidate(id)
	s.logger.Info("postservice: post published", slog.String("slug", id))
	return id, nil
}

// Delete removes the post stored under slug.
func (s *Service) Delete(ctx context.Context, slug string) error {
	if err := s.store.Delete(ctx, slug, "Delete blog post: "+slug); err != nil {
		if errors.Is(err, apperr.ErrInvalidSlug) {
			return fmt.Errorf("postservice: delete %q: %w", slug, apperr.ErrNotFound)
		}
		return err
	}
	s.Invalidate(slug)
	s.logger.Info("postservice: post deleted", slog.String("slug", slug))
	return nil
}

// Render converts the post body to HTML for unescaped embedding.
func (s *Service) Render(p *models.Post) template.HTML {
	return template.HTML(s.renderer.Render(p.Content)) //nolint:gosec // post bodies are trusted admin content
}

// RenderMarkdown converts an arbitrary body with the configured renderer.
func (s *Service) RenderMarkdown(body string) string {
	return s.renderer.Render(body)
}

// Invalidate drops slug from the cache.
func (s *Service) Invalidate(slug string) {
	if s.cache != nil {
		s.cache.Remove(slug)
	}
}

func (s *Service) fromSource(id, raw string) *models.Post {
	doc := frontmatter.Parse(raw)
	m := doc.Metadata
	p := &models.Post{
		Slug:        id,
		Title:       m.String("title"),
		Tags:        m.Tags(),
		ImageURL:    m.String("imageUrl"),
		Content:     doc.Body,
		Description: m.String("description"),
		Keywords:    m.String("keywords"),
		Author:      m.String("author"),
		CreatedAt:   m.String("createdAt"),
	}
	if p.Title == "" {
		p.Title = id
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if p.CreatedAt == "" {
		p.CreatedAt = s.now().UTC().Format(CreatedAtLayout)
	}
	return p
}

func sortNewestFirst(posts []models.PostMeta) {
	sort.SliceStable(posts, func(i, j int) bool {
		ti, tj := posts[i].PublishedAt(), posts[j].PublishedAt()
		if ti.IsZero() != tj.IsZero() {
			return tj.IsZero()
		}
		return ti.After(tj)
	})
}
