// Package models defines the domain types shared across Quill.
package models

import "time"

// Post is a blog post read from the content store.
type Post struct {
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Tags        []string `json:"tags"`
	ImageURL    string   `json:"imageUrl"`
	Content     string   `json:"content"`
	Description string   `json:"description"`
	Keywords    string   `json:"keywords"`
	Author      string   `json:"author"`
	CreatedAt   string   `json:"createdAt"`
}

// Meta strips the body from p.
func (p *Post) Meta() PostMeta {
	return PostMeta{
		Slug:        p.Slug,
		Title:       p.Title,
		Tags:        p.Tags,
		ImageURL:    p.ImageURL,
		Description: p.Description,
		Author:      p.Author,
		CreatedAt:   p.CreatedAt,
	}
}

// PublishedAt parses CreatedAt. Unparsable values yield the zero time.
func (p *Post) PublishedAt() time.Time {
	return parseCreatedAt(p.CreatedAt)
}

// PostMeta is the listing representation of a post.
type PostMeta struct {
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Tags        []string `json:"tags"`
	ImageURL    string   `json:"imageUrl"`
	Description string   `json:"description"`
	Author      string   `json:"author"`
	CreatedAt   string   `json:"createdAt"`
}

// PublishedAt parses CreatedAt. Unparsable values yield the zero time.
func (m PostMeta) PublishedAt() time.Time {
	return parseCreatedAt(m.CreatedAt)
}

// PostInput is the data needed to publish a post.
type PostInput struct {
	Title       string   `json:"title"`
	Tags        []string `json:"tags"`
	ImageURL    string   `json:"imageUrl"`
	Content     string   `json:"content"`
	Description string   `json:"description"`
	Keywords    string   `json:"keywords"`
	Author      string   `json:"author"`
}

var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseCreatedAt(s string) time.Time {
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
