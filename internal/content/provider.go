// Package content stores the Markdown sources of posts, either in a GitHub
// repository or in a local directory.
package content

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/starford/quill/internal/apperr"
)

// Ext is the file extension of post sources.
const Ext = ".md"

// File is a post source. Content is empty in List results.
type File struct {
	Slug    string
	Name    string
	SHA     string
	Content []byte
}

// Provider is the interface for post source operations. Implementations
// return apperr.ErrNotFound for missing files.
type Provider interface {
	// List returns metadata for every .md file in the posts location.
	List(ctx context.Context) ([]File, error)
	// Read returns the file stored under slug.
	Read(ctx context.Context, slug string) (*File, error)
	// Write creates or overwrites the file stored under slug.
	Write(ctx context.Context, slug string, content []byte, message string) error
	// Delete removes the file stored under slug.
	Delete(ctx context.Context, slug string, message string) error
}

// SlugFromName strips the .md extension. ok is false for other files.
func SlugFromName(name string) (slug string, ok bool) {
	if !strings.HasSuffix(name, Ext) || strings.HasPrefix(name, ".") {
		return "", false
	}
	return strings.TrimSuffix(name, Ext), true
}

// checkSlug rejects identifiers that would address anything other than a
// single file in the posts location.
func checkSlug(slug string) error {
	if slug == "" || slug == "." || slug == ".." || strings.ContainsAny(slug, `/\`) || strings.HasPrefix(slug, ".") {
		return fmt.Errorf("content: %q: %w", slug, apperr.ErrInvalidSlug)
	}
	return nil
}

// Digest is the FS provider's file SHA: hex SHA-256 of the content.
func Digest(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
