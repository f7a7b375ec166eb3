// Package uploads stores post images in a flat directory.
package uploads

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	gosimple "github.com/gosimple/slug"
)

// DefaultMaxBytes bounds a single image.
const DefaultMaxBytes = 5 << 20

// URLPrefix is where stored images are served.
const URLPrefix = "/uploads/"

var (
	ErrNotImage    = errors.New("uploads: only image files are allowed")
	ErrTooLarge    = errors.New("uploads: file too large")
	ErrInvalidName = errors.New("uploads: invalid filename")
)

// Store writes images under dir.
type Store struct {
	dir      string
	maxBytes int64
}

// Saved describes a stored image.
type Saved struct {
	Name string
	Size int64
	MIME string
}

// URL is the public path of the image.
func (s Saved) URL() string { return URLPrefix + s.Name }

// New creates a store rooted at dir. A non-positive maxBytes selects
// DefaultMaxBytes. The directory is created on first save.
func New(dir string, maxBytes int64) *Store {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Store{dir: dir, maxBytes: maxBytes}
}

// Dir returns the storage directory.
func (s *Store) Dir() string { return s.dir }

// MaxBytes returns the per-file size limit.
func (s *Store) MaxBytes() int64 { return s.maxBytes }

// Path validates that name is a plain file name (no separators, no
// traversal, no dotfiles) and returns its absolute path.
func (s *Store) Path(name string) (string, error) {
	if name == "" {
		return "", ErrInvalidName
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") || strings.HasPrefix(cleaned, ".") {
		return "", fmt.Errorf("%w: %s", ErrInvalidName, name)
	}
	abs := filepath.Join(s.dir, cleaned)
	if !strings.HasPrefix(abs, filepath.Clean(s.dir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrInvalidName, name)
	}
	return abs, nil
}

// Save sniffs r, rejects anything that is not an image and writes it under
// a collision-free name derived from original.
func (s *Store) Save(original string, r io.Reader) (*Saved, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("uploads: read: %w", err)
	}
	head = head[:n]
	mt := DetectMIME(head)
	if !strings.HasPrefix(mt, "image/") {
		return nil, ErrNotImage
	}

	name := storedName(original, head)
	abs, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("uploads: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-tmp-*")
	if err != nil {
		return nil, fmt.Errorf("uploads: create temp: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	body := io.MultiReader(bytes.NewReader(head), r)
	written, err := io.Copy(tmp, io.LimitReader(body, s.maxBytes+1))
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("uploads: write: %w", err)
	}
	if written > s.maxBytes {
		cleanup()
		return nil, ErrTooLarge
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("uploads: close: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("uploads: rename: %w", err)
	}
	return &Saved{Name: name, Size: written, MIME: mt}, nil
}

// DetectMIME prefers the standard sniffer and falls back to mimetype when
// it cannot decide.
func DetectMIME(head []byte) string {
	if len(head) == 0 {
		return "application/octet-stream"
	}
	mt := http.DetectContentType(head)
	if mt != "application/octet-stream" {
		return mt
	}
	return mimetype.Detect(head).String()
}

// storedName builds "<slug>-<8 hex>.<ext>" from the client's file name.
func storedName(original string, head []byte) string {
	ext := mimetype.Detect(head).Extension()
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(original))
	}
	base := filepath.Base(original)
	stem := gosimple.Make(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" {
		stem = "image"
	}
	if len(stem) > 48 {
		stem = strings.Trim(stem[:48], "-")
	}
	return stem + "-" + uuid.NewString()[:8] + ext
}
