package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/quill/internal/apperr"
)

// FS implements Provider backed by a local directory of <slug>.md files.
type FS struct {
	root string // absolute path to the posts directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("content: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("content: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute posts directory.
func (f *FS) Root() string { return f.root }

// safePath maps slug to its file and rejects any result that escapes root.
func (f *FS) safePath(slug string) (string, error) {
	if err := checkSlug(slug); err != nil {
		return "", err
	}
	abs := filepath.Join(f.root, slug+Ext)
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("content: path escapes root: %q: %w", slug, apperr.ErrInvalidSlug)
	}
	return abs, nil
}

// List returns every .md file directly under root, sorted by name.
func (f *FS) List(_ context.Context) ([]File, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("content: list: %w", err)
	}
	var out []File
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		slug, ok := SlugFromName(e.Name())
		if !ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(f.root, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("content: list: %w", err)
		}
		out = append(out, File{Slug: slug, Name: e.Name(), SHA: Digest(data)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Read returns the source stored under slug.
func (f *FS) Read(_ context.Context, slug string) (*File, error) {
	abs, err := f.safePath(slug)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("content: read %s: %w", slug, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("content: read %s: %w", slug, err)
	}
	return &File{Slug: slug, Name: slug + Ext, SHA: Digest(data), Content: data}, nil
}

// Write atomically writes content: tmp file, fsync, rename. message is
// ignored; a local directory has no history.
func (f *FS) Write(_ context.Context, slug string, content []byte, _ string) error {
	abs, err := f.safePath(slug)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.root, ".quill-tmp-*")
	if err != nil {
		return fmt.Errorf("content: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("content: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("content: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("content: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("content: rename: %w", err)
	}
	success = true
	return nil
}

// Delete removes the source stored under slug.
func (f *FS) Delete(_ context.Context, slug string, _ string) error {
	abs, err := f.safePath(slug)
	if err != nil {
		return err
	}
	err = os.Remove(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("content: delete %s: %w", slug, apperr.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("content: delete %s: %w", slug, err)
	}
	return nil
}
