package content

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/google/go-github/v74/github"
	"golang.org/x/oauth2"

	"github.com/starford/quill/internal/apperr"
)

// GitHubOptions configures the GitHub provider.
type GitHubOptions struct {
	Owner  string
	Repo   string
	Token  string
	Branch string // empty means the repository default branch
	Dir    string // directory holding the posts, e.g. "posts"
	APIURL string // empty means api.github.com
}

// GitHub implements Provider on the repository contents API. Every write is
// a commit.
type GitHub struct {
	client *github.Client
	opts   GitHubOptions
}

// NewGitHub builds a GitHub provider. A blank token yields an
// unauthenticated client, which can only read public repositories.
func NewGitHub(opts GitHubOptions) (*GitHub, error) {
	if opts.Owner == "" || opts.Repo == "" {
		return nil, errors.New("content: github owner and repo are required")
	}
	var hc *http.Client
	if token := strings.TrimSpace(opts.Token); token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		hc = oauth2.NewClient(context.Background(), ts)
	}
	client := github.NewClient(hc)
	if opts.APIURL != "" {
		u, err := url.Parse(strings.TrimSuffix(opts.APIURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("content: parse api url: %w", err)
		}
		client.BaseURL = u
	}
	opts.Dir = strings.Trim(opts.Dir, "/")
	return &GitHub{client: client, opts: opts}, nil
}

func (g *GitHub) filePath(slug string) string {
	return path.Join(g.opts.Dir, slug+Ext)
}

func (g *GitHub) getOptions() *github.RepositoryContentGetOptions {
	return &github.RepositoryContentGetOptions{Ref: g.opts.Branch}
}

// List returns every .md file in the posts directory. A missing directory
// yields an empty list.
func (g *GitHub) List(ctx context.Context) ([]File, error) {
	_, entries, _, err := g.client.Repositories.GetContents(ctx, g.opts.Owner, g.opts.Repo, g.opts.Dir, g.getOptions())
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("content: github list: %w", err)
	}
	var out []File
	for _, e := range entries {
		if e.GetType() != "file" {
			continue
		}
		slug, ok := SlugFromName(e.GetName())
		if !ok {
			continue
		}
		out = append(out, File{Slug: slug, Name: e.GetName(), SHA: e.GetSHA()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Read fetches and decodes the source stored under slug.
func (g *GitHub) Read(ctx context.Context, slug string) (*File, error) {
	if err := checkSlug(slug); err != nil {
		return nil, err
	}
	fc, _, _, err := g.client.Repositories.GetContents(ctx, g.opts.Owner, g.opts.Repo, g.filePath(slug), g.getOptions())
	if isNotFound(err) {
		return nil, fmt.Errorf("content: github read %s: %w", slug, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("content: github read %s: %w", slug, err)
	}
	if fc == nil {
		return nil, fmt.Errorf("content: github read %s: %w", slug, apperr.ErrNotFound)
	}
	text, err := fc.GetContent()
	if err != nil {
		return nil, fmt.Errorf("content: github decode %s: %w", slug, err)
	}
	return &File{Slug: slug, Name: fc.GetName(), SHA: fc.GetSHA(), Content: []byte(text)}, nil
}

// Write creates the file, or updates it with the current SHA when it
// already exists.
func (g *GitHub) Write(ctx context.Context, slug string, content []byte, message string) error {
	if err := checkSlug(slug); err != nil {
		return err
	}
	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		Content: content,
	}
	if g.opts.Branch != "" {
		opts.Branch = github.Ptr(g.opts.Branch)
	}

	existing, err := g.Read(ctx, slug)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		_, _, err = g.client.Repositories.CreateFile(ctx, g.opts.Owner, g.opts.Repo, g.filePath(slug), opts)
	case err != nil:
		return err
	default:
		opts.SHA = github.Ptr(existing.SHA)
		_, _, err = g.client.Repositories.UpdateFile(ctx, g.opts.Owner, g.opts.Repo, g.filePath(slug), opts)
	}
	if isConflict(err) {
		return fmt.Errorf("content: github write %s: %w", slug, apperr.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("content: github write %s: %w", slug, err)
	}
	return nil
}

// Delete removes the file stored under slug.
func (g *GitHub) Delete(ctx context.Context, slug string, message string) error {
	existing, err := g.Read(ctx, slug)
	if err != nil {
		return err
	}
	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		SHA:     github.Ptr(existing.SHA),
	}
	if g.opts.Branch != "" {
		opts.Branch = github.Ptr(g.opts.Branch)
	}
	_, _, err = g.client.Repositories.DeleteFile(ctx, g.opts.Owner, g.opts.Repo, g.filePath(slug), opts)
	if isNotFound(err) {
		return fmt.Errorf("content: github delete %s: %w", slug, apperr.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("content: github delete %s: %w", slug, err)
	}
	return nil
}

func statusOf(err error) int {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode
	}
	return 0
}

func isNotFound(err error) bool { return err != nil && statusOf(err) == http.StatusNotFound }

func isConflict(err error) bool {
	if err == nil {
		return false
	}
	s := statusOf(err)
	return s == http.StatusConflict || s == http.StatusUnprocessableEntity
}
