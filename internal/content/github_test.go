package content

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"testing"

	"github.com/starford/quill/internal/apperr"
)

// fakeContentsAPI serves the subset of the repository contents API used by
// the GitHub provider, keyed by repository path.
type fakeContentsAPI struct {
	mu      sync.Mutex
	files   map[string][]byte
	commits []string // "METHOD path message"
	auth    []string
	refs    []string
}

func gitSHA(b []byte) string {
	h := sha1.Sum(b)
	return hex.EncodeToString(h[:])
}

func (f *fakeContentsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.auth = append(f.auth, r.Header.Get("Authorization"))

	const prefix = "/repos/owner/repo/contents/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
		return
	}
	p := strings.TrimPrefix(r.URL.Path, prefix)
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		f.refs = append(f.refs, r.URL.Query().Get("ref"))
		if data, ok := f.files[p]; ok {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"type":     "file",
				"name":     path.Base(p),
				"path":     p,
				"sha":      gitSHA(data),
				"encoding": "base64",
				"content":  base64.StdEncoding.EncodeToString(data),
			})
			return
		}
		var entries []map[string]any
		for fp, data := range f.files {
			if path.Dir(fp) == p {
				entries = append(entries, map[string]any{
					"type": "file", "name": path.Base(fp), "path": fp, "sha": gitSHA(data),
				})
			}
		}
		if entries == nil {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
			return
		}
		entries = append(entries, map[string]any{"type": "dir", "name": "drafts.md", "path": p + "/drafts.md"})
		_ = json.NewEncoder(w).Encode(entries)

	case http.MethodPut, http.MethodDelete:
		var body struct {
			Message string `json:"message"`
			Content string `json:"content"`
			SHA     string `json:"sha"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		existing, exists := f.files[p]
		if exists && body.SHA != gitSHA(existing) {
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"message":"sha mismatch"}`))
			return
		}
		if r.Method == http.MethodDelete {
			if !exists {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"message":"Not Found"}`))
				return
			}
			delete(f.files, p)
		} else {
			data, _ := base64.StdEncoding.DecodeString(body.Content)
			f.files[p] = data
		}
		f.commits = append(f.commits, r.Method+" "+p+" "+body.Message)
		_, _ = w.Write([]byte(`{}`))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestGitHub(t *testing.T, opts GitHubOptions) (*GitHub, *fakeContentsAPI) {
	t.Helper()
	api := &fakeContentsAPI{files: map[string][]byte{}}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	opts.Owner, opts.Repo, opts.APIURL = "owner", "repo", srv.URL
	if opts.Dir == "" {
		opts.Dir = "posts"
	}
	g, err := NewGitHub(opts)
	if err != nil {
		t.Fatalf("NewGitHub: %v", err)
	}
	return g, api
}

func TestGitHub_WriteCreatesThenUpdates(t *testing.T) {
	g, api := newTestGitHub(t, GitHubOptions{Token: "secret"})
	ctx := context.Background()

	if err := g.Write(ctx, "hello", []byte("v1"), "Add blog post: Hello"); err != nil {
		t.Fatalf("first Write: %v", err)
	}
	if err := g.Write(ctx, "hello", []byte("v2"), "Add blog post: Hello"); err != nil {
		t.Fatalf("second Write: %v", err)
	}
	if got := string(api.files["posts/hello.md"]); got != "v2" {
		t.Errorf("stored = %q", got)
	}
	if len(api.commits) != 2 || api.commits[0] != "PUT posts/hello.md Add blog post: Hello" {
		t.Errorf("commits = %v", api.commits)
	}
	if api.auth[0] != "Bearer secret" {
		t.Errorf("authorization = %q", api.auth[0])
	}
}

func TestGitHub_Read(t *testing.T) {
	g, api := newTestGitHub(t, GitHubOptions{Branch: "main"})
	api.files["posts/a.md"] = []byte("---\ntitle: A\n---\nbody")

	f, err := g.Read(context.Background(), "a")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(f.Content) != "---\ntitle: A\n---\nbody" || f.Name != "a.md" || f.SHA == "" {
		t.Errorf("file = %+v", f)
	}
	if api.refs[0] != "main" {
		t.Errorf("ref = %q, want main", api.refs[0])
	}
	if api.auth[0] != "" {
		t.Errorf("blank token should not authenticate, got %q", api.auth[0])
	}
}

func TestGitHub_ReadMissing(t *testing.T) {
	g, _ := newTestGitHub(t, GitHubOptions{})
	if _, err := g.Read(context.Background(), "none"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGitHub_ListFiltersMarkdownFiles(t *testing.T) {
	g, api := newTestGitHub(t, GitHubOptions{})
	api.files["posts/b.md"] = []byte("b")
	api.files["posts/a.md"] = []byte("a")
	api.files["posts/image.png"] = []byte("png")
	api.files["other/c.md"] = []byte("c")

	items, err := g.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 || items[0].Slug != "a" || items[1].Slug != "b" {
		t.Errorf("items = %+v", items)
	}
}

func TestGitHub_ListMissingDirIsEmpty(t *testing.T) {
	g, _ := newTestGitHub(t, GitHubOptions{})
	items, err := g.List(context.Background())
	if err != nil || len(items) != 0 {
		t.Errorf("items = %v, err = %v", items, err)
	}
}

func TestGitHub_Delete(t *testing.T) {
	g, api := newTestGitHub(t, GitHubOptions{})
	api.files["posts/gone.md"] = []byte("x")
	ctx := context.Background()

	if err := g.Delete(ctx, "gone", "Delete blog post: gone"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := api.files["posts/gone.md"]; ok {
		t.Error("file still present")
	}
	if err := g.Delete(ctx, "gone", "again"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v", err)
	}
}

func TestGitHub_RejectsPathSlug(t *testing.T) {
	g, api := newTestGitHub(t, GitHubOptions{})
	if err := g.Write(context.Background(), "../x", []byte("x"), "m"); !errors.Is(err, apperr.ErrInvalidSlug) {
		t.Errorf("err = %v", err)
	}
	if len(api.auth) != 0 {
		t.Error("no request should reach the API")
	}
}

func TestNewGitHub_RequiresRepo(t *testing.T) {
	if _, err := NewGitHub(GitHubOptions{Owner: "o"}); err == nil {
		t.Error("expected error without repo")
	}
}
