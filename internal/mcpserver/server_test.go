package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/quill/internal/models"
	"github.com/starford/quill/internal/postservice"
	"github.com/starford/quill/internal/testutil"
	"github.com/starford/quill/internal/uploads"
)

func testServer(t *testing.T) (*Server, *postservice.Service, string) {
	t.Helper()
	_, store := testutil.TestContent(t)
	posts := postservice.New(store, postservice.Options{Logger: testutil.Logger()})
	uploadDir := t.TempDir()
	srv := New(posts, uploads.New(uploadDir, 0), testutil.Logger())
	return srv, posts, uploadDir
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_posts":
		result, err = srv.listPosts(ctx, req)
	case "read_post":
		result, err = srv.readPost(ctx, req)
	case "render_markdown":
		result, err = srv.renderMarkdown(ctx, req)
	case "create_post":
		result, err = srv.createPost(ctx, req)
	case "get_post_format":
		result, err = srv.getPostFormat(ctx, req)
	case "upload_image":
		result, err = srv.uploadImage(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndReadPost(t *testing.T) {
	srv, _, _ := testServer(t)

	r := callTool(t, srv, "create_post", map[string]interface{}{
		"title":   "Hello MCP",
		"content": "# Hi\nthere",
		"tags":    "ai, tools",
		"author":  "Bot",
	})
	if text := resultText(r); text != "created: hello-mcp" {
		t.Fatalf("create result = %q", text)
	}

	r = callTool(t, srv, "read_post", map[string]interface{}{"slug": "hello-mcp.md"})
	var post models.Post
	if err := json.Unmarshal([]byte(resultText(r)), &post); err != nil {
		t.Fatalf("decode %q: %v", resultText(r), err)
	}
	if post.Title != "Hello MCP" || post.Content != "# Hi\nthere" || post.Author != "Bot" {
		t.Errorf("post = %+v", post)
	}
	if strings.Join(post.Tags, "|") != "ai|tools" {
		t.Errorf("tags = %v", post.Tags)
	}
}

func TestCreatePost_MissingTitle(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "create_post", map[string]interface{}{"content": "x"})
	if !r.IsError {
		t.Error("expected error without title")
	}
}

func TestListPosts(t *testing.T) {
	srv, posts, _ := testServer(t)
	ctx := context.Background()
	_, _ = posts.Create(ctx, models.PostInput{Title: "A", Content: "a"})
	_, _ = posts.Create(ctx, models.PostInput{Title: "B", Content: "b"})

	r := callTool(t, srv, "list_posts", map[string]interface{}{})
	var metas []models.PostMeta
	if err := json.Unmarshal([]byte(resultText(r)), &metas); err != nil {
		t.Fatal(err)
	}
	if len(metas) != 2 {
		t.Errorf("list = %+v", metas)
	}
}

func TestReadPostMissing(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "read_post", map[string]interface{}{"slug": "nope"})
	if !r.IsError || !strings.Contains(resultText(r), "not found") {
		t.Errorf("result = %+v", r)
	}
}

func TestRenderMarkdown(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "render_markdown", map[string]interface{}{"markdown": "**b**"})
	if got := resultText(r); got != "<p><strong>b</strong></p>" {
		t.Errorf("render = %q", got)
	}
}

func TestPostFormat(t *testing.T) {
	srv, _, _ := testServer(t)
	r := callTool(t, srv, "get_post_format", nil)
	if resultText(r) != PostFormat {
		t.Error("tool should return the post format")
	}
	res, err := srv.readPostFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(res) != 1 {
		t.Fatalf("resource = %v, %v", res, err)
	}
	if tc, ok := res[0].(mcp.TextResourceContents); !ok || tc.URI != PostFormatURI {
		t.Errorf("resource contents = %+v", res[0])
	}
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestUploadImage_DataURI(t *testing.T) {
	srv, _, dir := testServer(t)
	uri := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngHeader)

	r := callTool(t, srv, "upload_image", map[string]interface{}{"url": uri, "filename": "diagram.png"})
	if r.IsError {
		t.Fatalf("upload error: %s", resultText(r))
	}
	var res uploadResult
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(res.URL, "/uploads/diagram-") || res.MarkdownImage != "![diagram]("+res.URL+")" {
		t.Errorf("result = %+v", res)
	}
	if _, err := os.Stat(filepath.Join(dir, strings.TrimPrefix(res.URL, "/uploads/"))); err != nil {
		t.Errorf("stored file: %v", err)
	}
}

func TestUploadImage_Rejects(t *testing.T) {
	srv, _, _ := testServer(t)
	cases := map[string]string{
		"not an image": "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte("hello")),
		"plain data":   "data:image/png,rawbytes",
		"loopback":     "http://127.0.0.1/a.png",
		"metadata":     "http://169.254.169.254/latest",
		"scheme":       "ftp://example.com/a.png",
	}
	for name, uri := range cases {
		t.Run(name, func(t *testing.T) {
			if r := callTool(t, srv, "upload_image", map[string]interface{}{"url": uri}); !r.IsError {
				t.Errorf("expected error, got %q", resultText(r))
			}
		})
	}
}

func listToolNames(t *testing.T, srv *Server) string {
	t.Helper()
	msg := []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)
	resp := srv.MCPServer().HandleMessage(context.Background(), msg)
	out, err := json.Marshal(resp)
	if err != nil {
		t.Fatal(err)
	}
	return string(out)
}

func TestToolRegistration(t *testing.T) {
	srv, _, _ := testServer(t)
	tools := listToolNames(t, srv)
	for _, name := range []string{"list_posts", "read_post", "render_markdown", "create_post", "get_post_format", "upload_image"} {
		if !strings.Contains(tools, `"`+name+`"`) {
			t.Errorf("tool %s not registered", name)
		}
	}

	_, store := testutil.TestContent(t)
	bare := New(postservice.New(store, postservice.Options{}), nil, nil)
	if strings.Contains(listToolNames(t, bare), "upload_image") {
		t.Error("upload_image should not be registered without a store")
	}
}
