// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Quill authoring tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/models"
	"github.com/starford/quill/internal/uploads"
)

// Posts is the subset of the post service the tools use.
type Posts interface {
	List(ctx context.Context) ([]models.PostMeta, error)
	Get(ctx context.Context, slug string) (*models.Post, error)
	Create(ctx context.Context, in models.PostInput) (string, error)
	RenderMarkdown(body string) string
}

// Server wraps the MCP server with Quill tools.
type Server struct {
	mcp     *server.MCPServer
	posts   Posts
	uploads *uploads.Store
	logger  *slog.Logger
}

// New creates a new MCP server with all Quill tools registered. The
// upload_image tool is only offered when images is non-nil.
func New(posts Posts, images *uploads.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{posts: posts, uploads: images, logger: logger}

	s.mcp = server.NewMCPServer(
		"Quill",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_posts",
		mcp.WithDescription("List every published post, newest first, without bodies."),
	), s.listPosts)

	s.mcp.AddTool(mcp.NewTool("read_post",
		mcp.WithDescription("Read a post with its metadata and Markdown body."),
		mcp.WithString("slug", mcp.Required(), mcp.Description("Post slug (file name without .md)")),
	), s.readPost)

	s.mcp.AddTool(mcp.NewTool("render_markdown",
		mcp.WithDescription("Render a Markdown body to HTML exactly as the site does."),
		mcp.WithString("markdown", mcp.Required(), mcp.Description("Markdown body")),
	), s.renderMarkdown)

	s.mcp.AddTool(mcp.NewTool("create_post",
		mcp.WithDescription("Publish a post. The slug is derived from the title; an existing "+
			"post with the same slug is overwritten. Read the format first via "+
			"get_post_format or the "+PostFormatURI+" resource."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Post title")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown body without front matter")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags")),
		mcp.WithString("imageUrl", mcp.Description("Header image URL")),
		mcp.WithString("description", mcp.Description("Short summary")),
		mcp.WithString("keywords", mcp.Description("SEO keywords")),
		mcp.WithString("author", mcp.Description("Author name")),
	), s.createPost)

	s.mcp.AddTool(mcp.NewTool("get_post_format",
		mcp.WithDescription("Returns the Quill post file format. "+
			"Call this before drafting posts to ensure correct structure."),
	), s.getPostFormat)

	if images != nil {
		s.mcp.AddTool(mcp.NewTool("upload_image",
			mcp.WithDescription("Store an image from an http(s) URL or a base64 data URI. "+
				"Returns the public URL and a Markdown image snippet."),
			mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:image/...;base64,... URI")),
			mcp.WithString("filename", mcp.Description("Optional file name used to derive the stored name")),
		), s.uploadImage)
	}

	s.mcp.AddResource(
		mcp.NewResource(PostFormatURI, "Post Format",
			mcp.WithResourceDescription("Markdown post file format used by Quill."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readPostFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listPosts(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	posts, err := s.posts.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(posts), nil
}

func (s *Server) readPost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	slug, err := req.RequireString("slug")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	post, err := s.posts.Get(ctx, strings.TrimSuffix(slug, ".md"))
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", slug)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(post), nil
}

func (s *Server) renderMarkdown(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body, err := req.RequireString("markdown")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.posts.RenderMarkdown(body)), nil
}

func (s *Server) createPost(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	in := models.PostInput{
		Title:       title,
		Content:     body,
		Tags:        splitTags(optionalString(req, "tags")),
		ImageURL:    optionalString(req, "imageUrl"),
		Description: optionalString(req, "description"),
		Keywords:    optionalString(req, "keywords"),
		Author:      optionalString(req, "author"),
	}
	slug, err := s.posts.Create(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.logger.Info("mcp: post created", slog.String("slug", slug))
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", slug)), nil
}

// optionalString returns the argument or "" when it is absent.
func optionalString(req mcp.CallToolRequest, key string) string {
	if v, err := req.RequireString(key); err == nil {
		return v
	}
	return ""
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func (s *Server) getPostFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(PostFormat), nil
}

func (s *Server) readPostFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      PostFormatURI,
			MIMEType: "text/markdown",
			Text:     PostFormat,
		},
	}, nil
}
