package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quill/internal/apperr"
	"github.com/starford/quill/internal/auth"
	"github.com/starford/quill/internal/community"
	"github.com/starford/quill/internal/postservice"
)

// Handler holds API route handlers.
type Handler struct {
	posts     *postservice.Service
	community *community.Service
	auth      *auth.Manager
}

// NewHandler creates a new Handler.
func NewHandler(posts *postservice.Service, comm *community.Service, am *auth.Manager) *Handler {
	return &Handler{posts: posts, community: comm, auth: am}
}

// Login handles POST /api/auth and /api/auth/login.
//
//	@Summary	Start an admin session
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		body	body		LoginRequest	true	"Admin password"
//	@Success	200		{object}	successResponse
//	@Failure	401		{object}	errResponse
//	@Router		/auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	err := h.auth.Login(w, req.Password)
	if errors.Is(err, apperr.ErrUnauthorized) {
		writeJSON(w, http.StatusUnauthorized, errorBody("Invalid password"))
		return
	}
	if err != nil {
		writeError(w, r, err, "Authentication failed")
		return
	}
	writeJSON(w, http.StatusOK, ok)
}

// Logout handles POST /api/auth/logout.
func (h *Handler) Logout(w http.ResponseWriter, _ *http.Request) {
	h.auth.Logout(w)
	writeJSON(w, http.StatusOK, ok)
}

// AuthStatus handles GET /api/auth.
func (h *Handler) AuthStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, AuthStatusResponse{Authenticated: h.auth.Authenticated(r)})
}

// ListPosts handles GET /api/posts.
//
//	@Summary	List posts, newest first
//	@Tags		posts
//	@Produce	json
//	@Success	200	{array}	models.PostMeta
//	@Router		/posts [get]
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.List(r.Context())
	if err != nil {
		writeError(w, r, err, "Failed to fetch posts")
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// GetPost handles GET /api/posts/{slug}.
//
//	@Summary	Get a post with its rendered HTML
//	@Tags		posts
//	@Produce	json
//	@Param		slug	path		string	true	"Post slug"
//	@Success	200		{object}	PostDetail
//	@Failure	404		{object}	errResponse
//	@Router		/posts/{slug} [get]
func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	p, err := h.posts.Get(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, r, err, "Failed to fetch post")
		return
	}
	writeJSON(w, http.StatusOK, PostDetail{Post: p, HTML: string(h.posts.Render(p))})
}

// CreatePost handles POST /api/posts.
//
//	@Summary	Publish a post (overwrites a post with the same slug)
//	@Tags		posts
//	@Accept		json
//	@Produce	json
//	@Param		body	body		CreatePostRequest	true	"Post to publish"
//	@Success	201		{object}	CreatePostResponse
//	@Failure	400		{object}	errResponse
//	@Router		/posts [post]
func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	id, err := h.posts.Create(r.Context(), req.input())
	if err != nil {
		writeError(w, r, err, "Failed to create post")
		return
	}
	writeJSON(w, http.StatusCreated, CreatePostResponse{Success: true, Slug: id})
}

// DeletePost handles DELETE /api/posts/{slug}.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.posts.Delete(r.Context(), chi.URLParam(r, "slug")); err != nil {
		writeError(w, r, err, "Failed to delete post")
		return
	}
	writeJSON(w, http.StatusOK, ok)
}
