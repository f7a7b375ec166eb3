package api

import (
	"net/http"
	"strings"

	"github.com/starford/quill/internal/community"
)

// ListComments handles GET /api/comments. With ?slug= it is public and
// omits email addresses; without it the admin session is required.
//
//	@Summary	List comments for a post, or all comments (admin)
//	@Tags		comments
//	@Produce	json
//	@Param		slug	query	string	false	"Post slug"
//	@Success	200		{array}	models.Comment
//	@Failure	401		{object}	errResponse
//	@Router		/comments [get]
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	if slug := r.URL.Query().Get("slug"); slug != "" {
		list, err := h.community.PostComments(r.Context(), slug)
		if err != nil {
			writeError(w, r, err, "Failed to fetch comments")
			return
		}
		writeJSON(w, http.StatusOK, list)
		return
	}
	if !h.auth.Authenticated(r) {
		writeJSON(w, http.StatusUnauthorized, errorBody("Unauthorized"))
		return
	}
	list, err := h.community.AllComments(r.Context())
	if err != nil {
		writeError(w, r, err, "Failed to fetch comments")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// CreateComment handles POST /api/comments.
//
//	@Summary	Post a comment or a reply
//	@Tags		comments
//	@Accept		json
//	@Produce	json
//	@Param		body	body		CreateCommentRequest	true	"Comment"
//	@Success	201		{object}	CreatedResponse
//	@Failure	400		{object}	errResponse
//	@Failure	429		{object}	errResponse
//	@Router		/comments [post]
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	var req CreateCommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	c, err := h.community.AddComment(r.Context(), community.CommentInput{
		Slug:     req.Slug,
		Author:   req.Author,
		Email:    req.Email,
		Content:  req.Content,
		ParentID: req.ParentID,
	})
	if err != nil {
		writeError(w, r, err, "Failed to create comment")
		return
	}
	writeJSON(w, http.StatusCreated, CreatedResponse{ID: c.ID, Message: "Comment posted successfully"})
}

// UpdateComment handles PUT /api/comments.
func (h *Handler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	var req UpdateCommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if err := h.community.UpdateComment(r.Context(), req.ID, req.Content); err != nil {
		writeError(w, r, err, "Failed to update comment")
		return
	}
	writeJSON(w, http.StatusOK, ok)
}

// DeleteComment handles DELETE /api/comments?id=.
func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("Missing comment id"))
		return
	}
	if err := h.community.DeleteComment(r.Context(), id); err != nil {
		writeError(w, r, err, "Failed to delete comment")
		return
	}
	writeJSON(w, http.StatusOK, ok)
}

// ListMessages handles GET /api/messages.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	list, err := h.community.Messages(r.Context())
	if err != nil {
		writeError(w, r, err, "Failed to fetch messages")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// CreateMessage handles POST /api/messages.
//
//	@Summary	Send a contact message
//	@Tags		messages
//	@Accept		json
//	@Produce	json
//	@Param		body	body		CreateMessageRequest	true	"Message"
//	@Success	201		{object}	CreatedResponse
//	@Failure	400		{object}	errResponse
//	@Router		/messages [post]
func (h *Handler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	var req CreateMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	m, err := h.community.SendMessage(r.Context(), community.MessageInput{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		writeError(w, r, err, "Failed to send message")
		return
	}
	writeJSON(w, http.StatusCreated, CreatedResponse{ID: m.ID, Message: "Message sent successfully"})
}

// MarkMessageRead handles PUT /api/messages.
func (h *Handler) MarkMessageRead(w http.ResponseWriter, r *http.Request) {
	var req IDRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("Missing message id"))
		return
	}
	if err := h.community.MarkRead(r.Context(), req.ID); err != nil {
		writeError(w, r, err, "Failed to update message")
		return
	}
	writeJSON(w, http.StatusOK, ok)
}

// DeleteMessage handles DELETE /api/messages?id=.
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("Missing message id"))
		return
	}
	if err := h.community.DeleteMessage(r.Context(), id); err != nil {
		writeError(w, r, err, "Failed to delete message")
		return
	}
	writeJSON(w, http.StatusOK, ok)
}

// ListSubscribers handles GET /api/subscribers.
func (h *Handler) ListSubscribers(w http.ResponseWriter, r *http.Request) {
	list, err := h.community.Subscribers(r.Context())
	if err != nil {
		writeError(w, r, err, "Failed to fetch subscribers")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Subscribe handles POST /api/subscribers.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	sub, err := h.community.Subscribe(r.Context(), req.Email)
	if err != nil {
		writeError(w, r, err, "Failed to subscribe")
		return
	}
	writeJSON(w, http.StatusCreated, CreatedResponse{ID: sub.ID, Message: "Successfully subscribed"})
}

// Unsubscribe handles DELETE /api/subscribers. ?id= needs the admin
// session; ?email= is the public opt-out.
//
//	@Summary	Unsubscribe by id (admin) or by email
//	@Tags		subscribers
//	@Produce	json
//	@Param		id		query		string	false	"Subscriber id"
//	@Param		email	query		string	false	"Subscriber email"
//	@Success	200		{object}	successResponse
//	@Failure	400		{object}	errResponse
//	@Failure	401		{object}	errResponse
//	@Router		/subscribers [delete]
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var err error
	switch id, email := q.Get("id"), q.Get("email"); {
	case id != "":
		if !h.auth.Authenticated(r) {
			writeJSON(w, http.StatusUnauthorized, errorBody("Unauthorized"))
			return
		}
		err = h.community.Unsubscribe(r.Context(), id)
	case email != "":
		err = h.community.UnsubscribeEmail(r.Context(), email)
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("Missing id or email parameter"))
		return
	}
	if err != nil {
		writeError(w, r, err, "Failed to unsubscribe")
		return
	}
	writeJSON(w, http.StatusOK, ok)
}

// DashboardStats handles GET /api/dashboard/stats.
//
//	@Summary	Totals and recent activity for the admin overview
//	@Tags		dashboard
//	@Produce	json
//	@Success	200	{object}	models.DashboardStats
//	@Failure	401	{object}	errResponse
//	@Router		/dashboard/stats [get]
func (h *Handler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.community.Stats(r.Context())
	if err != nil {
		writeError(w, r, err, "Failed to fetch dashboard stats")
		return
	}
	writeJSON(w, http.StatusOK, st)
}
