package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quill/internal/auth"
	"github.com/starford/quill/internal/community"
	"github.com/starford/quill/internal/postservice"
	"github.com/starford/quill/internal/ratelimit"
)

// Options wires the API router.
type Options struct {
	Posts     *postservice.Service
	Community *community.Service
	Auth      *auth.Manager
	// Limiter throttles public submissions. Nil disables throttling.
	Limiter *ratelimit.Limiter
	// Events, if non-nil, is mounted at GET /dashboard/events for admins.
	Events  http.Handler
	Uploads *UploadHandler
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(o Options) chi.Router {
	h := NewHandler(o.Posts, o.Community, o.Auth)
	admin := o.Auth.RequireAdmin

	throttle := func(next http.Handler) http.Handler { return next }
	if o.Limiter != nil {
		throttle = o.Limiter.Middleware
	}

	r := chi.NewRouter()

	// Session.
	r.Get("/auth", h.AuthStatus)
	r.With(throttle).Post("/auth", h.Login)
	r.With(throttle).Post("/auth/login", h.Login)
	r.Post("/auth/logout", h.Logout)

	// Posts.
	r.Get("/posts", h.ListPosts)
	r.Get("/posts/{slug}", h.GetPost)
	r.With(admin).Post("/posts", h.CreatePost)
	r.With(admin).Delete("/posts/{slug}", h.DeletePost)

	// Comments: listing checks the session itself since ?slug= is public.
	r.Get("/comments", h.ListComments)
	r.With(throttle).Post("/comments", h.CreateComment)
	r.With(admin).Put("/comments", h.UpdateComment)
	r.With(admin).Delete("/comments", h.DeleteComment)

	// Contact inbox.
	r.With(admin).Get("/messages", h.ListMessages)
	r.With(throttle).Post("/messages", h.CreateMessage)
	r.With(admin).Put("/messages", h.MarkMessageRead)
	r.With(admin).Delete("/messages", h.DeleteMessage)

	// Newsletter.
	r.With(admin).Get("/subscribers", h.ListSubscribers)
	r.With(throttle).Post("/subscribers", h.Subscribe)
	r.Delete("/subscribers", h.Unsubscribe)

	// Dashboard.
	r.With(admin).Get("/dashboard/stats", h.DashboardStats)
	if o.Events != nil {
		r.With(admin).Get("/dashboard/events", o.Events.ServeHTTP)
	}

	if o.Uploads != nil {
		r.With(admin).Post("/uploads", o.Uploads.Upload)
	}

	return r
}
