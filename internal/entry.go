// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/quill/internal/api"
	"github.com/starford/quill/internal/auth"
	"github.com/starford/quill/internal/community"
	"github.com/starford/quill/internal/content"
	"github.com/starford/quill/internal/markdown"
	"github.com/starford/quill/internal/mcpserver"
	"github.com/starford/quill/internal/postservice"
	"github.com/starford/quill/internal/ratelimit"
	"github.com/starford/quill/internal/sse"
	"github.com/starford/quill/internal/store"
	"github.com/starford/quill/internal/uploads"
	"github.com/starford/quill/internal/web"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := newApplication(opts...)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger := newLogger(cfg.App, app.logOutput)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("content_backend", cfg.Content.Backend),
		slog.String("renderer", cfg.Content.Renderer),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	provider, err := newContentProvider(cfg.Content)
	if err != nil {
		return err
	}
	posts := newPostService(cfg.Content, provider, logger)

	// Initialize SQLite document store.
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	comm := community.New(db, posts, broker.PublishActivity, logger)

	sessions := auth.NewManager(auth.Options{
		Password: cfg.Auth.Password,
		Secret:   cfg.Auth.SessionSecret,
		TTL:      cfg.Auth.SessionTTL,
		Secure:   cfg.Auth.SecureCookie,
	}, logger)

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(ratelimit.Config{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}, logger)
		defer limiter.Stop()
	}

	images := api.NewUploadHandler(uploads.New(cfg.Uploads.Dir, cfg.Uploads.MaxBytes))

	apiRouter := api.NewRouter(api.Options{
		Posts:     posts,
		Community: comm,
		Auth:      sessions,
		Limiter:   limiter,
		Events:    broker,
		Uploads:   images,
	})

	pages, err := web.New(web.Site{Title: cfg.Site.Title, BaseURL: cfg.Site.BaseURL}, posts, comm, logger)
	if err != nil {
		return fmt.Errorf("init pages: %w", err)
	}

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	checks := map[string]web.Checker{"sqlite": comm.Ready}
	if cfg.Content.Backend == BackendFS {
		checks["content"] = func(ctx context.Context) error {
			_, err := provider.List(ctx)
			return err
		}
	}
	r.Get("/health/live", web.Live)
	r.Get("/health/ready", web.Ready(logger, checks))

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	r.Get("/uploads/{filename}", images.ServeFile)
	pages.Routes(r)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch local posts: drop stale cache entries and notify dashboards.
	if cfg.Content.Backend == BackendFS && cfg.Content.Watch {
		g.Go(func() error {
			err := content.Watch(gCtx, cfg.Content.Dir, logger, func(kind, slug string) {
				posts.Invalidate(slug)
				broker.PublishPostEvent(kind, slug)
			})
			if err != nil {
				logger.Warn("content watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the authoring tools over stdio. Logs go to stderr since
// stdout carries the protocol.
func RunMCP(_ context.Context, opts ...Option) error {
	app := newApplication(append([]Option{WithLogOutput(os.Stderr)}, opts...)...)
	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	cfg := app.config

	logger := newLogger(cfg.App, app.logOutput)
	slog.SetDefault(logger)

	provider, err := newContentProvider(cfg.Content)
	if err != nil {
		return err
	}
	posts := newPostService(cfg.Content, provider, logger)
	images := uploads.New(cfg.Uploads.Dir, cfg.Uploads.MaxBytes)

	logger.Info("MCP server starting", slog.String("content_backend", cfg.Content.Backend))
	return mcpserver.New(posts, images, logger).ServeStdio()
}

// newLogger builds the process logger: JSON lines, or charm's colored
// text output for local use.
func newLogger(cfg ApplicationConfig, w io.Writer) *slog.Logger {
	if cfg.LogFormat == LogFormatText {
		handler := charmlog.NewWithOptions(w, charmlog.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
			Level:           charmlog.Level(cfg.LogLevel),
		})
		return slog.New(handler)
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
}

func newContentProvider(cfg ContentConfig) (content.Provider, error) {
	switch cfg.Backend {
	case BackendGitHub:
		gh, err := content.NewGitHub(content.GitHubOptions{
			Owner:  cfg.GitHub.Owner,
			Repo:   cfg.GitHub.Repo,
			Token:  cfg.GitHub.Token,
			Branch: cfg.GitHub.Branch,
			Dir:    cfg.GitHub.PostsPath,
			APIURL: cfg.GitHub.APIURL,
		})
		if err != nil {
			return nil, fmt.Errorf("init github content: %w", err)
		}
		return gh, nil
	default:
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create posts dir: %w", err)
		}
		fs, err := content.NewFS(cfg.Dir)
		if err != nil {
			return nil, fmt.Errorf("init fs content: %w", err)
		}
		return fs, nil
	}
}

func newPostService(cfg ContentConfig, provider content.Provider, logger *slog.Logger) *postservice.Service {
	return postservice.New(provider, postservice.Options{
		Renderer:  markdown.New(cfg.Renderer),
		CacheSize: cfg.CacheSize,
		CacheTTL:  cfg.CacheTTL,
		Logger:    logger,
	})
}
