package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/quill/internal/markdown"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Content backends.
const (
	BackendGitHub = "github"
	BackendFS     = "fs"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app" toml:"app"`
	Site      SiteConfig        `yaml:"site" toml:"site"`
	Content   ContentConfig     `yaml:"content" toml:"content"`
	SQLite    SQLiteConfig      `yaml:"sqlite" toml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth" toml:"auth"`
	Uploads   UploadsConfig     `yaml:"uploads" toml:"uploads"`
	RateLimit RateLimitConfig   `yaml:"rate_limit" toml:"rate_limit"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.App),
		validation.Field(&c.Site),
		validation.Field(&c.Content),
		validation.Field(&c.SQLite),
		validation.Field(&c.Auth),
		validation.Field(&c.Uploads),
		validation.Field(&c.RateLimit),
	)
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level" toml:"log_level"`
	LogFormat string     `yaml:"log_format" toml:"log_format"`
	HTTP      HTTPConfig `yaml:"http" toml:"http"`
}

// Validate validates the application configuration.
func (c ApplicationConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.LogFormat, validation.In(LogFormatJSON, LogFormatText)),
		validation.Field(&c.HTTP),
	)
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" toml:"port"`
}

// Address returns HTTP server address.
func (c HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c HTTPConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SiteConfig describes the public site.
type SiteConfig struct {
	Title   string `yaml:"title" toml:"title"`
	BaseURL string `yaml:"base_url" toml:"base_url"`
}

// Validate validates the site configuration.
func (c SiteConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, is.URL),
	)
}

// ContentConfig selects where posts live and how they are rendered.
type ContentConfig struct {
	Backend   string        `yaml:"backend" toml:"backend"`
	Dir       string        `yaml:"dir" toml:"dir"`
	Watch     bool          `yaml:"watch" toml:"watch"`
	GitHub    GitHubConfig  `yaml:"github" toml:"github"`
	Renderer  string        `yaml:"renderer" toml:"renderer"`
	CacheSize int           `yaml:"cache_size" toml:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl" toml:"cache_ttl"`
}

// Validate validates the content configuration.
func (c ContentConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendGitHub, BackendFS)),
		validation.Field(&c.Dir, validation.When(c.Backend == BackendFS, validation.Required)),
		validation.Field(&c.GitHub, validation.Skip.When(c.Backend != BackendGitHub)),
		validation.Field(&c.Renderer, validation.In(markdown.KindLegacy, markdown.KindCommonMark)),
		validation.Field(&c.CacheSize, validation.Min(0)),
		validation.Field(&c.CacheTTL, validation.Min(time.Duration(0))),
	)
}

// GitHubConfig locates the posts directory in a GitHub repository.
type GitHubConfig struct {
	Owner     string `yaml:"owner" toml:"owner"`
	Repo      string `yaml:"repo" toml:"repo"`
	Token     string `yaml:"token" toml:"token"`
	Branch    string `yaml:"branch" toml:"branch"`
	PostsPath string `yaml:"posts_path" toml:"posts_path"`
	APIURL    string `yaml:"api_url" toml:"api_url"`
}

// Validate validates the GitHub configuration.
func (c GitHubConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Owner, validation.Required),
		validation.Field(&c.Repo, validation.Required),
		validation.Field(&c.APIURL, is.URL),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// Validate validates the SQLite configuration.
func (c SQLiteConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds the admin credentials and session settings.
//
// An empty Password disables admin login. An empty SessionSecret signs
// cookies with a per-process random key.
type AuthConfig struct {
	Password      string        `yaml:"password" toml:"password"`
	SessionSecret string        `yaml:"session_secret" toml:"session_secret"`
	SessionTTL    time.Duration `yaml:"session_ttl" toml:"session_ttl"`
	SecureCookie  bool          `yaml:"secure_cookie" toml:"secure_cookie"`
}

// Validate validates the auth configuration.
func (c AuthConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SessionSecret, validation.When(c.SessionSecret != "", validation.Length(16, 0))),
		validation.Field(&c.SessionTTL, validation.Min(time.Duration(0))),
	)
}

// UploadsConfig holds image upload settings.
type UploadsConfig struct {
	Dir      string `yaml:"dir" toml:"dir"`
	MaxBytes int64  `yaml:"max_bytes" toml:"max_bytes"`
}

// Validate validates the uploads configuration.
func (c UploadsConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.MaxBytes, validation.Min(int64(0))),
	)
}

// RateLimitConfig throttles public submissions per client IP.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" toml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second" toml:"requests_per_second"`
	Burst             int     `yaml:"burst" toml:"burst"`
}

// Validate validates the rate limit configuration.
func (c RateLimitConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.RequestsPerSecond, validation.When(c.Enabled, validation.Required, validation.Min(0.0))),
		validation.Field(&c.Burst, validation.When(c.Enabled, validation.Required, validation.Min(1))),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: LogFormatJSON,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Site: SiteConfig{
			Title:   "Blog",
			BaseURL: "http://localhost:8080",
		},
		Content: ContentConfig{
			Backend: BackendFS,
			Dir:     "./posts",
			Watch:   true,
			GitHub: GitHubConfig{
				PostsPath: "posts",
			},
			Renderer:  markdown.KindLegacy,
			CacheSize: 256,
			CacheTTL:  time.Hour,
		},
		SQLite: SQLiteConfig{
			Path: "./quill.db",
		},
		Auth: AuthConfig{
			SessionTTL: 24 * time.Hour,
		},
		Uploads: UploadsConfig{
			Dir:      "./uploads",
			MaxBytes: 5 << 20,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 0.5,
			Burst:             5,
		},
	}
}
