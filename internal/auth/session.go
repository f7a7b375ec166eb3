// Package auth guards the admin surface with a shared password and a signed
// session cookie.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/starford/quill/internal/apperr"
)

// CookieName is the session cookie.
const CookieName = "admin-auth"

// DefaultTTL is the session lifetime when none is configured.
const DefaultTTL = 24 * time.Hour

// Options configures a Manager.
type Options struct {
	Password string
	// Secret signs session cookies. Empty means a random key per process,
	// so sessions end on restart.
	Secret string
	TTL    time.Duration
	Secure bool
}

type session struct {
	Role     string `json:"role"`
	IssuedAt int64  `json:"iat"`
}

// Manager issues and checks admin sessions.
type Manager struct {
	password []byte
	codec    *securecookie.SecureCookie
	ttl      time.Duration
	secure   bool
	now      func() time.Time
}

// NewManager creates a Manager.
func NewManager(opts Options, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	key := []byte(opts.Secret)
	if len(key) == 0 {
		key = securecookie.GenerateRandomKey(32)
		logger.Warn("auth: no session secret configured, sessions will not survive restarts")
	}
	if opts.Password == "" {
		logger.Warn("auth: no admin password configured, admin login is disabled")
	}
	codec := securecookie.New(key, nil)
	codec.MaxAge(int(opts.TTL.Seconds()))
	codec.SetSerializer(securecookie.JSONEncoder{})
	return &Manager{
		password: []byte(opts.Password),
		codec:    codec,
		ttl:      opts.TTL,
		secure:   opts.Secure,
		now:      time.Now,
	}
}

// CheckPassword compares candidate with the admin password in constant
// time. An unset password never matches.
func (m *Manager) CheckPassword(candidate string) bool {
	if len(m.password) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(m.password, []byte(candidate)) == 1
}

// Login sets the session cookie when password is correct.
func (m *Manager) Login(w http.ResponseWriter, password string) error {
	if !m.CheckPassword(password) {
		return apperr.ErrUnauthorized
	}
	value, err := m.codec.Encode(CookieName, session{Role: "admin", IssuedAt: m.now().Unix()})
	if err != nil {
		return fmt.Errorf("auth: encode session: %w", err)
	}
	http.SetCookie(w, m.cookie(value, int(m.ttl.Seconds())))
	return nil
}

// Logout clears the session cookie.
func (m *Manager) Logout(w http.ResponseWriter) {
	http.SetCookie(w, m.cookie("", -1))
}

// Authenticated reports whether r carries a valid, unexpired session.
func (m *Manager) Authenticated(r *http.Request) bool {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return false
	}
	var s session
	if err := m.codec.Decode(CookieName, c.Value, &s); err != nil {
		return false
	}
	return s.Role == "admin"
}

// RequireAdmin rejects requests without a session with 401.
func (m *Manager) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.Authenticated(r) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
