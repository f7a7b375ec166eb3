package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllow_BurstThenDeny(t *testing.T) {
	l := New(Config{RequestsPerSecond: 1, Burst: 2}, nil)
	defer l.Stop()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("burst should be allowed")
	}
	if l.Allow("a") {
		t.Error("third request should be denied")
	}
	if !l.Allow("b") {
		t.Error("other client should have its own bucket")
	}
	now = now.Add(time.Second)
	if !l.Allow("a") {
		t.Error("token should refill after one second")
	}
}

func TestCleanup_EvictsIdle(t *testing.T) {
	l := New(Config{Expiry: time.Minute}, nil)
	defer l.Stop()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow("old")
	now = now.Add(2 * time.Minute)
	l.Allow("fresh")
	l.cleanup()
	if l.Len() != 1 {
		t.Errorf("len = %d, want 1", l.Len())
	}
}

func TestMiddleware_Returns429(t *testing.T) {
	l := New(Config{RequestsPerSecond: 0.001, Burst: 1}, nil)
	defer l.Stop()
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/comments", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("first status = %d", w.Code)
	}

	req.RemoteAddr = "10.0.0.1:5678"
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("second status = %d, want 429", w.Code)
	}
	if body := w.Body.String(); body != "{\"error\":\"Too many requests\"}\n" {
		t.Errorf("body = %q", body)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	l := New(DefaultConfig(), nil)
	l.Stop()
	l.Stop()
}
