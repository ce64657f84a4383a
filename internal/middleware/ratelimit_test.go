package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func hit(h http.Handler, path, remoteAddr, xff string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remoteAddr
	if xff != "" {
		req.Header.Set("X-Forwarded-For", xff)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRateLimitAllowsBurst(t *testing.T) {
	h := RateLimitMiddleware(RateLimitOptions{RPS: 10, Burst: 5})(okHandler)
	for i := 0; i < 5; i++ {
		if rr := hit(h, "/api/app/bootstrap", "192.168.1.1:12345", ""); rr.Code != http.StatusOK {
			t.Errorf("request %d: expected 200, got %d", i+1, rr.Code)
		}
	}
}

func TestRateLimitRejectsOverBurst(t *testing.T) {
	h := RateLimitMiddleware(RateLimitOptions{RPS: 1, Burst: 2})(okHandler)
	hit(h, "/api/translation", "10.0.0.1:1", "")
	hit(h, "/api/translation", "10.0.0.1:1", "")

	rr := hit(h, "/api/translation", "10.0.0.1:1", "")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "1" {
		t.Errorf("expected Retry-After 1, got %q", rr.Header().Get("Retry-After"))
	}
	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "rate limit exceeded" {
		t.Errorf("unexpected error %q", body["error"])
	}
}

func TestRateLimitPerClientAndIgnoresXFF(t *testing.T) {
	h := RateLimitMiddleware(RateLimitOptions{RPS: 1, Burst: 1})(okHandler)

	if rr := hit(h, "/", "10.0.0.1:1", "203.0.113.50"); rr.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", rr.Code)
	}
	if rr := hit(h, "/", "10.0.0.1:2", "198.51.100.99"); rr.Code != http.StatusTooManyRequests {
		t.Errorf("a different X-Forwarded-For must not reset the bucket, got %d", rr.Code)
	}
	if rr := hit(h, "/", "10.0.0.2:1", "203.0.113.50"); rr.Code != http.StatusOK {
		t.Errorf("another client must have its own bucket, got %d", rr.Code)
	}
}

func TestRateLimitExemptPaths(t *testing.T) {
	h := RateLimitMiddleware(RateLimitOptions{RPS: 1, Burst: 1, Exempt: []string{"/healthz", "/api/session"}})(okHandler)

	hit(h, "/api/app/bootstrap", "10.0.0.1:1", "")
	for i := 0; i < 3; i++ {
		if rr := hit(h, "/healthz", "10.0.0.1:1", ""); rr.Code != http.StatusOK {
			t.Errorf("health check %d limited: %d", i+1, rr.Code)
		}
		if rr := hit(h, "/api/session", "10.0.0.1:1", ""); rr.Code != http.StatusOK {
			t.Errorf("session upgrade %d limited: %d", i+1, rr.Code)
		}
	}
	if rr := hit(h, "/api/app/bootstrap", "10.0.0.1:1", ""); rr.Code != http.StatusTooManyRequests {
		t.Errorf("expected other paths to stay limited, got %d", rr.Code)
	}
}

func TestRateLimitWithMuxRouter(t *testing.T) {
	r := mux.NewRouter()
	r.Use(RateLimitMiddleware(RateLimitOptions{RPS: 1, Burst: 1}))
	r.Handle("/api/scalprum/plugins", okHandler).Methods(http.MethodGet)

	if rr := hit(r, "/api/scalprum/plugins", "10.0.0.1:1", ""); rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr := hit(r, "/api/scalprum/plugins", "10.0.0.1:1", ""); rr.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rr.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:8080"
	req.Header.Set("X-Forwarded-For", "203.0.113.50, 70.41.3.18")
	if got := clientIP(req); got != "192.168.1.1" {
		t.Errorf("expected peer address, got %q", got)
	}

	req.RemoteAddr = "192.168.1.1"
	if got := clientIP(req); got != "192.168.1.1" {
		t.Errorf("expected raw RemoteAddr without port, got %q", got)
	}
}
