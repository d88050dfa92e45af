package fakeapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T, cfg Config) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store, err := LoadFixtures()
	if err != nil {
		t.Fatalf("load fixtures: %v", err)
	}
	return New(store, cfg, nil)
}

func doRequest(s *Server, method, url string, hdr map[string]string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, url, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestGetResourceByIDAndName(t *testing.T) {
	s := newTestRouter(t, Config{})

	for _, url := range []string{"/api/v1/pokemon/1/", "/api/v1/pokemon/bulbasaur/", "/api/v1/pokemon/BULBASAUR/"} {
		w := doRequest(s, http.MethodGet, url, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", url, w.Code)
		}
		var body map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: decode: %v", url, err)
		}
		if body["name"] != "Bulbasaur" {
			t.Fatalf("%s: unexpected name %v", url, body["name"])
		}
	}
	if s.Hits() != 3 {
		t.Fatalf("expected 3 hits, got %d", s.Hits())
	}
}

func TestGetResourceNotFound(t *testing.T) {
	s := newTestRouter(t, Config{})

	cases := []string{
		"/api/v1/pokemon/Rick_James/",
		"/api/v1/pokemon/999/",
		"/api/v1/berry/1/",
		"/api/v1/ayyy.lmao",
		"/nowhere",
	}
	for _, url := range cases {
		w := doRequest(s, http.MethodGet, url, nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", url, w.Code)
		}
	}
}

func TestMissingTrailingSlashRedirects(t *testing.T) {
	s := newTestRouter(t, Config{})

	w := doRequest(s, http.MethodGet, "/api/v1/move/1", nil)
	if w.Code != http.StatusMovedPermanently {
		t.Fatalf("expected 301, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/api/v1/move/1/" {
		t.Fatalf("unexpected location %q", loc)
	}
}

func TestSecurityHeadersAndCORS(t *testing.T) {
	s := newTestRouter(t, Config{AllowedOrigins: []string{"http://localhost:3000"}})

	w := doRequest(s, http.MethodGet, "/healthz", map[string]string{"Origin": "http://localhost:3000"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("missing nosniff header, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("unexpected allow-origin %q", got)
	}

	w = doRequest(s, http.MethodGet, "/healthz", map[string]string{"Origin": "http://evil.example"})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("origin should not be allowed, got %q", got)
	}

	w = doRequest(s, http.MethodOptions, "/api/v1/pokemon/1/", map[string]string{"Origin": "http://localhost:3000"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestRouter(t, Config{RateLimitRPS: 0.01, RateLimitBurst: 2})

	for i := 0; i < 2; i++ {
		if w := doRequest(s, http.MethodGet, "/api/v1/type/1/", nil); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}
	if w := doRequest(s, http.MethodGet, "/api/v1/type/1/", nil); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
}

func TestStatusAndVersion(t *testing.T) {
	s := newTestRouter(t, Config{})

	w := doRequest(s, http.MethodGet, "/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var status struct {
		Kinds map[string]int `json:"kinds"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.Kinds["description"] != 2 {
		t.Fatalf("expected 2 descriptions, got %d", status.Kinds["description"])
	}

	if w := doRequest(s, http.MethodGet, "/version", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
