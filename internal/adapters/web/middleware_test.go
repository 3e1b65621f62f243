package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAcceptableRequestID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"station-2", true},
		{"3f1c0a2e-77aa-4d2b-9a1e-0c7a51b0d1f2", true},
		{"", false},
		{"has space", false},
		{"semi;colon", false},
		{strings.Repeat("a", 65), false},
	}
	for _, tt := range tests {
		if got := acceptableRequestID(tt.id); got != tt.want {
			t.Errorf("acceptableRequestID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestRequestID_ReplacesUnsafeValue(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "<script>")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen == "" || seen == "<script>" {
		t.Fatalf("expected a generated id, got %q", seen)
	}
	if rec.Header().Get("X-Request-ID") != seen {
		t.Errorf("header and context ids differ")
	}
}

func TestCORS(t *testing.T) {
	h := CORS("https://ops.example.com, https://qc.example.com")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/weighings", nil)
	req.Header.Set("Origin", "https://qc.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://qc.example.com" {
		t.Errorf("allowed origin not echoed")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/weighings", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Errorf("unknown origin must not get CORS headers")
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("request should reach the handler, got %d", rec.Code)
	}
}
