package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "autofint/internal/log"
)

func newTraced(buf *bytes.Buffer, h http.HandlerFunc) http.Handler {
	logger := applog.New(applog.Config{
		Component: applog.ComponentHTTP,
		Handler:   slog.NewTextHandler(buf, nil),
	})
	return NewMiddleware(logger, func(*http.Request) string { return "9.9.9.9" }).Middleware(h)
}

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	var seen string
	h := newTraced(&buf, func(w http.ResponseWriter, r *http.Request) {
		seen = FromRequest(r)
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/summary", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id %q not generated", seen)
	}
	if rr.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("response header %q, want %q", rr.Header().Get(RequestIDHeader), seen)
	}
	out := buf.String()
	for _, want := range []string{"status_code=418", "client_ip=9.9.9.9", "path=/api/summary", "level=WARN", "request_id=" + seen} {
		if !strings.Contains(out, want) {
			t.Errorf("log %q missing %q", out, want)
		}
	}
}

func TestMiddlewareKeepsIncomingRequestID(t *testing.T) {
	var buf bytes.Buffer
	var seen string
	h := newTraced(&buf, func(w http.ResponseWriter, r *http.Request) { seen = FromRequest(r) })

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, "abc-123")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if seen != "abc-123" {
		t.Fatalf("request id = %q, want abc-123", seen)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, strings.Repeat("x", 100))
	h.ServeHTTP(httptest.NewRecorder(), r)
	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("overlong id must be replaced, got %q", seen)
	}
}

func TestStatusDefaultsToOK(t *testing.T) {
	var buf bytes.Buffer
	h := newTraced(&buf, func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(buf.String(), "status_code=200") {
		t.Fatalf("log %q missing status 200", buf.String())
	}
}
