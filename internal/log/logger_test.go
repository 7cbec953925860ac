package log

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestMiddlewareCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Component: ComponentHTTP,
		Handler:   slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})

	h := Middleware(logger)(RequestIDMiddleware(func(*http.Request) string { return "req-42" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).InfoContext(r.Context(), "handled")
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	out := buf.String()
	if !strings.Contains(out, "request_id=req-42") || !strings.Contains(out, "component=http") {
		t.Fatalf("missing fields in %q", out)
	}
	if n := strings.Count(out, "component="); n != 1 {
		t.Errorf("component logged %d times in %q", n, out)
	}
}

func TestComponentLoggedOnce(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{
		Component: ComponentApp,
		Handler:   slog.NewTextHandler(&buf, nil),
	})

	base.WithComponent(ComponentWorker).InfoContext(context.Background(), "tick")
	// An explicit component field replaces the logger's own.
	base.WithComponent(ComponentHTTP).InfoContext(context.Background(), "mutation",
		NewFields().WithComponent(ComponentLedger).ToSlice()...)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %q", lines)
	}
	for i, want := range []string{"component=worker", "component=ledger"} {
		if n := strings.Count(lines[i], "component="); n != 1 {
			t.Errorf("line %d has %d component fields: %q", i, n, lines[i])
		}
		if !strings.Contains(lines[i], want) {
			t.Errorf("line %d = %q, want %s", i, lines[i], want)
		}
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	l := FromContext(context.Background())
	if l == nil || l.Component() != ComponentApp {
		t.Fatalf("unexpected fallback logger: %+v", l)
	}
}

func TestLogTransactionRecorded(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{
		Component: ComponentHTTP,
		Handler:   slog.NewTextHandler(&buf, nil),
	}))
	sl.LogTransactionRecorded(context.Background(), OpCreate, 7, "Expense", "Makan", 1550, false)

	out := buf.String()
	for _, want := range []string{"transaction_id=7", "category=Makan", "amount_cents=1550", "operation=create", "component=ledger"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
	if strings.Contains(out, "component=http") {
		t.Errorf("request component leaked into %q", out)
	}
}
