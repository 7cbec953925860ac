package http

import (
	"fmt"
	"net/http"
	"runtime/debug"

	applog "autofint/internal/log"
)

// recoverPanic turns a handler panic into a 500 whose body is the raw panic
// value and stack. The app is single-user; the diagnostic is for its owner.
func (s *Server) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			stack := debug.Stack()
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Handler panicked",
				applog.FieldError, fmt.Sprint(rec),
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)

			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Cache-Control", "no-store")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = fmt.Fprintf(w, "internal error: %v\n\n%s", rec, stack)
		}()
		next.ServeHTTP(w, r)
	})
}
