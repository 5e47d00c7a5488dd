package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/madhusudan785/SnapStream/internal/observability"
)

// Recovery recovers from handler panics, logs them, and returns a 500.
// Logs go through the request-scoped logger when the logging middleware
// runs first, falling back to the default logger otherwise.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				observability.LoggerFromContext(r.Context()).ErrorContext(r.Context(), "panic recovered",
					"error", err,
					"stack", string(debug.Stack()),
					"method", r.Method,
					"path", r.URL.Path,
				)

				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
