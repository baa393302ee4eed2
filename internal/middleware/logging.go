package middleware

import (
	"net/http"
	"time"

	"github.com/rpattn/gradtrack/internal/auth"
	"github.com/rpattn/gradtrack/internal/domain"

	"github.com/sirupsen/logrus"
)

// RoleHeader carries the caller role set by the gateway.
const RoleHeader = "X-Caller-Role"

// responseWriter captures HTTP status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs method, path, status and duration of every request
func LoggingMiddleware(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			entry := log.WithFields(logrus.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rw.statusCode,
				"duration_ms": time.Since(start).Milliseconds(),
				"remote":      r.RemoteAddr,
			})
			if rw.statusCode >= http.StatusInternalServerError {
				entry.Error("request failed")
				return
			}
			entry.Info("request handled")
		})
	}
}

// CallerRoleMiddleware moves the gateway's role header into the request context.
// Unknown roles are dropped.
func CallerRoleMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := r.Header.Get(RoleHeader); raw != "" {
			if role, err := domain.ParseRoleTag(raw); err == nil {
				r = r.WithContext(auth.ContextWithRole(r.Context(), role))
			}
		}
		next.ServeHTTP(w, r)
	})
}
