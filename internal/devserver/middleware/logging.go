// ABOUTME: HTTP request logging middleware with correlation IDs.
// ABOUTME: Logs request start/end with method, path, status, and latency.

package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries the correlation ID on every response.
const RequestIDHeader = "X-Request-ID"

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// LogRequest returns middleware logging HTTP requests with timing and correlation ID.
func LogRequest(log *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := uuid.NewString()
			path := sanitizePath(r.URL.Path)

			w.Header().Set(RequestIDHeader, requestID)

			log.Info("Request started",
				"request_id", requestID,
				"method", r.Method,
				"path", path,
			)

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next(wrapped, r)

			log.Info("Request completed",
				"request_id", requestID,
				"method", r.Method,
				"path", path,
				"status", wrapped.statusCode,
				"latency_ms", time.Since(start).Milliseconds(),
			)
		}
	}
}

// sanitizePath drops control characters so a request path cannot forge log lines.
func sanitizePath(p string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, p)
}
