package http

import (
	"net/http"
	"strings"
	"time"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{w, http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func WithMetrics(next http.Handler, metrics *Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := newResponseWriter(w)

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		metrics.RecordRequest(r.Context(), r.Method, normalizePath(r.URL.Path), rw.statusCode, duration)
	})
}

// normalizePath collapses book IDs so the path attribute stays low-cardinality.
func normalizePath(path string) string {
	if rest, ok := strings.CutPrefix(path, "/v1/books/"); ok && rest != "" {
		if strings.HasSuffix(rest, "/archive") {
			return "/v1/books/{id}/archive"
		}
		return "/v1/books/{id}"
	}
	return path
}
