// Package middleware provides the HTTP middleware chain every request
// passes through: request correlation, structured access logging, secure
// response headers, panic recovery, and RED metrics, grounded in the
// teacher's enterprise middleware stack but trimmed to what this core's
// composition root actually wires.
package middleware

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/deskkube/clustercore/internal/pkg/logger"
	"github.com/deskkube/clustercore/internal/pkg/metrics"
)

// statusRecorder captures the status code a handler writes so it can be
// logged and counted after the fact.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestID stamps every request with a correlation id, generating one
// when the caller didn't supply X-Request-ID, and echoes it back.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), logger.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// StructuredLog emits one JSON access-log line per request and records RED
// metrics (request count, duration) by method/path/status.
func StructuredLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		duration := time.Since(start)

		reqID := logger.FromContext(r.Context())
		logger.RequestLog(os.Stderr, reqID, "", r.Method, r.URL.Path, rec.status, duration, "")

		metrics.HTTPRequestTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDurationSeconds.WithLabelValues(r.Method, r.URL.Path).Observe(duration.Seconds())
	})
}

// SecureHeaders sets the small set of response headers appropriate for a
// loopback-only desktop backend: no caching of API responses, no MIME
// sniffing, no framing by another origin.
func SecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// Recovery converts a panicking handler into a 500 response instead of
// taking down the whole process.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.StdLogger().Error("panic recovered", "error", err, "path", r.URL.Path)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
