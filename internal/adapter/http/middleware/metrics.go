package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/Temutjin2k/dispatch-ops/pkg/metrics"
	"github.com/google/uuid"
)

// Metrics middleware records HTTP metrics
func (m *Middleware) Metrics(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip metrics endpoint to avoid recursion
			if r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			metrics.HttpRequestsInFlight.WithLabelValues(serviceName).Inc()
			defer metrics.HttpRequestsInFlight.WithLabelValues(serviceName).Dec()

			rw := &responseWriter{ResponseWriter: w}

			next.ServeHTTP(rw, r)

			metrics.RecordHTTPMetrics(serviceName, r.Method, pathLabel(r.URL.Path), rw.Status(), time.Since(start))
		})
	}
}

// pathLabel replaces id segments so the label set stays bounded.
func pathLabel(path string) string {
	if strings.HasPrefix(path, "/swagger/") {
		return "/swagger/"
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if _, err := uuid.Parse(p); err == nil {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}
