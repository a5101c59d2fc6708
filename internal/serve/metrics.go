// SPDX-License-Identifier: MIT

package serve

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "packspec_http_requests_total",
		Help: "Total number of HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "packspec_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	httpRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "packspec_http_requests_in_flight",
		Help: "Number of HTTP requests currently being served",
	})

	artifactDownloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "packspec_artifact_downloads_total",
		Help: "Number of artifact requests resulting in 200 OK (content served)",
	})

	artifactBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "packspec_artifact_bytes_total",
		Help: "Total artifact bytes handed to the HTTP layer",
	})

	artifactRequestsDeniedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "packspec_artifact_requests_denied_total",
		Help: "Number of artifact requests denied for security reasons",
	}, []string{"reason"})

	artifactCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "packspec_artifact_cache_hits_total",
		Help: "Number of artifact requests served as 304 Not Modified",
	})

	rateLimitExceededTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "packspec_ratelimit_exceeded_total",
		Help: "Number of requests rejected due to rate limiting",
	}, []string{"limit_type"})
)

func recordArtifactServed(bytes int64) {
	artifactDownloadsTotal.Inc()
	if bytes > 0 {
		artifactBytesTotal.Add(float64(bytes))
	}
}

func recordArtifactDenied(reason string) {
	artifactRequestsDeniedTotal.WithLabelValues(reason).Inc()
}

func recordArtifactCacheHit() {
	artifactCacheHitsTotal.Inc()
}

func recordRateLimitExceeded(limitType string) {
	rateLimitExceededTotal.WithLabelValues(limitType).Inc()
}

// metricsWriter captures the status code written by downstream handlers.
type metricsWriter struct {
	http.ResponseWriter
	status int
}

func (w *metricsWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Metrics instruments every request with duration, count and in-flight
// gauges. The path label uses the chi route pattern, not the raw URL, to
// keep cardinality bounded.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		mw := &metricsWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(mw, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := strconv.Itoa(mw.status)

		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}
