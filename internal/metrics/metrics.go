// Package metrics holds the Prometheus collectors shared by the services and
// the HTTP adapter.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TokenExchanges counts client-credentials grants by outcome
	// (ok, not_configured, http_error, no_token, error).
	TokenExchanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reqbridge_token_exchanges_total",
			Help: "Client-credentials token exchanges by outcome.",
		},
		[]string{"outcome"},
	)

	// SyncRuns counts import and delete runs by outcome.
	SyncRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reqbridge_sync_runs_total",
			Help: "Synchronization runs by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)

	// SyncObjects counts objects accepted or rejected by the graph store.
	SyncObjects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reqbridge_sync_objects_total",
			Help: "Objects written by import runs, by result.",
		},
		[]string{"result"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reqbridge_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reqbridge_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(TokenExchanges, SyncRuns, SyncObjects, httpRequestsTotal, httpRequestDuration)
}

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records request counts and latencies. The mux pattern is used as
// the route label so path parameters do not explode cardinality.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
