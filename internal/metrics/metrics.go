// Package metrics exposes Prometheus collectors for generation requests and
// the HTTP API
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "pocket_meta"
)

var (
	// Generation requests
	GenerationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "requests_total",
			Help:      "Total number of metadata generation requests",
		},
		[]string{"template", "status"},
	)

	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "duration_seconds",
			Help:      "Metadata generation duration in seconds",
			Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"template"},
	)

	TokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_used_total",
			Help:      "Total tokens reported by the completion endpoint",
		},
		[]string{"provider", "model"},
	)

	// Batch runs
	BatchDocuments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "batch",
			Name:      "documents_total",
			Help:      "Documents processed by batch runs",
		},
		[]string{"status"},
	)

	// HTTP API
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Status label values
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusSkipped = "skipped"
)

// ObserveGeneration records one completed request
func ObserveGeneration(templateID, provider, model string, success bool, tokens int, durationMs int64) {
	status := StatusSuccess
	if !success {
		status = StatusFailure
	}
	GenerationTotal.WithLabelValues(templateID, status).Inc()
	GenerationDuration.WithLabelValues(templateID).Observe(float64(durationMs) / 1000)
	if tokens > 0 {
		TokensUsed.WithLabelValues(provider, model).Add(float64(tokens))
	}
}

// Handler serves the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
