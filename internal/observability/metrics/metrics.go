package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Common label names for consistent metrics
const (
	LabelStatus  = "status"
	LabelMethod  = "method"
	LabelPath    = "path"
	LabelOutcome = "outcome"
	LabelName    = "name"
	LabelBackend = "backend"
	LabelSuccess = "success"
)

var (
	// RequestsTotal counts all HTTP requests
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenware_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	// RequestDuration tracks the duration of HTTP requests
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tokenware_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	// TokensIssuedTotal counts signing attempts by outcome
	TokensIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenware_tokens_issued_total",
			Help: "Total number of bearer tokens signed",
		},
		[]string{LabelSuccess},
	)

	// ClassificationsTotal counts request classifications by outcome
	ClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenware_classifications_total",
			Help: "Total number of classified requests by outcome",
		},
		[]string{LabelOutcome},
	)

	// ErrorsTotal counts tokenware errors by name
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenware_errors_total",
			Help: "Total number of tokenware errors by name",
		},
		[]string{LabelName},
	)

	// RevocationsTotal counts revocation store operations
	RevocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenware_revocations_total",
			Help: "Total number of tokens revoked",
		},
		[]string{LabelBackend, LabelSuccess},
	)
)

// Collector provides methods for recording metrics
type Collector struct{}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{}
}

// RecordRequest records metrics for an HTTP request
func (c *Collector) RecordRequest(method, path string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	RequestsTotal.WithLabelValues(method, path, http.StatusText(status)).Inc()
	RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordIssued records a signing attempt
func (c *Collector) RecordIssued(success bool) {
	if c == nil {
		return
	}
	TokensIssuedTotal.WithLabelValues(boolToString(success)).Inc()
}

// RecordClassification records the outcome of classifying a request
func (c *Collector) RecordClassification(outcome string) {
	if c == nil {
		return
	}
	ClassificationsTotal.WithLabelValues(outcome).Inc()
}

// RecordError records an error by its name
func (c *Collector) RecordError(name string) {
	if c == nil {
		return
	}
	ErrorsTotal.WithLabelValues(name).Inc()
}

// RecordRevocation records a revocation against a backend
func (c *Collector) RecordRevocation(backend string, success bool) {
	if c == nil {
		return
	}
	RevocationsTotal.WithLabelValues(backend, boolToString(success)).Inc()
}

// Handler returns an HTTP handler for exposing metrics
func Handler() http.Handler {
	return promhttp.Handler()
}

// boolToString converts a boolean to a string representation
func boolToString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
