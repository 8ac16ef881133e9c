package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "companyhub_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "companyhub_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	directoryOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "companyhub_directory_operations_total",
		Help: "Company and user directory operations by entity, operation and result",
	}, []string{"entity", "operation", "result"})

	authAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "companyhub_auth_attempts_total",
		Help: "Login and token resolution attempts by kind and result",
	}, []string{"kind", "result"})

	batchEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "companyhub_batch_entries_total",
		Help: "Batch apply entries by operation and status",
	}, []string{"operation", "status"})

	storageCircuitState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "companyhub_storage_circuit_state",
		Help: "Storage circuit breaker state (0 closed, 1 open, 2 half-open)",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// ObserveDirectoryOperation counts a directory call; result is "ok" or an error class
func ObserveDirectoryOperation(entity, operation, result string) {
	directoryOperations.WithLabelValues(entity, operation, result).Inc()
}

// ObserveAuthAttempt counts a login or token resolution outcome
func ObserveAuthAttempt(kind, result string) {
	authAttempts.WithLabelValues(kind, result).Inc()
}

// ObserveBatchEntry counts one processed batch entry
func ObserveBatchEntry(operation, status string) {
	batchEntries.WithLabelValues(operation, status).Inc()
}

// SetStorageCircuitState publishes the numeric breaker state
func SetStorageCircuitState(state int) {
	storageCircuitState.Set(float64(state))
}
