// Package metrics provides Prometheus metrics for the rover navigation service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the rover service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Ingestion metrics - what arrives and what gets dropped
	observationsAdmitted prometheus.Counter
	observationsInvalid  prometheus.Counter
	observationsStale    prometheus.Counter

	// Decision metrics - the engine's output profile
	decisionsTotal   *prometheus.CounterVec
	decisionErrors   *prometheus.CounterVec
	decisionLatency  prometheus.Histogram
	perceptionCalls  prometheus.Counter
	perceptionErrors prometheus.Counter
	perceptionTime   prometheus.Histogram

	// Dispatch metrics
	commandsPublished prometheus.Counter
	publishRetries    prometheus.Counter
	publishFailures   prometheus.Counter

	// Operational health
	queueSize    prometheus.Gauge
	workerCount  prometheus.Gauge
	ballsCarried prometheus.Gauge
	historySize  prometheus.Gauge

	// HTTP performance
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Process health
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "rover",
		subsystem:        "nav",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.observationsAdmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "observations_admitted_total",
		Help:      "Total number of sensor observations admitted to the decision engine",
	})

	m.observationsInvalid = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "observations_rejected_invalid_total",
		Help:      "Total number of observations rejected for missing required fields",
	})

	m.observationsStale = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "observations_rejected_stale_total",
		Help:      "Total number of observations rejected as stale or out of order",
	})

	m.decisionsTotal = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "decisions_total",
			Help:      "Total number of drive commands produced, by goal tag",
		},
		[]string{"goal"},
	)

	m.decisionErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "decision_errors_total",
			Help:      "Total number of decision cycles that failed, by error kind",
		},
		[]string{"kind"},
	)

	m.decisionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "decision_latency_milliseconds",
		Help:      "Histogram of decision cycle latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.perceptionCalls = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "perception_calls_total",
		Help:      "Total number of perception service invocations",
	})

	m.perceptionErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "perception_errors_total",
		Help:      "Total number of failed perception service invocations",
	})

	m.perceptionTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "perception_latency_milliseconds",
		Help:      "Histogram of perception call latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.commandsPublished = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "commands_published_total",
		Help:      "Total number of drive commands published to the vehicle",
	})

	m.publishRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "publish_retries_total",
		Help:      "Total number of publish retry attempts",
	})

	m.publishFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "publish_failures_total",
		Help:      "Total number of commands dropped after exhausting publish retries",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current size of the observation queue (backlog indicator)",
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Current number of decision workers",
	})

	m.ballsCarried = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "balls_carried",
		Help:      "Ball count reported by the most recent admitted observation",
	})

	m.historySize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "history_size",
		Help:      "Number of commands in the in-memory command history",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "Current memory usage of the process in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Current number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_milliseconds",
		Help:      "Histogram of garbage collection pause times in milliseconds",
		Buckets:   m.histogramBuckets,
	})
}

// GetRegistry returns the custom Prometheus registry used for rover metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Ingestion metrics functions.

// RecordObservationAdmitted increments the admitted observations counter.
func RecordObservationAdmitted() {
	globalManager.observationsAdmitted.Inc()
}

// RecordObservationInvalid increments the format-invalid rejection counter.
func RecordObservationInvalid() {
	globalManager.observationsInvalid.Inc()
}

// RecordObservationStale increments the stale/out-of-order rejection counter.
func RecordObservationStale() {
	globalManager.observationsStale.Inc()
}

// Decision metrics functions.

// RecordDecision increments the decision counter for a goal tag.
func RecordDecision(goal string) {
	globalManager.decisionsTotal.WithLabelValues(goal).Inc()
}

// RecordDecisionError increments the decision error counter for an error kind.
func RecordDecisionError(kind string) {
	globalManager.decisionErrors.WithLabelValues(kind).Inc()
}

// RecordDecisionLatency records one decision cycle's latency.
func RecordDecisionLatency(latencyMs float64) {
	globalManager.decisionLatency.Observe(latencyMs)
}

// RecordPerceptionCall increments the perception invocation counter.
func RecordPerceptionCall() {
	globalManager.perceptionCalls.Inc()
}

// RecordPerceptionError increments the perception failure counter.
func RecordPerceptionError() {
	globalManager.perceptionErrors.Inc()
}

// RecordPerceptionLatency records one perception call's latency.
func RecordPerceptionLatency(latencyMs float64) {
	globalManager.perceptionTime.Observe(latencyMs)
}

// Dispatch metrics functions.

// RecordCommandPublished increments the published commands counter.
func RecordCommandPublished() {
	globalManager.commandsPublished.Inc()
}

// RecordPublishRetry increments the publish retry counter.
func RecordPublishRetry() {
	globalManager.publishRetries.Inc()
}

// RecordPublishFailure increments the publish failure counter.
func RecordPublishFailure() {
	globalManager.publishFailures.Inc()
}

// Operational health functions.

// UpdateQueueSize sets the current observation queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateWorkerCount sets the current number of decision workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateBallsCarried sets the most recently reported ball count.
func UpdateBallsCarried(count int) {
	globalManager.ballsCarried.Set(float64(count))
}

// UpdateHistorySize sets the current command history length.
func UpdateHistorySize(size int) {
	globalManager.historySize.Set(float64(size))
}

// UpdateSystemMemoryUsage sets the current process memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the current goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records an average GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// HTTP metrics functions.

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records an HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}
