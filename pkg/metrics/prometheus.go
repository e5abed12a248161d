// Package metrics provides Prometheus metrics for the labeling service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// qualityBuckets covers the [0,1] quality score range.
var qualityBuckets = []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Pipeline metrics
	tasksServed      prometheus.Counter
	goldenInjections prometheus.Counter
	batchesServed    prometheus.Counter
	sessionsStarted  prometheus.Counter

	// Submission quality metrics
	submissions          prometheus.Counter
	submissionsDuplicate prometheus.Counter
	qualityScore         prometheus.Histogram
	validationIssues     *prometheus.CounterVec
	rewardsGranted       *prometheus.CounterVec

	// Rate limiter metrics
	rateLimited        prometheus.Counter
	rateLimitFailOpens prometheus.Counter

	// Store metrics
	storeEntries prometheus.Gauge
	storeEvicted prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid the default Go collectors.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "hotlabel",
		subsystem:        "core",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.tasksServed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tasks_served_total",
		Help:      "Total number of tasks handed out to sessions",
	})

	m.goldenInjections = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "golden_injections_total",
		Help:      "Total number of golden-set calibration tasks injected",
	})

	m.batchesServed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batches_served_total",
		Help:      "Total number of task batches handed out",
	})

	m.sessionsStarted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_started_total",
		Help:      "Total number of labeling sessions initialized",
	})

	m.submissions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submissions_total",
		Help:      "Total number of accepted task submissions",
	})

	m.submissionsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submissions_duplicate_total",
		Help:      "Total number of duplicate submissions resolved idempotently",
	})

	m.qualityScore = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "quality_score",
		Help:      "Distribution of validation quality scores",
		Buckets:   qualityBuckets,
	})

	m.validationIssues = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "validation_issues_total",
			Help:      "Total number of validation issue tags recorded",
		},
		[]string{"issue"},
	)

	m.rewardsGranted = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "rewards_granted_total",
			Help:      "Total number of rewards granted by tier",
		},
		[]string{"tier"},
	)

	m.rateLimited = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rate_limited_total",
		Help:      "Total number of requests rejected by the rate limiter",
	})

	m.rateLimitFailOpens = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rate_limit_fail_opens_total",
		Help:      "Total number of requests allowed because the shared store was unreachable",
	})

	m.storeEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_entries",
		Help:      "Current number of live entries in the shared store",
	})

	m.storeEvicted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_evicted_total",
		Help:      "Total number of entries removed by TTL expiry",
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
}

// Package-level helpers operating on the global manager.

// RecordTaskServed increments the served-task counter.
func RecordTaskServed() {
	globalManager.tasksServed.Inc()
}

// RecordGoldenInjection increments the golden-set injection counter.
func RecordGoldenInjection() {
	globalManager.goldenInjections.Inc()
}

// RecordBatchServed increments the batch counter.
func RecordBatchServed() {
	globalManager.batchesServed.Inc()
}

// RecordSessionStarted increments the session counter.
func RecordSessionStarted() {
	globalManager.sessionsStarted.Inc()
}

// RecordSubmission increments the submission counter and observes the score.
func RecordSubmission(qualityScore float64) {
	globalManager.submissions.Inc()
	globalManager.qualityScore.Observe(qualityScore)
}

// RecordSubmissionDuplicate increments the duplicate-submission counter.
func RecordSubmissionDuplicate() {
	globalManager.submissionsDuplicate.Inc()
}

// RecordValidationIssue increments the counter for one issue tag.
func RecordValidationIssue(issue string) {
	globalManager.validationIssues.WithLabelValues(issue).Inc()
}

// RecordRewardGranted increments the reward counter for a tier label.
func RecordRewardGranted(tier string) {
	globalManager.rewardsGranted.WithLabelValues(tier).Inc()
}

// RecordRateLimited increments the rejected-request counter.
func RecordRateLimited() {
	globalManager.rateLimited.Inc()
}

// RecordRateLimitFailOpen increments the fail-open counter.
func RecordRateLimitFailOpen() {
	globalManager.rateLimitFailOpens.Inc()
}

// UpdateStoreEntries sets the live-entry gauge.
func UpdateStoreEntries(count int) {
	globalManager.storeEntries.Set(float64(count))
}

// RecordStoreEvictions adds to the TTL eviction counter.
func RecordStoreEvictions(count int) {
	globalManager.storeEvicted.Add(float64(count))
}

// RecordHTTPRequest increments the request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes request latency in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMS float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMS)
}

// GetRegistry returns the custom Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
