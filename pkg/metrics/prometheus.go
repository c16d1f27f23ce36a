// Package metrics provides Prometheus metrics for the marker rig.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// sendLatencyBuckets covers sub-millisecond UDP writes up to slow MQTT publishes.
var sendLatencyBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100} //nolint:gochecknoglobals // bucket layout

// Manager manages all Prometheus metrics for the rig.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Marker path
	markersDispatched *prometheus.CounterVec
	markerFailures    *prometheus.CounterVec
	advisoryFailures  *prometheus.CounterVec
	markerSendLatency prometheus.Histogram
	journalErrors     prometheus.Counter
	currentStage      prometheus.Gauge
	trialsCompleted   prometheus.Counter
	sessionsAborted   prometheus.Counter
	ratingsIgnored    prometheus.Counter

	// BCI path
	bciSamplesReceived prometheus.Counter
	bciDecodeErrors    prometheus.Counter
	bciConnected       prometheus.Gauge
	bciReactions       *prometheus.CounterVec
	bciValence         prometheus.Gauge
	bciArousal         prometheus.Gauge

	// Sample queue
	queueSize    prometheus.Gauge
	queueDropped prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "markerrig",
		subsystem:        "",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.markersDispatched = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "markers_dispatched_total",
		Help:      "Markers confirmed sent by the authoritative transport, by event name",
	}, []string{"name"})

	m.markerFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "marker_failures_total",
		Help:      "Marker dispatch failures by reason (code_not_found, transport)",
	}, []string{"reason"})

	m.advisoryFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "marker_advisory_failures_total",
		Help:      "Failures on advisory marker backends, by backend",
	}, []string{"backend"})

	m.markerSendLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "marker_send_latency_milliseconds",
		Help:      "Latency of the authoritative marker send in milliseconds",
		Buckets:   sendLatencyBuckets,
	})

	m.journalErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "journal_errors_total",
		Help:      "Session journal write failures",
	})

	m.currentStage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stage",
		Help:      "Current experiment stage (0=resting,1=video,2=valence,3=arousal,4=finished)",
	})

	m.trialsCompleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "trials_completed_total",
		Help:      "Trials whose arousal rating was received",
	})

	m.sessionsAborted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_aborted_total",
		Help:      "Sessions stopped by a marker or playback failure",
	})

	m.ratingsIgnored = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ratings_ignored_total",
		Help:      "Rating inputs received outside a rating stage or out of range",
	})

	m.bciSamplesReceived = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "bci_samples_received_total",
		Help:      "Valence/arousal samples decoded from the BCI stream",
	})

	m.bciDecodeErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "bci_decode_errors_total",
		Help:      "Malformed BCI frames dropped",
	})

	m.bciConnected = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "bci_connected",
		Help:      "1 while the BCI websocket is connected",
	})

	m.bciReactions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "bci_reactions_total",
		Help:      "Avatar reactions triggered, by reaction",
	}, []string{"reaction"})

	m.bciValence = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "bci_valence",
		Help:      "Latest observed valence",
	})

	m.bciArousal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "bci_arousal",
		Help:      "Latest observed arousal",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sample_queue_size",
		Help:      "Current number of samples waiting in the hand-off queue",
	})

	m.queueDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sample_queue_dropped_total",
		Help:      "Samples discarded because a newer one arrived on a full queue",
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

	m.httpErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_errors_total",
			Help:      "HTTP error responses by endpoint and error type",
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "Heap bytes allocated",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})
}

// Marker Path Functions.

// RecordMarkerDispatched increments the dispatched counter for an event name.
func RecordMarkerDispatched(name string) {
	globalManager.markersDispatched.WithLabelValues(name).Inc()
}

// RecordMarkerFailure increments the failure counter for a reason.
func RecordMarkerFailure(reason string) {
	globalManager.markerFailures.WithLabelValues(reason).Inc()
}

// RecordAdvisoryFailure increments the failure counter of an advisory backend.
func RecordAdvisoryFailure(backend string) {
	globalManager.advisoryFailures.WithLabelValues(backend).Inc()
}

// RecordMarkerSendLatency records the authoritative send latency.
func RecordMarkerSendLatency(latencyMs float64) {
	globalManager.markerSendLatency.Observe(latencyMs)
}

// RecordJournalError increments the journal write failure counter.
func RecordJournalError() {
	globalManager.journalErrors.Inc()
}

// UpdateStage sets the current stage gauge.
func UpdateStage(stage int) {
	globalManager.currentStage.Set(float64(stage))
}

// RecordTrialCompleted increments the completed trial counter.
func RecordTrialCompleted() {
	globalManager.trialsCompleted.Inc()
}

// RecordSessionAborted increments the aborted session counter.
func RecordSessionAborted() {
	globalManager.sessionsAborted.Inc()
}

// RecordRatingIgnored increments the ignored rating counter.
func RecordRatingIgnored() {
	globalManager.ratingsIgnored.Inc()
}

// BCI Functions.

// RecordBCISample increments the decoded sample counter.
func RecordBCISample() {
	globalManager.bciSamplesReceived.Inc()
}

// RecordBCIDecodeError increments the dropped frame counter.
func RecordBCIDecodeError() {
	globalManager.bciDecodeErrors.Inc()
}

// UpdateBCIConnected sets the connection gauge.
func UpdateBCIConnected(connected bool) {
	if connected {
		globalManager.bciConnected.Set(1)
		return
	}
	globalManager.bciConnected.Set(0)
}

// RecordReaction increments the reaction counter.
func RecordReaction(reaction string) {
	globalManager.bciReactions.WithLabelValues(reaction).Inc()
}

// UpdateAffect sets the latest valence and arousal gauges.
func UpdateAffect(valence, arousal float64) {
	globalManager.bciValence.Set(valence)
	globalManager.bciArousal.Set(arousal)
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current sample queue depth.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// RecordQueueDrop increments the dropped sample counter.
func RecordQueueDrop() {
	globalManager.queueDropped.Inc()
}

// HTTP Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordHTTPError records an error response by type.
func RecordHTTPError(endpoint, method, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
