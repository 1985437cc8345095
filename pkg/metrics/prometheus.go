// Package metrics provides Prometheus metrics for the aclguard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values shared by callers.
const (
	SourceStream = "stream"
	SourceBatch  = "batch"

	LaneOutcomeNormal = "normal"
	LaneOutcomeFailed = "failed"

	TriggerRequest  = "request"
	TriggerBatch    = "batch"
	TriggerReassess = "reassess"
)

// Manager owns every collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	latencyBuckets   []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// ingestion
	samplesIngested  *prometheus.CounterVec
	samplesInvalid   *prometheus.CounterVec
	samplesHighRisk  prometheus.Counter
	feedbackLatency  prometheus.Histogram
	lanesActive      prometheus.Gauge
	lanesTotal       *prometheus.CounterVec
	sessionsRecorded prometheus.Counter

	// assessment
	assessments       *prometheus.CounterVec
	assessmentLatency prometheus.Histogram
	riskBoardSize     prometheus.Gauge

	// queue and workers
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueEnqueued           prometheus.Counter
	queueEnqueueErrors      prometheus.Counter
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// http
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// errors and storage
	errorsByComponent *prometheus.CounterVec
	storeLatency      *prometheus.HistogramVec

	// system
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process registry

func init() { //nolint:gochecknoinits // global metrics setup
	customRegistry.MustRegister(collectors.NewGoCollector())
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "aclguard",
		subsystem:        "",
		histogramBuckets: prometheus.DefBuckets,
		latencyBuckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.samplesIngested = auto.NewCounterVec(m.counter("samples_ingested_total",
		"Biomechanics samples accepted and scored"), []string{"source"})
	m.samplesInvalid = auto.NewCounterVec(m.counter("samples_invalid_total",
		"Biomechanics samples rejected by validation"), []string{"source"})
	m.samplesHighRisk = auto.NewCounter(m.counter("samples_high_risk_total",
		"Samples breaching the valgus or ground reaction force threshold"))
	m.feedbackLatency = auto.NewHistogram(m.histogram("feedback_latency_milliseconds",
		"Time from receiving a streamed sample to sending its feedback", m.latencyBuckets))
	m.lanesActive = auto.NewGauge(m.gauge("stream_lanes_active",
		"Currently open streaming lanes"))
	m.lanesTotal = auto.NewCounterVec(m.counter("stream_lanes_total",
		"Closed streaming lanes by outcome"), []string{"outcome"})
	m.sessionsRecorded = auto.NewCounter(m.counter("sessions_recorded_total",
		"Session summaries persisted"))

	m.assessments = auto.NewCounterVec(m.counter("assessments_total",
		"Composite risk assessments computed"), []string{"trigger"})
	m.assessmentLatency = auto.NewHistogram(m.histogram("assessment_latency_milliseconds",
		"Time to load inputs and compute one composite assessment", m.latencyBuckets))
	m.riskBoardSize = auto.NewGauge(m.gauge("risk_board_athletes",
		"Athletes present on the team risk board"))

	m.queueSize = auto.NewGauge(m.gauge("reassess_queue_size",
		"Pending reassessment requests"))
	m.queueCapacity = auto.NewGauge(m.gauge("reassess_queue_capacity",
		"Capacity of the reassessment queue"))
	m.queueEnqueued = auto.NewCounter(m.counter("reassess_enqueued_total",
		"Reassessment requests enqueued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counter("reassess_enqueue_errors_total",
		"Reassessment requests dropped at enqueue"))
	m.workerCount = auto.NewGauge(m.gauge("reassess_workers",
		"Reassessment workers running"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogram("reassess_processing_latency_milliseconds",
		"Reassessment job processing time", m.latencyBuckets))
	m.workerErrors = auto.NewCounter(m.counter("reassess_errors_total",
		"Reassessment jobs that failed"))

	m.httpRequests = auto.NewCounterVec(m.counter("http_requests_total",
		"HTTP requests by endpoint, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogram("http_request_duration_seconds",
		"HTTP request duration in seconds", m.histogramBuckets), []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(m.counter("errors_total",
		"Errors by component and kind"), []string{"component", "error_type"})
	m.storeLatency = auto.NewHistogramVec(m.histogram("store_operation_latency_milliseconds",
		"Persistence collaborator latency by operation", m.latencyBuckets), []string{"operation"})

	m.systemMemoryUsage = auto.NewGauge(m.gauge("system_memory_bytes",
		"Heap bytes in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gauge("system_goroutines",
		"Number of goroutines"))
}

// RecordSampleIngested counts an accepted sample.
func RecordSampleIngested(source string) { globalManager.samplesIngested.WithLabelValues(source).Inc() }

// RecordSampleInvalid counts a rejected sample.
func RecordSampleInvalid(source string) { globalManager.samplesInvalid.WithLabelValues(source).Inc() }

// RecordHighRiskSample counts a sample with a non-zero score.
func RecordHighRiskSample() { globalManager.samplesHighRisk.Inc() }

// RecordFeedbackLatency observes per-sample feedback latency in milliseconds.
func RecordFeedbackLatency(ms float64) { globalManager.feedbackLatency.Observe(ms) }

// LaneOpened marks a streaming lane as open.
func LaneOpened() { globalManager.lanesActive.Inc() }

// LaneClosed marks a streaming lane as closed with the given outcome.
func LaneClosed(outcome string) {
	globalManager.lanesActive.Dec()
	globalManager.lanesTotal.WithLabelValues(outcome).Inc()
}

// RecordSessionRecorded counts a persisted session summary.
func RecordSessionRecorded() { globalManager.sessionsRecorded.Inc() }

// RecordAssessment counts an assessment and observes its latency.
func RecordAssessment(trigger string, ms float64) {
	globalManager.assessments.WithLabelValues(trigger).Inc()
	globalManager.assessmentLatency.Observe(ms)
}

// UpdateRiskBoardSize sets the number of ranked athletes.
func UpdateRiskBoardSize(n int) { globalManager.riskBoardSize.Set(float64(n)) }

// UpdateQueueSize sets pending reassessment requests.
func UpdateQueueSize(n int) { globalManager.queueSize.Set(float64(n)) }

// UpdateQueueCapacity sets the reassessment queue capacity.
func UpdateQueueCapacity(n int) { globalManager.queueCapacity.Set(float64(n)) }

// RecordQueueEnqueue counts an enqueued request.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueEnqueueError counts a dropped request.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(n int) { globalManager.workerCount.Set(float64(n)) }

// RecordWorkerProcessingLatency observes job processing time in milliseconds.
func RecordWorkerProcessingLatency(ms float64) { globalManager.workerProcessingLatency.Observe(ms) }

// RecordWorkerError counts a failed job.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes an HTTP request duration in seconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, seconds float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(seconds)
}

// RecordError counts an error for a component.
func RecordError(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordStoreLatency observes a persistence call in milliseconds.
func RecordStoreLatency(operation string, ms float64) {
	globalManager.storeLatency.WithLabelValues(operation).Observe(ms)
}

// UpdateSystemMemoryUsage sets heap bytes in use.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(n int) { globalManager.systemGoroutineCount.Set(float64(n)) }

// GetRegistry returns the registry holding the service metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
