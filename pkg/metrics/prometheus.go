// Package metrics provides Prometheus metrics for the rosterlens service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// DefaultLatencyBuckets are millisecond buckets spanning a cached lookup up to
// a timed-out upstream call.
var DefaultLatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000} //nolint:gochecknoglobals // read-only defaults

// Manager owns every Prometheus collector the service exports.
type Manager struct {
	namespace       string
	subsystem       string
	latencyBuckets  []float64
	refreshInterval time.Duration
	customLabels    map[string]string
	metricPrefix    string
	registry        prometheus.Registerer

	// Profile fetching
	fetchesTotal  *prometheus.CounterVec
	fetchLatency  prometheus.Histogram
	fetchRetries  prometheus.Counter
	cacheLookups  *prometheus.CounterVec
	cacheFailures prometheus.Counter

	// Enrichment batches
	batchesStarted    prometheus.Counter
	batchesCompleted  prometheus.Counter
	batchesSuperseded prometheus.Counter
	batchDuration     prometheus.Histogram
	batchProgress     prometheus.Gauge
	mergesDropped     prometheus.Counter

	// Roster store
	rosterRecords  prometheus.Gauge
	rosterValid    prometheus.Gauge
	viewRecords    prometheus.Gauge
	viewPublishes  prometheus.Counter
	storeLatency   *prometheus.HistogramVec
	rowsIngested   prometheus.Counter
	uploadsFailed  *prometheus.CounterVec
	exportsTotal   *prometheus.CounterVec
	exportFailures prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	errorRateByComponent *prometheus.CounterVec

	// Process
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       "rosterlens",
		subsystem:       "enrichment",
		latencyBuckets:  DefaultLatencyBuckets,
		refreshInterval: defaultRefreshInterval,
		customLabels:    make(map[string]string),
		registry:        prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     m.latencyBuckets,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.fetchesTotal = auto.NewCounterVec(
		m.counterOpts("profile_fetches_total", "Profile lookups by outcome (found, not_found)"),
		[]string{"outcome"},
	)
	m.fetchLatency = auto.NewHistogram(
		m.histogramOpts("profile_fetch_latency_milliseconds", "Latency of a single profile lookup in milliseconds"),
	)
	m.fetchRetries = auto.NewCounter(
		m.counterOpts("profile_fetch_retries_total", "Profile lookup retries after a transient failure"),
	)
	m.cacheLookups = auto.NewCounterVec(
		m.counterOpts("profile_cache_lookups_total", "Outcome cache lookups by result (hit, miss)"),
		[]string{"result"},
	)
	m.cacheFailures = auto.NewCounter(
		m.counterOpts("profile_cache_failures_total", "Outcome cache operations that failed"),
	)

	m.batchesStarted = auto.NewCounter(
		m.counterOpts("batches_started_total", "Enrichment batches started"),
	)
	m.batchesCompleted = auto.NewCounter(
		m.counterOpts("batches_completed_total", "Enrichment batches that reached done"),
	)
	m.batchesSuperseded = auto.NewCounter(
		m.counterOpts("batches_superseded_total", "Enrichment batches replaced by a newer upload before finishing"),
	)
	m.batchDuration = auto.NewHistogram(
		m.histogramOpts("batch_duration_milliseconds", "Wall time of an enrichment batch in milliseconds"),
	)
	m.batchProgress = auto.NewGauge(
		m.gaugeOpts("batch_progress_percent", "Progress of the current enrichment batch"),
	)
	m.mergesDropped = auto.NewCounter(
		m.counterOpts("stale_merges_dropped_total", "Fetch outcomes discarded because their batch was superseded"),
	)

	m.rosterRecords = auto.NewGauge(
		m.gaugeOpts("roster_records", "Records in the current roster"),
	)
	m.rosterValid = auto.NewGauge(
		m.gaugeOpts("roster_valid_profiles", "Records in the current roster with a found profile"),
	)
	m.viewRecords = auto.NewGauge(
		m.gaugeOpts("view_records", "Records in the displayed view"),
	)
	m.viewPublishes = auto.NewCounter(
		m.counterOpts("view_publishes_total", "Displayed view publications"),
	)
	m.storeLatency = auto.NewHistogramVec(
		m.histogramOpts("store_latency_milliseconds", "Roster store operation latency in milliseconds"),
		[]string{"operation"},
	)
	m.rowsIngested = auto.NewCounter(
		m.counterOpts("rows_ingested_total", "Roster rows accepted from uploaded files"),
	)
	m.uploadsFailed = auto.NewCounterVec(
		m.counterOpts("uploads_failed_total", "Roster uploads rejected by reason"),
		[]string{"reason"},
	)
	m.exportsTotal = auto.NewCounterVec(
		m.counterOpts("exports_total", "Exports produced by scope and format"),
		[]string{"scope", "format"},
	)
	m.exportFailures = auto.NewCounter(
		m.counterOpts("export_failures_total", "Exports that failed projection or encoding"),
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)

	m.queueSize = auto.NewGauge(
		m.gaugeOpts("queue_size", "Current size of the fetch job queue"),
	)
	m.queueCapacity = auto.NewGauge(
		m.gaugeOpts("queue_capacity", "Maximum fetch job queue capacity"),
	)
	m.queueUtilization = auto.NewGauge(
		m.gaugeOpts("queue_utilization_ratio", "Queue utilization ratio (current size / capacity)"),
	)
	m.queueEnqueueRate = auto.NewCounter(
		m.counterOpts("queue_enqueue_total", "Total number of jobs enqueued"),
	)
	m.queueDequeueRate = auto.NewCounter(
		m.counterOpts("queue_dequeue_total", "Total number of jobs dequeued"),
	)
	m.queueEnqueueErrors = auto.NewCounter(
		m.counterOpts("queue_enqueue_errors_total", "Total number of enqueue errors"),
	)

	m.workerCount = auto.NewGauge(
		m.gaugeOpts("worker_count", "Configured fetch workers"),
	)
	m.workerActiveCount = auto.NewGauge(
		m.gaugeOpts("worker_active_count", "Fetch workers currently processing a job"),
	)
	m.workerProcessingLatency = auto.NewHistogram(
		m.histogramOpts("worker_processing_latency_milliseconds", "Worker job latency in milliseconds"),
	)
	m.workerErrorRate = auto.NewCounter(
		m.counterOpts("worker_errors_total", "Total number of worker errors"),
	)

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Total number of errors by component"),
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(
		m.gaugeOpts("system_memory_usage_bytes", "Heap bytes allocated by the process"),
	)
	m.systemGoroutineCount = auto.NewGauge(
		m.gaugeOpts("system_goroutine_count", "Number of goroutines"),
	)
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "Average GC pause time in milliseconds"),
	)
}

// RefreshInterval is the cadence for periodically refreshed gauges.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// RefreshInterval is the global manager's refresh cadence.
func RefreshInterval() time.Duration { return globalManager.refreshInterval }

// Profile fetch metrics.

// RecordFetch counts a finished lookup and observes its latency.
func RecordFetch(found bool, latencyMs float64) {
	outcome := "not_found"
	if found {
		outcome = "found"
	}
	globalManager.fetchesTotal.WithLabelValues(outcome).Inc()
	globalManager.fetchLatency.Observe(latencyMs)
}

// RecordFetchRetry increments the retry counter.
func RecordFetchRetry() {
	globalManager.fetchRetries.Inc()
}

// RecordCacheLookup counts an outcome cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	globalManager.cacheLookups.WithLabelValues(result).Inc()
}

// RecordCacheFailure counts a failed cache round trip.
func RecordCacheFailure() {
	globalManager.cacheFailures.Inc()
}

// Batch metrics.

// RecordBatchStarted increments the started batch counter.
func RecordBatchStarted() {
	globalManager.batchesStarted.Inc()
}

// RecordBatchCompleted counts a finished batch and observes its duration.
func RecordBatchCompleted(durationMs float64) {
	globalManager.batchesCompleted.Inc()
	globalManager.batchDuration.Observe(durationMs)
}

// RecordBatchSuperseded counts a batch abandoned for a newer upload.
func RecordBatchSuperseded() {
	globalManager.batchesSuperseded.Inc()
}

// UpdateBatchProgress sets the current batch progress percentage.
func UpdateBatchProgress(percent int) {
	globalManager.batchProgress.Set(float64(percent))
}

// RecordStaleMergeDropped counts an outcome discarded for a stale generation.
func RecordStaleMergeDropped() {
	globalManager.mergesDropped.Inc()
}

// Store metrics.

// UpdateRosterRecords sets the roster size and valid-profile count.
func UpdateRosterRecords(total, valid int) {
	globalManager.rosterRecords.Set(float64(total))
	globalManager.rosterValid.Set(float64(valid))
}

// RecordViewPublished counts a view publication and sets its size.
func RecordViewPublished(size int) {
	globalManager.viewPublishes.Inc()
	globalManager.viewRecords.Set(float64(size))
}

// RecordStoreLatency observes the latency of a store operation.
func RecordStoreLatency(operation string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordRowsIngested adds accepted upload rows.
func RecordRowsIngested(n int) {
	globalManager.rowsIngested.Add(float64(n))
}

// RecordUploadFailed counts a rejected upload.
func RecordUploadFailed(reason string) {
	globalManager.uploadsFailed.WithLabelValues(reason).Inc()
}

// RecordExport counts a produced export.
func RecordExport(scope, format string) {
	globalManager.exportsTotal.WithLabelValues(scope, format).Inc()
}

// RecordExportFailure counts a failed export.
func RecordExportFailure() {
	globalManager.exportFailures.Inc()
}

// HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Queue metrics.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// Worker metrics.

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// AddWorkerActive moves the active worker gauge by delta.
func AddWorkerActive(delta int) {
	globalManager.workerActiveCount.Add(float64(delta))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// Process metrics.

// UpdateSystemMemoryUsage sets the heap allocation in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
