// Package metrics provides Prometheus metrics for the teamsplit search runs.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for a teamsplit process.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Search Metrics
	runsTotal         prometheus.Counter
	trialsTotal       prometheus.Counter
	improvementsTotal prometheus.Counter
	bestCost          prometheus.Gauge
	bestBalance       prometheus.Gauge
	runDuration       prometheus.Histogram
	playersActive     prometheus.Gauge

	// Shard Metrics
	shardDuration prometheus.Histogram
	shardsTotal   prometheus.Counter

	// Queue Metrics
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueDequeued    prometheus.Counter
	queueRejected    prometheus.Counter

	// Worker Metrics
	workerCount  prometheus.Gauge
	workerErrors prometheus.Counter

	// Error Metrics
	errorsByComponent *prometheus.CounterVec
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
		namespace:        "teamsplit",
		subsystem:        "search",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
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

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.runsTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("runs_total"),
		Help:        "Total number of completed search runs",
		ConstLabels: labels,
	})

	m.trialsTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("trials_total"),
		Help:        "Total number of candidate partitions evaluated",
		ConstLabels: labels,
	})

	m.improvementsTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("improvements_total"),
		Help:        "Total number of times a strictly cheaper partition replaced the best one",
		ConstLabels: labels,
	})

	m.bestCost = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("best_cost"),
		Help:        "Cost of the best partition of the last run",
		ConstLabels: labels,
	})

	m.bestBalance = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("best_balance"),
		Help:        "Score spread between strongest and weakest team of the last run",
		ConstLabels: labels,
	})

	m.runDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("run_duration_seconds"),
		Help:        "Wall time of a complete search run in seconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.playersActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("players_active"),
		Help:        "Number of active players partitioned in the last run",
		ConstLabels: labels,
	})

	m.shardDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("shard_duration_milliseconds"),
		Help:        "Time spent evaluating one shard of trials in milliseconds",
		Buckets:     []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: labels,
	})

	m.shardsTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("shards_total"),
		Help:        "Total number of shards evaluated by workers",
		ConstLabels: labels,
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("queue_size"),
		Help:        "Number of shards waiting in the queue",
		ConstLabels: labels,
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("queue_capacity"),
		Help:        "Maximum number of shards the queue can hold",
		ConstLabels: labels,
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("queue_utilization_ratio"),
		Help:        "Queue size divided by capacity",
		ConstLabels: labels,
	})

	m.queueEnqueued = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("queue_enqueued_total"),
		Help:        "Total number of shards enqueued",
		ConstLabels: labels,
	})

	m.queueDequeued = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("queue_dequeued_total"),
		Help:        "Total number of shards handed to workers",
		ConstLabels: labels,
	})

	m.queueRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("queue_rejected_total"),
		Help:        "Total number of shards rejected because the queue was full or closed",
		ConstLabels: labels,
	})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("workers"),
		Help:        "Number of search workers of the last run",
		ConstLabels: labels,
	})

	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("worker_errors_total"),
		Help:        "Total number of shards a worker failed to evaluate",
		ConstLabels: labels,
	})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("errors_total"),
		Help:        "Errors by component and type",
		ConstLabels: labels,
	}, []string{"component", "type"})
}

// Search Metrics Functions.

// RecordRun records a completed search run.
func RecordRun(trials, improvements int, cost, balance float64, elapsed time.Duration) {
	if !globalManager.enabled {
		return
	}
	globalManager.runsTotal.Inc()
	globalManager.trialsTotal.Add(float64(trials))
	globalManager.improvementsTotal.Add(float64(improvements))
	globalManager.bestCost.Set(cost)
	globalManager.bestBalance.Set(balance)
	globalManager.runDuration.Observe(elapsed.Seconds())
}

// UpdatePlayersActive sets the number of active players in the current run.
func UpdatePlayersActive(count int) {
	globalManager.playersActive.Set(float64(count))
}

// RecordShard records one evaluated shard and its duration in milliseconds.
func RecordShard(latencyMs float64) {
	globalManager.shardsTotal.Inc()
	globalManager.shardDuration.Observe(latencyMs)
}

// Queue Metrics Functions.

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
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the rejected counter.
func RecordQueueEnqueueError() {
	globalManager.queueRejected.Inc()
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// WriteTextfile writes the current state of the registry in the text
// exposition format, for the node_exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteTextfile, err)
	}
	return nil
}
