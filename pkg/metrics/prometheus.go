// Package metrics provides Prometheus metrics for the courttime game ledger.
package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Manager manages all Prometheus metrics for the ledger.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	registry         *prometheus.Registry

	// Log metrics
	eventsAppended *prometheus.CounterVec
	storeLatency   *prometheus.HistogramVec

	// Ledger metrics
	recomputeLatency prometheus.Histogram
	playersOnCourt   prometheus.Gauge
	playersOffCourt  prometheus.Gauge
	clockRunning     prometheus.Gauge

	// Error metrics
	operationErrors *prometheus.CounterVec
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
		namespace:        "courttime",
		subsystem:        "ledger",
		histogramBuckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.NewRegistry(),
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

// Default returns the process-wide manager.
func Default() *Manager { return globalManager }

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.eventsAppended = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "events_appended_total",
			Help:        "Total number of events appended to the game log by kind",
			ConstLabels: labels,
		},
		[]string{"kind"},
	)

	m.storeLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "store_operation_duration_milliseconds",
			Help:        "Event store operation latency in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"operation"},
	)

	m.recomputeLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "recompute_duration_milliseconds",
		Help:        "Time to rebuild the ledger from the full log in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.playersOnCourt = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "players_on_court",
		Help:        "Players checked in at the last recompute",
		ConstLabels: labels,
	})

	m.playersOffCourt = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "players_off_court",
		Help:        "Players on the bench at the last recompute",
		ConstLabels: labels,
	})

	m.clockRunning = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "clock_running",
		Help:        "1 while the game clock runs, 0 otherwise",
		ConstLabels: labels,
	})

	m.operationErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "operation_errors_total",
			Help:        "Rejected or failed tracker operations by operation and reason",
			ConstLabels: labels,
		},
		[]string{"operation", "reason"},
	)
}

// RecordEventAppended increments the appended events counter for kind.
func (m *Manager) RecordEventAppended(kind string) {
	if !m.enabled {
		return
	}
	m.eventsAppended.WithLabelValues(kind).Inc()
}

// RecordStoreLatency records one store call in milliseconds.
func (m *Manager) RecordStoreLatency(operation string, latencyMs float64) {
	if !m.enabled {
		return
	}
	m.storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordRecomputeLatency records one ledger rebuild in milliseconds.
func (m *Manager) RecordRecomputeLatency(latencyMs float64) {
	if !m.enabled {
		return
	}
	m.recomputeLatency.Observe(latencyMs)
}

// UpdateCourtState sets the partition sizes and the clock gauge.
func (m *Manager) UpdateCourtState(onCourt, offCourt int, running bool) {
	if !m.enabled {
		return
	}
	m.playersOnCourt.Set(float64(onCourt))
	m.playersOffCourt.Set(float64(offCourt))
	if running {
		m.clockRunning.Set(1)
	} else {
		m.clockRunning.Set(0)
	}
}

// RecordOperationError counts a failed operation.
func (m *Manager) RecordOperationError(operation, reason string) {
	if !m.enabled {
		return
	}
	m.operationErrors.WithLabelValues(operation, reason).Inc()
}

// Registry returns the registry the manager writes to.
func (m *Manager) Registry() *prometheus.Registry { return m.registry }

// WriteText writes every gathered family in the text exposition format.
func (m *Manager) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("%w: gather: %v", ErrObserveFailed, err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("%w: encode %s: %v", ErrObserveFailed, mf.GetName(), err)
		}
	}
	return nil
}

// WriteTextfile atomically writes the metrics to path for the node exporter
// textfile collector.
func (m *Manager) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("%w: %v", ErrObserveFailed, err)
	}
	return nil
}
