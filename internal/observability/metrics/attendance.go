// Package metrics provides custom Prometheus metrics for GateWatch components.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// AttendanceMetrics contains all Prometheus metrics for the attendance pipeline.
type AttendanceMetrics struct {
	EntriesTotal          prometheus.Counter
	ExitsTotal            prometheus.Counter
	OrphanedExitsTotal    prometheus.Counter
	SuppressedEventsTotal prometheus.Counter
	EventsProcessed       *prometheus.CounterVec
	OnsiteGauge           prometheus.Gauge
	registry              *prometheus.Registry
}

// NewAttendanceMetrics creates a new instance of AttendanceMetrics and
// registers it on the given registry.
func NewAttendanceMetrics(registry *prometheus.Registry) (*AttendanceMetrics, error) {
	m := &AttendanceMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize attendance metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register attendance metrics: %w", err)
	}
	return m, nil
}

func (m *AttendanceMetrics) initMetrics() error {
	m.EntriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatewatch_entries_total",
		Help: "Total number of debounced gate entries recorded",
	})

	m.ExitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatewatch_exits_total",
		Help: "Total number of debounced gate exits recorded",
	})

	m.OrphanedExitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatewatch_orphaned_exits_total",
		Help: "Total number of debounced exits with no matching active session",
	})

	m.SuppressedEventsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gatewatch_suppressed_events_total",
		Help: "Total number of events suppressed by cooldown",
	})

	m.EventsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gatewatch_events_processed_total",
		Help: "Total number of detection events handed to the debouncer, by outcome",
	}, []string{"outcome"})

	m.OnsiteGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gatewatch_onsite_count",
		Help: "Current number of people onsite",
	})

	return nil
}

// RecordEntry increments the entry counter and the onsite gauge.
func (m *AttendanceMetrics) RecordEntry(onsite int) {
	m.EntriesTotal.Inc()
	m.OnsiteGauge.Set(float64(onsite))
}

// RecordExit increments the exit counter and updates the onsite gauge.
func (m *AttendanceMetrics) RecordExit(onsite int, orphaned bool) {
	m.ExitsTotal.Inc()
	if orphaned {
		m.OrphanedExitsTotal.Inc()
	}
	m.OnsiteGauge.Set(float64(onsite))
}

// RecordSuppressed counts an event swallowed by the cooldown window.
func (m *AttendanceMetrics) RecordSuppressed() {
	m.SuppressedEventsTotal.Inc()
}

// RecordOutcome counts a processed event by its outcome label.
func (m *AttendanceMetrics) RecordOutcome(outcome string) {
	m.EventsProcessed.WithLabelValues(outcome).Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *AttendanceMetrics) Collect(ch chan<- prometheus.Metric) {
	m.EntriesTotal.Collect(ch)
	m.ExitsTotal.Collect(ch)
	m.OrphanedExitsTotal.Collect(ch)
	m.SuppressedEventsTotal.Collect(ch)
	m.EventsProcessed.Collect(ch)
	m.OnsiteGauge.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *AttendanceMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.EntriesTotal.Describe(ch)
	m.ExitsTotal.Describe(ch)
	m.OrphanedExitsTotal.Describe(ch)
	m.SuppressedEventsTotal.Describe(ch)
	m.EventsProcessed.Describe(ch)
	m.OnsiteGauge.Describe(ch)
}
