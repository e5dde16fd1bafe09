package metrics

import "github.com/prometheus/client_golang/prometheus"

func (m *Manager) initEventMetrics() {
	m.eventPublishes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mnemo_events_published_total",
			Help: "Total lifecycle event publishes by status",
		},
		[]string{"status"},
	)

	m.eventRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mnemo_event_retries_total",
			Help: "Total lifecycle event publish retries",
		},
	)

	m.eventBusDegraded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mnemo_event_bus_degraded",
			Help: "Whether the lifecycle event bus is in degraded mode (1 = degraded)",
		},
	)

	m.eventOutages = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mnemo_event_bus_outages_total",
			Help: "Total transitions of the event bus into degraded mode",
		},
	)

	m.eventRecoveries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mnemo_event_bus_recoveries_total",
			Help: "Total recoveries of the event bus from degraded mode",
		},
	)

	m.registry.MustRegister(m.eventPublishes)
	m.registry.MustRegister(m.eventRetries)
	m.registry.MustRegister(m.eventBusDegraded)
	m.registry.MustRegister(m.eventOutages)
	m.registry.MustRegister(m.eventRecoveries)
}

// RecordPublish records a lifecycle event publish outcome.
func (m *Manager) RecordPublish(status string) {
	if !m.enabled {
		return
	}
	m.eventPublishes.WithLabelValues(status).Inc()
}

// RecordRetry records a lifecycle event publish retry.
func (m *Manager) RecordRetry() {
	if !m.enabled {
		return
	}
	m.eventRetries.Inc()
}

// SetDegradedMode sets the event bus degraded mode gauge.
func (m *Manager) SetDegradedMode(active bool) {
	if !m.enabled {
		return
	}
	if active {
		m.eventBusDegraded.Set(1)
	} else {
		m.eventBusDegraded.Set(0)
	}
}

// RecordOutage records a transition into degraded mode.
func (m *Manager) RecordOutage() {
	if !m.enabled {
		return
	}
	m.eventOutages.Inc()
}

// RecordRecovery records a recovery from degraded mode.
func (m *Manager) RecordRecovery() {
	if !m.enabled {
		return
	}
	m.eventRecoveries.Inc()
}
