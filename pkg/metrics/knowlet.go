package metrics

import "github.com/prometheus/client_golang/prometheus"

func (m *Manager) initKnowletMetrics() {
	m.knowletCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mnemo_knowlets_created_total",
			Help: "Total knowlet consolidation attempts by outcome",
		},
		[]string{"outcome"},
	)

	m.knowletPromoted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mnemo_knowlets_promoted_total",
			Help: "Total knowlets promoted to active",
		},
	)

	m.majorityRatio = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mnemo_knowlet_majority_ratio",
			Help:    "Observed match ratio during knowlet consolidation scans",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	m.registry.MustRegister(m.knowletCreated)
	m.registry.MustRegister(m.knowletPromoted)
	m.registry.MustRegister(m.majorityRatio)
}

// RecordKnowletCreated records a consolidation attempt. Outcome is one of
// "created", "no_majority", "rejected", or "error".
func (m *Manager) RecordKnowletCreated(outcome string) {
	if !m.enabled {
		return
	}
	m.knowletCreated.WithLabelValues(outcome).Inc()
}

// RecordKnowletPromoted records a knowlet promotion.
func (m *Manager) RecordKnowletPromoted() {
	if !m.enabled {
		return
	}
	m.knowletPromoted.Inc()
}

// RecordMajorityRatio records the match ratio observed during a scan.
func (m *Manager) RecordMajorityRatio(ratio float64) {
	if !m.enabled {
		return
	}
	m.majorityRatio.Observe(ratio)
}
