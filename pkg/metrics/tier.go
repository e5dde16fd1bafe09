package metrics

import "github.com/prometheus/client_golang/prometheus"

func (m *Manager) initTierMetrics() {
	m.tierCount = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mnemo_tier_atoms",
			Help: "Current number of atoms stored per tier",
		},
		[]string{"tier"},
	)

	m.promotions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mnemo_promotions_total",
			Help: "Total atom promotions by source and destination tier",
		},
		[]string{"from", "to"},
	)

	m.cleanupDeletes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mnemo_cleanup_deletes_total",
			Help: "Total atoms removed by maintenance sweeps per tier",
		},
		[]string{"tier"},
	)

	m.shardExpansions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mnemo_shard_expansions_total",
			Help: "Total shard depth expansions per tier",
		},
		[]string{"tier"},
	)

	m.registry.MustRegister(m.tierCount)
	m.registry.MustRegister(m.promotions)
	m.registry.MustRegister(m.cleanupDeletes)
	m.registry.MustRegister(m.shardExpansions)
}

// SetTierCount sets the current atom count gauge for a tier.
func (m *Manager) SetTierCount(tier string, count int) {
	if !m.enabled {
		return
	}
	m.tierCount.WithLabelValues(tier).Set(float64(count))
}

// RecordPromotion records an atom promotion between tiers.
func (m *Manager) RecordPromotion(from, to string) {
	if !m.enabled {
		return
	}
	m.promotions.WithLabelValues(from, to).Inc()
}

// RecordCleanupDelete records an atom removed by a maintenance sweep.
func (m *Manager) RecordCleanupDelete(tier string) {
	if !m.enabled {
		return
	}
	m.cleanupDeletes.WithLabelValues(tier).Inc()
}

// RecordShardExpansion records a shard depth expansion.
func (m *Manager) RecordShardExpansion(tier string) {
	if !m.enabled {
		return
	}
	m.shardExpansions.WithLabelValues(tier).Inc()
}
