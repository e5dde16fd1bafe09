package metrics

import "github.com/prometheus/client_golang/prometheus"

func (m *Manager) initRepairMetrics() {
	m.repairs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mnemo_repairs_total",
			Help: "Total atom repair attempts by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	m.repairedBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mnemo_repaired_bytes_total",
			Help: "Total bytes written by successful repairs",
		},
	)

	m.registry.MustRegister(m.repairs)
	m.registry.MustRegister(m.repairedBytes)
}

// RecordRepair records a repair attempt outcome. Mode is "standard" or
// "aggressive"; outcome is "success" or "failure".
func (m *Manager) RecordRepair(mode, outcome string) {
	if !m.enabled {
		return
	}
	m.repairs.WithLabelValues(mode, outcome).Inc()
}

// RecordRepairedBytes records the size of a successfully repaired atom.
func (m *Manager) RecordRepairedBytes(n int) {
	if !m.enabled {
		return
	}
	m.repairedBytes.Add(float64(n))
}
