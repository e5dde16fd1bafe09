package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func (m *Manager) initAtomMetrics(cfg Config) {
	m.atomWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mnemo_atom_writes_total",
			Help: "Total atom writes by tier and status",
		},
		[]string{"tier", "status"},
	)

	m.atomReads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mnemo_atom_reads_total",
			Help: "Total atom reads by tier and status",
		},
		[]string{"tier", "status"},
	)

	m.atomDeletes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mnemo_atom_deletes_total",
			Help: "Total atom deletions by tier and status",
		},
		[]string{"tier", "status"},
	)

	m.atomCorrupt = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mnemo_atom_corrupt_total",
			Help: "Total corrupt atom files detected during reads",
		},
		[]string{"tier"},
	)

	m.writeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mnemo_atom_write_duration_seconds",
			Help:    "Atom write latency",
			Buckets: cfg.WriteDurationBuckets,
		},
		[]string{"tier"},
	)

	m.readDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mnemo_atom_read_duration_seconds",
			Help:    "Atom read latency",
			Buckets: cfg.ReadDurationBuckets,
		},
		[]string{"tier"},
	)

	m.registry.MustRegister(m.atomWrites)
	m.registry.MustRegister(m.atomReads)
	m.registry.MustRegister(m.atomDeletes)
	m.registry.MustRegister(m.atomCorrupt)
	m.registry.MustRegister(m.writeDuration)
	m.registry.MustRegister(m.readDuration)
}

// RecordAtomWrite records an atom write outcome.
func (m *Manager) RecordAtomWrite(tier, status string) {
	if !m.enabled {
		return
	}
	m.atomWrites.WithLabelValues(tier, status).Inc()
}

// RecordAtomRead records an atom read outcome.
func (m *Manager) RecordAtomRead(tier, status string) {
	if !m.enabled {
		return
	}
	m.atomReads.WithLabelValues(tier, status).Inc()
}

// RecordAtomDelete records an atom delete outcome.
func (m *Manager) RecordAtomDelete(tier, status string) {
	if !m.enabled {
		return
	}
	m.atomDeletes.WithLabelValues(tier, status).Inc()
}

// RecordCorruptAtom records a corrupt atom file detected during a read.
func (m *Manager) RecordCorruptAtom(tier string) {
	if !m.enabled {
		return
	}
	m.atomCorrupt.WithLabelValues(tier).Inc()
}

// RecordWriteDuration records atom write latency.
func (m *Manager) RecordWriteDuration(tier string, d time.Duration) {
	if !m.enabled {
		return
	}
	m.writeDuration.WithLabelValues(tier).Observe(d.Seconds())
}

// RecordReadDuration records atom read latency.
func (m *Manager) RecordReadDuration(tier string, d time.Duration) {
	if !m.enabled {
		return
	}
	m.readDuration.WithLabelValues(tier).Observe(d.Seconds())
}
