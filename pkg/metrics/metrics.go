// Package metrics provides Prometheus metrics instrumentation for Mnemo.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager manages all Prometheus metrics for Mnemo.
type Manager struct {
	registry *prometheus.Registry
	enabled  bool

	// Atom metrics
	atomWrites    *prometheus.CounterVec
	atomReads     *prometheus.CounterVec
	atomDeletes   *prometheus.CounterVec
	atomCorrupt   *prometheus.CounterVec
	writeDuration *prometheus.HistogramVec
	readDuration  *prometheus.HistogramVec

	// Tier metrics
	tierCount       *prometheus.GaugeVec
	promotions      *prometheus.CounterVec
	cleanupDeletes  *prometheus.CounterVec
	shardExpansions *prometheus.CounterVec

	// Repair metrics
	repairs       *prometheus.CounterVec
	repairedBytes prometheus.Counter

	// Knowlet metrics
	knowletCreated  *prometheus.CounterVec
	knowletPromoted prometheus.Counter
	majorityRatio   prometheus.Histogram

	// Event bus metrics
	eventPublishes   *prometheus.CounterVec
	eventRetries     prometheus.Counter
	eventBusDegraded prometheus.Gauge
	eventOutages     prometheus.Counter
	eventRecoveries  prometheus.Counter
}

// Config holds metrics configuration.
type Config struct {
	Enabled bool
	Port    int
	Path    string

	// Histogram bucket configurations
	WriteDurationBuckets []float64
	ReadDurationBuckets  []float64
}

// DefaultConfig returns default metrics configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:              true,
		Port:                 9091,
		Path:                 "/metrics",
		WriteDurationBuckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		ReadDurationBuckets:  []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
	}
}

// NewManager creates a new metrics manager.
func NewManager(cfg Config) *Manager {
	if !cfg.Enabled {
		return &Manager{enabled: false}
	}

	registry := prometheus.NewRegistry()

	// Register Go runtime metrics
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Manager{
		registry: registry,
		enabled:  true,
	}

	m.initAtomMetrics(cfg)
	m.initTierMetrics()
	m.initRepairMetrics()
	m.initKnowletMetrics()
	m.initEventMetrics()

	return m
}

// Enabled returns whether metrics collection is enabled.
func (m *Manager) Enabled() bool {
	return m.enabled
}

// Handler returns the HTTP handler for the metrics endpoint.
func (m *Manager) Handler() http.Handler {
	if !m.enabled {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP server on the configured port.
func (m *Manager) StartServer(ctx context.Context, port int, path string) error {
	if !m.enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	return server.ListenAndServe()
}

// NoOpManager returns a no-op metrics manager for when metrics are disabled.
func NoOpManager() *Manager {
	return &Manager{enabled: false}
}
