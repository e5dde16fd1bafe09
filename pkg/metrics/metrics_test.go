package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewManager(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true

	m := NewManager(cfg)
	if m == nil {
		t.Fatal("NewManager returned nil")
	}

	if !m.Enabled() {
		t.Error("Expected metrics to be enabled")
	}
}

func TestNewManager_Disabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false

	m := NewManager(cfg)
	if m == nil {
		t.Fatal("NewManager returned nil")
	}

	if m.Enabled() {
		t.Error("Expected metrics to be disabled")
	}
}

func TestMetricsHandler(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true

	m := NewManager(cfg)

	// Record some metrics
	m.RecordAtomWrite("short", "success")
	m.RecordAtomRead("long", "success")
	m.RecordAtomRead("long", "corrupt")
	m.RecordCorruptAtom("long")
	m.RecordWriteDuration("short", 2*time.Millisecond)
	m.RecordPromotion("short", "middle")
	m.RecordRepair("aggressive", "success")
	m.RecordKnowletCreated("created")
	m.RecordMajorityRatio(0.75)
	m.RecordPublish("success")
	m.RecordRetry()
	m.SetDegradedMode(true)
	m.RecordOutage()
	m.RecordRecovery()

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	m.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	body := w.Body.String()
	if body == "" {
		t.Error("Expected non-empty metrics output")
	}

	expectedMetrics := []string{
		"mnemo_atom_writes_total",
		"mnemo_atom_reads_total",
		"mnemo_atom_corrupt_total",
		"mnemo_atom_write_duration_seconds",
		"mnemo_promotions_total",
		"mnemo_repairs_total",
		"mnemo_knowlets_created_total",
		"mnemo_knowlet_majority_ratio",
		"mnemo_events_published_total",
		"mnemo_event_bus_degraded",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(body, metric) {
			t.Errorf("Expected metric %s not found in output", metric)
		}
	}
}

func TestMetricsHandler_Disabled(t *testing.T) {
	m := NoOpManager()

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	m.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestNoOpManager_RecordsAreSafe(t *testing.T) {
	m := NoOpManager()

	// None of these should panic on a disabled manager.
	m.RecordAtomWrite("short", "success")
	m.RecordAtomRead("short", "success")
	m.RecordAtomDelete("short", "success")
	m.RecordCorruptAtom("short")
	m.RecordWriteDuration("short", time.Millisecond)
	m.RecordReadDuration("short", time.Millisecond)
	m.SetTierCount("short", 10)
	m.RecordPromotion("short", "middle")
	m.RecordCleanupDelete("short")
	m.RecordShardExpansion("short")
	m.RecordRepair("standard", "failure")
	m.RecordRepairedBytes(128)
	m.RecordKnowletCreated("no_majority")
	m.RecordKnowletPromoted()
	m.RecordMajorityRatio(0.5)
	m.RecordPublish("failed")
	m.RecordRetry()
	m.SetDegradedMode(false)
	m.RecordOutage()
	m.RecordRecovery()
}
