package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Test App defaults
	if cfg.App.Name != "mnemo" {
		t.Errorf("expected app name 'mnemo', got %s", cfg.App.Name)
	}
	if cfg.App.Environment != "development" {
		t.Errorf("expected environment 'development', got %s", cfg.App.Environment)
	}

	// Test Log defaults
	if cfg.Log.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("expected log format 'json', got %s", cfg.Log.Format)
	}

	// Test Memory defaults
	if cfg.Memory.MinImportance != 0.3 {
		t.Errorf("expected min_importance 0.3, got %v", cfg.Memory.MinImportance)
	}
	if cfg.Memory.MiddleBoundary != 0.4 || cfg.Memory.LongBoundary != 0.6 || cfg.Memory.ImmortalBoundary != 0.9 {
		t.Errorf("expected boundaries 0.4/0.6/0.9, got %v/%v/%v",
			cfg.Memory.MiddleBoundary, cfg.Memory.LongBoundary, cfg.Memory.ImmortalBoundary)
	}
	if cfg.Memory.MajorityRatio != 0.5 {
		t.Errorf("expected majority_ratio 0.5, got %v", cfg.Memory.MajorityRatio)
	}
	if cfg.Memory.FolderLimit != 4096 {
		t.Errorf("expected folder_limit 4096, got %d", cfg.Memory.FolderLimit)
	}
	if cfg.Memory.AtomExtension != ".atom" || cfg.Memory.KnowletExtension != ".knowlet" {
		t.Errorf("expected extensions .atom/.knowlet, got %s/%s",
			cfg.Memory.AtomExtension, cfg.Memory.KnowletExtension)
	}
	if cfg.Memory.IndexPath != "" {
		t.Errorf("expected index disabled by default, got %s", cfg.Memory.IndexPath)
	}

	// Test tier policy defaults
	if cfg.Memory.Short.StaleAfter != 30*time.Minute {
		t.Errorf("expected short stale_after 30m, got %v", cfg.Memory.Short.StaleAfter)
	}
	if cfg.Memory.Middle.ExpireAfter != 5*time.Hour {
		t.Errorf("expected middle expire_after 5h, got %v", cfg.Memory.Middle.ExpireAfter)
	}
	if cfg.Memory.Long.ExpireAfter != 7*24*time.Hour {
		t.Errorf("expected long expire_after 168h, got %v", cfg.Memory.Long.ExpireAfter)
	}
	if cfg.Memory.Immortal.ExpireAfter != 0 {
		t.Errorf("expected immortal to never expire, got %v", cfg.Memory.Immortal.ExpireAfter)
	}

	// Test Metrics defaults
	if !cfg.Metrics.Enabled {
		t.Error("expected metrics.enabled to be true")
	}
	if cfg.Metrics.Port != 9091 {
		t.Errorf("expected metrics port 9091, got %d", cfg.Metrics.Port)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{
			name:    "valid config",
			cfg:     DefaultConfig(),
			wantErr: false,
		},
		{
			name: "missing app name",
			cfg: func() *Config {
				cfg := DefaultConfig()
				cfg.App.Name = ""
				return cfg
			}(),
			wantErr: true,
		},
		{
			name: "invalid log level",
			cfg: func() *Config {
				cfg := DefaultConfig()
				cfg.Log.Level = "trace"
				return cfg
			}(),
			wantErr: true,
		},
		{
			name: "invalid environment",
			cfg: func() *Config {
				cfg := DefaultConfig()
				cfg.App.Environment = "invalid"
				return cfg
			}(),
			wantErr: true,
		},
		{
			name: "missing base path",
			cfg: func() *Config {
				cfg := DefaultConfig()
				cfg.Memory.BasePath = ""
				return cfg
			}(),
			wantErr: true,
		},
		{
			name: "importance out of range",
			cfg: func() *Config {
				cfg := DefaultConfig()
				cfg.Memory.MinImportance = 1.5
				return cfg
			}(),
			wantErr: true,
		},
		{
			name: "zero folder limit",
			cfg: func() *Config {
				cfg := DefaultConfig()
				cfg.Memory.FolderLimit = 0
				return cfg
			}(),
			wantErr: true,
		},
		{
			name: "middle boundary below write floor",
			cfg: func() *Config {
				cfg := DefaultConfig()
				cfg.Memory.MiddleBoundary = 0.2
				return cfg
			}(),
			wantErr: true,
		},
		{
			name: "boundaries not increasing",
			cfg: func() *Config {
				cfg := DefaultConfig()
				cfg.Memory.LongBoundary = cfg.Memory.MiddleBoundary
				return cfg
			}(),
			wantErr: true,
		},
		{
			name: "immortal boundary below long",
			cfg: func() *Config {
				cfg := DefaultConfig()
				cfg.Memory.ImmortalBoundary = 0.5
				return cfg
			}(),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "memory.min_importance", Message: "must be less than or equal to 1", Value: 1.5},
		{Field: "log.level", Message: "must be one of [debug info warn error]", Value: "trace"},
	}

	errMsg := errs.Error()
	if errMsg == "" {
		t.Error("expected error message")
	}
	if errMsg == "no validation errors" {
		t.Error("expected error details")
	}
}

func TestConfig_String(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.String() == "" {
		t.Error("expected non-empty string representation")
	}
}

func TestLoader_Get(t *testing.T) {
	loader := NewLoader()
	_, _ = loader.Load("", nil) // Load defaults

	val := loader.Get("app.name")
	if val == nil {
		t.Error("expected non-nil value for app.name")
	}

	str := loader.GetString("app.name")
	if str != "mnemo" {
		t.Errorf("expected 'mnemo', got '%s'", str)
	}

	limit := loader.GetInt("memory.folder_limit")
	if limit != 4096 {
		t.Errorf("expected 4096, got %d", limit)
	}

	enabled := loader.GetBool("metrics.enabled")
	if !enabled {
		t.Error("expected metrics.enabled to be true")
	}
}

func TestLoader_Set(t *testing.T) {
	loader := NewLoader()
	_, _ = loader.Load("", nil)

	err := loader.Set("app.name", "custom-app")
	if err != nil {
		t.Errorf("unexpected error setting value: %v", err)
	}

	if loader.GetString("app.name") != "custom-app" {
		t.Errorf("expected 'custom-app', got '%s'", loader.GetString("app.name"))
	}
}

func TestLoader_Print(t *testing.T) {
	loader := NewLoader()
	_, _ = loader.Load("", nil)

	if loader.Print() == "" {
		t.Error("expected non-empty print output")
	}
}

func TestLoad(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg == nil {
		t.Error("expected non-nil config")
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load("", map[string]interface{}{
		"memory.majority_ratio": 0.6,
		"log.level":             "debug",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Memory.MajorityRatio != 0.6 {
		t.Errorf("expected majority_ratio override 0.6, got %v", cfg.Memory.MajorityRatio)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level override 'debug', got %s", cfg.Log.Level)
	}
	// Untouched keys keep their defaults.
	if cfg.Memory.FolderLimit != 4096 {
		t.Errorf("expected default folder_limit, got %d", cfg.Memory.FolderLimit)
	}
}

func TestLoadOrDie(t *testing.T) {
	cfg := LoadOrDie("", nil)
	if cfg == nil {
		t.Error("expected non-nil config")
	}
}

func TestLoadOrDie_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for invalid config file")
		}
	}()

	LoadOrDie("/nonexistent/path/config.yaml", nil)
}

func TestLoader_LoadFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
app:
  name: yaml-test
  environment: production
log:
  level: debug
  format: text
memory:
  base_path: /var/lib/mnemo
  min_importance: 0.2
  middle_boundary: 0.4
  long_boundary: 0.7
  immortal_boundary: 0.95
  short:
    stale_after: 45m
  middle:
    expire_after: 6h
    promote_threshold: 0.75
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	loader := NewLoader()
	cfg, err := loader.Load(configPath, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.App.Name != "yaml-test" {
		t.Errorf("expected 'yaml-test', got '%s'", cfg.App.Name)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("expected debug/text, got %s/%s", cfg.Log.Level, cfg.Log.Format)
	}
	if cfg.Memory.BasePath != "/var/lib/mnemo" {
		t.Errorf("expected '/var/lib/mnemo', got '%s'", cfg.Memory.BasePath)
	}
	if cfg.Memory.MinImportance != 0.2 {
		t.Errorf("expected min_importance 0.2, got %v", cfg.Memory.MinImportance)
	}
	if cfg.Memory.LongBoundary != 0.7 || cfg.Memory.ImmortalBoundary != 0.95 {
		t.Errorf("expected boundaries 0.7/0.95, got %v/%v",
			cfg.Memory.LongBoundary, cfg.Memory.ImmortalBoundary)
	}
	if cfg.Memory.Short.StaleAfter != 45*time.Minute {
		t.Errorf("expected short stale_after 45m, got %v", cfg.Memory.Short.StaleAfter)
	}
	if cfg.Memory.Middle.ExpireAfter != 6*time.Hour {
		t.Errorf("expected middle expire_after 6h, got %v", cfg.Memory.Middle.ExpireAfter)
	}
	if cfg.Memory.Middle.PromoteThreshold != 0.75 {
		t.Errorf("expected middle promote_threshold 0.75, got %v", cfg.Memory.Middle.PromoteThreshold)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Memory.Long.ExpireAfter != 7*24*time.Hour {
		t.Errorf("expected default long expire_after, got %v", cfg.Memory.Long.ExpireAfter)
	}
}

func TestLoader_LoadJSONFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	jsonContent := `{
		"app": {
			"name": "json-test",
			"environment": "staging"
		},
		"memory": {
			"base_path": "/tmp/mnemo-json"
		},
		"log": {
			"level": "warn",
			"format": "json"
		}
	}`
	if err := os.WriteFile(configPath, []byte(jsonContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	loader := NewLoader()
	cfg, err := loader.Load(configPath, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.App.Name != "json-test" {
		t.Errorf("expected 'json-test', got '%s'", cfg.App.Name)
	}
	if cfg.Memory.BasePath != "/tmp/mnemo-json" {
		t.Errorf("expected '/tmp/mnemo-json', got '%s'", cfg.Memory.BasePath)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected 'warn', got '%s'", cfg.Log.Level)
	}
}

func TestLoader_LoadInvalidFile(t *testing.T) {
	loader := NewLoader()

	_, err := loader.Load("/nonexistent/config.yaml", nil)
	if err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestLoader_LoadUnsupportedFormat(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	if err := os.WriteFile(configPath, []byte("app = 'test'"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	loader := NewLoader()
	_, err := loader.Load(configPath, nil)
	if err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestLoader_InvalidValuesRejected(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
memory:
  immortal_boundary: 0.5
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	loader := NewLoader()
	_, err := loader.Load(configPath, nil)
	if err == nil {
		t.Error("expected boundary ordering violation to fail load")
	}
}
