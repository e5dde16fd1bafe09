package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create temp config: %v", err)
	}
	return configPath
}

func TestNewWatcher(t *testing.T) {
	loader := NewLoader()

	t.Run("valid config path", func(t *testing.T) {
		configPath := writeConfigFile(t, "app:\n  name: test\n")

		watcher, err := NewWatcher(configPath, loader)
		if err != nil {
			t.Fatalf("NewWatcher failed: %v", err)
		}
		defer watcher.Stop()

		if watcher.ConfigPath() != configPath {
			t.Errorf("expected config path %s, got %s", configPath, watcher.ConfigPath())
		}
		if watcher.IsRunning() {
			t.Error("expected watcher to not be running before Watch")
		}
	})

	t.Run("empty config path", func(t *testing.T) {
		_, err := NewWatcher("", loader)
		if err == nil {
			t.Fatal("expected error for empty config path")
		}
	})

	t.Run("with debounce option", func(t *testing.T) {
		configPath := writeConfigFile(t, "app:\n  name: test\n")

		watcher, err := NewWatcher(configPath, loader, WithDebounce(100*time.Millisecond))
		if err != nil {
			t.Fatalf("NewWatcher failed: %v", err)
		}
		defer watcher.Stop()

		if watcher.debounce != 100*time.Millisecond {
			t.Errorf("expected debounce 100ms, got %v", watcher.debounce)
		}
	})
}

func TestWatcher_Watch(t *testing.T) {
	t.Run("detects file changes", func(t *testing.T) {
		configPath := writeConfigFile(t, `app:
  name: test-app
memory:
  base_path: /tmp/mnemo
log:
  level: info
  format: json
`)

		watcher, err := NewWatcher(configPath, NewLoader())
		if err != nil {
			t.Fatalf("NewWatcher failed: %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		var callbackMu sync.Mutex
		var callbackCalled bool
		var receivedConfig *Config

		watcher.OnChange(func(cfg *Config) {
			callbackMu.Lock()
			defer callbackMu.Unlock()
			callbackCalled = true
			receivedConfig = cfg
		})

		watchErr := make(chan error, 1)
		go func() {
			watchErr <- watcher.Watch(ctx)
		}()

		// Wait a bit for watcher to start
		time.Sleep(100 * time.Millisecond)

		updated := `app:
  name: updated-app
memory:
  base_path: /tmp/mnemo
log:
  level: debug
  format: json
`
		if err := os.WriteFile(configPath, []byte(updated), 0644); err != nil {
			t.Fatalf("failed to update temp config: %v", err)
		}

		// Wait for the debounced reload
		time.Sleep(600 * time.Millisecond)

		callbackMu.Lock()
		if !callbackCalled {
			t.Error("expected callback to be called after config change")
		}
		if receivedConfig != nil && receivedConfig.Log.Level != "debug" {
			t.Errorf("expected log level 'debug', got '%s'", receivedConfig.Log.Level)
		}
		callbackMu.Unlock()

		watcher.Stop()
	})

	t.Run("stops on context cancel", func(t *testing.T) {
		configPath := writeConfigFile(t, "app:\n  name: test\n")

		watcher, err := NewWatcher(configPath, NewLoader())
		if err != nil {
			t.Fatalf("NewWatcher failed: %v", err)
		}
		defer watcher.Stop()

		ctx, cancel := context.WithCancel(context.Background())

		watchErr := make(chan error, 1)
		go func() {
			watchErr <- watcher.Watch(ctx)
		}()

		time.Sleep(100 * time.Millisecond)
		if !watcher.IsRunning() {
			t.Error("expected watcher to be running")
		}

		cancel()

		select {
		case err := <-watchErr:
			if err != context.Canceled {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("watcher did not stop on context cancel")
		}
	})

	t.Run("rejects double start", func(t *testing.T) {
		configPath := writeConfigFile(t, "app:\n  name: test\n")

		watcher, err := NewWatcher(configPath, NewLoader())
		if err != nil {
			t.Fatalf("NewWatcher failed: %v", err)
		}
		defer watcher.Stop()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		go func() { _ = watcher.Watch(ctx) }()
		time.Sleep(100 * time.Millisecond)

		if err := watcher.Watch(ctx); err == nil {
			t.Error("expected error starting an already-running watcher")
		}
	})
}
