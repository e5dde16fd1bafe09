package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"unknown", InfoLevel}, // default
		{"", InfoLevel},        // default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DebugLevel, "debug"},
		{InfoLevel, "info"},
		{WarnLevel, "warn"},
		{ErrorLevel, "error"},
		{Level(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := tt.level.String()
			if result != tt.expected {
				t.Errorf("Level.String() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestNew(t *testing.T) {
	// Test with nil config (should use defaults)
	log := New(nil)
	if log == nil {
		t.Fatal("expected non-nil logger")
	}

	// Test with custom config
	cfg := &Config{
		Level:  DebugLevel,
		Format: "text",
		Output: "stdout",
	}
	log = New(cfg)
	if log == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestSlogLogger_Level(t *testing.T) {
	cfg := &Config{
		Level:  InfoLevel,
		Format: "text",
		Output: "stdout",
	}
	log := New(cfg).(*SlogLogger)

	if log.GetLevel() != InfoLevel {
		t.Errorf("GetLevel() = %v, want %v", log.GetLevel(), InfoLevel)
	}

	log.SetLevel(DebugLevel)
	if log.GetLevel() != DebugLevel {
		t.Errorf("GetLevel() after SetLevel = %v, want %v", log.GetLevel(), DebugLevel)
	}
}

func TestSlogLogger_With(t *testing.T) {
	cfg := &Config{
		Level:  InfoLevel,
		Format: "text",
		Output: "stdout",
	}
	log := New(cfg)

	newLog := log.With("key", "value")
	if newLog == nil {
		t.Fatal("expected non-nil logger from With")
	}
}

func TestSlogLogger_WithContext(t *testing.T) {
	cfg := &Config{
		Level:  InfoLevel,
		Format: "text",
		Output: "stdout",
	}
	log := New(cfg)
	ctx := context.Background()

	newCtx := log.WithContext(ctx)
	if newCtx == nil {
		t.Fatal("expected non-nil context")
	}

	// Test FromContext
	retrievedLog := FromContext(newCtx)
	if retrievedLog == nil {
		t.Fatal("expected non-nil logger from context")
	}
}

func TestFromContext_NoLogger(t *testing.T) {
	ctx := context.Background()
	log := FromContext(ctx)
	if log == nil {
		t.Fatal("expected global logger when no logger in context")
	}
}

func TestGlobal(t *testing.T) {
	// Test Global returns non-nil
	log := Global()
	if log == nil {
		t.Fatal("expected non-nil global logger")
	}

	// Test SetGlobal
	newLog := New(&Config{Level: DebugLevel, Format: "text", Output: "stdout"})
	SetGlobal(newLog)

	// Note: SetGlobal only sets once due to sync.Once
}

func TestConvenienceFunctions(t *testing.T) {
	// These should not panic
	Debug("debug message", "key", "value")
	Info("info message", "key", "value")
	Warn("warn message", "key", "value")
	Error("error message", "key", "value")

	ctx := context.Background()
	DebugContext(ctx, "debug message", "key", "value")
	InfoContext(ctx, "info message", "key", "value")
	WarnContext(ctx, "warn message", "key", "value")
	ErrorContext(ctx, "error message", "key", "value")
}

func TestSetLevel(t *testing.T) {
	// Should not panic
	SetLevel(DebugLevel)
	SetLevel(InfoLevel)
}

func TestSlogLogger_Close(t *testing.T) {
	t.Run("stdout output returns nil closer", func(t *testing.T) {
		cfg := &Config{
			Level:  InfoLevel,
			Format: "text",
			Output: "stdout",
		}
		log := New(cfg).(*SlogLogger)

		// Close should return nil for stdout
		if err := log.Close(); err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
	})

	t.Run("stderr output returns nil closer", func(t *testing.T) {
		cfg := &Config{
			Level:  InfoLevel,
			Format: "text",
			Output: "stderr",
		}
		log := New(cfg).(*SlogLogger)

		if err := log.Close(); err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
	})

	t.Run("file output can be closed", func(t *testing.T) {
		tmpDir := t.TempDir()
		logFile := filepath.Join(tmpDir, "test.log")

		cfg := &Config{
			Level:  InfoLevel,
			Format: "json",
			Output: logFile,
		}
		log := New(cfg).(*SlogLogger)

		// Write something
		log.Info("test message", "key", "value")

		// Close should work
		if err := log.Close(); err != nil {
			t.Errorf("unexpected error on close: %v", err)
		}

		// Verify file was created and has content
		content, err := os.ReadFile(logFile)
		if err != nil {
			t.Fatalf("failed to read log file: %v", err)
		}
		if len(content) == 0 {
			t.Error("expected log file to have content")
		}
	})

	t.Run("derived logger has nil closer", func(t *testing.T) {
		cfg := &Config{
			Level:  InfoLevel,
			Format: "text",
			Output: "stdout",
		}
		log := New(cfg).With("component", "test").(*SlogLogger)

		// Derived loggers have nil closer
		if err := log.Close(); err != nil {
			t.Errorf("expected nil error for derived logger, got %v", err)
		}
	})

	t.Run("invalid path falls back to stdout", func(t *testing.T) {
		cfg := &Config{
			Level:  InfoLevel,
			Format: "text",
			Output: "/nonexistent/path/to/file.log",
		}
		log := New(cfg).(*SlogLogger)

		// Should not panic and should have nil closer (stdout fallback)
		if err := log.Close(); err != nil {
			t.Errorf("expected nil error for stdout fallback, got %v", err)
		}
	})
}

func TestGetWriter(t *testing.T) {
	tests := []struct {
		name       string
		output     string
		wantCloser bool
	}{
		{"stdout", "stdout", false},
		{"stderr", "stderr", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, closer := getWriter(tt.output)
			if tt.wantCloser && closer == nil {
				t.Error("expected non-nil closer")
			}
			if !tt.wantCloser && closer != nil {
				t.Error("expected nil closer")
			}
		})
	}
}
