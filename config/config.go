// Package config provides configuration management for Mnemo.
package config

import (
	"fmt"
	"time"
)

// Config is the global configuration for Mnemo.
type Config struct {
	// App is the application configuration.
	App AppConfig `mapstructure:"app" validate:"required"`

	// Log is the logging configuration.
	Log LogConfig `mapstructure:"log" validate:"required"`

	// Memory is the tiered memory substrate configuration.
	Memory MemoryConfig `mapstructure:"memory" validate:"required"`

	// Metrics is the observability configuration.
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// Validate performs validation on the configuration.
func (c *Config) Validate() error {
	return ValidateWithDetails(c)
}

// String returns a string representation of the configuration (without sensitive data).
func (c *Config) String() string {
	return fmt.Sprintf("Config{App: %s, BasePath: %s, Env: %s}",
		c.App.Name, c.Memory.BasePath, c.App.Environment)
}

// AppConfig holds application metadata and settings.
type AppConfig struct {
	// Name is the application name.
	Name string `mapstructure:"name" validate:"required"`

	// Version is the application version.
	Version string `mapstructure:"version"`

	// Environment is the runtime environment (development, staging, production).
	Environment string `mapstructure:"environment" validate:"oneof=development staging production"`

	// Debug enables debug mode with verbose logging.
	Debug bool `mapstructure:"debug"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`

	// Format is the log output format ("json" or "text").
	Format string `mapstructure:"format" validate:"oneof=json text"`

	// Output is "stdout", "stderr", or a file path.
	Output string `mapstructure:"output"`
}

// MemoryConfig holds the tiered memory substrate configuration.
type MemoryConfig struct {
	// BasePath is the root directory of all tier and knowlet storage.
	BasePath string `mapstructure:"base_path" validate:"required"`

	// AtomExtension is the file extension of stored atoms.
	AtomExtension string `mapstructure:"atom_extension"`

	// KnowletExtension is the file extension of stored knowlets.
	KnowletExtension string `mapstructure:"knowlet_extension"`

	// IndexPath is the directory of the Badger-backed atom locator index.
	// Empty disables the index; reads fall back to tier probing.
	IndexPath string `mapstructure:"index_path"`

	// MinImportance is the global write floor; writes below it are rejected.
	MinImportance float64 `mapstructure:"min_importance" validate:"gte=0,lte=1"`

	// MiddleBoundary routes writes with importance >= this value to Middle.
	MiddleBoundary float64 `mapstructure:"middle_boundary" validate:"gte=0,lte=1"`

	// LongBoundary routes writes with importance >= this value to Long.
	LongBoundary float64 `mapstructure:"long_boundary" validate:"gte=0,lte=1"`

	// ImmortalBoundary routes writes with importance >= this value to Immortal.
	ImmortalBoundary float64 `mapstructure:"immortal_boundary" validate:"gte=0,lte=1"`

	// MajorityRatio is the knowlet consolidation gate; matching atoms must
	// strictly exceed this fraction of the tier population.
	MajorityRatio float64 `mapstructure:"majority_ratio" validate:"gte=0,lte=1"`

	// FolderLimit is the directory entry count above which shards expand.
	FolderLimit int `mapstructure:"folder_limit" validate:"min=1"`

	// Short, Middle, Long, and Immortal hold per-tier policy.
	Short    TierConfig `mapstructure:"short"`
	Middle   TierConfig `mapstructure:"middle"`
	Long     TierConfig `mapstructure:"long"`
	Immortal TierConfig `mapstructure:"immortal"`
}

// TierConfig holds the retention and capacity policy of one tier.
type TierConfig struct {
	// MaxCapacity is the tier's atom capacity; 0 means unbounded.
	MaxCapacity int `mapstructure:"max_capacity" validate:"min=0"`

	// StaleAfter is the age after which an atom is reported stale.
	// Zero means atoms never go stale.
	StaleAfter time.Duration `mapstructure:"stale_after"`

	// ExpireAfter is the age after which an atom is reported expired.
	// Zero means atoms never expire.
	ExpireAfter time.Duration `mapstructure:"expire_after"`

	// PromoteThreshold is the importance at or above which an atom is
	// reported promotable to the next tier.
	PromoteThreshold float64 `mapstructure:"promote_threshold" validate:"gte=0"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled turns metrics collection on.
	Enabled bool `mapstructure:"enabled"`

	// Port is the metrics HTTP listener port.
	Port int `mapstructure:"port" validate:"min=0,max=65535"`

	// Path is the metrics endpoint path.
	Path string `mapstructure:"path"`
}
