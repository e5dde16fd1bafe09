package config

import "time"

// DefaultConfig returns a Config with sensible defaults. The memory
// thresholds mirror the observed production values: write floor 0.3,
// tier routing at 0.4/0.6/0.9, strict-majority consolidation at 0.5.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:        "mnemo",
			Version:     "dev",
			Environment: "development",
			Debug:       false,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Memory: MemoryConfig{
			BasePath:         "data",
			AtomExtension:    ".atom",
			KnowletExtension: ".knowlet",
			IndexPath:        "",
			MinImportance:    0.3,
			MiddleBoundary:   0.4,
			LongBoundary:     0.6,
			ImmortalBoundary: 0.9,
			MajorityRatio:    0.5,
			FolderLimit:      4096,
			Short: TierConfig{
				MaxCapacity:      0,
				StaleAfter:       30 * time.Minute,
				PromoteThreshold: 0.5,
			},
			Middle: TierConfig{
				MaxCapacity:      0,
				ExpireAfter:      5 * time.Hour,
				PromoteThreshold: 0.7,
			},
			Long: TierConfig{
				MaxCapacity:      0,
				ExpireAfter:      7 * 24 * time.Hour,
				PromoteThreshold: 0.95,
			},
			Immortal: TierConfig{
				MaxCapacity:      0,
				PromoteThreshold: 1.0, // no tier above immortal
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9091,
			Path:    "/metrics",
		},
	}
}
