package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "MNEMO_"
	// Delimiter is the key delimiter for nested config.
	Delimiter = "."
)

// Loader handles configuration loading from various sources.
type Loader struct {
	k *koanf.Koanf
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	return &Loader{
		k: koanf.New(Delimiter),
	}
}

// Load loads configuration from all sources with the following priority:
// 1. Explicit overrides (highest)
// 2. Environment variables
// 3. Configuration files
// 4. Defaults (lowest)
func (l *Loader) Load(configPath string, overrides map[string]interface{}) (*Config, error) {
	if err := l.loadDefaults(); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := l.loadFile(configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		l.loadDefaultFiles()
	}

	if err := l.loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if len(overrides) > 0 {
		if err := l.k.Load(confmap.Provider(overrides, Delimiter), nil); err != nil {
			return nil, fmt.Errorf("failed to apply overrides: %w", err)
		}
	}

	// Koanf replaces nested structs wholesale, so defaults are re-applied
	// for any key the other sources did not touch.
	if err := l.fillDefaults(); err != nil {
		return nil, fmt.Errorf("failed to fill defaults: %w", err)
	}

	var cfg Config
	if err := l.k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "mapstructure",
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := ValidateWithDetails(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDefaults loads the default configuration.
func (l *Loader) loadDefaults() error {
	defaults := DefaultConfig()
	return l.k.Load(confmap.Provider(map[string]interface{}{
		"app":     defaults.App,
		"log":     defaults.Log,
		"memory":  defaults.Memory,
		"metrics": defaults.Metrics,
	}, Delimiter), nil)
}

// loadFile loads configuration from a file.
func (l *Loader) loadFile(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser

	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", path)
	}

	return l.k.Load(file.Provider(path), parser)
}

// loadDefaultFiles tries to load config from standard locations.
func (l *Loader) loadDefaultFiles() {
	candidates := []string{
		"config.yaml",
		"config.yml",
		"config.json",
		"configs/config.yaml",
		"/etc/mnemo/config.yaml",
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			_ = l.loadFile(path) // Ignore error, try next
			return
		}
	}
}

// loadEnv loads configuration from environment variables.
// MNEMO_MEMORY_BASE_PATH -> memory.base_path is not expressible through a
// plain delimiter swap, so only single-underscore keys (MNEMO_LOG_LEVEL ->
// log.level) map automatically; compound keys use config files or overrides.
func (l *Loader) loadEnv() error {
	return l.k.Load(env.Provider(EnvPrefix, Delimiter, func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil)
}

// Get returns a configuration value by key.
func (l *Loader) Get(key string) interface{} {
	return l.k.Get(key)
}

// GetString returns a string configuration value.
func (l *Loader) GetString(key string) string {
	return l.k.String(key)
}

// GetInt returns an int configuration value.
func (l *Loader) GetInt(key string) int {
	return l.k.Int(key)
}

// GetBool returns a bool configuration value.
func (l *Loader) GetBool(key string) bool {
	return l.k.Bool(key)
}

// Set sets a configuration value.
func (l *Loader) Set(key string, value interface{}) error {
	return l.k.Set(key, value)
}

// Print prints the loaded configuration for debugging.
func (l *Loader) Print() string {
	return l.k.Sprint()
}

// Load is a convenience function to load configuration.
func Load(configPath string, overrides map[string]interface{}) (*Config, error) {
	loader := NewLoader()
	return loader.Load(configPath, overrides)
}

// LoadOrDie loads configuration and panics on error.
func LoadOrDie(configPath string, overrides map[string]interface{}) *Config {
	cfg, err := Load(configPath, overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// fillDefaults fills in default values for any key absent after merging.
func (l *Loader) fillDefaults() error {
	defaults := DefaultConfig()
	defaultsMap := structToMap(defaults, "")

	for key, value := range defaultsMap {
		if l.k.Get(key) == nil {
			if err := l.k.Set(key, value); err != nil {
				return fmt.Errorf("failed to set default for %s: %w", key, err)
			}
		}
	}

	return nil
}

// structToMap recursively converts a struct to a flat map with dot-separated
// keys, enabling default extraction without manual field listing.
func structToMap(v interface{}, prefix string) map[string]interface{} {
	result := make(map[string]interface{})
	val := reflect.ValueOf(v)

	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return result
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		fieldVal := val.Field(i)

		if !field.IsExported() {
			continue
		}

		key := field.Tag.Get("mapstructure")
		if key == "" || key == "-" {
			continue
		}

		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		switch fieldVal.Kind() {
		case reflect.Struct:
			nested := structToMap(fieldVal.Interface(), fullKey)
			for k, v := range nested {
				result[k] = v
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			result[fullKey] = fieldVal.Int()
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			result[fullKey] = fieldVal.Uint()
		case reflect.Float32, reflect.Float64:
			result[fullKey] = fieldVal.Float()
		case reflect.Bool:
			result[fullKey] = fieldVal.Bool()
		case reflect.String:
			result[fullKey] = fieldVal.String()
		}
	}

	return result
}
