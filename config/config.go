// ABOUTME: Configuration loading and parsing for olmstore
// ABOUTME: Supports YAML files with environment variable expansion and validation

package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Engine names accepted in backend.engine.
const (
	EngineMemory = "memory"
	EngineSQLite = "sqlite"
	EngineBolt   = "bolt"
	EnginePebble = "pebble"
)

// Config represents the complete olmstore configuration.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Logging LoggingConfig `yaml:"logging"`
}

// BackendConfig selects the storage substrate.
type BackendConfig struct {
	// Engine is one of: memory, sqlite, bolt, pebble.
	Engine string `yaml:"engine"`
	// Path is the database file (sqlite, bolt) or directory (pebble).
	// Unused by the memory engine.
	Path string `yaml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a configuration file from the given path and returns a
// parsed Config. Environment variables in the format ${VAR_NAME} are
// expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables expand to the empty
// string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present
// and valid. Returns an error describing the first validation failure
// encountered.
func (c *Config) Validate() error {
	switch c.Backend.Engine {
	case "", EngineMemory:
		// memory needs no path
	case EngineSQLite, EngineBolt, EnginePebble:
		if c.Backend.Path == "" {
			return fmt.Errorf("backend.path is required for engine %q", c.Backend.Engine)
		}
	default:
		return fmt.Errorf("unknown backend.engine %q", c.Backend.Engine)
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging.level %q", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown logging.format %q", c.Logging.Format)
	}

	return nil
}
