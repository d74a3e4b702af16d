package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Valid(t *testing.T) {
	path := writeConfig(t, `
backend:
  engine: sqlite
  path: /tmp/olmstore.db
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, EngineSQLite, cfg.Backend.Engine)
	assert.Equal(t, "/tmp/olmstore.db", cfg.Backend.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("OLMSTORE_DB_PATH", "/data/crypto.db")
	path := writeConfig(t, `
backend:
  engine: bolt
  path: ${OLMSTORE_DB_PATH}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/crypto.db", cfg.Backend.Path)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "empty config defaults to memory",
			cfg:  Config{},
		},
		{
			name: "memory engine without path",
			cfg:  Config{Backend: BackendConfig{Engine: EngineMemory}},
		},
		{
			name:    "sqlite requires path",
			cfg:     Config{Backend: BackendConfig{Engine: EngineSQLite}},
			wantErr: "backend.path is required",
		},
		{
			name:    "pebble requires path",
			cfg:     Config{Backend: BackendConfig{Engine: EnginePebble}},
			wantErr: "backend.path is required",
		},
		{
			name:    "unknown engine",
			cfg:     Config{Backend: BackendConfig{Engine: "leveldb"}},
			wantErr: "unknown backend.engine",
		},
		{
			name:    "unknown log level",
			cfg:     Config{Logging: LoggingConfig{Level: "verbose"}},
			wantErr: "unknown logging.level",
		},
		{
			name:    "unknown log format",
			cfg:     Config{Logging: LoggingConfig{Format: "xml"}},
			wantErr: "unknown logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
