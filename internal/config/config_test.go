// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sigil-dev/projector/internal/config"
	projerr "github.com/sigil-dev/projector/pkg/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Empty(t, cfg.Storage.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, 30*time.Second, cfg.Watch.LoadTimeout)
	assert.Equal(t, "json", cfg.Watch.Output)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "projector.yaml")

	content := `
storage:
  backend: sqlite
  path: /var/lib/projector
logging:
  level: debug
watch:
  load_timeout: 5s
  output: pretty
`
	err := os.WriteFile(cfgPath, []byte(content), 0o644)
	require.NoError(t, err)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "/var/lib/projector", cfg.Storage.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 5*time.Second, cfg.Watch.LoadTimeout)
	assert.Equal(t, "pretty", cfg.Watch.Output)
}

func TestLoad_DefaultFileIsValid(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "projector.yaml")
	require.NoError(t, os.WriteFile(cfgPath, config.DefaultConfigYAML, 0o600))

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Storage.Backend)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PROJECTOR_LOGGING_FORMAT", "json")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.True(t, projerr.HasCode(err, projerr.CodeConfigLoadReadFailure))
}

func TestLoad_ValidationCalledAtLoadTime(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "projector.yaml")

	content := `
storage:
  backend: postgres
logging:
  format: xml
`
	err := os.WriteFile(cfgPath, []byte(content), 0o644)
	require.NoError(t, err)

	_, err = config.Load(cfgPath)
	require.Error(t, err)
	assert.True(t, projerr.HasCode(err, projerr.CodeConfigValidateInvalidValue))
	assert.Contains(t, err.Error(), "storage.backend")
	assert.Contains(t, err.Error(), "logging.format")
}

func TestFromViper(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	v.Set("storage.backend", "sqlite")
	v.Set("storage.path", "facts.db")

	cfg, err := config.FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.StorageConfig().Backend)
	assert.Equal(t, "facts.db", cfg.StorageConfig().Path)
}

// validConfig returns a minimal config that passes all validation.
func validConfig() *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{Backend: "memory"},
		Logging: config.LoggingConfig{Level: "info", Format: "text"},
		Watch:   config.WatchConfig{LoadTimeout: time.Second, Output: "json"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantKey string
	}{
		{name: "valid", mutate: func(*config.Config) {}},
		{name: "sqlite with path", mutate: func(c *config.Config) {
			c.Storage.Backend = "sqlite"
			c.Storage.Path = "/tmp/facts.db"
		}},
		{name: "uppercase level", mutate: func(c *config.Config) { c.Logging.Level = "DEBUG" }},
		{name: "unknown backend", mutate: func(c *config.Config) { c.Storage.Backend = "postgres" }, wantKey: "storage.backend"},
		{name: "path on memory backend", mutate: func(c *config.Config) { c.Storage.Path = "x" }, wantKey: "storage.path"},
		{name: "unknown level", mutate: func(c *config.Config) { c.Logging.Level = "trace" }, wantKey: "logging.level"},
		{name: "unknown format", mutate: func(c *config.Config) { c.Logging.Format = "xml" }, wantKey: "logging.format"},
		{name: "negative timeout", mutate: func(c *config.Config) { c.Watch.LoadTimeout = -time.Second }, wantKey: "watch.load_timeout"},
		{name: "unknown output", mutate: func(c *config.Config) { c.Watch.Output = "yaml" }, wantKey: "watch.output"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			errs := cfg.Validate()
			if tt.wantKey == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0].Error(), tt.wantKey)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &config.Config{}

	errs := cfg.Validate()
	assert.Len(t, errs, 4, "backend, level, format and output are all empty")
}

func TestLoggingConfig_NewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := config.LoggingConfig{Level: "warn", Format: "json"}.NewLogger(&buf)

	logger.Info("dropped")
	logger.Warn("kept", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.True(t, strings.HasPrefix(out, "{"), "json handler output: %s", out)
	assert.Contains(t, out, `"k":"v"`)
}

func TestBootstrapConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "projector.yaml")

	assert.Equal(t, path, config.BootstrapConfig(path))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfigYAML, got)

	assert.Empty(t, config.BootstrapConfig(path), "existing file is left alone")
}
