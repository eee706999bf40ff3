// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package config

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sigil-dev/projector/internal/factstore"
	projerr "github.com/sigil-dev/projector/pkg/errors"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "PROJECTOR"

// Config is the top-level projector configuration.
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
	Watch   WatchConfig   `mapstructure:"watch"`
}

// StorageConfig selects the fact store backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig controls the process logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// WatchConfig controls live query output.
type WatchConfig struct {
	LoadTimeout time.Duration `mapstructure:"load_timeout"`
	Output      string        `mapstructure:"output"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.path", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("watch.load_timeout", "30s")
	v.SetDefault("watch.output", "json")
}

// SetupEnv binds PROJECTOR_* environment variables, e.g.
// PROJECTOR_STORAGE_BACKEND for storage.backend.
func SetupEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix PROJECTOR_).
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	SetupEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, projerr.Errorf(projerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	return FromViper(v)
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, projerr.Errorf(projerr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, projerr.Errorf(projerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors.
// It returns a slice of all validation errors found, collecting all issues
// rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateLogging()...)
	errs = append(errs, c.validateWatch()...)

	return errs
}

func (c *Config) validateStorage() []error {
	var errs []error

	validBackends := map[string]bool{"memory": true, "sqlite": true}
	if !validBackends[c.Storage.Backend] {
		errs = append(errs, projerr.Errorf(projerr.CodeConfigValidateInvalidValue,
			"config: storage.backend must be one of [memory, sqlite], got %q",
			c.Storage.Backend,
		))
	}

	if c.Storage.Backend == "memory" && c.Storage.Path != "" {
		errs = append(errs, projerr.Errorf(projerr.CodeConfigValidateInvalidValue,
			"config: storage.path is not used by the memory backend, got %q",
			c.Storage.Path,
		))
	}

	return errs
}

func (c *Config) validateLogging() []error {
	var errs []error

	if _, ok := levels[strings.ToLower(c.Logging.Level)]; !ok {
		errs = append(errs, projerr.Errorf(projerr.CodeConfigValidateInvalidValue,
			"config: logging.level must be one of [debug, info, warn, error], got %q",
			c.Logging.Level,
		))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Logging.Format] {
		errs = append(errs, projerr.Errorf(projerr.CodeConfigValidateInvalidValue,
			"config: logging.format must be one of [text, json], got %q",
			c.Logging.Format,
		))
	}

	return errs
}

func (c *Config) validateWatch() []error {
	var errs []error

	if c.Watch.LoadTimeout < 0 {
		errs = append(errs, projerr.Errorf(projerr.CodeConfigValidateInvalidValue,
			"config: watch.load_timeout must not be negative, got %s",
			c.Watch.LoadTimeout,
		))
	}

	validOutputs := map[string]bool{"json": true, "pretty": true}
	if !validOutputs[c.Watch.Output] {
		errs = append(errs, projerr.Errorf(projerr.CodeConfigValidateInvalidValue,
			"config: watch.output must be one of [json, pretty], got %q",
			c.Watch.Output,
		))
	}

	return errs
}

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// StorageConfig returns the fact store settings.
func (c *Config) StorageConfig() *factstore.StorageConfig {
	return &factstore.StorageConfig{Backend: c.Storage.Backend, Path: c.Storage.Path}
}

// NewLogger builds the process logger writing to w.
func (l LoggingConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: levels[strings.ToLower(l.Level)]}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
