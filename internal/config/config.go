// Filmoteket - Movie Catalog Ingestion and Reconciliation
// Copyright 2026 Filmoteket contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/filmoteket/filmoteket

// Package config loads runtime configuration with Koanf v2, layered as
// defaults, then an optional YAML file, then environment variables:
// ENV > file > defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/filmoteket/filmoteket/internal/validation"
)

// DefaultConfigPaths lists where config files are searched, in order. The
// first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/filmoteket/config.yaml",
	"/etc/filmoteket/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Config is the full runtime configuration.
type Config struct {
	TMDB     TMDBConfig     `koanf:"tmdb"`
	Feeds    FeedsConfig    `koanf:"feeds"`
	Store    StoreConfig    `koanf:"store"`
	Dispatch DispatchConfig `koanf:"dispatch"`
	Pool     PoolConfig     `koanf:"pool"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// TMDBConfig configures the provider gateway.
type TMDBConfig struct {
	BaseURL           string        `koanf:"base_url" validate:"required,url"`
	ExportBaseURL     string        `koanf:"export_base_url" validate:"required,url"`
	APIKey            string        `koanf:"api_key" validate:"required"`
	Timeout           time.Duration `koanf:"timeout" validate:"gt=0"`
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gt=0"`
	MaxAttempts       int           `koanf:"max_attempts" validate:"gte=1,lte=20"`
	TimeoutDelay      time.Duration `koanf:"timeout_delay" validate:"gt=0"`
	ConnectDelay      time.Duration `koanf:"connect_delay" validate:"gt=0"`
	RetryAfterMargin  time.Duration `koanf:"retry_after_margin" validate:"gt=0"`
}

// FeedsConfig locates the bulk TSV feeds.
type FeedsConfig struct {
	RatingsURL string `koanf:"ratings_url" validate:"required,url"`
	TitlesURL  string `koanf:"titles_url" validate:"required,url"`
	ChunkSize  int    `koanf:"chunk_size" validate:"gte=1,lte=10000"`
}

// StoreConfig locates the document store.
type StoreConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// DispatchConfig tunes the chunk bus.
type DispatchConfig struct {
	BufferSize           int           `koanf:"buffer_size" validate:"gte=1"`
	RetryMaxRetries      int           `koanf:"retry_max_retries" validate:"gte=0,lte=50"`
	RetryInitialInterval time.Duration `koanf:"retry_initial_interval" validate:"gt=0"`
	RetryMaxInterval     time.Duration `koanf:"retry_max_interval" validate:"gt=0"`
	CloseTimeout         time.Duration `koanf:"close_timeout" validate:"gt=0"`
}

// PoolConfig bounds the enrichment fan-out.
type PoolConfig struct {
	Workers int `koanf:"workers" validate:"gte=1,lte=100"`
}

// LoggingConfig configures the log stream.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns the built-in defaults, applied before file and env.
func defaultConfig() *Config {
	return &Config{
		TMDB: TMDBConfig{
			BaseURL:           "https://api.themoviedb.org/3",
			ExportBaseURL:     "https://files.tmdb.org/p/exports",
			APIKey:            "",
			Timeout:           10 * time.Second,
			RequestsPerSecond: 40,
			MaxAttempts:       8,
			TimeoutDelay:      10 * time.Second,
			ConnectDelay:      30 * time.Second,
			RetryAfterMargin:  time.Second,
		},
		Feeds: FeedsConfig{
			RatingsURL: "https://datasets.imdbws.com/title.ratings.tsv.gz",
			TitlesURL:  "https://datasets.imdbws.com/title.akas.tsv.gz",
			ChunkSize:  100,
		},
		Store: StoreConfig{
			Path: "/data/filmoteket",
		},
		Dispatch: DispatchConfig{
			BufferSize:           64,
			RetryMaxRetries:      5,
			RetryInitialInterval: time.Second,
			RetryMaxInterval:     time.Minute,
			CloseTimeout:         30 * time.Second,
		},
		Pool: PoolConfig{
			Workers: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variables, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("FILMOTEKET_", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration invalid: %w", err)
	}
	return cfg, nil
}

// Validate checks the assembled configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}
	return nil
}

// findConfigFile returns the first existing config file path.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps environment variable names to config paths:
// FILMOTEKET_TMDB_API_KEY -> tmdb.api_key, FILMOTEKET_POOL_WORKERS ->
// pool.workers. The first underscore separates the section; the rest of the
// name is the key.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, "FILMOTEKET_"))
	section, rest, found := strings.Cut(key, "_")
	if !found {
		return section
	}
	return section + "." + rest
}
