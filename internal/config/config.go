// Cinemood - Emotion-Driven Movie Recommendation Backend
// Copyright 2026 Cinemood Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

// Package config provides layered configuration loading via Koanf v2.
//
// Sources are applied in order of increasing priority:
//
//  1. Built-in defaults
//  2. Config file (config.yaml)
//  3. Environment variables (SERVER_PORT, DATABASE_PATH, ...)
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Cinemood server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Cache    CacheConfig    `koanf:"cache"`
	Ranking  RankingConfig  `koanf:"ranking"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Host is the listen address.
	Host string `koanf:"host"`

	// Port is the listen port.
	Port int `koanf:"port"`

	// Timeout is the per-request read/write timeout.
	Timeout time.Duration `koanf:"timeout"`

	// CORSOrigins lists allowed CORS origins. Empty allows all.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitPerMinute caps requests per client IP per minute.
	RateLimitPerMinute int `koanf:"rate_limit_per_minute"`
}

// DatabaseConfig configures the DuckDB store.
type DatabaseConfig struct {
	// Path is the database file path. ":memory:" or empty runs the
	// in-memory store (useful for development and seed data).
	Path string `koanf:"path"`

	// MaxMemory is the DuckDB memory limit (e.g., "1GB").
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB thread count. 0 uses runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// CacheConfig configures the read-through TTL cache for option tags and
// sentiment keyword sets.
type CacheConfig struct {
	// TTL bounds staleness. Sentiment taxonomies change only via rare
	// administrative edits, so minutes are enough; values above one hour
	// are rejected to avoid serving suggestions computed against deleted
	// tags.
	TTL time.Duration `koanf:"ttl"`
}

// RankingConfig configures the suggestion ranker.
type RankingConfig struct {
	// BatchWorkers bounds the fan-out of the recompute-all operation.
	// Tuning parameter, not a correctness requirement.
	BatchWorkers int `koanf:"batch_workers"`

	// RelatedKeywordFactor scales the contribution of related-keyword
	// matches in free-text scoring.
	RelatedKeywordFactor float64 `koanf:"related_keyword_factor"`
}

// LoggingConfig configures the zerolog logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               3860,
			Timeout:            30 * time.Second,
			CORSOrigins:        nil,
			RateLimitPerMinute: 300,
		},
		Database: DatabaseConfig{
			Path:      "/data/cinemood.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		Cache: CacheConfig{
			TTL: 5 * time.Minute,
		},
		Ranking: RankingConfig{
			BatchWorkers:         4,
			RelatedKeywordFactor: 0.5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks configuration invariants after loading.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range 1-65535", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	if c.Cache.TTL > time.Hour {
		return fmt.Errorf("cache.ttl %s exceeds the 1h staleness bound", c.Cache.TTL)
	}
	if c.Ranking.BatchWorkers < 1 {
		return fmt.Errorf("ranking.batch_workers must be at least 1")
	}
	if c.Ranking.RelatedKeywordFactor < 0 || c.Ranking.RelatedKeywordFactor > 1 {
		return fmt.Errorf("ranking.related_keyword_factor must be within [0, 1]")
	}
	return nil
}
