// Cinemood - Emotion-Driven Movie Recommendation Backend
// Copyright 2026 Cinemood Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/cinemood/cinemood/internal/config"
	"github.com/cinemood/cinemood/internal/logging"
)

// DuckDB is the production Store implementation backed by DuckDB through
// database/sql.
type DuckDB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig

	// Prepared statement caching
	stmtCache   map[string]*sql.Stmt
	stmtCacheMu sync.RWMutex
}

// NewDuckDB opens (or creates) the database file, applies settings, and
// initializes the schema.
func NewDuckDB(cfg *config.DatabaseConfig) (*DuckDB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	// Ensure parent directory exists for database file
	if cfg.Path != "" && cfg.Path != ":memory:" {
		dbDir := filepath.Dir(cfg.Path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
	}

	dsn := cfg.Path
	if dsn == ":memory:" {
		dsn = ""
	}

	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(numThreads)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	db := &DuckDB{
		conn:      conn,
		cfg:       cfg,
		stmtCache: make(map[string]*sql.Stmt),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.MaxMemory != "" {
		if _, err := conn.ExecContext(ctx, fmt.Sprintf("SET memory_limit = '%s'", cfg.MaxMemory)); err != nil {
			logging.Warn().Err(err).Str("limit", cfg.MaxMemory).Msg("Failed to set memory limit")
		}
	}

	if err := db.initSchema(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logging.Info().Str("path", cfg.Path).Int("threads", numThreads).Msg("Database initialized")

	return db, nil
}

// Close releases prepared statements and the connection pool.
func (db *DuckDB) Close() error {
	db.stmtCacheMu.Lock()
	for _, stmt := range db.stmtCache {
		closeQuietly(stmt)
	}
	db.stmtCache = make(map[string]*sql.Stmt)
	db.stmtCacheMu.Unlock()

	return db.conn.Close()
}

// Ping verifies the connection is alive.
func (db *DuckDB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// initSchema creates the core tables and indexes.
func (db *DuckDB) initSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS main_sentiments (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			description TEXT,
			keywords TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS sub_sentiments (
			id BIGINT PRIMARY KEY,
			main_sentiment_id BIGINT NOT NULL,
			name TEXT NOT NULL,
			description TEXT,
			keywords TEXT,
			default_weight DOUBLE DEFAULT 0.5
		)`,
		`CREATE TABLE IF NOT EXISTS journey_graphs (
			id BIGINT PRIMARY KEY,
			main_sentiment_id BIGINT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS journey_steps (
			id BIGINT PRIMARY KEY,
			graph_id BIGINT NOT NULL,
			step_identifier TEXT NOT NULL,
			step_order INTEGER NOT NULL,
			question TEXT NOT NULL
		)`,
		// next_step_id NULL means terminal; is_terminal is the legacy
		// column kept for disagreement detection at scan time.
		`CREATE TABLE IF NOT EXISTS journey_options (
			id BIGINT PRIMARY KEY,
			step_id BIGINT NOT NULL,
			option_text TEXT NOT NULL,
			display_title TEXT,
			next_step_id TEXT,
			is_terminal BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS journey_option_tags (
			option_id BIGINT NOT NULL,
			sub_sentiment_id BIGINT NOT NULL,
			weight DOUBLE NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS movies (
			id BIGINT PRIMARY KEY,
			title TEXT NOT NULL,
			year INTEGER,
			overview TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS movie_sentiment_tags (
			movie_id BIGINT NOT NULL,
			sub_sentiment_id BIGINT NOT NULL,
			weight DOUBLE NOT NULL,
			explanation TEXT
		)`,
		// No uniqueness on (option_id, movie_id): duplicate suggestion
		// rows are legitimate input, surfaced by the dedupe diagnostic.
		`CREATE TABLE IF NOT EXISTS suggestions (
			id BIGINT PRIMARY KEY,
			option_id BIGINT NOT NULL,
			movie_id BIGINT NOT NULL,
			reason TEXT,
			relevance INTEGER NOT NULL DEFAULT 0,
			relevance_score DOUBLE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_steps_graph ON journey_steps(graph_id)`,
		`CREATE INDEX IF NOT EXISTS idx_options_step ON journey_options(step_id)`,
		`CREATE INDEX IF NOT EXISTS idx_option_tags_option ON journey_option_tags(option_id)`,
		`CREATE INDEX IF NOT EXISTS idx_movie_tags_movie ON movie_sentiment_tags(movie_id)`,
		`CREATE INDEX IF NOT EXISTS idx_suggestions_option ON suggestions(option_id)`,
		`CREATE INDEX IF NOT EXISTS idx_suggestions_movie ON suggestions(movie_id)`,
	}

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

// getStmt returns a cached prepared statement, preparing it on first use.
func (db *DuckDB) getStmt(ctx context.Context, query string) (*sql.Stmt, error) {
	db.stmtCacheMu.RLock()
	stmt, ok := db.stmtCache[query]
	db.stmtCacheMu.RUnlock()
	if ok {
		return stmt, nil
	}

	prepared, err := db.conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	db.stmtCacheMu.Lock()
	defer db.stmtCacheMu.Unlock()
	if existing, ok := db.stmtCache[query]; ok {
		// Lost the race; keep the first one.
		closeQuietly(prepared)
		return existing, nil
	}
	db.stmtCache[query] = prepared
	return prepared, nil
}

// closeQuietly closes a resource and explicitly ignores any error.
// Use in cleanup paths where Close() errors are not actionable.
func closeQuietly(closer interface{ Close() error }) {
	if closer != nil {
		_ = closer.Close()
	}
}
