// Cinemood - Emotion-Driven Movie Recommendation Backend
// Copyright 2026 Cinemood Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

// Command server runs the Cinemood HTTP API: journey graph traversal,
// suggestion ranking, and sentiment text search.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/cinemood/cinemood/internal/api"
	"github.com/cinemood/cinemood/internal/cache"
	"github.com/cinemood/cinemood/internal/config"
	"github.com/cinemood/cinemood/internal/journey"
	"github.com/cinemood/cinemood/internal/logging"
	"github.com/cinemood/cinemood/internal/ranking"
	"github.com/cinemood/cinemood/internal/store"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Server exited with error")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logger := logging.Logger()

	st, closeStore, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	ttlCache := cache.New(cfg.Cache.TTL)
	walker := journey.NewWalker(st, logger)
	ranker := ranking.NewRanker(st, ttlCache, cfg.Ranking, logger)

	handler := api.NewHandler(st, walker, ranker)
	router := api.NewRouter(handler, cfg.Server)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutdown signal received, draining connections")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	logger.Info().Msg("Server stopped")
	return nil
}

// openStore selects the backing store. An empty or ":memory:" database path
// runs the in-memory store, which is useful for development and seed data.
func openStore(cfg *config.Config) (store.Store, func(), error) {
	if cfg.Database.Path == "" || cfg.Database.Path == ":memory:" {
		logging.Warn().Msg("Running with in-memory store; data will not survive restarts")
		return store.NewMemory(), func() {}, nil
	}

	db, err := store.NewDuckDB(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Failed to close store")
			return
		}
		logging.Info().Msg("Store closed")
	}
	logging.Info().Str("path", cfg.Database.Path).Msg("DuckDB store opened")
	return db, closeFn, nil
}
