// Cinemood - Emotion-Driven Movie Recommendation Backend
// Copyright 2026 Cinemood Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

// Package metrics exposes Prometheus instrumentation for the journey
// walker, the suggestion ranker, the store, and the HTTP layer.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Journey traversal metrics
	JourneyAdvances = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinemood_journey_advances_total",
			Help: "Total journey advance operations by result",
		},
		[]string{"result"}, // "next_step", "terminal", "invalid_choice", "broken_graph", "not_found"
	)

	GraphValidationViolations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinemood_graph_validation_violations_total",
			Help: "Total graph validation violations detected by kind",
		},
		[]string{"kind"}, // "unresolved_next_step", "orphaned_step", "initial_cycle", "terminal_disagreement"
	)

	// Ranking metrics
	RankingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinemood_ranking_duration_seconds",
			Help:    "Duration of ranking operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // "rank_option", "recompute_movie", "recompute_all"
	)

	RelevanceRecomputes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinemood_relevance_recomputes_total",
			Help: "Total suggestion relevance recompute operations by outcome",
		},
		[]string{"outcome"}, // "ok", "error"
	)

	IntegrityWarnings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinemood_integrity_warnings_total",
			Help: "Total dangling-reference warnings collected during batch ranking",
		},
	)

	// Store metrics
	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinemood_store_query_duration_seconds",
			Help:    "Duration of store queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	StoreQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinemood_store_query_errors_total",
			Help: "Total store query errors",
		},
		[]string{"operation"},
	)

	// Cache metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinemood_cache_hits_total",
			Help: "Total TTL cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinemood_cache_misses_total",
			Help: "Total TTL cache misses",
		},
	)

	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinemood_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// ObserveStoreQuery records a store query duration and outcome.
func ObserveStoreQuery(operation string, start time.Time, err error) {
	StoreQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		StoreQueryErrors.WithLabelValues(operation).Inc()
	}
}

// ObserveHTTPRequest records an HTTP request duration.
func ObserveHTTPRequest(method, path string, status int, start time.Time) {
	HTTPRequestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
}
