// Cinemood - Emotion-Driven Movie Recommendation Backend
// Copyright 2026 Cinemood Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cinemood/cinemood/internal/config"
)

// Router wires handlers, middleware, and server configuration.
type Router struct {
	handler *Handler
	cfg     config.ServerConfig
}

// NewRouter creates an HTTP router for the given handler set.
func NewRouter(handler *Handler, cfg config.ServerConfig) *Router {
	return &Router{handler: handler, cfg: cfg}
}

// chiPathValue bridges Chi URL params to Go 1.22+ r.PathValue().
func chiPathValue(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rctx := chi.RouteContext(r.Context())
		if rctx != nil {
			for i, key := range rctx.URLParams.Keys {
				if i < len(rctx.URLParams.Values) {
					r.SetPathValue(key, rctx.URLParams.Values[i])
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Setup configures all HTTP routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order.
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(AccessLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   router.corsOrigins(),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           86400,
	}))

	// Health endpoints get permissive rate limiting for monitoring.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, time.Minute))
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
		r.Get("/", router.handler.HealthLive)
	})

	// Core journey and ranking endpoints.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(router.cfg.RateLimitPerMinute, time.Minute))
		r.Use(PrometheusMetrics)
		r.Use(chiPathValue)

		r.Get("/sentiments", router.handler.ListSentiments)
		r.Get("/sentiments/{id}", router.handler.GetSentiment)

		r.Route("/journeys", func(r chi.Router) {
			r.Get("/{mainSentimentID}/initial", router.handler.JourneyInitial)
			r.Post("/advance", router.handler.JourneyAdvance)
			r.Get("/{graphID}/validate", router.handler.JourneyValidate)
		})

		r.Get("/options/{optionID}/suggestions", router.handler.OptionSuggestions)

		r.Route("/suggestions", func(r chi.Router) {
			r.Get("/duplicates", router.handler.DuplicateSuggestions)
		})

		r.Get("/search/sentiments", router.handler.SearchSentiments)
	})

	// Recompute fans out across the whole suggestion table, so it gets a
	// stricter limit than read endpoints.
	r.Route("/api/v1/relevance", func(r chi.Router) {
		r.Use(httprate.LimitByIP(10, time.Minute))
		r.Use(PrometheusMetrics)

		r.Post("/recompute", router.handler.RecomputeRelevance)
	})

	// Observability
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// corsOrigins returns the configured origins, defaulting to all.
func (router *Router) corsOrigins() []string {
	if len(router.cfg.CORSOrigins) == 0 {
		return []string{"*"}
	}
	return router.cfg.CORSOrigins
}
