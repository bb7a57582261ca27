// Cinemood - Emotion-Driven Movie Recommendation Backend
// Copyright 2026 Cinemood Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

// Package api exposes the journey and ranking operations over HTTP using
// the Chi router. All endpoints respond with the standard envelope from
// internal/models.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/cinemood/cinemood/internal/journey"
	"github.com/cinemood/cinemood/internal/logging"
	"github.com/cinemood/cinemood/internal/models"
	"github.com/cinemood/cinemood/internal/ranking"
	"github.com/cinemood/cinemood/internal/store"
)

// Pinger is implemented by stores with a liveness check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds the dependencies shared by all HTTP handlers.
type Handler struct {
	store     store.Store
	walker    *journey.Walker
	ranker    *ranking.Ranker
	startTime time.Time
}

// NewHandler creates the HTTP handler set.
func NewHandler(st store.Store, walker *journey.Walker, ranker *ranking.Ranker) *Handler {
	return &Handler{
		store:     st,
		walker:    walker,
		ranker:    ranker,
		startTime: time.Now(),
	}
}

// HealthLive handles liveness probe requests.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"alive":  true,
			"uptime": time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// HealthReady handles readiness probe requests. Returns 200 only when the
// store answers a ping; stores without a liveness check are assumed ready.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ready := true
	if p, ok := h.store.(Pinger); ok {
		ready = p.Ping(r.Context()) == nil
	}

	statusCode := http.StatusOK
	status := "ready"
	if !ready {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	respondJSON(w, statusCode, &models.APIResponse{
		Status: status,
		Data: map[string]interface{}{
			"store_connected": ready,
			"uptime":          time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// ListSentiments returns all main sentiments.
func (h *Handler) ListSentiments(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	sentiments, err := h.store.ListMainSentiments(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{"sentiments": sentiments}, start)
}

// GetSentiment returns one main sentiment by ID.
func (h *Handler) GetSentiment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, err := pathID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, err.Error(), nil)
		return
	}

	sentiment, err := h.store.GetMainSentiment(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{"sentiment": sentiment}, start)
}

// JourneyInitial resolves the entry step for a main sentiment's journey.
func (h *Handler) JourneyInitial(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id, err := pathID(r, "mainSentimentID")
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, err.Error(), nil)
		return
	}

	step, err := h.walker.InitialStep(r.Context(), id)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{"step": step}, start)
}

// AdvanceRequest is the body of POST /journeys/advance.
type AdvanceRequest struct {
	StepID   int64 `json:"step_id" validate:"required,gt=0"`
	OptionID int64 `json:"option_id" validate:"required,gt=0"`
}

// JourneyAdvance advances a journey by one chosen option.
func (h *Handler) JourneyAdvance(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req AdvanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, "Request body must be valid JSON", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondJSON(w, http.StatusBadRequest, &models.APIResponse{
			Status:   "error",
			Metadata: models.Metadata{Timestamp: time.Now()},
			Error:    apiErr,
		})
		return
	}

	result, err := h.walker.Advance(r.Context(), req.StepID, req.OptionID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, result, start)
}

// JourneyValidate runs the full consistency check over one graph.
func (h *Handler) JourneyValidate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	graphID, err := pathID(r, "graphID")
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, err.Error(), nil)
		return
	}

	report, err := h.walker.ValidateGraph(r.Context(), graphID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, report, start)
}

// OptionSuggestions returns a terminal option's suggestions best-first.
func (h *Handler) OptionSuggestions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	optionID, err := pathID(r, "optionID")
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeValidationError, err.Error(), nil)
		return
	}

	result, err := h.ranker.RankSuggestionsForOption(r.Context(), optionID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, result, start)
}

// RecomputeRequest is the body of POST /relevance/recompute. A zero MovieID
// recomputes every movie that has suggestions.
type RecomputeRequest struct {
	MovieID int64 `json:"movie_id" validate:"gte=0"`
}

// RecomputeRelevance re-ranks suggestion relevance for one movie or all.
func (h *Handler) RecomputeRelevance(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req RecomputeRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, CodeValidationError, "Request body must be valid JSON", err)
			return
		}
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondJSON(w, http.StatusBadRequest, &models.APIResponse{
			Status:   "error",
			Metadata: models.Metadata{Timestamp: time.Now()},
			Error:    apiErr,
		})
		return
	}

	if req.MovieID > 0 {
		result, err := h.ranker.RecomputeRelevanceForMovie(r.Context(), req.MovieID)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondSuccess(w, http.StatusOK, result, start)
		return
	}

	result, err := h.ranker.RecomputeRelevanceForAllMovies(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, result, start)
}

// DuplicateSuggestions lists (option, movie) pairs with duplicate rows.
func (h *Handler) DuplicateSuggestions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	pairs, err := h.ranker.FindDuplicateSuggestions(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"duplicates": pairs,
		"count":      len(pairs),
	}, start)
}

// SearchSentiments scores every main sentiment against free text.
func (h *Handler) SearchSentiments(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	text := r.URL.Query().Get("text")
	if text == "" {
		respondError(w, http.StatusBadRequest, CodeValidationError, "text query parameter is required", nil)
		return
	}
	if len(text) > 10000 {
		respondError(w, http.StatusBadRequest, CodeValidationError, "text exceeds the 10000 character limit", nil)
		return
	}

	matches, err := h.ranker.MatchSentimentsToText(r.Context(), text)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	logging.Ctx(r.Context()).Debug().Int("matches", len(matches)).Msg("Sentiment text search")
	respondSuccess(w, http.StatusOK, map[string]interface{}{"matches": matches}, start)
}
