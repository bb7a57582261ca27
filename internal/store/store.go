// Cinemood - Emotion-Driven Movie Recommendation Backend
// Copyright 2026 Cinemood Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

// Package store defines the persistence boundary for the journey walker and
// the suggestion ranker. The core consumes the store purely through
// read/write-by-id and filtered-list operations; it assumes nothing about
// the underlying query language.
//
// Two implementations exist: DuckDB (production) and an in-memory store
// used by tests and seed mode.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/cinemood/cinemood/internal/models"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// IntegrityError reports a persisted row that violates a data-model
// invariant. It is surfaced to callers, never silently resolved.
type IntegrityError struct {
	// Kind classifies the violation (e.g., "terminal_disagreement").
	Kind string

	// Detail describes the offending row.
	Detail string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("data integrity violation (%s): %s", e.Kind, e.Detail)
}

// RankUpdate carries one suggestion's recomputed rank and score.
type RankUpdate struct {
	SuggestionID   int64
	Relevance      int
	RelevanceScore *float64
}

// DuplicatePair identifies an (option, movie) pair with more than one
// suggestion row.
type DuplicatePair struct {
	OptionID      int64   `json:"option_id"`
	MovieID       int64   `json:"movie_id"`
	SuggestionIDs []int64 `json:"suggestion_ids"`
}

// Store is the capability set the core needs from persistence. Both
// components receive it explicitly; there is no package-level client.
type Store interface {
	// GetMainSentiment returns a main sentiment with its keyword set.
	GetMainSentiment(ctx context.Context, id int64) (*models.MainSentiment, error)

	// ListMainSentiments returns all main sentiments with keyword sets.
	ListMainSentiments(ctx context.Context) ([]models.MainSentiment, error)

	// GetJourneyGraphByMainSentiment returns the sentiment's graph.
	GetJourneyGraphByMainSentiment(ctx context.Context, mainSentimentID int64) (*models.JourneyGraph, error)

	// GetJourneyGraph returns a graph by its own ID.
	GetJourneyGraph(ctx context.Context, graphID int64) (*models.JourneyGraph, error)

	// GetStep returns a step with its options.
	GetStep(ctx context.Context, stepID int64) (*models.Step, error)

	// GetStepByIdentifier resolves a step by its human-readable label
	// within one graph.
	GetStepByIdentifier(ctx context.Context, graphID int64, stepIdentifier string) (*models.Step, error)

	// ListStepsByGraph returns all steps of a graph with options, ordered
	// by (order, step_identifier).
	ListStepsByGraph(ctx context.Context, graphID int64) ([]models.Step, error)

	// GetOption returns a single option with its tags.
	GetOption(ctx context.Context, optionID int64) (*models.Option, error)

	// GetMovie returns a movie.
	GetMovie(ctx context.Context, movieID int64) (*models.Movie, error)

	// GetMovieTags returns a movie's sentiment tags.
	GetMovieTags(ctx context.Context, movieID int64) ([]models.MovieSentimentTag, error)

	// GetSuggestionsByOption returns all suggestion rows for an option,
	// ascending by ID.
	GetSuggestionsByOption(ctx context.Context, optionID int64) ([]models.Suggestion, error)

	// GetSuggestionsByMovie returns all suggestion rows for a movie
	// across all options, ascending by ID.
	GetSuggestionsByMovie(ctx context.Context, movieID int64) ([]models.Suggestion, error)

	// ListMovieIDsWithSuggestions returns distinct movie IDs that have at
	// least one suggestion, ascending.
	ListMovieIDsWithSuggestions(ctx context.Context) ([]int64, error)

	// ListDuplicateSuggestions returns (option, movie) pairs with more
	// than one suggestion row.
	ListDuplicateSuggestions(ctx context.Context) ([]DuplicatePair, error)

	// UpdateSuggestionRanks persists recomputed ranks atomically: either
	// every update in the slice is applied or none. The batch recompute
	// relies on this for per-movie atomicity.
	UpdateSuggestionRanks(ctx context.Context, updates []RankUpdate) error
}
