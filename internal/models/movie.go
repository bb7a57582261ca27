// Cinemood - Emotion-Driven Movie Recommendation Backend
// Copyright 2026 Cinemood Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package models

// Movie is a candidate title for journey suggestions.
type Movie struct {
	// ID is the unique movie identifier.
	ID int64 `json:"id"`

	// Title is the display title.
	Title string `json:"title"`

	// Year is the release year.
	Year int `json:"year,omitempty"`

	// Overview is the plot synopsis, used by keyword fallback matching.
	Overview string `json:"overview,omitempty"`
}

// MovieSentimentTag associates a movie with a sub-sentiment.
// A movie may carry many tags across many sub-sentiments.
type MovieSentimentTag struct {
	// MovieID identifies the tagged movie.
	MovieID int64 `json:"movie_id"`

	// SubSentimentID identifies the sub-sentiment.
	SubSentimentID int64 `json:"sub_sentiment_id"`

	// Weight is the movie-side relevance weight (canonical 0-1). It is
	// used for tie-breaking and explanation, never for branch ranking.
	Weight float64 `json:"weight"`

	// Explanation is optional curator free text.
	Explanation string `json:"explanation,omitempty"`
}

// Suggestion links a terminal option to a movie. Multiple rows for the same
// (option, movie) pair are legitimate input; deduplication is an explicit
// correction workflow, not a constraint.
type Suggestion struct {
	// ID is the unique suggestion identifier. Lower IDs win score ties.
	ID int64 `json:"id"`

	// OptionID is the terminal option anchoring this suggestion.
	OptionID int64 `json:"option_id"`

	// MovieID is the suggested movie.
	MovieID int64 `json:"movie_id"`

	// Reason is curator free text shown with the suggestion.
	Reason string `json:"reason,omitempty"`

	// Relevance is the materialized 1-based rank of this suggestion among
	// all suggestions for the same movie (1 = best). Recomputed whenever
	// any sibling's score changes.
	Relevance int `json:"relevance"`

	// RelevanceScore is the computed tag-overlap score. Nil means the
	// score is undefined (no structured overlap), which is distinct from
	// a legitimate 0.0.
	RelevanceScore *float64 `json:"relevance_score,omitempty"`
}
