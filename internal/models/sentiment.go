// Cinemood - Emotion-Driven Movie Recommendation Backend
// Copyright 2026 Cinemood Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package models

import (
	"fmt"
	"strings"
)

// Canonical weight scale is 0.0-1.0. Source data mixes 0-1 and 0-10
// conventions; NormalizeWeight converts once at the store boundary so every
// weight inside the core is on the canonical scale.

// MainSentiment is a top-level emotional category (e.g., "Sadness").
// It owns at most one journey graph and any number of sub-sentiments.
type MainSentiment struct {
	// ID is the unique sentiment identifier.
	ID int64 `json:"id"`

	// Name is the unique human-readable category name.
	Name string `json:"name"`

	// Description is free-form descriptive text.
	Description string `json:"description,omitempty"`

	// Keywords is the typed keyword set used for free-text matching.
	Keywords []KeywordWeight `json:"keywords,omitempty"`
}

// SubSentiment refines a MainSentiment (e.g., "Melancholy" under "Sadness").
type SubSentiment struct {
	// ID is the unique sub-sentiment identifier.
	ID int64 `json:"id"`

	// MainSentimentID is the owning main sentiment.
	MainSentimentID int64 `json:"main_sentiment_id"`

	// Name is the sub-sentiment name.
	Name string `json:"name"`

	// Description is free-form descriptive text.
	Description string `json:"description,omitempty"`

	// Keywords is the typed keyword set used for free-text matching.
	Keywords []KeywordWeight `json:"keywords,omitempty"`

	// DefaultWeight is the relevance weight applied when a curation
	// workflow tags a movie without an explicit weight (canonical 0-1).
	DefaultWeight float64 `json:"default_weight,omitempty"`
}

// KeywordWeight is a single weighted keyword with optional related terms.
// It replaces the free-form JSON keyword maps of earlier tooling; entries
// are validated at load time and malformed ones rejected outright.
type KeywordWeight struct {
	// Keyword is the matched term, stored lowercase.
	Keyword string `json:"keyword" validate:"required,min=1"`

	// Weight is the score contribution of a direct match (canonical 0-1).
	Weight float64 `json:"weight" validate:"gte=0,lte=1"`

	// Related lists secondary terms that contribute Weight*0.5 on match.
	Related []string `json:"related,omitempty"`
}

// Validate checks a keyword entry beyond struct tags: blank related terms
// are rejected rather than silently skipped at scoring time.
func (k KeywordWeight) Validate() error {
	if strings.TrimSpace(k.Keyword) == "" {
		return fmt.Errorf("keyword must not be blank")
	}
	if k.Weight < 0 || k.Weight > 1 {
		return fmt.Errorf("keyword %q: weight %v outside canonical 0-1 scale", k.Keyword, k.Weight)
	}
	for _, r := range k.Related {
		if strings.TrimSpace(r) == "" {
			return fmt.Errorf("keyword %q: blank related term", k.Keyword)
		}
	}
	return nil
}

// NormalizeWeight converts a source weight to the canonical 0-1 scale.
// Values above 1.0 are assumed to be on the legacy 0-10 scale and divided
// by 10; the result is clamped to [0, 1].
func NormalizeWeight(w float64) float64 {
	if w > 1.0 {
		w /= 10.0
	}
	if w < 0 {
		return 0
	}
	if w > 1.0 {
		return 1.0
	}
	return w
}

// ValidateKeywords validates a loaded keyword set, returning the index of
// the first malformed entry.
func ValidateKeywords(keywords []KeywordWeight) error {
	for i, kw := range keywords {
		if err := kw.Validate(); err != nil {
			return fmt.Errorf("keyword entry %d: %w", i, err)
		}
	}
	return nil
}
