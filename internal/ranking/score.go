// Cinemood - Emotion-Driven Movie Recommendation Backend
// Copyright 2026 Cinemood Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package ranking

import (
	"strings"

	"github.com/cinemood/cinemood/internal/models"
)

// Score is a computed relevance value. Defined is false when the movie
// shares no sub-sentiment with the option, which is a different statement
// than a legitimate score of 0.0: callers must be able to tell "no
// structured match" from "weakest possible match" because keyword-only
// fallback matching may still apply downstream.
type Score struct {
	// Value is the non-negative sum of option-side weights (canonical
	// 0-1 each, sum unbounded).
	Value float64 `json:"value"`

	// Defined reports whether any sub-sentiment overlapped.
	Defined bool `json:"defined"`
}

// Ptr returns the value as a nullable pointer for persistence: nil when
// the score is undefined.
func (s Score) Ptr() *float64 {
	if !s.Defined {
		return nil
	}
	v := s.Value
	return &v
}

// Less orders scores for ranking: defined before undefined, then higher
// value first. Equal scores are resolved by the caller's ID tie-break.
func (s Score) Less(other Score) bool {
	if s.Defined != other.Defined {
		return other.Defined
	}
	return s.Value < other.Value
}

// TagOverlapScore computes the weighted match between a terminal option's
// tags and a movie's tags. For each sub-sentiment present in both sets the
// option-side weight accumulates; the option's weight is authoritative for
// ranking this branch, the movie's own weight is only for explanation and
// tie-breaking elsewhere. Zero overlap yields an undefined score.
func TagOverlapScore(optionTags []models.OptionTag, movieTags []models.MovieSentimentTag) Score {
	if len(optionTags) == 0 || len(movieTags) == 0 {
		return Score{}
	}

	movieSubs := make(map[int64]struct{}, len(movieTags))
	for _, t := range movieTags {
		movieSubs[t.SubSentimentID] = struct{}{}
	}

	var score Score
	counted := make(map[int64]struct{}, len(optionTags))
	for _, t := range optionTags {
		if _, ok := movieSubs[t.SubSentimentID]; !ok {
			continue
		}
		// A duplicated option tag for the same sub-sentiment counts once.
		if _, done := counted[t.SubSentimentID]; done {
			continue
		}
		counted[t.SubSentimentID] = struct{}{}
		score.Value += t.Weight
		score.Defined = true
	}
	return score
}

// MatchKeywords scores a set of movie-side terms against a sentiment
// keyword set. Matching is case-insensitive substring in either direction
// (keyword in term, or term in keyword). Each movie-side term contributes
// at most once: direct matches are consumed first at full weight, then
// related-keyword matches at weight*relatedFactor. A term that already
// matched never matches again, regardless of how many sentiment keywords
// it would also hit.
func MatchKeywords(movieTerms []string, entries []models.KeywordWeight, relatedFactor float64) float64 {
	if len(movieTerms) == 0 || len(entries) == 0 {
		return 0
	}

	lowered := make([]string, len(movieTerms))
	for i, t := range movieTerms {
		lowered[i] = strings.ToLower(t)
	}
	counted := make([]bool, len(lowered))

	var score float64

	// Direct matches first, so a related match can never shadow one.
	for _, e := range entries {
		kw := strings.ToLower(e.Keyword)
		for i, term := range lowered {
			if counted[i] || term == "" {
				continue
			}
			if strings.Contains(term, kw) || strings.Contains(kw, term) {
				score += e.Weight
				counted[i] = true
			}
		}
	}

	for _, e := range entries {
		for _, r := range e.Related {
			rk := strings.ToLower(r)
			for i, term := range lowered {
				if counted[i] || term == "" {
					continue
				}
				if strings.Contains(term, rk) || strings.Contains(rk, term) {
					score += e.Weight * relatedFactor
					counted[i] = true
				}
			}
		}
	}

	return score
}

// TextMatchScore scores a body of free text (e.g., a movie overview)
// against a sentiment keyword set. Each entry contributes at most once: a
// direct substring match at full weight, otherwise a related-keyword match
// at weight*relatedFactor. Used only for exploratory/secondary ranking,
// never for the authoritative journey-suggestion store.
func TextMatchScore(text string, entries []models.KeywordWeight, relatedFactor float64) float64 {
	if text == "" || len(entries) == 0 {
		return 0
	}

	lowered := strings.ToLower(text)

	var score float64
	for _, e := range entries {
		kw := strings.ToLower(e.Keyword)
		if kw != "" && strings.Contains(lowered, kw) {
			score += e.Weight
			continue
		}
		for _, r := range e.Related {
			rk := strings.ToLower(r)
			if rk != "" && strings.Contains(lowered, rk) {
				score += e.Weight * relatedFactor
				break
			}
		}
	}
	return score
}
