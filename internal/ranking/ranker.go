// Cinemood - Emotion-Driven Movie Recommendation Backend
// Copyright 2026 Cinemood Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

// Package ranking scores and orders movie suggestions.
//
// Two axes are served from the same scoring core: presenting the
// suggestions of one terminal option best-first, and materializing each
// movie's rank among all of its own suggestions. Option tag sets and
// sentiment keyword sets are read through a TTL cache because one batch
// recompute touches the same handful of options thousands of times.
package ranking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cinemood/cinemood/internal/cache"
	"github.com/cinemood/cinemood/internal/config"
	"github.com/cinemood/cinemood/internal/metrics"
	"github.com/cinemood/cinemood/internal/models"
	"github.com/cinemood/cinemood/internal/store"
)

// Ranker computes and persists suggestion relevance.
type Ranker struct {
	store  store.Store
	cache  *cache.Cache
	cfg    config.RankingConfig
	logger zerolog.Logger
}

// NewRanker creates a suggestion ranker.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRanker(st store.Store, c *cache.Cache, cfg config.RankingConfig, logger zerolog.Logger) *Ranker {
	return &Ranker{
		store:  st,
		cache:  c,
		cfg:    cfg,
		logger: logger.With().Str("component", "ranking").Logger(),
	}
}

// IntegrityWarning records a dangling reference found during ranking.
// Warnings are collected and reported, never thrown: one broken row must
// not abort the ranking of valid siblings.
type IntegrityWarning struct {
	SuggestionID int64  `json:"suggestion_id"`
	OptionID     int64  `json:"option_id,omitempty"`
	MovieID      int64  `json:"movie_id,omitempty"`
	Detail       string `json:"detail"`
}

// RankedSuggestion is one scored entry in an option's best-first listing.
type RankedSuggestion struct {
	Suggestion models.Suggestion `json:"suggestion"`
	Movie      *models.Movie     `json:"movie"`
	Score      Score             `json:"score"`

	// KeywordScore is the description-based fallback score, computed only
	// when Score is undefined: the movie's title and overview terms matched
	// against the governing main sentiment's keyword set. It orders
	// undefined-score entries among themselves and never outranks a
	// structured tag overlap.
	KeywordScore float64 `json:"keyword_score,omitempty"`

	// Ambiguous flags a movie that carries no sentiment tags at all, so
	// its undefined score reflects missing curation rather than a poor
	// match.
	Ambiguous bool `json:"ambiguous,omitempty"`
}

// OptionRanking is the result of ranking one terminal option's suggestions.
type OptionRanking struct {
	OptionID    int64              `json:"option_id"`
	Suggestions []RankedSuggestion `json:"suggestions"`
	Warnings    []IntegrityWarning `json:"warnings,omitempty"`
}

// RankSuggestionsForOption scores every suggestion of a terminal option
// against the option's tag set and returns them best-first. Defined scores
// sort descending; undefined scores sort last, ordered among themselves by
// the description-based keyword fallback; remaining ties break by ascending
// suggestion ID. Pure read: nothing is persisted.
func (r *Ranker) RankSuggestionsForOption(ctx context.Context, optionID int64) (*OptionRanking, error) {
	start := time.Now()
	defer func() {
		metrics.RankingDuration.WithLabelValues("rank_option").Observe(time.Since(start).Seconds())
	}()

	opt, err := r.store.GetOption(ctx, optionID)
	if err != nil {
		return nil, err
	}
	keywords := r.stepKeywords(ctx, opt.StepID)

	suggestions, err := r.store.GetSuggestionsByOption(ctx, optionID)
	if err != nil {
		return nil, err
	}

	result := &OptionRanking{OptionID: optionID}
	for _, sug := range suggestions {
		movie, err := r.store.GetMovie(ctx, sug.MovieID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				result.Warnings = append(result.Warnings, IntegrityWarning{
					SuggestionID: sug.ID,
					OptionID:     optionID,
					MovieID:      sug.MovieID,
					Detail:       fmt.Sprintf("suggestion %d references missing movie %d", sug.ID, sug.MovieID),
				})
				metrics.IntegrityWarnings.Inc()
				continue
			}
			return nil, err
		}

		movieTags, err := r.store.GetMovieTags(ctx, sug.MovieID)
		if err != nil {
			return nil, err
		}

		rs := RankedSuggestion{
			Suggestion: sug,
			Movie:      movie,
			Score:      TagOverlapScore(opt.Tags, movieTags),
			Ambiguous:  len(movieTags) == 0,
		}
		if !rs.Score.Defined && len(keywords) > 0 {
			rs.KeywordScore = MatchKeywords(movieTerms(movie), keywords, r.cfg.RelatedKeywordFactor)
		}
		result.Suggestions = append(result.Suggestions, rs)
	}

	sortRanked(result.Suggestions)
	return result, nil
}

// MovieRecomputeResult reports one movie's relevance recompute.
type MovieRecomputeResult struct {
	MovieID  int64              `json:"movie_id"`
	Updated  int                `json:"updated"`
	Warnings []IntegrityWarning `json:"warnings,omitempty"`
}

// RecomputeRelevanceForMovie rescores every suggestion referencing a movie
// and persists contiguous 1-based ranks, best score first. Suggestions
// whose option no longer exists are excluded with a warning and keep their
// previous rank; the remaining rows still rank 1..N. Idempotent, and the
// write is a single atomic batch.
func (r *Ranker) RecomputeRelevanceForMovie(ctx context.Context, movieID int64) (*MovieRecomputeResult, error) {
	start := time.Now()
	defer func() {
		metrics.RankingDuration.WithLabelValues("recompute_movie").Observe(time.Since(start).Seconds())
	}()

	if _, err := r.store.GetMovie(ctx, movieID); err != nil {
		metrics.RelevanceRecomputes.WithLabelValues("error").Inc()
		return nil, err
	}

	suggestions, err := r.store.GetSuggestionsByMovie(ctx, movieID)
	if err != nil {
		metrics.RelevanceRecomputes.WithLabelValues("error").Inc()
		return nil, err
	}

	result := &MovieRecomputeResult{MovieID: movieID}
	if len(suggestions) == 0 {
		metrics.RelevanceRecomputes.WithLabelValues("ok").Inc()
		return result, nil
	}

	movieTags, err := r.store.GetMovieTags(ctx, movieID)
	if err != nil {
		metrics.RelevanceRecomputes.WithLabelValues("error").Inc()
		return nil, err
	}

	type scored struct {
		suggestion models.Suggestion
		score      Score
	}
	ranked := make([]scored, 0, len(suggestions))
	for _, sug := range suggestions {
		optionTags, err := r.optionTags(ctx, sug.OptionID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				result.Warnings = append(result.Warnings, IntegrityWarning{
					SuggestionID: sug.ID,
					OptionID:     sug.OptionID,
					MovieID:      movieID,
					Detail:       fmt.Sprintf("suggestion %d references missing option %d", sug.ID, sug.OptionID),
				})
				metrics.IntegrityWarnings.Inc()
				continue
			}
			metrics.RelevanceRecomputes.WithLabelValues("error").Inc()
			return nil, err
		}
		ranked = append(ranked, scored{
			suggestion: sug,
			score:      TagOverlapScore(optionTags, movieTags),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score.Defined != ranked[j].score.Defined ||
			ranked[i].score.Value != ranked[j].score.Value {
			return ranked[j].score.Less(ranked[i].score)
		}
		return ranked[i].suggestion.ID < ranked[j].suggestion.ID
	})

	updates := make([]store.RankUpdate, len(ranked))
	for i, rs := range ranked {
		updates[i] = store.RankUpdate{
			SuggestionID:   rs.suggestion.ID,
			Relevance:      i + 1,
			RelevanceScore: rs.score.Ptr(),
		}
	}

	if err := r.store.UpdateSuggestionRanks(ctx, updates); err != nil {
		metrics.RelevanceRecomputes.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("persist ranks for movie %d: %w", movieID, err)
	}

	result.Updated = len(updates)
	metrics.RelevanceRecomputes.WithLabelValues("ok").Inc()
	r.logger.Debug().
		Int64("movie_id", movieID).
		Int("updated", result.Updated).
		Int("warnings", len(result.Warnings)).
		Msg("Recomputed suggestion relevance")
	return result, nil
}

// BatchError records one movie whose recompute failed inside a batch run.
type BatchError struct {
	MovieID int64  `json:"movie_id"`
	Error   string `json:"error"`
}

// BatchResult summarizes a full relevance recompute.
type BatchResult struct {
	MoviesProcessed    int                `json:"movies_processed"`
	SuggestionsUpdated int                `json:"suggestions_updated"`
	Errors             []BatchError       `json:"errors,omitempty"`
	Warnings           []IntegrityWarning `json:"warnings,omitempty"`
	Duration           time.Duration      `json:"duration"`
}

// RecomputeRelevanceForAllMovies reranks every movie that has at least one
// suggestion, fanning out across a bounded worker pool. A movie ID that
// resolves to no movie row is a dangling suggestion reference and is
// reported as an integrity warning, not a failure. Per-movie failures and
// dangling references are collected into the result; only a failure to
// enumerate movies aborts the batch.
func (r *Ranker) RecomputeRelevanceForAllMovies(ctx context.Context) (*BatchResult, error) {
	start := time.Now()
	defer func() {
		metrics.RankingDuration.WithLabelValues("recompute_all").Observe(time.Since(start).Seconds())
	}()

	movieIDs, err := r.store.ListMovieIDsWithSuggestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list movies with suggestions: %w", err)
	}

	result := &BatchResult{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.BatchWorkers)
	for _, id := range movieIDs {
		movieID := id
		g.Go(func() error {
			res, err := r.RecomputeRelevanceForMovie(gctx, movieID)
			if err != nil {
				// Context cancellation aborts the whole batch; anything
				// else is one movie's problem.
				if gctx.Err() != nil {
					return gctx.Err()
				}
				if errors.Is(err, store.ErrNotFound) {
					// The ID came from suggestion rows, so the movie
					// itself is the dangling reference.
					warnings := r.missingMovieWarnings(gctx, movieID)
					mu.Lock()
					result.Warnings = append(result.Warnings, warnings...)
					mu.Unlock()
					r.logger.Warn().Int64("movie_id", movieID).Msg("Suggestions reference a missing movie")
					return nil
				}
				mu.Lock()
				result.Errors = append(result.Errors, BatchError{MovieID: movieID, Error: err.Error()})
				mu.Unlock()
				r.logger.Warn().Err(err).Int64("movie_id", movieID).Msg("Relevance recompute failed for movie")
				return nil
			}

			mu.Lock()
			defer mu.Unlock()
			result.MoviesProcessed++
			result.SuggestionsUpdated += res.Updated
			result.Warnings = append(result.Warnings, res.Warnings...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	r.logger.Info().
		Int("movies", result.MoviesProcessed).
		Int("suggestions", result.SuggestionsUpdated).
		Int("errors", len(result.Errors)).
		Int("warnings", len(result.Warnings)).
		Dur("duration", result.Duration).
		Msg("Batch relevance recompute finished")
	return result, nil
}

// FindDuplicateSuggestions reports every (option, movie) pair referenced by
// more than one suggestion row. Duplicates are valid ranking input; this is
// a diagnostic for the curation workflow that cleans them up.
func (r *Ranker) FindDuplicateSuggestions(ctx context.Context) ([]store.DuplicatePair, error) {
	return r.store.ListDuplicateSuggestions(ctx)
}

// SentimentMatch is one main sentiment scored against free text.
type SentimentMatch struct {
	Sentiment models.MainSentiment `json:"sentiment"`
	Score     float64              `json:"score"`
}

// MatchSentimentsToText scores every main sentiment's keyword set against a
// body of free text and returns the non-zero matches best-first, ties
// broken by ascending sentiment ID. Keyword sets are read through the
// cache.
func (r *Ranker) MatchSentimentsToText(ctx context.Context, text string) ([]SentimentMatch, error) {
	sentiments, err := r.mainSentiments(ctx)
	if err != nil {
		return nil, err
	}

	var matches []SentimentMatch
	for _, ms := range sentiments {
		score := TextMatchScore(text, ms.Keywords, r.cfg.RelatedKeywordFactor)
		if score == 0 {
			continue
		}
		matches = append(matches, SentimentMatch{Sentiment: ms, Score: score})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Sentiment.ID < matches[j].Sentiment.ID
	})
	return matches, nil
}

// missingMovieWarnings reports every suggestion row that points at a movie
// with no backing row. Falls back to a single movie-level warning when the
// rows themselves cannot be read.
func (r *Ranker) missingMovieWarnings(ctx context.Context, movieID int64) []IntegrityWarning {
	suggestions, err := r.store.GetSuggestionsByMovie(ctx, movieID)
	if err != nil || len(suggestions) == 0 {
		metrics.IntegrityWarnings.Inc()
		return []IntegrityWarning{{
			MovieID: movieID,
			Detail:  fmt.Sprintf("suggestions reference missing movie %d", movieID),
		}}
	}

	warnings := make([]IntegrityWarning, len(suggestions))
	for i, sug := range suggestions {
		warnings[i] = IntegrityWarning{
			SuggestionID: sug.ID,
			OptionID:     sug.OptionID,
			MovieID:      movieID,
			Detail:       fmt.Sprintf("suggestion %d references missing movie %d", sug.ID, movieID),
		}
		metrics.IntegrityWarnings.Inc()
	}
	return warnings
}

// movieTerms tokenizes a movie's title and overview for keyword fallback
// matching.
func movieTerms(m *models.Movie) []string {
	return strings.FieldsFunc(m.Title+" "+m.Overview, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// stepKeywords resolves the main-sentiment keyword set governing a step,
// through the TTL cache. A broken sentiment chain disables the keyword
// fallback rather than failing the ranking.
func (r *Ranker) stepKeywords(ctx context.Context, stepID int64) []models.KeywordWeight {
	key := cache.GenerateKey("step-keywords", stepID)
	if v, ok := r.cache.Get(key); ok {
		metrics.CacheHits.Inc()
		if kw, ok := v.([]models.KeywordWeight); ok {
			return kw
		}
	}
	metrics.CacheMisses.Inc()

	step, err := r.store.GetStep(ctx, stepID)
	if err != nil {
		return nil
	}
	graph, err := r.store.GetJourneyGraph(ctx, step.GraphID)
	if err != nil {
		return nil
	}
	ms, err := r.store.GetMainSentiment(ctx, graph.MainSentimentID)
	if err != nil {
		return nil
	}
	r.cache.Set(key, ms.Keywords)
	return ms.Keywords
}

// optionTags loads an option's tag set through the TTL cache.
func (r *Ranker) optionTags(ctx context.Context, optionID int64) ([]models.OptionTag, error) {
	key := cache.GenerateKey("option-tags", optionID)
	if v, ok := r.cache.Get(key); ok {
		metrics.CacheHits.Inc()
		if tags, ok := v.([]models.OptionTag); ok {
			return tags, nil
		}
	}
	metrics.CacheMisses.Inc()

	opt, err := r.store.GetOption(ctx, optionID)
	if err != nil {
		return nil, err
	}
	r.cache.Set(key, opt.Tags)
	return opt.Tags, nil
}

// mainSentiments loads the main sentiment list, with keyword sets, through
// the TTL cache.
func (r *Ranker) mainSentiments(ctx context.Context) ([]models.MainSentiment, error) {
	key := cache.GenerateKey("main-sentiments", "all")
	if v, ok := r.cache.Get(key); ok {
		metrics.CacheHits.Inc()
		if list, ok := v.([]models.MainSentiment); ok {
			return list, nil
		}
	}
	metrics.CacheMisses.Inc()

	list, err := r.store.ListMainSentiments(ctx)
	if err != nil {
		return nil, err
	}
	r.cache.Set(key, list)
	return list, nil
}

// sortRanked orders a listing best-first: defined scores descending, then
// undefined entries by descending keyword fallback score, remaining ties by
// ascending suggestion ID.
func sortRanked(items []RankedSuggestion) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score.Defined != items[j].Score.Defined ||
			items[i].Score.Value != items[j].Score.Value {
			return items[j].Score.Less(items[i].Score)
		}
		if !items[i].Score.Defined && items[i].KeywordScore != items[j].KeywordScore {
			return items[i].KeywordScore > items[j].KeywordScore
		}
		return items[i].Suggestion.ID < items[j].Suggestion.ID
	})
}
