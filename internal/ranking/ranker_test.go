// Cinemood - Emotion-Driven Movie Recommendation Backend
// Copyright 2026 Cinemood Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package ranking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinemood/cinemood/internal/cache"
	"github.com/cinemood/cinemood/internal/config"
	"github.com/cinemood/cinemood/internal/models"
	"github.com/cinemood/cinemood/internal/store"
)

func newTestRanker(m *store.Memory) *Ranker {
	cfg := config.RankingConfig{BatchWorkers: 2, RelatedKeywordFactor: 0.5}
	return NewRanker(m, cache.New(time.Minute), cfg, zerolog.Nop())
}

// rankingFixture builds one terminal option with four suggested movies:
//
//	movie 100: overlap on subs 1+2 -> 1.3
//	movie 101: overlap on sub 2   -> 0.5
//	movie 102: untagged           -> undefined, ambiguous
//	movie 103: tags without overlap -> undefined
func rankingFixture() *store.Memory {
	m := store.NewMemory()
	m.Steps[5] = models.Step{
		ID: 5, GraphID: 1, StepIdentifier: "3A", Order: 3,
		Options: []models.Option{
			{ID: 50, StepID: 5, Tags: []models.OptionTag{
				{SubSentimentID: 1, Weight: 0.8},
				{SubSentimentID: 2, Weight: 0.5},
			}},
			{ID: 51, StepID: 5, Tags: []models.OptionTag{
				{SubSentimentID: 3, Weight: 0.9},
			}},
		},
	}
	m.Movies[100] = models.Movie{ID: 100, Title: "Manchester by the Sea"}
	m.Movies[101] = models.Movie{ID: 101, Title: "Her"}
	m.Movies[102] = models.Movie{ID: 102, Title: "Untagged"}
	m.Movies[103] = models.Movie{ID: 103, Title: "Elsewhere"}
	m.MovieTags[100] = []models.MovieSentimentTag{
		{MovieID: 100, SubSentimentID: 1, Weight: 0.9},
		{MovieID: 100, SubSentimentID: 2, Weight: 0.3},
	}
	m.MovieTags[101] = []models.MovieSentimentTag{
		{MovieID: 101, SubSentimentID: 2, Weight: 0.8},
	}
	m.MovieTags[103] = []models.MovieSentimentTag{
		{MovieID: 103, SubSentimentID: 99, Weight: 0.8},
	}
	m.Suggestions[1] = models.Suggestion{ID: 1, OptionID: 50, MovieID: 102}
	m.Suggestions[2] = models.Suggestion{ID: 2, OptionID: 50, MovieID: 101}
	m.Suggestions[3] = models.Suggestion{ID: 3, OptionID: 50, MovieID: 100}
	m.Suggestions[4] = models.Suggestion{ID: 4, OptionID: 50, MovieID: 103}
	return m
}

func TestRankSuggestionsForOption(t *testing.T) {
	r := newTestRanker(rankingFixture())

	result, err := r.RankSuggestionsForOption(context.Background(), 50)
	if err != nil {
		t.Fatalf("RankSuggestionsForOption() error = %v", err)
	}
	if len(result.Suggestions) != 4 {
		t.Fatalf("got %d suggestions, want 4", len(result.Suggestions))
	}

	// Best overlap first, then defined, then undefined by ascending ID.
	wantMovies := []int64{100, 101, 102, 103}
	for i, want := range wantMovies {
		if got := result.Suggestions[i].Suggestion.MovieID; got != want {
			t.Errorf("position %d = movie %d, want %d", i, got, want)
		}
	}

	if result.Suggestions[0].Score.Value != 1.3 || !result.Suggestions[0].Score.Defined {
		t.Errorf("top score = %+v, want defined 1.3", result.Suggestions[0].Score)
	}
	if result.Suggestions[2].Score.Defined || result.Suggestions[3].Score.Defined {
		t.Error("non-overlapping movies must have undefined scores")
	}
	if !result.Suggestions[2].Ambiguous {
		t.Error("untagged movie must be flagged ambiguous")
	}
	if result.Suggestions[3].Ambiguous {
		t.Error("tagged movie without overlap must not be flagged ambiguous")
	}
}

func TestRankSuggestionsForOptionTieBreak(t *testing.T) {
	m := rankingFixture()
	// Give 101 the same tags as 100 so their scores tie exactly.
	m.MovieTags[101] = m.MovieTags[100]
	r := newTestRanker(m)

	result, err := r.RankSuggestionsForOption(context.Background(), 50)
	if err != nil {
		t.Fatalf("RankSuggestionsForOption() error = %v", err)
	}
	// Suggestion 2 (movie 101) has the lower ID, so it wins the tie over
	// suggestion 3 (movie 100).
	if result.Suggestions[0].Suggestion.ID != 2 || result.Suggestions[1].Suggestion.ID != 3 {
		t.Errorf("tie-break order = [%d, %d], want [2, 3]",
			result.Suggestions[0].Suggestion.ID, result.Suggestions[1].Suggestion.ID)
	}
}

func TestRankSuggestionsForOptionDanglingMovie(t *testing.T) {
	m := rankingFixture()
	m.Suggestions[9] = models.Suggestion{ID: 9, OptionID: 50, MovieID: 999}
	r := newTestRanker(m)

	result, err := r.RankSuggestionsForOption(context.Background(), 50)
	if err != nil {
		t.Fatalf("RankSuggestionsForOption() error = %v", err)
	}
	if len(result.Suggestions) != 4 {
		t.Errorf("valid suggestions = %d, want 4", len(result.Suggestions))
	}
	if len(result.Warnings) != 1 || result.Warnings[0].SuggestionID != 9 {
		t.Errorf("warnings = %+v, want one for suggestion 9", result.Warnings)
	}
}

func TestRankSuggestionsForOptionKeywordFallback(t *testing.T) {
	m := rankingFixture()
	m.Graphs[1] = models.JourneyGraph{ID: 1, MainSentimentID: 1}
	m.MainSentiments[1] = models.MainSentiment{
		ID: 1, Name: "Sadness",
		Keywords: []models.KeywordWeight{{Keyword: "grief", Weight: 0.8, Related: []string{"mourning"}}},
	}
	// Movies 102 and 103 both rank with undefined tag scores; their
	// overviews now decide the order between them.
	direct := m.Movies[103]
	direct.Overview = "A meditation on grief and memory"
	m.Movies[103] = direct
	related := m.Movies[102]
	related.Overview = "Weeks of mourning"
	m.Movies[102] = related
	r := newTestRanker(m)

	result, err := r.RankSuggestionsForOption(context.Background(), 50)
	if err != nil {
		t.Fatalf("RankSuggestionsForOption() error = %v", err)
	}

	// Tag overlaps first as before, then the undefined pair ordered by
	// overview match: direct "grief" (0.8) beats related "mourning" (0.4).
	wantMovies := []int64{100, 101, 103, 102}
	for i, want := range wantMovies {
		if got := result.Suggestions[i].Suggestion.MovieID; got != want {
			t.Errorf("position %d = movie %d, want %d", i, got, want)
		}
	}

	if got := result.Suggestions[2].KeywordScore; got != 0.8 {
		t.Errorf("direct overview match score = %v, want 0.8", got)
	}
	if got := result.Suggestions[3].KeywordScore; got != 0.4 {
		t.Errorf("related overview match score = %v, want 0.4", got)
	}
	if result.Suggestions[0].KeywordScore != 0 {
		t.Error("tag-scored suggestion must not carry a fallback score")
	}
	if result.Suggestions[2].Score.Defined || result.Suggestions[3].Score.Defined {
		t.Error("fallback-scored suggestions must keep their undefined tag score")
	}
}

func TestRankSuggestionsForOptionFallbackNeverOutranksTags(t *testing.T) {
	m := rankingFixture()
	m.Graphs[1] = models.JourneyGraph{ID: 1, MainSentimentID: 1}
	m.MainSentiments[1] = models.MainSentiment{
		ID: 1, Name: "Sadness",
		Keywords: []models.KeywordWeight{{Keyword: "grief", Weight: 0.9}},
	}
	mv := m.Movies[102]
	mv.Overview = "Pure grief"
	m.Movies[102] = mv
	r := newTestRanker(m)

	result, err := r.RankSuggestionsForOption(context.Background(), 50)
	if err != nil {
		t.Fatalf("RankSuggestionsForOption() error = %v", err)
	}
	// Movie 101's defined 0.5 overlap still precedes movie 102's 0.9
	// keyword fallback.
	if result.Suggestions[1].Suggestion.MovieID != 101 {
		t.Errorf("position 1 = movie %d, want 101", result.Suggestions[1].Suggestion.MovieID)
	}
	if result.Suggestions[2].Suggestion.MovieID != 102 {
		t.Errorf("position 2 = movie %d, want 102", result.Suggestions[2].Suggestion.MovieID)
	}
}

func TestRankSuggestionsForOptionUnknownOption(t *testing.T) {
	r := newTestRanker(rankingFixture())

	_, err := r.RankSuggestionsForOption(context.Background(), 999)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("error = %v, want store.ErrNotFound", err)
	}
}

func TestRecomputeRelevanceForMovie(t *testing.T) {
	m := rankingFixture()
	// Movie 100 suggested by both terminal options: option 50 overlaps for
	// 1.3, option 51 has no overlap, so its row ranks last with an
	// undefined score.
	m.Suggestions[5] = models.Suggestion{ID: 5, OptionID: 51, MovieID: 100}
	r := newTestRanker(m)
	ctx := context.Background()

	result, err := r.RecomputeRelevanceForMovie(ctx, 100)
	if err != nil {
		t.Fatalf("RecomputeRelevanceForMovie() error = %v", err)
	}
	if result.Updated != 2 {
		t.Fatalf("Updated = %d, want 2", result.Updated)
	}

	best := m.Suggestions[3] // option 50, overlap 1.3
	worst := m.Suggestions[5]
	if best.Relevance != 1 {
		t.Errorf("best suggestion rank = %d, want 1", best.Relevance)
	}
	if best.RelevanceScore == nil || *best.RelevanceScore != 1.3 {
		t.Errorf("best suggestion score = %v, want 1.3", best.RelevanceScore)
	}
	if worst.Relevance != 2 {
		t.Errorf("undefined-score suggestion rank = %d, want 2", worst.Relevance)
	}
	if worst.RelevanceScore != nil {
		t.Errorf("undefined score persisted as %v, want nil", *worst.RelevanceScore)
	}
}

func TestRecomputeRelevanceIdempotent(t *testing.T) {
	m := rankingFixture()
	m.Suggestions[5] = models.Suggestion{ID: 5, OptionID: 51, MovieID: 100}
	r := newTestRanker(m)
	ctx := context.Background()

	if _, err := r.RecomputeRelevanceForMovie(ctx, 100); err != nil {
		t.Fatalf("first recompute error = %v", err)
	}
	first := map[int64]models.Suggestion{3: m.Suggestions[3], 5: m.Suggestions[5]}

	if _, err := r.RecomputeRelevanceForMovie(ctx, 100); err != nil {
		t.Fatalf("second recompute error = %v", err)
	}
	for id, want := range first {
		got := m.Suggestions[id]
		if got.Relevance != want.Relevance {
			t.Errorf("suggestion %d rank changed across identical recomputes: %d -> %d",
				id, want.Relevance, got.Relevance)
		}
	}
}

func TestRecomputeRelevanceRankContiguity(t *testing.T) {
	m := rankingFixture()
	// Several suggestions for movie 101 across the two options, including
	// duplicates of the same (option, movie) pair. Duplicates are valid
	// input and each row still gets its own contiguous rank.
	m.Suggestions[6] = models.Suggestion{ID: 6, OptionID: 50, MovieID: 101}
	m.Suggestions[7] = models.Suggestion{ID: 7, OptionID: 51, MovieID: 101}
	r := newTestRanker(m)

	result, err := r.RecomputeRelevanceForMovie(context.Background(), 101)
	if err != nil {
		t.Fatalf("RecomputeRelevanceForMovie() error = %v", err)
	}
	if result.Updated != 3 {
		t.Fatalf("Updated = %d, want 3", result.Updated)
	}

	seen := make(map[int]int64)
	for _, id := range []int64{2, 6, 7} {
		rank := m.Suggestions[id].Relevance
		if prev, dup := seen[rank]; dup {
			t.Errorf("rank %d assigned to both suggestion %d and %d", rank, prev, id)
		}
		seen[rank] = id
	}
	for rank := 1; rank <= 3; rank++ {
		if _, ok := seen[rank]; !ok {
			t.Errorf("rank %d missing; ranks must be contiguous 1..N", rank)
		}
	}
	// Equal-score duplicates break ties by ascending ID.
	if m.Suggestions[2].Relevance >= m.Suggestions[6].Relevance {
		t.Errorf("suggestion 2 rank %d should precede duplicate suggestion 6 rank %d",
			m.Suggestions[2].Relevance, m.Suggestions[6].Relevance)
	}
}

func TestRecomputeRelevanceDanglingOption(t *testing.T) {
	m := rankingFixture()
	m.Suggestions[8] = models.Suggestion{ID: 8, OptionID: 999, MovieID: 101}
	r := newTestRanker(m)

	result, err := r.RecomputeRelevanceForMovie(context.Background(), 101)
	if err != nil {
		t.Fatalf("RecomputeRelevanceForMovie() error = %v", err)
	}
	if result.Updated != 1 {
		t.Errorf("Updated = %d, want 1 (dangling row excluded)", result.Updated)
	}
	if len(result.Warnings) != 1 || result.Warnings[0].OptionID != 999 {
		t.Errorf("warnings = %+v, want one for option 999", result.Warnings)
	}
	if m.Suggestions[2].Relevance != 1 {
		t.Errorf("valid sibling rank = %d, want 1", m.Suggestions[2].Relevance)
	}
}

func TestRecomputeRelevanceUnknownMovie(t *testing.T) {
	r := newTestRanker(rankingFixture())

	_, err := r.RecomputeRelevanceForMovie(context.Background(), 999)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("error = %v, want store.ErrNotFound", err)
	}
}

func TestRecomputeRelevanceForAllMovies(t *testing.T) {
	m := rankingFixture()
	m.Suggestions[5] = models.Suggestion{ID: 5, OptionID: 51, MovieID: 100}
	// One dangling option reference; its movie's other rows still rank.
	m.Suggestions[8] = models.Suggestion{ID: 8, OptionID: 999, MovieID: 101}
	r := newTestRanker(m)

	result, err := r.RecomputeRelevanceForAllMovies(context.Background())
	if err != nil {
		t.Fatalf("RecomputeRelevanceForAllMovies() error = %v", err)
	}
	if result.MoviesProcessed != 4 {
		t.Errorf("MoviesProcessed = %d, want 4", result.MoviesProcessed)
	}
	if result.SuggestionsUpdated != 5 {
		t.Errorf("SuggestionsUpdated = %d, want 5", result.SuggestionsUpdated)
	}
	if len(result.Errors) != 0 {
		t.Errorf("Errors = %+v, want none", result.Errors)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("Warnings = %+v, want one for the dangling option", result.Warnings)
	}
	for _, id := range []int64{1, 2, 3, 4, 5} {
		if m.Suggestions[id].Relevance == 0 {
			t.Errorf("suggestion %d was not ranked", id)
		}
	}
}

func TestRecomputeRelevanceForAllMoviesDanglingMovie(t *testing.T) {
	m := rankingFixture()
	m.Suggestions[9] = models.Suggestion{ID: 9, OptionID: 50, MovieID: 999}
	r := newTestRanker(m)

	result, err := r.RecomputeRelevanceForAllMovies(context.Background())
	if err != nil {
		t.Fatalf("RecomputeRelevanceForAllMovies() error = %v", err)
	}

	// A suggestion row pointing at a missing movie is a dangling reference,
	// reported like a dangling option: warning, not error.
	if len(result.Errors) != 0 {
		t.Errorf("Errors = %+v, want none", result.Errors)
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("Warnings = %+v, want one for suggestion 9", result.Warnings)
	}
	w := result.Warnings[0]
	if w.SuggestionID != 9 || w.OptionID != 50 || w.MovieID != 999 {
		t.Errorf("warning = %+v, want suggestion 9 / option 50 / movie 999", w)
	}

	if result.MoviesProcessed != 4 {
		t.Errorf("MoviesProcessed = %d, want 4 (missing movie excluded)", result.MoviesProcessed)
	}
	for _, id := range []int64{1, 2, 3, 4} {
		if m.Suggestions[id].Relevance == 0 {
			t.Errorf("suggestion %d was not ranked", id)
		}
	}
}

func TestFindDuplicateSuggestions(t *testing.T) {
	m := rankingFixture()
	m.Suggestions[6] = models.Suggestion{ID: 6, OptionID: 50, MovieID: 101}
	r := newTestRanker(m)

	pairs, err := r.FindDuplicateSuggestions(context.Background())
	if err != nil {
		t.Fatalf("FindDuplicateSuggestions() error = %v", err)
	}
	if len(pairs) != 1 {
		t.Fatalf("got %d duplicate pairs, want 1", len(pairs))
	}
	p := pairs[0]
	if p.OptionID != 50 || p.MovieID != 101 {
		t.Errorf("pair = (%d, %d), want (50, 101)", p.OptionID, p.MovieID)
	}
	if len(p.SuggestionIDs) != 2 || p.SuggestionIDs[0] != 2 || p.SuggestionIDs[1] != 6 {
		t.Errorf("SuggestionIDs = %v, want [2 6]", p.SuggestionIDs)
	}
}

func TestMatchSentimentsToText(t *testing.T) {
	m := rankingFixture()
	m.MainSentiments[1] = models.MainSentiment{
		ID: 1, Name: "Sadness",
		Keywords: []models.KeywordWeight{{Keyword: "grief", Weight: 0.8, Related: []string{"mourning"}}},
	}
	m.MainSentiments[2] = models.MainSentiment{
		ID: 2, Name: "Joy",
		Keywords: []models.KeywordWeight{{Keyword: "celebration", Weight: 0.6}},
	}
	m.MainSentiments[3] = models.MainSentiment{
		ID: 3, Name: "Fear",
		Keywords: []models.KeywordWeight{{Keyword: "dread", Weight: 0.9}},
	}
	r := newTestRanker(m)

	matches, err := r.MatchSentimentsToText(context.Background(), "A story of grief and celebration")
	if err != nil {
		t.Fatalf("MatchSentimentsToText() error = %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	if matches[0].Sentiment.ID != 1 || matches[1].Sentiment.ID != 2 {
		t.Errorf("match order = [%d, %d], want [1, 2]", matches[0].Sentiment.ID, matches[1].Sentiment.ID)
	}
	if matches[0].Score != 0.8 {
		t.Errorf("top score = %v, want 0.8", matches[0].Score)
	}
}

func TestOptionTagsCached(t *testing.T) {
	m := rankingFixture()
	r := newTestRanker(m)
	ctx := context.Background()

	if _, err := r.optionTags(ctx, 50); err != nil {
		t.Fatalf("optionTags() error = %v", err)
	}
	// Remove the backing step; the cached tag set must still serve.
	delete(m.Steps, 5)
	tags, err := r.optionTags(ctx, 50)
	if err != nil {
		t.Fatalf("optionTags() after delete error = %v (expected cache hit)", err)
	}
	if len(tags) != 2 {
		t.Errorf("cached tags = %d entries, want 2", len(tags))
	}
}
