// Cinemood - Emotion-Driven Movie Recommendation Backend
// Copyright 2026 Cinemood Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cinemood/cinemood/internal/models"
)

// Memory is an in-memory Store used by tests and seed/development mode.
// It is safe for concurrent use.
type Memory struct {
	mu sync.RWMutex

	MainSentiments map[int64]models.MainSentiment
	Graphs         map[int64]models.JourneyGraph // keyed by graph ID
	Steps          map[int64]models.Step         // options embedded
	Movies         map[int64]models.Movie
	MovieTags      map[int64][]models.MovieSentimentTag // keyed by movie ID
	Suggestions    map[int64]models.Suggestion          // keyed by suggestion ID
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		MainSentiments: make(map[int64]models.MainSentiment),
		Graphs:         make(map[int64]models.JourneyGraph),
		Steps:          make(map[int64]models.Step),
		Movies:         make(map[int64]models.Movie),
		MovieTags:      make(map[int64][]models.MovieSentimentTag),
		Suggestions:    make(map[int64]models.Suggestion),
	}
}

// GetMainSentiment implements Store.
func (m *Memory) GetMainSentiment(ctx context.Context, id int64) (*models.MainSentiment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ms, ok := m.MainSentiments[id]
	if !ok {
		return nil, fmt.Errorf("main sentiment %d: %w", id, ErrNotFound)
	}
	return &ms, nil
}

// ListMainSentiments implements Store.
func (m *Memory) ListMainSentiments(ctx context.Context) ([]models.MainSentiment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.MainSentiment, 0, len(m.MainSentiments))
	for _, ms := range m.MainSentiments {
		out = append(out, ms)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetJourneyGraphByMainSentiment implements Store.
func (m *Memory) GetJourneyGraphByMainSentiment(ctx context.Context, mainSentimentID int64) (*models.JourneyGraph, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, g := range m.Graphs {
		if g.MainSentimentID == mainSentimentID {
			graph := g
			return &graph, nil
		}
	}
	return nil, fmt.Errorf("journey graph for main sentiment %d: %w", mainSentimentID, ErrNotFound)
}

// GetJourneyGraph implements Store.
func (m *Memory) GetJourneyGraph(ctx context.Context, graphID int64) (*models.JourneyGraph, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.Graphs[graphID]
	if !ok {
		return nil, fmt.Errorf("journey graph %d: %w", graphID, ErrNotFound)
	}
	return &g, nil
}

// GetStep implements Store.
func (m *Memory) GetStep(ctx context.Context, stepID int64) (*models.Step, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.Steps[stepID]
	if !ok {
		return nil, fmt.Errorf("step %d: %w", stepID, ErrNotFound)
	}
	return &s, nil
}

// GetStepByIdentifier implements Store.
func (m *Memory) GetStepByIdentifier(ctx context.Context, graphID int64, stepIdentifier string) (*models.Step, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.Steps {
		if s.GraphID == graphID && s.StepIdentifier == stepIdentifier {
			step := s
			return &step, nil
		}
	}
	return nil, fmt.Errorf("step %q in graph %d: %w", stepIdentifier, graphID, ErrNotFound)
}

// ListStepsByGraph implements Store.
func (m *Memory) ListStepsByGraph(ctx context.Context, graphID int64) ([]models.Step, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var steps []models.Step
	for _, s := range m.Steps {
		if s.GraphID == graphID {
			steps = append(steps, s)
		}
	}
	sort.Slice(steps, func(i, j int) bool {
		if steps[i].Order != steps[j].Order {
			return steps[i].Order < steps[j].Order
		}
		return steps[i].StepIdentifier < steps[j].StepIdentifier
	})
	return steps, nil
}

// GetOption implements Store.
func (m *Memory) GetOption(ctx context.Context, optionID int64) (*models.Option, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, s := range m.Steps {
		for _, o := range s.Options {
			if o.ID == optionID {
				opt := o
				return &opt, nil
			}
		}
	}
	return nil, fmt.Errorf("option %d: %w", optionID, ErrNotFound)
}

// GetMovie implements Store.
func (m *Memory) GetMovie(ctx context.Context, movieID int64) (*models.Movie, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mv, ok := m.Movies[movieID]
	if !ok {
		return nil, fmt.Errorf("movie %d: %w", movieID, ErrNotFound)
	}
	return &mv, nil
}

// GetMovieTags implements Store.
func (m *Memory) GetMovieTags(ctx context.Context, movieID int64) ([]models.MovieSentimentTag, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tags := m.MovieTags[movieID]
	out := make([]models.MovieSentimentTag, len(tags))
	copy(out, tags)
	return out, nil
}

// GetSuggestionsByOption implements Store.
func (m *Memory) GetSuggestionsByOption(ctx context.Context, optionID int64) ([]models.Suggestion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Suggestion
	for _, s := range m.Suggestions {
		if s.OptionID == optionID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetSuggestionsByMovie implements Store.
func (m *Memory) GetSuggestionsByMovie(ctx context.Context, movieID int64) ([]models.Suggestion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Suggestion
	for _, s := range m.Suggestions {
		if s.MovieID == movieID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListMovieIDsWithSuggestions implements Store.
func (m *Memory) ListMovieIDsWithSuggestions(ctx context.Context) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[int64]struct{})
	for _, s := range m.Suggestions {
		seen[s.MovieID] = struct{}{}
	}
	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// ListDuplicateSuggestions implements Store.
func (m *Memory) ListDuplicateSuggestions(ctx context.Context) ([]DuplicatePair, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type pairKey struct{ optionID, movieID int64 }
	grouped := make(map[pairKey][]int64)
	for _, s := range m.Suggestions {
		k := pairKey{s.OptionID, s.MovieID}
		grouped[k] = append(grouped[k], s.ID)
	}

	var pairs []DuplicatePair
	for k, ids := range grouped {
		if len(ids) < 2 {
			continue
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		pairs = append(pairs, DuplicatePair{OptionID: k.optionID, MovieID: k.movieID, SuggestionIDs: ids})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].OptionID != pairs[j].OptionID {
			return pairs[i].OptionID < pairs[j].OptionID
		}
		return pairs[i].MovieID < pairs[j].MovieID
	})
	return pairs, nil
}

// UpdateSuggestionRanks implements Store. The whole batch is validated
// before any row is mutated so a failure leaves ranks untouched.
func (m *Memory) UpdateSuggestionRanks(ctx context.Context, updates []RankUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range updates {
		if _, ok := m.Suggestions[u.SuggestionID]; !ok {
			return fmt.Errorf("suggestion %d: %w", u.SuggestionID, ErrNotFound)
		}
	}

	for _, u := range updates {
		s := m.Suggestions[u.SuggestionID]
		s.Relevance = u.Relevance
		s.RelevanceScore = u.RelevanceScore
		m.Suggestions[u.SuggestionID] = s
	}
	return nil
}
