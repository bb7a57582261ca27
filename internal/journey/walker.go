// Cinemood - Emotion-Driven Movie Recommendation Backend
// Copyright 2026 Cinemood Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

// Package journey traverses the emotional questionnaire graph.
//
// The graph is a state machine: states are steps plus one terminal state
// per suggestion-bearing option. The walker resolves the initial step for
// a main sentiment, advances on a chosen option, and hands terminal
// options off to the ranker. It holds no state between calls.
package journey

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cinemood/cinemood/internal/metrics"
	"github.com/cinemood/cinemood/internal/models"
	"github.com/cinemood/cinemood/internal/store"
)

// Walker traverses journey graphs through an explicitly injected store.
type Walker struct {
	store  store.Store
	logger zerolog.Logger
}

// NewWalker creates a graph walker.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewWalker(st store.Store, logger zerolog.Logger) *Walker {
	return &Walker{
		store:  st,
		logger: logger.With().Str("component", "journey").Logger(),
	}
}

// AdvanceResult is the outcome of one transition. Exactly one of NextStep
// and Terminal describes the new state: a terminal result carries the
// option ID the caller hands to the ranker.
type AdvanceResult struct {
	// NextStep is the resolved next step with its options. Nil when the
	// chosen option was terminal.
	NextStep *models.Step `json:"next_step,omitempty"`

	// Terminal reports that the chosen option ends the journey.
	Terminal bool `json:"terminal"`

	// TerminalOptionID is the end-state option anchoring suggestions.
	// Zero unless Terminal.
	TerminalOptionID int64 `json:"terminal_option_id,omitempty"`
}

// InitialStep returns the entry step of a main sentiment's journey: the
// step with the lowest order, ties broken by lexical step identifier.
func (w *Walker) InitialStep(ctx context.Context, mainSentimentID int64) (*models.Step, error) {
	graph, err := w.store.GetJourneyGraphByMainSentiment(ctx, mainSentimentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("main sentiment %d has no journey graph: %w", mainSentimentID, ErrNotFound)
		}
		return nil, err
	}

	steps, err := w.store.ListStepsByGraph(ctx, graph.ID)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("journey graph %d has no steps: %w", graph.ID, ErrNotFound)
	}

	// ListStepsByGraph orders by (order, step identifier).
	return &steps[0], nil
}

// Advance validates the chosen option against the current step and either
// resolves the next step or returns a terminal marker.
func (w *Walker) Advance(ctx context.Context, stepID, optionID int64) (*AdvanceResult, error) {
	step, err := w.store.GetStep(ctx, stepID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.JourneyAdvances.WithLabelValues("not_found").Inc()
			return nil, fmt.Errorf("step %d: %w", stepID, ErrNotFound)
		}
		return nil, err
	}

	var chosen *models.Option
	for i := range step.Options {
		if step.Options[i].ID == optionID {
			chosen = &step.Options[i]
			break
		}
	}
	if chosen == nil {
		metrics.JourneyAdvances.WithLabelValues("invalid_choice").Inc()
		return nil, fmt.Errorf("option %d on step %d: %w", optionID, stepID, ErrInvalidChoice)
	}

	if chosen.Terminal() {
		metrics.JourneyAdvances.WithLabelValues("terminal").Inc()
		return &AdvanceResult{Terminal: true, TerminalOptionID: chosen.ID}, nil
	}

	next, err := w.store.GetStepByIdentifier(ctx, step.GraphID, chosen.NextStepID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.JourneyAdvances.WithLabelValues("broken_graph").Inc()
			w.logger.Error().
				Int64("step_id", stepID).
				Int64("option_id", chosen.ID).
				Str("next_step_id", chosen.NextStepID).
				Msg("Option references a step missing from its graph")
			return nil, fmt.Errorf("option %d -> %q: %w", chosen.ID, chosen.NextStepID, ErrBrokenGraph)
		}
		return nil, err
	}

	metrics.JourneyAdvances.WithLabelValues("next_step").Inc()
	return &AdvanceResult{NextStep: next}, nil
}
