// Cinemood - Emotion-Driven Movie Recommendation Backend
// Copyright 2026 Cinemood Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package models

// JourneyGraph is the branching questionnaire for one main sentiment.
type JourneyGraph struct {
	// ID is the unique graph identifier.
	ID int64 `json:"id"`

	// MainSentimentID is the owning main sentiment.
	MainSentimentID int64 `json:"main_sentiment_id"`
}

// Step is a question node in a journey graph.
type Step struct {
	// ID is the unique step identifier.
	ID int64 `json:"id"`

	// GraphID is the owning journey graph.
	GraphID int64 `json:"graph_id"`

	// StepIdentifier is the human-readable node label. It may encode depth
	// and branch (e.g., "3A") and is used to resolve option transitions.
	StepIdentifier string `json:"step_identifier"`

	// Order drives traversal and display ordering. Ties are broken by
	// lexical StepIdentifier order.
	Order int `json:"order"`

	// Question is the question text shown to the user.
	Question string `json:"question"`

	// Options are the choices available at this step.
	Options []Option `json:"options"`
}

// Option is a choice edge within a step. An option either continues to
// another step or is terminal; the single source of truth is NextStepID:
// empty means terminal. There is no separate terminal flag in the domain
// model, so the two can never disagree here. Persisted rows still carry a
// legacy is_terminal column, and the store reports any disagreement as a
// data-integrity error instead of resolving it silently.
type Option struct {
	// ID is the unique option identifier.
	ID int64 `json:"id"`

	// StepID is the owning step.
	StepID int64 `json:"step_id"`

	// Text is the option text shown to the user.
	Text string `json:"text"`

	// DisplayTitle is an optional human label for the option.
	DisplayTitle string `json:"display_title,omitempty"`

	// NextStepID is the StepIdentifier of the next step within the same
	// graph. Empty means this option is terminal and anchors suggestions.
	NextStepID string `json:"next_step_id,omitempty"`

	// Tags associates sub-sentiments with option-side weights. The
	// option-side weight is authoritative when ranking suggestions for
	// this branch.
	Tags []OptionTag `json:"tags,omitempty"`
}

// Terminal reports whether the option ends the journey.
func (o Option) Terminal() bool {
	return o.NextStepID == ""
}

// OptionTag is a (sub-sentiment, weight) association on an option.
type OptionTag struct {
	// SubSentimentID identifies the tagged sub-sentiment.
	SubSentimentID int64 `json:"sub_sentiment_id"`

	// Weight is the option-side relevance weight (canonical 0-1).
	Weight float64 `json:"weight"`
}
