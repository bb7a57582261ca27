// Cinemood - Emotion-Driven Movie Recommendation Backend
// Copyright 2026 Cinemood Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package journey

import "errors"

// Traversal error taxonomy. Per-request errors fail the individual call
// immediately and are surfaced to the caller as-is.
var (
	// ErrNotFound indicates the requested main sentiment, step, or option
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidChoice indicates the selected option does not belong to
	// the current step. Never silently corrected.
	ErrInvalidChoice = errors.New("option does not belong to step")

	// ErrBrokenGraph indicates an option's next-step reference does not
	// resolve within its graph. Fatal for the traversal request and
	// logged as a data-integrity defect for out-of-band repair; never
	// defaulted to the initial step.
	ErrBrokenGraph = errors.New("next step does not resolve within graph")
)
