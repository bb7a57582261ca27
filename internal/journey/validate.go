// Cinemood - Emotion-Driven Movie Recommendation Backend
// Copyright 2026 Cinemood Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package journey

import (
	"context"
	"errors"
	"fmt"

	"github.com/cinemood/cinemood/internal/metrics"
	"github.com/cinemood/cinemood/internal/models"
	"github.com/cinemood/cinemood/internal/store"
)

// Violation kinds reported by ValidateGraph.
const (
	// ViolationUnresolvedNextStep: a non-terminal option's next-step
	// identifier matches no step in the graph.
	ViolationUnresolvedNextStep = "unresolved_next_step"

	// ViolationOrphanedStep: a step is unreachable from the initial step.
	ViolationOrphanedStep = "orphaned_step"

	// ViolationInitialCycle: an option re-enters the initial step.
	// Curators may accept these as intentional "try again" loops; the
	// report flags them for review either way. Cycles elsewhere in the
	// graph are not violations.
	ViolationInitialCycle = "initial_cycle"

	// ViolationTerminalDisagreement: a persisted option's legacy terminal
	// flag disagrees with its next-step column.
	ViolationTerminalDisagreement = "terminal_disagreement"
)

// Violation is a single graph-consistency defect.
type Violation struct {
	Kind     string `json:"kind"`
	StepID   int64  `json:"step_id,omitempty"`
	OptionID int64  `json:"option_id,omitempty"`
	Detail   string `json:"detail"`
}

// ValidationReport is the structured result of a full graph check. This is
// a diagnostic operation: violations are collected, never thrown.
type ValidationReport struct {
	GraphID      int64       `json:"graph_id"`
	StepsChecked int         `json:"steps_checked"`
	Valid        bool        `json:"valid"`
	Violations   []Violation `json:"violations"`
}

// ValidateGraph runs the full consistency check over one journey graph:
// every non-terminal option must resolve, every step must be reachable
// from the initial step, and no option may cycle back to the initial step.
func (w *Walker) ValidateGraph(ctx context.Context, graphID int64) (*ValidationReport, error) {
	report := &ValidationReport{GraphID: graphID}

	steps, err := w.store.ListStepsByGraph(ctx, graphID)
	if err != nil {
		// A row-level integrity violation becomes part of the report;
		// anything else is a store failure.
		var integrity *store.IntegrityError
		if errors.As(err, &integrity) {
			report.Violations = append(report.Violations, Violation{
				Kind:   ViolationTerminalDisagreement,
				Detail: integrity.Detail,
			})
			metrics.GraphValidationViolations.WithLabelValues(ViolationTerminalDisagreement).Inc()
			return report, nil
		}
		return nil, err
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("journey graph %d has no steps: %w", graphID, ErrNotFound)
	}

	report.StepsChecked = len(steps)

	byIdentifier := make(map[string]*models.Step, len(steps))
	for i := range steps {
		byIdentifier[steps[i].StepIdentifier] = &steps[i]
	}
	initial := &steps[0]

	// Resolve every non-terminal edge and flag re-entries to the initial
	// step.
	for i := range steps {
		step := &steps[i]
		for _, opt := range step.Options {
			if opt.Terminal() {
				continue
			}
			target, ok := byIdentifier[opt.NextStepID]
			if !ok {
				report.Violations = append(report.Violations, Violation{
					Kind:     ViolationUnresolvedNextStep,
					StepID:   step.ID,
					OptionID: opt.ID,
					Detail:   fmt.Sprintf("option %d references step %q which does not exist in graph %d", opt.ID, opt.NextStepID, graphID),
				})
				metrics.GraphValidationViolations.WithLabelValues(ViolationUnresolvedNextStep).Inc()
				continue
			}
			if target.ID == initial.ID {
				report.Violations = append(report.Violations, Violation{
					Kind:     ViolationInitialCycle,
					StepID:   step.ID,
					OptionID: opt.ID,
					Detail:   fmt.Sprintf("option %d loops back to initial step %q", opt.ID, initial.StepIdentifier),
				})
				metrics.GraphValidationViolations.WithLabelValues(ViolationInitialCycle).Inc()
			}
		}
	}

	// Breadth-first reachability from the initial step.
	reachable := map[int64]struct{}{initial.ID: {}}
	queue := []*models.Step{initial}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, opt := range current.Options {
			if opt.Terminal() {
				continue
			}
			target, ok := byIdentifier[opt.NextStepID]
			if !ok {
				continue // already reported as unresolved
			}
			if _, seen := reachable[target.ID]; seen {
				continue
			}
			reachable[target.ID] = struct{}{}
			queue = append(queue, target)
		}
	}

	for i := range steps {
		if _, ok := reachable[steps[i].ID]; !ok {
			report.Violations = append(report.Violations, Violation{
				Kind:   ViolationOrphanedStep,
				StepID: steps[i].ID,
				Detail: fmt.Sprintf("step %q is unreachable from initial step %q", steps[i].StepIdentifier, initial.StepIdentifier),
			})
			metrics.GraphValidationViolations.WithLabelValues(ViolationOrphanedStep).Inc()
		}
	}

	report.Valid = len(report.Violations) == 0
	return report, nil
}
