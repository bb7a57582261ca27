// Cinemood - Emotion-Driven Movie Recommendation Backend
// Copyright 2026 Cinemood Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package api

import (
	"errors"
	"net/http"

	"github.com/cinemood/cinemood/internal/journey"
	"github.com/cinemood/cinemood/internal/store"
)

// Error codes returned in the API error envelope.
const (
	CodeNotFound        = "NOT_FOUND"
	CodeInvalidChoice   = "INVALID_CHOICE"
	CodeBrokenGraph     = "BROKEN_GRAPH"
	CodeValidationError = "VALIDATION_ERROR"
	CodeInternalError   = "INTERNAL_ERROR"
)

// respondDomainError maps the traversal and store error taxonomy onto HTTP
// statuses. A broken graph is the server's data problem, not the client's,
// so it maps to 422 rather than 404: the referenced entities exist, the
// relationship between them is unprocessable.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, journey.ErrNotFound), errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, CodeNotFound, err.Error(), nil)
	case errors.Is(err, journey.ErrInvalidChoice):
		respondError(w, http.StatusBadRequest, CodeInvalidChoice, err.Error(), nil)
	case errors.Is(err, journey.ErrBrokenGraph):
		respondError(w, http.StatusUnprocessableEntity, CodeBrokenGraph, err.Error(), nil)
	default:
		respondError(w, http.StatusInternalServerError, CodeInternalError, "Internal server error", err)
	}
}
