// Cinemood - Emotion-Driven Movie Recommendation Backend
// Copyright 2026 Cinemood Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package models

import (
	"time"
)

// APIResponse is the standardized response wrapper used by all HTTP
// endpoints. Status is "success" or "error"; Error is populated only for
// error responses.
//
// Example successful response:
//
//	{
//	  "status": "success",
//	  "data": {"step": {...}},
//	  "metadata": {"timestamp": "2026-09-01T12:00:00Z", "query_time_ms": 4}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
type Metadata struct {
	// Timestamp is the server time when the response was generated.
	Timestamp time.Time `json:"timestamp"`

	// QueryTimeMS is the store query execution time in milliseconds.
	QueryTimeMS int64 `json:"query_time_ms,omitempty"`

	// Cached indicates the response was served from the TTL cache.
	Cached bool `json:"cached,omitempty"`
}

// APIError carries a machine-readable code and a human-readable message.
//
// Codes used by the journey and ranking endpoints:
//   - NOT_FOUND: sentiment, step, option, or movie does not exist
//   - INVALID_CHOICE: option does not belong to the current step
//   - BROKEN_GRAPH: option references a step missing from its graph
//   - VALIDATION_ERROR: request failed struct validation
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
