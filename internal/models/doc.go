// Cinemood - Emotion-Driven Movie Recommendation Backend
// Copyright 2026 Cinemood Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

// Package models defines the domain entities shared across the journey
// walker, the suggestion ranker, the store, and the HTTP layer.
//
// All relevance weights inside the core use the canonical 0-1 scale; see
// NormalizeWeight for the conversion applied at the store boundary.
package models
