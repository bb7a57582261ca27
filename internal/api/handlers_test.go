// Cinemood - Emotion-Driven Movie Recommendation Backend
// Copyright 2026 Cinemood Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/cinemood/cinemood/internal/cache"
	"github.com/cinemood/cinemood/internal/config"
	"github.com/cinemood/cinemood/internal/journey"
	"github.com/cinemood/cinemood/internal/models"
	"github.com/cinemood/cinemood/internal/ranking"
	"github.com/cinemood/cinemood/internal/store"
)

func testServer(t *testing.T) (*httptest.Server, *store.Memory) {
	t.Helper()

	m := store.NewMemory()
	m.MainSentiments[1] = models.MainSentiment{
		ID: 1, Name: "Sadness",
		Keywords: []models.KeywordWeight{{Keyword: "grief", Weight: 0.8}},
	}
	m.Graphs[100] = models.JourneyGraph{ID: 100, MainSentimentID: 1}
	m.Steps[1] = models.Step{
		ID: 1, GraphID: 100, StepIdentifier: "1", Order: 1,
		Question: "How deep does it go?",
		Options: []models.Option{
			{ID: 10, StepID: 1, Text: "Deep", NextStepID: "2A"},
			{ID: 11, StepID: 1, Text: "Just a mood", NextStepID: "", Tags: []models.OptionTag{
				{SubSentimentID: 1, Weight: 0.7},
			}},
		},
	}
	m.Steps[2] = models.Step{
		ID: 2, GraphID: 100, StepIdentifier: "2A", Order: 2,
		Question: "Company?",
		Options: []models.Option{
			{ID: 20, StepID: 2, Text: "Broken", NextStepID: "9Z"},
		},
	}
	m.Movies[100] = models.Movie{ID: 100, Title: "Manchester by the Sea"}
	m.MovieTags[100] = []models.MovieSentimentTag{{MovieID: 100, SubSentimentID: 1, Weight: 0.9}}
	m.Suggestions[1] = models.Suggestion{ID: 1, OptionID: 11, MovieID: 100}
	m.Suggestions[2] = models.Suggestion{ID: 2, OptionID: 11, MovieID: 100}

	walker := journey.NewWalker(m, zerolog.Nop())
	ranker := ranking.NewRanker(m, cache.New(time.Minute),
		config.RankingConfig{BatchWorkers: 2, RelatedKeywordFactor: 0.5}, zerolog.Nop())
	handler := NewHandler(m, walker, ranker)
	router := NewRouter(handler, config.ServerConfig{RateLimitPerMinute: 1000})

	srv := httptest.NewServer(router.Setup())
	t.Cleanup(srv.Close)
	return srv, m
}

func decodeEnvelope(t *testing.T, resp *http.Response) models.APIResponse {
	t.Helper()
	defer resp.Body.Close()

	var envelope models.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response envelope: %v", err)
	}
	return envelope
}

func TestJourneyInitialEndpoint(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/journeys/1/initial")
	if err != nil {
		t.Fatalf("GET initial: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	envelope := decodeEnvelope(t, resp)
	if envelope.Status != "success" {
		t.Errorf("envelope status = %q, want success", envelope.Status)
	}
}

func TestJourneyInitialNotFound(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/journeys/999/initial")
	if err != nil {
		t.Fatalf("GET initial: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	envelope := decodeEnvelope(t, resp)
	if envelope.Error == nil || envelope.Error.Code != CodeNotFound {
		t.Errorf("error = %+v, want code NOT_FOUND", envelope.Error)
	}
}

func TestJourneyAdvanceEndpoint(t *testing.T) {
	srv, _ := testServer(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"advance to next step", `{"step_id": 1, "option_id": 10}`, http.StatusOK, ""},
		{"terminal option", `{"step_id": 1, "option_id": 11}`, http.StatusOK, ""},
		{"option from wrong step", `{"step_id": 1, "option_id": 20}`, http.StatusBadRequest, CodeInvalidChoice},
		{"missing step", `{"step_id": 999, "option_id": 10}`, http.StatusNotFound, CodeNotFound},
		{"broken graph", `{"step_id": 2, "option_id": 20}`, http.StatusUnprocessableEntity, CodeBrokenGraph},
		{"missing fields", `{"step_id": 1}`, http.StatusBadRequest, CodeValidationError},
		{"malformed json", `{"step_id":`, http.StatusBadRequest, CodeValidationError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/api/v1/journeys/advance", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST advance: %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			envelope := decodeEnvelope(t, resp)
			if tt.wantCode != "" {
				if envelope.Error == nil || envelope.Error.Code != tt.wantCode {
					t.Errorf("error = %+v, want code %s", envelope.Error, tt.wantCode)
				}
			}
		})
	}
}

func TestOptionSuggestionsEndpoint(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/options/11/suggestions")
	if err != nil {
		t.Fatalf("GET suggestions: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	envelope := decodeEnvelope(t, resp)
	if envelope.Status != "success" {
		t.Errorf("envelope status = %q, want success", envelope.Status)
	}
}

func TestJourneyValidateEndpoint(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/journeys/100/validate")
	if err != nil {
		t.Fatalf("GET validate: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var envelope struct {
		Data struct {
			Valid      bool `json:"valid"`
			Violations []struct {
				Kind string `json:"kind"`
			} `json:"violations"`
		} `json:"data"`
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// The fixture's 2A step references the missing "9Z".
	if envelope.Data.Valid {
		t.Error("graph with dangling reference reported valid")
	}
}

func TestRecomputeRelevanceEndpoint(t *testing.T) {
	srv, m := testServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/relevance/recompute", "application/json",
		strings.NewReader(`{"movie_id": 100}`))
	if err != nil {
		t.Fatalf("POST recompute: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	decodeEnvelope(t, resp)

	if m.Suggestions[1].Relevance != 1 || m.Suggestions[2].Relevance != 2 {
		t.Errorf("persisted ranks = [%d, %d], want [1, 2]",
			m.Suggestions[1].Relevance, m.Suggestions[2].Relevance)
	}
}

func TestRecomputeAllEndpoint(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/relevance/recompute", "application/json", http.NoBody)
	if err != nil {
		t.Fatalf("POST recompute all: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestDuplicateSuggestionsEndpoint(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/suggestions/duplicates")
	if err != nil {
		t.Fatalf("GET duplicates: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var envelope struct {
		Data struct {
			Count int `json:"count"`
		} `json:"data"`
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.Count != 1 {
		t.Errorf("duplicate count = %d, want 1", envelope.Data.Count)
	}
}

func TestSearchSentimentsEndpoint(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/search/sentiments?text=a+story+of+grief")
	if err != nil {
		t.Fatalf("GET search: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/v1/search/sentiments")
	if err != nil {
		t.Fatalf("GET search without text: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing text status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := testServer(t)

	for _, path := range []string{"/api/v1/health/live", "/api/v1/health/ready"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/health/live")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("response missing X-Request-ID header")
	}
}

func TestInvalidPathID(t *testing.T) {
	srv, _ := testServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/journeys/abc/initial")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	envelope := decodeEnvelope(t, resp)
	if envelope.Error == nil || envelope.Error.Code != CodeValidationError {
		t.Errorf("error = %+v, want VALIDATION_ERROR", envelope.Error)
	}
}
