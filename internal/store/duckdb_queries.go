// Cinemood - Emotion-Driven Movie Recommendation Backend
// Copyright 2026 Cinemood Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinemood/cinemood

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/cinemood/cinemood/internal/metrics"
	"github.com/cinemood/cinemood/internal/models"
)

// parseKeywords decodes a JSON keyword column into the typed structure,
// rejecting malformed entries instead of propagating them. NULL and empty
// columns yield an empty set.
func parseKeywords(raw sql.NullString) ([]models.KeywordWeight, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}

	var keywords []models.KeywordWeight
	if err := json.Unmarshal([]byte(raw.String), &keywords); err != nil {
		return nil, fmt.Errorf("malformed keyword column: %w", err)
	}

	for i := range keywords {
		keywords[i].Weight = models.NormalizeWeight(keywords[i].Weight)
	}

	if err := models.ValidateKeywords(keywords); err != nil {
		return nil, err
	}

	return keywords, nil
}

// GetMainSentiment implements Store.
func (db *DuckDB) GetMainSentiment(ctx context.Context, id int64) (*models.MainSentiment, error) {
	start := time.Now()
	ms, err := db.getMainSentiment(ctx, id)
	metrics.ObserveStoreQuery("get_main_sentiment", start, err)
	return ms, err
}

func (db *DuckDB) getMainSentiment(ctx context.Context, id int64) (*models.MainSentiment, error) {
	stmt, err := db.getStmt(ctx, `SELECT id, name, COALESCE(description, ''), keywords FROM main_sentiments WHERE id = ?`)
	if err != nil {
		return nil, err
	}

	var ms models.MainSentiment
	var rawKeywords sql.NullString
	err = stmt.QueryRowContext(ctx, id).Scan(&ms.ID, &ms.Name, &ms.Description, &rawKeywords)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("main sentiment %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query main sentiment: %w", err)
	}

	if ms.Keywords, err = parseKeywords(rawKeywords); err != nil {
		return nil, fmt.Errorf("main sentiment %d: %w", id, err)
	}

	return &ms, nil
}

// ListMainSentiments implements Store.
func (db *DuckDB) ListMainSentiments(ctx context.Context) ([]models.MainSentiment, error) {
	start := time.Now()
	list, err := db.listMainSentiments(ctx)
	metrics.ObserveStoreQuery("list_main_sentiments", start, err)
	return list, err
}

func (db *DuckDB) listMainSentiments(ctx context.Context) ([]models.MainSentiment, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, COALESCE(description, ''), keywords FROM main_sentiments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list main sentiments: %w", err)
	}
	defer closeQuietly(rows)

	var out []models.MainSentiment
	for rows.Next() {
		var ms models.MainSentiment
		var rawKeywords sql.NullString
		if err := rows.Scan(&ms.ID, &ms.Name, &ms.Description, &rawKeywords); err != nil {
			return nil, fmt.Errorf("failed to scan main sentiment: %w", err)
		}
		if ms.Keywords, err = parseKeywords(rawKeywords); err != nil {
			return nil, fmt.Errorf("main sentiment %d: %w", ms.ID, err)
		}
		out = append(out, ms)
	}
	return out, rows.Err()
}

// GetJourneyGraphByMainSentiment implements Store.
func (db *DuckDB) GetJourneyGraphByMainSentiment(ctx context.Context, mainSentimentID int64) (*models.JourneyGraph, error) {
	start := time.Now()
	g, err := db.getJourneyGraph(ctx, mainSentimentID)
	metrics.ObserveStoreQuery("get_journey_graph", start, err)
	return g, err
}

func (db *DuckDB) getJourneyGraph(ctx context.Context, mainSentimentID int64) (*models.JourneyGraph, error) {
	stmt, err := db.getStmt(ctx, `SELECT id, main_sentiment_id FROM journey_graphs WHERE main_sentiment_id = ?`)
	if err != nil {
		return nil, err
	}

	var g models.JourneyGraph
	err = stmt.QueryRowContext(ctx, mainSentimentID).Scan(&g.ID, &g.MainSentimentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("journey graph for main sentiment %d: %w", mainSentimentID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query journey graph: %w", err)
	}
	return &g, nil
}

// GetJourneyGraph implements Store.
func (db *DuckDB) GetJourneyGraph(ctx context.Context, graphID int64) (*models.JourneyGraph, error) {
	start := time.Now()
	g, err := db.getJourneyGraphByID(ctx, graphID)
	metrics.ObserveStoreQuery("get_journey_graph_by_id", start, err)
	return g, err
}

func (db *DuckDB) getJourneyGraphByID(ctx context.Context, graphID int64) (*models.JourneyGraph, error) {
	stmt, err := db.getStmt(ctx, `SELECT id, main_sentiment_id FROM journey_graphs WHERE id = ?`)
	if err != nil {
		return nil, err
	}

	var g models.JourneyGraph
	err = stmt.QueryRowContext(ctx, graphID).Scan(&g.ID, &g.MainSentimentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("journey graph %d: %w", graphID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query journey graph: %w", err)
	}
	return &g, nil
}

// scanOption converts one journey_options row, checking the legacy terminal
// flag against next_step_id. Disagreement is a data-integrity error.
func scanOption(rows *sql.Rows) (*models.Option, error) {
	var o models.Option
	var displayTitle, nextStepID sql.NullString
	var isTerminal bool
	if err := rows.Scan(&o.ID, &o.StepID, &o.Text, &displayTitle, &nextStepID, &isTerminal); err != nil {
		return nil, fmt.Errorf("failed to scan option: %w", err)
	}
	o.DisplayTitle = displayTitle.String
	o.NextStepID = nextStepID.String

	if isTerminal != o.Terminal() {
		return nil, &IntegrityError{
			Kind:   "terminal_disagreement",
			Detail: fmt.Sprintf("option %d: is_terminal=%v but next_step_id=%q", o.ID, isTerminal, o.NextStepID),
		}
	}
	return &o, nil
}

const optionColumns = `id, step_id, option_text, COALESCE(display_title, ''), next_step_id, is_terminal`

// GetStep implements Store.
func (db *DuckDB) GetStep(ctx context.Context, stepID int64) (*models.Step, error) {
	start := time.Now()
	s, err := db.getStepWhere(ctx, `id = ?`, stepID)
	metrics.ObserveStoreQuery("get_step", start, err)
	return s, err
}

// GetStepByIdentifier implements Store.
func (db *DuckDB) GetStepByIdentifier(ctx context.Context, graphID int64, stepIdentifier string) (*models.Step, error) {
	start := time.Now()
	s, err := db.getStepWhere(ctx, `graph_id = ? AND step_identifier = ?`, graphID, stepIdentifier)
	metrics.ObserveStoreQuery("get_step_by_identifier", start, err)
	return s, err
}

func (db *DuckDB) getStepWhere(ctx context.Context, where string, args ...interface{}) (*models.Step, error) {
	query := `SELECT id, graph_id, step_identifier, step_order, question FROM journey_steps WHERE ` + where
	stmt, err := db.getStmt(ctx, query)
	if err != nil {
		return nil, err
	}

	var s models.Step
	err = stmt.QueryRowContext(ctx, args...).Scan(&s.ID, &s.GraphID, &s.StepIdentifier, &s.Order, &s.Question)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("step: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query step: %w", err)
	}

	if err := db.attachStepOptions(ctx, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// attachStepOptions loads a step's options with their tags.
func (db *DuckDB) attachStepOptions(ctx context.Context, s *models.Step) error {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+optionColumns+` FROM journey_options WHERE step_id = ? ORDER BY id`, s.ID)
	if err != nil {
		return fmt.Errorf("failed to query options: %w", err)
	}
	defer closeQuietly(rows)

	byID := make(map[int64]*models.Option)
	var order []int64
	for rows.Next() {
		opt, err := scanOption(rows)
		if err != nil {
			return err
		}
		byID[opt.ID] = opt
		order = append(order, opt.ID)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if err := db.loadTagsForOptions(ctx, byID); err != nil {
		return err
	}

	s.Options = make([]models.Option, 0, len(order))
	for _, id := range order {
		s.Options = append(s.Options, *byID[id])
	}
	return nil
}

// loadTagsForOptions attaches tags for an explicit option set.
func (db *DuckDB) loadTagsForOptions(ctx context.Context, options map[int64]*models.Option) error {
	for id, opt := range options {
		rows, err := db.conn.QueryContext(ctx,
			`SELECT sub_sentiment_id, weight FROM journey_option_tags WHERE option_id = ? ORDER BY sub_sentiment_id`, id)
		if err != nil {
			return fmt.Errorf("failed to query option tags: %w", err)
		}

		for rows.Next() {
			var tag models.OptionTag
			if err := rows.Scan(&tag.SubSentimentID, &tag.Weight); err != nil {
				closeQuietly(rows)
				return fmt.Errorf("failed to scan option tag: %w", err)
			}
			tag.Weight = models.NormalizeWeight(tag.Weight)
			opt.Tags = append(opt.Tags, tag)
		}
		err = rows.Err()
		closeQuietly(rows)
		if err != nil {
			return err
		}
	}
	return nil
}

// ListStepsByGraph implements Store.
func (db *DuckDB) ListStepsByGraph(ctx context.Context, graphID int64) ([]models.Step, error) {
	start := time.Now()
	steps, err := db.listStepsByGraph(ctx, graphID)
	metrics.ObserveStoreQuery("list_steps_by_graph", start, err)
	return steps, err
}

func (db *DuckDB) listStepsByGraph(ctx context.Context, graphID int64) ([]models.Step, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, graph_id, step_identifier, step_order, question
		 FROM journey_steps WHERE graph_id = ?
		 ORDER BY step_order, step_identifier`, graphID)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps: %w", err)
	}

	var steps []models.Step
	for rows.Next() {
		var s models.Step
		if err := rows.Scan(&s.ID, &s.GraphID, &s.StepIdentifier, &s.Order, &s.Question); err != nil {
			closeQuietly(rows)
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		steps = append(steps, s)
	}
	err = rows.Err()
	closeQuietly(rows)
	if err != nil {
		return nil, err
	}

	for i := range steps {
		if err := db.attachStepOptions(ctx, &steps[i]); err != nil {
			return nil, err
		}
	}
	return steps, nil
}

// GetOption implements Store.
func (db *DuckDB) GetOption(ctx context.Context, optionID int64) (*models.Option, error) {
	start := time.Now()
	o, err := db.getOption(ctx, optionID)
	metrics.ObserveStoreQuery("get_option", start, err)
	return o, err
}

func (db *DuckDB) getOption(ctx context.Context, optionID int64) (*models.Option, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+optionColumns+` FROM journey_options WHERE id = ?`, optionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query option: %w", err)
	}
	defer closeQuietly(rows)

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("option %d: %w", optionID, ErrNotFound)
	}

	opt, err := scanOption(rows)
	if err != nil {
		return nil, err
	}

	byID := map[int64]*models.Option{opt.ID: opt}
	if err := db.loadTagsForOptions(ctx, byID); err != nil {
		return nil, err
	}
	return opt, nil
}

// GetMovie implements Store.
func (db *DuckDB) GetMovie(ctx context.Context, movieID int64) (*models.Movie, error) {
	start := time.Now()
	m, err := db.getMovie(ctx, movieID)
	metrics.ObserveStoreQuery("get_movie", start, err)
	return m, err
}

func (db *DuckDB) getMovie(ctx context.Context, movieID int64) (*models.Movie, error) {
	stmt, err := db.getStmt(ctx, `SELECT id, title, COALESCE(year, 0), COALESCE(overview, '') FROM movies WHERE id = ?`)
	if err != nil {
		return nil, err
	}

	var m models.Movie
	err = stmt.QueryRowContext(ctx, movieID).Scan(&m.ID, &m.Title, &m.Year, &m.Overview)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("movie %d: %w", movieID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query movie: %w", err)
	}
	return &m, nil
}

// GetMovieTags implements Store.
func (db *DuckDB) GetMovieTags(ctx context.Context, movieID int64) ([]models.MovieSentimentTag, error) {
	start := time.Now()
	tags, err := db.getMovieTags(ctx, movieID)
	metrics.ObserveStoreQuery("get_movie_tags", start, err)
	return tags, err
}

func (db *DuckDB) getMovieTags(ctx context.Context, movieID int64) ([]models.MovieSentimentTag, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT movie_id, sub_sentiment_id, weight, COALESCE(explanation, '')
		 FROM movie_sentiment_tags WHERE movie_id = ? ORDER BY sub_sentiment_id`, movieID)
	if err != nil {
		return nil, fmt.Errorf("failed to query movie tags: %w", err)
	}
	defer closeQuietly(rows)

	var tags []models.MovieSentimentTag
	for rows.Next() {
		var t models.MovieSentimentTag
		if err := rows.Scan(&t.MovieID, &t.SubSentimentID, &t.Weight, &t.Explanation); err != nil {
			return nil, fmt.Errorf("failed to scan movie tag: %w", err)
		}
		t.Weight = models.NormalizeWeight(t.Weight)
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// suggestionColumns is shared by the by-option and by-movie queries.
const suggestionColumns = `id, option_id, movie_id, COALESCE(reason, ''), relevance, relevance_score`

func scanSuggestions(rows *sql.Rows) ([]models.Suggestion, error) {
	var out []models.Suggestion
	for rows.Next() {
		var s models.Suggestion
		var score sql.NullFloat64
		if err := rows.Scan(&s.ID, &s.OptionID, &s.MovieID, &s.Reason, &s.Relevance, &score); err != nil {
			return nil, fmt.Errorf("failed to scan suggestion: %w", err)
		}
		if score.Valid {
			v := score.Float64
			s.RelevanceScore = &v
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetSuggestionsByOption implements Store.
func (db *DuckDB) GetSuggestionsByOption(ctx context.Context, optionID int64) ([]models.Suggestion, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+suggestionColumns+` FROM suggestions WHERE option_id = ? ORDER BY id`, optionID)
	if err != nil {
		metrics.ObserveStoreQuery("get_suggestions_by_option", start, err)
		return nil, fmt.Errorf("failed to query suggestions: %w", err)
	}
	defer closeQuietly(rows)

	out, err := scanSuggestions(rows)
	metrics.ObserveStoreQuery("get_suggestions_by_option", start, err)
	return out, err
}

// GetSuggestionsByMovie implements Store.
func (db *DuckDB) GetSuggestionsByMovie(ctx context.Context, movieID int64) ([]models.Suggestion, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+suggestionColumns+` FROM suggestions WHERE movie_id = ? ORDER BY id`, movieID)
	if err != nil {
		metrics.ObserveStoreQuery("get_suggestions_by_movie", start, err)
		return nil, fmt.Errorf("failed to query suggestions: %w", err)
	}
	defer closeQuietly(rows)

	out, err := scanSuggestions(rows)
	metrics.ObserveStoreQuery("get_suggestions_by_movie", start, err)
	return out, err
}

// ListMovieIDsWithSuggestions implements Store.
func (db *DuckDB) ListMovieIDsWithSuggestions(ctx context.Context) ([]int64, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT DISTINCT movie_id FROM suggestions ORDER BY movie_id`)
	if err != nil {
		metrics.ObserveStoreQuery("list_movie_ids_with_suggestions", start, err)
		return nil, fmt.Errorf("failed to list movie ids: %w", err)
	}
	defer closeQuietly(rows)

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			metrics.ObserveStoreQuery("list_movie_ids_with_suggestions", start, err)
			return nil, fmt.Errorf("failed to scan movie id: %w", err)
		}
		ids = append(ids, id)
	}
	err = rows.Err()
	metrics.ObserveStoreQuery("list_movie_ids_with_suggestions", start, err)
	return ids, err
}

// ListDuplicateSuggestions implements Store.
func (db *DuckDB) ListDuplicateSuggestions(ctx context.Context) ([]DuplicatePair, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT option_id, movie_id, LIST(id ORDER BY id)
		 FROM suggestions
		 GROUP BY option_id, movie_id
		 HAVING COUNT(*) > 1
		 ORDER BY option_id, movie_id`)
	if err != nil {
		metrics.ObserveStoreQuery("list_duplicate_suggestions", start, err)
		return nil, fmt.Errorf("failed to query duplicates: %w", err)
	}
	defer closeQuietly(rows)

	var pairs []DuplicatePair
	for rows.Next() {
		var p DuplicatePair
		var rawIDs interface{}
		if err := rows.Scan(&p.OptionID, &p.MovieID, &rawIDs); err != nil {
			metrics.ObserveStoreQuery("list_duplicate_suggestions", start, err)
			return nil, fmt.Errorf("failed to scan duplicate pair: %w", err)
		}
		// DuckDB LIST columns scan as []interface{}.
		if list, ok := rawIDs.([]interface{}); ok {
			for _, raw := range list {
				if id, ok := raw.(int64); ok {
					p.SuggestionIDs = append(p.SuggestionIDs, id)
				}
			}
		}
		pairs = append(pairs, p)
	}
	err = rows.Err()
	metrics.ObserveStoreQuery("list_duplicate_suggestions", start, err)
	return pairs, err
}

// UpdateSuggestionRanks implements Store. All updates apply in a single
// transaction so sibling ranks never partially change.
func (db *DuckDB) UpdateSuggestionRanks(ctx context.Context, updates []RankUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	start := time.Now()
	err := db.updateSuggestionRanks(ctx, updates)
	metrics.ObserveStoreQuery("update_suggestion_ranks", start, err)
	return err
}

func (db *DuckDB) updateSuggestionRanks(ctx context.Context, updates []RankUpdate) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, u := range updates {
		var score sql.NullFloat64
		if u.RelevanceScore != nil {
			score = sql.NullFloat64{Float64: *u.RelevanceScore, Valid: true}
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE suggestions SET relevance = ?, relevance_score = ? WHERE id = ?`,
			u.Relevance, score, u.SuggestionID)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update suggestion %d: %w", u.SuggestionID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			_ = tx.Rollback()
			return fmt.Errorf("suggestion %d: %w", u.SuggestionID, ErrNotFound)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rank updates: %w", err)
	}
	return nil
}
