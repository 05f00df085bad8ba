package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Category operations

// RegisterCategory inserts a category. Registering an existing name is a no-op.
func (s *Store) RegisterCategory(name, description string) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO categories (name, description, created_at)
		VALUES (?, ?, ?)
	`, name, description, formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to register category %s: %w", name, err)
	}
	return nil
}

// ListCategories returns all registered categories in registration order.
func (s *Store) ListCategories() ([]*Category, error) {
	rows, err := s.db.Query(`SELECT id, name, description, created_at FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*Category
	for rows.Next() {
		var c Category
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan category row: %w", err)
		}
		if c.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at for category %s: %w", c.Name, err)
		}
		categories = append(categories, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// Analysis result operations

// RecordAnalysis appends an analysis audit record for a repository.
// score may be nil.
func (s *Store) RecordAnalysis(repoID int64, analysisType, result string, score *float64) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	exists, err := repositoryExists(tx, repoID)
	if err != nil {
		return 0, fmt.Errorf("failed to check repository %d: %w", repoID, err)
	}
	if !exists {
		return 0, fmt.Errorf("%s analysis references repository %d: %w", analysisType, repoID, ErrForeignKeyViolation)
	}

	var nullScore sql.NullFloat64
	if score != nil {
		nullScore = sql.NullFloat64{Float64: *score, Valid: true}
	}

	res, err := tx.Exec(`
		INSERT INTO analysis_results (repository_id, analysis_type, result, score, analyzed_at)
		VALUES (?, ?, ?, ?, ?)
	`, repoID, analysisType, result, nullScore, formatTime(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("failed to insert %s analysis for repository %d: %w", analysisType, repoID, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get analysis ID: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit analysis: %w", err)
	}

	return id, nil
}

// ListAnalysisResults returns the analysis history of a repository, oldest first.
func (s *Store) ListAnalysisResults(repoID int64) ([]*AnalysisResult, error) {
	rows, err := s.db.Query(`
		SELECT id, repository_id, analysis_type, result, score, analyzed_at
		FROM analysis_results
		WHERE repository_id = ?
		ORDER BY id
	`, repoID)
	if err != nil {
		return nil, fmt.Errorf("failed to list analysis results for repository %d: %w", repoID, err)
	}
	defer rows.Close()

	var results []*AnalysisResult
	for rows.Next() {
		var r AnalysisResult
		var score sql.NullFloat64
		var analyzedAt string
		if err := rows.Scan(&r.ID, &r.RepositoryID, &r.AnalysisType, &r.Result, &score, &analyzedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis row: %w", err)
		}
		if score.Valid {
			v := score.Float64
			r.Score = &v
		}
		if r.AnalyzedAt, err = parseTime(analyzedAt); err != nil {
			return nil, fmt.Errorf("failed to parse analyzed_at for analysis %d: %w", r.ID, err)
		}
		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analysis results: %w", err)
	}

	return results, nil
}

// Comparison operations

// RecordComparison appends a comparison of the given repositories. The id
// list is stored as a JSON array and keeps its order.
func (s *Store) RecordComparison(category string, repoIDs []int64, narrative, recommendations string) (int64, error) {
	if repoIDs == nil {
		repoIDs = []int64{}
	}
	idsJSON, err := json.Marshal(repoIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal repository ids: %w", err)
	}

	result, err := s.db.Exec(`
		INSERT INTO comparisons (category, repository_ids, comparison_result, recommendations, compared_at)
		VALUES (?, ?, ?, ?, ?)
	`, category, string(idsJSON), narrative, recommendations, formatTime(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("failed to insert comparison for %s: %w", category, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get comparison ID: %w", err)
	}

	return id, nil
}

// ListComparisons returns every comparison, oldest first.
func (s *Store) ListComparisons() ([]*Comparison, error) {
	return s.queryComparisons(`
		SELECT id, category, repository_ids, comparison_result, recommendations, compared_at
		FROM comparisons
		ORDER BY id
	`)
}

// ListComparisonsByCategory returns the comparison history of one category.
func (s *Store) ListComparisonsByCategory(category string) ([]*Comparison, error) {
	return s.queryComparisons(`
		SELECT id, category, repository_ids, comparison_result, recommendations, compared_at
		FROM comparisons
		WHERE category = ?
		ORDER BY id
	`, category)
}

func (s *Store) queryComparisons(query string, args ...any) ([]*Comparison, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list comparisons: %w", err)
	}
	defer rows.Close()

	var comparisons []*Comparison
	for rows.Next() {
		var c Comparison
		var idsJSON, comparedAt string
		if err := rows.Scan(&c.ID, &c.Category, &idsJSON, &c.Result, &c.Recommendations, &comparedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comparison row: %w", err)
		}
		if err := json.Unmarshal([]byte(idsJSON), &c.RepositoryIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal repository ids for comparison %d: %w", c.ID, err)
		}
		if c.ComparedAt, err = parseTime(comparedAt); err != nil {
			return nil, fmt.Errorf("failed to parse compared_at for comparison %d: %w", c.ID, err)
		}
		comparisons = append(comparisons, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comparisons: %w", err)
	}

	return comparisons, nil
}

// Counts holds the number of rows per table.
type Counts struct {
	Repositories    int `json:"repositories"`
	Processed       int `json:"processed"`
	Tools           int `json:"tools"`
	Categories      int `json:"categories"`
	AnalysisResults int `json:"analysis_results"`
	Comparisons     int `json:"comparisons"`
}

// GetCounts returns row counts for every table.
func (s *Store) GetCounts() (*Counts, error) {
	var c Counts
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM repositories", &c.Repositories},
		{"SELECT COUNT(*) FROM repositories WHERE processed_at IS NOT NULL", &c.Processed},
		{"SELECT COUNT(*) FROM tools", &c.Tools},
		{"SELECT COUNT(*) FROM categories", &c.Categories},
		{"SELECT COUNT(*) FROM analysis_results", &c.AnalysisResults},
		{"SELECT COUNT(*) FROM comparisons", &c.Comparisons},
	}
	for _, q := range queries {
		if err := s.db.QueryRow(q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("failed to count rows: %w", err)
		}
	}
	return &c, nil
}
