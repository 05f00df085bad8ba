package store

import (
	"database/sql"
	"fmt"
	"time"
)

const repositoryColumns = `id, name, url, description, raw_content, category, metadata, created_at, processed_at`

// UpsertRepository registers a repository and returns its id. If a row with
// the same url already exists, its id is returned and the row is left
// untouched, so repeated calls with the same url always resolve to one row.
func (s *Store) UpsertRepository(name, url, description string) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.Exec(`
		INSERT INTO repositories (name, url, description, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(url) DO NOTHING
	`, name, url, description, formatTime(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("failed to insert repository %s: %w", url, err)
	}

	var id int64
	if err := tx.QueryRow("SELECT id FROM repositories WHERE url = ?", url).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to resolve repository id for %s: %w", url, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit repository %s: %w", url, err)
	}

	return id, nil
}

// SetRawContent stores the flattened content blob and stamps processed_at.
func (s *Store) SetRawContent(id int64, content string) error {
	result, err := s.db.Exec(`
		UPDATE repositories
		SET raw_content = ?, processed_at = ?
		WHERE id = ?
	`, content, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to set content for repository %d: %w", id, err)
	}
	return requireRow(result, id)
}

// SetCategory stores the classification label of a repository.
func (s *Store) SetCategory(id int64, category string) error {
	result, err := s.db.Exec(`UPDATE repositories SET category = ? WHERE id = ?`, nullString(category), id)
	if err != nil {
		return fmt.Errorf("failed to set category for repository %d: %w", id, err)
	}
	return requireRow(result, id)
}

// SetMetadata replaces the free-form metadata of a repository.
func (s *Store) SetMetadata(id int64, metadata map[string]any) error {
	meta, err := marshalMetadata(metadata)
	if err != nil {
		return err
	}
	result, err := s.db.Exec(`UPDATE repositories SET metadata = ? WHERE id = ?`, meta, id)
	if err != nil {
		return fmt.Errorf("failed to set metadata for repository %d: %w", id, err)
	}
	return requireRow(result, id)
}

func requireRow(result sql.Result, id int64) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("repository %d: %w", id, ErrNotFound)
	}
	return nil
}

// GetRepository retrieves a repository by id.
func (s *Store) GetRepository(id int64) (*Repository, error) {
	row := s.db.QueryRow(`SELECT `+repositoryColumns+` FROM repositories WHERE id = ?`, id)
	repo, err := scanRepository(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("repository %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get repository %d: %w", id, err)
	}
	return repo, nil
}

// GetRepositoryByURL retrieves a repository by its url.
func (s *Store) GetRepositoryByURL(url string) (*Repository, error) {
	row := s.db.QueryRow(`SELECT `+repositoryColumns+` FROM repositories WHERE url = ?`, url)
	repo, err := scanRepository(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("repository %s: %w", url, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get repository %s: %w", url, err)
	}
	return repo, nil
}

// ListRepositories returns all repositories in ingestion order.
func (s *Store) ListRepositories() ([]*Repository, error) {
	return s.queryRepositories(`SELECT `+repositoryColumns+` FROM repositories ORDER BY id`)
}

// ListRepositoriesByCategory returns the repositories carrying the given
// category, in ingestion order.
func (s *Store) ListRepositoriesByCategory(category string) ([]*Repository, error) {
	return s.queryRepositories(`SELECT `+repositoryColumns+` FROM repositories WHERE category = ? ORDER BY id`, category)
}

func (s *Store) queryRepositories(query string, args ...any) ([]*Repository, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories: %w", err)
	}
	defer rows.Close()

	var repos []*Repository
	for rows.Next() {
		repo, err := scanRepository(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan repository row: %w", err)
		}
		repos = append(repos, repo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating repositories: %w", err)
	}

	return repos, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRepository(row rowScanner) (*Repository, error) {
	var repo Repository
	var rawContent, category, metadata, processedAt sql.NullString
	var createdAt string

	err := row.Scan(
		&repo.ID,
		&repo.Name,
		&repo.URL,
		&repo.Description,
		&rawContent,
		&category,
		&metadata,
		&createdAt,
		&processedAt,
	)
	if err != nil {
		return nil, err
	}

	repo.RawContent = rawContent.String
	repo.Category = category.String

	if repo.Metadata, err = unmarshalMetadata(metadata); err != nil {
		return nil, fmt.Errorf("repository %d: %w", repo.ID, err)
	}
	if repo.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at for repository %d: %w", repo.ID, err)
	}
	if repo.ProcessedAt, err = parseNullTime(processedAt); err != nil {
		return nil, fmt.Errorf("failed to parse processed_at for repository %d: %w", repo.ID, err)
	}

	return &repo, nil
}
