package store

import (
	"database/sql"
	"fmt"
)

// AddTool records a tool extracted from the given repository and returns
// its id. It fails with ErrForeignKeyViolation when the repository does
// not exist.
func (s *Store) AddTool(repoID int64, name, description, toolType string, metadata map[string]any) (int64, error) {
	meta, err := marshalMetadata(metadata)
	if err != nil {
		return 0, err
	}

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
		return 0, fmt.Errorf("tool %s references repository %d: %w", name, repoID, ErrForeignKeyViolation)
	}

	result, err := tx.Exec(`
		INSERT INTO tools (repository_id, name, description, type, metadata)
		VALUES (?, ?, ?, ?, ?)
	`, repoID, name, description, toolType, meta)
	if err != nil {
		return 0, fmt.Errorf("failed to insert tool %s: %w", name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get tool ID: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit tool %s: %w", name, err)
	}

	return id, nil
}

// DeleteToolsByRepository removes every tool owned by a repository and
// returns how many rows were deleted. Only the opt-in replace mode of the
// ingestion pipeline calls it.
func (s *Store) DeleteToolsByRepository(repoID int64) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM tools WHERE repository_id = ?`, repoID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tools for repository %d: %w", repoID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// ListToolsByRepository returns the tools owned by a repository in insertion order.
func (s *Store) ListToolsByRepository(repoID int64) ([]*Tool, error) {
	rows, err := s.db.Query(`
		SELECT id, repository_id, name, description, type, metadata
		FROM tools
		WHERE repository_id = ?
		ORDER BY id
	`, repoID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools for repository %d: %w", repoID, err)
	}
	defer rows.Close()

	var tools []*Tool
	for rows.Next() {
		var tool Tool
		var metadata sql.NullString
		if err := rows.Scan(&tool.ID, &tool.RepositoryID, &tool.Name, &tool.Description, &tool.Type, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan tool row: %w", err)
		}
		if tool.Metadata, err = unmarshalMetadata(metadata); err != nil {
			return nil, fmt.Errorf("tool %d: %w", tool.ID, err)
		}
		tools = append(tools, &tool)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tools: %w", err)
	}

	return tools, nil
}

// ListAllTools returns every tool joined with its repository's name and url.
func (s *Store) ListAllTools() ([]*ToolWithRepository, error) {
	rows, err := s.db.Query(`
		SELECT t.id, t.repository_id, t.name, t.description, t.type, t.metadata, r.name, r.url
		FROM tools t
		JOIN repositories r ON t.repository_id = r.id
		ORDER BY t.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tools: %w", err)
	}
	defer rows.Close()

	var tools []*ToolWithRepository
	for rows.Next() {
		var tool ToolWithRepository
		var metadata sql.NullString
		err := rows.Scan(
			&tool.ID,
			&tool.RepositoryID,
			&tool.Name,
			&tool.Description,
			&tool.Type,
			&metadata,
			&tool.RepositoryName,
			&tool.RepositoryURL,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tool row: %w", err)
		}
		if tool.Metadata, err = unmarshalMetadata(metadata); err != nil {
			return nil, fmt.Errorf("tool %d: %w", tool.ID, err)
		}
		tools = append(tools, &tool)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tools: %w", err)
	}

	return tools, nil
}
