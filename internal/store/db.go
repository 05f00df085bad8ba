package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// Sentinel errors returned by Store operations. Callers test for them with
// errors.Is; the returned errors carry the offending identifier.
var (
	// ErrNotFound is returned when an operation references a repository
	// that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForeignKeyViolation is returned when a tool or analysis result
	// references a repository that does not exist.
	ErrForeignKeyViolation = errors.New("foreign key violation")
)

// pragmas are applied to every connection. The busy timeout lets CLI
// commands wait out a batch written by the watch daemon.
var pragmas = []string{
	"foreign_keys = ON",
	"journal_mode = WAL",
	"busy_timeout = 5000",
}

// Store is the SQLite-backed repository catalogue.
type Store struct {
	db *sql.DB
}

// New opens the catalogue at dbPath without touching the schema.
// ":memory:" gives a private in-memory catalogue.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite has a single writer, and an in-memory database
	// only lives as long as its connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec("PRAGMA " + p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", p, err)
		}
	}

	return &Store{db: db}, nil
}

// Open creates a Store and ensures the schema exists.
func Open(dbPath string) (*Store, error) {
	s, err := New(dbPath)
	if err != nil {
		return nil, err
	}
	if err := s.CreateSchema(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// CreateSchema creates missing tables and indexes. It is idempotent.
func (s *Store) CreateSchema() error {
	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
