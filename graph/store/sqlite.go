package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a Store backed by an SQLite database file, using the pure
// Go modernc.org/sqlite driver (no cgo).
//
// Use ":memory:" as the path for an ephemeral database.
//
// Example:
//
//	st, err := store.NewSQLiteStore("./workgraph.db")
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
type SQLiteStore struct {
	sqlStore
	path string
}

// NewSQLiteStore opens (creating if needed) the database at path and
// ensures the schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	db.SetMaxOpenConns(1)    // SQLite supports one writer at a time
	db.SetMaxIdleConns(1)    // Keep connection open; required for :memory:
	db.SetConnMaxLifetime(0) // No max lifetime for SQLite

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	st := &SQLiteStore{sqlStore: sqlStore{db: db}, path: path}
	if err := st.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return st, nil
}

func (s *SQLiteStore) createTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS memory_records (
			id TEXT PRIMARY KEY,
			topic TEXT NOT NULL,
			summary TEXT NOT NULL,
			key_points TEXT NOT NULL,
			tags TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memory_records_created ON memory_records(created_at)`,
		`CREATE TABLE IF NOT EXISTS memory_tags (
			record_id TEXT NOT NULL REFERENCES memory_records(id) ON DELETE CASCADE,
			tag TEXT NOT NULL,
			PRIMARY KEY (record_id, tag)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_memory_tags_tag ON memory_tags(tag)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Path returns the database path the store was opened with.
func (s *SQLiteStore) Path() string { return s.path }

// Put implements Store.
func (s *SQLiteStore) Put(ctx context.Context, rec Record) (Record, error) { return s.put(ctx, rec) }

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, id string) (Record, error) { return s.get(ctx, id) }

// FindByTag implements Store.
func (s *SQLiteStore) FindByTag(ctx context.Context, tag string) ([]Record, error) {
	return s.findByTag(ctx, tag)
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Record, error) {
	return s.list(ctx, limit)
}

// Close implements Store.
func (s *SQLiteStore) Close() error { return s.close() }
