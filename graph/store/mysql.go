package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a Store backed by MySQL or MariaDB, for deployments where
// several workgraph processes share one memory.
//
// The DSN uses the go-sql-driver format:
//
//	user:password@tcp(localhost:3306)/workgraph
type MySQLStore struct {
	sqlStore
}

// NewMySQLStore connects to dsn, verifies the connection and ensures the
// schema exists.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	st := &MySQLStore{sqlStore: sqlStore{db: db}}
	if err := st.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return st, nil
}

func (m *MySQLStore) createTables(ctx context.Context) error {
	records := `
		CREATE TABLE IF NOT EXISTS memory_records (
			id VARCHAR(64) PRIMARY KEY,
			topic VARCHAR(512) NOT NULL,
			summary TEXT NOT NULL,
			key_points JSON NOT NULL,
			tags JSON NOT NULL,
			created_at BIGINT NOT NULL,
			INDEX idx_memory_records_created (created_at)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := m.db.ExecContext(ctx, records); err != nil {
		return fmt.Errorf("failed to create memory_records table: %w", err)
	}

	tags := `
		CREATE TABLE IF NOT EXISTS memory_tags (
			record_id VARCHAR(64) NOT NULL,
			tag VARCHAR(255) NOT NULL,
			PRIMARY KEY (record_id, tag),
			INDEX idx_memory_tags_tag (tag),
			FOREIGN KEY (record_id) REFERENCES memory_records(id) ON DELETE CASCADE
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci
	`
	if _, err := m.db.ExecContext(ctx, tags); err != nil {
		return fmt.Errorf("failed to create memory_tags table: %w", err)
	}
	return nil
}

// Ping verifies the database connection is alive.
func (m *MySQLStore) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

// Stats returns connection pool statistics.
func (m *MySQLStore) Stats() sql.DBStats {
	return m.db.Stats()
}

// Put implements Store.
func (m *MySQLStore) Put(ctx context.Context, rec Record) (Record, error) { return m.put(ctx, rec) }

// Get implements Store.
func (m *MySQLStore) Get(ctx context.Context, id string) (Record, error) { return m.get(ctx, id) }

// FindByTag implements Store.
func (m *MySQLStore) FindByTag(ctx context.Context, tag string) ([]Record, error) {
	return m.findByTag(ctx, tag)
}

// List implements Store.
func (m *MySQLStore) List(ctx context.Context, limit int) ([]Record, error) {
	return m.list(ctx, limit)
}

// Close implements Store.
func (m *MySQLStore) Close() error { return m.close() }
