package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS memory_records (
    id         TEXT PRIMARY KEY,
    topic      TEXT NOT NULL,
    summary    TEXT NOT NULL,
    key_points TEXT[] NOT NULL DEFAULT '{}',
    tags       TEXT[] NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_memory_records_created ON memory_records(created_at);
CREATE INDEX IF NOT EXISTS idx_memory_records_tags    ON memory_records USING GIN (tags);
`

// PGStore is a Store backed by PostgreSQL through a pgx connection pool.
// Tags live in a TEXT[] column with a GIN index, so no join table is needed.
type PGStore struct {
	db *pgxpool.Pool
}

// NewPGStore wraps an existing pool. The caller owns the pool; Close
// closes it.
func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// OpenPGStore connects to databaseURL and ensures the schema exists.
func OpenPGStore(ctx context.Context, databaseURL string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	st := NewPGStore(pool)
	if err := st.CreateSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return st, nil
}

// CreateSchema creates the memory_records table if it doesn't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, pgSchema); err != nil {
		return fmt.Errorf("store: create schema: %w", err)
	}
	return nil
}

// DropSchema drops the memory_records table.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS memory_records`)
	return err
}

// Put implements Store.
func (s *PGStore) Put(ctx context.Context, rec Record) (Record, error) {
	rec = prepare(rec)
	_, err := s.db.Exec(ctx, `
		INSERT INTO memory_records (id, topic, summary, key_points, tags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			topic = EXCLUDED.topic,
			summary = EXCLUDED.summary,
			key_points = EXCLUDED.key_points,
			tags = EXCLUDED.tags,
			created_at = EXCLUDED.created_at`,
		rec.ID, rec.Topic, rec.Summary, rec.KeyPoints, rec.Tags, rec.CreatedAt,
	)
	if err != nil {
		return Record{}, fmt.Errorf("store: put record: %w", err)
	}
	return rec, nil
}

// Get implements Store.
func (s *PGStore) Get(ctx context.Context, id string) (Record, error) {
	rec, err := scanPGRecord(s.db.QueryRow(ctx,
		`SELECT id, topic, summary, key_points, tags, created_at FROM memory_records WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("store: get record: %w", err)
	}
	return rec, nil
}

// FindByTag implements Store.
func (s *PGStore) FindByTag(ctx context.Context, tag string) ([]Record, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	return s.query(ctx, `
		SELECT id, topic, summary, key_points, tags, created_at
		FROM memory_records
		WHERE $1 = ANY(tags)
		ORDER BY created_at DESC, id ASC`, tag)
}

// List implements Store.
func (s *PGStore) List(ctx context.Context, limit int) ([]Record, error) {
	q := `SELECT id, topic, summary, key_points, tags, created_at
		FROM memory_records ORDER BY created_at DESC, id ASC`
	if limit > 0 {
		return s.query(ctx, q+` LIMIT $1`, limit)
	}
	return s.query(ctx, q)
}

// Close implements Store.
func (s *PGStore) Close() error {
	s.db.Close()
	return nil
}

func (s *PGStore) query(ctx context.Context, q string, args ...any) ([]Record, error) {
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query records: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanPGRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: read records: %w", err)
	}
	return out, nil
}

func scanPGRecord(row pgx.Row) (Record, error) {
	var rec Record
	if err := row.Scan(&rec.ID, &rec.Topic, &rec.Summary, &rec.KeyPoints, &rec.Tags, &rec.CreatedAt); err != nil {
		return Record{}, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}
