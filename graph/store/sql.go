package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// sqlStore holds the queries shared by the database/sql backends. SQLite
// and MySQL both accept "?" placeholders and REPLACE INTO, so only the
// schema differs between them.
//
// created_at is stored as Unix nanoseconds so neither driver needs time
// parsing configured.
type sqlStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

const recordColumns = "id, topic, summary, key_points, tags, created_at"

func (s *sqlStore) put(ctx context.Context, rec Record) (Record, error) {
	rec = prepare(rec)

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Record{}, ErrClosed
	}

	keyPoints, err := json.Marshal(rec.KeyPoints)
	if err != nil {
		return Record{}, fmt.Errorf("failed to marshal key points: %w", err)
	}
	tags, err := json.Marshal(rec.Tags)
	if err != nil {
		return Record{}, fmt.Errorf("failed to marshal tags: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Tags go first so REPLACE never trips the foreign key.
	if _, err := tx.ExecContext(ctx, "DELETE FROM memory_tags WHERE record_id = ?", rec.ID); err != nil {
		return Record{}, fmt.Errorf("failed to clear tags: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"REPLACE INTO memory_records ("+recordColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		rec.ID, rec.Topic, rec.Summary, string(keyPoints), string(tags), rec.CreatedAt.UnixNano(),
	); err != nil {
		return Record{}, fmt.Errorf("failed to save record: %w", err)
	}
	for _, tag := range rec.Tags {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO memory_tags (record_id, tag) VALUES (?, ?)", rec.ID, tag,
		); err != nil {
			return Record{}, fmt.Errorf("failed to save tag %q: %w", tag, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("failed to commit record: %w", err)
	}
	return rec, nil
}

func (s *sqlStore) get(ctx context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Record{}, ErrClosed
	}

	row := s.db.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM memory_records WHERE id = ?", id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to load record: %w", err)
	}
	return rec, nil
}

func (s *sqlStore) findByTag(ctx context.Context, tag string) ([]Record, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	return s.query(ctx, `
		SELECT r.id, r.topic, r.summary, r.key_points, r.tags, r.created_at
		FROM memory_records r
		JOIN memory_tags t ON t.record_id = r.id
		WHERE t.tag = ?
		ORDER BY r.created_at DESC, r.id ASC`, tag)
}

func (s *sqlStore) list(ctx context.Context, limit int) ([]Record, error) {
	q := "SELECT " + recordColumns + " FROM memory_records ORDER BY created_at DESC, id ASC"
	if limit > 0 {
		return s.query(ctx, q+" LIMIT ?", limit)
	}
	return s.query(ctx, q)
}

func (s *sqlStore) query(ctx context.Context, q string, args ...any) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return out, nil
}

func (s *sqlStore) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec       Record
		keyPoints string
		tags      string
		created   int64
	)
	if err := row.Scan(&rec.ID, &rec.Topic, &rec.Summary, &keyPoints, &tags, &created); err != nil {
		return Record{}, err
	}
	if err := json.Unmarshal([]byte(keyPoints), &rec.KeyPoints); err != nil {
		return Record{}, fmt.Errorf("failed to unmarshal key points: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &rec.Tags); err != nil {
		return Record{}, fmt.Errorf("failed to unmarshal tags: %w", err)
	}
	rec.CreatedAt = time.Unix(0, created).UTC()
	return rec, nil
}
