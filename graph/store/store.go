// Package store persists the long-term memory records that workflow nodes
// write and recall. It is a collaborator of the nodes; the engine never
// touches it.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested record ID does not exist.
var ErrNotFound = errors.New("not found")

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store is closed")

// Record is one remembered piece of information, for example the summary
// of a processed application.
type Record struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic"`
	Summary   string    `json:"summary"`
	KeyPoints []string  `json:"key_points"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

// Store provides persistence for memory records.
//
// Implementations:
//   - MemStore: in-process map (tests, single-shot CLI runs)
//   - SQLiteStore: embedded file database
//   - MySQLStore: shared MySQL server
//   - PGStore: shared PostgreSQL server via pgx
//
// All implementations are safe for concurrent use.
type Store interface {
	// Put saves rec and returns it as stored. An empty ID is filled with a
	// new UUID and a zero CreatedAt with the current time. Putting an
	// existing ID replaces that record.
	Put(ctx context.Context, rec Record) (Record, error)

	// Get returns the record with the given ID, or ErrNotFound.
	Get(ctx context.Context, id string) (Record, error)

	// FindByTag returns the records carrying tag, newest first.
	FindByTag(ctx context.Context, tag string) ([]Record, error)

	// List returns up to limit records, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]Record, error)

	// Close releases resources held by the store.
	Close() error
}

// prepare fills the generated fields of rec and normalizes its tags.
func prepare(rec Record) Record {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.Tags = normalizeTags(rec.Tags)
	if rec.KeyPoints == nil {
		rec.KeyPoints = []string{}
	}
	return rec
}

// normalizeTags lowercases, trims and de-duplicates tags, keeping order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
