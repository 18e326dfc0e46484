package store

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemStore is an in-memory Store. Records are lost when the process exits.
type MemStore struct {
	mu      sync.RWMutex
	records map[string]Record
	closed  bool
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{records: make(map[string]Record)}
}

// Put implements Store.
func (m *MemStore) Put(_ context.Context, rec Record) (Record, error) {
	rec = prepare(rec)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Record{}, ErrClosed
	}
	m.records[rec.ID] = clone(rec)
	return clone(rec), nil
}

// Get implements Store.
func (m *MemStore) Get(_ context.Context, id string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return Record{}, ErrClosed
	}
	rec, ok := m.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return clone(rec), nil
}

// FindByTag implements Store.
func (m *MemStore) FindByTag(_ context.Context, tag string) ([]Record, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := []Record{}
	for _, rec := range m.records {
		for _, t := range rec.Tags {
			if t == tag {
				out = append(out, clone(rec))
				break
			}
		}
	}
	newestFirst(out)
	return out, nil
}

// List implements Store.
func (m *MemStore) List(_ context.Context, limit int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, clone(rec))
	}
	newestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close implements Store.
func (m *MemStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func clone(rec Record) Record {
	rec.KeyPoints = append([]string{}, rec.KeyPoints...)
	rec.Tags = append([]string{}, rec.Tags...)
	return rec
}

// newestFirst sorts by CreatedAt descending, then ID for a stable order.
func newestFirst(recs []Record) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.After(recs[j].CreatedAt)
		}
		return recs[i].ID < recs[j].ID
	})
}
