// Package memory provides an in-memory audit store for tests and
// single-instance deployments. Records are lost when the process restarts.
// The oldest record is evicted once the store is full.
package memory

import (
	"container/list"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rhuss/askdata/pkg/storage"
)

// DefaultMaxSize bounds the store when New is called with 0.
const DefaultMaxSize = 1000

type entry struct {
	rec  *storage.Record
	elem *list.Element
}

// Store is an in-memory storage.Store with LRU eviction. Get refreshes a
// record's position.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
	lru     *list.List // front = most recently used
	maxSize int
	now     func() time.Time
}

var _ storage.Store = (*Store)(nil)

// New creates a store holding at most maxSize records.
func New(maxSize int) *Store {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Store{
		entries: make(map[string]*entry),
		lru:     list.New(),
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Save stores a copy of r.
func (s *Store) Save(ctx context.Context, r *storage.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[r.ID]; exists {
		return storage.ErrConflict
	}

	rec := *r
	rec.Attempts = append([]storage.Attempt(nil), r.Attempts...)
	rec.Tenant = storage.TenantOf(ctx, r)
	if rec.Created.IsZero() {
		rec.Created = s.now()
	}

	if len(s.entries) >= s.maxSize {
		s.evictOldest()
	}
	s.entries[rec.ID] = &entry{rec: &rec, elem: s.lru.PushFront(rec.ID)}
	return nil
}

// Get returns a record by ID.
func (s *Store) Get(ctx context.Context, id string) (*storage.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || !storage.Visible(ctx, e.rec) {
		return nil, storage.ErrNotFound
	}
	s.lru.MoveToFront(e.elem)
	rec := *e.rec
	return &rec, nil
}

// List returns records newest first.
func (s *Store) List(ctx context.Context, opts storage.ListOptions) ([]*storage.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*storage.Record
	for _, e := range s.entries {
		r := e.rec
		if !storage.Visible(ctx, r) {
			continue
		}
		if opts.Outcome != "" && r.Outcome != opts.Outcome {
			continue
		}
		if !opts.Before.IsZero() && !r.Created.Before(opts.Before) {
			continue
		}
		rec := *r
		out = append(out, &rec)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Created.Equal(out[j].Created) {
			return out[i].Created.After(out[j].Created)
		}
		return out[i].ID > out[j].ID
	})
	if limit := opts.EffectiveLimit(); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) HealthCheck(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// evictOldest removes the least recently used entry. Must be called with
// s.mu held.
func (s *Store) evictOldest() {
	back := s.lru.Back()
	if back == nil {
		return
	}
	s.lru.Remove(back)
	delete(s.entries, back.Value.(string))
}
