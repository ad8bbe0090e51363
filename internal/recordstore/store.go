// Package recordstore keeps a local snapshot of one backend collection and
// resynchronizes it after every mutation.
//
// A successful mutation invalidates the snapshot and triggers a refetch.
// Until that refetch lands, Snapshot returns the pre-mutation records and
// Stale reports true. A failed mutation invalidates nothing.
package recordstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrResyncFailed wraps the refetch error after a successful mutation.
// The mutation itself went through; the snapshot is stale.
var ErrResyncFailed = errors.New("mutation applied but resync failed")

// ErrNotFound is returned when an edit targets a record not in the snapshot.
var ErrNotFound = errors.New("record not found")

// ErrNotEditing is returned by CommitEdit outside of edit mode.
var ErrNotEditing = errors.New("no record in edit mode")

// Record is anything with a stable caller-assigned identity.
type Record interface {
	RecordID() string
}

// Source is the remote collection a Store mirrors.
type Source[R Record] interface {
	List(ctx context.Context) ([]R, error)
	Create(ctx context.Context, record R) error
	Update(ctx context.Context, id string, record R) error
	Delete(ctx context.Context, id string) error
}

// Store is a cached view of one collection. It is safe for concurrent use.
type Store[R Record] struct {
	source Source[R]

	mu       sync.RWMutex
	records  []R
	version  uint64
	stale    bool
	loaded   bool
	fetchSeq uint64
	applied  uint64
	edit     EditMode

	// invalidatedAt is the last fetchSeq issued before the latest
	// mutation. Fetches up to it may predate the mutation.
	invalidatedAt uint64
}

// New creates an empty store over source. Call Refresh to populate it.
func New[R Record](source Source[R]) *Store[R] {
	return &Store[R]{source: source}
}

// Snapshot returns a copy of the last good records.
func (s *Store[R]) Snapshot() []R {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records)
}

// Version increases every time a fetched snapshot replaces the current one.
func (s *Store[R]) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Stale reports whether a mutation is known to have outdated the snapshot.
func (s *Store[R]) Stale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stale
}

// Loaded reports whether any fetch has succeeded yet.
func (s *Store[R]) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Find returns the record with id from the snapshot.
func (s *Store[R]) Find(id string) (R, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.find(id)
}

func (s *Store[R]) find(id string) (R, bool) {
	for _, r := range s.records {
		if r.RecordID() == id {
			return r, true
		}
	}
	var zero R
	return zero, false
}

// Refresh refetches the collection. On failure the prior snapshot is kept
// and the error is returned.
func (s *Store[R]) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.fetchSeq++
	seq := s.fetchSeq
	s.mu.Unlock()

	records, err := s.source.List(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A later fetch already landed, or this one started before the
	// last mutation and may not reflect it.
	if seq <= s.applied || seq <= s.invalidatedAt {
		return nil
	}
	s.applied = seq
	s.records = records
	s.version++
	s.loaded = true
	s.stale = false

	// Drop edit mode if the record being edited disappeared.
	if id, ok := s.edit.ID(); ok {
		if _, found := s.find(id); !found {
			s.edit = EditMode{}
		}
	}
	return nil
}

// Create adds record to the collection and resynchronizes.
func (s *Store[R]) Create(ctx context.Context, record R) error {
	return s.mutate(ctx, func() error {
		return s.source.Create(ctx, record)
	})
}

// Update replaces the record with id and resynchronizes.
func (s *Store[R]) Update(ctx context.Context, id string, record R) error {
	return s.mutate(ctx, func() error {
		return s.source.Update(ctx, id, record)
	})
}

// Delete removes the record with id and resynchronizes.
func (s *Store[R]) Delete(ctx context.Context, id string) error {
	return s.mutate(ctx, func() error {
		return s.source.Delete(ctx, id)
	})
}

func (s *Store[R]) mutate(ctx context.Context, op func() error) error {
	if err := op(); err != nil {
		return err
	}

	s.invalidate()
	if err := s.Refresh(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrResyncFailed, err)
	}
	return nil
}

func (s *Store[R]) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stale = true
	s.invalidatedAt = s.fetchSeq
}
