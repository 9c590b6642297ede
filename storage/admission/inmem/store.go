package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/academia/core/admission"
)

// Store keeps drafts in memory.
type Store struct {
	table map[string]admission.Draft
	mutex sync.RWMutex
}

var _ admission.Repository = (*Store)(nil) // interface compliance check

func NewStore() *Store {
	return &Store{table: make(map[string]admission.Draft)}
}

func (s *Store) Save(_ context.Context, d admission.Draft) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.table[d.ID] = d
	return nil
}

func (s *Store) Get(_ context.Context, id string) (admission.Draft, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if d, ok := s.table[id]; ok {
		return d, nil
	}
	return admission.Draft{}, admission.ErrNotFound
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.table[id]; !ok {
		return admission.ErrNotFound
	}
	delete(s.table, id)
	return nil
}

// PurgeStale deletes the drafts untouched since before t and returns how many were deleted.
func (s *Store) PurgeStale(t time.Time) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var n int
	for id, d := range s.table {
		if d.UpdatedAt.Before(t) {
			delete(s.table, id)
			n++
		}
	}
	return n
}
