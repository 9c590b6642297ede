package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/trezcool/academia/core/session"
)

type store struct {
	table map[string]session.Session
	mutex sync.RWMutex
}

var _ session.Store = (*store)(nil) // interface compliance check

func NewStore() session.Store {
	return &store{table: make(map[string]session.Session)}
}

func (s *store) Save(_ context.Context, sess session.Session) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.table[sess.ID] = sess
	return nil
}

func (s *store) Get(_ context.Context, id string) (session.Session, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if sess, ok := s.table[id]; ok {
		return sess, nil
	}
	return session.Session{}, session.ErrNotFound
}

func (s *store) Delete(_ context.Context, id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.table[id]; !ok {
		return session.ErrNotFound
	}
	delete(s.table, id)
	return nil
}

func (s *store) Purge(_ context.Context, t time.Time) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var n int64
	for id, sess := range s.table {
		if sess.Expired(t) {
			delete(s.table, id)
			n++
		}
	}
	return n, nil
}
