// Package memstore provides an in-memory implementation of triage.Store.
package memstore

import (
	"context"
	"sync"

	"github.com/linnemanlabs/carecheck/internal/triage"
	"github.com/linnemanlabs/carecheck/internal/wizard"
)

// Store holds assessments and wizard sessions in memory.
type Store struct {
	mu       sync.RWMutex
	results  map[string]*triage.Result  // assessment ID -> result
	seen     map[string]string          // intake fingerprint -> assessment ID (dedup)
	sessions map[string]*wizard.Session // session ID -> session
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		results:  make(map[string]*triage.Result),
		seen:     make(map[string]string),
		sessions: make(map[string]*wizard.Session),
	}
}

// Get retrieves an assessment by its ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*triage.Result, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[id]
	if !ok {
		return nil, false, nil
	}
	return r.Clone(), true, nil
}

// GetByFingerprint retrieves the latest assessment for an intake fingerprint. Returns a copy.
func (s *Store) GetByFingerprint(_ context.Context, fp string) (*triage.Result, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.seen[fp]
	if !ok {
		return nil, false, nil
	}
	return s.results[id].Clone(), true, nil
}

// Put stores a copy of the assessment.
func (s *Store) Put(_ context.Context, r *triage.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[r.ID] = r.Clone()
	s.seen[r.Fingerprint] = r.ID
	return nil
}

// GetSession retrieves a wizard session by its ID. Returns a copy.
func (s *Store) GetSession(_ context.Context, id string) (*wizard.Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false, nil
	}
	return sess.Clone(), true, nil
}

// PutSession stores a copy of the session.
func (s *Store) PutSession(_ context.Context, sess *wizard.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess.Clone()
	return nil
}
