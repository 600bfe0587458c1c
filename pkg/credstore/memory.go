package credstore

import (
	"context"
	"sync"

	"golang.org/x/oauth2"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps the pair in process memory. Used for tests and ephemeral runs.
type MemoryStore struct {
	mu     sync.RWMutex
	rec    record
	writes int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (*oauth2.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rec.token(), nil
}

func (s *MemoryStore) Save(_ context.Context, tok *oauth2.Token) error {
	rec, err := toRecord(tok)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = rec
	s.writes++
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = record{}
	return nil
}

// Writes returns how many successful Save calls the store has seen.
func (s *MemoryStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}
