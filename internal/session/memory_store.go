package session

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/bookmyseat/internal/clock"
	"github.com/iliyamo/bookmyseat/internal/model"
)

type memoryEntry struct {
	session  model.CheckoutSession
	deadline time.Time
}

// MemoryStore is a process-local store for single instance deployments and
// tests.  Expired entries are dropped lazily on access.
type MemoryStore struct {
	mu      sync.Mutex
	clock   clock.Clock
	entries map[string]memoryEntry
}

func NewMemoryStore(clk clock.Clock) *MemoryStore {
	return &MemoryStore{clock: clk, entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Save(_ context.Context, cs model.CheckoutSession, ttl time.Duration) error {
	cs.SeatIDs = append([]uint64(nil), cs.SeatIDs...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[cs.Token] = memoryEntry{session: cs, deadline: s.clock.Now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, token string) (*model.CheckoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[token]
	if !ok {
		return nil, ErrNotFound
	}
	if !s.clock.Now().Before(e.deadline) {
		delete(s.entries, token)
		return nil, ErrNotFound
	}
	cs := e.session
	cs.SeatIDs = append([]uint64(nil), cs.SeatIDs...)
	return &cs, nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, token)
	return nil
}
