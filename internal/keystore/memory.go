package keystore

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps pending tokens in process memory. Tokens never expire;
// their number is bounded by the probes in flight.
type MemoryStore struct {
	mu      sync.Mutex
	pending map[string]struct{}
	metrics *Metrics
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pending: make(map[string]struct{}),
		metrics: GetMetrics(),
	}
}

// Issue implements Store.
func (s *MemoryStore) Issue(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	token := uuid.NewString()
	for s.has(token) {
		token = uuid.NewString()
	}
	s.pending[token] = struct{}{}
	s.metrics.recordOperation(backendMemory, operationIssue, resultOK)
	return token, nil
}

// Verify implements Store.
func (s *MemoryStore) Verify(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pending[token]; !ok {
		s.metrics.recordOperation(backendMemory, operationVerify, resultMiss)
		return false, nil
	}
	delete(s.pending, token)
	s.metrics.recordOperation(backendMemory, operationVerify, resultOK)
	return true, nil
}

func (s *MemoryStore) has(token string) bool {
	_, ok := s.pending[token]
	return ok
}

// Pending returns the number of issued, unconsumed tokens.
func (s *MemoryStore) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}
