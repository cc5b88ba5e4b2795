package fingerprintstore

import (
	"context"
	"sync"

	"multichain_wallet/internal/app/port"
)

// MemoryStore keeps fingerprints in insertion order for the life of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	order []string
	seen  map[string]struct{}
}

var _ port.FingerprintStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[string]struct{})}
}

func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out, nil
}

// Add is idempotent.
func (s *MemoryStore) Add(_ context.Context, fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[fingerprint]; ok {
		return nil
	}
	s.seen[fingerprint] = struct{}{}
	s.order = append(s.order, fingerprint)
	return nil
}
