package relay

import (
	"context"
	"sync"
)

// MemNonceStore is an in-memory NonceStore used by tests and DB-less local
// runs.  Unseen signers start at nonce 0.
type MemNonceStore struct {
	mu     sync.Mutex
	nonces map[string]uint64
}

// NewMemNonceStore returns an empty in-memory nonce store.
func NewMemNonceStore() *MemNonceStore { return &MemNonceStore{nonces: make(map[string]uint64)} }

// Nonce implements NonceStore.
func (s *MemNonceStore) Nonce(ctx context.Context, signer string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nonces[signer], nil
}

// Advance implements NonceStore.
func (s *MemNonceStore) Advance(ctx context.Context, signer string, expected uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nonces[signer] != expected {
		return false, nil
	}
	s.nonces[signer] = expected + 1
	return true, nil
}
