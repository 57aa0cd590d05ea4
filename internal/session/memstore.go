package session

import (
	"context"
	"sync"

	"github.com/iliyamo/mentorship-escrow/internal/model"
)

// MemStore is an in-memory Store used by tests and DB-less local runs.
type MemStore struct {
	mu   sync.Mutex
	recs map[uint64]*model.SessionAck
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore { return &MemStore{recs: make(map[uint64]*model.SessionAck)} }

// Create implements Store.
func (s *MemStore) Create(ctx context.Context, a *model.SessionAck) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recs[a.BookingID]; ok {
		return ErrAlreadyGenerated
	}
	cp := *a
	s.recs[a.BookingID] = &cp
	return nil
}

// Get implements Store.
func (s *MemStore) Get(ctx context.Context, id uint64) (*model.SessionAck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// MarkAcknowledged implements Store.
func (s *MemStore) MarkAcknowledged(ctx context.Context, id uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return false, ErrNotFound
	}
	if rec.Consumed {
		return false, nil
	}
	rec.Acknowledged = true
	rec.Consumed = true
	return true, nil
}

// MarkConsumed implements Store.
func (s *MemStore) MarkConsumed(ctx context.Context, id uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return false, ErrNotFound
	}
	if rec.Consumed {
		return false, nil
	}
	rec.Consumed = true
	return true, nil
}

// Reset implements Store.
func (s *MemStore) Reset(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.recs[id]; ok {
		rec.Acknowledged = false
		rec.Consumed = false
	}
	return nil
}

// ForceResolve implements Store.
func (s *MemStore) ForceResolve(ctx context.Context, id uint64, acknowledged bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return ErrNotFound
	}
	rec.Acknowledged = acknowledged
	rec.Consumed = true
	return nil
}
