package escrow

import (
	"context"
	"sync"

	"github.com/iliyamo/mentorship-escrow/internal/model"
)

// MemStore is an in-memory Store used by tests and DB-less local runs.
type MemStore struct {
	mu   sync.Mutex
	recs map[uint64]*model.Escrow
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore { return &MemStore{recs: make(map[uint64]*model.Escrow)} }

// Create implements Store.
func (s *MemStore) Create(ctx context.Context, e *model.Escrow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.recs[e.BookingID]; ok && old.Active {
		return ErrExists
	}
	cp := *e
	s.recs[e.BookingID] = &cp
	return nil
}

// Get implements Store.
func (s *MemStore) Get(ctx context.Context, id uint64) (*model.Escrow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// LatchClaimed implements Store.
func (s *MemStore) LatchClaimed(ctx context.Context, id uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return false, ErrNotFound
	}
	if !rec.Active || rec.Claimed {
		return false, nil
	}
	rec.Claimed = true
	return true, nil
}

// UnlatchClaimed implements Store.
func (s *MemStore) UnlatchClaimed(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.recs[id]; ok {
		rec.Claimed = false
	}
	return nil
}

// LatchFeeClaimed implements Store.
func (s *MemStore) LatchFeeClaimed(ctx context.Context, id uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return false, ErrNotFound
	}
	if rec.FeeClaimed {
		return false, nil
	}
	rec.FeeClaimed = true
	return true, nil
}

// UpdateShares implements Store.
func (s *MemStore) UpdateShares(ctx context.Context, id uint64, mentor, platform, refund uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return ErrNotFound
	}
	rec.MentorCents, rec.PlatformCents, rec.MenteeRefundCents = mentor, platform, refund
	return nil
}

// DebitAmount implements Store.
func (s *MemStore) DebitAmount(ctx context.Context, id uint64, amount uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return false, ErrNotFound
	}
	if rec.AmountCents < amount {
		return false, nil
	}
	rec.AmountCents -= amount
	return true, nil
}

// CreditAmount implements Store.
func (s *MemStore) CreditAmount(ctx context.Context, id uint64, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.recs[id]; ok {
		rec.AmountCents += amount
	}
	return nil
}

// SetActive implements Store.
func (s *MemStore) SetActive(ctx context.Context, id uint64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return ErrNotFound
	}
	rec.Active = active
	return nil
}

// ActiveTotal implements Store.
func (s *MemStore) ActiveTotal(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total uint64
	for _, rec := range s.recs {
		if rec.Active {
			total += rec.AmountCents
		}
	}
	return total, nil
}
