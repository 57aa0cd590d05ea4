package booking

import (
	"context"
	"sync"

	"github.com/iliyamo/mentorship-escrow/internal/model"
)

// MemStore is an in-memory Store used by tests and DB-less local runs.
// Ids are assigned sequentially from 1.
type MemStore struct {
	mu   sync.Mutex
	next uint64
	recs map[uint64]*model.Booking
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore { return &MemStore{next: 1, recs: make(map[uint64]*model.Booking)} }

// Create implements Store.
func (s *MemStore) Create(ctx context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.next
	s.next++
	cp := *b
	s.recs[b.ID] = &cp
	return nil
}

// Get implements Store.
func (s *MemStore) Get(ctx context.Context, id uint64) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// UpdateStatus implements Store.
func (s *MemStore) UpdateStatus(ctx context.Context, id uint64, status model.BookingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return ErrNotFound
	}
	rec.Status = status
	return nil
}

// SetAttendance implements Store.
func (s *MemStore) SetAttendance(ctx context.Context, id uint64, attended bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return ErrNotFound
	}
	rec.AttendanceSet = true
	rec.Attended = attended
	return nil
}

// Delete implements Store.
func (s *MemStore) Delete(ctx context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recs, id)
	return nil
}

// ListByAddress implements Store.
func (s *MemStore) ListByAddress(ctx context.Context, addr string) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Booking
	for id := uint64(1); id < s.next; id++ {
		rec, ok := s.recs[id]
		if !ok {
			continue
		}
		if rec.Mentee == addr || rec.Mentor == addr {
			out = append(out, *rec)
		}
	}
	return out, nil
}
