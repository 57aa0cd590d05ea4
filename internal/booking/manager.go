package booking

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/iliyamo/mentorship-escrow/internal/directory"
	"github.com/iliyamo/mentorship-escrow/internal/escrow"
	"github.com/iliyamo/mentorship-escrow/internal/fees"
	"github.com/iliyamo/mentorship-escrow/internal/model"
	"github.com/iliyamo/mentorship-escrow/internal/session"
)

// DefaultCreateHorizon bounds how far ahead a booking may be created.  The
// escrow vault enforces its own looser 30-day bound independently.
const DefaultCreateHorizon = 14 * 24 * time.Hour

// Store persists bookings.  Ids are assigned by the store, monotonically
// increasing from 1.  Delete exists solely for the creation compensation
// path; settled bookings are never removed.
type Store interface {
	Create(ctx context.Context, b *model.Booking) error
	Get(ctx context.Context, id uint64) (*model.Booking, error)
	UpdateStatus(ctx context.Context, id uint64, status model.BookingStatus) error
	SetAttendance(ctx context.Context, id uint64, attended bool) error
	Delete(ctx context.Context, id uint64) error
	ListByAddress(ctx context.Context, addr string) ([]model.Booking, error)
}

// EventHook receives a settlement event kind and the booking it concerns.
// The manager calls it after the operation has committed; failures are the
// hook's problem (the queue publisher logs and swallows).
type EventHook func(ctx context.Context, kind string, b *model.Booking)

// Event kinds emitted by the manager.
const (
	EventBookingCreated      = "booking.created"
	EventBookingCancelled    = "booking.cancelled"
	EventBookingNoShow       = "booking.no_show"
	EventAttendanceConfirmed = "attendance.confirmed"
	EventEscrowReleased      = "escrow.released"
	EventEscrowRefunded      = "escrow.refunded"
	EventPlatformFeeClaimed  = "escrow.platform_fee_claimed"
)

// Manager is the booking lifecycle orchestrator.  It holds the only
// references with mutation rights on the vault and the engine (the
// booking-manager capability is this wiring, not a runtime permission
// check), and serializes operations per booking id.
type Manager struct {
	store     Store
	vault     *escrow.Vault
	engine    *session.Engine
	directory directory.Client
	horizon   time.Duration
	now       func() time.Time
	hook      EventHook

	locks sync.Map // booking id -> *sync.Mutex
}

// NewManager wires the manager to its collaborators.  A zero horizon falls
// back to DefaultCreateHorizon; a nil now falls back to the UTC wall clock.
// The manager registers itself as the engine's attendance resolver.
func NewManager(store Store, vault *escrow.Vault, engine *session.Engine, dir directory.Client, horizon time.Duration, now func() time.Time) *Manager {
	if horizon <= 0 {
		horizon = DefaultCreateHorizon
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	m := &Manager{store: store, vault: vault, engine: engine, directory: dir, horizon: horizon, now: now}
	engine.SetResolver(m)
	return m
}

// SetEventHook attaches the settlement event publisher.
func (m *Manager) SetEventHook(h EventHook) { m.hook = h }

func (m *Manager) emit(ctx context.Context, kind string, b *model.Booking) {
	if m.hook != nil {
		m.hook(ctx, kind, b)
	}
}

// lock acquires the per-booking mutex and returns its release func.
func (m *Manager) lock(id uint64) func() {
	v, _ := m.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Get returns a booking by id.
func (m *Manager) Get(ctx context.Context, id uint64) (*model.Booking, error) {
	return m.store.Get(ctx, id)
}

// ListByAddress returns all bookings where addr is the mentee or the mentor.
func (m *Manager) ListByAddress(ctx context.Context, addr string) ([]model.Booking, error) {
	return m.store.ListByAddress(ctx, addr)
}

// CreateBooking validates the request, custodies the amount and stores the
// booking in CONFIRMED.  For COMMITMENT_FEE bookings the acknowledgment link
// is generated in the same operation; the shareable reference is returned
// alongside the booking (empty for PAID).  viaRelay marks bookings created
// through a signed delegated request.
func (m *Manager) CreateBooking(ctx context.Context, mentee, mentor string, sessionTime time.Time, amount uint64, t model.BookingType, viaRelay bool) (*model.Booking, string, error) {
	if mentee == "" || mentor == "" || mentee == mentor || amount == 0 {
		return nil, "", ErrInvalidInput
	}
	if t != model.BookingPaid && t != model.BookingCommitmentFee {
		return nil, "", ErrInvalidInput
	}
	now := m.now()
	if !sessionTime.After(now) || sessionTime.After(now.Add(m.horizon)) {
		return nil, "", ErrInvalidInput
	}
	if _, ok, err := m.directory.Exists(ctx, mentor); err != nil {
		return nil, "", err
	} else if !ok {
		return nil, "", ErrMentorUnknown
	}
	b := &model.Booking{
		Mentee:           mentee,
		Mentor:           mentor,
		SessionTime:      sessionTime.UTC(),
		AmountCents:      amount,
		Status:           model.BookingConfirmed,
		Type:             t,
		CreatedByRelayer: viaRelay,
		CreatedAt:        now,
	}
	if err := m.store.Create(ctx, b); err != nil {
		return nil, "", err
	}
	if err := m.vault.Create(ctx, b.ID, mentee, mentor, amount, t, sessionTime); err != nil {
		if delErr := m.store.Delete(ctx, b.ID); delErr != nil {
			log.Printf("booking: compensation delete for %d failed: %v", b.ID, delErr)
		}
		return nil, "", err
	}
	var link string
	if t == model.BookingCommitmentFee {
		var err error
		link, err = m.engine.GenerateLink(ctx, b.ID, b.SessionTime, mentee, mentor)
		if err != nil {
			// Unwind the paired escrow so creation stays all-or-nothing.
			if refErr := m.vault.CancelBookingRefund(ctx, b.ID, mentee, amount); refErr != nil {
				log.Printf("booking: compensation refund for %d failed: %v", b.ID, refErr)
			}
			if delErr := m.store.Delete(ctx, b.ID); delErr != nil {
				log.Printf("booking: compensation delete for %d failed: %v", b.ID, delErr)
			}
			return nil, "", err
		}
	}
	m.emit(ctx, EventBookingCreated, b)
	return b, link, nil
}

// OnAttendanceResolved implements session.Resolver: the engine invokes it
// synchronously with the attendance outcome.  Cancelled bookings and PAID
// bookings never reach here through the engine, but both gates are enforced
// again as the second line of defense.
func (m *Manager) OnAttendanceResolved(ctx context.Context, id uint64, attended bool) error {
	return m.confirmAttendance(ctx, id, attended)
}

func (m *Manager) confirmAttendance(ctx context.Context, id uint64, attended bool) error {
	unlock := m.lock(id)
	defer unlock()
	b, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if b.Status == model.BookingCancelled {
		return ErrBadStatus
	}
	if b.Type != model.BookingCommitmentFee {
		return ErrWrongType
	}
	if attended {
		// Mentee is made whole later; mentor and platform shares stay zero.
		if err := m.vault.UpdateMenteeRefund(ctx, id, b.AmountCents); err != nil {
			return err
		}
		if err := m.store.SetAttendance(ctx, id, true); err != nil {
			return err
		}
		m.emit(ctx, EventAttendanceConfirmed, b)
		return nil
	}
	// No-show: zero the refund first, then set the mentor share so the vault
	// recomputes the platform share as the exact 10% remainder.
	if err := m.vault.UpdateMenteeRefund(ctx, id, 0); err != nil {
		return err
	}
	mentorShare, _ := fees.NoShowSplit(b.AmountCents)
	if err := m.vault.UpdateMentorAmount(ctx, id, mentorShare); err != nil {
		return err
	}
	if err := m.store.SetAttendance(ctx, id, false); err != nil {
		return err
	}
	if canTransition(b.Status, model.BookingNoShow) {
		if err := m.store.UpdateStatus(ctx, id, model.BookingNoShow); err != nil {
			return err
		}
		b.Status = model.BookingNoShow
	}
	m.emit(ctx, EventBookingNoShow, b)
	return nil
}

// ClaimMentorPayment releases the mentor share.  Confirmed, NoShow and
// Completed are all valid entry states; a Confirmed booking transitions to
// Completed, the other two stay put (the vault's claimed latch blocks double
// payout regardless, so repeat calls are harmless status-wise and fail on
// the money side).
func (m *Manager) ClaimMentorPayment(ctx context.Context, caller string, id uint64) error {
	unlock := m.lock(id)
	defer unlock()
	b, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if caller != b.Mentor {
		return ErrNotMentor
	}
	switch b.Status {
	case model.BookingConfirmed, model.BookingNoShow, model.BookingCompleted:
	default:
		return ErrBadStatus
	}
	if err := m.vault.ReleaseToMentor(ctx, id); err != nil {
		return err
	}
	if b.Status == model.BookingConfirmed {
		if err := m.store.UpdateStatus(ctx, id, model.BookingCompleted); err != nil {
			return err
		}
		b.Status = model.BookingCompleted
	}
	m.emit(ctx, EventEscrowReleased, b)
	return nil
}

// ClaimMenteeRefund refunds the mentee of an attended COMMITMENT_FEE
// booking and completes it.
func (m *Manager) ClaimMenteeRefund(ctx context.Context, caller string, id uint64) error {
	unlock := m.lock(id)
	defer unlock()
	b, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if caller != b.Mentee {
		return ErrNotMentee
	}
	if b.Type != model.BookingCommitmentFee {
		return ErrWrongType
	}
	if !b.AttendanceSet || !b.Attended {
		return ErrAttendanceNotConfirmed
	}
	if err := m.vault.RefundToMentee(ctx, id); err != nil {
		return err
	}
	if canTransition(b.Status, model.BookingCompleted) {
		if err := m.store.UpdateStatus(ctx, id, model.BookingCompleted); err != nil {
			return err
		}
		b.Status = model.BookingCompleted
	}
	m.emit(ctx, EventEscrowRefunded, b)
	return nil
}

// CancelBooking lets the mentee cancel a Confirmed booking before the
// session starts.  More than 24h out the mentee is made whole; inside the
// window the split is 80/15/5.  The status flips to Cancelled before any
// funds move and is restored if the refund cannot be dispatched.
func (m *Manager) CancelBooking(ctx context.Context, caller string, id uint64) error {
	unlock := m.lock(id)
	defer unlock()
	b, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if caller != b.Mentee {
		return ErrNotMentee
	}
	if b.Status != model.BookingConfirmed {
		return ErrBadStatus
	}
	now := m.now()
	if !now.Before(b.SessionTime) {
		return ErrTooLate
	}
	menteeAmt, mentorAmt, platformAmt := fees.CancellationSplit(b.AmountCents, b.SessionTime.Sub(now))
	if err := m.store.UpdateStatus(ctx, id, model.BookingCancelled); err != nil {
		return err
	}
	if err := m.vault.CancelBookingRefund(ctx, id, b.Mentee, menteeAmt); err != nil {
		if revErr := m.store.UpdateStatus(ctx, id, model.BookingConfirmed); revErr != nil {
			log.Printf("booking: status revert for %d failed: %v", id, revErr)
		}
		return err
	}
	if mentorAmt > 0 || platformAmt > 0 {
		if err := m.vault.DistributeCancellationPenalty(ctx, id, mentorAmt, platformAmt); err != nil {
			// The mentee refund has already settled; surface the failure.
			return err
		}
	}
	b.Status = model.BookingCancelled
	m.emit(ctx, EventBookingCancelled, b)
	return nil
}

// AdminFacade exposes the manager operations reserved for the platform
// admin.  Handlers obtain it at construction time and gate requests with the
// ADMIN role before use.
type AdminFacade struct {
	m *Manager
}

// Admin returns the admin capability for this manager.
func (m *Manager) Admin() AdminFacade { return AdminFacade{m: m} }

// ConfirmAttendance records the attendance outcome directly, bypassing the
// acknowledgment engine.  Same re-pricing rules as the engine path.
func (a AdminFacade) ConfirmAttendance(ctx context.Context, id uint64, attended bool) error {
	return a.m.confirmAttendance(ctx, id, attended)
}

// MarkInProgress transitions a Confirmed booking to InProgress.
func (a AdminFacade) MarkInProgress(ctx context.Context, id uint64) error {
	unlock := a.m.lock(id)
	defer unlock()
	b, err := a.m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if b.Status != model.BookingConfirmed {
		return ErrBadStatus
	}
	return a.m.store.UpdateStatus(ctx, id, model.BookingInProgress)
}

// ClaimPlatformFee collects the settled platform share for a booking and
// emits the settlement event.  The vault's fee latch makes it single-shot.
func (a AdminFacade) ClaimPlatformFee(ctx context.Context, id uint64) error {
	unlock := a.m.lock(id)
	defer unlock()
	b, err := a.m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := a.m.vault.Admin().ClaimPlatformFee(ctx, id); err != nil {
		return err
	}
	a.m.emit(ctx, EventPlatformFeeClaimed, b)
	return nil
}

// EmergencyUpdateStatus overrides the booking status unconditionally,
// bypassing the transition graph.  The escrow is left untouched.
func (a AdminFacade) EmergencyUpdateStatus(ctx context.Context, id uint64, status model.BookingStatus) error {
	if !validStatus(status) {
		return ErrInvalidInput
	}
	unlock := a.m.lock(id)
	defer unlock()
	if _, err := a.m.store.Get(ctx, id); err != nil {
		return err
	}
	return a.m.store.UpdateStatus(ctx, id, status)
}
