package escrow

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/iliyamo/mentorship-escrow/internal/fees"
	"github.com/iliyamo/mentorship-escrow/internal/model"
	"github.com/iliyamo/mentorship-escrow/internal/token"
)

// ReleaseGrace is the window after the session start during which attendance
// may still be resolved; mentor payouts are locked until it has elapsed.
const ReleaseGrace = time.Hour

// MaxHorizon bounds how far in the future a session may be custodied.  The
// vault's bound is looser than the booking manager's 14-day creation horizon
// so that other callers may reuse it.
const MaxHorizon = 30 * 24 * time.Hour

// Vault is the escrow ledger.  It owns all escrow records and the custodied
// aggregate, and performs every value transfer through the token ledger.
// Every payout path sets its latch before transferring; a failed transfer is
// compensated so no partial state persists.
type Vault struct {
	store    Store
	ledger   token.Ledger
	now      func() time.Time
	mu       sync.Mutex
	platform string // platform fee recipient, reconfigurable in emergency mode
	emergency bool
	custodied uint64 // aggregate remaining pool across active escrows
}

// NewVault constructs a Vault.  platformAddr receives platform fees.  A nil
// now falls back to the UTC wall clock.  Call Init before serving to seed
// the custodied aggregate from the store.
func NewVault(store Store, ledger token.Ledger, platformAddr string, now func() time.Time) *Vault {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Vault{store: store, ledger: ledger, platform: platformAddr, now: now}
}

// Init loads the custodied aggregate from persisted records.
func (v *Vault) Init(ctx context.Context) error {
	total, err := v.store.ActiveTotal(ctx)
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.custodied = total
	v.mu.Unlock()
	return nil
}

// Custodied returns the aggregate remaining pool across active escrows.
func (v *Vault) Custodied() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.custodied
}

// Get returns the escrow record for a booking.
func (v *Vault) Get(ctx context.Context, bookingID uint64) (*model.Escrow, error) {
	return v.store.Get(ctx, bookingID)
}

// Create opens a new escrow for a booking: it validates the input, pulls the
// amount from the mentee into custody, computes the initial split and stores
// the record.  The session time must lie within (now, now+30d].
func (v *Vault) Create(ctx context.Context, bookingID uint64, mentee, mentor string, amount uint64, t model.BookingType, sessionTime time.Time) error {
	if mentee == "" || mentor == "" || amount == 0 {
		return ErrInvalidInput
	}
	now := v.now()
	if !sessionTime.After(now) || sessionTime.After(now.Add(MaxHorizon)) {
		return ErrInvalidInput
	}
	if existing, err := v.store.Get(ctx, bookingID); err == nil && existing.Active {
		return ErrExists
	} else if err != nil && err != ErrNotFound {
		return err
	}
	if err := v.ledger.Pull(ctx, mentee, amount); err != nil {
		return err
	}
	mentorShare, platformShare, refundShare := fees.Split(t, amount)
	rec := &model.Escrow{
		BookingID:         bookingID,
		Mentee:            mentee,
		Mentor:            mentor,
		AmountCents:       amount,
		MentorCents:       mentorShare,
		PlatformCents:     platformShare,
		MenteeRefundCents: refundShare,
		SessionTime:       sessionTime.UTC(),
		Type:              t,
		Active:            true,
		CreatedAt:         now,
	}
	if err := v.store.Create(ctx, rec); err != nil {
		// Return the pulled funds so the failed operation leaves no trace.
		if pushErr := v.ledger.Push(ctx, mentee, amount); pushErr != nil {
			log.Printf("escrow: create compensation push failed for booking %d: %v", bookingID, pushErr)
		}
		return err
	}
	v.mu.Lock()
	v.custodied += amount
	v.mu.Unlock()
	return nil
}

// ReleaseToMentor pays out the mentor share once the time-lock has opened
// (one hour past the session start, leaving room for attendance resolution).
// The claimed latch is set before the transfer.
func (v *Vault) ReleaseToMentor(ctx context.Context, bookingID uint64) error {
	rec, err := v.store.Get(ctx, bookingID)
	if err != nil {
		return err
	}
	if !rec.Active {
		return ErrInactive
	}
	if rec.Claimed {
		return ErrAlreadyClaimed
	}
	if v.now().Before(rec.SessionTime.Add(ReleaseGrace)) {
		return ErrNotClaimable
	}
	if rec.MentorCents == 0 {
		return ErrNothingToClaim
	}
	return v.payout(ctx, bookingID, rec.Mentor, rec.MentorCents, rec.AmountCents-rec.MentorCents)
}

// RefundToMentee pays out the mentee refund share of a COMMITMENT_FEE escrow.
// Refunds are not time-locked: attendance has already been resolved by the
// time the share is non-zero.
func (v *Vault) RefundToMentee(ctx context.Context, bookingID uint64) error {
	rec, err := v.store.Get(ctx, bookingID)
	if err != nil {
		return err
	}
	if !rec.Active {
		return ErrInactive
	}
	if rec.Type != model.BookingCommitmentFee {
		return ErrWrongType
	}
	if rec.Claimed {
		return ErrAlreadyClaimed
	}
	if rec.MenteeRefundCents == 0 {
		return ErrNothingToClaim
	}
	return v.payout(ctx, bookingID, rec.Mentee, rec.MenteeRefundCents, rec.AmountCents-rec.MenteeRefundCents)
}

// payout latches the claimed flag, debits the paid share from the pool and
// the aggregate, then transfers.  The latch always precedes the transfer; a
// transfer failure unwinds the latch, the pool and the aggregate so that the
// operation leaves no partial state.
func (v *Vault) payout(ctx context.Context, bookingID uint64, to string, amount uint64, remaining uint64) error {
	latched, err := v.store.LatchClaimed(ctx, bookingID)
	if err != nil {
		return err
	}
	if !latched {
		return ErrAlreadyClaimed
	}
	debited, err := v.store.DebitAmount(ctx, bookingID, amount)
	if err != nil {
		return err
	}
	if !debited {
		// Shares never exceed the pool, so a failed debit means the record
		// was drained underneath us.
		if unlatchErr := v.store.UnlatchClaimed(ctx, bookingID); unlatchErr != nil {
			log.Printf("escrow: unlatch after failed debit for booking %d: %v", bookingID, unlatchErr)
		}
		return ErrInsufficientPool
	}
	v.mu.Lock()
	v.custodied -= amount
	v.mu.Unlock()
	if err := v.ledger.Push(ctx, to, amount); err != nil {
		v.mu.Lock()
		v.custodied += amount
		v.mu.Unlock()
		if credErr := v.store.CreditAmount(ctx, bookingID, amount); credErr != nil {
			log.Printf("escrow: credit after failed payout for booking %d: %v", bookingID, credErr)
		}
		if unlatchErr := v.store.UnlatchClaimed(ctx, bookingID); unlatchErr != nil {
			log.Printf("escrow: unlatch after failed payout for booking %d: %v", bookingID, unlatchErr)
		}
		return err
	}
	if remaining == 0 {
		return v.store.SetActive(ctx, bookingID, false)
	}
	return nil
}

// UpdateMenteeRefund rewrites the mentee refund share of an unclaimed
// COMMITMENT_FEE escrow.  The platform share is recomputed as the remainder
// so the sum invariant holds exactly.
func (v *Vault) UpdateMenteeRefund(ctx context.Context, bookingID uint64, newValue uint64) error {
	rec, err := v.shareUpdateTarget(ctx, bookingID)
	if err != nil {
		return err
	}
	if rec.MentorCents+newValue > rec.AmountCents {
		return ErrInvariant
	}
	platform := rec.AmountCents - rec.MentorCents - newValue
	return v.store.UpdateShares(ctx, bookingID, rec.MentorCents, platform, newValue)
}

// UpdateMentorAmount rewrites the mentor share of an unclaimed
// COMMITMENT_FEE escrow, recomputing the platform share as the remainder.
func (v *Vault) UpdateMentorAmount(ctx context.Context, bookingID uint64, newValue uint64) error {
	rec, err := v.shareUpdateTarget(ctx, bookingID)
	if err != nil {
		return err
	}
	if newValue+rec.MenteeRefundCents > rec.AmountCents {
		return ErrInvariant
	}
	platform := rec.AmountCents - newValue - rec.MenteeRefundCents
	return v.store.UpdateShares(ctx, bookingID, newValue, platform, rec.MenteeRefundCents)
}

func (v *Vault) shareUpdateTarget(ctx context.Context, bookingID uint64) (*model.Escrow, error) {
	rec, err := v.store.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !rec.Active {
		return nil, ErrInactive
	}
	if rec.Claimed {
		return nil, ErrAlreadyClaimed
	}
	if rec.Type != model.BookingCommitmentFee {
		return nil, ErrWrongType
	}
	return rec, nil
}

// CancelBookingRefund immediately returns amount to the mentee out of the
// remaining pool.  Cancellation payouts are not time-locked; every debit is
// bounds-checked against the pool before the transfer.
func (v *Vault) CancelBookingRefund(ctx context.Context, bookingID uint64, mentee string, amount uint64) error {
	rec, err := v.drainTarget(ctx, bookingID)
	if err != nil {
		return err
	}
	if rec.Mentee != mentee {
		return ErrInvalidInput
	}
	return v.drain(ctx, rec, []payment{{to: mentee, amount: amount}})
}

// DistributeCancellationPenalty pays the mentor and platform their late
// cancellation shares out of the remaining pool in one debit.
func (v *Vault) DistributeCancellationPenalty(ctx context.Context, bookingID uint64, mentorAmt, platformAmt uint64) error {
	rec, err := v.drainTarget(ctx, bookingID)
	if err != nil {
		return err
	}
	return v.drain(ctx, rec, []payment{
		{to: rec.Mentor, amount: mentorAmt},
		{to: v.platformAccount(), amount: platformAmt},
	})
}

func (v *Vault) drainTarget(ctx context.Context, bookingID uint64) (*model.Escrow, error) {
	rec, err := v.store.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !rec.Active {
		return nil, ErrInactive
	}
	if rec.Claimed {
		return nil, ErrAlreadyClaimed
	}
	return rec, nil
}

type payment struct {
	to     string
	amount uint64
}

// drain debits the pool by the total of the payments, then transfers each.
// The debit is a single guarded update so two drains can never overspend the
// pool between them.  When the pool reaches zero the record is deactivated.
func (v *Vault) drain(ctx context.Context, rec *model.Escrow, pays []payment) error {
	var total uint64
	for _, p := range pays {
		total += p.amount
	}
	if total == 0 {
		return nil
	}
	if total > rec.AmountCents {
		return ErrInsufficientPool
	}
	debited, err := v.store.DebitAmount(ctx, rec.BookingID, total)
	if err != nil {
		return err
	}
	if !debited {
		return ErrInsufficientPool
	}
	v.mu.Lock()
	v.custodied -= total
	v.mu.Unlock()
	for _, p := range pays {
		if p.amount == 0 {
			continue
		}
		if err := v.ledger.Push(ctx, p.to, p.amount); err != nil {
			// Custody still holds the undelivered remainder; surface the
			// failure rather than inventing a partial-success state.
			log.Printf("escrow: drain push to %s failed for booking %d: %v", p.to, rec.BookingID, err)
			return err
		}
	}
	if rec.AmountCents == total {
		return v.store.SetActive(ctx, rec.BookingID, false)
	}
	return nil
}

func (v *Vault) platformAccount() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.platform
}

// AdminFacade exposes the operations reserved for the platform
// admin.  Holding the facade is the capability; HTTP handlers obtain it at
// construction time and gate requests with the ADMIN role before use.
type AdminFacade struct {
	v *Vault
}

// Admin returns the admin capability for this vault.
func (v *Vault) Admin() AdminFacade { return AdminFacade{v: v} }

// ClaimPlatformFee transfers the platform share once the escrow has settled
// on the mentor or mentee side.  The fee has its own latch and can be taken
// exactly once.
func (a AdminFacade) ClaimPlatformFee(ctx context.Context, bookingID uint64) error {
	v := a.v
	rec, err := v.store.Get(ctx, bookingID)
	if err != nil {
		return err
	}
	if !rec.Claimed {
		return ErrNotClaimed
	}
	if rec.FeeClaimed {
		return ErrFeeClaimed
	}
	if rec.PlatformCents == 0 {
		return ErrNothingToClaim
	}
	latched, err := v.store.LatchFeeClaimed(ctx, bookingID)
	if err != nil {
		return err
	}
	if !latched {
		return ErrFeeClaimed
	}
	debited, err := v.store.DebitAmount(ctx, bookingID, rec.PlatformCents)
	if err != nil {
		return err
	}
	if !debited {
		return ErrInsufficientPool
	}
	v.mu.Lock()
	v.custodied -= rec.PlatformCents
	v.mu.Unlock()
	if err := v.ledger.Push(ctx, v.platformAccount(), rec.PlatformCents); err != nil {
		v.mu.Lock()
		v.custodied += rec.PlatformCents
		v.mu.Unlock()
		if credErr := v.store.CreditAmount(ctx, bookingID, rec.PlatformCents); credErr != nil {
			log.Printf("escrow: credit after failed fee payout for booking %d: %v", bookingID, credErr)
		}
		return err
	}
	if rec.AmountCents == rec.PlatformCents {
		return v.store.SetActive(ctx, bookingID, false)
	}
	return nil
}

// SetEmergencyMode toggles the admin override mode.
func (a AdminFacade) SetEmergencyMode(enabled bool) {
	a.v.mu.Lock()
	a.v.emergency = enabled
	a.v.mu.Unlock()
}

// EmergencyMode reports whether the override mode is active.
func (a AdminFacade) EmergencyMode() bool {
	a.v.mu.Lock()
	defer a.v.mu.Unlock()
	return a.v.emergency
}

// SetPlatformAccount reconfigures the fee recipient.  Only allowed while
// emergency mode is active.
func (a AdminFacade) SetPlatformAccount(addr string) error {
	a.v.mu.Lock()
	defer a.v.mu.Unlock()
	if !a.v.emergency {
		return ErrEmergencyOnly
	}
	if addr == "" {
		return ErrInvalidInput
	}
	a.v.platform = addr
	return nil
}

// EmergencyRefund returns amount to the mentee regardless of timing,
// bounded by the remaining pool.  Requires emergency mode.
func (a AdminFacade) EmergencyRefund(ctx context.Context, bookingID uint64, amount uint64) error {
	if !a.EmergencyMode() {
		return ErrEmergencyOnly
	}
	v := a.v
	rec, err := v.store.Get(ctx, bookingID)
	if err != nil {
		return err
	}
	if !rec.Active {
		return ErrInactive
	}
	if amount == 0 || amount > rec.AmountCents {
		return ErrInsufficientPool
	}
	return v.drain(ctx, rec, []payment{{to: rec.Mentee, amount: amount}})
}
