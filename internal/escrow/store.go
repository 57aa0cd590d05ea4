package escrow

import (
	"context"

	"github.com/iliyamo/mentorship-escrow/internal/model"
)

// Store persists escrow records.  Latch and debit methods are guarded:
// they mutate only when the stored precondition still holds and report
// whether the mutation happened, so the vault's check-then-set sequences
// stay safe even if a second writer slips past the manager's serialization.
type Store interface {
	// Create inserts a new record.  It returns ErrExists when an active
	// record for the booking id is already present.
	Create(ctx context.Context, e *model.Escrow) error
	// Get returns the record for a booking id or ErrNotFound.
	Get(ctx context.Context, bookingID uint64) (*model.Escrow, error)
	// LatchClaimed sets claimed=true iff the record is active and not yet
	// claimed.  It reports whether the latch transitioned.
	LatchClaimed(ctx context.Context, bookingID uint64) (bool, error)
	// UnlatchClaimed clears the claimed flag.  Only the vault's transfer
	// compensation path may call it, to honour the no-partial-state rule
	// when a payout transfer fails after latching.
	UnlatchClaimed(ctx context.Context, bookingID uint64) error
	// LatchFeeClaimed sets fee_claimed=true iff not yet set.
	LatchFeeClaimed(ctx context.Context, bookingID uint64) (bool, error)
	// UpdateShares overwrites the three share fields of an unclaimed record.
	UpdateShares(ctx context.Context, bookingID uint64, mentor, platform, menteeRefund uint64) error
	// DebitAmount subtracts amount from the remaining pool iff the pool
	// covers it, reporting whether the debit happened.
	DebitAmount(ctx context.Context, bookingID uint64, amount uint64) (bool, error)
	// CreditAmount returns amount to the pool.  Only the vault's transfer
	// compensation path may call it.
	CreditAmount(ctx context.Context, bookingID uint64, amount uint64) error
	// SetActive flips the active flag.
	SetActive(ctx context.Context, bookingID uint64, active bool) error
	// ActiveTotal returns the sum of remaining pools over active records,
	// used to seed the custodied aggregate at startup.
	ActiveTotal(ctx context.Context) (uint64, error)
}
