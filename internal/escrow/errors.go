// Package escrow implements the custody vault: per-booking escrow records,
// fee-split bookkeeping, time-locked and latch-guarded payouts, cancellation
// drains and the admin emergency path.  The vault is the exclusive owner of
// escrow records; the booking lifecycle manager holds the only reference with
// mutation rights, and admin operations go through the AdminFacade.
package escrow

import "errors"

// Sentinel errors, grouped by the taxonomy handlers map onto HTTP statuses:
// validation errors reject before any state change, state errors signal a
// window or latch problem, invariant errors are the defensive second line
// against internal callers.
var (
	// ErrNotFound is returned when no escrow record exists for the booking.
	ErrNotFound = errors.New("escrow not found")
	// ErrExists is returned when an active escrow already exists for the id.
	ErrExists = errors.New("escrow already exists")
	// ErrInvalidInput covers zero identities, zero amounts and out-of-range
	// session times.
	ErrInvalidInput = errors.New("invalid escrow input")
	// ErrNotClaimable is returned while the release time-lock has not opened.
	ErrNotClaimable = errors.New("escrow not yet claimable")
	// ErrAlreadyClaimed is returned once the claimed latch is set.
	ErrAlreadyClaimed = errors.New("escrow already claimed")
	// ErrNothingToClaim is returned when the requested share is zero.
	ErrNothingToClaim = errors.New("nothing to claim")
	// ErrNotClaimed gates the platform fee until the escrow has settled.
	ErrNotClaimed = errors.New("escrow not yet claimed")
	// ErrFeeClaimed is returned when the platform fee was already taken.
	ErrFeeClaimed = errors.New("platform fee already claimed")
	// ErrWrongType is returned when an operation is restricted to
	// COMMITMENT_FEE escrows.
	ErrWrongType = errors.New("operation not valid for this booking type")
	// ErrInvariant is returned when a share update would push the sum of
	// shares beyond the custodied amount.
	ErrInvariant = errors.New("shares would exceed escrow amount")
	// ErrInsufficientPool is returned when a drain exceeds the remaining
	// custodied amount for the booking.
	ErrInsufficientPool = errors.New("insufficient escrow pool")
	// ErrInactive is returned when the record has been drained or superseded.
	ErrInactive = errors.New("escrow inactive")
	// ErrEmergencyOnly guards operations unlocked by emergency mode.
	ErrEmergencyOnly = errors.New("emergency mode not active")
)
