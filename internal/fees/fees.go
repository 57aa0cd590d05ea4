// Package fees holds the pure fee-split arithmetic used by the escrow ledger
// and the booking lifecycle manager.  All functions operate on amounts in the
// smallest token unit and guarantee that the returned shares sum exactly to
// the input amount (or to less, never more): whenever a percentage would
// truncate, the remainder is absorbed into the platform share by computing it
// as amount minus the other shares instead of an independent percentage.
package fees

import (
	"time"

	"github.com/iliyamo/mentorship-escrow/internal/model"
)

// Basis points for the fixed policies.  Integer division truncates toward
// zero; callers must never recompute the platform share independently.
const (
	paidMentorBps       = 9500 // PAID: mentor 95%
	noShowMentorBps     = 9000 // COMMITMENT_FEE no-show: mentor 90%
	lateCancelMenteeBps = 8000 // late cancellation: mentee 80%
	lateCancelMentorBps = 1500 // late cancellation: mentor 15%
	bpsDenominator      = 10000
)

// FreeCancellationWindow is the minimum time before the session at which a
// mentee may still cancel without penalty.
const FreeCancellationWindow = 24 * time.Hour

// Split computes the initial mentor/platform/mentee shares for a new escrow.
// PAID bookings fix the split at creation and never revisit it.
// COMMITMENT_FEE bookings start with all shares at zero; the attendance
// outcome resolves them later.
func Split(t model.BookingType, amount uint64) (mentor, platform, menteeRefund uint64) {
	if t == model.BookingPaid {
		mentor = amount * paidMentorBps / bpsDenominator
		platform = amount - mentor
		return mentor, platform, 0
	}
	return 0, 0, 0
}

// NoShowSplit resolves a COMMITMENT_FEE escrow after a recorded no-show:
// the mentor receives 90% and the platform the exact remainder.
func NoShowSplit(amount uint64) (mentor, platform uint64) {
	mentor = amount * noShowMentorBps / bpsDenominator
	return mentor, amount - mentor
}

// CancellationSplit computes the refund and penalty shares when a mentee
// cancels before the session.  With more than FreeCancellationWindow
// remaining the mentee is made whole; otherwise the mentee keeps 80%, the
// mentor receives 15% and the platform the exact remainder, so the three
// shares always sum to amount.
func CancellationSplit(amount uint64, timeRemaining time.Duration) (mentee, mentor, platform uint64) {
	if timeRemaining > FreeCancellationWindow {
		return amount, 0, 0
	}
	mentee = amount * lateCancelMenteeBps / bpsDenominator
	mentor = amount * lateCancelMentorBps / bpsDenominator
	return mentee, mentor, amount - mentee - mentor
}
