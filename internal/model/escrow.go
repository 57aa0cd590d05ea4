package model

import "time"

// Escrow is the custody record paired one-to-one with a booking.  The three
// share fields never sum beyond AmountCents.  Claimed latches true exactly
// once, before the first payout transfer, and no payout path succeeds after
// it.  Cancellation and emergency paths instead drain AmountCents directly,
// bounds-checked on every debit, so the record is soft-deactivated by zeroing
// the pool rather than deleted.
//
// Fields:
//  BookingID        – identifier of the paired booking.
//  Mentee           – refund recipient.
//  Mentor           – payout recipient.
//  AmountCents      – remaining custodied pool for this booking.
//  MentorCents      – share released to the mentor on claim.
//  PlatformCents    – share claimable by the platform after settlement.
//  MenteeRefundCents– share refundable to the mentee (COMMITMENT_FEE only).
//  SessionTime      – mirrored session start; release is locked until one
//                     hour after it.
//  Type             – mirrored booking type.
//  Claimed          – one-way latch set before the first mentor/mentee payout.
//  FeeClaimed       – one-way latch for the separate platform-fee payout.
//  Active           – false once the record is superseded or fully drained.
//  CreatedAt        – creation timestamp.
type Escrow struct {
	BookingID         uint64      // escrows.booking_id
	Mentee            string      // escrows.mentee_addr
	Mentor            string      // escrows.mentor_addr
	AmountCents       uint64      // escrows.amount_cents
	MentorCents       uint64      // escrows.mentor_cents
	PlatformCents     uint64      // escrows.platform_cents
	MenteeRefundCents uint64      // escrows.mentee_refund_cents
	SessionTime       time.Time   // escrows.session_time
	Type              BookingType // escrows.booking_type
	Claimed           bool        // escrows.claimed
	FeeClaimed        bool        // escrows.fee_claimed
	Active            bool        // escrows.active
	CreatedAt         time.Time   // escrows.created_at
}

// SharesWithinAmount reports whether the running sum invariant holds:
// mentor + platform + mentee refund shares never exceed the custodied amount.
func (e *Escrow) SharesWithinAmount() bool {
	sum := e.MentorCents + e.PlatformCents + e.MenteeRefundCents
	return sum >= e.MentorCents && sum <= e.AmountCents
}
