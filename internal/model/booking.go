package model

import "time"

// BookingStatus enumerates the lifecycle states of a booking.  Bookings are
// created directly into CONFIRMED; there is no pending-approval step.
// COMPLETED and CANCELLED are terminal: no transition ever leaves them.
type BookingStatus string

const (
	BookingConfirmed  BookingStatus = "CONFIRMED"   // funds custodied, session upcoming
	BookingInProgress BookingStatus = "IN_PROGRESS" // session underway (admin marked)
	BookingNoShow     BookingStatus = "NO_SHOW"     // mentee failed to attend
	BookingCompleted  BookingStatus = "COMPLETED"   // settled, terminal
	BookingCancelled  BookingStatus = "CANCELLED"   // cancelled before session, terminal
)

// BookingType distinguishes how the custodied amount is resolved.  PAID
// bookings pay the mentor a fixed 95% share.  COMMITMENT_FEE bookings start
// with all shares at zero and are resolved by the attendance outcome.
type BookingType string

const (
	BookingPaid          BookingType = "PAID"
	BookingCommitmentFee BookingType = "COMMITMENT_FEE"
)

// Booking records a mentee's paid reservation of a mentor's time.
// It is created atomically with its paired escrow record and mutated
// only by the booking lifecycle manager.  Rows are never deleted.
//
// Fields:
//  ID                – monotonically increasing identifier (starts at 1).
//  Mentee            – address of the paying mentee.
//  Mentor            – address of the mentor.
//  SessionTime       – scheduled session start, UTC, strictly in the future
//                      at creation and within the manager's horizon.
//  AmountCents       – custodied amount in the smallest token unit.
//  Status            – lifecycle state (see BookingStatus).
//  Type              – PAID or COMMITMENT_FEE.
//  AttendanceSet     – true once the attendance outcome has been recorded.
//  Attended          – the recorded outcome (meaningful only when
//                      AttendanceSet is true).
//  CreatedByRelayer  – true when the booking was created via a signed
//                      delegated request rather than a direct call.
//  CreatedAt         – creation timestamp.
type Booking struct {
	ID               uint64        // bookings.id
	Mentee           string        // bookings.mentee_addr
	Mentor           string        // bookings.mentor_addr
	SessionTime      time.Time     // bookings.session_time
	AmountCents      uint64        // bookings.amount_cents
	Status           BookingStatus // bookings.status
	Type             BookingType   // bookings.booking_type
	AttendanceSet    bool          // bookings.attendance_set
	Attended         bool          // bookings.attended
	CreatedByRelayer bool          // bookings.created_by_relayer
	CreatedAt        time.Time     // bookings.created_at
}

// Terminal reports whether the booking status admits no further transitions.
func (s BookingStatus) Terminal() bool {
	return s == BookingCompleted || s == BookingCancelled
}
