// Package booking implements the lifecycle manager: it orchestrates booking
// creation, attendance-driven re-pricing, cancellation penalties and claim
// dispatch.  It is the only component with mutation rights on the escrow
// vault and the acknowledgment engine, and it serializes all work per
// booking id so every operation is atomic from the outside.
package booking

import "errors"

var (
	// ErrNotFound is returned when the booking id is unknown.
	ErrNotFound = errors.New("booking not found")
	// ErrInvalidInput covers zero identities, mentee==mentor, zero amounts
	// and session times outside the creation horizon.
	ErrInvalidInput = errors.New("invalid booking input")
	// ErrMentorUnknown is returned when the directory has no such mentor.
	ErrMentorUnknown = errors.New("mentor not registered")
	// ErrNotMentee is returned when a mentee-only operation is attempted by
	// someone else.
	ErrNotMentee = errors.New("caller is not the booking mentee")
	// ErrNotMentor is returned when a mentor-only operation is attempted by
	// someone else.
	ErrNotMentor = errors.New("caller is not the booking mentor")
	// ErrBadStatus is returned when the booking status does not admit the
	// requested transition.
	ErrBadStatus = errors.New("booking status does not allow this operation")
	// ErrWrongType is returned for operations restricted to COMMITMENT_FEE.
	ErrWrongType = errors.New("operation not valid for this booking type")
	// ErrAttendanceNotConfirmed gates the mentee refund until the engine
	// has recorded an attended outcome.
	ErrAttendanceNotConfirmed = errors.New("attendance not confirmed")
	// ErrTooLate is returned when cancelling at or after the session start.
	ErrTooLate = errors.New("session already started")
)
