// Package session implements the attendance-acknowledgment engine: it issues
// the single-use, time-boxed proof link for a COMMITMENT_FEE booking, lets
// the stored mentor assert attendance, falls back to a no-show after expiry
// and reports the outcome back to the booking lifecycle manager through a
// synchronous callback.
package session

import "errors"

var (
	// ErrNotFound is returned when no acknowledgment record exists.
	ErrNotFound = errors.New("acknowledgment not found")
	// ErrAlreadyGenerated is returned when a link already exists for the booking.
	ErrAlreadyGenerated = errors.New("link already generated")
	// ErrWindowClosed is returned when a link is requested after the
	// acknowledgment window (session time plus one hour) has elapsed.
	ErrWindowClosed = errors.New("acknowledgment window already closed")
	// ErrLinkExpired is returned when acknowledging past the expiry.
	ErrLinkExpired = errors.New("link expired")
	// ErrNotExpired is returned when a no-show is recorded too early.
	ErrNotExpired = errors.New("link not yet expired")
	// ErrNotMentor is returned when anyone but the stored mentor acknowledges.
	ErrNotMentor = errors.New("caller is not the session mentor")
	// ErrMentorMismatch is returned by the emergency override when the
	// supplied mentor does not match the stored one.
	ErrMentorMismatch = errors.New("mentor does not match record")
	// ErrConsumed is returned once the link has been used or voided.
	ErrConsumed = errors.New("link already consumed")
	// ErrBadToken is returned when the presented digest does not match.
	ErrBadToken = errors.New("token digest mismatch")
)
