package model

import "time"

// SessionAck tracks the attendance-acknowledgment lifecycle of a
// COMMITMENT_FEE booking.  One record exists per booking once the shareable
// link has been generated.  Consumed is monotone (false to true, never back)
// and Acknowledged implies Consumed.  Expiry is fixed at generation time and
// never extended.
//
// The stored digest doubles as the token embedded in the shareable link; it
// is a correlation id, not a secret credential; only the mentor-identity
// check on acknowledgment provides security.
//
// Fields:
//  BookingID    – identifier of the paired booking.
//  TokenDigest  – hex SHA-256 of id‖sessionTime‖mentor‖salt‖version tag.
//  Salt         – random salt mixed into the digest.
//  Generated    – true once the link has been generated.
//  Acknowledged – true once the mentor confirmed attendance in time.
//  Consumed     – true once the link can no longer be used (ack or no-show).
//  ExpiresAt    – session time plus one hour.
//  Mentee       – mentee address, mirrored for the attendance callback.
//  Mentor       – the only address allowed to acknowledge.
//  CreatedAt    – generation timestamp.
type SessionAck struct {
	BookingID    uint64    // session_acks.booking_id
	TokenDigest  string    // session_acks.token_digest
	Salt         string    // session_acks.salt
	Generated    bool      // session_acks.generated
	Acknowledged bool      // session_acks.acknowledged
	Consumed     bool      // session_acks.consumed
	ExpiresAt    time.Time // session_acks.expires_at
	Mentee       string    // session_acks.mentee_addr
	Mentor       string    // session_acks.mentor_addr
	CreatedAt    time.Time // session_acks.created_at
}
