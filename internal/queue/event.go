// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/mentorship-escrow/internal/model"
)

// SettlementEvent is published whenever the booking manager commits a
// lifecycle or money movement.  It contains enough information for
// downstream consumers to log, notify, or trigger analytics without
// querying the primary database.  Kind is one of the booking manager's
// event kind constants (booking.created, booking.cancelled,
// booking.no_show, attendance.confirmed, escrow.released,
// escrow.refunded).
type SettlementEvent struct {
	EventID     string `json:"event_id"` // unique id for consumer-side dedup
	Kind        string `json:"kind"`
	BookingID   uint64 `json:"booking_id"`
	Mentee      string `json:"mentee"`
	Mentor      string `json:"mentor"`
	AmountCents uint64 `json:"amount_cents"`
	Status      string `json:"status"`
	BookingType string `json:"booking_type"`
	SessionAt   string `json:"session_at"`
	EmittedAt   string `json:"emitted_at"`
}

// NewSettlementEvent builds the event envelope for a booking snapshot.
func NewSettlementEvent(kind string, b *model.Booking) SettlementEvent {
	return SettlementEvent{
		EventID:     uuid.NewString(),
		Kind:        kind,
		BookingID:   b.ID,
		Mentee:      b.Mentee,
		Mentor:      b.Mentor,
		AmountCents: b.AmountCents,
		Status:      string(b.Status),
		BookingType: string(b.Type),
		SessionAt:   b.SessionTime.UTC().Format(time.RFC3339),
		EmittedAt:   time.Now().UTC().Format(time.RFC3339),
	}
}
