package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/iliyamo/mentorship-escrow/internal/model"
)

// versionTag is mixed into every token digest so that digests from other
// deployments or schema versions can never collide with ours.
const versionTag = "mentorship-ack-v1"

// AckWindow is how long after the session start the mentor may still
// acknowledge attendance.  It mirrors the escrow release grace period.
const AckWindow = time.Hour

// Store persists acknowledgment records.  Mark methods are guarded: they
// mutate only when the stored flags still allow it and report whether the
// transition happened, keeping the consumed flag monotone.
type Store interface {
	// Create inserts a record; ErrAlreadyGenerated when one exists.
	Create(ctx context.Context, a *model.SessionAck) error
	// Get returns the record for a booking or ErrNotFound.
	Get(ctx context.Context, bookingID uint64) (*model.SessionAck, error)
	// MarkAcknowledged sets acknowledged and consumed iff not yet consumed.
	MarkAcknowledged(ctx context.Context, bookingID uint64) (bool, error)
	// MarkConsumed sets consumed iff not yet consumed (no-show path).
	MarkConsumed(ctx context.Context, bookingID uint64) (bool, error)
	// Reset clears acknowledged and consumed.  Only the engine's callback
	// compensation path may use it.
	Reset(ctx context.Context, bookingID uint64) error
	// ForceResolve overwrites acknowledged and sets consumed, for the
	// admin emergency override.
	ForceResolve(ctx context.Context, bookingID uint64, acknowledged bool) error
}

// Resolver receives the attendance outcome.  The booking lifecycle manager
// implements it; the engine invokes it synchronously after latching.
type Resolver interface {
	OnAttendanceResolved(ctx context.Context, bookingID uint64, attended bool) error
}

// Engine owns the acknowledgment records.  Only the booking lifecycle
// manager is wired with link generation; HTTP handlers consume the narrower
// acknowledge/no-show surface.
type Engine struct {
	store    Store
	resolver Resolver
	linkBase string // prefix for the shareable reference, e.g. https://host
	now      func() time.Time
}

// NewEngine constructs an Engine.  The resolver must be attached with
// SetResolver before any link can settle (the manager and engine reference
// each other, so wiring happens in two steps).
func NewEngine(store Store, linkBase string, now func() time.Time) *Engine {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{store: store, linkBase: linkBase, now: now}
}

// SetResolver attaches the attendance callback target.
func (e *Engine) SetResolver(r Resolver) { e.resolver = r }

// Get returns the acknowledgment record for a booking.
func (e *Engine) Get(ctx context.Context, bookingID uint64) (*model.SessionAck, error) {
	return e.store.Get(ctx, bookingID)
}

// Link renders the shareable reference for a booking's digest.  The digest
// is embedded verbatim: it is a correlation id, and possession of the link
// grants nothing; only the stored mentor may acknowledge.
func (e *Engine) Link(bookingID uint64, digest string) string {
	return fmt.Sprintf("%s/v1/sessions/%d/ack?token=%s", e.linkBase, bookingID, digest)
}

// GenerateLink derives a fresh salted digest for the booking and stores the
// acknowledgment record with expiry fixed at sessionTime+1h.  It fails once
// a link exists or once the window has already closed.  Returns the
// shareable reference.
func (e *Engine) GenerateLink(ctx context.Context, bookingID uint64, sessionTime time.Time, mentee, mentor string) (string, error) {
	expiry := sessionTime.Add(AckWindow)
	now := e.now()
	if now.After(expiry) {
		return "", ErrWindowClosed
	}
	saltBytes := make([]byte, 16)
	if _, err := rand.Read(saltBytes); err != nil {
		return "", err
	}
	salt := hex.EncodeToString(saltBytes)
	digest := tokenDigest(bookingID, sessionTime, mentor, salt)
	rec := &model.SessionAck{
		BookingID:   bookingID,
		TokenDigest: digest,
		Salt:        salt,
		Generated:   true,
		ExpiresAt:   expiry.UTC(),
		Mentee:      mentee,
		Mentor:      mentor,
		CreatedAt:   now,
	}
	if err := e.store.Create(ctx, rec); err != nil {
		return "", err
	}
	return e.Link(bookingID, digest), nil
}

// tokenDigest computes the hex SHA-256 of id‖sessionTime‖mentor‖salt‖tag.
func tokenDigest(bookingID uint64, sessionTime time.Time, mentor, salt string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%d|%s|%s|%s",
		bookingID, sessionTime.UTC().Unix(), mentor, salt, versionTag)))
	return hex.EncodeToString(sum[:])
}

// Acknowledge lets the stored mentor confirm attendance before expiry.  The
// consumed latch is set before the attendance callback runs; a callback
// failure resets the record so the operation leaves no partial state.
func (e *Engine) Acknowledge(ctx context.Context, caller string, bookingID uint64, presentedDigest string) error {
	rec, err := e.store.Get(ctx, bookingID)
	if err != nil {
		return err
	}
	if caller != rec.Mentor {
		return ErrNotMentor
	}
	if rec.Consumed {
		return ErrConsumed
	}
	if e.now().After(rec.ExpiresAt) {
		return ErrLinkExpired
	}
	if presentedDigest != rec.TokenDigest {
		return ErrBadToken
	}
	latched, err := e.store.MarkAcknowledged(ctx, bookingID)
	if err != nil {
		return err
	}
	if !latched {
		return ErrConsumed
	}
	if err := e.resolver.OnAttendanceResolved(ctx, bookingID, true); err != nil {
		_ = e.store.Reset(ctx, bookingID)
		return err
	}
	return nil
}

// RecordNoShow voids the link after expiry.  Anyone may call it: the
// outcome is already determined, the caller merely materialises it.
func (e *Engine) RecordNoShow(ctx context.Context, bookingID uint64) error {
	rec, err := e.store.Get(ctx, bookingID)
	if err != nil {
		return err
	}
	if rec.Acknowledged || rec.Consumed {
		return ErrConsumed
	}
	if !e.now().After(rec.ExpiresAt) {
		return ErrNotExpired
	}
	latched, err := e.store.MarkConsumed(ctx, bookingID)
	if err != nil {
		return err
	}
	if !latched {
		return ErrConsumed
	}
	if err := e.resolver.OnAttendanceResolved(ctx, bookingID, false); err != nil {
		_ = e.store.Reset(ctx, bookingID)
		return err
	}
	return nil
}

// EmergencyResolve is the admin override: it bypasses timing and the
// consumed latch, records the supplied outcome and fires the callback.  The
// supplied mentor must match the stored one as a sanity binding.
func (e *Engine) EmergencyResolve(ctx context.Context, mentor string, bookingID uint64, attended bool) error {
	rec, err := e.store.Get(ctx, bookingID)
	if err != nil {
		return err
	}
	if rec.Mentor != mentor {
		return ErrMentorMismatch
	}
	if err := e.store.ForceResolve(ctx, bookingID, attended); err != nil {
		return err
	}
	return e.resolver.OnAttendanceResolved(ctx, bookingID, attended)
}
