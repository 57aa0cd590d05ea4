// Package relay accepts signed delegated requests and executes them on
// behalf of the signer, so mentees without direct API credentials can act
// through a third party that submits (and pays for) the call.  Requests are
// JWTs carrying a target, a per-signer nonce and a typed payload; two
// signature schemes are supported, Ed25519 against the signer's registered
// public key and HMAC-SHA256 against the account's relay secret.
package relay

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/mentorship-escrow/internal/booking"
	"github.com/iliyamo/mentorship-escrow/internal/model"
)

// Payload kinds a delegated request may carry.
const (
	KindCreateBooking      = "create_booking"
	KindCancelBooking      = "cancel_booking"
	KindClaimRefund        = "claim_refund"
	KindClaimMentorPayment = "claim_mentor_payment"
)

// Payload is the operation a delegated request asks the relay to perform.
// Kind selects the variant; the other fields are read per kind.
type Payload struct {
	Kind        string            `json:"kind"`
	Mentor      string            `json:"mentor,omitempty"`
	SessionTime time.Time         `json:"session_time,omitempty"`
	AmountCents uint64            `json:"amount_cents,omitempty"`
	BookingType model.BookingType `json:"booking_type,omitempty"`
	BookingID   uint64            `json:"booking_id,omitempty"`
}

// Claims is the full delegated-request envelope.  Subject is the signer
// address, Audience binds the request to one authorization domain and
// ExpiresAt is the submission deadline.  ValueCents and GasBudget are carried
// for forwarding accounting and do not affect execution.
type Claims struct {
	Nonce      uint64  `json:"nonce"`
	Target     string  `json:"target"`
	ValueCents uint64  `json:"value_cents"`
	GasBudget  uint64  `json:"gas_budget"`
	Payload    Payload `json:"payload"`
	jwt.RegisteredClaims
}

// Signer is the credential material registered for an account.  PublicKey
// serves the EdDSA scheme, Secret the HS256 scheme; either may be absent.
type Signer struct {
	Address   string
	PublicKey ed25519.PublicKey
	Secret    []byte
}

// KeyResolver looks up signer credentials.  The user repository implements
// it against the users table.
type KeyResolver interface {
	ResolveSigner(ctx context.Context, address string) (*Signer, error)
}

// NonceStore tracks the next expected nonce per signer, shared across all
// payload kinds.  Advance consumes exactly the expected nonce and reports
// false when another request got there first.
type NonceStore interface {
	Nonce(ctx context.Context, signer string) (uint64, error)
	Advance(ctx context.Context, signer string, expected uint64) (bool, error)
}

// Receipt reports what a processed request did.
type Receipt struct {
	Signer    string `json:"signer"`
	Kind      string `json:"kind"`
	Nonce     uint64 `json:"nonce"`
	BookingID uint64 `json:"booking_id,omitempty"`
	AckLink   string `json:"ack_link,omitempty"`
}

// Relay verifies and executes delegated requests against a booking manager.
type Relay struct {
	address string // target identity requests must name
	domain  string // audience requests must be issued for
	keys    KeyResolver
	nonces  NonceStore
	manager *booking.Manager
	now     func() time.Time
}

// New builds a relay.  A nil now falls back to the UTC wall clock.
func New(address, domain string, keys KeyResolver, nonces NonceStore, manager *booking.Manager, now func() time.Time) *Relay {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Relay{address: address, domain: domain, keys: keys, nonces: nonces, manager: manager, now: now}
}

// Process runs the full pipeline on a raw request: deadline, signer lookup,
// nonce match, signature, target binding, guarded nonce consumption and
// finally dispatch.  The nonce is consumed before dispatch, so a replayed
// request fails on the nonce even when the first submission's dispatch
// errored.
func (r *Relay) Process(ctx context.Context, raw string) (*Receipt, error) {
	claims, err := r.peek(raw)
	if err != nil {
		return nil, err
	}
	now := r.now()
	if claims.ExpiresAt == nil || !now.Before(claims.ExpiresAt.Time) {
		return nil, ErrExpired
	}
	signerAddr := claims.Subject
	if signerAddr == "" {
		return nil, ErrUnknownSigner
	}
	signer, err := r.keys.ResolveSigner(ctx, signerAddr)
	if err != nil {
		return nil, err
	}
	expected, err := r.nonces.Nonce(ctx, signerAddr)
	if err != nil {
		return nil, err
	}
	if claims.Nonce != expected {
		return nil, ErrBadNonce
	}
	verified, err := r.verify(raw, signer)
	if err != nil {
		return nil, err
	}
	if verified.Target != r.address {
		return nil, ErrWrongTarget
	}
	ok, err := r.nonces.Advance(ctx, signerAddr, expected)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrReplayed
	}
	return r.dispatch(ctx, signerAddr, verified)
}

// peek decodes the claims without checking the signature, for the checks
// that must run before the (comparatively expensive) verification.
func (r *Relay) peek(raw string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, ErrBadSignature
	}
	return claims, nil
}

// verify checks the signature and the audience binding with the scheme the
// request was signed under.
func (r *Relay) verify(raw string, signer *Signer) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg(), jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(r.domain),
		jwt.WithTimeFunc(r.now),
	)
	tok, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		switch t.Method.Alg() {
		case jwt.SigningMethodEdDSA.Alg():
			if signer.PublicKey == nil {
				return nil, ErrNoCredentials
			}
			return signer.PublicKey, nil
		case jwt.SigningMethodHS256.Alg():
			if len(signer.Secret) == 0 {
				return nil, ErrNoCredentials
			}
			return signer.Secret, nil
		default:
			return nil, ErrBadSignature
		}
	})
	if err != nil || !tok.Valid {
		return nil, ErrBadSignature
	}
	return claims, nil
}

// dispatch executes the verified payload with the signer as the acting
// party.  Bookings created here are marked as relayer-created.
func (r *Relay) dispatch(ctx context.Context, signer string, claims *Claims) (*Receipt, error) {
	rcpt := &Receipt{Signer: signer, Kind: claims.Payload.Kind, Nonce: claims.Nonce}
	switch claims.Payload.Kind {
	case KindCreateBooking:
		p := claims.Payload
		if p.Mentor == "" || p.AmountCents == 0 || p.SessionTime.IsZero() {
			return nil, ErrBadPayload
		}
		b, link, err := r.manager.CreateBooking(ctx, signer, p.Mentor, p.SessionTime, p.AmountCents, p.BookingType, true)
		if err != nil {
			return nil, err
		}
		rcpt.BookingID = b.ID
		rcpt.AckLink = link
		return rcpt, nil
	case KindCancelBooking:
		if claims.Payload.BookingID == 0 {
			return nil, ErrBadPayload
		}
		if err := r.manager.CancelBooking(ctx, signer, claims.Payload.BookingID); err != nil {
			return nil, err
		}
		rcpt.BookingID = claims.Payload.BookingID
		return rcpt, nil
	case KindClaimRefund:
		if claims.Payload.BookingID == 0 {
			return nil, ErrBadPayload
		}
		if err := r.manager.ClaimMenteeRefund(ctx, signer, claims.Payload.BookingID); err != nil {
			return nil, err
		}
		rcpt.BookingID = claims.Payload.BookingID
		return rcpt, nil
	case KindClaimMentorPayment:
		if claims.Payload.BookingID == 0 {
			return nil, ErrBadPayload
		}
		if err := r.manager.ClaimMentorPayment(ctx, signer, claims.Payload.BookingID); err != nil {
			return nil, err
		}
		rcpt.BookingID = claims.Payload.BookingID
		return rcpt, nil
	default:
		return nil, ErrUnknownKind
	}
}
