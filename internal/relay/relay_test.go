package relay

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iliyamo/mentorship-escrow/internal/booking"
	"github.com/iliyamo/mentorship-escrow/internal/directory"
	"github.com/iliyamo/mentorship-escrow/internal/escrow"
	"github.com/iliyamo/mentorship-escrow/internal/model"
	"github.com/iliyamo/mentorship-escrow/internal/session"
	"github.com/iliyamo/mentorship-escrow/internal/token"
)

const (
	testRelayAddr = "relay1"
	testDomain    = "mentorship-relay"
)

type staticKeys map[string]*Signer

func (k staticKeys) ResolveSigner(ctx context.Context, address string) (*Signer, error) {
	s, ok := k[address]
	if !ok {
		return nil, ErrUnknownSigner
	}
	return s, nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Warp(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	relay   *Relay
	manager *booking.Manager
	ledger  *token.MemLedger
	clock   *testClock
	pub     ed25519.PublicKey
	priv    ed25519.PrivateKey
	secret  []byte
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{clock: &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}}
	var err error
	h.pub, h.priv, err = ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	h.secret = []byte("account-relay-secret")
	h.ledger = token.NewMemLedger()
	h.ledger.Credit("mentee1", 1_000_000)
	h.ledger.Credit("platform", 0)
	vault := escrow.NewVault(escrow.NewMemStore(), h.ledger, "platform", h.clock.Now)
	if err := vault.Init(context.Background()); err != nil {
		t.Fatalf("vault init: %v", err)
	}
	engine := session.NewEngine(session.NewMemStore(), "https://example.test", h.clock.Now)
	dir := directory.Static{"mentor1": "Dana"}
	h.manager = booking.NewManager(booking.NewMemStore(), vault, engine, dir, 0, h.clock.Now)
	keys := staticKeys{
		"mentee1": {Address: "mentee1", PublicKey: h.pub},
		"smart1":  {Address: "smart1", Secret: h.secret},
	}
	h.relay = New(testRelayAddr, testDomain, keys, NewMemNonceStore(), h.manager, h.clock.Now)
	return h
}

// claimsFor builds a well-formed request envelope; tests mutate the fields
// they exercise.
func (h *harness) claimsFor(signer string, nonce uint64, p Payload) *Claims {
	return &Claims{
		Nonce:   nonce,
		Target:  testRelayAddr,
		Payload: p,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   signer,
			Audience:  jwt.ClaimStrings{testDomain},
			ExpiresAt: jwt.NewNumericDate(h.clock.Now().Add(10 * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(h.clock.Now()),
		},
	}
}

func (h *harness) createPayload() Payload {
	return Payload{
		Kind:        KindCreateBooking,
		Mentor:      "mentor1",
		SessionTime: h.clock.Now().Add(48 * time.Hour),
		AmountCents: 50000,
		BookingType: model.BookingPaid,
	}
}

func signEdDSA(t *testing.T, key ed25519.PrivateKey, claims *Claims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return raw
}

func signHS256(t *testing.T, secret []byte, claims *Claims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return raw
}

func TestCreateBookingViaRelay(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	raw := signEdDSA(t, h.priv, h.claimsFor("mentee1", 0, h.createPayload()))
	rcpt, err := h.relay.Process(ctx, raw)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if rcpt.BookingID != 1 || rcpt.Nonce != 0 || rcpt.Kind != KindCreateBooking {
		t.Fatalf("receipt=%+v", rcpt)
	}
	b, err := h.manager.Get(ctx, rcpt.BookingID)
	if err != nil {
		t.Fatalf("get booking: %v", err)
	}
	if !b.CreatedByRelayer {
		t.Fatal("booking not marked as relayer-created")
	}
	if b.Mentee != "mentee1" {
		t.Fatalf("mentee=%q want signer", b.Mentee)
	}
	if got := h.ledger.Balance("mentee1"); got != 950000 {
		t.Fatalf("mentee balance=%d want 950000", got)
	}
}

func TestReplayRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	raw := signEdDSA(t, h.priv, h.claimsFor("mentee1", 0, h.createPayload()))
	if _, err := h.relay.Process(ctx, raw); err != nil {
		t.Fatalf("first process: %v", err)
	}
	if _, err := h.relay.Process(ctx, raw); err != ErrBadNonce {
		t.Fatalf("replay err=%v want ErrBadNonce", err)
	}
	// No second booking, no second charge.
	if _, err := h.manager.Get(ctx, 2); err != booking.ErrNotFound {
		t.Fatalf("replay created booking 2: %v", err)
	}
	if got := h.ledger.Balance("mentee1"); got != 950000 {
		t.Fatalf("mentee balance=%d, replay moved funds", got)
	}
}

func TestSmartAccountScheme(t *testing.T) {
	h := newHarness(t)
	h.ledger.Credit("smart1", 100000)
	raw := signHS256(t, h.secret, func() *Claims {
		c := h.claimsFor("smart1", 0, h.createPayload())
		return c
	}())
	rcpt, err := h.relay.Process(context.Background(), raw)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	b, _ := h.manager.Get(context.Background(), rcpt.BookingID)
	if b.Mentee != "smart1" {
		t.Fatalf("mentee=%q want smart1", b.Mentee)
	}
}

func TestSchemeRequiresMatchingCredentials(t *testing.T) {
	h := newHarness(t)
	// mentee1 registered an Ed25519 key, not a relay secret.
	raw := signHS256(t, h.secret, h.claimsFor("mentee1", 0, h.createPayload()))
	if _, err := h.relay.Process(context.Background(), raw); err != ErrBadSignature {
		t.Fatalf("err=%v want ErrBadSignature", err)
	}
}

func TestDeadlineCheckedFirst(t *testing.T) {
	h := newHarness(t)
	// Wrong nonce AND expired: the deadline verdict wins.
	claims := h.claimsFor("mentee1", 7, h.createPayload())
	claims.ExpiresAt = jwt.NewNumericDate(h.clock.Now().Add(-time.Minute))
	raw := signEdDSA(t, h.priv, claims)
	if _, err := h.relay.Process(context.Background(), raw); err != ErrExpired {
		t.Fatalf("err=%v want ErrExpired", err)
	}
}

func TestNonceCheckedBeforeSignature(t *testing.T) {
	h := newHarness(t)
	// Wrong nonce AND garbage signature: the nonce verdict wins.
	_, wrongKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	raw := signEdDSA(t, wrongKey, h.claimsFor("mentee1", 7, h.createPayload()))
	if _, err := h.relay.Process(context.Background(), raw); err != ErrBadNonce {
		t.Fatalf("err=%v want ErrBadNonce", err)
	}
}

func TestForgedSignatureRejected(t *testing.T) {
	h := newHarness(t)
	_, wrongKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	raw := signEdDSA(t, wrongKey, h.claimsFor("mentee1", 0, h.createPayload()))
	if _, err := h.relay.Process(context.Background(), raw); err != ErrBadSignature {
		t.Fatalf("err=%v want ErrBadSignature", err)
	}
	if _, err := h.manager.Get(context.Background(), 1); err != booking.ErrNotFound {
		t.Fatalf("forged request created booking: %v", err)
	}
}

func TestWrongAudienceRejected(t *testing.T) {
	h := newHarness(t)
	claims := h.claimsFor("mentee1", 0, h.createPayload())
	claims.Audience = jwt.ClaimStrings{"some-other-domain"}
	raw := signEdDSA(t, h.priv, claims)
	if _, err := h.relay.Process(context.Background(), raw); err != ErrBadSignature {
		t.Fatalf("err=%v want ErrBadSignature", err)
	}
}

func TestWrongTargetRejected(t *testing.T) {
	h := newHarness(t)
	claims := h.claimsFor("mentee1", 0, h.createPayload())
	claims.Target = "relay2"
	raw := signEdDSA(t, h.priv, claims)
	if _, err := h.relay.Process(context.Background(), raw); err != ErrWrongTarget {
		t.Fatalf("err=%v want ErrWrongTarget", err)
	}
	// A mis-targeted request does not burn the nonce.
	good := signEdDSA(t, h.priv, h.claimsFor("mentee1", 0, h.createPayload()))
	if _, err := h.relay.Process(context.Background(), good); err != nil {
		t.Fatalf("process after mis-target: %v", err)
	}
}

func TestUnknownSignerRejected(t *testing.T) {
	h := newHarness(t)
	raw := signEdDSA(t, h.priv, h.claimsFor("stranger", 0, h.createPayload()))
	if _, err := h.relay.Process(context.Background(), raw); !errors.Is(err, ErrUnknownSigner) {
		t.Fatalf("err=%v want ErrUnknownSigner", err)
	}
}

func TestNonceSharedAcrossKinds(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	if _, err := h.relay.Process(ctx, signEdDSA(t, h.priv, h.claimsFor("mentee1", 0, h.createPayload()))); err != nil {
		t.Fatalf("create: %v", err)
	}
	cancel := Payload{Kind: KindCancelBooking, BookingID: 1}
	if _, err := h.relay.Process(ctx, signEdDSA(t, h.priv, h.claimsFor("mentee1", 0, cancel))); err != ErrBadNonce {
		t.Fatalf("reused nonce err=%v want ErrBadNonce", err)
	}
	if _, err := h.relay.Process(ctx, signEdDSA(t, h.priv, h.claimsFor("mentee1", 1, cancel))); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	b, _ := h.manager.Get(ctx, 1)
	if b.Status != model.BookingCancelled {
		t.Fatalf("status=%s want CANCELLED", b.Status)
	}
	if got := h.ledger.Balance("mentee1"); got != 1_000_000 {
		t.Fatalf("mentee balance=%d want full restore after free cancellation", got)
	}
}

func TestDispatchFailureStillBurnsNonce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.createPayload()
	p.Mentor = "stranger"
	if _, err := h.relay.Process(ctx, signEdDSA(t, h.priv, h.claimsFor("mentee1", 0, p))); err != booking.ErrMentorUnknown {
		t.Fatalf("err=%v want ErrMentorUnknown", err)
	}
	// The next request must use the following nonce.
	if _, err := h.relay.Process(ctx, signEdDSA(t, h.priv, h.claimsFor("mentee1", 0, h.createPayload()))); err != ErrBadNonce {
		t.Fatalf("err=%v want ErrBadNonce", err)
	}
	if _, err := h.relay.Process(ctx, signEdDSA(t, h.priv, h.claimsFor("mentee1", 1, h.createPayload()))); err != nil {
		t.Fatalf("process: %v", err)
	}
}

func TestPayloadValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	cases := []struct {
		p       Payload
		wantErr error
		label   string
	}{
		{Payload{Kind: "transmute"}, ErrUnknownKind, "unknown-kind"},
		{Payload{Kind: KindCreateBooking}, ErrBadPayload, "create-missing-fields"},
		{Payload{Kind: KindCancelBooking}, ErrBadPayload, "cancel-missing-id"},
		{Payload{Kind: KindClaimRefund}, ErrBadPayload, "refund-missing-id"},
		{Payload{Kind: KindClaimMentorPayment}, ErrBadPayload, "claim-missing-id"},
	}
	nonce := uint64(0)
	for _, tc := range cases {
		_, err := h.relay.Process(ctx, signEdDSA(t, h.priv, h.claimsFor("mentee1", nonce, tc.p)))
		if err != tc.wantErr {
			t.Fatalf("%s: err=%v want %v", tc.label, err, tc.wantErr)
		}
		nonce++ // dispatch failures still consume the nonce
	}
}
