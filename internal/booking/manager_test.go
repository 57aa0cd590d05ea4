package booking

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/mentorship-escrow/internal/directory"
	"github.com/iliyamo/mentorship-escrow/internal/escrow"
	"github.com/iliyamo/mentorship-escrow/internal/model"
	"github.com/iliyamo/mentorship-escrow/internal/session"
	"github.com/iliyamo/mentorship-escrow/internal/token"
)

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

// harness wires a manager to in-memory collaborators the same way cmd/server
// wires the real ones.
type harness struct {
	manager *Manager
	engine  *session.Engine
	vault   *escrow.Vault
	ledger  *token.MemLedger
	clock   *testClock
	events  []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{clock: &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}}
	h.ledger = token.NewMemLedger()
	h.ledger.Credit("mentee1", 1_000_000)
	h.ledger.Credit("platform", 0)
	h.vault = escrow.NewVault(escrow.NewMemStore(), h.ledger, "platform", h.clock.Now)
	if err := h.vault.Init(context.Background()); err != nil {
		t.Fatalf("vault init: %v", err)
	}
	h.engine = session.NewEngine(session.NewMemStore(), "https://example.test", h.clock.Now)
	dir := directory.Static{"mentor1": "Dana", "mentor2": "Sam"}
	h.manager = NewManager(NewMemStore(), h.vault, h.engine, dir, 0, h.clock.Now)
	h.manager.SetEventHook(func(ctx context.Context, kind string, b *model.Booking) {
		h.events = append(h.events, kind)
	})
	return h
}

func (h *harness) mustCreate(t *testing.T, mentee, mentor string, ahead time.Duration, amount uint64, typ model.BookingType) (*model.Booking, string) {
	t.Helper()
	b, link, err := h.manager.CreateBooking(context.Background(), mentee, mentor, h.clock.Now().Add(ahead), amount, typ, false)
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	return b, link
}

func digestFromLink(t *testing.T, link string) string {
	t.Helper()
	i := strings.Index(link, "token=")
	if i < 0 {
		t.Fatalf("link %q has no token", link)
	}
	return link[i+len("token="):]
}

func TestCreateBookingValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	cases := []struct {
		mentee, mentor string
		ahead          time.Duration
		amount         uint64
		typ            model.BookingType
		wantErr        error
		label          string
	}{
		{"", "mentor1", time.Hour, 1000, model.BookingPaid, ErrInvalidInput, "zero-mentee"},
		{"mentee1", "", time.Hour, 1000, model.BookingPaid, ErrInvalidInput, "zero-mentor"},
		{"mentee1", "mentee1", time.Hour, 1000, model.BookingPaid, ErrInvalidInput, "self-booking"},
		{"mentee1", "mentor1", time.Hour, 0, model.BookingPaid, ErrInvalidInput, "zero-amount"},
		{"mentee1", "mentor1", time.Hour, 1000, model.BookingType("WEIRD"), ErrInvalidInput, "bad-type"},
		{"mentee1", "mentor1", -time.Hour, 1000, model.BookingPaid, ErrInvalidInput, "past-session"},
		{"mentee1", "mentor1", 15 * 24 * time.Hour, 1000, model.BookingPaid, ErrInvalidInput, "beyond-horizon"},
		{"mentee1", "stranger", time.Hour, 1000, model.BookingPaid, ErrMentorUnknown, "unlisted-mentor"},
	}
	for _, tc := range cases {
		_, _, err := h.manager.CreateBooking(ctx, tc.mentee, tc.mentor, h.clock.Now().Add(tc.ahead), tc.amount, tc.typ, false)
		if err != tc.wantErr {
			t.Fatalf("%s: err=%v want %v", tc.label, err, tc.wantErr)
		}
	}
	if got := h.ledger.Balance("mentee1"); got != 1_000_000 {
		t.Fatalf("mentee balance=%d, rejected creates moved funds", got)
	}
	b, link := h.mustCreate(t, "mentee1", "mentor1", 48*time.Hour, 10000, model.BookingPaid)
	if b.ID != 1 || b.Status != model.BookingConfirmed {
		t.Fatalf("booking id=%d status=%s want 1/CONFIRMED", b.ID, b.Status)
	}
	if link != "" {
		t.Fatalf("paid booking returned link %q", link)
	}
	if got := h.vault.Custodied(); got != 10000 {
		t.Fatalf("custodied=%d want 10000", got)
	}
}

func TestCreateBookingDirectoryOutage(t *testing.T) {
	h := newHarness(t)
	outage := errors.New("directory unreachable")
	h.manager.directory = failingDirectory{err: outage}
	_, _, err := h.manager.CreateBooking(context.Background(), "mentee1", "mentor1", h.clock.Now().Add(time.Hour), 1000, model.BookingPaid, false)
	if !errors.Is(err, outage) {
		t.Fatalf("err=%v want directory outage", err)
	}
	if _, err := h.manager.Get(context.Background(), 1); err != ErrNotFound {
		t.Fatalf("booking persisted despite outage: %v", err)
	}
}

type failingDirectory struct{ err error }

func (f failingDirectory) Exists(ctx context.Context, address string) (string, bool, error) {
	return "", false, f.err
}

// Paid booking settles 95/5 once the session and the release grace have
// passed.
func TestPaidBookingSettlement(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b, _ := h.mustCreate(t, "mentee1", "mentor1", 48*time.Hour, 100000, model.BookingPaid)

	if err := h.manager.ClaimMentorPayment(ctx, "mentee1", b.ID); err != ErrNotMentor {
		t.Fatalf("claim by mentee err=%v want ErrNotMentor", err)
	}
	if err := h.manager.ClaimMentorPayment(ctx, "mentor1", b.ID); err != escrow.ErrNotClaimable {
		t.Fatalf("early claim err=%v want ErrNotClaimable", err)
	}
	h.clock.Warp(49*time.Hour + time.Second)
	if err := h.manager.ClaimMentorPayment(ctx, "mentor1", b.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if got := h.ledger.Balance("mentor1"); got != 95000 {
		t.Fatalf("mentor balance=%d want 95000", got)
	}
	got, err := h.manager.Get(ctx, b.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != model.BookingCompleted {
		t.Fatalf("status=%s want COMPLETED", got.Status)
	}
	if err := h.manager.ClaimMentorPayment(ctx, "mentor1", b.ID); err != escrow.ErrAlreadyClaimed {
		t.Fatalf("second claim err=%v want ErrAlreadyClaimed", err)
	}
	if err := h.manager.Admin().ClaimPlatformFee(ctx, b.ID); err != nil {
		t.Fatalf("platform fee: %v", err)
	}
	if got := h.ledger.Balance("platform"); got != 5000 {
		t.Fatalf("platform balance=%d want 5000", got)
	}
	if last := h.events[len(h.events)-1]; last != EventPlatformFeeClaimed {
		t.Fatalf("last event=%s want %s", last, EventPlatformFeeClaimed)
	}
	if got := h.vault.Custodied(); got != 0 {
		t.Fatalf("custodied after settlement=%d want 0", got)
	}
}

// Commitment-fee booking where the mentor acknowledges attendance: the
// mentee is made whole and the mentor share stays zero.
func TestCommitmentFeeAttended(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b, link := h.mustCreate(t, "mentee1", "mentor1", 2*time.Hour, 50000, model.BookingCommitmentFee)
	if link == "" {
		t.Fatal("commitment booking returned no acknowledgment link")
	}
	if err := h.manager.ClaimMenteeRefund(ctx, "mentee1", b.ID); err != ErrAttendanceNotConfirmed {
		t.Fatalf("refund before attendance err=%v want ErrAttendanceNotConfirmed", err)
	}
	if err := h.engine.Acknowledge(ctx, "mentor1", b.ID, digestFromLink(t, link)); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	got, _ := h.manager.Get(ctx, b.ID)
	if !got.AttendanceSet || !got.Attended {
		t.Fatalf("attendance flags=%v/%v want set+attended", got.AttendanceSet, got.Attended)
	}
	if err := h.manager.ClaimMenteeRefund(ctx, "mentor1", b.ID); err != ErrNotMentee {
		t.Fatalf("refund by mentor err=%v want ErrNotMentee", err)
	}
	if err := h.manager.ClaimMenteeRefund(ctx, "mentee1", b.ID); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if got := h.ledger.Balance("mentee1"); got != 1_000_000 {
		t.Fatalf("mentee balance=%d want full restore", got)
	}
	got, _ = h.manager.Get(ctx, b.ID)
	if got.Status != model.BookingCompleted {
		t.Fatalf("status=%s want COMPLETED", got.Status)
	}
	// The full refund drained the pool, so nothing is left for the mentor.
	h.clock.Warp(4 * time.Hour)
	if err := h.manager.ClaimMentorPayment(ctx, "mentor1", b.ID); err != escrow.ErrInactive {
		t.Fatalf("mentor claim err=%v want ErrInactive", err)
	}
}

// Commitment-fee booking where the link expires unused: the booking flips to
// NO_SHOW and the pool re-prices to 90% mentor, 10% platform.
func TestCommitmentFeeNoShow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b, _ := h.mustCreate(t, "mentee1", "mentor1", 2*time.Hour, 100000, model.BookingCommitmentFee)

	h.clock.Warp(3*time.Hour + time.Second) // past sessionTime + 1h ack window
	if err := h.engine.RecordNoShow(ctx, b.ID); err != nil {
		t.Fatalf("record no-show: %v", err)
	}
	got, _ := h.manager.Get(ctx, b.ID)
	if got.Status != model.BookingNoShow {
		t.Fatalf("status=%s want NO_SHOW", got.Status)
	}
	if got.AttendanceSet == false || got.Attended {
		t.Fatalf("attendance flags=%v/%v want set+absent", got.AttendanceSet, got.Attended)
	}
	if err := h.manager.ClaimMenteeRefund(ctx, "mentee1", b.ID); err != ErrAttendanceNotConfirmed {
		t.Fatalf("refund after no-show err=%v want ErrAttendanceNotConfirmed", err)
	}
	if err := h.manager.ClaimMentorPayment(ctx, "mentor1", b.ID); err != nil {
		t.Fatalf("mentor claim: %v", err)
	}
	if got := h.ledger.Balance("mentor1"); got != 90000 {
		t.Fatalf("mentor balance=%d want 90000", got)
	}
	if err := h.manager.Admin().ClaimPlatformFee(ctx, b.ID); err != nil {
		t.Fatalf("platform fee: %v", err)
	}
	if got := h.ledger.Balance("platform"); got != 10000 {
		t.Fatalf("platform balance=%d want 10000", got)
	}
	if got := h.vault.Custodied(); got != 0 {
		t.Fatalf("custodied=%d want 0", got)
	}
}

// Cancellation more than 24h before the session refunds the mentee in full.
func TestFreeCancellation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b, _ := h.mustCreate(t, "mentee1", "mentor1", 48*time.Hour, 60000, model.BookingPaid)

	if err := h.manager.CancelBooking(ctx, "mentor1", b.ID); err != ErrNotMentee {
		t.Fatalf("cancel by mentor err=%v want ErrNotMentee", err)
	}
	if err := h.manager.CancelBooking(ctx, "mentee1", b.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := h.ledger.Balance("mentee1"); got != 1_000_000 {
		t.Fatalf("mentee balance=%d want full restore", got)
	}
	if got := h.ledger.Balance("mentor1"); got != 0 {
		t.Fatalf("mentor balance=%d want 0", got)
	}
	got, _ := h.manager.Get(ctx, b.ID)
	if got.Status != model.BookingCancelled {
		t.Fatalf("status=%s want CANCELLED", got.Status)
	}
	if err := h.manager.CancelBooking(ctx, "mentee1", b.ID); err != ErrBadStatus {
		t.Fatalf("second cancel err=%v want ErrBadStatus", err)
	}
	if err := h.manager.ClaimMentorPayment(ctx, "mentor1", b.ID); err != ErrBadStatus {
		t.Fatalf("claim on cancelled err=%v want ErrBadStatus", err)
	}
}

// Cancellation inside the 24h window splits 80/15/5.
func TestLateCancellation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b, _ := h.mustCreate(t, "mentee1", "mentor1", 12*time.Hour, 100000, model.BookingPaid)

	if err := h.manager.CancelBooking(ctx, "mentee1", b.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := h.ledger.Balance("mentee1"); got != 980000 {
		t.Fatalf("mentee balance=%d want 980000", got)
	}
	if got := h.ledger.Balance("mentor1"); got != 15000 {
		t.Fatalf("mentor balance=%d want 15000", got)
	}
	if got := h.ledger.Balance("platform"); got != 5000 {
		t.Fatalf("platform balance=%d want 5000", got)
	}
	if got := h.vault.Custodied(); got != 0 {
		t.Fatalf("custodied=%d want 0", got)
	}
}

func TestCancellationAfterStartRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b, _ := h.mustCreate(t, "mentee1", "mentor1", time.Hour, 1000, model.BookingPaid)
	h.clock.Warp(time.Hour)
	if err := h.manager.CancelBooking(ctx, "mentee1", b.ID); err != ErrTooLate {
		t.Fatalf("cancel at session start err=%v want ErrTooLate", err)
	}
}

func TestTransitionGraph(t *testing.T) {
	cases := []struct {
		from, to model.BookingStatus
		ok       bool
	}{
		{model.BookingConfirmed, model.BookingInProgress, true},
		{model.BookingConfirmed, model.BookingNoShow, true},
		{model.BookingConfirmed, model.BookingCancelled, true},
		{model.BookingConfirmed, model.BookingCompleted, true},
		{model.BookingInProgress, model.BookingNoShow, true},
		{model.BookingInProgress, model.BookingCompleted, true},
		{model.BookingInProgress, model.BookingCancelled, false},
		{model.BookingNoShow, model.BookingCompleted, true},
		{model.BookingNoShow, model.BookingCancelled, false},
		{model.BookingCompleted, model.BookingConfirmed, false},
		{model.BookingCancelled, model.BookingConfirmed, false},
		{model.BookingCancelled, model.BookingCompleted, false},
	}
	for _, tc := range cases {
		if got := canTransition(tc.from, tc.to); got != tc.ok {
			t.Errorf("canTransition(%s, %s)=%v want %v", tc.from, tc.to, got, tc.ok)
		}
	}
}

func TestAdminFacade(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.manager.Admin()
	b, _ := h.mustCreate(t, "mentee1", "mentor1", 2*time.Hour, 40000, model.BookingCommitmentFee)

	if err := admin.MarkInProgress(ctx, b.ID); err != nil {
		t.Fatalf("mark in progress: %v", err)
	}
	if err := admin.MarkInProgress(ctx, b.ID); err != ErrBadStatus {
		t.Fatalf("second mark err=%v want ErrBadStatus", err)
	}
	// Direct attendance confirmation bypasses the acknowledgment engine.
	if err := admin.ConfirmAttendance(ctx, b.ID, true); err != nil {
		t.Fatalf("confirm attendance: %v", err)
	}
	if err := h.manager.ClaimMenteeRefund(ctx, "mentee1", b.ID); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if got := h.ledger.Balance("mentee1"); got != 1_000_000 {
		t.Fatalf("mentee balance=%d want full restore", got)
	}
	if err := admin.EmergencyUpdateStatus(ctx, b.ID, model.BookingStatus("BOGUS")); err != ErrInvalidInput {
		t.Fatalf("bogus status err=%v want ErrInvalidInput", err)
	}
	if err := admin.EmergencyUpdateStatus(ctx, b.ID, model.BookingCancelled); err != nil {
		t.Fatalf("emergency status: %v", err)
	}
	got, _ := h.manager.Get(ctx, b.ID)
	if got.Status != model.BookingCancelled {
		t.Fatalf("status=%s want CANCELLED", got.Status)
	}
}

func TestAttendanceRejectsPaidType(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b, _ := h.mustCreate(t, "mentee1", "mentor1", time.Hour, 1000, model.BookingPaid)
	if err := h.manager.Admin().ConfirmAttendance(ctx, b.ID, true); err != ErrWrongType {
		t.Fatalf("attendance on PAID err=%v want ErrWrongType", err)
	}
}

func TestEventHook(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	b, _ := h.mustCreate(t, "mentee1", "mentor1", 2*time.Hour, 10000, model.BookingPaid)
	h.clock.Warp(3*time.Hour + time.Second)
	if err := h.manager.ClaimMentorPayment(ctx, "mentor1", b.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	want := []string{EventBookingCreated, EventEscrowReleased}
	if len(h.events) != len(want) {
		t.Fatalf("events=%v want %v", h.events, want)
	}
	for i := range want {
		if h.events[i] != want[i] {
			t.Fatalf("events=%v want %v", h.events, want)
		}
	}
}

func TestListByAddress(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.mustCreate(t, "mentee1", "mentor1", time.Hour, 1000, model.BookingPaid)
	h.mustCreate(t, "mentee1", "mentor2", 2*time.Hour, 2000, model.BookingPaid)
	got, err := h.manager.ListByAddress(ctx, "mentor2")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Mentor != "mentor2" {
		t.Fatalf("list=%v want single mentor2 booking", got)
	}
	both, _ := h.manager.ListByAddress(ctx, "mentee1")
	if len(both) != 2 {
		t.Fatalf("mentee list has %d entries want 2", len(both))
	}
}
