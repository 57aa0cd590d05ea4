package escrow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/mentorship-escrow/internal/model"
	"github.com/iliyamo/mentorship-escrow/internal/token"
)

// testClock is a settable clock for time-warp scenarios.
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

func newTestVault(t *testing.T) (*Vault, *token.MemLedger, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	ledger := token.NewMemLedger()
	ledger.Credit("mentee1", 1_000_000)
	ledger.Credit("platform", 0)
	v := NewVault(NewMemStore(), ledger, "platform", clock.Now)
	if err := v.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return v, ledger, clock
}

func checkSumInvariant(t *testing.T, v *Vault, id uint64) {
	t.Helper()
	rec, err := v.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get escrow %d: %v", id, err)
	}
	if !rec.SharesWithinAmount() {
		t.Fatalf("escrow %d violates sum invariant: %d+%d+%d > %d",
			id, rec.MentorCents, rec.PlatformCents, rec.MenteeRefundCents, rec.AmountCents)
	}
}

func TestCreateValidation(t *testing.T) {
	v, _, clock := newTestVault(t)
	ctx := context.Background()
	session := clock.Now().Add(48 * time.Hour)
	cases := []struct {
		mentee, mentor string
		amount         uint64
		session        time.Time
		wantErr        error
		label          string
	}{
		{"", "mentor1", 1000, session, ErrInvalidInput, "zero-mentee"},
		{"mentee1", "", 1000, session, ErrInvalidInput, "zero-mentor"},
		{"mentee1", "mentor1", 0, session, ErrInvalidInput, "zero-amount"},
		{"mentee1", "mentor1", 1000, clock.Now().Add(-time.Minute), ErrInvalidInput, "past-session"},
		{"mentee1", "mentor1", 1000, clock.Now().Add(31 * 24 * time.Hour), ErrInvalidInput, "beyond-horizon"},
	}
	for _, tc := range cases {
		err := v.Create(ctx, 1, tc.mentee, tc.mentor, tc.amount, model.BookingPaid, tc.session)
		if err != tc.wantErr {
			t.Fatalf("%s: Create err=%v want %v", tc.label, err, tc.wantErr)
		}
	}
	if err := v.Create(ctx, 1, "mentee1", "mentor1", 1000, model.BookingPaid, session); err != nil {
		t.Fatalf("valid create: %v", err)
	}
	if err := v.Create(ctx, 1, "mentee1", "mentor1", 1000, model.BookingPaid, session); err != ErrExists {
		t.Fatalf("duplicate create err=%v want ErrExists", err)
	}
	checkSumInvariant(t, v, 1)
}

func TestPaidReleaseAndPlatformFee(t *testing.T) {
	v, ledger, clock := newTestVault(t)
	ctx := context.Background()
	admin := v.Admin()
	session := clock.Now().Add(48 * time.Hour)
	if err := v.Create(ctx, 1, "mentee1", "mentor1", 100000, model.BookingPaid, session); err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := v.Custodied(); got != 100000 {
		t.Fatalf("custodied=%d want 100000", got)
	}
	if err := v.ReleaseToMentor(ctx, 1); err != ErrNotClaimable {
		t.Fatalf("release before lock err=%v want ErrNotClaimable", err)
	}
	clock.Warp(49*time.Hour + time.Second) // past sessionTime + 1h
	if err := v.ReleaseToMentor(ctx, 1); err != nil {
		t.Fatalf("release: %v", err)
	}
	if got := ledger.Balance("mentor1"); got != 95000 {
		t.Fatalf("mentor balance=%d want 95000", got)
	}
	before := ledger.Balance("mentor1")
	if err := v.ReleaseToMentor(ctx, 1); err != ErrAlreadyClaimed {
		t.Fatalf("second release err=%v want ErrAlreadyClaimed", err)
	}
	if ledger.Balance("mentor1") != before {
		t.Fatal("second release moved funds")
	}
	if err := admin.ClaimPlatformFee(ctx, 1); err != nil {
		t.Fatalf("platform fee: %v", err)
	}
	if got := ledger.Balance("platform"); got != 5000 {
		t.Fatalf("platform balance=%d want 5000", got)
	}
	if err := admin.ClaimPlatformFee(ctx, 1); err != ErrFeeClaimed {
		t.Fatalf("second fee claim err=%v want ErrFeeClaimed", err)
	}
	if got := v.Custodied(); got != 0 {
		t.Fatalf("custodied after settlement=%d want 0", got)
	}
}

func TestPlatformFeeRequiresSettlement(t *testing.T) {
	v, _, clock := newTestVault(t)
	ctx := context.Background()
	if err := v.Create(ctx, 1, "mentee1", "mentor1", 100000, model.BookingPaid, clock.Now().Add(time.Hour)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := v.Admin().ClaimPlatformFee(ctx, 1); err != ErrNotClaimed {
		t.Fatalf("fee before claim err=%v want ErrNotClaimed", err)
	}
}

func TestCommitmentFeeRefundFlow(t *testing.T) {
	v, ledger, clock := newTestVault(t)
	ctx := context.Background()
	session := clock.Now().Add(24 * time.Hour)
	if err := v.Create(ctx, 7, "mentee1", "mentor1", 50000, model.BookingCommitmentFee, session); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := v.RefundToMentee(ctx, 7); err != ErrNothingToClaim {
		t.Fatalf("refund before re-pricing err=%v want ErrNothingToClaim", err)
	}
	// Attendance confirmed: the full amount becomes refundable.
	if err := v.UpdateMenteeRefund(ctx, 7, 50000); err != nil {
		t.Fatalf("update refund: %v", err)
	}
	checkSumInvariant(t, v, 7)
	if err := v.RefundToMentee(ctx, 7); err != nil {
		t.Fatalf("refund: %v", err)
	}
	if got := ledger.Balance("mentee1"); got != 1_000_000 {
		t.Fatalf("mentee balance=%d want full restore", got)
	}
	if err := v.RefundToMentee(ctx, 7); err == nil {
		t.Fatal("second refund succeeded")
	}
	// Mentor and platform receive nothing.
	if got := ledger.Balance("mentor1"); got != 0 {
		t.Fatalf("mentor balance=%d want 0", got)
	}
}

func TestRefundRequiresCommitmentType(t *testing.T) {
	v, _, clock := newTestVault(t)
	ctx := context.Background()
	if err := v.Create(ctx, 3, "mentee1", "mentor1", 1000, model.BookingPaid, clock.Now().Add(time.Hour)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := v.RefundToMentee(ctx, 3); err != ErrWrongType {
		t.Fatalf("refund on PAID err=%v want ErrWrongType", err)
	}
}

func TestShareUpdateInvariant(t *testing.T) {
	v, _, clock := newTestVault(t)
	ctx := context.Background()
	if err := v.Create(ctx, 4, "mentee1", "mentor1", 50000, model.BookingCommitmentFee, clock.Now().Add(time.Hour)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := v.UpdateMenteeRefund(ctx, 4, 50001); err != ErrInvariant {
		t.Fatalf("oversized refund err=%v want ErrInvariant", err)
	}
	if err := v.UpdateMentorAmount(ctx, 4, 45000); err != nil {
		t.Fatalf("update mentor: %v", err)
	}
	rec, _ := v.Get(ctx, 4)
	if rec.MentorCents != 45000 || rec.PlatformCents != 5000 || rec.MenteeRefundCents != 0 {
		t.Fatalf("shares=%d/%d/%d want 45000/5000/0", rec.MentorCents, rec.PlatformCents, rec.MenteeRefundCents)
	}
	checkSumInvariant(t, v, 4)
	if err := v.UpdateMenteeRefund(ctx, 4, 6000); err != ErrInvariant {
		t.Fatalf("refund past mentor share err=%v want ErrInvariant", err)
	}
	// Updates are rejected on PAID escrows and after the claim latch.
	if err := v.Create(ctx, 5, "mentee1", "mentor1", 1000, model.BookingPaid, clock.Now().Add(time.Hour)); err != nil {
		t.Fatalf("create paid: %v", err)
	}
	if err := v.UpdateMentorAmount(ctx, 5, 1); err != ErrWrongType {
		t.Fatalf("update on PAID err=%v want ErrWrongType", err)
	}
}

func TestCancellationDrains(t *testing.T) {
	v, ledger, clock := newTestVault(t)
	ctx := context.Background()
	if err := v.Create(ctx, 9, "mentee1", "mentor1", 100000, model.BookingCommitmentFee, clock.Now().Add(12*time.Hour)); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Late cancellation: 80/15/5.
	if err := v.CancelBookingRefund(ctx, 9, "mentee1", 80000); err != nil {
		t.Fatalf("cancel refund: %v", err)
	}
	if err := v.DistributeCancellationPenalty(ctx, 9, 15000, 5000); err != nil {
		t.Fatalf("penalty: %v", err)
	}
	if got := ledger.Balance("mentee1"); got != 980000 {
		t.Fatalf("mentee balance=%d want 980000", got)
	}
	if got := ledger.Balance("mentor1"); got != 15000 {
		t.Fatalf("mentor balance=%d want 15000", got)
	}
	if got := ledger.Balance("platform"); got != 5000 {
		t.Fatalf("platform balance=%d want 5000", got)
	}
	if got := v.Custodied(); got != 0 {
		t.Fatalf("custodied=%d want 0", got)
	}
	// Fully drained record admits no further debits.
	if err := v.CancelBookingRefund(ctx, 9, "mentee1", 1); err != ErrInactive {
		t.Fatalf("drain on empty pool err=%v want ErrInactive", err)
	}
}

func TestCancellationOverspendRejected(t *testing.T) {
	v, ledger, clock := newTestVault(t)
	ctx := context.Background()
	if err := v.Create(ctx, 2, "mentee1", "mentor1", 1000, model.BookingCommitmentFee, clock.Now().Add(time.Hour)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := v.CancelBookingRefund(ctx, 2, "mentee1", 1001); err != ErrInsufficientPool {
		t.Fatalf("overspend err=%v want ErrInsufficientPool", err)
	}
	if err := v.DistributeCancellationPenalty(ctx, 2, 900, 200); err != ErrInsufficientPool {
		t.Fatalf("penalty overspend err=%v want ErrInsufficientPool", err)
	}
	if got := ledger.Custody(); got != 1000 {
		t.Fatalf("custody=%d, rejected drains moved funds", got)
	}
}

func TestEmergencyPath(t *testing.T) {
	v, ledger, clock := newTestVault(t)
	ctx := context.Background()
	admin := v.Admin()
	if err := v.Create(ctx, 6, "mentee1", "mentor1", 40000, model.BookingCommitmentFee, clock.Now().Add(time.Hour)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := admin.EmergencyRefund(ctx, 6, 10000); err != ErrEmergencyOnly {
		t.Fatalf("refund outside emergency err=%v want ErrEmergencyOnly", err)
	}
	if err := admin.SetPlatformAccount("platform2"); err != ErrEmergencyOnly {
		t.Fatalf("reconfigure outside emergency err=%v want ErrEmergencyOnly", err)
	}
	admin.SetEmergencyMode(true)
	if err := admin.SetPlatformAccount("platform2"); err != nil {
		t.Fatalf("reconfigure: %v", err)
	}
	if err := admin.EmergencyRefund(ctx, 6, 50000); err != ErrInsufficientPool {
		t.Fatalf("oversized emergency refund err=%v want ErrInsufficientPool", err)
	}
	if err := admin.EmergencyRefund(ctx, 6, 10000); err != nil {
		t.Fatalf("emergency refund: %v", err)
	}
	if got := ledger.Balance("mentee1"); got != 970000 {
		t.Fatalf("mentee balance=%d want 970000", got)
	}
	rec, _ := v.Get(ctx, 6)
	if rec.AmountCents != 30000 || !rec.Active {
		t.Fatalf("pool=%d active=%v want 30000/true", rec.AmountCents, rec.Active)
	}
}
