package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// recordingResolver captures attendance callbacks and can be made to fail.
type recordingResolver struct {
	mu       sync.Mutex
	calls    []bool
	failNext error
}

func (r *recordingResolver) OnAttendanceResolved(ctx context.Context, id uint64, attended bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		return err
	}
	r.calls = append(r.calls, attended)
	return nil
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

func newTestEngine() (*Engine, *recordingResolver, *testClock) {
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	eng := NewEngine(NewMemStore(), "https://example.test", clock.Now)
	res := &recordingResolver{}
	eng.SetResolver(res)
	return eng, res, clock
}

func digestFromLink(t *testing.T, link string) string {
	t.Helper()
	i := strings.Index(link, "token=")
	if i < 0 {
		t.Fatalf("link %q has no token", link)
	}
	return link[i+len("token="):]
}

func TestGenerateLink(t *testing.T) {
	eng, _, clock := newTestEngine()
	ctx := context.Background()
	session := clock.Now().Add(2 * time.Hour)
	link, err := eng.GenerateLink(ctx, 1, session, "mentee1", "mentor1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(link, "https://example.test/v1/sessions/1/ack?token=") {
		t.Fatalf("unexpected link %q", link)
	}
	if _, err := eng.GenerateLink(ctx, 1, session, "mentee1", "mentor1"); err != ErrAlreadyGenerated {
		t.Fatalf("second generate err=%v want ErrAlreadyGenerated", err)
	}
	rec, err := eng.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !rec.ExpiresAt.Equal(session.Add(time.Hour)) {
		t.Fatalf("expiry=%v want sessionTime+1h", rec.ExpiresAt)
	}
	// A link cannot be generated once the window has already closed.
	if _, err := eng.GenerateLink(ctx, 2, clock.Now().Add(-2*time.Hour), "mentee1", "mentor1"); err != ErrWindowClosed {
		t.Fatalf("stale generate err=%v want ErrWindowClosed", err)
	}
}

func TestAcknowledge(t *testing.T) {
	eng, res, clock := newTestEngine()
	ctx := context.Background()
	session := clock.Now().Add(time.Hour)
	link, err := eng.GenerateLink(ctx, 1, session, "mentee1", "mentor1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	digest := digestFromLink(t, link)

	if err := eng.Acknowledge(ctx, "mentee1", 1, digest); err != ErrNotMentor {
		t.Fatalf("non-mentor ack err=%v want ErrNotMentor", err)
	}
	if err := eng.Acknowledge(ctx, "mentor1", 1, "deadbeef"); err != ErrBadToken {
		t.Fatalf("wrong digest err=%v want ErrBadToken", err)
	}
	if err := eng.Acknowledge(ctx, "mentor1", 1, digest); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if len(res.calls) != 1 || !res.calls[0] {
		t.Fatalf("resolver calls=%v want [true]", res.calls)
	}
	if err := eng.Acknowledge(ctx, "mentor1", 1, digest); err != ErrConsumed {
		t.Fatalf("second ack err=%v want ErrConsumed", err)
	}
	rec, _ := eng.Get(ctx, 1)
	if !rec.Acknowledged || !rec.Consumed {
		t.Fatal("flags not latched after acknowledge")
	}
}

func TestAcknowledgeExpiry(t *testing.T) {
	eng, res, clock := newTestEngine()
	ctx := context.Background()
	session := clock.Now().Add(time.Hour)
	link, _ := eng.GenerateLink(ctx, 1, session, "mentee1", "mentor1")
	digest := digestFromLink(t, link)
	clock.Warp(2*time.Hour + time.Second) // past sessionTime + 1h
	if err := eng.Acknowledge(ctx, "mentor1", 1, digest); err != ErrLinkExpired {
		t.Fatalf("expired ack err=%v want ErrLinkExpired", err)
	}
	if len(res.calls) != 0 {
		t.Fatal("resolver invoked on failed acknowledge")
	}
}

func TestRecordNoShow(t *testing.T) {
	eng, res, clock := newTestEngine()
	ctx := context.Background()
	session := clock.Now().Add(time.Hour)
	if _, err := eng.GenerateLink(ctx, 1, session, "mentee1", "mentor1"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := eng.RecordNoShow(ctx, 1); err != ErrNotExpired {
		t.Fatalf("early no-show err=%v want ErrNotExpired", err)
	}
	clock.Warp(2*time.Hour + time.Second)
	if err := eng.RecordNoShow(ctx, 1); err != nil {
		t.Fatalf("no-show: %v", err)
	}
	if len(res.calls) != 1 || res.calls[0] {
		t.Fatalf("resolver calls=%v want [false]", res.calls)
	}
	if err := eng.RecordNoShow(ctx, 1); err != ErrConsumed {
		t.Fatalf("second no-show err=%v want ErrConsumed", err)
	}
}

func TestNoShowBlockedAfterAcknowledge(t *testing.T) {
	eng, _, clock := newTestEngine()
	ctx := context.Background()
	session := clock.Now().Add(time.Hour)
	link, _ := eng.GenerateLink(ctx, 1, session, "mentee1", "mentor1")
	if err := eng.Acknowledge(ctx, "mentor1", 1, digestFromLink(t, link)); err != nil {
		t.Fatalf("ack: %v", err)
	}
	clock.Warp(3 * time.Hour)
	if err := eng.RecordNoShow(ctx, 1); err != ErrConsumed {
		t.Fatalf("no-show after ack err=%v want ErrConsumed", err)
	}
}

func TestCallbackFailureLeavesNoPartialState(t *testing.T) {
	eng, res, clock := newTestEngine()
	ctx := context.Background()
	session := clock.Now().Add(time.Hour)
	link, _ := eng.GenerateLink(ctx, 1, session, "mentee1", "mentor1")
	digest := digestFromLink(t, link)
	res.failNext = errors.New("manager unavailable")
	if err := eng.Acknowledge(ctx, "mentor1", 1, digest); err == nil {
		t.Fatal("acknowledge succeeded despite callback failure")
	}
	rec, _ := eng.Get(ctx, 1)
	if rec.Acknowledged || rec.Consumed {
		t.Fatal("flags left set after callback failure")
	}
	// The operation can be retried once the callback target recovers.
	if err := eng.Acknowledge(ctx, "mentor1", 1, digest); err != nil {
		t.Fatalf("retry ack: %v", err)
	}
}

func TestEmergencyResolve(t *testing.T) {
	eng, res, clock := newTestEngine()
	ctx := context.Background()
	session := clock.Now().Add(time.Hour)
	if _, err := eng.GenerateLink(ctx, 1, session, "mentee1", "mentor1"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := eng.EmergencyResolve(ctx, "impostor", 1, true); err != ErrMentorMismatch {
		t.Fatalf("mismatched mentor err=%v want ErrMentorMismatch", err)
	}
	clock.Warp(5 * time.Hour) // timing is bypassed
	if err := eng.EmergencyResolve(ctx, "mentor1", 1, true); err != nil {
		t.Fatalf("emergency resolve: %v", err)
	}
	if len(res.calls) != 1 || !res.calls[0] {
		t.Fatalf("resolver calls=%v want [true]", res.calls)
	}
	rec, _ := eng.Get(ctx, 1)
	if !rec.Acknowledged || !rec.Consumed {
		t.Fatal("flags not set by emergency resolve")
	}
}
