package risk

import (
	"testing"
	"time"

	"nifty-options-engine/internal/domain"
	"nifty-options-engine/internal/session"
)

func testGate(t *testing.T) *Gate {
	t.Helper()
	w, err := session.NewWindow("Asia/Kolkata", 9, 15, 15, 30)
	if err != nil {
		t.Fatalf("NewWindow failed: %v", err)
	}
	return NewGate(15000, 4, w)
}

func istTime(t *testing.T, hh, mm int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatal(err)
	}
	return time.Date(2025, 6, 2, hh, mm, 0, 0, loc)
}

func breakoutUp(price float64) domain.Signal {
	return domain.Signal{
		Kind:      domain.SignalBreakoutUp,
		Direction: domain.DirectionCall,
		Price:     price,
	}
}

func TestAuthorizeApproves(t *testing.T) {
	g := testGate(t)

	d := g.Authorize(breakoutUp(101), domain.DailyCounters{}, istTime(t, 10, 0))
	if !d.Approved {
		t.Fatalf("expected approval, got rejection %s", d.Reason)
	}
	if d.Capital != 15000 {
		t.Errorf("capital = %v, want 15000", d.Capital)
	}
}

func TestAuthorizeDailyLimit(t *testing.T) {
	g := testGate(t)

	counters := domain.DailyCounters{TradesOpened: 4}
	d := g.Authorize(domain.Signal{Kind: domain.SignalBreakoutDown, Direction: domain.DirectionPut, Price: 89},
		counters, istTime(t, 10, 0))
	if d.Approved {
		t.Fatal("expected rejection at daily limit")
	}
	if d.Reason != ReasonDailyLimitReached {
		t.Errorf("reason = %s, want DAILY_LIMIT_REACHED", d.Reason)
	}
}

func TestAuthorizeBelowLimitApproves(t *testing.T) {
	g := testGate(t)

	counters := domain.DailyCounters{TradesOpened: 3}
	d := g.Authorize(breakoutUp(101), counters, istTime(t, 10, 0))
	if !d.Approved {
		t.Fatalf("trade 4 of 4 should be approved, got %s", d.Reason)
	}
}

func TestAuthorizeOutsideWindow(t *testing.T) {
	g := testGate(t)

	cases := []struct {
		name string
		hh   int
		mm   int
	}{
		{"before open", 9, 0},
		{"after close", 15, 45},
	}
	for _, tc := range cases {
		d := g.Authorize(breakoutUp(101), domain.DailyCounters{}, istTime(t, tc.hh, tc.mm))
		if d.Approved {
			t.Errorf("%s: expected rejection outside window", tc.name)
			continue
		}
		if d.Reason != ReasonOutsideSessionWindow {
			t.Errorf("%s: reason = %s, want OUTSIDE_SESSION_WINDOW", tc.name, d.Reason)
		}
	}
}

func TestLimitCheckPrecedesWindowCheck(t *testing.T) {
	g := testGate(t)

	// Full counters outside the window: the limit rejection is reported.
	counters := domain.DailyCounters{TradesOpened: 4}
	d := g.Authorize(breakoutUp(101), counters, istTime(t, 16, 0))
	if d.Reason != ReasonDailyLimitReached {
		t.Errorf("reason = %s, want DAILY_LIMIT_REACHED", d.Reason)
	}
}
