package breakout

import (
	"testing"
	"time"

	"nifty-options-engine/internal/domain"
)

var base = time.Date(2025, 6, 2, 9, 15, 0, 0, time.UTC)

// run feeds prices in order through a fresh session range and returns every
// signal the detector produced.
func run(d *Detector, rng *domain.DayRange, levels []domain.ExitLevel, prices ...float64) []domain.Signal {
	var out []domain.Signal
	for i, p := range prices {
		tick := domain.Tick{Timestamp: base.Add(time.Duration(i) * time.Second), Price: p}
		rng.Observe(p)
		out = append(out, d.Evaluate(tick, *rng, levels))
	}
	return out
}

func kinds(signals []domain.Signal) []domain.SignalKind {
	out := make([]domain.SignalKind, len(signals))
	for i, s := range signals {
		out[i] = s.Kind
	}
	return out
}

func TestGapUpAtOpen(t *testing.T) {
	d := NewDetector(0.002)
	rng := domain.NewDayRange(100, 90)

	got := run(d, rng, nil, 101, 102, 103)
	if got[0].Kind != domain.SignalGapUp {
		t.Fatalf("first tick: got %s, want GAP_UP", got[0].Kind)
	}
	if got[0].Direction != domain.DirectionCall {
		t.Errorf("gap up direction = %s, want CE", got[0].Direction)
	}
	for i, s := range got[1:] {
		if s.Kind != domain.SignalNone {
			t.Errorf("tick %d: got %s, want NONE after gap consumed the slot", i+1, s.Kind)
		}
	}
}

func TestGapDownAtOpen(t *testing.T) {
	d := NewDetector(0.002)
	rng := domain.NewDayRange(100, 90)

	got := run(d, rng, nil, 89)
	if got[0].Kind != domain.SignalGapDown {
		t.Fatalf("got %s, want GAP_DOWN", got[0].Kind)
	}
	if got[0].Direction != domain.DirectionPut {
		t.Errorf("gap down direction = %s, want PE", got[0].Direction)
	}
}

func TestNoGapInsideRange(t *testing.T) {
	d := NewDetector(0.002)
	rng := domain.NewDayRange(100, 90)

	got := run(d, rng, nil, 95)
	if got[0].Kind != domain.SignalNone {
		t.Fatalf("open inside range should not signal, got %s", got[0].Kind)
	}
}

func TestBreakoutUpEdgeTriggered(t *testing.T) {
	d := NewDetector(0.002)
	rng := domain.NewDayRange(100, 90)

	got := run(d, rng, nil, 95, 98, 101, 102, 105)
	want := []domain.SignalKind{
		domain.SignalNone, domain.SignalNone, domain.SignalBreakoutUp,
		domain.SignalNone, domain.SignalNone,
	}
	for i := range want {
		if got[i].Kind != want[i] {
			t.Errorf("tick %d: got %s, want %s", i, got[i].Kind, want[i])
		}
	}
	if got[2].Price != 101 {
		t.Errorf("breakout signal price = %v, want 101", got[2].Price)
	}
}

func TestBreakoutDownEdgeTriggered(t *testing.T) {
	d := NewDetector(0.002)
	rng := domain.NewDayRange(100, 90)

	got := run(d, rng, nil, 95, 91, 89.5, 88)
	if got[2].Kind != domain.SignalBreakoutDown {
		t.Fatalf("tick 2: got %s, want BREAKOUT_DOWN", got[2].Kind)
	}
	if got[3].Kind != domain.SignalNone {
		t.Errorf("tick 3: got %s, want NONE while price stays below", got[3].Kind)
	}
}

func TestBothDirectionsFireOnceEach(t *testing.T) {
	d := NewDetector(0.002)
	rng := domain.NewDayRange(100, 90)

	// Up crossing, retreat, down crossing, retreat, both re-crossed.
	got := kinds(run(d, rng, nil, 95, 101, 96, 89, 95, 102, 88))
	var ups, downs int
	for _, k := range got {
		switch k {
		case domain.SignalBreakoutUp:
			ups++
		case domain.SignalBreakoutDown:
			downs++
		}
	}
	if ups != 1 || downs != 1 {
		t.Errorf("original signals per direction: ups=%d downs=%d, want 1 each (got %v)", ups, downs, got)
	}
}

func TestReentryAtExitedLevel(t *testing.T) {
	d := NewDetector(0.002)
	rng := domain.NewDayRange(100, 70)

	// Original breakout at 101 consumes the up direction.
	run(d, rng, nil, 95, 101)

	levels := []domain.ExitLevel{{
		Direction:  domain.DirectionCall,
		EntryPrice: 101,
		ExitPrice:  80.8,
		ExitReason: domain.ExitReasonStopLoss,
		ExitTime:   base,
	}}

	// Price falls to the stop region and climbs back to the entry level while
	// still above the previous high: reentry permitted.
	got := run(d, rng, levels, 80.8, 95, 101)
	if got[2].Kind != domain.SignalBreakoutUp || !got[2].Reentry {
		t.Fatalf("got %s reentry=%v, want BREAKOUT_UP reentry signal", got[2].Kind, got[2].Reentry)
	}
	// 80.8 is below the previous high: structural condition fails there.
	if got[0].Kind != domain.SignalNone {
		t.Errorf("tick at 80.8 should not signal, got %s", got[0].Kind)
	}
}

func TestTargetExitDoesNotArmReentry(t *testing.T) {
	d := NewDetector(0.002)
	rng := domain.NewDayRange(100, 90)
	run(d, rng, nil, 95, 101)

	levels := []domain.ExitLevel{{
		Direction:  domain.DirectionCall,
		EntryPrice: 101,
		ExitPrice:  161.6,
		ExitReason: domain.ExitReasonTarget,
	}}

	got := run(d, rng, levels, 161.6, 101)
	for i, s := range got {
		if s.Kind != domain.SignalNone {
			t.Errorf("tick %d: target exit must not re-arm, got %s", i, s.Kind)
		}
	}
}

func TestReentryToleranceBoundary(t *testing.T) {
	d := NewDetector(0.002)
	rng := domain.NewDayRange(100, 90)
	run(d, rng, nil, 95, 110)

	levels := []domain.ExitLevel{{
		Direction:  domain.DirectionCall,
		EntryPrice: 110,
		ExitPrice:  105,
		ExitReason: domain.ExitReasonTrailingStop,
	}}

	// 106 clears both bands, 105.21 is just within 0.2% of 105, 105.5 is
	// outside it and far from 110.
	got := run(d, rng, levels, 106, 105.21, 105.5)
	if got[0].Kind != domain.SignalNone {
		t.Errorf("departure tick should not signal, got %s", got[0].Kind)
	}
	if got[1].Kind != domain.SignalBreakoutUp || !got[1].Reentry {
		t.Errorf("price within tolerance of exit level should re-enter, got %s", got[1].Kind)
	}
	if got[2].Kind != domain.SignalNone {
		t.Errorf("price outside tolerance should not re-enter, got %s", got[2].Kind)
	}
}

func TestReentryWaitsForDepartureFromExitLevel(t *testing.T) {
	d := NewDetector(0.002)
	rng := domain.NewDayRange(105, 70)
	run(d, rng, nil, 100, 106)

	// A trailing stop fired at 130, still above the previous high. The exit
	// tick itself and any tick inside the band must not re-enter; only a
	// return after leaving the band does.
	levels := []domain.ExitLevel{{
		Direction:  domain.DirectionCall,
		EntryPrice: 106,
		ExitPrice:  130,
		ExitReason: domain.ExitReasonTrailingStop,
		ExitTime:   base.Add(time.Minute),
	}}

	got := kinds(run(d, rng, levels, 130, 130.2, 140, 130.1))
	want := []domain.SignalKind{
		domain.SignalNone, domain.SignalNone, domain.SignalNone,
		domain.SignalBreakoutUp,
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tick %d: got %s, want %s", i, got[i], want[i])
		}
	}
}
