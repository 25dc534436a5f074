package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"nifty-options-engine/internal/audit"
	"nifty-options-engine/internal/domain"
	"nifty-options-engine/internal/execution"
	"nifty-options-engine/internal/feed"
	"nifty-options-engine/internal/idhash"
	"nifty-options-engine/internal/notify"
	"nifty-options-engine/internal/observability"
	"nifty-options-engine/internal/position"
	"nifty-options-engine/internal/risk"
	"nifty-options-engine/internal/session"
	"nifty-options-engine/internal/storage"
	"nifty-options-engine/internal/storage/memory"
)

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }

type harness struct {
	engine   *Engine
	source   *feed.ChannelSource
	executor *execution.PaperExecutor
	ranges   *memory.DayRangeStore
	events   *memory.PositionEventStore
	loc      *time.Location
}

// newHarness wires an engine over in-memory stores with the previous
// session seeded at high 105, low 95.
func newHarness(t *testing.T) *harness {
	t.Helper()

	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatal(err)
	}
	window, err := session.NewWindow("Asia/Kolkata", 9, 15, 15, 30)
	if err != nil {
		t.Fatal(err)
	}

	ranges := memory.NewDayRangeStore()
	if err := ranges.Insert(context.Background(), &domain.SessionRange{
		SessionDate: "2025-05-30", High: 105, Low: 95, Open: 98, Close: 103,
	}); err != nil {
		t.Fatal(err)
	}

	events := memory.NewPositionEventStore()
	recorder := audit.NewRecorder(events, memory.NewTickStore(), observability.DefaultMetrics, 64)
	recorder.Start(context.Background())
	t.Cleanup(recorder.Close)

	executor := execution.NewPaperExecutor()
	emitter := execution.NewEmitter(executor, time.Second, observability.DefaultMetrics)
	manager := position.NewManager(emitter, recorder, notify.LogNotifier{}, observability.DefaultMetrics, 0.20, 0.60, 0.20)
	gate := risk.NewGate(15000, 4, window)
	source := feed.NewChannelSource(64)

	clock := fixedClock{t: time.Date(2025, 6, 2, 10, 0, 0, 0, loc)}
	eng := New(
		Config{Window: window, ReentryTolerance: 0.002},
		clock, source, gate, manager, recorder, ranges,
		notify.LogNotifier{}, observability.DefaultMetrics,
	)
	return &harness{engine: eng, source: source, executor: executor, ranges: ranges, events: events, loc: loc}
}

func (h *harness) tick(hour, minute int, price float64) domain.Tick {
	return domain.Tick{
		Timestamp: time.Date(2025, 6, 2, hour, minute, 0, 0, h.loc),
		Price:     price,
	}
}

// run pushes the ticks, closes the feed, and waits for Run to finish.
func (h *harness) run(t *testing.T, ticks ...domain.Tick) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- h.engine.Run(context.Background()) }()
	for _, tk := range ticks {
		h.source.Push(tk)
	}
	h.source.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not finish")
	}
}

func TestBreakoutEntryAndTargetExit(t *testing.T) {
	h := newHarness(t)

	h.run(t,
		h.tick(9, 30, 100),  // inside range, no gap
		h.tick(9, 45, 106),  // crosses prev high 105
		h.tick(10, 30, 170), // clears the 60% target at 169.6
	)

	executed := h.executor.Executed()
	if len(executed) != 2 {
		t.Fatalf("got %d executed intents, want entry and exit", len(executed))
	}
	if executed[0].Kind != domain.IntentEntry || executed[1].Kind != domain.IntentExit {
		t.Fatalf("intent order = %s, %s", executed[0].Kind, executed[1].Kind)
	}
	if executed[0].Direction != domain.DirectionCall {
		t.Errorf("entry direction = %s, want CE", executed[0].Direction)
	}

	rng, err := h.ranges.Get(context.Background(), "2025-06-02")
	if err != nil {
		t.Fatalf("session range not persisted: %v", err)
	}
	if rng.High != 170 || rng.Low != 100 || rng.Open != 100 || rng.Close != 170 {
		t.Errorf("persisted range = %+v", rng)
	}
}

func TestGapUpEntersOnFirstTick(t *testing.T) {
	h := newHarness(t)

	h.run(t, h.tick(9, 15, 110))

	executed := h.executor.Executed()
	if len(executed) < 1 || executed[0].Kind != domain.IntentEntry {
		t.Fatalf("gap open did not enter: %v", executed)
	}
	// Feed closed with the position live: the end-of-day close follows.
	if len(executed) != 2 || executed[1].Kind != domain.IntentExit {
		t.Fatalf("gap position not force-closed at session end: %v", executed)
	}
}

func TestOutOfOrderTickDropped(t *testing.T) {
	h := newHarness(t)

	h.run(t,
		h.tick(10, 0, 100),
		h.tick(9, 50, 106), // stale timestamp, would otherwise break out
		h.tick(10, 5, 104), // fresh but inside range
	)

	if executed := h.executor.Executed(); len(executed) != 0 {
		t.Fatalf("stale tick produced intents: %v", executed)
	}
}

func TestAfterCloseTickEndsSession(t *testing.T) {
	h := newHarness(t)

	h.run(t,
		h.tick(9, 30, 100),
		h.tick(15, 31, 106), // past close, must not trade
	)

	if executed := h.executor.Executed(); len(executed) != 0 {
		t.Fatalf("post-close tick produced intents: %v", executed)
	}
	if _, err := h.ranges.Get(context.Background(), "2025-06-02"); err != nil {
		t.Fatalf("session range not persisted on close: %v", err)
	}
}

func TestStopLossThenReentry(t *testing.T) {
	h := newHarness(t)

	h.run(t,
		h.tick(9, 30, 100),  // inside range
		h.tick(9, 45, 106),  // breakout up, entry at 106
		h.tick(9, 55, 94),   // down-crossing skipped while the call is open
		h.tick(10, 0, 84.8), // stop loss at 106*0.8
		h.tick(10, 15, 90),  // drifting, no signal
		h.tick(10, 30, 106), // back at the entry level, reentry
	)

	executed := h.executor.Executed()
	entries := 0
	for _, intent := range executed {
		if intent.Kind == domain.IntentEntry {
			entries++
		}
	}
	if entries != 2 {
		t.Fatalf("got %d entries, want original plus reentry", entries)
	}
}

func TestTrailingExitDoesNotReenterOnSameTick(t *testing.T) {
	h := newHarness(t)

	reentryAt := h.tick(11, 30, 130)
	h.run(t,
		h.tick(9, 30, 100),    // inside range
		h.tick(9, 45, 106),    // breakout up, entry at 106
		h.tick(10, 30, 165),   // trailing stop arms at 132
		h.tick(10, 45, 130),   // trailing exit; its own tick must not re-enter
		h.tick(11, 0, 130.2),  // still inside the exit tolerance band
		h.tick(11, 15, 140),   // price leaves the band
		reentryAt,             // back at the exited level, reentry allowed
	)

	executed := h.executor.Executed()
	if len(executed) != 4 {
		t.Fatalf("got %d executed intents, want entry, exit, reentry, eod exit: %v", len(executed), executed)
	}
	if executed[1].Kind != domain.IntentExit || executed[2].Kind != domain.IntentEntry {
		t.Fatalf("intent order = %s, %s, %s, %s",
			executed[0].Kind, executed[1].Kind, executed[2].Kind, executed[3].Kind)
	}
	// The reentry fills at the post-departure tick, not at the exit tick.
	wantID := idhash.ComputePositionID("2025-06-02", string(domain.DirectionCall), reentryAt.Timestamp.UnixMilli())
	if executed[2].PositionID != wantID {
		t.Errorf("reentry position id = %s, want the one keyed to %s", executed[2].PositionID, reentryAt.Timestamp)
	}
}

func TestCancelMidSessionSkipsRangePersist(t *testing.T) {
	h := newHarness(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.engine.Run(ctx) }()
	h.source.Push(h.tick(9, 30, 100))
	h.source.Push(h.tick(9, 45, 106)) // entry, so tick processing is observable

	deadline := time.Now().Add(2 * time.Second)
	for len(h.executor.Executed()) < 1 {
		if time.Now().After(deadline) {
			t.Fatal("entry intent never executed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}

	// The live position is force-closed, but the truncated range is not
	// written: it would shadow the real end-of-day insert after a restart.
	executed := h.executor.Executed()
	if len(executed) != 2 || executed[1].Kind != domain.IntentExit {
		t.Fatalf("cancel did not force-close the position: %v", executed)
	}
	if _, err := h.ranges.Get(context.Background(), "2025-06-02"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("truncated range persisted on cancel, Get returned %v", err)
	}

	// A restart over the same store replays the full day and lands the
	// complete range.
	h2 := newHarness(t)
	h2.engine.ranges = h.ranges
	h2.run(t,
		h2.tick(9, 30, 100),
		h2.tick(10, 0, 140),
		h2.tick(11, 0, 80),
		h2.tick(15, 0, 90),
	)

	rng, err := h.ranges.Get(context.Background(), "2025-06-02")
	if err != nil {
		t.Fatalf("full-day range not persisted after restart: %v", err)
	}
	if rng.High != 140 || rng.Low != 80 || rng.Close != 90 {
		t.Errorf("persisted range = %+v, want high 140 low 80 close 90", rng)
	}
}

func TestRunFailsWithoutPriorSession(t *testing.T) {
	h := newHarness(t)

	// Rebuild the engine over an empty range store.
	h.engine.ranges = memory.NewDayRangeStore()

	err := h.engine.Run(context.Background())
	if !errors.Is(err, ErrNoPriorSession) {
		t.Fatalf("expected ErrNoPriorSession, got %v", err)
	}
}
