// Package engine runs the intraday trading loop. All strategy state is
// owned by one goroutine: ticks are consumed from the feed in order and
// each tick passes through exit evaluation, range observation, signal
// detection, risk authorization, and entry in a fixed sequence.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"nifty-options-engine/internal/breakout"
	"nifty-options-engine/internal/domain"
	"nifty-options-engine/internal/feed"
	"nifty-options-engine/internal/notify"
	"nifty-options-engine/internal/observability"
	"nifty-options-engine/internal/position"
	"nifty-options-engine/internal/risk"
	"nifty-options-engine/internal/session"
	"nifty-options-engine/internal/storage"
)

// ErrNoPriorSession means no previous session range exists to trade
// against. Starting a session without reference levels is fatal.
var ErrNoPriorSession = errors.New("no prior session range available")

// Recorder is the audit intake the engine writes ticks through.
type Recorder interface {
	RecordTick(sessionDate string, tick domain.Tick)
}

// Engine wires the strategy collaborators around the tick loop.
type Engine struct {
	window   session.Window
	clock    session.Clock
	source   feed.Source
	detector *breakout.Detector
	gate     *risk.Gate
	manager  *position.Manager
	recorder Recorder
	ranges   storage.DayRangeStore
	notifier notify.Notifier
	metrics  *observability.Metrics

	reentryTolerance float64

	sessionDate string
	dayRange    *domain.DayRange
	lastTick    domain.Tick
	hasTick     bool
}

// Config carries the engine's direct knobs; collaborators come separately.
type Config struct {
	Window           session.Window
	ReentryTolerance float64
}

// New creates an engine. The detector is built per session in Run.
func New(cfg Config, clock session.Clock, source feed.Source, gate *risk.Gate, manager *position.Manager, recorder Recorder, ranges storage.DayRangeStore, notifier notify.Notifier, metrics *observability.Metrics) *Engine {
	return &Engine{
		window:           cfg.Window,
		clock:            clock,
		source:           source,
		gate:             gate,
		manager:          manager,
		recorder:         recorder,
		ranges:           ranges,
		notifier:         notifier,
		metrics:          metrics,
		reentryTolerance: cfg.ReentryTolerance,
	}
}

// Run trades one session: it initializes the day from the prior session's
// range, consumes ticks until the feed closes or the session window ends,
// force-closes any live position, and persists today's range. It returns
// ErrNoPriorSession if the day cannot be initialized.
func (e *Engine) Run(ctx context.Context) error {
	now := e.clock.Now()
	if err := e.startSession(ctx, now); err != nil {
		return err
	}

	closeAt := e.window.CloseAt(now)
	closeTimer := time.NewTimer(closeAt.Sub(now))
	defer closeTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			// Cancellation mid-session still closes the live position, but
			// the day's range is incomplete and must not be written: the
			// partial row would block the real end-of-day insert after a
			// restart and poison the next session's reference levels.
			e.endSession(ctx, false)
			return ctx.Err()

		case <-closeTimer.C:
			// The wall clock passed session close with a quiet feed.
			e.endSession(ctx, true)
			return nil

		case tick, ok := <-e.source.Ticks():
			if !ok {
				e.endSession(ctx, true)
				return nil
			}
			if e.window.AfterClose(tick.Timestamp) {
				e.endSession(ctx, true)
				return nil
			}
			e.processTick(ctx, tick)
		}
	}
}

// startSession loads the previous session's range and resets all per-day
// state.
func (e *Engine) startSession(ctx context.Context, now time.Time) error {
	e.sessionDate = e.window.SessionDate(now)

	prev, err := e.ranges.GetLatestBefore(ctx, e.sessionDate)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: session %s", ErrNoPriorSession, e.sessionDate)
		}
		return fmt.Errorf("load prior session range: %w", err)
	}

	e.dayRange = domain.NewDayRange(prev.High, prev.Low)
	e.detector = breakout.NewDetector(e.reentryTolerance)
	e.manager.StartSession(e.sessionDate)
	e.hasTick = false

	slog.Info("session started",
		slog.String("session_date", e.sessionDate),
		slog.String("reference_date", prev.SessionDate),
		slog.Float64("prev_high", prev.High),
		slog.Float64("prev_low", prev.Low))
	e.notifier.Notify(ctx, notify.Event{
		Severity: notify.SeverityInfo,
		Title:    "session started",
		Message:  fmt.Sprintf("%s trading against %s range %.2f/%.2f", e.sessionDate, prev.SessionDate, prev.High, prev.Low),
	})
	return nil
}

// processTick runs one tick through the fixed per-tick sequence.
func (e *Engine) processTick(ctx context.Context, tick domain.Tick) {
	if e.hasTick && tick.Timestamp.Before(e.lastTick.Timestamp) {
		e.metrics.TicksOutOfOrder.Inc()
		slog.Warn("out-of-order tick dropped",
			slog.Time("tick_time", tick.Timestamp),
			slog.Time("last_time", e.lastTick.Timestamp))
		return
	}
	if !e.window.Contains(tick.Timestamp) {
		e.metrics.TicksOutsideHours.Inc()
		return
	}

	e.lastTick = tick
	e.hasTick = true
	e.metrics.TicksProcessed.Inc()
	e.metrics.LastTickUnixTime.Set(float64(tick.Timestamp.Unix()))
	e.recorder.RecordTick(e.sessionDate, tick)

	e.dayRange.Observe(tick.Price)

	// Exits run before entry detection so a stop and a fresh signal on the
	// same tick cannot hold two positions at once.
	e.manager.OnTick(ctx, tick)

	sig := e.detector.Evaluate(tick, *e.dayRange, e.manager.ReentryLevels())
	if sig.IsEntry() {
		e.handleSignal(ctx, sig, tick)
	}

	if e.manager.OpenPosition() != nil {
		e.metrics.OpenPositions.Set(1)
	} else {
		e.metrics.OpenPositions.Set(0)
	}
	e.metrics.TradesToday.Set(float64(e.manager.Counters().TradesOpened))
}

func (e *Engine) handleSignal(ctx context.Context, sig domain.Signal, tick domain.Tick) {
	e.metrics.SignalsDetected.WithLabelValues(string(sig.Kind)).Inc()
	if sig.Reentry {
		e.metrics.ReentrySignals.Inc()
	}

	if e.manager.OpenPosition() != nil {
		// One position at a time. The signal is consumed regardless.
		slog.Info("signal skipped, position already open",
			slog.String("kind", string(sig.Kind)),
			slog.Float64("price", sig.Price))
		return
	}

	decision := e.gate.Authorize(sig, e.manager.Counters(), tick.Timestamp)
	if !decision.Approved {
		e.metrics.EntriesRejected.WithLabelValues(decision.Reason).Inc()
		slog.Info("entry rejected",
			slog.String("kind", string(sig.Kind)),
			slog.String("reason", decision.Reason),
			slog.Float64("price", sig.Price))
		return
	}

	if err := e.manager.Open(ctx, sig, decision.Capital); err != nil {
		slog.Error("entry not opened", slog.Any("error", err))
		return
	}
	e.metrics.PositionsOpened.Inc()
}

// endSession force-closes any live position and, when the session genuinely
// closed, persists today's range for the next session.
func (e *Engine) endSession(ctx context.Context, persistRange bool) {
	// Shutdown must not abort the closing trades or the range write.
	ctx = context.WithoutCancel(ctx)
	if !e.hasTick {
		slog.Warn("session ended without ticks, no range persisted",
			slog.String("session_date", e.sessionDate))
		return
	}

	closing := domain.Tick{Timestamp: e.window.CloseAt(e.lastTick.Timestamp), Price: e.lastTick.Price}
	e.manager.ForceClose(ctx, closing)
	e.metrics.OpenPositions.Set(0)

	if !persistRange {
		slog.Warn("session interrupted, range not persisted",
			slog.String("session_date", e.sessionDate),
			slog.Float64("partial_high", e.dayRange.TodayHigh),
			slog.Float64("partial_low", e.dayRange.TodayLow))
		return
	}

	rng := &domain.SessionRange{
		SessionDate: e.sessionDate,
		High:        e.dayRange.TodayHigh,
		Low:         e.dayRange.TodayLow,
		Open:        e.dayRange.OpenPrice,
		Close:       e.lastTick.Price,
	}
	err := storage.Retry(ctx, 5, 200*time.Millisecond, func() error {
		return e.ranges.Insert(ctx, rng)
	})
	if err != nil {
		slog.Error("session range not persisted",
			slog.String("session_date", e.sessionDate),
			slog.Any("error", err))
		e.notifier.Notify(ctx, notify.Event{
			Severity: notify.SeverityCritical,
			Title:    "range persistence failed",
			Message:  fmt.Sprintf("session %s range %.2f/%.2f lost: %v", e.sessionDate, rng.High, rng.Low, err),
		})
	}

	slog.Info("session ended",
		slog.String("session_date", e.sessionDate),
		slog.Float64("high", rng.High),
		slog.Float64("low", rng.Low),
		slog.Int("trades", e.manager.Counters().TradesOpened))
	e.notifier.Notify(ctx, notify.Event{
		Severity: notify.SeverityInfo,
		Title:    "session ended",
		Message:  fmt.Sprintf("%s closed at %.2f after %d trades", e.sessionDate, rng.Close, e.manager.Counters().TradesOpened),
	})
}
