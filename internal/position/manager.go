// Package position owns the lifecycle of option trades: sizing, the
// pending/open/closed state machine, premium-based exit evaluation, and the
// session's reentry and counter bookkeeping.
package position

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"nifty-options-engine/internal/domain"
	"nifty-options-engine/internal/idhash"
	"nifty-options-engine/internal/notify"
	"nifty-options-engine/internal/observability"
)

// Submitter emits an order intent and blocks until it confirms or fails.
type Submitter interface {
	Submit(ctx context.Context, intent domain.OrderIntent) error
}

// Recorder accepts lifecycle events for asynchronous persistence.
type Recorder interface {
	Record(ev *domain.PositionEvent)
}

// Manager holds at most one live position and all per-session trade state.
// It is driven from a single goroutine and is not safe for concurrent use.
type Manager struct {
	submitter Submitter
	recorder  Recorder
	notifier  notify.Notifier
	metrics   *observability.Metrics

	stopLossPct float64
	targetPct   float64
	trailingPct float64

	sessionDate string
	open        *domain.Position
	exitLevels  []domain.ExitLevel
	counters    domain.DailyCounters
}

// NewManager creates a manager with the configured exit thresholds, all
// expressed as fractions of the entry premium.
func NewManager(submitter Submitter, recorder Recorder, notifier notify.Notifier, metrics *observability.Metrics, stopLossPct, targetPct, trailingPct float64) *Manager {
	return &Manager{
		submitter:   submitter,
		recorder:    recorder,
		notifier:    notifier,
		metrics:     metrics,
		stopLossPct: stopLossPct,
		targetPct:   targetPct,
		trailingPct: trailingPct,
	}
}

// StartSession resets all per-session state for a new trading day.
func (m *Manager) StartSession(sessionDate string) {
	m.sessionDate = sessionDate
	m.open = nil
	m.exitLevels = nil
	m.counters.Reset()
}

// Counters returns the current per-session counters.
func (m *Manager) Counters() domain.DailyCounters {
	return m.counters
}

// OpenPosition returns the live position, or nil.
func (m *Manager) OpenPosition() *domain.Position {
	return m.open
}

// ReentryLevels returns the exit levels that still arm reentry.
func (m *Manager) ReentryLevels() []domain.ExitLevel {
	var out []domain.ExitLevel
	for _, lvl := range m.exitLevels {
		if lvl.ArmsReentry() {
			out = append(out, lvl)
		}
	}
	return out
}

// Open enters a position on an approved signal. The position stays Pending
// until the executor confirms the entry intent; a rejected or timed-out
// confirmation discards it without touching the daily counters.
func (m *Manager) Open(ctx context.Context, sig domain.Signal, capital float64) error {
	if m.open != nil {
		return fmt.Errorf("position %s already open", m.open.ID)
	}

	id := idhash.ComputePositionID(m.sessionDate, string(sig.Direction), sig.Timestamp.UnixMilli())
	pos := domain.NewPosition(id, sig, capital, m.stopLossPct, m.targetPct)
	if pos.Quantity <= 0 {
		return fmt.Errorf("capital %.2f buys zero quantity at premium %.2f", capital, sig.Price)
	}

	intent := domain.OrderIntent{
		PositionID: pos.ID,
		Direction:  pos.Direction,
		Quantity:   pos.Quantity,
		Kind:       domain.IntentEntry,
		Price:      pos.EntryPrice,
	}
	if err := m.submitter.Submit(ctx, intent); err != nil {
		m.notifier.Notify(ctx, notify.Event{
			Severity: notify.SeverityCritical,
			Title:    "entry failed",
			Message:  fmt.Sprintf("%s %s entry at %.2f not confirmed: %v", sig.Kind, sig.Direction, sig.Price, err),
		})
		return fmt.Errorf("entry intent for %s: %w", pos.ID, err)
	}

	pos.Status = domain.StatusOpen
	m.open = pos
	m.counters.CountEntry(capital)
	if sig.Reentry {
		m.consumeReentryLevel(sig.Direction, sig.Price)
	}

	m.recorder.Record(lifecycleEvent(pos, m.sessionDate, domain.PositionEventEntry))
	m.notifier.Notify(ctx, notify.Event{
		Severity: notify.SeverityInfo,
		Title:    "position opened",
		Message: fmt.Sprintf("%s %s qty %d at %.2f, stop %.2f, target %.2f",
			sig.Kind, pos.Direction, pos.Quantity, pos.EntryPrice, pos.StopLossPrice, pos.TargetPrice),
	})
	slog.Info("position opened",
		slog.String("position_id", pos.ID),
		slog.String("direction", string(pos.Direction)),
		slog.String("entry_kind", string(pos.EntryKind)),
		slog.Bool("reentry", pos.Reentry),
		slog.Float64("entry_price", pos.EntryPrice),
		slog.Int64("quantity", pos.Quantity),
		slog.Int("trades_today", m.counters.TradesOpened))
	return nil
}

// OnTick evaluates exit conditions for the live position. Threshold
// bookkeeping (favorable extreme, trailing ratchet) is updated first, then
// exits are checked in fixed priority: stop loss, target, trailing stop.
func (m *Manager) OnTick(ctx context.Context, tick domain.Tick) {
	p := m.open
	if p == nil {
		return
	}

	if tick.Price > p.HighestFavorablePrice {
		p.HighestFavorablePrice = tick.Price
	}
	m.ratchetTrailingStop(p)

	switch {
	case tick.Price <= p.StopLossPrice:
		m.close(ctx, tick, domain.ExitReasonStopLoss)
	case tick.Price >= p.TargetPrice:
		m.close(ctx, tick, domain.ExitReasonTarget)
	case p.TrailingArmed() && tick.Price <= *p.TrailingStopPrice:
		m.close(ctx, tick, domain.ExitReasonTrailingStop)
	}
}

// ForceClose exits the live position at the given tick regardless of
// thresholds. Called once at session close.
func (m *Manager) ForceClose(ctx context.Context, tick domain.Tick) {
	if m.open == nil {
		return
	}
	m.close(ctx, tick, domain.ExitReasonEndOfDay)
}

// ratchetTrailingStop arms the trailing stop once the trailed level clears
// the original stop, then only ever moves it up.
func (m *Manager) ratchetTrailingStop(p *domain.Position) {
	candidate := p.HighestFavorablePrice * (1 - m.trailingPct)
	if !p.TrailingArmed() {
		if candidate > p.StopLossPrice {
			p.TrailingStopPrice = &candidate
		}
		return
	}
	if candidate > *p.TrailingStopPrice {
		*p.TrailingStopPrice = candidate
	}
}

// close emits the exit intent and, on confirmation, transitions the position
// to Closed and records its exit level. An unconfirmed exit leaves the
// position open so the next tick retries it.
func (m *Manager) close(ctx context.Context, tick domain.Tick, reason string) {
	p := m.open
	intent := domain.OrderIntent{
		PositionID: p.ID,
		Direction:  p.Direction,
		Quantity:   p.Quantity,
		Kind:       domain.IntentExit,
		Price:      tick.Price,
	}
	if err := m.submitter.Submit(ctx, intent); err != nil {
		m.notifier.Notify(ctx, notify.Event{
			Severity: notify.SeverityCritical,
			Title:    "exit failed",
			Message:  fmt.Sprintf("%s exit for %s at %.2f not confirmed: %v", reason, p.ID, tick.Price, err),
		})
		slog.Error("exit intent not confirmed, position stays open",
			slog.String("position_id", p.ID),
			slog.String("reason", reason),
			slog.Any("error", err))
		return
	}

	p.ExitPrice = tick.Price
	p.ExitTime = tick.Timestamp
	p.ExitReason = reason
	p.Status = domain.StatusClosed
	m.open = nil
	if m.metrics != nil {
		m.metrics.PositionsClosed.WithLabelValues(reason).Inc()
	}
	m.exitLevels = append(m.exitLevels, domain.ExitLevel{
		Direction:  p.Direction,
		EntryPrice: p.EntryPrice,
		ExitPrice:  p.ExitPrice,
		ExitReason: reason,
		ExitTime:   p.ExitTime,
	})

	m.recorder.Record(lifecycleEvent(p, m.sessionDate, domain.PositionEventExit))
	m.notifier.Notify(ctx, notify.Event{
		Severity: notify.SeverityInfo,
		Title:    "position closed",
		Message: fmt.Sprintf("%s %s exit at %.2f (%s), pnl %.2f",
			p.Direction, p.ID[:8], p.ExitPrice, reason, p.PnL()),
	})
	slog.Info("position closed",
		slog.String("position_id", p.ID),
		slog.String("direction", string(p.Direction)),
		slog.String("exit_reason", reason),
		slog.Float64("exit_price", p.ExitPrice),
		slog.Float64("pnl", p.PnL()))
}

// consumeReentryLevel removes the armed level closest to the fill price so
// the same level cannot trigger a second reentry.
func (m *Manager) consumeReentryLevel(dir domain.Direction, price float64) {
	best := -1
	bestDist := math.MaxFloat64
	for i, lvl := range m.exitLevels {
		if !lvl.ArmsReentry() || lvl.Direction != dir {
			continue
		}
		dist := math.Min(math.Abs(price-lvl.ExitPrice), math.Abs(price-lvl.EntryPrice))
		if dist < bestDist {
			best = i
			bestDist = dist
		}
	}
	if best >= 0 {
		m.exitLevels = append(m.exitLevels[:best], m.exitLevels[best+1:]...)
	}
}

// lifecycleEvent builds the audit row for a position transition. Exit
// columns are populated only on EXIT rows.
func lifecycleEvent(p *domain.Position, sessionDate, eventType string) *domain.PositionEvent {
	ev := &domain.PositionEvent{
		EventID:               idhash.ComputeEventID(p.ID, eventType),
		PositionID:            p.ID,
		EventType:             eventType,
		SessionDate:           sessionDate,
		Direction:             p.Direction,
		EntryKind:             p.EntryKind,
		Reentry:               p.Reentry,
		EntryPrice:            p.EntryPrice,
		EntryTime:             p.EntryTime,
		CapitalAllocated:      p.CapitalAllocated,
		Quantity:              p.Quantity,
		StopLossPrice:         p.StopLossPrice,
		TargetPrice:           p.TargetPrice,
		HighestFavorablePrice: p.HighestFavorablePrice,
	}
	if p.TrailingArmed() {
		trailing := *p.TrailingStopPrice
		ev.TrailingStopPrice = &trailing
	}
	if eventType == domain.PositionEventExit {
		exitPrice := p.ExitPrice
		exitTime := p.ExitTime
		exitReason := p.ExitReason
		pnl := p.PnL()
		ev.ExitPrice = &exitPrice
		ev.ExitTime = &exitTime
		ev.ExitReason = &exitReason
		ev.PnL = &pnl
	}
	return ev
}
