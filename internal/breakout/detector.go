// Package breakout classifies premium ticks against the previous session's
// range: gap signals at the open, edge-triggered breakout crossings during
// the session, and reentry signals at previously exited levels.
package breakout

import (
	"time"

	"nifty-options-engine/internal/domain"
)

// Detector turns ticks into trading signals. It keeps only its own crossing
// state (last price, per-direction consumption); the session day range is
// owned elsewhere and handed in as a read-only snapshot.
//
// Each direction fires at most one original signal per session: either the
// gap at the open or the first crossing of the reference level. A gap
// consumes the breakout slot for its direction. Only a reentry level can
// re-enable a consumed direction.
type Detector struct {
	tolerance float64 // reentry tolerance as a fraction of the level price

	opened       bool
	lastPrice    float64
	consumedUp   bool
	consumedDown bool

	// departed marks exit levels, keyed by exit time, whose tolerance band
	// the price has left since the exit. A level cannot re-enter before
	// that: the exit tick sits inside its own band by construction.
	departed map[time.Time]bool
}

// NewDetector creates a detector for one trading session.
func NewDetector(reentryTolerance float64) *Detector {
	return &Detector{
		tolerance: reentryTolerance,
		departed:  make(map[time.Time]bool),
	}
}

// Evaluate classifies one tick. rng is a snapshot of the session range with
// the tick already observed; levels are the reentry-armed exit levels of the
// session so far. Signals are edge-triggered: a crossing fires once, on the
// tick that first breaches the reference level.
func (d *Detector) Evaluate(tick domain.Tick, rng domain.DayRange, levels []domain.ExitLevel) domain.Signal {
	price := tick.Price
	defer func() { d.lastPrice = price }()

	// First tick of the session: gap evaluation only, exactly once.
	if !d.opened {
		d.opened = true
		if price > rng.PrevHigh {
			d.consumedUp = true
			return d.signal(domain.SignalGapUp, tick, false)
		}
		if price < rng.PrevLow {
			d.consumedDown = true
			return d.signal(domain.SignalGapDown, tick, false)
		}
		return domain.NoSignal()
	}

	// Original crossings, strict inequality against the previous tick.
	if !d.consumedUp && d.lastPrice <= rng.PrevHigh && price > rng.PrevHigh {
		d.consumedUp = true
		return d.signal(domain.SignalBreakoutUp, tick, false)
	}
	if !d.consumedDown && d.lastPrice >= rng.PrevLow && price < rng.PrevLow {
		d.consumedDown = true
		return d.signal(domain.SignalBreakoutDown, tick, false)
	}

	// Reentry: a losing exit re-arms its direction when price moves away
	// from the exited trade's level and later returns to it while the
	// structural condition still holds.
	for _, lvl := range levels {
		if !lvl.ArmsReentry() {
			continue
		}
		near := d.nearLevel(price, lvl.ExitPrice) || d.nearLevel(price, lvl.EntryPrice)
		if !d.departed[lvl.ExitTime] {
			if !near {
				d.departed[lvl.ExitTime] = true
			}
			continue
		}
		if !near {
			continue
		}
		var kind domain.SignalKind
		switch lvl.Direction {
		case domain.DirectionCall:
			if price <= rng.PrevHigh {
				continue
			}
			kind = domain.SignalBreakoutUp
		case domain.DirectionPut:
			if price >= rng.PrevLow {
				continue
			}
			kind = domain.SignalBreakoutDown
		default:
			continue
		}
		return d.signal(kind, tick, true)
	}

	return domain.NoSignal()
}

func (d *Detector) signal(kind domain.SignalKind, tick domain.Tick, reentry bool) domain.Signal {
	return domain.Signal{
		Kind:      kind,
		Direction: kind.Direction(),
		Price:     tick.Price,
		Timestamp: tick.Timestamp,
		Reentry:   reentry,
	}
}

func (d *Detector) nearLevel(price, level float64) bool {
	if level <= 0 {
		return false
	}
	diff := price - level
	if diff < 0 {
		diff = -diff
	}
	return diff <= level*d.tolerance
}
