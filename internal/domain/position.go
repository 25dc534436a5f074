package domain

import (
	"math"
	"time"
)

// PositionStatus is the lifecycle state of a position.
type PositionStatus string

// Position lifecycle states. Pending exists only between intent emission and
// executor confirmation; a rejected confirmation discards the position.
const (
	StatusPending PositionStatus = "PENDING"
	StatusOpen    PositionStatus = "OPEN"
	StatusClosed  PositionStatus = "CLOSED"
)

// Exit reason codes. A position closes exactly once, with exactly one reason.
const (
	ExitReasonStopLoss     = "STOP_LOSS"
	ExitReasonTarget       = "TARGET"
	ExitReasonTrailingStop = "TRAILING_STOP"
	ExitReasonEndOfDay     = "END_OF_DAY"
)

// Position is one long option trade. The strategy always buys premium, so
// stop-loss, target, and trailing thresholds are all expressed on the
// option premium itself.
type Position struct {
	ID        string
	Direction Direction

	// Entry
	EntryKind        SignalKind // signal that triggered the entry
	Reentry          bool
	EntryPrice       float64
	EntryTime        time.Time
	CapitalAllocated float64
	Quantity         int64 // floor(capital / entry premium)

	// Thresholds. StopLossPrice and TargetPrice are fixed at entry.
	// TrailingStopPrice is nil until armed and only ever ratchets up.
	StopLossPrice         float64
	TargetPrice           float64
	TrailingStopPrice     *float64
	HighestFavorablePrice float64

	// Exit (zero until closed)
	ExitPrice  float64
	ExitTime   time.Time
	ExitReason string

	Status PositionStatus
}

// NewPosition sizes and prices a position from an approved entry signal.
// The returned position is Pending until the executor confirms the entry.
func NewPosition(id string, sig Signal, capital, stopLossPct, targetPct float64) *Position {
	return &Position{
		ID:                    id,
		Direction:             sig.Direction,
		EntryKind:             sig.Kind,
		Reentry:               sig.Reentry,
		EntryPrice:            sig.Price,
		EntryTime:             sig.Timestamp,
		CapitalAllocated:      capital,
		Quantity:              int64(math.Floor(capital / sig.Price)),
		StopLossPrice:         sig.Price * (1 - stopLossPct),
		TargetPrice:           sig.Price * (1 + targetPct),
		HighestFavorablePrice: sig.Price,
		Status:                StatusPending,
	}
}

// IsOpen reports whether the position is live.
func (p *Position) IsOpen() bool {
	return p.Status == StatusOpen
}

// TrailingArmed reports whether the trailing stop has been armed.
func (p *Position) TrailingArmed() bool {
	return p.TrailingStopPrice != nil
}

// PnL is the realized profit of a closed position, zero while open.
func (p *Position) PnL() float64 {
	if p.Status != StatusClosed {
		return 0
	}
	return (p.ExitPrice - p.EntryPrice) * float64(p.Quantity)
}

// ExitLevel records where a closed position left the market. Levels for
// losing exits (stop loss, trailing stop) arm reentry in the same direction
// for the remainder of the session.
type ExitLevel struct {
	Direction  Direction
	EntryPrice float64
	ExitPrice  float64
	ExitReason string
	ExitTime   time.Time
}

// ArmsReentry reports whether this level permits a fresh signal at its price.
// Target and end-of-day exits do not re-arm the direction.
func (l ExitLevel) ArmsReentry() bool {
	return l.ExitReason == ExitReasonStopLoss || l.ExitReason == ExitReasonTrailingStop
}
