package domain

import "time"

// Position event types
const (
	PositionEventEntry = "ENTRY"
	PositionEventExit  = "EXIT"
)

// PositionEvent is one append-only row of a position's lifecycle audit
// trail. An ENTRY row is written when the executor confirms the open; an
// EXIT row when the position closes. Exit fields are nil on ENTRY rows.
type PositionEvent struct {
	EventID     string // deterministic hash
	PositionID  string
	EventType   string // "ENTRY" | "EXIT"
	SessionDate string // YYYY-MM-DD in the exchange timezone

	Direction Direction
	EntryKind SignalKind
	Reentry   bool

	EntryPrice       float64
	EntryTime        time.Time
	CapitalAllocated float64
	Quantity         int64

	StopLossPrice         float64
	TargetPrice           float64
	TrailingStopPrice     *float64
	HighestFavorablePrice float64

	ExitPrice  *float64
	ExitTime   *time.Time
	ExitReason *string
	PnL        *float64
}
