package domain

import "time"

// SignalKind classifies a tick with respect to the previous session's range.
type SignalKind string

// Signal kind codes
const (
	SignalNone         SignalKind = "NONE"
	SignalBreakoutUp   SignalKind = "BREAKOUT_UP"
	SignalBreakoutDown SignalKind = "BREAKOUT_DOWN"
	SignalGapUp        SignalKind = "GAP_UP"
	SignalGapDown      SignalKind = "GAP_DOWN"
)

// Direction is the option side entered on a signal.
type Direction string

// Direction codes (index option contract sides)
const (
	DirectionCall Direction = "CE"
	DirectionPut  Direction = "PE"
)

// Direction returns the option side an entry on this signal kind takes.
// Up-side signals buy calls, down-side signals buy puts.
func (k SignalKind) Direction() Direction {
	switch k {
	case SignalBreakoutUp, SignalGapUp:
		return DirectionCall
	case SignalBreakoutDown, SignalGapDown:
		return DirectionPut
	}
	return ""
}

// Signal is produced per tick by the breakout detector and consumed
// immediately by the risk gate. A Reentry signal re-triggers a direction
// whose original breakout was already consumed this session.
type Signal struct {
	Kind      SignalKind
	Direction Direction
	Price     float64
	Timestamp time.Time
	Reentry   bool
}

// IsEntry reports whether the signal proposes a new entry.
func (s Signal) IsEntry() bool {
	return s.Kind != SignalNone && s.Kind != ""
}

// NoSignal is the zero outcome for a tick that triggers nothing.
func NoSignal() Signal {
	return Signal{Kind: SignalNone}
}
