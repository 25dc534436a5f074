// Package risk gates proposed entries against the daily trade ceiling and
// the session window. The gate is a pure predicate: it mutates nothing, so
// an authorization failure can never corrupt the counters it reads.
package risk

import (
	"time"

	"nifty-options-engine/internal/domain"
	"nifty-options-engine/internal/session"
)

// Rejection reason codes
const (
	ReasonDailyLimitReached    = "DAILY_LIMIT_REACHED"
	ReasonOutsideSessionWindow = "OUTSIDE_SESSION_WINDOW"
)

// Decision is the outcome of authorizing one signal. A rejection is normal
// control flow, not an error.
type Decision struct {
	Approved bool
	Reason   string  // set when rejected
	Capital  float64 // fixed allocation when approved
}

// Gate authorizes entries. Counter mutation happens in the position manager
// on confirmed entry, never here.
type Gate struct {
	capitalPerTrade float64
	maxTradesPerDay int
	window          session.Window
}

// NewGate creates a gate with the configured limits.
func NewGate(capitalPerTrade float64, maxTradesPerDay int, window session.Window) *Gate {
	return &Gate{
		capitalPerTrade: capitalPerTrade,
		maxTradesPerDay: maxTradesPerDay,
		window:          window,
	}
}

// Authorize approves or rejects a proposed entry signal. Reentry signals
// pass through the same checks as originals: a reentry consumes a slot from
// the same daily ceiling.
func (g *Gate) Authorize(sig domain.Signal, counters domain.DailyCounters, now time.Time) Decision {
	_ = sig // all signal kinds are gated identically today
	if counters.TradesOpened >= g.maxTradesPerDay {
		return Decision{Approved: false, Reason: ReasonDailyLimitReached}
	}
	if !g.window.Contains(now) {
		return Decision{Approved: false, Reason: ReasonOutsideSessionWindow}
	}
	return Decision{Approved: true, Capital: g.capitalPerTrade}
}
