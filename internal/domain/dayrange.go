package domain

// DayRange holds the previous session's reference levels and today's
// evolving extremes for one trading session. PrevHigh/PrevLow are immutable
// once set; TodayHigh only increases and TodayLow only decreases.
type DayRange struct {
	PrevHigh  float64
	PrevLow   float64
	OpenPrice float64
	TodayHigh float64
	TodayLow  float64
	Opened    bool
}

// NewDayRange creates a session range from the prior session's levels.
func NewDayRange(prevHigh, prevLow float64) *DayRange {
	return &DayRange{
		PrevHigh: prevHigh,
		PrevLow:  prevLow,
	}
}

// Observe folds a tick price into the range. The first observation of the
// session records the open price and seeds both extremes.
func (r *DayRange) Observe(price float64) {
	if !r.Opened {
		r.OpenPrice = price
		r.TodayHigh = price
		r.TodayLow = price
		r.Opened = true
		return
	}
	if price > r.TodayHigh {
		r.TodayHigh = price
	}
	if price < r.TodayLow {
		r.TodayLow = price
	}
}

// SessionRange is the persisted form of one session's levels, read back at
// the next session open to seed PrevHigh/PrevLow.
type SessionRange struct {
	SessionDate string // YYYY-MM-DD in the exchange timezone
	High        float64
	Low         float64
	Open        float64
	Close       float64
}
