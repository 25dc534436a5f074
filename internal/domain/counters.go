package domain

// DailyCounters tracks per-session trading activity. TradesOpened increments
// only on confirmed entries, never on authorization alone, so rejected or
// failed entries cannot corrupt the daily ceiling.
type DailyCounters struct {
	TradesOpened     int
	CapitalCommitted float64
}

// Reset clears the counters at session start.
func (c *DailyCounters) Reset() {
	c.TradesOpened = 0
	c.CapitalCommitted = 0
}

// CountEntry records one confirmed entry.
func (c *DailyCounters) CountEntry(capital float64) {
	c.TradesOpened++
	c.CapitalCommitted += capital
}
