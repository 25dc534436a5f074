package domain

import "time"

// Tick is a single option-premium price observation from the feed.
type Tick struct {
	Timestamp time.Time
	Price     float64
}
