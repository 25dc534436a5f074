// Package session models the exchange trading session: current time,
// the entry-authorization window, and session-date bookkeeping.
package session

import (
	"fmt"
	"time"
)

// Clock supplies current time. Abstracted so tests can drive the engine
// with a deterministic clock.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

// Now returns the current wall time.
func (RealClock) Now() time.Time { return time.Now() }

// Window is the bounded time-of-day interval during which new entries are
// authorized, anchored to the exchange timezone.
type Window struct {
	Location    *time.Location
	OpenHour    int
	OpenMinute  int
	CloseHour   int
	CloseMinute int
}

// NewWindow builds a session window in the named timezone.
func NewWindow(tz string, openHour, openMinute, closeHour, closeMinute int) (Window, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Window{}, fmt.Errorf("load session timezone %q: %w", tz, err)
	}
	return Window{
		Location:    loc,
		OpenHour:    openHour,
		OpenMinute:  openMinute,
		CloseHour:   closeHour,
		CloseMinute: closeMinute,
	}, nil
}

// OpenAt returns the session-open instant for the day containing t.
func (w Window) OpenAt(t time.Time) time.Time {
	local := t.In(w.Location)
	return time.Date(local.Year(), local.Month(), local.Day(), w.OpenHour, w.OpenMinute, 0, 0, w.Location)
}

// CloseAt returns the session-close instant for the day containing t.
func (w Window) CloseAt(t time.Time) time.Time {
	local := t.In(w.Location)
	return time.Date(local.Year(), local.Month(), local.Day(), w.CloseHour, w.CloseMinute, 0, 0, w.Location)
}

// Contains reports whether t lies within [open, close] of its day.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.OpenAt(t)) && !t.After(w.CloseAt(t))
}

// AfterClose reports whether t is past the session close of its day.
func (w Window) AfterClose(t time.Time) bool {
	return t.After(w.CloseAt(t))
}

// SessionDate returns the YYYY-MM-DD session date of t in the exchange
// timezone.
func (w Window) SessionDate(t time.Time) string {
	return t.In(w.Location).Format("2006-01-02")
}
