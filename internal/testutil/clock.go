package testutil

import (
	"time"

	"github.com/calvinalkan/kb/internal/calendar"
)

// Monday, 2025-03-10. Most tests pin "today" here.
var Today = calendar.New(2025, 3, 10)

// Clock is a day-granular clock for tests that need "today" to move.
type Clock struct {
	current time.Time
}

// NewClock returns a clock at local midnight of [Today].
func NewClock() *Clock {
	return &Clock{
		current: time.Date(Today.Year, time.Month(Today.Month), Today.Day, 0, 0, 0, 0, time.Local),
	}
}

// Now returns the current instant.
func (c *Clock) Now() time.Time {
	return c.current
}

// Today returns the current calendar date.
func (c *Clock) Today() calendar.Date {
	return calendar.FromTime(c.current)
}

// AdvanceDays moves the clock by n calendar days.
func (c *Clock) AdvanceDays(n int) {
	c.current = c.current.AddDate(0, 0, n)
}
