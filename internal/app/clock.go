package app

import (
	"time"
)

// DayLayout is the calendar-day format used for Draft.day and State dates
const DayLayout = "2006-01-02"

// Clock resolves "now" and "today" in the workspace timezone
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock returns a clock for the IANA zone tz. An empty or unknown zone
// falls back to UTC with a warning.
func NewClock(tz string) *Clock {
	loc := time.UTC
	if tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			GetLogger().Warn("unknown timezone %q, using UTC: %v", tz, err)
		} else {
			loc = l
		}
	}
	return &Clock{loc: loc, now: time.Now}
}

// FixedClock always reports t, in t's location
func FixedClock(t time.Time) *Clock {
	return &Clock{loc: t.Location(), now: func() time.Time { return t }}
}

// Location returns the resolved timezone
func (c *Clock) Location() *time.Location {
	return c.loc
}

// Now returns the current instant in the workspace timezone
func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// Today returns the workspace-local calendar day, YYYY-MM-DD
func (c *Clock) Today() string {
	return c.DayOf(c.now())
}

// DayOf returns the workspace-local calendar day of t
func (c *Clock) DayOf(t time.Time) string {
	return t.In(c.loc).Format(DayLayout)
}
