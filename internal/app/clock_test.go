package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewClockFallsBackToUTC(t *testing.T) {
	assert.Equal(t, time.UTC, NewClock("").Location())
	assert.Equal(t, time.UTC, NewClock("Mars/Olympus_Mons").Location())
}

func TestClockTodayUsesZone(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// 2026-03-01 20:00 UTC is already 2026-03-02 in Tokyo
	instant := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

	c := &Clock{loc: tokyo, now: func() time.Time { return instant }}
	assert.Equal(t, "2026-03-02", c.Today())
	assert.Equal(t, 5, c.Now().Hour())

	utc := FixedClock(instant)
	assert.Equal(t, "2026-03-01", utc.Today())
}

func TestClockDayOf(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	c := &Clock{loc: tokyo, now: time.Now}

	assert.Equal(t, "2026-03-02", c.DayOf(time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2026-03-01", c.DayOf(time.Date(2026, 3, 1, 14, 59, 0, 0, time.UTC)))
}
