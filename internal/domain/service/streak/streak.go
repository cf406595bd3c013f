// Package streak decides whether a day counts toward the continuity streak
// and advances the counter.
//
// The counter has no gap detection: a day that does not count leaves the
// streak where it was instead of resetting it.
package streak

import "github.com/YoshitsuguKoike/moltfocus/internal/domain/model/checkin"

// CountsForStreak reports whether a day qualifies: at least one item done,
// a solid reflection, or an actively adjusted plan.
func CountsForStreak(doneCount, reflectionLength int, planChanged bool, mode checkin.Mode) bool {
	base := doneCount >= 1 || reflectionLength >= checkin.ReflectionThreshold || planChanged
	switch mode {
	case checkin.ModeRecovery:
		// Recovery only ever adds qualifying paths on top of Commit.
		return base || reflectionLength >= checkin.ReflectionThreshold
	default:
		return base
	}
}

// Progress is the part of State the streak engine owns
type Progress struct {
	Streak         int
	LastStreakDate string
}

// FromState extracts the streak progress from s
func FromState(s checkin.State) Progress {
	return Progress{Streak: s.Streak, LastStreakDate: s.LastStreakDate}
}

// Apply writes p back into s
func (p Progress) Apply(s checkin.State) checkin.State {
	s.Streak = p.Streak
	s.LastStreakDate = p.LastStreakDate
	return s
}

// Advance increments the streak at most once per day. Calling it again for
// the same day is a no-op, as is calling it with counts == false.
func Advance(p Progress, counts bool, today string) Progress {
	if !counts || p.LastStreakDate == today {
		return p
	}
	if p.Streak < 0 {
		p.Streak = 0
	}
	p.Streak++
	p.LastStreakDate = today
	return p
}
