package checkin

import "sort"

// DefaultHistoryLimit is the number of distinct days kept in State.History.
// It is also the upper bound: a larger limit is clamped to it.
const DefaultHistoryLimit = 30

// ClampHistoryLimit maps limit into 1..DefaultHistoryLimit; non-positive
// values select the default
func ClampHistoryLimit(limit int) int {
	if limit <= 0 || limit > DefaultHistoryLimit {
		return DefaultHistoryLimit
	}
	return limit
}

// HistoryEntry is the per-day record kept in State
type HistoryEntry struct {
	Day           string `json:"day"`
	Rating        Rating `json:"rating"`
	Mode          Mode   `json:"mode"`
	StreakCounted bool   `json:"streakCounted"`
	DoneCount     int    `json:"doneCount"`
	Total         int    `json:"total"`
}

// State is the workspace-wide derived record. It is only mutated by
// finalization and is passed around by value.
type State struct {
	Version           int            `json:"version"`
	Streak            int            `json:"streak"`
	LastStreakDate    string         `json:"lastStreakDate,omitempty"`
	LastRating        Rating         `json:"lastRating,omitempty"`
	LastMode          Mode           `json:"lastMode"`
	LastSummary       string         `json:"lastSummary,omitempty"`
	LastFinalizedDate string         `json:"lastFinalizedDate,omitempty"`
	History           []HistoryEntry `json:"history"`
	UpdatedAt         string         `json:"updatedAt,omitempty"`
}

// WithHistory returns a copy of s whose history contains e
func (s State) WithHistory(e HistoryEntry, limit int) State {
	s.History = UpsertHistory(s.History, e, limit)
	return s
}

// UpsertHistory appends e, keeps the last entry written for each day, sorts
// ascending by day and keeps at most the newest limit days, never more than
// DefaultHistoryLimit. The input slice is not modified.
func UpsertHistory(history []HistoryEntry, e HistoryEntry, limit int) []HistoryEntry {
	limit = ClampHistoryLimit(limit)

	byDay := make(map[string]HistoryEntry, len(history)+1)
	for _, h := range history {
		byDay[h.Day] = h
	}
	byDay[e.Day] = e

	out := make([]HistoryEntry, 0, len(byDay))
	for _, h := range byDay {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })

	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Newest returns up to n history entries, newest first
func (s State) Newest(n int) []HistoryEntry {
	if n <= 0 || n > len(s.History) {
		n = len(s.History)
	}
	out := make([]HistoryEntry, 0, n)
	for i := len(s.History) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.History[i])
	}
	return out
}
