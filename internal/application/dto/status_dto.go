package dto

import (
	"fmt"
	"strings"

	"github.com/YoshitsuguKoike/moltfocus/internal/domain/model/checkin"
)

// HistoryLine is one day in the status view
type HistoryLine struct {
	Day           string `json:"day"`
	Rating        string `json:"rating"`
	Mode          string `json:"mode"`
	StreakCounted bool   `json:"streakCounted"`
	DoneCount     int    `json:"doneCount"`
	Total         int    `json:"total"`
	Summary       string `json:"summary,omitempty"`
}

// String renders "YYYY-MM-DD  GOOD  (COMMIT)"
func (h HistoryLine) String() string {
	return fmt.Sprintf("%s  %s  (%s)", h.Day, strings.ToUpper(h.Rating), strings.ToUpper(h.Mode))
}

// NewHistoryLine converts a State history entry
func NewHistoryLine(e checkin.HistoryEntry) HistoryLine {
	return HistoryLine{
		Day:           e.Day,
		Rating:        e.Rating.String(),
		Mode:          e.Mode.String(),
		StreakCounted: e.StreakCounted,
		DoneCount:     e.DoneCount,
		Total:         e.Total,
	}
}

// StatusView is the read-only summary of State
type StatusView struct {
	Today             string        `json:"today"`
	Streak            int           `json:"streak"`
	LastRating        string        `json:"lastRating,omitempty"`
	LastMode          string        `json:"lastMode,omitempty"`
	LastSummary       string        `json:"lastSummary,omitempty"`
	LastFinalizedDate string        `json:"lastFinalizedDate,omitempty"`
	History           []HistoryLine `json:"history"`
}

// NewStatusView builds the view with history newest first
func NewStatusView(today string, s checkin.State) StatusView {
	v := StatusView{
		Today:             today,
		Streak:            s.Streak,
		LastRating:        s.LastRating.String(),
		LastSummary:       s.LastSummary,
		LastFinalizedDate: s.LastFinalizedDate,
		History:           []HistoryLine{},
	}
	if s.LastFinalizedDate != "" {
		v.LastMode = s.LastMode.String()
	}
	for _, e := range s.Newest(0) {
		v.History = append(v.History, NewHistoryLine(e))
	}
	return v
}
