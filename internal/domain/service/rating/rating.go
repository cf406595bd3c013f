// Package rating scores a finalized day. Everything here is pure.
package rating

import (
	"fmt"
	"strings"

	"github.com/YoshitsuguKoike/moltfocus/internal/domain/model/checkin"
)

// Rate computes the day's rating from completion counts and reflection size.
// Several independent paths lead to Good and Fair so a partial-effort day is
// never rated below its best signal.
func Rate(doneCount, totalItems, reflectionLength int, anyTimeLogged bool) checkin.Rating {
	if doneCount >= max(1, totalItems/2) || doneCount >= 2 || (anyTimeLogged && doneCount >= 1) {
		return checkin.RatingGood
	}
	if doneCount >= 1 || reflectionLength >= checkin.ReflectionThreshold {
		return checkin.RatingFair
	}
	return checkin.RatingBad
}

// ApplyMode applies the Recovery override to a computed rating: a Bad day
// with any sign of effort is lifted to Fair. Commit mode returns r unchanged
// and neither mode ever lowers a rating.
func ApplyMode(r checkin.Rating, mode checkin.Mode, doneCount, reflectionLength int, anyTimeLogged bool) checkin.Rating {
	switch mode {
	case checkin.ModeRecovery:
		if r == checkin.RatingBad && (doneCount >= 1 || reflectionLength >= checkin.ReflectionThreshold || anyTimeLogged) {
			return checkin.RatingFair
		}
		return r
	case checkin.ModeCommit:
		return r
	default:
		return r
	}
}

// Advice is the canned follow-up sentence for each rating
func Advice(r checkin.Rating) string {
	switch r {
	case checkin.RatingGood:
		return "Keep the momentum; protect one deep block early tomorrow."
	case checkin.RatingFair:
		return "Aim for one deeper block next; reduce context switching."
	default:
		return "Reset: pick one small win + one deep block tomorrow."
	}
}

// SummaryInput carries everything the summary paragraph is derived from
type SummaryInput struct {
	Day          string
	Rating       checkin.Rating
	DoneLabels   []string
	MinutesTotal int
	Reflection   string
}

// maxSummaryLabels is how many done labels are spelled out before "+N more"
const maxSummaryLabels = 3

// Summarize renders the one-paragraph auto-summary, e.g.
//
//	[Good] 2026-02-01: done: Thesis, Gym (+2 more); logged ~90 min; reflection recorded. Keep the momentum; ...
func Summarize(in SummaryInput) string {
	var parts []string
	if n := len(in.DoneLabels); n > 0 {
		top := in.DoneLabels
		more := ""
		if n > maxSummaryLabels {
			top = in.DoneLabels[:maxSummaryLabels]
			more = fmt.Sprintf(" (+%d more)", n-maxSummaryLabels)
		}
		parts = append(parts, "done: "+strings.Join(top, ", ")+more)
	}
	if in.MinutesTotal > 0 {
		parts = append(parts, fmt.Sprintf("logged ~%d min", in.MinutesTotal))
	}
	if strings.TrimSpace(in.Reflection) != "" {
		parts = append(parts, "reflection recorded")
	}

	body := "no notable progress logged"
	if len(parts) > 0 {
		body = strings.Join(parts, "; ")
	}

	r := in.Rating
	if r == checkin.RatingNone {
		r = checkin.RatingBad
	}
	return fmt.Sprintf("[%s] %s: %s. %s", r.Title(), in.Day, body, Advice(r))
}
