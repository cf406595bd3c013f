package finalize

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/YoshitsuguKoike/moltfocus/internal/domain/model/checkin"
)

// EntryTimeLayout is the timestamp format of the "- Time:" line
const EntryTimeLayout = "2006-01-02T15:04-07:00"

const none = "- (none)"

// Entry is the input of RenderEntry
type Entry struct {
	Day        string
	Time       time.Time
	Rating     checkin.Rating
	Mode       checkin.Mode
	Draft      checkin.Draft
	DoneLabels []string
	Summary    string
}

// RenderEntry renders the markdown log block for a finalized day. Sections
// always appear in the same order and empty ones read "- (none)".
func RenderEntry(e Entry) string {
	lines := []string{
		"## " + e.Day,
		"- Time: " + e.Time.Format(EntryTimeLayout),
		"",
		"**Rating:** " + strings.ToUpper(e.Rating.String()),
		"",
		"**Mode:** " + strings.ToUpper(e.Mode.String()),
		"",
		"**Done**",
	}
	if len(e.DoneLabels) == 0 {
		lines = append(lines, none)
	}
	for _, label := range e.DoneLabels {
		lines = append(lines, "- "+label)
	}

	lines = append(lines, "", "**Notes**")
	notes := noteLines(e.Draft)
	if len(notes) == 0 {
		notes = []string{none}
	}
	lines = append(lines, notes...)

	reflection := strings.TrimSpace(e.Draft.Reflection)
	if reflection == "" {
		reflection = none
	}
	lines = append(lines,
		"",
		"**Reflection**",
		reflection,
		"",
		"**Auto-summary**",
		"- "+e.Summary,
	)
	return strings.Join(lines, "\n")
}

// noteLines lists items carrying a comment or logged time, in key order
func noteLines(d checkin.Draft) []string {
	var out []string
	for _, k := range d.Keys() {
		it := d.Items[k]
		comment := normalize(strings.TrimSpace(it.Comment))
		minutes := it.LoggedMinutes()
		if comment == "" && minutes == 0 {
			continue
		}

		line := "- " + normalize(checkin.LabelOrDefault(it.Label))
		if minutes > 0 {
			line += fmt.Sprintf(" (%d min)", minutes)
		}
		if comment != "" {
			line += ": " + comment
		}
		out = append(out, line)
	}
	return out
}

func normalize(s string) string {
	return norm.NFKC.String(s)
}

func normalizeAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = normalize(s)
	}
	return out
}
