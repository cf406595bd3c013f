package finalize

import (
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"

	"github.com/YoshitsuguKoike/moltfocus/internal/domain/model/checkin"
	"github.com/YoshitsuguKoike/moltfocus/internal/domain/service/rating"
)

func goldenDraft() checkin.Draft {
	ninety := 90
	return checkin.Draft{
		Day:  "2026-03-01",
		Mode: checkin.ModeCommit,
		Items: map[string]checkin.Item{
			"line-1":  {Label: "Thesis chapter", Done: true, Minutes: &ninety, Comment: "drafted section 2"},
			"line-2":  {Label: "Email", Comment: "  postponed "},
			"line-10": {Label: "Ｇｙｍ", Done: true},
		},
		Reflection: "  Good focus after lunch.  ",
	}
}

func TestRenderEntryGolden(t *testing.T) {
	d := goldenDraft()
	tally := d.Tally()
	labels := normalizeAll(tally.DoneLabels)
	summary := rating.Summarize(rating.SummaryInput{
		Day:          d.Day,
		Rating:       checkin.RatingGood,
		DoneLabels:   labels,
		MinutesTotal: tally.MinutesTotal,
		Reflection:   d.Reflection,
	})

	out := RenderEntry(Entry{
		Day:        d.Day,
		Time:       time.Date(2026, 3, 1, 21, 30, 0, 0, time.UTC),
		Rating:     checkin.RatingGood,
		Mode:       d.Mode,
		Draft:      d,
		DoneLabels: labels,
		Summary:    summary,
	})

	g := goldie.New(t, goldie.WithFixtureDir("testdata"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "render_entry", []byte(out))
}

func TestRenderEntryEmptySections(t *testing.T) {
	out := RenderEntry(Entry{
		Day:     "2026-03-02",
		Time:    time.Date(2026, 3, 2, 22, 0, 0, 0, time.FixedZone("JST", 9*3600)),
		Rating:  checkin.RatingBad,
		Mode:    checkin.ModeRecovery,
		Draft:   checkin.Draft{Day: "2026-03-02", Items: map[string]checkin.Item{"x": {Label: "idle"}}},
		Summary: "s",
	})

	if !strings.Contains(out, "- Time: 2026-03-02T22:00+09:00") {
		t.Errorf("timestamp line missing:\n%s", out)
	}
	if !strings.Contains(out, "**Mode:** RECOVERY") {
		t.Errorf("mode line missing:\n%s", out)
	}
	if got := strings.Count(out, "- (none)"); got != 3 {
		t.Errorf("expected 3 empty sections, got %d:\n%s", got, out)
	}
	if !strings.HasSuffix(out, "**Auto-summary**\n- s") {
		t.Errorf("summary must close the entry:\n%s", out)
	}
}

func TestNoteLines(t *testing.T) {
	five := 5
	negative := -3
	d := checkin.Draft{Items: map[string]checkin.Item{
		"a": {Label: "", Minutes: &five},
		"b": {Label: "read", Comment: "ch. 3"},
		"c": {Label: "skip", Minutes: &negative},
	}}

	got := noteLines(d)
	want := []string{"- (item) (5 min)", "- read: ch. 3"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("noteLines = %q, want %q", got, want)
	}
}
