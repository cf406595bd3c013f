package checkin

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"commit", ModeCommit},
		{"recovery", ModeRecovery},
		{"  Recovery ", ModeRecovery},
		{"RECOVERY", ModeRecovery},
		{"", ModeCommit},
		{"vacation", ModeCommit},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseMode(tt.in))
		})
	}
}

func TestModeJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		M Mode `json:"m"`
	}{ModeRecovery})
	require.NoError(t, err)
	assert.JSONEq(t, `{"m":"recovery"}`, string(b))

	var d Draft
	require.NoError(t, json.Unmarshal([]byte(`{"day":"2026-01-02","mode":"weird"}`), &d))
	assert.Equal(t, ModeCommit, d.Mode)
}

func TestRatingOrderAndText(t *testing.T) {
	assert.Greater(t, RatingGood, RatingFair)
	assert.Greater(t, RatingFair, RatingBad)
	assert.Greater(t, RatingBad, RatingNone)

	for _, r := range []Rating{RatingGood, RatingFair, RatingBad} {
		got, err := ParseRating(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}

	_, err := ParseRating("excellent")
	assert.Error(t, err)
}

func TestDraftForDay(t *testing.T) {
	now := time.Date(2026, 3, 4, 21, 0, 0, 0, time.UTC)

	stale := Draft{Day: "2026-03-03", Items: map[string]Item{"a": {Label: "x", Done: true}}, Reflection: "old"}
	fresh := stale.ForDay("2026-03-04", now)
	assert.Equal(t, "2026-03-04", fresh.Day)
	assert.Empty(t, fresh.Items)
	assert.Empty(t, fresh.Reflection)
	assert.Equal(t, ModeCommit, fresh.Mode)

	current := Draft{Day: "2026-03-04", Reflection: "keep"}
	kept := current.ForDay("2026-03-04", now)
	assert.Equal(t, "keep", kept.Reflection)
	assert.NotNil(t, kept.Items)

	assert.False(t, Draft{}.IsFor(""))
}

func TestDraftIsEmpty(t *testing.T) {
	assert.True(t, NewDraft("2026-03-04", time.Now()).IsEmpty())
	assert.True(t, Draft{Reflection: "  \n"}.IsEmpty())
	assert.False(t, Draft{Reflection: "x"}.IsEmpty())
	assert.False(t, Draft{Items: map[string]Item{"a": {}}}.IsEmpty())
}

func TestDraftKeysNaturalOrder(t *testing.T) {
	d := Draft{Items: map[string]Item{
		"line-10": {}, "line-2": {}, "line-1": {}, "alpha": {},
	}}
	assert.Equal(t, []string{"alpha", "line-1", "line-2", "line-10"}, d.Keys())
}

func TestDraftTally(t *testing.T) {
	d := Draft{Items: map[string]Item{
		"line-1":  {Label: "Thesis", Done: true, Minutes: intPtr(90)},
		"line-2":  {Label: "Email", Done: false, Minutes: intPtr(15)},
		"line-3":  {Label: "", Done: true},
		"line-10": {Label: "Gym", Done: true, Minutes: intPtr(-5)},
	}}

	tl := d.Tally()
	assert.Equal(t, 3, tl.DoneCount)
	assert.Equal(t, 4, tl.Total)
	assert.Equal(t, []string{"Thesis", "(item)", "Gym"}, tl.DoneLabels)
	assert.Equal(t, 105, tl.MinutesTotal)
	assert.True(t, tl.AnyTimeLogged)

	empty := Draft{}.Tally()
	assert.Zero(t, empty.Total)
	assert.False(t, empty.AnyTimeLogged)
	assert.NotNil(t, empty.DoneLabels)
}

func TestReflectionLength(t *testing.T) {
	assert.Equal(t, 0, ReflectionLength("   \n\t"))
	assert.Equal(t, 3, ReflectionLength("  abc  "))
	// multi-byte characters count once each
	assert.Equal(t, 4, ReflectionLength("日本語!"))
}

func TestUpsertHistory(t *testing.T) {
	t.Run("same day replaces", func(t *testing.T) {
		h := []HistoryEntry{{Day: "2026-01-01", Rating: RatingBad}}
		out := UpsertHistory(h, HistoryEntry{Day: "2026-01-01", Rating: RatingGood}, 30)
		require.Len(t, out, 1)
		assert.Equal(t, RatingGood, out[0].Rating)
		assert.Equal(t, RatingBad, h[0].Rating, "input must not be mutated")
	})

	t.Run("sorted unique capped", func(t *testing.T) {
		var h []HistoryEntry
		base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		// insert 45 days out of order, with duplicates
		for i := 44; i >= 0; i-- {
			day := base.AddDate(0, 0, i).Format("2006-01-02")
			h = UpsertHistory(h, HistoryEntry{Day: day, DoneCount: i}, 30)
			h = UpsertHistory(h, HistoryEntry{Day: day, DoneCount: i + 100}, 30)
		}
		require.Len(t, h, 30)
		seen := map[string]bool{}
		for i, e := range h {
			assert.False(t, seen[e.Day], "duplicate day %s", e.Day)
			seen[e.Day] = true
			if i > 0 {
				assert.Less(t, h[i-1].Day, e.Day)
			}
		}
		assert.Equal(t, base.AddDate(0, 0, 44).Format("2006-01-02"), h[29].Day)
		assert.Equal(t, 144, h[29].DoneCount)
	})

	t.Run("non-positive limit uses default", func(t *testing.T) {
		var h []HistoryEntry
		for i := 0; i < 40; i++ {
			h = UpsertHistory(h, HistoryEntry{Day: fmt.Sprintf("2026-02-%02d", i)}, 0)
		}
		assert.Len(t, h, DefaultHistoryLimit)
	})

	t.Run("limit above the cap is clamped", func(t *testing.T) {
		var h []HistoryEntry
		for i := 1; i <= 40; i++ {
			h = UpsertHistory(h, HistoryEntry{Day: fmt.Sprintf("2026-03-%02d", i)}, 45)
		}
		assert.Len(t, h, DefaultHistoryLimit)
		assert.Equal(t, "2026-03-40", h[len(h)-1].Day)
	})
}

func TestClampHistoryLimit(t *testing.T) {
	assert.Equal(t, DefaultHistoryLimit, ClampHistoryLimit(0))
	assert.Equal(t, DefaultHistoryLimit, ClampHistoryLimit(-3))
	assert.Equal(t, 7, ClampHistoryLimit(7))
	assert.Equal(t, DefaultHistoryLimit, ClampHistoryLimit(45))
}

func TestStateNewest(t *testing.T) {
	s := State{History: []HistoryEntry{{Day: "a"}, {Day: "b"}, {Day: "c"}}}
	got := s.Newest(2)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].Day)
	assert.Equal(t, "b", got[1].Day)
	assert.Len(t, s.Newest(0), 3)
}

func TestStateJSONShape(t *testing.T) {
	s := State{Streak: 3, LastRating: RatingFair, LastMode: ModeRecovery, History: []HistoryEntry{}}
	b, err := json.Marshal(s)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Equal(t, "fair", raw["lastRating"])
	assert.Equal(t, "recovery", raw["lastMode"])
	assert.NotContains(t, raw, "lastStreakDate")

	var back State
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, s, back)
}
