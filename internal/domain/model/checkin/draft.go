package checkin

import (
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// ReflectionThreshold is the trimmed reflection length (in characters) that
// counts as a "solid" reflection for rating and streak purposes.
const ReflectionThreshold = 30

// Item is one checklist entry of the day's plan
type Item struct {
	Label   string `json:"label"`
	Done    bool   `json:"done"`
	Comment string `json:"comment"`
	Minutes *int   `json:"minutes,omitempty"`
}

// LoggedMinutes returns the minutes logged against the item, or 0
func (i Item) LoggedMinutes() int {
	if i.Minutes == nil || *i.Minutes < 0 {
		return 0
	}
	return *i.Minutes
}

// Draft is the single mutable check-in record for one calendar day
type Draft struct {
	Day        string          `json:"day"`
	Mode       Mode            `json:"mode"`
	Items      map[string]Item `json:"items"`
	Reflection string          `json:"reflection"`
	UpdatedAt  string          `json:"updatedAt,omitempty"`
}

// NewDraft returns an empty draft stamped with day
func NewDraft(day string, now time.Time) Draft {
	return Draft{
		Day:       day,
		Mode:      ModeCommit,
		Items:     map[string]Item{},
		UpdatedAt: now.Format(time.RFC3339),
	}
}

// IsFor reports whether the draft belongs to day
func (d Draft) IsFor(day string) bool {
	return d.Day != "" && d.Day == day
}

// IsEmpty reports whether the draft carries no items and no reflection,
// as a freshly cleared draft does
func (d Draft) IsEmpty() bool {
	return len(d.Items) == 0 && strings.TrimSpace(d.Reflection) == ""
}

// ForDay returns d when it belongs to day, otherwise a fresh empty draft
// for day. Stale drafts are discarded, never carried over.
func (d Draft) ForDay(day string, now time.Time) Draft {
	if d.IsFor(day) {
		if d.Items == nil {
			d.Items = map[string]Item{}
		}
		return d
	}
	return NewDraft(day, now)
}

// Keys returns item keys in natural order ("line-2" before "line-10")
func (d Draft) Keys() []string {
	keys := make([]string, 0, len(d.Items))
	for k := range d.Items {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return naturalLess(keys[i], keys[j]) })
	return keys
}

// ReflectionLength is the character count of the trimmed reflection
func (d Draft) ReflectionLength() int {
	return ReflectionLength(d.Reflection)
}

// ReflectionLength counts characters (not bytes) after trimming whitespace
func ReflectionLength(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

// Tally is the aggregate view of a draft's items
type Tally struct {
	DoneCount     int
	Total         int
	DoneLabels    []string
	MinutesTotal  int
	AnyTimeLogged bool
}

// Tally counts done items, collects their labels in key order and sums
// logged minutes.
func (d Draft) Tally() Tally {
	t := Tally{Total: len(d.Items), DoneLabels: []string{}}
	for _, k := range d.Keys() {
		it := d.Items[k]
		t.MinutesTotal += it.LoggedMinutes()
		if it.Done {
			t.DoneCount++
			t.DoneLabels = append(t.DoneLabels, LabelOrDefault(it.Label))
		}
	}
	t.AnyTimeLogged = t.MinutesTotal > 0
	return t
}

// LabelOrDefault substitutes a placeholder for blank labels
func LabelOrDefault(label string) string {
	if strings.TrimSpace(label) == "" {
		return "(item)"
	}
	return label
}

// naturalLess orders strings by their non-digit prefix, then by the value
// of a trailing number, then lexically.
func naturalLess(a, b string) bool {
	ap, an, aok := splitNumericSuffix(a)
	bp, bn, bok := splitNumericSuffix(b)
	if aok && bok && ap == bp {
		if an != bn {
			return an < bn
		}
	}
	return a < b
}

func splitNumericSuffix(s string) (string, int, bool) {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	if i == len(s) {
		return s, 0, false
	}
	n, err := strconv.Atoi(s[i:])
	if err != nil {
		return s, 0, false
	}
	return s[:i], n, true
}
