package checkin

import (
	"fmt"
	"strings"
)

// Rating is the coarse daily-progress score. Values are ordered so that
// a larger Rating is a better day.
type Rating uint8

const (
	// RatingNone means no day has been rated yet
	RatingNone Rating = iota
	RatingBad
	RatingFair
	RatingGood
)

// ParseRating parses the wire name of a rating ("good", "fair", "bad").
// The empty string yields RatingNone.
func ParseRating(s string) (Rating, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "good":
		return RatingGood, nil
	case "fair":
		return RatingFair, nil
	case "bad":
		return RatingBad, nil
	case "":
		return RatingNone, nil
	default:
		return RatingNone, fmt.Errorf("unknown rating %q", s)
	}
}

// String returns the lower-case wire name
func (r Rating) String() string {
	switch r {
	case RatingGood:
		return "good"
	case RatingFair:
		return "fair"
	case RatingBad:
		return "bad"
	default:
		return ""
	}
}

// Title returns the capitalized label used in summaries ("Good")
func (r Rating) Title() string {
	switch r {
	case RatingGood:
		return "Good"
	case RatingFair:
		return "Fair"
	case RatingBad:
		return "Bad"
	default:
		return ""
	}
}

// MarshalText implements encoding.TextMarshaler
func (r Rating) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (r *Rating) UnmarshalText(b []byte) error {
	v, err := ParseRating(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
