package checkin

import (
	"fmt"
	"strings"
)

// Mode is the scoring mode the user picked for the day.
// Recovery relaxes the rating threshold for low-capacity days.
type Mode uint8

const (
	ModeCommit Mode = iota
	ModeRecovery
)

// ParseMode normalizes free-form input. Anything unrecognized is Commit.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "recovery":
		return ModeRecovery
	default:
		return ModeCommit
	}
}

// String returns the lower-case wire name of the mode
func (m Mode) String() string {
	switch m {
	case ModeRecovery:
		return "recovery"
	case ModeCommit:
		return "commit"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// IsValid reports whether m is one of the declared modes
func (m Mode) IsValid() bool {
	switch m {
	case ModeCommit, ModeRecovery:
		return true
	default:
		return false
	}
}

// MarshalText implements encoding.TextMarshaler
func (m Mode) MarshalText() ([]byte, error) {
	if !m.IsValid() {
		return nil, fmt.Errorf("invalid mode %d", uint8(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
// It never fails: unknown values degrade to Commit.
func (m *Mode) UnmarshalText(b []byte) error {
	*m = ParseMode(string(b))
	return nil
}
