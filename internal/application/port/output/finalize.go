package output

import (
	"context"
	"fmt"
	"time"

	"github.com/YoshitsuguKoike/moltfocus/internal/domain/model/checkin"
)

// FinalizeWrite is everything one finalization persists
type FinalizeWrite struct {
	Day   string
	Entry string        // rendered log entry, prepended to the reflections log
	State checkin.State // State after streak advance and history upsert
	Draft checkin.Draft // cleared draft stamped with the finalized day
}

// FinalizeWriter persists a FinalizeWrite. Implementations decide whether
// the three resources are written one by one (each atomically) or as one
// journaled transaction.
type FinalizeWriter interface {
	Persist(ctx context.Context, w FinalizeWrite) error
}

// Resources written by a finalization
const (
	ResourceLog   = "reflections"
	ResourceState = "state"
	ResourceDraft = "draft"
)

// WriteError reports which resource a FinalizeWriter failed on
type WriteError struct {
	Resource string
	Err      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Resource, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Finalize journal outcomes
const (
	OutcomePersisted = "persisted"
	OutcomeNoDraft   = "no-draft"
	OutcomeError     = "error"
	OutcomeRecovered = "recovered" // completed by startup recovery
)

// FinalizeRecord is one line of the finalize journal
type FinalizeRecord struct {
	ID        string    `json:"id"`
	TS        time.Time `json:"ts"`
	Day       string    `json:"day"`
	Outcome   string    `json:"outcome"`
	Rating    string    `json:"rating,omitempty"`
	Streak    int       `json:"streak"`
	Counted   bool      `json:"counted"`
	ElapsedMs int64     `json:"elapsed_ms"`
	Error     string    `json:"error,omitempty"`
}

// FinalizeJournal records every finalize invocation
type FinalizeJournal interface {
	Append(ctx context.Context, rec FinalizeRecord) error
}

// Clock supplies the current instant and the workspace-local calendar day.
// Callers that need both read Now once and derive the day with DayOf.
type Clock interface {
	Now() time.Time
	Today() string
	DayOf(t time.Time) string
}
