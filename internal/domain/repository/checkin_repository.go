package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/YoshitsuguKoike/moltfocus/internal/domain/model/checkin"
)

// ErrCorruptRecord marks a stored record that exists but cannot be decoded
var ErrCorruptRecord = errors.New("corrupt record")

// CorruptRecordError carries the path and decode failure of a corrupt record.
// errors.Is(err, ErrCorruptRecord) holds for it.
type CorruptRecordError struct {
	Path string
	Err  error
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("corrupt record %s: %v", e.Path, e.Err)
}

func (e *CorruptRecordError) Unwrap() error { return e.Err }

// Is matches ErrCorruptRecord
func (e *CorruptRecordError) Is(target error) bool { return target == ErrCorruptRecord }

// DraftRepository persists the single check-in draft slot
type DraftRepository interface {
	// Load returns the stored draft. found is false when no draft exists.
	// Undecodable content is reported as an error wrapping ErrCorruptRecord.
	Load(ctx context.Context) (draft checkin.Draft, found bool, err error)

	// Save replaces the draft atomically
	Save(ctx context.Context, draft checkin.Draft) error
}

// StateRepository persists the workspace-wide derived State
type StateRepository interface {
	// Load returns the stored state, or the zero State when none exists
	Load(ctx context.Context) (checkin.State, error)

	// Save replaces the state atomically
	Save(ctx context.Context, state checkin.State) error
}

// ReflectionLogRepository is the rolling, newest-first markdown log
type ReflectionLogRepository interface {
	// Prepend inserts entry directly after the log preamble
	Prepend(ctx context.Context, entry string) error

	// Read returns the whole log, initialised with the preamble when missing
	Read(ctx context.Context) (string, error)
}

// PlanRepository stores the plan document and its previous snapshot
type PlanRepository interface {
	Current(ctx context.Context) (string, error)
	Previous(ctx context.Context) (string, error)

	// Save snapshots the current plan as the previous one, then writes content
	Save(ctx context.Context, content string) error

	// Changed reports whether the plan differs from its previous snapshot
	Changed(ctx context.Context) (bool, error)
}

// HistoryArchive keeps every finalized day, beyond State's capped history
type HistoryArchive interface {
	Record(ctx context.Context, entry checkin.HistoryEntry, summary string) error
	List(ctx context.Context, limit int) ([]ArchivedDay, error)
	Close() error
}

// ArchivedDay is one row of the history archive
type ArchivedDay struct {
	checkin.HistoryEntry
	Summary     string
	FinalizedAt string
}
