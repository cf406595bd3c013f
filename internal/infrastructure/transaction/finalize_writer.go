package transaction

import (
	"context"

	"github.com/YoshitsuguKoike/moltfocus/internal/application/port/output"
	"github.com/YoshitsuguKoike/moltfocus/internal/domain/repository"
)

// SequentialFinalizeWriter writes the log, then the state, then the draft,
// each with its own atomic replace. A failure stops the sequence; writes
// already done stay done.
type SequentialFinalizeWriter struct {
	log   repository.ReflectionLogRepository
	state repository.StateRepository
	draft repository.DraftRepository
}

// NewSequentialFinalizeWriter creates the default finalize writer
func NewSequentialFinalizeWriter(
	log repository.ReflectionLogRepository,
	state repository.StateRepository,
	draft repository.DraftRepository,
) *SequentialFinalizeWriter {
	return &SequentialFinalizeWriter{log: log, state: state, draft: draft}
}

// Persist implements output.FinalizeWriter
func (w *SequentialFinalizeWriter) Persist(ctx context.Context, fw output.FinalizeWrite) error {
	if err := w.log.Prepend(ctx, fw.Entry); err != nil {
		return &output.WriteError{Resource: output.ResourceLog, Err: err}
	}
	if err := w.state.Save(ctx, fw.State); err != nil {
		return &output.WriteError{Resource: output.ResourceState, Err: err}
	}
	if err := w.draft.Save(ctx, fw.Draft); err != nil {
		return &output.WriteError{Resource: output.ResourceDraft, Err: err}
	}
	return nil
}
