package transaction

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/YoshitsuguKoike/moltfocus/internal/application/port/output"
	"github.com/YoshitsuguKoike/moltfocus/internal/infra/fs/txn"
	"github.com/YoshitsuguKoike/moltfocus/internal/infra/persistence/file"
	"github.com/YoshitsuguKoike/moltfocus/internal/infrastructure/repository"
)

// FinalizeTargets are the absolute paths a finalization replaces
type FinalizeTargets struct {
	Root  string // commit root; every path below must live under it
	Log   string
	State string
	Draft string
}

// FinalizeTransactionService commits log, state and draft as one journaled
// transaction: all three are staged, an intent marker is written, then the
// files are renamed into place and a commit marker is written. A crash
// after the intent marker is rolled forward by startup recovery.
type FinalizeTransactionService struct {
	manager *txn.Manager
	store   *file.Store
	targets FinalizeTargets
	warnLog func(format string, args ...interface{})
}

// NewFinalizeTransactionService creates a journaled finalize writer.
// store supplies the per-resource locks and the current log content.
func NewFinalizeTransactionService(
	txnBaseDir string,
	store *file.Store,
	targets FinalizeTargets,
	warnLog func(format string, args ...interface{}),
) *FinalizeTransactionService {
	if warnLog == nil {
		warnLog = func(format string, args ...interface{}) {}
	}
	return &FinalizeTransactionService{
		manager: txn.NewManager(txnBaseDir),
		store:   store,
		targets: targets,
		warnLog: warnLog,
	}
}

// Persist implements output.FinalizeWriter
func (s *FinalizeTransactionService) Persist(ctx context.Context, fw output.FinalizeWrite) error {
	unlock, err := s.lockAll(ctx)
	if err != nil {
		return &output.WriteError{Resource: output.ResourceLog, Err: err}
	}
	defer unlock()

	current, err := s.store.ReadText(s.targets.Log)
	if err != nil {
		return &output.WriteError{Resource: output.ResourceLog, Err: err}
	}
	logText := file.PrependAfterMarker(current, repository.ReflectionPreamble, fw.Entry)

	stateJSON, err := file.EncodeJSON(fw.State)
	if err != nil {
		return &output.WriteError{Resource: output.ResourceState, Err: err}
	}
	draftJSON, err := file.EncodeJSON(fw.Draft)
	if err != nil {
		return &output.WriteError{Resource: output.ResourceDraft, Err: err}
	}

	staged := []struct {
		resource string
		path     string
		content  []byte
	}{
		{output.ResourceLog, s.targets.Log, []byte(logText)},
		{output.ResourceState, s.targets.State, stateJSON},
		{output.ResourceDraft, s.targets.Draft, draftJSON},
	}

	meta := map[string]string{"day": fw.Day, "rating": fw.State.LastRating.String()}
	tx, err := s.manager.Begin(ctx, "finalize "+fw.Day, meta)
	if err != nil {
		return &output.WriteError{Resource: output.ResourceLog, Err: fmt.Errorf("failed to begin transaction: %w", err)}
	}

	for _, f := range staged {
		rel, err := s.rel(f.path)
		if err == nil {
			err = s.manager.StageFile(tx, rel, f.content)
		}
		if err != nil {
			s.rollback(tx, err)
			return &output.WriteError{Resource: f.resource, Err: fmt.Errorf("failed to stage: %w", err)}
		}
	}

	if err := s.manager.MarkIntent(tx); err != nil {
		s.rollback(tx, err)
		return &output.WriteError{Resource: output.ResourceLog, Err: fmt.Errorf("failed to mark intent: %w", err)}
	}

	// past the intent marker the transaction belongs to recovery
	if err := s.manager.Commit(tx, s.targets.Root, nil); err != nil {
		return &output.WriteError{Resource: output.ResourceLog, Err: fmt.Errorf("failed to commit transaction: %w", err)}
	}

	if err := s.manager.Cleanup(tx); err != nil {
		s.warnLog("failed to cleanup transaction %s: %v", tx.Manifest.ID, err)
	}
	return nil
}

// lockAll takes the writer locks of all targets in path order
func (s *FinalizeTransactionService) lockAll(ctx context.Context) (func(), error) {
	paths := []string{s.targets.Log, s.targets.State, s.targets.Draft}
	sort.Strings(paths)

	var unlocks []func() error
	release := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			if err := unlocks[i](); err != nil {
				s.warnLog("unlock failed: %v", err)
			}
		}
	}
	for _, p := range paths {
		unlock, err := s.store.Lock(ctx, p)
		if err != nil {
			release()
			return nil, err
		}
		unlocks = append(unlocks, unlock)
	}
	return release, nil
}

func (s *FinalizeTransactionService) rel(path string) (string, error) {
	rel, err := filepath.Rel(s.targets.Root, path)
	if err != nil {
		return "", err
	}
	return rel, txn.ValidateDestination(rel)
}

func (s *FinalizeTransactionService) rollback(tx *txn.Transaction, cause error) {
	if err := s.manager.Rollback(tx, cause.Error()); err != nil {
		s.warnLog("failed to rollback transaction %s: %v", tx.Manifest.ID, err)
	}
}
