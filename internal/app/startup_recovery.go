package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/YoshitsuguKoike/moltfocus/internal/app/config"
	"github.com/YoshitsuguKoike/moltfocus/internal/application/port/output"
	infrafs "github.com/YoshitsuguKoike/moltfocus/internal/infra/fs"
	"github.com/YoshitsuguKoike/moltfocus/internal/infra/fs/txn"
)

// RunStartupRecovery rolls forward journaled finalizations interrupted
// after their intent marker. It holds the finalize lock while it runs; when
// another finalize holds it, the transactions may still be in flight and
// recovery is skipped. Each recovered finalize is recorded in journal when
// one is given.
func RunStartupRecovery(ctx context.Context, cfg config.Config, paths Paths, journal output.FinalizeJournal) (*txn.RecoveryResult, error) {
	if cfg != nil && cfg.DisableRecovery() {
		GetLogger().Info("Transaction recovery disabled")
		return &txn.RecoveryResult{}, nil
	}

	unlock, err := infrafs.NewFileLocker().TryLock(paths.FinalizeLock)
	if errors.Is(err, infrafs.ErrLocked) {
		GetLogger().Info("Finalize in progress, skipping transaction recovery")
		return &txn.RecoveryResult{Skipped: true}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("startup recovery: %w", err)
	}
	defer unlock()

	var onRecovered txn.RecoveredFunc
	if journal != nil {
		onRecovered = func(ctx context.Context, m *txn.Manifest) error {
			return journal.Append(ctx, output.FinalizeRecord{
				Day:     m.Meta["day"],
				Outcome: output.OutcomeRecovered,
				Rating:  m.Meta["rating"],
			})
		}
	}

	result, err := txn.RunStartupRecovery(ctx, paths.TxnDir, paths.Root, false, onRecovered)
	if err != nil {
		return result, fmt.Errorf("startup recovery failed: %w", err)
	}

	if result.RecoveredCount > 0 || result.CleanedCount > 0 || result.DiscardedCount > 0 {
		GetLogger().Info("Startup recovery completed: %d recovered, %d cleaned up, %d discarded",
			result.RecoveredCount, result.CleanedCount, result.DiscardedCount)
	}

	if len(result.Errors) > 0 {
		GetLogger().Warn("Recovery completed with %d errors", len(result.Errors))
		for _, err := range result.Errors {
			GetLogger().Warn("  - %v", err)
		}
	}

	return result, nil
}
