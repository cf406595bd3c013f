package txn

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/YoshitsuguKoike/moltfocus/internal/infra/fs"
)

// Recovery configuration constants
const (
	DefaultRecoveryTimeout = 30 * time.Second       // Maximum time for single transaction recovery
	DefaultTotalTimeout    = 5 * time.Minute        // Maximum time for complete recovery process
	DefaultMaxRetries      = 3                      // Maximum retry attempts per transaction
	DefaultRetryBaseDelay  = 100 * time.Millisecond // Base delay for exponential backoff
	DefaultRetryMaxDelay   = 2 * time.Second        // Maximum retry delay
)

// RecoveredFunc is called for every transaction rolled forward, before its
// commit marker is written
type RecoveredFunc func(ctx context.Context, m *Manifest) error

// Recovery handles transaction recovery operations
type Recovery struct {
	manager      *Manager
	destRoot     string
	onRecovered  RecoveredFunc
	timeout      time.Duration
	totalTimeout time.Duration
	maxRetries   int
	baseDelay    time.Duration
	maxDelay     time.Duration
}

// RecoveryConfig configures recovery behavior
type RecoveryConfig struct {
	Timeout      time.Duration
	TotalTimeout time.Duration
	MaxRetries   int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	OnRecovered  RecoveredFunc
}

// DefaultRecoveryConfig returns the default timeouts and retry policy
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		Timeout:      DefaultRecoveryTimeout,
		TotalTimeout: DefaultTotalTimeout,
		MaxRetries:   DefaultMaxRetries,
		BaseDelay:    DefaultRetryBaseDelay,
		MaxDelay:     DefaultRetryMaxDelay,
	}
}

// NewRecoveryWithConfig creates a new recovery handler with custom configuration
func NewRecoveryWithConfig(manager *Manager, destRoot string, config RecoveryConfig) *Recovery {
	return &Recovery{
		manager:      manager,
		destRoot:     destRoot,
		onRecovered:  config.OnRecovered,
		timeout:      config.Timeout,
		totalTimeout: config.TotalTimeout,
		maxRetries:   config.MaxRetries,
		baseDelay:    config.BaseDelay,
		maxDelay:     config.MaxDelay,
	}
}

// RecoveryResult contains the results of a recovery operation
type RecoveryResult struct {
	StartedAt      time.Time
	CompletedAt    time.Time
	Duration       time.Duration
	RecoveredCount int // intent without commit, rolled forward
	CleanedCount   int // committed, directory removed
	DiscardedCount int // never reached intent, directory removed
	FailedCount    int
	Skipped        bool // the finalize lock was held elsewhere; nothing was scanned
	Errors         []error
}

// RecoverAll rolls forward every transaction that reached intent, removes
// committed ones and discards those that never reached intent. Nothing of
// a discarded transaction was ever visible outside its directory.
func (r *Recovery) RecoverAll(ctx context.Context) (*RecoveryResult, error) {
	startTime := time.Now()
	result := &RecoveryResult{StartedAt: startTime, Errors: []error{}}

	totalCtx, cancel := context.WithTimeout(ctx, r.totalTimeout)
	defer cancel()

	scanResult, err := NewScanner(r.manager.baseDir).Scan()
	if err != nil {
		return result, fmt.Errorf("failed to scan transactions: %w", err)
	}

	for _, txnID := range scanResult.IntentOnly {
		if totalCtx.Err() != nil {
			result.Errors = append(result.Errors, errors.New("recovery cancelled due to timeout"))
			break
		}

		if err := r.recoverTransactionWithRetry(totalCtx, txnID); err != nil {
			result.FailedCount++
			result.Errors = append(result.Errors, fmt.Errorf("failed to recover %s: %w", txnID, err))
			fs.GetLogger().Error("failed to recover transaction %s: %v", txnID, err)
			continue
		}
		result.RecoveredCount++
		fs.GetLogger().Info("recovered transaction %s", txnID)
		// recovered transactions now carry a commit marker
		if err := r.removeTransaction(txnID); err == nil {
			result.CleanedCount++
		}
	}

	for _, txnID := range scanResult.Committed {
		if err := r.removeTransaction(txnID); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to cleanup %s: %w", txnID, err))
			fs.GetLogger().Warn("failed to cleanup transaction %s: %v", txnID, err)
			continue
		}
		result.CleanedCount++
	}

	for _, txnID := range append(scanResult.Incomplete, scanResult.Abandoned...) {
		txnDir := filepath.Join(r.manager.baseDir, string(txnID))
		if err := os.RemoveAll(txnDir); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to discard %s: %w", txnID, err))
			continue
		}
		result.DiscardedCount++
		fs.GetLogger().Info("discarded unfinished transaction %s", txnID)
	}

	result.CompletedAt = time.Now()
	result.Duration = result.CompletedAt.Sub(startTime)

	if scanResult.TotalFound > 0 {
		fs.GetLogger().Info("recovery complete: recovered=%d cleaned=%d discarded=%d failed=%d duration_ms=%d",
			result.RecoveredCount, result.CleanedCount, result.DiscardedCount, result.FailedCount,
			result.Duration.Milliseconds())
	}

	return result, nil
}

// recoverTransactionWithRetry performs forward recovery with retry logic
func (r *Recovery) recoverTransactionWithRetry(ctx context.Context, txnID TxnID) error {
	var lastErr error

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
		err := r.recoverTransaction(attemptCtx, txnID)
		cancel()

		if err == nil {
			return nil
		}
		lastErr = err

		// A transaction that cannot be verified will not verify on retry
		var txErr *TxnError
		if errors.As(err, &txErr) && !txErr.Recoverable {
			break
		}
		if attemptCtx.Err() != nil || ctx.Err() != nil {
			fs.GetLogger().Warn("recovery of %s timed out on attempt %d", txnID, attempt)
			break
		}

		if attempt < r.maxRetries {
			delay := r.baseDelay * time.Duration(1<<uint(attempt))
			if delay > r.maxDelay {
				delay = r.maxDelay
			}

			fs.GetLogger().Warn("recovery of %s failed, retrying in %dms: %v", txnID, delay.Milliseconds(), err)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("transaction recovery failed: %w", lastErr)
}

// recoverTransaction completes the commit of a single transaction
func (r *Recovery) recoverTransaction(ctx context.Context, txnID TxnID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tx, err := r.manager.Load(txnID)
	if err != nil {
		return err
	}
	if tx.Status == StatusCommit {
		return nil
	}
	if tx.Status != StatusIntent {
		return &TxnError{TxnID: txnID, Operation: "recover", Err: errors.New("no intent marker")}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	var journal func() error
	if r.onRecovered != nil {
		journal = func() error { return r.onRecovered(ctx, tx.Manifest) }
	}

	if err := r.manager.Commit(tx, r.destRoot, journal); err != nil {
		return fmt.Errorf("failed to complete commit during recovery: %w", err)
	}
	return nil
}

// removeTransaction removes a transaction directory that carries a commit marker
func (r *Recovery) removeTransaction(txnID TxnID) error {
	txnDir := filepath.Join(r.manager.baseDir, string(txnID))

	if _, err := os.Stat(filepath.Join(txnDir, CommitFile)); err != nil {
		return errors.New("cannot cleanup: no commit marker found")
	}

	if err := os.RemoveAll(txnDir); err != nil {
		return fmt.Errorf("failed to remove transaction directory: %w", err)
	}
	return nil
}
