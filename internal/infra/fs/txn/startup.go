package txn

import (
	"context"
	"fmt"
)

// RunStartupRecovery performs transaction recovery for txnBaseDir before
// any writer starts. Transactions are committed relative to destRoot.
func RunStartupRecovery(ctx context.Context, txnBaseDir, destRoot string, disableRecovery bool, onRecovered RecoveredFunc) (*RecoveryResult, error) {
	if disableRecovery {
		return &RecoveryResult{}, nil
	}

	cfg := DefaultRecoveryConfig()
	cfg.OnRecovered = onRecovered
	recovery := NewRecoveryWithConfig(NewManager(txnBaseDir), destRoot, cfg)

	result, err := recovery.RecoverAll(ctx)
	if err != nil {
		return result, fmt.Errorf("startup recovery failed: %w", err)
	}
	return result, nil
}
