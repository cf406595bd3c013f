package txn

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/YoshitsuguKoike/moltfocus/internal/infra/fs"
)

// Scanner finds transaction directories and classifies them by marker.
// It is used at startup to detect incomplete transactions.
type Scanner struct {
	BaseDir string
}

// NewScanner creates a new transaction scanner.
func NewScanner(baseDir string) *Scanner {
	return &Scanner{BaseDir: baseDir}
}

// ScanResult represents the result of a transaction scan.
type ScanResult struct {
	TotalFound int

	// Transactions with intent but no commit (need forward recovery)
	IntentOnly []TxnID

	// Transactions with commit marker (can be cleaned up)
	Committed []TxnID

	// Transactions with a manifest or stage area but no intent
	Incomplete []TxnID

	// Transactions with no markers at all
	Abandoned []TxnID

	ScannedAt time.Time
}

// Scan classifies every transaction directory directly under BaseDir.
// A missing BaseDir is a clean state.
func (s *Scanner) Scan() (*ScanResult, error) {
	result := &ScanResult{
		IntentOnly: []TxnID{},
		Committed:  []TxnID{},
		Incomplete: []TxnID{},
		Abandoned:  []TxnID{},
		ScannedAt:  time.Now().UTC(),
	}

	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return result, nil
		}
		return result, fmt.Errorf("failed to scan transaction directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		txnID := TxnID(e.Name())
		result.TotalFound++

		switch checkTransactionState(filepath.Join(s.BaseDir, e.Name())) {
		case StatusCommit:
			result.Committed = append(result.Committed, txnID)
		case StatusIntent:
			result.IntentOnly = append(result.IntentOnly, txnID)
			fs.GetLogger().Warn("transaction %s has intent but no commit (needs forward recovery)", txnID)
		case StatusPending:
			result.Incomplete = append(result.Incomplete, txnID)
		default:
			result.Abandoned = append(result.Abandoned, txnID)
		}
	}

	if result.TotalFound > 0 {
		fs.GetLogger().Debug("txn scan: %d found, intent-only [%s], incomplete [%s], abandoned [%s], committed [%s]",
			result.TotalFound, formatTxnIDs(result.IntentOnly), formatTxnIDs(result.Incomplete),
			formatTxnIDs(result.Abandoned), formatTxnIDs(result.Committed))
	}

	return result, nil
}

// checkTransactionState determines the state of a transaction directory
// from its markers. The empty status means no marker at all.
func checkTransactionState(txnDir string) Status {
	switch {
	case fileExists(filepath.Join(txnDir, CommitFile)):
		return StatusCommit
	case fileExists(filepath.Join(txnDir, IntentFile)):
		return StatusIntent
	case fileExists(filepath.Join(txnDir, ManifestFile)) || dirExists(filepath.Join(txnDir, StageDirName)):
		return StatusPending
	default:
		return ""
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// formatTxnIDs formats transaction IDs for logging.
func formatTxnIDs(ids []TxnID) string {
	if len(ids) == 0 {
		return "none"
	}
	n := len(ids)
	if n > 3 {
		n = 3
	}
	strs := make([]string, n)
	for i := 0; i < n; i++ {
		strs[i] = string(ids[i])
	}
	if len(ids) > 3 {
		return fmt.Sprintf("%s... (%d total)", strings.Join(strs, ", "), len(ids))
	}
	return strings.Join(strs, ", ")
}
