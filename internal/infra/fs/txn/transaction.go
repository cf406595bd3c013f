package txn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/YoshitsuguKoike/moltfocus/internal/infra/fs"
)

// Manager handles transaction lifecycle
type Manager struct {
	baseDir string // directory holding one subdirectory per transaction
}

// NewManager creates a new transaction manager
func NewManager(baseDir string) *Manager {
	return &Manager{
		baseDir: baseDir,
	}
}

// BaseDir returns the directory holding the transactions
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// Begin starts a new transaction
func (m *Manager) Begin(ctx context.Context, description string, meta map[string]string) (*Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	txnID := generateTxnID()
	txnDir := filepath.Join(m.baseDir, string(txnID))
	stageDir := filepath.Join(txnDir, StageDirName)

	if err := os.MkdirAll(stageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create stage directory: %w", err)
	}

	if err := fs.FsyncDir(m.baseDir); err != nil {
		fs.GetLogger().Warn("fsync txn base directory failed: %v", err)
	}

	tx := &Transaction{
		Manifest: &Manifest{
			ID:          txnID,
			Description: description,
			Files:       []FileOperation{},
			CreatedAt:   time.Now().UTC(),
			Meta:        meta,
		},
		Status:   StatusPending,
		BaseDir:  txnDir,
		StageDir: stageDir,
	}

	if err := m.saveManifest(tx); err != nil {
		return nil, fmt.Errorf("save manifest: %w", err)
	}

	return tx, nil
}

// StageFile writes content to the stage area under dst, a path relative to
// the commit root
func (m *Manager) StageFile(tx *Transaction, dst string, content []byte) error {
	if tx.Status != StatusPending {
		return fmt.Errorf("cannot stage file: transaction status is %s", tx.Status)
	}
	if err := ValidateDestination(dst); err != nil {
		return &TxnError{TxnID: tx.Manifest.ID, Operation: "stage", Err: err}
	}

	stagePath := filepath.Join(tx.StageDir, dst)
	if err := os.MkdirAll(filepath.Dir(stagePath), 0o755); err != nil {
		return fmt.Errorf("create stage parent directory: %w", err)
	}

	if err := fs.WriteFileSync(stagePath, content, 0o644); err != nil {
		return fmt.Errorf("write staged file: %w", err)
	}

	sum := ChecksumBytes(content)
	if err := ValidateFileChecksum(stagePath, sum); err != nil {
		return fmt.Errorf("staged file checksum validation failed: %w", err)
	}

	replaced := false
	for i := range tx.Manifest.Files {
		if tx.Manifest.Files[i].Destination == dst {
			tx.Manifest.Files[i] = FileOperation{Destination: dst, Size: sum.Size, Mode: 0o644, Checksum: sum}
			replaced = true
		}
	}
	if !replaced {
		tx.Manifest.Files = append(tx.Manifest.Files, FileOperation{
			Destination: dst,
			Size:        sum.Size,
			Mode:        0o644,
			Checksum:    sum,
		})
	}

	if err := m.saveManifest(tx); err != nil {
		return fmt.Errorf("update manifest: %w", err)
	}

	return nil
}

// MarkIntent marks the transaction as ready to commit. From here on the
// transaction is rolled forward by recovery.
func (m *Manager) MarkIntent(tx *Transaction) error {
	if tx.Status != StatusPending {
		return fmt.Errorf("cannot mark intent: transaction status is %s", tx.Status)
	}

	if err := tx.Manifest.Validate(); err != nil {
		return fmt.Errorf("invalid manifest: %w", err)
	}

	intent := &Intent{
		TxnID:     tx.Manifest.ID,
		MarkedAt:  time.Now().UTC(),
		Checksums: make(map[string]string, len(tx.Manifest.Files)),
		Ready:     true,
	}
	for _, op := range tx.Manifest.Files {
		if op.Checksum != nil {
			intent.Checksums[op.Destination] = op.Checksum.Value
		}
	}

	if err := writeMarker(filepath.Join(tx.BaseDir, IntentFile), intent); err != nil {
		return fmt.Errorf("write intent marker: %w", err)
	}

	tx.Status = StatusIntent
	tx.Intent = intent

	return nil
}

// Commit renames every staged file to destRoot/<destination>, runs
// withJournal and writes the commit marker.
//
// Commit is idempotent: an existing commit marker makes it a no-op, and a
// destination that already carries the staged checksum (a rename done
// before a crash) is skipped.
func (m *Manager) Commit(tx *Transaction, destRoot string, withJournal func() error) error {
	commitPath := filepath.Join(tx.BaseDir, CommitFile)
	if _, err := os.Stat(commitPath); err == nil {
		tx.Status = StatusCommit
		fs.GetLogger().Info("transaction %s already committed", tx.Manifest.ID)
		return nil
	}

	if tx.Status != StatusIntent {
		return fmt.Errorf("cannot commit: transaction status is %s", tx.Status)
	}

	if ok, err := sameDevice(tx.StageDir, destRoot); err == nil && !ok {
		return &TxnError{
			TxnID:     tx.Manifest.ID,
			Operation: "commit",
			Err:       fmt.Errorf("stage %s and root %s are on different filesystems", tx.StageDir, destRoot),
		}
	}

	// Phase 1: every file is either still staged intact, or already in place
	pending := make([]FileOperation, 0, len(tx.Manifest.Files))
	for _, op := range tx.Manifest.Files {
		stagePath := filepath.Join(tx.StageDir, op.Destination)
		err := ValidateFileChecksum(stagePath, op.Checksum)
		if err == nil {
			pending = append(pending, op)
			continue
		}
		if !errors.Is(err, os.ErrNotExist) {
			return &TxnError{TxnID: tx.Manifest.ID, Operation: "verify stage", Err: err, Recoverable: false}
		}
		finalPath := filepath.Join(destRoot, op.Destination)
		if ferr := ValidateFileChecksum(finalPath, op.Checksum); ferr != nil {
			return &TxnError{
				TxnID:     tx.Manifest.ID,
				Operation: "verify stage",
				Err:       fmt.Errorf("%s missing from stage and not in place: %w", op.Destination, ferr),
			}
		}
	}

	// Phase 2: rename staged files to final destinations
	for _, op := range pending {
		stagePath := filepath.Join(tx.StageDir, op.Destination)
		finalPath := filepath.Join(destRoot, op.Destination)

		finalDir := filepath.Dir(finalPath)
		if err := os.MkdirAll(finalDir, 0o755); err != nil {
			return fmt.Errorf("create final directory: %w", err)
		}

		if err := fs.AtomicRename(stagePath, finalPath); err != nil {
			return &TxnError{TxnID: tx.Manifest.ID, Operation: "rename", Err: err, Recoverable: true}
		}
	}

	// Phase 3: the journal is appended before the commit marker exists
	if withJournal != nil {
		if err := withJournal(); err != nil {
			return &TxnError{TxnID: tx.Manifest.ID, Operation: "journal", Err: err, Recoverable: true}
		}
	}

	// Phase 4: commit marker
	commit := &Commit{
		TxnID:          tx.Manifest.ID,
		CommittedAt:    time.Now().UTC(),
		CommittedFiles: make([]string, len(tx.Manifest.Files)),
		Success:        true,
	}
	for i, op := range tx.Manifest.Files {
		commit.CommittedFiles[i] = op.Destination
	}

	if err := writeMarker(commitPath, commit); err != nil {
		return fmt.Errorf("write commit marker: %w", err)
	}

	tx.Status = StatusCommit
	tx.Commit = commit

	return nil
}

// Rollback discards a transaction that has not been committed. Nothing
// outside the transaction directory is touched.
func (m *Manager) Rollback(tx *Transaction, reason string) error {
	if tx.Status == StatusCommit {
		return fmt.Errorf("cannot rollback committed transaction %s", tx.Manifest.ID)
	}

	fs.GetLogger().Info("rolling back transaction %s: %s", tx.Manifest.ID, reason)

	if err := os.RemoveAll(tx.BaseDir); err != nil {
		return fmt.Errorf("cleanup transaction directory: %w", err)
	}
	if err := fs.FsyncDir(m.baseDir); err != nil {
		fs.GetLogger().Warn("fsync after rollback cleanup failed: %v", err)
	}

	tx.Status = StatusAborted
	return nil
}

// Cleanup removes the work directory of a committed or aborted transaction
func (m *Manager) Cleanup(tx *Transaction) error {
	if tx.Status != StatusCommit && tx.Status != StatusAborted {
		return fmt.Errorf("cannot cleanup: transaction status is %s", tx.Status)
	}

	if err := os.RemoveAll(tx.BaseDir); err != nil {
		return fmt.Errorf("remove transaction directory: %w", err)
	}

	if err := fs.FsyncDir(m.baseDir); err != nil {
		fs.GetLogger().Warn("fsync after cleanup failed: %v", err)
	}

	return nil
}

// Load reconstructs a transaction from its directory
func (m *Manager) Load(id TxnID) (*Transaction, error) {
	txnDir := filepath.Join(m.baseDir, string(id))

	data, err := os.ReadFile(filepath.Join(txnDir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	tx := &Transaction{
		Manifest: &manifest,
		Status:   StatusPending,
		BaseDir:  txnDir,
		StageDir: filepath.Join(txnDir, StageDirName),
	}

	if data, err := os.ReadFile(filepath.Join(txnDir, IntentFile)); err == nil {
		var intent Intent
		if err := json.Unmarshal(data, &intent); err != nil {
			return nil, fmt.Errorf("parse intent: %w", err)
		}
		tx.Intent = &intent
		tx.Status = StatusIntent
	}
	if data, err := os.ReadFile(filepath.Join(txnDir, CommitFile)); err == nil {
		var commit Commit
		if err := json.Unmarshal(data, &commit); err != nil {
			return nil, fmt.Errorf("parse commit: %w", err)
		}
		tx.Commit = &commit
		tx.Status = StatusCommit
	}

	return tx, nil
}

func (m *Manager) saveManifest(tx *Transaction) error {
	return writeMarker(filepath.Join(tx.BaseDir, ManifestFile), tx.Manifest)
}

func writeMarker(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	return fs.WriteFileSync(path, data, 0o644)
}

// generateTxnID generates a unique, time-ordered transaction ID
func generateTxnID() TxnID {
	return TxnID("txn_" + ulid.Make().String())
}

// sameDevice reports whether two paths are on the same filesystem device.
// When either cannot be inspected it answers true and lets the rename decide.
func sameDevice(p1, p2 string) (bool, error) {
	s1, err := os.Stat(p1)
	if err != nil {
		return true, err
	}
	s2, err := os.Stat(p2)
	if err != nil {
		return true, err
	}
	return checkSameDevice(s1, s2)
}
