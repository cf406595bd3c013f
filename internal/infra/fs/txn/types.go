package txn

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// TxnID represents a unique transaction identifier.
// Format: "txn_<ulid>", sortable by creation time.
type TxnID string

// Status represents the current state of a transaction.
type Status string

const (
	// StatusPending indicates files are being staged
	StatusPending Status = "pending"

	// StatusIntent indicates all files are staged and ready to commit
	StatusIntent Status = "intent"

	// StatusCommit indicates transaction has been successfully committed
	StatusCommit Status = "commit"

	// StatusAborted indicates transaction was explicitly aborted
	StatusAborted Status = "aborted"
)

// Marker and layout names inside a transaction directory
const (
	ManifestFile = "manifest.json"
	IntentFile   = "status.intent"
	CommitFile   = "status.commit"
	StageDirName = "stage"
)

// FileOperation is one file replaced by a transaction
type FileOperation struct {
	// Destination path, relative to the commit root
	Destination string `json:"destination"`

	Size     int64         `json:"size"`
	Mode     uint32        `json:"mode,omitempty"`
	Checksum *FileChecksum `json:"checksum,omitempty"`
}

// Manifest represents the transaction plan.
type Manifest struct {
	ID          TxnID             `json:"id"`
	Description string            `json:"description"`
	Files       []FileOperation   `json:"files"`
	CreatedAt   time.Time         `json:"created_at"`
	Meta        map[string]string `json:"meta,omitempty"`
}

// Validate checks that the manifest can be committed: it has an ID, and
// every destination is a unique, clean path inside the commit root.
func (m *Manifest) Validate() error {
	if m.ID == "" {
		return errors.New("manifest has no id")
	}
	if len(m.Files) == 0 {
		return errors.New("manifest has no files")
	}
	seen := make(map[string]bool, len(m.Files))
	for _, op := range m.Files {
		if err := ValidateDestination(op.Destination); err != nil {
			return err
		}
		if seen[op.Destination] {
			return fmt.Errorf("duplicate destination %s", op.Destination)
		}
		seen[op.Destination] = true
	}
	return nil
}

// ValidateDestination rejects absolute paths and paths escaping the root
func ValidateDestination(dst string) error {
	if dst == "" {
		return errors.New("empty destination")
	}
	if filepath.IsAbs(dst) {
		return fmt.Errorf("destination %s must be relative", dst)
	}
	clean := filepath.Clean(dst)
	if clean != dst {
		return fmt.Errorf("destination %s is not clean (want %s)", dst, clean)
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("destination %s escapes the commit root", dst)
	}
	return nil
}

// Intent represents the ready-to-commit state marker.
// This file's presence indicates all staging is complete.
type Intent struct {
	TxnID     TxnID             `json:"txn_id"`
	MarkedAt  time.Time         `json:"marked_at"`
	Checksums map[string]string `json:"checksums"`
	Ready     bool              `json:"ready"`
}

// Commit represents the successful completion marker.
type Commit struct {
	TxnID          TxnID     `json:"txn_id"`
	CommittedAt    time.Time `json:"committed_at"`
	CommittedFiles []string  `json:"committed_files"`
	Success        bool      `json:"success"`
}

// Transaction represents the complete transaction state.
type Transaction struct {
	Manifest *Manifest `json:"manifest"`
	Status   Status    `json:"status"`
	Intent   *Intent   `json:"intent,omitempty"`
	Commit   *Commit   `json:"commit,omitempty"`

	// BaseDir is <txn root>/<id>, StageDir is <BaseDir>/stage
	BaseDir  string `json:"base_dir"`
	StageDir string `json:"stage_dir"`
}

// TxnError represents transaction-specific errors.
type TxnError struct {
	TxnID       TxnID
	Operation   string
	Err         error
	Recoverable bool
}

// Error implements the error interface.
func (e *TxnError) Error() string {
	recovery := "unrecoverable"
	if e.Recoverable {
		recovery = "recoverable"
	}
	return fmt.Sprintf("transaction %s: %s failed (%s): %v",
		e.TxnID, e.Operation, recovery, e.Err)
}

// Unwrap returns the underlying error.
func (e *TxnError) Unwrap() error {
	return e.Err
}
