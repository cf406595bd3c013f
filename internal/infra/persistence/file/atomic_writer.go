package file

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	infrafs "github.com/YoshitsuguKoike/moltfocus/internal/infra/fs"
)

// tempPattern names temp files ".<base>.tmp-<random>" next to the target
func tempPattern(path string) string {
	return "." + filepath.Base(path) + ".tmp-*"
}

// WriteFileAtomic writes data to a file atomically using temp file + rename.
// The temp file lives in the target's directory, is synced before the
// rename, and is removed on every failure path so the previous content of
// path stays intact. On the OS filesystem the parent directory is synced
// after the rename as well.
func WriteFileAtomic(fs afero.Fs, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmpFile, err := afero.TempFile(fs, dir, tempPattern(path))
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	renamed := false
	defer func() {
		if !renamed {
			fs.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := fs.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}
	renamed = true

	if IsOsFs(fs) {
		if err := infrafs.FsyncDir(dir); err != nil {
			infrafs.GetLogger().Warn("fsync parent of %s failed: %v", path, err)
		}
	}

	return nil
}

// IsOsFs reports whether fs is the real operating system filesystem
func IsOsFs(fs afero.Fs) bool {
	_, ok := fs.(*afero.OsFs)
	return ok
}
