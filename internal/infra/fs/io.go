package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// FsyncFile flushes file contents to stable storage
func FsyncFile(f *os.File) error {
	if f == nil {
		return fmt.Errorf("FsyncFile: file is nil")
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("FsyncFile: failed to sync file %s: %w", f.Name(), err)
	}
	return nil
}

// FsyncDir flushes directory metadata. Call it after a rename so the new
// directory entry survives a crash.
func FsyncDir(dirPath string) error {
	if dirPath == "" {
		return fmt.Errorf("FsyncDir: directory path is empty")
	}

	dir, err := os.Open(dirPath)
	if err != nil {
		return fmt.Errorf("FsyncDir: failed to open directory %s: %w", dirPath, err)
	}
	defer dir.Close()

	if err := dir.Sync(); err != nil {
		return fmt.Errorf("FsyncDir: failed to sync directory %s: %w", dirPath, err)
	}
	return nil
}

// AtomicRename renames src over dst and syncs dst's parent directory.
// src and dst must live on the same filesystem.
func AtomicRename(src, dst string) error {
	if src == "" {
		return fmt.Errorf("atomic rename: source path is empty")
	}
	if dst == "" {
		return fmt.Errorf("atomic rename: destination path is empty")
	}

	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("atomic rename %s -> %s: source does not exist: %w", src, dst, err)
	}

	parentDir := filepath.Dir(dst)
	if err := os.MkdirAll(parentDir, 0o755); err != nil {
		return fmt.Errorf("atomic rename %s -> %s: failed to create parent dir: %w", src, dst, err)
	}

	if err := os.Rename(src, dst); err != nil {
		if errors.Is(err, syscall.EXDEV) {
			return fmt.Errorf("atomic rename %s -> %s: cross-filesystem rename not supported (EXDEV): %w", src, dst, err)
		}
		return fmt.Errorf("atomic rename %s -> %s: %w", src, dst, err)
	}

	if err := FsyncDir(parentDir); err != nil {
		return fmt.Errorf("atomic rename %s -> %s: rename succeeded but parent sync failed: %w", src, dst, err)
	}
	return nil
}

// WriteFileSync writes data to path through a temp file in the same
// directory: write, fsync(file), rename, fsync(dir). The temp file is
// removed on every failure path and the previous content of path is left
// untouched.
func WriteFileSync(path string, data []byte, perm os.FileMode) error {
	if path == "" {
		return fmt.Errorf("write file sync: path is empty")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("write file sync %s: failed to create parent dir: %w", path, err)
	}

	if perm == 0 {
		perm = 0o644
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("write file sync %s: failed to create temp file: %w", path, err)
	}
	tempFile := f.Name()
	defer func() {
		f.Close()
		os.Remove(tempFile)
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write file sync %s: failed to write data: %w", path, err)
	}
	if err := f.Chmod(perm); err != nil {
		return fmt.Errorf("write file sync %s: failed to chmod temp file: %w", path, err)
	}
	if err := FsyncFile(f); err != nil {
		return fmt.Errorf("write file sync %s: failed to sync file: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write file sync %s: failed to close file: %w", path, err)
	}

	if err := AtomicRename(tempFile, path); err != nil {
		return fmt.Errorf("write file sync %s: %w", path, err)
	}
	return nil
}
