//go:build windows
// +build windows

package fs

import (
	"os"
)

// flockTryExclusive is a no-op on Windows; the in-process mutex held by
// FileLocker still serializes writers inside one process.
func flockTryExclusive(f *os.File) error {
	return nil
}

// flockUnlock is a no-op on Windows
func flockUnlock(f *os.File) error {
	return nil
}
