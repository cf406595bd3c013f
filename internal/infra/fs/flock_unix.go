//go:build !windows
// +build !windows

package fs

import (
	"errors"
	"os"
	"syscall"
)

// flockTryExclusive attempts an exclusive lock without blocking.
// It returns errWouldBlock when another holder owns the lock.
func flockTryExclusive(f *os.File) error {
	err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if errors.Is(err, syscall.EWOULDBLOCK) {
		return errWouldBlock
	}
	return err
}

// flockUnlock releases the lock on f
func flockUnlock(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}
