package fs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	// ErrLockTimeout is returned when a lock could not be acquired before the
	// caller's context expired
	ErrLockTimeout = errors.New("lock timeout")

	// ErrLocked is returned by TryLock when another holder owns the lock
	ErrLocked = errors.New("resource is locked")

	errWouldBlock = errors.New("lock would block")
)

// DefaultLockPollInterval is how often a contended flock is retried
const DefaultLockPollInterval = 10 * time.Millisecond

// Locker hands out exclusive, advisory locks keyed by resource path
type Locker interface {
	Lock(ctx context.Context, path string) (unlock func() error, err error)
}

// keyedMutex is a set of one-slot semaphores, one per key. Unlike
// sync.Mutex it can be waited on with a context.
type keyedMutex struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func (k *keyedMutex) slot(key string) chan struct{} {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.slots == nil {
		k.slots = make(map[string]chan struct{})
	}
	ch, ok := k.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		k.slots[key] = ch
	}
	return ch
}

func (k *keyedMutex) acquire(ctx context.Context, key string) (func(), error) {
	ch := k.slot(key)
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s: %v", ErrLockTimeout, key, ctx.Err())
	}
}

func (k *keyedMutex) tryAcquire(key string) (func(), bool) {
	ch := k.slot(key)
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, true
	default:
		return nil, false
	}
}

// MutexLocker serializes writers inside one process only. It backs
// in-memory filesystems where no lock file can be flocked.
type MutexLocker struct {
	keys keyedMutex
}

// NewMutexLocker creates an in-process locker
func NewMutexLocker() *MutexLocker {
	return &MutexLocker{}
}

// Lock implements Locker
func (l *MutexLocker) Lock(ctx context.Context, path string) (func() error, error) {
	release, err := l.keys.acquire(ctx, filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	return func() error { release(); return nil }, nil
}

// FileLocker takes an flock on "<path>.lock" so that writers in other
// processes are excluded too. Goroutines in this process are serialized by
// an in-process slot first.
type FileLocker struct {
	keys         keyedMutex
	PollInterval time.Duration
}

// NewFileLocker creates a locker backed by lock files on the OS filesystem
func NewFileLocker() *FileLocker {
	return &FileLocker{PollInterval: DefaultLockPollInterval}
}

// LockPath returns the lock file guarding path
func LockPath(path string) string {
	return path + ".lock"
}

// Lock implements Locker. It polls a non-blocking flock until it succeeds
// or ctx is done.
func (l *FileLocker) Lock(ctx context.Context, path string) (func() error, error) {
	key := filepath.Clean(path)
	release, err := l.keys.acquire(ctx, key)
	if err != nil {
		return nil, err
	}

	f, err := openLockFile(key)
	if err != nil {
		release()
		return nil, err
	}

	interval := l.PollInterval
	if interval <= 0 {
		interval = DefaultLockPollInterval
	}
	for {
		err := flockTryExclusive(f)
		if err == nil {
			break
		}
		if !errors.Is(err, errWouldBlock) {
			f.Close()
			release()
			return nil, fmt.Errorf("flock %s: %w", LockPath(key), err)
		}
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			f.Close()
			release()
			return nil, fmt.Errorf("%w: %s: %v", ErrLockTimeout, LockPath(key), ctx.Err())
		}
	}

	return unlockFunc(f, release), nil
}

// TryLock acquires the lock only if it is free right now, otherwise it
// returns ErrLocked.
func (l *FileLocker) TryLock(path string) (func() error, error) {
	key := filepath.Clean(path)
	release, ok := l.keys.tryAcquire(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, key)
	}

	f, err := openLockFile(key)
	if err != nil {
		release()
		return nil, err
	}
	if err := flockTryExclusive(f); err != nil {
		f.Close()
		release()
		if errors.Is(err, errWouldBlock) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, key)
		}
		return nil, fmt.Errorf("flock %s: %w", LockPath(key), err)
	}
	return unlockFunc(f, release), nil
}

func openLockFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir for %s: %w", path, err)
	}
	f, err := os.OpenFile(LockPath(path), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", LockPath(path), err)
	}
	return f, nil
}

func unlockFunc(f *os.File, release func()) func() error {
	var once sync.Once
	var err error
	return func() error {
		once.Do(func() {
			uerr := flockUnlock(f)
			cerr := f.Close()
			release()
			err = errors.Join(uerr, cerr)
		})
		return err
	}
}
