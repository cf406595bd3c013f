package fs

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLockerSerializes(t *testing.T, l Locker, path string) {
	t.Helper()
	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), path)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			assert.NoError(t, unlock())
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}

func TestMutexLockerSerializes(t *testing.T) {
	testLockerSerializes(t, NewMutexLocker(), "/planner/state.json")
}

func TestFileLockerSerializes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	testLockerSerializes(t, NewFileLocker(), path)
	assert.FileExists(t, LockPath(path))
}

func TestLockTimeout(t *testing.T) {
	for name, l := range map[string]Locker{
		"mutex": NewMutexLocker(),
		"file":  NewFileLocker(),
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "draft.json")
			unlock, err := l.Lock(context.Background(), path)
			require.NoError(t, err)
			defer unlock()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
			defer cancel()
			_, err = l.Lock(ctx, path)
			assert.True(t, errors.Is(err, ErrLockTimeout), "got %v", err)
		})
	}
}

func TestFileLockerTryLock(t *testing.T) {
	l := NewFileLocker()
	path := filepath.Join(t.TempDir(), "finalize")

	unlock, err := l.TryLock(path)
	require.NoError(t, err)

	_, err = l.TryLock(path)
	assert.True(t, errors.Is(err, ErrLocked))

	require.NoError(t, unlock())
	// releasing twice is harmless
	require.NoError(t, unlock())

	unlock2, err := l.TryLock(path)
	require.NoError(t, err)
	require.NoError(t, unlock2())
}
