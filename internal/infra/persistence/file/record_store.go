package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/moltfocus/internal/domain/repository"
	infrafs "github.com/YoshitsuguKoike/moltfocus/internal/infra/fs"
)

// ErrCorruptRecord marks persisted data that exists but cannot be decoded
var ErrCorruptRecord = repository.ErrCorruptRecord

// CorruptRecordError carries the path and decode failure of a corrupt record
type CorruptRecordError = repository.CorruptRecordError

// DefaultLockTimeout bounds how long a writer waits for a resource lock
const DefaultLockTimeout = 5 * time.Second

// EntryMarker separates the reflections preamble from the entries
const EntryMarker = "---\n\n"

// Store is the durable record store. Every write goes through
// WriteFileAtomic while an exclusive per-resource lock is held; reads take
// no lock and rely on the atomic rename.
type Store struct {
	fs          afero.Fs
	locker      infrafs.Locker
	lockTimeout time.Duration
}

// Option configures a Store
type Option func(*Store)

// WithLocker overrides the lock implementation
func WithLocker(l infrafs.Locker) Option {
	return func(s *Store) { s.locker = l }
}

// WithLockTimeout overrides DefaultLockTimeout
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) { s.lockTimeout = d }
}

// NewStore creates a store over fs. On the OS filesystem writers are
// excluded with lock files; on any other afero.Fs an in-process lock is used.
func NewStore(fs afero.Fs, opts ...Option) *Store {
	s := &Store{fs: fs, lockTimeout: DefaultLockTimeout}
	for _, opt := range opts {
		opt(s)
	}
	if s.locker == nil {
		if IsOsFs(fs) {
			s.locker = infrafs.NewFileLocker()
		} else {
			s.locker = infrafs.NewMutexLocker()
		}
	}
	return s
}

// Fs returns the underlying filesystem
func (s *Store) Fs() afero.Fs {
	return s.fs
}

// ReadJSON decodes path into v. A missing or blank file leaves v untouched
// and reports found == false. Undecodable content is a CorruptRecordError.
func (s *Store) ReadJSON(path string, v any) (found bool, err error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, &CorruptRecordError{Path: path, Err: err}
	}
	return true, nil
}

// WriteJSONAtomic encodes v as indented JSON with a trailing newline and
// replaces path atomically
func (s *Store) WriteJSONAtomic(ctx context.Context, path string, v any) error {
	b, err := EncodeJSON(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	return s.write(ctx, path, b)
}

// EncodeJSON is the on-disk JSON form used by WriteJSONAtomic
func EncodeJSON(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// ReadText returns the file content, or "" when path does not exist
func (s *Store) ReadText(path string) (string, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// Exists reports whether path exists
func (s *Store) Exists(path string) (bool, error) {
	return afero.Exists(s.fs, path)
}

// WriteTextAtomic replaces path with content atomically
func (s *Store) WriteTextAtomic(ctx context.Context, path, content string) error {
	return s.write(ctx, path, []byte(content))
}

// UpdateText runs a read-modify-write of path under the resource lock, so
// concurrent updaters cannot lose each other's changes.
func (s *Store) UpdateText(ctx context.Context, path string, fn func(current string) (string, error)) error {
	unlock, err := s.lock(ctx, path)
	if err != nil {
		return err
	}
	defer unlock()

	current, err := s.ReadText(path)
	if err != nil {
		return err
	}
	next, err := fn(current)
	if err != nil {
		return err
	}
	if err := WriteFileAtomic(s.fs, path, []byte(next)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// PrependEntry inserts entry right after the preamble marker of the log at
// path, so the newest entry comes first. A blank log is initialised with
// preamble first.
func (s *Store) PrependEntry(ctx context.Context, path, preamble, entry string) error {
	return s.UpdateText(ctx, path, func(current string) (string, error) {
		return PrependAfterMarker(current, preamble, entry), nil
	})
}

// PrependAfterMarker is the pure text transform behind PrependEntry
func PrependAfterMarker(existing, preamble, entry string) string {
	if strings.TrimSpace(existing) == "" {
		existing = preamble
	}
	entry = strings.TrimSpace(entry)

	idx := strings.Index(existing, EntryMarker)
	if idx == -1 {
		return entry + "\n\n" + existing
	}
	head := existing[:idx+len(EntryMarker)]
	tail := strings.TrimLeftFunc(existing[idx+len(EntryMarker):], unicode.IsSpace)
	return head + "\n" + entry + "\n\n" + tail
}

func (s *Store) write(ctx context.Context, path string, data []byte) error {
	unlock, err := s.lock(ctx, path)
	if err != nil {
		return err
	}
	defer unlock()

	if err := WriteFileAtomic(s.fs, path, data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Lock takes the writer lock of path, for callers that replace the file
// by other means than this store
func (s *Store) Lock(ctx context.Context, path string) (unlock func() error, err error) {
	return s.lock(ctx, path)
}

func (s *Store) lock(ctx context.Context, path string) (func() error, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.lockTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.lockTimeout)
		defer cancel()
	}
	unlock, err := s.locker.Lock(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	return unlock, nil
}
