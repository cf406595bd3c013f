package finalize

import (
	"errors"
	"fmt"

	"github.com/YoshitsuguKoike/moltfocus/internal/domain/repository"
)

// IntegrityError reports persisted State or Draft data that exists but
// cannot be decoded. It is never confused with the no-draft outcome.
type IntegrityError struct {
	Resource string
	Path     string
	Err      error
}

func (e *IntegrityError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("data integrity: %s is corrupt: %v", e.Resource, e.Err)
	}
	return fmt.Sprintf("data integrity: %s (%s) is corrupt: %v", e.Resource, e.Path, e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// StorageError reports an I/O failure while reading or writing a resource
type StorageError struct {
	Resource string
	Op       string
	Err      error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Resource, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// classify turns a repository error into IntegrityError or StorageError
func classify(resource, op string, err error) error {
	var corrupt *repository.CorruptRecordError
	if errors.As(err, &corrupt) {
		return &IntegrityError{Resource: resource, Path: corrupt.Path, Err: err}
	}
	if errors.Is(err, repository.ErrCorruptRecord) {
		return &IntegrityError{Resource: resource, Err: err}
	}
	return &StorageError{Resource: resource, Op: op, Err: err}
}

// IsIntegrity reports whether err is (or wraps) an IntegrityError
func IsIntegrity(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}
