package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/YoshitsuguKoike/moltfocus/internal/infra/persistence/file"
)

// ReflectionPreamble starts every reflections log. Entries go right after
// its trailing marker, newest first.
const ReflectionPreamble = "# Reflections (rolling)\n\nAppend newest entries at the top.\n\n" + file.EntryMarker

// ReflectionLogRepositoryImpl implements repository.ReflectionLogRepository
type ReflectionLogRepositoryImpl struct {
	store *file.Store
	path  string
}

// NewReflectionLogRepositoryImpl creates a log repository for path
func NewReflectionLogRepositoryImpl(store *file.Store, path string) *ReflectionLogRepositoryImpl {
	return &ReflectionLogRepositoryImpl{store: store, path: path}
}

// Path returns the log file path
func (r *ReflectionLogRepositoryImpl) Path() string {
	return r.path
}

// Prepend inserts entry right after the preamble
func (r *ReflectionLogRepositoryImpl) Prepend(ctx context.Context, entry string) error {
	if err := r.store.PrependEntry(ctx, r.path, ReflectionPreamble, entry); err != nil {
		return fmt.Errorf("failed to prepend reflection: %w", err)
	}
	return nil
}

// Read returns the log; a missing or blank log reads as the bare preamble
func (r *ReflectionLogRepositoryImpl) Read(ctx context.Context) (string, error) {
	text, err := r.store.ReadText(r.path)
	if err != nil {
		return "", fmt.Errorf("failed to read reflections: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return ReflectionPreamble, nil
	}
	return text, nil
}
