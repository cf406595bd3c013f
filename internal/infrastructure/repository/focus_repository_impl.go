package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/YoshitsuguKoike/moltfocus/internal/infra/persistence/file"
)

// FocusRepositoryImpl stores the free-form focus note as JSON
type FocusRepositoryImpl struct {
	store *file.Store
	path  string
}

// NewFocusRepositoryImpl creates a focus repository for path
func NewFocusRepositoryImpl(store *file.Store, path string) *FocusRepositoryImpl {
	return &FocusRepositoryImpl{store: store, path: path}
}

// Load returns the stored note, or an empty map
func (r *FocusRepositoryImpl) Load(ctx context.Context) (map[string]any, error) {
	note := map[string]any{}
	if _, err := r.store.ReadJSON(r.path, &note); err != nil {
		return nil, fmt.Errorf("failed to load focus: %w", err)
	}
	return note, nil
}

// Save stores payload with updatedAt set to now
func (r *FocusRepositoryImpl) Save(ctx context.Context, payload map[string]any, now time.Time) error {
	note := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		note[k] = v
	}
	note["updatedAt"] = now.Format(time.RFC3339)
	if err := r.store.WriteJSONAtomic(ctx, r.path, note); err != nil {
		return fmt.Errorf("failed to save focus: %w", err)
	}
	return nil
}
