package repository

import (
	"context"
	"fmt"

	"github.com/YoshitsuguKoike/moltfocus/internal/domain/model/checkin"
	"github.com/YoshitsuguKoike/moltfocus/internal/infra/persistence/file"
)

// DraftRepositoryImpl implements repository.DraftRepository on a JSON file
type DraftRepositoryImpl struct {
	store *file.Store
	path  string
}

// NewDraftRepositoryImpl creates a draft repository for path
func NewDraftRepositoryImpl(store *file.Store, path string) *DraftRepositoryImpl {
	return &DraftRepositoryImpl{store: store, path: path}
}

// Path returns the draft file path
func (r *DraftRepositoryImpl) Path() string {
	return r.path
}

// Load reads the draft. A missing or blank file is reported as not found.
func (r *DraftRepositoryImpl) Load(ctx context.Context) (checkin.Draft, bool, error) {
	var d checkin.Draft
	found, err := r.store.ReadJSON(r.path, &d)
	if err != nil {
		return checkin.Draft{}, false, fmt.Errorf("failed to load draft: %w", err)
	}
	if !found {
		return checkin.Draft{}, false, nil
	}
	if d.Items == nil {
		d.Items = map[string]checkin.Item{}
	}
	return d, true, nil
}

// Save replaces the draft atomically
func (r *DraftRepositoryImpl) Save(ctx context.Context, d checkin.Draft) error {
	if d.Items == nil {
		d.Items = map[string]checkin.Item{}
	}
	if err := r.store.WriteJSONAtomic(ctx, r.path, d); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}
