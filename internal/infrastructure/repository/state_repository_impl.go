package repository

import (
	"context"
	"fmt"

	"github.com/YoshitsuguKoike/moltfocus/internal/domain/model/checkin"
	"github.com/YoshitsuguKoike/moltfocus/internal/infra/persistence/file"
)

// StateRepositoryImpl implements repository.StateRepository using file-based storage
type StateRepositoryImpl struct {
	store *file.Store
	path  string
}

// NewStateRepositoryImpl creates a new file-based state repository
func NewStateRepositoryImpl(store *file.Store, path string) *StateRepositoryImpl {
	return &StateRepositoryImpl{store: store, path: path}
}

// Path returns the state file path
func (r *StateRepositoryImpl) Path() string {
	return r.path
}

// Load retrieves the current state. A missing file yields the zero State.
func (r *StateRepositoryImpl) Load(ctx context.Context) (checkin.State, error) {
	var s checkin.State
	if _, err := r.store.ReadJSON(r.path, &s); err != nil {
		return checkin.State{}, fmt.Errorf("failed to load state: %w", err)
	}
	if s.History == nil {
		s.History = []checkin.HistoryEntry{}
	}
	return s, nil
}

// Save persists the state atomically
func (r *StateRepositoryImpl) Save(ctx context.Context, s checkin.State) error {
	if s.History == nil {
		s.History = []checkin.HistoryEntry{}
	}
	if err := r.store.WriteJSONAtomic(ctx, r.path, s); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}
