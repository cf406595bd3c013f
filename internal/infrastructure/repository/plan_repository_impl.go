package repository

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/YoshitsuguKoike/moltfocus/internal/infra/persistence/file"
)

// PlanRepositoryImpl implements repository.PlanRepository with plan.md and
// its previous snapshot plan_prev.md
type PlanRepositoryImpl struct {
	store    *file.Store
	path     string
	prevPath string
}

// NewPlanRepositoryImpl creates a plan repository
func NewPlanRepositoryImpl(store *file.Store, path, prevPath string) *PlanRepositoryImpl {
	return &PlanRepositoryImpl{store: store, path: path, prevPath: prevPath}
}

// Current returns plan.md, or "" when there is none
func (r *PlanRepositoryImpl) Current(ctx context.Context) (string, error) {
	text, err := r.store.ReadText(r.path)
	if err != nil {
		return "", fmt.Errorf("failed to read plan: %w", err)
	}
	return text, nil
}

// Previous returns the snapshot taken by the last Save, or ""
func (r *PlanRepositoryImpl) Previous(ctx context.Context) (string, error) {
	text, err := r.store.ReadText(r.prevPath)
	if err != nil {
		return "", fmt.Errorf("failed to read previous plan: %w", err)
	}
	return text, nil
}

// Save copies the existing plan to the snapshot, then writes content with
// trailing whitespace normalised to one newline
func (r *PlanRepositoryImpl) Save(ctx context.Context, content string) error {
	exists, err := r.store.Exists(r.path)
	if err != nil {
		return fmt.Errorf("failed to stat plan: %w", err)
	}
	if exists {
		current, err := r.Current(ctx)
		if err != nil {
			return err
		}
		if err := r.store.WriteTextAtomic(ctx, r.prevPath, current); err != nil {
			return fmt.Errorf("failed to snapshot plan: %w", err)
		}
	}
	if err := r.store.WriteTextAtomic(ctx, r.path, strings.TrimRightFunc(content, unicode.IsSpace)+"\n"); err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}
	return nil
}

// Changed reports whether a non-blank previous snapshot exists that
// differs from the current plan
func (r *PlanRepositoryImpl) Changed(ctx context.Context) (bool, error) {
	prev, err := r.Previous(ctx)
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(prev) == "" {
		return false, nil
	}
	current, err := r.Current(ctx)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(prev) != strings.TrimSpace(current), nil
}

