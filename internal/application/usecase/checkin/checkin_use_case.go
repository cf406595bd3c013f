// Package checkin provides the draft side of the day: loading today's
// draft and saving check-in submissions.
package checkin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/YoshitsuguKoike/moltfocus/internal/application/dto"
	"github.com/YoshitsuguKoike/moltfocus/internal/application/port/output"
	"github.com/YoshitsuguKoike/moltfocus/internal/domain/model/checkin"
	"github.com/YoshitsuguKoike/moltfocus/internal/domain/repository"
)

// UseCase loads and saves the check-in draft
type UseCase struct {
	drafts repository.DraftRepository
	clock  output.Clock
}

// NewUseCase creates a check-in use case
func NewUseCase(drafts repository.DraftRepository, clock output.Clock) *UseCase {
	return &UseCase{drafts: drafts, clock: clock}
}

// Today returns the draft for today. A missing or stale draft yields an
// empty draft for today; nothing is written.
func (uc *UseCase) Today(ctx context.Context) (checkin.Draft, error) {
	d, _, err := uc.drafts.Load(ctx)
	if err != nil {
		return checkin.Draft{}, err
	}
	now := uc.clock.Now()
	return d.ForDay(uc.clock.DayOf(now), now), nil
}

// Save replaces today's draft with req
func (uc *UseCase) Save(ctx context.Context, req dto.CheckinRequest) (checkin.Draft, error) {
	d := checkin.Draft{
		Mode:       checkin.ParseMode(req.Mode),
		Items:      map[string]checkin.Item{},
		Reflection: req.Reflection,
	}
	for _, it := range req.Items {
		key := strings.TrimSpace(it.Key)
		if key == "" {
			continue
		}
		d.Items[key] = checkin.Item{
			Label:   it.Label,
			Done:    it.Done,
			Comment: it.Comment,
			Minutes: validMinutes(it.Minutes),
		}
	}
	return uc.store(ctx, d)
}

// Update applies fn to today's draft (fresh when stale) and saves it
func (uc *UseCase) Update(ctx context.Context, fn func(*checkin.Draft) error) (checkin.Draft, error) {
	d, err := uc.Today(ctx)
	if err != nil {
		return checkin.Draft{}, err
	}
	if err := fn(&d); err != nil {
		return checkin.Draft{}, err
	}
	return uc.store(ctx, d)
}

func (uc *UseCase) store(ctx context.Context, d checkin.Draft) (checkin.Draft, error) {
	now := uc.clock.Now()
	d.Day = uc.clock.DayOf(now)
	d.UpdatedAt = now.Format(time.RFC3339)
	if !d.Mode.IsValid() {
		d.Mode = checkin.ModeCommit
	}
	if err := uc.drafts.Save(ctx, d); err != nil {
		return checkin.Draft{}, fmt.Errorf("save check-in: %w", err)
	}
	return d, nil
}

func validMinutes(m *int) *int {
	if m == nil || *m < 0 {
		return nil
	}
	v := *m
	return &v
}
