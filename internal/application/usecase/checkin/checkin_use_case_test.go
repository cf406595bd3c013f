package checkin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/moltfocus/internal/app"
	"github.com/YoshitsuguKoike/moltfocus/internal/application/dto"
	"github.com/YoshitsuguKoike/moltfocus/internal/domain/model/checkin"
	"github.com/YoshitsuguKoike/moltfocus/internal/infra/persistence/file"
	infrarepo "github.com/YoshitsuguKoike/moltfocus/internal/infrastructure/repository"
)

var now = time.Date(2026, 3, 1, 9, 15, 0, 0, time.UTC)

func newUseCase(t *testing.T) (*UseCase, *infrarepo.DraftRepositoryImpl) {
	t.Helper()
	drafts := infrarepo.NewDraftRepositoryImpl(file.NewStore(afero.NewMemMapFs()), "/ws/planner/latest/checkin_draft.json")
	return NewUseCase(drafts, app.FixedClock(now)), drafts
}

func TestSaveNormalises(t *testing.T) {
	ctx := context.Background()
	uc, drafts := newUseCase(t)
	minus := -4
	ten := 10

	d, err := uc.Save(ctx, dto.CheckinRequest{
		Mode: " Recovery ",
		Items: []dto.CheckinItem{
			{Key: "line-1", Label: "write", Done: true, Minutes: &ten},
			{Key: "", Label: "dropped"},
			{Key: "line-2", Label: "read", Minutes: &minus},
		},
		Reflection: "ok",
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01", d.Day)
	assert.Equal(t, "2026-03-01T09:15:00Z", d.UpdatedAt)
	assert.Equal(t, checkin.ModeRecovery, d.Mode)
	assert.Len(t, d.Items, 2)
	assert.Nil(t, d.Items["line-2"].Minutes)
	assert.Equal(t, 10, d.Items["line-1"].LoggedMinutes())

	stored, found, err := drafts.Load(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, d, stored)
}

func TestSaveUnknownModeIsCommit(t *testing.T) {
	uc, _ := newUseCase(t)
	d, err := uc.Save(context.Background(), dto.CheckinRequest{Mode: "vacation"})
	require.NoError(t, err)
	assert.Equal(t, checkin.ModeCommit, d.Mode)
	assert.NotNil(t, d.Items)
}

func TestTodayResetsStaleDraft(t *testing.T) {
	ctx := context.Background()
	uc, drafts := newUseCase(t)
	require.NoError(t, drafts.Save(ctx, checkin.Draft{
		Day:        "2026-02-28",
		Items:      map[string]checkin.Item{"a": {Label: "old", Done: true}},
		Reflection: "yesterday",
	}))

	d, err := uc.Today(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01", d.Day)
	assert.Empty(t, d.Items)
	assert.Empty(t, d.Reflection)

	// reading never writes
	stored, _, err := drafts.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-28", stored.Day)
}

func TestUpdateMergesIntoToday(t *testing.T) {
	ctx := context.Background()
	uc, _ := newUseCase(t)

	_, err := uc.Update(ctx, func(d *checkin.Draft) error {
		d.Items["line-1"] = checkin.Item{Label: "a"}
		return nil
	})
	require.NoError(t, err)

	d, err := uc.Update(ctx, func(d *checkin.Draft) error {
		it := d.Items["line-1"]
		it.Done = true
		d.Items["line-1"] = it
		d.Items["line-2"] = checkin.Item{Label: "b"}
		return nil
	})
	require.NoError(t, err)
	assert.True(t, d.Items["line-1"].Done)
	assert.Len(t, d.Items, 2)
}

func TestUpdateAbortsOnError(t *testing.T) {
	ctx := context.Background()
	uc, drafts := newUseCase(t)

	_, err := uc.Update(ctx, func(*checkin.Draft) error { return errors.New("bad flag") })
	require.Error(t, err)

	_, found, err := drafts.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}
