package finalize

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/moltfocus/internal/app"
	"github.com/YoshitsuguKoike/moltfocus/internal/application/dto"
	"github.com/YoshitsuguKoike/moltfocus/internal/application/port/output"
	"github.com/YoshitsuguKoike/moltfocus/internal/domain/model/checkin"
	"github.com/YoshitsuguKoike/moltfocus/internal/domain/repository"
	"github.com/YoshitsuguKoike/moltfocus/internal/infra/persistence/file"
	infrarepo "github.com/YoshitsuguKoike/moltfocus/internal/infrastructure/repository"
	"github.com/YoshitsuguKoike/moltfocus/internal/infrastructure/transaction"
)

var today = time.Date(2026, 3, 1, 21, 30, 0, 0, time.UTC)

type fixture struct {
	fs      afero.Fs
	paths   app.Paths
	drafts  *infrarepo.DraftRepositoryImpl
	states  *infrarepo.StateRepositoryImpl
	logs    *infrarepo.ReflectionLogRepositoryImpl
	plans   *infrarepo.PlanRepositoryImpl
	journal *app.JournalWriter
	deps    Deps
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	store := file.NewStore(fs)
	paths := app.ResolvePaths("/ws")

	f := &fixture{
		fs:      fs,
		paths:   paths,
		drafts:  infrarepo.NewDraftRepositoryImpl(store, paths.Draft),
		states:  infrarepo.NewStateRepositoryImpl(store, paths.State),
		logs:    infrarepo.NewReflectionLogRepositoryImpl(store, paths.ReflectionLog),
		plans:   infrarepo.NewPlanRepositoryImpl(store, paths.Plan, paths.PlanPrev),
		journal: app.NewJournalWriter(fs, paths.Journal),
	}
	f.deps = Deps{
		Drafts:  f.drafts,
		States:  f.states,
		Plans:   f.plans,
		Writer:  transaction.NewSequentialFinalizeWriter(f.logs, f.states, f.drafts),
		Journal: f.journal,
		Clock:   app.FixedClock(now),
	}
	return f
}

func (f *fixture) orchestrator() *Orchestrator {
	return NewOrchestrator(f.deps)
}

func (f *fixture) saveDraft(t *testing.T, d checkin.Draft) {
	t.Helper()
	require.NoError(t, f.drafts.Save(context.Background(), d))
}

// snapshot returns the raw bytes of the resources finalize owns
func (f *fixture) snapshot(t *testing.T) map[string]string {
	t.Helper()
	out := map[string]string{}
	for _, p := range []string{f.paths.Draft, f.paths.State, f.paths.ReflectionLog} {
		b, err := afero.ReadFile(f.fs, p)
		if err != nil {
			out[p] = "<missing>"
			continue
		}
		out[p] = string(b)
	}
	return out
}

func items(done ...bool) map[string]checkin.Item {
	m := map[string]checkin.Item{}
	for i, d := range done {
		key := "line-" + string(rune('1'+i))
		m[key] = checkin.Item{Label: "task " + key, Done: d}
	}
	return m
}

func TestExecuteHalfDoneIsGood(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, today)
	f.saveDraft(t, checkin.Draft{Day: "2026-03-01", Mode: checkin.ModeCommit, Items: items(true, false)})

	res, err := f.orchestrator().Execute(ctx)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "2026-03-01", res.Day)
	assert.Equal(t, "good", res.Rating, "max(1, 2/2) = 1 done is Good")
	require.NotNil(t, res.Streak)
	assert.Equal(t, 1, *res.Streak)

	st, err := f.states.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Version)
	assert.Equal(t, "2026-03-01", st.LastStreakDate)
	assert.Equal(t, "2026-03-01", st.LastFinalizedDate)
	assert.Equal(t, checkin.RatingGood, st.LastRating)
	require.Len(t, st.History, 1)
	assert.Equal(t, checkin.HistoryEntry{
		Day: "2026-03-01", Rating: checkin.RatingGood, Mode: checkin.ModeCommit, StreakCounted: true, DoneCount: 1, Total: 2,
	}, st.History[0])

	d, found, err := f.drafts.Load(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "2026-03-01", d.Day)
	assert.Empty(t, d.Items)
	assert.Empty(t, d.Reflection)

	log, err := f.logs.Read(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(log, infrarepo.ReflectionPreamble+"\n## 2026-03-01\n"), log)
	assert.Contains(t, log, "**Rating:** GOOD")
	assert.Contains(t, log, "- task line-1")
}

func TestExecuteLongReflectionIsFairAndCounts(t *testing.T) {
	f := newFixture(t, today)
	f.saveDraft(t, checkin.Draft{Day: "2026-03-01", Items: items(false), Reflection: strings.Repeat("x", 30)})

	res, err := f.orchestrator().Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fair", res.Rating)
	assert.True(t, res.Counted)
	assert.Equal(t, 1, *res.Streak)
}

func TestExecuteRecoveryWithoutEffortStaysBad(t *testing.T) {
	f := newFixture(t, today)
	f.saveDraft(t, checkin.Draft{Day: "2026-03-01", Mode: checkin.ModeRecovery, Items: items(false, false)})

	res, err := f.orchestrator().Execute(context.Background())
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "bad", res.Rating)
	assert.False(t, res.Counted)
	assert.Equal(t, 0, *res.Streak)
}

func TestExecuteTwiceSameDayNoops(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, today)
	f.saveDraft(t, checkin.Draft{Day: "2026-03-01", Items: items(true)})

	orch := f.orchestrator()
	first, err := orch.Execute(ctx)
	require.NoError(t, err)
	require.True(t, first.OK)
	after := f.snapshot(t)

	second, err := orch.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, dto.NoDraft("2026-03-01"), second)
	assert.Equal(t, after, f.snapshot(t))

	st, err := f.states.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Streak)
	assert.Len(t, st.History, 1)
}

func TestExecuteEmptyDraftNotYetFinalized(t *testing.T) {
	f := newFixture(t, today)
	f.saveDraft(t, checkin.NewDraft("2026-03-01", today))

	res, err := f.orchestrator().Execute(context.Background())
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "bad", res.Rating)
}

func TestExecuteNoDraftIsByteForByteNoop(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		draft *checkin.Draft
	}{
		{"missing draft", nil},
		{"stale draft", &checkin.Draft{Day: "2026-02-28", Items: items(true, true)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, today)
			require.NoError(t, f.states.Save(ctx, checkin.State{Streak: 7, LastStreakDate: "2026-02-28", History: []checkin.HistoryEntry{}}))
			require.NoError(t, f.logs.Prepend(ctx, "## 2026-02-28\nold"))
			if tt.draft != nil {
				f.saveDraft(t, *tt.draft)
			}
			before := f.snapshot(t)

			for i := 0; i < 3; i++ {
				res, err := f.orchestrator().Execute(ctx)
				require.NoError(t, err)
				assert.Equal(t, dto.NoDraft("2026-03-01"), res)
			}
			assert.Equal(t, before, f.snapshot(t))

			recs, err := app.ReadJournal(f.fs, f.paths.Journal)
			require.NoError(t, err)
			require.Len(t, recs, 3)
			assert.Equal(t, output.OutcomeNoDraft, recs[0].Outcome)
		})
	}
}

func TestExecuteCorruptRecords(t *testing.T) {
	ctx := context.Background()

	t.Run("draft", func(t *testing.T) {
		f := newFixture(t, today)
		require.NoError(t, afero.WriteFile(f.fs, f.paths.Draft, []byte("{not json"), 0o644))

		_, err := f.orchestrator().Execute(ctx)
		var ie *IntegrityError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, output.ResourceDraft, ie.Resource)
		assert.Equal(t, f.paths.Draft, ie.Path)
		assert.ErrorIs(t, err, repository.ErrCorruptRecord)
	})

	t.Run("state", func(t *testing.T) {
		f := newFixture(t, today)
		f.saveDraft(t, checkin.Draft{Day: "2026-03-01", Items: items(true)})
		require.NoError(t, afero.WriteFile(f.fs, f.paths.State, []byte(`{"streak":"many"}`), 0o644))
		before := f.snapshot(t)

		_, err := f.orchestrator().Execute(ctx)
		assert.True(t, IsIntegrity(err))
		assert.Equal(t, before, f.snapshot(t), "nothing is written after an integrity failure")

		recs, err := app.ReadJournal(f.fs, f.paths.Journal)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, output.OutcomeError, recs[0].Outcome)
		assert.NotEmpty(t, recs[0].Error)
	})
}

type failingWriter struct{ resource string }

func (w failingWriter) Persist(context.Context, output.FinalizeWrite) error {
	return &output.WriteError{Resource: w.resource, Err: errors.New("no space left on device")}
}

func TestExecuteStorageError(t *testing.T) {
	f := newFixture(t, today)
	f.saveDraft(t, checkin.Draft{Day: "2026-03-01", Items: items(true)})
	f.deps.Writer = failingWriter{resource: output.ResourceState}

	_, err := f.orchestrator().Execute(context.Background())
	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, output.ResourceState, se.Resource)
	assert.Equal(t, "write", se.Op)
	assert.False(t, IsIntegrity(err))
}

func TestExecuteSameDayRefinalize(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, today)
	orch := f.orchestrator()

	f.saveDraft(t, checkin.Draft{Day: "2026-03-01", Items: items(false, false, false, false)})
	res, err := orch.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bad", res.Rating)

	f.saveDraft(t, checkin.Draft{Day: "2026-03-01", Items: items(true, true, false, false)})
	res, err = orch.Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, "good", res.Rating)

	st, err := f.states.Load(ctx)
	require.NoError(t, err)
	require.Len(t, st.History, 1, "same day is replaced, not appended")
	assert.Equal(t, checkin.RatingGood, st.History[0].Rating)
	assert.Equal(t, 1, st.Streak)
	assert.Equal(t, 2, st.Version)

	log, err := f.logs.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(log, "## 2026-03-01"), "log entries are never rewritten")
	assert.Less(t, strings.Index(log, "**Rating:** GOOD"), strings.Index(log, "**Rating:** BAD"), "newest entry first")
}

func TestExecuteStreakAcrossDays(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, today)

	days := []struct {
		day  time.Time
		done bool
	}{
		{today, true},
		{today.AddDate(0, 0, 1), false}, // no progress: streak holds, no reset
		{today.AddDate(0, 0, 3), true},
	}
	for _, d := range days {
		f.deps.Clock = app.FixedClock(d.day)
		f.saveDraft(t, checkin.Draft{Day: d.day.Format(app.DayLayout), Items: items(d.done)})
		_, err := f.orchestrator().Execute(ctx)
		require.NoError(t, err)
	}

	st, err := f.states.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Streak)
	assert.Equal(t, "2026-03-04", st.LastStreakDate)
	assert.Len(t, st.History, 3)
}

func TestExecutePlanChangedCounts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, today)
	require.NoError(t, f.plans.Save(ctx, "- [ ] a\n"))
	require.NoError(t, f.plans.Save(ctx, "- [ ] a\n- [ ] b\n"))
	f.saveDraft(t, checkin.Draft{Day: "2026-03-01", Items: items(false)})

	res, err := f.orchestrator().Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bad", res.Rating)
	assert.True(t, res.Counted)
	assert.Equal(t, 1, *res.Streak)
}

func TestExecuteRecoveryTimeLogged(t *testing.T) {
	f := newFixture(t, today)
	twenty := 20
	f.saveDraft(t, checkin.Draft{
		Day:   "2026-03-01",
		Mode:  checkin.ModeRecovery,
		Items: map[string]checkin.Item{"a": {Label: "walk", Minutes: &twenty}},
	})

	res, err := f.orchestrator().Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fair", res.Rating)
	assert.False(t, res.Counted)
	assert.Contains(t, res.Summary, "logged ~20 min")
}

type recordingArchive struct {
	err     error
	entries []checkin.HistoryEntry
}

func (a *recordingArchive) Record(_ context.Context, e checkin.HistoryEntry, _ string) error {
	a.entries = append(a.entries, e)
	return a.err
}

func (a *recordingArchive) List(context.Context, int) ([]repository.ArchivedDay, error) {
	return nil, nil
}

func (a *recordingArchive) Close() error { return nil }

func TestExecuteArchive(t *testing.T) {
	ctx := context.Background()

	t.Run("records persisted day", func(t *testing.T) {
		f := newFixture(t, today)
		archive := &recordingArchive{}
		f.deps.Archive = archive
		f.saveDraft(t, checkin.Draft{Day: "2026-03-01", Items: items(true)})

		_, err := f.orchestrator().Execute(ctx)
		require.NoError(t, err)
		require.Len(t, archive.entries, 1)
		assert.Equal(t, "2026-03-01", archive.entries[0].Day)
	})

	t.Run("failure does not fail finalize", func(t *testing.T) {
		f := newFixture(t, today)
		f.deps.Archive = &recordingArchive{err: errors.New("database is locked")}
		f.saveDraft(t, checkin.Draft{Day: "2026-03-01", Items: items(true)})

		res, err := f.orchestrator().Execute(ctx)
		require.NoError(t, err)
		assert.True(t, res.OK)
	})
}

func TestExecuteJournalsPersisted(t *testing.T) {
	f := newFixture(t, today)
	f.saveDraft(t, checkin.Draft{Day: "2026-03-01", Items: items(true, true)})

	_, err := f.orchestrator().Execute(context.Background())
	require.NoError(t, err)

	recs, err := app.ReadJournal(f.fs, f.paths.Journal)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, output.OutcomePersisted, recs[0].Outcome)
	assert.Equal(t, "good", recs[0].Rating)
	assert.Equal(t, 1, recs[0].Streak)
	assert.True(t, recs[0].Counted)
	assert.NotEmpty(t, recs[0].ID)
}

// steppingClock returns the next instant on every Now call
type steppingClock struct {
	instants []time.Time
	calls    int
}

func (c *steppingClock) Now() time.Time {
	t := c.instants[min(c.calls, len(c.instants)-1)]
	c.calls++
	return t
}

func (c *steppingClock) Today() string { return c.DayOf(c.Now()) }

func (c *steppingClock) DayOf(t time.Time) string { return t.Format(app.DayLayout) }

func TestExecuteAcrossMidnightUsesOneInstant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, today)
	before := time.Date(2026, 3, 1, 23, 59, 59, 0, time.UTC)
	f.deps.Clock = &steppingClock{instants: []time.Time{before, before.Add(2 * time.Second)}}
	f.saveDraft(t, checkin.Draft{Day: "2026-03-01", Items: items(true)})

	res, err := f.orchestrator().Execute(ctx)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "2026-03-01", res.Day)

	log, err := f.logs.Read(ctx)
	require.NoError(t, err)
	assert.Contains(t, log, "## 2026-03-01\n- Time: 2026-03-01T23:59+00:00")
}

func TestExecuteHistoryLimitIsCapped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, today)
	f.deps.HistoryLimit = 45

	for i := 0; i < 40; i++ {
		day := today.AddDate(0, 0, i)
		f.deps.Clock = app.FixedClock(day)
		f.saveDraft(t, checkin.Draft{Day: day.Format(app.DayLayout), Items: items(true)})
		_, err := f.orchestrator().Execute(ctx)
		require.NoError(t, err)
	}

	st, err := f.states.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, st.History, checkin.DefaultHistoryLimit)
	assert.Equal(t, today.AddDate(0, 0, 39).Format(app.DayLayout), st.History[len(st.History)-1].Day)
	assert.Equal(t, 40, st.Streak)
}
