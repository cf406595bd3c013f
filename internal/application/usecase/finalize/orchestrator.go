// Package finalize turns today's check-in draft into a permanent log entry,
// a rating and a streak update.
package finalize

import (
	"context"
	"errors"
	"time"

	"github.com/YoshitsuguKoike/moltfocus/internal/application/dto"
	"github.com/YoshitsuguKoike/moltfocus/internal/application/port/output"
	"github.com/YoshitsuguKoike/moltfocus/internal/domain/model/checkin"
	"github.com/YoshitsuguKoike/moltfocus/internal/domain/repository"
	"github.com/YoshitsuguKoike/moltfocus/internal/domain/service/rating"
	"github.com/YoshitsuguKoike/moltfocus/internal/domain/service/streak"
)

// ResourcePlan is the plan document read for the plan-changed signal
const ResourcePlan = "plan"

// Logger is the printf-style logger the orchestrator reports through
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// Deps wires an Orchestrator. Archive and Journal are optional.
type Deps struct {
	Drafts       repository.DraftRepository
	States       repository.StateRepository
	Plans        repository.PlanRepository
	Writer       output.FinalizeWriter
	Archive      repository.HistoryArchive
	Journal      output.FinalizeJournal
	Clock        output.Clock
	Logger       Logger
	HistoryLimit int
}

// Orchestrator runs one finalization per Execute call
type Orchestrator struct {
	deps Deps
}

// NewOrchestrator creates an orchestrator. A nil Logger discards output;
// HistoryLimit is clamped to checkin.DefaultHistoryLimit.
func NewOrchestrator(deps Deps) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = nopLogger{}
	}
	deps.HistoryLimit = checkin.ClampHistoryLimit(deps.HistoryLimit)
	return &Orchestrator{deps: deps}
}

// Execute finalizes today. A missing or stale draft yields a result with
// Reason set and leaves every resource untouched. Corrupt State or Draft
// data returns an *IntegrityError, I/O failures a *StorageError.
func (o *Orchestrator) Execute(ctx context.Context) (dto.FinalizeResult, error) {
	start := time.Now()
	now := o.deps.Clock.Now()
	today := o.deps.Clock.DayOf(now)
	log := o.deps.Logger

	log.Debug("finalize: start day=%s", today)

	result, rec, err := o.run(ctx, today, now)
	rec.TS = now.UTC()
	rec.Day = today
	rec.ElapsedMs = time.Since(start).Milliseconds()
	if err != nil {
		rec.Outcome = output.OutcomeError
		rec.Error = err.Error()
		log.Error("finalize: day=%s failed: %v", today, err)
	}
	o.journal(ctx, rec)
	return result, err
}

func (o *Orchestrator) run(ctx context.Context, today string, now time.Time) (dto.FinalizeResult, output.FinalizeRecord, error) {
	log := o.deps.Logger
	rec := output.FinalizeRecord{}

	draft, found, err := o.deps.Drafts.Load(ctx)
	if err != nil {
		return dto.FinalizeResult{}, rec, classify(output.ResourceDraft, "read", err)
	}
	if !found || !draft.IsFor(today) {
		log.Info("finalize: no draft for %s (draft day %q)", today, draft.Day)
		rec.Outcome = output.OutcomeNoDraft
		return dto.NoDraft(today), rec, nil
	}

	state, err := o.deps.States.Load(ctx)
	if err != nil {
		return dto.FinalizeResult{}, rec, classify(output.ResourceState, "read", err)
	}
	// the draft left behind by an earlier finalize of today
	if draft.IsEmpty() && state.LastFinalizedDate == today {
		log.Info("finalize: %s already finalized, draft is empty", today)
		rec.Outcome = output.OutcomeNoDraft
		return dto.NoDraft(today), rec, nil
	}

	mode := draft.Mode
	if !mode.IsValid() {
		mode = checkin.ModeCommit
	}
	tally := draft.Tally()
	reflectionLen := draft.ReflectionLength()

	planChanged, err := o.deps.Plans.Changed(ctx)
	if err != nil {
		return dto.FinalizeResult{}, rec, classify(ResourcePlan, "read", err)
	}

	r := rating.Rate(tally.DoneCount, tally.Total, reflectionLen, tally.AnyTimeLogged)
	r = rating.ApplyMode(r, mode, tally.DoneCount, reflectionLen, tally.AnyTimeLogged)
	counts := streak.CountsForStreak(tally.DoneCount, reflectionLen, planChanged, mode)

	state = streak.Advance(streak.FromState(state), counts, today).Apply(state)

	doneLabels := normalizeAll(tally.DoneLabels)
	summary := rating.Summarize(rating.SummaryInput{
		Day:          today,
		Rating:       r,
		DoneLabels:   doneLabels,
		MinutesTotal: tally.MinutesTotal,
		Reflection:   draft.Reflection,
	})
	entry := RenderEntry(Entry{
		Day:        today,
		Time:       now,
		Rating:     r,
		Mode:       mode,
		Draft:      draft,
		DoneLabels: doneLabels,
		Summary:    summary,
	})

	day := checkin.HistoryEntry{
		Day:           today,
		Rating:        r,
		Mode:          mode,
		StreakCounted: counts,
		DoneCount:     tally.DoneCount,
		Total:         tally.Total,
	}
	state = state.WithHistory(day, o.deps.HistoryLimit)
	state.Version++
	state.LastRating = r
	state.LastMode = mode
	state.LastSummary = summary
	state.LastFinalizedDate = today
	state.UpdatedAt = now.Format(time.RFC3339)

	write := output.FinalizeWrite{
		Day:   today,
		Entry: entry,
		State: state,
		Draft: checkin.NewDraft(today, now),
	}
	if err := o.deps.Writer.Persist(ctx, write); err != nil {
		var we *output.WriteError
		if errors.As(err, &we) {
			return dto.FinalizeResult{}, rec, &StorageError{Resource: we.Resource, Op: "write", Err: we.Err}
		}
		return dto.FinalizeResult{}, rec, &StorageError{Resource: "finalize", Op: "write", Err: err}
	}

	if o.deps.Archive != nil {
		if err := o.deps.Archive.Record(ctx, day, summary); err != nil {
			log.Warn("finalize: archive day=%s: %v", today, err)
		}
	}

	log.Info("finalize: day=%s rating=%s streak=%d counted=%t", today, r, state.Streak, counts)

	rec.Outcome = output.OutcomePersisted
	rec.Rating = r.String()
	rec.Streak = state.Streak
	rec.Counted = counts

	streakValue := state.Streak
	return dto.FinalizeResult{
		OK:      true,
		Day:     today,
		Rating:  r.String(),
		Streak:  &streakValue,
		Counted: counts,
		Summary: summary,
	}, rec, nil
}

func (o *Orchestrator) journal(ctx context.Context, rec output.FinalizeRecord) {
	if o.deps.Journal == nil {
		return
	}
	if err := o.deps.Journal.Append(ctx, rec); err != nil {
		o.deps.Logger.Warn("finalize: journal append failed: %v", err)
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
