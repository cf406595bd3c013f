package di

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/afero"

	"github.com/YoshitsuguKoike/moltfocus/internal/app"
	appconfig "github.com/YoshitsuguKoike/moltfocus/internal/app/config"
	"github.com/YoshitsuguKoike/moltfocus/internal/application/dto"
	"github.com/YoshitsuguKoike/moltfocus/internal/application/port/output"
	checkinuc "github.com/YoshitsuguKoike/moltfocus/internal/application/usecase/checkin"
	"github.com/YoshitsuguKoike/moltfocus/internal/application/usecase/finalize"
	"github.com/YoshitsuguKoike/moltfocus/internal/domain/repository"
	"github.com/YoshitsuguKoike/moltfocus/internal/infra/persistence/file"
	sqliterepo "github.com/YoshitsuguKoike/moltfocus/internal/infrastructure/persistence/sqlite"
	infrarepo "github.com/YoshitsuguKoike/moltfocus/internal/infrastructure/repository"
	"github.com/YoshitsuguKoike/moltfocus/internal/infrastructure/transaction"
)

// Container is the DI container that holds all dependencies
// This implements manual dependency injection for Clean Architecture
type Container struct {
	// Infrastructure Layer - record store and repositories
	store   *file.Store
	drafts  *infrarepo.DraftRepositoryImpl
	states  *infrarepo.StateRepositoryImpl
	logs    *infrarepo.ReflectionLogRepositoryImpl
	plans   *infrarepo.PlanRepositoryImpl
	focus   *infrarepo.FocusRepositoryImpl
	archive repository.HistoryArchive
	journal *app.JournalWriter
	writer  output.FinalizeWriter

	// Application Layer - Use Cases
	finalizeUseCase *finalize.Orchestrator
	checkinUseCase  *checkinuc.UseCase

	config Config
}

// Config holds configuration for the container
type Config struct {
	Settings appconfig.Config
	Paths    app.Paths
	Fs       afero.Fs     // default: OS filesystem
	Clock    output.Clock // default: clock in the configured timezone
	Logger   app.Logger   // default: app.GetLogger()
}

// NewContainer creates and initializes the DI container
func NewContainer(config Config) (*Container, error) {
	if config.Settings == nil {
		return nil, errors.New("container: settings are required")
	}
	if config.Fs == nil {
		config.Fs = afero.NewOsFs()
	}
	if config.Clock == nil {
		config.Clock = app.NewClock(config.Settings.Timezone())
	}
	if config.Logger == nil {
		config.Logger = app.GetLogger()
	}

	c := &Container{config: config}

	if err := c.initializeInfrastructure(); err != nil {
		return nil, fmt.Errorf("failed to initialize infrastructure: %w", err)
	}
	c.initializeApplication()
	return c, nil
}

// initializeInfrastructure initializes infrastructure layer components
func (c *Container) initializeInfrastructure() error {
	paths := c.config.Paths

	c.store = file.NewStore(c.config.Fs)
	c.drafts = infrarepo.NewDraftRepositoryImpl(c.store, paths.Draft)
	c.states = infrarepo.NewStateRepositoryImpl(c.store, paths.State)
	c.logs = infrarepo.NewReflectionLogRepositoryImpl(c.store, paths.ReflectionLog)
	c.plans = infrarepo.NewPlanRepositoryImpl(c.store, paths.Plan, paths.PlanPrev)
	c.focus = infrarepo.NewFocusRepositoryImpl(c.store, paths.Focus)
	c.journal = app.NewJournalWriter(c.config.Fs, paths.Journal)

	// The journaled writer renames real files; it is only wired on the OS filesystem.
	if c.config.Settings.JournalFinalize() && file.IsOsFs(c.config.Fs) {
		c.writer = transaction.NewFinalizeTransactionService(paths.TxnDir, c.store, transaction.FinalizeTargets{
			Root:  paths.Root,
			Log:   paths.ReflectionLog,
			State: paths.State,
			Draft: paths.Draft,
		}, c.config.Logger.Warn)
	} else {
		if c.config.Settings.JournalFinalize() {
			c.config.Logger.Warn("journal_finalize needs the OS filesystem; using per-file writes")
		}
		c.writer = transaction.NewSequentialFinalizeWriter(c.logs, c.states, c.drafts)
	}

	if c.config.Settings.ArchiveHistory() && file.IsOsFs(c.config.Fs) {
		archive, err := sqliterepo.OpenHistoryArchive(paths.HistoryDB)
		if err != nil {
			// State stays the source of truth; run without the archive
			c.config.Logger.Warn("history archive disabled: %v", err)
		} else {
			c.archive = archive
		}
	}
	return nil
}

// initializeApplication initializes application layer components
func (c *Container) initializeApplication() {
	deps := finalize.Deps{
		Drafts:       c.drafts,
		States:       c.states,
		Plans:        c.plans,
		Writer:       c.writer,
		Journal:      c.journal,
		Clock:        c.config.Clock,
		Logger:       c.config.Logger,
		HistoryLimit: c.config.Settings.HistoryLimit(),
	}
	if c.archive != nil {
		deps.Archive = c.archive
	}
	c.finalizeUseCase = finalize.NewOrchestrator(deps)
	c.checkinUseCase = checkinuc.NewUseCase(c.drafts, c.config.Clock)
}

// Finalize runs one finalization. Invocations are serialized through the
// workspace finalize lock, across processes on the OS filesystem.
func (c *Container) Finalize(ctx context.Context) (dto.FinalizeResult, error) {
	unlock, err := c.store.Lock(ctx, c.config.Paths.FinalizeLock)
	if err != nil {
		return dto.FinalizeResult{}, &finalize.StorageError{Resource: "finalize lock", Op: "lock", Err: err}
	}
	defer func() {
		if err := unlock(); err != nil {
			c.config.Logger.Warn("release finalize lock: %v", err)
		}
	}()
	return c.finalizeUseCase.Execute(ctx)
}

// Status returns the State summary with history newest first
func (c *Container) Status(ctx context.Context) (dto.StatusView, error) {
	s, err := c.states.Load(ctx)
	if err != nil {
		return dto.StatusView{}, err
	}
	return dto.NewStatusView(c.config.Clock.Today(), s), nil
}

// History returns finalized days newest first. With all set and the
// archive available, days beyond State's cap are included.
func (c *Container) History(ctx context.Context, all bool) ([]dto.HistoryLine, error) {
	if all && c.archive != nil {
		days, err := c.archive.List(ctx, 0)
		if err != nil {
			return nil, err
		}
		lines := make([]dto.HistoryLine, 0, len(days))
		for _, d := range days {
			line := dto.NewHistoryLine(d.HistoryEntry)
			line.Summary = d.Summary
			lines = append(lines, line)
		}
		return lines, nil
	}
	view, err := c.Status(ctx)
	if err != nil {
		return nil, err
	}
	return view.History, nil
}

// GetCheckinUseCase returns the check-in use case
func (c *Container) GetCheckinUseCase() *checkinuc.UseCase {
	return c.checkinUseCase
}

// GetPlanRepository returns the plan repository
func (c *Container) GetPlanRepository() repository.PlanRepository {
	return c.plans
}

// GetFocusRepository returns the focus note repository
func (c *Container) GetFocusRepository() *infrarepo.FocusRepositoryImpl {
	return c.focus
}

// GetReflectionLog returns the reflections log repository
func (c *Container) GetReflectionLog() repository.ReflectionLogRepository {
	return c.logs
}

// GetJournal returns the finalize journal writer
func (c *Container) GetJournal() *app.JournalWriter {
	return c.journal
}

// Clock returns the workspace clock
func (c *Container) Clock() output.Clock {
	return c.config.Clock
}

// Fs returns the filesystem the container works on
func (c *Container) Fs() afero.Fs {
	return c.config.Fs
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	if c.archive != nil {
		return c.archive.Close()
	}
	return nil
}
