package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/moltfocus/internal/app"
	"github.com/YoshitsuguKoike/moltfocus/internal/app/config"
	"github.com/YoshitsuguKoike/moltfocus/internal/application/usecase/finalize"
	infraConfig "github.com/YoshitsuguKoike/moltfocus/internal/infra/config"
	"github.com/YoshitsuguKoike/moltfocus/internal/infrastructure/di"
	"github.com/YoshitsuguKoike/moltfocus/internal/interface/cli/version"
)

// Exit codes
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitIntegrity = 2
)

// Command annotations
const (
	annotationSetup = "moltfocus/setup"
	setupNone       = "none"        // no config, no logger (version)
	setupNoRecovery = "no-recovery" // config and logger, no startup recovery
)

// session holds what PersistentPreRunE resolves for the command that runs
type session struct {
	rootFlag string
	logLevel string
	dotenv   string

	cfg       config.Config
	paths     app.Paths
	logger    *app.ZapLogger
	container *di.Container
}

// NewRoot builds the command tree
func NewRoot() *cobra.Command {
	return newRoot(&session{})
}

func newRoot(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "moltfocus",
		Short:         "Daily plan check-in, finalization and streaks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			return s.setup(c)
		},
		RunE: func(c *cobra.Command, _ []string) error { return c.Help() },
	}
	cmd.PersistentFlags().StringVar(&s.rootFlag, "root", "", "workspace root (default: $PLANNER_ROOT or ~/planner)")
	cmd.PersistentFlags().StringVar(&s.logLevel, "log-level", "", "log level: debug, info, warn, error (default from settings)")
	cmd.PersistentFlags().StringVar(&s.dotenv, "env-file", ".env", "dotenv file loaded before settings")

	cmd.AddCommand(newInitCmd(s))
	cmd.AddCommand(newCheckinCmd(s))
	cmd.AddCommand(newFinalizeCmd(s))
	cmd.AddCommand(newStatusCmd(s))
	cmd.AddCommand(newHistoryCmd(s))
	cmd.AddCommand(newPlanCmd(s))
	cmd.AddCommand(newServeCmd(s))
	cmd.AddCommand(newRecoverCmd(s))
	cmd.AddCommand(newConfigCmd(s))
	cmd.AddCommand(newJournalCmd(s))
	cmd.AddCommand(newLogCmd(s))

	v := version.NewCommand()
	v.Annotations = map[string]string{annotationSetup: setupNone}
	cmd.AddCommand(v)
	return cmd
}

// Execute runs the CLI with args and returns the process exit code
func Execute(args []string, stdout, stderr io.Writer) int {
	s := &session{}
	root := newRoot(s)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if cerr := s.close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return ExitCode(err)
}

// ExitCode maps an error to the process exit code: 2 for corrupt
// workspace data, 1 for any other failure
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case finalize.IsIntegrity(err):
		return ExitIntegrity
	default:
		return ExitFailure
	}
}

func (s *session) setup(c *cobra.Command) error {
	mode := c.Annotations[annotationSetup]
	if mode == setupNone {
		return nil
	}

	if err := infraConfig.LoadDotEnv(s.dotenv); err != nil {
		return err
	}
	root := infraConfig.ResolveRoot(s.rootFlag)
	cfg, err := infraConfig.LoadSettings(root)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	s.cfg = cfg
	s.paths = app.ResolvePaths(root)

	level := s.logLevel
	if level == "" {
		level = cfg.LogLevel()
	}
	s.logger = app.NewZapLogger(app.LogOptions{
		Level:   level,
		Stderr:  c.ErrOrStderr(),
		LogFile: cfg.LogFile(),
	})
	InitializeLoggers(s.logger)

	if mode == setupNoRecovery {
		return nil
	}
	journal := app.NewJournalWriter(afero.NewOsFs(), s.paths.Journal)
	if _, err := app.RunStartupRecovery(c.Context(), cfg, s.paths, journal); err != nil {
		return err
	}
	return nil
}

// open returns the container, creating it on first use
func (s *session) open() (*di.Container, error) {
	if s.container != nil {
		return s.container, nil
	}
	if s.cfg == nil {
		return nil, errors.New("settings not loaded")
	}
	c, err := di.NewContainer(di.Config{
		Settings: s.cfg,
		Paths:    s.paths,
		Logger:   s.logger,
	})
	if err != nil {
		return nil, err
	}
	s.container = c
	return c, nil
}

func (s *session) close() error {
	var errs []error
	if s.container != nil {
		errs = append(errs, s.container.Close())
		s.container = nil
	}
	if s.logger != nil {
		// stderr cannot always be synced; only the file matters here
		_ = s.logger.Sync()
	}
	return errors.Join(errs...)
}
