package cli

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/moltfocus/internal/app"
)

func newRecoverCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Roll forward interrupted journaled finalizations",
		Long: `Recover completes journaled finalizations that were interrupted after
their intent was recorded, and removes finished or abandoned transaction
directories. The same pass runs automatically before other commands.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationSetup: setupNoRecovery},
		RunE: func(cmd *cobra.Command, args []string) error {
			journal := app.NewJournalWriter(afero.NewOsFs(), s.paths.Journal)
			result, err := app.RunStartupRecovery(cmd.Context(), s.cfg, s.paths, journal)
			if err != nil {
				return err
			}
			if result.Skipped {
				fmt.Fprintln(cmd.OutOrStdout(), "Skipped: a finalize is in progress")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recovered: %d, cleaned: %d, discarded: %d, failed: %d\n",
				result.RecoveredCount, result.CleanedCount, result.DiscardedCount, result.FailedCount)
			return nil
		},
	}
}
