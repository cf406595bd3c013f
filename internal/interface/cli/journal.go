package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/moltfocus/internal/app"
)

func newJournalCmd(s *session) *cobra.Command {
	var (
		n      int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:         "journal",
		Short:       "Show recent finalize runs from the journal",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationSetup: setupNoRecovery},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := s.open()
			if err != nil {
				return err
			}
			journal := c.GetJournal()
			records, err := app.TailJournal(c.Fs(), journal.Path(), n)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, records)
			}
			if len(records) == 0 {
				fmt.Fprintf(out, "Journal is empty: %s\n", journal.Path())
				return nil
			}
			for _, r := range records {
				fmt.Fprintf(out, "%s  %-9s  %s", r.TS.Format(time.RFC3339), r.Outcome, r.Day)
				if r.Rating != "" {
					fmt.Fprintf(out, "  %s streak=%d", r.Rating, r.Streak)
				}
				if r.Error != "" {
					fmt.Fprintf(out, "  error: %s", r.Error)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&n, "lines", "n", 20, "number of records, newest first (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
