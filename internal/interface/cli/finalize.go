package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newFinalizeCmd(s *session) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "finalize",
		Short: "Finalize today's check-in into the reflections log",
		Long: `Finalize turns today's check-in draft into a log entry, rates the day
and advances the streak. Without a draft for today it changes nothing and
reports no-draft-for-today. Safe to run from cron more than once.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := s.open()
			if err != nil {
				return err
			}
			res, err := c.Finalize(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, res)
			}
			if !res.OK {
				fmt.Fprintf(out, "Nothing to finalize for %s (%s)\n", res.Day, res.Reason)
				return nil
			}
			counted := "not counted"
			if res.Counted {
				counted = "counted"
			}
			fmt.Fprintf(out, "Finalized %s: %s, streak %d (%s)\n", res.Day, strings.ToUpper(res.Rating), *res.Streak, counted)
			fmt.Fprintf(out, "%s\n", res.Summary)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}
