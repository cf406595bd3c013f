package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHistoryCmd(s *session) *cobra.Command {
	var (
		all    bool
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List finalized days, newest first",
		Long: `List finalized days, newest first. By default the days kept in state are
shown; --all reads the history archive, which keeps every finalized day.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := s.open()
			if err != nil {
				return err
			}
			lines, err := c.History(cmd.Context(), all)
			if err != nil {
				return err
			}
			if limit > 0 && len(lines) > limit {
				lines = lines[:limit]
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, lines)
			}
			if len(lines) == 0 {
				fmt.Fprintln(out, "No finalized days yet")
				return nil
			}
			for _, l := range lines {
				fmt.Fprintf(out, "%s  %d/%d", l, l.DoneCount, l.Total)
				if l.StreakCounted {
					fmt.Fprint(out, "  +streak")
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include days beyond the state history (archive)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n days")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
