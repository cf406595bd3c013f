package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newStatusCmd(s *session) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the streak and recent days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := s.open()
			if err != nil {
				return err
			}
			view, err := c.Status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, view)
			}
			fmt.Fprintf(out, "Today:          %s\n", view.Today)
			fmt.Fprintf(out, "Streak:         %d\n", view.Streak)
			if view.LastFinalizedDate == "" {
				fmt.Fprintln(out, "Last finalized: never")
				return nil
			}
			fmt.Fprintf(out, "Last finalized: %s (%s, %s)\n",
				view.LastFinalizedDate, strings.ToUpper(view.LastRating), strings.ToUpper(view.LastMode))
			fmt.Fprintf(out, "Summary:        %s\n", view.LastSummary)
			fmt.Fprintln(out, "History:")
			for _, h := range view.History {
				fmt.Fprintf(out, "  %s\n", h)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}
