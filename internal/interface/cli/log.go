package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newLogCmd(s *session) *cobra.Command {
	var n int

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Print the reflections log, newest entries first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := s.open()
			if err != nil {
				return err
			}
			text, err := c.GetReflectionLog().Read(cmd.Context())
			if err != nil {
				return err
			}
			if n > 0 {
				text = firstEntries(text, n)
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.Flags().IntVarP(&n, "entries", "n", 0, "print only the newest n entries (0 for all)")
	return cmd
}

// firstEntries cuts the log before its (n+1)th "## " heading
func firstEntries(text string, n int) string {
	seen := 0
	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		if strings.HasPrefix(line, "## ") {
			seen++
			if seen > n {
				return strings.TrimRight(text[:offset], "\n") + "\n"
			}
		}
		offset += len(line)
	}
	return text
}
