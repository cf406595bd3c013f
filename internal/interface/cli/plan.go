package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"
)

func newPlanCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage the plan document",
		RunE:  func(c *cobra.Command, _ []string) error { return c.Help() },
	}
	cmd.AddCommand(newPlanSaveCmd(s))
	cmd.AddCommand(newPlanShowCmd(s))
	cmd.AddCommand(newPlanDiffCmd(s))
	return cmd
}

func newPlanSaveCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "save <file|->",
		Short: "Save a new plan, keeping the current one as the previous snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				content []byte
				err     error
			)
			if args[0] == "-" {
				content, err = io.ReadAll(cmd.InOrStdin())
			} else {
				content, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read plan: %w", err)
			}

			c, err := s.open()
			if err != nil {
				return err
			}
			plans := c.GetPlanRepository()
			if err := plans.Save(cmd.Context(), string(content)); err != nil {
				return err
			}
			changed, err := plans.Changed(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Plan saved (changed: %t)\n", changed)
			return nil
		},
	}
}

func newPlanShowCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := s.open()
			if err != nil {
				return err
			}
			plan, err := c.GetPlanRepository().Current(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), plan)
			return nil
		},
	}
}

func newPlanDiffCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "diff",
		Short: "Show what changed since the previous plan snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := s.open()
			if err != nil {
				return err
			}
			plans := c.GetPlanRepository()
			prev, err := plans.Previous(cmd.Context())
			if err != nil {
				return err
			}
			current, err := plans.Current(cmd.Context())
			if err != nil {
				return err
			}

			diff, err := planDiff(prev, current)
			if err != nil {
				return err
			}
			if diff == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "No changes")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), diff)
			return nil
		},
	}
}

// planDiff renders a unified diff from the snapshot to the current plan
func planDiff(prev, current string) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(prev),
		B:        difflib.SplitLines(current),
		FromFile: "plan_prev.md",
		ToFile:   "plan.md",
		Context:  3,
	})
}
