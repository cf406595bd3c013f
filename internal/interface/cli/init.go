package cli

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	infraConfig "github.com/YoshitsuguKoike/moltfocus/internal/infra/config"
	"github.com/YoshitsuguKoike/moltfocus/internal/infra/persistence/file"
	"github.com/YoshitsuguKoike/moltfocus/internal/infrastructure/repository"
)

func newInitCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:         "init",
		Short:       "Create the planner workspace layout",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationSetup: setupNoRecovery},
		RunE: func(c *cobra.Command, _ []string) error {
			fs := afero.NewOsFs()
			p := s.paths

			for _, d := range []string{p.Latest, p.Var, p.Reflections} {
				if err := fs.MkdirAll(d, 0o755); err != nil {
					return fmt.Errorf("failed to create directory %s: %w", d, err)
				}
			}

			created := []string{}
			seeds := []struct {
				path string
				data []byte
			}{
				{p.Setting, infraConfig.CreateDefaultSettings()},
				{p.ReflectionLog, []byte(repository.ReflectionPreamble)},
			}
			for _, f := range seeds {
				ok, err := writeIfNotExists(fs, f.path, f.data)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", f.path, err)
				}
				if ok {
					created = append(created, f.path)
				}
			}

			out := c.OutOrStdout()
			fmt.Fprintf(out, "Initialized planner workspace at %s\n", p.Root)
			for _, f := range created {
				fmt.Fprintf(out, "  %s\n", f)
			}
			return nil
		},
	}
}

// writeIfNotExists writes data unless path already exists, reporting
// whether it wrote
func writeIfNotExists(fs afero.Fs, path string, data []byte) (bool, error) {
	exists, err := afero.Exists(fs, path)
	if err != nil || exists {
		return false, err
	}
	return true, file.WriteFileAtomic(fs, path, data)
}
