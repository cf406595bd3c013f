package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/moltfocus/internal/application/dto"
	"github.com/YoshitsuguKoike/moltfocus/internal/domain/model/checkin"
)

type checkinFlags struct {
	items      []string
	done       []string
	comments   []string
	mode       string
	reflection string
	asJSON     bool
}

func newCheckinCmd(s *session) *cobra.Command {
	f := &checkinFlags{}

	cmd := &cobra.Command{
		Use:   "checkin",
		Short: "Update today's check-in draft",
		Long: `Update today's check-in draft. Changes are merged into the draft; a draft
left over from an earlier day is discarded first.

Items are given as key=label[:done][:minutes], for example
  --item line-1="Thesis chapter:done:90"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := s.open()
			if err != nil {
				return err
			}
			modeSet := cmd.Flags().Changed("mode")
			reflectionSet := cmd.Flags().Changed("reflection")

			d, err := c.GetCheckinUseCase().Update(cmd.Context(), func(d *checkin.Draft) error {
				return f.apply(d, modeSet, reflectionSet)
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if f.asJSON {
				return writeJSON(out, dto.NewDraftView(d))
			}
			t := d.Tally()
			fmt.Fprintf(out, "Draft %s (%s): %d/%d done", d.Day, d.Mode, t.DoneCount, t.Total)
			if t.MinutesTotal > 0 {
				fmt.Fprintf(out, ", ~%d min", t.MinutesTotal)
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&f.items, "item", nil, "add or replace an item: key=label[:done][:minutes]")
	cmd.Flags().StringArrayVar(&f.done, "done", nil, "mark an existing item done by key")
	cmd.Flags().StringArrayVar(&f.comments, "comment", nil, "set an item comment: key=text")
	cmd.Flags().StringVar(&f.mode, "mode", "commit", "scoring mode: commit or recovery")
	cmd.Flags().StringVar(&f.reflection, "reflection", "", "reflection text (replaces the current one)")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print the draft as JSON")
	return cmd
}

func (f *checkinFlags) apply(d *checkin.Draft, modeSet, reflectionSet bool) error {
	for _, spec := range f.items {
		key, item, err := parseItemSpec(spec)
		if err != nil {
			return err
		}
		item.Comment = d.Items[key].Comment
		d.Items[key] = item
	}
	for _, key := range f.done {
		it, ok := d.Items[key]
		if !ok {
			return fmt.Errorf("no item %q in today's draft", key)
		}
		it.Done = true
		d.Items[key] = it
	}
	for _, spec := range f.comments {
		key, text, ok := strings.Cut(spec, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return fmt.Errorf("invalid --comment %q: want key=text", spec)
		}
		it := d.Items[key]
		it.Comment = text
		d.Items[key] = it
	}
	if modeSet {
		d.Mode = checkin.ParseMode(f.mode)
	}
	if reflectionSet {
		d.Reflection = f.reflection
	}
	return nil
}

// parseItemSpec parses key=label[:done][:minutes]. The optional suffixes
// may come in either order; a label may itself contain colons.
func parseItemSpec(spec string) (string, checkin.Item, error) {
	key, rest, ok := strings.Cut(spec, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", checkin.Item{}, fmt.Errorf("invalid --item %q: want key=label[:done][:minutes]", spec)
	}

	var item checkin.Item
	parts := strings.Split(rest, ":")
	for i := 0; i < 2 && len(parts) > 1; i++ {
		last := strings.TrimSpace(parts[len(parts)-1])
		if last == "done" && !item.Done {
			item.Done = true
		} else if n, err := strconv.Atoi(last); err == nil && n >= 0 && item.Minutes == nil {
			item.Minutes = &n
		} else {
			break
		}
		parts = parts[:len(parts)-1]
	}
	item.Label = strings.Join(parts, ":")
	return key, item, nil
}
