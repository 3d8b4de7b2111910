package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/meteora/pkg/codec"
	"github.com/aretw0/meteora/pkg/core"
)

// listedNote is the JSON form of a ranked note.
type listedNote struct {
	codec.Note
	Score float64 `json:"score"`
}

func newListCmd(a *app) *cobra.Command {
	var (
		q      core.Query
		asJSON bool
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes ranked by effective score",
		Long: `List notes ranked by effective score, highest first. Tags are ORed: a note
is shown when it carries any of them. Text matches title and body,
case-insensitively.`,
		Example: `  meteora list -t work -t home --hide-done
  meteora list -q invoice --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.view(func(svc *core.Service) error {
				now := svc.Now()
				notes := svc.View(q)
				if limit > 0 && len(notes) > limit {
					notes = notes[:limit]
				}

				out := cmd.OutOrStdout()
				if asJSON {
					listed := make([]listedNote, len(notes))
					for i, n := range notes {
						listed[i] = listedNote{Note: codec.FromNote(n), Score: core.Score(n, now, svc.Weights())}
					}
					return writeJSON(out, listed)
				}

				if len(notes) == 0 {
					fmt.Fprintln(out, dimStyle.Render("No notes."))
					return nil
				}
				for _, n := range notes {
					fmt.Fprintln(out, noteLine(n, core.Score(n, now, svc.Weights())))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&q.Tags, "tag", "t", nil, "Show notes carrying any of these tags")
	cmd.Flags().StringVarP(&q.Text, "query", "q", "", "Case-insensitive text in title or body")
	cmd.Flags().BoolVar(&q.HideDone, "hide-done", false, "Hide finished notes")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most n notes")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}
