package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	metlifecycle "github.com/aretw0/meteora/pkg/adapters/lifecycle"
	"github.com/aretw0/meteora/pkg/core"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		pattern string
		save    bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow external edits to vault files",
		Long: `Watch the vault for notes created, edited or removed by other programs and
print each change with the note's new rank. With --save, the tag registry
and journal are updated as changes arrive.`,
		Example: `  meteora watch --pattern 'projects/**'`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open()
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			events, err := svc.Watch(ctx, pattern)
			if err != nil {
				return err
			}
			source := metlifecycle.NewSource(events)
			if err := source.Start(ctx); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, dimStyle.Render("Watching for changes. Press Ctrl+C to stop."))
			for ev := range source.Events() {
				// Each event is a frame: apply the queued reload before reporting.
				if err := svc.Flush(ctx); err != nil {
					a.logger.Warn("failed to apply change", "error", err)
				}
				fmt.Fprintln(out, describeEvent(svc, ev))
				if save {
					if err := saveIfDirty(ctx, svc); err != nil {
						a.logger.Warn("save failed", "error", err)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&pattern, "pattern", "", "Glob of note IDs to watch, e.g. 'work/**' (default: all)")
	cmd.Flags().BoolVar(&save, "save", false, "Save after each change")
	return cmd
}

func describeEvent(svc *core.Service, ev any) string {
	e, ok := ev.(core.Event)
	if !ok || e.Type == core.EventDelete {
		return fmt.Sprint(ev)
	}
	for i, n := range svc.View(core.Query{}) {
		if n.ID == e.ID {
			return fmt.Sprintf("%s %s", e, dimStyle.Render(fmt.Sprintf("(rank %d)", i+1)))
		}
	}
	return e.String()
}
