package main

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/meteora/pkg/core"
)

func newLogbookCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "logbook",
		Aliases: []string{"log"},
		Short:   "Dated journal entries",
	}
	cmd.AddCommand(newLogbookAddCmd(a), newLogbookShowCmd(a))
	return cmd
}

func newLogbookAddCmd(a *app) *cobra.Command {
	var (
		tags []string
		day  string
	)
	cmd := &cobra.Command{
		Use:   "add <text...>",
		Short: "Add an entry to today's page",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			at := time.Now()
			if day != "" {
				var err error
				if at, err = time.ParseInLocation(time.DateOnly, day, time.Local); err != nil {
					return fmt.Errorf("invalid day %q: use YYYY-MM-DD", day)
				}
			}
			entry := core.LogEntry{Text: strings.Join(args, " "), Tags: tags}
			if err := a.commit(cmd.Context(), func(st *core.Store) error {
				st.AddLogEntry(at, entry)
				return nil
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Logged on %s\n", okMark, at.Format(time.DateOnly))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "Tag the entry (repeatable)")
	cmd.Flags().StringVar(&day, "day", "", "Day to log on, YYYY-MM-DD (default: today)")
	return cmd
}

func newLogbookShowCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "show [YYYY-MM-DD]",
		Short: "Show the entries of a day (default: today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day := time.Now().Format(time.DateOnly)
			if len(args) == 1 {
				if _, err := time.Parse(time.DateOnly, args[0]); err != nil {
					return fmt.Errorf("invalid day %q: use YYYY-MM-DD", args[0])
				}
				day = args[0]
			}
			return a.view(func(svc *core.Service) error {
				book := svc.Logbook()
				days := []string{day}
				if all {
					days = slices.Sorted(maps.Keys(book))
				}

				out := cmd.OutOrStdout()
				for _, d := range days {
					entries := book[d]
					fmt.Fprintln(out, keyStyle.Render(d))
					if len(entries) == 0 {
						fmt.Fprintln(out, dimStyle.Render("  nothing logged"))
					}
					for _, e := range entries {
						line := "  - " + e.Text
						for _, tag := range e.Tags {
							line += " " + tagChip(tag)
						}
						fmt.Fprintln(out, line)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Show every day")
	return cmd
}
