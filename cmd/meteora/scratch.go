package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/meteora/pkg/core"
)

func newScratchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scratch",
		Short: "Quick capture sections that can become notes",
		Long: `The scratchpad holds free-form sections. They are not ranked; promote one
to turn it into a note. Sections are numbered from 1.`,
	}
	cmd.AddCommand(
		newScratchAddCmd(a),
		newScratchListCmd(a),
		newScratchPromoteCmd(a),
		newScratchRemoveCmd(a),
	)
	return cmd
}

// sectionIndex converts a 1-based section number to a store index.
func sectionIndex(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid section number %q", arg)
	}
	return n - 1, nil
}

func newScratchAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <text...>",
		Short: "Append a section",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readBody(cmd.InOrStdin(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			var i int
			if err := a.commit(cmd.Context(), func(st *core.Store) error {
				i = st.AddScratch(text)
				return nil
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Added section %d\n", okMark, i+1)
			return nil
		},
	}
}

func newScratchListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.view(func(svc *core.Service) error {
				out := cmd.OutOrStdout()
				sections := svc.Scratches()
				if len(sections) == 0 {
					fmt.Fprintln(out, dimStyle.Render("Scratchpad is empty."))
				}
				for i, text := range sections {
					fmt.Fprintf(out, "%s %s\n", idStyle.Render(fmt.Sprintf("%3d", i+1)), strings.TrimRight(text, "\n"))
				}
				return nil
			})
		},
	}
}

func newScratchPromoteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "promote <n>",
		Short: "Turn a section into a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := sectionIndex(args[0])
			if err != nil {
				return err
			}
			var n core.Note
			if err := a.commit(cmd.Context(), func(st *core.Store) error {
				var err error
				n, err = st.PromoteScratch(i, time.Now())
				return err
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Promoted section %d to %s\n", okMark, i+1, n.ID)
			return nil
		},
	}
}

func newScratchRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <n>",
		Short: "Remove a section",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := sectionIndex(args[0])
			if err != nil {
				return err
			}
			if err := a.commit(cmd.Context(), func(st *core.Store) error {
				return st.RemoveScratch(i)
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Removed section %d\n", okMark, i+1)
			return nil
		},
	}
}
