package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/meteora/pkg/core"
)

func newLinkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "link <source> <target>",
		Short: "Make source depend on target",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var source, target string
			err := a.commit(cmd.Context(), func(st *core.Store) error {
				var err error
				if source, err = resolveID(st, args[0]); err != nil {
					return err
				}
				if target, err = resolveID(st, args[1]); err != nil {
					return err
				}
				return st.Link(source, target)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Linked %s -> %s\n", okMark, source, target)
			return nil
		},
	}
}

func newUnlinkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <source> <target>",
		Short: "Remove a dependency",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var source, target string
			err := a.commit(cmd.Context(), func(st *core.Store) error {
				var err error
				if source, err = resolveID(st, args[0]); err != nil {
					return err
				}
				// The target may already be gone from the link set.
				target = args[1]
				if id, err := resolveID(st, args[1]); err == nil {
					target = id
				}
				return st.Unlink(source, target)
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Unlinked %s -> %s\n", okMark, source, target)
			return nil
		},
	}
}

func newDepsCmd(a *app) *cobra.Command {
	var reverse bool
	cmd := &cobra.Command{
		Use:   "deps <id>",
		Short: "List the notes a note depends on",
		Long:  `List the notes a note links to, or with --reverse the notes linking to it.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.view(func(svc *core.Service) error {
				n, err := findNote(svc, args[0])
				if err != nil {
					return err
				}
				seq := svc.DependenciesOf(n.ID)
				if reverse {
					seq = svc.DependentsOf(n.ID)
				}

				out := cmd.OutOrStdout()
				now := svc.Now()
				empty := true
				for id := range seq {
					dep, err := svc.Note(id)
					if err != nil {
						continue
					}
					empty = false
					fmt.Fprintln(out, noteLine(dep, core.Score(dep, now, svc.Weights())))
				}
				if empty {
					fmt.Fprintln(out, dimStyle.Render("No links."))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&reverse, "reverse", "r", false, "List dependents instead")
	return cmd
}
