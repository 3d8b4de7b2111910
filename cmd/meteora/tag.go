package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/meteora/pkg/core"
)

func newTagCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Manage the tag registry",
	}
	cmd.AddCommand(
		newTagListCmd(a),
		newTagAddCmd(a),
		newTagRenameCmd(a),
		newTagDeleteCmd(a),
	)
	return cmd
}

func newTagListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tags with their colors and usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.view(func(svc *core.Service) error {
				out := cmd.OutOrStdout()
				usage := svc.TagUsage()
				tags := svc.Tags()
				if len(tags) == 0 {
					fmt.Fprintln(out, dimStyle.Render("No tags."))
				}
				for _, tag := range tags {
					fmt.Fprintf(out, "%s %s %s\n", tagChip(tag.Name), dimStyle.Render(tag.Color.Hex()),
						dimStyle.Render(fmt.Sprintf("%d notes", usage[tag.Name])))
				}
				return nil
			})
		},
	}
}

func newTagAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Register a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.commit(cmd.Context(), func(st *core.Store) error {
				return st.AddTag(args[0])
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Added tag %s\n", okMark, tagChip(args[0]))
			return nil
		},
	}
}

func newTagRenameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <from> <to>",
		Short: "Rename a tag on every note",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.commit(cmd.Context(), func(st *core.Store) error {
				return st.RenameTag(args[0], args[1])
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Renamed %s to %s\n", okMark, args[0], tagChip(args[1]))
			return nil
		},
	}
}

func newTagDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a tag and remove it from every note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.commit(cmd.Context(), func(st *core.Store) error {
				return st.DeleteTag(args[0])
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted tag %s\n", okMark, args[0])
			return nil
		},
	}
}
