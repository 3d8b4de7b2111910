package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/meteora/pkg/core"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the service and repository state as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.view(func(svc *core.Service) error {
				return writeJSON(cmd.OutOrStdout(), svc.State())
			})
		},
	}
}
