package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/meteora/internal/platform"
)

func newRestoreCmd(a *app) *cobra.Command {
	var fromBackup, fresh bool
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Recover from a store that fails to load",
		Long: `Recover from a store that fails to load, for example after a wrong
passphrase change or a damaged file.

  --from-backup  replace the store with the previous save
  --fresh        start over with an empty store`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if fromBackup == fresh {
				return errors.New("exactly one of --from-backup or --fresh is required")
			}
			svc, err := a.open(platform.WithoutLoad())
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx := cmd.Context()
			if fromBackup {
				if err := svc.LoadBackup(ctx); err != nil {
					return fmt.Errorf("restore from backup: %w", err)
				}
			} else {
				svc.Reset()
			}
			if err := svc.Save(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Restored %d notes\n", okMark, svc.Len())
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromBackup, "from-backup", false, "Load the previous save")
	cmd.Flags().BoolVar(&fresh, "fresh", false, "Start with an empty store")
	return cmd
}
