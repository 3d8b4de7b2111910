package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/meteora/internal/config"
	"github.com/aretw0/meteora/internal/platform"
	"github.com/aretw0/meteora/pkg/adapters/fs"
)

func newInitCmd(a *app) *cobra.Command {
	var adapter string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a vault in the current directory",
		Long: `Initialize a vault: create .meteora/config.toml and prepare the selected
storage. An existing config file is kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root := a.vault
			if root == "" {
				wd, err := os.Getwd()
				if err != nil {
					return fmt.Errorf("failed to get working directory: %w", err)
				}
				root = wd
			}
			a.vault = root

			path := a.configPath
			if path == "" {
				path = config.Path(root, fs.DefaultSystemDir)
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); os.IsNotExist(err) {
				if adapter != "" {
					cfg.Storage.Adapter = adapter
				}
				if err := config.Save(path, cfg); err != nil {
					return err
				}
			} else if adapter != "" && adapter != cfg.Storage.Adapter {
				return fmt.Errorf("vault already uses adapter %q; edit %s to change it", cfg.Storage.Adapter, path)
			}

			svc, err := a.open()
			if err != nil {
				return err
			}
			defer svc.Close()
			if err := svc.Save(cmd.Context()); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Initialized %s vault in %s\n", okMark, cfg.Storage.Adapter, root)
			return nil
		},
	}
	cmd.Flags().StringVar(&adapter, "adapter", "", fmt.Sprintf("Storage adapter: %s, %s, %s, %s or %s",
		platform.AdapterVault, platform.AdapterSnapshot, platform.AdapterSQLite, platform.AdapterPostgres, platform.AdapterS3))
	return cmd
}
