package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/meteora/internal/config"
	"github.com/aretw0/meteora/internal/logging"
	"github.com/aretw0/meteora/internal/platform"
	"github.com/aretw0/meteora/pkg/adapters/fs"
	"github.com/aretw0/meteora/pkg/core"
)

// app holds the global flags shared by every command.
type app struct {
	vault      string
	configPath string
	verbose    bool
	pretty     bool
	jsonLog    bool

	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "meteora",
		Short: "Rank and filter notes by priority, deadline and progress",
		Long: `Meteora keeps a collection of notes and shows them ranked by an effective
score built from their priority, the urgency of their deadline and the
progress of their checklist. Notes can be tagged, filtered and linked as
dependencies of one another.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setupLogging()
		},
	}

	cmd.PersistentFlags().StringVar(&a.vault, "vault", "", "Vault directory (default: nearest directory with .meteora or .git)")
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (default: <vault>/.meteora/config.toml)")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().BoolVar(&a.pretty, "pretty", false, "Colored log output")
	cmd.PersistentFlags().BoolVar(&a.jsonLog, "json-log", false, "JSON log output")

	cmd.AddCommand(
		newInitCmd(a),
		newAddCmd(a),
		newEditCmd(a),
		newDeleteCmd(a),
		newListCmd(a),
		newShowCmd(a),
		newLinkCmd(a),
		newUnlinkCmd(a),
		newDepsCmd(a),
		newTagCmd(a),
		newScratchCmd(a),
		newLogbookCmd(a),
		newRestoreCmd(a),
		newServeCmd(a),
		newWatchCmd(a),
		newStatusCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return cmd
}

// setupLogging builds the logger from the flags, falling back to the [log]
// section of the config file for options not given on the command line.
func (a *app) setupLogging() error {
	debug, pretty, jsonLog := a.verbose, a.pretty, a.jsonLog
	if cfg, err := a.config(); err == nil {
		debug = debug || cfg.Log.Debug
		pretty = pretty || cfg.Log.Pretty
		jsonLog = jsonLog || cfg.Log.JSON
	}
	a.logger = logging.New(
		logging.WithDebug(debug),
		logging.WithPretty(pretty),
		logging.WithJSON(jsonLog),
	)
	slog.SetDefault(a.logger)
	return nil
}

// root returns the vault directory: the --vault flag, or the nearest
// directory holding .meteora or .git, or the working directory.
func (a *app) root() (string, error) {
	if a.vault != "" {
		return a.vault, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	root, err := platform.FindRoot(wd)
	if errors.Is(err, platform.ErrRootNotFound) {
		return wd, nil
	}
	return root, err
}

func (a *app) configFile() (string, error) {
	if a.configPath != "" {
		return a.configPath, nil
	}
	root, err := a.root()
	if err != nil {
		return "", err
	}
	return config.Path(root, fs.DefaultSystemDir), nil
}

func (a *app) config() (config.Config, error) {
	path, err := a.configFile()
	if err != nil {
		return config.Config{}, err
	}
	return config.Load(path)
}

// open loads the configured store. extra options override the config file.
func (a *app) open(extra ...platform.Option) (*core.Service, error) {
	root, err := a.root()
	if err != nil {
		return nil, err
	}
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	opts, err := platform.FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	opts = append(opts, platform.WithLogger(a.logger))
	opts = append(opts, extra...)

	svc, err := platform.New(root, opts...)
	if err != nil {
		var le *core.LoadError
		if errors.As(err, &le) && le.Recoverable() {
			return nil, fmt.Errorf("%w\n%s", err, recoveryHint(cfg.Storage.Adapter))
		}
		return nil, err
	}
	return svc, nil
}

func recoveryHint(adapter string) string {
	if platform.KeepsBackup(adapter) {
		return "run 'meteora restore --from-backup' or 'meteora restore --fresh' to recover"
	}
	return "run 'meteora restore --fresh' to recover"
}

// commit opens the store, applies fn and saves the result.
func (a *app) commit(ctx context.Context, fn core.Mutation) error {
	svc, err := a.open()
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.Update(ctx, fn); err != nil {
		return err
	}
	return svc.Save(ctx)
}

// view opens the store read-only and passes it to fn.
func (a *app) view(fn func(svc *core.Service) error) error {
	svc, err := a.open(platform.WithReadOnly(true))
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(svc)
}
