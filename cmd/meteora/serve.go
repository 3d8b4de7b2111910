package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/spf13/cobra"

	"github.com/aretw0/meteora/pkg/api"
	"github.com/aretw0/meteora/pkg/core"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		listen   string
		watch    bool
		autosave time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the notes over HTTP",
		Long: `Serve the notes over a JSON HTTP API. With --watch, edits made to vault
files by other programs are picked up before the next request. Pending
changes are saved on shutdown and every --autosave interval.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			if listen == "" {
				listen = cfg.Server.Listen
			}

			svc, err := a.open()
			if err != nil {
				return err
			}
			defer svc.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if watch {
				events, err := svc.Watch(ctx, "")
				if err != nil {
					return err
				}
				// The API flushes queued reloads per request; just drain.
				lifecycle.Go(ctx, func(ctx context.Context) error {
					for range events {
					}
					return nil
				})
			}
			if autosave > 0 {
				lifecycle.Go(ctx, func(ctx context.Context) error {
					autosaveLoop(ctx, svc, autosave, a.logger.Warn)
					return nil
				})
			}

			server := api.NewServer(api.Config{Listen: listen}, svc, a.logger)
			errc := make(chan error, 1)
			go func() { errc <- server.Run() }()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}
			a.logger.Info("shutting down")
			if err := server.Shutdown(); err != nil {
				a.logger.Warn("server shutdown failed", "error", err)
			}
			return saveIfDirty(context.Background(), svc)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default from config, "+api.DefaultListen+")")
	cmd.Flags().BoolVar(&watch, "watch", false, "Pick up external edits to vault files")
	cmd.Flags().DurationVar(&autosave, "autosave", 30*time.Second, "Save pending changes at this interval; 0 disables")
	return cmd
}

func autosaveLoop(ctx context.Context, svc *core.Service, every time.Duration, warn func(string, ...any)) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := svc.Flush(ctx); err != nil {
				warn("flush failed", "error", err)
			}
			if err := saveIfDirty(ctx, svc); err != nil {
				warn("autosave failed", "error", err)
			}
		}
	}
}

func saveIfDirty(ctx context.Context, svc *core.Service) error {
	if !svc.Dirty() {
		return nil
	}
	return svc.Save(ctx)
}
