package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"gameshelf/internal/api"
	"gameshelf/internal/logging"
	"gameshelf/internal/resolution"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if bind == "" {
				bind = cfg.Paths.APIBind
			}

			lockPath := filepath.Join(cfg.Paths.DataDir, "gameshelf.lock")
			lock := flock.New(lockPath)
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !locked {
				return errors.New("another gameshelf server is already running")
			}
			defer func() { _ = lock.Unlock() }()

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return ctx.withService(func(svc *resolution.Service) error {
				logger, err := ctx.logger()
				if err != nil {
					return err
				}
				server := api.NewServer(bind, svc, logger)
				if err := server.Start(signalCtx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", server.Addr())
				svc.Run(signalCtx)
				server.Stop()
				logger.Info("gameshelf server stopped", logging.String("lock", lockPath))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (defaults to paths.api_bind)")
	return cmd
}
