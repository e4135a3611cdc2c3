package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/adeilh/metafetch/httpx"
	"github.com/adeilh/metafetch/internal/api"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve lookups over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			a, err := ctx.ensureApp(signalCtx)
			if err != nil {
				return err
			}
			cfg := a.Config
			if bind == "" {
				bind = cfg.Server.Bind
			}

			opts := []httpx.ServerOption{
				httpx.WithAddress(bind),
				httpx.WithTimeouts(0, cfg.Server.WriteTimeout()),
				httpx.WithLogger(a.Logger.Named("http")),
				httpx.WithRateLimit(cfg.Server.RequestsPerSecond),
			}
			if cfg.Server.CORS {
				opts = append(opts, httpx.WithCORS(cfg.Server.CORSOrigins...))
			}
			server := httpx.NewServer(opts...)
			server.RegisterRoutes(api.New(a.Fetcher, a.Batch, a.Kitsu).Register)

			a.Logger.Info("http api listening", zap.String("bind", server.Address()))
			if err := server.Start(signalCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			a.Logger.Info("http api stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (defaults to server.bind)")
	return cmd
}
