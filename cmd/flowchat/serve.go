package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/metalagman/flowchat/internal/config"
	"github.com/metalagman/flowchat/internal/pipeline"
	"github.com/metalagman/flowchat/internal/web"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

const readHeaderTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := loadServices(cmd.Context())
			if err != nil {
				return err
			}
			if addr != "" {
				svc.cfg.Server.Addr = addr
			}

			return serve(cmd.Context(), svc)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

// serve runs the HTTP API until ctx ends or a shutdown signal arrives.
// svc is closed on every return path, including a failed app build or start.
func serve(ctx context.Context, svc *services) error {
	defer func() {
		if err := svc.Close(); err != nil {
			log.Warn().Err(err).Msg("close services")
		}
	}()

	app := fx.New(
		fx.NopLogger,
		fx.Supply(svc.cfg, svc),
		fx.Provide(newOrchestrator, newWebServer),
		fx.Invoke(startHTTP),
	)
	if err := app.Err(); err != nil {
		return fmt.Errorf("build serve app: %w", err)
	}
	return runApp(ctx, app, svc.cfg)
}

func newOrchestrator(svc *services) (*pipeline.Orchestrator, error) {
	return svc.orchestrator(context.Background())
}

func newWebServer(svc *services, orch *pipeline.Orchestrator) *web.Server {
	return web.NewServer(web.Deps{
		Orchestrator: orch,
		Workflows:    svc.workflows,
		Agents:       svc.agents,
		Legacy:       svc.legacy,
		Tools:        svc.tools,
	})
}

func startHTTP(lc fx.Lifecycle, cfg config.Config, server *web.Server) {
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", srv.Addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", srv.Addr, err)
			}
			log.Info().Str("addr", ln.Addr().String()).Msg("http api listening")
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error().Err(err).Msg("http api stopped")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info().Msg("http api shutting down")
			return srv.Shutdown(ctx)
		},
	})
}

// runApp starts app, waits for a signal or ctx, then stops it within the shutdown timeout.
func runApp(ctx context.Context, app *fx.App, cfg config.Config) error {
	if err := app.Start(ctx); err != nil {
		return err
	}
	select {
	case sig := <-app.Done():
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return app.Stop(stopCtx)
}
