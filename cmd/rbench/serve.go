package main

import (
	"context"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/fxnlabs/reduction-bench/internal/challenge"
	"github.com/fxnlabs/reduction-bench/internal/config"
	"github.com/fxnlabs/reduction-bench/internal/device"
	"github.com/fxnlabs/reduction-bench/internal/metrics"
)

func serveCommand(state *appState) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the challenge endpoint so a scheduler can probe this node",
		Action: func(c *cli.Context) error {
			app := fx.New(
				fx.Supply(state.cfg),
				fx.Provide(
					func() *zap.Logger { return state.log.Named("node") },
					newDeviceManager,
					newHTTPServer,
				),
				fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
					return &fxevent.ZapLogger{Logger: log}
				}),
				fx.Invoke(func(*http.Server) {}),
			)
			app.Run()
			return nil
		},
	}
}

func newDeviceManager(lc fx.Lifecycle, log *zap.Logger) (*device.Manager, error) {
	manager, err := device.NewManager(nil)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return manager.Close()
		},
	})
	log.Info("device manager ready",
		zap.String("backend", manager.BackendType()),
		zap.String("device", manager.Info().Name))
	return manager, nil
}

func newHTTPServer(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, manager *device.Manager) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/challenge", metrics.Middleware(challenge.ChallengeHandler(log, manager), "/challenge"))
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: cfg.Server.ListenAddress, Handler: mux}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Info("Starting server on", zap.String("address", srv.Addr))
			go srv.Serve(ln)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
	return srv
}
