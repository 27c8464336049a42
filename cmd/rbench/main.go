package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/fxnlabs/reduction-bench/internal/config"
	"github.com/fxnlabs/reduction-bench/internal/logger"
)

// appState carries what Before sets up into the commands. Commands must read
// it inside their Action, not while the command tree is being built.
type appState struct {
	cfg *config.Config
	log *zap.Logger
}

func main() {
	state := &appState{}
	app := newApp(state)

	if err := app.Run(os.Args); err != nil {
		if state.log != nil {
			state.log.Fatal("failed to run app", zap.Error(err))
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

func newApp(state *appState) *cli.App {
	return &cli.App{
		Name:  "rbench",
		Usage: "A parallel max-reduction benchmark with host-side verification",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   config.DefaultPath,
				Usage:   "Path to the config file",
				EnvVars: []string{"RBENCH_CONFIG"},
			},
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.LoadOrDefault(c.String("config"), c.IsSet("config"))
			if err != nil {
				return err
			}
			zapLogger, err := logger.New(cfg.Logger.Verbosity)
			if err != nil {
				return err
			}
			state.cfg = cfg
			state.log = zapLogger.Named("rbench")
			return nil
		},
		Commands: []*cli.Command{
			runCommand(state),
			probeCommand(state),
			serveCommand(state),
			configCommands(),
		},
	}
}
