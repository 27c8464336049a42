package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/common-nighthawk/go-figure"
	"github.com/urfave/cli/v2"

	"github.com/fxnlabs/reduction-bench/internal/bench"
	"github.com/fxnlabs/reduction-bench/internal/device"
	"github.com/fxnlabs/reduction-bench/internal/reduction"
	"github.com/fxnlabs/reduction-bench/internal/report"
)

func runCommand(state *appState) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Run one reduction benchmark on the detected device",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "size",
				Aliases:     []string{"n"},
				Usage:       "Element count of the dataset",
				DefaultText: "config",
			},
			&cli.Uint64Flag{
				Name:        "seed",
				Usage:       "Dataset seed",
				DefaultText: "config",
			},
			&cli.IntFlag{
				Name:        "wg",
				Usage:       "Work-group size",
				DefaultText: "config",
			},
			&cli.IntFlag{
				Name:        "groups-max",
				Usage:       "Upper bound on work-groups launched per pass",
				DefaultText: "config",
			},
			&cli.IntFlag{
				Name:        "items",
				Usage:       "Elements each thread folds before its group combines partials",
				DefaultText: "config",
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Suppress the banner; with --csv, emit only the data row",
			},
			&cli.BoolFlag{
				Name:  "csv",
				Usage: "Emit a CSV header and row instead of the summary",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Emit the full record as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			log := state.log.Named("run")

			opts := bench.Options{
				Size:   state.cfg.Dataset.Size,
				Seed:   state.cfg.Dataset.Seed,
				Params: state.cfg.Params(),
			}
			if c.IsSet("size") {
				opts.Size = c.Int("size")
			}
			if c.IsSet("seed") {
				opts.Seed = c.Uint64("seed")
			}
			if c.IsSet("wg") {
				opts.Params.LocalSize = c.Int("wg")
			}
			if c.IsSet("groups-max") {
				opts.Params.GroupsMax = c.Int("groups-max")
			}
			if c.IsSet("items") {
				opts.Params.ItemsPerThread = c.Int("items")
			}

			if !c.Bool("quiet") && !c.Bool("csv") && !c.Bool("json") {
				figure.NewFigure("rbench", "", true).Print()
				fmt.Println()
			}

			manager, err := device.NewManager(nil)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			defer manager.Close()

			rec, runErr := bench.NewRunner(manager, log).Run(opts)
			if runErr != nil && !errors.Is(runErr, reduction.ErrMismatch) {
				return cli.Exit(runErr.Error(), 1)
			}

			switch {
			case c.Bool("csv"):
				// Quiet CSV is the bare data row, so repeated runs can
				// append to one file.
				if !c.Bool("quiet") {
					fmt.Println(report.CSVHeader)
				}
				fmt.Println(rec.CSV())
			case c.Bool("json"):
				out, err := rec.JSON()
				if err != nil {
					return cli.Exit(err.Error(), 1)
				}
				fmt.Println(string(out))
			default:
				rec.WriteConsole(os.Stdout)
			}

			if runErr != nil {
				// Exit code 2 marks a verification mismatch, distinct from
				// operational failures.
				return cli.Exit(runErr.Error(), 2)
			}
			return nil
		},
	}
}
