package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/fxnlabs/reduction-bench/fixtures"
	"github.com/fxnlabs/reduction-bench/internal/config"
)

func configCommands() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage the rbench config file",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write a commented default config file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "path",
						Value: config.DefaultPath,
						Usage: "Where to write the file",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
				Action: func(c *cli.Context) error {
					path := c.String("path")
					if _, err := os.Stat(path); err == nil && !c.Bool("force") {
						return cli.Exit(fmt.Sprintf("%s already exists, use --force to overwrite", path), 1)
					}
					if err := os.WriteFile(path, fixtures.ConfigTemplate, 0o644); err != nil {
						return cli.Exit(err.Error(), 1)
					}
					fmt.Printf("Wrote %s\n", path)
					return nil
				},
			},
		},
	}
}
