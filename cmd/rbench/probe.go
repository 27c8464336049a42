package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/fxnlabs/reduction-bench/internal/challenge/challengers"
	"github.com/fxnlabs/reduction-bench/internal/device"
)

func probeCommand(state *appState) *cli.Command {
	return &cli.Command{
		Name:  "probe",
		Usage: "Detect the device and report which kernel variant it gets",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Emit the capability report as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			log := state.log.Named("probe")

			manager, err := device.NewManager(nil)
			if err != nil {
				return cli.Exit(err.Error(), 1)
			}
			defer manager.Close()

			rep := challengers.NewDeviceInfoChallenger(manager).Report(log)
			if c.Bool("json") {
				out, err := json.MarshalIndent(rep, "", "  ")
				if err != nil {
					return cli.Exit(err.Error(), 1)
				}
				fmt.Println(string(out))
				return nil
			}

			info := rep.Device
			fmt.Printf("device    : %s\n", info.Name)
			fmt.Printf("vendor    : %s\n", info.Vendor)
			fmt.Printf("backend   : %s\n", info.Backend)
			fmt.Printf("language  : %s\n", info.LanguageVersion)
			fmt.Printf("version   : %s\n", info.DeviceVersion)
			fmt.Printf("max local : %d\n", info.MaxLocalSize)
			if info.Workers > 0 {
				fmt.Printf("workers   : %d\n", info.Workers)
			}
			if len(info.Features) > 0 {
				fmt.Printf("features  : %s\n", strings.Join(info.Features, " "))
			}
			fmt.Printf("variant   : %s\n", rep.Variant)
			return nil
		},
	}
}
