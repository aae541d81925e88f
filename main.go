package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/smartreview/cmd"
)

const (
	version = "0.1.0"
)

func main() {
	app := &cli.App{
		Name:    "smartreview",
		Usage:   "Rating-driven review generation and private feedback routing",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE` (default: ./smartreview.toml or ~/.smartreview.toml)",
				EnvVars: []string{"SMARTREVIEW_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			cmd.ServeCommand(),
			cmd.SubmitCommand(),
			cmd.GenerateCommand(),
			cmd.FeedbackCommand(),
			cmd.PlatformsCommand(),
			cmd.ConfigCommand(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
