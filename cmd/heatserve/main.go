// Copyright 2025 The HeatServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main runs heatserve: a prefix autocomplete index that ranks terms by
heat, a count of how often each term was added or served.

# Usage

Serve the JSON API:

	heatserve serve --addr :5000

Serve msgpack over stdin/stdout for editor integrations:

	heatserve ipc

Try the index interactively:

	heatserve cli --limit 5

Load a term list into the store:

	heatserve seed --file terms.txt

# Configuration

Settings live in config.toml, created with defaults on first run:

	[server]
	addr = ":5000"
	default_limit = 10
	max_limit = 64

	[index]
	alphabet = "open"
	heat_triggers = ["insert", "suggestion_served"]

	[store]
	kind = "file"
	flush_interval = "2s"

serve and ipc reload the [server] limits when the file changes.
*/
package main

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v2"
)

const (
	Version = "0.3.0"
	AppName = "heatserve"
	gh      = "https://github.com/bastiangx/heatserve"
)

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    AppName,
		Usage:   "Heat-ranked prefix autocomplete",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "Toggle debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the JSON HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Usage: "Listen address (overrides config)"},
				},
			},
			{
				Name:   "ipc",
				Usage:  "Serve msgpack requests over stdin/stdout",
				Action: ipcCommand,
			},
			{
				Name:   "cli",
				Usage:  "Interactive prompt for queries, adds and lookups",
				Action: cliCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Suggestions per query (default from config)"},
				},
			},
			{
				Name:   "seed",
				Usage:  "Load a term list into the store",
				Action: seedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Term list (.txt) or snapshot (.snap); built-in sample terms when empty"},
					&cli.BoolFlag{Name: "force", Usage: "Merge into a non-empty store, keeping the higher heat per term"},
				},
			},
			{
				Name:   "config",
				Usage:  "Show the active config, or rewrite it with defaults",
				Action: configCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "rebuild", Usage: "Overwrite the config file with default values"},
				},
			},
			{
				Name:   "version",
				Usage:  "Show version information",
				Action: versionCommand,
			},
		},
	}
}

func versionCommand(c *cli.Context) error {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"}).
		Background(lipgloss.AdaptiveColor{Light: "#f2e9e1", Dark: "#26233a"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	logger.SetStyles(styles)

	logger.Print("")
	logger.Print("[ HeatServe ] Autocomplete that learns what people pick")
	logger.Print("", "version", Version)
	logger.Print("")
	logger.Print("use -h or --help to see available commands")
	logger.Print("Github Repo", "gh", gh)
	return nil
}
