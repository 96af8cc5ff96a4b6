// fahrplan keeps a local copy of a conference schedule and reports what
// changed between fetches.
package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/cpuguy83/fahrplan/internal/config"
)

func main() {
	// Passwords and tokens may live in a .env next to the config.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "fahrplan",
		Usage: "Sync conference schedules and track changes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file (default: ~/.config/fahrplan/config.yaml)",
				EnvVars: []string{"FAHRPLAN_CONFIG"},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "verbose logging",
			},
		},
		Before: func(c *cli.Context) error {
			setupLogger(c.Bool("verbose"))
			return nil
		},
		Commands: []*cli.Command{
			syncCommand(),
			diffCommand(),
			timeframeCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("fahrplan failed", "error", err)
		os.Exit(1)
	}
}

func setupLogger(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}
