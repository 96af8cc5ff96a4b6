package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/cpuguy83/fahrplan/internal/notify"
	"github.com/cpuguy83/fahrplan/internal/sync"
)

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Fetch all sources and record what changed since the last sync",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "once",
				Usage: "sync a single time, print the changes and exit",
			},
		},
		Action: runSync,
	}
}

func runSync(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	syncer, err := sync.NewSyncer(cfg)
	if err != nil {
		return fmt.Errorf("create syncer: %w", err)
	}
	defer syncer.Close()

	if syncer.SourceCount() == 0 {
		return errors.New("no schedule sources configured")
	}

	var notifier *notify.Notifier
	if cfg.Notifications.Enabled {
		notifier, err = notify.New("Fahrplan")
		if err != nil {
			slog.Warn("failed to initialize notifications", "error", err)
			notifier = nil
		} else {
			defer notifier.Close()
		}
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if c.Bool("once") {
		res, err := syncer.Sync(ctx)
		if err != nil {
			return fmt.Errorf("sync: %w", err)
		}
		announce(res, notifier)
		return renderChanges(c.App.Writer, res.Sessions, loc)
	}

	slog.Info("fahrplan running",
		"sources", syncer.SourceCount(),
		"sync_interval", syncer.Interval(),
		"schedule", cfg.Sync.Schedule,
		"output", cfg.Sync.Output,
	)

	syncer.Run(ctx, func(res *sync.Result, err error) {
		if err != nil {
			slog.Warn("sync failed", "error", err)
			return
		}
		announce(res, notifier)
	})

	slog.Info("received signal, shutting down")
	return nil
}

// announce sends a desktop notification for the changes of a sync.
func announce(res *sync.Result, notifier *notify.Notifier) {
	if notifier == nil || res.FirstLoad || !res.FoundChanges {
		return
	}

	notif, ok := notify.ScheduleChanged(res.Sessions)
	if !ok {
		return
	}
	if _, err := notifier.Send(notif); err != nil {
		slog.Warn("failed to send notification", "run", res.RunID, "error", err)
	}
}
