package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/cpuguy83/fahrplan/internal/moment"
	"github.com/cpuguy83/fahrplan/internal/schedule"
)

func timeframeCommand() *cli.Command {
	return &cli.Command{
		Name:      "timeframe",
		Usage:     "Print the time frame and time column of a schedule file",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			timezoneFlag(),
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("timeframe needs exactly one file", 2)
			}
			loc, err := time.LoadLocation(c.String("timezone"))
			if err != nil {
				return fmt.Errorf("invalid timezone %q: %w", c.String("timezone"), err)
			}

			sessions, err := readSessions(c, c.Args().First(), loc)
			if err != nil {
				return err
			}

			frame := schedule.CalculateTimeFrame(sessions, schedule.ZonedMinuteOfDay(loc))
			return renderTimeColumn(c.App.Writer, sessions, frame, moment.Now(), loc)
		},
	}
}
