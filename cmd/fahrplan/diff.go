package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/cpuguy83/fahrplan/internal/calendar"
	"github.com/cpuguy83/fahrplan/internal/schedule"
	"github.com/cpuguy83/fahrplan/internal/store"
)

func diffCommand() *cli.Command {
	return &cli.Command{
		Name:      "diff",
		Usage:     "Show what changed between two schedule files",
		ArgsUsage: "OLD NEW",
		Flags: []cli.Flag{
			timezoneFlag(),
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return cli.Exit("diff needs exactly two files: OLD NEW", 2)
			}
			loc, err := time.LoadLocation(c.String("timezone"))
			if err != nil {
				return fmt.Errorf("invalid timezone %q: %w", c.String("timezone"), err)
			}

			oldSessions, err := readSessions(c, c.Args().Get(0), loc)
			if err != nil {
				return err
			}
			newSessions, err := readSessions(c, c.Args().Get(1), loc)
			if err != nil {
				return err
			}

			flagged, _ := schedule.ComputeSessionsWithChangeFlags(newSessions, oldSessions)
			return renderChanges(c.App.Writer, flagged, loc)
		},
	}
}

func timezoneFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "timezone",
		Aliases: []string{"tz"},
		Value:   "UTC",
		Usage:   "IANA zone used for floating times and display",
	}
}

// readSessions reads a snapshot store, a snapshot .ics or a schedule feed
// file. Change flags stored in a snapshot are kept.
func readSessions(c *cli.Context, path string, loc *time.Location) ([]schedule.Session, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		st, err := store.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer st.Close()

		sessions, err := st.Load(c.Context)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		return sessions, nil
	case ".ics":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if store.IsSnapshot(data) {
			return store.Decode(bytes.NewReader(data))
		}
		return calendar.ParseICS(bytes.NewReader(data), filepath.Base(path), loc)
	default:
		return calendar.ReadFile(path, loc)
	}
}
