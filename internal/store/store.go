// Package store persists the last fetched schedule so the next sync can
// detect what changed.
package store

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/cpuguy83/fahrplan/internal/schedule"
)

// Store holds one snapshot of a session list including its change flags.
type Store interface {
	// Load returns the stored snapshot. When nothing was stored yet the
	// error wraps fs.ErrNotExist.
	Load(ctx context.Context) ([]schedule.Session, error)

	// Save replaces the stored snapshot.
	Save(ctx context.Context, sessions []schedule.Session) error

	Close() error
}

// Open returns the store for path. Paths ending in .db, .sqlite or .sqlite3
// are SQLite databases, everything else is an iCalendar file.
func Open(path string) (Store, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return OpenSQLite(path)
	default:
		return NewICSFile(path), nil
	}
}

// Change flag names used by both snapshot formats.
const (
	flagTitle           = "title"
	flagSubtitle        = "subtitle"
	flagSpeakers        = "speakers"
	flagLanguage        = "language"
	flagRoom            = "room"
	flagTrack           = "track"
	flagRecordingOptOut = "recording-optout"
	flagDay             = "day"
	flagTime            = "time"
	flagDuration        = "duration"
	flagNew             = "new"
	flagCanceled        = "canceled"
)

type flagField struct {
	name string
	v    *bool
}

func flagFields(s *schedule.Session) []flagField {
	return []flagField{
		{flagTitle, &s.ChangedTitle},
		{flagSubtitle, &s.ChangedSubtitle},
		{flagSpeakers, &s.ChangedSpeakers},
		{flagLanguage, &s.ChangedLanguage},
		{flagRoom, &s.ChangedRoom},
		{flagTrack, &s.ChangedTrack},
		{flagRecordingOptOut, &s.ChangedRecordingOptOut},
		{flagDay, &s.ChangedDay},
		{flagTime, &s.ChangedTime},
		{flagDuration, &s.ChangedDuration},
		{flagNew, &s.ChangedIsNew},
		{flagCanceled, &s.ChangedIsCanceled},
	}
}

// changeFlags returns the names of the flags set on s.
func changeFlags(s schedule.Session) []string {
	var names []string
	for _, f := range flagFields(&s) {
		if *f.v {
			names = append(names, f.name)
		}
	}
	return names
}

// setChangeFlags sets the named flags on s. Unknown names are ignored.
func setChangeFlags(s *schedule.Session, names []string) {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[strings.TrimSpace(n)] = true
	}
	for _, f := range flagFields(s) {
		if set[f.name] {
			*f.v = true
		}
	}
}
