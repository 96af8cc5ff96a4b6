// Package calendar provides schedule sources and maps their entries to sessions.
package calendar

import (
	"context"
	"time"

	"github.com/cpuguy83/fahrplan/internal/moment"
	"github.com/cpuguy83/fahrplan/internal/schedule"
)

// Source is the interface that schedule sources must implement.
type Source interface {
	// Name returns the display name of this source.
	Name() string

	// Fetch retrieves all sessions of the schedule.
	Fetch(ctx context.Context) ([]schedule.Session, error)
}

// assignDays fills Day and StartTime of dated sessions that lack a day index.
// Day 1 is the calendar day in loc of the earliest dated session.
func assignDays(sessions []schedule.Session, loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}

	var first time.Time
	for i := range sessions {
		if sessions[i].DateUTC == 0 {
			continue
		}
		d := localDay(sessions[i].DateUTC, loc)
		if first.IsZero() || d.Before(first) {
			first = d
		}
	}
	if first.IsZero() {
		return
	}

	for i := range sessions {
		s := &sessions[i]
		if s.DateUTC == 0 || s.Day != 0 {
			continue
		}
		start := moment.OfEpochMilli(s.DateUTC).ToZoned(loc)
		s.StartTime = start.Hour()*60 + start.Minute()
		s.Day = calendarDays(first, localDay(s.DateUTC, loc)) + 1
	}
}

// localDay returns midnight of the day in loc of the given timestamp,
// expressed as a UTC date so that days can be counted without DST skew.
func localDay(utcMillis int64, loc *time.Location) time.Time {
	t := moment.OfEpochMilli(utcMillis).ToZoned(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func calendarDays(from, to time.Time) int {
	return int(to.Sub(from) / (24 * time.Hour))
}
