package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/cpuguy83/fahrplan/internal/moment"
	"github.com/cpuguy83/fahrplan/internal/schedule"
)

var (
	green  = lipgloss.Color("#a6e3a1")
	peach  = lipgloss.Color("#fab387")
	red    = lipgloss.Color("#f38ba8")
	subtle = lipgloss.Color("#a6adc8")

	headerStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(subtle)
	nowStyle      = lipgloss.NewStyle().Bold(true).Reverse(true)
	newStyle      = lipgloss.NewStyle().Foreground(green)
	changedStyle  = lipgloss.NewStyle().Foreground(peach)
	canceledStyle = lipgloss.NewStyle().Foreground(red)
)

// renderChanges prints every session carrying a change flag, one per line.
func renderChanges(w io.Writer, sessions []schedule.Session, loc *time.Location) error {
	stats := schedule.Stats(sessions)
	if stats.Total() == 0 {
		_, err := fmt.Fprintln(w, mutedStyle.Render("no changes"))
		return err
	}

	summary := fmt.Sprintf("%d new, %d changed, %d canceled", stats.New, stats.Changed, stats.Canceled)
	if _, err := fmt.Fprintln(w, headerStyle.Render(summary)); err != nil {
		return err
	}

	for _, s := range sessions {
		var kind string
		var style lipgloss.Style
		switch {
		case s.ChangedIsCanceled:
			kind, style = "canceled", canceledStyle
		case s.ChangedIsNew:
			kind, style = "new", newStyle
		case s.IsChanged():
			kind, style = "changed", changedStyle
		default:
			continue
		}

		pad := strings.Repeat(" ", len("canceled")-len(kind))
		line := fmt.Sprintf("%s%s  %s  %s  %s", style.Render(kind), pad, startText(&s, loc), s.Room, s.Title)
		if fields := changedFields(&s); len(fields) > 0 {
			line += " " + mutedStyle.Render("("+strings.Join(fields, ", ")+")")
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func startText(s *schedule.Session, loc *time.Location) string {
	if s.DateUTC != 0 {
		return moment.OfEpochMilli(s.DateUTC).ToZoned(loc).Format("Mon 2006-01-02 15:04")
	}
	return fmt.Sprintf("Day %d %02d:%02d", s.Day, s.StartTime/60, s.StartTime%60)
}

func changedFields(s *schedule.Session) []string {
	var fields []string
	for _, f := range []struct {
		changed bool
		name    string
	}{
		{s.ChangedTitle, "title"},
		{s.ChangedSubtitle, "subtitle"},
		{s.ChangedSpeakers, "speakers"},
		{s.ChangedLanguage, "language"},
		{s.ChangedRoom, "room"},
		{s.ChangedTrack, "track"},
		{s.ChangedRecordingOptOut, "recording"},
		{s.ChangedDay, "day"},
		{s.ChangedTime, "time"},
		{s.ChangedDuration, "duration"},
	} {
		if f.changed {
			fields = append(fields, f.name)
		}
	}
	return fields
}

// renderTimeColumn prints the time frame followed by one line per row of the
// time column, naming the sessions that start in each row.
func renderTimeColumn(w io.Writer, sessions []schedule.Session, frame schedule.TimeFrame, now moment.Moment, loc *time.Location) error {
	header := fmt.Sprintf("time frame %s - %s", offsetText(frame.FirstSessionStartsAt), offsetText(frame.LastSessionEndsAt))
	if _, err := fmt.Fprintln(w, headerStyle.Render(header)); err != nil {
		return err
	}

	titles := make(map[int][]string)
	for i, start := range schedule.StartOffsets(sessions, schedule.ZonedMinuteOfDay(loc)) {
		if sessions[i].ChangedIsCanceled {
			continue
		}
		row := (start - frame.FirstSessionStartsAt) / schedule.RowMinutes
		titles[row] = append(titles[row], sessions[i].Title)
	}

	// Rows show wall clock time of loc, so the current time is shifted into it.
	local := now.PlusMinutes(int64(moment.OffsetMinutes(now, loc)))
	rows := schedule.TimeColumn(frame, local.StartOfDay(), &local)
	current := schedule.CurrentRow(rows, frame, local)

	for i, r := range rows {
		label := r.Segment.String()
		switch {
		case i == current:
			label = nowStyle.Render(label)
		case len(titles[i]) == 0:
			label = mutedStyle.Render(label)
		}

		line := label
		if len(titles[i]) > 0 {
			line += "  " + strings.Join(titles[i], ", ")
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// offsetText formats a day-relative minute, marking following days.
func offsetText(minutes int) string {
	days := minutes / schedule.OneDay
	seg := schedule.OfMinutesOfTheDay(minutes % schedule.OneDay)
	if days > 0 {
		return fmt.Sprintf("%s (+%dd)", seg, days)
	}
	return seg.String()
}
