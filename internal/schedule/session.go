// Package schedule computes derived facts about a conference schedule:
// the time frame it occupies and the changes between two fetched snapshots.
package schedule

import "slices"

// Session is one scheduled talk or event.
type Session struct {
	// SessionID is the stable identifier used to match sessions across snapshots.
	SessionID string

	Title    string
	Subtitle string
	Speakers []string
	Lang     string
	Room     string
	Track    string

	// RecordingOptOut is set when the speakers do not want the session recorded.
	RecordingOptOut bool

	// Day is the 1-based conference day index.
	Day int

	// StartTime is the start in minutes since midnight of Day.
	StartTime int

	// Duration is the length of the session in minutes.
	Duration int

	// DateUTC is the start as milliseconds since the Unix epoch.
	// Zero when the schedule dialect only provides relative start times.
	DateUTC int64

	// RelStartTime is the start in day-relative minutes as provided by
	// dialects without absolute timestamps.
	RelStartTime int

	// Date is the start as ISO-8601 date-time including the zone offset.
	Date     string
	Abstract string
	URL      string

	// Source is the name of the source this session came from.
	Source string

	ChangedTitle           bool
	ChangedSubtitle        bool
	ChangedSpeakers        bool
	ChangedLanguage        bool
	ChangedRoom            bool
	ChangedTrack           bool
	ChangedRecordingOptOut bool
	ChangedDay             bool
	ChangedTime            bool
	ChangedDuration        bool
	ChangedIsNew           bool
	ChangedIsCanceled      bool
}

// EndsAt returns the end in minutes since midnight of Day.
func (s *Session) EndsAt() int {
	return s.StartTime + s.Duration
}

// IsChanged reports whether any per-field change flag is set.
func (s *Session) IsChanged() bool {
	return s.ChangedTitle ||
		s.ChangedSubtitle ||
		s.ChangedSpeakers ||
		s.ChangedLanguage ||
		s.ChangedRoom ||
		s.ChangedTrack ||
		s.ChangedRecordingOptOut ||
		s.ChangedDay ||
		s.ChangedTime ||
		s.ChangedDuration
}

// HasChangeFlags reports whether any change flag, including new and canceled, is set.
func (s *Session) HasChangeFlags() bool {
	return s.IsChanged() || s.ChangedIsNew || s.ChangedIsCanceled
}

// Cancel marks the session as canceled and clears all other change flags.
func (s *Session) Cancel() {
	s.ChangedTitle = false
	s.ChangedSubtitle = false
	s.ChangedSpeakers = false
	s.ChangedLanguage = false
	s.ChangedRoom = false
	s.ChangedTrack = false
	s.ChangedRecordingOptOut = false
	s.ChangedDay = false
	s.ChangedTime = false
	s.ChangedDuration = false
	s.ChangedIsNew = false
	s.ChangedIsCanceled = true
}

// ClearChangeFlags resets all change flags.
func (s *Session) ClearChangeFlags() {
	s.Cancel()
	s.ChangedIsCanceled = false
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	s.Speakers = slices.Clone(s.Speakers)
	return s
}

// ChangeStats counts the flagged sessions of a change-annotated list.
type ChangeStats struct {
	New      int
	Canceled int
	Changed  int
}

// Total returns the number of flagged sessions.
func (c ChangeStats) Total() int {
	return c.New + c.Canceled + c.Changed
}

// Stats counts new, canceled and changed sessions.
// A session flagged new or canceled is not counted as changed.
func Stats(sessions []Session) ChangeStats {
	var stats ChangeStats
	for i := range sessions {
		s := &sessions[i]
		switch {
		case s.ChangedIsCanceled:
			stats.Canceled++
		case s.ChangedIsNew:
			stats.New++
		case s.IsChanged():
			stats.Changed++
		}
	}
	return stats
}
