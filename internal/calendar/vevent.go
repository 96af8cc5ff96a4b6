package calendar

import (
	"fmt"
	"io"
	"strings"
	"time"

	ics "github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"github.com/cpuguy83/fahrplan/internal/schedule"
)

const (
	propSubtitle        = "X-FAHRPLAN-SUBTITLE"
	propLanguage        = "X-FAHRPLAN-LANGUAGE"
	propRecordingOptOut = "X-RECORDING-OPTOUT"
)

// defaultDuration is used for events with neither DTEND nor DURATION.
const defaultDuration = time.Hour

// recurrenceWindow bounds the expansion of recurring events.
const recurrenceWindow = 14 * 24 * time.Hour

// decodeSessions decodes every VEVENT of an iCalendar stream.
// Floating times are read in loc.
func decodeSessions(r io.Reader, source string, loc *time.Location) ([]schedule.Session, error) {
	dec := ics.NewDecoder(r)

	var sessions []schedule.Session
	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode ICS: %w", err)
		}

		parsed, err := sessionsFromCalendar(cal, source, loc)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, parsed...)
	}
	return sessions, nil
}

func sessionsFromCalendar(cal *ics.Calendar, source string, loc *time.Location) ([]schedule.Session, error) {
	var sessions []schedule.Session
	for _, comp := range cal.Children {
		if comp.Name != ics.CompEvent {
			continue
		}

		parsed, err := sessionsFromEvent(comp, source, loc)
		if err != nil {
			// Skip events we can't parse
			continue
		}
		sessions = append(sessions, parsed...)
	}
	return sessions, nil
}

// sessionsFromEvent converts a VEVENT to sessions. Recurring events yield one
// session per occurrence. All-day events are not sessions and yield none.
func sessionsFromEvent(comp *ics.Component, source string, loc *time.Location) ([]schedule.Session, error) {
	base := schedule.Session{Source: source}

	base.SessionID = text(comp, ics.PropUID)
	if base.SessionID == "" {
		return nil, fmt.Errorf("event without UID")
	}
	base.Title = text(comp, ics.PropSummary)
	base.Subtitle = text(comp, propSubtitle)
	base.Abstract = text(comp, ics.PropDescription)
	base.Room = text(comp, ics.PropLocation)
	base.URL = text(comp, ics.PropURL)

	if prop := comp.Props.Get(ics.PropSummary); prop != nil {
		base.Lang = prop.Params.Get(ics.ParamLanguage)
	}
	if base.Lang == "" {
		base.Lang = text(comp, propLanguage)
	}

	if prop := comp.Props.Get(ics.PropCategories); prop != nil {
		if categories, err := prop.TextList(); err == nil && len(categories) > 0 {
			base.Track = categories[0]
		}
	}

	base.Speakers = speakers(comp)
	base.RecordingOptOut = strings.EqualFold(text(comp, propRecordingOptOut), "TRUE")

	prop := comp.Props.Get(ics.PropDateTimeStart)
	if prop == nil {
		return nil, fmt.Errorf("event %s without start", base.SessionID)
	}
	start, allDay, err := parseStart(prop, loc)
	if err != nil {
		return nil, fmt.Errorf("parse start time: %w", err)
	}
	if allDay {
		return nil, nil
	}

	duration, err := eventDuration(comp, start, loc)
	if err != nil {
		return nil, err
	}
	base.Duration = int(duration / time.Minute)

	rset, err := comp.RecurrenceSet(loc)
	if err != nil {
		return nil, fmt.Errorf("parse recurrence: %w", err)
	}
	if rset == nil {
		setStart(&base, start, loc)
		return []schedule.Session{base}, nil
	}

	var sessions []schedule.Session
	for _, occ := range occurrences(rset, start) {
		s := base.Clone()
		setStart(&s, occ, loc)
		// Make the id unique per occurrence
		s.SessionID = fmt.Sprintf("%s_%d", base.SessionID, occ.Unix())
		sessions = append(sessions, s)
	}
	return sessions, nil
}

func occurrences(set *rrule.Set, start time.Time) []time.Time {
	return set.Between(start, start.Add(recurrenceWindow), true)
}

func setStart(s *schedule.Session, start time.Time, loc *time.Location) {
	s.DateUTC = start.UnixMilli()
	s.Date = start.In(loc).Format(time.RFC3339)
}

// speakers returns the common names of all attendees, falling back to the organizer.
func speakers(comp *ics.Component) []string {
	var names []string
	for _, prop := range comp.Props.Values(ics.PropAttendee) {
		if name := personName(prop); name != "" {
			names = append(names, name)
		}
	}
	if len(names) > 0 {
		return names
	}
	if prop := comp.Props.Get(ics.PropOrganizer); prop != nil {
		if name := personName(*prop); name != "" {
			return []string{name}
		}
	}
	return nil
}

func personName(prop ics.Prop) string {
	if cn := prop.Params.Get(ics.ParamCommonName); cn != "" {
		return cn
	}
	return strings.TrimPrefix(prop.Value, "mailto:")
}

func parseStart(prop *ics.Prop, loc *time.Location) (time.Time, bool, error) {
	if prop.ValueType() == ics.ValueDate {
		t, err := parseDateOnly(prop.Value, loc)
		return t, true, err
	}
	t, err := prop.DateTime(loc)
	if err == nil {
		return t, false, nil
	}
	// Try parsing as local datetime without timezone (floating time)
	if t, err := parseDateTime(prop.Value, loc); err == nil {
		return t, false, nil
	}
	// Try as date-only (all-day event)
	t, err = parseDateOnly(prop.Value, loc)
	return t, true, err
}

func eventDuration(comp *ics.Component, start time.Time, loc *time.Location) (time.Duration, error) {
	if prop := comp.Props.Get(ics.PropDateTimeEnd); prop != nil {
		end, err := prop.DateTime(loc)
		if err != nil {
			end, err = parseDateTime(prop.Value, loc)
			if err != nil {
				return 0, fmt.Errorf("parse end time: %w", err)
			}
		}
		return end.Sub(start), nil
	}
	if prop := comp.Props.Get(ics.PropDuration); prop != nil {
		d, err := prop.Duration()
		if err != nil {
			return 0, fmt.Errorf("parse duration: %w", err)
		}
		return d, nil
	}
	return defaultDuration, nil
}

func text(comp *ics.Component, name string) string {
	prop := comp.Props.Get(name)
	if prop == nil {
		return ""
	}
	v, err := prop.Text()
	if err != nil {
		return prop.Value
	}
	return v
}

// parseDateOnly parses a date-only value (YYYYMMDD format).
func parseDateOnly(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("20060102", s, loc)
}

// parseDateTime parses a datetime value without timezone (YYYYMMDDTHHmmss format).
// This handles "floating time" values that are neither UTC nor have a TZID.
func parseDateTime(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("20060102T150405", s, loc)
}
