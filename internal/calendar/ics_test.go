package calendar

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	ics "github.com/emersion/go-ical"
)

const congressICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:opening
SUMMARY;LANGUAGE=de:Opening
X-FAHRPLAN-SUBTITLE:Welcome
DESCRIPTION:The opening talk
LOCATION:Hall 1
CATEGORIES:Ceremony,Main
ATTENDEE;CN=Alice:mailto:alice@example.com
ATTENDEE;CN=Bob:mailto:bob@example.com
URL:https://example.com/opening
X-RECORDING-OPTOUT:TRUE
DTSTART:20180907T150000Z
DTEND:20180907T153000Z
END:VEVENT
BEGIN:VEVENT
UID:closing
SUMMARY:Closing
ORGANIZER:mailto:orga@example.com
DTSTART:20180909T144500Z
DURATION:PT45M
END:VEVENT
BEGIN:VEVENT
UID:day-marker
SUMMARY:Day 2
DTSTART;VALUE=DATE:20180908
DTEND;VALUE=DATE:20180909
END:VEVENT
END:VCALENDAR
`

func decodeFirstEvent(t *testing.T, data string) *ics.Component {
	t.Helper()
	cal, err := ics.NewDecoder(strings.NewReader(data)).Decode()
	if err != nil {
		t.Fatalf("failed to decode ICS: %v", err)
	}
	for _, child := range cal.Children {
		if child.Name == ics.CompEvent {
			return child
		}
	}
	t.Fatalf("no VEVENT in ICS")
	return nil
}

func TestICSSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "user" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(congressICS))
	}))
	defer srv.Close()

	src := NewICSSource("congress", srv.URL, "user", "secret", time.UTC)
	sessions, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions (all-day entry skipped), got %d", len(sessions))
	}

	opening := sessions[0]
	if opening.SessionID != "opening" || opening.Title != "Opening" {
		t.Errorf("unexpected opening session: %+v", opening)
	}
	if opening.Lang != "de" {
		t.Errorf("Lang = %q, want de", opening.Lang)
	}
	if opening.Subtitle != "Welcome" {
		t.Errorf("Subtitle = %q, want Welcome", opening.Subtitle)
	}
	if opening.Room != "Hall 1" || opening.Track != "Ceremony" {
		t.Errorf("Room, Track = %q, %q, want Hall 1, Ceremony", opening.Room, opening.Track)
	}
	if want := []string{"Alice", "Bob"}; !reflect.DeepEqual(opening.Speakers, want) {
		t.Errorf("Speakers = %v, want %v", opening.Speakers, want)
	}
	if !opening.RecordingOptOut {
		t.Errorf("expected recording opt-out")
	}
	if opening.DateUTC != 1536332400000 {
		t.Errorf("DateUTC = %d, want 1536332400000", opening.DateUTC)
	}
	if opening.Duration != 30 || opening.Day != 1 || opening.StartTime != 15*60 {
		t.Errorf("Duration, Day, StartTime = %d, %d, %d, want 30, 1, 900", opening.Duration, opening.Day, opening.StartTime)
	}
	if opening.Source != "congress" {
		t.Errorf("Source = %q, want congress", opening.Source)
	}

	closing := sessions[1]
	if closing.Duration != 45 {
		t.Errorf("Duration = %d, want 45", closing.Duration)
	}
	if closing.Day != 3 || closing.StartTime != 14*60+45 {
		t.Errorf("Day, StartTime = %d, %d, want 3, 885", closing.Day, closing.StartTime)
	}
	if want := []string{"orga@example.com"}; !reflect.DeepEqual(closing.Speakers, want) {
		t.Errorf("Speakers = %v, want %v", closing.Speakers, want)
	}
}

func TestICSSource_FetchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := NewICSSource("broken", srv.URL, "", "", nil)
	if _, err := src.Fetch(context.Background()); err == nil {
		t.Fatal("expected error for status 500")
	}
}

func TestSessionsFromEvent_FloatingTime(t *testing.T) {
	comp := decodeFirstEvent(t, `BEGIN:VCALENDAR
BEGIN:VEVENT
UID:test-floating
SUMMARY:Meeting
DTSTART:20260217T100000
DTEND:20260217T110000
END:VEVENT
END:VCALENDAR`)

	berlin := time.FixedZone("CET", 60*60)
	sessions, err := sessionsFromEvent(comp, "test", berlin)
	if err != nil {
		t.Fatalf("sessionsFromEvent error: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	want := time.Date(2026, 2, 17, 9, 0, 0, 0, time.UTC).UnixMilli()
	if sessions[0].DateUTC != want {
		t.Errorf("DateUTC = %d, want %d", sessions[0].DateUTC, want)
	}
	if sessions[0].Date != "2026-02-17T10:00:00+01:00" {
		t.Errorf("Date = %q", sessions[0].Date)
	}
	if sessions[0].Duration != 60 {
		t.Errorf("Duration = %d, want 60", sessions[0].Duration)
	}
}

func TestSessionsFromEvent_DefaultDuration(t *testing.T) {
	comp := decodeFirstEvent(t, `BEGIN:VCALENDAR
BEGIN:VEVENT
UID:no-end
SUMMARY:Lightning talk
DTSTART:20260217T100000Z
END:VEVENT
END:VCALENDAR`)

	sessions, err := sessionsFromEvent(comp, "test", time.UTC)
	if err != nil {
		t.Fatalf("sessionsFromEvent error: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Duration != 60 {
		t.Errorf("expected one session of 60 minutes, got %+v", sessions)
	}
}

func TestSessionsFromEvent_DateOnlyIsSkipped(t *testing.T) {
	comp := decodeFirstEvent(t, `BEGIN:VCALENDAR
BEGIN:VEVENT
UID:test-dateonly-allday
SUMMARY:Holiday
DTSTART;VALUE=DATE:20260217
DTEND;VALUE=DATE:20260218
END:VEVENT
END:VCALENDAR`)

	sessions, err := sessionsFromEvent(comp, "test", time.UTC)
	if err != nil {
		t.Fatalf("sessionsFromEvent error: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("expected all-day entry to be skipped, got %+v", sessions)
	}
}

func TestSessionsFromEvent_Recurring(t *testing.T) {
	comp := decodeFirstEvent(t, `BEGIN:VCALENDAR
BEGIN:VEVENT
UID:breakfast
SUMMARY:Breakfast
DTSTART:20260217T080000Z
DTEND:20260217T090000Z
RRULE:FREQ=DAILY;COUNT=3
END:VEVENT
END:VCALENDAR`)

	sessions, err := sessionsFromEvent(comp, "test", time.UTC)
	if err != nil {
		t.Fatalf("sessionsFromEvent error: %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("expected 3 occurrences, got %d", len(sessions))
	}

	first := time.Date(2026, 2, 17, 8, 0, 0, 0, time.UTC)
	for i, s := range sessions {
		occ := first.AddDate(0, 0, i)
		if s.DateUTC != occ.UnixMilli() {
			t.Errorf("sessions[%d].DateUTC = %d, want %d", i, s.DateUTC, occ.UnixMilli())
		}
		if want := "breakfast_" + strconv.FormatInt(occ.Unix(), 10); s.SessionID != want {
			t.Errorf("sessions[%d].SessionID = %q, want %q", i, s.SessionID, want)
		}
	}
}

func TestSessionsFromEvent_MissingUID(t *testing.T) {
	comp := decodeFirstEvent(t, `BEGIN:VCALENDAR
BEGIN:VEVENT
SUMMARY:Anonymous
DTSTART:20260217T080000Z
END:VEVENT
END:VCALENDAR`)

	if _, err := sessionsFromEvent(comp, "test", time.UTC); err == nil {
		t.Error("expected error for event without UID")
	}
}
