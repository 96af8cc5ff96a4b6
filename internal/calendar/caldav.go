package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	ics "github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"

	"github.com/cpuguy83/fahrplan/internal/schedule"
)

// CalDAVSource fetches sessions from a CalDAV server.
type CalDAVSource struct {
	name      string
	url       string
	username  string
	password  string
	calendars []string // Optional: specific calendars to sync
	loc       *time.Location
}

// NewCalDAVSource creates a new CalDAV schedule source.
func NewCalDAVSource(name, url, username, password string, calendars []string, loc *time.Location) *CalDAVSource {
	if loc == nil {
		loc = time.UTC
	}
	return &CalDAVSource{
		name:      name,
		url:       url,
		username:  username,
		password:  password,
		calendars: calendars,
		loc:       loc,
	}
}

// Name returns the display name of this source.
func (s *CalDAVSource) Name() string {
	return s.name
}

// Fetch retrieves sessions from the CalDAV server.
func (s *CalDAVSource) Fetch(ctx context.Context) ([]schedule.Session, error) {
	httpClient := &http.Client{
		Timeout: 60 * time.Second,
		Transport: &basicAuthTransport{
			username: s.username,
			password: s.password,
			base:     http.DefaultTransport,
		},
	}

	client, err := caldav.NewClient(httpClient, s.url)
	if err != nil {
		return nil, fmt.Errorf("create caldav client: %w", err)
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("find principal: %w", err)
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("find calendar home: %w", err)
	}

	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("find calendars: %w", err)
	}

	var all []schedule.Session
	var lastErr error
	for _, cal := range cals {
		if len(s.calendars) > 0 && !s.shouldSyncCalendar(cal.Name) {
			continue
		}

		sessions, err := s.fetchCalendarSessions(ctx, client, cal)
		if err != nil {
			slog.Warn("failed to query calendar", "source", s.name, "calendar", cal.Name, "error", err)
			lastErr = err
			continue
		}

		all = append(all, sessions...)
	}

	if len(all) == 0 && lastErr != nil {
		return nil, lastErr
	}

	assignDays(all, s.loc)
	return all, nil
}

// shouldSyncCalendar checks if a calendar should be synced based on config.
func (s *CalDAVSource) shouldSyncCalendar(name string) bool {
	for _, c := range s.calendars {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// fetchCalendarSessions fetches all events of a single calendar.
func (s *CalDAVSource) fetchCalendarSessions(ctx context.Context, client *caldav.Client, cal caldav.Calendar) ([]schedule.Session, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name: ics.CompCalendar,
			Comps: []caldav.CalendarCompRequest{{
				Name: ics.CompEvent,
				Props: []string{
					ics.PropSummary,
					ics.PropDateTimeStart,
					ics.PropDateTimeEnd,
					ics.PropDuration,
					ics.PropUID,
					ics.PropDescription,
					ics.PropLocation,
					ics.PropURL,
					ics.PropOrganizer,
					ics.PropAttendee,
					ics.PropCategories,
					ics.PropRecurrenceRule,
					propSubtitle,
					propLanguage,
					propRecordingOptOut,
				},
			}},
		},
		CompFilter: caldav.CompFilter{
			Name:  ics.CompCalendar,
			Comps: []caldav.CompFilter{{Name: ics.CompEvent}},
		},
	}

	objects, err := client.QueryCalendar(ctx, cal.Path, query)
	if err != nil {
		return nil, fmt.Errorf("query calendar %s: %w", cal.Name, err)
	}

	source := fmt.Sprintf("%s/%s", s.name, cal.Name)

	var sessions []schedule.Session
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}

		parsed, err := sessionsFromCalendar(obj.Data, source, s.loc)
		if err != nil {
			continue
		}
		sessions = append(sessions, parsed...)
	}

	return sessions, nil
}

// basicAuthTransport adds basic auth to HTTP requests.
type basicAuthTransport struct {
	username string
	password string
	base     http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return t.base.RoundTrip(req)
}

// Ensure CalDAVSource implements Source interface.
var _ Source = (*CalDAVSource)(nil)
