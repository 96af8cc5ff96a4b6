package calendar

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cpuguy83/fahrplan/internal/schedule"
)

// ICSSource fetches sessions from an ICS/iCal URL.
type ICSSource struct {
	name string
	loc  *time.Location
	feed *feed
}

// NewICSSource creates a new ICS schedule source.
// Floating times and day indices are resolved in loc.
func NewICSSource(name, url, username, password string, loc *time.Location) *ICSSource {
	if loc == nil {
		loc = time.UTC
	}
	return &ICSSource{
		name: name,
		loc:  loc,
		feed: newFeed(url, username, password),
	}
}

// Name returns the display name of this source.
func (s *ICSSource) Name() string {
	return s.name
}

// Fetch retrieves sessions from the ICS feed.
func (s *ICSSource) Fetch(ctx context.Context) ([]schedule.Session, error) {
	body, _, err := s.feed.get(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch ICS: %w", err)
	}
	return s.parseICS(bytes.NewReader(body))
}

func (s *ICSSource) parseICS(r io.Reader) ([]schedule.Session, error) {
	sessions, err := ParseICS(r, s.name, s.loc)
	if err != nil {
		return nil, err
	}
	slog.Debug("parsed ICS feed", "source", s.name, "sessions", len(sessions))
	return sessions, nil
}

// ParseICS reads the sessions of an iCalendar stream. Floating times are
// read in loc and day indices count calendar days of loc.
func ParseICS(r io.Reader, source string, loc *time.Location) ([]schedule.Session, error) {
	if loc == nil {
		loc = time.UTC
	}
	sessions, err := decodeSessions(r, source, loc)
	if err != nil {
		return nil, err
	}
	assignDays(sessions, loc)
	return sessions, nil
}

// Ensure ICSSource implements Source interface.
var _ Source = (*ICSSource)(nil)
