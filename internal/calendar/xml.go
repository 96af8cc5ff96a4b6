package calendar

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cpuguy83/fahrplan/internal/schedule"
)

// XMLSource fetches a frab or Pentabarf schedule.xml.
type XMLSource struct {
	name string
	feed *feed
}

// NewXMLSource creates a new schedule.xml source.
func NewXMLSource(name, url, username, password string) *XMLSource {
	return &XMLSource{
		name: name,
		feed: newFeed(url, username, password),
	}
}

// Name returns the display name of this source.
func (s *XMLSource) Name() string {
	return s.name
}

// Fetch retrieves sessions from the schedule.xml.
func (s *XMLSource) Fetch(ctx context.Context) ([]schedule.Session, error) {
	body, cached, err := s.feed.get(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch schedule XML: %w", err)
	}
	sessions, err := ParseXML(bytes.NewReader(body), s.name)
	if err != nil {
		return nil, err
	}
	slog.Debug("parsed schedule XML", "source", s.name, "sessions", len(sessions), "cached", cached)
	return sessions, nil
}

type xmlSchedule struct {
	XMLName xml.Name `xml:"schedule"`
	Days    []xmlDay `xml:"day"`
}

type xmlDay struct {
	Index int       `xml:"index,attr"`
	Date  string    `xml:"date,attr"`
	Rooms []xmlRoom `xml:"room"`
}

type xmlRoom struct {
	Name   string     `xml:"name,attr"`
	Events []xmlEvent `xml:"event"`
}

type xmlEvent struct {
	ID       string   `xml:"id,attr"`
	GUID     string   `xml:"guid,attr"`
	Date     string   `xml:"date"`
	Start    string   `xml:"start"`
	Duration string   `xml:"duration"`
	Room     string   `xml:"room"`
	Title    string   `xml:"title"`
	Subtitle string   `xml:"subtitle"`
	Track    string   `xml:"track"`
	Language string   `xml:"language"`
	Abstract string   `xml:"abstract"`
	URL      string   `xml:"url"`
	OptOut   string   `xml:"recording>optout"`
	Persons  []string `xml:"persons>person"`
}

// ParseXML parses a frab or Pentabarf schedule.xml.
//
// frab events carry an absolute <date>, Pentabarf events only a day index and
// a start time; for those DateUTC stays zero and RelStartTime holds the start.
func ParseXML(r io.Reader, source string) ([]schedule.Session, error) {
	var doc xmlSchedule
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode schedule XML: %w", err)
	}

	var sessions []schedule.Session
	for di, day := range doc.Days {
		index := day.Index
		if index == 0 {
			index = di + 1
		}
		for _, room := range day.Rooms {
			for _, ev := range room.Events {
				s, err := sessionFromXML(ev, index, room.Name, source)
				if err != nil {
					slog.Warn("skipping schedule entry", "source", source, "title", ev.Title, "error", err)
					continue
				}
				sessions = append(sessions, s)
			}
		}
	}
	return sessions, nil
}

func sessionFromXML(ev xmlEvent, day int, roomName, source string) (schedule.Session, error) {
	start, err := parseClock(ev.Start)
	if err != nil {
		return schedule.Session{}, fmt.Errorf("parse start %q: %w", ev.Start, err)
	}
	duration, err := parseClock(ev.Duration)
	if err != nil {
		return schedule.Session{}, fmt.Errorf("parse duration %q: %w", ev.Duration, err)
	}

	s := schedule.Session{
		SessionID:    strings.TrimSpace(ev.ID),
		Title:        strings.TrimSpace(ev.Title),
		Subtitle:     strings.TrimSpace(ev.Subtitle),
		Lang:         strings.TrimSpace(ev.Language),
		Room:         strings.TrimSpace(ev.Room),
		Track:        strings.TrimSpace(ev.Track),
		Day:          day,
		StartTime:    start,
		RelStartTime: start,
		Duration:     duration,
		Abstract:     strings.TrimSpace(ev.Abstract),
		URL:          strings.TrimSpace(ev.URL),
		Source:       source,
	}
	if s.Room == "" {
		s.Room = roomName
	}
	for _, p := range ev.Persons {
		if p = strings.TrimSpace(p); p != "" {
			s.Speakers = append(s.Speakers, p)
		}
	}
	if optOut, err := strconv.ParseBool(strings.TrimSpace(ev.OptOut)); err == nil {
		s.RecordingOptOut = optOut
	}

	if date := strings.TrimSpace(ev.Date); date != "" {
		t, err := time.Parse(time.RFC3339, date)
		if err != nil {
			return schedule.Session{}, fmt.Errorf("parse date %q: %w", date, err)
		}
		s.Date = date
		s.DateUTC = t.UnixMilli()
	}

	if s.SessionID == "" {
		s.SessionID = strings.TrimSpace(ev.GUID)
	}
	if s.SessionID == "" {
		s.SessionID = fallbackID(s)
	}
	return s, nil
}

// fallbackID derives a stable id for entries without id and guid so that
// they match across fetches as long as title, day, start and room stay put.
func fallbackID(s schedule.Session) string {
	key := fmt.Sprintf("%s|%d|%d|%s|%s", s.Source, s.Day, s.StartTime, s.Room, s.Title)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

// parseClock parses "HH:MM" or "HH:MM:SS" into minutes.
func parseClock(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	parts := strings.Split(v, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("expected HH:MM")
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	if hours < 0 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("out of range")
	}
	return hours*60 + minutes, nil
}

// Ensure XMLSource implements Source interface.
var _ Source = (*XMLSource)(nil)
