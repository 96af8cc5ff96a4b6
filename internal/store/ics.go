package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	ics "github.com/emersion/go-ical"

	"github.com/cpuguy83/fahrplan/internal/moment"
	"github.com/cpuguy83/fahrplan/internal/schedule"
)

const (
	propSource          = "X-FAHRPLAN-SOURCE"
	propSubtitle        = "X-FAHRPLAN-SUBTITLE"
	propSpeakers        = "X-FAHRPLAN-SPEAKERS"
	propLanguage        = "X-FAHRPLAN-LANGUAGE"
	propRecordingOptOut = "X-RECORDING-OPTOUT"
	propDay             = "X-FAHRPLAN-DAY"
	propStartTime       = "X-FAHRPLAN-START"
	propDuration        = "X-FAHRPLAN-DURATION"
	propRelStartTime    = "X-FAHRPLAN-REL-START"
	propDateUTC         = "X-FAHRPLAN-DATE-UTC"
	propDate            = "X-FAHRPLAN-DATE"
	propChanged         = "X-FAHRPLAN-CHANGED"
	propCount           = "X-FAHRPLAN-COUNT"
)

// compSnapshot describes the snapshot itself. It keeps the calendar non-empty
// when no session is stored.
const compSnapshot = "X-FAHRPLAN-SNAPSHOT"

// ProductID is the PRODID of snapshot files written by Encode.
const ProductID = "-//Fahrplan//Fahrplan//EN"

// IsSnapshot reports whether data is an iCalendar stream written by Encode
// rather than an external feed.
func IsSnapshot(data []byte) bool {
	return bytes.Contains(data, []byte(ics.PropProductID+":"+ProductID))
}

// ICSFile stores the snapshot as an iCalendar file. Every session field is
// kept, so a snapshot read back compares equal to the one written.
type ICSFile struct {
	path  string
	clock moment.Clock
}

// NewICSFile creates a store backed by the .ics file at path.
func NewICSFile(path string) *ICSFile {
	return &ICSFile{path: path, clock: moment.SystemClock{}}
}

// Path returns the file the snapshot is written to.
func (f *ICSFile) Path() string {
	return f.path
}

// Save writes the sessions to the file atomically.
// It writes to a temp file first, then renames to the final path.
func (f *ICSFile) Save(_ context.Context, sessions []schedule.Session) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, sessions, f.clock.Now()); err != nil {
		return err
	}

	tmpPath := f.path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath) // Clean up temp file on error
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

// Load reads the snapshot from the file.
func (f *ICSFile) Load(_ context.Context) ([]schedule.Session, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer file.Close()

	return Decode(file)
}

func (f *ICSFile) Close() error { return nil }

// Encode writes sessions as an iCalendar stream in list order.
func Encode(w io.Writer, sessions []schedule.Session, stamp time.Time) error {
	cal := ics.NewCalendar()
	cal.Props.SetText(ics.PropVersion, "2.0")
	cal.Props.SetText(ics.PropProductID, ProductID)

	for _, s := range sessions {
		comp := ics.NewComponent(ics.CompEvent)

		comp.Props.SetText(ics.PropUID, s.SessionID)
		comp.Props.SetText(ics.PropSummary, s.Title)

		// DTSTAMP is required by RFC 5545
		comp.Props.SetDateTime(ics.PropDateTimeStamp, stamp.UTC())
		comp.Props.SetDateTime(ics.PropDateTimeStart, moment.OfEpochMilli(s.DateUTC).ToUTCTime())

		if s.Abstract != "" {
			comp.Props.SetText(ics.PropDescription, s.Abstract)
		}
		if s.Room != "" {
			comp.Props.SetText(ics.PropLocation, s.Room)
		}
		if s.URL != "" {
			prop := ics.NewProp(ics.PropURL)
			prop.Value = s.URL
			comp.Props.Set(prop)
		}
		if s.Track != "" {
			comp.Props.SetText(ics.PropCategories, s.Track)
		}
		if s.Subtitle != "" {
			setText(comp.Props, propSubtitle, s.Subtitle)
		}
		if s.Lang != "" {
			setText(comp.Props, propLanguage, s.Lang)
		}
		if len(s.Speakers) > 0 {
			setTextList(comp.Props, propSpeakers, s.Speakers)
		}
		if s.RecordingOptOut {
			setText(comp.Props, propRecordingOptOut, "TRUE")
		}
		if s.Date != "" {
			setText(comp.Props, propDate, s.Date)
		}
		if s.Source != "" {
			setText(comp.Props, propSource, s.Source)
		}

		setText(comp.Props, propDay, strconv.Itoa(s.Day))
		setText(comp.Props, propStartTime, strconv.Itoa(s.StartTime))
		setText(comp.Props, propDuration, strconv.Itoa(s.Duration))
		setText(comp.Props, propRelStartTime, strconv.Itoa(s.RelStartTime))
		setText(comp.Props, propDateUTC, strconv.FormatInt(s.DateUTC, 10))

		if flags := changeFlags(s); len(flags) > 0 {
			setTextList(comp.Props, propChanged, flags)
		}

		cal.Children = append(cal.Children, comp)
	}

	snapshot := ics.NewComponent(compSnapshot)
	setText(snapshot.Props, propCount, strconv.Itoa(len(sessions)))
	cal.Children = append(cal.Children, snapshot)

	if err := ics.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode ICS: %w", err)
	}
	return nil
}

// setText stores an escaped text value. X- properties have no registered
// type, so the VALUE parameter go-ical adds for them is removed again.
func setText(props ics.Props, name, value string) {
	setTextList(props, name, []string{value})
}

func setTextList(props ics.Props, name string, values []string) {
	prop := ics.NewProp(name)
	prop.SetTextList(values)
	prop.Params.Del(ics.ParamValue)
	props.Set(prop)
}

// Decode reads sessions written by Encode.
func Decode(r io.Reader) ([]schedule.Session, error) {
	dec := ics.NewDecoder(r)

	sessions := []schedule.Session{}
	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode ICS: %w", err)
		}

		for _, comp := range cal.Children {
			if comp.Name != ics.CompEvent {
				continue
			}
			s, err := decodeSession(comp)
			if err != nil {
				return nil, err
			}
			sessions = append(sessions, s)
		}
	}
	return sessions, nil
}

func decodeSession(comp *ics.Component) (schedule.Session, error) {
	s := schedule.Session{
		SessionID: text(comp, ics.PropUID),
		Title:     text(comp, ics.PropSummary),
		Subtitle:  text(comp, propSubtitle),
		Lang:      text(comp, propLanguage),
		Room:      text(comp, ics.PropLocation),
		Track:     text(comp, ics.PropCategories),
		Abstract:  text(comp, ics.PropDescription),
		URL:       rawValue(comp, ics.PropURL),
		Date:      text(comp, propDate),
		Source:    text(comp, propSource),

		RecordingOptOut: text(comp, propRecordingOptOut) == "TRUE",
	}
	s.Speakers = textList(comp, propSpeakers)
	setChangeFlags(&s, textList(comp, propChanged))

	var err error
	if s.Day, err = intProp(comp, propDay); err != nil {
		return s, err
	}
	if s.StartTime, err = intProp(comp, propStartTime); err != nil {
		return s, err
	}
	if s.Duration, err = intProp(comp, propDuration); err != nil {
		return s, err
	}
	if s.RelStartTime, err = intProp(comp, propRelStartTime); err != nil {
		return s, err
	}
	if v := text(comp, propDateUTC); v != "" {
		if s.DateUTC, err = strconv.ParseInt(v, 10, 64); err != nil {
			return s, fmt.Errorf("parse %s of %s: %w", propDateUTC, s.SessionID, err)
		}
	}
	return s, nil
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

func rawValue(comp *ics.Component, name string) string {
	if prop := comp.Props.Get(name); prop != nil {
		return prop.Value
	}
	return ""
}

func textList(comp *ics.Component, name string) []string {
	prop := comp.Props.Get(name)
	if prop == nil {
		return nil
	}
	values, err := prop.TextList()
	if err != nil || len(values) == 0 {
		return nil
	}
	return values
}

func intProp(comp *ics.Component, name string) (int, error) {
	v := text(comp, name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return n, nil
}
