// Package moment provides a UTC based point in time.
//
// All accessors and arithmetic operate in UTC. Zone based values are only
// produced on request through [Moment.ToZoned].
package moment

import (
	"fmt"
	"time"
)

// MillisOfOneMinute is the number of milliseconds in one minute.
const MillisOfOneMinute = int64(time.Minute / time.Millisecond)

const minutesOfOneHour = 60

// Clock abstracts the wall clock so callers can stay deterministic in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the process wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// Moment represents an instant in time.
//
// The zero value is the zero time.Time in UTC. Moments compare equal with ==
// (and can be used as map keys) whenever they denote the same instant.
type Moment struct {
	t time.Time
}

func newMoment(t time.Time) Moment {
	// Round(0) strips the monotonic clock reading so == compares instants only.
	return Moment{t: t.Round(0).UTC()}
}

// Now creates a moment of the current system clock.
func Now() Moment {
	return NowFrom(SystemClock{})
}

// NowFrom creates a moment of the current time as reported by c.
func NowFrom(c Clock) Moment {
	return newMoment(c.Now())
}

// OfEpochMilli creates a moment from milliseconds since the Unix epoch.
func OfEpochMilli(ms int64) Moment {
	return newMoment(time.UnixMilli(ms))
}

// FromTime converts a zoned time into a moment of the same instant.
func FromTime(t time.Time) Moment {
	return newMoment(t)
}

// ParseError is returned when a date string cannot be parsed.
type ParseError struct {
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse date %q: %v", e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseDate creates a moment at midnight UTC of the given ISO-8601 date
// ("2006-01-02").
func ParseDate(utcDate string) (Moment, error) {
	t, err := time.ParseInLocation(time.DateOnly, utcDate, time.UTC)
	if err != nil {
		return Moment{}, &ParseError{Value: utcDate, Err: err}
	}
	return newMoment(t), nil
}

// OffsetMinutes returns the amount of minutes loc is ahead of UTC at the
// given instant.
func OffsetMinutes(m Moment, loc *time.Location) int {
	_, offset := m.ToZoned(loc).Zone()
	return offset / 60
}

func (m Moment) Year() int { return m.t.Year() }

func (m Moment) Month() int { return int(m.t.Month()) }

func (m Moment) MonthDay() int { return m.t.Day() }

func (m Moment) Hour() int { return m.t.Hour() }

func (m Moment) Minute() int { return m.t.Minute() }

// MinuteOfDay returns the minutes elapsed since midnight UTC.
func (m Moment) MinuteOfDay() int {
	return m.t.Hour()*minutesOfOneHour + m.t.Minute()
}

// StartOfDay returns a copy of this moment reset to 00:00 of the same UTC date.
// Example: 2019-12-31 01:30 => 2019-12-31 00:00
func (m Moment) StartOfDay() Moment {
	y, mo, d := m.t.Date()
	return newMoment(time.Date(y, mo, d, 0, 0, 0, 0, time.UTC))
}

// EndOfDay returns a copy of this moment set to the last representable
// instant of the same UTC date.
// Example: 2019-12-31 01:30 => 2019-12-31 23:59:59.999999999
func (m Moment) EndOfDay() Moment {
	return newMoment(m.StartOfDay().t.AddDate(0, 0, 1).Add(-time.Nanosecond))
}

// ToMilliseconds returns this moment as milliseconds since the Unix epoch.
func (m Moment) ToMilliseconds() int64 {
	return m.t.UnixMilli()
}

// ToUTCTime returns this moment as a time.Time in UTC.
func (m Moment) ToUTCTime() time.Time {
	return m.t
}

// ToZoned returns this moment in the given location. A nil location means UTC.
func (m Moment) ToZoned(loc *time.Location) time.Time {
	if loc == nil {
		return m.t
	}
	return m.t.In(loc)
}

func (m Moment) MinusHours(hours int64) Moment {
	return newMoment(m.t.Add(-time.Duration(hours) * time.Hour))
}

func (m Moment) MinusMinutes(minutes int64) Moment {
	return newMoment(m.t.Add(-time.Duration(minutes) * time.Minute))
}

func (m Moment) PlusSeconds(seconds int64) Moment {
	return newMoment(m.t.Add(time.Duration(seconds) * time.Second))
}

func (m Moment) PlusMinutes(minutes int64) Moment {
	return newMoment(m.t.Add(time.Duration(minutes) * time.Minute))
}

// IsBefore reports whether m is strictly before other.
func (m Moment) IsBefore(other Moment) bool {
	return m.t.Before(other.t)
}

// Equal reports whether m and other denote the same instant.
func (m Moment) Equal(other Moment) bool {
	return m.t.Equal(other.t)
}

func (m Moment) String() string {
	return m.t.Format(time.RFC3339Nano)
}
