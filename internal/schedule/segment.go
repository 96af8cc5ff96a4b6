package schedule

import (
	"fmt"
	"time"

	"github.com/cpuguy83/fahrplan/internal/moment"
)

// TimeSegment holds the minutes of the day (hours and minutes) of one row in
// the time column next to the schedule grid. Day, month and year are not
// considered.
type TimeSegment struct {
	moment moment.Moment
}

// OfMinutesOfTheDay creates a segment at the given minutes after the start of
// the current UTC day. Values outside 0..1439 roll into adjacent days.
func OfMinutesOfTheDay(minutesOfTheDay int) TimeSegment {
	return OfMinutesOfTheDayOn(moment.Now(), minutesOfTheDay)
}

// OfMinutesOfTheDayOn creates a segment at the given minutes after the start
// of the UTC day of day.
func OfMinutesOfTheDayOn(day moment.Moment, minutesOfTheDay int) TimeSegment {
	return TimeSegment{moment: day.StartOfDay().PlusMinutes(int64(minutesOfTheDay))}
}

func (s TimeSegment) Hour() int { return s.moment.Hour() }

func (s TimeSegment) Minute() int { return s.moment.Minute() }

// String returns the segment's own clock as "HH:mm".
func (s TimeSegment) String() string {
	return fmt.Sprintf("%02d:%02d", s.moment.Hour(), s.moment.Minute())
}

// FormattedText returns the segment as "HH:mm" in the given rendering zone.
// A nil location renders UTC.
func (s TimeSegment) FormattedText(loc *time.Location) string {
	return s.moment.ToZoned(loc).Format("15:04")
}

// IsMatched reports whether m lies within the window of offset minutes
// starting at this segment. Only hour and minute are compared, and the window
// does not extend into the following hour.
func (s TimeSegment) IsMatched(m moment.Moment, offset int) bool {
	return m.Hour() == s.moment.Hour() &&
		m.Minute() >= s.moment.Minute() &&
		m.Minute() < s.moment.Minute()+offset
}
