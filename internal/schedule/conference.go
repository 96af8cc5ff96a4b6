package schedule

import (
	"fmt"
	"time"

	"github.com/cpuguy83/fahrplan/internal/moment"
)

// OneDay is the number of minutes of one day.
const OneDay = 24 * 60

const millisOfOneDay = OneDay * moment.MillisOfOneMinute

// MinuteOfDayFunc maps an absolute timestamp in epoch milliseconds to the
// minute of its day.
type MinuteOfDayFunc func(utcMillis int64) int

// UTCMinuteOfDay returns the minute of the UTC day of the given timestamp.
func UTCMinuteOfDay(utcMillis int64) int {
	return moment.OfEpochMilli(utcMillis).MinuteOfDay()
}

// ZonedMinuteOfDay returns a MinuteOfDayFunc that projects timestamps into loc.
// A nil location means UTC.
func ZonedMinuteOfDay(loc *time.Location) MinuteOfDayFunc {
	if loc == nil {
		return UTCMinuteOfDay
	}
	return func(utcMillis int64) int {
		t := moment.OfEpochMilli(utcMillis).ToZoned(loc)
		return t.Hour()*60 + t.Minute()
	}
}

// TimeFrame is the span of a schedule in day-relative minutes.
//
// LastSessionEndsAt exceeds OneDay by a multiple of it when the schedule
// continues on following days.
type TimeFrame struct {
	FirstSessionStartsAt int
	LastSessionEndsAt    int
}

func (f TimeFrame) String() string {
	return fmt.Sprintf("TimeFrame{firstSessionStartsAt=%d, lastSessionEndsAt=%d}", f.FirstSessionStartsAt, f.LastSessionEndsAt)
}

// CalculateTimeFrame reduces sessions in any order to the minute the earliest
// session starts and the minute the latest session ends.
//
// Start minutes are those of StartOffsets. An empty list yields the zero
// TimeFrame.
func CalculateTimeFrame(sessions []Session, minuteOfDay MinuteOfDayFunc) TimeFrame {
	var frame TimeFrame
	for i, startsAt := range StartOffsets(sessions, minuteOfDay) {
		endsAt := startsAt + sessions[i].Duration

		if i == 0 || startsAt < frame.FirstSessionStartsAt {
			frame.FirstSessionStartsAt = startsAt
		}
		if i == 0 || endsAt > frame.LastSessionEndsAt {
			frame.LastSessionEndsAt = endsAt
		}
	}
	return frame
}

// StartOffsets returns the start of every session in day-relative minutes.
//
// Sessions with an absolute timestamp are converted with minuteOfDay and
// shifted by OneDay for every day they start after the earliest dated
// session. Sessions without one use their relative start time as is.
func StartOffsets(sessions []Session, minuteOfDay MinuteOfDayFunc) []int {
	// The calendar day of a timestamp follows the zone policy of minuteOfDay.
	dayStart := func(utcMillis int64) int64 {
		subMinute := ((utcMillis % moment.MillisOfOneMinute) + moment.MillisOfOneMinute) % moment.MillisOfOneMinute
		return utcMillis - subMinute - int64(minuteOfDay(utcMillis))*moment.MillisOfOneMinute
	}

	var firstDay int64
	var haveFirstDay bool
	for i := range sessions {
		if sessions[i].DateUTC == 0 {
			continue
		}
		d := dayStart(sessions[i].DateUTC)
		if !haveFirstDay || d < firstDay {
			firstDay = d
			haveFirstDay = true
		}
	}

	offsets := make([]int, len(sessions))
	for i := range sessions {
		s := &sessions[i]
		if s.DateUTC != 0 {
			days := daysBetween(firstDay, dayStart(s.DateUTC))
			offsets[i] = minuteOfDay(s.DateUTC) + OneDay*days
		} else {
			offsets[i] = s.RelStartTime
		}
	}
	return offsets
}

// daysBetween returns the whole days between two day starts, rounding to
// absorb days that are an hour shorter or longer.
func daysBetween(from, to int64) int {
	diff := to - from
	if diff >= 0 {
		return int((diff + millisOfOneDay/2) / millisOfOneDay)
	}
	return -int((-diff + millisOfOneDay/2) / millisOfOneDay)
}
