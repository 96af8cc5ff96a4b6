package schedule

import "github.com/cpuguy83/fahrplan/internal/moment"

// RowMinutes is the span of one row of the time column.
const RowMinutes = 15

// TimeRow is one row of the time column.
type TimeRow struct {
	// Minutes is the offset of the row on the schedule axis, starting at
	// TimeFrame.FirstSessionStartsAt and possibly exceeding OneDay.
	Minutes int

	// Segment is the wall clock time displayed for the row.
	Segment TimeSegment

	// Now is set on the row whose window contains the current time.
	Now bool
}

// TimeColumn builds the rows of the time column for frame, one per RowMinutes.
// Rows are anchored to the UTC day of day. Offsets beyond OneDay wrap back to
// the start of the day for display.
//
// When now is not nil every row whose window contains it is flagged.
func TimeColumn(frame TimeFrame, day moment.Moment, now *moment.Moment) []TimeRow {
	var rows []TimeRow
	for t := frame.FirstSessionStartsAt; t < frame.LastSessionEndsAt; t += RowMinutes {
		printTime := ((t % OneDay) + OneDay) % OneDay
		seg := OfMinutesOfTheDayOn(day, printTime)
		rows = append(rows, TimeRow{
			Minutes: t,
			Segment: seg,
			Now:     now != nil && seg.IsMatched(*now, RowMinutes),
		})
	}
	return rows
}

// CurrentRow returns the index of the first row flagged as now, or -1.
// Nothing is current while now is earlier in the day than the first session.
func CurrentRow(rows []TimeRow, frame TimeFrame, now moment.Moment) int {
	if now.MinuteOfDay() < frame.FirstSessionStartsAt {
		return -1
	}
	for i, r := range rows {
		if r.Now {
			return i
		}
	}
	return -1
}
