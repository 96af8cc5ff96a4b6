package schedule

import (
	"testing"
	"time"

	"github.com/cpuguy83/fahrplan/internal/moment"
)

func TestTimeSegmentFormattedText(t *testing.T) {
	gmtPlus1 := time.FixedZone("GMT+1", 60*60)

	tests := []struct {
		minutes int
		want    string
	}{
		{0, "01:00"},
		{120, "03:00"},
		{660, "12:00"},
		{1425, "00:45"},
	}
	for _, tt := range tests {
		seg := OfMinutesOfTheDay(tt.minutes)
		if got := seg.FormattedText(gmtPlus1); got != tt.want {
			t.Errorf("OfMinutesOfTheDay(%d).FormattedText(GMT+1) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}

func TestTimeSegmentString(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{0, "00:00"},
		{25, "00:25"},
		{660, "11:00"},
		{1425, "23:45"},
		{1440 + 90, "01:30"},
	}
	for _, tt := range tests {
		seg := OfMinutesOfTheDay(tt.minutes)
		if got := seg.String(); got != tt.want {
			t.Errorf("OfMinutesOfTheDay(%d).String() = %q, want %q", tt.minutes, got, tt.want)
		}
		if got := seg.FormattedText(nil); got != tt.want {
			t.Errorf("OfMinutesOfTheDay(%d).FormattedText(nil) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}

func TestTimeSegmentIsMatched(t *testing.T) {
	at := func(minutes int64) moment.Moment {
		return moment.OfEpochMilli(minutes * moment.MillisOfOneMinute)
	}

	tests := []struct {
		name    string
		segment int
		m       moment.Moment
		window  int
		want    bool
	}{
		{name: "start of window", segment: 25, m: at(25), window: 15, want: true},
		{name: "inside window", segment: 25, m: at(39), window: 15, want: true},
		{name: "end of window", segment: 25, m: at(40), window: 15, want: false},
		{name: "before window", segment: 25, m: at(24), window: 15, want: false},
		{name: "other hour", segment: 25, m: at(85), window: 15, want: false},
		{name: "window does not roll into next hour", segment: 50, m: at(65), window: 15, want: false},
		{name: "other date", segment: 25, m: at(3*OneDay + 30), window: 15, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seg := OfMinutesOfTheDay(tt.segment)
			if got := seg.IsMatched(tt.m, tt.window); got != tt.want {
				t.Errorf("IsMatched(%s, %d) = %v, want %v", tt.m, tt.window, got, tt.want)
			}
		})
	}
}
