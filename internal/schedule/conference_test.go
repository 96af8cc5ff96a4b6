package schedule

import (
	"testing"
	"time"
)

func datedSession(id string, duration int, dateUTC int64) Session {
	return Session{SessionID: id, Duration: duration, DateUTC: dateUTC}
}

func relativeSession(id string, duration, relStartTime int) Session {
	return Session{SessionID: id, Duration: duration, RelStartTime: relStartTime}
}

func TestCalculateTimeFrame(t *testing.T) {
	tests := []struct {
		name      string
		sessions  []Session
		wantFirst int
		wantLast  int
	}{
		{
			name: "empty",
		},
		{
			name: "frab single day",
			sessions: []Session{
				datedSession("Opening", 30, 1536332400000), // 2018-09-07T17:00:00+02:00
				datedSession("Closing", 30, 1536336000000), // 2018-09-07T18:00:00+02:00
			},
			wantFirst: 17*60 - 2*60,
			wantLast:  18*60 + 30 - 2*60,
		},
		{
			name: "frab single day non-chronological",
			sessions: []Session{
				datedSession("Opening", 30, 1536328800000), // 2018-09-07T16:00:00+02:00
				datedSession("Closing", 30, 1536336000000), // 2018-09-07T18:00:00+02:00
				datedSession("Middle", 20, 1536332400000),  // 2018-09-07T17:00:00+02:00
			},
			wantFirst: 16*60 - 2*60,
			wantLast:  18*60 + 30 - 2*60,
		},
		{
			// Every calendar day between the dates adds OneDay: 2018-09-07
			// to 2018-09-09 shifts the end by 2*OneDay, not by one.
			name: "frab multiple days",
			sessions: []Session{
				datedSession("Opening", 30, 1536332400000), // 2018-09-07T17:00:00+02:00
				datedSession("Closing", 30, 1536504300000), // 2018-09-09T16:45:00+02:00
			},
			wantFirst: 17*60 - 2*60,
			wantLast:  16*60 + 45 + 30 - 2*60 + 2*OneDay,
		},
		{
			name: "pentabarf",
			sessions: []Session{
				relativeSession("Opening", 25, 570),  // 09:30
				relativeSession("Closing", 10, 1070), // 17:50
			},
			wantFirst: 570,
			wantLast:  1080,
		},
		{
			name: "pentabarf non-chronological",
			sessions: []Session{
				relativeSession("Opening", 25, 570),
				relativeSession("Closing", 10, 1070),
				relativeSession("Middle", 25, 720),
			},
			wantFirst: 570,
			wantLast:  1080,
		},
		{
			name: "session without any start",
			sessions: []Session{
				{SessionID: "1", Duration: 60},
			},
			wantFirst: 0,
			wantLast:  60,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateTimeFrame(tt.sessions, UTCMinuteOfDay)
			if got.FirstSessionStartsAt != tt.wantFirst {
				t.Errorf("FirstSessionStartsAt = %d, want %d", got.FirstSessionStartsAt, tt.wantFirst)
			}
			if got.LastSessionEndsAt != tt.wantLast {
				t.Errorf("LastSessionEndsAt = %d, want %d", got.LastSessionEndsAt, tt.wantLast)
			}
		})
	}
}

func TestCalculateTimeFrame_OrderIndependent(t *testing.T) {
	a := datedSession("a", 30, 1536328800000)
	b := datedSession("b", 45, 1536332400000)
	c := datedSession("c", 30, 1536504300000)

	want := CalculateTimeFrame([]Session{a, b, c}, UTCMinuteOfDay)
	for _, perm := range [][]Session{
		{a, c, b},
		{b, a, c},
		{b, c, a},
		{c, a, b},
		{c, b, a},
	} {
		if got := CalculateTimeFrame(perm, UTCMinuteOfDay); got != want {
			t.Errorf("CalculateTimeFrame(%v) = %v, want %v", perm, got, want)
		}
	}
}

func TestCalculateTimeFrame_Zoned(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("timezone data not available: %v", err)
	}

	sessions := []Session{
		datedSession("Opening", 30, 1536332400000), // 17:00 local
		datedSession("Closing", 30, 1536336000000), // 18:00 local
	}
	got := CalculateTimeFrame(sessions, ZonedMinuteOfDay(berlin))
	want := TimeFrame{FirstSessionStartsAt: 17 * 60, LastSessionEndsAt: 18*60 + 30}
	if got != want {
		t.Errorf("CalculateTimeFrame() = %v, want %v", got, want)
	}
}

func TestZonedMinuteOfDay(t *testing.T) {
	gmtPlus1 := time.FixedZone("GMT+1", 60*60)
	millis := int64(1536332400000) // 15:00 UTC

	if got := ZonedMinuteOfDay(gmtPlus1)(millis); got != 16*60 {
		t.Errorf("ZonedMinuteOfDay(GMT+1) = %d, want %d", got, 16*60)
	}
	if got := ZonedMinuteOfDay(nil)(millis); got != 15*60 {
		t.Errorf("ZonedMinuteOfDay(nil) = %d, want %d", got, 15*60)
	}
}

func TestTimeFrameString(t *testing.T) {
	got := TimeFrame{FirstSessionStartsAt: 570, LastSessionEndsAt: 1080}.String()
	want := "TimeFrame{firstSessionStartsAt=570, lastSessionEndsAt=1080}"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestStartOffsets(t *testing.T) {
	sessions := []Session{
		datedSession("Closing", 30, 1536504300000), // 2018-09-09T14:45:00Z
		relativeSession("Relative", 10, 600),
		datedSession("Opening", 30, 1536332400000), // 2018-09-07T15:00:00Z
	}

	got := StartOffsets(sessions, UTCMinuteOfDay)
	want := []int{14*60 + 45 + 2*OneDay, 600, 15 * 60}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("StartOffsets()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
