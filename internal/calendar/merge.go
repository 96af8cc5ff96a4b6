package calendar

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/cpuguy83/fahrplan/internal/schedule"
)

// Merge combines sessions from multiple sources into a single slice.
// The first session seen for an id wins. The result is sorted by day,
// start time and id.
func Merge(sessionSets ...[]schedule.Session) []schedule.Session {
	seen := make(map[string]bool)

	var all []schedule.Session
	for _, sessions := range sessionSets {
		for _, s := range sessions {
			if seen[s.SessionID] {
				continue
			}
			seen[s.SessionID] = true
			all = append(all, s)
		}
	}

	slices.SortStableFunc(all, func(a, b schedule.Session) int {
		return cmp.Or(
			cmp.Compare(a.Day, b.Day),
			cmp.Compare(a.StartTime, b.StartTime),
			cmp.Compare(a.SessionID, b.SessionID),
		)
	})

	return all
}

// ReadFile reads sessions from a local schedule.xml or .ics file.
// The format is chosen by the file extension.
func ReadFile(path string, loc *time.Location) ([]schedule.Session, error) {
	if loc == nil {
		loc = time.UTC
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schedule file: %w", err)
	}
	defer f.Close()

	name := filepath.Base(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return ParseXML(f, name)
	case ".ics", ".ical", ".ifb":
		return ParseICS(f, name, loc)
	default:
		return nil, fmt.Errorf("unsupported schedule file type: %s", path)
	}
}
