package notify

import (
	"fmt"
	"strings"

	"github.com/cpuguy83/fahrplan/internal/schedule"
)

// maxListed is the number of sessions named in a change notification.
const maxListed = 5

// ScheduleChanged builds the notification announcing the changes of a sync.
// It reports false when no session carries a change flag.
func ScheduleChanged(sessions []schedule.Session) (Notification, bool) {
	stats := schedule.Stats(sessions)
	if stats.Total() == 0 {
		return Notification{}, false
	}

	var counts []string
	if stats.New > 0 {
		counts = append(counts, fmt.Sprintf("%d new", stats.New))
	}
	if stats.Changed > 0 {
		counts = append(counts, fmt.Sprintf("%d changed", stats.Changed))
	}
	if stats.Canceled > 0 {
		counts = append(counts, fmt.Sprintf("%d canceled", stats.Canceled))
	}

	var lines []string
	for _, s := range sessions {
		label := changeLabel(&s)
		if label == "" {
			continue
		}
		if len(lines) == maxListed {
			lines = append(lines, fmt.Sprintf("and %d more", stats.Total()-maxListed))
			break
		}
		lines = append(lines, fmt.Sprintf("%s: %s", label, s.Title))
	}

	summary := "Schedule changed: " + strings.Join(counts, ", ")
	body := strings.Join(lines, "\n")

	urgency := UrgencyNormal
	if stats.Canceled > 0 {
		urgency = UrgencyCritical
	}

	return Notification{
		Summary: summary,
		Body:    body,
		Urgency: urgency,
		Key:     summary + "\n" + body,
	}, true
}

func changeLabel(s *schedule.Session) string {
	switch {
	case s.ChangedIsCanceled:
		return "Canceled"
	case s.ChangedIsNew:
		return "New"
	case s.ChangedTime || s.ChangedDay:
		return "Moved"
	case s.ChangedRoom:
		return "Room changed"
	case s.IsChanged():
		return "Changed"
	default:
		return ""
	}
}
