package schedule

import "slices"

// ComputeSessionsWithChangeFlags diffs a freshly fetched session list against
// the previously stored one.
//
// The returned list holds every new session in its input order, flagged
// with the fields that differ from the old session of the same id (or as new
// when there is none), followed by copies of the old sessions that vanished,
// flagged as canceled. Old sessions that were already canceled are dropped.
// Flags are only ever set, never cleared. The inputs are not modified.
//
// The returned bool reports whether any difference was found.
func ComputeSessionsWithChangeFlags(newSessions, oldSessions []Session) ([]Session, bool) {
	oldByID := make(map[string]*Session, len(oldSessions))
	for i := range oldSessions {
		old := &oldSessions[i]
		if old.ChangedIsCanceled {
			continue
		}
		if _, ok := oldByID[old.SessionID]; !ok {
			oldByID[old.SessionID] = old
		}
	}

	var foundChanges bool
	seen := make(map[string]bool, len(newSessions))
	sessions := make([]Session, 0, len(newSessions))

	for _, s := range newSessions {
		s = s.Clone()
		seen[s.SessionID] = true

		old, ok := oldByID[s.SessionID]
		if !ok {
			s.ChangedIsNew = true
			foundChanges = true
			sessions = append(sessions, s)
			continue
		}

		if flagChanges(&s, old) {
			foundChanges = true
		}
		sessions = append(sessions, s)
	}

	// Canceled sessions go last, in the order of the old list.
	for i := range oldSessions {
		old := &oldSessions[i]
		if old.ChangedIsCanceled || seen[old.SessionID] {
			continue
		}
		if oldByID[old.SessionID] != old {
			// duplicate id in the old list
			continue
		}
		canceled := old.Clone()
		canceled.Cancel()
		sessions = append(sessions, canceled)
		foundChanges = true
	}

	return sessions, foundChanges
}

// flagChanges sets the change flag of every tracked field of s that differs
// from old and reports whether there was any difference.
func flagChanges(s, old *Session) bool {
	var changed bool
	flag := func(differs bool, dst *bool) {
		if differs {
			*dst = true
			changed = true
		}
	}

	flag(s.Title != old.Title, &s.ChangedTitle)
	flag(s.Subtitle != old.Subtitle, &s.ChangedSubtitle)
	flag(!slices.Equal(s.Speakers, old.Speakers), &s.ChangedSpeakers)
	flag(s.Lang != old.Lang, &s.ChangedLanguage)
	flag(s.Room != old.Room, &s.ChangedRoom)
	flag(s.Track != old.Track, &s.ChangedTrack)
	flag(s.RecordingOptOut != old.RecordingOptOut, &s.ChangedRecordingOptOut)
	flag(s.Day != old.Day, &s.ChangedDay)
	flag(s.StartTime != old.StartTime, &s.ChangedTime)
	flag(s.Duration != old.Duration, &s.ChangedDuration)

	return changed
}
