package sync

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/cpuguy83/fahrplan/internal/config"
	"github.com/cpuguy83/fahrplan/internal/filter"
	"github.com/cpuguy83/fahrplan/internal/schedule"
	"github.com/cpuguy83/fahrplan/internal/store"
)

type fakeSource struct {
	name     string
	sessions []schedule.Session
	err      error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Fetch(context.Context) ([]schedule.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.sessions, nil
}

func newTestSyncer(t *testing.T, sources ...*fakeSource) *Syncer {
	t.Helper()
	s := &Syncer{
		store:    store.NewICSFile(filepath.Join(t.TempDir(), "schedule.ics")),
		loc:      time.UTC,
		interval: time.Minute,
	}
	for _, src := range sources {
		s.sources = append(s.sources, sourceWithFilter{source: src})
	}
	return s
}

func TestSync_FirstLoadHasNoFlags(t *testing.T) {
	src := &fakeSource{name: "congress", sessions: []schedule.Session{
		{SessionID: "1", Title: "Opening", Day: 1, StartTime: 570, RelStartTime: 570, Duration: 30, Source: "congress"},
		{SessionID: "2", Title: "Closing", Day: 1, StartTime: 1050, RelStartTime: 1050, Duration: 30, Source: "congress"},
	}}
	s := newTestSyncer(t, src)

	result, err := s.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() error: %v", err)
	}
	if !result.FirstLoad || result.FoundChanges {
		t.Errorf("FirstLoad, FoundChanges = %v, %v, want true, false", result.FirstLoad, result.FoundChanges)
	}
	if result.Stats.Total() != 0 {
		t.Errorf("Stats = %+v, want no flagged sessions", result.Stats)
	}
	if want := (schedule.TimeFrame{FirstSessionStartsAt: 570, LastSessionEndsAt: 1080}); result.TimeFrame != want {
		t.Errorf("TimeFrame = %v, want %v", result.TimeFrame, want)
	}
	if result.RunID == "" {
		t.Error("expected a run id")
	}
}

func TestSync_DetectsChanges(t *testing.T) {
	src := &fakeSource{name: "congress", sessions: []schedule.Session{
		{SessionID: "s1", Title: "Opening", Room: "Hall 1", Source: "congress"},
		{SessionID: "s2", Title: "Keynote", Room: "Hall 1", Source: "congress"},
	}}
	s := newTestSyncer(t, src)
	ctx := context.Background()

	if _, err := s.Sync(ctx); err != nil {
		t.Fatalf("first Sync() error: %v", err)
	}

	src.sessions = []schedule.Session{
		{SessionID: "s2", Title: "Keynote", Room: "Hall 2", Source: "congress"},
		{SessionID: "s3", Title: "Workshop", Source: "congress"},
	}
	result, err := s.Sync(ctx)
	if err != nil {
		t.Fatalf("second Sync() error: %v", err)
	}
	if result.FirstLoad || !result.FoundChanges {
		t.Errorf("FirstLoad, FoundChanges = %v, %v, want false, true", result.FirstLoad, result.FoundChanges)
	}
	if want := (schedule.ChangeStats{New: 1, Canceled: 1, Changed: 1}); result.Stats != want {
		t.Errorf("Stats = %+v, want %+v", result.Stats, want)
	}

	byID := make(map[string]schedule.Session)
	for _, session := range result.Sessions {
		byID[session.SessionID] = session
	}
	if !byID["s1"].ChangedIsCanceled || !byID["s2"].ChangedRoom || !byID["s3"].ChangedIsNew {
		t.Errorf("unexpected flags: %+v", result.Sessions)
	}

	// The same schedule again: the canceled session is dropped and nothing differs.
	result, err = s.Sync(ctx)
	if err != nil {
		t.Fatalf("third Sync() error: %v", err)
	}
	if result.FoundChanges {
		t.Errorf("expected no changes on unchanged schedule, got %+v", result.Sessions)
	}
	if len(result.Sessions) != 2 {
		t.Errorf("expected canceled session to be dropped, got %d sessions", len(result.Sessions))
	}
}

func TestSync_EmptySchedule(t *testing.T) {
	s := newTestSyncer(t, &fakeSource{name: "congress"})

	result, err := s.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() error: %v", err)
	}
	if !result.FirstLoad || len(result.Sessions) != 0 {
		t.Errorf("FirstLoad, Sessions = %v, %+v, want true, empty", result.FirstLoad, result.Sessions)
	}

	// The empty snapshot counts as a previous schedule.
	result, err = s.Sync(context.Background())
	if err != nil {
		t.Fatalf("second Sync() error: %v", err)
	}
	if result.FirstLoad {
		t.Error("expected the stored empty snapshot to be loaded")
	}
}

func TestSync_LastSessionCanceled(t *testing.T) {
	src := &fakeSource{name: "congress", sessions: []schedule.Session{{SessionID: "1", Title: "Opening", Source: "congress"}}}
	s := newTestSyncer(t, src)
	ctx := context.Background()

	if _, err := s.Sync(ctx); err != nil {
		t.Fatalf("first Sync() error: %v", err)
	}

	src.sessions = nil
	result, err := s.Sync(ctx)
	if err != nil {
		t.Fatalf("second Sync() error: %v", err)
	}
	if result.Stats.Canceled != 1 {
		t.Errorf("Stats = %+v, want 1 canceled", result.Stats)
	}

	// The canceled session is dropped, leaving nothing to store.
	result, err = s.Sync(ctx)
	if err != nil {
		t.Fatalf("third Sync() error: %v", err)
	}
	if len(result.Sessions) != 0 {
		t.Errorf("Sessions = %+v, want empty", result.Sessions)
	}
}

func TestSync_FailedSourceKeepsPreviousSessions(t *testing.T) {
	ok := &fakeSource{name: "main", sessions: []schedule.Session{{SessionID: "m1", Source: "main"}}}
	flaky := &fakeSource{name: "dav", sessions: []schedule.Session{{SessionID: "w1", Source: "dav/Workshops"}}}
	s := newTestSyncer(t, ok, flaky)
	ctx := context.Background()

	if _, err := s.Sync(ctx); err != nil {
		t.Fatalf("first Sync() error: %v", err)
	}

	flaky.err = errors.New("connection refused")
	result, err := s.Sync(ctx)
	if err != nil {
		t.Fatalf("second Sync() error: %v", err)
	}
	if result.FoundChanges {
		t.Errorf("expected sessions of the failed source to be carried over, got %+v", result.Sessions)
	}
	if len(result.Failed) != 1 || result.Failed[0] != "dav" {
		t.Errorf("Failed = %v, want [dav]", result.Failed)
	}
	if len(result.Sessions) != 2 {
		t.Errorf("expected 2 sessions, got %d", len(result.Sessions))
	}
}

func TestSync_AllSourcesFail(t *testing.T) {
	s := newTestSyncer(t, &fakeSource{name: "broken", err: errors.New("boom")})

	if _, err := s.Sync(context.Background()); err == nil {
		t.Fatal("expected error when every source fails")
	}
	if _, err := s.store.Load(context.Background()); err == nil {
		t.Error("expected no snapshot to be written")
	}
}

func TestSync_Filters(t *testing.T) {
	src := &fakeSource{name: "congress", sessions: []schedule.Session{
		{SessionID: "1", Track: "Security"},
		{SessionID: "2", Track: "Art"},
	}}
	s := newTestSyncer(t, src)

	f, err := filter.New(config.FilterConfig{Rules: []config.FilterRule{{Field: "track", Exact: "Security"}}})
	if err != nil {
		t.Fatal(err)
	}
	s.filter = f

	result, err := s.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() error: %v", err)
	}
	if len(result.Sessions) != 1 || result.Sessions[0].SessionID != "1" {
		t.Errorf("Sessions = %+v, want only the Security session", result.Sessions)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	src := &fakeSource{name: "congress", sessions: []schedule.Session{{SessionID: "1"}}}
	s := newTestSyncer(t, src)
	s.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	var runs int
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx, func(r *Result, err error) {
			if err != nil {
				t.Errorf("sync error: %v", err)
			}
			runs++
			if runs == 3 {
				cancel()
			}
		})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if runs < 3 {
		t.Errorf("runs = %d, want at least 3", runs)
	}
}

func TestFromAny(t *testing.T) {
	tests := []struct {
		source string
		want   bool
	}{
		{"dav", true},
		{"dav/Workshops", true},
		{"davx", false},
		{"main", false},
	}
	for _, tt := range tests {
		if got := fromAny(tt.source, []string{"dav"}); got != tt.want {
			t.Errorf("fromAny(%q) = %v, want %v", tt.source, got, tt.want)
		}
	}
}
