// Package sync fetches the schedule from all sources, diffs it against the
// previous snapshot and stores the result.
package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/cpuguy83/fahrplan/internal/calendar"
	"github.com/cpuguy83/fahrplan/internal/config"
	"github.com/cpuguy83/fahrplan/internal/filter"
	"github.com/cpuguy83/fahrplan/internal/schedule"
	"github.com/cpuguy83/fahrplan/internal/store"
)

// sourceWithFilter pairs a schedule source with its optional filter.
type sourceWithFilter struct {
	source calendar.Source
	filter *filter.Filter
}

// Syncer handles schedule synchronization from multiple sources.
type Syncer struct {
	sources  []sourceWithFilter
	filter   *filter.Filter
	store    store.Store
	loc      *time.Location
	interval time.Duration
	schedule cron.Schedule // nil = use interval
}

// Result is the outcome of one sync.
type Result struct {
	// RunID identifies the sync in logs.
	RunID string

	// Sessions is the merged schedule annotated with change flags.
	Sessions []schedule.Session

	// FirstLoad is set when there was no previous snapshot to diff against.
	FirstLoad bool

	// FoundChanges reports whether the schedule differs from the previous snapshot.
	FoundChanges bool

	Stats     schedule.ChangeStats
	TimeFrame schedule.TimeFrame

	// Failed lists the sources that could not be fetched.
	Failed []string
}

// NewSyncer creates a new Syncer from configuration.
func NewSyncer(cfg *config.Config) (*Syncer, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	sources, err := createSources(cfg.Sources, loc)
	if err != nil {
		return nil, err
	}

	global, err := filter.New(cfg.Filters)
	if err != nil {
		return nil, fmt.Errorf("global filters: %w", err)
	}

	var sched cron.Schedule
	if cfg.Sync.Schedule != "" {
		sched, err = cron.ParseStandard(cfg.Sync.Schedule)
		if err != nil {
			return nil, fmt.Errorf("parse sync schedule: %w", err)
		}
	}

	st, err := store.Open(cfg.Sync.Output)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}

	return &Syncer{
		sources:  sources,
		filter:   global,
		store:    st,
		loc:      loc,
		interval: cfg.Sync.Interval,
		schedule: sched,
	}, nil
}

// Close releases the snapshot store.
func (s *Syncer) Close() error {
	return s.store.Close()
}

// Interval returns the configured sync interval.
func (s *Syncer) Interval() time.Duration {
	return s.interval
}

// SourceCount returns the number of configured sources.
func (s *Syncer) SourceCount() int {
	return len(s.sources)
}

type fetchResult struct {
	sessions []schedule.Session
	name     string
	fetched  int // count before filtering
	err      error
}

// fetch fetches all sources in parallel, applying per-source filters.
// Results keep the order of the configured sources.
func (s *Syncer) fetch(ctx context.Context) []fetchResult {
	results := make([]fetchResult, len(s.sources))
	var wg sync.WaitGroup

	for i, swf := range s.sources {
		wg.Go(func() {
			name := swf.source.Name()
			slog.Debug("fetching source", "name", name)

			sessions, err := swf.source.Fetch(ctx)
			if err != nil {
				results[i] = fetchResult{name: name, err: err}
				return
			}

			fetched := len(sessions)

			// Apply per-source filter (if no rules, all sessions pass through)
			sessions = swf.filter.Apply(sessions)

			results[i] = fetchResult{
				sessions: sessions,
				name:     name,
				fetched:  fetched,
			}
		})
	}

	wg.Wait()
	return results
}

// Sync fetches all sources, diffs the merged schedule against the stored
// snapshot and saves the flagged schedule as the next snapshot.
//
// Sources that fail keep their sessions from the previous snapshot so they
// are not reported as canceled. Sync fails only when no source delivered
// anything and there was an error.
func (s *Syncer) Sync(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	log := slog.With("run", runID)
	log.Info("starting sync", "sources", len(s.sources))

	var sets [][]schedule.Session
	var failed []string
	var firstErr error
	for _, r := range s.fetch(ctx) {
		if r.err != nil {
			log.Warn("failed to fetch source", "name", r.name, "error", r.err)
			failed = append(failed, r.name)
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		log.Info("fetched source", "name", r.name, "fetched", r.fetched, "after_filter", len(r.sessions))
		sets = append(sets, r.sessions)
	}

	merged := s.filter.Apply(calendar.Merge(sets...))

	// Return an error only if we got zero sessions and there was an error
	if len(merged) == 0 && firstErr != nil {
		return nil, firstErr
	}

	previous, err := s.store.Load(ctx)
	firstLoad := errors.Is(err, fs.ErrNotExist)
	if err != nil && !firstLoad {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	result := &Result{
		RunID:     runID,
		FirstLoad: firstLoad,
		Failed:    failed,
	}

	if firstLoad {
		// Nothing to compare against: the first schedule carries no flags.
		result.Sessions = make([]schedule.Session, 0, len(merged))
		for _, session := range merged {
			session = session.Clone()
			session.ClearChangeFlags()
			result.Sessions = append(result.Sessions, session)
		}
	} else {
		if len(failed) > 0 {
			merged = calendar.Merge(merged, carryOver(previous, failed))
		}
		result.Sessions, result.FoundChanges = schedule.ComputeSessionsWithChangeFlags(merged, previous)
	}

	result.Stats = schedule.Stats(result.Sessions)
	result.TimeFrame = schedule.CalculateTimeFrame(result.Sessions, schedule.ZonedMinuteOfDay(s.loc))

	if err := s.store.Save(ctx, result.Sessions); err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}

	log.Info("sync complete",
		"sessions", len(result.Sessions),
		"first_load", result.FirstLoad,
		"found_changes", result.FoundChanges,
		"new", result.Stats.New,
		"changed", result.Stats.Changed,
		"canceled", result.Stats.Canceled,
		"time_frame", result.TimeFrame,
	)

	return result, nil
}

// carryOver returns the still-active sessions of the previous snapshot that
// came from one of the failed sources, without their change flags.
func carryOver(previous []schedule.Session, failed []string) []schedule.Session {
	var kept []schedule.Session
	for _, session := range previous {
		if session.ChangedIsCanceled || !fromAny(session.Source, failed) {
			continue
		}
		session = session.Clone()
		session.ClearChangeFlags()
		kept = append(kept, session)
	}
	return kept
}

// fromAny reports whether a session source belongs to one of the named
// sources. CalDAV sessions are tagged "<source>/<calendar>".
func fromAny(source string, names []string) bool {
	for _, name := range names {
		if source == name || strings.HasPrefix(source, name+"/") {
			return true
		}
	}
	return false
}

// Run starts the sync loop, calling onSync after each sync completes.
// Syncs follow the cron schedule when one is configured, otherwise the interval.
// Run blocks until the context is cancelled.
func (s *Syncer) Run(ctx context.Context, onSync func(*Result, error)) {
	// Initial sync
	onSync(s.Sync(ctx))

	if s.schedule != nil {
		s.runSchedule(ctx, onSync)
		return
	}

	// Periodic sync
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			onSync(s.Sync(ctx))
		case <-ctx.Done():
			return
		}
	}
}

func (s *Syncer) runSchedule(ctx context.Context, onSync func(*Result, error)) {
	for {
		now := time.Now()
		next := s.schedule.Next(now)
		slog.Debug("next sync scheduled", "at", next)

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-timer.C:
			onSync(s.Sync(ctx))
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

// createSources creates schedule sources with their per-source filters from configuration.
func createSources(cfgs []config.SourceConfig, loc *time.Location) ([]sourceWithFilter, error) {
	var sources []sourceWithFilter

	for _, cfg := range cfgs {
		password, err := cfg.GetPassword()
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", cfg.Name, err)
		}

		var src calendar.Source
		switch cfg.Type {
		case config.SourceXML:
			src = calendar.NewXMLSource(cfg.Name, cfg.URL, cfg.Username, password)
		case config.SourceICS:
			src = calendar.NewICSSource(cfg.Name, cfg.URL, cfg.Username, password, loc)
		case config.SourceCalDAV:
			src = calendar.NewCalDAVSource(cfg.Name, cfg.URL, cfg.Username, password, cfg.Calendars, loc)
		default:
			slog.Warn("unknown source type", "type", cfg.Type, "name", cfg.Name)
			continue
		}

		// Create per-source filter (if no rules, filter passes everything through)
		f, err := filter.New(cfg.Filters)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", cfg.Name, err)
		}

		sources = append(sources, sourceWithFilter{
			source: src,
			filter: f,
		})
	}

	return sources, nil
}
