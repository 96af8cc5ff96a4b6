package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cpuguy83/fahrplan/internal/schedule"
)

// SQLite stores the snapshot in a SQLite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	s := &SQLite{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS snapshot (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  saved_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS sessions (
  position INTEGER PRIMARY KEY,
  session_id TEXT NOT NULL,
  title TEXT NOT NULL,
  subtitle TEXT NOT NULL,
  speakers TEXT NOT NULL,
  language TEXT NOT NULL,
  room TEXT NOT NULL,
  track TEXT NOT NULL,
  recording_optout INTEGER NOT NULL,
  day INTEGER NOT NULL,
  start_time INTEGER NOT NULL,
  duration INTEGER NOT NULL,
  date_utc INTEGER NOT NULL,
  rel_start_time INTEGER NOT NULL,
  date TEXT NOT NULL,
  abstract TEXT NOT NULL,
  url TEXT NOT NULL,
  source TEXT NOT NULL,
  changed TEXT NOT NULL
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create snapshot tables: %w", err)
	}
	return nil
}

// Save replaces the stored snapshot in a single transaction.
func (s *SQLite) Save(ctx context.Context, sessions []schedule.Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions`); err != nil {
		return fmt.Errorf("reset sessions: %w", err)
	}

	const stmt = `
INSERT INTO sessions (position, session_id, title, subtitle, speakers, language, room, track, recording_optout,
  day, start_time, duration, date_utc, rel_start_time, date, abstract, url, source, changed)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`
	for i, session := range sessions {
		speakers, err := json.Marshal(session.Speakers)
		if err != nil {
			return fmt.Errorf("encode speakers of %s: %w", session.SessionID, err)
		}
		_, err = tx.ExecContext(ctx, stmt,
			i,
			session.SessionID,
			session.Title,
			session.Subtitle,
			string(speakers),
			session.Lang,
			session.Room,
			session.Track,
			session.RecordingOptOut,
			session.Day,
			session.StartTime,
			session.Duration,
			session.DateUTC,
			session.RelStartTime,
			session.Date,
			session.Abstract,
			session.URL,
			session.Source,
			strings.Join(changeFlags(session), ","),
		)
		if err != nil {
			return fmt.Errorf("insert session %s: %w", session.SessionID, err)
		}
	}

	const upsert = `
INSERT INTO snapshot (id, saved_at) VALUES (1, ?)
ON CONFLICT(id) DO UPDATE SET saved_at=excluded.saved_at;
`
	if _, err := tx.ExecContext(ctx, upsert, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("record snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// Load returns the stored snapshot in the order it was saved.
func (s *SQLite) Load(ctx context.Context) ([]schedule.Session, error) {
	var savedAt string
	err := s.db.QueryRowContext(ctx, `SELECT saved_at FROM snapshot WHERE id = 1`).Scan(&savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load snapshot: %w", fs.ErrNotExist)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT session_id, title, subtitle, speakers, language, room, track, recording_optout,
  day, start_time, duration, date_utc, rel_start_time, date, abstract, url, source, changed
FROM sessions ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []schedule.Session
	for rows.Next() {
		var session schedule.Session
		var speakers, changed string
		if err := rows.Scan(
			&session.SessionID,
			&session.Title,
			&session.Subtitle,
			&speakers,
			&session.Lang,
			&session.Room,
			&session.Track,
			&session.RecordingOptOut,
			&session.Day,
			&session.StartTime,
			&session.Duration,
			&session.DateUTC,
			&session.RelStartTime,
			&session.Date,
			&session.Abstract,
			&session.URL,
			&session.Source,
			&changed,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if err := json.Unmarshal([]byte(speakers), &session.Speakers); err != nil {
			return nil, fmt.Errorf("decode speakers of %s: %w", session.SessionID, err)
		}
		if changed != "" {
			setChangeFlags(&session, strings.Split(changed, ","))
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
