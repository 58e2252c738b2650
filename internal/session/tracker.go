// Package session records work sessions per task: when work started and
// ended, plus timestamped notes along the way. Summaries feed the CLI
// status output and handoff documents.
package session

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Session is one stretch of work on a task.
type Session struct {
	ID        int64
	TaskID    string
	StartedAt time.Time
	EndedAt   time.Time // zero while active
}

// Active reports whether the session has not ended.
func (s Session) Active() bool { return s.EndedAt.IsZero() }

// Duration is the session length; active sessions measure to now.
func (s Session) Duration() time.Duration {
	end := s.EndedAt
	if s.Active() {
		end = time.Now().UTC()
	}
	return end.Sub(s.StartedAt)
}

// Note is a timestamped remark captured during a session.
type Note struct {
	SessionID int64
	Timestamp time.Time
	Text      string
}

// Summary aggregates all sessions for one task.
type Summary struct {
	TaskID        string
	TotalSessions int
	TotalDuration time.Duration
	Last          *Session
}

// Tracker provides access to the session database.
type Tracker struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database at the given path.
func Open(dbPath string) (*Tracker, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create sessions dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sessions database: %w", err)
	}

	// WAL mode for better concurrent access.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	t := &Tracker{db: db}
	if err := t.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return t, nil
}

// Close closes the database connection.
func (t *Tracker) Close() error {
	return t.db.Close()
}

func (t *Tracker) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id     TEXT NOT NULL,
		started_at  DATETIME NOT NULL,
		ended_at    DATETIME
	);

	CREATE TABLE IF NOT EXISTS session_notes (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id  INTEGER NOT NULL REFERENCES sessions(id),
		timestamp   DATETIME NOT NULL,
		note        TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_task ON sessions(task_id);
	`
	_, err := t.db.Exec(schema)
	return err
}

// Start begins a session for a task. Any session still active for the
// same task is ended first, so at most one session per task is open.
func (t *Tracker) Start(taskID string) (*Session, error) {
	now := time.Now().UTC()
	if _, err := t.db.Exec(
		`UPDATE sessions SET ended_at = ? WHERE task_id = ? AND ended_at IS NULL`,
		now, taskID,
	); err != nil {
		return nil, fmt.Errorf("end stale sessions: %w", err)
	}

	res, err := t.db.Exec(
		`INSERT INTO sessions (task_id, started_at) VALUES (?, ?)`,
		taskID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	id, _ := res.LastInsertId()

	s := &Session{ID: id, TaskID: taskID, StartedAt: now}
	if err := t.addNote(id, now, "Session started"); err != nil {
		return nil, err
	}
	return s, nil
}

// End closes the active session for a task, recording a final note if
// given. Returns the ended session, or nil if none was active.
func (t *Tracker) End(taskID, note string) (*Session, error) {
	s, err := t.active(taskID)
	if err != nil || s == nil {
		return nil, err
	}

	now := time.Now().UTC()
	if note != "" {
		if err := t.addNote(s.ID, now, note); err != nil {
			return nil, err
		}
	}
	if _, err := t.db.Exec(
		`UPDATE sessions SET ended_at = ? WHERE id = ?`, now, s.ID,
	); err != nil {
		return nil, fmt.Errorf("end session: %w", err)
	}
	s.EndedAt = now
	return s, nil
}

// AddNote attaches a note to the active session for a task. Reports
// whether an active session existed.
func (t *Tracker) AddNote(taskID, note string) (bool, error) {
	s, err := t.active(taskID)
	if err != nil || s == nil {
		return false, err
	}
	if err := t.addNote(s.ID, time.Now().UTC(), note); err != nil {
		return false, err
	}
	return true, nil
}

func (t *Tracker) addNote(sessionID int64, ts time.Time, note string) error {
	if _, err := t.db.Exec(
		`INSERT INTO session_notes (session_id, timestamp, note) VALUES (?, ?, ?)`,
		sessionID, ts, note,
	); err != nil {
		return fmt.Errorf("add note: %w", err)
	}
	return nil
}

// active returns the open session for a task, or nil.
func (t *Tracker) active(taskID string) (*Session, error) {
	row := t.db.QueryRow(
		`SELECT id, task_id, started_at FROM sessions
		 WHERE task_id = ? AND ended_at IS NULL
		 ORDER BY id DESC LIMIT 1`, taskID,
	)
	var s Session
	err := row.Scan(&s.ID, &s.TaskID, &s.StartedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query active session: %w", err)
	}
	return &s, nil
}

// ActiveSessions returns every session still open, across all tasks.
func (t *Tracker) ActiveSessions() ([]Session, error) {
	rows, err := t.db.Query(
		`SELECT id, task_id, started_at FROM sessions
		 WHERE ended_at IS NULL ORDER BY started_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("query active sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.TaskID, &s.StartedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Sessions returns all sessions for a task, oldest first.
func (t *Tracker) Sessions(taskID string) ([]Session, error) {
	rows, err := t.db.Query(
		`SELECT id, task_id, started_at, ended_at FROM sessions
		 WHERE task_id = ? ORDER BY started_at`, taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		var ended sql.NullTime
		if err := rows.Scan(&s.ID, &s.TaskID, &s.StartedAt, &ended); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if ended.Valid {
			s.EndedAt = ended.Time
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Notes returns all notes for a session, oldest first.
func (t *Tracker) Notes(sessionID int64) ([]Note, error) {
	rows, err := t.db.Query(
		`SELECT session_id, timestamp, note FROM session_notes
		 WHERE session_id = ? ORDER BY timestamp`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.SessionID, &n.Timestamp, &n.Text); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// Summarize rolls up every session for a task.
func (t *Tracker) Summarize(taskID string) (*Summary, error) {
	sessions, err := t.Sessions(taskID)
	if err != nil {
		return nil, err
	}

	sum := &Summary{TaskID: taskID, TotalSessions: len(sessions)}
	for i := range sessions {
		sum.TotalDuration += sessions[i].Duration()
	}
	if len(sessions) > 0 {
		sum.Last = &sessions[len(sessions)-1]
	}
	return sum, nil
}
