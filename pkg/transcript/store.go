// Package transcript keeps a SQLite record of what each session printed
// and what the player typed.
package transcript

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrClosed is returned by a Store after Close.
var ErrClosed = errors.New("transcript: store closed")

// Line kinds.
const (
	KindOutput  = "out"
	KindInput   = "in"
	KindTimeout = "timeout"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id      TEXT PRIMARY KEY,
	game    TEXT NOT NULL,
	started INTEGER NOT NULL,
	ended   INTEGER,
	turns   INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS lines (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	session TEXT NOT NULL,
	kind    TEXT NOT NULL,
	text    TEXT NOT NULL,
	at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS lines_session ON lines(session, id);
`

// Line is one recorded piece of a session.
type Line struct {
	Kind string
	Text string
	At   time.Time
}

// Session summarises a recorded session.
type Session struct {
	ID      string
	Game    string
	Started time.Time
	Ended   time.Time // zero while running
	Turns   int
}

// Store wraps the transcript database.
type Store struct {
	db      *sql.DB
	mu      sync.Mutex
	path    string
	timeout time.Duration
}

// Open opens or creates a transcript database, sets WAL mode and the busy
// timeout, and creates the tables.
func Open(path string, timeout time.Duration) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("transcript: opening sqlite %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("transcript: setting WAL mode: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", timeout.Milliseconds())); err != nil {
		db.Close()
		return nil, fmt.Errorf("transcript: setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("transcript: creating tables: %w", err)
	}
	return &Store{db: db, path: path, timeout: timeout}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Path returns the filesystem path of the database.
func (s *Store) Path() string { return s.path }

// Checkpoint flushes the WAL into the main database file.
func (s *Store) Checkpoint() error {
	return s.exec("PRAGMA wal_checkpoint(TRUNCATE)")
}

func (s *Store) exec(query string, args ...any) error {
	_, err := s.execResult(query, args...)
	return err
}

func (s *Store) execResult(query string, args ...any) (sql.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrClosed
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.db.ExecContext(ctx, query, args...)
}

// StartSession records a new session. Starting a known id again resets
// its end time.
func (s *Store) StartSession(id, game string, at time.Time) error {
	err := s.exec(`INSERT INTO sessions (id, game, started) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET ended = NULL`, id, game, at.UnixMilli())
	if err != nil {
		return fmt.Errorf("transcript: start %s: %w", id, err)
	}
	return nil
}

// EndSession stores the end time and turn count of a session.
func (s *Store) EndSession(id string, turns int, at time.Time) error {
	err := s.exec(`UPDATE sessions SET ended = ?, turns = ? WHERE id = ?`, at.UnixMilli(), turns, id)
	if err != nil {
		return fmt.Errorf("transcript: end %s: %w", id, err)
	}
	return nil
}

// Append adds a line to a session.
func (s *Store) Append(session, kind, text string, at time.Time) error {
	err := s.exec(`INSERT INTO lines (session, kind, text, at) VALUES (?, ?, ?, ?)`,
		session, kind, text, at.UnixMilli())
	if err != nil {
		return fmt.Errorf("transcript: append %s: %w", session, err)
	}
	return nil
}

// Lines returns the lines of a session in the order they were added.
func (s *Store) Lines(session string) ([]Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrClosed
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, text, at FROM lines WHERE session = ? ORDER BY id`, session)
	if err != nil {
		return nil, fmt.Errorf("transcript: lines %s: %w", session, err)
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var l Line
		var at int64
		if err := rows.Scan(&l.Kind, &l.Text, &at); err != nil {
			return nil, fmt.Errorf("transcript: lines %s: %w", session, err)
		}
		l.At = time.UnixMilli(at)
		out = append(out, l)
	}
	return out, rows.Err()
}

// Sessions lists the recorded sessions of game, newest first. An empty
// game lists every session.
func (s *Store) Sessions(game string) ([]Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, ErrClosed
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT id, game, started, ended, turns FROM sessions
		WHERE ? = '' OR game = ? ORDER BY started DESC, id`, game, game)
	if err != nil {
		return nil, fmt.Errorf("transcript: sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var ss Session
		var started int64
		var ended sql.NullInt64
		if err := rows.Scan(&ss.ID, &ss.Game, &started, &ended, &ss.Turns); err != nil {
			return nil, fmt.Errorf("transcript: sessions: %w", err)
		}
		ss.Started = time.UnixMilli(started)
		if ended.Valid {
			ss.Ended = time.UnixMilli(ended.Int64)
		}
		out = append(out, ss)
	}
	return out, rows.Err()
}

// Purge deletes ended sessions, and their lines, that ended before
// cutoff. It returns the number of sessions removed.
func (s *Store) Purge(cutoff time.Time) (int64, error) {
	ms := cutoff.UnixMilli()
	if err := s.exec(`DELETE FROM lines WHERE session IN
		(SELECT id FROM sessions WHERE ended IS NOT NULL AND ended < ?)`, ms); err != nil {
		return 0, fmt.Errorf("transcript: purge lines: %w", err)
	}
	res, err := s.execResult(`DELETE FROM sessions WHERE ended IS NOT NULL AND ended < ?`, ms)
	if err != nil {
		return 0, fmt.Errorf("transcript: purge sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
