// Package history keeps the list of recently opened media in a SQLite
// database, together with the last playback position of each file.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"hydra/internal/config"
	"hydra/internal/media"
)

// ErrNotFound is returned by Get for paths that were never recorded.
var ErrNotFound = errors.New("not in history")

const schema = `
CREATE TABLE IF NOT EXISTS history (
	path        TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	position_ms INTEGER NOT NULL DEFAULT 0,
	play_count  INTEGER NOT NULL DEFAULT 0,
	opened_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS history_opened_at ON history (opened_at);
`

// Store is a history database. Entries beyond limit, oldest first, are
// dropped on every Record; a limit of 0 keeps everything.
type Store struct {
	db    *sql.DB
	limit int
}

// Open opens or creates the database at path.
func Open(path string, limit int) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}
	return &Store{db: db, limit: limit}, nil
}

// OpenDefault opens the database at the configured XDG data location.
func OpenDefault(limit int) (*Store, error) {
	path, err := config.HistoryPath()
	if err != nil {
		return nil, err
	}
	return Open(path, limit)
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record adds an opened file, or bumps its play count and open time if it
// is already known. The saved position is kept.
func (s *Store) Record(e media.HistoryEntry) error {
	if e.OpenedAt.IsZero() {
		e.OpenedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO history (path, title, duration_ms, play_count, opened_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT (path) DO UPDATE SET
			title       = excluded.title,
			duration_ms = excluded.duration_ms,
			play_count  = play_count + 1,
			opened_at   = excluded.opened_at`,
		e.Path, e.Title, e.Duration.Milliseconds(), e.OpenedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("recording %s: %w", e.Path, err)
	}
	return s.prune()
}

func (s *Store) prune() error {
	if s.limit <= 0 {
		return nil
	}
	_, err := s.db.Exec(`
		DELETE FROM history WHERE path NOT IN (
			SELECT path FROM history ORDER BY opened_at DESC, rowid DESC LIMIT ?
		)`, s.limit)
	if err != nil {
		return fmt.Errorf("pruning history: %w", err)
	}
	return nil
}

// UpdatePosition stores where playback of path was left. Unknown paths are
// ignored.
func (s *Store) UpdatePosition(path string, pos time.Duration) error {
	if _, err := s.db.Exec(`UPDATE history SET position_ms = ? WHERE path = ?`, pos.Milliseconds(), path); err != nil {
		return fmt.Errorf("saving position for %s: %w", path, err)
	}
	return nil
}

// List returns up to limit entries, most recently opened first.
// A limit of 0 returns everything.
func (s *Store) List(limit int) ([]media.HistoryEntry, error) {
	query := `SELECT path, title, duration_ms, position_ms, play_count, opened_at
		FROM history ORDER BY opened_at DESC, rowid DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	defer rows.Close()

	var entries []media.HistoryEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	return entries, nil
}

// Get returns the entry for path.
func (s *Store) Get(path string) (media.HistoryEntry, error) {
	row := s.db.QueryRow(`SELECT path, title, duration_ms, position_ms, play_count, opened_at
		FROM history WHERE path = ?`, path)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return media.HistoryEntry{}, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return e, err
}

// Remove deletes the entry for path.
func (s *Store) Remove(path string) error {
	if _, err := s.db.Exec(`DELETE FROM history WHERE path = ?`, path); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// Clear deletes every entry.
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM history`); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(sc scanner) (media.HistoryEntry, error) {
	var e media.HistoryEntry
	var durationMs, positionMs, openedAt int64
	if err := sc.Scan(&e.Path, &e.Title, &durationMs, &positionMs, &e.PlayCount, &openedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, err
		}
		return e, fmt.Errorf("scanning history row: %w", err)
	}
	e.Duration = time.Duration(durationMs) * time.Millisecond
	e.Position = time.Duration(positionMs) * time.Millisecond
	e.OpenedAt = time.Unix(0, openedAt)
	return e, nil
}

// FormatForDisplay creates display strings for fzf selection from history entries.
func FormatForDisplay(entries []media.HistoryEntry) []string {
	var items []string
	for _, e := range entries {
		display := e.Title
		if display == "" {
			display = filepath.Base(e.Path)
		}
		if e.Position > 0 && e.Duration > 0 {
			pct := float64(e.Position) / float64(e.Duration) * 100
			display += fmt.Sprintf(" [%.0f%%]", pct)
		}
		display += "  " + filepath.Dir(e.Path)
		items = append(items, display)
	}
	return items
}
