// Package db persists vocabulary, snippets and the dictation journal in
// SQLite.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"dictate/internal/dictation"
	"dictate/internal/dictionary"
	"dictate/internal/snippet"
)

const schema = `
CREATE TABLE IF NOT EXISTS words (
	spoken     TEXT PRIMARY KEY,
	corrected  TEXT NOT NULL,
	provenance TEXT NOT NULL,
	lastUsed   REAL,
	createdAt  REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS snippets (
	phrase    TEXT PRIMARY KEY,
	expansion TEXT NOT NULL,
	createdAt REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS dictations (
	id          TEXT PRIMARY KEY,
	raw         TEXT NOT NULL,
	corrected   TEXT NOT NULL,
	command     TEXT,
	final       TEXT NOT NULL,
	editSkipped INTEGER NOT NULL DEFAULT 0,
	audioMs     INTEGER NOT NULL,
	elapsedMs   INTEGER NOT NULL,
	createdAt   REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_dictations_created ON dictations(createdAt);
`

// Store is the SQLite repository for the dictionary, the snippet store and
// the controller journal.
type Store struct {
	db *sql.DB
}

var (
	_ dictionary.Repository = (*Store)(nil)
	_ snippet.Repository    = (*Store)(nil)
	_ dictation.Journal     = (*Store)(nil)
)

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create database dir: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// one connection keeps an in-memory database alive and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) LoadWords() ([]dictionary.Entry, error) {
	rows, err := s.db.Query(`
		SELECT spoken, corrected, provenance, lastUsed, createdAt
		FROM words
		ORDER BY spoken ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query words: %w", err)
	}
	defer rows.Close()

	var out []dictionary.Entry
	for rows.Next() {
		var e dictionary.Entry
		var prov string
		var lastUsed sql.NullFloat64
		var createdAt float64
		if err := rows.Scan(&e.Spoken, &e.Corrected, &prov, &lastUsed, &createdAt); err != nil {
			return nil, fmt.Errorf("scan word: %w", err)
		}
		e.Provenance = dictionary.Provenance(prov)
		e.CreatedAt = timeFromUnix(createdAt)
		if lastUsed.Valid {
			e.LastUsed = timeFromUnix(lastUsed.Float64)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) SaveWord(e dictionary.Entry) error {
	var lastUsed interface{}
	if !e.LastUsed.IsZero() {
		lastUsed = unixFromTime(e.LastUsed)
	}
	_, err := s.db.Exec(`
		INSERT INTO words (spoken, corrected, provenance, lastUsed, createdAt)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(spoken) DO UPDATE SET
			corrected = excluded.corrected,
			provenance = excluded.provenance,
			lastUsed = excluded.lastUsed
	`, e.Spoken, e.Corrected, string(e.Provenance), lastUsed, unixFromTime(createdOrNow(e.CreatedAt)))
	if err != nil {
		return fmt.Errorf("save word %q: %w", e.Spoken, err)
	}
	return nil
}

func (s *Store) DeleteWord(spoken string) error {
	return s.deleteOne(`DELETE FROM words WHERE spoken = ?`, spoken, dictionary.ErrNotFound)
}

func (s *Store) LoadSnippets() ([]snippet.Entry, error) {
	rows, err := s.db.Query(`
		SELECT phrase, expansion, createdAt
		FROM snippets
		ORDER BY phrase ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query snippets: %w", err)
	}
	defer rows.Close()

	var out []snippet.Entry
	for rows.Next() {
		var e snippet.Entry
		var createdAt float64
		if err := rows.Scan(&e.Trigger, &e.Expansion, &createdAt); err != nil {
			return nil, fmt.Errorf("scan snippet: %w", err)
		}
		e.CreatedAt = timeFromUnix(createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) SaveSnippet(e snippet.Entry) error {
	_, err := s.db.Exec(`
		INSERT INTO snippets (phrase, expansion, createdAt)
		VALUES (?, ?, ?)
		ON CONFLICT(phrase) DO UPDATE SET expansion = excluded.expansion
	`, e.Trigger, e.Expansion, unixFromTime(createdOrNow(e.CreatedAt)))
	if err != nil {
		return fmt.Errorf("save snippet %q: %w", e.Trigger, err)
	}
	return nil
}

func (s *Store) DeleteSnippet(trigger string) error {
	return s.deleteOne(`DELETE FROM snippets WHERE phrase = ?`, trigger, snippet.ErrNotFound)
}

func (s *Store) deleteOne(query, key string, notFound error) error {
	res, err := s.db.Exec(query, key)
	if err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", notFound, key)
	}
	return nil
}

// RecordDictation appends a finished dictation to the journal.
func (s *Store) RecordDictation(res dictation.Result) error {
	var cmd interface{}
	if res.IsCommand() {
		cmd = res.Command.String()
	}
	_, err := s.db.Exec(`
		INSERT INTO dictations (id, raw, corrected, command, final, editSkipped, audioMs, elapsedMs, createdAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, res.ID, res.Raw, res.Corrected, cmd, res.Final, res.EditSkipped,
		res.AudioDuration.Milliseconds(), res.Elapsed.Milliseconds(), unixFromTime(createdOrNow(res.CreatedAt)))
	if err != nil {
		return fmt.Errorf("record dictation %s: %w", res.ID, err)
	}
	return nil
}

// Dictation is one journal row.
type Dictation struct {
	ID            string
	Raw           string
	Corrected     string
	Command       string
	Final         string
	EditSkipped   bool
	AudioDuration time.Duration
	Elapsed       time.Duration
	CreatedAt     time.Time
}

// RecentDictations returns up to limit journal rows, newest first.
func (s *Store) RecentDictations(limit int) ([]Dictation, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be positive")
	}
	rows, err := s.db.Query(`
		SELECT id, raw, corrected, command, final, editSkipped, audioMs, elapsedMs, createdAt
		FROM dictations
		ORDER BY createdAt DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query dictations: %w", err)
	}
	defer rows.Close()

	var out []Dictation
	for rows.Next() {
		var d Dictation
		var cmd sql.NullString
		var audioMs, elapsedMs int64
		var createdAt float64
		if err := rows.Scan(&d.ID, &d.Raw, &d.Corrected, &cmd, &d.Final, &d.EditSkipped,
			&audioMs, &elapsedMs, &createdAt); err != nil {
			return nil, fmt.Errorf("scan dictation: %w", err)
		}
		if cmd.Valid {
			d.Command = cmd.String
		}
		d.AudioDuration = time.Duration(audioMs) * time.Millisecond
		d.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		d.CreatedAt = timeFromUnix(createdAt)
		out = append(out, d)
	}
	return out, rows.Err()
}

func createdOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

func unixFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
