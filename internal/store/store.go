// Package store is an optional cache of completed alignment results,
// keyed by surah*1000+ayah, so a batch rerun over the same corpus can
// skip clips that were already aligned. It is not required for
// correctness: a CLI invocation with no cache path configured simply
// never calls into this package.
package store

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"qalign/internal/result"
)

//go:embed schema.sql
var schemaSQL string

// Store wraps a SQLite-backed cache of result.Document values.
type Store struct {
	db *sql.DB
}

// Open connects to (and, if needed, creates) the SQLite database at
// path, creating its parent directory if necessary.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create directory %q: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping %q: %w", path, err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// key is the surah*1000+ayah cache key spec.md §6 uses for both the
// reference-text lookup and this cache.
func key(surah, ayah uint16) int {
	return int(surah)*1000 + int(ayah)
}

// Get returns a previously stored result for (surah, ayah), if any.
func (s *Store) Get(surah, ayah uint16) (*result.Document, bool, error) {
	row := s.db.QueryRow(`SELECT payload FROM segmentation_results WHERE key = ?`, key(surah, ayah))

	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("store: get %d/%d: %w", surah, ayah, err)
	}

	var doc result.Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, false, fmt.Errorf("store: decode %d/%d: %w", surah, ayah, err)
	}
	return &doc, true, nil
}

// Put stores doc under (surah, ayah), replacing any existing entry.
func (s *Store) Put(surah, ayah uint16, doc result.Document) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("store: encode %d/%d: %w", surah, ayah, err)
	}

	_, err = s.db.Exec(
		`INSERT INTO segmentation_results (key, surah, ayah, payload) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, created_at = CURRENT_TIMESTAMP`,
		key(surah, ayah), surah, ayah, payload,
	)
	if err != nil {
		return fmt.Errorf("store: put %d/%d: %w", surah, ayah, err)
	}
	return nil
}
