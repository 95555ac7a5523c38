// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package geocache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	indexDir = "index"
	dbFile   = "manifest.db"
)

// Store is the SQLite manifest of cached responses. It answers "what is
// in this cache" without opening every file: one row per cached response
// with its source URL, endpoint, size, and fetch time.
type Store struct {
	db *sql.DB
}

// Record is one manifest row.
type Record struct {
	Key       string
	URL       string
	Endpoint  string
	Path      string
	Size      int64
	FetchedAt time.Time
}

// OpenStore opens or creates the manifest database at
// cacheDir/index/manifest.db, creating the schema if needed.
func OpenStore(cacheDir string) (*Store, error) {
	dir := filepath.Join(cacheDir, indexDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS responses (
			key        TEXT PRIMARY KEY,
			url        TEXT NOT NULL,
			endpoint   TEXT NOT NULL,
			path       TEXT NOT NULL,
			size       INTEGER NOT NULL,
			fetched_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_responses_endpoint ON responses(endpoint);
	`)
	return err
}

// Record upserts a manifest row. Re-fetching a URL replaces its row.
func (s *Store) Record(r Record) error {
	_, err := s.db.Exec(`
		INSERT INTO responses (key, url, endpoint, path, size, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			url = excluded.url,
			endpoint = excluded.endpoint,
			path = excluded.path,
			size = excluded.size,
			fetched_at = excluded.fetched_at
	`, r.Key, r.URL, r.Endpoint, r.Path, r.Size, r.FetchedAt)
	if err != nil {
		return fmt.Errorf("recording response: %w", err)
	}
	return nil
}

// Forget drops the manifest row for a cache key. Unknown keys are not an
// error; the manifest may post-date the file.
func (s *Store) Forget(key string) error {
	_, err := s.db.Exec(`DELETE FROM responses WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("forgetting response: %w", err)
	}
	return nil
}

// List returns all manifest rows, newest first.
func (s *Store) List() ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT key, url, endpoint, path, size, fetched_at
		FROM responses
		ORDER BY fetched_at DESC, key
	`)
	if err != nil {
		return nil, fmt.Errorf("listing responses: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Key, &r.URL, &r.Endpoint, &r.Path, &r.Size, &r.FetchedAt); err != nil {
			return nil, fmt.Errorf("scanning response row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
