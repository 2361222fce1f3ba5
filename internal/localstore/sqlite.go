package localstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/tripmate-app/tripmate/internal/models"
)

// Ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)

// schema sets up the two tables backing the local store: a flat KV table for
// the trip collections and settings, and a photo record table whose id column
// doubles as the descending sort key.
const schema = `
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS photos (
    id TEXT PRIMARY KEY,
    url TEXT NOT NULL,
    date TEXT NOT NULL,
    uploaded INTEGER NOT NULL DEFAULT 0,
    author TEXT NOT NULL DEFAULT ''
);
`

// SQLiteStore implements Store on a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a SQLiteStore at the given path, creating parent directories
// and the schema as needed.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Get returns the value stored under key.
func (s *SQLiteStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key.
func (s *SQLiteStore) Set(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set %q: %w", key, err)
	}
	return nil
}

// Delete removes key from the KV table.
func (s *SQLiteStore) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// Clear wipes all KV entries and photo records.
func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec("DELETE FROM kv"); err != nil {
		return fmt.Errorf("failed to clear kv: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM photos"); err != nil {
		return fmt.Errorf("failed to clear photos: %w", err)
	}
	return nil
}

// AddPhoto inserts or replaces a photo record.
func (s *SQLiteStore) AddPhoto(photo models.Photo) error {
	_, err := s.db.Exec(
		`INSERT INTO photos (id, url, date, uploaded, author) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET url = excluded.url, date = excluded.date,
		     uploaded = excluded.uploaded, author = excluded.author`,
		photo.ID, photo.URL, photo.Date, photo.Uploaded, photo.Author,
	)
	if err != nil {
		return fmt.Errorf("failed to add photo: %w", err)
	}
	return nil
}

// Photos returns all photo records, newest id first.
func (s *SQLiteStore) Photos() ([]models.Photo, error) {
	rows, err := s.db.Query("SELECT id, url, date, uploaded, author FROM photos ORDER BY id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query photos: %w", err)
	}
	defer rows.Close()

	var photos []models.Photo
	for rows.Next() {
		var p models.Photo
		if err := rows.Scan(&p.ID, &p.URL, &p.Date, &p.Uploaded, &p.Author); err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate photos: %w", err)
	}
	return photos, nil
}

// DeletePhoto removes a photo record by id.
func (s *SQLiteStore) DeletePhoto(id string) error {
	if _, err := s.db.Exec("DELETE FROM photos WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	return nil
}
