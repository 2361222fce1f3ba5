// Package tripserver implements the shared trip backend: a SQLite-backed
// store for rosters, collection records and photo blobs, plus the HTTP API
// that clients sync against. Every mutation bumps the owning collection's
// revision so polling clients can detect change cheaply.
package tripserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

var (
	// ErrBlobNotFound is returned when a requested blob does not exist.
	ErrBlobNotFound = errors.New("blob not found")
	// ErrUserExists is returned when adding a roster name that is already present.
	ErrUserExists = errors.New("user already in trip")
)

// Storage persists one trip's shared state in SQLite.
type Storage struct {
	db *sql.DB
}

// NewStorage opens (or creates) the trip database at dbPath.
func NewStorage(dbPath string) (*Storage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Storage{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

func (s *Storage) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS trip_users (
		pos INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS records (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		data BLOB NOT NULL,
		PRIMARY KEY (collection, id)
	);

	CREATE TABLE IF NOT EXISTS revisions (
		collection TEXT PRIMARY KEY,
		revision INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS blobs (
		name TEXT PRIMARY KEY,
		data BLOB NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *Storage) Close() error {
	return s.db.Close()
}

func bumpRevision(tx *sql.Tx, collection string) error {
	_, err := tx.Exec(`
		INSERT INTO revisions (collection, revision) VALUES (?, 1)
		ON CONFLICT(collection) DO UPDATE SET revision = revision + 1`,
		collection,
	)
	return err
}

// Revision returns the current revision counter for a collection. A
// collection that was never written has revision 0.
func (s *Storage) Revision(ctx context.Context, collection string) (int64, error) {
	var rev int64
	err := s.db.QueryRowContext(ctx,
		"SELECT revision FROM revisions WHERE collection = ?", collection,
	).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read revision: %w", err)
	}
	return rev, nil
}

// Users returns the trip roster in join order together with its revision.
func (s *Storage) Users(ctx context.Context) ([]string, int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM trip_users ORDER BY pos")
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, 0, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, name)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	rev, err := s.Revision(ctx, "users")
	if err != nil {
		return nil, 0, err
	}
	return users, rev, nil
}

// AddUser appends a name to the roster. Adding a name that is already
// present returns ErrUserExists and leaves the revision untouched.
func (s *Storage) AddUser(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("INSERT OR IGNORE INTO trip_users (name) VALUES (?)", name)
	if err != nil {
		return fmt.Errorf("failed to add user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserExists
	}

	if err := bumpRevision(tx, "users"); err != nil {
		return fmt.Errorf("failed to bump revision: %w", err)
	}
	return tx.Commit()
}

// RemoveUser deletes a name from the roster. Removing an absent name is a
// no-op and does not bump the revision.
func (s *Storage) RemoveUser(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM trip_users WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to remove user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return tx.Commit()
	}

	if err := bumpRevision(tx, "users"); err != nil {
		return fmt.Errorf("failed to bump revision: %w", err)
	}
	return tx.Commit()
}

// Records returns every record in a collection plus the collection revision.
// Records come back in id order, which for time-derived ids is insertion
// order.
func (s *Storage) Records(ctx context.Context, collection string) ([]json.RawMessage, int64, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT data FROM records WHERE collection = ? ORDER BY id", collection)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, 0, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, json.RawMessage(data))
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	rev, err := s.Revision(ctx, collection)
	if err != nil {
		return nil, 0, err
	}
	return records, rev, nil
}

// SetRecord inserts or replaces a record and bumps the collection revision.
func (s *Storage) SetRecord(ctx context.Context, collection, id string, data []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO records (collection, id, data) VALUES (?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET data = excluded.data`,
		collection, id, data,
	)
	if err != nil {
		return fmt.Errorf("failed to set record: %w", err)
	}

	if err := bumpRevision(tx, collection); err != nil {
		return fmt.Errorf("failed to bump revision: %w", err)
	}
	return tx.Commit()
}

// DeleteRecord removes a record. Deleting an absent record is a no-op.
func (s *Storage) DeleteRecord(ctx context.Context, collection, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM records WHERE collection = ? AND id = ?", collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return tx.Commit()
	}

	if err := bumpRevision(tx, collection); err != nil {
		return fmt.Errorf("failed to bump revision: %w", err)
	}
	return tx.Commit()
}

// PutBlob stores binary data under name, replacing any previous content.
func (s *Storage) PutBlob(ctx context.Context, name string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blobs (name, data) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data`,
		name, data,
	)
	if err != nil {
		return fmt.Errorf("failed to store blob: %w", err)
	}
	return nil
}

// GetBlob returns the blob stored under name, or ErrBlobNotFound.
func (s *Storage) GetBlob(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM blobs WHERE name = ?", name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}
	return data, nil
}

// DeleteBlob removes the blob stored under name, or returns ErrBlobNotFound.
func (s *Storage) DeleteBlob(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM blobs WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBlobNotFound
	}
	return nil
}
