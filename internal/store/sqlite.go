// Package store persists waveform records.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/smazurov/wavering/internal/publish"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store is closed")

const schema = `
CREATE TABLE IF NOT EXISTS waveforms (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	email      TEXT NULL,
	image_data TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS waveforms_created_at ON waveforms (created_at DESC, id DESC);
`

// timeLayout is fixed width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// row mirrors the waveforms table.
type row struct {
	ID        int64          `db:"id"`
	Email     sql.NullString `db:"email"`
	ImageData string         `db:"image_data"`
	CreatedAt string         `db:"created_at"`
}

func (r row) record() (publish.WaveformRecord, error) {
	created, err := time.Parse(timeLayout, r.CreatedAt)
	if err != nil {
		return publish.WaveformRecord{}, fmt.Errorf("record %d: bad created_at %q: %w", r.ID, r.CreatedAt, err)
	}
	rec := publish.WaveformRecord{ID: r.ID, ImageData: r.ImageData, CreatedAt: created}
	if r.Email.Valid {
		email := r.Email.String
		rec.Email = &email
	}
	return rec, nil
}

// SQLite stores records in a sqlite database file.
type SQLite struct {
	db *sqlx.DB
}

// OpenSQLite opens (creating if needed) the database at path and ensures the
// waveforms table exists.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("cannot create database directory %q: %w", dir, err)
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite serialises writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		if isCantOpen(err) {
			return nil, fmt.Errorf("cannot create database at %q: %w", path, err)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Insert adds a record. A nil email is stored as NULL.
func (s *SQLite) Insert(ctx context.Context, email *string, imageData string, createdAt time.Time) (publish.WaveformRecord, error) {
	var nullable sql.NullString
	if email != nil {
		nullable = sql.NullString{String: *email, Valid: true}
	}
	created := createdAt.UTC().Format(timeLayout)

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO waveforms (email, image_data, created_at) VALUES (?, ?, ?)",
		nullable, imageData, created)
	if err != nil {
		return publish.WaveformRecord{}, fmt.Errorf("insert waveform: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return publish.WaveformRecord{}, fmt.Errorf("insert waveform: %w", err)
	}

	return row{ID: id, Email: nullable, ImageData: imageData, CreatedAt: created}.record()
}

// List returns all records, newest first.
func (s *SQLite) List(ctx context.Context) ([]publish.WaveformRecord, error) {
	var rows []row
	err := s.db.SelectContext(ctx, &rows,
		"SELECT id, email, image_data, created_at FROM waveforms ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("list waveforms: %w", err)
	}

	out := make([]publish.WaveformRecord, 0, len(rows))
	for _, r := range rows {
		rec, err := r.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Count returns the number of stored records.
func (s *SQLite) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM waveforms"); err != nil {
		return 0, fmt.Errorf("count waveforms: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func isCantOpen(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CANTOPEN
	}
	return false
}
