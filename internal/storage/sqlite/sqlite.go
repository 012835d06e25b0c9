package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chris-regnier/diaryweb/internal/entry"
	"github.com/chris-regnier/diaryweb/internal/storage"
	_ "github.com/tursodatabase/go-libsql"
)

const entryColumns = "id, topic, content, image_path, video_path, audio_path, created_at, updated_at"

// Store implements storage.Storage using SQLite via Turso/libSQL.
type Store struct {
	db *sql.DB
}

// New creates a new SQLite storage backend.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: creating data directory: %v", storage.ErrStorage, err)
	}

	dbPath := filepath.Join(dataDir, "diaryweb.db")
	db, err := sql.Open("libsql", "file:"+dbPath)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", storage.ErrStorage, err)
	}

	// Enable WAL mode
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: enabling WAL mode: %v", storage.ErrStorage, err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS entries (
			id         TEXT PRIMARY KEY,
			topic      TEXT NOT NULL DEFAULT '',
			content    TEXT NOT NULL CHECK(length(trim(content)) > 0),
			image_path TEXT NOT NULL DEFAULT '',
			video_path TEXT NOT NULL DEFAULT '',
			audio_path TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			CHECK(created_at <= updated_at)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_created_at ON entries(created_at DESC)`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("%w: creating schema: %v", storage.ErrStorage, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (entry.Entry, error) {
	var e entry.Entry
	var createdStr, updatedStr string
	if err := row.Scan(&e.ID, &e.Topic, &e.Content, &e.ImagePath, &e.VideoPath, &e.AudioPath, &createdStr, &updatedStr); err != nil {
		return entry.Entry{}, err
	}

	var err error
	e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdStr)
	if err != nil {
		return entry.Entry{}, fmt.Errorf("%w: parsing created_at: %v", storage.ErrStorage, err)
	}
	e.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedStr)
	if err != nil {
		return entry.Entry{}, fmt.Errorf("%w: parsing updated_at: %v", storage.ErrStorage, err)
	}
	return e, nil
}

// Create persists a new diary entry.
func (s *Store) Create(e entry.Entry) error {
	if err := entry.ValidateContent(e.Content); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrValidation, err)
	}

	_, err := s.db.Exec(
		"INSERT INTO entries ("+entryColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		e.ID,
		strings.TrimSpace(e.Topic),
		e.Content,
		e.ImagePath,
		e.VideoPath,
		e.AudioPath,
		e.CreatedAt.UTC().Format(storage.TimeLayout),
		e.UpdatedAt.UTC().Format(storage.TimeLayout),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return fmt.Errorf("%w: entry %s already exists", storage.ErrConflict, e.ID)
		}
		return fmt.Errorf("%w: inserting entry: %v", storage.ErrStorage, err)
	}
	return nil
}

// Get retrieves an entry by ID.
func (s *Store) Get(id string) (entry.Entry, error) {
	row := s.db.QueryRow("SELECT "+entryColumns+" FROM entries WHERE id = ?", id)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entry.Entry{}, storage.ErrNotFound
		}
		return entry.Entry{}, fmt.Errorf("%w: querying entry: %v", storage.ErrStorage, err)
	}
	return e, nil
}

// List returns entries matching the given options.
func (s *Store) List(opts storage.ListOptions) ([]entry.Entry, error) {
	query := "SELECT " + entryColumns + " FROM entries"
	var where []string
	var args []interface{}

	// Dates compare in local time, matching the markdown backend.
	if opts.Date != nil {
		where = append(where, "date(created_at, 'localtime') = ?")
		args = append(args, opts.Date.Format("2006-01-02"))
	} else {
		if opts.StartDate != nil {
			where = append(where, "date(created_at, 'localtime') >= ?")
			args = append(args, opts.StartDate.Format("2006-01-02"))
		}
		if opts.EndDate != nil {
			where = append(where, "date(created_at, 'localtime') <= ?")
			args = append(args, opts.EndDate.Format("2006-01-02"))
		}
	}
	if opts.Query != "" {
		where = append(where, "(instr(lower(topic), ?) > 0 OR instr(lower(content), ?) > 0)")
		q := strings.ToLower(opts.Query)
		args = append(args, q, q)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	query += " ORDER BY created_at DESC, id DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	} else if opts.Offset > 0 {
		query += " LIMIT -1"
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", opts.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: listing entries: %v", storage.ErrStorage, err)
	}
	defer rows.Close()

	entries := []entry.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning row: %v", storage.ErrStorage, err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Update modifies an existing entry. Nil fields in params are left as stored.
func (s *Store) Update(id string, params storage.UpdateParams) (entry.Entry, error) {
	if err := entry.ValidateContent(params.Content); err != nil {
		return entry.Entry{}, fmt.Errorf("%w: %v", storage.ErrValidation, err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return entry.Entry{}, fmt.Errorf("%w: beginning transaction: %v", storage.ErrStorage, err)
	}
	defer tx.Rollback()

	current, err := scanEntry(tx.QueryRow("SELECT "+entryColumns+" FROM entries WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entry.Entry{}, storage.ErrNotFound
		}
		return entry.Entry{}, fmt.Errorf("%w: checking entry: %v", storage.ErrStorage, err)
	}

	updated := params.Apply(current, entry.Now())

	if _, err := tx.Exec(
		"UPDATE entries SET topic = ?, content = ?, image_path = ?, video_path = ?, audio_path = ?, updated_at = ? WHERE id = ?",
		updated.Topic, updated.Content, updated.ImagePath, updated.VideoPath, updated.AudioPath,
		updated.UpdatedAt.Format(storage.TimeLayout), id,
	); err != nil {
		return entry.Entry{}, fmt.Errorf("%w: updating entry: %v", storage.ErrStorage, err)
	}

	if err := tx.Commit(); err != nil {
		return entry.Entry{}, fmt.Errorf("%w: committing: %v", storage.ErrStorage, err)
	}

	return s.Get(id)
}

// Delete removes an entry permanently.
func (s *Store) Delete(id string) error {
	result, err := s.db.Exec("DELETE FROM entries WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("%w: deleting entry: %v", storage.ErrStorage, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: checking rows affected: %v", storage.ErrStorage, err)
	}
	if rows == 0 {
		return storage.ErrNotFound
	}

	return nil
}
