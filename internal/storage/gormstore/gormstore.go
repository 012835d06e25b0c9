// Package gormstore implements storage.Storage on top of gorm, so entries can
// live in postgres (production) or any other gorm dialect.
package gormstore

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chris-regnier/diaryweb/internal/entry"
	"github.com/chris-regnier/diaryweb/internal/storage"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// entryRecord is the row layout of the diary_entries table.
type entryRecord struct {
	ID        string    `gorm:"primaryKey;size:8"`
	Topic     string    `gorm:"not null;default:''"`
	Content   string    `gorm:"not null"`
	ImagePath string    `gorm:"not null;default:''"`
	VideoPath string    `gorm:"not null;default:''"`
	AudioPath string    `gorm:"not null;default:''"`
	CreatedAt time.Time `gorm:"not null;index:idx_diary_entries_created_at,sort:desc"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (entryRecord) TableName() string { return "diary_entries" }

func fromEntry(e entry.Entry) entryRecord {
	return entryRecord{
		ID:        e.ID,
		Topic:     strings.TrimSpace(e.Topic),
		Content:   e.Content,
		ImagePath: e.ImagePath,
		VideoPath: e.VideoPath,
		AudioPath: e.AudioPath,
		CreatedAt: e.CreatedAt.UTC(),
		UpdatedAt: e.UpdatedAt.UTC(),
	}
}

func (r entryRecord) toEntry() entry.Entry {
	return entry.Entry{
		ID:        r.ID,
		Topic:     r.Topic,
		Content:   r.Content,
		ImagePath: r.ImagePath,
		VideoPath: r.VideoPath,
		AudioPath: r.AudioPath,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

// Store implements storage.Storage using gorm.
type Store struct {
	db *gorm.DB
}

// OpenPostgres connects to postgres with the given DSN and migrates the schema.
func OpenPostgres(dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres backend requires database.dsn", storage.ErrStorage)
	}
	return New(postgres.Open(dsn))
}

// New opens a store on any gorm dialector and migrates the schema.
func New(dialector gorm.Dialector) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        entry.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", storage.ErrStorage, err)
	}
	return NewFromDB(db)
}

// NewFromDB wraps an existing gorm handle and migrates the schema.
func NewFromDB(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&entryRecord{}); err != nil {
		return nil, fmt.Errorf("%w: migrating schema: %v", storage.ErrStorage, err)
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying handle so other tables can share the connection.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Create persists a new diary entry.
func (s *Store) Create(e entry.Entry) error {
	if err := entry.ValidateContent(e.Content); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrValidation, err)
	}

	rec := fromEntry(e)
	if err := s.db.Create(&rec).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("%w: entry %s already exists", storage.ErrConflict, e.ID)
		}
		return fmt.Errorf("%w: inserting entry: %v", storage.ErrStorage, err)
	}
	return nil
}

// Get retrieves an entry by ID.
func (s *Store) Get(id string) (entry.Entry, error) {
	var rec entryRecord
	if err := s.db.Where("id = ?", id).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entry.Entry{}, storage.ErrNotFound
		}
		return entry.Entry{}, fmt.Errorf("%w: querying entry: %v", storage.ErrStorage, err)
	}
	return rec.toEntry(), nil
}

// List returns entries matching the given options.
func (s *Store) List(opts storage.ListOptions) ([]entry.Entry, error) {
	q := s.db.Model(&entryRecord{})

	// Day bounds are computed in local time and compared as instants.
	if opts.Date != nil {
		start := localDay(*opts.Date)
		q = q.Where("created_at >= ? AND created_at < ?", start.UTC(), start.AddDate(0, 0, 1).UTC())
	} else {
		if opts.StartDate != nil {
			q = q.Where("created_at >= ?", localDay(*opts.StartDate).UTC())
		}
		if opts.EndDate != nil {
			q = q.Where("created_at < ?", localDay(*opts.EndDate).AddDate(0, 0, 1).UTC())
		}
	}
	if opts.Query != "" {
		like := "%" + escapeLike(strings.ToLower(opts.Query)) + "%"
		q = q.Where("(LOWER(topic) LIKE ? ESCAPE '\\' OR LOWER(content) LIKE ? ESCAPE '\\')", like, like)
	}

	q = q.Order("created_at DESC, id DESC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	var recs []entryRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("%w: listing entries: %v", storage.ErrStorage, err)
	}

	entries := make([]entry.Entry, len(recs))
	for i, r := range recs {
		entries[i] = r.toEntry()
	}
	return entries, nil
}

// Update modifies an existing entry inside a transaction. Nil fields in
// params are left as stored.
func (s *Store) Update(id string, params storage.UpdateParams) (entry.Entry, error) {
	if err := entry.ValidateContent(params.Content); err != nil {
		return entry.Entry{}, fmt.Errorf("%w: %v", storage.ErrValidation, err)
	}

	var updated entry.Entry
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var rec entryRecord
		if err := tx.Where("id = ?", id).Take(&rec).Error; err != nil {
			return err
		}

		updated = params.Apply(rec.toEntry(), entry.Now())
		next := fromEntry(updated)
		return tx.Model(&entryRecord{}).Where("id = ?", id).Updates(map[string]any{
			"topic":      next.Topic,
			"content":    next.Content,
			"image_path": next.ImagePath,
			"video_path": next.VideoPath,
			"audio_path": next.AudioPath,
			"updated_at": next.UpdatedAt,
		}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entry.Entry{}, storage.ErrNotFound
		}
		return entry.Entry{}, fmt.Errorf("%w: updating entry: %v", storage.ErrStorage, err)
	}
	return updated, nil
}

// Delete removes an entry permanently.
func (s *Store) Delete(id string) error {
	result := s.db.Where("id = ?", id).Delete(&entryRecord{})
	if result.Error != nil {
		return fmt.Errorf("%w: deleting entry: %v", storage.ErrStorage, result.Error)
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func localDay(t time.Time) time.Time {
	y, m, d := t.Local().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// isDuplicateKey covers drivers whose errors gorm cannot translate
// (modernc's sqlite errors carry no exported code).
func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "UNIQUE constraint failed")
}
