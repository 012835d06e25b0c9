package cmd

import (
	"context"
	"fmt"

	"github.com/chris-regnier/diaryweb/internal/config"
	"github.com/chris-regnier/diaryweb/internal/media"
	"github.com/chris-regnier/diaryweb/internal/storage"
	"github.com/chris-regnier/diaryweb/internal/storage/gormstore"
	"github.com/chris-regnier/diaryweb/internal/storage/markdown"
	"github.com/chris-regnier/diaryweb/internal/storage/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// openStorage opens the entry store named by cfg.Storage.
func openStorage(cfg *config.Config) (storage.Storage, error) {
	switch cfg.Storage {
	case "markdown":
		s, err := markdown.New(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("initializing markdown storage: %w", err)
		}
		return s, nil
	case "sqlite":
		s, err := sqlite.New(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("initializing sqlite storage: %w", err)
		}
		return s, nil
	case "postgres":
		s, err := gormstore.OpenPostgres(cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("initializing postgres storage: %w", err)
		}
		return s, nil
	default:
		return nil, userErrorf("unknown storage backend: %s", cfg.Storage)
	}
}

// openMedia opens the attachment store named by cfg.Media.Backend.
func openMedia(ctx context.Context, cfg *config.Config) (media.Store, error) {
	switch cfg.Media.Backend {
	case "", "local":
		s, err := media.NewLocalStore(cfg.MediaDir())
		if err != nil {
			return nil, fmt.Errorf("initializing local media store: %w", err)
		}
		return s, nil
	case "s3":
		s3cfg := cfg.Media.S3
		s, err := media.NewS3Store(ctx, media.S3Config{
			Endpoint:  s3cfg.Endpoint,
			Bucket:    s3cfg.Bucket,
			Region:    s3cfg.Region,
			AccessKey: s3cfg.AccessKey,
			SecretKey: s3cfg.SecretKey,
			Prefix:    s3cfg.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing s3 media store: %w", err)
		}
		return s, nil
	default:
		return nil, userErrorf("unknown media backend: %s", cfg.Media.Backend)
	}
}

// userDB returns the database holding accounts. The postgres entry store
// shares its connection; other backends need database.dsn on its own.
func userDB(cfg *config.Config, entries storage.Storage) (*gorm.DB, error) {
	if gs, ok := entries.(*gormstore.Store); ok {
		return gs.DB(), nil
	}
	if cfg.Database.DSN == "" {
		return nil, userErrorf("auth.enabled requires database.dsn for the user store")
	}
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening user database: %w", err)
	}
	return db, nil
}
