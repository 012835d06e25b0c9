package cmd

import (
	"context"
	"errors"

	"github.com/chris-regnier/diaryweb/internal/auth"
	"github.com/chris-regnier/diaryweb/internal/config"
	"github.com/chris-regnier/diaryweb/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the diary HTTP API",
	Long: `Serve diary entries and their attachments as a JSON REST API under
/api/diary. Entries are kept in the configured storage backend (markdown,
sqlite or postgres) and attachments in the configured media backend
(local directory or an S3-compatible bucket).

With auth.enabled, /api/auth/register and /api/auth/login are served and
the diary routes require a bearer token. Accounts live in postgres
(database.dsn).`,
	Example: `  diaryweb serve
  diaryweb serve --addr :9000 --storage sqlite
  DIARYWEB_MEDIA_BACKEND=s3 DIARYWEB_MEDIA_S3_BUCKET=diary diaryweb serve`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveAddr != "" {
			appConfig.Server.Addr = serveAddr
		}
		srv, closeFn, err := buildServer(cmd.Context(), appConfig, logger)
		if err != nil {
			return err
		}
		defer closeFn()
		return srv.ListenAndServe(cmd.Context())
	},
}

// buildServer opens every backend cfg names and wires them into a server.
// closeFn releases the backends.
func buildServer(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (srv *server.Server, closeFn func(), err error) {
	store, err := openStorage(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			log.Warnw("closing storage", "error", err)
		}
	}
	defer func() {
		if err != nil {
			cleanup()
		}
	}()

	blobs, err := openMedia(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	var authSvc *auth.Service
	if cfg.Auth.Enabled {
		if cfg.Auth.Secret == "" {
			return nil, nil, userError(errors.New("auth.enabled requires auth.secret"))
		}
		db, err := userDB(cfg, store)
		if err != nil {
			return nil, nil, err
		}
		users, err := auth.NewGormUserRepository(db)
		if err != nil {
			return nil, nil, err
		}
		authSvc = auth.NewService(users, cfg.Auth.Secret, cfg.Auth.TokenTTL)
	}

	srv, err = server.New(server.Options{
		Storage: store,
		Media:   blobs,
		Auth:    authSvc,
		Logger:  log,
		Config:  serverConfig(cfg),
	})
	if err != nil {
		return nil, nil, err
	}
	log.Debugw("backends ready", "storage", cfg.Storage, "media", blobs.Name(), "data_dir", cfg.DataDir)
	return srv, cleanup, nil
}

func serverConfig(cfg *config.Config) server.Config {
	return server.Config{
		Addr:               cfg.Server.Addr,
		CORSOrigins:        cfg.Server.CORSOrigins,
		MaxUploadBytes:     cfg.Server.MaxUploadMB << 20,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		RateLimitBurst:     cfg.Server.RateLimitBurst,
		Metrics:            cfg.Server.Metrics,
		Thumbnails:         cfg.Media.Thumbnails,
		ShutdownTimeout:    cfg.Server.ShutdownTimeout,
	}
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
	rootCmd.AddCommand(serveCmd)
}
