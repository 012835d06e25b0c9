// Package server exposes diary entries and their attachments over a JSON
// REST API rooted at /api/diary.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/chris-regnier/diaryweb/internal/auth"
	"github.com/chris-regnier/diaryweb/internal/media"
	"github.com/chris-regnier/diaryweb/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

// Config holds tunables for the HTTP layer.
type Config struct {
	Addr               string
	CORSOrigins        []string
	MaxUploadBytes     int64
	RateLimitPerMinute int // 0 disables rate limiting
	RateLimitBurst     int
	Metrics            bool
	Thumbnails         bool
	ShutdownTimeout    time.Duration
}

// Options wires the server's collaborators. Auth may be nil, which leaves
// the diary routes open and the auth routes unregistered.
type Options struct {
	Storage storage.Storage
	Media   media.Store
	Auth    *auth.Service
	Logger  *zap.SugaredLogger
	Config  Config
}

// Server is the diary HTTP API.
type Server struct {
	store   storage.Storage
	blobs   media.Store
	auth    *auth.Service
	log     *zap.SugaredLogger
	cfg     Config
	metrics *metrics
	limiter *ipRateLimiter
	router  chi.Router
}

const defaultMaxUpload = 64 << 20

// New builds the router.
func New(opts Options) (*Server, error) {
	if opts.Storage == nil {
		return nil, errors.New("server: storage is required")
	}
	if opts.Media == nil {
		return nil, errors.New("server: media store is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}
	if opts.Config.MaxUploadBytes <= 0 {
		opts.Config.MaxUploadBytes = defaultMaxUpload
	}
	if opts.Config.ShutdownTimeout <= 0 {
		opts.Config.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		store: opts.Storage,
		blobs: opts.Media,
		auth:  opts.Auth,
		log:   opts.Logger,
		cfg:   opts.Config,
	}
	if s.cfg.Metrics {
		s.metrics = newMetrics()
	}
	if s.cfg.RateLimitPerMinute > 0 {
		s.limiter = newIPRateLimiter(s.cfg.RateLimitPerMinute, s.cfg.RateLimitBurst)
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	if s.metrics != nil {
		r.Use(s.metrics.instrument)
	}
	r.Use(s.corsHandler())
	r.Use(middleware.Compress(5))
	if s.limiter != nil {
		r.Use(s.rateLimit)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.handler())
	}

	if s.auth != nil {
		r.Post("/api/auth/register", s.handleRegister)
		r.Post("/api/auth/login", s.handleLogin)
	}

	r.Route("/api/diary", func(r chi.Router) {
		// Media stays public so plain <img src> style fetches work.
		r.Get("/media/{name}", s.handleMedia)
		r.Get("/media/{name}/thumbnail", s.handleThumbnail)

		r.Group(func(r chi.Router) {
			if s.auth != nil {
				r.Use(s.requireAuth)
			}
			r.Get("/", s.handleList)
			r.Post("/", s.handleCreate)
			r.Get("/{id}", s.handleGet)
			r.Put("/{id}", s.handleUpdate)
			r.Delete("/{id}", s.handleDelete)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorBody{Error: "not found", Status: http.StatusNotFound})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorBody{Error: "method not allowed", Status: http.StatusMethodNotAllowed})
	})
	return r
}

func (s *Server) corsHandler() func(http.Handler) http.Handler {
	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}).Handler
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on cfg.Addr until ctx is cancelled, then shuts down
// gracefully within cfg.ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.limiter != nil {
		go s.limiter.sweep(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("listening", "addr", ln.Addr().String(), "storage", fmt.Sprintf("%T", s.store), "media", s.blobs.Name(), "auth", s.auth != nil)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Infow("shutting down", "timeout", s.cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
