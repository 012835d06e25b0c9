package cmd

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/chris-regnier/diaryweb/internal/auth"
	"github.com/chris-regnier/diaryweb/internal/client"
	"github.com/chris-regnier/diaryweb/internal/config"
	"github.com/chris-regnier/diaryweb/internal/server"
	"go.uber.org/zap"
)

// setupTestEnv starts a markdown-backed server and points the command
// globals at it.
func setupTestEnv(t *testing.T) *client.Client {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Storage: "markdown",
		DataDir: dir,
		Media:   config.MediaConfig{Backend: "local", Thumbnails: true},
		Auth:    config.AuthConfig{TokenFile: filepath.Join(dir, "token")},
	}
	srv, closeFn, err := buildServer(context.Background(), cfg, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("building server: %v", err)
	}
	return startTestEnv(t, cfg, srv, closeFn)
}

func startTestEnv(t *testing.T, cfg *config.Config, srv *server.Server, closeFn func()) *client.Client {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		closeFn()
	})

	appConfig = cfg
	appConfig.Client.ServerURL = ts.URL
	logger = zap.NewNop().Sugar()
	jsonOutput = false
	api = nil
	t.Cleanup(func() { api = nil })

	c, err := apiClient()
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}
	return c
}

// memUsers is an in-memory auth.UserRepository.
type memUsers struct {
	mu    sync.Mutex
	users map[string]*auth.User
}

func (m *memUsers) Create(_ context.Context, u *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.users == nil {
		m.users = map[string]*auth.User{}
	}
	if _, ok := m.users[u.Username]; ok {
		return auth.ErrUserExists
	}
	cp := *u
	m.users[u.Username] = &cp
	return nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[username]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, auth.ErrUserNotFound
}

func (m *memUsers) GetByID(_ context.Context, id string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

// setupAuthEnv is setupTestEnv with token auth required on the diary routes.
func setupAuthEnv(t *testing.T) *client.Client {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Storage: "markdown",
		DataDir: dir,
		Media:   config.MediaConfig{Backend: "local"},
		Auth:    config.AuthConfig{TokenFile: filepath.Join(dir, "token")},
	}
	store, err := openStorage(cfg)
	if err != nil {
		t.Fatal(err)
	}
	blobs, err := openMedia(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	srv, err := server.New(server.Options{
		Storage: store,
		Media:   blobs,
		Auth:    auth.NewService(&memUsers{}, "test-secret", 0),
		Logger:  zap.NewNop().Sugar(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return startTestEnv(t, cfg, srv, func() { store.Close() })
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
