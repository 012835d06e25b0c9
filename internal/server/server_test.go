package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chris-regnier/diaryweb/internal/auth"
	"github.com/chris-regnier/diaryweb/internal/entry"
	"github.com/chris-regnier/diaryweb/internal/media"
	"github.com/chris-regnier/diaryweb/internal/storage"
	"github.com/chris-regnier/diaryweb/internal/storage/markdown"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

type testEnv struct {
	srv   *Server
	store storage.Storage
	blobs *media.LocalStore
}

func newTestEnv(t *testing.T, mutate func(*Options)) *testEnv {
	t.Helper()
	store, err := markdown.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	blobs, err := media.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	opts := Options{
		Storage: store,
		Media:   blobs,
		Logger:  zap.NewNop().Sugar(),
		Config: Config{
			Addr:       "127.0.0.1:0",
			Metrics:    true,
			Thumbnails: true,
		},
	}
	if mutate != nil {
		mutate(&opts)
	}
	srv, err := New(opts)
	require.NoError(t, err)
	return &testEnv{srv: srv, store: store, blobs: blobs}
}

func newAuthService(t *testing.T) *auth.Service {
	t.Helper()
	db, err := gorm.Open(
		gormsqlite.Dialector{DriverName: "sqlite", DSN: filepath.Join(t.TempDir(), "users.db")},
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true},
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	repo, err := auth.NewGormUserRepository(db)
	require.NoError(t, err)
	return auth.NewService(repo, "test-secret", time.Hour)
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.srv.Handler().ServeHTTP(rec, req)
	return rec
}

type part struct {
	field, filename string
	data            []byte
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, files ...part) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func formRequest(method, target string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func decodeEntry(t *testing.T, rec *httptest.ResponseRecorder) entry.Entry {
	t.Helper()
	var e entry.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e), rec.Body.String())
	return e
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func pngData(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(1, 1, color.RGBA{G: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func (e *testEnv) blobExists(t *testing.T, name string) bool {
	t.Helper()
	rc, _, err := e.blobs.Open(context.Background(), name)
	if err != nil {
		return false
	}
	rc.Close()
	return true
}

func TestCreateEntryWithImage(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, multipartRequest(t, http.MethodPost, "/api/diary",
		map[string]string{"topic": " Trip ", "content": "Went to the lake"},
		part{"image", "lake.png", pngData(t, 800, 400)}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	e := decodeEntry(t, rec)
	assert.Len(t, e.ID, 8)
	assert.Equal(t, "Trip", e.Topic)
	assert.Equal(t, "Went to the lake", e.Content)
	assert.True(t, strings.HasSuffix(e.ImagePath, "_lake.png"))
	assert.Empty(t, e.VideoPath)
	assert.Empty(t, e.AudioPath)
	assert.True(t, env.blobExists(t, e.ImagePath))
	assert.True(t, env.blobExists(t, media.ThumbnailName(e.ImagePath)))

	stored, err := env.store.Get(e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ImagePath, stored.ImagePath)
}

func TestCreateEntryAllKinds(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, multipartRequest(t, http.MethodPost, "/api/diary",
		map[string]string{"content": "everything"},
		part{"image", "a.png", pngData(t, 4, 4)},
		part{"video", "b.mp4", []byte("video-bytes")},
		part{"audio", "c.mp3", []byte("audio-bytes")}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	e := decodeEntry(t, rec)
	assert.NotEmpty(t, e.ImagePath)
	assert.NotEmpty(t, e.VideoPath)
	assert.NotEmpty(t, e.AudioPath)
	assert.Empty(t, e.Topic)
}

func TestCreateEntryEmptyFilePartIsAbsent(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, multipartRequest(t, http.MethodPost, "/api/diary",
		map[string]string{"content": "no media"},
		part{"image", "empty.png", nil}))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, decodeEntry(t, rec).ImagePath)
}

func TestCreateEntryURLEncoded(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, formRequest(http.MethodPost, "/api/diary", url.Values{"content": {"plain form"}}))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "plain form", decodeEntry(t, rec).Content)
}

func TestCreateEntryRequiresContent(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, formRequest(http.MethodPost, "/api/diary", url.Values{"content": {"   "}, "topic": {"x"}}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, http.StatusBadRequest, body.Status)
	assert.Contains(t, body.Error, "content")

	entries, err := env.store.List(storage.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCreateEntryTooLarge(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.Config.MaxUploadBytes = 1024 })
	rec := env.do(t, multipartRequest(t, http.MethodPost, "/api/diary",
		map[string]string{"content": "big"},
		part{"video", "big.mp4", bytes.Repeat([]byte("x"), 4096)}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestListEntries(t *testing.T) {
	env := newTestEnv(t, nil)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, content := range []string{"oldest", "middle about cats", "newest"} {
		e, err := entry.New("", content)
		require.NoError(t, err)
		e.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		e.UpdatedAt = e.CreatedAt
		require.NoError(t, env.store.Create(e))
	}

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/diary", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []entry.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 3)
	assert.Equal(t, "newest", entries[0].Content)
	assert.Equal(t, "oldest", entries[2].Content)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/diary?q=CATS", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "middle about cats", entries[0].Content)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/diary?limit=1&offset=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "middle about cats", entries[0].Content)
}

func TestListEntriesEmptyIsArray(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/diary", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}

func TestListEntriesBadParams(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, q := range []string{"limit=-1", "offset=abc", "date=03-01-2026"} {
		rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/diary?"+q, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestGetEntry(t *testing.T) {
	env := newTestEnv(t, nil)
	e, err := entry.New("t", "body")
	require.NoError(t, err)
	require.NoError(t, env.store.Create(e))

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/diary/"+e.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, e.ID, decodeEntry(t, rec).ID)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/diary/zzzzzzzz", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, decodeError(t, rec).Status)
}

func createWithImage(t *testing.T, env *testEnv) entry.Entry {
	t.Helper()
	rec := env.do(t, multipartRequest(t, http.MethodPost, "/api/diary",
		map[string]string{"topic": "Original", "content": "first draft"},
		part{"image", "one.png", pngData(t, 10, 10)},
		part{"audio", "voice.mp3", []byte("audio")}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeEntry(t, rec)
}

func TestUpdateWithoutMediaKeepsAttachments(t *testing.T) {
	env := newTestEnv(t, nil)
	created := createWithImage(t, env)

	rec := env.do(t, multipartRequest(t, http.MethodPut, "/api/diary/"+created.ID,
		map[string]string{"content": "second draft"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	updated := decodeEntry(t, rec)
	assert.Equal(t, "second draft", updated.Content)
	assert.Equal(t, "Original", updated.Topic)
	assert.Equal(t, created.ImagePath, updated.ImagePath)
	assert.Equal(t, created.AudioPath, updated.AudioPath)
	assert.True(t, env.blobExists(t, created.ImagePath))
}

func TestUpdateReplacesOnlySuppliedKind(t *testing.T) {
	env := newTestEnv(t, nil)
	created := createWithImage(t, env)

	rec := env.do(t, multipartRequest(t, http.MethodPut, "/api/diary/"+created.ID,
		map[string]string{"content": "with new picture", "topic": ""},
		part{"image", "two.png", pngData(t, 10, 10)}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	updated := decodeEntry(t, rec)
	assert.Empty(t, updated.Topic)
	assert.NotEqual(t, created.ImagePath, updated.ImagePath)
	assert.True(t, strings.HasSuffix(updated.ImagePath, "_two.png"))
	assert.Equal(t, created.AudioPath, updated.AudioPath)

	assert.False(t, env.blobExists(t, created.ImagePath), "replaced blob should be removed")
	assert.False(t, env.blobExists(t, media.ThumbnailName(created.ImagePath)))
	assert.True(t, env.blobExists(t, updated.ImagePath))
}

func TestUpdateErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	created := createWithImage(t, env)

	rec := env.do(t, formRequest(http.MethodPut, "/api/diary/"+created.ID, url.Values{"content": {""}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, formRequest(http.MethodPut, "/api/diary/zzzzzzzz", url.Values{"content": {"x"}}))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	stored, err := env.store.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "first draft", stored.Content)
}

func TestDeleteEntry(t *testing.T) {
	env := newTestEnv(t, nil)
	created := createWithImage(t, env)

	rec := env.do(t, httptest.NewRequest(http.MethodDelete, "/api/diary/"+created.ID, nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	_, err := env.store.Get(created.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.False(t, env.blobExists(t, created.ImagePath))
	assert.False(t, env.blobExists(t, created.AudioPath))

	rec = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/diary/"+created.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServeMedia(t *testing.T) {
	env := newTestEnv(t, nil)
	created := createWithImage(t, env)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/diary/media/"+created.ImagePath, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, pngData(t, 10, 10), rec.Body.Bytes())

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/diary/media/"+created.ImagePath+"/thumbnail", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/diary/media/"+created.AudioPath+"/thumbnail", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/diary/media/missing.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/diary/media/.hidden", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeMediaRange(t *testing.T) {
	env := newTestEnv(t, nil)
	name := media.NewName("clip.mp4")
	require.NoError(t, env.blobs.Save(context.Background(), name, strings.NewReader("0123456789"), 10))

	req := httptest.NewRequest(http.MethodGet, "/api/diary/media/"+name, nil)
	req.Header.Set("Range", "bytes=2-4")
	rec := env.do(t, req)
	require.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "234", rec.Body.String())
	assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
}

func TestAuthProtectsDiaryRoutes(t *testing.T) {
	svc := newAuthService(t)
	env := newTestEnv(t, func(o *Options) { o.Auth = svc })

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/api/diary", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, http.StatusUnauthorized, decodeError(t, rec).Status)

	req := httptest.NewRequest(http.MethodGet, "/api/diary", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, env.do(t, req).Code)

	reg := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"username":"alice","email":"alice@example.com","password":"password1"}`))
	reg.Header.Set("Content-Type", "application/json")
	rec = env.do(t, reg)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)
	assert.NotContains(t, rec.Body.String(), "password")

	dup := httptest.NewRequest(http.MethodPost, "/api/auth/register",
		strings.NewReader(`{"username":"alice","email":"other@example.com","password":"password1"}`))
	assert.Equal(t, http.StatusConflict, env.do(t, dup).Code)

	bad := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"alice","password":"nope"}`))
	assert.Equal(t, http.StatusUnauthorized, env.do(t, bad).Code)

	login := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"alice","password":"password1"}`))
	rec = env.do(t, login)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var tok auth.Token
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tok))
	require.NotEmpty(t, tok.Token)

	create := formRequest(http.MethodPost, "/api/diary", url.Values{"content": {"secret diary"}})
	create.Header.Set("Authorization", "Bearer "+tok.Token)
	rec = env.do(t, create)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Media stays reachable without a token.
	name := media.NewName("pub.png")
	require.NoError(t, env.blobs.Save(context.Background(), name, bytes.NewReader(pngData(t, 2, 2)), -1))
	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/api/diary/media/"+name, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthRoutesAbsentWhenDisabled(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	env.do(t, httptest.NewRequest(http.MethodGet, "/api/diary", nil))
	rec = env.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "diaryweb_http_requests_total")
	assert.Contains(t, body, `route="/api/diary`)
}

func TestMetricsDisabled(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.Config.Metrics = false })
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(o *Options) {
		o.Config.RateLimitPerMinute = 1
		o.Config.RateLimitBurst = 2
	})
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "203.0.113.7:4000"
		codes = append(codes, env.do(t, req).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	other := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	other.RemoteAddr = "203.0.113.8:4000"
	assert.Equal(t, http.StatusOK, env.do(t, other).Code)
}

func TestRateLimiterPrune(t *testing.T) {
	l := newIPRateLimiter(60, 1)
	l.allow("a")
	l.prune(time.Now().Add(time.Second))
	assert.Empty(t, l.visitors)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, func(o *Options) { o.Config.CORSOrigins = []string{"http://localhost:3000"} })

	req := httptest.NewRequest(http.MethodOptions, "/api/diary", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rec := env.do(t, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/diary", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	rec = env.do(t, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	env := newTestEnv(t, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.srv.Serve(ctx, ln) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + ln.Addr().String() + "/healthz")
		return err == nil
	}, 2*time.Second, 20*time.Millisecond)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		storage.ErrNotFound:        http.StatusNotFound,
		storage.ErrValidation:      http.StatusBadRequest,
		storage.ErrConflict:        http.StatusConflict,
		storage.ErrStorage:         http.StatusInternalServerError,
		media.ErrNotFound:          http.StatusNotFound,
		media.ErrInvalidName:       http.StatusBadRequest,
		auth.ErrUserExists:         http.StatusConflict,
		auth.ErrInvalidToken:       http.StatusUnauthorized,
		auth.ErrInvalidCredentials: http.StatusUnauthorized,
		badRequest("x"):            http.StatusBadRequest,
	}
	for err, want := range cases {
		assert.Equal(t, want, statusFor(err), err.Error())
	}
}
