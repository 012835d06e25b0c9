package media

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewName(t *testing.T) {
	name := NewName("My Holiday Photo.JPG")
	require.Len(t, name, 36+1+len("My_Holiday_Photo.JPG"))
	assert.Equal(t, "My_Holiday_Photo.JPG", OriginalName(name))
	assert.NoError(t, ValidateName(name))

	assert.NotEqual(t, NewName("a.png"), NewName("a.png"))
	assert.True(t, strings.HasSuffix(NewName("../../etc/passwd"), "_passwd"))
	assert.True(t, strings.HasSuffix(NewName(`C:\Users\me\clip.mp4`), "_clip.mp4"))
	assert.True(t, strings.HasSuffix(NewName(""), "_file"))
}

func TestOriginalNameWithoutPrefix(t *testing.T) {
	assert.Equal(t, "plain.png", OriginalName("plain.png"))
}

func TestValidateName(t *testing.T) {
	for _, bad := range []string{"", ".", "..", "../x", "a/b", `a\b`, ".hidden"} {
		assert.ErrorIs(t, ValidateName(bad), ErrInvalidName, bad)
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", ContentType("x.png", nil))
	assert.Equal(t, "audio/mpeg", ContentType("x.MP3", nil))
	assert.Equal(t, "image/png", ContentType("noext", pngBytes(t, 2, 2)))
	assert.Equal(t, "application/octet-stream", ContentType("noext", nil))
}

func TestThumbnailName(t *testing.T) {
	assert.Equal(t, "thumb_abc_photo.jpg", ThumbnailName("abc_photo.png"))
}

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	name := NewName("note.txt")
	require.NoError(t, s.Save(ctx, name, strings.NewReader("hello"), 5))

	rc, info, err := s.Open(ctx, name)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
	assert.Equal(t, int64(5), info.Size)
	assert.True(t, strings.HasPrefix(info.ContentType, "text/plain"))

	require.NoError(t, s.Delete(ctx, name))
	_, _, err = s.Open(ctx, name)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, name), ErrNotFound)
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	_, _, err = s.Open(context.Background(), "../secret")
	assert.ErrorIs(t, err, ErrInvalidName)
	assert.ErrorIs(t, s.Save(context.Background(), "a/b", strings.NewReader("x"), 1), ErrInvalidName)
}

func TestThumbnail(t *testing.T) {
	thumb, err := Thumbnail(bytes.NewReader(pngBytes(t, 640, 480)))
	require.NoError(t, err)
	img, format, err := image.Decode(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, ThumbnailWidth, img.Bounds().Dx())
	assert.Equal(t, 240, img.Bounds().Dy())

	small, err := Thumbnail(bytes.NewReader(pngBytes(t, 100, 50)))
	require.NoError(t, err)
	img, _, err = image.Decode(bytes.NewReader(small))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())

	_, err = Thumbnail(strings.NewReader("not an image"))
	assert.Error(t, err)
}

// fakeS3 serves path-style object requests for a single bucket.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    []*http.Request
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := strings.TrimPrefix(r.URL.Path, "/diary-media/")
	switch r.Method {
	case http.MethodPut:
		_, _ = io.Copy(io.Discard, r.Body)
		f.puts = append(f.puts, r)
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		data, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newFakeS3Store(t *testing.T) (*S3Store, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: map[string][]byte{"media/existing.png": []byte("png-bytes")}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := NewS3Store(context.Background(), S3Config{
		Endpoint:  srv.URL,
		Bucket:    "diary-media",
		Region:    "us-east-1",
		AccessKey: "test",
		SecretKey: "test",
		Prefix:    "media",
	})
	require.NoError(t, err)
	return s, fake
}

func TestS3StoreOpen(t *testing.T) {
	s, _ := newFakeS3Store(t)
	ctx := context.Background()

	rc, info, err := s.Open(ctx, "existing.png")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, "image/png", info.ContentType)

	_, _, err = s.Open(ctx, "missing.png")
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = s.Open(ctx, "../escape")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestS3StoreSave(t *testing.T) {
	s, fake := newFakeS3Store(t)
	require.NoError(t, s.Save(context.Background(), "abc_clip.mp4", bytes.NewReader([]byte("video")), 5))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.puts, 1)
	assert.Equal(t, "/diary-media/media/abc_clip.mp4", fake.puts[0].URL.Path)
	assert.Equal(t, "video/mp4", fake.puts[0].Header.Get("Content-Type"))
}

func TestNewS3StoreRequiresBucket(t *testing.T) {
	_, err := NewS3Store(context.Background(), S3Config{})
	assert.Error(t, err)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
