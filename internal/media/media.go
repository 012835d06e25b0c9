// Package media stores entry attachments as named blobs, on local disk or in
// an S3-compatible bucket.
package media

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("media not found")
	ErrInvalidName = errors.New("invalid media name")
)

const fallbackContentType = "application/octet-stream"

// Info describes a stored blob.
type Info struct {
	Size        int64
	ContentType string
	ModTime     time.Time
}

// Store abstracts where attachment blobs live.
type Store interface {
	// Save writes r under name. size may be -1 when unknown.
	Save(ctx context.Context, name string, r io.Reader, size int64) error
	// Open returns the blob content; the caller must close it.
	Open(ctx context.Context, name string) (io.ReadCloser, Info, error)
	Delete(ctx context.Context, name string) error
	// Name returns a short backend identifier.
	Name() string
}

// NewName builds the stored name for an upload: a random UUID, an
// underscore, then the sanitized base of the original filename.
func NewName(original string) string {
	return uuid.NewString() + "_" + sanitize(original)
}

// OriginalName strips the UUID prefix added by NewName.
func OriginalName(name string) string {
	if len(name) > 37 && name[36] == '_' {
		if _, err := uuid.Parse(name[:36]); err == nil {
			return name[37:]
		}
	}
	return name
}

func sanitize(original string) string {
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := strings.Trim(b.String(), ".")
	if s == "" {
		return "file"
	}
	return s
}

// ValidateName rejects names that could address anything outside the store.
func ValidateName(name string) error {
	if name == "" || strings.HasPrefix(name, ".") || strings.Contains(name, "..") ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return ErrInvalidName
	}
	return nil
}

// Audio and video types are missing from Go's builtin table and vary across
// system mime.types files.
var knownTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".heic": "image/heic",
}

// ContentType guesses a blob's MIME type from its extension, then from the
// first bytes of its content.
func ContentType(name string, head []byte) string {
	ext := strings.ToLower(path.Ext(name))
	if ct, ok := knownTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	if len(head) > 0 {
		if ct := http.DetectContentType(head); ct != fallbackContentType {
			return ct
		}
	}
	return fallbackContentType
}

// ThumbnailName returns the blob name under which an image's thumbnail is kept.
func ThumbnailName(name string) string {
	return "thumb_" + strings.TrimSuffix(name, path.Ext(name)) + ".jpg"
}
