package storage

import (
	"errors"
	"strings"
	"time"

	"github.com/chris-regnier/diaryweb/internal/entry"
)

// Sentinel errors for storage operations.
var (
	ErrNotFound   = errors.New("entry not found")
	ErrConflict   = errors.New("concurrent write conflict")
	ErrStorage    = errors.New("storage error")
	ErrValidation = errors.New("validation error")
)

// TimeLayout is how text backends write timestamps. It is fixed width so
// UTC values sort lexically; RFC3339Nano parses it along with older
// second-precision values.
const TimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// ListOptions controls filtering and ordering for List operations.
// Results are always ordered by created_at descending, then ID descending.
type ListOptions struct {
	Date      *time.Time // filter by single date (local timezone)
	StartDate *time.Time // inclusive lower bound (nil = no lower bound)
	EndDate   *time.Time // inclusive upper bound (nil = no upper bound)
	Query     string     // case-insensitive substring of topic or content
	Limit     int        // 0 = no limit
	Offset    int        // pagination offset
}

// UpdateParams describes an update. Content is always replaced; a nil
// pointer field leaves the stored value unchanged.
type UpdateParams struct {
	Content   string
	Topic     *string
	ImagePath *string
	VideoPath *string
	AudioPath *string
}

// MediaPath returns the replacement for the given kind, or nil.
func (p UpdateParams) MediaPath(kind entry.MediaKind) *string {
	switch kind {
	case entry.Image:
		return p.ImagePath
	case entry.Video:
		return p.VideoPath
	case entry.Audio:
		return p.AudioPath
	}
	return nil
}

// SetMediaPath sets the replacement for the given kind.
func (p *UpdateParams) SetMediaPath(kind entry.MediaKind, path string) {
	switch kind {
	case entry.Image:
		p.ImagePath = &path
	case entry.Video:
		p.VideoPath = &path
	case entry.Audio:
		p.AudioPath = &path
	}
}

// Apply returns e with the update applied and UpdatedAt set to now.
func (p UpdateParams) Apply(e entry.Entry, now time.Time) entry.Entry {
	e.Content = p.Content
	if p.Topic != nil {
		e.Topic = strings.TrimSpace(*p.Topic)
	}
	for _, kind := range entry.MediaKinds {
		if path := p.MediaPath(kind); path != nil {
			e.SetMediaPath(kind, *path)
		}
	}
	e.UpdatedAt = now
	return e
}

// Matches reports whether e passes the query filter of opts.
func (opts ListOptions) Matches(e entry.Entry) bool {
	if opts.Query == "" {
		return true
	}
	q := strings.ToLower(opts.Query)
	return strings.Contains(strings.ToLower(e.Topic), q) ||
		strings.Contains(strings.ToLower(e.Content), q)
}

// Storage defines the interface for diary entry persistence.
type Storage interface {
	Create(e entry.Entry) error
	Get(id string) (entry.Entry, error)
	List(opts ListOptions) ([]entry.Entry, error)
	Update(id string, params UpdateParams) (entry.Entry, error)
	Delete(id string) error
	Close() error
}
