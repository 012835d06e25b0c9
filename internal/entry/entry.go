package entry

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	idLength   = 8

	// UntitledHeading is shown for entries with neither a topic nor content.
	UntitledHeading = "Untitled Entry"
)

var idPattern = regexp.MustCompile(`^[a-z0-9]{8}$`)

// MediaKind identifies one of the attachment slots of an entry.
type MediaKind string

const (
	Image MediaKind = "image"
	Video MediaKind = "video"
	Audio MediaKind = "audio"
)

// MediaKinds lists the attachment slots in form order.
var MediaKinds = []MediaKind{Image, Video, Audio}

// Entry represents a single diary entry.
type Entry struct {
	ID        string    `json:"id"`
	Topic     string    `json:"topic,omitempty"`
	Content   string    `json:"content"`
	ImagePath string    `json:"imagePath,omitempty"`
	VideoPath string    `json:"videoPath,omitempty"`
	AudioPath string    `json:"audioPath,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewID generates a new nanoid for an entry.
func NewID() (string, error) {
	return gonanoid.Generate(idAlphabet, idLength)
}

// New builds an entry with a fresh ID and the current time.
func New(topic, content string) (Entry, error) {
	if err := ValidateContent(content); err != nil {
		return Entry{}, err
	}
	id, err := NewID()
	if err != nil {
		return Entry{}, fmt.Errorf("generating ID: %w", err)
	}
	now := Now()
	return Entry{
		ID:        id,
		Topic:     strings.TrimSpace(topic),
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Now returns the current UTC time at microsecond precision, the finest
// every storage backend keeps.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// ValidateID checks whether an ID matches the expected pattern.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("invalid entry ID: %q (must be 8 lowercase alphanumeric characters)", id)
	}
	return nil
}

// ValidateContent checks whether content is non-empty.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("entry content must not be empty")
	}
	return nil
}

// Heading derives a display title: the trimmed topic, else the first line
// of content, else UntitledHeading.
func Heading(topic, content string) string {
	if t := strings.TrimSpace(topic); t != "" {
		return t
	}
	first, _, _ := strings.Cut(content, "\n")
	if f := strings.TrimSpace(first); f != "" {
		return f
	}
	return UntitledHeading
}

// Heading returns the display title of the entry.
func (e *Entry) Heading() string {
	return Heading(e.Topic, e.Content)
}

// Preview returns a truncated preview of the entry content.
func (e *Entry) Preview(maxLen int) string {
	content := strings.ReplaceAll(e.Content, "\n", " ")
	if len(content) <= maxLen {
		return content
	}
	return content[:maxLen-3] + "..."
}

// MediaPath returns the stored media name for the given kind.
func (e *Entry) MediaPath(kind MediaKind) string {
	switch kind {
	case Image:
		return e.ImagePath
	case Video:
		return e.VideoPath
	case Audio:
		return e.AudioPath
	}
	return ""
}

// SetMediaPath sets the stored media name for the given kind.
func (e *Entry) SetMediaPath(kind MediaKind, path string) {
	switch kind {
	case Image:
		e.ImagePath = path
	case Video:
		e.VideoPath = path
	case Audio:
		e.AudioPath = path
	}
}

// HasMedia reports whether any attachment is set.
func (e *Entry) HasMedia() bool {
	return e.ImagePath != "" || e.VideoPath != "" || e.AudioPath != ""
}

// KindForContentType classifies a MIME type into an attachment kind.
func KindForContentType(contentType string) (MediaKind, bool) {
	major, _, _ := strings.Cut(strings.ToLower(strings.TrimSpace(contentType)), "/")
	switch major {
	case "image":
		return Image, true
	case "video":
		return Video, true
	case "audio":
		return Audio, true
	}
	return "", false
}

// ParseMediaKind parses a kind name such as "image".
func ParseMediaKind(s string) (MediaKind, error) {
	for _, k := range MediaKinds {
		if string(k) == strings.ToLower(s) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown media kind %q (must be image, video or audio)", s)
}
