package markdown

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/adrg/frontmatter"
	"github.com/chris-regnier/diaryweb/internal/entry"
	"github.com/chris-regnier/diaryweb/internal/storage"
)

// localDate returns the local midnight for the given time.
func localDate(t time.Time) time.Time {
	y, m, d := t.Local().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// Store implements storage.Storage using Markdown files with YAML front-matter.
type Store struct {
	baseDir string // e.g. ~/.diaryweb/entries/

	// mu serializes read-modify-write cycles; readers rely on atomic renames.
	mu sync.Mutex
}

// New creates a new Markdown file storage backend.
func New(dataDir string) (*Store, error) {
	entriesDir := filepath.Join(dataDir, "entries")
	if err := os.MkdirAll(entriesDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: creating entries directory: %v", storage.ErrStorage, err)
	}
	return &Store{baseDir: entriesDir}, nil
}

// Close is a no-op for the Markdown backend.
func (s *Store) Close() error {
	return nil
}

func (s *Store) entryPath(e entry.Entry) string {
	t := e.CreatedAt.UTC()
	return filepath.Join(s.baseDir, t.Format("2006"), t.Format("01"), t.Format("02"), e.ID+".md")
}

// marshal renders front-matter by hand. Free-text values are written with %q,
// whose escapes are a subset of YAML double-quoted scalars.
func (s *Store) marshal(e entry.Entry) []byte {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "id: %s\n", e.ID)
	if e.Topic != "" {
		fmt.Fprintf(&b, "topic: %q\n", e.Topic)
	}
	for _, kind := range entry.MediaKinds {
		if path := e.MediaPath(kind); path != "" {
			fmt.Fprintf(&b, "%s_path: %q\n", kind, path)
		}
	}
	fmt.Fprintf(&b, "created_at: %s\n", e.CreatedAt.UTC().Format(storage.TimeLayout))
	fmt.Fprintf(&b, "updated_at: %s\n", e.UpdatedAt.UTC().Format(storage.TimeLayout))
	b.WriteString("---\n\n")
	b.WriteString(e.Content)
	return []byte(b.String())
}

type frontMatter struct {
	ID        string `yaml:"id"`
	Topic     string `yaml:"topic"`
	ImagePath string `yaml:"image_path"`
	VideoPath string `yaml:"video_path"`
	AudioPath string `yaml:"audio_path"`
	CreatedAt string `yaml:"created_at"`
	UpdatedAt string `yaml:"updated_at"`
}

func (s *Store) unmarshal(data []byte) (entry.Entry, error) {
	var fm frontMatter
	content, err := frontmatter.Parse(strings.NewReader(string(data)), &fm)
	if err != nil {
		return entry.Entry{}, fmt.Errorf("%w: parsing front-matter: %v", storage.ErrStorage, err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, fm.CreatedAt)
	if err != nil {
		return entry.Entry{}, fmt.Errorf("%w: parsing created_at: %v", storage.ErrStorage, err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, fm.UpdatedAt)
	if err != nil {
		return entry.Entry{}, fmt.Errorf("%w: parsing updated_at: %v", storage.ErrStorage, err)
	}

	return entry.Entry{
		ID:        fm.ID,
		Topic:     fm.Topic,
		Content:   strings.TrimPrefix(string(content), "\n"),
		ImagePath: fm.ImagePath,
		VideoPath: fm.VideoPath,
		AudioPath: fm.AudioPath,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// atomicWrite writes data to a temp file then renames it to the target path.
func (s *Store) atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: creating directory: %v", storage.ErrStorage, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %v", storage.ErrStorage, err)
	}
	tmpName := tmp.Name()

	// Lock the temp file during write
	if err := syscall.Flock(int(tmp.Fd()), syscall.LOCK_EX); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: acquiring lock: %v", storage.ErrStorage, err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: writing temp file: %v", storage.ErrStorage, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: closing temp file: %v", storage.ErrStorage, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: renaming file: %v", storage.ErrStorage, err)
	}

	return nil
}

// Create persists a new diary entry as a Markdown file.
func (s *Store) Create(e entry.Entry) error {
	if err := entry.ValidateContent(e.Content); err != nil {
		return fmt.Errorf("%w: %v", storage.ErrValidation, err)
	}
	e.Topic = strings.TrimSpace(e.Topic)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.findEntryPath(e.ID); err == nil {
		return fmt.Errorf("%w: entry %s already exists", storage.ErrConflict, e.ID)
	}

	return s.atomicWrite(s.entryPath(e), s.marshal(e))
}

// Get retrieves an entry by ID by scanning the directory tree.
func (s *Store) Get(id string) (entry.Entry, error) {
	path, err := s.findEntryPath(id)
	if err != nil {
		return entry.Entry{}, err
	}
	return s.read(path)
}

func (s *Store) read(path string) (entry.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return entry.Entry{}, storage.ErrNotFound
		}
		return entry.Entry{}, fmt.Errorf("%w: reading file: %v", storage.ErrStorage, err)
	}
	return s.unmarshal(data)
}

// findEntryPath locates the file for a given entry ID.
func (s *Store) findEntryPath(id string) (string, error) {
	var found string
	err := filepath.WalkDir(s.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip errors
		}
		if d.IsDir() {
			return nil
		}
		if d.Name() == id+".md" {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: scanning entries: %v", storage.ErrStorage, err)
	}
	if found == "" {
		return "", storage.ErrNotFound
	}
	return found, nil
}

// List returns entries matching the given options.
func (s *Store) List(opts storage.ListOptions) ([]entry.Entry, error) {
	entries := []entry.Entry{}

	err := filepath.WalkDir(s.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil // skip unreadable files
		}

		e, err := s.unmarshal(data)
		if err != nil {
			return nil // skip malformed files
		}

		entryDate := localDate(e.CreatedAt)

		// Date filter (takes precedence over range)
		if opts.Date != nil {
			if !entryDate.Equal(localDate(*opts.Date)) {
				return nil
			}
		} else {
			if opts.StartDate != nil && entryDate.Before(localDate(*opts.StartDate)) {
				return nil
			}
			if opts.EndDate != nil && entryDate.After(localDate(*opts.EndDate)) {
				return nil
			}
		}

		if !opts.Matches(e) {
			return nil
		}

		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listing entries: %v", storage.ErrStorage, err)
	}

	// Sort by created_at descending (reverse chronological)
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].ID > entries[j].ID
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(entries) {
			return []entry.Entry{}, nil
		}
		entries = entries[opts.Offset:]
	}

	if opts.Limit > 0 && opts.Limit < len(entries) {
		entries = entries[:opts.Limit]
	}

	return entries, nil
}

// Update rewrites an existing entry. Nil fields in params are left as stored.
func (s *Store) Update(id string, params storage.UpdateParams) (entry.Entry, error) {
	if err := entry.ValidateContent(params.Content); err != nil {
		return entry.Entry{}, fmt.Errorf("%w: %v", storage.ErrValidation, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.findEntryPath(id)
	if err != nil {
		return entry.Entry{}, err
	}

	current, err := s.read(path)
	if err != nil {
		return entry.Entry{}, err
	}

	updated := params.Apply(current, entry.Now())
	if err := s.atomicWrite(path, s.marshal(updated)); err != nil {
		return entry.Entry{}, err
	}

	return updated, nil
}

// Delete removes an entry permanently.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.findEntryPath(id)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("%w: deleting file: %v", storage.ErrStorage, err)
	}

	return nil
}
