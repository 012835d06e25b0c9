package state

import (
	"context"
	"errors"
	"sync"

	"github.com/chris-regnier/diaryweb/internal/client"
	"github.com/chris-regnier/diaryweb/internal/entry"
)

// Mode reports which modal is open.
type Mode int

const (
	ModeNone Mode = iota
	ModeDetail
	ModeEdit
)

// Selection holds at most one of: the entry shown in detail, or the entry
// being edited.
type Selection struct {
	mu       sync.Mutex
	selected *entry.Entry
	editing  *EditForm
}

// Select opens e in the detail view and closes any edit.
func (s *Selection) Select(e entry.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = &e
	s.editing = nil
}

// Edit opens an edit form on e and closes the detail view.
func (s *Selection) Edit(e entry.Entry) *EditForm {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = nil
	s.editing = NewEditForm(e)
	return s.editing
}

// Close closes whichever modal is open.
func (s *Selection) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = nil
	s.editing = nil
}

func (s *Selection) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.editing != nil:
		return ModeEdit
	case s.selected != nil:
		return ModeDetail
	}
	return ModeNone
}

// Selected returns the entry in the detail view.
func (s *Selection) Selected() (entry.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return entry.Entry{}, false
	}
	return *s.selected, true
}

// Editing returns the open edit form, or nil.
func (s *Selection) Editing() *EditForm {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editing
}

// Delete removes the entry and refreshes list whatever the outcome. A
// missing entry is reported but is not fatal: the refresh drops it anyway.
func Delete(ctx context.Context, repo Repository, list *ListState, id string) error {
	err := repo.Delete(ctx, id)
	if list != nil {
		_ = list.Refresh(ctx)
	}
	return err
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	return errors.Is(err, client.ErrNotFound)
}
