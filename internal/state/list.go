// Package state holds the client-side view state shared by the terminal UI
// and tests: the cached entry list, the create and edit forms, and which
// entry is open.
package state

import (
	"context"
	"sort"
	"sync"

	"github.com/chris-regnier/diaryweb/internal/client"
	"github.com/chris-regnier/diaryweb/internal/entry"
)

// Repository is the subset of the API client the state layer drives.
type Repository interface {
	List(ctx context.Context, q client.ListQuery) ([]entry.Entry, error)
	Create(ctx context.Context, d client.Draft) (entry.Entry, error)
	Update(ctx context.Context, id string, d client.EditDraft) (entry.Entry, error)
	Delete(ctx context.Context, id string) error
	MediaURL(path string) string
}

var _ Repository = (*client.Client)(nil)

// ListState caches the server's entries.
//
// Every refresh draws a generation number; a response is applied only if it
// is newer than the last one applied, so a slow earlier refresh can never
// overwrite a later one.
type ListState struct {
	repo Repository

	mu       sync.Mutex
	entries  []entry.Entry
	nextGen  uint64
	applied  uint64
	inflight int
	version  int
	err      error
}

// NewListState returns an empty list bound to repo.
func NewListState(repo Repository) *ListState {
	return &ListState{repo: repo, entries: []entry.Entry{}}
}

// Refresh refetches the list. On failure the previous entries are kept and
// the error is recorded for display.
func (l *ListState) Refresh(ctx context.Context) error {
	gen := l.begin()
	entries, err := l.repo.List(ctx, client.ListQuery{})
	l.finish(gen, entries, err)
	return err
}

func (l *ListState) begin() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextGen++
	l.inflight++
	return l.nextGen
}

func (l *ListState) finish(gen uint64, entries []entry.Entry, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inflight--
	if gen <= l.applied {
		return
	}
	l.applied = gen
	if err != nil {
		l.err = err
		return
	}

	sorted := make([]entry.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	l.entries = sorted
	l.err = nil
	l.version++
}

// Entries returns the cached entries, newest first. The slice must not be
// modified.
func (l *ListState) Entries() []entry.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries
}

// Find returns the cached entry with the given id.
func (l *ListState) Find(id string) (entry.Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.ID == id {
			return e, true
		}
	}
	return entry.Entry{}, false
}

// Loading reports whether any refresh is in flight.
func (l *ListState) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inflight > 0
}

// Err returns the error of the last applied refresh, if it failed.
func (l *ListState) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Version counts successful refreshes applied to the cache.
func (l *ListState) Version() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.version
}
