// Package storagetest holds the behavioural contract every storage.Storage
// backend must satisfy. Backend packages call Run from their own tests.
package storagetest

import (
	"errors"
	"testing"
	"time"

	"github.com/chris-regnier/diaryweb/internal/entry"
	"github.com/chris-regnier/diaryweb/internal/storage"
)

// Factory returns a fresh, empty store. It should register cleanup with t.
type Factory func(t *testing.T) storage.Storage

// MakeEntry returns a valid entry stamped with the current second.
func MakeEntry(t *testing.T, content string) entry.Entry {
	t.Helper()
	return MakeEntryAt(t, content, time.Now())
}

// MakeEntryAt returns a valid entry created at the given time.
func MakeEntryAt(t *testing.T, content string, at time.Time) entry.Entry {
	t.Helper()
	id, err := entry.NewID()
	if err != nil {
		t.Fatalf("generating ID: %v", err)
	}
	at = at.UTC().Truncate(time.Second)
	return entry.Entry{
		ID:        id,
		Content:   content,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func dateLocal(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.Local)
}

func dateLocalAt(year int, month time.Month, day, hour, min int) time.Time {
	return time.Date(year, month, day, hour, min, 0, 0, time.Local)
}

func strPtr(s string) *string { return &s }

func ids(entries []entry.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func mustCreate(t *testing.T, s storage.Storage, e entry.Entry) {
	t.Helper()
	if err := s.Create(e); err != nil {
		t.Fatalf("Create: %v", err)
	}
}

// Run executes the contract suite against the backend produced by factory.
func Run(t *testing.T, name string, factory Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Create and Get", func(t *testing.T) {
			s := factory(t)
			e := MakeEntry(t, "Hello diary")
			e.Topic = "Greeting"
			e.ImagePath = "0b8e_photo.png"
			mustCreate(t, s, e)
			got, err := s.Get(e.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Content != e.Content {
				t.Errorf("content = %q, want %q", got.Content, e.Content)
			}
			if got.Topic != "Greeting" {
				t.Errorf("topic = %q, want %q", got.Topic, "Greeting")
			}
			if got.ImagePath != e.ImagePath || got.VideoPath != "" || got.AudioPath != "" {
				t.Errorf("media = %q/%q/%q", got.ImagePath, got.VideoPath, got.AudioPath)
			}
			if !got.CreatedAt.Equal(e.CreatedAt) {
				t.Errorf("created_at = %v, want %v", got.CreatedAt, e.CreatedAt)
			}
		})

		t.Run("Create with all media kinds", func(t *testing.T) {
			s := factory(t)
			e := MakeEntry(t, "everything attached")
			e.ImagePath, e.VideoPath, e.AudioPath = "a_i.png", "b_v.mp4", "c_a.mp3"
			mustCreate(t, s, e)
			got, err := s.Get(e.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.ImagePath != "a_i.png" || got.VideoPath != "b_v.mp4" || got.AudioPath != "c_a.mp3" {
				t.Errorf("media = %q/%q/%q", got.ImagePath, got.VideoPath, got.AudioPath)
			}
		})

		t.Run("Topic with special characters", func(t *testing.T) {
			s := factory(t)
			e := MakeEntry(t, "body")
			e.Topic = `Re: "quotes" & colons: #1`
			mustCreate(t, s, e)
			got, err := s.Get(e.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Topic != e.Topic {
				t.Errorf("topic = %q, want %q", got.Topic, e.Topic)
			}
		})

		t.Run("Create empty content", func(t *testing.T) {
			s := factory(t)
			err := s.Create(MakeEntry(t, "   "))
			if !errors.Is(err, storage.ErrValidation) {
				t.Errorf("expected ErrValidation, got: %v", err)
			}
		})

		t.Run("Back-to-back creates list newest first", func(t *testing.T) {
			s := factory(t)
			older, err := entry.New("", "written first")
			if err != nil {
				t.Fatal(err)
			}
			mustCreate(t, s, older)
			newer, err := entry.New("", "written second")
			if err != nil {
				t.Fatal(err)
			}
			if !newer.CreatedAt.After(older.CreatedAt) {
				newer.CreatedAt = older.CreatedAt.Add(time.Microsecond)
				newer.UpdatedAt = newer.CreatedAt
			}
			mustCreate(t, s, newer)

			entries, err := s.List(storage.ListOptions{})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(entries) != 2 || entries[0].ID != newer.ID || entries[1].ID != older.ID {
				t.Fatalf("expected [%s %s], got %v", newer.ID, older.ID, ids(entries))
			}
			got, err := s.Get(newer.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if !got.CreatedAt.Equal(newer.CreatedAt) {
				t.Errorf("created_at = %v, want %v", got.CreatedAt, newer.CreatedAt)
			}
		})

		t.Run("Same instant orders by ID", func(t *testing.T) {
			s := factory(t)
			at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
			a, b := MakeEntryAt(t, "a", at), MakeEntryAt(t, "b", at)
			a.ID, b.ID = "aaaaaaaa", "bbbbbbbb"
			mustCreate(t, s, a)
			mustCreate(t, s, b)
			entries, err := s.List(storage.ListOptions{})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(entries) != 2 || entries[0].ID != "bbbbbbbb" {
				t.Errorf("expected bbbbbbbb first, got %v", ids(entries))
			}
		})

		t.Run("Content whitespace is kept", func(t *testing.T) {
			s := factory(t)
			body := "    indented code\n  - nested item\n"
			e := MakeEntry(t, body)
			mustCreate(t, s, e)
			got, err := s.Get(e.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Content != body {
				t.Errorf("content = %q, want %q", got.Content, body)
			}

			edited := "\tfirst line tabbed"
			updated, err := s.Update(e.ID, storage.UpdateParams{Content: edited})
			if err != nil {
				t.Fatalf("Update: %v", err)
			}
			if updated.Content != edited {
				t.Errorf("updated content = %q, want %q", updated.Content, edited)
			}
		})

		t.Run("Create duplicate ID", func(t *testing.T) {
			s := factory(t)
			e := MakeEntry(t, "first")
			mustCreate(t, s, e)
			if err := s.Create(e); err == nil {
				t.Error("expected error creating duplicate ID")
			}
		})

		t.Run("Create sets timestamps", func(t *testing.T) {
			s := factory(t)
			e := MakeEntry(t, "timestamps test")
			mustCreate(t, s, e)
			got, err := s.Get(e.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if !got.CreatedAt.Equal(got.UpdatedAt) {
				t.Errorf("created_at (%v) != updated_at (%v) on new entry", got.CreatedAt, got.UpdatedAt)
			}
		})

		t.Run("Get not found", func(t *testing.T) {
			s := factory(t)
			_, err := s.Get("nonexist")
			if !errors.Is(err, storage.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got: %v", err)
			}
		})

		t.Run("List empty", func(t *testing.T) {
			s := factory(t)
			entries, err := s.List(storage.ListOptions{})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if entries == nil || len(entries) != 0 {
				t.Errorf("expected empty non-nil list, got %v", entries)
			}
		})

		t.Run("List order", func(t *testing.T) {
			s := factory(t)
			base := time.Now().Add(-time.Hour)
			var ids []string
			// Insert out of order so storage order cannot mask sorting.
			for _, offset := range []int{1, 2, 0} {
				e := MakeEntryAt(t, "entry", base.Add(time.Duration(offset)*time.Second))
				mustCreate(t, s, e)
				ids = append(ids, e.ID)
			}
			entries, err := s.List(storage.ListOptions{})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(entries) != 3 {
				t.Fatalf("expected 3 entries, got %d", len(entries))
			}
			want := []string{ids[1], ids[0], ids[2]}
			for i := range want {
				if entries[i].ID != want[i] {
					t.Errorf("entries[%d] = %s, want %s", i, entries[i].ID, want[i])
				}
			}
		})

		t.Run("List limit and offset", func(t *testing.T) {
			s := factory(t)
			base := time.Now().Add(-time.Hour)
			var ids []string
			for i := 0; i < 5; i++ {
				e := MakeEntryAt(t, "paged", base.Add(time.Duration(i)*time.Second))
				mustCreate(t, s, e)
				ids = append(ids, e.ID)
			}
			page, err := s.List(storage.ListOptions{Limit: 2, Offset: 1})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(page) != 2 {
				t.Fatalf("expected 2 entries, got %d", len(page))
			}
			if page[0].ID != ids[3] || page[1].ID != ids[2] {
				t.Errorf("page = [%s %s], want [%s %s]", page[0].ID, page[1].ID, ids[3], ids[2])
			}
			rest, err := s.List(storage.ListOptions{Offset: 3})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(rest) != 2 {
				t.Errorf("offset-only: expected 2 entries, got %d", len(rest))
			}
			none, err := s.List(storage.ListOptions{Offset: 10})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(none) != 0 {
				t.Errorf("offset past end: expected 0 entries, got %d", len(none))
			}
		})

		t.Run("List date filter", func(t *testing.T) {
			s := factory(t)
			e1 := MakeEntryAt(t, "jan15 entry", dateLocalAt(2026, 1, 15, 12, 0))
			e2 := MakeEntryAt(t, "jan16 entry", dateLocalAt(2026, 1, 16, 12, 0))
			mustCreate(t, s, e1)
			mustCreate(t, s, e2)

			filterDate := dateLocal(2026, 1, 15)
			entries, err := s.List(storage.ListOptions{Date: &filterDate})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(entries) != 1 {
				t.Fatalf("expected 1 entry for jan15, got %d", len(entries))
			}
			if entries[0].ID != e1.ID {
				t.Errorf("expected entry %s, got %s", e1.ID, entries[0].ID)
			}

			start := dateLocal(2026, 1, 16)
			entries, err = s.List(storage.ListOptions{StartDate: &start})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(entries) != 1 || entries[0].ID != e2.ID {
				t.Errorf("start date filter returned %v", entries)
			}
		})

		t.Run("List query filter", func(t *testing.T) {
			s := factory(t)
			e1 := MakeEntry(t, "Walked the dog in the park")
			e2 := MakeEntry(t, "Quiet evening")
			e2.Topic = "Park concert"
			e3 := MakeEntry(t, "Nothing here")
			for _, e := range []entry.Entry{e1, e2, e3} {
				mustCreate(t, s, e)
			}
			entries, err := s.List(storage.ListOptions{Query: "PARK"})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(entries) != 2 {
				t.Fatalf("expected 2 matches, got %d", len(entries))
			}
			for _, e := range entries {
				if e.ID == e3.ID {
					t.Errorf("unexpected match %s", e.ID)
				}
			}
		})

		t.Run("Update content", func(t *testing.T) {
			s := factory(t)
			e := MakeEntryAt(t, "original content", time.Now().Add(-time.Hour))
			mustCreate(t, s, e)

			updated, err := s.Update(e.ID, storage.UpdateParams{Content: "new content"})
			if err != nil {
				t.Fatalf("Update: %v", err)
			}
			if updated.Content != "new content" {
				t.Errorf("content = %q, want %q", updated.Content, "new content")
			}
			if !updated.UpdatedAt.After(updated.CreatedAt) {
				t.Error("updated_at should be after created_at")
			}
			if !updated.CreatedAt.Equal(e.CreatedAt) {
				t.Error("created_at should be preserved")
			}
			got, err := s.Get(e.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Content != "new content" {
				t.Errorf("stored content = %q", got.Content)
			}
		})

		t.Run("Update without media preserves attachments", func(t *testing.T) {
			s := factory(t)
			e := MakeEntry(t, "with media")
			e.Topic = "keep me"
			e.ImagePath = "1_photo.png"
			e.AudioPath = "2_voice.mp3"
			mustCreate(t, s, e)

			if _, err := s.Update(e.ID, storage.UpdateParams{Content: "edited"}); err != nil {
				t.Fatalf("Update: %v", err)
			}
			got, err := s.Get(e.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.ImagePath != "1_photo.png" || got.AudioPath != "2_voice.mp3" {
				t.Errorf("media changed: image=%q audio=%q", got.ImagePath, got.AudioPath)
			}
			if got.Topic != "keep me" {
				t.Errorf("topic changed to %q", got.Topic)
			}
		})

		t.Run("Update with media replaces only that kind", func(t *testing.T) {
			s := factory(t)
			e := MakeEntry(t, "with media")
			e.ImagePath = "1_old.png"
			e.VideoPath = "2_clip.mp4"
			mustCreate(t, s, e)

			updated, err := s.Update(e.ID, storage.UpdateParams{
				Content:   "edited",
				ImagePath: strPtr("3_new.png"),
			})
			if err != nil {
				t.Fatalf("Update: %v", err)
			}
			if updated.ImagePath != "3_new.png" {
				t.Errorf("image = %q, want 3_new.png", updated.ImagePath)
			}
			got, err := s.Get(e.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.ImagePath != "3_new.png" || got.VideoPath != "2_clip.mp4" {
				t.Errorf("stored media = %q/%q", got.ImagePath, got.VideoPath)
			}
		})

		t.Run("Update clears topic when given empty", func(t *testing.T) {
			s := factory(t)
			e := MakeEntry(t, "body")
			e.Topic = "Old topic"
			mustCreate(t, s, e)

			if _, err := s.Update(e.ID, storage.UpdateParams{Content: "body", Topic: strPtr("  ")}); err != nil {
				t.Fatalf("Update: %v", err)
			}
			got, err := s.Get(e.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Topic != "" {
				t.Errorf("topic = %q, want empty", got.Topic)
			}
		})

		t.Run("Update empty content", func(t *testing.T) {
			s := factory(t)
			e := MakeEntry(t, "keep")
			mustCreate(t, s, e)
			_, err := s.Update(e.ID, storage.UpdateParams{Content: " \n "})
			if !errors.Is(err, storage.ErrValidation) {
				t.Errorf("expected ErrValidation, got: %v", err)
			}
		})

		t.Run("Update not found", func(t *testing.T) {
			s := factory(t)
			_, err := s.Update("nonexist", storage.UpdateParams{Content: "new content"})
			if !errors.Is(err, storage.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got: %v", err)
			}
		})

		t.Run("Delete", func(t *testing.T) {
			s := factory(t)
			e := MakeEntry(t, "delete me")
			keep := MakeEntry(t, "keep me")
			mustCreate(t, s, e)
			mustCreate(t, s, keep)
			if err := s.Delete(e.ID); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, err := s.Get(e.ID); !errors.Is(err, storage.ErrNotFound) {
				t.Errorf("expected ErrNotFound after delete, got: %v", err)
			}
			entries, err := s.List(storage.ListOptions{})
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(entries) != 1 || entries[0].ID != keep.ID {
				t.Errorf("remaining entries = %v", entries)
			}
		})

		t.Run("Delete not found", func(t *testing.T) {
			s := factory(t)
			e := MakeEntry(t, "survivor")
			mustCreate(t, s, e)
			if err := s.Delete("nonexist"); !errors.Is(err, storage.ErrNotFound) {
				t.Errorf("expected ErrNotFound, got: %v", err)
			}
			if _, err := s.Get(e.ID); err != nil {
				t.Errorf("existing entry affected: %v", err)
			}
		})

		t.Run("ID uniqueness", func(t *testing.T) {
			s := factory(t)
			seen := make(map[string]bool)
			for i := 0; i < 50; i++ {
				e := MakeEntry(t, "uniqueness test")
				if seen[e.ID] {
					t.Fatalf("duplicate ID: %s", e.ID)
				}
				seen[e.ID] = true
				mustCreate(t, s, e)
			}
		})
	})
}
