package ui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chris-regnier/diaryweb/internal/client"
	"github.com/chris-regnier/diaryweb/internal/config"
	"github.com/chris-regnier/diaryweb/internal/entry"
	"github.com/chris-regnier/diaryweb/internal/state"
)

// memRepo is an in-memory state.Repository.
type memRepo struct {
	mu      sync.Mutex
	entries []entry.Entry
	listErr error
	creates int
	updates []client.EditDraft
	deleted []string
}

func (r *memRepo) List(context.Context, client.ListQuery) ([]entry.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	return append([]entry.Entry(nil), r.entries...), nil
}

func (r *memRepo) Create(_ context.Context, d client.Draft) (entry.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	e := entry.Entry{ID: "created1", Topic: d.Topic, Content: d.Content, CreatedAt: time.Now()}
	r.entries = append(r.entries, e)
	return e, nil
}

func (r *memRepo) Update(_ context.Context, id string, d client.EditDraft) (entry.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, d)
	for i, e := range r.entries {
		if e.ID == id {
			r.entries[i].Topic, r.entries[i].Content = d.Topic, d.Content
			return r.entries[i], nil
		}
	}
	return entry.Entry{}, &client.TransportError{Status: 404, Message: "entry not found"}
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, id)
	for i, e := range r.entries {
		if e.ID == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return nil
		}
	}
	return &client.TransportError{Status: 404, Message: "entry not found"}
}

func (r *memRepo) MediaURL(p string) string { return "http://srv/api/diary/media/" + p }

func seededRepo() *memRepo {
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	return &memRepo{entries: []entry.Entry{
		{ID: "older000", Content: "older entry", CreatedAt: base},
		{ID: "newer000", Topic: "Picnic", Content: "newer entry", ImagePath: "u_p.png", CreatedAt: base.Add(time.Hour)},
	}}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var escapeSeq = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)

// stripANSI drops terminal escape sequences so views compare as plain text.
func stripANSI(s string) string {
	return escapeSeq.ReplaceAllString(s, "")
}

// send feeds msg to m and returns the updated model with its command.
func send(t *testing.T, m appModel, msg tea.Msg) (appModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(appModel), cmd
}

// run executes cmd and feeds its message back into m.
func run(t *testing.T, m appModel, cmd tea.Cmd) (appModel, tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	return send(t, m, cmd())
}

func newTestApp(t *testing.T, repo *memRepo) appModel {
	t.Helper()
	m := newAppModel(context.Background(), repo, TUIConfig{Theme: ResolveTheme(config.ThemeConfig{Preset: "default-dark"})})
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	m, _ = run(t, m, m.refresh())
	return m
}

func TestAppResizesBeforeAnyForm(t *testing.T) {
	m := newAppModel(context.Background(), seededRepo(), TUIConfig{MaxWidth: 60, Theme: ResolveTheme(config.ThemeConfig{})})
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 30, Height: 10})
	if !m.ready {
		t.Fatal("expected model ready after a size message")
	}
	if w := m.editW.topic.Width; w != 24 {
		t.Errorf("edit topic width = %d, want 24", w)
	}

	m, _ = run(t, m, m.refresh())
	m, _ = send(t, m, key("e"))
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 80, Height: 30})
	if w := m.editW.topic.Width; w != 54 {
		t.Errorf("edit topic width after resize = %d, want 54", w)
	}
}

func TestAppLoadsEntriesNewestFirst(t *testing.T) {
	m := newTestApp(t, seededRepo())

	items := m.entries.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	first := items[0].(entryItem)
	if first.entry.ID != "newer000" {
		t.Errorf("expected newest first, got %s", first.entry.ID)
	}
	if !strings.Contains(first.Title(), "Picnic") || !strings.Contains(first.Title(), "[image]") {
		t.Errorf("unexpected title %q", first.Title())
	}
	if view := stripANSI(m.View()); !strings.Contains(view, "older entry") {
		t.Errorf("expected list in view:\n%s", view)
	}
}

func TestAppRefreshErrorShown(t *testing.T) {
	repo := seededRepo()
	m := newTestApp(t, repo)

	repo.listErr = &client.TransportError{Status: 500, Message: "database down"}
	m, _ = send(t, m, key("r"))
	m, _ = run(t, m, m.refresh())

	if len(m.entries.Items()) != 2 {
		t.Error("expected cached entries kept after failed refresh")
	}
	if view := stripANSI(m.View()); !strings.Contains(view, "database down") {
		t.Errorf("expected error line in view:\n%s", view)
	}
}

func TestAppCreateResetsWidgets(t *testing.T) {
	repo := seededRepo()
	m := newTestApp(t, repo)

	m, _ = send(t, m, key("n"))
	if !m.creating {
		t.Fatal("expected create form open")
	}
	m.createW.topic.SetValue("Morning")
	m.createW.content.SetValue("Coffee on the porch")
	session := m.createSession

	m, cmd := send(t, m, key("ctrl+s"))
	if m.create.Phase() != state.Submitting {
		t.Fatal("expected submitting")
	}
	if _, again := send(t, m, key("ctrl+s")); again != nil {
		t.Error("second submit must not issue another request")
	}

	m, cmd = run(t, m, cmd)
	if repo.creates != 1 {
		t.Errorf("expected one create, got %d", repo.creates)
	}
	if m.creating {
		t.Error("expected form closed after create")
	}
	if m.createSession == session {
		t.Error("expected widgets rebuilt for a new session")
	}
	if m.createW.topic.Value() != "" || m.createW.content.Value() != "" {
		t.Error("expected empty widgets")
	}

	m, _ = run(t, m, cmd)
	if len(m.entries.Items()) != 3 {
		t.Errorf("expected list refreshed after create, got %d items", len(m.entries.Items()))
	}
}

func TestAppCreateValidation(t *testing.T) {
	repo := seededRepo()
	m := newTestApp(t, repo)

	m, _ = send(t, m, key("n"))
	m.createW.topic.SetValue("Only a topic")
	m, cmd := send(t, m, key("ctrl+s"))
	if cmd != nil {
		t.Error("expected no request for blank content")
	}
	if repo.creates != 0 {
		t.Error("repository must not be called")
	}
	var ve *client.ValidationError
	if !errors.As(m.create.Err(), &ve) {
		t.Fatalf("expected validation error, got %v", m.create.Err())
	}
	if view := stripANSI(m.View()); !strings.Contains(view, "Content cannot be empty") {
		t.Errorf("expected validation message in view:\n%s", view)
	}
	if m.createW.topic.Value() != "Only a topic" {
		t.Error("expected fields kept")
	}
}

func TestAppDetailAndEditAreExclusive(t *testing.T) {
	repo := seededRepo()
	m := newTestApp(t, repo)

	m, _ = send(t, m, key("enter"))
	if m.sel.Mode() != state.ModeDetail {
		t.Fatalf("expected detail mode, got %v", m.sel.Mode())
	}
	view := stripANSI(m.View())
	if !strings.Contains(view, "http://srv/api/diary/media/u_p.png") {
		t.Errorf("expected media URL in detail:\n%s", view)
	}

	m, _ = send(t, m, key("e"))
	if m.sel.Mode() != state.ModeEdit {
		t.Fatal("expected edit mode")
	}
	if _, ok := m.sel.Selected(); ok {
		t.Error("detail must close when editing")
	}
	if m.editW.content.Value() != "newer entry" || m.editW.topic.Value() != "Picnic" {
		t.Error("expected edit widgets seeded from the entry")
	}

	m.editW.content.SetValue("edited entry")
	m, cmd := send(t, m, key("ctrl+s"))
	m, cmd = run(t, m, cmd)
	if m.sel.Mode() != state.ModeNone {
		t.Error("expected edit closed after success")
	}
	if len(repo.updates) != 1 || repo.updates[0].Image != nil {
		t.Errorf("unexpected update %+v", repo.updates)
	}
	m, _ = run(t, m, cmd)
	if got := m.entries.Items()[0].(entryItem).entry.Content; got != "edited entry" {
		t.Errorf("expected refreshed content, got %q", got)
	}
}

func TestAppDeleteConfirm(t *testing.T) {
	repo := seededRepo()
	m := newTestApp(t, repo)

	m, _ = send(t, m, key("d"))
	if m.confirm == nil {
		t.Fatal("expected confirmation prompt")
	}
	if view := stripANSI(m.View()); !strings.Contains(view, `Delete "Picnic"?`) {
		t.Errorf("expected prompt in view:\n%s", view)
	}

	m, cmd := send(t, m, key("n"))
	if cmd != nil || m.confirm != nil {
		t.Fatal("expected prompt dismissed without a request")
	}

	m, _ = send(t, m, key("d"))
	m, cmd = send(t, m, key("y"))
	m, _ = run(t, m, cmd)
	if len(repo.deleted) != 1 || repo.deleted[0] != "newer000" {
		t.Errorf("unexpected deletes %v", repo.deleted)
	}
	if len(m.entries.Items()) != 1 {
		t.Errorf("expected list refreshed, got %d items", len(m.entries.Items()))
	}
}

func TestAppDeleteMissingIsNotFatal(t *testing.T) {
	m := newTestApp(t, seededRepo())
	m, _ = send(t, m, deletedMsg{id: "gone0000", err: &client.TransportError{Status: 404, Message: "entry not found"}})
	if m.err != nil {
		t.Errorf("expected no error, got %v", m.err)
	}
	if !strings.Contains(m.status, "already deleted") {
		t.Errorf("unexpected status %q", m.status)
	}
}

func TestAttachPathInfersKind(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "pic.png")
	if err := os.WriteFile(png, []byte("\x89PNG\r\n\x1a\n0000"), 0o644); err != nil {
		t.Fatal(err)
	}
	mp3 := filepath.Join(dir, "song.mp3")
	if err := os.WriteFile(mp3, []byte("ID3"), 0o644); err != nil {
		t.Fatal(err)
	}
	txt := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(txt, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := state.NewCreateForm()
	if err := attachPath(f, png); err != nil {
		t.Fatal(err)
	}
	if err := attachPath(f, mp3); err != nil {
		t.Fatal(err)
	}
	if a := f.Attachment(entry.Image); a == nil || a.Filename != "pic.png" {
		t.Errorf("expected image attachment, got %+v", a)
	}
	if f.Attachment(entry.Audio) == nil {
		t.Error("expected audio attachment")
	}
	if err := attachPath(f, txt); err == nil {
		t.Error("expected unsupported type error")
	}
	if err := attachPath(f, filepath.Join(dir, "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
	if f.Attachment(entry.Video) != nil {
		t.Error("unexpected video attachment")
	}
}

func TestAppAttachFieldAddsFile(t *testing.T) {
	dir := t.TempDir()
	png := filepath.Join(dir, "pic.png")
	if err := os.WriteFile(png, []byte("\x89PNG\r\n\x1a\n0000"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := newTestApp(t, seededRepo())
	m, _ = send(t, m, key("n"))
	m, _ = send(t, m, key("tab"))
	m, _ = send(t, m, key("tab"))
	if m.createW.focus != fieldAttach {
		t.Fatalf("expected attach field focused, got %d", m.createW.focus)
	}
	m.createW.attach.SetValue(png)
	m, _ = send(t, m, key("enter"))

	if m.create.Attachment(entry.Image) == nil {
		t.Fatal("expected image attached")
	}
	if m.createW.attach.Value() != "" {
		t.Error("expected path input cleared")
	}
	if view := stripANSI(m.View()); !strings.Contains(view, "image: pic.png") {
		t.Errorf("expected attachment listed:\n%s", view)
	}
}
