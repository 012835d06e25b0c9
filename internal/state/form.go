package state

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/chris-regnier/diaryweb/internal/client"
	"github.com/chris-regnier/diaryweb/internal/entry"
)

// ErrSubmitInProgress rejects a second submit while one is outstanding.
var ErrSubmitInProgress = errors.New("submit already in progress")

// Phase is the state of a form.
type Phase int

const (
	Editing Phase = iota
	Submitting
)

func (p Phase) String() string {
	if p == Submitting {
		return "submitting"
	}
	return "editing"
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return &client.ValidationError{Field: "content", Message: "Content cannot be empty"}
	}
	return nil
}

// fields are the values shared by both forms.
type fields struct {
	topic   string
	content string
	media   map[entry.MediaKind]*client.Attachment
}

func (f *fields) attachment(kind entry.MediaKind) *client.Attachment {
	return f.media[kind]
}

func (f *fields) setAttachment(kind entry.MediaKind, a *client.Attachment) {
	if f.media == nil {
		f.media = make(map[entry.MediaKind]*client.Attachment)
	}
	if a == nil {
		delete(f.media, kind)
		return
	}
	f.media[kind] = a
}

// CreateForm is the new-entry form:
//
//	Editing -> Submitting -> Editing (reset on success, retained on failure)
type CreateForm struct {
	mu      sync.Mutex
	f       fields
	phase   Phase
	err     error
	session int
}

// NewCreateForm returns an empty form in session 1.
func NewCreateForm() *CreateForm {
	return &CreateForm{session: 1}
}

func (c *CreateForm) SetTopic(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.f.topic = s
}

func (c *CreateForm) SetContent(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.f.content = s
}

// SetAttachment picks a file for kind; nil clears it.
func (c *CreateForm) SetAttachment(kind entry.MediaKind, a *client.Attachment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.f.setAttachment(kind, a)
}

func (c *CreateForm) Topic() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.f.topic
}

func (c *CreateForm) Content() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.f.content
}

func (c *CreateForm) Attachment(kind entry.MediaKind) *client.Attachment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.f.attachment(kind)
}

func (c *CreateForm) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Err returns the error of the last failed submit.
func (c *CreateForm) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// SessionID changes every time the form is reset, telling views to rebuild
// their input widgets.
func (c *CreateForm) SessionID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Begin validates and moves to Submitting, returning the draft to send.
// Validation failures leave the form in Editing.
func (c *CreateForm) Begin() (client.Draft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == Submitting {
		return client.Draft{}, ErrSubmitInProgress
	}
	if err := validateContent(c.f.content); err != nil {
		c.err = err
		return client.Draft{}, err
	}
	c.phase = Submitting
	c.err = nil
	return client.Draft{
		Topic:   c.f.topic,
		Content: c.f.content,
		Image:   c.f.attachment(entry.Image),
		Video:   c.f.attachment(entry.Video),
		Audio:   c.f.attachment(entry.Audio),
	}, nil
}

// Settle records the outcome of the submit started by Begin.
func (c *CreateForm) Settle(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = Editing
	if err != nil {
		c.err = err
		return
	}
	c.f = fields{}
	c.err = nil
	c.session++
}

// Submit creates the entry and refreshes list on success.
func (c *CreateForm) Submit(ctx context.Context, repo Repository, list *ListState) (entry.Entry, error) {
	d, err := c.Begin()
	if err != nil {
		return entry.Entry{}, err
	}
	e, err := repo.Create(ctx, d)
	c.Settle(err)
	if err != nil {
		return entry.Entry{}, err
	}
	if list != nil {
		_ = list.Refresh(ctx)
	}
	return e, nil
}

// EditForm edits one existing entry. Attachments start nil; only files
// picked during this session are sent.
type EditForm struct {
	mu    sync.Mutex
	id    string
	orig  entry.Entry
	f     fields
	phase Phase
	err   error
	done  bool
}

// NewEditForm seeds the form from a copy of e.
func NewEditForm(e entry.Entry) *EditForm {
	return &EditForm{
		id:   e.ID,
		orig: e,
		f:    fields{topic: e.Topic, content: e.Content},
	}
}

// Entry returns the entry the form was opened on.
func (f *EditForm) Entry() entry.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orig
}

func (f *EditForm) ID() string { return f.id }

func (f *EditForm) SetTopic(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.f.topic = s
}

func (f *EditForm) SetContent(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.f.content = s
}

// SetAttachment picks a replacement file for kind; nil keeps the stored one.
func (f *EditForm) SetAttachment(kind entry.MediaKind, a *client.Attachment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.f.setAttachment(kind, a)
}

func (f *EditForm) Topic() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.f.topic
}

func (f *EditForm) Content() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.f.content
}

func (f *EditForm) Attachment(kind entry.MediaKind) *client.Attachment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.f.attachment(kind)
}

func (f *EditForm) Phase() Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

func (f *EditForm) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Done reports whether a submit succeeded, which closes the edit session.
func (f *EditForm) Done() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.done
}

// Begin validates and moves to Submitting.
func (f *EditForm) Begin() (client.EditDraft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.phase == Submitting {
		return client.EditDraft{}, ErrSubmitInProgress
	}
	if err := validateContent(f.f.content); err != nil {
		f.err = err
		return client.EditDraft{}, err
	}
	f.phase = Submitting
	f.err = nil
	return client.EditDraft{
		Topic:   f.f.topic,
		Content: f.f.content,
		Image:   f.f.attachment(entry.Image),
		Video:   f.f.attachment(entry.Video),
		Audio:   f.f.attachment(entry.Audio),
	}, nil
}

// Settle records the outcome of the submit started by Begin.
func (f *EditForm) Settle(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.phase = Editing
	if err != nil {
		f.err = err
		return
	}
	f.err = nil
	f.done = true
}

// Submit updates the entry and refreshes list on success.
func (f *EditForm) Submit(ctx context.Context, repo Repository, list *ListState) (entry.Entry, error) {
	d, err := f.Begin()
	if err != nil {
		return entry.Entry{}, err
	}
	e, err := repo.Update(ctx, f.id, d)
	f.Settle(err)
	if err != nil {
		return entry.Entry{}, err
	}
	if list != nil {
		_ = list.Refresh(ctx)
	}
	return e, nil
}
