package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/chris-regnier/diaryweb/internal/client"
	"github.com/chris-regnier/diaryweb/internal/entry"
	"github.com/chris-regnier/diaryweb/internal/media"
	"github.com/chris-regnier/diaryweb/internal/state"
)

// TUIConfig holds what the terminal client needs besides the repository.
type TUIConfig struct {
	MaxWidth int // maximum content width (0 = no limit)
	Theme    Theme
	Logger   *zap.SugaredLogger
}

// entryItem implements list.Item for entry.Entry.
type entryItem struct {
	entry entry.Entry
}

func (i entryItem) Title() string {
	title := i.entry.Heading()
	if badges := MediaBadges(i.entry); badges != "" {
		title += "  " + badges
	}
	return title
}

func (i entryItem) Description() string {
	return i.entry.CreatedAt.Local().Format(timeLayout) + "  " + i.entry.ID
}

func (i entryItem) FilterValue() string { return i.entry.Topic + " " + i.entry.Content }

// Form field focus order.
const (
	fieldTopic = iota
	fieldContent
	fieldAttach
	fieldCount
)

// formWidgets are the input widgets of one form session.
type formWidgets struct {
	topic     textinput.Model
	content   textarea.Model
	attach    textinput.Model
	focus     int
	attachErr error
}

func newFormWidgets(topic, content string, width int) formWidgets {
	w := formWidgets{
		topic:   textinput.New(),
		content: textarea.New(),
		attach:  textinput.New(),
	}
	w.topic.Placeholder = "Topic (optional)"
	w.topic.CharLimit = 200
	w.topic.SetValue(topic)
	w.content.Placeholder = "What happened today?"
	w.content.ShowLineNumbers = false
	w.content.SetValue(content)
	w.content.SetHeight(8)
	w.attach.Placeholder = "Path to image, video or audio file, then enter"
	w.resize(width)
	w.topic.Focus()
	return w
}

func (w *formWidgets) resize(width int) {
	inner := max(width-6, 20)
	w.topic.Width = inner
	w.attach.Width = inner
	w.content.SetWidth(inner)
}

func (w *formWidgets) setFocus(i int) tea.Cmd {
	w.focus = (i + fieldCount) % fieldCount
	w.topic.Blur()
	w.content.Blur()
	w.attach.Blur()
	switch w.focus {
	case fieldTopic:
		return w.topic.Focus()
	case fieldContent:
		return w.content.Focus()
	default:
		return w.attach.Focus()
	}
}

func (w *formWidgets) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch w.focus {
	case fieldTopic:
		w.topic, cmd = w.topic.Update(msg)
	case fieldContent:
		w.content, cmd = w.content.Update(msg)
	default:
		w.attach, cmd = w.attach.Update(msg)
	}
	return cmd
}

// form is what the create and edit forms have in common.
type form interface {
	SetTopic(string)
	SetContent(string)
	SetAttachment(entry.MediaKind, *client.Attachment)
	Attachment(entry.MediaKind) *client.Attachment
	Phase() state.Phase
	Err() error
}

var (
	_ form = (*state.CreateForm)(nil)
	_ form = (*state.EditForm)(nil)
)

// Messages carrying the results of background calls.
type (
	refreshedMsg struct{ err error }
	createdMsg   struct {
		entry entry.Entry
		err   error
	}
	updatedMsg struct {
		form  *state.EditForm
		entry entry.Entry
		err   error
	}
	deletedMsg struct {
		id  string
		err error
	}
)

type appModel struct {
	ctx    context.Context
	repo   state.Repository
	cfg    TUIConfig
	log    *zap.SugaredLogger
	list   *state.ListState
	sel    *state.Selection
	create *state.CreateForm

	entries     list.Model
	listVersion int
	spinner     spinner.Model
	detail      viewport.Model

	creating      bool
	createW       formWidgets
	createSession int
	editW         formWidgets
	confirm       *entry.Entry

	status string
	err    error
	width  int
	height int
	ready  bool
}

func newAppModel(ctx context.Context, repo state.Repository, cfg TUIConfig) appModel {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	create := state.NewCreateForm()
	entries := cfg.Theme.NewList(nil, 0, 0)
	entries.Title = "Diary"
	entries.SetShowHelp(false)
	entries.SetStatusBarItemName("entry", "entries")

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = cfg.Theme.AccentStyle()

	return appModel{
		ctx:           ctx,
		repo:          repo,
		cfg:           cfg,
		log:           log,
		list:          state.NewListState(repo),
		sel:           &state.Selection{},
		create:        create,
		entries:       entries,
		spinner:       sp,
		detail:        viewport.New(0, 0),
		createW:       newFormWidgets("", "", 0),
		editW:         newFormWidgets("", "", 0),
		createSession: create.SessionID(),
	}
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(m.refresh(), m.spinner.Tick)
}

func (m appModel) refresh() tea.Cmd {
	ctx, l := m.ctx, m.list
	return func() tea.Msg {
		return refreshedMsg{err: l.Refresh(ctx)}
	}
}

func (m *appModel) contentWidth() int {
	if m.cfg.MaxWidth > 0 && m.width > m.cfg.MaxWidth {
		return m.cfg.MaxWidth
	}
	return m.width
}

func (m *appModel) layout() {
	cw := m.contentWidth()
	m.entries.SetSize(cw, max(m.height-3, 3))
	m.createW.resize(cw)
	m.editW.resize(cw)
	m.detail.Width = max(cw-4, 10)
	m.detail.Height = max(m.height-6, 3)
}

// syncEntries rebuilds the list items after an applied refresh.
func (m *appModel) syncEntries() tea.Cmd {
	v := m.list.Version()
	if v == m.listVersion {
		return nil
	}
	m.listVersion = v
	es := m.list.Entries()
	items := make([]list.Item, len(es))
	for i, e := range es {
		items[i] = entryItem{entry: e}
	}
	return m.entries.SetItems(items)
}

// syncCreateSession rebuilds the create widgets when the form was reset.
func (m *appModel) syncCreateSession() {
	if id := m.create.SessionID(); id != m.createSession {
		m.createSession = id
		m.createW = newFormWidgets("", "", m.contentWidth())
	}
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	am := next.(appModel)
	am.syncCreateSession()
	return am, cmd
}

func (m appModel) update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.layout()
		m.renderDetail()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case refreshedMsg:
		if msg.err != nil {
			m.log.Warnw("refresh failed", "error", msg.err)
		}
		return m, m.syncEntries()

	case createdMsg:
		m.create.Settle(msg.err)
		if msg.err != nil {
			m.log.Warnw("create failed", "error", msg.err)
			return m, nil
		}
		m.creating = false
		m.setStatus(fmt.Sprintf("Created entry %s", msg.entry.ID))
		return m, m.refresh()

	case updatedMsg:
		msg.form.Settle(msg.err)
		if msg.err != nil {
			m.log.Warnw("update failed", "id", msg.form.ID(), "error", msg.err)
			return m, nil
		}
		if m.sel.Editing() == msg.form {
			m.sel.Close()
		}
		m.setStatus(fmt.Sprintf("Updated entry %s", msg.entry.ID))
		return m, m.refresh()

	case deletedMsg:
		if sel, ok := m.sel.Selected(); ok && sel.ID == msg.id {
			m.sel.Close()
		}
		switch {
		case state.IsNotFound(msg.err):
			m.log.Infow("entry already deleted", "id", msg.id)
			m.setStatus(fmt.Sprintf("Entry %s was already deleted", msg.id))
		case msg.err != nil:
			m.setError(msg.err)
		default:
			m.setStatus(fmt.Sprintf("Deleted entry %s", msg.id))
		}
		return m, m.syncEntries()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch {
		case m.confirm != nil:
			return m.updateConfirm(msg)
		case m.creating:
			return m.updateCreate(msg)
		case m.sel.Mode() == state.ModeEdit:
			return m.updateEdit(msg)
		case m.sel.Mode() == state.ModeDetail:
			return m.updateDetail(msg)
		}
		return m.updateList(msg)
	}

	var cmd tea.Cmd
	switch {
	case m.creating:
		cmd = m.createW.update(msg)
	case m.sel.Mode() == state.ModeEdit:
		cmd = m.editW.update(msg)
	default:
		m.entries, cmd = m.entries.Update(msg)
	}
	return m, cmd
}

func (m *appModel) setStatus(s string) {
	m.status, m.err = s, nil
}

func (m *appModel) setError(err error) {
	m.status, m.err = "", err
}

func (m appModel) selectedEntry() (entry.Entry, bool) {
	item, ok := m.entries.SelectedItem().(entryItem)
	if !ok {
		return entry.Entry{}, false
	}
	return item.entry, true
}

func (m appModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.entries.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.entries, cmd = m.entries.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "r":
		return m, m.refresh()
	case "n", "c":
		m.creating = true
		m.createW.resize(m.contentWidth())
		return m, m.createW.setFocus(fieldTopic)
	case "enter":
		if e, ok := m.selectedEntry(); ok {
			m.sel.Select(e)
			m.renderDetail()
		}
		return m, nil
	case "e":
		if e, ok := m.selectedEntry(); ok {
			return m, m.startEdit(e)
		}
		return m, nil
	case "d":
		if e, ok := m.selectedEntry(); ok {
			m.confirm = &e
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.entries, cmd = m.entries.Update(msg)
	return m, cmd
}

func (m appModel) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	e, _ := m.sel.Selected()
	switch msg.String() {
	case "esc", "q":
		m.sel.Close()
		return m, nil
	case "e":
		return m, m.startEdit(e)
	case "d":
		m.confirm = &e
		return m, nil
	case "r":
		return m, m.refresh()
	}
	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

func (m *appModel) startEdit(e entry.Entry) tea.Cmd {
	m.sel.Edit(e)
	m.editW = newFormWidgets(e.Topic, e.Content, m.contentWidth())
	return m.editW.setFocus(fieldContent)
}

func (m appModel) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	target := *m.confirm
	switch strings.ToLower(msg.String()) {
	case "y":
		m.confirm = nil
		ctx, repo, l := m.ctx, m.repo, m.list
		return m, func() tea.Msg {
			return deletedMsg{id: target.ID, err: state.Delete(ctx, repo, l, target.ID)}
		}
	case "n", "esc", "enter", "q":
		m.confirm = nil
	}
	return m, nil
}

// formKey handles the keys shared by both forms. It reports whether the key
// was consumed.
func formKey(w *formWidgets, f form, msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "tab":
		return w.setFocus(w.focus + 1), true
	case "shift+tab":
		return w.setFocus(w.focus - 1), true
	case "enter":
		if w.focus != fieldAttach {
			return nil, w.focus == fieldTopic
		}
		w.attachErr = attachPath(f, w.attach.Value())
		if w.attachErr == nil {
			w.attach.SetValue("")
		}
		return nil, true
	}
	return nil, false
}

func (m appModel) updateCreate(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.creating = false
		m.create.SetTopic(m.createW.topic.Value())
		m.create.SetContent(m.createW.content.Value())
		return m, nil
	case "ctrl+s":
		m.create.SetTopic(m.createW.topic.Value())
		m.create.SetContent(m.createW.content.Value())
		draft, err := m.create.Begin()
		if err != nil {
			return m, nil
		}
		ctx, repo := m.ctx, m.repo
		return m, func() tea.Msg {
			e, err := repo.Create(ctx, draft)
			return createdMsg{entry: e, err: err}
		}
	}
	if cmd, ok := formKey(&m.createW, m.create, msg); ok {
		return m, cmd
	}
	return m, m.createW.update(msg)
}

func (m appModel) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.sel.Editing()
	switch msg.String() {
	case "esc":
		m.sel.Close()
		return m, nil
	case "ctrl+s":
		f.SetTopic(m.editW.topic.Value())
		f.SetContent(m.editW.content.Value())
		draft, err := f.Begin()
		if err != nil {
			return m, nil
		}
		ctx, repo := m.ctx, m.repo
		return m, func() tea.Msg {
			e, err := repo.Update(ctx, f.ID(), draft)
			return updatedMsg{form: f, entry: e, err: err}
		}
	}
	if cmd, ok := formKey(&m.editW, f, msg); ok {
		return m, cmd
	}
	return m, m.editW.update(msg)
}

// attachPath adds the file at path to f under the kind its content
// type maps to.
func attachPath(f form, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	kind, err := inferKind(path)
	if err != nil {
		return err
	}
	f.SetAttachment(kind, client.FileAttachment(path))
	return nil
}

func inferKind(path string) (entry.MediaKind, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	ct := media.ContentType(path, head[:n])
	kind, ok := entry.KindForContentType(ct)
	if !ok {
		return "", fmt.Errorf("unsupported file type %s", ct)
	}
	return kind, nil
}

func (m *appModel) renderDetail() {
	e, ok := m.sel.Selected()
	if !ok || !m.ready {
		return
	}
	cw := max(m.contentWidth()-4, 10)
	var b strings.Builder
	b.WriteString(m.cfg.Theme.HelpStyle().Render(fmt.Sprintf("Created %s  Modified %s",
		e.CreatedAt.Local().Format(timeLayout), e.UpdatedAt.Local().Format(timeLayout))))
	b.WriteString("\n")
	if e.Topic != "" {
		b.WriteString("Topic: " + e.Topic + "\n")
	}
	for _, line := range mediaLines(e, m.repo.MediaURL) {
		b.WriteString(m.cfg.Theme.AccentStyle().Render(line) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(RenderMarkdown(e.Content, cw, m.cfg.Theme.MarkdownStyle))
	m.detail.SetContent(b.String())
	m.detail.GotoTop()
}

func (m appModel) View() string {
	if !m.ready {
		return "Loading..."
	}
	cw := m.contentWidth()
	theme := m.cfg.Theme

	var body string
	switch {
	case m.creating:
		body = m.formView("New entry", &m.createW, m.create, nil)
	case m.sel.Mode() == state.ModeEdit:
		f := m.sel.Editing()
		orig := f.Entry()
		body = m.formView("Edit "+orig.Heading(), &m.editW, f, &orig)
	case m.sel.Mode() == state.ModeDetail:
		e, _ := m.sel.Selected()
		body = theme.ModalStyle().Width(cw - 2).Render(
			theme.HeaderStyle().Render(e.Heading()) + "\n" + m.detail.View())
	default:
		body = m.entries.View()
	}

	lines := []string{body}
	if m.confirm != nil {
		lines = append(lines, theme.DangerStyle().Render(
			fmt.Sprintf("Delete %q? [y/N]", m.confirm.Heading())))
	}
	lines = append(lines, m.statusLine(), theme.HelpStyle().Render(m.helpText()))
	out := strings.Join(lines, "\n")
	if cw > 0 {
		out = lipgloss.NewStyle().MaxWidth(cw).Render(out)
	}
	return out
}

func (m appModel) statusLine() string {
	theme := m.cfg.Theme
	var parts []string
	if m.list.Loading() {
		parts = append(parts, m.spinner.View()+" loading")
	}
	switch {
	case m.err != nil:
		parts = append(parts, theme.DangerStyle().Render("Error: "+m.err.Error()))
	case m.list.Err() != nil:
		parts = append(parts, theme.DangerStyle().Render("Could not load entries: "+m.list.Err().Error()))
	case m.status != "":
		parts = append(parts, m.status)
	}
	return strings.Join(parts, "  ")
}

func (m appModel) helpText() string {
	switch {
	case m.confirm != nil:
		return "y delete • n cancel"
	case m.creating, m.sel.Mode() == state.ModeEdit:
		return "tab next field • enter attach file • ctrl+s save • esc close"
	case m.sel.Mode() == state.ModeDetail:
		return "↑/↓ scroll • e edit • d delete • esc back"
	}
	return "enter open • n new • e edit • d delete • r refresh • / filter • q quit"
}

func (m appModel) formView(title string, w *formWidgets, f form, orig *entry.Entry) string {
	theme := m.cfg.Theme
	var b strings.Builder
	b.WriteString(theme.HeaderStyle().Render(title) + "\n\n")
	b.WriteString(w.topic.View() + "\n\n")
	b.WriteString(w.content.View() + "\n\n")
	b.WriteString(w.attach.View() + "\n")
	for _, k := range entry.MediaKinds {
		switch a := f.Attachment(k); {
		case a != nil:
			b.WriteString(theme.AccentStyle().Render(fmt.Sprintf("  %s: %s", k, a.Filename)) + "\n")
		case orig != nil && orig.MediaPath(k) != "":
			b.WriteString(theme.HelpStyle().Render(fmt.Sprintf("  %s: %s (kept)", k, media.OriginalName(orig.MediaPath(k)))) + "\n")
		}
	}

	var errs []string
	if w.attachErr != nil {
		errs = append(errs, w.attachErr.Error())
	}
	if err := f.Err(); err != nil {
		errs = append(errs, formError(err))
	}
	for _, e := range errs {
		b.WriteString(theme.DangerStyle().Render(e) + "\n")
	}
	if f.Phase() == state.Submitting {
		b.WriteString(m.spinner.View() + " saving\n")
	}
	return theme.ModalStyle().Width(m.contentWidth() - 2).Render(b.String())
}

func formError(err error) string {
	var ve *client.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return err.Error()
}

// RunTUI runs the interactive client until the user quits.
func RunTUI(ctx context.Context, repo state.Repository, cfg TUIConfig) error {
	p := tea.NewProgram(newAppModel(ctx, repo, cfg), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
