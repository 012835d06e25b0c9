package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

type pagerModel struct {
	viewport viewport.Model
	content  string
	ready    bool
	maxWidth int
	width    int
	theme    Theme
}

func (m pagerModel) Init() tea.Cmd { return nil }

func (m pagerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		w := msg.Width
		if m.maxWidth > 0 && w > m.maxWidth {
			w = m.maxWidth
		}
		if !m.ready {
			m.viewport = viewport.New(w, msg.Height-1)
			m.ready = true
		} else {
			m.viewport.Width = w
			m.viewport.Height = msg.Height - 1
		}
		m.viewport.SetContent(m.content)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m pagerModel) View() string {
	if !m.ready {
		return "Loading..."
	}
	out := m.viewport.View() + "\n" + m.theme.HelpStyle().Render("↑/↓ scroll • q quit")
	pad := 0
	if m.maxWidth > 0 && m.width > m.maxWidth {
		pad = (m.width - m.maxWidth) / 2
	}
	if pad == 0 {
		return out
	}
	prefix := strings.Repeat(" ", pad)
	lines := strings.Split(out, "\n")
	for i := range lines {
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\n")
}

// Page writes content to w. On a terminal that is too short for it the
// content is shown in a scrollable pager instead.
func Page(w io.Writer, content string, maxWidth int, theme Theme) error {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		_, err := fmt.Fprint(w, content)
		return err
	}
	_, height, err := term.GetSize(int(f.Fd()))
	if err != nil || strings.Count(content, "\n")+1 <= height-2 {
		_, err := fmt.Fprint(w, content)
		return err
	}
	p := tea.NewProgram(pagerModel{content: content, maxWidth: maxWidth, theme: theme}, tea.WithAltScreen(), tea.WithOutput(w))
	_, err = p.Run()
	return err
}
