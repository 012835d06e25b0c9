package ui

import (
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

type confirmModel struct {
	prompt    string
	confirmed bool
	done      bool
	theme     Theme
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch strings.ToLower(key.String()) {
	case "y":
		m.confirmed, m.done = true, true
		return m, tea.Quit
	case "n", "enter", "esc", "ctrl+c":
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m confirmModel) View() string {
	if m.done {
		return ""
	}
	return m.theme.HeaderStyle().Render(m.prompt) + " " + m.theme.DangerStyle().Render("[y/N]") + " "
}

// Confirm asks a y/N question on the terminal. Anything but y is a no.
func Confirm(prompt string, theme Theme) (bool, error) {
	return confirm(prompt, theme)
}

func confirm(prompt string, theme Theme, opts ...tea.ProgramOption) (bool, error) {
	result, err := tea.NewProgram(confirmModel{prompt: prompt, theme: theme}, opts...).Run()
	if err != nil {
		return false, err
	}
	return result.(confirmModel).confirmed, nil
}

// ConfirmFrom is Confirm reading keys from in and drawing to out.
func ConfirmFrom(in io.Reader, out io.Writer, prompt string, theme Theme) (bool, error) {
	return confirm(prompt, theme, tea.WithInput(in), tea.WithOutput(out))
}
