package ui

import (
	"bytes"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/chris-regnier/diaryweb/internal/config"
)

func TestPagerViewPreservesContent(t *testing.T) {
	m := pagerModel{
		content: "This is the pager content",
		theme:   ResolveTheme(config.ThemeConfig{}),
	}
	if m.View() != "Loading..." {
		t.Error("expected loading before the first size message")
	}

	sized, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	out := stripANSI(sized.(pagerModel).View())
	if !strings.Contains(out, "pager content") {
		t.Error("expected pager content in output")
	}
	if !strings.Contains(out, "scroll") {
		t.Error("expected footer help text in output")
	}
}

func TestPagerCentersWithMaxWidth(t *testing.T) {
	m := pagerModel{content: "centered", maxWidth: 60, theme: ResolveTheme(config.ThemeConfig{})}
	sized, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 10})
	pm := sized.(pagerModel)

	if pm.viewport.Width != 60 {
		t.Errorf("expected viewport width 60, got %d", pm.viewport.Width)
	}
	first := strings.Split(stripANSI(pm.View()), "\n")[0]
	if !strings.HasPrefix(first, strings.Repeat(" ", 20)+"centered") {
		t.Errorf("expected 20 columns of padding, got %q", first)
	}
}

func TestPagerQuitKey(t *testing.T) {
	m := pagerModel{}
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestPageWritesDirectlyWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	if err := Page(&buf, "line 1\nline 2\n", 100, ResolveTheme(config.ThemeConfig{})); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "line 1\nline 2\n" {
		t.Errorf("unexpected output %q", buf.String())
	}
}
