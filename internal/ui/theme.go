package ui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"
	"github.com/chris-regnier/diaryweb/internal/config"
)

const defaultPreset = "default-dark"

// Theme holds resolved lipgloss colors for TUI rendering.
type Theme struct {
	Primary       lipgloss.Color
	Secondary     lipgloss.Color
	Accent        lipgloss.Color
	Muted         lipgloss.Color
	Danger        lipgloss.Color
	Background    lipgloss.Color
	MarkdownStyle string
}

func palette(primary, secondary, accent, muted, danger, bg, md string) Theme {
	return Theme{
		Primary:       lipgloss.Color(primary),
		Secondary:     lipgloss.Color(secondary),
		Accent:        lipgloss.Color(accent),
		Muted:         lipgloss.Color(muted),
		Danger:        lipgloss.Color(danger),
		Background:    lipgloss.Color(bg),
		MarkdownStyle: md,
	}
}

var presets = map[string]Theme{
	"default-dark":     palette("15", "243", "33", "241", "9", "235", "dark"),
	"default-light":    palette("0", "240", "27", "245", "1", "254", "light"),
	"dracula":          palette("#F8F8F2", "#6272A4", "#BD93F9", "#6272A4", "#FF5555", "#282A36", "dark"),
	"catppuccin-mocha": palette("#CDD6F4", "#585B70", "#CBA6F7", "#6C7086", "#F38BA8", "#1E1E2E", "dark"),
	"catppuccin-latte": palette("#4C4F69", "#9CA0B0", "#8839EF", "#9CA0B0", "#D20F39", "#EFF1F5", "light"),
	"gruvbox-dark":     palette("#EBDBB2", "#665C54", "#FABD2F", "#928374", "#FB4934", "#282828", "dark"),
	"gruvbox-light":    palette("#3C3836", "#A89984", "#D79921", "#928374", "#CC241D", "#FBF1C7", "light"),
}

// Presets returns the names of the built-in themes.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	return names
}

// ResolveTheme starts from the configured preset, falling back to
// default-dark, and applies any explicit color overrides.
func ResolveTheme(cfg config.ThemeConfig) Theme {
	theme, ok := presets[cfg.Preset]
	if !ok {
		theme = presets[defaultPreset]
	}

	overrides := []struct {
		value string
		dst   *lipgloss.Color
	}{
		{cfg.Primary, &theme.Primary},
		{cfg.Secondary, &theme.Secondary},
		{cfg.Accent, &theme.Accent},
		{cfg.Muted, &theme.Muted},
		{cfg.Danger, &theme.Danger},
		{cfg.Background, &theme.Background},
	}
	for _, o := range overrides {
		if o.value != "" {
			*o.dst = lipgloss.Color(o.value)
		}
	}
	if cfg.MarkdownStyle != "" {
		theme.MarkdownStyle = cfg.MarkdownStyle
	}
	return theme
}

func (t Theme) HelpStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Muted)
}

func (t Theme) HeaderStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(t.Primary)
}

// AccentStyle is used for focused inputs and badges.
func (t Theme) AccentStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Accent)
}

// DangerStyle is used for errors and delete prompts.
func (t Theme) DangerStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Danger)
}

// ModalStyle frames the detail and form overlays.
func (t Theme) ModalStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Secondary).
		Foreground(t.Primary).
		Padding(0, 1)
}

// NewList creates a list.Model styled with the theme.
func (t Theme) NewList(items []list.Item, width, height int) list.Model {
	d := list.NewDefaultDelegate()
	d.Styles.NormalTitle = lipgloss.NewStyle().Foreground(t.Primary).Padding(0, 0, 0, 2)
	d.Styles.NormalDesc = d.Styles.NormalTitle.Foreground(t.Muted)
	d.Styles.SelectedTitle = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(t.Accent).
		Foreground(t.Accent).
		Padding(0, 0, 0, 1)
	d.Styles.SelectedDesc = d.Styles.SelectedTitle.Foreground(t.Secondary)
	d.Styles.DimmedTitle = d.Styles.NormalTitle.Foreground(t.Muted)
	d.Styles.DimmedDesc = d.Styles.DimmedTitle

	l := list.New(items, d, width, height)
	l.Styles.Title = lipgloss.NewStyle().Bold(true).Foreground(t.Primary)
	l.Styles.FilterPrompt = lipgloss.NewStyle().Foreground(t.Accent)
	l.Styles.FilterCursor = lipgloss.NewStyle().Foreground(t.Accent)
	l.Styles.NoItems = lipgloss.NewStyle().Foreground(t.Muted)
	return l
}
