package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/agenda/internal/constants"
)

// palette holds the colors that differ between the light and dark themes
type palette struct {
	accent, tabBg, muted, text, focus, done, danger, warning, snackFg, snackBg lipgloss.Color
}

var palettes = map[string]palette{
	constants.ThemeDark: {
		accent: "205", tabBg: "236", muted: "240", text: "252",
		focus: "141", done: "42", danger: "196", warning: "214",
		snackFg: "230", snackBg: "238",
	},
	constants.ThemeLight: {
		accent: "162", tabBg: "254", muted: "245", text: "235",
		focus: "55", done: "28", danger: "160", warning: "130",
		snackFg: "235", snackBg: "252",
	},
}

type styles struct {
	activeTab, inactiveTab, day, focus, focusDone, danger, warning, snackbar, doc lipgloss.Style
}

func newStyles(theme string) styles {
	p, ok := palettes[theme]
	if !ok {
		p = palettes[constants.ThemeDark]
	}
	focus := lipgloss.NewStyle().Foreground(p.focus).Padding(0, 2)
	return styles{
		activeTab: lipgloss.NewStyle().
			Foreground(p.accent).
			Background(p.tabBg).
			Padding(0, 1).
			Bold(true),
		inactiveTab: lipgloss.NewStyle().Foreground(p.muted).Padding(0, 1),
		day:         lipgloss.NewStyle().Foreground(p.text).Padding(0, 2),
		focus:       focus,
		focusDone:   focus.Foreground(p.done).Strikethrough(true),
		danger:      lipgloss.NewStyle().Foreground(p.danger).Bold(true),
		warning:     lipgloss.NewStyle().Foreground(p.warning).Italic(true),
		snackbar: lipgloss.NewStyle().
			Foreground(p.snackFg).
			Background(p.snackBg).
			Padding(0, 1),
		doc: lipgloss.NewStyle().Padding(1, 2),
	}
}

// currentStyles follows the theme preference, so a settings change applies
// on the next render
func (m Model) currentStyles() styles {
	theme := constants.ThemeDark
	if m.prefs != nil {
		theme = m.prefs.Get().Theme
	}
	return newStyles(theme)
}
