package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/agenda/internal/constants"
	"github.com/julianstephens/agenda/internal/models"
)

var tabTitles = []string{"Tasks", "Journal", "Habits"}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.state {
	case constants.StateTasks:
		content = m.taskList.View()
	case constants.StateJournal:
		content = m.journalList.View()
	case constants.StateHabits:
		content = m.habitList.View()
	case constants.StateAddHabit:
		if m.form != nil {
			content = m.form.View()
		}
	default:
		content = m.input.View()
	}

	st := m.currentStyles()
	parts := []string{m.viewTabs(st), m.viewDay(st), st.doc.Render(content)}
	if s := m.viewSnackbar(st); s != "" {
		parts = append(parts, s)
	}
	if m.status != "" {
		style := st.warning
		if m.statusErr {
			style = st.danger
		}
		parts = append(parts, style.Render(m.status))
	}
	parts = append(parts, m.help.View(m))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) activeTab() constants.SessionState {
	if m.editing() {
		return m.previousState
	}
	return m.state
}

func (m Model) viewTabs(st styles) string {
	var tabs []string
	for i, title := range tabTitles {
		if m.activeTab() == constants.SessionState(i) {
			tabs = append(tabs, st.activeTab.Render(title))
		} else {
			tabs = append(tabs, st.inactiveTab.Render(title))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) viewDay(st styles) string {
	label := m.day.Format("Monday, January 2")
	if m.isToday() {
		label = "Today · " + label
	}
	if m.activeTab() == constants.StateJournal && m.archive {
		label = "All entries"
	}
	line := st.day.Render(label)

	if m.focus != nil {
		f := m.focus.Get()
		switch {
		case f.Text == "":
			line += st.focus.Render("No focus set (f)")
		case f.Completed:
			line += st.focusDone.Render("Focus: " + f.Text)
		default:
			line += st.focus.Render("Focus: " + f.Text)
		}
	}
	return line
}

// viewSnackbar shows the pending deletion and the time left to undo it
func (m Model) viewSnackbar(st styles) string {
	if m.deps.Undo == nil {
		return ""
	}
	p, ok := m.deps.Undo.Pending()
	if !ok {
		return ""
	}
	remaining := m.deps.Undo.Remaining()
	if remaining <= 0 {
		return ""
	}

	var label string
	switch s := p.Snapshot.(type) {
	case models.Todo:
		label = "task " + quote(s.Text)
	case models.JournalEntry:
		label = "entry " + quote(s.Text)
	default:
		label = string(p.Type)
	}
	pct := float64(remaining) / float64(m.deps.Undo.Window())
	return st.snackbar.Render(fmt.Sprintf("Deleted %s. Press u to undo ", label)) + " " + m.snackbar.ViewAs(pct)
}

func quote(s string) string {
	s = strings.TrimSpace(s)
	if line, _, ok := strings.Cut(s, "\n"); ok {
		s = line
	}
	if r := []rune(s); len(r) > 30 {
		s = string(r[:29]) + "…"
	}
	return fmt.Sprintf("%q", s)
}
