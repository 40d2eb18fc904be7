package journal

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/agenda/internal/constants"
	"github.com/julianstephens/agenda/internal/models"
)

type AddEntryMsg struct{}

type EditEntryMsg struct {
	Entry models.JournalEntry
}

type DeleteEntryMsg struct {
	ID string
}

type ToggleArchiveMsg struct{}

type Item struct {
	Entry   models.JournalEntry
	Archive bool
}

func (i Item) Title() string {
	text := strings.TrimSpace(i.Entry.Text)
	if line, _, ok := strings.Cut(text, "\n"); ok {
		return line + " …"
	}
	return text
}

func (i Item) Description() string {
	var desc string
	if i.Archive {
		desc = i.Entry.Date.Format(constants.MonthFormat) + " | " + i.Entry.Date.Format("Mon Jan 2 "+constants.TimeFormat)
	} else {
		desc = i.Entry.Date.Format(constants.TimeFormat)
	}
	if i.Entry.Edited() {
		desc += " | edited " + i.Entry.UpdatedAt.Format("Jan 2 "+constants.TimeFormat)
	}
	return desc
}

func (i Item) FilterValue() string { return i.Entry.Text }

type KeyMap struct {
	Add     key.Binding
	Edit    key.Binding
	Delete  key.Binding
	Archive key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Archive: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "day/archive"),
		),
	}
}

func (k KeyMap) Bindings() []key.Binding {
	return []key.Binding{k.Add, k.Edit, k.Delete, k.Archive}
}

type Model struct {
	list    list.Model
	keys    KeyMap
	archive bool
}

func items(entries []models.JournalEntry, archive bool) []list.Item {
	out := make([]list.Item, len(entries))
	for i, e := range entries {
		out[i] = Item{Entry: e, Archive: archive}
	}
	return out
}

func New(entries []models.JournalEntry, archive bool, width, height int) Model {
	l := list.New(items(entries, archive), list.NewDefaultDelegate(), width, height)
	l.Title = "Journal"
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.KeyMap.Quit.SetEnabled(false)

	return Model{list: l, keys: DefaultKeyMap(), archive: archive}
}

func (m *Model) SetEntries(entries []models.JournalEntry, archive bool) {
	m.archive = archive
	m.list.SetItems(items(entries, archive))
}

func (m Model) Selected() *models.JournalEntry {
	if i, ok := m.list.SelectedItem().(Item); ok {
		e := i.Entry
		return &e
	}
	return nil
}

func (m Model) Keys() KeyMap {
	return m.keys
}

// Filtering reports whether the list is capturing keys for its filter
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.Filtering() {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Add):
			if !m.archive {
				return m, func() tea.Msg { return AddEntryMsg{} }
			}
		case key.Matches(msg, m.keys.Archive):
			return m, func() tea.Msg { return ToggleArchiveMsg{} }
		case key.Matches(msg, m.keys.Edit):
			if e := m.Selected(); e != nil {
				entry := *e
				return m, func() tea.Msg { return EditEntryMsg{Entry: entry} }
			}
		case key.Matches(msg, m.keys.Delete):
			if e := m.Selected(); e != nil {
				id := e.ID
				return m, func() tea.Msg { return DeleteEntryMsg{ID: id} }
			}
		}
	}

	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 && !m.Filtering() {
		if m.archive {
			return "\n  The journal is empty."
		}
		return "\n  Nothing written on this day.\n  Press 'a' to write an entry."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
