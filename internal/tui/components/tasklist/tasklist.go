package tasklist

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/agenda/internal/models"
	"github.com/julianstephens/agenda/internal/utils"
)

type AddTaskMsg struct{}

type ToggleTaskMsg struct {
	ID string
}

type EditTaskMsg struct {
	Task models.Todo
}

type DeleteTaskMsg struct {
	ID string
}

// MoveTaskMsg moves a task Delta places within its day
type MoveTaskMsg struct {
	ID    string
	Delta int
}

// PostponeTaskMsg moves a task to the day after the one shown
type PostponeTaskMsg struct {
	ID string
}

type Item struct {
	Task  models.Todo
	Today time.Time
}

func (i Item) Title() string {
	if i.Task.Completed {
		return "[x] " + i.Task.Text
	}
	return "[ ] " + i.Task.Text
}

func (i Item) Description() string {
	desc := i.Task.Category
	if !utils.IsSameDay(i.Task.CreatedAt, i.Today) {
		desc += " | from " + i.Task.CreatedAt.Format("Mon Jan 2")
	}
	return desc
}

func (i Item) FilterValue() string { return i.Task.Text }

type KeyMap struct {
	Add      key.Binding
	Toggle   key.Binding
	Edit     key.Binding
	Delete   key.Binding
	MoveUp   key.Binding
	MoveDown key.Binding
	Postpone key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "x"),
			key.WithHelp("space", "toggle"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		MoveUp: key.NewBinding(
			key.WithKeys("K", "shift+up"),
			key.WithHelp("K", "move up"),
		),
		MoveDown: key.NewBinding(
			key.WithKeys("J", "shift+down"),
			key.WithHelp("J", "move down"),
		),
		Postpone: key.NewBinding(
			key.WithKeys(">"),
			key.WithHelp(">", "next day"),
		),
	}
}

func (k KeyMap) Bindings() []key.Binding {
	return []key.Binding{k.Add, k.Toggle, k.Edit, k.Delete, k.MoveUp, k.MoveDown, k.Postpone}
}

type Model struct {
	list list.Model
	keys KeyMap
}

func items(tasks []models.Todo, today time.Time) []list.Item {
	out := make([]list.Item, len(tasks))
	for i, t := range tasks {
		out[i] = Item{Task: t, Today: today}
	}
	return out
}

func New(tasks []models.Todo, today time.Time, width, height int) Model {
	l := list.New(items(tasks, today), list.NewDefaultDelegate(), width, height)
	l.Title = "Tasks"
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit.SetEnabled(false)

	return Model{list: l, keys: DefaultKeyMap()}
}

// SetTasks replaces the rows, keeping the cursor on the same task when it
// is still present
func (m *Model) SetTasks(tasks []models.Todo, today time.Time) {
	selected := m.Selected()
	m.list.SetItems(items(tasks, today))
	if selected == nil {
		return
	}
	for i, t := range tasks {
		if t.ID == selected.ID {
			m.list.Select(i)
			return
		}
	}
}

func (m Model) Selected() *models.Todo {
	if i, ok := m.list.SelectedItem().(Item); ok {
		t := i.Task
		return &t
	}
	return nil
}

func (m Model) Keys() KeyMap {
	return m.keys
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	if msg, ok := msg.(tea.KeyMsg); ok {
		if key.Matches(msg, m.keys.Add) {
			return m, func() tea.Msg { return AddTaskMsg{} }
		}
		if t := m.Selected(); t != nil {
			id := t.ID
			switch {
			case key.Matches(msg, m.keys.Toggle):
				return m, func() tea.Msg { return ToggleTaskMsg{ID: id} }
			case key.Matches(msg, m.keys.Edit):
				task := *t
				return m, func() tea.Msg { return EditTaskMsg{Task: task} }
			case key.Matches(msg, m.keys.Delete):
				return m, func() tea.Msg { return DeleteTaskMsg{ID: id} }
			case key.Matches(msg, m.keys.MoveUp):
				return m, func() tea.Msg { return MoveTaskMsg{ID: id, Delta: -1} }
			case key.Matches(msg, m.keys.MoveDown):
				return m, func() tea.Msg { return MoveTaskMsg{ID: id, Delta: 1} }
			case key.Matches(msg, m.keys.Postpone):
				return m, func() tea.Msg { return PostponeTaskMsg{ID: id} }
			}
		}
	}

	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return "\n  No tasks for this day.\n  Press 'a' to add one."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
