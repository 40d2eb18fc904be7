package habits

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/agenda/internal/constants"
	"github.com/julianstephens/agenda/internal/models"
)

type AddHabitMsg struct{}

type StepHabitMsg struct {
	ID   string
	Down bool
}

type ResetHabitMsg struct {
	ID string
}

type PauseHabitMsg struct {
	ID     string
	Paused bool
}

type ArchiveHabitMsg struct {
	ID string
}

type DeleteHabitMsg struct {
	ID string
}

type Item struct {
	Habit  models.Habit
	Value  int
	Status models.Status
	bar    progress.Model
}

func (i Item) Title() string {
	var mark string
	switch i.Status {
	case models.StatusSuccess:
		mark = "●"
	case models.StatusPartial:
		mark = "◐"
	case models.StatusOverage:
		mark = "▲"
	case models.StatusInactive:
		mark = " "
	default:
		mark = "○"
	}
	title := mark + " " + i.Habit.Name
	if i.Habit.Paused {
		title += " (paused)"
	}
	return title
}

func (i Item) Description() string {
	desc := fmt.Sprintf("%d/%d", i.Value, i.Habit.Target)
	if i.Habit.Type == constants.HabitTime {
		desc += " min"
	} else if i.Habit.Unit != "" {
		desc += " " + i.Habit.Unit
	}
	desc += " | " + string(i.Habit.Type) + " | " + models.FormatFrequency(i.Habit.Frequency)
	return i.bar.ViewAs(float64(models.Progress(i.Value, i.Habit.Target))/100) + " " + desc
}

func (i Item) FilterValue() string { return i.Habit.Name }

type KeyMap struct {
	Add       key.Binding
	Increment key.Binding
	Decrement key.Binding
	Reset     key.Binding
	Pause     key.Binding
	Archive   key.Binding
	Delete    key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		Increment: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "increase"),
		),
		Decrement: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "decrease"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reset"),
		),
		Pause: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "pause/resume"),
		),
		Archive: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "archive"),
		),
		Delete: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "delete"),
		),
	}
}

func (k KeyMap) Bindings() []key.Binding {
	return []key.Binding{k.Add, k.Increment, k.Decrement, k.Reset, k.Pause, k.Archive, k.Delete}
}

type Model struct {
	list list.Model
	keys KeyMap
	bar  progress.Model
}

func (m Model) items(habits []models.Habit, logs map[string]int, day time.Time) []list.Item {
	out := make([]list.Item, len(habits))
	for i, h := range habits {
		v := logs[h.ID]
		out[i] = Item{Habit: h, Value: v, Status: h.StatusOn(day, v), bar: m.bar}
	}
	return out
}

func New(habits []models.Habit, logs map[string]int, day time.Time, width, height int) Model {
	m := Model{
		keys: DefaultKeyMap(),
		bar:  progress.New(progress.WithDefaultGradient(), progress.WithWidth(20), progress.WithoutPercentage()),
	}
	l := list.New(nil, list.NewDefaultDelegate(), width, height)
	l.Title = "Habits"
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit.SetEnabled(false)
	m.list = l
	m.list.SetItems(m.items(habits, logs, day))
	return m
}

// SetHabits replaces the rows with active habits and their values on day
func (m *Model) SetHabits(habits []models.Habit, logs map[string]int, day time.Time) {
	m.list.SetItems(m.items(habits, logs, day))
}

func (m Model) Selected() *models.Habit {
	if i, ok := m.list.SelectedItem().(Item); ok {
		h := i.Habit
		return &h
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
			return m, func() tea.Msg { return AddHabitMsg{} }
		}
		if h := m.Selected(); h != nil {
			id := h.ID
			switch {
			case key.Matches(msg, m.keys.Increment):
				return m, func() tea.Msg { return StepHabitMsg{ID: id} }
			case key.Matches(msg, m.keys.Decrement):
				return m, func() tea.Msg { return StepHabitMsg{ID: id, Down: true} }
			case key.Matches(msg, m.keys.Reset):
				return m, func() tea.Msg { return ResetHabitMsg{ID: id} }
			case key.Matches(msg, m.keys.Pause):
				paused := !h.Paused
				return m, func() tea.Msg { return PauseHabitMsg{ID: id, Paused: paused} }
			case key.Matches(msg, m.keys.Archive):
				return m, func() tea.Msg { return ArchiveHabitMsg{ID: id} }
			case key.Matches(msg, m.keys.Delete):
				return m, func() tea.Msg { return DeleteHabitMsg{ID: id} }
			}
		}
	}

	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return "\n  No habits yet.\n  Press 'a' to add one."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
