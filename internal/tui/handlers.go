package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/agenda/internal/constants"
	"github.com/julianstephens/agenda/internal/models"
	"github.com/julianstephens/agenda/internal/tui/components/habits"
	"github.com/julianstephens/agenda/internal/tui/components/journal"
	"github.com/julianstephens/agenda/internal/tui/components/tasklist"
	"github.com/julianstephens/agenda/internal/utils"
)

// handleComponentMsg applies the messages emitted by the tab components
func (m *Model) handleComponentMsg(msg tea.Msg) (bool, tea.Cmd) {
	switch msg := msg.(type) {
	case tasklist.AddTaskMsg:
		return true, m.startInput(constants.StateAddTask, "", "", "New task (add #category at the end)")
	case tasklist.EditTaskMsg:
		return true, m.startInput(constants.StateEditTask, msg.Task.ID, msg.Task.Text, "Edit task")
	case tasklist.ToggleTaskMsg:
		m.todos.Toggle(msg.ID)
		return true, nil
	case tasklist.DeleteTaskMsg:
		m.todos.Delete(msg.ID)
		return true, nil
	case tasklist.MoveTaskMsg:
		m.moveTask(msg.ID, msg.Delta)
		return true, nil
	case tasklist.PostponeTaskMsg:
		m.todos.Reschedule(msg.ID, m.day.AddDate(0, 0, 1))
		return true, nil

	case journal.AddEntryMsg:
		return true, m.startInput(constants.StateAddEntry, "", "", "New entry")
	case journal.EditEntryMsg:
		return true, m.startInput(constants.StateEditEntry, msg.Entry.ID, msg.Entry.Text, "Edit entry")
	case journal.DeleteEntryMsg:
		m.journal.Delete(msg.ID)
		return true, nil
	case journal.ToggleArchiveMsg:
		m.archive = !m.archive
		if err := m.openJournal(); err != nil {
			return true, m.setStatus(fmt.Sprintf("failed to load journal: %v", err))
		}
		m.refresh()
		return true, nil

	case habits.AddHabitMsg:
		m.habitForm = &HabitFormModel{Type: constants.HabitCount, Target: "1"}
		m.form = NewHabitForm(m.habitForm, m.theme())
		m.previousState = m.state
		m.state = constants.StateAddHabit
		return true, m.form.Init()
	case habits.StepHabitMsg:
		if msg.Down {
			m.habits.Decrement(msg.ID)
		} else {
			m.habits.Increment(msg.ID)
		}
		return true, nil
	case habits.ResetHabitMsg:
		m.habits.Reset(msg.ID)
		return true, nil
	case habits.PauseHabitMsg:
		m.habits.SetPaused(msg.ID, msg.Paused)
		return true, nil
	case habits.ArchiveHabitMsg:
		m.habits.SetArchived(msg.ID, true)
		return true, m.setStatus("Habit archived. Restore it with 'agenda habit archive --restore'.")
	case habits.DeleteHabitMsg:
		if m.confirmDelete != msg.ID {
			m.confirmDelete = msg.ID
			return true, m.setStatus("Press D again to delete this habit. Its logs are kept.")
		}
		m.confirmDelete = ""
		m.habits.Delete(msg.ID)
		return true, m.setStatus("Habit deleted.")
	}
	return false, nil
}

// moveTask swaps a task with its neighbour on the same day and rewrites
// that day's order
func (m *Model) moveTask(id string, delta int) {
	items := m.todos.Items()
	var target *models.Todo
	for i := range items {
		if items[i].ID == id {
			target = &items[i]
			break
		}
	}
	if target == nil {
		return
	}

	var day []models.Todo
	idx := -1
	for _, t := range items {
		if utils.IsSameDay(t.CreatedAt, target.CreatedAt) {
			if t.ID == id {
				idx = len(day)
			}
			day = append(day, t)
		}
	}
	j := idx + delta
	if idx < 0 || j < 0 || j >= len(day) {
		return
	}
	day[idx], day[j] = day[j], day[idx]
	m.todos.Reorder(day)
}

func (m *Model) startInput(state constants.SessionState, id, value, placeholder string) tea.Cmd {
	m.previousState = m.state
	m.state = state
	m.editingID = id
	m.input.Reset()
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) endInput() {
	m.input.Blur()
	m.input.Reset()
	m.editingID = ""
	m.state = m.previousState
}

func (m Model) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.Type {
		case tea.KeyEsc:
			m.endInput()
			return m, nil
		case tea.KeyEnter:
			m.commitInput(m.input.Value())
			m.endInput()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) commitInput(value string) {
	switch m.state {
	case constants.StateAddTask:
		text, category := SplitCategory(value)
		m.todos.Add(text, category)
	case constants.StateEditTask:
		text, category := SplitCategory(value)
		m.todos.UpdateText(m.editingID, text)
		if category != "" && models.ValidText(text) {
			m.todos.SetCategory(m.editingID, category)
		}
	case constants.StateAddEntry:
		m.journal.Add(value)
	case constants.StateEditEntry:
		m.journal.Update(m.editingID, value)
	case constants.StateEditFocus:
		m.focus.SetText(value)
	}
}

// SplitCategory takes a trailing #word off text as the task category
func SplitCategory(s string) (text, category string) {
	s = strings.TrimSpace(s)
	i := strings.LastIndex(s, " #")
	if i < 0 {
		return s, ""
	}
	tag := strings.TrimSpace(s[i+2:])
	if tag == "" || strings.ContainsAny(tag, " \t") {
		return s, ""
	}
	return strings.TrimSpace(s[:i]), strings.ToLower(tag)
}
