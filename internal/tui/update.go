package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/agenda/internal/constants"
	"github.com/julianstephens/agenda/internal/utils"
)

const tabCount = 3

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resize()
		return m, nil

	case viewChangedMsg:
		m.refresh()
		return m, nil

	case undoChangedMsg:
		m.tickID++
		if m.deps.Undo != nil && m.deps.Undo.Remaining() > 0 {
			return m, undoTick(m.tickID)
		}
		return m, nil

	case undoTickMsg:
		if msg.id == m.tickID && m.deps.Undo != nil && m.deps.Undo.Remaining() > 0 {
			return m, undoTick(m.tickID)
		}
		return m, nil

	case writeFailedMsg:
		cmd := m.setStatus(fmt.Sprintf("%s failed: %v", msg.op, msg.err))
		m.statusErr = true
		return m, cmd

	case clearStatusMsg:
		if msg.id == m.statusID {
			m.status = ""
		}
		return m, nil
	}

	switch m.state {
	case constants.StateAddTask, constants.StateEditTask, constants.StateAddEntry,
		constants.StateEditEntry, constants.StateEditFocus:
		return m.updateInput(msg)
	case constants.StateAddHabit:
		return m.updateHabitForm(msg)
	}

	if handled, cmd := m.handleComponentMsg(msg); handled {
		return m, cmd
	}

	if msg, ok := msg.(tea.KeyMsg); ok && !(m.state == constants.StateJournal && m.journalList.Filtering()) {
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Tab):
			m.state = (m.state + 1) % tabCount
			return m, nil
		case key.Matches(msg, m.keys.ShiftTab):
			m.state = (m.state - 1 + tabCount) % tabCount
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			m.resize()
			return m, nil
		case key.Matches(msg, m.keys.PrevDay):
			return m, m.setDay(m.day.AddDate(0, 0, -1))
		case key.Matches(msg, m.keys.NextDay):
			return m, m.setDay(m.day.AddDate(0, 0, 1))
		case key.Matches(msg, m.keys.Today):
			return m, m.setDay(m.now())
		case key.Matches(msg, m.keys.Undo):
			if m.deps.Undo != nil && m.deps.Undo.Undo() {
				return m, m.setStatus("Restored.")
			}
			return m, nil
		case key.Matches(msg, m.keys.Focus):
			if m.focus != nil {
				return m, m.startInput(constants.StateEditFocus, "", m.focus.Get().Text, "Today's focus")
			}
			return m, nil
		case key.Matches(msg, m.keys.FocusDone):
			if m.focus != nil {
				m.focus.Toggle()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch m.state {
	case constants.StateTasks:
		m.taskList, cmd = m.taskList.Update(msg)
	case constants.StateJournal:
		m.journalList, cmd = m.journalList.Update(msg)
	case constants.StateHabits:
		m.habitList, cmd = m.habitList.Update(msg)
	}
	return m, cmd
}

func (m *Model) resize() {
	header := 4
	footer := 3
	if m.help.ShowAll {
		footer += 4
	}
	h := m.height - header - footer
	if h < 3 {
		h = 3
	}
	w := m.width - 4
	if w < 10 {
		w = 10
	}
	m.taskList.SetSize(w, h)
	m.journalList.SetSize(w, h)
	m.habitList.SetSize(w, h)
	m.input.Width = w - 4
}

func (m *Model) setStatus(s string) tea.Cmd {
	m.statusID++
	m.status = s
	m.statusErr = false
	return clearStatus(m.statusID)
}

// setDay re-opens the views for day
func (m *Model) setDay(day time.Time) tea.Cmd {
	m.day = utils.StartOfDay(day)
	m.confirmDelete = ""
	if err := m.openViews(); err != nil {
		return m.setStatus(fmt.Sprintf("failed to load day: %v", err))
	}
	return nil
}
