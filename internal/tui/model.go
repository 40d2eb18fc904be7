package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/agenda/internal/constants"
	"github.com/julianstephens/agenda/internal/live"
	"github.com/julianstephens/agenda/internal/prefs"
	"github.com/julianstephens/agenda/internal/tui/components/habits"
	"github.com/julianstephens/agenda/internal/tui/components/journal"
	"github.com/julianstephens/agenda/internal/tui/components/tasklist"
	"github.com/julianstephens/agenda/internal/undo"
	"github.com/julianstephens/agenda/internal/utils"
)

// Options are the collaborators the TUI runs against
type Options struct {
	Deps  live.Deps
	Prefs *prefs.Manager
	Focus *prefs.Focus
}

type HabitFormModel struct {
	Name   string
	Type   constants.HabitType
	Target string
	Unit   string
	Days   string
}

type Model struct {
	deps   live.Deps
	prefs  *prefs.Manager
	focus  *prefs.Focus
	events *bridge

	state         constants.SessionState
	previousState constants.SessionState
	keys          KeyMap
	help          help.Model
	day           time.Time
	archive       bool

	todos     *live.Todos
	journal   *live.Journal
	habits    *live.Habits
	unsubUndo func()

	taskList    tasklist.Model
	journalList journal.Model
	habitList   habits.Model

	input     textinput.Model
	editingID string
	form      *huh.Form
	habitForm *HabitFormModel

	snackbar      progress.Model
	tickID        int
	status        string
	statusID      int
	statusErr     bool
	confirmDelete string

	quitting bool
	width    int
	height   int
}

// NewModel opens the live views for today. Close releases them.
func NewModel(opts Options) (Model, error) {
	events := &bridge{}
	deps := opts.Deps
	sink := deps.OnError
	deps.OnError = func(op string, err error) {
		if sink != nil {
			sink(op, err)
		}
		events.post(writeFailedMsg{op: op, err: err})
	}

	input := textinput.New()
	input.CharLimit = 500

	m := Model{
		deps:     deps,
		prefs:    opts.Prefs,
		focus:    opts.Focus,
		events:   events,
		state:    constants.StateTasks,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		input:    input,
		snackbar: progress.New(progress.WithSolidFill("205"), progress.WithWidth(24), progress.WithoutPercentage()),
	}
	m.day = utils.StartOfDay(m.now())

	m.taskList = tasklist.New(nil, m.now(), 0, 0)
	m.journalList = journal.New(nil, false, 0, 0)
	m.habitList = habits.New(nil, nil, m.day, 0, 0)

	if err := m.openViews(); err != nil {
		m.Close()
		return Model{}, err
	}
	if deps.Undo != nil {
		m.unsubUndo = deps.Undo.OnChange(func(*undo.PendingDeletion) { events.post(undoChangedMsg{}) })
	}
	return m, nil
}

func (m Model) now() time.Time {
	if m.deps.Now != nil {
		return m.deps.Now()
	}
	return time.Now()
}

func (m Model) isToday() bool {
	return utils.IsSameDay(m.day, m.now())
}

func (m *Model) notify() func() {
	events := m.events
	return func() { events.post(viewChangedMsg{}) }
}

func (m *Model) openViews() error {
	if err := m.openTodos(); err != nil {
		return err
	}
	if err := m.openJournal(); err != nil {
		return err
	}
	if err := m.openHabits(); err != nil {
		return err
	}
	m.refresh()
	return nil
}

func (m *Model) openTodos() error {
	if m.todos != nil {
		m.todos.Close()
	}
	filter := live.Unfiltered
	if !m.isToday() {
		filter = live.ForDay(m.day)
	}
	v, err := live.NewTodos(context.Background(), m.deps, filter)
	if err != nil {
		m.todos = nil
		return err
	}
	v.OnChange(m.notify())
	m.todos = v
	return nil
}

func (m *Model) openJournal() error {
	if m.journal != nil {
		m.journal.Close()
	}
	var day *time.Time
	if !m.archive {
		d := m.day
		day = &d
	}
	v, err := live.NewJournal(context.Background(), m.deps, day)
	if err != nil {
		m.journal = nil
		return err
	}
	v.OnChange(m.notify())
	m.journal = v
	return nil
}

func (m *Model) openHabits() error {
	if m.habits != nil {
		m.habits.Close()
	}
	v, err := live.NewHabits(context.Background(), m.deps, m.day)
	if err != nil {
		m.habits = nil
		return err
	}
	v.OnChange(m.notify())
	m.habits = v
	return nil
}

// refresh copies the current view items into the components
func (m *Model) refresh() {
	if m.todos != nil {
		m.taskList.SetTasks(m.todos.Items(), m.now())
	}
	if m.journal != nil {
		m.journalList.SetEntries(m.journal.Items(), m.archive)
	}
	if m.habits != nil {
		m.habitList.SetHabits(m.habits.Active(), m.habits.Logs(), m.day)
	}
}

// Close unsubscribes every view and ends any pending undo window
func (m Model) Close() {
	if m.unsubUndo != nil {
		m.unsubUndo()
	}
	if m.deps.Undo != nil {
		m.deps.Undo.Dismiss()
	}
	if m.todos != nil {
		m.todos.Close()
	}
	if m.journal != nil {
		m.journal.Close()
	}
	if m.habits != nil {
		m.habits.Close()
	}
}

func (m Model) componentKeys() []key.Binding {
	switch m.state {
	case constants.StateTasks:
		return m.taskList.Keys().Bindings()
	case constants.StateJournal:
		return m.journalList.Keys().Bindings()
	case constants.StateHabits:
		return m.habitList.Keys().Bindings()
	}
	return nil
}

func (m Model) editing() bool {
	switch m.state {
	case constants.StateAddTask, constants.StateEditTask, constants.StateAddEntry,
		constants.StateEditEntry, constants.StateEditFocus, constants.StateAddHabit:
		return true
	}
	return false
}

func (m Model) ShortHelp() []key.Binding {
	if m.editing() {
		return []key.Binding{m.keys.Submit, m.keys.Cancel}
	}
	keys := []key.Binding{m.keys.Tab, m.keys.PrevDay, m.keys.NextDay, m.keys.Quit, m.keys.Help}
	return append(keys, m.componentKeys()...)
}

func (m Model) FullHelp() [][]key.Binding {
	if m.editing() {
		return [][]key.Binding{{m.keys.Submit, m.keys.Cancel}}
	}
	global := []key.Binding{m.keys.Tab, m.keys.ShiftTab, m.keys.Quit, m.keys.Help}
	days := []key.Binding{m.keys.PrevDay, m.keys.NextDay, m.keys.Today, m.keys.Undo, m.keys.Focus, m.keys.FocusDone}
	return [][]key.Binding{global, days, m.componentKeys()}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Run starts the TUI in the alternate screen and blocks until it exits
func Run(opts Options) error {
	m, err := NewModel(opts)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	m.events.attach(p.Send)

	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.Close()
	} else {
		m.Close()
	}
	return err
}
