package tui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// viewChangedMsg signals that a live view has new items
type viewChangedMsg struct{}

// undoChangedMsg signals that the undo slot was filled or emptied
type undoChangedMsg struct{}

type undoTickMsg struct {
	id int
}

type writeFailedMsg struct {
	op  string
	err error
}

// clearStatusMsg clears the status line if it still shows the message with id
type clearStatusMsg struct {
	id int
}

const (
	tickInterval  = 100 * time.Millisecond
	statusTimeout = 6 * time.Second
)

// bridge forwards callbacks from live views and the undo coordinator into
// the running program. Callbacks can fire from inside Update, so post never
// blocks the caller.
type bridge struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

func (b *bridge) attach(send func(tea.Msg)) {
	b.mu.Lock()
	b.send = send
	b.mu.Unlock()
}

func (b *bridge) post(msg tea.Msg) {
	b.mu.Lock()
	send := b.send
	b.mu.Unlock()
	if send == nil {
		return
	}
	go send(msg)
}

func undoTick(id int) tea.Cmd {
	return tea.Tick(tickInterval, func(time.Time) tea.Msg { return undoTickMsg{id: id} })
}

func clearStatus(id int) tea.Cmd {
	return tea.Tick(statusTimeout, func(time.Time) tea.Msg { return clearStatusMsg{id: id} })
}
