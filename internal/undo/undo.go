// Package undo holds at most one recently deleted record so it can be put back
// for a short window after the delete has already been committed.
package undo

import (
	"sync"
	"time"

	"github.com/julianstephens/agenda/internal/constants"
	"github.com/julianstephens/agenda/internal/logger"
)

// Timer is the subset of *time.Timer the coordinator needs
type Timer interface {
	Stop() bool
}

// Clock supplies time to the coordinator
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// PendingDeletion describes the record currently waiting in the undo slot
type PendingDeletion struct {
	ID        string
	Type      constants.EntityType
	Snapshot  any
	Timestamp time.Time

	onUndo    func()
	onConfirm func()
	timer     Timer
	gen       uint64
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithClock replaces the wall clock, mainly for tests
func WithClock(clock Clock) Option {
	return func(c *Coordinator) { c.clock = clock }
}

// Coordinator is a single-slot undo buffer. The zero value is not usable; use New.
type Coordinator struct {
	// ops serializes ScheduleDelete, Undo and Dismiss so callbacks from one
	// operation finish before the next starts
	ops sync.Mutex

	mu        sync.Mutex
	clock     Clock
	window    time.Duration
	pending   *PendingDeletion
	gen       uint64
	listeners map[int]func(*PendingDeletion)
	nextID    int
}

// New returns an idle coordinator with the standard undo window
func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		clock:     systemClock{},
		window:    constants.UndoWindow,
		listeners: make(map[int]func(*PendingDeletion)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Window returns how long a deletion remains undoable
func (c *Coordinator) Window() time.Duration {
	return c.window
}

// ScheduleDelete commits a deletion and makes it undoable for the window.
//
// A different record already in the slot is finalized first: its timer is
// stopped and its onConfirm runs again, so onConfirm must be idempotent. The
// new onConfirm runs before ScheduleDelete returns.
//
// onUndo, onConfirm and OnChange listeners run while the coordinator is
// busy. They may call Pending, Remaining and Window but must not call
// ScheduleDelete, Undo or Dismiss, which would deadlock.
func (c *Coordinator) ScheduleDelete(id string, typ constants.EntityType, snapshot any, onUndo, onConfirm func()) {
	c.ops.Lock()
	defer c.ops.Unlock()

	c.mu.Lock()
	prev := c.pending
	c.pending = nil
	if prev != nil {
		prev.timer.Stop()
	}
	c.mu.Unlock()

	if prev != nil && prev.ID != id {
		logger.Debug("Finalizing replaced deletion", "id", prev.ID, "type", prev.Type)
		call(prev.onConfirm)
	}

	call(onConfirm)

	c.mu.Lock()
	c.gen++
	entry := &PendingDeletion{
		ID:        id,
		Type:      typ,
		Snapshot:  snapshot,
		Timestamp: c.clock.Now(),
		onUndo:    onUndo,
		onConfirm: onConfirm,
		gen:       c.gen,
	}
	gen := entry.gen
	entry.timer = c.clock.AfterFunc(c.window, func() { c.expire(gen) })
	c.pending = entry
	c.mu.Unlock()

	logger.Debug("Deletion pending", "id", id, "type", typ)
	c.notify()
}

// Undo restores the pending record, if any, by running its onUndo
func (c *Coordinator) Undo() bool {
	c.ops.Lock()
	defer c.ops.Unlock()

	entry := c.take()
	if entry == nil {
		return false
	}
	logger.Debug("Undoing deletion", "id", entry.ID, "type", entry.Type)
	call(entry.onUndo)
	c.notify()
	return true
}

// Dismiss makes the pending deletion permanent now without calling any callback
func (c *Coordinator) Dismiss() {
	c.ops.Lock()
	defer c.ops.Unlock()

	if c.take() != nil {
		c.notify()
	}
}

// Pending returns a copy of the slot contents
func (c *Coordinator) Pending() (PendingDeletion, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return PendingDeletion{}, false
	}
	return *c.pending, true
}

// Remaining returns how much of the undo window is left, or zero when idle
func (c *Coordinator) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return 0
	}
	left := c.window - c.clock.Now().Sub(c.pending.Timestamp)
	if left < 0 {
		return 0
	}
	return left
}

// OnChange registers fn to be called whenever the slot changes. fn receives
// nil when the slot becomes empty. The returned func unregisters it. fn has
// the same restrictions as the ScheduleDelete callbacks.
func (c *Coordinator) OnChange(fn func(*PendingDeletion)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Coordinator) take() *PendingDeletion {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := c.pending
	if entry == nil {
		return nil
	}
	entry.timer.Stop()
	c.pending = nil
	return entry
}

func (c *Coordinator) expire(gen uint64) {
	c.mu.Lock()
	if c.pending == nil || c.pending.gen != gen {
		c.mu.Unlock()
		return
	}
	logger.Debug("Deletion is now permanent", "id", c.pending.ID, "type", c.pending.Type)
	c.pending = nil
	c.mu.Unlock()
	c.notify()
}

func (c *Coordinator) notify() {
	c.mu.Lock()
	var current *PendingDeletion
	if c.pending != nil {
		cp := *c.pending
		current = &cp
	}
	fns := make([]func(*PendingDeletion), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(current)
	}
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}
