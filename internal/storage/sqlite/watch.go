package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/julianstephens/agenda/internal/logger"
)

const watchDelay = 100 * time.Millisecond

// Changes watches the database directory for writes by other processes.
// Any change to the database or its WAL files is reported as an empty
// collection name since the file does not say which rows moved. The channel
// is closed once ctx is done.
func (s *Store) Changes(ctx context.Context) (<-chan string, error) {
	dir := filepath.Dir(s.path)
	base := filepath.Base(s.path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	changes := make(chan string, 16)
	var (
		mu     sync.Mutex
		closed bool
	)
	send := func(collection string) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case changes <- collection:
		default:
			// a refresh is already queued
		}
	}

	go func() {
		throttle := newChangeThrottle(watchDelay)
		defer func() {
			throttle.Stop()
			watcher.Close()
			mu.Lock()
			closed = true
			close(changes)
			mu.Unlock()
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Debug("Database watcher error", "error", err)
				throttle.Enqueue("", send)
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !strings.HasPrefix(filepath.Base(evt.Name), base) {
					continue
				}
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				throttle.Enqueue("", send)
			}
		}
	}()

	return changes, nil
}

// changeThrottle coalesces bursts of file events into one notification per
// collection per delay window.
type changeThrottle struct {
	mu      sync.Mutex
	timer   *time.Timer
	pending map[string]struct{}
	delay   time.Duration
}

func newChangeThrottle(delay time.Duration) *changeThrottle {
	return &changeThrottle{
		delay:   delay,
		pending: make(map[string]struct{}),
	}
}

func (t *changeThrottle) Enqueue(collection string, send func(string)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pending[collection] = struct{}{}
	if t.timer == nil {
		t.timer = time.AfterFunc(t.delay, func() {
			t.flush(send)
		})
	}
}

func (t *changeThrottle) flush(send func(string)) {
	t.mu.Lock()
	pending := t.pending
	t.pending = make(map[string]struct{})
	t.timer = nil
	t.mu.Unlock()

	if _, ok := pending[""]; ok {
		send("")
		return
	}
	for collection := range pending {
		send(collection)
	}
}

func (t *changeThrottle) Stop() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()
}
