// Package prefs keeps user preferences on the device and mirrors them to the
// user's root document, plus the device-local daily focus.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/julianstephens/agenda/internal/constants"
	"github.com/julianstephens/agenda/internal/logger"
	"github.com/julianstephens/agenda/internal/models"
	"github.com/julianstephens/agenda/internal/storage"
)

// Manager combines the local copy with the remote users/{uid} document.
// A nil store makes it local only.
type Manager struct {
	local  *Local
	store  storage.Provider
	userID string

	mu      sync.Mutex
	current models.Preferences
}

func New(local *Local, store storage.Provider, userID string) *Manager {
	return &Manager{
		local:   local,
		store:   store,
		userID:  userID,
		current: local.Preferences(),
	}
}

func (m *Manager) Get() models.Preferences {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Sync reconciles on login: per key the remote value wins when present,
// otherwise the local value is pushed up
func (m *Manager) Sync(ctx context.Context) error {
	if m.store == nil || m.userID == "" {
		return nil
	}

	remote := make(map[string]string)
	doc, err := m.store.Get(ctx, storage.UserDoc(m.userID))
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return fmt.Errorf("failed to read remote preferences: %w", err)
	default:
		if raw, ok := doc.Fields[constants.PreferencesField].(map[string]any); ok {
			for k, v := range raw {
				if s, ok := v.(string); ok && s != "" {
					remote[k] = s
				}
			}
		}
	}

	m.mu.Lock()
	merged := models.PreferencesToMap(m.current)
	push := make(map[string]any)
	for key, local := range merged {
		if r, ok := remote[key]; ok {
			merged[key] = r
		} else {
			push[key] = local
		}
	}
	p := models.MapToPreferences(merged)
	models.ApplyDefaultPreferences(&p)
	if err := p.Validate(); err != nil {
		logger.Warn("Ignoring invalid remote preferences", "error", err)
		p = m.current
	}
	m.current = p
	m.mu.Unlock()

	if err := m.local.SavePreferences(p); err != nil {
		logger.Error("Failed to save preferences locally", "error", err)
	}
	if len(push) > 0 {
		m.pushRemote(ctx, push)
	}
	return nil
}

// Update applies patch locally and merges it into the remote document.
// Invalid values are rejected; remote write failures are only logged.
func (m *Manager) Update(ctx context.Context, patch map[string]string) error {
	m.mu.Lock()
	next := models.PreferencesToMap(m.current)
	for k, v := range patch {
		if _, known := next[k]; !known {
			m.mu.Unlock()
			return fmt.Errorf("unknown setting %q", k)
		}
		next[k] = v
	}
	p := models.MapToPreferences(next)
	if err := p.Validate(); err != nil {
		m.mu.Unlock()
		return err
	}
	m.current = p
	m.mu.Unlock()

	if err := m.local.SavePreferences(p); err != nil {
		return err
	}
	fields := make(map[string]any, len(patch))
	for k, v := range patch {
		fields[k] = v
	}
	m.pushRemote(ctx, fields)
	return nil
}

func (m *Manager) pushRemote(ctx context.Context, fields map[string]any) {
	if m.store == nil || m.userID == "" {
		return
	}
	err := m.store.Write(ctx, storage.UserDoc(m.userID),
		storage.Fields{constants.PreferencesField: fields},
		storage.WriteOptions{Merge: true})
	if err != nil {
		logger.Error("Failed to sync preferences", "user", m.userID, "error", err)
	}
}
