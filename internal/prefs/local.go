package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"

	"github.com/peterbourgon/diskv/v3"

	"github.com/julianstephens/agenda/internal/models"
)

// Local is the on-device key/value store for preferences and focus
type Local struct {
	d *diskv.Diskv
}

// OpenLocal stores one file per key directly under dir
func OpenLocal(dir string) *Local {
	return &Local{d: diskv.New(diskv.Options{
		BasePath:     dir,
		Transform:    func(string) []string { return []string{} },
		CacheSizeMax: 64 * 1024,
	})}
}

// Get returns the stored value and whether one exists
func (l *Local) Get(key string) (string, bool) {
	b, err := l.d.Read(key)
	if err != nil {
		return "", false
	}
	return string(b), true
}

func (l *Local) Set(key, value string) error {
	if err := l.d.Write(key, []byte(value)); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (l *Local) Erase(key string) error {
	if err := l.d.Erase(key); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to erase %s: %w", key, err)
	}
	return nil
}

// Preferences reads every known key, falling back to defaults
func (l *Local) Preferences() models.Preferences {
	m := make(map[string]string)
	for key := range models.PreferencesToMap(models.DefaultPreferences()) {
		if v, ok := l.Get(key); ok {
			m[key] = v
		}
	}
	p := models.MapToPreferences(m)
	models.ApplyDefaultPreferences(&p)
	return p
}

func (l *Local) SavePreferences(p models.Preferences) error {
	for key, value := range models.PreferencesToMap(p) {
		if err := l.Set(key, value); err != nil {
			return err
		}
	}
	return nil
}

func (l *Local) readJSON(key string, v any) bool {
	b, err := l.d.Read(key)
	if err != nil {
		return false
	}
	return json.Unmarshal(b, v) == nil
}

func (l *Local) writeJSON(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return l.d.Write(key, b)
}
