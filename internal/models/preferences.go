package models

import (
	"fmt"

	"github.com/julianstephens/agenda/internal/constants"
)

// Preferences are per-user display settings synced to the remote store
type Preferences struct {
	StartOfWeek string
	Theme       string
	Language    string
}

// DefaultPreferences returns the values used before anything is stored
func DefaultPreferences() Preferences {
	return Preferences{
		StartOfWeek: constants.DefaultStartOfWeek,
		Theme:       constants.DefaultTheme,
		Language:    constants.DefaultLanguage,
	}
}

// Validate checks enumerated preference values
func (p Preferences) Validate() error {
	switch p.StartOfWeek {
	case constants.WeekStartMonday, constants.WeekStartSunday:
	default:
		return fmt.Errorf("start of week must be %q or %q", constants.WeekStartMonday, constants.WeekStartSunday)
	}
	switch p.Theme {
	case constants.ThemeDark, constants.ThemeLight:
	default:
		return fmt.Errorf("theme must be %q or %q", constants.ThemeDark, constants.ThemeLight)
	}
	if p.Language == "" {
		return fmt.Errorf("language cannot be empty")
	}
	return nil
}

// PreferencesToMap converts Preferences to the stored key/value form
func PreferencesToMap(p Preferences) map[string]string {
	return map[string]string{
		constants.SettingStartOfWeek: p.StartOfWeek,
		constants.SettingTheme:       p.Theme,
		constants.SettingLanguage:    p.Language,
	}
}

// MapToPreferences reads known keys from m, leaving others at their zero value
func MapToPreferences(m map[string]string) Preferences {
	return Preferences{
		StartOfWeek: m[constants.SettingStartOfWeek],
		Theme:       m[constants.SettingTheme],
		Language:    m[constants.SettingLanguage],
	}
}

// ApplyDefaultPreferences fills empty fields with defaults
func ApplyDefaultPreferences(p *Preferences) {
	d := DefaultPreferences()
	if p.StartOfWeek == "" {
		p.StartOfWeek = d.StartOfWeek
	}
	if p.Theme == "" {
		p.Theme = d.Theme
	}
	if p.Language == "" {
		p.Language = d.Language
	}
}

// Focus is the single intention for today, kept only on this device
type Focus struct {
	Text      string `json:"text"`
	Date      string `json:"date"`
	Completed bool   `json:"completed"`
}
