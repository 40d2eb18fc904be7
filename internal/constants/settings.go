package constants

const (
	// Preference keys
	SettingStartOfWeek = "startOfWeek"
	SettingTheme       = "theme"
	SettingLanguage    = "language"

	// Allowed values
	WeekStartMonday = "monday"
	WeekStartSunday = "sunday"
	ThemeDark       = "dark"
	ThemeLight      = "light"

	// Default Preference Values
	DefaultStartOfWeek = WeekStartMonday
	DefaultTheme       = ThemeDark
	DefaultLanguage    = "en"

	// Local-only keys
	FocusKey = "focus"
)
