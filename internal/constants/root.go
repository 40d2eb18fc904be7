package constants

import "time"

// EntityType identifies which kind of record a pending deletion refers to
type EntityType string

// HabitType describes how a habit's daily value is measured
type HabitType string

// SessionState represents the current state of the TUI application
type SessionState int

const (
	AppName           = "agenda"
	Version           = "v0.1.0"
	DefaultConfigDir  = "~/.config/agenda"
	DefaultDBFileName = "agenda.db"
	ConfigFileName    = "config"
	ConfigFileType    = "yaml"
	EnvPrefix         = "AGENDA"

	// Keyring entries
	KeyringUserConnection = "database-connection"
	KeyringUserSession    = "session-token"
	KeyringUserAppSecret  = "app-secret"
	KeyringUserSupabase   = "supabase-key"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// MonthFormat is used to group journal entries in the archive
	MonthFormat = "January 2006"

	// UndoWindow is how long a deletion stays undoable
	UndoWindow = 5000 * time.Millisecond

	// Store backends
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreSupabase = "supabase"
	StoreMemory   = "memory"

	// Collections under users/{uid}
	UsersCollection     = "users"
	TodosCollection     = "todos"
	JournalCollection   = "journal"
	HabitsCollection    = "habits"
	HabitLogsCollection = "habit_logs"

	// DefaultCategory is assigned to tasks created without one
	DefaultCategory = "general"

	// PreferencesField is the map field on the user document holding preferences
	PreferencesField = "preferences"

	// Entity types that can be pending deletion
	EntityTodo  EntityType = "todo"
	EntityEntry EntityType = "entry"

	// Habit types
	HabitCount HabitType = "count"
	HabitTime  HabitType = "time"
	HabitLimit HabitType = "limit"

	// TimeHabitStep is the increment, in minutes, for time habits
	TimeHabitStep = 15
	// DefaultHabitStep is the increment for count and limit habits
	DefaultHabitStep = 1

	// Polling interval for backends without push notifications
	DefaultPollInterval = 5 * time.Second
)

// Session States
const (
	StateTasks SessionState = iota
	StateJournal
	StateHabits
	StateAddTask
	StateEditTask
	StateAddEntry
	StateEditEntry
	StateAddHabit
	StateEditFocus
)
