package models

import "time"

// JournalEntry is a free-text entry dated to a moment in a day
type JournalEntry struct {
	ID   string
	Text string
	Date time.Time
	// UpdatedAt is nil until the entry is edited
	UpdatedAt *time.Time
}

// Key returns the record id
func (e JournalEntry) Key() string { return e.ID }

// Edited reports whether the entry was changed after creation
func (e JournalEntry) Edited() bool { return e.UpdatedAt != nil }

// DisplayDate is the most recent of the creation and edit times
func (e JournalEntry) DisplayDate() time.Time {
	if e.UpdatedAt != nil {
		return *e.UpdatedAt
	}
	return e.Date
}
