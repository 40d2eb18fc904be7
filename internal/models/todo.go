package models

import (
	"strings"
	"time"
)

// Todo is a task belonging to the local calendar day of CreatedAt
type Todo struct {
	ID        string
	Text      string
	Completed bool
	Category  string
	CreatedAt time.Time
	// Order is a sparse sort key within a day; ties fall back to CreatedAt
	Order float64
}

// Key returns the record id
func (t Todo) Key() string { return t.ID }

// ValidText reports whether s is acceptable as task or entry text
func ValidText(s string) bool {
	return strings.TrimSpace(s) != ""
}
