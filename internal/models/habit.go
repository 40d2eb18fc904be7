package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/agenda/internal/constants"
)

// Status is the color-coded state of a habit on one day
type Status int

const (
	StatusNeutral Status = iota
	StatusPartial
	StatusSuccess
	StatusOverage
	// StatusInactive marks days the habit is not scheduled
	StatusInactive
)

func (s Status) String() string {
	switch s {
	case StatusPartial:
		return "partial"
	case StatusSuccess:
		return "success"
	case StatusOverage:
		return "overage"
	case StatusInactive:
		return "inactive"
	default:
		return "neutral"
	}
}

// Habit is a recurring goal measured by a daily value
type Habit struct {
	ID     string
	Name   string
	Type   constants.HabitType
	Target int
	Unit   string
	// Frequency lists scheduled weekdays; empty means every day
	Frequency []time.Weekday
	Paused    bool
	Archived  bool
	CreatedAt time.Time
}

// Key returns the record id
func (h Habit) Key() string { return h.ID }

// HabitLog is the value recorded for a habit on one local date
type HabitLog struct {
	HabitID   string
	Date      string
	Value     int
	UpdatedAt time.Time
}

// HabitInput carries the editable fields of a habit
type HabitInput struct {
	Name      string
	Type      constants.HabitType
	Target    int
	Unit      string
	Frequency []time.Weekday
}

// Validate rejects empty names, non-positive targets and unknown types
func (in HabitInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("habit name cannot be empty")
	}
	if in.Target <= 0 {
		return fmt.Errorf("target must be greater than zero")
	}
	if _, err := ParseHabitType(string(in.Type)); err != nil {
		return err
	}
	for _, wd := range in.Frequency {
		if wd < time.Sunday || wd > time.Saturday {
			return fmt.Errorf("invalid weekday %d", wd)
		}
	}
	return nil
}

// ParseHabitType resolves a habit type name
func ParseHabitType(s string) (constants.HabitType, error) {
	switch constants.HabitType(strings.ToLower(strings.TrimSpace(s))) {
	case constants.HabitCount:
		return constants.HabitCount, nil
	case constants.HabitTime:
		return constants.HabitTime, nil
	case constants.HabitLimit:
		return constants.HabitLimit, nil
	}
	return "", fmt.Errorf("invalid habit type %q (expected count, time or limit)", s)
}

// LogID is the deterministic document id for a habit's value on date
func LogID(habitID, date string) string {
	return habitID + "_" + date
}

// Step is the increment used by the +/- affordances for a habit type
func Step(t constants.HabitType) int {
	if t == constants.HabitTime {
		return constants.TimeHabitStep
	}
	return constants.DefaultHabitStep
}

// ClampValue keeps progress non-negative
func ClampValue(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// DayStatus evaluates a day's value against the habit target
func DayStatus(value, target int, t constants.HabitType) Status {
	if t == constants.HabitLimit {
		switch {
		case value > target:
			return StatusOverage
		case value > 0:
			return StatusSuccess
		default:
			return StatusNeutral
		}
	}
	switch {
	case value >= target && value > 0:
		return StatusSuccess
	case value > 0:
		return StatusPartial
	default:
		return StatusNeutral
	}
}

// IsScheduled reports whether the habit is due on wd
func (h Habit) IsScheduled(wd time.Weekday) bool {
	if len(h.Frequency) == 0 {
		return true
	}
	for _, d := range h.Frequency {
		if d == wd {
			return true
		}
	}
	return false
}

// StatusOn is DayStatus with unscheduled days reported as inactive
func (h Habit) StatusOn(day time.Time, value int) Status {
	if !h.IsScheduled(day.Weekday()) {
		return StatusInactive
	}
	return DayStatus(value, h.Target, h.Type)
}

// Progress returns value as a percentage of target, clamped to [0, 100]
func Progress(value, target int) int {
	if target <= 0 || value <= 0 {
		return 0
	}
	pct := value * 100 / target
	if pct > 100 {
		return 100
	}
	return pct
}

// FormatFrequency renders scheduled weekdays as short names
func FormatFrequency(days []time.Weekday) string {
	if len(days) == 0 || len(days) == 7 {
		return "daily"
	}
	names := make([]string, 0, len(days))
	for _, wd := range days {
		names = append(names, wd.String()[:3])
	}
	return strings.Join(names, ",")
}
