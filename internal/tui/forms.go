package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/agenda/internal/constants"
	"github.com/julianstephens/agenda/internal/models"
)

func (m Model) theme() *huh.Theme {
	if m.prefs != nil && m.prefs.Get().Theme == constants.ThemeLight {
		return huh.ThemeBase()
	}
	return huh.ThemeDracula()
}

func NewHabitForm(fm *HabitFormModel, theme *huh.Theme) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Habit Name").
				Value(&fm.Name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("habit name cannot be empty")
					}
					return nil
				}),
			huh.NewSelect[constants.HabitType]().
				Title("Type").
				Options(
					huh.NewOption("Count", constants.HabitCount),
					huh.NewOption("Time (minutes)", constants.HabitTime),
					huh.NewOption("Limit (stay under)", constants.HabitLimit),
				).
				Value(&fm.Type),
			huh.NewInput().
				Title("Daily target").
				Value(&fm.Target).
				Validate(func(s string) error {
					i, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil {
						return err
					}
					if i <= 0 {
						return fmt.Errorf("target must be greater than zero")
					}
					return nil
				}),
			huh.NewInput().
				Title("Unit").
				Description("Optional, e.g. glasses or pages").
				Value(&fm.Unit),
			huh.NewInput().
				Title("Days").
				Description("Weekday numbers 0-6 (Sunday is 0), comma-separated; empty for every day").
				Value(&fm.Days).
				Validate(func(s string) error {
					_, err := parseDays(s)
					return err
				}),
		),
	).WithTheme(theme)
}

// parseDays reads comma-separated weekday numbers
func parseDays(s string) ([]time.Weekday, error) {
	var days []time.Weekday
	seen := make(map[int]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 6 {
			return nil, fmt.Errorf("invalid weekday: %s", part)
		}
		if !seen[n] {
			seen[n] = true
			days = append(days, time.Weekday(n))
		}
	}
	return days, nil
}

func (fm HabitFormModel) input() (models.HabitInput, error) {
	target, err := strconv.Atoi(strings.TrimSpace(fm.Target))
	if err != nil {
		return models.HabitInput{}, fmt.Errorf("invalid target %q", fm.Target)
	}
	days, err := parseDays(fm.Days)
	if err != nil {
		return models.HabitInput{}, err
	}
	in := models.HabitInput{
		Name:      strings.TrimSpace(fm.Name),
		Type:      fm.Type,
		Target:    target,
		Unit:      strings.TrimSpace(fm.Unit),
		Frequency: days,
	}
	return in, in.Validate()
}

func (m Model) updateHabitForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.state = m.previousState
		m.form = nil
		return m, nil
	}

	var cmds []tea.Cmd
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	cmds = append(cmds, cmd)

	switch m.form.State {
	case huh.StateCompleted:
		in, err := m.habitForm.input()
		if err != nil {
			m.form.State = huh.StateNormal
			cmds = append(cmds, m.setStatus(err.Error()))
			break
		}
		m.habits.Add(in)
		m.state = m.previousState
		m.form = nil
	case huh.StateAborted:
		m.state = m.previousState
		m.form = nil
	}
	return m, tea.Batch(cmds...)
}
