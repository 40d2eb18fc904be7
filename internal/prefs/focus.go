package prefs

import (
	"strings"
	"time"

	"github.com/julianstephens/agenda/internal/constants"
	"github.com/julianstephens/agenda/internal/logger"
	"github.com/julianstephens/agenda/internal/models"
	"github.com/julianstephens/agenda/internal/utils"
)

// Focus is the daily intention. It never leaves the device and is cleared
// the first time it is read on a new day.
type Focus struct {
	local *Local
	now   func() time.Time
}

func NewFocus(local *Local, now func() time.Time) *Focus {
	if now == nil {
		now = time.Now
	}
	return &Focus{local: local, now: now}
}

func (f *Focus) Get() models.Focus {
	today := utils.DateKey(f.now())
	var cur models.Focus
	if !f.local.readJSON(constants.FocusKey, &cur) || cur.Date != today {
		cur = models.Focus{Date: today}
		f.save(cur)
	}
	return cur
}

// SetText replaces today's focus and clears its completion
func (f *Focus) SetText(text string) models.Focus {
	cur := models.Focus{Text: strings.TrimSpace(text), Date: utils.DateKey(f.now())}
	f.save(cur)
	return cur
}

// Toggle flips completion; an empty focus cannot be completed
func (f *Focus) Toggle() models.Focus {
	cur := f.Get()
	if cur.Text == "" {
		return cur
	}
	cur.Completed = !cur.Completed
	f.save(cur)
	return cur
}

func (f *Focus) save(cur models.Focus) {
	if err := f.local.writeJSON(constants.FocusKey, cur); err != nil {
		logger.Error("Failed to save focus", "error", err)
	}
}
