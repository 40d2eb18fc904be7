package live

import (
	"context"
	"sync"
	"time"

	"github.com/julianstephens/agenda/internal/constants"
	"github.com/julianstephens/agenda/internal/logger"
	"github.com/julianstephens/agenda/internal/models"
	"github.com/julianstephens/agenda/internal/storage"
	"github.com/julianstephens/agenda/internal/utils"
)

type entryDoc struct {
	Text      string `json:"text"`
	Date      int64  `json:"date"`
	UpdatedAt *int64 `json:"updatedAt,omitempty"`
}

func entryFields(e models.JournalEntry, deps Deps) storage.Fields {
	f := storage.Fields{
		"text": deps.encrypt(e.Text),
		"date": utils.ToMillis(e.Date),
	}
	if e.UpdatedAt != nil {
		f["updatedAt"] = utils.ToMillis(*e.UpdatedAt)
	}
	return f
}

// MonthGroup is the archive entries of one calendar month, newest first
type MonthGroup struct {
	Month   string
	Entries []models.JournalEntry
}

// Journal is a live list of entries for one day, or every entry when no day is set
type Journal struct {
	deps Deps
	day  *time.Time
	coll string

	mu     sync.Mutex
	list   *List[models.JournalEntry]
	change notifier
	unsub  storage.Unsubscribe
}

// NewJournal subscribes to entries on day, or to every entry when day is nil
func NewJournal(ctx context.Context, deps Deps, day *time.Time) (*Journal, error) {
	v := &Journal{
		deps: deps,
		coll: deps.collection(constants.JournalCollection),
		list: NewList(func(a, b models.JournalEntry) bool { return a.Date.After(b.Date) }),
	}
	q := storage.NewQuery(v.coll)
	if day != nil {
		d := utils.StartOfDay(*day)
		v.day = &d
		q = q.Where("date", storage.OpGte, utils.ToMillis(d)).
			Where("date", storage.OpLte, utils.ToMillis(utils.EndOfDay(d)))
	}
	q = q.OrderDesc("date")

	unsub, err := deps.Store.Subscribe(ctx, q, v.onSnapshot)
	if err != nil {
		return nil, err
	}
	v.unsub = unsub
	return v, nil
}

func (v *Journal) onSnapshot(s storage.Snapshot) {
	items := make([]models.JournalEntry, 0, len(s.Documents))
	for _, d := range s.Documents {
		var raw entryDoc
		if err := d.Decode(&raw); err != nil {
			logger.Warn("Skipping unreadable journal entry", "path", d.Path, "error", err)
			continue
		}
		e := models.JournalEntry{
			ID:   d.ID,
			Text: v.deps.decrypt(raw.Text),
			Date: utils.FromMillis(raw.Date),
		}
		if raw.UpdatedAt != nil {
			u := utils.FromMillis(*raw.UpdatedAt)
			e.UpdatedAt = &u
		}
		items = append(items, e)
	}

	v.mu.Lock()
	v.list.Replace(items)
	fn := v.change
	v.mu.Unlock()
	fn.notify()
}

func (v *Journal) OnChange(fn func()) {
	v.mu.Lock()
	v.change = notifier{fn: fn}
	v.mu.Unlock()
}

func (v *Journal) Items() []models.JournalEntry {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.list.Items()
}

// Day returns the viewed day; false means archive mode
func (v *Journal) Day() (time.Time, bool) {
	if v.day == nil {
		return time.Time{}, false
	}
	return *v.day, true
}

func (v *Journal) Close() {
	if v.unsub != nil {
		v.unsub()
	}
}

func (v *Journal) path(id string) string {
	return storage.DocPath(v.coll, id)
}

func (v *Journal) apply(a Action[models.JournalEntry]) bool {
	v.mu.Lock()
	ok := v.list.Apply(a)
	fn := v.change
	v.mu.Unlock()
	if ok {
		fn.notify()
	}
	return ok
}

// Add writes a new entry dated now, or the viewed day at the current wall time
func (v *Journal) Add(text string) {
	if !models.ValidText(text) {
		return
	}
	now := v.deps.now()
	date := now
	if v.day != nil && !utils.IsSameDay(*v.day, now) {
		date = utils.AtTimeOf(*v.day, now)
	}
	v.deps.add("add entry", v.coll, entryFields(models.JournalEntry{Text: text, Date: date}, v.deps))
}

// Update replaces the entry text and marks it edited
func (v *Journal) Update(id, text string) {
	if !models.ValidText(text) {
		return
	}
	now := v.deps.now()
	ok := v.apply(Action[models.JournalEntry]{Kind: ActionUpdate, ID: id, Patch: func(e *models.JournalEntry) {
		e.Text = text
		e.UpdatedAt = &now
	}})
	if !ok {
		return
	}
	v.deps.update("update entry", v.path(id), storage.Fields{
		"text":      v.deps.encrypt(text),
		"updatedAt": utils.ToMillis(now),
	})
}

// Delete removes the entry now; undo re-creates the same fields under the same id
func (v *Journal) Delete(id string) {
	v.mu.Lock()
	e, ok := v.list.Find(id)
	v.mu.Unlock()
	if !ok {
		return
	}
	v.apply(Action[models.JournalEntry]{Kind: ActionRemove, ID: id})

	path := v.path(id)
	onConfirm := func() { v.deps.delete("delete entry", path) }
	onUndo := func() {
		v.apply(Action[models.JournalEntry]{Kind: ActionInsert, Item: e})
		v.deps.write("restore entry", path, entryFields(e, v.deps), false)
	}
	if v.deps.Undo == nil {
		onConfirm()
		return
	}
	v.deps.Undo.ScheduleDelete(id, constants.EntityEntry, e, onUndo, onConfirm)
}

// ByMonth groups entries by the month of their date, newest month first
func (v *Journal) ByMonth() []MonthGroup {
	var groups []MonthGroup
	for _, e := range v.Items() {
		month := e.Date.Format(constants.MonthFormat)
		if n := len(groups); n > 0 && groups[n-1].Month == month {
			groups[n-1].Entries = append(groups[n-1].Entries, e)
			continue
		}
		groups = append(groups, MonthGroup{Month: month, Entries: []models.JournalEntry{e}})
	}
	return groups
}
