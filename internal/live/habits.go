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

type habitDoc struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Target    int    `json:"target"`
	Unit      string `json:"unit"`
	Frequency []int  `json:"frequency"`
	Paused    bool   `json:"paused"`
	Archived  bool   `json:"archived"`
	CreatedAt int64  `json:"createdAt"`
}

type habitLogDoc struct {
	HabitID   string `json:"habitId"`
	Date      string `json:"date"`
	Value     int    `json:"value"`
	UpdatedAt int64  `json:"updatedAt"`
}

func frequencyToInts(days []time.Weekday) []int {
	out := make([]int, 0, len(days))
	for _, d := range days {
		out = append(out, int(d))
	}
	return out
}

func habitInputFields(in models.HabitInput, deps Deps) storage.Fields {
	return storage.Fields{
		"name":      deps.encrypt(in.Name),
		"type":      string(in.Type),
		"target":    in.Target,
		"unit":      in.Unit,
		"frequency": frequencyToInts(in.Frequency),
	}
}

// Habits is a live list of habit definitions plus the logged values for
// one selected day and, optionally, a date range
type Habits struct {
	deps     Deps
	day      time.Time
	coll     string
	logsColl string

	mu         sync.Mutex
	list       *List[models.Habit]
	logs       map[string]int
	rangeLogs  map[string]map[string]int
	change     notifier
	unsub      storage.Unsubscribe
	unsubLogs  storage.Unsubscribe
	unsubRange storage.Unsubscribe
}

// NewHabits subscribes to the user's habit definitions and the logs for day
func NewHabits(ctx context.Context, deps Deps, day time.Time) (*Habits, error) {
	v := &Habits{
		deps:     deps,
		day:      utils.StartOfDay(day),
		coll:     deps.collection(constants.HabitsCollection),
		logsColl: deps.collection(constants.HabitLogsCollection),
		list:     NewList(func(a, b models.Habit) bool { return a.CreatedAt.After(b.CreatedAt) }),
		logs:     make(map[string]int),
	}

	unsub, err := deps.Store.Subscribe(ctx, storage.NewQuery(v.coll).OrderDesc("createdAt"), v.onHabits)
	if err != nil {
		return nil, err
	}
	v.unsub = unsub

	logsQuery := storage.NewQuery(v.logsColl).Where("date", storage.OpEq, utils.DateKey(v.day))
	unsubLogs, err := deps.Store.Subscribe(ctx, logsQuery, v.onLogs)
	if err != nil {
		v.unsub()
		return nil, err
	}
	v.unsubLogs = unsubLogs
	return v, nil
}

func (v *Habits) onHabits(s storage.Snapshot) {
	items := make([]models.Habit, 0, len(s.Documents))
	for _, d := range s.Documents {
		var raw habitDoc
		if err := d.Decode(&raw); err != nil {
			logger.Warn("Skipping unreadable habit", "path", d.Path, "error", err)
			continue
		}
		h := models.Habit{
			ID:        d.ID,
			Name:      v.deps.decrypt(raw.Name),
			Type:      constants.HabitCount,
			Target:    raw.Target,
			Unit:      raw.Unit,
			Paused:    raw.Paused,
			Archived:  raw.Archived,
			CreatedAt: utils.FromMillis(raw.CreatedAt),
		}
		if t, err := models.ParseHabitType(raw.Type); err == nil {
			h.Type = t
		}
		for _, wd := range raw.Frequency {
			if wd >= int(time.Sunday) && wd <= int(time.Saturday) {
				h.Frequency = append(h.Frequency, time.Weekday(wd))
			}
		}
		items = append(items, h)
	}

	v.mu.Lock()
	v.list.Replace(items)
	fn := v.change
	v.mu.Unlock()
	fn.notify()
}

func decodeLogs(s storage.Snapshot) []habitLogDoc {
	out := make([]habitLogDoc, 0, len(s.Documents))
	for _, d := range s.Documents {
		var raw habitLogDoc
		if err := d.Decode(&raw); err != nil {
			logger.Warn("Skipping unreadable habit log", "path", d.Path, "error", err)
			continue
		}
		out = append(out, raw)
	}
	return out
}

func (v *Habits) onLogs(s storage.Snapshot) {
	logs := make(map[string]int)
	for _, l := range decodeLogs(s) {
		logs[l.HabitID] = l.Value
	}
	v.mu.Lock()
	v.logs = logs
	fn := v.change
	v.mu.Unlock()
	fn.notify()
}

func (v *Habits) onRange(s storage.Snapshot) {
	byHabit := make(map[string]map[string]int)
	for _, l := range decodeLogs(s) {
		if byHabit[l.HabitID] == nil {
			byHabit[l.HabitID] = make(map[string]int)
		}
		byHabit[l.HabitID][l.Date] = l.Value
	}
	v.mu.Lock()
	v.rangeLogs = byHabit
	fn := v.change
	v.mu.Unlock()
	fn.notify()
}

// LoadRange subscribes to every log between start and end inclusive,
// replacing any previous range
func (v *Habits) LoadRange(ctx context.Context, start, end time.Time) error {
	q := storage.NewQuery(v.logsColl).
		Where("date", storage.OpGte, utils.DateKey(start)).
		Where("date", storage.OpLte, utils.DateKey(end))

	v.mu.Lock()
	prev := v.unsubRange
	v.unsubRange = nil
	v.mu.Unlock()
	if prev != nil {
		prev()
	}

	unsub, err := v.deps.Store.Subscribe(ctx, q, v.onRange)
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.unsubRange = unsub
	v.mu.Unlock()
	return nil
}

func (v *Habits) OnChange(fn func()) {
	v.mu.Lock()
	v.change = notifier{fn: fn}
	v.mu.Unlock()
}

// Items returns every habit, archived ones included
func (v *Habits) Items() []models.Habit {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.list.Items()
}

// Active returns habits that are not archived
func (v *Habits) Active() []models.Habit {
	var out []models.Habit
	for _, h := range v.Items() {
		if !h.Archived {
			out = append(out, h)
		}
	}
	return out
}

// ScheduledOn returns active habits due on wd
func (v *Habits) ScheduledOn(wd time.Weekday) []models.Habit {
	var out []models.Habit
	for _, h := range v.Active() {
		if h.IsScheduled(wd) {
			out = append(out, h)
		}
	}
	return out
}

func (v *Habits) Day() time.Time {
	return v.day
}

// Logs maps habit id to its value on the selected day
func (v *Habits) Logs() map[string]int {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[string]int, len(v.logs))
	for k, val := range v.logs {
		out[k] = val
	}
	return out
}

func (v *Habits) Value(habitID string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.logs[habitID]
}

// RangeLogs maps habit id to date key to value for the loaded range
func (v *Habits) RangeLogs() map[string]map[string]int {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[string]map[string]int, len(v.rangeLogs))
	for id, days := range v.rangeLogs {
		inner := make(map[string]int, len(days))
		for d, val := range days {
			inner[d] = val
		}
		out[id] = inner
	}
	return out
}

func (v *Habits) Close() {
	v.mu.Lock()
	unsubs := []storage.Unsubscribe{v.unsub, v.unsubLogs, v.unsubRange}
	v.mu.Unlock()
	for _, u := range unsubs {
		if u != nil {
			u()
		}
	}
}

func (v *Habits) find(id string) (models.Habit, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.list.Find(id)
}

func (v *Habits) path(id string) string {
	return storage.DocPath(v.coll, id)
}

func (v *Habits) apply(a Action[models.Habit]) bool {
	v.mu.Lock()
	ok := v.list.Apply(a)
	fn := v.change
	v.mu.Unlock()
	if ok {
		fn.notify()
	}
	return ok
}

func (v *Habits) Add(in models.HabitInput) {
	if err := in.Validate(); err != nil {
		logger.Debug("Rejected habit", "error", err)
		return
	}
	f := habitInputFields(in, v.deps)
	f["paused"] = false
	f["archived"] = false
	f["createdAt"] = utils.ToMillis(v.deps.now())
	v.deps.add("add habit", v.coll, f)
}

// Update patches a habit definition; a habit deleted elsewhere is reported, not recreated
func (v *Habits) Update(id string, in models.HabitInput) {
	if err := in.Validate(); err != nil {
		logger.Debug("Rejected habit update", "id", id, "error", err)
		return
	}
	ok := v.apply(Action[models.Habit]{Kind: ActionUpdate, ID: id, Patch: func(h *models.Habit) {
		h.Name, h.Type, h.Target, h.Unit = in.Name, in.Type, in.Target, in.Unit
		h.Frequency = append([]time.Weekday(nil), in.Frequency...)
	}})
	if !ok {
		return
	}
	v.deps.update("update habit", v.path(id), habitInputFields(in, v.deps))
}

// Delete removes the definition; its logs are kept
func (v *Habits) Delete(id string) {
	if !v.apply(Action[models.Habit]{Kind: ActionRemove, ID: id}) {
		return
	}
	v.deps.delete("delete habit", v.path(id))
}

// SetPaused toggles whether the habit accepts steps
func (v *Habits) SetPaused(id string, paused bool) {
	if !v.apply(Action[models.Habit]{Kind: ActionUpdate, ID: id, Patch: func(h *models.Habit) { h.Paused = paused }}) {
		return
	}
	v.deps.update("pause habit", v.path(id), storage.Fields{"paused": paused})
}

func (v *Habits) SetArchived(id string, archived bool) {
	if !v.apply(Action[models.Habit]{Kind: ActionUpdate, ID: id, Patch: func(h *models.Habit) { h.Archived = archived }}) {
		return
	}
	v.deps.update("archive habit", v.path(id), storage.Fields{"archived": archived})
}

// Log upserts the value for habitID on date. It works for paused habits so
// past days can still be corrected.
func (v *Habits) Log(habitID string, value int, date time.Time) {
	if habitID == "" {
		return
	}
	value = models.ClampValue(value)
	key := utils.DateKey(date)

	v.mu.Lock()
	if key == utils.DateKey(v.day) {
		v.logs[habitID] = value
	}
	if v.rangeLogs != nil {
		if v.rangeLogs[habitID] == nil {
			v.rangeLogs[habitID] = make(map[string]int)
		}
		v.rangeLogs[habitID][key] = value
	}
	fn := v.change
	v.mu.Unlock()
	fn.notify()

	v.deps.write("log habit", storage.DocPath(v.logsColl, models.LogID(habitID, key)), storage.Fields{
		"habitId":   habitID,
		"date":      key,
		"value":     value,
		"updatedAt": utils.ToMillis(v.deps.now()),
	}, true)
}

// active returns the habit when it exists and accepts logging affordances
func (v *Habits) active(habitID string) (models.Habit, bool) {
	h, ok := v.find(habitID)
	if !ok || h.Paused {
		return models.Habit{}, false
	}
	return h, true
}

func (v *Habits) Increment(habitID string) {
	h, ok := v.active(habitID)
	if !ok {
		return
	}
	v.Log(habitID, v.Value(habitID)+models.Step(h.Type), v.day)
}

func (v *Habits) Decrement(habitID string) {
	h, ok := v.active(habitID)
	if !ok {
		return
	}
	v.Log(habitID, v.Value(habitID)-models.Step(h.Type), v.day)
}

// AddManual adds a non-negative delta to the selected day's value
func (v *Habits) AddManual(habitID string, delta int) {
	if delta < 0 {
		return
	}
	if _, ok := v.active(habitID); !ok {
		return
	}
	v.Log(habitID, v.Value(habitID)+delta, v.day)
}

func (v *Habits) Reset(habitID string) {
	if _, ok := v.active(habitID); !ok {
		return
	}
	v.Log(habitID, 0, v.day)
}
