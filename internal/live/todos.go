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

type todoDoc struct {
	Text      string  `json:"text"`
	Completed bool    `json:"completed"`
	Category  string  `json:"category"`
	CreatedAt int64   `json:"createdAt"`
	Order     float64 `json:"order"`
}

func decodeTodo(d storage.Document, deps Deps) (models.Todo, bool) {
	var raw todoDoc
	if err := d.Decode(&raw); err != nil {
		logger.Warn("Skipping unreadable todo", "path", d.Path, "error", err)
		return models.Todo{}, false
	}
	return models.Todo{
		ID:        d.ID,
		Text:      deps.decrypt(raw.Text),
		Completed: raw.Completed,
		Category:  raw.Category,
		CreatedAt: utils.FromMillis(raw.CreatedAt),
		Order:     raw.Order,
	}, true
}

func todoFields(t models.Todo, deps Deps) storage.Fields {
	return storage.Fields{
		"text":      deps.encrypt(t.Text),
		"completed": t.Completed,
		"category":  t.Category,
		"createdAt": utils.ToMillis(t.CreatedAt),
		"order":     t.Order,
	}
}

// byOrder sorts within a day: order, then creation time
func byOrder(a, b models.Todo) bool {
	if a.Order != b.Order {
		return a.Order < b.Order
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

// TodoFilter selects which tasks a Todos view shows
type TodoFilter struct {
	day *time.Time
}

// ForDay shows every task created on the local day of day
func ForDay(day time.Time) TodoFilter {
	d := utils.StartOfDay(day)
	return TodoFilter{day: &d}
}

// Unfiltered shows all of today's tasks plus unfinished tasks from earlier
// days, and nothing dated in the future
var Unfiltered = TodoFilter{}

// Day returns the filtered day, if any
func (f TodoFilter) Day() (time.Time, bool) {
	if f.day == nil {
		return time.Time{}, false
	}
	return *f.day, true
}

func (f TodoFilter) visible(t models.Todo, now time.Time) bool {
	if f.day != nil {
		return utils.IsSameDay(t.CreatedAt, *f.day)
	}
	today := utils.StartOfDay(now)
	day := utils.StartOfDay(t.CreatedAt)
	switch {
	case day.After(today):
		return false
	case day.Before(today):
		return !t.Completed
	default:
		return true
	}
}

func (f TodoFilter) query(collection string) storage.Query {
	q := storage.NewQuery(collection)
	if f.day != nil {
		q = q.Where("createdAt", storage.OpGte, utils.ToMillis(utils.StartOfDay(*f.day))).
			Where("createdAt", storage.OpLte, utils.ToMillis(utils.EndOfDay(*f.day)))
	}
	return q.OrderAsc("order").OrderAsc("createdAt")
}

func (f TodoFilter) less(a, b models.Todo) bool {
	if f.day == nil {
		da, db := utils.StartOfDay(a.CreatedAt), utils.StartOfDay(b.CreatedAt)
		if !da.Equal(db) {
			return da.After(db)
		}
	}
	return byOrder(a, b)
}

// Todos is a live list of tasks
type Todos struct {
	deps   Deps
	filter TodoFilter
	coll   string

	mu     sync.Mutex
	list   *List[models.Todo]
	change notifier
	unsub  storage.Unsubscribe
}

// NewTodos subscribes to the user's todos and keeps those matching filter
func NewTodos(ctx context.Context, deps Deps, filter TodoFilter) (*Todos, error) {
	v := &Todos{
		deps:   deps,
		filter: filter,
		coll:   deps.collection(constants.TodosCollection),
		list:   NewList(filter.less),
	}
	unsub, err := deps.Store.Subscribe(ctx, filter.query(v.coll), v.onSnapshot)
	if err != nil {
		return nil, err
	}
	v.unsub = unsub
	return v, nil
}

func (v *Todos) onSnapshot(s storage.Snapshot) {
	now := v.deps.now()
	items := make([]models.Todo, 0, len(s.Documents))
	for _, d := range s.Documents {
		t, ok := decodeTodo(d, v.deps)
		if ok && v.filter.visible(t, now) {
			items = append(items, t)
		}
	}

	v.mu.Lock()
	v.list.Replace(items)
	fn := v.change
	v.mu.Unlock()
	fn.notify()
}

// OnChange registers fn to run after every local or remote change
func (v *Todos) OnChange(fn func()) {
	v.mu.Lock()
	v.change = notifier{fn: fn}
	v.mu.Unlock()
}

// Items returns a copy of the visible todos in display order
func (v *Todos) Items() []models.Todo {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.list.Items()
}

func (v *Todos) Filter() TodoFilter {
	return v.filter
}

// Close unsubscribes; the view keeps its last state
func (v *Todos) Close() {
	if v.unsub != nil {
		v.unsub()
	}
}

func (v *Todos) path(id string) string {
	return storage.DocPath(v.coll, id)
}

// apply runs an optimistic action and drops the record if it no longer
// belongs in the view
func (v *Todos) apply(a Action[models.Todo]) (models.Todo, bool) {
	v.mu.Lock()
	ok := v.list.Apply(a)
	id := a.ID
	if a.Kind == ActionInsert {
		id = a.Item.ID
	}
	t, found := v.list.Find(id)
	if found && !v.filter.visible(t, v.deps.now()) {
		v.list.Apply(Action[models.Todo]{Kind: ActionRemove, ID: id})
	}
	fn := v.change
	v.mu.Unlock()
	if ok {
		fn.notify()
	}
	return t, ok
}

func (v *Todos) find(id string) (models.Todo, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.list.Find(id)
}

// Add creates a task. In a day view of another day the task is dated to that
// day at the current wall time.
func (v *Todos) Add(text, category string) {
	if !models.ValidText(text) {
		return
	}
	if category == "" {
		category = constants.DefaultCategory
	}
	now := v.deps.now()
	created := now
	if day, ok := v.filter.Day(); ok && !utils.IsSameDay(day, now) {
		created = utils.AtTimeOf(day, now)
	}

	t := models.Todo{
		Text:      text,
		Category:  category,
		CreatedAt: created,
		Order:     float64(utils.ToMillis(now)),
	}
	v.deps.add("add todo", v.coll, todoFields(t, v.deps))
}

// Toggle flips completion
func (v *Todos) Toggle(id string) {
	t, ok := v.find(id)
	if !ok {
		return
	}
	completed := !t.Completed
	v.apply(Action[models.Todo]{Kind: ActionUpdate, ID: id, Patch: func(t *models.Todo) { t.Completed = completed }})
	v.deps.update("toggle todo", v.path(id), storage.Fields{"completed": completed})
}

// UpdateText replaces the text. Empty text is ignored.
func (v *Todos) UpdateText(id, text string) {
	if !models.ValidText(text) {
		return
	}
	if _, ok := v.apply(Action[models.Todo]{Kind: ActionUpdate, ID: id, Patch: func(t *models.Todo) { t.Text = text }}); !ok {
		return
	}
	v.deps.update("update todo", v.path(id), storage.Fields{"text": v.deps.encrypt(text)})
}

// SetCategory sets the category. An empty category is ignored.
func (v *Todos) SetCategory(id, category string) {
	if category == "" {
		return
	}
	if _, ok := v.apply(Action[models.Todo]{Kind: ActionUpdate, ID: id, Patch: func(t *models.Todo) { t.Category = category }}); !ok {
		return
	}
	v.deps.update("set category", v.path(id), storage.Fields{"category": category})
}

// Delete removes the task now and leaves it undoable for the undo window
func (v *Todos) Delete(id string) {
	t, ok := v.find(id)
	if !ok {
		return
	}
	v.apply(Action[models.Todo]{Kind: ActionRemove, ID: id})
	scheduleTodoDelete(v.deps, v.path(id), t, func() {
		v.apply(Action[models.Todo]{Kind: ActionInsert, Item: t})
	})
}

// Reorder assigns order 0..N-1 following ordered and writes it in one batch
func (v *Todos) Reorder(ordered []models.Todo) {
	if len(ordered) == 0 {
		return
	}
	rank := make(map[string]float64, len(ordered))
	mutations := make([]storage.Mutation, 0, len(ordered))
	for i, t := range ordered {
		rank[t.ID] = float64(i)
		mutations = append(mutations, storage.Mutation{
			Op:     storage.OpUpdate,
			Path:   v.path(t.ID),
			Fields: storage.Fields{"order": i},
		})
	}

	v.mu.Lock()
	for id, order := range rank {
		o := order
		v.list.Apply(Action[models.Todo]{Kind: ActionUpdate, ID: id, Patch: func(t *models.Todo) { t.Order = o }})
	}
	fn := v.change
	v.mu.Unlock()
	fn.notify()

	v.deps.batch("reorder todos", mutations)
}

// Reschedule moves a task to local midnight of date and refreshes its order
// so it sorts after the tasks already on that day
func (v *Todos) Reschedule(id string, date time.Time) {
	if _, ok := v.find(id); !ok {
		return
	}
	rescheduleTodo(v.deps, v.path(id), date, func(created time.Time, order float64) {
		v.apply(Action[models.Todo]{Kind: ActionUpdate, ID: id, Patch: func(t *models.Todo) {
			t.CreatedAt = created
			t.Order = order
		}})
	})
}

func rescheduleTodo(deps Deps, path string, date time.Time, local func(time.Time, float64)) {
	created := utils.StartOfDay(date)
	order := float64(utils.ToMillis(deps.now()))
	local(created, order)
	deps.update("reschedule todo", path, storage.Fields{
		"createdAt": utils.ToMillis(created),
		"order":     order,
	})
}

func scheduleTodoDelete(deps Deps, path string, t models.Todo, reinsert func()) {
	onConfirm := func() { deps.delete("delete todo", path) }
	onUndo := func() {
		reinsert()
		deps.write("restore todo", path, todoFields(t, deps), false)
	}
	if deps.Undo == nil {
		onConfirm()
		return
	}
	deps.Undo.ScheduleDelete(t.ID, constants.EntityTodo, t, onUndo, onConfirm)
}

// DayGroup is the unfinished tasks of one local day
type DayGroup struct {
	Date  time.Time
	Todos []models.Todo
}

// IncompleteTodos lists every unfinished task across all days
type IncompleteTodos struct {
	deps Deps
	coll string

	mu     sync.Mutex
	list   *List[models.Todo]
	change notifier
	unsub  storage.Unsubscribe
}

// NewIncompleteTodos subscribes to every uncompleted todo, newest day first
func NewIncompleteTodos(ctx context.Context, deps Deps) (*IncompleteTodos, error) {
	v := &IncompleteTodos{
		deps: deps,
		coll: deps.collection(constants.TodosCollection),
		list: NewList(func(a, b models.Todo) bool { return a.CreatedAt.After(b.CreatedAt) }),
	}
	q := storage.NewQuery(v.coll).Where("completed", storage.OpEq, false).OrderDesc("createdAt")
	unsub, err := deps.Store.Subscribe(ctx, q, v.onSnapshot)
	if err != nil {
		return nil, err
	}
	v.unsub = unsub
	return v, nil
}

func (v *IncompleteTodos) onSnapshot(s storage.Snapshot) {
	items := make([]models.Todo, 0, len(s.Documents))
	for _, d := range s.Documents {
		if t, ok := decodeTodo(d, v.deps); ok {
			items = append(items, t)
		}
	}
	v.mu.Lock()
	v.list.Replace(items)
	fn := v.change
	v.mu.Unlock()
	fn.notify()
}

func (v *IncompleteTodos) OnChange(fn func()) {
	v.mu.Lock()
	v.change = notifier{fn: fn}
	v.mu.Unlock()
}

func (v *IncompleteTodos) Items() []models.Todo {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.list.Items()
}

// Groups buckets tasks by local day, oldest day first
func (v *IncompleteTodos) Groups() []DayGroup {
	items := v.Items()
	var groups []DayGroup
	index := make(map[string]int)
	for _, t := range items {
		key := utils.DateKey(t.CreatedAt)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, DayGroup{Date: utils.StartOfDay(t.CreatedAt)})
		}
		groups[i].Todos = append(groups[i].Todos, t)
	}
	// items arrive newest first, so reversing the groups puts the oldest day first
	for i, j := 0, len(groups)-1; i < j; i, j = i+1, j-1 {
		groups[i], groups[j] = groups[j], groups[i]
	}
	return groups
}

func (v *IncompleteTodos) Close() {
	if v.unsub != nil {
		v.unsub()
	}
}

func (v *IncompleteTodos) path(id string) string {
	return storage.DocPath(v.coll, id)
}

func (v *IncompleteTodos) remove(id string) (models.Todo, bool) {
	v.mu.Lock()
	t, ok := v.list.Find(id)
	if ok {
		v.list.Apply(Action[models.Todo]{Kind: ActionRemove, ID: id})
	}
	fn := v.change
	v.mu.Unlock()
	if ok {
		fn.notify()
	}
	return t, ok
}

// Toggle completes a task, which removes it from this view
func (v *IncompleteTodos) Toggle(id string) {
	if _, ok := v.remove(id); !ok {
		return
	}
	v.deps.update("toggle todo", v.path(id), storage.Fields{"completed": true})
}

func (v *IncompleteTodos) Delete(id string) {
	t, ok := v.remove(id)
	if !ok {
		return
	}
	scheduleTodoDelete(v.deps, v.path(id), t, func() {
		v.mu.Lock()
		v.list.Apply(Action[models.Todo]{Kind: ActionInsert, Item: t})
		fn := v.change
		v.mu.Unlock()
		fn.notify()
	})
}

func (v *IncompleteTodos) Reschedule(id string, date time.Time) {
	v.mu.Lock()
	_, ok := v.list.Find(id)
	v.mu.Unlock()
	if !ok {
		return
	}
	rescheduleTodo(v.deps, v.path(id), date, func(created time.Time, order float64) {
		v.mu.Lock()
		v.list.Apply(Action[models.Todo]{Kind: ActionUpdate, ID: id, Patch: func(t *models.Todo) {
			t.CreatedAt = created
			t.Order = order
		}})
		fn := v.change
		v.mu.Unlock()
		fn.notify()
	})
}
