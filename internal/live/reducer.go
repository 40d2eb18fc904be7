package live

import "sort"

// Keyed is implemented by records with a stable id
type Keyed interface {
	Key() string
}

type ActionKind int

const (
	// ActionInsert adds Item, replacing any record with the same key
	ActionInsert ActionKind = iota
	// ActionUpdate runs Patch on the record with key ID
	ActionUpdate
	// ActionRemove drops the record with key ID
	ActionRemove
)

// Action is an optimistic patch applied ahead of the store's confirmation
type Action[T Keyed] struct {
	Kind  ActionKind
	Item  T
	ID    string
	Patch func(*T)
}

// List is the local state of one view. Replace installs an authoritative
// snapshot; Apply patches it optimistically. Both keep the list sorted.
// List is not safe for concurrent use.
type List[T Keyed] struct {
	items []T
	less  func(a, b T) bool
}

func NewList[T Keyed](less func(a, b T) bool) *List[T] {
	return &List[T]{less: less}
}

func (l *List[T]) Replace(items []T) {
	l.items = append(make([]T, 0, len(items)), items...)
	l.sort()
}

// Apply returns false when the action referenced a missing record
func (l *List[T]) Apply(a Action[T]) bool {
	switch a.Kind {
	case ActionInsert:
		if i := l.index(a.Item.Key()); i >= 0 {
			l.items[i] = a.Item
		} else {
			l.items = append(l.items, a.Item)
		}
	case ActionUpdate:
		i := l.index(a.ID)
		if i < 0 {
			return false
		}
		if a.Patch != nil {
			a.Patch(&l.items[i])
		}
	case ActionRemove:
		i := l.index(a.ID)
		if i < 0 {
			return false
		}
		l.items = append(l.items[:i], l.items[i+1:]...)
		return true
	default:
		return false
	}
	l.sort()
	return true
}

func (l *List[T]) Find(id string) (T, bool) {
	if i := l.index(id); i >= 0 {
		return l.items[i], true
	}
	var zero T
	return zero, false
}

// Items returns a copy of the current records in order
func (l *List[T]) Items() []T {
	return append([]T(nil), l.items...)
}

func (l *List[T]) Len() int {
	return len(l.items)
}

func (l *List[T]) index(id string) int {
	for i, it := range l.items {
		if it.Key() == id {
			return i
		}
	}
	return -1
}

func (l *List[T]) sort() {
	if l.less == nil {
		return
	}
	sort.SliceStable(l.items, func(i, j int) bool {
		return l.less(l.items[i], l.items[j])
	})
}
