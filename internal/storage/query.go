package storage

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

type FilterOp string

const (
	OpEq  FilterOp = "=="
	OpLt  FilterOp = "<"
	OpLte FilterOp = "<="
	OpGt  FilterOp = ">"
	OpGte FilterOp = ">="
)

type Filter struct {
	Field string
	Op    FilterOp
	Value any
}

type OrderBy struct {
	Field string
	Desc  bool
}

// Query selects documents of one collection. Field names may use dots to
// reach into nested maps.
type Query struct {
	Collection string
	Filters    []Filter
	Order      []OrderBy
	Limit      int
}

func NewQuery(collection string) Query {
	return Query{Collection: collection}
}

func (q Query) Where(field string, op FilterOp, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Field: field, Op: op, Value: value})
	return q
}

func (q Query) OrderAsc(field string) Query {
	q.Order = append(append([]OrderBy(nil), q.Order...), OrderBy{Field: field})
	return q
}

func (q Query) OrderDesc(field string) Query {
	q.Order = append(append([]OrderBy(nil), q.Order...), OrderBy{Field: field, Desc: true})
	return q
}

func (q Query) WithLimit(n int) Query {
	q.Limit = n
	return q
}

func (q Query) validate() error {
	if err := ValidateCollection(q.Collection); err != nil {
		return err
	}
	for _, f := range q.Filters {
		switch f.Op {
		case OpEq, OpLt, OpLte, OpGt, OpGte:
		default:
			return fmt.Errorf("unsupported filter operator %q on %s", f.Op, f.Field)
		}
		if f.Field == "" {
			return fmt.Errorf("filter field must not be empty")
		}
	}
	return nil
}

// Run filters, sorts and limits docs in memory. Documents missing a filtered
// field never match; documents missing a sort field sort first. Ties are
// broken by path so results are deterministic.
func (q Query) Run(docs []Document) []Document {
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if q.matches(d) {
			out = append(out, d)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		for _, o := range q.Order {
			a, _ := lookup(out[i].Fields, o.Field)
			b, _ := lookup(out[j].Fields, o.Field)
			c := sortCompare(a, b)
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return out[i].Path < out[j].Path
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func (q Query) matches(d Document) bool {
	for _, f := range q.Filters {
		v, ok := lookup(d.Fields, f.Field)
		if !ok {
			return false
		}
		want := normalizeValue(f.Value)
		if f.Op == OpEq {
			if c, ok := compare(v, want); ok {
				if c != 0 {
					return false
				}
				continue
			}
			if !reflect.DeepEqual(v, want) {
				return false
			}
			continue
		}
		c, ok := compare(v, want)
		if !ok {
			return false
		}
		switch f.Op {
		case OpLt:
			ok = c < 0
		case OpLte:
			ok = c <= 0
		case OpGt:
			ok = c > 0
		case OpGte:
			ok = c >= 0
		}
		if !ok {
			return false
		}
	}
	return true
}

func lookup(fields Fields, field string) (any, bool) {
	var cur any = map[string]any(fields)
	for _, part := range strings.Split(field, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Fields:
		return m, true
	}
	return nil, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func normalizeValue(v any) any {
	if f, ok := toFloat(v); ok {
		return f
	}
	return v
}

// compare orders two scalar values of the same kind
func compare(a, b any) (int, bool) {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func rank(v any) int {
	if v == nil {
		return 0
	}
	if _, ok := toFloat(v); ok {
		return 2
	}
	switch v.(type) {
	case bool:
		return 1
	case string:
		return 3
	}
	return 4
}

func sortCompare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	if c, ok := compare(a, b); ok {
		return c
	}
	return 0
}
