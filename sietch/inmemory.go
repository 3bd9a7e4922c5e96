package sietch

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// InMemoryConnector in-memory implementation of the Store interface.
// Rows are copied on the way in and out, so callers never share memory with
// the stored state.
type InMemoryConnector[T any, ID comparable] struct {
	data    map[ID]*T
	seq     map[ID]uint64
	next    uint64
	mu      sync.RWMutex
	txMu    sync.Mutex
	getID   func(t *T) ID // function to extract an element ID
	columns []column
	colErr  error
}

func NewInMemoryConnector[T any, ID comparable](getID func(t *T) ID) *InMemoryConnector[T, ID] {
	cols, err := columnsOf[T]()
	return &InMemoryConnector[T, ID]{
		data:    make(map[ID]*T),
		seq:     make(map[ID]uint64),
		getID:   getID,
		columns: cols,
		colErr:  err,
	}
}

func (r *InMemoryConnector[T, ID]) Insert(_ context.Context, item *T) error {
	if item == nil {
		return fmt.Errorf("item cannot be nil")
	}
	if r.colErr != nil {
		return r.colErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.getID(item)
	if _, exists := r.data[id]; exists {
		return ErrItemAlreadyExists
	}

	row := *item
	r.next++
	r.data[id] = &row
	r.seq[id] = r.next
	return nil
}

func (r *InMemoryConnector[T, ID]) Update(_ context.Context, item *T) error {
	if item == nil {
		return fmt.Errorf("item cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.getID(item)
	if _, exists := r.data[id]; !exists {
		return ErrNoUpdateItem
	}

	row := *item
	r.data[id] = &row
	return nil
}

func (r *InMemoryConnector[T, ID]) Find(_ context.Context, filter *Filter) ([]T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids, err := r.match(filter)
	if err != nil {
		return nil, err
	}
	if err := r.order(ids, filter); err != nil {
		return nil, err
	}
	ids = page(ids, filter)

	results := make([]T, 0, len(ids))
	for _, id := range ids {
		results = append(results, *r.data[id])
	}
	return results, nil
}

func (r *InMemoryConnector[T, ID]) Count(_ context.Context, filter *Filter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids, err := r.match(filter)
	if err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

func (r *InMemoryConnector[T, ID]) Exists(ctx context.Context, filter *Filter) (bool, error) {
	n, err := r.Count(ctx, filter)
	return n > 0, err
}

func (r *InMemoryConnector[T, ID]) UpdateWhere(_ context.Context, filter *Filter, set Assignments) (int64, error) {
	if len(set) == 0 {
		return 0, fmt.Errorf("no assignments")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	targets := make([]column, 0, len(set))
	for _, name := range set.Columns() {
		col, ok := findColumn(r.columns, name)
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
		}
		targets = append(targets, col)
	}

	ids, err := r.match(filter)
	if err != nil {
		return 0, err
	}

	// Build every new row before touching the map so a bad value leaves no partial update.
	updated := make(map[ID]*T, len(ids))
	for _, id := range ids {
		row := *r.data[id]
		v := reflect.ValueOf(&row).Elem()
		for _, col := range targets {
			if err := assignValue(v.FieldByIndex(col.index), set[col.name]); err != nil {
				return 0, fmt.Errorf("column %s: %w", col.name, err)
			}
		}
		updated[id] = &row
	}
	for id, row := range updated {
		r.data[id] = row
	}
	return int64(len(updated)), nil
}

func (r *InMemoryConnector[T, ID]) DeleteWhere(_ context.Context, filter *Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids, err := r.match(filter)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		delete(r.data, id)
		delete(r.seq, id)
	}
	return int64(len(ids)), nil
}

// match returns the ids of the rows satisfying the filter in insertion order.
// Callers must hold the lock.
func (r *InMemoryConnector[T, ID]) match(filter *Filter) ([]ID, error) {
	if r.colErr != nil {
		return nil, r.colErr
	}
	var conds []Condition
	if filter != nil {
		conds = filter.Conditions
	}
	for _, c := range conds {
		if _, ok := findColumn(r.columns, c.Field); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, c.Field)
		}
	}

	var ids []ID
	for id, item := range r.data {
		ok, err := r.matchesConditions(item, conds)
		if err != nil {
			return nil, err
		}
		if ok {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return r.seq[ids[i]] < r.seq[ids[j]] })
	return ids, nil
}

func (r *InMemoryConnector[T, ID]) order(ids []ID, filter *Filter) error {
	if filter == nil || len(filter.Sort) == 0 {
		return nil
	}
	sortCols := make([]column, len(filter.Sort))
	for i, s := range filter.Sort {
		col, ok := findColumn(r.columns, s.Field)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownColumn, s.Field)
		}
		sortCols[i] = col
	}

	sort.SliceStable(ids, func(i, j int) bool {
		a := reflect.ValueOf(r.data[ids[i]]).Elem()
		b := reflect.ValueOf(r.data[ids[j]]).Elem()
		for k, s := range filter.Sort {
			av, _ := deref(a.FieldByIndex(sortCols[k].index))
			bv, _ := deref(b.FieldByIndex(sortCols[k].index))
			c := compare(av, bv)
			if c == 0 {
				continue
			}
			if s.Direction == SortDesc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return nil
}

func page[ID any](ids []ID, filter *Filter) []ID {
	if filter == nil {
		return ids
	}
	if filter.Offset != nil {
		if *filter.Offset >= len(ids) {
			return nil
		}
		ids = ids[*filter.Offset:]
	}
	if filter.Limit != nil && *filter.Limit < len(ids) {
		ids = ids[:*filter.Limit]
	}
	return ids
}

func (r *InMemoryConnector[T, ID]) matchesConditions(item *T, conds []Condition) (bool, error) {
	v := reflect.ValueOf(item).Elem()
	for _, condition := range conds {
		col, _ := findColumn(r.columns, condition.Field)
		value, isNull := deref(v.FieldByIndex(col.index))
		ok, err := matchesCondition(value, isNull, condition)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// deref unwraps pointer fields. A nil pointer is reported as null.
func deref(field reflect.Value) (any, bool) {
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			return nil, true
		}
		return field.Elem().Interface(), false
	}
	return field.Interface(), false
}

func matchesCondition(value any, isNull bool, condition Condition) (bool, error) {
	switch condition.Operator {
	case OpIsNull:
		return isNull, nil
	case OpIsNotNull:
		return !isNull, nil
	case OpEqual:
		if condition.Value == nil {
			return isNull, nil
		}
		return !isNull && equal(value, condition.Value), nil
	case OpNotEqual:
		if condition.Value == nil {
			return !isNull, nil
		}
		return !isNull && !equal(value, condition.Value), nil
	case OpGreaterThan:
		return !isNull && compare(value, condition.Value) > 0, nil
	case OpLessThan:
		return !isNull && compare(value, condition.Value) < 0, nil
	case OpGreaterThanOrEqual:
		return !isNull && compare(value, condition.Value) >= 0, nil
	case OpLessThanOrEqual:
		return !isNull && compare(value, condition.Value) <= 0, nil
	case OpIn, OpNotIn:
		list := reflect.ValueOf(condition.Value)
		if list.Kind() != reflect.Slice && list.Kind() != reflect.Array {
			return false, fmt.Errorf("operator %s requires a slice value", condition.Operator)
		}
		found := false
		for i := 0; i < list.Len() && !isNull; i++ {
			if equal(value, list.Index(i).Interface()) {
				found = true
				break
			}
		}
		if condition.Operator == OpIn {
			return found, nil
		}
		return !isNull && !found, nil
	case OpLike:
		s, ok := value.(string)
		pattern, okP := condition.Value.(string)
		if !ok || !okP {
			return false, nil
		}
		return likePattern(pattern).MatchString(s), nil
	default:
		return false, fmt.Errorf("%w: operator %q", ErrUnsupportedOperation, condition.Operator)
	}
}

func likePattern(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

func equal(a, b any) bool {
	if bp := reflect.ValueOf(b); bp.Kind() == reflect.Ptr {
		if bp.IsNil() {
			return false
		}
		b = bp.Elem().Interface()
	}
	if af, okA := toFloat64(a); okA {
		if bf, okB := toFloat64(b); okB {
			return af == bf
		}
	}
	if at, okA := a.(time.Time); okA {
		if bt, okB := b.(time.Time); okB {
			return at.Equal(bt)
		}
	}
	return reflect.DeepEqual(a, b)
}

func compare(a, b any) int {
	if bp := reflect.ValueOf(b); bp.Kind() == reflect.Ptr && !bp.IsNil() {
		b = bp.Elem().Interface()
	}
	af, okA := toFloat64(a)
	bf, okB := toFloat64(b)
	if okA && okB {
		if af < bf {
			return -1
		} else if af > bf {
			return 1
		}
		return 0
	}

	if at, okA := a.(time.Time); okA {
		if bt, okB := b.(time.Time); okB {
			return at.Compare(bt)
		}
	}

	if ab, okA := a.(bool); okA {
		if bb, okB := b.(bool); okB {
			switch {
			case ab == bb:
				return 0
			case !ab:
				return -1
			default:
				return 1
			}
		}
	}

	// if they are not numeric, we try to compare them as strings
	as, okA := a.(string)
	bs, okB := b.(string)
	if okA && okB {
		return strings.Compare(as, bs)
	}

	return 0 // fallback
}

func toFloat64(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}
