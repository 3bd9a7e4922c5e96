package undeletable

import (
	"context"
	"fmt"
	"time"

	"github.com/seb7887/gofw/sietch"
)

// Visibility selects which rows a scope can see
type Visibility int

const (
	// VisibilityDefault hides soft-deleted rows
	VisibilityDefault Visibility = iota
	// VisibilityFull sees every row still stored
	VisibilityFull
)

func (v Visibility) String() string {
	if v == VisibilityFull {
		return "full"
	}
	return "default"
}

// ScopeFunc is a reusable scope refinement, e.g. a named query
type ScopeFunc[T any] func(Scope[T]) Scope[T]

// Scope is an immutable, lazily evaluated query over one entity type.
// Chain methods return a new scope; nothing touches storage until a
// terminal method (All, Get, Count, Delete, ...) runs.
type Scope[T any] struct {
	p          *Provider[T]
	visibility Visibility
	filter     *sietch.Filter
	allRows    bool
}

func (s Scope[T]) Visibility() Visibility { return s.visibility }

func (s Scope[T]) Where(field string, op sietch.ComparisonOperator, value any) Scope[T] {
	return s.Filter(sietch.Condition{Field: field, Operator: op, Value: value})
}

func (s Scope[T]) Filter(conds ...sietch.Condition) Scope[T] {
	out := s
	out.filter = s.filter.And(conds...)
	return out
}

func (s Scope[T]) Apply(fns ...ScopeFunc[T]) Scope[T] {
	out := s
	for _, fn := range fns {
		out = fn(out)
	}
	return out
}

// OrderBy replaces the ordering; "-" prefixes a descending field
func (s Scope[T]) OrderBy(fields ...string) Scope[T] {
	out := s
	out.filter = s.filter.Clone()
	out.filter.Sort = parseOrdering(fields)
	return out
}

func (s Scope[T]) Limit(n int) Scope[T] {
	out := s
	out.filter = s.filter.Clone()
	out.filter.Limit = &n
	return out
}

func (s Scope[T]) Offset(n int) Scope[T] {
	out := s
	out.filter = s.filter.Clone()
	out.filter.Offset = &n
	return out
}

// Visible keeps rows that are not concealed
func (s Scope[T]) Visible() Scope[T] {
	return s.Where(ColumnConcealed, sietch.OpEqual, false)
}

// Deleted steps outside the default filter and keeps soft-deleted rows only
func (s Scope[T]) Deleted() Scope[T] {
	out := s.Where(ColumnIsDeleted, sietch.OpEqual, true)
	out.visibility = VisibilityFull
	return out
}

// IncludeDeleted widens the scope to every stored row
func (s Scope[T]) IncludeDeleted() Scope[T] {
	out := s
	out.visibility = VisibilityFull
	return out
}

// AllRows acknowledges a bulk delete without any predicate
func (s Scope[T]) AllRows() Scope[T] {
	out := s
	out.allRows = true
	return out
}

// resolve builds the filter sent to storage
func (s Scope[T]) resolve() *sietch.Filter {
	f := s.filter.Clone()
	if s.visibility == VisibilityDefault {
		f.Conditions = append([]sietch.Condition{Eq(ColumnIsDeleted, false)}, f.Conditions...)
	}
	if len(f.Sort) == 0 {
		f.Sort = append(f.Sort, s.p.ordering...)
	}
	return f
}

func byIdentifier(conds []sietch.Condition) bool {
	for _, c := range conds {
		if c.Field == ColumnID && c.Operator == sietch.OpEqual {
			return true
		}
	}
	return false
}

func (s Scope[T]) sliced() bool {
	return s.filter.Limit != nil || s.filter.Offset != nil
}

// predicate is the filter a set-based mutation runs against
func (s Scope[T]) predicate() (*sietch.Filter, error) {
	if s.sliced() {
		return nil, ErrSlicedMutation
	}
	return s.resolve().Predicate(), nil
}

func (s Scope[T]) deletePredicate() (*sietch.Filter, error) {
	if s.filter.IsEmpty() && !s.allRows {
		return nil, ErrUnscopedBulkDelete
	}
	return s.predicate()
}

func (s Scope[T]) All(ctx context.Context) ([]T, error) {
	var items []T
	_, err := s.p.observe(ctx, "find", func(ctx context.Context) (int64, error) {
		var err error
		items, err = s.p.store.Find(ctx, s.resolve())
		return int64(len(items)), err
	})
	return items, err
}

// First returns the first row in scope order
func (s Scope[T]) First(ctx context.Context) (*T, error) {
	items, err := s.Limit(1).All(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%s: %w", s.p.entity, ErrNotFound)
	}
	return &items[0], nil
}

// Latest returns the most recently created row
func (s Scope[T]) Latest(ctx context.Context) (*T, error) {
	return s.OrderBy("-" + ColumnCreatedAt).First(ctx)
}

// Get returns the only row in scope
func (s Scope[T]) Get(ctx context.Context) (*T, error) {
	items, err := s.Limit(2).All(ctx)
	if err != nil {
		return nil, err
	}
	switch len(items) {
	case 0:
		return nil, fmt.Errorf("%s: %w", s.p.entity, ErrNotFound)
	case 1:
		return &items[0], nil
	default:
		return nil, fmt.Errorf("%s: %w", s.p.entity, ErrMultipleResults)
	}
}

func (s Scope[T]) Count(ctx context.Context) (int64, error) {
	var total int64
	_, err := s.p.observe(ctx, "count", func(ctx context.Context) (int64, error) {
		n, err := s.p.store.Count(ctx, s.resolve().Predicate())
		total = s.window(n)
		return 0, err
	})
	return total, err
}

// window applies offset and limit to an unsliced count
func (s Scope[T]) window(n int64) int64 {
	if s.filter.Offset != nil {
		n -= int64(*s.filter.Offset)
	}
	if s.filter.Limit != nil && n > int64(*s.filter.Limit) {
		n = int64(*s.filter.Limit)
	}
	if n < 0 {
		return 0
	}
	return n
}

func (s Scope[T]) Exists(ctx context.Context) (bool, error) {
	if s.sliced() {
		n, err := s.Count(ctx)
		return n > 0, err
	}
	var found bool
	_, err := s.p.observe(ctx, "exists", func(ctx context.Context) (int64, error) {
		var err error
		found, err = s.p.store.Exists(ctx, s.resolve().Predicate())
		return 0, err
	})
	return found, err
}

// Update writes set to every row in scope with one set-based statement.
// Assigning is_deleted or deleted_at keeps the pair consistent.
func (s Scope[T]) Update(ctx context.Context, set sietch.Assignments) (int64, error) {
	f, err := s.predicate()
	if err != nil {
		return 0, err
	}
	return s.p.observe(ctx, "update", func(ctx context.Context) (int64, error) {
		return s.p.store.UpdateWhere(ctx, f, s.p.stamp(set))
	})
}

// Delete soft-deletes every live row in scope with a single set-based
// update and returns the number of rows changed. Hooks only fire when the
// provider was built with bulk hooks enabled.
func (s Scope[T]) Delete(ctx context.Context) (int64, error) {
	f, err := s.deletePredicate()
	if err != nil {
		return 0, err
	}
	f = f.And(Eq(ColumnIsDeleted, false))
	set := sietch.Assignments{ColumnIsDeleted: true}

	return s.p.observe(ctx, "bulk_delete", func(ctx context.Context) (int64, error) {
		if !s.p.bulkHooks || s.p.signals.empty() {
			return s.p.store.UpdateWhere(ctx, f, s.p.stamp(set))
		}
		return s.deleteWithHooks(ctx, f, set)
	})
}

// deleteWithHooks materialises the matched rows so each one gets its hooks.
// The update is pinned to the materialised identifiers and post hooks see
// the rows with the deletion state that was written.
func (s Scope[T]) deleteWithHooks(ctx context.Context, f *sietch.Filter, set sietch.Assignments) (int64, error) {
	items, err := s.p.store.Find(ctx, f)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	ids := make([]string, len(items))
	for i := range items {
		ids[i] = IDOf(&items[i])
		if err := s.p.signals.firePre(ctx, DeleteEvent[T]{Entity: s.p.entity, Item: &items[i], Bulk: true}); err != nil {
			return 0, fmt.Errorf("pre-delete hook: %w", err)
		}
	}

	stamped := s.p.stamp(set)
	n, err := s.p.store.UpdateWhere(ctx, f.And(sietch.Condition{Field: ColumnID, Operator: sietch.OpIn, Value: ids}), stamped)
	if err != nil {
		return 0, err
	}

	deletedAt, _ := stamped[ColumnDeletedAt].(time.Time)
	modifiedAt, _ := stamped[ColumnModifiedAt].(time.Time)
	var postErr error
	for i := range items {
		base := baseOf(&items[i])
		base.markDeleted(deletedAt)
		base.ModifiedAt = modifiedAt
		if err := s.p.postDelete(ctx, DeleteEvent[T]{Entity: s.p.entity, Item: &items[i], Bulk: true}); err != nil && postErr == nil {
			postErr = err
		}
	}
	return n, postErr
}

// ForceDelete physically removes every row in scope. No hooks fire.
func (s Scope[T]) ForceDelete(ctx context.Context) (int64, error) {
	f, err := s.deletePredicate()
	if err != nil {
		return 0, err
	}
	return s.p.observe(ctx, "bulk_force_delete", func(ctx context.Context) (int64, error) {
		return s.p.store.DeleteWhere(ctx, f)
	})
}

// Undelete restores every soft-deleted row in scope. A default scope holds
// no deleted rows, so there it changes nothing.
func (s Scope[T]) Undelete(ctx context.Context) (int64, error) {
	f, err := s.predicate()
	if err != nil {
		return 0, err
	}
	f = f.And(Eq(ColumnIsDeleted, true))
	return s.p.observe(ctx, "undelete", func(ctx context.Context) (int64, error) {
		return s.p.store.UpdateWhere(ctx, f, s.p.stamp(sietch.Assignments{ColumnIsDeleted: false}))
	})
}

func (s Scope[T]) Conceal(ctx context.Context) (int64, error) {
	return s.setConcealed(ctx, "conceal", true)
}

func (s Scope[T]) Reveal(ctx context.Context) (int64, error) {
	return s.setConcealed(ctx, "reveal", false)
}

func (s Scope[T]) setConcealed(ctx context.Context, operation string, concealed bool) (int64, error) {
	f, err := s.predicate()
	if err != nil {
		return 0, err
	}
	f = f.And(Eq(ColumnConcealed, !concealed))
	return s.p.observe(ctx, operation, func(ctx context.Context) (int64, error) {
		return s.p.store.UpdateWhere(ctx, f, s.p.stamp(sietch.Assignments{ColumnConcealed: concealed}))
	})
}

// stamp copies set, bumps modified_at and derives the deletion pair
func (p *Provider[T]) stamp(set sietch.Assignments) sietch.Assignments {
	now := p.now()
	out := make(sietch.Assignments, len(set)+2)
	for k, v := range set {
		out[k] = v
	}
	if _, ok := out[ColumnModifiedAt]; !ok {
		out[ColumnModifiedAt] = now
	}

	deleted, hasFlag := out[ColumnIsDeleted].(bool)
	deletedAt, hasTime := out[ColumnDeletedAt]
	switch {
	case hasFlag && deleted:
		if !hasTime || isNil(deletedAt) {
			out[ColumnDeletedAt] = now
		}
	case hasFlag:
		out[ColumnDeletedAt] = nil
	case hasTime:
		out[ColumnIsDeleted] = !isNil(deletedAt)
	}
	return out
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	t, ok := v.(*time.Time)
	return ok && t == nil
}
