package sietch

import (
	"context"
	"time"
)

// Cache stores single rows keyed by primary key.
// Get returns ErrItemNotFound on a miss. Flush drops every entry at once.
type Cache[T any, ID comparable] interface {
	Get(ctx context.Context, id ID) (*T, error)
	Set(ctx context.Context, id ID, item *T) error
	Delete(ctx context.Context, id ID) error
	Flush(ctx context.Context) error
}

// CachedStore wraps a base store with a read-through cache for primary key
// lookups. Only filters made of a single "pk = value" condition are served
// from the cache; anything else goes straight to the base store.
//
// Writes are write-around: single-row writes invalidate their key, set-based
// writes flush the whole cache since the affected keys are unknown.
type CachedStore[T any, ID comparable] struct {
	base       Store[T, ID]
	cache      Cache[T, ID]
	getID      func(*T) ID
	primaryKey string
	logger     QueryLogger
}

// NewCachedStore creates a cached store. primaryKey is the column getID reads.
func NewCachedStore[T any, ID comparable](base Store[T, ID], cache Cache[T, ID], primaryKey string, getID func(*T) ID) *CachedStore[T, ID] {
	return &CachedStore[T, ID]{
		base:       base,
		cache:      cache,
		getID:      getID,
		primaryKey: primaryKey,
		logger:     NewNoOpLogger(),
	}
}

// SetLogger sets the logger used to report cache failures
func (r *CachedStore[T, ID]) SetLogger(logger QueryLogger) {
	if logger != nil {
		r.logger = logger
	}
}

// lookupKey returns the id when the filter is a plain primary key lookup
func (r *CachedStore[T, ID]) lookupKey(filter *Filter) (ID, bool) {
	var zero ID
	if filter == nil || len(filter.Conditions) != 1 || filter.Offset != nil {
		return zero, false
	}
	if filter.Limit != nil && *filter.Limit < 1 {
		return zero, false
	}
	c := filter.Conditions[0]
	if c.Field != r.primaryKey || c.Operator != OpEqual {
		return zero, false
	}
	id, ok := c.Value.(ID)
	return id, ok
}

// Find tries the cache first for primary key lookups, falls back to base on miss
func (r *CachedStore[T, ID]) Find(ctx context.Context, filter *Filter) ([]T, error) {
	id, ok := r.lookupKey(filter)
	if !ok {
		return r.base.Find(ctx, filter)
	}

	if item, err := r.cache.Get(ctx, id); err == nil {
		return []T{*item}, nil
	}

	items, err := r.base.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(items) == 1 {
		start := time.Now()
		err := r.cache.Set(ctx, id, &items[0])
		logOperation(r.logger, ctx, "cache_set", "", start, err)
	}
	return items, nil
}

func (r *CachedStore[T, ID]) Insert(ctx context.Context, item *T) error {
	if err := r.base.Insert(ctx, item); err != nil {
		return err
	}
	r.invalidate(ctx, r.getID(item))
	return nil
}

func (r *CachedStore[T, ID]) Update(ctx context.Context, item *T) error {
	if err := r.base.Update(ctx, item); err != nil {
		return err
	}
	r.invalidate(ctx, r.getID(item))
	return nil
}

func (r *CachedStore[T, ID]) UpdateWhere(ctx context.Context, filter *Filter, set Assignments) (int64, error) {
	n, err := r.base.UpdateWhere(ctx, filter, set)
	if err == nil && n > 0 {
		r.flush(ctx)
	}
	return n, err
}

func (r *CachedStore[T, ID]) DeleteWhere(ctx context.Context, filter *Filter) (int64, error) {
	n, err := r.base.DeleteWhere(ctx, filter)
	if err == nil && n > 0 {
		r.flush(ctx)
	}
	return n, err
}

// Count delegates to base
func (r *CachedStore[T, ID]) Count(ctx context.Context, filter *Filter) (int64, error) {
	return r.base.Count(ctx, filter)
}

// Exists delegates to base (cache might have stale data)
func (r *CachedStore[T, ID]) Exists(ctx context.Context, filter *Filter) (bool, error) {
	return r.base.Exists(ctx, filter)
}

// WithTx runs fn in a base transaction. The cache is flushed when the
// transaction fails, since reads inside it may have cached rolled back rows.
func (r *CachedStore[T, ID]) WithTx(ctx context.Context, fn TxFunc) error {
	txStore, ok := r.base.(Transactional)
	if !ok {
		return ErrUnsupportedOperation
	}
	err := txStore.WithTx(ctx, fn)
	if err != nil {
		r.flush(ctx)
	}
	return err
}

func (r *CachedStore[T, ID]) invalidate(ctx context.Context, id ID) {
	start := time.Now()
	err := r.cache.Delete(ctx, id)
	logOperation(r.logger, ctx, "cache_invalidate", "", start, err)
}

func (r *CachedStore[T, ID]) flush(ctx context.Context) {
	start := time.Now()
	err := r.cache.Flush(ctx)
	logOperation(r.logger, ctx, "cache_flush", "", start, err)
}
