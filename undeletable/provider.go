package undeletable

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/seb7887/gofw/idgen"
	"github.com/seb7887/gofw/sietch"
	"go.opentelemetry.io/otel/trace"
)

type options struct {
	entity         string
	logger         sietch.QueryLogger
	metrics        *Metrics
	tracerProvider trace.TracerProvider
	clock          func() time.Time
	bulkHooks      bool
	ordering       []string
	newID          idgen.Generator
}

// Option configures a Provider
type Option func(o *options)

// WithEntityName overrides the name used in logs, metrics and events.
// Defaults to the Go type name.
func WithEntityName(name string) Option {
	return func(o *options) { o.entity = name }
}

func WithLogger(logger sietch.QueryLogger) Option {
	return func(o *options) { o.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithBulkHooks makes scope level soft deletes fire hooks for every row
func WithBulkHooks(enabled bool) Option {
	return func(o *options) { o.bulkHooks = enabled }
}

// WithOrdering sets the default ordering; "-" prefixes a descending field
func WithOrdering(fields ...string) Option {
	return func(o *options) { o.ordering = fields }
}

func WithIDGenerator(gen idgen.Generator) Option {
	return func(o *options) { o.newID = gen }
}

// Provider is the entry point for one entity type. It hands out scopes and
// drives the single record lifecycle.
type Provider[T any] struct {
	store    sietch.Store[T, string]
	entity   string
	signals  *Signals[T]
	logger   sietch.QueryLogger
	metrics  *Metrics
	tracer   trace.Tracer
	clock    func() time.Time
	newID    idgen.Generator
	ordering []sietch.SortField

	bulkHooks bool
}

// NewProvider binds T to a store. T must embed Model.
func NewProvider[T any](store sietch.Store[T, string], opts ...Option) (*Provider[T], error) {
	if !isRecord[T]() {
		return nil, fmt.Errorf("%w: %T", ErrNotRecord, *new(T))
	}
	if store == nil {
		return nil, errors.New("store cannot be nil")
	}

	o := options{
		entity: reflect.TypeOf((*T)(nil)).Elem().Name(),
		logger: sietch.NewNoOpLogger(),
		clock:  time.Now,
		newID:  idgen.NewULID,
	}
	if orderer, ok := any(new(T)).(Orderer); ok {
		o.ordering = orderer.DefaultOrdering()
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Provider[T]{
		store:     store,
		entity:    o.entity,
		signals:   &Signals[T]{},
		logger:    o.logger,
		metrics:   o.metrics,
		tracer:    newTracer(o.tracerProvider),
		clock:     o.clock,
		newID:     o.newID,
		ordering:  parseOrdering(o.ordering),
		bulkHooks: o.bulkHooks,
	}, nil
}

// Entity returns the entity name used in logs, metrics and events
func (p *Provider[T]) Entity() string { return p.entity }

// Signals returns the delete hooks of this entity type
func (p *Provider[T]) Signals() *Signals[T] { return p.signals }

// Store returns the underlying store
func (p *Provider[T]) Store() sietch.Store[T, string] { return p.store }

// DefaultScope excludes soft-deleted rows
func (p *Provider[T]) DefaultScope() Scope[T] {
	return Scope[T]{p: p, visibility: VisibilityDefault, filter: &sietch.Filter{}}
}

// FullScope includes soft-deleted rows
func (p *Provider[T]) FullScope() Scope[T] {
	return Scope[T]{p: p, visibility: VisibilityFull, filter: &sietch.Filter{}}
}

// Deleted is FullScope restricted to soft-deleted rows
func (p *Provider[T]) Deleted() Scope[T] { return p.DefaultScope().Deleted() }

// Visible is DefaultScope restricted to rows that are not concealed
func (p *Provider[T]) Visible() Scope[T] { return p.DefaultScope().Visible() }

// Filter narrows the default scope. Criteria containing an identifier
// equality narrow the full scope instead, so references to soft-deleted
// rows stay resolvable.
func (p *Provider[T]) Filter(criteria ...sietch.Condition) Scope[T] {
	if byIdentifier(criteria) {
		return p.FullScope().Filter(criteria...)
	}
	return p.DefaultScope().Filter(criteria...)
}

// Get returns the single row matching criteria, with the same identifier
// rule as Filter
func (p *Provider[T]) Get(ctx context.Context, criteria ...sietch.Condition) (*T, error) {
	return p.Filter(criteria...).Get(ctx)
}

// Create assigns an identifier and timestamps, then inserts item
func (p *Provider[T]) Create(ctx context.Context, item *T) error {
	_, err := p.observe(ctx, "create", func(ctx context.Context) (int64, error) {
		base := baseOf(item)
		if base.removed {
			return 0, ErrRemoved
		}
		now := p.now()
		if base.ID == "" {
			base.ID = p.newID()
		}
		if base.CreatedAt.IsZero() {
			base.CreatedAt = now
		}
		base.ModifiedAt = now
		base.normalize(now)
		if err := p.store.Insert(ctx, item); err != nil {
			return 0, err
		}
		return 1, nil
	})
	return err
}

// Save persists item, creating it when it has no identifier. DeletedAt is
// re-derived from IsDeleted before writing.
func (p *Provider[T]) Save(ctx context.Context, item *T) error {
	base := baseOf(item)
	if base.ID == "" {
		return p.Create(ctx, item)
	}
	_, err := p.observe(ctx, "save", func(ctx context.Context) (int64, error) {
		return 1, p.save(ctx, base, item)
	})
	return err
}

func (p *Provider[T]) save(ctx context.Context, base *Model, item *T) error {
	if base.removed {
		return ErrRemoved
	}
	now := p.now()
	base.ModifiedAt = now
	base.normalize(now)
	if err := p.store.Update(ctx, item); err != nil {
		if errors.Is(err, sietch.ErrNoUpdateItem) {
			return fmt.Errorf("%s %s: %w", p.entity, base.ID, ErrNotFound)
		}
		return err
	}
	return nil
}

// Delete soft-deletes item with an update by identifier that only touches
// the deletion columns, then reloads item in place. Other columns keep their
// stored values even when item is out of date. Pre-delete hooks run first
// and can abort; a post-delete hook failure yields *PostDeleteError.
func (p *Provider[T]) Delete(ctx context.Context, item *T) error {
	_, err := p.observe(ctx, "delete", func(ctx context.Context) (int64, error) {
		base := baseOf(item)
		if base.removed {
			return 0, ErrRemoved
		}
		ev := DeleteEvent[T]{Entity: p.entity, Item: item}
		if err := p.signals.firePre(ctx, ev); err != nil {
			return 0, fmt.Errorf("pre-delete hook: %w", err)
		}
		n, err := p.store.UpdateWhere(ctx, byIDFilter(base.ID), p.stamp(sietch.Assignments{ColumnIsDeleted: true}))
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, fmt.Errorf("%s %s: %w", p.entity, base.ID, ErrNotFound)
		}
		if err := p.Refresh(ctx, item); err != nil {
			return n, err
		}
		return n, p.postDelete(ctx, ev)
	})
	return err
}

// ForceDelete physically removes item. The instance cannot be saved afterwards.
func (p *Provider[T]) ForceDelete(ctx context.Context, item *T) error {
	_, err := p.observe(ctx, "force_delete", func(ctx context.Context) (int64, error) {
		base := baseOf(item)
		if base.removed {
			return 0, ErrRemoved
		}
		ev := DeleteEvent[T]{Entity: p.entity, Item: item, Force: true}
		if err := p.signals.firePre(ctx, ev); err != nil {
			return 0, fmt.Errorf("pre-delete hook: %w", err)
		}
		n, err := p.store.DeleteWhere(ctx, byIDFilter(base.ID))
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, fmt.Errorf("%s %s: %w", p.entity, base.ID, ErrNotFound)
		}
		base.removed = true
		return n, p.postDelete(ctx, ev)
	})
	return err
}

func (p *Provider[T]) postDelete(ctx context.Context, ev DeleteEvent[T]) error {
	if err := p.signals.firePost(ctx, ev); err != nil {
		return &PostDeleteError{Entity: p.entity, ID: IDOf(ev.Item), Err: err}
	}
	return nil
}

// Undelete restores item with an update by identifier against the full
// scope, then reloads item in place from storage.
func (p *Provider[T]) Undelete(ctx context.Context, item *T) error {
	base := baseOf(item)
	if base.removed {
		return ErrRemoved
	}
	if _, err := p.FullScope().Where(ColumnID, sietch.OpEqual, base.ID).Undelete(ctx); err != nil {
		return err
	}
	return p.Refresh(ctx, item)
}

// Refresh overwrites item with its stored row, deleted or not
func (p *Provider[T]) Refresh(ctx context.Context, item *T) error {
	base := baseOf(item)
	if base.removed {
		return ErrRemoved
	}
	fresh, err := p.FullScope().Where(ColumnID, sietch.OpEqual, base.ID).Get(ctx)
	if err != nil {
		return err
	}
	*item = *fresh
	return nil
}

func (p *Provider[T]) now() time.Time {
	return p.clock().UTC()
}

// observe wraps an operation with a span, a log entry and metrics
func (p *Provider[T]) observe(ctx context.Context, operation string, fn func(ctx context.Context) (int64, error)) (int64, error) {
	ctx, span := startSpan(ctx, p.tracer, p.entity, operation)
	start := time.Now()
	n, err := fn(ctx)
	duration := time.Since(start)

	p.logger.LogOperation(ctx, operation, p.entity, duration, err)
	p.metrics.observe(p.entity, operation, n, duration, err)
	endSpan(span, n, err)
	return n, err
}

// ByID matches the identifier column
func ByID(id string) sietch.Condition {
	return Eq(ColumnID, id)
}

func byIDFilter(id string) *sietch.Filter {
	return sietch.NewFilter().Where(ColumnID, sietch.OpEqual, id).Build()
}

// Eq is an equality condition
func Eq(field string, value any) sietch.Condition {
	return sietch.Condition{Field: field, Operator: sietch.OpEqual, Value: value}
}

// parseOrdering turns "name" / "-created_at" into sort fields
func parseOrdering(fields []string) []sietch.SortField {
	out := make([]sietch.SortField, 0, len(fields))
	for _, f := range fields {
		dir := sietch.SortAsc
		if strings.HasPrefix(f, "-") {
			dir = sietch.SortDesc
			f = f[1:]
		}
		if f == "" {
			continue
		}
		out = append(out, sietch.SortField{Field: f, Direction: dir})
	}
	return out
}
