package undeletable

import (
	"context"
	"errors"
	"fmt"

	"github.com/seb7887/gofw/sietch"
)

// ForeignKey resolves references to T. Resolution goes through identifier
// lookup, so soft-deleted targets still resolve.
type ForeignKey[T any] struct {
	target *Provider[T]
}

func NewForeignKey[T any](target *Provider[T]) ForeignKey[T] {
	return ForeignKey[T]{target: target}
}

func (fk ForeignKey[T]) Resolve(ctx context.Context, id string) (*T, error) {
	if id == "" {
		return nil, fmt.Errorf("%s: empty reference: %w", fk.target.entity, ErrNotFound)
	}
	return fk.target.Get(ctx, ByID(id))
}

// ResolveNullable returns nil for a nil reference
func (fk ForeignKey[T]) ResolveNullable(ctx context.Context, id *string) (*T, error) {
	if id == nil {
		return nil, nil
	}
	return fk.Resolve(ctx, *id)
}

// Link is one row of a many-to-many link table
type Link struct {
	ID     string `db:"id"`
	FromID string `db:"from_id"`
	ToID   string `db:"to_id"`
}

// LinkID is the identifier of the link between from and to
func LinkID(from, to string) string {
	return from + ":" + to
}

// LinkKey is the getID function for link stores
func LinkKey(l *Link) string { return l.ID }

// ManyToMany relates any owner to rows of T through a link table
type ManyToMany[T any] struct {
	links  sietch.Store[Link, string]
	target *Provider[T]
}

func NewManyToMany[T any](links sietch.Store[Link, string], target *Provider[T]) *ManyToMany[T] {
	return &ManyToMany[T]{links: links, target: target}
}

// Add links owner to targets. Existing links are left alone.
func (m *ManyToMany[T]) Add(ctx context.Context, owner string, targets ...string) error {
	for _, to := range targets {
		err := m.links.Insert(ctx, &Link{ID: LinkID(owner, to), FromID: owner, ToID: to})
		if err != nil && !errors.Is(err, sietch.ErrItemAlreadyExists) {
			return fmt.Errorf("link %s -> %s: %w", owner, to, err)
		}
	}
	return nil
}

// Remove unlinks targets from owner and returns the number of links removed
func (m *ManyToMany[T]) Remove(ctx context.Context, owner string, targets ...string) (int64, error) {
	if len(targets) == 0 {
		return 0, nil
	}
	return m.links.DeleteWhere(ctx, sietch.NewFilter().
		Where("from_id", sietch.OpEqual, owner).
		Where("to_id", sietch.OpIn, targets).
		Build())
}

// Of returns the related rows of owner through the default scope, so
// soft-deleted targets drop out.
func (m *ManyToMany[T]) Of(ctx context.Context, owner string) (Scope[T], error) {
	ids, err := m.targetIDs(ctx, owner)
	if err != nil {
		return Scope[T]{}, err
	}
	return m.target.DefaultScope().Where(ColumnID, sietch.OpIn, ids), nil
}

// AllOf returns every related row of owner, soft-deleted ones included
func (m *ManyToMany[T]) AllOf(ctx context.Context, owner string) (Scope[T], error) {
	ids, err := m.targetIDs(ctx, owner)
	if err != nil {
		return Scope[T]{}, err
	}
	return m.target.FullScope().Where(ColumnID, sietch.OpIn, ids), nil
}

func (m *ManyToMany[T]) targetIDs(ctx context.Context, owner string) ([]string, error) {
	links, err := m.links.Find(ctx, sietch.NewFilter().Where("from_id", sietch.OpEqual, owner).Build())
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(links))
	for i, l := range links {
		ids[i] = l.ToID
	}
	return ids, nil
}
