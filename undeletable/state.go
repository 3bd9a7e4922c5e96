// Package undeletable marks records deleted instead of removing them and
// keeps ordinary reads blind to deleted rows.
package undeletable

import (
	"fmt"
	"time"

	"github.com/seb7887/gofw/sietch"
)

// Canonical column names shared by every soft-deletable table
const (
	ColumnID         = "id"
	ColumnCreatedAt  = "created_at"
	ColumnModifiedAt = "modified_at"
	ColumnIsDeleted  = "is_deleted"
	ColumnDeletedAt  = "deleted_at"
	ColumnConcealed  = "concealed"
	ColumnName       = "name"
)

// DeletionState is the per-record visibility state.
// IsDeleted is the source of truth; DeletedAt is non-nil exactly when
// IsDeleted is true. Concealed is independent of both.
type DeletionState struct {
	IsDeleted bool       `db:"is_deleted" json:"is_deleted"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	Concealed bool       `db:"concealed" json:"concealed"`
}

// normalize re-derives DeletedAt from IsDeleted. An already deleted record
// keeps the time of its last transition into the deleted state.
func (s *DeletionState) normalize(now time.Time) {
	if !s.IsDeleted {
		s.DeletedAt = nil
		return
	}
	if s.DeletedAt == nil {
		s.DeletedAt = &now
	}
}

func (s *DeletionState) markDeleted(now time.Time) {
	s.IsDeleted = true
	s.DeletedAt = &now
}

// Model is the base of every soft-deletable entity. Embed it:
//
//	type Author struct {
//		undeletable.Model
//		Name string `db:"name"`
//	}
type Model struct {
	ID         string    `db:"id" json:"id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	ModifiedAt time.Time `db:"modified_at" json:"modified_at"`
	DeletionState

	// set once the row has been physically removed
	removed bool
}

// Base gives the lifecycle code access to the embedded Model
func (m *Model) Base() *Model { return m }

// Removed reports whether the instance was force deleted
func (m *Model) Removed() bool { return m.removed }

// DefaultOrdering lists the sort applied when a scope has none: newest first
func (m *Model) DefaultOrdering() []string { return []string{"-" + ColumnCreatedAt} }

// NamedModel is a Model with a name, ordered alphabetically by default
type NamedModel struct {
	Model
	Name string `db:"name" json:"name"`
}

func (m *NamedModel) DefaultOrdering() []string { return []string{ColumnName} }

func (m *NamedModel) String() string { return m.Name }

// Record is implemented by any struct embedding Model
type Record interface {
	Base() *Model
}

// Orderer overrides the default ordering of an entity type
type Orderer interface {
	DefaultOrdering() []string
}

// IDOf returns the identifier of a record. It is the getID function stores
// need, e.g. sietch.NewInMemoryConnector[Author](undeletable.IDOf[Author]).
func IDOf[T any](item *T) string {
	return baseOf(item).ID
}

func baseOf[T any](item *T) *Model {
	return any(item).(Record).Base()
}

func isRecord[T any]() bool {
	var zero T
	_, ok := any(&zero).(Record)
	return ok
}

// TableDef infers the table of T and adds a partial index over live rows,
// the rows every default scoped read touches.
func TableDef[T any](table string) (*sietch.TableDef, error) {
	if !isRecord[T]() {
		return nil, fmt.Errorf("%T does not embed undeletable.Model", *new(T))
	}
	def, err := sietch.InferTableDef[T](table)
	if err != nil {
		return nil, err
	}
	def.Indexes = append(def.Indexes,
		sietch.IndexDef{
			Name:    table + "_live_created_idx",
			Columns: []string{ColumnCreatedAt},
			Where:   `"` + ColumnIsDeleted + `" = false`,
		},
		sietch.IndexDef{
			Name:    table + "_deleted_at_idx",
			Columns: []string{ColumnDeletedAt},
			Where:   `"` + ColumnIsDeleted + `" = true`,
		},
	)
	return def, nil
}
