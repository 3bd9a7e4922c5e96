package undeletable

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("record not found")
	ErrMultipleResults    = errors.New("multiple records returned")
	ErrUnscopedBulkDelete = errors.New("bulk delete without a predicate; call AllRows to acknowledge")
	ErrSlicedMutation     = errors.New("cannot mutate a limited or offset scope")
	ErrRemoved            = errors.New("record has been force deleted")
	ErrNotRecord          = errors.New("type does not embed undeletable.Model")
)

// PostDeleteError reports a post-delete hook failure. The deletion itself
// has been committed.
type PostDeleteError struct {
	Entity string
	ID     string
	Err    error
}

func (e *PostDeleteError) Error() string {
	return fmt.Sprintf("post-delete hook for %s %s: %v", e.Entity, e.ID, e.Err)
}

func (e *PostDeleteError) Unwrap() error { return e.Err }
