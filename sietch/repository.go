package sietch

import "context"

// Store is the storage contract the soft-delete layer runs on.
// T represents the entity type and ID the identifier type.
//
// Update writes a full row addressed by its primary key and never applies a
// visibility filter. UpdateWhere and DeleteWhere are set-based: a single
// statement evaluated against the filter predicate, returning the number of
// affected rows.
type Store[T any, ID comparable] interface {
	Insert(ctx context.Context, item *T) error
	Update(ctx context.Context, item *T) error
	Find(ctx context.Context, filter *Filter) ([]T, error)
	Count(ctx context.Context, filter *Filter) (int64, error)
	Exists(ctx context.Context, filter *Filter) (bool, error)
	UpdateWhere(ctx context.Context, filter *Filter, set Assignments) (int64, error)
	DeleteWhere(ctx context.Context, filter *Filter) (int64, error)
}

// TxFunc is a function that operates within a transaction context.
// Stores called with the given context take part in the transaction.
type TxFunc func(ctx context.Context) error

// Transactional defines an optional interface for transaction support
// Implementations can use type assertion to check if a store supports transactions:
//
//	if txStore, ok := store.(Transactional); ok { ... }
type Transactional interface {
	// WithTx executes the given function within a transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function returns nil, the transaction is committed.
	// If the function panics, the transaction is rolled back and the panic is re-raised.
	WithTx(ctx context.Context, fn TxFunc) error
}
