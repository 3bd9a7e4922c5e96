package sietch

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Queryable interface abstracts both pgxpool.Pool and pgx.Tx
type Queryable interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// WithTx executes the given function within a transaction.
// Every connector call made with the context handed to fn runs on that
// transaction. When ctx already carries a transaction, fn joins it.
func (r *CockroachDBConnector[T, ID]) WithTx(ctx context.Context, fn TxFunc) error {
	if _, ok := getTxFromContext(ctx); ok {
		return fn(ctx)
	}
	if r.pool == nil {
		return fmt.Errorf("pool cannot be nil")
	}
	return NewTransactionManager(r.pool).WithTx(ctx, MultiRepoTxFunc(fn))
}
