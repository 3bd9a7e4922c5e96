package sietch

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TransactionManager manages database transactions across multiple stores
type TransactionManager struct {
	pool   *pgxpool.Pool
	logger QueryLogger
}

// MultiRepoTxFunc is a function that executes operations within a transaction context
// All operations should use the provided context which contains the active transaction
type MultiRepoTxFunc func(ctx context.Context) error

// NewTransactionManager creates a new transaction manager
func NewTransactionManager(pool *pgxpool.Pool) *TransactionManager {
	if pool == nil {
		panic("pool cannot be nil")
	}
	return &TransactionManager{pool: pool, logger: NewNoOpLogger()}
}

// SetLogger sets the logger used to report rollback failures
func (tm *TransactionManager) SetLogger(logger QueryLogger) {
	if logger != nil {
		tm.logger = logger
	}
}

// WithTx executes the provided function within a transaction
// If the function returns an error, the transaction is rolled back
// If the function completes successfully, the transaction is committed
// The transaction is also rolled back if a panic occurs
func (tm *TransactionManager) WithTx(ctx context.Context, fn MultiRepoTxFunc) error {
	start := time.Now()
	tx, err := tm.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			rbErr := tx.Rollback(ctx)
			logQuery(tm.logger, ctx, "rollback", "ROLLBACK", nil, start, rbErr)
			panic(p)
		}
	}()

	txCtx := context.WithValue(ctx, txKey{}, tx)

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			logQuery(tm.logger, ctx, "rollback", "ROLLBACK", nil, start, rbErr)
			return fmt.Errorf("tx error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	logQuery(tm.logger, ctx, "commit", "COMMIT", nil, start, nil)

	return nil
}

// txKey is the context key type for transaction injection
type txKey struct{}

// getTxFromContext extracts the transaction from context, if present
func getTxFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}
