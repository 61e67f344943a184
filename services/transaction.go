package services

import (
	"context"

	"github.com/epicevents/crm/repositories"
)

// WithTransaction executes fn within a database transaction. Repositories
// called with the context passed to fn take part in it. Commits on success,
// rolls back on error or panic.
func WithTransaction(ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context) error) error {
	return txMgr.InTransaction(ctx, func(txCtx context.Context, tx repositories.Transaction) (err error) {
		// Use defer to ensure rollback on panic
		defer func() {
			if p := recover(); p != nil {
				_ = tx.Rollback()
				panic(p) // Re-panic after rollback
			}
		}()
		return fn(txCtx)
	})
}

// WithTransactionResult executes fn within a database transaction and returns its result.
func WithTransactionResult[T any](ctx context.Context, txMgr repositories.TransactionManager, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := WithTransaction(ctx, txMgr, func(txCtx context.Context) error {
		var err error
		result, err = fn(txCtx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
