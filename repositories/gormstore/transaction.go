package gormstore

import (
	"context"
	"fmt"

	"github.com/epicevents/crm/repositories"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type transactionContextKey struct{}

// TransactionManager implements repositories.TransactionManager on gorm
type TransactionManager struct {
	store *Store
}

// Begin starts a new transaction
func (tm *TransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	gtx := tm.store.db.WithContext(ctx).Begin()
	if gtx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", gtx.Error)
	}
	tx := &Transaction{tx: gtx, logger: tm.store.logger}
	tx.ctx = context.WithValue(ctx, transactionContextKey{}, tx)
	return tx, nil
}

// InTransaction executes fn within a transaction, reusing one already in ctx
func (tm *TransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	if outer, ok := ctx.Value(transactionContextKey{}).(*Transaction); ok {
		return fn(ctx, outer)
	}

	tx, err := tm.Begin(ctx)
	if err != nil {
		return err
	}

	if err := fn(tx.Context(), tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			tm.store.logger.Error("failed to rollback transaction",
				zap.Error(rbErr),
				zap.NamedError("original_error", err),
			)
		}
		return err
	}

	return tx.Commit()
}

// Transaction implements repositories.Transaction on a gorm transaction
type Transaction struct {
	tx     *gorm.DB
	ctx    context.Context
	logger *zap.Logger
}

// Commit commits the transaction
func (t *Transaction) Commit() error {
	if err := t.tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	t.logger.Debug("transaction committed")
	return nil
}

// Rollback rolls back the transaction
func (t *Transaction) Rollback() error {
	if err := t.tx.Rollback().Error; err != nil {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	t.logger.Debug("transaction rolled back")
	return nil
}

// Context returns the transaction context
func (t *Transaction) Context() context.Context {
	return t.ctx
}
