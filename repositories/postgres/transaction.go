package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/epicevents/crm/repositories"
	"go.uber.org/zap"
)

type txKey struct{}

// txFrom returns the transaction bound to ctx by Begin, if any.
func txFrom(ctx context.Context) (*Transaction, bool) {
	tx, ok := ctx.Value(txKey{}).(*Transaction)
	return tx, ok
}

// TransactionManager runs units of work on a single *sql.Tx
type TransactionManager struct {
	db     *DB
	logger *zap.Logger
}

// NewTransactionManager creates a new transaction manager
func NewTransactionManager(db *DB, logger *zap.Logger) repositories.TransactionManager {
	return &TransactionManager{db: db, logger: logger}
}

// Begin opens a transaction and binds it to the returned Transaction's context.
func (tm *TransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	sqlTx, err := tm.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	tm.logger.Debug("transaction started")

	tx := &Transaction{sqlTx: sqlTx, logger: tm.logger}
	tx.ctx = context.WithValue(ctx, txKey{}, tx)
	return tx, nil
}

// InTransaction commits when fn succeeds and rolls back otherwise. Nested
// calls join the transaction already in ctx; only the outermost call
// commits.
func (tm *TransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	if outer, ok := txFrom(ctx); ok {
		return fn(ctx, outer)
	}

	tx, err := tm.Begin(ctx)
	if err != nil {
		return err
	}

	if fnErr := fn(tx.Context(), tx); fnErr != nil {
		if err := tx.Rollback(); err != nil {
			tm.logger.Error("failed to rollback transaction",
				zap.Error(err),
				zap.NamedError("original_error", fnErr),
			)
		}
		return fnErr
	}
	return tx.Commit()
}

// Transaction wraps *sql.Tx together with the context repositories read it from
type Transaction struct {
	sqlTx  *sql.Tx
	ctx    context.Context
	logger *zap.Logger
}

func (t *Transaction) Commit() error {
	if err := t.sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	t.logger.Debug("transaction committed")
	return nil
}

// Rollback is a no-op once the transaction has finished.
func (t *Transaction) Rollback() error {
	err := t.sqlTx.Rollback()
	switch {
	case err == nil:
		t.logger.Debug("transaction rolled back")
		return nil
	case errors.Is(err, sql.ErrTxDone):
		return nil
	default:
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
}

func (t *Transaction) Context() context.Context { return t.ctx }

// Executor is satisfied by both *sql.DB and *sql.Tx
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// GetExecutor picks the transaction bound to ctx, or the pool when there is none.
func GetExecutor(ctx context.Context, db *DB) Executor {
	if tx, ok := txFrom(ctx); ok {
		return tx.sqlTx
	}
	return db.DB
}
