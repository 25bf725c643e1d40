package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"principal-registry/internal/domain"
)

// DBTX is the query surface shared by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// TxExecutor runs units of work inside a single transaction. Read-write work
// goes to the write pool, read-only work to the read pool.
type TxExecutor struct {
	write  *sql.DB
	read   *sql.DB
	logger *slog.Logger
}

// NewTxExecutor creates a TxExecutor over the store's pools.
func NewTxExecutor(store *Store, logger *slog.Logger) *TxExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TxExecutor{write: store.Write, read: store.Read, logger: logger}
}

// Execute opens a transaction in the given mode and invokes fn with it.
// fn returning nil commits; an error or panic rolls back. Errors that already
// carry a domain kind are returned as-is, anything else is wrapped in a
// domain.InternalError labelled with description.
func (e *TxExecutor) Execute(ctx context.Context, mode domain.TxMode, description string, fn func(ctx context.Context, q DBTX) error) error {
	pool, opts := e.write, (*sql.TxOptions)(nil)
	if mode == domain.TxReadOnly {
		pool, opts = e.read, &sql.TxOptions{ReadOnly: true}
	}

	tx, err := pool.BeginTx(ctx, opts)
	if err != nil {
		return domain.ErrInternal(description, fmt.Errorf("begin %s transaction: %w", mode, err))
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			e.logger.Warn("transaction rollback failed", "op", description, "error", rbErr)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if domain.IsClassified(err) {
			return err
		}
		return domain.ErrInternal(description, err)
	}

	if err := tx.Commit(); err != nil {
		return domain.ErrInternal(description, fmt.Errorf("commit: %w", err))
	}
	committed = true
	return nil
}

// RunInTx is Execute for units of work that produce a value.
func RunInTx[T any](ctx context.Context, e *TxExecutor, mode domain.TxMode, description string, fn func(ctx context.Context, q DBTX) (T, error)) (T, error) {
	var out T
	err := e.Execute(ctx, mode, description, func(ctx context.Context, q DBTX) error {
		v, err := fn(ctx, q)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
