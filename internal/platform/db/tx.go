package db

import (
	"context"
	"database/sql"
	"fmt"
)

type txKey struct{}

// Executor is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Repositories run their statements against whichever one the context carries.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// TxFromContext returns the transaction attached to ctx, or nil.
func TxFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// Conn returns the transaction attached to ctx when present, otherwise
// fallback. Repositories call this so the same code runs inside and outside
// a transaction.
func Conn(ctx context.Context, fallback *sql.DB) Executor {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return fallback
}

// TxRunner runs a function inside a single database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txRunner struct{ db *sql.DB }

// NewTxRunner returns a TxRunner backed by sqldb.
func NewTxRunner(sqldb *sql.DB) TxRunner {
	return &txRunner{db: sqldb}
}

// WithTx begins a transaction, attaches it to the context passed to fn, and
// commits when fn returns nil or rolls back when it returns an error. If the
// context already carries a transaction, fn joins it: nested calls never
// open a second transaction.
func (r *txRunner) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
