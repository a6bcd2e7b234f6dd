package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Tx exposes a running pgx transaction through PgxIface so repositories
// built on it take part in the transaction without knowing about it.
type Tx struct {
	tx pgx.Tx
}

func (t *Tx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.tx.Query(ctx, sql, args...)
}

func (t *Tx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.tx.QueryRow(ctx, sql, args...)
}

func (t *Tx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.tx.Exec(ctx, sql, args...)
}

// Begin opens a savepoint
func (t *Tx) Begin(ctx context.Context) (pgx.Tx, error) {
	return t.tx.Begin(ctx)
}

func (t *Tx) Ping(ctx context.Context) error {
	return t.tx.Conn().Ping(ctx)
}

// Close is a no-op; the transaction is finished by WithTx
func (t *Tx) Close() {}

// WithTx runs fn inside a transaction. It commits when fn returns nil and
// rolls back otherwise.
func WithTx(ctx context.Context, db PgxIface, fn func(tx PgxIface) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	// rollback must still run when ctx has already expired
	rollbackCtx := context.WithoutCancel(ctx)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(rollbackCtx)
			panic(p)
		}
	}()

	if err := fn(&Tx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(rollbackCtx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("rollback transaction: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
