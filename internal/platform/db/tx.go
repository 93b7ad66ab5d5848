package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const connKey contextKey = "db_conn"

// Querier is the subset of pgx operations shared by pools, connections and
// transactions. Repositories execute against whatever Querier the context
// carries, so a service can group several repository calls into one
// transaction without the repositories knowing.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// WithQuerier returns a context carrying q. Repositories created with a pool
// fall back to the pool when the context carries nothing.
func WithQuerier(ctx context.Context, q Querier) context.Context {
	return context.WithValue(ctx, connKey, q)
}

// QuerierFromContext retrieves the Querier placed in the context by WithTx or
// WithQuerier, or nil when the context carries none.
func QuerierFromContext(ctx context.Context) Querier {
	q, _ := ctx.Value(connKey).(Querier)
	return q
}

// TxRunner is the unit-of-work signature services depend on. Production code
// wires Runner(pool); tests substitute a passthrough.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// Runner adapts a pool to a TxRunner backed by WithTx.
func Runner(pool *pgxpool.Pool) TxRunner {
	return func(ctx context.Context, fn func(ctx context.Context) error) error {
		return WithTx(ctx, pool, fn)
	}
}

// WithTx runs fn inside a single transaction. The transaction is injected into
// the context passed to fn, so every repository call made through that context
// joins the transaction. The transaction commits when fn returns nil and rolls
// back otherwise.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(WithQuerier(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
