// Package connection defines what the pgstac client needs from a database
// handle and how to build a pool from the environment.
//
// The client never owns a connection. Anything satisfying [Conn] can be
// handed to it: a *pgx.Conn, a *pgxpool.Pool, a *pgxpool.Conn acquired from a
// pool, or a pgx.Tx.
package connection

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Conn executes parameterized statements.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxBeginner starts a transaction. On a pgx.Tx, Begin creates a savepoint.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

var (
	_ Conn       = (*pgx.Conn)(nil)
	_ Conn       = (pgx.Tx)(nil)
	_ Conn       = (*pgxpool.Pool)(nil)
	_ Conn       = (*pgxpool.Conn)(nil)
	_ TxBeginner = (*pgx.Conn)(nil)
	_ TxBeginner = (*pgxpool.Pool)(nil)
	_ TxBeginner = (pgx.Tx)(nil)
)
