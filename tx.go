package pgstac

import (
	"context"
	"errors"

	"github.com/stac-utils/pgstac-go/pkg/connection"
	"github.com/stac-utils/pgstac-go/pkg/constants"
)

const opTransaction = "transaction"

// WithTx runs fn against a client bound to a new transaction on conn. The
// transaction commits if fn returns nil and rolls back in every other case,
// including a panic or runtime.Goexit in fn. Nothing fn wrote is visible
// outside it until commit. If conn is itself a transaction, a savepoint is
// used.
//
// The connection is exclusively held by the transaction until WithTx returns.
func WithTx(ctx context.Context, conn connection.TxBeginner, fn func(*Client) error, opts ...Option) error {
	t := target{op: opTransaction}
	tx, err := conn.Begin(ctx)
	if err != nil {
		return t.classify(err)
	}

	// ended is set once fn has returned normally.
	ended := false
	defer func() {
		if ended {
			return
		}
		// Also reached on panic or runtime.Goexit. The caller's context may be
		// gone by now; the rollback still has to run.
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	err = fn(New(tx, opts...))
	ended = true
	if err != nil {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			return errors.Join(err, t.classify(rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return t.classify(err)
	}
	return nil
}

// WithTx runs fn in a transaction on the client's connection, which must be
// able to begin one. The client passed to fn logs like c.
func (c *Client) WithTx(ctx context.Context, fn func(*Client) error) error {
	beginner, ok := c.conn.(connection.TxBeginner)
	if !ok {
		return target{op: opTransaction}.errorf(KindInvalidInput, constants.ErrTxUnsupported)
	}
	return WithTx(ctx, beginner, fn, c.inherit)
}

func (c *Client) inherit(child *Client) {
	child.logger = c.logger
}
