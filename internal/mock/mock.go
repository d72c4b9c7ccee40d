// Package mock provides an in-memory connection.Conn for unit tests. It
// records every statement and answers from a queue of scripted responses.
package mock

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNoResponse is returned when a query arrives with nothing queued.
var ErrNoResponse = errors.New("mock: no response queued")

// Call is one statement received by the mock.
type Call struct {
	SQL  string
	Args []any
}

type response struct {
	value any
	err   error
}

// Conn answers statements from a FIFO of responses.
type Conn struct {
	mu        sync.Mutex
	calls     []Call
	responses []response

	Began      int
	Committed  int
	RolledBack int
	// BeginErr and CommitErr make the next Begin or Commit fail.
	BeginErr  error
	CommitErr error
}

func New() *Conn {
	return &Conn{}
}

// Respond queues a single-column result. value is nil for SQL NULL, a string
// for text, or []byte for json.
func (c *Conn) Respond(value any) *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, response{value: value})
	return c
}

// Fail queues an error.
func (c *Conn) Fail(err error) *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses = append(c.responses, response{err: err})
	return c
}

// Calls returns the statements received so far.
func (c *Conn) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

// Pending is the number of responses not consumed yet.
func (c *Conn) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.responses)
}

func (c *Conn) next(ctx context.Context, sql string, args []any) response {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{SQL: sql, Args: args})
	if err := ctx.Err(); err != nil {
		return response{err: err}
	}
	if len(c.responses) == 0 {
		return response{err: ErrNoResponse}
	}
	r := c.responses[0]
	c.responses = c.responses[1:]
	return r
}

// Exec consumes a response when one is queued and succeeds otherwise.
func (c *Conn) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	r := c.next(ctx, sql, args)
	if r.err != nil && !errors.Is(r.err, ErrNoResponse) {
		return pgconn.CommandTag{}, r.err
	}
	return pgconn.NewCommandTag("SELECT 1"), nil
}

func (c *Conn) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	r := c.next(ctx, sql, args)
	return row(r)
}

func (c *Conn) Begin(ctx context.Context) (pgx.Tx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.BeginErr != nil {
		err := c.BeginErr
		c.BeginErr = nil
		return nil, err
	}
	c.Began++
	return &Tx{conn: c}, nil
}

type row response

func (r row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != 1 {
		return fmt.Errorf("mock: expected 1 destination, got %d", len(dest))
	}
	switch d := dest[0].(type) {
	case *[]byte:
		switch v := r.value.(type) {
		case nil:
			*d = nil
		case string:
			*d = []byte(v)
		case []byte:
			*d = append([]byte(nil), v...)
		default:
			return fmt.Errorf("mock: cannot scan %T into *[]byte", r.value)
		}
	case **string:
		switch v := r.value.(type) {
		case nil:
			*d = nil
		case string:
			*d = &v
		case []byte:
			s := string(v)
			*d = &s
		default:
			return fmt.Errorf("mock: cannot scan %T into **string", r.value)
		}
	default:
		return fmt.Errorf("mock: unsupported destination %T", dest[0])
	}
	return nil
}

// Tx is a transaction on a mock Conn. Statements go to the parent's queue.
// Methods the client does not use panic through the nil embedded interface.
type Tx struct {
	pgx.Tx
	conn   *Conn
	closed bool
}

func (t *Tx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if t.closed {
		return pgconn.CommandTag{}, pgx.ErrTxClosed
	}
	return t.conn.Exec(ctx, sql, args...)
}

func (t *Tx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if t.closed {
		return row{err: pgx.ErrTxClosed}
	}
	return t.conn.QueryRow(ctx, sql, args...)
}

func (t *Tx) Begin(ctx context.Context) (pgx.Tx, error) {
	if t.closed {
		return nil, pgx.ErrTxClosed
	}
	return t.conn.Begin(ctx)
}

func (t *Tx) Commit(ctx context.Context) error {
	t.conn.mu.Lock()
	defer t.conn.mu.Unlock()
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	if t.conn.CommitErr != nil {
		err := t.conn.CommitErr
		t.conn.CommitErr = nil
		t.conn.RolledBack++
		return err
	}
	t.conn.Committed++
	return nil
}

func (t *Tx) Rollback(ctx context.Context) error {
	t.conn.mu.Lock()
	defer t.conn.mu.Unlock()
	if t.closed {
		return pgx.ErrTxClosed
	}
	t.closed = true
	t.conn.RolledBack++
	return nil
}
