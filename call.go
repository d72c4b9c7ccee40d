package pgstac

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/stac-utils/pgstac-go/pkg/constants"
)

// statement builds the SQL for a pgstac function call with n positional
// parameters. Functions returning values are selected from so the column
// takes the function's name; void functions are called as an expression.
func statement(function string, n int, void bool) string {
	var b strings.Builder
	if void {
		b.WriteString("SELECT ")
	} else {
		b.WriteString("SELECT * FROM ")
	}
	b.WriteString(constants.Schema)
	b.WriteByte('.')
	b.WriteString(function)
	b.WriteByte('(')
	for i := 1; i <= n; i++ {
		if i > 1 {
			b.WriteString(", ")
		}
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(i))
	}
	b.WriteByte(')')
	return b.String()
}

// raw runs a function returning json or jsonb. A SQL NULL comes back as nil.
func (c *Client) raw(ctx context.Context, t target, args ...any) ([]byte, error) {
	start := time.Now()
	var data []byte
	err := c.conn.QueryRow(ctx, statement(t.op, len(args), false), args...).Scan(&data)
	c.logCall(t, start, err)
	if err != nil {
		return nil, t.classify(err)
	}
	return data, nil
}

// text runs a function returning text. A SQL NULL is reported as NotFound.
func (c *Client) text(ctx context.Context, t target, args ...any) (string, error) {
	start := time.Now()
	var s *string
	err := c.conn.QueryRow(ctx, statement(t.op, len(args), false), args...).Scan(&s)
	c.logCall(t, start, err)
	if err != nil {
		return "", t.classify(err)
	}
	if s == nil {
		return "", t.errorf(KindNotFound, constants.ErrNoRow)
	}
	return *s, nil
}

// void runs a function whose result is ignored.
func (c *Client) void(ctx context.Context, t target, args ...any) error {
	start := time.Now()
	_, err := c.conn.Exec(ctx, statement(t.op, len(args), true), args...)
	c.logCall(t, start, err)
	if err != nil {
		return t.classify(err)
	}
	return nil
}

// optional decodes a json result into T, reporting NULL as NotFound.
func optional[T any](ctx context.Context, c *Client, t target, args ...any) (*T, error) {
	data, err := c.raw(ctx, t, args...)
	if err != nil {
		return nil, err
	}
	if data == nil || string(data) == "null" {
		return nil, t.errorf(KindNotFound, constants.ErrNoRow)
	}
	var v T
	if err := decode(data, &v); err != nil {
		return nil, t.classify(err)
	}
	return &v, nil
}

// list decodes a json array result, treating NULL as empty.
func list[T any](ctx context.Context, c *Client, t target, args ...any) ([]T, error) {
	data, err := c.raw(ctx, t, args...)
	if err != nil {
		return nil, err
	}
	if data == nil || string(data) == "null" {
		return []T{}, nil
	}
	var v []T
	if err := decode(data, &v); err != nil {
		return nil, t.classify(err)
	}
	return v, nil
}

func decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", constants.ErrInvalidResponse, err)
	}
	return nil
}

// encode marshals a payload for a jsonb parameter.
func encode(t target, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, t.encodeError(err)
	}
	return data, nil
}

func (c *Client) logCall(t target, start time.Time, err error) {
	ev := c.logger.Debug()
	if !ev.Enabled() {
		return
	}
	ev = ev.Str("fn", t.op).Dur("took", time.Since(start))
	if t.collection != "" {
		ev = ev.Str("collection", t.collection)
	}
	if t.id != "" {
		ev = ev.Str("id", t.id)
	}
	if err != nil {
		classified := t.classify(err)
		ev = ev.Err(err).Stringer("kind", classified.Kind)
		if classified.Code != "" {
			ev = ev.Str("sqlstate", classified.Code)
		}
	}
	ev.Msg("pgstac call")
}
