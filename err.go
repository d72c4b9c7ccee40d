package pgstac

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stac-utils/pgstac-go/pkg/constants"
	"github.com/stac-utils/pgstac-go/pkg/models"
)

// Kind classifies why an operation failed.
type Kind int

const (
	// KindTransport is a connection-level failure, including cancellation.
	KindTransport Kind = iota
	// KindNotFound means the collection or item does not exist.
	KindNotFound
	// KindConflict is a uniqueness or referential constraint violation.
	KindConflict
	// KindInvalidInput is a malformed query or payload, rejected by the client
	// or by the store.
	KindInvalidInput
	// KindDecode means the store's response could not be interpreted.
	KindDecode
	// KindPartialFailure means a bulk operation succeeded for some items only.
	KindPartialFailure
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindInvalidInput:
		return "invalid input"
	case KindDecode:
		return "decode"
	case KindPartialFailure:
		return "partial failure"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinels for errors.Is. An *Error matches the sentinel of its Kind.
var (
	ErrTransport      = errors.New("pgstac: transport error")
	ErrNotFound       = errors.New("pgstac: not found")
	ErrConflict       = errors.New("pgstac: conflict")
	ErrInvalidInput   = errors.New("pgstac: invalid input")
	ErrDecode         = errors.New("pgstac: decode error")
	ErrPartialFailure = errors.New("pgstac: partial failure")

	// ErrCancelled matches failures caused by context cancellation, deadlines
	// or a server-side statement cancel. The connection that saw it should be
	// discarded or reset rather than reused.
	ErrCancelled = errors.New("pgstac: cancelled")
)

var kindSentinels = map[Kind]error{
	KindTransport:      ErrTransport,
	KindNotFound:       ErrNotFound,
	KindConflict:       ErrConflict,
	KindInvalidInput:   ErrInvalidInput,
	KindDecode:         ErrDecode,
	KindPartialFailure: ErrPartialFailure,
}

// Error is returned by every Client operation that fails.
type Error struct {
	Kind Kind
	// Op is the pgstac function that was called.
	Op string
	// Collection and ID identify the object involved, when there is one.
	Collection string
	ID         string
	// Code is the SQLSTATE reported by the store, if any.
	Code string
	// Batch holds per-item outcomes for bulk operations.
	Batch *BatchResult
	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("pgstac: ")
	b.WriteString(e.Op)
	switch {
	case e.Collection != "" && e.ID != "":
		fmt.Fprintf(&b, " (collection %q, id %q)", e.Collection, e.ID)
	case e.Collection != "":
		fmt.Fprintf(&b, " (collection %q)", e.Collection)
	case e.ID != "":
		fmt.Fprintf(&b, " (id %q)", e.ID)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.String())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	if target == ErrCancelled {
		return e.Cancelled()
	}
	return kindSentinels[e.Kind] == target
}

// Cancelled reports whether the failure came from cancellation or a timeout.
func (e *Error) Cancelled() bool {
	if e.Code == constants.CodeQueryCanceled {
		return true
	}
	return errors.Is(e.Err, context.Canceled) ||
		errors.Is(e.Err, context.DeadlineExceeded) ||
		pgconn.Timeout(e.Err)
}

// KindOf returns the Kind of err, and false if err is not an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// target is what an operation was acting on, for error context.
type target struct {
	op         string
	collection string
	id         string
	// itemWrite marks operations where a missing collection is a
	// referential failure rather than a lookup miss.
	itemWrite bool
}

func (t target) errorf(kind Kind, err error) *Error {
	return &Error{Kind: kind, Op: t.op, Collection: t.collection, ID: t.id, Err: err}
}

// classify maps a raw failure onto exactly one Kind. It never drops err.
func (t target) classify(err error) *Error {
	var already *Error
	if errors.As(err, &already) {
		return already
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		e := t.errorf(t.classifyPg(pgErr), err)
		e.Code = pgErr.Code
		return e
	}

	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		scanErr   pgx.ScanArgError
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), pgconn.Timeout(err):
		return t.errorf(KindTransport, err)
	case errors.Is(err, pgx.ErrNoRows), errors.Is(err, constants.ErrInvalidResponse):
		return t.errorf(KindDecode, err)
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr), errors.As(err, &scanErr),
		errors.Is(err, models.ErrInvalidGeometry), errors.Is(err, models.ErrNotCollection),
		errors.Is(err, constants.ErrEmptyID), errors.Is(err, constants.ErrInvalidBbox):
		return t.errorf(KindDecode, err)
	default:
		return t.errorf(KindTransport, err)
	}
}

func (t target) classifyPg(pgErr *pgconn.PgError) Kind {
	switch pgErr.Code {
	case constants.CodeUniqueViolation, constants.CodeForeignKeyViolation,
		constants.CodeSerialization, constants.CodeDeadlock:
		return KindConflict
	case constants.CodeCheckViolation:
		// Items are partitioned by collection, so an unknown collection has no partition.
		if strings.Contains(pgErr.Message, "no partition of relation") {
			return KindConflict
		}
		return KindInvalidInput
	case constants.CodeNoDataFound:
		return KindNotFound
	case constants.CodeRaiseException:
		if strings.Contains(pgErr.Message, "does not exist") {
			if t.itemWrite {
				return KindConflict
			}
			return KindNotFound
		}
		return KindInvalidInput
	case constants.CodeUndefinedFunction, constants.CodeUndefinedTable, constants.CodeInvalidSchemaName:
		return KindDecode
	case constants.CodeQueryCanceled:
		return KindTransport
	}

	if len(pgErr.Code) < 2 {
		return KindInvalidInput
	}
	switch pgErr.Code[:2] {
	case "22", "23", "42":
		return KindInvalidInput
	case "08", "53", "57", "58":
		return KindTransport
	default:
		return KindInvalidInput
	}
}

// encodeError wraps a client-side encoding failure.
func (t target) encodeError(err error) *Error {
	return t.errorf(KindInvalidInput, err)
}
