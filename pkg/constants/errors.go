package constants

import "errors"

// Errors
var (
	ErrInvalidResponse = errors.New("invalid pgstac response")
	ErrNoRow           = errors.New("error no row")
	ErrTxUnsupported   = errors.New("connection cannot begin a transaction")
	ErrEmptyID         = errors.New("id is empty")
	ErrEmptyCollection = errors.New("collection id is empty")
	ErrInvalidBbox     = errors.New("bbox must have 4 or 6 values")
	ErrInvalidSort     = errors.New("sort direction must be asc or desc")
	ErrInvalidLimit    = errors.New("limit must not be negative")
)

// SQLSTATE codes the error classifier distinguishes.
// See https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
	CodeCheckViolation      = "23514"
	CodeSerialization       = "40001"
	CodeDeadlock            = "40P01"
	CodeNoDataFound         = "P0002"
	CodeRaiseException      = "P0001"
	CodeQueryCanceled       = "57014"
	CodeUndefinedFunction   = "42883"
	CodeUndefinedTable      = "42P01"
	CodeInvalidSchemaName   = "3F000"
)
