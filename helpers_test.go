package pgstac_test

import "github.com/jackc/pgx/v5/pgconn"

func pgErr(code, message string) *pgconn.PgError {
	return &pgconn.PgError{Severity: "ERROR", Code: code, Message: message}
}
