// Package testenv provides utilities for testing against a pgstac database.
//
// Every test gets its own transaction, rolled back when the test ends, so
// tests can run in parallel against one database without resetting it.
package testenv

import (
	"context"
	"sync"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	pgstac "github.com/stac-utils/pgstac-go"
	"github.com/stac-utils/pgstac-go/pkg/connection"
	"github.com/stac-utils/pgstac-go/pkg/constants"
)

var (
	poolOnce sync.Once
	pool     *pgxpool.Pool
	poolErr  error
	explicit bool
)

// DSN returns the test database connection string: PGSTAC_TEST_DB, after
// loading a .env file from the working directory if there is one, or the
// default docker-compose database.
func DSN() (dsn string, fromEnv bool) {
	// Most checkouts have no .env.
	_ = godotenv.Load()
	dsn = connection.GetEnvOrDefault(constants.EnvTestDB, "")
	if dsn == "" {
		return constants.DefaultTestDSN, false
	}
	return dsn, true
}

// Pool returns the shared test pool. The test is skipped when the default
// database is unreachable and fails when an explicitly configured one is.
func Pool(t testing.TB) *pgxpool.Pool {
	t.Helper()

	poolOnce.Do(func() {
		var dsn string
		dsn, explicit = DSN()
		pool, poolErr = connection.Connect(context.Background(), connection.NewConfig(dsn))
	})

	if poolErr != nil {
		if explicit {
			t.Fatalf("failed to connect to %s: %v", constants.EnvTestDB, poolErr)
		}
		t.Skipf("pgstac database not available (set %s): %v", constants.EnvTestDB, poolErr)
	}
	return pool
}

// Client returns a client bound to a fresh transaction that is rolled back
// when the test finishes.
func Client(t testing.TB, opts ...pgstac.Option) *pgstac.Client {
	t.Helper()

	p := Pool(t)
	ctx := context.Background()
	tx, err := p.Begin(ctx)
	if err != nil {
		t.Fatalf("failed to begin test transaction: %v", err)
	}
	t.Cleanup(func() {
		if err := tx.Rollback(ctx); err != nil {
			t.Errorf("failed to roll back test transaction: %v", err)
		}
	})

	opts = append([]pgstac.Option{pgstac.WithLogger(Logger(t))}, opts...)
	return pgstac.New(tx, opts...)
}

// ID returns an identifier unique to this run, so tests that commit do not
// collide with each other.
func ID(prefix string) string {
	return prefix + "-" + uuid.Must(uuid.NewV4()).String()
}
