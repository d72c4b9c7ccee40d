package connection

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stac-utils/pgstac-go/pkg/constants"
	"github.com/stac-utils/pgstac-go/pkg/logger"
)

// Config describes how to reach the pgstac database.
type Config struct {
	// DSN is a PostgreSQL connection string. When empty, the standard libpq
	// PG* environment variables are used.
	DSN string
	// MaxConns caps the pool size; zero keeps the pgxpool default.
	MaxConns int32
	// Logger receives driver-level query traces at LogLevel and above.
	Logger   zerolog.Logger
	LogLevel zerolog.Level
}

// NewConfig creates a new Config for the given connection string with
// driver tracing disabled.
func NewConfig(dsn string) *Config {
	return &Config{
		DSN:      dsn,
		Logger:   zerolog.Nop(),
		LogLevel: zerolog.Disabled,
	}
}

// NewConfigFromEnv reads PGSTAC_DSN, PGSTAC_MAX_CONNS and PGSTAC_LOG_LEVEL.
func NewConfigFromEnv() (*Config, error) {
	c := NewConfig(GetEnvOrDefault(constants.EnvDSN, ""))

	if v := GetEnvOrDefault(constants.EnvMaxConns, ""); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", constants.EnvMaxConns, err)
		}
		c.MaxConns = int32(n)
	}

	if v := GetEnvOrDefault(constants.EnvLogLevel, ""); v != "" {
		level, err := zerolog.ParseLevel(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", constants.EnvLogLevel, err)
		}
		l, err := logger.New().Level(level).Make()
		if err != nil {
			return nil, err
		}
		c.Logger = l.Logger
		c.LogLevel = level
	}

	return c, c.Validate()
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.MaxConns < 0 {
		return fmt.Errorf("max conns must not be negative, got %d", c.MaxConns)
	}
	return nil
}

// PoolConfig converts c into a pgxpool configuration.
func (c *Config) PoolConfig() (*pgxpool.Config, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	pc, err := pgxpool.ParseConfig(c.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	if c.MaxConns > 0 {
		pc.MaxConns = c.MaxConns
	}
	if c.LogLevel != zerolog.Disabled {
		pc.ConnConfig.Tracer = logger.NewTracer(c.Logger, c.LogLevel)
	}
	return pc, nil
}

// Connect opens a pool and checks that the database answers. The caller owns
// the pool and must close it.
func Connect(ctx context.Context, c *Config) (*pgxpool.Pool, error) {
	pc, err := c.PoolConfig()
	if err != nil {
		return nil, err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultConnectTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return pool, nil
}
