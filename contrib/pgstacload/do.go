package pgstacload

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	pgstac "github.com/stac-utils/pgstac-go"
	"github.com/stac-utils/pgstac-go/contrib/pgstacdump"
	"github.com/stac-utils/pgstac-go/pkg/connection"
	"github.com/stac-utils/pgstac-go/pkg/logger"
)

// Do executes a load operation based on the provided configuration.
// The configuration should be validated before calling this function.
func Do(ctx context.Context, config *Config) (Stats, error) {
	level := zerolog.InfoLevel
	if config.Verbose {
		level = zerolog.DebugLevel
	}
	logData, err := logger.New().Level(level).Make()
	if err != nil {
		return Stats{}, err
	}
	log := logData.Logger

	if !config.SkipVerify {
		manifest, err := pgstacdump.ReadManifest(config.Input)
		if err != nil {
			return Stats{}, err
		}
		if err := manifest.Verify(config.Input); err != nil {
			return Stats{}, err
		}
		log.Info().Int("collections", manifest.Collections).Int("items", manifest.Items).Msg("manifest verified")
	}

	f, err := os.Open(config.Input)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to open dump: %w", err)
	}
	defer f.Close()

	pool, err := connection.Connect(ctx, connection.NewConfig(config.DSN))
	if err != nil {
		return Stats{}, err
	}
	defer pool.Close()

	run := func(client *pgstac.Client) (Stats, error) {
		loader := New(client, config.BatchSize)
		loader.SetLogger(log)
		err := loader.Load(ctx, f)
		return loader.Stats(), err
	}

	var stats Stats
	if config.Atomic {
		err = pgstac.WithTx(ctx, pool, func(tx *pgstac.Client) error {
			stats, err = run(tx)
			return err
		}, pgstac.WithLogger(log))
	} else {
		stats, err = run(pgstac.New(pool, pgstac.WithLogger(log)))
	}
	if err != nil {
		return stats, fmt.Errorf("load failed: %w", err)
	}

	log.Info().
		Int("collections", stats.Collections).
		Int("items", stats.Items).
		Int("failed", stats.Failed).
		Dur("elapsed", stats.EndTime.Sub(stats.StartTime)).
		Msg("load completed")
	return stats, nil
}
