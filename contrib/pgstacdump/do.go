package pgstacdump

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	pgstac "github.com/stac-utils/pgstac-go"
	"github.com/stac-utils/pgstac-go/pkg/connection"
	"github.com/stac-utils/pgstac-go/pkg/logger"
)

// Do executes a dump operation based on the provided configuration.
// The configuration should be validated before calling this function.
func Do(ctx context.Context, config *Config) error {
	level := zerolog.InfoLevel
	if config.Verbose {
		level = zerolog.DebugLevel
	}
	logData, err := logger.New().Level(level).Make()
	if err != nil {
		return err
	}
	log := logData.Logger

	pool, err := connection.Connect(ctx, connection.NewConfig(config.DSN))
	if err != nil {
		return err
	}
	defer pool.Close()

	dumper := New(pgstac.New(pool, pgstac.WithLogger(log)), config.Collections...)
	dumper.SetPageSize(config.PageSize)
	dumper.SetFormat(config.Format)
	dumper.SetLogger(log)

	outputPath := config.GetOutputPath()
	startTime := time.Now()
	log.Info().Str("output", outputPath).Msg("starting dump")

	manifest, err := dumper.Full(ctx, outputPath)
	if err != nil {
		return fmt.Errorf("dump failed: %w", err)
	}

	log.Info().
		Dur("elapsed", time.Since(startTime)).
		Str("size", formatBytes(manifest.Size)).
		Msg("dump completed")
	fmt.Println(describe(manifest))
	return nil
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func describe(m *Manifest) string {
	var b strings.Builder
	b.WriteString("Dump Information:\n")
	b.WriteString(strings.Repeat("-", 50))
	fmt.Fprintf(&b, "\nFile:              %s\n", m.Filename)
	fmt.Fprintf(&b, "Format:            %s\n", m.Format)
	fmt.Fprintf(&b, "Created At:        %s\n", m.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Collections:       %d\n", m.Collections)
	fmt.Fprintf(&b, "Items:             %d\n", m.Items)
	fmt.Fprintf(&b, "Size:              %s\n", formatBytes(m.Size))
	fmt.Fprintf(&b, "SHA256:            %s", m.SHA256)
	return b.String()
}
