// Package pgstacload loads a pgstacdump file into a pgstac database with
// collection upserts and bulk item upserts.
package pgstacload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/buger/jsonparser"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	pgstac "github.com/stac-utils/pgstac-go"
	"github.com/stac-utils/pgstac-go/contrib/pgstacdump"
)

var (
	ErrInvalidHeader = errors.New("invalid dump header")
	ErrUnknownRecord = errors.New("unknown dump record")
)

// Stats tracks load statistics
type Stats struct {
	Collections int
	Items       int
	// Failed counts items the client refused to send.
	Failed    int
	StartTime time.Time
	EndTime   time.Time
}

// Loader writes the contents of a dump through a client.
type Loader struct {
	client    *pgstac.Client
	batchSize int
	logger    zerolog.Logger
	stats     Stats
	pending   []pgstac.Item
}

// New creates a Loader that upserts batchSize items at a time.
func New(client *pgstac.Client, batchSize int) *Loader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Loader{client: client, batchSize: batchSize, logger: zerolog.Nop()}
}

// SetLogger sets where progress and rejected items are logged.
func (l *Loader) SetLogger(logger zerolog.Logger) {
	l.logger = logger
}

// Stats returns the load statistics
func (l *Loader) Stats() Stats {
	return l.stats
}

// Load reads a dump in either format from r. Items the client rejects are
// logged and counted in Stats; any other failure stops the load.
func (l *Loader) Load(ctx context.Context, r io.Reader) error {
	l.stats.StartTime = time.Now()
	defer func() { l.stats.EndTime = time.Now() }()

	records, err := pgstacdump.NewRecordReader(r)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}

	header, err := records.Next()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	format, err := jsonparser.GetString(header.Doc, "format")
	if header.Kind != pgstacdump.KindHeader || err != nil || format != pgstacdump.DumpFormat {
		return fmt.Errorf("%w: expected format %s", ErrInvalidHeader, pgstacdump.DumpFormat)
	}
	l.logger.Debug().Str("framing", string(records.Format())).Msg("reading dump")

	for n := 2; ; n++ {
		rec, err := records.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read dump: %w", err)
		}
		if err := l.record(ctx, rec); err != nil {
			return fmt.Errorf("record %d: %w", n, err)
		}
	}
	return l.flush(ctx)
}

func (l *Loader) record(ctx context.Context, rec pgstacdump.Record) error {
	switch rec.Kind {
	case pgstacdump.KindCollection:
		// Items already read belong to the previous collection.
		if err := l.flush(ctx); err != nil {
			return err
		}
		var c pgstac.Collection
		if err := json.Unmarshal(rec.Doc, &c); err != nil {
			return fmt.Errorf("failed to decode collection: %w", err)
		}
		if err := l.client.UpsertCollection(ctx, c); err != nil {
			return err
		}
		l.stats.Collections++
		l.logger.Debug().Str("collection", c.ID).Msg("loaded collection")
		return nil

	case pgstacdump.KindItem:
		var item pgstac.Item
		if err := json.Unmarshal(rec.Doc, &item); err != nil {
			return fmt.Errorf("failed to decode item: %w", err)
		}
		l.pending = append(l.pending, item)
		if len(l.pending) >= l.batchSize {
			return l.flush(ctx)
		}
		return nil

	default:
		return fmt.Errorf("%w: kind %q", ErrUnknownRecord, rec.Kind)
	}
}

func (l *Loader) flush(ctx context.Context) error {
	if len(l.pending) == 0 {
		return nil
	}
	items := l.pending
	l.pending = nil

	result, err := l.client.UpsertItems(ctx, items)
	if err != nil && !errors.Is(err, pgstac.ErrPartialFailure) {
		return err
	}
	for _, o := range result.Failed() {
		l.logger.Warn().Int("index", o.Index).Str("collection", o.Collection).Str("id", o.ID).Err(o.Err).Msg("item not loaded")
	}
	l.stats.Items += len(result.Succeeded())
	l.stats.Failed += len(result.Failed())
	return nil
}
