// Package pgstacdump writes the collections and items of a pgstac database
// to a file that pgstacload can read back.
package pgstacdump

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	pgstac "github.com/stac-utils/pgstac-go"
)

// DumpFormat is written in the header line of every dump.
const DumpFormat = "PGSTACDUMP01"

// Header is the first document of a dump. Every following document is either
// a STAC Collection or a STAC Item, and each collection comes before its items.
type Header struct {
	Format        string    `json:"format"`
	PgstacVersion string    `json:"pgstac_version"`
	CreatedAt     time.Time `json:"created_at"`
}

// Stats counts what a dump wrote.
type Stats struct {
	Collections int
	Items       int
}

// Dumper reads collections and items through a client.
type Dumper struct {
	client      *pgstac.Client
	collections []string
	pageSize    int
	format      Format
	logger      zerolog.Logger
}

// New creates a Dumper. With no collections given, all are dumped.
func New(client *pgstac.Client, collections ...string) *Dumper {
	return &Dumper{
		client:      client,
		collections: collections,
		pageSize:    DefaultPageSize,
		format:      FormatNDJSON,
		logger:      zerolog.Nop(),
	}
}

// SetPageSize sets the number of items requested per search page.
func (d *Dumper) SetPageSize(n int) {
	if n > 0 {
		d.pageSize = n
	}
}

// SetFormat sets the framing of the dump.
func (d *Dumper) SetFormat(f Format) {
	d.format = f
}

// SetLogger sets where progress is logged.
func (d *Dumper) SetLogger(l zerolog.Logger) {
	d.logger = l
}

// Write dumps to w.
func (d *Dumper) Write(ctx context.Context, w io.Writer) (Stats, error) {
	var stats Stats
	rw, err := newRecordWriter(w, d.format)
	if err != nil {
		return stats, err
	}
	enc := encoder{w: rw}

	version, err := d.client.Version(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to read pgstac version: %w", err)
	}
	header := Header{Format: DumpFormat, PgstacVersion: version, CreatedAt: time.Now().UTC()}
	if err := enc.encode(KindHeader, header); err != nil {
		return stats, fmt.Errorf("failed to write header: %w", err)
	}

	collections, err := d.listCollections(ctx)
	if err != nil {
		return stats, err
	}

	for _, collection := range collections {
		if err := enc.encode(KindCollection, collection); err != nil {
			return stats, fmt.Errorf("failed to write collection %s: %w", collection.ID, err)
		}
		stats.Collections++

		n, err := d.dumpItems(ctx, enc, collection.ID)
		stats.Items += n
		if err != nil {
			return stats, fmt.Errorf("failed to dump items of %s: %w", collection.ID, err)
		}
		d.logger.Info().Str("collection", collection.ID).Int("items", n).Msg("dumped collection")
	}

	return stats, rw.flush()
}

func (d *Dumper) listCollections(ctx context.Context) ([]pgstac.Collection, error) {
	if len(d.collections) == 0 {
		collections, err := d.client.Collections(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list collections: %w", err)
		}
		return collections, nil
	}

	collections := make([]pgstac.Collection, 0, len(d.collections))
	for _, id := range d.collections {
		c, err := d.client.Collection(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to read collection %s: %w", id, err)
		}
		collections = append(collections, *c)
	}
	return collections, nil
}

func (d *Dumper) dumpItems(ctx context.Context, enc encoder, collection string) (int, error) {
	n := 0
	search := pgstac.Search{
		Collections: []string{collection},
		Limit:       d.pageSize,
		SortBy:      []pgstac.SortBy{{Field: "id", Direction: pgstac.Ascending}},
	}
	err := d.client.SearchPages(ctx, search, func(page *pgstac.Page) error {
		for i := range page.Features {
			if err := enc.encode(KindItem, page.Features[i]); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}

// Full dumps to the file at path and writes its manifest next to it.
func (d *Dumper) Full(ctx context.Context, path string) (*Manifest, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create dump file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	cw := &countingWriter{w: io.MultiWriter(f, h)}
	stats, err := d.Write(ctx, cw)
	if err != nil {
		return nil, err
	}
	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("failed to sync dump file: %w", err)
	}

	manifest := &Manifest{
		Filename:    filepath.Base(path),
		Format:      d.format,
		CreatedAt:   time.Now().UTC(),
		Size:        cw.n,
		Collections: stats.Collections,
		Items:       stats.Items,
		SHA256:      hex.EncodeToString(h.Sum(nil)),
	}
	if err := WriteManifest(path, manifest); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}
	return manifest, nil
}

type encoder struct {
	w recordWriter
}

func (e encoder) encode(kind string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return e.w.write(kind, data)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
