package pgstacdump_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/buger/jsonparser"
	"github.com/fxamacker/cbor/v2"
	pgstac "github.com/stac-utils/pgstac-go"
	"github.com/stac-utils/pgstac-go/contrib/pgstacdump"
	"github.com/stac-utils/pgstac-go/internal/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, r io.Reader) (pgstacdump.Format, []pgstacdump.Record) {
	t.Helper()
	records, err := pgstacdump.NewRecordReader(r)
	require.NoError(t, err)

	var out []pgstacdump.Record
	for {
		rec, err := records.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		out = append(out, rec)
	}
	return records.Format(), out
}

func TestRecordReaderFormats(t *testing.T) {
	for _, format := range []pgstacdump.Format{pgstacdump.FormatNDJSON, pgstacdump.FormatCBOR} {
		t.Run(string(format), func(t *testing.T) {
			conn := mock.New().
				Respond("0.8.5").
				Respond("[" + fmt.Sprintf(collectionJSON, "landsat") + "]").
				Respond(page("", "a", "b"))

			dumper := pgstacdump.New(pgstac.New(conn))
			dumper.SetFormat(format)

			var buf bytes.Buffer
			_, err := dumper.Write(context.Background(), &buf)
			require.NoError(t, err)

			detected, records := readAll(t, &buf)
			assert.Equal(t, format, detected)
			require.Len(t, records, 4)

			kinds := make([]string, len(records))
			for i, rec := range records {
				kinds[i] = rec.Kind
			}
			assert.Equal(t, []string{
				pgstacdump.KindHeader, pgstacdump.KindCollection, pgstacdump.KindItem, pgstacdump.KindItem,
			}, kinds)

			id, err := jsonparser.GetString(records[3].Doc, "id")
			require.NoError(t, err)
			assert.Equal(t, "b", id)
		})
	}
}

func TestCBORRecordFraming(t *testing.T) {
	conn := mock.New().Respond("0.8.5").Respond("[]")

	dumper := pgstacdump.New(pgstac.New(conn))
	dumper.SetFormat(pgstacdump.FormatCBOR)

	var buf bytes.Buffer
	_, err := dumper.Write(context.Background(), &buf)
	require.NoError(t, err)

	var rec pgstacdump.Record
	require.NoError(t, cbor.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, pgstacdump.KindHeader, rec.Kind)

	format, err := jsonparser.GetString(rec.Doc, "format")
	require.NoError(t, err)
	assert.Equal(t, pgstacdump.DumpFormat, format)
}

func TestRecordReaderNDJSON(t *testing.T) {
	input := strings.Join([]string{
		`{"format": "PGSTACDUMP01"}`,
		"",
		`{"type": "Catalog", "id": "root"}`,
	}, "\n")

	_, records := readAll(t, strings.NewReader(input))
	require.Len(t, records, 2)
	assert.Equal(t, pgstacdump.KindHeader, records[0].Kind)
	assert.Empty(t, records[1].Kind)
}

func TestRecordReaderEmpty(t *testing.T) {
	_, err := pgstacdump.NewRecordReader(strings.NewReader(""))
	assert.ErrorIs(t, err, pgstacdump.ErrUnknownFormat)
}

func TestFormat_Validate(t *testing.T) {
	assert.NoError(t, pgstacdump.FormatNDJSON.Validate())
	assert.NoError(t, pgstacdump.FormatCBOR.Validate())
	assert.ErrorIs(t, pgstacdump.Format("xml").Validate(), pgstacdump.ErrUnknownFormat)

	dumper := pgstacdump.New(pgstac.New(mock.New()))
	dumper.SetFormat("xml")
	_, err := dumper.Write(context.Background(), &bytes.Buffer{})
	assert.ErrorIs(t, err, pgstacdump.ErrUnknownFormat)
}
