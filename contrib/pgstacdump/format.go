package pgstacdump

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/buger/jsonparser"
	"github.com/fxamacker/cbor/v2"
)

// Format is the framing of a dump file. Documents are JSON in both.
type Format string

const (
	// FormatNDJSON writes one JSON document per line.
	FormatNDJSON Format = "ndjson"
	// FormatCBOR writes a CBOR sequence of Records, each carrying one JSON
	// document. It has no limit on document size.
	FormatCBOR Format = "cbor"
)

// Record kinds.
const (
	KindHeader     = "header"
	KindCollection = "collection"
	KindItem       = "item"
)

// maxLineSize bounds a single document in an NDJSON dump.
const maxLineSize = 64 << 20

var ErrUnknownFormat = errors.New("unknown dump format")

// Record is one document of a dump.
type Record struct {
	Kind string `cbor:"kind"`
	Doc  []byte `cbor:"doc"`
}

func (f Format) Validate() error {
	switch f {
	case FormatNDJSON, FormatCBOR:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
}

type recordWriter interface {
	write(kind string, doc []byte) error
	flush() error
}

func newRecordWriter(w io.Writer, f Format) (recordWriter, error) {
	bw := bufio.NewWriter(w)
	switch f {
	case FormatNDJSON:
		return ndjsonWriter{w: bw}, nil
	case FormatCBOR:
		return cborWriter{w: bw, enc: cbor.NewEncoder(bw)}, nil
	default:
		return nil, f.Validate()
	}
}

type ndjsonWriter struct {
	w *bufio.Writer
}

func (n ndjsonWriter) write(_ string, doc []byte) error {
	if _, err := n.w.Write(doc); err != nil {
		return err
	}
	return n.w.WriteByte('\n')
}

func (n ndjsonWriter) flush() error {
	return n.w.Flush()
}

type cborWriter struct {
	w   *bufio.Writer
	enc *cbor.Encoder
}

func (c cborWriter) write(kind string, doc []byte) error {
	return c.enc.Encode(Record{Kind: kind, Doc: doc})
}

func (c cborWriter) flush() error {
	return c.w.Flush()
}

// RecordReader reads the records of a dump in either format.
type RecordReader struct {
	format  Format
	scanner *bufio.Scanner
	dec     *cbor.Decoder
}

// NewRecordReader detects the format of r from its first byte.
func NewRecordReader(r io.Reader) (*RecordReader, error) {
	br := bufio.NewReader(r)
	first, err := br.Peek(1)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty dump", ErrUnknownFormat)
		}
		return nil, err
	}

	if first[0] == '{' {
		scanner := bufio.NewScanner(br)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		return &RecordReader{format: FormatNDJSON, scanner: scanner}, nil
	}
	return &RecordReader{format: FormatCBOR, dec: cbor.NewDecoder(br)}, nil
}

// Format returns the detected format.
func (r *RecordReader) Format() Format {
	return r.format
}

// Next returns the next record, or io.EOF after the last one. NDJSON
// records are classified from their "format" or "type" member; a document
// matching neither gets an empty Kind.
func (r *RecordReader) Next() (Record, error) {
	if r.dec != nil {
		var rec Record
		if err := r.dec.Decode(&rec); err != nil {
			return Record{}, err
		}
		return rec, nil
	}

	for r.scanner.Scan() {
		line := r.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		doc := append([]byte(nil), line...)
		return Record{Kind: sniff(doc), Doc: doc}, nil
	}
	if err := r.scanner.Err(); err != nil {
		return Record{}, err
	}
	return Record{}, io.EOF
}

func sniff(doc []byte) string {
	if _, _, _, err := jsonparser.Get(doc, "format"); err == nil {
		return KindHeader
	}
	typ, err := jsonparser.GetString(doc, "type")
	if err != nil {
		return ""
	}
	switch typ {
	case "Collection":
		return KindCollection
	case "Feature":
		return KindItem
	default:
		return ""
	}
}
