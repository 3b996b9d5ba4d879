// Package dataset loads embedding records from JSON Lines and CSV files.
//
// JSON Lines: one object per line,
//
//	{"id": "art-1", "vector": [0.1, 0.2], "attributes": {"genre": ["portrait"]}}
//
// CSV: a header row "id,vector,<dimension>...", the vector as space
// separated floats and labels of one dimension separated by "|":
//
//	id,vector,genre,style
//	art-1,0.1 0.2,portrait,baroque|rococo
//
// Files ending in .gz or .zst are decompressed on the fly.
package dataset

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	gojson "github.com/goccy/go-json"
	"github.com/hupe1980/artlens/model"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Format is a dataset file format.
type Format int

const (
	// FormatJSONL is JSON Lines.
	FormatJSONL Format = iota
	// FormatCSV is comma separated values with a header row.
	FormatCSV
)

func (f Format) String() string {
	switch f {
	case FormatJSONL:
		return "jsonl"
	case FormatCSV:
		return "csv"
	default:
		return fmt.Sprintf("unknown(%d)", int(f))
	}
}

// maxLineBytes bounds one JSON line; 768 float32 components fit easily.
const maxLineBytes = 64 << 20

type jsonRecord struct {
	ID         string              `json:"id"`
	Vector     []float32           `json:"vector"`
	Attributes map[string][]string `json:"attributes,omitempty"`
}

// ReadJSONL decodes and validates JSON Lines records. Blank lines are
// skipped.
func ReadJSONL(r io.Reader) ([]model.Record, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var records []model.Record
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var jr jsonRecord
		if err := gojson.Unmarshal(raw, &jr); err != nil {
			return nil, &model.DataError{Field: fmt.Sprintf("line %d", line), Reason: err.Error()}
		}
		records = append(records, model.Record{
			ID:         jr.ID,
			Vector:     jr.Vector,
			Attributes: model.Attributes(jr.Attributes),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("dataset: read jsonl: %w", err)
	}
	return Validate(records)
}

// WriteJSONL encodes records as JSON Lines.
func WriteJSONL(w io.Writer, records []model.Record) error {
	bw := bufio.NewWriter(w)
	enc := gojson.NewEncoder(bw)
	for _, rec := range records {
		if err := enc.Encode(jsonRecord{ID: rec.ID, Vector: rec.Vector, Attributes: rec.Attributes}); err != nil {
			return fmt.Errorf("dataset: encode %q: %w", rec.ID, err)
		}
	}
	return bw.Flush()
}

// Validate checks records the way the vector index will, and returns copies
// with normalized attributes: non-empty unique ids, finite components, one
// shared dimension and non-empty de-duplicated labels.
func Validate(records []model.Record) ([]model.Record, error) {
	if len(records) == 0 {
		return nil, &model.DataError{Reason: "dataset contains no records"}
	}

	out := make([]model.Record, len(records))
	seen := make(map[string]struct{}, len(records))
	dim := len(records[0].Vector)
	for i, rec := range records {
		if err := rec.Validate(); err != nil {
			return nil, err
		}
		if len(rec.Vector) != dim {
			return nil, model.ErrDimensionMismatch(rec.ID, dim, len(rec.Vector))
		}
		if _, dup := seen[rec.ID]; dup {
			return nil, &model.DataError{RecordID: rec.ID, Field: "id", Reason: "duplicate record id"}
		}
		seen[rec.ID] = struct{}{}

		attrs, err := rec.Attributes.Normalize()
		if err != nil {
			return nil, err
		}
		out[i] = model.Record{ID: rec.ID, Vector: rec.Vector, Attributes: attrs}
	}
	return out, nil
}

// DetectFormat infers the format from a file name, ignoring a trailing
// compression extension.
func DetectFormat(name string) (Format, error) {
	base := strings.ToLower(name)
	base = strings.TrimSuffix(strings.TrimSuffix(base, ".gz"), ".zst")
	switch filepath.Ext(base) {
	case ".jsonl", ".ndjson", ".json":
		return FormatJSONL, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return 0, fmt.Errorf("dataset: cannot infer format of %q", name)
	}
}

// Read decodes records in the given format.
func Read(r io.Reader, f Format) ([]model.Record, error) {
	switch f {
	case FormatJSONL:
		return ReadJSONL(r)
	case FormatCSV:
		return ReadCSV(r)
	default:
		return nil, fmt.Errorf("dataset: unknown format %v", f)
	}
}

// Load reads a dataset file. The format follows the file extension.
func Load(path string) ([]model.Record, error) {
	f, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	defer func() { _ = file.Close() }()

	r, closeFn, err := decompress(path, file)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	records, err := Read(r, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return records, nil
}

func decompress(path string, r io.Reader) (io.Reader, func(), error) {
	switch {
	case strings.HasSuffix(strings.ToLower(path), ".gz"):
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("dataset: gzip: %w", err)
		}
		return zr, func() { _ = zr.Close() }, nil
	case strings.HasSuffix(strings.ToLower(path), ".zst"):
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("dataset: zstd: %w", err)
		}
		return zr, zr.Close, nil
	default:
		return r, func() {}, nil
	}
}
