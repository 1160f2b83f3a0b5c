package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jszwec/csvutil"

	"github.com/IshaanNene/njbuds/internal/types"
)

// nullCells are cell values left behind by spreadsheet round-trips that
// mean "empty".
var nullCells = map[string]bool{"nan": true, "none": true, "null": true}

// DecodeCSV reads records from r. Columns missing from the header decode as
// empty strings; unknown columns are ignored.
func DecodeCSV(r io.Reader) ([]types.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	dec, err := csvutil.NewDecoder(&raggedReader{r: cr})
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	dec.Map = func(field, _ string, _ any) string {
		if nullCells[strings.ToLower(strings.TrimSpace(field))] {
			return ""
		}
		return field
	}

	var records []types.Record
	for {
		var rec types.Record
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return records, fmt.Errorf("decode CSV row %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// raggedReader fits every row to the header width so csvutil accepts
// short or overlong rows. Missing cells read as empty and extra cells are
// dropped.
type raggedReader struct {
	r     *csv.Reader
	width int
}

func (rr *raggedReader) Read() ([]string, error) {
	row, err := rr.r.Read()
	if err != nil {
		return nil, err
	}
	switch {
	case rr.width == 0:
		rr.width = len(row)
	case len(row) < rr.width:
		row = append(row, make([]string, rr.width-len(row))...)
	case len(row) > rr.width:
		row = row[:rr.width]
	}
	return row, nil
}

// EncodeCSV writes the header and records to w. The header is written even
// when records is empty.
func EncodeCSV(w io.Writer, records []types.Record) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	if err := enc.EncodeHeader(types.Record{}); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	enc.AutoHeader = false
	for i := range records {
		if err := enc.Encode(records[i]); err != nil {
			return fmt.Errorf("encode CSV row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV loads all records from the CSV file at path.
func ReadCSV(path string) ([]types.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &types.StorageError{Backend: "csv", Path: path, Err: err}
	}
	defer f.Close()

	records, err := DecodeCSV(f)
	if err != nil {
		return nil, &types.StorageError{Backend: "csv", Path: path, Err: err}
	}
	return records, nil
}

// WriteCSV atomically replaces path with the given records: the rows are
// written to a temp file in the same directory and renamed into place, so
// readers never observe a half-written file.
func WriteCSV(path string, records []types.Record) error {
	var buf bytes.Buffer
	if err := EncodeCSV(&buf, records); err != nil {
		return &types.StorageError{Backend: "csv", Path: path, Err: err}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &types.StorageError{Backend: "csv", Path: path, Err: fmt.Errorf("create output dir: %w", err)}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &types.StorageError{Backend: "csv", Path: path, Err: err}
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &types.StorageError{Backend: "csv", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &types.StorageError{Backend: "csv", Path: path, Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return &types.StorageError{Backend: "csv", Path: path, Err: err}
	}
	return nil
}

// --- CSV Sink ---

// CSVSink rewrites a CSV file with the full record set on each Store.
type CSVSink struct {
	path   string
	count  int
	logger *slog.Logger
}

// NewCSVSink creates a sink writing to path.
func NewCSVSink(path string, logger *slog.Logger) *CSVSink {
	return &CSVSink{
		path:   path,
		logger: logger.With("component", "csv_sink"),
	}
}

func (s *CSVSink) Name() string { return "csv" }

// Path returns the output file.
func (s *CSVSink) Path() string { return s.path }

func (s *CSVSink) Store(_ context.Context, records []types.Record) error {
	if err := WriteCSV(s.path, records); err != nil {
		return err
	}
	s.count = len(records)
	s.logger.Debug("csv written", "path", s.path, "rows", len(records))
	return nil
}

func (s *CSVSink) Close() error {
	s.logger.Info("CSV written", "path", s.path, "rows", s.count)
	return nil
}
