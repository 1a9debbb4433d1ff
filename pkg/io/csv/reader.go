// Package csv provides CSV file reading for tabular data.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hed1ad/anomalyconsensus/pkg/dataset"
	dsio "github.com/hed1ad/anomalyconsensus/pkg/io"
)

// Reader reads a dataset from a CSV file.
type Reader struct {
	filename  string
	file      *os.File
	reader    *csv.Reader
	hasHeader bool
	comma     rune
	headers   []string
	skipped   int
}

// Option configures a CSV reader.
type Option func(*Reader)

// WithHeader indicates the CSV has a header row.
func WithHeader(has bool) Option {
	return func(r *Reader) {
		r.hasHeader = has
	}
}

// WithComma sets the field delimiter.
func WithComma(c rune) Option {
	return func(r *Reader) {
		r.comma = c
	}
}

// NewReader creates a new CSV reader.
func NewReader(filename string, opts ...Option) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		filename:  filename,
		file:      file,
		hasHeader: true,
		comma:     ',',
	}

	for _, opt := range opts {
		opt(r)
	}

	r.reader = csv.NewReader(file)
	r.reader.Comma = r.comma
	r.reader.TrimLeadingSpace = true

	// Read header if present
	if r.hasHeader {
		headers, err := r.reader.Read()
		if err != nil {
			file.Close()
			if errors.Is(err, io.EOF) {
				return nil, errors.New("csv file is empty")
			}
			return nil, err
		}
		r.headers = dsio.Header(headers)
	}

	return r, nil
}

// Headers returns the column headers.
func (r *Reader) Headers() []string {
	return r.headers
}

// Source returns the file name.
func (r *Reader) Source() string {
	return r.filename
}

// Skipped returns how many rows were dropped for having the wrong number of fields.
func (r *Reader) Skipped() int {
	return r.skipped
}

// Load reads every remaining row into a dataset. Cells are typed with
// dsio.ParseCell; rows with a wrong field count are skipped.
func (r *Reader) Load(ctx context.Context) (*dataset.Dataset, error) {
	var rows []dataset.Row

	for line := 0; ; line++ {
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		record, err := r.reader.Read()
		if err == io.EOF {
			break
		}
		if errors.Is(err, csv.ErrFieldCount) {
			r.skipped++
			continue // Skip malformed rows
		}
		if err != nil {
			return nil, err
		}

		if r.headers == nil {
			r.headers = positional(len(record))
		}
		rows = append(rows, parseRow(r.headers, record))
	}

	if r.headers == nil {
		return nil, errors.New("csv file is empty")
	}

	return dataset.New(r.headers, rows)
}

// Close releases resources.
func (r *Reader) Close() error {
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}

// parseRow maps a record onto the header names.
func parseRow(headers, record []string) dataset.Row {
	row := make(dataset.Row, len(headers))
	for i, name := range headers {
		row[name] = dsio.ParseCell(record[i])
	}
	return row
}

func positional(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("column_%d", i)
	}
	return names
}
