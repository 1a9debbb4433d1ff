// Package xlsx loads a dataset from one worksheet of an Excel workbook.
package xlsx

import (
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/hed1ad/anomalyconsensus/pkg/dataset"
	dsio "github.com/hed1ad/anomalyconsensus/pkg/io"
)

// Reader reads the first row of a sheet as headers and the rest as records.
type Reader struct {
	filename string
	sheet    string
	file     *excelize.File
}

// Option configures a Reader.
type Option func(*Reader)

// WithSheet selects the worksheet. The first sheet is used by default.
func WithSheet(name string) Option {
	return func(r *Reader) {
		r.sheet = name
	}
}

// NewReader opens filename.
func NewReader(filename string, opts ...Option) (*Reader, error) {
	f, err := excelize.OpenFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}

	r := &Reader{filename: filename, file: f}
	for _, opt := range opts {
		opt(r)
	}
	if r.sheet == "" {
		r.sheet = f.GetSheetName(0)
	}
	if idx, err := f.GetSheetIndex(r.sheet); err != nil || idx < 0 {
		f.Close()
		return nil, fmt.Errorf("sheet %q not found", r.sheet)
	}
	return r, nil
}

// Source names the file and sheet.
func (r *Reader) Source() string {
	return r.filename + "#" + r.sheet
}

// Load reads every row of the sheet. Short rows are padded with missing cells.
func (r *Reader) Load(ctx context.Context) (*dataset.Dataset, error) {
	if r.file == nil {
		return nil, errors.New("reader is closed")
	}

	rows, err := r.file.Rows(r.sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.sheet, err)
	}
	defer rows.Close()

	var (
		headers []string
		out     []dataset.Row
	)
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cells, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(out)+1, err)
		}
		if headers == nil {
			if len(cells) == 0 {
				continue
			}
			headers = dsio.Header(cells)
			continue
		}
		if len(cells) == 0 {
			continue
		}

		row := make(dataset.Row, len(headers))
		for j, name := range headers {
			if j < len(cells) {
				row[name] = dsio.ParseCell(cells[j])
			}
		}
		out = append(out, row)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.sheet, err)
	}
	if headers == nil {
		return nil, fmt.Errorf("sheet %s has no header row", r.sheet)
	}

	return dataset.New(headers, out)
}

// Close releases the workbook.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
