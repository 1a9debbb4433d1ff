// Package dataset provides the immutable tabular value shared read-only by every detector.
package dataset

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	apperr "github.com/hed1ad/anomalyconsensus/internal/errors"
)

// Row maps a column name to its value. A nil value is a missing cell.
type Row map[string]any

// Dataset is an ordered sequence of rows with ordered column names.
// It is never mutated after New returns; accessors hand out copies.
type Dataset struct {
	columns []string
	numeric []string
	rows    []Row

	fpOnce      sync.Once
	fingerprint string
}

// New validates columns and copies rows into a Dataset. Cell values are normalized:
// integer and float32 values become float64, []byte becomes string and
// non-finite floats are treated as missing.
func New(columns []string, rows []Row) (*Dataset, error) {
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if c == "" {
			return nil, apperr.Configuration("dataset has an empty column name")
		}
		if _, dup := seen[c]; dup {
			return nil, apperr.Configurationf("dataset has duplicate column %q", c)
		}
		seen[c] = struct{}{}
	}

	ds := &Dataset{
		columns: append([]string(nil), columns...),
		rows:    make([]Row, len(rows)),
	}

	for i, r := range rows {
		row := make(Row, len(columns))
		for _, c := range columns {
			row[c] = normalize(r[c])
		}
		for k := range r {
			if _, ok := seen[k]; !ok {
				return nil, apperr.Configurationf("row %d has unknown column %q", i, k)
			}
		}
		ds.rows[i] = row
	}

	for _, c := range columns {
		if ds.isNumeric(c) {
			ds.numeric = append(ds.numeric, c)
		}
	}

	return ds, nil
}

func normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case float32:
		return normalize(float64(x))
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case []byte:
		return string(x)
	default:
		return x
	}
}

func (d *Dataset) isNumeric(col string) bool {
	present := false
	for _, r := range d.rows {
		switch r[col].(type) {
		case nil:
		case float64:
			present = true
		default:
			return false
		}
	}
	return present
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return len(d.rows) }

// Columns returns the ordered column names.
func (d *Dataset) Columns() []string { return append([]string(nil), d.columns...) }

// NumericColumns returns the numeric columns in column order.
func (d *Dataset) NumericColumns() []string { return append([]string(nil), d.numeric...) }

// HasColumn reports whether col exists.
func (d *Dataset) HasColumn(col string) bool {
	for _, c := range d.columns {
		if c == col {
			return true
		}
	}
	return false
}

// IsNumeric reports whether col is a numeric column.
func (d *Dataset) IsNumeric(col string) bool {
	for _, c := range d.numeric {
		if c == col {
			return true
		}
	}
	return false
}

// Row returns a copy of row i.
func (d *Dataset) Row(i int) Row {
	out := make(Row, len(d.columns))
	for k, v := range d.rows[i] {
		out[k] = v
	}
	return out
}

// Value returns the cell at (i, col); ok is false for a missing cell or unknown column.
func (d *Dataset) Value(i int, col string) (any, bool) {
	v, ok := d.rows[i][col]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// Float returns the numeric cell at (i, col).
func (d *Dataset) Float(i int, col string) (float64, bool) {
	v, ok := d.rows[i][col].(float64)
	return v, ok
}

// Column returns a fresh slice holding col, with NaN for missing or non-numeric cells.
func (d *Dataset) Column(col string) []float64 {
	out := make([]float64, len(d.rows))
	for i, r := range d.rows {
		if v, ok := r[col].(float64); ok {
			out[i] = v
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// Matrix returns a fresh row-major copy of cols, with NaN for missing cells.
func (d *Dataset) Matrix(cols []string) [][]float64 {
	out := make([][]float64, len(d.rows))
	for i, r := range d.rows {
		row := make([]float64, len(cols))
		for j, c := range cols {
			if v, ok := r[c].(float64); ok {
				row[j] = v
			} else {
				row[j] = math.NaN()
			}
		}
		out[i] = row
	}
	return out
}

// Fingerprint is a stable content hash of columns and cells.
func (d *Dataset) Fingerprint() string {
	d.fpOnce.Do(func() {
		h := sha256.New()
		var buf [8]byte
		for _, c := range d.columns {
			h.Write([]byte(c))
			h.Write([]byte{0})
		}
		for _, r := range d.rows {
			for _, c := range d.columns {
				switch v := r[c].(type) {
				case nil:
					h.Write([]byte{'n'})
				case float64:
					h.Write([]byte{'f'})
					binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
					h.Write(buf[:])
				case time.Time:
					h.Write([]byte{'t'})
					h.Write([]byte(v.UTC().Format(time.RFC3339Nano)))
				default:
					h.Write([]byte{'s'})
					fmt.Fprint(h, v)
				}
				h.Write([]byte{0})
			}
		}
		d.fingerprint = hex.EncodeToString(h.Sum(nil))
	})
	return d.fingerprint
}

// Summary describes the shape of a dataset for reports.
type Summary struct {
	Records        int
	Columns        int
	NumericColumns []string
}

// Summarize returns the dataset summary.
func (d *Dataset) Summarize() Summary {
	return Summary{
		Records:        d.Len(),
		Columns:        len(d.columns),
		NumericColumns: d.NumericColumns(),
	}
}

// SelectColumns returns the analysis columns: the requested ones when given
// (each must be numeric), otherwise the first limit numeric columns (all if limit <= 0).
func (d *Dataset) SelectColumns(requested []string, limit int) ([]string, error) {
	if len(requested) > 0 {
		out := make([]string, 0, len(requested))
		seen := make(map[string]struct{}, len(requested))
		for _, c := range requested {
			if !d.HasColumn(c) {
				return nil, apperr.Configurationf("unknown column %q", c)
			}
			if !d.IsNumeric(c) {
				return nil, apperr.Configurationf("column %q is not numeric", c)
			}
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
		return out, nil
	}

	cols := d.NumericColumns()
	if limit > 0 && len(cols) > limit {
		cols = cols[:limit]
	}
	return cols, nil
}

// SortedIndices returns a sorted, deduplicated copy of idx.
func SortedIndices(idx []int) []int {
	if len(idx) == 0 {
		return []int{}
	}
	out := append([]int(nil), idx...)
	sort.Ints(out)
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}
