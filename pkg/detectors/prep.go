package detectors

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/hed1ad/anomalyconsensus/pkg/dataset"
)

// ErrNoNumericColumns is returned by detectors that need numeric input when none is available.
var ErrNoNumericColumns = errors.New("no numeric columns to analyse")

// Columns resolves the analysis columns for cfg: cfg.Columns when set, otherwise every numeric column.
func Columns(ds *dataset.Dataset, cfg Config) ([]string, error) {
	cols := cfg.Columns
	if len(cols) == 0 {
		cols = ds.NumericColumns()
	}
	if len(cols) == 0 {
		return nil, ErrNoNumericColumns
	}
	return cols, nil
}

// NumericMatrix returns a private copy of the analysis columns with missing
// cells replaced by their column mean (zero for an all-missing column).
func NumericMatrix(ds *dataset.Dataset, cfg Config) ([][]float64, error) {
	cols, err := Columns(ds, cfg)
	if err != nil {
		return nil, err
	}
	m := ds.Matrix(cols)
	ImputeMean(m)
	return m, nil
}

// ImputeMean replaces NaN cells in place with the mean of the column's finite values.
func ImputeMean(m [][]float64) {
	if len(m) == 0 {
		return
	}
	for j := range m[0] {
		var sum float64
		var n int
		for _, row := range m {
			if !math.IsNaN(row[j]) {
				sum += row[j]
				n++
			}
		}
		mean := 0.0
		if n > 0 {
			mean = sum / float64(n)
		}
		for _, row := range m {
			if math.IsNaN(row[j]) {
				row[j] = mean
			}
		}
	}
}

// ColumnOf copies column j of m.
func ColumnOf(m [][]float64, j int) []float64 {
	out := make([]float64, len(m))
	for i, row := range m {
		out[i] = row[j]
	}
	return out
}

// Standardize returns a z-scored copy of m using population statistics.
// Constant columns become zero.
func Standardize(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i := range m {
		out[i] = make([]float64, len(m[i]))
	}
	if len(m) == 0 {
		return out
	}
	for j := range m[0] {
		mean, std := stat.PopMeanStdDev(ColumnOf(m, j), nil)
		for i := range m {
			if std > 0 {
				out[i][j] = (m[i][j] - mean) / std
			}
		}
	}
	return out
}

// FromScores flags every row whose score is strictly above threshold and
// reports all scores, clamped to [0, 1], as confidence.
func FromScores(scores []float64, threshold float64) Output {
	out := Output{
		Anomalies:  []int{},
		Confidence: make(map[int]float64, len(scores)),
	}
	for i, s := range scores {
		if math.IsNaN(s) {
			continue
		}
		if s > threshold {
			out.Anomalies = append(out.Anomalies, i)
		}
		out.Confidence[i] = Clamp01(s)
	}
	return out
}

// Clamp01 limits v to [0, 1].
func Clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
