// Package fuzzy scores rows by how little they belong to a triangular
// "normal" fuzzy set around each column's mean.
package fuzzy

import (
	"context"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/hed1ad/anomalyconsensus/pkg/dataset"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors"
)

// Threshold is the score above which a row is anomalous.
const Threshold = 0.5

// Triangle is a triangular membership function with feet A, C and peak B.
type Triangle struct {
	A, B, C float64
}

// Normal is the default "normal" set on the [-3, 3] scaled axis.
var Normal = Triangle{A: -1, B: 0, C: 1}

// Membership returns the degree in [0, 1] to which x belongs to t.
func (t Triangle) Membership(x float64) float64 {
	switch {
	case x <= t.A || x >= t.C:
		return 0
	case x <= t.B:
		return (x - t.A) / (t.B - t.A + 1e-8)
	default:
		return (t.C - x) / (t.C - t.B + 1e-8)
	}
}

// Scores returns one score per row of m. Columns are scaled to z*3; each
// column adds (1 - membership) / width, and a missing cell adds 0.5 / width.
func Scores(m [][]float64) []float64 {
	scores := make([]float64, len(m))
	if len(m) == 0 {
		return scores
	}
	width := float64(len(m[0]))

	for j := range m[0] {
		col := detectors.ColumnOf(m, j)
		finite := make([]float64, 0, len(col))
		for _, x := range col {
			if !math.IsNaN(x) {
				finite = append(finite, x)
			}
		}
		var mean, std float64
		if len(finite) > 0 {
			mean, std = stat.PopMeanStdDev(finite, nil)
		}

		for i, x := range col {
			if math.IsNaN(x) {
				scores[i] += 0.5 / width
				continue
			}
			scaled := 0.0
			if std > 0 {
				scaled = (x - mean) / (std + 1e-8) * 3
			}
			scores[i] += (1 - Normal.Membership(scaled)) / width
		}
	}
	return scores
}

// Detector is the fuzzy_logic technique.
type Detector struct{}

// Detect implements detectors.Detector.
func (Detector) Detect(ctx context.Context, ds *dataset.Dataset, cfg detectors.Config) (detectors.Output, error) {
	cols, err := detectors.Columns(ds, cfg)
	if err != nil {
		return detectors.Output{}, err
	}
	if err := ctx.Err(); err != nil {
		return detectors.Output{}, err
	}
	return detectors.FromScores(Scores(ds.Matrix(cols)), Threshold), nil
}
