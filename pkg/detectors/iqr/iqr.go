// Package iqr implements the interquartile-range outlier rule.
package iqr

import (
	"context"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/hed1ad/anomalyconsensus/pkg/dataset"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors"
)

// Bounds are the inclusive limits outside which a value is an outlier.
type Bounds struct {
	Lower, Upper, IQR float64
}

// Fence computes Q1 - factor*IQR and Q3 + factor*IQR over the finite values
// of xs. ok is false when xs has no finite value.
func Fence(xs []float64, factor float64) (b Bounds, ok bool) {
	vals := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) {
			vals = append(vals, x)
		}
	}
	if len(vals) == 0 {
		return Bounds{}, false
	}
	sort.Float64s(vals)

	q1 := stat.Quantile(0.25, stat.LinInterp, vals, nil)
	q3 := stat.Quantile(0.75, stat.LinInterp, vals, nil)
	iqr := q3 - q1
	return Bounds{Lower: q1 - factor*iqr, Upper: q3 + factor*iqr, IQR: iqr}, true
}

// Distance is how far x lies outside b, zero inside.
func (b Bounds) Distance(x float64) float64 {
	switch {
	case x < b.Lower:
		return b.Lower - x
	case x > b.Upper:
		return x - b.Upper
	}
	return 0
}

// Detector is the iqr technique. A row is anomalous when any analysis column
// falls outside its fence; missing cells never are.
type Detector struct{}

// Detect implements detectors.Detector.
func (Detector) Detect(ctx context.Context, ds *dataset.Dataset, cfg detectors.Config) (detectors.Output, error) {
	cols, err := detectors.Columns(ds, cfg)
	if err != nil {
		return detectors.Output{}, err
	}
	factor := cfg.IQRFactor
	if factor <= 0 {
		factor = detectors.DefaultConfig().IQRFactor
	}

	flagged := make([]bool, ds.Len())
	scores := make([]float64, ds.Len())
	for _, c := range cols {
		if err := ctx.Err(); err != nil {
			return detectors.Output{}, err
		}
		xs := ds.Column(c)
		b, ok := Fence(xs, factor)
		if !ok {
			continue
		}
		for i, x := range xs {
			if math.IsNaN(x) {
				continue
			}
			d := b.Distance(x)
			if d > 0 {
				flagged[i] = true
				scores[i] = math.Max(scores[i], math.Min(d/(b.IQR+1e-8), 1))
			}
		}
	}

	out := detectors.Output{Anomalies: []int{}, Confidence: make(map[int]float64, len(scores))}
	for i, f := range flagged {
		if f {
			out.Anomalies = append(out.Anomalies, i)
		}
		out.Confidence[i] = scores[i]
	}
	return out, nil
}
