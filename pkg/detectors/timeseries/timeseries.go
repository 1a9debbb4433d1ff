// Package timeseries flags rows whose values stray from an exponentially
// smoothed forecast of their column, treating row order as time order.
package timeseries

import (
	"context"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/hed1ad/anomalyconsensus/pkg/dataset"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors"
)

const (
	// Threshold is the score above which a row is anomalous.
	Threshold = 0.3
	// Alpha is the default smoothing factor.
	Alpha = 0.3
)

// Smooth returns the exponentially smoothed series of xs and the population
// standard deviation of its residuals. Missing values are forward-filled first.
func Smooth(xs []float64, alpha float64) (forecast []float64, sigma float64) {
	filled := append([]float64(nil), xs...)
	for i := 1; i < len(filled); i++ {
		if math.IsNaN(filled[i]) {
			filled[i] = filled[i-1]
		}
	}

	forecast = make([]float64, len(filled))
	prev := math.NaN()
	for t, x := range filled {
		switch {
		case math.IsNaN(prev):
			forecast[t] = x
		case math.IsNaN(x):
			forecast[t] = prev
		default:
			forecast[t] = alpha*x + (1-alpha)*prev
		}
		prev = forecast[t]
	}

	var residuals []float64
	for t, x := range filled {
		if r := x - forecast[t]; !math.IsNaN(r) {
			residuals = append(residuals, r)
		}
	}
	if len(residuals) < 2 {
		return forecast, 1
	}
	_, sigma = stat.PopMeanStdDev(residuals, nil)
	return forecast, sigma
}

// Scores returns one score per row of m. Each column contributes
// min(|x - forecast| / sigma / 5, 1) divided by the column count.
func Scores(m [][]float64, alpha float64) []float64 {
	scores := make([]float64, len(m))
	if len(m) == 0 {
		return scores
	}
	width := float64(len(m[0]))
	for j := range m[0] {
		xs := detectors.ColumnOf(m, j)
		forecast, sigma := Smooth(xs, alpha)
		for t, x := range xs {
			if math.IsNaN(x) || math.IsNaN(forecast[t]) {
				continue
			}
			z := math.Abs(x-forecast[t]) / (sigma + 1e-8)
			scores[t] += math.Min(z/5, 1) / width
		}
	}
	return scores
}

// Detector is the time_series technique.
type Detector struct {
	// Alpha defaults to 0.3.
	Alpha float64
}

// Detect implements detectors.Detector.
func (d Detector) Detect(ctx context.Context, ds *dataset.Dataset, cfg detectors.Config) (detectors.Output, error) {
	cols, err := detectors.Columns(ds, cfg)
	if err != nil {
		return detectors.Output{}, err
	}
	if err := ctx.Err(); err != nil {
		return detectors.Output{}, err
	}
	alpha := d.Alpha
	if alpha <= 0 || alpha > 1 {
		alpha = Alpha
	}
	return detectors.FromScores(Scores(ds.Matrix(cols), alpha), Threshold), nil
}
