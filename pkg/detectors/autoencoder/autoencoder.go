// Package autoencoder scores rows by reconstruction error through a linear
// bottleneck: the data is projected onto its leading principal directions and
// mapped back, so rows that do not follow the dominant structure reconstruct poorly.
package autoencoder

import (
	"context"
	"errors"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/hed1ad/anomalyconsensus/pkg/dataset"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors"
)

// ErrorPercentile is the reconstruction-error percentile above which a row is anomalous.
const ErrorPercentile = 95

// Detector is the autoencoder technique.
type Detector struct {
	// Bottleneck is the encoding width; zero means half the input width, at least one.
	Bottleneck int
}

// ReconstructionErrors returns the mean squared reconstruction error of each
// row of data after encoding it to k dimensions.
func ReconstructionErrors(data [][]float64, k int) ([]float64, error) {
	n := len(data)
	if n == 0 {
		return nil, nil
	}
	d := len(data[0])
	x := mat.NewDense(n, d, nil)
	for i, row := range data {
		x.SetRow(i, row)
	}

	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return nil, errors.New("singular value decomposition did not converge")
	}
	var v mat.Dense
	svd.VTo(&v)
	_, vc := v.Dims()
	k = max(1, min(k, vc))
	basis := v.Slice(0, d, 0, k)

	var code, recon mat.Dense
	code.Mul(x, basis)
	recon.Mul(&code, basis.T())

	errs := make([]float64, n)
	residual := make([]float64, d)
	for i := 0; i < n; i++ {
		floats.SubTo(residual, data[i], recon.RawRowView(i))
		errs[i] = floats.Dot(residual, residual) / float64(d)
	}
	return errs, nil
}

// Detect implements detectors.Detector.
func (a Detector) Detect(ctx context.Context, ds *dataset.Dataset, cfg detectors.Config) (detectors.Output, error) {
	raw, err := detectors.NumericMatrix(ds, cfg)
	if err != nil {
		return detectors.Output{}, err
	}
	if len(raw) == 0 {
		return detectors.Output{Anomalies: []int{}}, nil
	}
	if err := ctx.Err(); err != nil {
		return detectors.Output{}, err
	}

	k := a.Bottleneck
	if k <= 0 {
		k = max(1, len(raw[0])/2)
	}
	errs, err := ReconstructionErrors(detectors.Standardize(raw), k)
	if err != nil {
		return detectors.Output{}, err
	}

	threshold, err := stats.Percentile(errs, ErrorPercentile)
	if err != nil {
		return detectors.Output{}, err
	}
	maxErr := floats.Max(errs)

	out := detectors.Output{Anomalies: []int{}, Confidence: make(map[int]float64, len(errs))}
	for i, e := range errs {
		if e > threshold {
			out.Anomalies = append(out.Anomalies, i)
		}
		if maxErr > 0 {
			out.Confidence[i] = e / maxErr
		} else {
			out.Confidence[i] = 0
		}
	}
	return out, nil
}
