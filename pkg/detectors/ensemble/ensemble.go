// Package ensemble blends the fuzzy, expert, time-series and genetic scores
// into one weighted score per row.
package ensemble

import (
	"context"

	"github.com/hed1ad/anomalyconsensus/pkg/dataset"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors/expert"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors/fuzzy"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors/genetic"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors/timeseries"
)

// Threshold is the score above which a row is anomalous.
const Threshold = 0.5

// Weights of each member score.
type Weights struct {
	Fuzzy, Expert, TimeSeries, Genetic float64
}

// DefaultWeights weighs every member equally.
func DefaultWeights() Weights {
	return Weights{Fuzzy: 0.25, Expert: 0.25, TimeSeries: 0.25, Genetic: 0.25}
}

// Detector is the ensemble_ai technique. Its genetic member runs a smaller
// search than the standalone detector.
type Detector struct {
	// Weights defaults to DefaultWeights.
	Weights *Weights
}

// Detect implements detectors.Detector.
func (e Detector) Detect(ctx context.Context, ds *dataset.Dataset, cfg detectors.Config) (detectors.Output, error) {
	cols, err := detectors.Columns(ds, cfg)
	if err != nil {
		return detectors.Output{}, err
	}
	w := DefaultWeights()
	if e.Weights != nil {
		w = *e.Weights
	}

	raw := ds.Matrix(cols)
	imputed := ds.Matrix(cols)
	detectors.ImputeMean(imputed)

	fz := fuzzy.Scores(raw)
	ex, err := expert.Scores(ctx, cols, raw, nil)
	if err != nil {
		return detectors.Output{}, err
	}
	ts := timeseries.Scores(raw, timeseries.Alpha)
	var ga []float64
	if len(imputed) > 0 {
		ga, err = genetic.Scores(ctx, imputed, 15, 8, cfg.RandomSeed)
		if err != nil {
			return detectors.Output{}, err
		}
	}

	scores := make([]float64, len(raw))
	for i := range scores {
		scores[i] = w.Fuzzy*fz[i] + w.Expert*ex[i] + w.TimeSeries*ts[i] + w.Genetic*ga[i]
	}
	return detectors.FromScores(scores, Threshold), nil
}
