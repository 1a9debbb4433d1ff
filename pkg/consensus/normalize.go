package consensus

import (
	"fmt"
	"math"

	apperr "github.com/hed1ad/anomalyconsensus/internal/errors"
	"github.com/hed1ad/anomalyconsensus/pkg/dataset"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors"
)

// Normalize validates a detector's raw output against rowCount. Indices are
// deduplicated and sorted; confidence scores are clamped to [0, 1].
//
// An index or confidence key outside [0, rowCount), or a non-finite score,
// rejects the whole output with an INDEX_VALIDATION_ERROR. Nothing is truncated.
func Normalize(name string, out detectors.Output, rowCount int) (detectors.Output, error) {
	rejected := 0
	for _, i := range out.Anomalies {
		if i < 0 || i >= rowCount {
			rejected++
		}
	}
	if rejected > 0 {
		return detectors.Output{}, apperr.IndexValidation(name, rejected, rowCount)
	}

	var conf map[int]float64
	if out.Confidence != nil {
		conf = make(map[int]float64, len(out.Confidence))
		for i, s := range out.Confidence {
			if i < 0 || i >= rowCount {
				rejected++
				continue
			}
			if math.IsNaN(s) || math.IsInf(s, 0) {
				return detectors.Output{}, apperr.New(apperr.CodeIndexValidation,
					fmt.Sprintf("%s returned a non-finite confidence for row %d", name, i))
			}
			conf[i] = detectors.Clamp01(s)
		}
	}
	if rejected > 0 {
		return detectors.Output{}, apperr.New(apperr.CodeIndexValidation,
			fmt.Sprintf("%s returned %d confidence scores outside [0, %d)", name, rejected, rowCount))
	}

	return detectors.Output{
		Anomalies:  dataset.SortedIndices(out.Anomalies),
		Confidence: conf,
	}, nil
}
