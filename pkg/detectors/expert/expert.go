// Package expert implements a small forward-chaining rule engine: each rule
// inspects a row against column statistics and contributes its confidence when it fires.
package expert

import (
	"context"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/hed1ad/anomalyconsensus/pkg/dataset"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors"
)

// Threshold is the score above which a row is anomalous.
const Threshold = 0.3

// neutral is contributed by a rule that cannot be evaluated.
const neutral = 0.5

// ColumnStats is the knowledge a rule may consult about one column.
type ColumnStats struct {
	Mean, Std, Median float64
	Q1, Q3            float64
	Min, Max          float64
}

// Knowledge maps a column name to its statistics.
type Knowledge map[string]ColumnStats

// Facts is one row; missing cells are NaN.
type Facts map[string]float64

// Rule fires when Condition holds for a row.
type Rule struct {
	Name       string
	Confidence float64
	Condition  func(f Facts, k Knowledge) bool
}

// DefaultRules are the rules used when a Detector has none configured.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:       "extreme_iqr",
			Confidence: 0.9,
			Condition: func(f Facts, k Knowledge) bool {
				for c, v := range f {
					s := k[c]
					iqr := s.Q3 - s.Q1
					if !math.IsNaN(v) && (v < s.Q1-3*iqr || v > s.Q3+3*iqr) {
						return true
					}
				}
				return false
			},
		},
		{
			Name:       "three_sigma",
			Confidence: 0.8,
			Condition: func(f Facts, k Knowledge) bool {
				for c, v := range f {
					s := k[c]
					if !math.IsNaN(v) && s.Std > 0 && math.Abs(v-s.Mean) > 3*s.Std {
						return true
					}
				}
				return false
			},
		},
		{
			Name:       "missing_value",
			Confidence: 0.5,
			Condition: func(f Facts, _ Knowledge) bool {
				for _, v := range f {
					if math.IsNaN(v) {
						return true
					}
				}
				return false
			},
		},
	}
}

// Learn computes column statistics over the finite values of each column.
func Learn(cols []string, m [][]float64) Knowledge {
	k := make(Knowledge, len(cols))
	for j, c := range cols {
		var vals stats.Float64Data
		for _, row := range m {
			if !math.IsNaN(row[j]) {
				vals = append(vals, row[j])
			}
		}
		if len(vals) == 0 {
			continue
		}
		var s ColumnStats
		s.Mean, _ = stats.Mean(vals)
		s.Std, _ = stats.StandardDeviationSample(vals)
		s.Median, _ = stats.Median(vals)
		s.Min, _ = stats.Min(vals)
		s.Max, _ = stats.Max(vals)
		if q, err := stats.Quartile(vals); err == nil {
			s.Q1, s.Q3 = q.Q1, q.Q3
		} else {
			s.Q1, s.Q3 = s.Median, s.Median
		}
		k[c] = s
	}
	return k
}

// Infer returns the mean confidence of the rules that fire for f, zero when none do.
// A rule that panics contributes a neutral score.
func Infer(rules []Rule, f Facts, k Knowledge) float64 {
	var fired []float64
	for _, r := range rules {
		ok, failed := evaluate(r, f, k)
		switch {
		case failed:
			fired = append(fired, neutral)
		case ok:
			fired = append(fired, r.Confidence)
		}
	}
	if len(fired) == 0 {
		return 0
	}
	mean, _ := stats.Mean(fired)
	return mean
}

func evaluate(r Rule, f Facts, k Knowledge) (ok, failed bool) {
	defer func() {
		if recover() != nil {
			ok, failed = false, true
		}
	}()
	return r.Condition(f, k), false
}

// Detector is the expert_system technique.
type Detector struct {
	// Rules defaults to DefaultRules.
	Rules []Rule
}

// Detect implements detectors.Detector.
func (e Detector) Detect(ctx context.Context, ds *dataset.Dataset, cfg detectors.Config) (detectors.Output, error) {
	cols, err := detectors.Columns(ds, cfg)
	if err != nil {
		return detectors.Output{}, err
	}
	scores, err := Scores(ctx, cols, ds.Matrix(cols), e.Rules)
	if err != nil {
		return detectors.Output{}, err
	}
	return detectors.FromScores(scores, Threshold), nil
}

// Scores infers a score for every row of m, whose columns are named by cols.
// Nil rules means DefaultRules.
func Scores(ctx context.Context, cols []string, m [][]float64, rules []Rule) ([]float64, error) {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	k := Learn(cols, m)
	scores := make([]float64, len(m))
	for i, row := range m {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		f := make(Facts, len(cols))
		for j, c := range cols {
			f[c] = row[j]
		}
		scores[i] = Infer(rules, f, k)
	}
	return scores, nil
}
