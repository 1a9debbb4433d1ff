// Package rules implements structural validation: required values, numeric
// ranges and allowed categories.
package rules

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/hed1ad/anomalyconsensus/pkg/dataset"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors"
)

// Detector is the rule_based technique. A row is anomalous when it breaks any
// configured rule. Without configured rules the first column is required.
type Detector struct{}

// Detect implements detectors.Detector.
func (Detector) Detect(ctx context.Context, ds *dataset.Dataset, cfg detectors.Config) (detectors.Output, error) {
	r := cfg.Rules
	required := r.RequiredColumns
	if len(required) == 0 && len(r.Ranges) == 0 && len(r.Categories) == 0 {
		if cols := ds.Columns(); len(cols) > 0 {
			required = cols[:1]
		}
	}

	for _, c := range required {
		if !ds.HasColumn(c) {
			return detectors.Output{}, fmt.Errorf("required column %q not in dataset", c)
		}
	}
	rangeCols := sortedKeys(r.Ranges)
	for _, c := range rangeCols {
		if !ds.HasColumn(c) {
			return detectors.Output{}, fmt.Errorf("range rule references unknown column %q", c)
		}
	}
	catCols := sortedKeys(r.Categories)
	for _, c := range catCols {
		if !ds.HasColumn(c) {
			return detectors.Output{}, fmt.Errorf("category rule references unknown column %q", c)
		}
	}

	checks := len(required) + len(rangeCols) + len(catCols)
	out := detectors.Output{Anomalies: []int{}, Confidence: make(map[int]float64)}

	for i := 0; i < ds.Len(); i++ {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return detectors.Output{}, err
			}
		}

		broken := 0
		for _, c := range required {
			if _, ok := ds.Value(i, c); !ok {
				broken++
			}
		}
		for _, c := range rangeCols {
			v, ok := ds.Value(i, c)
			if !ok {
				continue
			}
			f, isNum := v.(float64)
			if !isNum || f < r.Ranges[c].Min || f > r.Ranges[c].Max {
				broken++
			}
		}
		for _, c := range catCols {
			v, ok := ds.Value(i, c)
			if !ok {
				continue
			}
			if !slices.Contains(r.Categories[c], fmt.Sprint(v)) {
				broken++
			}
		}

		if broken > 0 {
			out.Anomalies = append(out.Anomalies, i)
			out.Confidence[i] = float64(broken) / float64(checks)
		}
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
