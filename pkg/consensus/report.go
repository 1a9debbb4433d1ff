package consensus

import (
	"fmt"
	"slices"
	"time"

	apperr "github.com/hed1ad/anomalyconsensus/internal/errors"
	"github.com/hed1ad/anomalyconsensus/pkg/dataset"
)

// Report is the finished, self-consistent outcome of one run.
type Report struct {
	RunID           string
	Timestamp       time.Time
	DataSource      string
	Summary         dataset.Summary
	AnalysisColumns []string
	Results         []DetectionResult
	Overlap         []Overlap
	Consensus       Consensus
	Statistics      Statistics
}

// Result returns the result called name.
func (r *Report) Result(name string) (DetectionResult, bool) {
	for _, res := range r.Results {
		if res.Name == name {
			return res, true
		}
	}
	return DetectionResult{}, false
}

// ReportInput is everything BuildReport assembles.
type ReportInput struct {
	RunID           string
	Timestamp       time.Time
	DataSource      string
	Summary         dataset.Summary
	AnalysisColumns []string
	Results         []DetectionResult
	Comparison      Comparison
}

// BuildReport checks that in is internally consistent and returns a deep copy
// as a Report. Any violation is a REPORT_ASSEMBLY_ERROR.
func BuildReport(in ReportInput) (*Report, error) {
	if err := validate(in); err != nil {
		return nil, err
	}

	results := make([]DetectionResult, len(in.Results))
	for i, r := range in.Results {
		results[i] = r.Clone()
	}
	summary := in.Summary
	summary.NumericColumns = slices.Clone(in.Summary.NumericColumns)

	c := in.Comparison
	cons := c.Consensus
	cons.Indices = append([]int{}, c.Consensus.Indices...)
	st := c.Statistics
	if st.Fastest != nil {
		f := *st.Fastest
		st.Fastest = &f
	}
	if st.Slowest != nil {
		s := *st.Slowest
		st.Slowest = &s
	}

	return &Report{
		RunID:           in.RunID,
		Timestamp:       in.Timestamp,
		DataSource:      in.DataSource,
		Summary:         summary,
		AnalysisColumns: slices.Clone(in.AnalysisColumns),
		Results:         results,
		Overlap:         append([]Overlap{}, c.Overlap...),
		Consensus:       cons,
		Statistics:      st,
	}, nil
}

func validate(in ReportInput) error {
	if in.Summary.Records < 0 {
		return apperr.ReportAssembly("negative record count")
	}

	names := make(map[string]bool, len(in.Results))
	union := make(map[int]bool)
	succeeded := 0
	for _, r := range in.Results {
		if r.Name == "" {
			return apperr.ReportAssembly("result without a detector name")
		}
		if _, dup := names[r.Name]; dup {
			return apperr.ReportAssembly(fmt.Sprintf("duplicate result for %q", r.Name))
		}
		if !r.Status.Valid() {
			return apperr.ReportAssembly(fmt.Sprintf("%s has unknown status %q", r.Name, r.Status))
		}
		names[r.Name] = r.Succeeded()

		if !r.Succeeded() {
			if len(r.Anomalies) > 0 {
				return apperr.ReportAssembly(fmt.Sprintf("%s is %s but reports anomalies", r.Name, r.Status))
			}
			if r.Error == "" {
				return apperr.ReportAssembly(fmt.Sprintf("%s is %s without an error message", r.Name, r.Status))
			}
			continue
		}
		succeeded++
		for k, i := range r.Anomalies {
			if i < 0 || i >= in.Summary.Records {
				return apperr.ReportAssembly(fmt.Sprintf("%s reports row %d outside [0, %d)", r.Name, i, in.Summary.Records))
			}
			if k > 0 && r.Anomalies[k-1] >= i {
				return apperr.ReportAssembly(fmt.Sprintf("%s anomalies are not sorted and unique", r.Name))
			}
			union[i] = true
		}
	}

	c := in.Comparison
	for _, o := range c.Overlap {
		if !names[o.A] || !names[o.B] {
			return apperr.ReportAssembly(fmt.Sprintf("overlap %s/%s references a method that did not succeed", o.A, o.B))
		}
	}
	if want := succeeded * (succeeded - 1) / 2; len(c.Overlap) != want {
		return apperr.ReportAssembly(fmt.Sprintf("overlap has %d pairs, want %d", len(c.Overlap), want))
	}

	if c.Consensus.Computable != (succeeded >= 2) {
		return apperr.ReportAssembly("consensus computability disagrees with the number of successful methods")
	}
	for _, i := range c.Consensus.Indices {
		if !union[i] {
			return apperr.ReportAssembly(fmt.Sprintf("consensus row %d was not flagged by any successful method", i))
		}
	}

	if c.Statistics.Computable != (succeeded > 0) || c.Statistics.Successful != succeeded {
		return apperr.ReportAssembly("statistics disagree with the number of successful methods")
	}
	return nil
}
