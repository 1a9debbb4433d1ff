// Package report serializes consensus reports as JSON documents, HTML pages
// and console text.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hed1ad/anomalyconsensus/pkg/consensus"
)

// Document is the JSON form of a report.
type Document struct {
	RunID           string                  `json:"run_id"`
	Timestamp       string                  `json:"timestamp"`
	DataSource      string                  `json:"data_source"`
	Records         int                     `json:"records"`
	Columns         int                     `json:"columns"`
	NumericColumns  []string                `json:"numeric_columns"`
	AnalysisColumns []string                `json:"analysis_columns"`
	Results         map[string]MethodResult `json:"results"`
	Order           []string                `json:"order"`
	Overlap         []OverlapEntry          `json:"overlap"`
	Consensus       ConsensusEntry          `json:"consensus"`
	Statistics      StatisticsEntry         `json:"statistics"`
}

// MethodResult is one detector's entry in Document.Results.
type MethodResult struct {
	Category  string  `json:"category"`
	Status    string  `json:"status"`
	Anomalies int     `json:"anomalies"`
	Indices   []int   `json:"indices"`
	Time      float64 `json:"time"`
	Code      string  `json:"code,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// OverlapEntry is the agreement of one pair of methods.
type OverlapEntry struct {
	Methods []string `json:"methods"`
	Count   int      `json:"count"`
	Jaccard float64  `json:"jaccard"`
}

// ConsensusEntry is the consensus set and the policy that produced it.
type ConsensusEntry struct {
	Computable bool    `json:"computable"`
	Fraction   float64 `json:"fraction"`
	Inclusive  bool    `json:"inclusive"`
	Methods    int     `json:"methods"`
	Count      int     `json:"count"`
	Indices    []int   `json:"indices"`
}

// StatisticsEntry holds anomaly count and timing statistics. Times are seconds.
// The count fields are null when no method succeeded.
type StatisticsEntry struct {
	Computable bool         `json:"computable"`
	Successful int          `json:"successful"`
	Mean       *float64     `json:"mean"`
	Min        *int         `json:"min"`
	Max        *int         `json:"max"`
	StdDev     *float64     `json:"std"`
	TotalTime  float64      `json:"total_time"`
	MeanTime   float64      `json:"mean_time"`
	Fastest    *TimedMethod `json:"fastest,omitempty"`
	Slowest    *TimedMethod `json:"slowest,omitempty"`
}

// TimedMethod names a method and its duration in seconds.
type TimedMethod struct {
	Name string  `json:"name"`
	Time float64 `json:"time"`
}

// NewDocument converts r.
func NewDocument(r *consensus.Report) Document {
	doc := Document{
		RunID:           r.RunID,
		Timestamp:       r.Timestamp.UTC().Format(time.RFC3339Nano),
		DataSource:      r.DataSource,
		Records:         r.Summary.Records,
		Columns:         r.Summary.Columns,
		NumericColumns:  nonNil(r.Summary.NumericColumns),
		AnalysisColumns: nonNil(r.AnalysisColumns),
		Results:         make(map[string]MethodResult, len(r.Results)),
		Order:           make([]string, 0, len(r.Results)),
		Overlap:         make([]OverlapEntry, 0, len(r.Overlap)),
	}

	for _, res := range r.Results {
		doc.Order = append(doc.Order, res.Name)
		doc.Results[res.Name] = MethodResult{
			Category:  string(res.Category),
			Status:    string(res.Status),
			Anomalies: len(res.Anomalies),
			Indices:   nonNil(res.Anomalies),
			Time:      res.Duration.Seconds(),
			Code:      res.Code,
			Error:     res.Error,
		}
	}

	for _, o := range r.Overlap {
		doc.Overlap = append(doc.Overlap, OverlapEntry{
			Methods: []string{o.A, o.B},
			Count:   o.Count,
			Jaccard: o.Jaccard,
		})
	}

	c := r.Consensus
	doc.Consensus = ConsensusEntry{
		Computable: c.Computable,
		Fraction:   c.Policy.Fraction,
		Inclusive:  c.Policy.Inclusive,
		Methods:    c.Methods,
		Count:      len(c.Indices),
		Indices:    nonNil(c.Indices),
	}

	s := r.Statistics
	doc.Statistics = StatisticsEntry{
		Computable: s.Computable,
		Successful: s.Successful,
		TotalTime:  s.TotalTime.Seconds(),
		MeanTime:   s.MeanTime.Seconds(),
		Fastest:    timed(s.Fastest),
		Slowest:    timed(s.Slowest),
	}
	if s.Computable {
		doc.Statistics.Mean = &s.Mean
		doc.Statistics.Min = &s.Min
		doc.Statistics.Max = &s.Max
		doc.Statistics.StdDev = &s.StdDev
	}

	return doc
}

// WriteJSON writes r to w as indented JSON.
func WriteJSON(w io.Writer, r *consensus.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(r)); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// WriteJSONFile writes r to path.
func WriteJSONFile(path string, r *consensus.Report) error {
	return writeFile(path, func(w io.Writer) error { return WriteJSON(w, r) })
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()
	return write(f)
}

func timed(m *consensus.TimedMethod) *TimedMethod {
	if m == nil {
		return nil
	}
	return &TimedMethod{Name: m.Name, Time: m.Duration.Seconds()}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
