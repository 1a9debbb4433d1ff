// Package consensus runs a registry of detectors against one dataset, isolates
// their failures, and measures how far the successful ones agree.
package consensus

import (
	"maps"
	"time"

	"github.com/hed1ad/anomalyconsensus/pkg/detectors"
)

// Status is the terminal state of one detector invocation.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
	StatusTimedOut Status = "timed_out"
	StatusSkipped  Status = "skipped"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusTimedOut, StatusSkipped:
		return true
	}
	return false
}

// DetectionResult is the outcome of one detector for one run.
// Anomalies is empty and Error is set whenever Status is not StatusSuccess.
type DetectionResult struct {
	Name       string
	Category   detectors.Category
	Status     Status
	Anomalies  []int
	Confidence map[int]float64
	Duration   time.Duration
	// Code is the error code of a non-successful result.
	Code  string
	Error string
}

// Succeeded reports whether the result counts towards agreement.
func (r DetectionResult) Succeeded() bool { return r.Status == StatusSuccess }

// Clone returns a deep copy of r.
func (r DetectionResult) Clone() DetectionResult {
	out := r
	out.Anomalies = append([]int{}, r.Anomalies...)
	out.Confidence = maps.Clone(r.Confidence)
	return out
}

func successful(results []DetectionResult) []DetectionResult {
	var out []DetectionResult
	for _, r := range results {
		if r.Succeeded() {
			out = append(out, r)
		}
	}
	return out
}
