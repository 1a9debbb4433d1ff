package consensus

import (
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/hed1ad/anomalyconsensus/pkg/dataset"
)

// Policy decides how many successful methods must flag a row for it to be
// in the consensus set.
type Policy struct {
	// Fraction of successful methods, in (0, 1].
	Fraction float64
	// Inclusive accepts rows flagged by exactly Fraction of the methods;
	// otherwise strictly more are needed.
	Inclusive bool
}

// DefaultPolicy is a strict majority.
func DefaultPolicy() Policy {
	return Policy{Fraction: 0.5}
}

// Accepts reports whether votes out of n methods satisfy p.
func (p Policy) Accepts(votes, n int) bool {
	need := p.Fraction * float64(n)
	if p.Inclusive {
		return float64(votes) >= need-1e-9
	}
	return float64(votes) > need+1e-9
}

// Overlap is the agreement between two successful methods.
type Overlap struct {
	A, B string
	// Count is the number of rows flagged by both.
	Count int
	// Jaccard is Count over the size of the union, zero when both are empty.
	Jaccard float64
}

// Consensus is the set of rows enough successful methods agree on.
type Consensus struct {
	Policy Policy
	// Computable is false when fewer than two methods succeeded.
	Computable bool
	Methods    int
	Indices    []int
}

// TimedMethod names a method with its duration.
type TimedMethod struct {
	Name     string
	Duration time.Duration
}

// Statistics summarise anomaly counts across successful methods.
type Statistics struct {
	// Computable is false when no method succeeded; the count fields are then zero.
	Computable bool
	Successful int
	Mean       float64
	Min        int
	Max        int
	StdDev     float64

	// TotalTime sums every detector's duration regardless of status.
	TotalTime time.Duration
	// MeanTime, Fastest and Slowest cover detectors that were invoked.
	MeanTime time.Duration
	Fastest  *TimedMethod
	Slowest  *TimedMethod
}

// Comparison is everything computed across methods.
type Comparison struct {
	Overlap    []Overlap
	Consensus  Consensus
	Statistics Statistics
}

// Compare computes overlap, consensus and statistics over results. Only
// successful results take part in agreement; failures are not zero counts.
func Compare(results []DetectionResult, policy Policy) Comparison {
	ok := successful(results)
	return Comparison{
		Overlap:    overlaps(ok),
		Consensus:  consensus(ok, policy),
		Statistics: statistics(results, ok),
	}
}

func overlaps(ok []DetectionResult) []Overlap {
	out := []Overlap{}
	for i := 0; i < len(ok); i++ {
		for j := i + 1; j < len(ok); j++ {
			shared := intersect(ok[i].Anomalies, ok[j].Anomalies)
			union := len(ok[i].Anomalies) + len(ok[j].Anomalies) - shared
			o := Overlap{A: ok[i].Name, B: ok[j].Name, Count: shared}
			if union > 0 {
				o.Jaccard = float64(shared) / float64(union)
			}
			out = append(out, o)
		}
	}
	return out
}

// intersect counts common elements of two sorted, deduplicated slices.
func intersect(a, b []int) int {
	n, i, j := 0, 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			n++
			i++
			j++
		}
	}
	return n
}

func consensus(ok []DetectionResult, policy Policy) Consensus {
	c := Consensus{Policy: policy, Methods: len(ok), Indices: []int{}}
	if len(ok) < 2 {
		return c
	}
	c.Computable = true

	votes := make(map[int]int)
	for _, r := range ok {
		for _, i := range r.Anomalies {
			votes[i]++
		}
	}
	var rows []int
	for i, v := range votes {
		if policy.Accepts(v, len(ok)) {
			rows = append(rows, i)
		}
	}
	c.Indices = dataset.SortedIndices(rows)
	return c
}

func statistics(all, ok []DetectionResult) Statistics {
	s := Statistics{Successful: len(ok)}

	var ran []time.Duration
	for _, r := range all {
		s.TotalTime += r.Duration
		if r.Status == StatusSkipped {
			continue
		}
		ran = append(ran, r.Duration)
		if s.Fastest == nil || r.Duration < s.Fastest.Duration {
			s.Fastest = &TimedMethod{Name: r.Name, Duration: r.Duration}
		}
		if s.Slowest == nil || r.Duration > s.Slowest.Duration {
			s.Slowest = &TimedMethod{Name: r.Name, Duration: r.Duration}
		}
	}
	if len(ran) > 0 {
		var sum time.Duration
		for _, d := range ran {
			sum += d
		}
		s.MeanTime = sum / time.Duration(len(ran))
	}

	if len(ok) == 0 {
		return s
	}
	counts := make(stats.Float64Data, len(ok))
	for i, r := range ok {
		counts[i] = float64(len(r.Anomalies))
	}
	s.Computable = true
	s.Mean, _ = stats.Mean(counts)
	lo, _ := stats.Min(counts)
	hi, _ := stats.Max(counts)
	s.Min, s.Max = int(lo), int(hi)
	s.StdDev, _ = stats.StandardDeviationPopulation(counts)
	if math.IsNaN(s.StdDev) {
		s.StdDev = 0
	}
	return s
}
