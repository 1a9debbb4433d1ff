// Package genetic evolves a feature weighting and threshold whose projection
// isolates roughly five percent of rows, then scores rows by that projection.
package genetic

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/hed1ad/anomalyconsensus/pkg/dataset"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors"
)

const (
	// Threshold is the score above which a row is anomalous.
	Threshold = 0.3

	targetRatio  = 0.05
	mutationRate = 0.1
)

// Individual is one candidate solution.
type Individual struct {
	Weights   []float64
	Threshold float64
}

func (ind Individual) clone() Individual {
	return Individual{Weights: append([]float64(nil), ind.Weights...), Threshold: ind.Threshold}
}

// Search holds the evolution parameters.
type Search struct {
	Population  int
	Generations int
	rng         *rand.Rand
}

// NewSearch returns a Search with the given sizes and seed.
func NewSearch(population, generations int, seed int64) *Search {
	return &Search{
		Population:  max(2, population),
		Generations: generations,
		rng:         rand.New(rand.NewSource(seed)),
	}
}

// Evolve runs the search over normalized data and returns the fittest
// individual seen. ctx is checked between generations.
func (s *Search) Evolve(ctx context.Context, x [][]float64) (Individual, error) {
	if len(x) == 0 {
		return Individual{}, errors.New("no rows to evolve against")
	}
	d := len(x[0])

	pop := make([]Individual, s.Population)
	for i := range pop {
		pop[i] = s.random(d)
	}

	best, bestFit := Individual{}, math.Inf(-1)
	for g := 0; g < s.Generations; g++ {
		if err := ctx.Err(); err != nil {
			return Individual{}, err
		}
		fit := make([]float64, len(pop))
		for i, ind := range pop {
			fit[i] = fitness(ind, x)
		}
		if i := floats.MaxIdx(fit); fit[i] > bestFit {
			best, bestFit = pop[i].clone(), fit[i]
		}

		survivors := make([]Individual, s.Population)
		for i := range survivors {
			a := s.rng.Intn(len(pop))
			b := s.rng.Intn(len(pop) - 1)
			if b >= a {
				b++
			}
			if fit[a] > fit[b] {
				survivors[i] = pop[a].clone()
			} else {
				survivors[i] = pop[b].clone()
			}
		}

		next := make([]Individual, 0, s.Population+1)
		for i := 0; i < len(survivors); i += 2 {
			var c1, c2 Individual
			if i+1 < len(survivors) {
				c1 = s.crossover(survivors[i], survivors[i+1])
				c2 = s.crossover(survivors[i+1], survivors[i])
			} else {
				c1, c2 = survivors[i].clone(), survivors[i].clone()
			}
			next = append(next, s.mutate(c1), s.mutate(c2))
		}
		pop = next[:s.Population]
	}

	if best.Weights == nil {
		best = pop[0]
	}
	return best, nil
}

// random draws Dirichlet(1, ..., 1) weights and a threshold in [0.3, 0.7).
func (s *Search) random(d int) Individual {
	w := make([]float64, d)
	for i := range w {
		w[i] = s.rng.ExpFloat64()
	}
	normalize(w)
	return Individual{Weights: w, Threshold: 0.3 + 0.4*s.rng.Float64()}
}

func (s *Search) crossover(p1, p2 Individual) Individual {
	w := make([]float64, len(p1.Weights))
	for i := range w {
		if s.rng.Float64() < 0.5 {
			w[i] = p1.Weights[i]
		} else {
			w[i] = p2.Weights[i]
		}
	}
	normalize(w)
	return Individual{Weights: w, Threshold: 0.5 * (p1.Threshold + p2.Threshold)}
}

func (s *Search) mutate(ind Individual) Individual {
	if s.rng.Float64() < mutationRate {
		ind.Weights[s.rng.Intn(len(ind.Weights))] = s.rng.Float64()
		normalize(ind.Weights)
	}
	if s.rng.Float64() < mutationRate {
		ind.Threshold = math.Max(0.1, math.Min(0.9, ind.Threshold+0.05*s.rng.NormFloat64()))
	}
	return ind
}

func normalize(w []float64) {
	sum := floats.Sum(w)
	if sum <= 0 {
		for i := range w {
			w[i] = 1 / float64(len(w))
		}
		return
	}
	floats.Scale(1/sum, w)
}

// fitness prefers individuals that isolate close to the target share of rows.
func fitness(ind Individual, x [][]float64) float64 {
	var outliers int
	for _, row := range x {
		if math.Abs(floats.Dot(row, ind.Weights)) > ind.Threshold {
			outliers++
		}
	}
	return -math.Abs(float64(outliers)/float64(len(x)) - targetRatio)
}

// Normalize z-scores each column using population statistics with a small
// epsilon in the denominator.
func Normalize(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i := range m {
		out[i] = make([]float64, len(m[i]))
	}
	if len(m) == 0 {
		return out
	}
	for j := range m[0] {
		mean, std := stat.PopMeanStdDev(detectors.ColumnOf(m, j), nil)
		for i := range m {
			out[i][j] = (m[i][j] - mean) / (std + 1e-8)
		}
	}
	return out
}

// Project scores each row of x as |x . w| relative to the 95th percentile, capped at one.
func Project(x [][]float64, w []float64) []float64 {
	scores := make([]float64, len(x))
	for i, row := range x {
		scores[i] = math.Abs(floats.Dot(row, w))
	}
	if len(scores) == 0 {
		return scores
	}
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)
	p95 := stat.Quantile(0.95, stat.LinInterp, sorted, nil)
	for i, s := range scores {
		scores[i] = math.Min(s/(p95+1e-8), 1)
	}
	return scores
}

// Scores evolves a solution on m (missing cells must already be imputed) and
// returns the projected score of every row.
func Scores(ctx context.Context, m [][]float64, population, generations int, seed int64) ([]float64, error) {
	x := Normalize(m)
	best, err := NewSearch(population, generations, seed).Evolve(ctx, x)
	if err != nil {
		return nil, err
	}
	return Project(x, best.Weights), nil
}

// Detector is the genetic_algorithm technique.
type Detector struct {
	// Population defaults to 20.
	Population int
	// Generations defaults to 10.
	Generations int
}

// Detect implements detectors.Detector.
func (g Detector) Detect(ctx context.Context, ds *dataset.Dataset, cfg detectors.Config) (detectors.Output, error) {
	m, err := detectors.NumericMatrix(ds, cfg)
	if err != nil {
		return detectors.Output{}, err
	}
	if len(m) == 0 {
		return detectors.Output{Anomalies: []int{}}, nil
	}
	pop, gens := g.Population, g.Generations
	if pop <= 0 {
		pop = 20
	}
	if gens <= 0 {
		gens = 10
	}
	scores, err := Scores(ctx, m, pop, gens, cfg.RandomSeed)
	if err != nil {
		return detectors.Output{}, err
	}
	return detectors.FromScores(scores, Threshold), nil
}
