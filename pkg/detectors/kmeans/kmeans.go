// Package kmeans implements clustering-based anomaly detection: points far
// from their centroid, or in clusters too small to be a population, are anomalous.
package kmeans

import (
	"context"
	"math"
	"math/rand"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"

	"github.com/hed1ad/anomalyconsensus/pkg/dataset"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors"
)

const maxIterations = 100

// Model is a fitted k-means partition.
type Model struct {
	Centroids [][]float64
	Labels    []int
	Sizes     []int
}

// Fit runs k-means++ seeding followed by Lloyd iterations on data.
func Fit(ctx context.Context, data [][]float64, k int, rng *rand.Rand) (*Model, error) {
	n := len(data)
	k = max(1, min(k, n))

	centroids := seed(data, k, rng)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}

	for iter := 0; iter < maxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		changed := false
		for i, p := range data {
			best := nearest(p, centroids)
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, len(data[0]))
		}
		for i, p := range data {
			floats.Add(sums[labels[i]], p)
			counts[labels[i]]++
		}
		for c := range centroids {
			if counts[c] > 0 {
				floats.ScaleTo(centroids[c], 1/float64(counts[c]), sums[c])
			}
		}
	}

	sizes := make([]int, k)
	for _, l := range labels {
		sizes[l]++
	}
	return &Model{Centroids: centroids, Labels: labels, Sizes: sizes}, nil
}

func seed(data [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, append([]float64(nil), data[rng.Intn(len(data))]...))

	dist := make([]float64, len(data))
	for len(centroids) < k {
		var total float64
		for i, p := range data {
			d := floats.Distance(p, centroids[nearest(p, centroids)], 2)
			dist[i] = d * d
			total += dist[i]
		}
		next := 0
		if total > 0 {
			r := rng.Float64() * total
			for i, d := range dist {
				r -= d
				if r <= 0 {
					next = i
					break
				}
			}
		} else {
			next = rng.Intn(len(data))
		}
		centroids = append(centroids, append([]float64(nil), data[next]...))
	}
	return centroids
}

func nearest(p []float64, centroids [][]float64) int {
	best, bestDist := 0, math.Inf(1)
	for c, ctr := range centroids {
		if d := floats.Distance(p, ctr, 2); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// Clusters returns sqrt(n/2) clamped to [3, 10].
func Clusters(n int) int {
	k := int(math.Sqrt(float64(n) / 2))
	return max(3, min(k, 10))
}

// Detector is the kmeans technique.
type Detector struct{}

// Detect standardizes the analysis columns, clusters them and flags rows whose
// centroid distance reaches the contamination percentile, along with every
// member of a cluster smaller than max(2, 2% of rows).
func (Detector) Detect(ctx context.Context, ds *dataset.Dataset, cfg detectors.Config) (detectors.Output, error) {
	raw, err := detectors.NumericMatrix(ds, cfg)
	if err != nil {
		return detectors.Output{}, err
	}
	n := len(raw)
	if n == 0 {
		return detectors.Output{Anomalies: []int{}}, nil
	}
	data := detectors.Standardize(raw)

	model, err := Fit(ctx, data, Clusters(n), rand.New(rand.NewSource(cfg.RandomSeed)))
	if err != nil {
		return detectors.Output{}, err
	}

	dists := make([]float64, n)
	for i, p := range data {
		dists[i] = floats.Distance(p, model.Centroids[model.Labels[i]], 2)
	}
	threshold := math.Inf(1)
	if cfg.Contamination > 0 {
		if p, err := stats.Percentile(dists, 100*(1-cfg.Contamination)); err == nil {
			threshold = p
		}
	}
	minSize := max(2, int(math.Ceil(0.02*float64(n))))
	maxDist := floats.Max(dists)

	out := detectors.Output{Anomalies: []int{}, Confidence: make(map[int]float64, n)}
	for i, d := range dists {
		small := model.Sizes[model.Labels[i]] < minSize && n > minSize
		if (d >= threshold && d > 0) || small {
			out.Anomalies = append(out.Anomalies, i)
		}
		switch {
		case small:
			out.Confidence[i] = 1
		case maxDist > 0:
			out.Confidence[i] = d / maxDist
		default:
			out.Confidence[i] = 0
		}
	}
	return out, nil
}
