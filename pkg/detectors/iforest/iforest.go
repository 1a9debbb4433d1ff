// Package iforest implements the Isolation Forest algorithm for anomaly detection.
package iforest

import (
	"context"
	"errors"
	"math"
	"math/rand"

	"github.com/montanaflynn/stats"

	"github.com/hed1ad/anomalyconsensus/pkg/dataset"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors"
)

// IsolationForest implements unsupervised anomaly detection using isolation trees.
// A forest is fitted once and is not safe for concurrent Fit calls; the
// Detector adapter builds a fresh forest per call.
type IsolationForest struct {
	// Configuration
	nTrees        int
	sampleSize    int
	contamination float64
	threshold     float64
	maxDepth      int
	rng           *rand.Rand

	// Trained model
	trees   []*iTree
	trained bool

	avgPathLength float64
}

type iTree struct {
	root *node
}

type node struct {
	splitFeature int
	splitValue   float64

	left  *node
	right *node

	size int // number of samples that reached this leaf
}

// Option configures an IsolationForest.
type Option func(*IsolationForest)

// WithTrees sets the number of isolation trees.
func WithTrees(n int) Option {
	return func(f *IsolationForest) {
		f.nTrees = n
	}
}

// WithSampleSize sets the subsample size for each tree.
func WithSampleSize(n int) Option {
	return func(f *IsolationForest) {
		f.sampleSize = n
	}
}

// WithContamination sets the expected proportion of anomalies.
func WithContamination(c float64) Option {
	return func(f *IsolationForest) {
		f.contamination = c
	}
}

// WithSeed sets the random seed for reproducibility.
func WithSeed(seed int64) Option {
	return func(f *IsolationForest) {
		f.rng = rand.New(rand.NewSource(seed))
	}
}

// New creates a new IsolationForest with the given options.
func New(opts ...Option) *IsolationForest {
	f := &IsolationForest{
		nTrees:        100,
		sampleSize:    256,
		contamination: 0.05,
		threshold:     0.5,
		rng:           rand.New(rand.NewSource(42)),
	}

	for _, opt := range opts {
		opt(f)
	}

	f.maxDepth = int(math.Ceil(math.Log2(float64(f.sampleSize))))

	return f
}

// Fit trains the forest on data. ctx is checked between trees.
func (f *IsolationForest) Fit(ctx context.Context, data [][]float64) error {
	if len(data) == 0 {
		return errors.New("empty training data")
	}

	nSamples := len(data)
	nFeatures := len(data[0])

	sampleSize := min(f.sampleSize, nSamples)

	f.trees = make([]*iTree, f.nTrees)
	for i := 0; i < f.nTrees; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		indices := f.rng.Perm(nSamples)[:sampleSize]
		sample := make([][]float64, sampleSize)
		for j, idx := range indices {
			sample[j] = data[idx]
		}

		f.trees[i] = &iTree{root: f.buildNode(sample, nFeatures, 0)}
	}

	f.avgPathLength = averagePathLength(float64(sampleSize))
	f.trained = true

	if f.contamination > 0 {
		scores, _ := f.Predict(data)
		p, err := stats.Percentile(scores, 100*(1-f.contamination))
		if err == nil {
			f.threshold = p
		}
	}

	return nil
}

func (f *IsolationForest) buildNode(data [][]float64, nFeatures, depth int) *node {
	n := len(data)

	if depth >= f.maxDepth || n <= 1 {
		return &node{size: n}
	}

	feature := f.rng.Intn(nFeatures)

	minVal, maxVal := data[0][feature], data[0][feature]
	for _, row := range data[1:] {
		minVal = math.Min(minVal, row[feature])
		maxVal = math.Max(maxVal, row[feature])
	}

	if minVal == maxVal {
		return &node{size: n}
	}

	splitValue := minVal + f.rng.Float64()*(maxVal-minVal)

	var leftData, rightData [][]float64
	for _, row := range data {
		if row[feature] < splitValue {
			leftData = append(leftData, row)
		} else {
			rightData = append(rightData, row)
		}
	}

	return &node{
		splitFeature: feature,
		splitValue:   splitValue,
		left:         f.buildNode(leftData, nFeatures, depth+1),
		right:        f.buildNode(rightData, nFeatures, depth+1),
	}
}

// Predict returns anomaly scores in [0, 1] for the given samples.
func (f *IsolationForest) Predict(data [][]float64) ([]float64, error) {
	if !f.trained {
		return nil, errors.New("model not trained")
	}

	scores := make([]float64, len(data))
	for i, sample := range data {
		scores[i] = f.score(sample)
	}
	return scores, nil
}

// score is 2^(-E[h(x)] / c(n)); higher is more anomalous.
func (f *IsolationForest) score(sample []float64) float64 {
	var totalPath float64
	for _, tree := range f.trees {
		totalPath += pathLength(sample, tree.root, 0)
	}
	avgPath := totalPath / float64(len(f.trees))
	if f.avgPathLength == 0 {
		return 0.5
	}
	return math.Pow(2, -avgPath/f.avgPathLength)
}

func pathLength(sample []float64, n *node, currentDepth int) float64 {
	if n.left == nil && n.right == nil {
		return float64(currentDepth) + averagePathLength(float64(n.size))
	}

	if sample[n.splitFeature] < n.splitValue {
		return pathLength(sample, n.left, currentDepth+1)
	}
	return pathLength(sample, n.right, currentDepth+1)
}

// averagePathLength returns the average path length of unsuccessful search in BST.
func averagePathLength(n float64) float64 {
	if n <= 1 {
		return 0
	}
	// c(n) = 2*H(n-1) - 2*(n-1)/n, H(n) ≈ ln(n) + Euler-Mascheroni
	return 2*(math.Log(n-1)+0.5772156649) - 2*(n-1)/n
}

// Threshold returns the current anomaly threshold.
func (f *IsolationForest) Threshold() float64 {
	return f.threshold
}

// Detector is the isolation_forest technique.
type Detector struct {
	// Trees defaults to 100.
	Trees int
}

// Detect fits a forest seeded from cfg on the analysis columns and flags every
// row whose score reaches the contamination percentile.
func (d Detector) Detect(ctx context.Context, ds *dataset.Dataset, cfg detectors.Config) (detectors.Output, error) {
	data, err := detectors.NumericMatrix(ds, cfg)
	if err != nil {
		return detectors.Output{}, err
	}
	if len(data) == 0 {
		return detectors.Output{Anomalies: []int{}}, nil
	}

	opts := []Option{WithSeed(cfg.RandomSeed), WithContamination(cfg.Contamination)}
	if d.Trees > 0 {
		opts = append(opts, WithTrees(d.Trees))
	}
	f := New(opts...)
	if err := f.Fit(ctx, data); err != nil {
		return detectors.Output{}, err
	}
	scores, err := f.Predict(data)
	if err != nil {
		return detectors.Output{}, err
	}

	out := detectors.Output{Anomalies: []int{}, Confidence: make(map[int]float64, len(scores))}
	for i, s := range scores {
		if s >= f.threshold {
			out.Anomalies = append(out.Anomalies, i)
		}
		out.Confidence[i] = detectors.Clamp01(s)
	}
	return out, nil
}
