// Package neuralsym combines a small neural scorer with a symbolic
// three-sigma rule; each contributes half of the final score.
package neuralsym

import (
	"context"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/hed1ad/anomalyconsensus/pkg/dataset"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors/genetic"
)

const (
	// Threshold is the score above which a row is anomalous.
	Threshold = 0.5

	hidden       = 8
	epochs       = 5
	learningRate = 0.05
)

// Network is a d -> 8 (relu) -> 1 (sigmoid) perceptron.
type Network struct {
	w1 [][]float64
	b1 []float64
	w2 []float64
	b2 float64
}

// NewNetwork initialises weights uniformly in +-1/sqrt(d).
func NewNetwork(d int, rng *rand.Rand) *Network {
	limit := 1 / math.Sqrt(float64(max(d, 1)))
	n := &Network{w1: make([][]float64, hidden), b1: make([]float64, hidden), w2: make([]float64, hidden)}
	for h := range n.w1 {
		n.w1[h] = make([]float64, d)
		for j := range n.w1[h] {
			n.w1[h][j] = (2*rng.Float64() - 1) * limit
		}
		n.w2[h] = (2*rng.Float64() - 1) / math.Sqrt(hidden)
	}
	return n
}

func (n *Network) forward(x []float64) (act []float64, out float64) {
	act = make([]float64, hidden)
	for h := range act {
		act[h] = math.Max(0, floats.Dot(n.w1[h], x)+n.b1[h])
	}
	return act, sigmoid(floats.Dot(n.w2, act) + n.b2)
}

// Predict returns the network output for x.
func (n *Network) Predict(x []float64) float64 {
	_, out := n.forward(x)
	return out
}

// Train runs per-sample gradient descent on binary cross-entropy.
func (n *Network) Train(ctx context.Context, x [][]float64, y []float64, rng *rand.Rand) error {
	order := make([]int, len(x))
	for i := range order {
		order[i] = i
	}
	for e := 0; e < epochs; e++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		for _, i := range order {
			act, out := n.forward(x[i])
			delta := out - y[i]
			for h := range act {
				grad := delta * n.w2[h]
				n.w2[h] -= learningRate * delta * act[h]
				if act[h] <= 0 {
					continue
				}
				floats.AddScaled(n.w1[h], -learningRate*grad, x[i])
				n.b1[h] -= learningRate * grad
			}
			n.b2 -= learningRate * delta
		}
	}
	return nil
}

func sigmoid(v float64) float64 { return 1 / (1 + math.Exp(-v)) }

// Targets is each row's distance from the origin, min-max scaled to [0, 1].
func Targets(x [][]float64) []float64 {
	y := make([]float64, len(x))
	for i, row := range x {
		y[i] = floats.Norm(row, 2)
	}
	if len(y) == 0 {
		return y
	}
	lo, hi := floats.Min(y), floats.Max(y)
	for i := range y {
		y[i] = (y[i] - lo) / (hi - lo + 1e-8)
	}
	return y
}

// Symbolic is 1 when any normalized value lies beyond three deviations.
func Symbolic(row []float64) float64 {
	for _, v := range row {
		if math.Abs(v) > 3 {
			return 1
		}
	}
	return 0
}

// Detector is the neural_symbolic technique.
type Detector struct{}

// Detect implements detectors.Detector.
func (Detector) Detect(ctx context.Context, ds *dataset.Dataset, cfg detectors.Config) (detectors.Output, error) {
	m, err := detectors.NumericMatrix(ds, cfg)
	if err != nil {
		return detectors.Output{}, err
	}
	if len(m) == 0 {
		return detectors.Output{Anomalies: []int{}}, nil
	}
	x := genetic.Normalize(m)

	rng := rand.New(rand.NewSource(cfg.RandomSeed))
	net := NewNetwork(len(x[0]), rng)
	if err := net.Train(ctx, x, Targets(x), rng); err != nil {
		return detectors.Output{}, err
	}

	scores := make([]float64, len(x))
	for i, row := range x {
		scores[i] = 0.5*net.Predict(row) + 0.5*Symbolic(row)
	}
	return detectors.FromScores(scores, Threshold), nil
}
