package genetic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/hed1ad/anomalyconsensus/internal/testutil"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors"
)

func TestEvolve(t *testing.T) {
	x := Normalize(testutil.Gaussian(150, 3, 2))

	best, err := NewSearch(20, 10, 42).Evolve(context.Background(), x)
	require.NoError(t, err)
	require.Len(t, best.Weights, 3)
	assert.InDelta(t, 1, floats.Sum(best.Weights), 1e-9)
	assert.GreaterOrEqual(t, best.Threshold, 0.1)
	assert.LessOrEqual(t, best.Threshold, 0.9)

	again, err := NewSearch(20, 10, 42).Evolve(context.Background(), x)
	require.NoError(t, err)
	assert.Equal(t, best, again)
}

func TestEvolveHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSearch(20, 10, 1).Evolve(ctx, testutil.Gaussian(10, 2, 1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEvolveOddPopulation(t *testing.T) {
	_, err := NewSearch(15, 8, 1).Evolve(context.Background(), Normalize(testutil.Gaussian(40, 2, 1)))
	assert.NoError(t, err)
}

func TestProject(t *testing.T) {
	scores := Project([][]float64{{1}, {-2}, {0}, {40}}, []float64{1})
	for _, s := range scores {
		assert.True(t, s >= 0 && s <= 1)
	}
	assert.Equal(t, 1.0, scores[3])
	assert.Equal(t, 0.0, scores[2])
}

func TestDetect(t *testing.T) {
	ds := testutil.Outliers(t, 200, 3, 120, 20)

	out, err := Detector{}.Detect(context.Background(), ds, detectors.DefaultConfig())
	require.NoError(t, err)
	assert.Contains(t, out.Anomalies, 120)
	assert.Equal(t, 1.0, out.Confidence[120])
}
