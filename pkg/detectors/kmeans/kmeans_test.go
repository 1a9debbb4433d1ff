package kmeans

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hed1ad/anomalyconsensus/internal/testutil"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors"
)

func TestClusters(t *testing.T) {
	tests := []struct {
		n, want int
	}{
		{n: 1, want: 3},
		{n: 50, want: 5},
		{n: 200, want: 10},
		{n: 100000, want: 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Clusters(tt.n), "n=%d", tt.n)
	}
}

func TestFitSeparatesBlobs(t *testing.T) {
	var data [][]float64
	for i := 0; i < 30; i++ {
		data = append(data, []float64{float64(i%3) * 0.1, 0})
	}
	for i := 0; i < 30; i++ {
		data = append(data, []float64{10 + float64(i%3)*0.1, 10})
	}

	m, err := Fit(context.Background(), data, 2, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, []int{30, 30}, []int{min(m.Sizes[0], m.Sizes[1]), max(m.Sizes[0], m.Sizes[1])})
	assert.NotEqual(t, m.Labels[0], m.Labels[59])
}

func TestFitMoreClustersThanPoints(t *testing.T) {
	m, err := Fit(context.Background(), [][]float64{{1}, {2}}, 5, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Len(t, m.Centroids, 2)
}

func TestFitHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Fit(ctx, testutil.Gaussian(20, 2, 1), 3, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDetect(t *testing.T) {
	ds := testutil.Outliers(t, 200, 3, 42, 15)

	out, err := Detector{}.Detect(context.Background(), ds, detectors.DefaultConfig())
	require.NoError(t, err)
	assert.Contains(t, out.Anomalies, 42)
	assert.Equal(t, 1.0, out.Confidence[42])

	again, err := Detector{}.Detect(context.Background(), ds, detectors.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, out.Anomalies, again.Anomalies)
}
