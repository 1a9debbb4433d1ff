package fuzzy

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hed1ad/anomalyconsensus/internal/testutil"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors"
)

func TestMembership(t *testing.T) {
	tests := []struct {
		x, want float64
	}{
		{x: -2, want: 0},
		{x: -1, want: 0},
		{x: -0.5, want: 0.5},
		{x: 0, want: 1},
		{x: 0.25, want: 0.75},
		{x: 1, want: 0},
		{x: 3, want: 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Normal.Membership(tt.x), 1e-6, "x=%v", tt.x)
	}
}

func TestScores(t *testing.T) {
	scores := Scores([][]float64{{1, 5}, {1, 5}, {1, math.NaN()}})
	assert.InDelta(t, 0, scores[0], 1e-6, "constant columns sit at the peak of the normal set")
	assert.InDelta(t, 0.25, scores[2], 1e-6, "a missing cell adds half a column")
}

func TestDetect(t *testing.T) {
	ds := testutil.Outliers(t, 100, 2, 9, 25)

	out, err := Detector{}.Detect(context.Background(), ds, detectors.DefaultConfig())
	require.NoError(t, err)
	assert.Contains(t, out.Anomalies, 9)
	assert.Equal(t, 1.0, out.Confidence[9])
	for i, c := range out.Confidence {
		assert.True(t, c >= 0 && c <= 1, "row %d", i)
	}
}
