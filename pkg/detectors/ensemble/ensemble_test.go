package ensemble

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hed1ad/anomalyconsensus/internal/testutil"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors"
)

func TestDetect(t *testing.T) {
	ds := testutil.Outliers(t, 150, 2, 75, 20)

	out, err := Detector{}.Detect(context.Background(), ds, detectors.DefaultConfig())
	require.NoError(t, err)
	assert.Contains(t, out.Anomalies, 75)
	assert.GreaterOrEqual(t, out.Confidence[75], 0.71)
	assert.Len(t, out.Confidence, 150)
}

func TestDetectCustomWeights(t *testing.T) {
	ds := testutil.Outliers(t, 150, 2, 75, 20)
	w := Weights{Expert: 1}

	out, err := Detector{Weights: &w}.Detect(context.Background(), ds, detectors.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, []int{75}, out.Anomalies)
	assert.InDelta(t, 0.85, out.Confidence[75], 1e-9)
}

func TestDetectEmpty(t *testing.T) {
	ds := testutil.FromMatrix(t, [][]float64{})
	_, err := Detector{}.Detect(context.Background(), ds, detectors.DefaultConfig())
	assert.ErrorIs(t, err, detectors.ErrNoNumericColumns)
}
