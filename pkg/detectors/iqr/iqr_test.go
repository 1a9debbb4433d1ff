package iqr

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hed1ad/anomalyconsensus/internal/testutil"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors"
)

func TestFence(t *testing.T) {
	tests := []struct {
		name   string
		xs     []float64
		factor float64
		ok     bool
	}{
		{name: "empty", xs: nil, ok: false},
		{name: "all missing", xs: []float64{math.NaN(), math.NaN()}, ok: false},
		{name: "constant", xs: []float64{4, 4, 4}, factor: 1.5, ok: true},
		{name: "spread", xs: []float64{5, 1, 3, 2, 4, math.NaN()}, factor: 1.5, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, ok := Fence(tt.xs, tt.factor)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.LessOrEqual(t, b.Lower, b.Upper)
				assert.GreaterOrEqual(t, b.IQR, 0.0)
			}
		})
	}
}

func TestBoundsDistance(t *testing.T) {
	b := Bounds{Lower: 0, Upper: 10, IQR: 4}
	assert.Equal(t, 0.0, b.Distance(5))
	assert.Equal(t, 0.0, b.Distance(10))
	assert.Equal(t, 2.0, b.Distance(-2))
	assert.Equal(t, 5.0, b.Distance(15))
}

func TestDetect(t *testing.T) {
	m := make([][]float64, 20)
	for i := range m {
		m[i] = []float64{float64(i % 5), float64(10 + i%3)}
	}
	m[7][0] = 100
	m[12][1] = -40
	ds := testutil.FromMatrix(t, m)

	out, err := Detector{}.Detect(context.Background(), ds, detectors.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, []int{7, 12}, out.Anomalies)
	assert.Equal(t, 1.0, out.Confidence[7])
	assert.Equal(t, 0.0, out.Confidence[0])
}

func TestDetectRestrictedColumns(t *testing.T) {
	ds := testutil.Outliers(t, 50, 2, 3, 50)
	cfg := detectors.DefaultConfig()
	cfg.Columns = []string{"x1"}

	out, err := Detector{}.Detect(context.Background(), ds, cfg)
	require.NoError(t, err)
	assert.Contains(t, out.Anomalies, 3)
	for _, i := range out.Anomalies {
		assert.True(t, i >= 0 && i < 50)
	}
}
