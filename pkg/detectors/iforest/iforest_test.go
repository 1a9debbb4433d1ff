package iforest

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hed1ad/anomalyconsensus/internal/testutil"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors"
)

func TestNewIsolationForest(t *testing.T) {
	tests := []struct {
		name       string
		opts       []Option
		wantNTrees int
	}{
		{
			name:       "default configuration",
			opts:       nil,
			wantNTrees: 100,
		},
		{
			name:       "custom trees",
			opts:       []Option{WithTrees(50)},
			wantNTrees: 50,
		},
		{
			name:       "multiple options",
			opts:       []Option{WithTrees(200), WithContamination(0.05), WithSeed(123)},
			wantNTrees: 200,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(tt.opts...)
			assert.Equal(t, tt.wantNTrees, f.nTrees)
		})
	}
}

func TestFit(t *testing.T) {
	tests := []struct {
		name    string
		data    [][]float64
		wantErr bool
	}{
		{
			name:    "empty data",
			data:    [][]float64{},
			wantErr: true,
		},
		{
			name:    "single sample",
			data:    [][]float64{{1.0, 2.0, 3.0}},
			wantErr: false,
		},
		{
			name:    "normal data",
			data:    generateTestData(100, 5),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(WithTrees(10), WithSeed(42))
			err := f.Fit(context.Background(), tt.data)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.True(t, f.trained)
				assert.Len(t, f.trees, f.nTrees)
			}
		})
	}
}

func TestFitHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New().Fit(ctx, generateTestData(100, 3))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPredict(t *testing.T) {
	trainData := generateTestData(500, 5)
	f := New(WithTrees(50), WithSampleSize(100), WithSeed(42))
	require.NoError(t, f.Fit(context.Background(), trainData))

	t.Run("predict on normal data", func(t *testing.T) {
		testData := generateTestData(100, 5)
		scores, err := f.Predict(testData)

		require.NoError(t, err)
		assert.Len(t, scores, len(testData))

		for _, score := range scores {
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		}
	})

	t.Run("predict on anomalies", func(t *testing.T) {
		anomalies := [][]float64{
			{1000, 1000, 1000, 1000, 1000},
			{-500, -500, -500, -500, -500},
		}
		scores, err := f.Predict(anomalies)

		require.NoError(t, err)
		for _, score := range scores {
			assert.Greater(t, score, 0.4, "anomalies should have high scores")
		}
	})

	t.Run("predict before fit", func(t *testing.T) {
		untrained := New()
		_, err := untrained.Predict(trainData)
		assert.Error(t, err)
	})
}

func TestDetect(t *testing.T) {
	ds := testutil.Outliers(t, 200, 3, 17, 12)
	cfg := detectors.DefaultConfig()

	out, err := Detector{}.Detect(context.Background(), ds, cfg)
	require.NoError(t, err)

	assert.Contains(t, out.Anomalies, 17)
	assert.LessOrEqual(t, len(out.Anomalies), 20, "roughly the contamination share")
	assert.Len(t, out.Confidence, 200)
	for _, c := range out.Confidence {
		assert.True(t, c >= 0 && c <= 1)
	}

	again, err := Detector{}.Detect(context.Background(), ds, cfg)
	require.NoError(t, err)
	assert.Equal(t, out.Anomalies, again.Anomalies, "seeded runs are reproducible")
}

func TestDetectWithoutNumericColumns(t *testing.T) {
	ds := testutil.FromMatrix(t, nil)
	_, err := Detector{}.Detect(context.Background(), ds, detectors.DefaultConfig())
	assert.ErrorIs(t, err, detectors.ErrNoNumericColumns)
}

func BenchmarkFit(b *testing.B) {
	data := generateTestData(10000, 10)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f := New(WithTrees(100), WithSampleSize(256))
		_ = f.Fit(context.Background(), data)
	}
}

func BenchmarkPredict(b *testing.B) {
	trainData := generateTestData(5000, 10)
	testData := generateTestData(1000, 10)

	f := New(WithTrees(100), WithSampleSize(256))
	_ = f.Fit(context.Background(), trainData)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = f.Predict(testData)
	}
}

func generateTestData(n, features int) [][]float64 {
	data := make([][]float64, n)
	for i := 0; i < n; i++ {
		data[i] = make([]float64, features)
		for j := 0; j < features; j++ {
			data[i][j] = rand.NormFloat64()
		}
	}
	return data
}
