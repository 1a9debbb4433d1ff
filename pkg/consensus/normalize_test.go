package consensus

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/hed1ad/anomalyconsensus/internal/errors"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		out      detectors.Output
		rows     int
		wantIdx  []int
		wantConf map[int]float64
		wantErr  bool
	}{
		{
			name:    "nil anomalies",
			out:     detectors.Output{},
			rows:    5,
			wantIdx: []int{},
		},
		{
			name:    "sorted and deduplicated",
			out:     detectors.Output{Anomalies: []int{4, 0, 4, 2}},
			rows:    5,
			wantIdx: []int{0, 2, 4},
		},
		{
			name:    "index at row count",
			out:     detectors.Output{Anomalies: []int{5}},
			rows:    5,
			wantErr: true,
		},
		{
			name:    "negative index",
			out:     detectors.Output{Anomalies: []int{-1, 2}},
			rows:    5,
			wantErr: true,
		},
		{
			name:     "confidence clamped",
			out:      detectors.Output{Anomalies: []int{1}, Confidence: map[int]float64{0: -0.2, 1: 1.7, 2: 0.4}},
			rows:     3,
			wantIdx:  []int{1},
			wantConf: map[int]float64{0: 0, 1: 1, 2: 0.4},
		},
		{
			name:    "confidence key out of range",
			out:     detectors.Output{Confidence: map[int]float64{3: 0.5}},
			rows:    3,
			wantErr: true,
		},
		{
			name:    "non-finite confidence",
			out:     detectors.Output{Confidence: map[int]float64{0: math.NaN()}},
			rows:    3,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize("iqr", tt.out, tt.rows)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperr.HasCode(err, apperr.CodeIndexValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantIdx, got.Anomalies)
			assert.Equal(t, tt.wantConf, got.Confidence)
		})
	}
}

func TestNormalizeDoesNotAliasInput(t *testing.T) {
	in := detectors.Output{Anomalies: []int{3, 1}}
	got, err := Normalize("iqr", in, 5)
	require.NoError(t, err)
	got.Anomalies[0] = 99
	assert.Equal(t, []int{3, 1}, in.Anomalies)
}
