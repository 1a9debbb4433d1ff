package detectors

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/hed1ad/anomalyconsensus/internal/errors"
	"github.com/hed1ad/anomalyconsensus/pkg/dataset"
)

func noop() Detector {
	return DetectorFunc(func(context.Context, *dataset.Dataset, Config) (Output, error) {
		return Output{}, nil
	})
}

func TestNewRegistry(t *testing.T) {
	tests := []struct {
		name    string
		descs   []Descriptor
		wantErr bool
	}{
		{
			name: "valid",
			descs: []Descriptor{
				{Name: "rule_based", Category: Traditional, Detector: noop()},
				{Name: "iqr", Category: Traditional, Detector: noop()},
			},
		},
		{
			name:  "empty",
			descs: nil,
		},
		{
			name: "duplicate name",
			descs: []Descriptor{
				{Name: "iqr", Category: Traditional, Detector: noop()},
				{Name: "iqr", Category: Learned, Detector: noop()},
			},
			wantErr: true,
		},
		{
			name:    "missing name",
			descs:   []Descriptor{{Category: Traditional, Detector: noop()}},
			wantErr: true,
		},
		{
			name:    "unknown category",
			descs:   []Descriptor{{Name: "x", Category: "quantum", Detector: noop()}},
			wantErr: true,
		},
		{
			name:    "nil detector",
			descs:   []Descriptor{{Name: "x", Category: Learned}},
			wantErr: true,
		},
		{
			name:    "negative timeout",
			descs:   []Descriptor{{Name: "x", Category: Learned, Detector: noop(), Timeout: -time.Second}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := NewRegistry(tt.descs...)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperr.HasCode(err, apperr.CodeConfiguration))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.descs), reg.Len())
		})
	}
}

func TestRegistryOrderAndCategories(t *testing.T) {
	reg, err := NewRegistry(
		Descriptor{Name: "rule_based", Category: Traditional, Detector: noop()},
		Descriptor{Name: "isolation_forest", Category: Learned, Detector: noop()},
		Descriptor{Name: "iqr", Category: Traditional, Detector: noop()},
		Descriptor{Name: "fuzzy_logic", Category: Specialized, Detector: noop()},
	)
	require.NoError(t, err)

	var names []string
	for _, d := range reg.List() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"rule_based", "isolation_forest", "iqr", "fuzzy_logic"}, names)

	trad := reg.ByCategory(Traditional)
	require.Len(t, trad, 2)
	assert.Equal(t, "rule_based", trad[0].Name)
	assert.Equal(t, "iqr", trad[1].Name)
	assert.Len(t, reg.ByCategory(Learned), 1)

	d, ok := reg.Lookup("fuzzy_logic")
	assert.True(t, ok)
	assert.Equal(t, Specialized, d.Category)
	_, ok = reg.Lookup("nope")
	assert.False(t, ok)

	list := reg.List()
	list[0].Name = "mutated"
	assert.Equal(t, "rule_based", reg.List()[0].Name)
}

func TestConfigClone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Columns = []string{"a"}
	cfg.Rules = Rules{
		RequiredColumns: []string{"id"},
		Ranges:          map[string]Range{"a": {Min: 0, Max: 10}},
		Categories:      map[string][]string{"kind": {"x", "y"}},
	}

	c := cfg.Clone()
	c.Columns[0] = "b"
	c.Rules.RequiredColumns[0] = "other"
	c.Rules.Ranges["a"] = Range{Min: 5, Max: 6}
	c.Rules.Categories["kind"][0] = "z"

	assert.Equal(t, "a", cfg.Columns[0])
	assert.Equal(t, "id", cfg.Rules.RequiredColumns[0])
	assert.Equal(t, Range{Min: 0, Max: 10}, cfg.Rules.Ranges["a"])
	assert.Equal(t, "x", cfg.Rules.Categories["kind"][0])
}

func TestImputeAndStandardize(t *testing.T) {
	m := [][]float64{{1, 5}, {math.NaN(), 5}, {3, 5}}
	ImputeMean(m)
	assert.Equal(t, 2.0, m[1][0])

	z := Standardize(m)
	assert.InDelta(t, -1.2247, z[0][0], 1e-4)
	assert.InDelta(t, 0, z[1][0], 1e-9)
	assert.Equal(t, 0.0, z[0][1], "constant column is zeroed")
	assert.Equal(t, 1.0, m[0][0], "input untouched")
}

func TestFromScores(t *testing.T) {
	out := FromScores([]float64{0.1, 0.5, 0.9, 1.7, math.NaN()}, 0.5)
	assert.Equal(t, []int{2, 3}, out.Anomalies)
	assert.Equal(t, 1.0, out.Confidence[3])
	assert.Equal(t, 0.5, out.Confidence[1])
	_, ok := out.Confidence[4]
	assert.False(t, ok)
}

func TestCapabilities(t *testing.T) {
	env := Capabilities{RequirementDeepLearning: true}
	assert.True(t, env.Has(RequirementDeepLearning))
	assert.False(t, Capabilities{}.Has(RequirementDeepLearning))
}
