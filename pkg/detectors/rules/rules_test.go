package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hed1ad/anomalyconsensus/pkg/dataset"
	"github.com/hed1ad/anomalyconsensus/pkg/detectors"
)

func transactions(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(
		[]string{"id", "transaction_amount", "account_type"},
		[]dataset.Row{
			{"id": 1, "transaction_amount": 100.0, "account_type": "Retail"},
			{"id": nil, "transaction_amount": 50.0, "account_type": "Retail"},
			{"id": 3, "transaction_amount": 2e6, "account_type": "Corporate"},
			{"id": 4, "transaction_amount": 20.0, "account_type": "Offshore"},
			{"id": 5, "transaction_amount": nil, "account_type": nil},
		},
	)
	require.NoError(t, err)
	return ds
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name  string
		rules detectors.Rules
		want  []int
	}{
		{
			name: "first column required by default",
			want: []int{1},
		},
		{
			name:  "required",
			rules: detectors.Rules{RequiredColumns: []string{"transaction_amount", "account_type"}},
			want:  []int{4},
		},
		{
			name:  "range",
			rules: detectors.Rules{Ranges: map[string]detectors.Range{"transaction_amount": {Min: 0, Max: 1e6}}},
			want:  []int{2},
		},
		{
			name: "categories",
			rules: detectors.Rules{Categories: map[string][]string{
				"account_type": {"Retail", "Corporate", "Investment"},
			}},
			want: []int{3},
		},
		{
			name: "combined",
			rules: detectors.Rules{
				RequiredColumns: []string{"id"},
				Ranges:          map[string]detectors.Range{"transaction_amount": {Min: 0, Max: 1e6}},
				Categories:      map[string][]string{"account_type": {"Retail", "Corporate"}},
			},
			want: []int{1, 2, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := detectors.DefaultConfig()
			cfg.Rules = tt.rules
			out, err := Detector{}.Detect(context.Background(), transactions(t), cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Anomalies)
			for _, i := range out.Anomalies {
				assert.Greater(t, out.Confidence[i], 0.0)
				assert.LessOrEqual(t, out.Confidence[i], 1.0)
			}
		})
	}
}

func TestDetectUnknownColumn(t *testing.T) {
	cfg := detectors.DefaultConfig()
	cfg.Rules.RequiredColumns = []string{"report_date"}

	_, err := Detector{}.Detect(context.Background(), transactions(t), cfg)
	assert.ErrorContains(t, err, "report_date")
}
