// Package testutil builds deterministic datasets for detector and harness tests.
package testutil

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hed1ad/anomalyconsensus/pkg/dataset"
)

// Gaussian returns n rows of d standard-normal values from a seeded source.
func Gaussian(n, d int, seed int64) [][]float64 {
	rng := rand.New(rand.NewSource(seed))
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, d)
		for j := range m[i] {
			m[i][j] = rng.NormFloat64()
		}
	}
	return m
}

// WithOutlier sets every cell of row i to v.
func WithOutlier(m [][]float64, i int, v float64) [][]float64 {
	for j := range m[i] {
		m[i][j] = v
	}
	return m
}

// Names returns x0..x{d-1}.
func Names(d int) []string {
	out := make([]string, d)
	for j := range out {
		out[j] = fmt.Sprintf("x%d", j)
	}
	return out
}

// FromMatrix wraps m in a Dataset with columns x0..x{d-1}.
func FromMatrix(t testing.TB, m [][]float64) *dataset.Dataset {
	t.Helper()
	d := 0
	if len(m) > 0 {
		d = len(m[0])
	}
	cols := Names(d)
	rows := make([]dataset.Row, len(m))
	for i, vals := range m {
		r := make(dataset.Row, d)
		for j, v := range vals {
			r[cols[j]] = v
		}
		rows[i] = r
	}
	ds, err := dataset.New(cols, rows)
	require.NoError(t, err)
	return ds
}

// Outliers builds an n x d Gaussian dataset whose row i is v in every column.
func Outliers(t testing.TB, n, d, i int, v float64) *dataset.Dataset {
	t.Helper()
	return FromMatrix(t, WithOutlier(Gaussian(n, d, 7), i, v))
}
