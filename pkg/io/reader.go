// Package io provides the dataset adapters that feed the consensus engine.
package io

import (
	"context"
	"strconv"
	"strings"

	apperr "github.com/hed1ad/anomalyconsensus/internal/errors"
	"github.com/hed1ad/anomalyconsensus/pkg/dataset"
)

// Reader is the interface for loading a dataset from one source.
type Reader interface {
	// Load reads the complete source into an immutable dataset.
	Load(ctx context.Context) (*dataset.Dataset, error)

	// Source describes where the data comes from, for reports.
	Source() string

	// Close releases resources.
	Close() error
}

// FeatureExtractor extracts numerical features from raw records.
type FeatureExtractor[T any] interface {
	// Extract converts one raw record to a feature vector.
	Extract(record T) []float64

	// FeatureNames returns the names of extracted features.
	FeatureNames() []string
}

// Load reads r to completion and closes it. Every failure, including one
// reported by Close, is returned as a DATA_LOAD_ERROR naming r's source.
func Load(ctx context.Context, r Reader) (ds *dataset.Dataset, err error) {
	defer func() {
		if cerr := r.Close(); cerr != nil && err == nil {
			ds, err = nil, apperr.DataLoad(r.Source(), cerr)
		}
	}()

	ds, err = r.Load(ctx)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeDataLoad) {
			return nil, err
		}
		return nil, apperr.DataLoad(r.Source(), err)
	}
	return ds, nil
}

// FromVectors builds a dataset whose columns are names and whose rows are vecs.
func FromVectors(names []string, vecs [][]float64) (*dataset.Dataset, error) {
	rows := make([]dataset.Row, len(vecs))
	for i, v := range vecs {
		row := make(dataset.Row, len(names))
		for j, name := range names {
			if j < len(v) {
				row[name] = v[j]
			}
		}
		rows[i] = row
	}
	return dataset.New(names, rows)
}

// ParseCell types a text cell: blank and NA markers become missing, numbers
// become float64 and anything else stays a trimmed string.
func ParseCell(s string) any {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "na", "n/a", "nan", "null", "none":
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// Header trims names and replaces blank ones with their position.
func Header(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			n = "column_" + strconv.Itoa(i)
		}
		out[i] = n
	}
	return out
}
