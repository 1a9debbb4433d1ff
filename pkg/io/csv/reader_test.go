package csv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		opts        []Option
		wantRows    int
		wantCols    []string
		wantNumeric []string
		wantSkipped int
	}{
		{
			name:        "header and typed cells",
			content:     "id,amount,kind\n1,10.5,retail\n2,,wholesale\n3,99,retail\n",
			wantRows:    3,
			wantCols:    []string{"id", "amount", "kind"},
			wantNumeric: []string{"id", "amount"},
		},
		{
			name:        "malformed rows skipped",
			content:     "a,b\n1,2\n3\n4,5\n",
			wantRows:    2,
			wantCols:    []string{"a", "b"},
			wantNumeric: []string{"a", "b"},
			wantSkipped: 1,
		},
		{
			name:        "no header",
			content:     "1,2\n3,4\n",
			opts:        []Option{WithHeader(false)},
			wantRows:    2,
			wantCols:    []string{"column_0", "column_1"},
			wantNumeric: []string{"column_0", "column_1"},
		},
		{
			name:        "semicolon delimiter",
			content:     "a;b\n1;x\n",
			opts:        []Option{WithComma(';')},
			wantRows:    1,
			wantCols:    []string{"a", "b"},
			wantNumeric: []string{"a"},
		},
		{
			name:        "header only",
			content:     "a,b\n",
			wantRows:    0,
			wantCols:    []string{"a", "b"},
			wantNumeric: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewReader(writeFile(t, tt.content), tt.opts...)
			require.NoError(t, err)
			defer r.Close()

			ds, err := r.Load(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantRows, ds.Len())
			assert.Equal(t, tt.wantCols, ds.Columns())
			assert.Equal(t, tt.wantNumeric, ds.NumericColumns())
			assert.Equal(t, tt.wantSkipped, r.Skipped())
		})
	}
}

func TestLoadMissingCell(t *testing.T) {
	r, err := NewReader(writeFile(t, "id,amount\n1,NA\n2,7\n"))
	require.NoError(t, err)
	defer r.Close()

	ds, err := r.Load(context.Background())
	require.NoError(t, err)
	_, ok := ds.Value(0, "amount")
	assert.False(t, ok)
	f, ok := ds.Float(1, "amount")
	assert.True(t, ok)
	assert.Equal(t, 7.0, f)
}

func TestNewReaderErrors(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	_, err = NewReader(writeFile(t, ""))
	assert.Error(t, err)
}

func TestLoadDuplicateHeader(t *testing.T) {
	r, err := NewReader(writeFile(t, "a,a\n1,2\n"))
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Load(context.Background())
	assert.Error(t, err)
}

func TestLoadCancelled(t *testing.T) {
	r, err := NewReader(writeFile(t, "a\n1\n"))
	require.NoError(t, err)
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSource(t *testing.T) {
	path := writeFile(t, "a\n1\n")
	r, err := NewReader(path)
	require.NoError(t, err)
	assert.Equal(t, path, r.Source())
	assert.NoError(t, r.Close())
	assert.NoError(t, r.Close())
}
