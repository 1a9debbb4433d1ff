package xlsx

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	rows := [][]any{
		{"id", "amount", "kind"},
		{1, 10.5, "retail"},
		{2, nil, "wholesale"},
		{3, 9000, "retail"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	_, err := f.NewSheet("Other")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Other", "A1", &[]any{"x"}))
	require.NoError(t, f.SetSheetRow("Other", "A2", &[]any{7}))

	path := filepath.Join(t.TempDir(), "data.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Option
		wantRows int
		wantCols []string
		wantNum  []string
	}{
		{
			name:     "first sheet by default",
			wantRows: 3,
			wantCols: []string{"id", "amount", "kind"},
			wantNum:  []string{"id", "amount"},
		},
		{
			name:     "named sheet",
			opts:     []Option{WithSheet("Other")},
			wantRows: 1,
			wantCols: []string{"x"},
			wantNum:  []string{"x"},
		},
	}

	path := workbook(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewReader(path, tt.opts...)
			require.NoError(t, err)
			defer r.Close()

			ds, err := r.Load(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantRows, ds.Len())
			assert.Equal(t, tt.wantCols, ds.Columns())
			assert.Equal(t, tt.wantNum, ds.NumericColumns())
		})
	}
}

func TestLoadValues(t *testing.T) {
	r, err := NewReader(workbook(t))
	require.NoError(t, err)
	defer r.Close()
	assert.Contains(t, r.Source(), "#Sheet1")

	ds, err := r.Load(context.Background())
	require.NoError(t, err)
	v, ok := ds.Float(2, "amount")
	require.True(t, ok)
	assert.Equal(t, 9000.0, v)
	_, ok = ds.Value(1, "amount")
	assert.False(t, ok)
}

func TestNewReaderErrors(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.Error(t, err)

	_, err = NewReader(workbook(t), WithSheet("Nope"))
	assert.Error(t, err)
}
