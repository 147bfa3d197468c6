package legendre

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTable(t *testing.T) {
	rows := expectedRows(2, 3, 0, 2)
	tbl, err := NewTable(2, 3, rows)
	require.NoError(t, err)

	assert.Equal(t, 2, tbl.MaxL())
	assert.Equal(t, 3, tbl.Height())
	assert.Equal(t, []int{0, 2}, tbl.Levels())
	assert.Equal(t, []int{1}, tbl.Missing(0, 2))
	assert.True(t, tbl.Has(2))
	assert.False(t, tbl.Has(1))
	assert.False(t, tbl.Has(3))
	assert.False(t, tbl.Has(-1))

	// Table keeps its own copy.
	rows[2][1][0] = 42
	v, err := tbl.At(2, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, sample(2, 1, 0), v)
}

func TestNewTable_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		maxL   int
		height int
		rows   [][][]float64
	}{
		{"negative max_l", -1, 3, nil},
		{"max_l above limit", MaxDegree + 1, 3, make([][][]float64, MaxDegree+2)},
		{"zero height", 1, 0, make([][][]float64, 2)},
		{"wrong slot count", 2, 3, make([][][]float64, 2)},
		{"wrong order count", 1, 2, [][][]float64{nil, {{1, 2}}}},
		{"short row", 1, 2, [][][]float64{nil, {{1, 2}, {3}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.maxL, tt.height, tt.rows)
			assert.ErrorIs(t, err, ErrDataCorrupt)
		})
	}
}

func TestTable_Lookups(t *testing.T) {
	tbl, err := NewTable(3, 4, expectedRows(3, 4, 0, 1, 3))
	require.NoError(t, err)

	row, err := tbl.Row(3, 2)
	require.NoError(t, err)
	assert.Len(t, row, 4)

	_, err = tbl.At(2, 0, 0)
	assert.ErrorIs(t, err, ErrMissingLevel)
	assert.ErrorContains(t, err, "l=2")

	_, err = tbl.At(7, 0, 0)
	assert.ErrorIs(t, err, ErrMissingLevel)

	_, err = tbl.At(1, 2, 0)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = tbl.At(1, 1, 4)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.False(t, errors.Is(err, ErrMissingLevel))
}
