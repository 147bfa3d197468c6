// Package legendre holds the precomputed table of associated Legendre
// polynomial samples P_l,m(cos θ) that every harmonic image is drawn from.
//
// A Table is built once (from per-degree CSV files or from the binary cache)
// and is immutable afterwards, so any number of renderers may read it
// concurrently without locking.
package legendre

import (
	"errors"
	"fmt"
)

var (
	// ErrDataUnavailable means neither a cache file nor any source CSV exists.
	ErrDataUnavailable = errors.New("legendre data unavailable")
	// ErrDataCorrupt means a cache or source file exists but has the wrong shape.
	ErrDataCorrupt = errors.New("legendre data corrupt")
	// ErrMissingLevel means the table has no rows for the requested degree.
	ErrMissingLevel = errors.New("legendre level missing")
	// ErrOutOfRange means an order or sample index lies outside the table.
	ErrOutOfRange = errors.New("legendre index out of range")
)

// MaxDegree bounds the degrees a table may hold. (l+m)! overflows a float64
// beyond 170!, so no harmonic above this degree can be normalised.
const MaxDegree = 85

// Table is an immutable, three-level table[l][m][sample] of Legendre
// samples for degrees 0..MaxL inclusive. Each present degree has exactly
// l+1 order rows of Height samples; absent degrees are holes.
type Table struct {
	maxL   int
	height int
	rows   [][][]float64
}

// NewTable validates rows and returns a Table holding a private copy of
// them. rows must have length maxL+1; rows[l] is either nil (a hole) or
// holds l+1 slices of exactly height samples.
func NewTable(maxL, height int, rows [][][]float64) (*Table, error) {
	if err := checkDims(maxL, height); err != nil {
		return nil, err
	}
	if len(rows) != maxL+1 {
		return nil, fmt.Errorf("%w: expected %d degree slots, got %d", ErrDataCorrupt, maxL+1, len(rows))
	}

	cp := make([][][]float64, maxL+1)
	for l, level := range rows {
		if level == nil {
			continue
		}
		if err := checkLevel(l, height, level); err != nil {
			return nil, err
		}
		cp[l] = make([][]float64, len(level))
		for m, row := range level {
			cp[l][m] = append([]float64(nil), row...)
		}
	}
	return &Table{maxL: maxL, height: height, rows: cp}, nil
}

func checkDims(maxL, height int) error {
	if maxL < 0 || maxL > MaxDegree {
		return fmt.Errorf("%w: max_l %d outside [0, %d]", ErrDataCorrupt, maxL, MaxDegree)
	}
	if height <= 0 {
		return fmt.Errorf("%w: height must be positive, got %d", ErrDataCorrupt, height)
	}
	return nil
}

func checkLevel(l, height int, level [][]float64) error {
	if len(level) != l+1 {
		return fmt.Errorf("%w: l=%d has %d order rows, want %d", ErrDataCorrupt, l, len(level), l+1)
	}
	for m, row := range level {
		if len(row) != height {
			return fmt.Errorf("%w: l=%d m=%d has %d samples, want %d", ErrDataCorrupt, l, m, len(row), height)
		}
	}
	return nil
}

// MaxL returns the highest degree slot in the table.
func (t *Table) MaxL() int { return t.maxL }

// Height returns the number of θ samples per row.
func (t *Table) Height() int { return t.height }

// Has reports whether degree l is present.
func (t *Table) Has(l int) bool {
	return l >= 0 && l <= t.maxL && t.rows[l] != nil
}

// Levels returns the present degrees in ascending order.
func (t *Table) Levels() []int {
	var out []int
	for l := range t.rows {
		if t.rows[l] != nil {
			out = append(out, l)
		}
	}
	return out
}

// Missing returns the degrees in [from, to] that have no rows.
func (t *Table) Missing(from, to int) []int {
	var out []int
	for l := from; l <= to; l++ {
		if !t.Has(l) {
			out = append(out, l)
		}
	}
	return out
}

// Row returns the samples for (l, m). The slice is shared with the table
// and must not be modified.
func (t *Table) Row(l, m int) ([]float64, error) {
	if !t.Has(l) {
		return nil, fmt.Errorf("%w: no table entry for l=%d", ErrMissingLevel, l)
	}
	if m < 0 || m > l {
		return nil, fmt.Errorf("%w: m=%d for l=%d", ErrOutOfRange, m, l)
	}
	return t.rows[l][m], nil
}

// At returns P_l,m at sample index i.
func (t *Table) At(l, m, i int) (float64, error) {
	row, err := t.Row(l, m)
	if err != nil {
		return 0, err
	}
	if i < 0 || i >= len(row) {
		return 0, fmt.Errorf("%w: sample %d for l=%d m=%d (height %d)", ErrOutOfRange, i, l, m, t.height)
	}
	return row[i], nil
}
