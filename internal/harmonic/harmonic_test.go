package harmonic

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/banshee-data/sphericalharmonics/internal/legendre"
	"github.com/banshee-data/sphericalharmonics/internal/testutil"
)

const relTol = 1e-9

// syntheticTable fills every (l, m) row with distinct non-zero values.
func syntheticTable(t *testing.T, maxL, height int) *legendre.Table {
	return testutil.SyntheticTable(t, maxL, height, func(l, m, i int) float64 {
		return 0.5 + float64(l) - 0.25*float64(m) + 0.1*float64(i)
	})
}

func TestFactorial(t *testing.T) {
	want := []float64{1, 1, 2, 6, 24, 120, 720, 5040}
	for n, w := range want {
		assert.True(t, scalar.EqualWithinRel(Factorial(n), w, relTol), "%d! = %v", n, Factorial(n))
	}
	assert.True(t, scalar.EqualWithinRel(Factorial(20), 2432902008176640000, relTol))
}

func TestNormalization(t *testing.T) {
	// N(0,0) = 1/sqrt(4π)
	assert.True(t, scalar.EqualWithinRel(Normalization(0, 0), 1/math.Sqrt(4*math.Pi), relTol))
	// N(1,1) = sqrt(3/(4π) · 1/2)
	assert.True(t, scalar.EqualWithinRel(Normalization(1, 1), math.Sqrt(3/(8*math.Pi)), relTol))
	// Signed m: N(1,-1) = sqrt(3/(4π) · 2)
	assert.True(t, scalar.EqualWithinRel(Normalization(1, -1), math.Sqrt(3/(2*math.Pi)), relTol))
}

func TestNegativeOrderFactor(t *testing.T) {
	assert.Equal(t, 1.0, NegativeOrderFactor(3, 0))
	assert.Equal(t, 1.0, NegativeOrderFactor(3, 2))
	// (−1)^−1 · 2!/0! = −2
	assert.True(t, scalar.EqualWithinRel(NegativeOrderFactor(1, -1), -2, relTol))
	// (−1)^−2 · 5!/1! = 120
	assert.True(t, scalar.EqualWithinRel(NegativeOrderFactor(3, -2), 120, relTol))
}

func TestEvaluate_PhiZeroReducesToNormTimesLegendre(t *testing.T) {
	tbl := syntheticTable(t, 6, 5)
	for l := 1; l <= 6; l++ {
		for m := 0; m <= l; m++ {
			for i := 0; i < 5; i++ {
				p, err := tbl.At(l, m, i)
				require.NoError(t, err)
				got, err := Evaluate(tbl, l, m, i, 0)
				require.NoError(t, err)
				assert.Equal(t, Normalization(l, m)*p, got, "l=%d m=%d i=%d", l, m, i)
			}
		}
	}
}

func TestEvaluate_NegativeOrderRelation(t *testing.T) {
	tbl := syntheticTable(t, 5, 4)
	phis := []float64{0, 0.3, math.Pi / 2, 2.5, math.Pi, 5.9}
	for l := 1; l <= 5; l++ {
		for m := 1; m <= l; m++ {
			for i := 0; i < 4; i++ {
				p, err := tbl.At(l, m, i)
				require.NoError(t, err)
				for _, phi := range phis {
					got, err := Evaluate(tbl, l, -m, i, phi)
					require.NoError(t, err)

					// cos(−mφ) − sin(−mφ) = cos(mφ) + sin(mφ)
					mphi := float64(m) * phi
					want := Normalization(l, -m) * p * (math.Cos(mphi) + math.Sin(mphi)) * NegativeOrderFactor(l, -m)
					assert.True(t, scalar.EqualWithinAbsOrRel(got, want, 1e-12, relTol),
						"l=%d m=%d i=%d φ=%v: got %v want %v", l, -m, i, phi, got, want)
				}

				// At φ = 0 the two branches differ only by the constant factors.
				pos, err := Evaluate(tbl, l, m, i, 0)
				require.NoError(t, err)
				neg, err := Evaluate(tbl, l, -m, i, 0)
				require.NoError(t, err)
				ratio := Normalization(l, -m) / Normalization(l, m) * NegativeOrderFactor(l, -m)
				assert.True(t, scalar.EqualWithinRel(neg, pos*ratio, relTol), "l=%d m=%d i=%d", l, m, i)
			}
		}
	}
}

func TestEvaluate_PhaseTerm(t *testing.T) {
	tbl := syntheticTable(t, 2, 3)
	p, err := tbl.At(2, 1, 1)
	require.NoError(t, err)

	// m=1, φ=π/2: cos − sin = −1
	got, err := Evaluate(tbl, 2, 1, 1, math.Pi/2)
	require.NoError(t, err)
	assert.True(t, scalar.EqualWithinAbsOrRel(got, -Normalization(2, 1)*p, 1e-12, relTol))
}

func TestEvaluate_InvalidIndex(t *testing.T) {
	tbl := syntheticTable(t, 3, 2)
	tests := []struct{ l, m int }{
		{-1, 0},
		{2, 3},
		{2, -3},
	}
	for _, tt := range tests {
		_, err := Evaluate(tbl, tt.l, tt.m, 0, 0)
		assert.ErrorIs(t, err, ErrInvalidHarmonicIndex, "l=%d m=%d", tt.l, tt.m)
	}
}

func TestEvaluate_TableErrors(t *testing.T) {
	rows := [][][]float64{{{1, 1}}, nil, {{1, 1}, {2, 2}, {3, 3}}}
	tbl, err := legendre.NewTable(2, 2, rows)
	require.NoError(t, err)

	_, err = Evaluate(tbl, 1, -1, 0, 0)
	assert.ErrorIs(t, err, legendre.ErrMissingLevel)
	assert.ErrorContains(t, err, "l=1, m=-1")

	_, err = Evaluate(tbl, 2, 2, 2, 0)
	assert.ErrorIs(t, err, legendre.ErrOutOfRange)
}

func TestComponent_RowMatchesAt(t *testing.T) {
	tbl := syntheticTable(t, 3, 4)
	c, err := NewComponent(tbl, Index{L: 3, M: -2})
	require.NoError(t, err)
	assert.Equal(t, 4, c.Samples())

	dst := make([]float64, 8)
	require.NoError(t, c.Row(2, dst))
	for x, v := range dst {
		want, err := c.At(2, 2*math.Pi*float64(x)/8)
		require.NoError(t, err)
		assert.Equal(t, want, v, "x=%d", x)
	}

	assert.ErrorIs(t, c.Row(4, dst), legendre.ErrOutOfRange)
}

func TestIndex(t *testing.T) {
	assert.NoError(t, Index{L: 0, M: 0}.Validate())
	assert.NoError(t, Index{L: 4, M: -4}.Validate())
	assert.Error(t, Index{L: 1, M: 2}.Validate())
	assert.Equal(t, "(l=2, m=-1)", Index{L: 2, M: -1}.String())
}
