// Package harmonic evaluates the real spherical harmonic component
//
//	Y(l, m, θ, φ) = N(l,m) · P_l,|m|(cos θ) · (cos mφ − sin mφ)
//
// on the θ sampling grid of a legendre.Table. For m < 0 the value is further
// scaled by (−1)^m · (l−m)!/(l+m)!. The amplitude a_l,m is fixed at 1.
//
// The (cos − sin) phase term is what the rendered images are defined by; it
// is not the textbook real-harmonic convention and must not be replaced by it.
package harmonic

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/sphericalharmonics/internal/legendre"
)

// ErrInvalidHarmonicIndex reports an (l, m) pair outside l ≥ 0, |m| ≤ l.
var ErrInvalidHarmonicIndex = errors.New("invalid harmonic index")

// Index identifies one harmonic, and one output image.
type Index struct {
	L int
	M int
}

// Validate checks l ≥ 0 and |m| ≤ l.
func (i Index) Validate() error {
	if i.L < 0 || i.M < -i.L || i.M > i.L {
		return fmt.Errorf("%w: l=%d m=%d", ErrInvalidHarmonicIndex, i.L, i.M)
	}
	return nil
}

func (i Index) String() string {
	return fmt.Sprintf("(l=%d, m=%d)", i.L, i.M)
}

// Factorial returns n! as Γ(n+1). n must be non-negative.
func Factorial(n int) float64 {
	return math.Gamma(float64(n) + 1)
}

// Normalization returns N(l,m) = sqrt((2l+1)/(4π) · (l−m)!/(l+m)!), using
// the signed m.
func Normalization(l, m int) float64 {
	return math.Sqrt(float64(2*l+1) / (4 * math.Pi) * Factorial(l-m) / Factorial(l+m))
}

// NegativeOrderFactor returns (−1)^m · (l−m)!/(l+m)! for m < 0 and 1 otherwise.
func NegativeOrderFactor(l, m int) float64 {
	if m >= 0 {
		return 1
	}
	sign := 1.0
	if m%2 != 0 {
		sign = -1
	}
	return sign * Factorial(l-m) / Factorial(l+m)
}

// Component is one harmonic bound to its Legendre row, with the constant
// factors resolved. It is safe for concurrent use.
type Component struct {
	Index
	row    []float64
	norm   float64
	factor float64
}

// NewComponent validates idx and resolves its row in t.
func NewComponent(t *legendre.Table, idx Index) (*Component, error) {
	if err := idx.Validate(); err != nil {
		return nil, err
	}
	m := idx.M
	if m < 0 {
		m = -m
	}
	row, err := t.Row(idx.L, m)
	if err != nil {
		return nil, fmt.Errorf("harmonic %s: %w", idx, err)
	}
	return &Component{
		Index:  idx,
		row:    row,
		norm:   Normalization(idx.L, idx.M),
		factor: NegativeOrderFactor(idx.L, idx.M),
	}, nil
}

// Samples returns the number of θ samples available.
func (c *Component) Samples() int { return len(c.row) }

// At evaluates the harmonic at θ sample i and longitude phi.
func (c *Component) At(i int, phi float64) (float64, error) {
	if i < 0 || i >= len(c.row) {
		return 0, fmt.Errorf("harmonic %s: %w: sample %d of %d", c.Index, legendre.ErrOutOfRange, i, len(c.row))
	}
	return c.at(i, phi), nil
}

func (c *Component) at(i int, phi float64) float64 {
	mphi := float64(c.M) * phi
	v := c.norm * c.row[i] * (math.Cos(mphi) - math.Sin(mphi))
	if c.M < 0 {
		v *= c.factor
	}
	return v
}

// Row evaluates the whole longitude sweep for θ sample i into dst, with
// φ_x = 2π·x/len(dst).
func (c *Component) Row(i int, dst []float64) error {
	if i < 0 || i >= len(c.row) {
		return fmt.Errorf("harmonic %s: %w: sample %d of %d", c.Index, legendre.ErrOutOfRange, i, len(c.row))
	}
	w := float64(len(dst))
	for x := range dst {
		dst[x] = c.at(i, 2*math.Pi*float64(x)/w)
	}
	return nil
}

// Evaluate returns the harmonic (l, m) at θ sample i and longitude phi.
func Evaluate(t *legendre.Table, l, m, i int, phi float64) (float64, error) {
	c, err := NewComponent(t, Index{L: l, M: m})
	if err != nil {
		return 0, err
	}
	return c.At(i, phi)
}
