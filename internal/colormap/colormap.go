// Package colormap maps scalar values onto the renderer's four-band diverging
// scale: blue → cyan → green → yellow → red, low to high.
package colormap

import (
	"image/color"
	"math"

	"gonum.org/v1/plot/palette"
)

const (
	// Steps is the resolution of the normalised scale; positions run 0..Steps-1.
	Steps = 1024
	// Midpoint is the position used when the range is degenerate.
	Midpoint = Steps / 2

	band = Steps / 4
)

// Position normalises v into [0, Steps) relative to [lo, hi], truncating
// toward zero and clamping values that fall outside the range. A degenerate
// range (lo == hi) or a NaN maps to Midpoint.
func Position(v, lo, hi float64) int {
	if hi == lo {
		return Midpoint
	}
	f := Steps * (v - lo) / (hi - lo)
	switch {
	case math.IsNaN(f):
		return Midpoint
	case f < 0:
		return 0
	case f >= Steps-1:
		return Steps - 1
	}
	return int(f)
}

// AtPosition returns the colour at scale position t in [0, Steps).
func AtPosition(t int) color.RGBA {
	switch {
	case t < 0:
		t = 0
	case t >= Steps:
		t = Steps - 1
	}
	switch {
	case t < band:
		// blue to cyan
		return color.RGBA{R: 0, G: uint8(t), B: 255, A: 255}
	case t < 2*band:
		// cyan to green
		return color.RGBA{R: 0, G: 255, B: uint8(255 - (t - band)), A: 255}
	case t < 3*band:
		// green to yellow
		return color.RGBA{R: uint8(t - 2*band), G: 255, B: 0, A: 255}
	default:
		// yellow to red
		return color.RGBA{R: 255, G: uint8(255 - (t - 3*band)), B: 0, A: 255}
	}
}

// Map returns the opaque colour for v within [lo, hi]. It never fails.
func Map(v, lo, hi float64) color.RGBA {
	return AtPosition(Position(v, lo, hi))
}

// Diverging adapts the scale to gonum's palette.ColorMap so plot components
// such as plotter.ColorBar can draw it.
type Diverging struct {
	min, max float64
	alpha    float64
}

var _ palette.ColorMap = (*Diverging)(nil)

// NewDiverging returns an opaque Diverging map over [min, max].
func NewDiverging(min, max float64) *Diverging {
	return &Diverging{min: min, max: max, alpha: 1}
}

// At implements palette.ColorMap. Unlike Map, values outside [Min, Max]
// are reported as errors, as gonum's colour maps do.
func (d *Diverging) At(v float64) (color.Color, error) {
	switch {
	case math.IsNaN(v):
		return nil, palette.ErrNaN
	case v < d.min:
		return nil, palette.ErrUnderflow
	case v > d.max:
		return nil, palette.ErrOverflow
	}
	return d.withAlpha(Map(v, d.min, d.max)), nil
}

func (d *Diverging) withAlpha(c color.RGBA) color.Color {
	if d.alpha >= 1 {
		return c
	}
	a := d.alpha
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(math.Round(255 * a))}
}

// Min implements palette.ColorMap.
func (d *Diverging) Min() float64 { return d.min }

// Max implements palette.ColorMap.
func (d *Diverging) Max() float64 { return d.max }

// SetMin implements palette.ColorMap.
func (d *Diverging) SetMin(v float64) { d.min = v }

// SetMax implements palette.ColorMap.
func (d *Diverging) SetMax(v float64) { d.max = v }

// Alpha implements palette.ColorMap.
func (d *Diverging) Alpha() float64 { return d.alpha }

// SetAlpha implements palette.ColorMap. Values are clamped to [0, 1].
func (d *Diverging) SetAlpha(a float64) { d.alpha = math.Max(0, math.Min(1, a)) }

// Palette implements palette.ColorMap, sampling n colours evenly from Min
// to Max inclusive.
func (d *Diverging) Palette(n int) palette.Palette {
	if n <= 0 {
		return swatch(nil)
	}
	cols := make(swatch, n)
	if n == 1 {
		cols[0] = d.withAlpha(AtPosition(Midpoint))
		return cols
	}
	for i := range cols {
		v := d.min + (d.max-d.min)*float64(i)/float64(n-1)
		cols[i] = d.withAlpha(Map(v, d.min, d.max))
	}
	return cols
}

// swatch is a fixed list of colours satisfying palette.Palette.
type swatch []color.Color

func (s swatch) Colors() []color.Color { return s }
