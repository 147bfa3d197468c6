package colormap

import (
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/palette"
)

func rgb(r, g, b uint8) color.RGBA { return color.RGBA{R: r, G: g, B: b, A: 255} }

func TestAtPosition_Endpoints(t *testing.T) {
	tests := []struct {
		t    int
		want color.RGBA
	}{
		{0, rgb(0, 0, 255)},
		{128, rgb(0, 128, 255)},
		{256, rgb(0, 255, 255)},
		{384, rgb(0, 255, 127)},
		{512, rgb(0, 255, 0)},
		{640, rgb(128, 255, 0)},
		{768, rgb(255, 255, 0)},
		{1023, rgb(255, 0, 0)},
		{-5, rgb(0, 0, 255)},
		{5000, rgb(255, 0, 0)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AtPosition(tt.t), "t=%d", tt.t)
	}
}

func TestAtPosition_ContinuousAcrossBands(t *testing.T) {
	// The last colour of each band and the first of the next are one step
	// apart at most, and the band start colours are the nominal endpoints.
	for _, b := range []int{256, 512, 768} {
		prev, next := AtPosition(b-1), AtPosition(b)
		assert.LessOrEqual(t, absDiff(prev.R, next.R)+absDiff(prev.G, next.G)+absDiff(prev.B, next.B), 1, "boundary %d", b)
	}
	assert.Equal(t, rgb(0, 255, 255), AtPosition(255))
	assert.Equal(t, rgb(0, 255, 255), AtPosition(256))
	assert.Equal(t, rgb(0, 255, 0), AtPosition(511))
	assert.Equal(t, rgb(0, 255, 0), AtPosition(512))
	assert.Equal(t, rgb(255, 255, 0), AtPosition(767))
	assert.Equal(t, rgb(255, 255, 0), AtPosition(768))
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func TestMap_Monotonic(t *testing.T) {
	lo, hi := -3.5, 12.25
	prev := Map(lo, lo, hi)
	for i := 1; i <= 5000; i++ {
		v := lo + (hi-lo)*float64(i)/5000
		c := Map(v, lo, hi)
		assert.GreaterOrEqual(t, c.R, prev.R, "red decreased at v=%v", v)
		assert.LessOrEqual(t, c.B, prev.B, "blue increased at v=%v", v)
		prev = c
	}
	assert.Equal(t, rgb(0, 0, 255), Map(lo, lo, hi))
	assert.Equal(t, rgb(255, 0, 0), Map(hi, lo, hi))
}

func TestMap_DegenerateRange(t *testing.T) {
	for _, c := range []float64{0, -1, 42, math.MaxFloat64} {
		for _, v := range []float64{c, c - 1, c + 1, math.Inf(1)} {
			assert.Equal(t, rgb(0, 255, 0), Map(v, c, c), "v=%v c=%v", v, c)
		}
	}
}

func TestPosition(t *testing.T) {
	assert.Equal(t, 0, Position(0, 0, 1))
	assert.Equal(t, 512, Position(0.5, 0, 1))
	assert.Equal(t, 1023, Position(1, 0, 1))
	assert.Equal(t, 1023, Position(1+1e-12, 0, 1))
	assert.Equal(t, 0, Position(-1e-12, 0, 1))
	assert.Equal(t, Midpoint, Position(math.NaN(), 0, 1))
	// truncation, not rounding
	assert.Equal(t, 255, Position(255.9/1024, 0, 1))
}

func TestDiverging_ColorMap(t *testing.T) {
	var cm palette.ColorMap = NewDiverging(-2, 2)
	assert.Equal(t, -2.0, cm.Min())
	assert.Equal(t, 2.0, cm.Max())

	c, err := cm.At(0)
	require.NoError(t, err)
	assert.Equal(t, rgb(0, 255, 0), c)

	_, err = cm.At(-2.1)
	assert.ErrorIs(t, err, palette.ErrUnderflow)
	_, err = cm.At(2.1)
	assert.ErrorIs(t, err, palette.ErrOverflow)
	_, err = cm.At(math.NaN())
	assert.ErrorIs(t, err, palette.ErrNaN)

	cm.SetMin(0)
	cm.SetMax(10)
	c, err = cm.At(10)
	require.NoError(t, err)
	assert.Equal(t, rgb(255, 0, 0), c)
}

func TestDiverging_Palette(t *testing.T) {
	d := NewDiverging(0, 1)
	cols := d.Palette(5).Colors()
	require.Len(t, cols, 5)
	assert.Equal(t, rgb(0, 0, 255), cols[0])
	assert.Equal(t, rgb(0, 255, 0), cols[2])
	assert.Equal(t, rgb(255, 0, 0), cols[4])

	assert.Empty(t, d.Palette(0).Colors())
	assert.Equal(t, []color.Color{rgb(0, 255, 0)}, d.Palette(1).Colors())

	d.SetAlpha(0.5)
	assert.Equal(t, 0.5, d.Alpha())
	c := d.Palette(2).Colors()[0]
	assert.Equal(t, color.NRGBA{R: 0, G: 0, B: 255, A: 128}, c)

	d.SetAlpha(3)
	assert.Equal(t, 1.0, d.Alpha())
}
